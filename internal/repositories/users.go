package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rohits-web03/mediadrop/internal/common"
	"github.com/rohits-web03/mediadrop/internal/models"
)

// UserDirectory stores every user as one JSON array under KeyUsers. All
// read-modify-write cycles on that key go through mu.
type UserDirectory struct {
	store Store
	mu    sync.Mutex
}

func NewUserDirectory(store Store) *UserDirectory {
	return &UserDirectory{store: store}
}

func (d *UserDirectory) List(ctx context.Context) ([]models.User, error) {
	return d.load(ctx)
}

func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if sameEmail(users[i].Email, email) {
			return &users[i], nil
		}
	}
	return nil, common.ErrNotFound
}

func (d *UserDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	users, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, common.ErrNotFound
}

// Create appends u, failing with ErrDuplicateEmail if the email is taken.
func (d *UserDirectory) Create(ctx context.Context, u models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	users, err := d.load(ctx)
	if err != nil {
		return err
	}
	for _, existing := range users {
		if sameEmail(existing.Email, u.Email) {
			return common.ErrDuplicateEmail
		}
	}
	if u.Uploads == nil {
		u.Uploads = []models.Upload{}
	}
	return d.save(ctx, append(users, u))
}

// Update applies fn to the user with the given id and writes the result
// back. Nothing is written if fn fails.
func (d *UserDirectory) Update(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	users, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID != id {
			continue
		}
		updated := users[i]
		updated.Uploads = append([]models.Upload(nil), users[i].Uploads...)
		if err := fn(&updated); err != nil {
			return nil, err
		}
		users[i] = updated
		if err := d.save(ctx, users); err != nil {
			return nil, err
		}
		return &updated, nil
	}
	return nil, common.ErrNotFound
}

// Delete removes the user with the given id. Missing ids are not an error.
func (d *UserDirectory) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	users, err := d.load(ctx)
	if err != nil {
		return err
	}
	kept := users[:0]
	for _, u := range users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	return d.save(ctx, kept)
}

func (d *UserDirectory) load(ctx context.Context) ([]models.User, error) {
	raw, ok, err := d.store.Get(ctx, KeyUsers)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []models.User{}, nil
	}
	var users []models.User
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", common.ErrPersistence, KeyUsers, err)
	}
	return users, nil
}

func (d *UserDirectory) save(ctx context.Context, users []models.User) error {
	b, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", common.ErrPersistence, KeyUsers, err)
	}
	return d.store.Set(ctx, KeyUsers, string(b))
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
