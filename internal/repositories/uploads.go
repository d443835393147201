package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rohits-web03/mediadrop/internal/common"
	"github.com/rohits-web03/mediadrop/internal/models"
	"github.com/rohits-web03/mediadrop/internal/utils"
)

// GlobalOwner keys the shared upload list used when auth is disabled.
const GlobalOwner = ""

const globalLockKey = "global"

// UploadLedger appends upload records for an owner. Appends for the same
// owner never interleave their read-modify-write.
type UploadLedger struct {
	store Store
	users *UserDirectory
	locks utils.KeyedMutex
}

func NewUploadLedger(store Store, users *UserDirectory) *UploadLedger {
	return &UploadLedger{store: store, users: users}
}

// Append adds records, in order, to the owner's history. Owner GlobalOwner
// targets the "uploads" list.
func (l *UploadLedger) Append(ctx context.Context, owner string, records []models.Upload) error {
	if len(records) == 0 {
		return nil
	}

	unlock := l.locks.Lock(lockKey(owner))
	defer unlock()

	if owner == GlobalOwner {
		current, err := l.loadGlobal(ctx)
		if err != nil {
			return err
		}
		b, err := json.Marshal(append(current, records...))
		if err != nil {
			return fmt.Errorf("%w: encode %s: %v", common.ErrPersistence, KeyUploads, err)
		}
		return l.store.Set(ctx, KeyUploads, string(b))
	}

	_, err := l.users.Update(ctx, owner, func(u *models.User) error {
		u.Uploads = append(u.Uploads, records...)
		return nil
	})
	return err
}

// List returns the owner's history, oldest first.
func (l *UploadLedger) List(ctx context.Context, owner string) ([]models.Upload, error) {
	if owner == GlobalOwner {
		return l.loadGlobal(ctx)
	}
	u, err := l.users.FindByID(ctx, owner)
	if err != nil {
		return nil, err
	}
	if u.Uploads == nil {
		return []models.Upload{}, nil
	}
	return u.Uploads, nil
}

func (l *UploadLedger) loadGlobal(ctx context.Context) ([]models.Upload, error) {
	raw, ok, err := l.store.Get(ctx, KeyUploads)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []models.Upload{}, nil
	}
	var uploads []models.Upload
	if err := json.Unmarshal([]byte(raw), &uploads); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", common.ErrPersistence, KeyUploads, err)
	}
	return uploads, nil
}

func lockKey(owner string) string {
	if owner == GlobalOwner {
		return globalLockKey
	}
	return "user:" + owner
}
