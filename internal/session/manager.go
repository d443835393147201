// Package session owns the current-user concept of one workspace: restoring
// a persisted login, registering, logging in and out, and the small profile
// the user can edit while signed in.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rohits-web03/mediadrop/internal/common"
	"github.com/rohits-web03/mediadrop/internal/logging"
	"github.com/rohits-web03/mediadrop/internal/models"
	"github.com/rohits-web03/mediadrop/internal/notice"
	"github.com/rohits-web03/mediadrop/internal/repositories"
	"github.com/rohits-web03/mediadrop/internal/utils"
)

type State string

const (
	StateUnknown       State = "unknown"
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

const maxGameProfileLen = 2000

type Options struct {
	// SessionKey is where the session-user projection is stored.
	// Defaults to repositories.KeySessionUser.
	SessionKey string
	IDs        utils.IDGenerator
	Hasher     Hasher
	Notices    notice.Sink
	Logger     logging.Logger
	// Latency simulates a round trip at the start of register and login.
	Latency time.Duration
	Now     func() time.Time
}

// Manager is the session state machine:
//
//	Unknown -> Loading -> Authenticated | Anonymous
//
// At most one operation runs at a time; a second caller gets
// common.ErrOperationInProgress instead of waiting.
type Manager struct {
	store repositories.Store
	users *repositories.UserDirectory

	key     string
	ids     utils.IDGenerator
	hasher  Hasher
	notices notice.Sink
	log     logging.Logger
	latency time.Duration
	now     func() time.Time

	mu    sync.Mutex
	state State
	user  *models.SessionUser
	busy  bool
}

func NewManager(store repositories.Store, users *repositories.UserDirectory, opts Options) *Manager {
	m := &Manager{
		store:   store,
		users:   users,
		key:     opts.SessionKey,
		ids:     opts.IDs,
		hasher:  opts.Hasher,
		notices: opts.Notices,
		log:     opts.Logger,
		latency: opts.Latency,
		now:     opts.Now,
		state:   StateUnknown,
	}
	if m.key == "" {
		m.key = repositories.KeySessionUser
	}
	if m.ids == nil {
		m.ids = utils.UUIDGenerator{}
	}
	if m.hasher == nil {
		m.hasher = BcryptHasher{}
	}
	if m.notices == nil {
		m.notices = notice.Discard{}
	}
	if m.log == nil {
		m.log = logging.Discard()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// State returns the current state and a copy of the session user, if any.
func (m *Manager) State() (State, *models.SessionUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, copyUser(m.user)
}

// InFlight reports whether an operation is running.
func (m *Manager) InFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// RequireUser returns the signed-in user, common.ErrSessionLoading while a
// restore is pending, or common.ErrNotAuthenticated.
func (m *Manager) RequireUser() (*models.SessionUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateLoading:
		return nil, common.ErrSessionLoading
	case StateAuthenticated:
		return copyUser(m.user), nil
	default:
		return nil, common.ErrNotAuthenticated
	}
}

// Restore loads a previously persisted session user.
func (m *Manager) Restore(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	m.setState(StateLoading, nil)

	raw, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		m.setState(StateAnonymous, nil)
		return m.fail(ctx, "Session restore failed", err)
	}
	if !ok {
		m.setState(StateAnonymous, nil)
		return nil
	}

	var u models.SessionUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == "" {
		_ = m.store.Remove(ctx, m.key)
		m.setState(StateAnonymous, nil)
		return m.fail(ctx, "Session restore failed", fmt.Errorf("%w: malformed session user", common.ErrPersistence))
	}

	m.setState(StateAuthenticated, &u)
	m.log.Debug(ctx, "session restored", "user", u.ID)
	return nil
}

// Register creates an account and signs it in.
func (m *Manager) Register(ctx context.Context, username, email, password string) (*models.SessionUser, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, m.fail(ctx, "Registration failed", fmt.Errorf("%w: username, email and password are required", common.ErrInvalidInput))
	}
	if len(password) > MaxPasswordBytes {
		return nil, m.fail(ctx, "Registration failed", fmt.Errorf("%w: password is longer than %d bytes", common.ErrInvalidInput, MaxPasswordBytes))
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	hash, err := m.hasher.Hash(password)
	if err != nil {
		return nil, m.fail(ctx, "Registration failed", fmt.Errorf("hash password: %w", err))
	}

	user := models.User{
		ID:           m.ids.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Uploads:      []models.Upload{},
		CreatedAt:    m.now(),
	}
	if err := m.users.Create(ctx, user); err != nil {
		return nil, m.fail(ctx, "Registration failed", err)
	}

	su := user.Session()
	if err := m.persist(ctx, su); err != nil {
		if delErr := m.users.Delete(ctx, user.ID); delErr != nil {
			m.log.Error(ctx, "rollback of registration failed", "user", user.ID, "error", delErr)
		}
		return nil, m.fail(ctx, "Registration failed", err)
	}

	m.setState(StateAuthenticated, su)
	m.notices.Notify(ctx, notice.Info("Registered", "Welcome, "+su.Username+"."))
	m.log.Info(ctx, "user registered", "user", su.ID)
	return copyUser(su), nil
}

// Login signs in with email and password. The session is left untouched on failure.
func (m *Manager) Login(ctx context.Context, email, password string) (*models.SessionUser, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	user, err := m.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			err = common.ErrInvalidCredentials
		}
		return nil, m.fail(ctx, "Login failed", err)
	}
	if err := m.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, m.fail(ctx, "Login failed", common.ErrInvalidCredentials)
	}

	return m.signIn(ctx, user)
}

// LoginExternal signs in a user vouched for by an external identity
// provider. With create set it registers the email and fails with
// common.ErrDuplicateEmail if it exists; otherwise the email must exist.
func (m *Manager) LoginExternal(ctx context.Context, email, username string, create bool) (*models.SessionUser, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, m.fail(ctx, "Login failed", fmt.Errorf("%w: provider returned no email", common.ErrInvalidInput))
	}

	existing, err := m.users.FindByEmail(ctx, email)
	switch {
	case err == nil && create:
		return nil, m.fail(ctx, "Registration failed", common.ErrDuplicateEmail)
	case err == nil:
		return m.signIn(ctx, existing)
	case !errors.Is(err, common.ErrNotFound):
		return nil, m.fail(ctx, "Login failed", err)
	case !create:
		return nil, m.fail(ctx, "Login failed", common.ErrInvalidCredentials)
	}

	if strings.TrimSpace(username) == "" {
		username = email
	}
	user := models.User{
		ID:        m.ids.NewID(),
		Username:  username,
		Email:     email,
		Uploads:   []models.Upload{},
		CreatedAt: m.now(),
	}
	if err := m.users.Create(ctx, user); err != nil {
		return nil, m.fail(ctx, "Registration failed", err)
	}
	return m.signIn(ctx, &user)
}

// Logout clears the persisted session user.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	if err := m.store.Remove(ctx, m.key); err != nil {
		return m.fail(ctx, "Logout failed", err)
	}
	m.setState(StateAnonymous, nil)
	m.notices.Notify(ctx, notice.Info("Logged out", "You have been signed out."))
	return nil
}

// UpdateProfile replaces the signed-in user's game profile.
func (m *Manager) UpdateProfile(ctx context.Context, gameProfile string) (*models.SessionUser, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	current, err := m.RequireUser()
	if err != nil {
		return nil, m.fail(ctx, "Profile not saved", err)
	}
	if len(gameProfile) > maxGameProfileLen {
		return nil, m.fail(ctx, "Profile not saved", fmt.Errorf("%w: game profile longer than %d bytes", common.ErrInvalidInput, maxGameProfileLen))
	}

	updated, err := m.users.Update(ctx, current.ID, func(u *models.User) error {
		u.GameProfile = gameProfile
		return nil
	})
	if err != nil {
		return nil, m.fail(ctx, "Profile not saved", err)
	}

	su := updated.Session()
	if err := m.persist(ctx, su); err != nil {
		return nil, m.fail(ctx, "Profile not saved", err)
	}
	m.setState(StateAuthenticated, su)
	m.notices.Notify(ctx, notice.Info("Profile saved", "Your game profile was updated."))
	return copyUser(su), nil
}

// Uploads returns the signed-in user's upload history, oldest first.
func (m *Manager) Uploads(ctx context.Context) ([]models.Upload, error) {
	current, err := m.RequireUser()
	if err != nil {
		return nil, err
	}
	u, err := m.users.FindByID(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	if u.Uploads == nil {
		return []models.Upload{}, nil
	}
	return u.Uploads, nil
}

func (m *Manager) signIn(ctx context.Context, user *models.User) (*models.SessionUser, error) {
	su := user.Session()
	if err := m.persist(ctx, su); err != nil {
		return nil, m.fail(ctx, "Login failed", err)
	}
	m.setState(StateAuthenticated, su)
	m.notices.Notify(ctx, notice.Info("Signed in", "Welcome back, "+su.Username+"."))
	m.log.Info(ctx, "user signed in", "user", su.ID)
	return copyUser(su), nil
}

func (m *Manager) persist(ctx context.Context, su *models.SessionUser) error {
	b, err := json.Marshal(su)
	if err != nil {
		return fmt.Errorf("%w: encode session user: %v", common.ErrPersistence, err)
	}
	return m.store.Set(ctx, m.key, string(b))
}

func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return common.ErrOperationInProgress
	}
	m.busy = true
	return nil
}

func (m *Manager) end() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

func (m *Manager) setState(s State, u *models.SessionUser) {
	m.mu.Lock()
	m.state = s
	m.user = copyUser(u)
	m.mu.Unlock()
}

func (m *Manager) fail(ctx context.Context, title string, err error) error {
	m.notices.Notify(ctx, notice.Error(title, userMessage(err)))
	m.log.Warn(ctx, strings.ToLower(title), "error", err)
	return err
}

func (m *Manager) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return nil
	}
	t := time.NewTimer(m.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrDuplicateEmail):
		return "This email is already registered."
	case errors.Is(err, common.ErrInvalidCredentials):
		return "Email or password is incorrect."
	case errors.Is(err, common.ErrNotAuthenticated):
		return "Please sign in first."
	case errors.Is(err, common.ErrSessionLoading):
		return "Your session is still loading, try again in a moment."
	case errors.Is(err, common.ErrInvalidInput):
		return err.Error()
	default:
		return "Something went wrong, please try again."
	}
}

func copyUser(u *models.SessionUser) *models.SessionUser {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
