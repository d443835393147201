package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rohits-web03/mediadrop/internal/common"
	"github.com/rohits-web03/mediadrop/internal/models"
	"github.com/rohits-web03/mediadrop/internal/notice"
	"github.com/rohits-web03/mediadrop/internal/repositories"
	"github.com/rohits-web03/mediadrop/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

type fixture struct {
	store repositories.Store
	users *repositories.UserDirectory
	inbox *notice.Inbox
	m     *Manager
}

func newFixture(t *testing.T, store repositories.Store, opts Options) *fixture {
	t.Helper()
	if store == nil {
		store = repositories.NewMemoryStore()
	}
	users := repositories.NewUserDirectory(store)
	inbox := notice.NewInbox(20)
	if opts.IDs == nil {
		opts.IDs = &utils.SequenceGenerator{Prefix: "user"}
	}
	if opts.Hasher == nil {
		opts.Hasher = BcryptHasher{Cost: bcrypt.MinCost}
	}
	opts.Notices = inbox
	opts.Now = fixedNow
	return &fixture{store: store, users: users, inbox: inbox, m: NewManager(store, users, opts)}
}

// gatedStore blocks Get until gate is closed.
type gatedStore struct {
	repositories.Store
	gate    chan struct{}
	entered chan struct{}
}

func (s *gatedStore) Get(ctx context.Context, key string) (string, bool, error) {
	close(s.entered)
	<-s.gate
	return s.Store.Get(ctx, key)
}

// failingStore fails Set and Remove for one key.
type failingStore struct {
	repositories.Store
	key string
}

func (s *failingStore) Set(ctx context.Context, key, value string) error {
	if key == s.key {
		return common.ErrPersistence
	}
	return s.Store.Set(ctx, key, value)
}

func (s *failingStore) Remove(ctx context.Context, key string) error {
	if key == s.key {
		return common.ErrPersistence
	}
	return s.Store.Remove(ctx, key)
}

// blockingHasher blocks Hash until release is closed.
type blockingHasher struct {
	BcryptHasher
	release chan struct{}
}

func (h blockingHasher) Hash(p string) (string, error) {
	<-h.release
	return h.BcryptHasher.Hash(p)
}

func TestRestore_NoStoredUser(t *testing.T) {
	f := newFixture(t, nil, Options{})

	state, _ := f.m.State()
	assert.Equal(t, StateUnknown, state)

	require.NoError(t, f.m.Restore(context.Background()))
	state, u := f.m.State()
	assert.Equal(t, StateAnonymous, state)
	assert.Nil(t, u)
}

func TestRestore_StoredUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})
	require.NoError(t, f.store.Set(ctx, repositories.KeySessionUser, `{"id":"u1","username":"ali","email":"ali@example.com"}`))

	require.NoError(t, f.m.Restore(ctx))

	state, u := f.m.State()
	assert.Equal(t, StateAuthenticated, state)
	require.NotNil(t, u)
	assert.Equal(t, "ali", u.Username)
}

func TestRestore_MalformedProjection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})
	require.NoError(t, f.store.Set(ctx, repositories.KeySessionUser, "{broken"))

	err := f.m.Restore(ctx)
	require.ErrorIs(t, err, common.ErrPersistence)

	state, _ := f.m.State()
	assert.Equal(t, StateAnonymous, state)
	_, ok, _ := f.store.Get(ctx, repositories.KeySessionUser)
	assert.False(t, ok)
	assert.Len(t, f.inbox.Drain(), 1)
}

func TestRestore_GatedActionsRejectedWhileLoading(t *testing.T) {
	gs := &gatedStore{Store: repositories.NewMemoryStore(), gate: make(chan struct{}), entered: make(chan struct{})}
	f := newFixture(t, gs, Options{})

	done := make(chan error, 1)
	go func() { done <- f.m.Restore(context.Background()) }()
	<-gs.entered

	state, _ := f.m.State()
	assert.Equal(t, StateLoading, state)
	assert.True(t, f.m.InFlight())
	_, err := f.m.RequireUser()
	assert.ErrorIs(t, err, common.ErrSessionLoading)
	_, err = f.m.Login(context.Background(), "a@example.com", "pw")
	assert.ErrorIs(t, err, common.ErrOperationInProgress)

	close(gs.gate)
	require.NoError(t, <-done)
	assert.False(t, f.m.InFlight())
}

func TestRegister_SignsInWithoutExposingCredential(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})

	u, err := f.m.Register(ctx, " ali ", "ali@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)
	assert.Equal(t, "ali", u.Username)

	state, _ := f.m.State()
	assert.Equal(t, StateAuthenticated, state)

	raw, ok, err := f.store.Get(ctx, repositories.KeySessionUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, strings.ToLower(raw), "password")
	assert.NotContains(t, raw, "s3cret")

	stored, err := f.users.FindByEmail(ctx, "ali@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")))
	assert.NotNil(t, stored.Uploads)
	assert.Empty(t, stored.Uploads)
	assert.Equal(t, fixedNow(), stored.CreatedAt)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})
	_, err := f.m.Register(ctx, "ali", "ali@example.com", "pw1")
	require.NoError(t, err)
	require.NoError(t, f.m.Logout(ctx))

	_, err = f.m.Register(ctx, "other", "ali@example.com", "pw2")
	require.ErrorIs(t, err, common.ErrDuplicateEmail)

	users, err := f.users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	state, _ := f.m.State()
	assert.Equal(t, StateAnonymous, state)

	notices := f.inbox.Drain()
	require.NotEmpty(t, notices)
	last := notices[len(notices)-1]
	assert.Equal(t, notice.LevelError, last.Level)
	assert.Equal(t, "This email is already registered.", last.Message)
}

func TestRegister_InvalidInput(t *testing.T) {
	f := newFixture(t, nil, Options{})
	_, err := f.m.Register(context.Background(), "ali", "  ", "pw")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()

	_, err := f.m.Register(ctx, "ali", "ali@example.com", strings.Repeat("p", MaxPasswordBytes+1))
	require.ErrorIs(t, err, common.ErrInvalidInput)
	state, _ := f.m.State()
	assert.NotEqual(t, StateAuthenticated, state)
	_, err = f.users.FindByEmail(ctx, "ali@example.com")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = f.m.Register(ctx, "ali", "ali@example.com", strings.Repeat("p", MaxPasswordBytes))
	assert.NoError(t, err)
}

func TestBcryptHasher_PasswordTooLong(t *testing.T) {
	_, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash(strings.Repeat("p", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRegister_RollsBackWhenSessionCannotBePersisted(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{Store: repositories.NewMemoryStore(), key: repositories.KeySessionUser}
	f := newFixture(t, fs, Options{})

	_, err := f.m.Register(ctx, "ali", "ali@example.com", "pw")
	require.ErrorIs(t, err, common.ErrPersistence)

	users, err := f.users.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
	state, _ := f.m.State()
	assert.Equal(t, StateUnknown, state)
}

func TestLogin_WrongPasswordStaysAnonymous(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})
	_, err := f.m.Register(ctx, "ali", "ali@example.com", "right")
	require.NoError(t, err)
	require.NoError(t, f.m.Logout(ctx))

	_, err = f.m.Login(ctx, "ali@example.com", "wrong")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
	state, u := f.m.State()
	assert.Equal(t, StateAnonymous, state)
	assert.Nil(t, u)

	_, err = f.m.Login(ctx, "ghost@example.com", "right")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})
	_, err := f.m.Register(ctx, "ali", "ali@example.com", "right")
	require.NoError(t, err)
	require.NoError(t, f.m.Logout(ctx))

	u, err := f.m.Login(ctx, "ali@example.com", "right")
	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)

	got, err := f.m.RequireUser()
	require.NoError(t, err)
	assert.Equal(t, "ali@example.com", got.Email)
}

func TestLogout_ClearsProjection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})
	_, err := f.m.Register(ctx, "ali", "ali@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, f.m.Logout(ctx))

	_, ok, _ := f.store.Get(ctx, repositories.KeySessionUser)
	assert.False(t, ok)
	_, err = f.m.RequireUser()
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
}

func TestLogout_StoreFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{Store: repositories.NewMemoryStore(), key: repositories.KeySessionUser}
	f := newFixture(t, fs, Options{})
	f.m.setState(StateAuthenticated, &models.SessionUser{ID: "u1"})

	require.ErrorIs(t, f.m.Logout(ctx), common.ErrPersistence)
	state, _ := f.m.State()
	assert.Equal(t, StateAuthenticated, state)
}

func TestOperationsAreNotConcurrent(t *testing.T) {
	ctx := context.Background()
	h := blockingHasher{BcryptHasher: BcryptHasher{Cost: bcrypt.MinCost}, release: make(chan struct{})}
	f := newFixture(t, nil, Options{Hasher: h})

	done := make(chan error, 1)
	go func() {
		_, err := f.m.Register(ctx, "ali", "ali@example.com", "pw")
		done <- err
	}()
	require.Eventually(t, f.m.InFlight, time.Second, time.Millisecond)

	_, err := f.m.Login(ctx, "ali@example.com", "pw")
	assert.ErrorIs(t, err, common.ErrOperationInProgress)
	assert.ErrorIs(t, f.m.Logout(ctx), common.ErrOperationInProgress)

	close(h.release)
	require.NoError(t, <-done)
}

func TestLatencyHonoursContext(t *testing.T) {
	f := newFixture(t, nil, Options{Latency: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.m.Login(ctx, "a@example.com", "pw")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, f.m.InFlight())
}

func TestLoginExternal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})

	_, err := f.m.LoginExternal(ctx, "g@example.com", "G", false)
	require.ErrorIs(t, err, common.ErrInvalidCredentials)

	u, err := f.m.LoginExternal(ctx, "g@example.com", "G", true)
	require.NoError(t, err)
	assert.Equal(t, "G", u.Username)

	_, err = f.m.LoginExternal(ctx, "g@example.com", "G", true)
	require.ErrorIs(t, err, common.ErrDuplicateEmail)

	require.NoError(t, f.m.Logout(ctx))
	u, err = f.m.LoginExternal(ctx, "g@example.com", "", false)
	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)

	// External accounts cannot be used with a password.
	require.NoError(t, f.m.Logout(ctx))
	_, err = f.m.Login(ctx, "g@example.com", "")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})

	_, err := f.m.UpdateProfile(ctx, "main: support")
	require.ErrorIs(t, err, common.ErrNotAuthenticated)

	_, err = f.m.Register(ctx, "ali", "ali@example.com", "pw")
	require.NoError(t, err)

	u, err := f.m.UpdateProfile(ctx, "main: support")
	require.NoError(t, err)
	assert.Equal(t, "main: support", u.GameProfile)

	stored, err := f.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "main: support", stored.GameProfile)

	raw, _, _ := f.store.Get(ctx, repositories.KeySessionUser)
	assert.Contains(t, raw, "main: support")

	_, err = f.m.UpdateProfile(ctx, strings.Repeat("x", maxGameProfileLen+1))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestUploads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})

	_, err := f.m.Uploads(ctx)
	require.ErrorIs(t, err, common.ErrNotAuthenticated)

	u, err := f.m.Register(ctx, "ali", "ali@example.com", "pw")
	require.NoError(t, err)
	ledger := repositories.NewUploadLedger(f.store, f.users)
	require.NoError(t, ledger.Append(ctx, u.ID, []models.Upload{{ID: "a"}, {ID: "b"}}))

	got, err := f.m.Uploads(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
}

func TestSessionKeyIsolation(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	users := repositories.NewUserDirectory(store)
	a := NewManager(store, users, Options{SessionKey: "user:a", Hasher: BcryptHasher{Cost: bcrypt.MinCost}})
	b := NewManager(store, users, Options{SessionKey: "user:b", Hasher: BcryptHasher{Cost: bcrypt.MinCost}})

	_, err := a.Register(ctx, "ali", "ali@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, b.Restore(ctx))
	state, _ := b.State()
	assert.Equal(t, StateAnonymous, state)
}
