// Package workspace keeps the per-client state of the service. A workspace
// stands in for one browser tab: its own login, its own upload selection and
// its own notification inbox, all backed by the shared store.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rohits-web03/mediadrop/internal/config"
	"github.com/rohits-web03/mediadrop/internal/logging"
	"github.com/rohits-web03/mediadrop/internal/notice"
	"github.com/rohits-web03/mediadrop/internal/repositories"
	"github.com/rohits-web03/mediadrop/internal/session"
	"github.com/rohits-web03/mediadrop/internal/upload"
	"github.com/rohits-web03/mediadrop/internal/utils"
)

type Workspace struct {
	ID      string
	Session *session.Manager
	Uploads *upload.Controller
	Inbox   *notice.Inbox
	Outbox  *upload.Outbox

	mu       sync.Mutex
	lastSeen time.Time
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// Deps are the collaborators shared by every workspace.
type Deps struct {
	Store  repositories.Store
	Users  *repositories.UserDirectory
	Ledger *repositories.UploadLedger
	// Objects is required when the save strategy is "object".
	Objects upload.ObjectPutter
	Hasher  session.Hasher
	Logger  logging.Logger
	// IDs generates workspace, user and upload ids.
	IDs utils.IDGenerator
	Now func() time.Time
}

// Registry creates workspaces on first sight and hands out the same
// workspace for the same id afterwards.
type Registry struct {
	cfg  config.Config
	deps Deps

	locks utils.KeyedMutex

	mu         sync.RWMutex
	workspaces map[string]*Workspace
}

func NewRegistry(cfg config.Config, deps Deps) (*Registry, error) {
	switch cfg.SaveStrategy {
	case config.StrategySimulated, config.StrategyDownload:
	case config.StrategyObject:
		if deps.Objects == nil {
			return nil, errors.New("workspace: object save strategy needs object storage")
		}
	default:
		return nil, fmt.Errorf("workspace: unknown save strategy %q", cfg.SaveStrategy)
	}
	if deps.Store == nil || deps.Users == nil || deps.Ledger == nil {
		return nil, errors.New("workspace: store, users and ledger are required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.IDs == nil {
		deps.IDs = utils.UUIDGenerator{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Registry{cfg: cfg, deps: deps, workspaces: make(map[string]*Workspace)}, nil
}

// NewID returns an id for a workspace that does not exist yet.
func (r *Registry) NewID() string {
	return r.deps.IDs.NewID()
}

// Get returns a live workspace without creating one.
func (r *Registry) Get(id string) (*Workspace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.workspaces[id]
	return ws, ok
}

// Resolve returns the workspace for id, building it and restoring its
// persisted session when it is not live. A failed restore still yields a
// usable, signed-out workspace.
func (r *Registry) Resolve(ctx context.Context, id string) (*Workspace, error) {
	if id == "" {
		return nil, errors.New("workspace: empty id")
	}
	if ws, ok := r.Get(id); ok {
		ws.touch(r.deps.Now())
		return ws, nil
	}

	unlock := r.locks.Lock(id)
	defer unlock()

	if ws, ok := r.Get(id); ok {
		ws.touch(r.deps.Now())
		return ws, nil
	}

	ws := r.build(id)
	if err := ws.Session.Restore(ctx); err != nil {
		r.deps.Logger.Warn(ctx, "session restore failed", "workspace", id, "error", err)
	}

	r.mu.Lock()
	r.workspaces[id] = ws
	r.mu.Unlock()
	return ws, nil
}

// Evict drops workspaces idle for longer than idle with no save running.
// Their persisted sessions stay in the store and come back on Resolve.
func (r *Registry) Evict(idle time.Duration) int {
	cutoff := r.deps.Now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, ws := range r.workspaces {
		if ws.idleSince().After(cutoff) || ws.Uploads.InFlight() || ws.Session.InFlight() {
			continue
		}
		delete(r.workspaces, id)
		n++
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workspaces)
}

func (r *Registry) build(id string) *Workspace {
	log := r.deps.Logger.With("workspace", id)
	inbox := notice.NewInbox(0)
	outbox := upload.NewOutbox()
	sink := notice.Fanout{inbox, notice.LogSink{Logger: log}}

	sess := session.NewManager(r.deps.Store, r.deps.Users, session.Options{
		SessionKey: repositories.KeySessionUser + ":" + id,
		IDs:        r.deps.IDs,
		Hasher:     r.deps.Hasher,
		Notices:    sink,
		Logger:     log,
		Latency:    r.cfg.AuthLatency,
		Now:        r.deps.Now,
	})

	ctrl := upload.NewController(upload.Options{
		RequireAuth: r.cfg.RequireAuth,
		Auth:        sess,
		Saver:       r.saver(outbox, log),
		Ledger:      r.deps.Ledger,
		IDs:         r.deps.IDs,
		Notices:     sink,
		Logger:      log,
		Now:         r.deps.Now,
		DateLayout:  r.cfg.DateLayout,
		Concurrency: r.cfg.SaveConcurrency,
	})

	return &Workspace{
		ID:       id,
		Session:  sess,
		Uploads:  ctrl,
		Inbox:    inbox,
		Outbox:   outbox,
		lastSeen: r.deps.Now(),
	}
}

func (r *Registry) saver(outbox *upload.Outbox, log logging.Logger) upload.Saver {
	switch r.cfg.SaveStrategy {
	case config.StrategyDownload:
		return upload.DownloadSaver{Outbox: outbox}
	case config.StrategyObject:
		return upload.ObjectSaver{Storage: r.deps.Objects}
	default:
		return upload.SimulatedSaver{Latency: r.cfg.SaveLatency, Logger: log}
	}
}
