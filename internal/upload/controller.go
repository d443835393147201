// Package upload implements the upload session of one workspace: files are
// picked, optionally renamed, saved through a Saver and recorded in the
// owner's upload history.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rohits-web03/mediadrop/internal/common"
	"github.com/rohits-web03/mediadrop/internal/logging"
	"github.com/rohits-web03/mediadrop/internal/media"
	"github.com/rohits-web03/mediadrop/internal/models"
	"github.com/rohits-web03/mediadrop/internal/notice"
	"github.com/rohits-web03/mediadrop/internal/repositories"
	"github.com/rohits-web03/mediadrop/internal/utils"
	"golang.org/x/sync/errgroup"
)

type State string

const (
	StateEmpty     State = "empty"
	StateSelecting State = "selecting"
	StateReady     State = "ready"
	StateSaving    State = "saving"
	StateError     State = "error"
)

const DefaultLoginPath = "/login"

// Authenticator yields the signed-in user or an error explaining why
// there is none.
type Authenticator interface {
	RequireUser() (*models.SessionUser, error)
}

// Ledger records upload metadata for an owner.
type Ledger interface {
	Append(ctx context.Context, owner string, records []models.Upload) error
}

type Options struct {
	// RequireAuth makes Save record uploads for the signed-in user. Without
	// it uploads go to the global list.
	RequireAuth bool
	Auth        Authenticator
	Saver       Saver
	Ledger      Ledger
	IDs         utils.IDGenerator
	Notices     notice.Sink
	Logger      logging.Logger
	Now         func() time.Time
	DateLayout  string
	// Concurrency bounds parallel Saver calls. Values below 2 save one file
	// at a time.
	Concurrency int
	LoginPath   string
}

// Snapshot is the read-only view of a Controller.
type Snapshot struct {
	State      State             `json:"state"`
	Files      []models.FileInfo `json:"files"`
	CustomName string            `json:"customName"`
	InFlight   bool              `json:"inFlight"`
	Error      string            `json:"error,omitempty"`
}

// Controller is the upload session state machine:
//
//	Empty -> Selecting -> Ready -> Saving -> Empty | Error
//
// The selection and the custom name are always cleared together.
type Controller struct {
	opts Options

	mu         sync.Mutex
	state      State
	files      []models.FileHandle
	customName string
	saving     bool
	lastErr    error
}

func NewController(opts Options) *Controller {
	if opts.IDs == nil {
		opts.IDs = utils.UUIDGenerator{}
	}
	if opts.Notices == nil {
		opts.Notices = notice.Discard{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DateLayout == "" {
		opts.DateLayout = "1/2/2006"
	}
	if opts.LoginPath == "" {
		opts.LoginPath = DefaultLoginPath
	}
	return &Controller{opts: opts, state: StateEmpty}
}

// Select validates files and appends the accepted ones to the selection.
// It returns how many were accepted. A batch with rejected files yields
// common.ErrUnsupportedMedia even though its accepted files were added.
func (c *Controller) Select(ctx context.Context, files []models.FileHandle) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.saving {
		return 0, common.ErrOperationInProgress
	}
	if len(files) == 0 {
		c.lastErr = common.ErrEmptySelection
		c.opts.Notices.Notify(ctx, notice.Error("No files", "Selecting at least one file is required."))
		return 0, common.ErrEmptySelection
	}

	c.state = StateSelecting
	accepted, rejected := media.Validate(files)
	c.files = append(c.files, accepted...)
	if len(c.files) > 0 {
		c.state = StateReady
	} else {
		c.state = StateEmpty
	}

	var err error
	if rejected > 0 {
		err = fmt.Errorf("%w: %d of %d files rejected", common.ErrUnsupportedMedia, rejected, len(files))
		c.opts.Notices.Notify(ctx, notice.Error("Upload error", "Only image and video files are supported."))
	}
	if len(accepted) > 0 {
		c.opts.Notices.Notify(ctx, notice.Info("Files selected", fmt.Sprintf("%d file(s) selected.", len(accepted))))
	}
	c.lastErr = err
	return len(accepted), err
}

// SetCustomName sets the rename template. An empty name keeps original names.
func (c *Controller) SetCustomName(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saving {
		return common.ErrOperationInProgress
	}
	c.customName = name
	return nil
}

// Save stores every selected file and records its metadata for the owner.
// Either all records are persisted and the session is cleared, or none are
// and the selection is kept for a retry.
func (c *Controller) Save(ctx context.Context) ([]models.Upload, error) {
	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return nil, common.ErrOperationInProgress
	}
	if len(c.files) == 0 {
		c.mu.Unlock()
		c.opts.Notices.Notify(ctx, notice.Error("Error", "Please select files first."))
		return nil, common.ErrEmptySelection
	}

	owner := repositories.GlobalOwner
	if c.opts.RequireAuth {
		user, err := c.opts.Auth.RequireUser()
		if err != nil {
			c.mu.Unlock()
			n := notice.Error("Sign in required", "Please sign in to save files.")
			if errors.Is(err, common.ErrNotAuthenticated) {
				n.Redirect = c.opts.LoginPath
			}
			c.opts.Notices.Notify(ctx, n)
			return nil, err
		}
		owner = user.ID
	}

	files := append([]models.FileHandle(nil), c.files...)
	name := c.customName
	c.state = StateSaving
	c.saving = true
	c.lastErr = nil
	c.mu.Unlock()

	log := c.opts.Logger.With("owner", owner, "files", len(files))

	records, err := c.saveAll(ctx, owner, files, name)
	if err != nil {
		err = fmt.Errorf("%w: %w", common.ErrSaveFailed, err)
		c.finishWithError(err)
		log.Warn(ctx, "save failed", "error", err)
		c.opts.Notices.Notify(ctx, notice.Error("Save failed", "The files could not be saved. Nothing was recorded, try again."))
		return nil, err
	}

	if err := c.opts.Ledger.Append(ctx, owner, records); err != nil {
		if !errors.Is(err, common.ErrPersistence) {
			err = fmt.Errorf("%w: %w", common.ErrPersistence, err)
		}
		c.finishWithError(err)
		log.Error(ctx, "recording uploads failed", "error", err)
		c.opts.Notices.Notify(ctx, notice.Error("Save failed", "The upload history could not be updated, try again."))
		return nil, err
	}

	c.mu.Lock()
	c.files = nil
	c.customName = ""
	c.state = StateEmpty
	c.saving = false
	c.lastErr = nil
	c.mu.Unlock()

	msg := "Files were saved with their original names."
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		msg = fmt.Sprintf("Files were saved as %q.", trimmed)
	}
	c.opts.Notices.Notify(ctx, notice.Info("Files saved", msg))
	log.Info(ctx, "files saved")
	return records, nil
}

// Reset clears the selection and the custom name. Calling it twice is the
// same as calling it once. A save already running finishes on its own
// snapshot.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	c.files = nil
	c.customName = ""
	c.lastErr = nil
	if !c.saving {
		c.state = StateEmpty
	}
	c.mu.Unlock()

	c.opts.Notices.Notify(ctx, notice.Info("Reset", "All files and the custom name were removed."))
}

// InFlight reports whether a save is running.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saving
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:      c.state,
		Files:      make([]models.FileInfo, len(c.files)),
		CustomName: c.customName,
		InFlight:   c.saving,
	}
	for i, f := range c.files {
		s.Files[i] = models.FileInfo{
			Name:        f.Name,
			Type:        f.Type,
			Size:        fileSize(f),
			PreviewName: media.PreviewName(f.Name, c.customName, i, len(c.files)),
		}
	}
	if c.lastErr != nil {
		s.Error = c.lastErr.Error()
	}
	return s
}

func (c *Controller) saveAll(ctx context.Context, owner string, files []models.FileHandle, name string) ([]models.Upload, error) {
	n := len(files)
	date := c.opts.Now().Format(c.opts.DateLayout)

	// ids are assigned up front, in selection order, so savers can key
	// stored bytes by record rather than by display name
	records := make([]models.Upload, n)
	for i, f := range files {
		records[i] = models.Upload{
			ID:         c.opts.IDs.NewID(),
			FileName:   media.DiskName(f.Name, name, i, n),
			FileType:   f.Type,
			FileSize:   fileSize(f),
			UploadDate: date,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if c.opts.Concurrency > 1 {
		g.SetLimit(c.opts.Concurrency)
	} else {
		g.SetLimit(1)
	}
	for i, f := range files {
		rec := &records[i]
		g.Go(func() error {
			key, err := c.opts.Saver.Save(gctx, f.Content, Destination{Owner: owner, ID: rec.ID, Name: rec.FileName})
			if err != nil {
				return fmt.Errorf("save %q as %q: %w", f.Name, rec.FileName, err)
			}
			rec.StorageKey = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Controller) finishWithError(err error) {
	c.mu.Lock()
	c.state = StateError
	c.saving = false
	c.lastErr = err
	c.mu.Unlock()
}

func fileSize(f models.FileHandle) int64 {
	if f.Size == 0 && len(f.Content) > 0 {
		return int64(len(f.Content))
	}
	return f.Size
}
