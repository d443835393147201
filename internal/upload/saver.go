package upload

import (
	"context"
	"mime"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rohits-web03/mediadrop/internal/common"
	"github.com/rohits-web03/mediadrop/internal/logging"
)

// Destination identifies one file of a save. Name is the display name and
// may repeat within a batch or across owners; ID never does.
type Destination struct {
	Owner string
	ID    string
	Name  string
}

// Saver durably stores one file's bytes and returns the key it was stored
// under, or "" when nothing was kept. A call either succeeds or fails as a
// whole.
type Saver interface {
	Save(ctx context.Context, content []byte, dst Destination) (string, error)
}

// SimulatedSaver pretends to store a file: it reads the bytes, waits for
// Latency and resolves.
type SimulatedSaver struct {
	Latency time.Duration
	Logger  logging.Logger
}

func (s SimulatedSaver) Save(ctx context.Context, content []byte, dst Destination) (string, error) {
	if s.Latency > 0 {
		t := time.NewTimer(s.Latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.Logger != nil {
		s.Logger.Debug(ctx, "file would be saved", "destination", dst.Name, "bytes", len(content))
	}
	return "", nil
}

// Download is a file staged for the client to fetch.
type Download struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"-"`
}

// Outbox holds staged downloads by upload id until the client takes them.
type Outbox struct {
	mu    sync.Mutex
	files map[string]Download
}

func NewOutbox() *Outbox {
	return &Outbox{files: make(map[string]Download)}
}

func (o *Outbox) put(d Download) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[d.ID] = d
}

// Take removes and returns the staged file, or common.ErrNotFound.
func (o *Outbox) Take(id string) (Download, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	d, ok := o.files[id]
	if !ok {
		return Download{}, common.ErrNotFound
	}
	delete(o.files, id)
	return d, nil
}

// Pending lists the staged files without their content, ordered by id.
func (o *Outbox) Pending() []Download {
	o.mu.Lock()
	defer o.mu.Unlock()
	pending := make([]Download, 0, len(o.files))
	for _, d := range o.files {
		d.Content = nil
		pending = append(pending, d)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending
}

// DownloadSaver stages files in an Outbox so the client downloads them.
type DownloadSaver struct {
	Outbox *Outbox
}

func (s DownloadSaver) Save(ctx context.Context, content []byte, dst Destination) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	buf := make([]byte, len(content))
	copy(buf, content)
	s.Outbox.put(Download{ID: dst.ID, Name: dst.Name, ContentType: contentType(dst.Name), Content: buf})
	// staged files leave the outbox once fetched, so no key is kept
	return "", nil
}

// ObjectPutter is the part of repositories.ObjectStorage ObjectSaver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// ObjectSaver uploads files to object storage under
// <owner>/<upload id>/<name>.
type ObjectSaver struct {
	Storage ObjectPutter
}

func (s ObjectSaver) Save(ctx context.Context, content []byte, dst Destination) (string, error) {
	key := ObjectKey(dst)
	if err := s.Storage.PutObject(ctx, key, content, contentType(dst.Name)); err != nil {
		return "", err
	}
	return key, nil
}

// globalSegment stands in for the owner of the global upload list.
const globalSegment = "global"

// ObjectKey builds the storage key of dst. Every part is reduced to a single
// path element, so the key stays below the owner and upload directories.
func ObjectKey(dst Destination) string {
	owner := dst.Owner
	if owner == "" {
		owner = globalSegment
	}
	return path.Join(keySegment(owner, globalSegment), keySegment(dst.ID, "upload"), keySegment(dst.Name, "file"))
}

func keySegment(s, fallback string) string {
	s = path.Base(strings.ReplaceAll(s, "\\", "/"))
	if s == "." || s == ".." || s == "/" || s == "" {
		return fallback
	}
	return s
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
