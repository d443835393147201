// Package notice carries user-facing notifications out of the session and
// upload layers. The HTTP surface drains them from a per-workspace Inbox.
package notice

import (
	"context"
	"sync"
	"time"

	"github.com/rohits-web03/mediadrop/internal/logging"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is one user-facing message. Redirect names the entry point the
// client should navigate to, if any.
type Notice struct {
	Level    Level     `json:"level"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Redirect string    `json:"redirect,omitempty"`
	Time     time.Time `json:"time"`
}

type Sink interface {
	Notify(ctx context.Context, n Notice)
}

func Info(title, message string) Notice {
	return Notice{Level: LevelInfo, Title: title, Message: message}
}

func Error(title, message string) Notice {
	return Notice{Level: LevelError, Title: title, Message: message}
}

// Inbox keeps the most recent notices until drained.
type Inbox struct {
	mu      sync.Mutex
	limit   int
	notices []Notice
	now     func() time.Time
}

const defaultInboxLimit = 50

func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	return &Inbox{limit: limit, now: time.Now}
}

func (i *Inbox) Notify(_ context.Context, n Notice) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if n.Time.IsZero() {
		n.Time = i.now()
	}
	i.notices = append(i.notices, n)
	if over := len(i.notices) - i.limit; over > 0 {
		i.notices = append([]Notice(nil), i.notices[over:]...)
	}
}

// Drain returns pending notices, oldest first, and empties the inbox.
func (i *Inbox) Drain() []Notice {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.notices
	i.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

// LogSink mirrors notices to a logger.
type LogSink struct {
	Logger logging.Logger
}

func (s LogSink) Notify(ctx context.Context, n Notice) {
	args := []any{"title", n.Title, "message", n.Message}
	if n.Redirect != "" {
		args = append(args, "redirect", n.Redirect)
	}
	if n.Level == LevelError {
		s.Logger.Warn(ctx, "notice", args...)
		return
	}
	s.Logger.Debug(ctx, "notice", args...)
}

// Fanout delivers every notice to each sink in order.
type Fanout []Sink

func (f Fanout) Notify(ctx context.Context, n Notice) {
	for _, s := range f {
		s.Notify(ctx, n)
	}
}

// Discard drops notices.
type Discard struct{}

func (Discard) Notify(context.Context, Notice) {}
