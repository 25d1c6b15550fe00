package chat

import (
	"context"
	"errors"
	"time"

	"github.com/brunlockfaster/webfront/internal/backend"
)

var (
	// ErrNoSession is returned when a chat operation is attempted without a
	// live session; no backend call is made.
	ErrNoSession = errors.New("no active session")

	// ErrEmptyMessage rejects whitespace-only sends locally.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrClosed indicates the manager or thread has been shut down.
	ErrClosed = errors.New("chat manager closed")
)

// API is the slice of the unlock backend client the chat core depends on.
type API interface {
	Messages(ctx context.Context, token string, afterID int64) ([]backend.Message, error)
	SendMessage(ctx context.Context, token, text string) (backend.Message, error)
}

// Options tune the sync behavior.
type Options struct {
	// PollInterval is the gap between fetches while a thread has watchers.
	PollInterval time.Duration
	// IdleTimeout is how long a watcher-less thread survives before the
	// janitor sweeps it.
	IdleTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 2 * time.Minute
	}
	return o
}
