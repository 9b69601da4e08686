package browser

import (
	"context"
	"time"
)

// WaitMode selects how settled a page must be before navigation returns
type WaitMode int

const (
	// WaitSettled waits for the document to be fully loaded and the
	// network to go quiet before returning
	WaitSettled WaitMode = iota
	// WaitCommit returns as soon as the navigation committed; used as
	// the looser fallback when a busy page never settles
	WaitCommit
)

// Context is one isolated browser execution context (its own tab and,
// with isolation enabled, its own cookie jar). All methods honor ctx
// cancellation; navigation failures come back tagged (see Error).
type Context interface {
	// Navigate loads url under the given wait mode and returns the main
	// document's HTTP status code (0 when the response was not observed)
	Navigate(ctx context.Context, url string, mode WaitMode) (int, error)

	// WaitVisible blocks until the selector matches a visible element
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// WaitAttached blocks until the selector matches an element attached
	// to the DOM, visible or not
	WaitAttached(ctx context.Context, selector string, timeout time.Duration) error
	// ScrollIntoView scrolls the first match into the viewport
	ScrollIntoView(ctx context.Context, selector string) error

	// Text returns the normalized inner text of the first match
	Text(ctx context.Context, selector string) (string, error)
	// HTML returns the full serialized document, used for building
	// sanitized DOM snapshots for selector repair
	HTML(ctx context.Context) (string, error)
	// Exists reports whether the selector matches at least one element
	Exists(ctx context.Context, selector string) (bool, error)

	// Screenshot captures a full-page PNG
	Screenshot(ctx context.Context) ([]byte, error)

	// Interaction primitives for scenario steps
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	PressKey(ctx context.Context, key string) error
	ScrollToBottom(ctx context.Context) error

	// Alive probes whether the underlying target is still usable; a
	// crashed or closed context reports false
	Alive(ctx context.Context) bool

	// Close tears down the context and its tab
	Close() error
}

// Browser owns the underlying browser process and creates execution
// contexts. Exactly one Browser is constructed at startup and disposed
// at shutdown; checks never touch it directly, only through the Pool.
type Browser interface {
	NewContext(ctx context.Context) (Context, error)
	Close() error
}
