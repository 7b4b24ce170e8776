package browser

import (
	"context"
	"errors"
)

// ErrTimeout is returned when an element or event does not show up within
// the driver's wait bound.
var ErrTimeout = errors.New("browser: timed out")

// Driver is the browser session a procedure acts through. Every locate is
// bounded by the driver's wait timeout.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, sel Selector) error
	Click(ctx context.Context, sel Selector) error
	// Type clears the element and sends text to it.
	Type(ctx context.Context, sel Selector, text string) error
	Text(ctx context.Context, sel Selector) (string, error)
	Attribute(ctx context.Context, sel Selector, name string) (string, error)
	// Count returns how many elements match sel right now, without waiting.
	Count(ctx context.Context, sel Selector) (int, error)
	Location(ctx context.Context) (string, error)
	Eval(ctx context.Context, script string, out any) error
	SetFile(ctx context.Context, sel Selector, path string) error
	Screenshot(ctx context.Context, path string) error
	// AcceptDialog waits for a JavaScript dialog, accepts it and returns its
	// message.
	AcceptDialog(ctx context.Context) (string, error)
	Close() error
}
