package browser

import (
	"context"
	"time"
)

// BBox is the center and minor dimension of an element's bounding box,
// in CSS pixels.
type BBox struct {
	CX float64
	CY float64
	W  float64
}

// Facade is the minimal browser surface the agent loop consumes. The
// playwright Driver implements it; tests substitute an in-memory fake.
type Facade interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	URL(ctx context.Context) string
	Title(ctx context.Context) string
	// ExtractText returns the interactive-elements index plus a plain
	// text excerpt, capped to budget bytes.
	ExtractText(ctx context.Context, budget int) (string, error)

	Goto(ctx context.Context, url string) error
	Back(ctx context.Context) error
	Scroll(ctx context.Context, dy int) error
	Press(ctx context.Context, key string) error
	Screenshot(ctx context.Context, path string) error

	// BBoxCenter resolves a selector to its box center; (nil, nil) when
	// the element is absent.
	BBoxCenter(ctx context.Context, selector string) (*BBox, error)
	MoveCursor(ctx context.Context, x, y float64) error
	ClickAt(ctx context.Context, x, y float64) error
	TypeInto(ctx context.Context, selector, text string) error

	// SetStatus updates the advisory UI overlay; may no-op.
	SetStatus(ctx context.Context, msg string)

	ViewOnly() bool
	Headless() bool
	ActionDelay() time.Duration
}
