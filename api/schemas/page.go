package schemas

import "context"

// -- Rendering Provider Interface --

// Page is one live, navigated browser tab. Every method blocks until the
// underlying operation completes or ctx is done. Collaborator failures are
// returned wrapped in ErrCollaboratorUnavailable.
//
//go:generate mockery --name Page --output ../../internal/mocks --outpkg mocks
type Page interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until an element matching selector is visible.
	WaitVisible(ctx context.Context, selector string) error
	// Rects returns the bounding rectangle of every element matching selector,
	// in document order.
	Rects(ctx context.Context, selector string) ([]ElementDescriptor, error)
	// ComputedStyle returns one computed property of the index-th match.
	ComputedStyle(ctx context.Context, selector string, index int, property string) (string, error)

	// ScrollOffset returns the vertical scroll position of the container
	// matching selector. An empty selector addresses the document.
	ScrollOffset(ctx context.Context, selector string) (float64, error)
	SetScrollOffset(ctx context.Context, selector string, y float64) error
	ScrollExtent(ctx context.Context, selector string) (ScrollExtent, error)

	// Media returns a snapshot of every media element matching selector.
	Media(ctx context.Context, selector string) ([]MediaDescriptor, error)
	// Separators returns the time separators matching selector, in document order.
	Separators(ctx context.Context, selector string) ([]SeparatorSnapshot, error)
	// IDs returns the id of every element in the document that carries one.
	IDs(ctx context.Context) ([]string, error)
	// InvokeHook calls a global function exposed by the page. A missing hook
	// is reported as ErrPreconditionNotMet.
	InvokeHook(ctx context.Context, name string) error

	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// Close releases the tab. It is safe to call more than once.
	Close(ctx context.Context) error
}

// PageOpener opens new pages. The browser manager implements it.
type PageOpener interface {
	NewPage(ctx context.Context) (Page, error)
}
