// internal/browser/page.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/config"
	"github.com/xkilldash9x/uiconform/pkg/geometry"
)

// Page is one browser tab. It implements schemas.Page.
type Page struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	opTimeout  time.Duration
	navTimeout time.Duration

	onClose func()

	mu       sync.Mutex
	isClosed bool
}

var _ schemas.Page = (*Page)(nil)

func newPage(ctx context.Context, cancel context.CancelFunc, logger *zap.Logger, cfg config.BrowserConfig, onClose func()) *Page {
	id := uuid.New().String()
	p := &Page{
		id:         id,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger.Named("page").With(zap.String("page_id", id)),
		opTimeout:  cfg.OperationTimeout,
		navTimeout: cfg.NavigationTimeout,
		onClose:    onClose,
	}
	if p.opTimeout <= 0 {
		p.opTimeout = 10 * time.Second
	}
	if p.navTimeout <= 0 {
		p.navTimeout = 30 * time.Second
	}
	return p
}

// ID returns the unique identifier for the page.
func (p *Page) ID() string { return p.id }

// runActions executes chromedp actions bounded by both the page lifetime and
// the caller's ctx, plus the given timeout.
func (p *Page) runActions(ctx context.Context, op string, timeout time.Duration, actions ...chromedp.Action) error {
	if p.closed() {
		return fmt.Errorf("%w: %s: page is closed", schemas.ErrCollaboratorUnavailable, op)
	}

	opCtx, cancelOp := context.WithTimeout(ctx, timeout)
	defer cancelOp()
	runCtx, cancel := CombineContext(p.ctx, opCtx)
	defer cancel()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if opCtx.Err() != nil && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", timeout, err)
		}
		return fmt.Errorf("%w: %s: %w", schemas.ErrCollaboratorUnavailable, op, err)
	}
	return nil
}

// evaluate runs a page helper with arguments and decodes the result.
func (p *Page) evaluate(ctx context.Context, op string, out interface{}, fn string, args ...interface{}) error {
	script, err := callScript(fn, args...)
	if err != nil {
		return err
	}
	return p.runActions(ctx, op, p.opTimeout, chromedp.Evaluate(script, out, awaitPromise))
}

func awaitPromise(params *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
	return params.WithAwaitPromise(true)
}

// Navigate loads url and waits for the body to be ready.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating.", zap.String("url", url))
	return p.runActions(ctx, "navigate", p.navTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// WaitVisible blocks until selector matches a visible element.
func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	return p.runActions(ctx, "wait visible "+selector, p.opTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// boxSnapshot is the raw shape returned by rectsJS.
type boxSnapshot struct {
	ID         string            `json:"id"`
	X          float64           `json:"x"`
	Y          float64           `json:"y"`
	Width      float64           `json:"width"`
	Height     float64           `json:"height"`
	Attributes map[string]string `json:"attributes"`
}

func (p *Page) Rects(ctx context.Context, selector string) ([]schemas.ElementDescriptor, error) {
	var boxes []boxSnapshot
	if err := p.evaluate(ctx, "rects "+selector, &boxes, rectsJS, selector); err != nil {
		return nil, err
	}
	out := make([]schemas.ElementDescriptor, len(boxes))
	for i, b := range boxes {
		out[i] = schemas.ElementDescriptor{
			ID:         b.ID,
			Rect:       geometry.FromXYWH(b.X, b.Y, b.Width, b.Height),
			Attributes: b.Attributes,
		}
	}
	return out, nil
}

// ComputedStyle reads one property of the index-th element matching selector.
func (p *Page) ComputedStyle(ctx context.Context, selector string, index int, property string) (string, error) {
	var res struct {
		Found bool   `json:"found"`
		Value string `json:"value"`
	}
	if err := p.evaluate(ctx, "computed style", &res, computedStyleJS, selector, index, property); err != nil {
		return "", err
	}
	if !res.Found {
		return "", fmt.Errorf("%w: no element %d for %s", schemas.ErrPreconditionNotMet, index, selector)
	}
	return res.Value, nil
}

func (p *Page) ScrollOffset(ctx context.Context, selector string) (float64, error) {
	var y float64
	if err := p.evaluate(ctx, "scroll offset", &y, scrollOffsetJS, selector); err != nil {
		return 0, err
	}
	return y, nil
}

func (p *Page) SetScrollOffset(ctx context.Context, selector string, y float64) error {
	var ok bool
	return p.evaluate(ctx, "set scroll offset", &ok, setScrollOffsetJS, selector, y)
}

func (p *Page) ScrollExtent(ctx context.Context, selector string) (schemas.ScrollExtent, error) {
	var ext schemas.ScrollExtent
	if err := p.evaluate(ctx, "scroll extent", &ext, scrollExtentJS, selector); err != nil {
		return schemas.ScrollExtent{}, err
	}
	return ext, nil
}

func (p *Page) Media(ctx context.Context, selector string) ([]schemas.MediaDescriptor, error) {
	var out []schemas.MediaDescriptor
	if err := p.evaluate(ctx, "media "+selector, &out, mediaJS, selector); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Page) Separators(ctx context.Context, selector string) ([]schemas.SeparatorSnapshot, error) {
	var out []schemas.SeparatorSnapshot
	if err := p.evaluate(ctx, "separators "+selector, &out, separatorsJS, selector); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Page) IDs(ctx context.Context) ([]string, error) {
	var out []string
	if err := p.evaluate(ctx, "ids", &out, idsJS); err != nil {
		return nil, err
	}
	return out, nil
}

// InvokeHook calls window[name]() and awaits it when it returns a promise.
func (p *Page) InvokeHook(ctx context.Context, name string) error {
	var invoked bool
	if err := p.evaluate(ctx, "invoke "+name, &invoked, invokeHookJS, name); err != nil {
		return err
	}
	if !invoked {
		return fmt.Errorf("%w: page does not expose %s()", schemas.ErrPreconditionNotMet, name)
	}
	return nil
}

// Screenshot captures the full page. Quality 100 yields PNG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.runActions(ctx, "screenshot", p.navTimeout, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: screenshot: empty image", schemas.ErrCollaboratorUnavailable)
	}
	return buf, nil
}

func (p *Page) closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isClosed
}

// Close closes the tab. Later calls are no-ops.
func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.isClosed {
		p.mu.Unlock()
		return nil
	}
	p.isClosed = true
	p.mu.Unlock()

	p.logger.Debug("Closing page.")

	var err error
	// chromedp.Cancel closes the target and waits for it; fall back to a
	// plain cancel if that fails.
	if cerr := chromedp.Cancel(p.ctx); cerr != nil && !errors.Is(cerr, context.Canceled) {
		err = fmt.Errorf("failed to close page: %w", cerr)
	}
	if p.cancel != nil {
		p.cancel()
	}

	if p.onClose != nil {
		p.onClose()
	}
	return err
}
