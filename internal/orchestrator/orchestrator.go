// File: internal/orchestrator/orchestrator.go
// Description: Runs one validation: the static checker against the parsed
// document, then the rendered checkers against a single live page, and folds
// every facet into the five named check results.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/analysis/core"
	"github.com/xkilldash9x/uiconform/internal/browser"
	"github.com/xkilldash9x/uiconform/internal/document"
)

// ErrAborted is returned when the minimal input for a validation could not be
// obtained. No report is produced in that case.
var ErrAborted = errors.New("validation aborted")

// Exit codes of the validate command.
const (
	ExitPass    = 0
	ExitFail    = 1
	ExitAborted = 2
)

const staticOnlyNote = "static-only run: rendered checks were not executed; verdicts come from static facets only"

// Target names what to validate.
type Target struct {
	// Document is the markup file. It is always required.
	Document string
	// Stylesheet overrides the stylesheets linked from the document.
	Stylesheet string
	// URL is the page to render. Empty means the Document file itself.
	URL string
	// StaticOnly skips the rendering session entirely.
	StaticOnly bool
}

// ScreenshotWriter persists failure evidence and returns where it was stored.
type ScreenshotWriter interface {
	WriteScreenshot(id uuid.UUID, png []byte) (string, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithScreenshots enables screenshot capture on failing runs.
func WithScreenshots(w ScreenshotWriter) Option {
	return func(o *Orchestrator) { o.screenshots = w }
}

// WithClock replaces time.Now, for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator manages the lifecycle of one validation run.
type Orchestrator struct {
	logger      *zap.Logger
	opener      schemas.PageOpener
	static      core.StaticChecker
	rendered    []core.RenderedChecker
	screenshots ScreenshotWriter
	now         func() time.Time
}

// New creates an Orchestrator. opener may be nil when only static runs are
// requested.
func New(logger *zap.Logger, opener schemas.PageOpener, static core.StaticChecker, rendered []core.RenderedChecker, opts ...Option) (*Orchestrator, error) {
	if logger == nil || static == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	o := &Orchestrator{
		logger:   logger.Named("orchestrator"),
		opener:   opener,
		static:   static,
		rendered: rendered,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Validate runs every checker in fixed order and returns the sealed report.
// The error is non-nil, and wraps ErrAborted, only when the document could
// not be loaded, no page could be opened or the context was canceled. A page
// that fails to navigate turns every rendered check into an error instead.
func (o *Orchestrator) Validate(ctx context.Context, t Target) (*schemas.ValidationReport, error) {
	start := o.now()
	mode := schemas.ModeFull
	if t.StaticOnly {
		mode = schemas.ModeStatic
	}
	label := t.Document
	if t.URL != "" {
		label = t.URL
	}
	o.logger.Info("Validation started.", zap.String("target", label), zap.String("mode", string(mode)))

	doc, err := document.Load(t.Document, t.Stylesheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAborted, err)
	}

	report := schemas.NewValidationReport(label, mode, start)
	report.Notes = append(report.Notes, doc.Warnings...)

	facets := core.Guard(o.logger, o.static.Name(), o.static.Checks(), func() []schemas.Facet {
		return o.static.Run(doc)
	})

	var screenshot []byte
	if t.StaticOnly {
		report.Notes = append(report.Notes, staticOnlyNote)
	} else {
		url := t.URL
		if url == "" {
			if url, err = browser.ResolveTarget(t.Document); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrAborted, err)
			}
		}
		var rendered []schemas.Facet
		rendered, screenshot, err = o.runRendered(ctx, url, facets)
		if err != nil {
			return nil, err
		}
		facets = append(facets, rendered...)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAborted, err)
	}

	for _, name := range schemas.AllChecks {
		own := core.FacetsFor(name, facets)
		v := core.Fold(name, own)
		res := report.Result(name)
		res.Facets = own
		if err := res.Finalize(v.Status, v.Message, v.Evidence); err != nil {
			// Results are fresh, so this is a programming error.
			return nil, fmt.Errorf("failed to finalize %s: %w", name, err)
		}
	}

	if screenshot != nil {
		path, err := o.screenshots.WriteScreenshot(report.ID, screenshot)
		if err != nil {
			o.logger.Warn("Could not save failure screenshot.", zap.Error(err))
		} else {
			report.Screenshot = path
		}
	}

	report.Seal(o.now())
	o.logger.Info("Validation finished.",
		zap.Bool("overall_pass", report.OverallPass),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("duration", report.TimestampEnd.Sub(report.TimestampStart)),
	)
	return report, nil
}

// runRendered opens one page, hands it to each rendered checker in turn and
// closes it exactly once. A screenshot is taken before closing when the run
// is already failing.
func (o *Orchestrator) runRendered(ctx context.Context, url string, prior []schemas.Facet) (facets []schemas.Facet, screenshot []byte, err error) {
	if o.opener == nil {
		return nil, nil, fmt.Errorf("%w: no rendering provider configured", ErrAborted)
	}

	page, err := o.opener.NewPage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrAborted, err)
	}
	defer func() {
		// Detached so the page is released even after ctx expired.
		if cerr := page.Close(browser.Detach(ctx)); cerr != nil {
			o.logger.Warn("Failed to close page.", zap.Error(cerr))
		}
	}()

	if err := page.Navigate(ctx, url); err != nil {
		// The session exists, so only the rendered checks are lost.
		o.logger.Warn("Navigation failed, rendered checks cannot run.", zap.String("url", url), zap.Error(err))
		for _, c := range o.rendered {
			facets = append(facets, core.ErroredAll(c.Checks(), c.Name(), fmt.Errorf("navigate to %s: %w", url, err))...)
		}
		return facets, nil, nil
	}

	for _, c := range o.rendered {
		o.logger.Debug("Running checker.", zap.String("checker", c.Name()))
		facets = append(facets, core.Guard(o.logger, c.Name(), c.Checks(), func() []schemas.Facet {
			return c.Run(ctx, page)
		})...)
	}

	if o.screenshots != nil && failing(append(append([]schemas.Facet{}, prior...), facets...)) {
		png, err := page.Screenshot(ctx)
		if err != nil {
			o.logger.Warn("Could not capture failure screenshot.", zap.Error(err))
		} else {
			screenshot = png
		}
	}
	return facets, screenshot, nil
}

// failing reports whether any named check would fold to something other than pass.
func failing(facets []schemas.Facet) bool {
	for _, name := range schemas.AllChecks {
		if core.Fold(name, facets).Status != schemas.StatusPass {
			return true
		}
	}
	return false
}

// ExitCode maps the outcome of Validate to the process exit code.
func ExitCode(report *schemas.ValidationReport, err error) int {
	switch {
	case err != nil || report == nil:
		return ExitAborted
	case report.OverallPass:
		return ExitPass
	default:
		return ExitFail
	}
}
