// Package layout samples the rendered message list at several scroll offsets
// and fails on the first pair of overlapping messages.
package layout

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/analysis/core"
	"github.com/xkilldash9x/uiconform/pkg/geometry"
)

const (
	CheckerID     = "layout"
	SourceOverlap = "layout.overlap"
	// MinSamples is the smallest number of scroll offsets that covers the
	// top, middle and bottom of the list.
	MinSamples = 3
)

// Config controls the sampling.
type Config struct {
	// MessageSelector matches the message elements to compare.
	MessageSelector string
	// ScrollContainer is the scrollable list; empty means the document.
	ScrollContainer string
	Samples         int
	Epsilon         float64
	Settle          time.Duration
}

// Checker is the rendered layout checker. It stops at the first confirmed
// overlap, since one is enough evidence of a defect.
type Checker struct {
	*core.BaseChecker
	cfg    Config
	logger *zap.Logger
}

// NewChecker creates a layout checker. Samples below MinSamples are raised.
func NewChecker(cfg Config, logger *zap.Logger) *Checker {
	if cfg.Samples < MinSamples {
		cfg.Samples = MinSamples
	}
	if cfg.Epsilon < 0 {
		cfg.Epsilon = geometry.DefaultOverlapEpsilon
	}
	base := core.NewBaseChecker(CheckerID, "Message overlap across scroll positions", core.TypeRendered,
		[]schemas.CheckName{schemas.CheckLayoutNonOverlap}, logger)
	return &Checker{BaseChecker: base, cfg: cfg, logger: base.Logger}
}

// SampleOffsets spreads n offsets evenly over [0, max], always including both
// ends. Duplicates are dropped, so a list that cannot scroll yields one offset.
func SampleOffsets(max float64, n int) []float64 {
	if n < 2 || max <= 0 {
		return []float64{0}
	}
	offsets := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y := math.Round(max * float64(i) / float64(n-1))
		if len(offsets) > 0 && offsets[len(offsets)-1] == y {
			continue
		}
		offsets = append(offsets, y)
	}
	return offsets
}

// Run executes the sampling protocol against page.
func (c *Checker) Run(ctx context.Context, page schemas.Page) []schemas.Facet {
	fail := func(err error) []schemas.Facet {
		c.logger.Warn("Layout sampling could not complete", zap.Error(err))
		return []schemas.Facet{core.Errored(schemas.CheckLayoutNonOverlap, SourceOverlap, err)}
	}

	if c.cfg.ScrollContainer != "" {
		if err := page.WaitVisible(ctx, c.cfg.ScrollContainer); err != nil {
			return fail(fmt.Errorf("message container %q never became visible: %w", c.cfg.ScrollContainer, err))
		}
	}
	extent, err := page.ScrollExtent(ctx, c.cfg.ScrollContainer)
	if err != nil {
		return fail(err)
	}
	initial, err := page.ScrollOffset(ctx, c.cfg.ScrollContainer)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := page.SetScrollOffset(ctx, c.cfg.ScrollContainer, initial); err != nil {
			c.logger.Debug("Failed to restore scroll offset", zap.Error(err))
		}
	}()

	offsets := SampleOffsets(extent.MaxOffset(), c.cfg.Samples)
	compared := 0
	for _, y := range offsets {
		if err := page.SetScrollOffset(ctx, c.cfg.ScrollContainer, y); err != nil {
			return fail(err)
		}
		if err := core.Settle(ctx, c.cfg.Settle); err != nil {
			return fail(err)
		}
		elems, err := page.Rects(ctx, c.cfg.MessageSelector)
		if err != nil {
			return fail(err)
		}
		compared += len(elems)

		rects := make([]geometry.Rect, len(elems))
		for i, e := range elems {
			rects[i] = e.Rect
		}
		pair, found := geometry.FirstOverlap(rects, c.cfg.Epsilon)
		c.logger.Debug("Sampled scroll offset",
			zap.Float64("offset", y),
			zap.Int("elements", len(elems)),
			zap.Bool("overlap", found),
		)
		if !found {
			continue
		}

		a, b := c.label(elems, pair.I), c.label(elems, pair.J)
		return []schemas.Facet{core.Fail(schemas.CheckLayoutNonOverlap, SourceOverlap, schemas.KindLayoutViolation,
			fmt.Sprintf("messages %s and %s overlap by %.1fpx² at scroll offset %.0f", a, b, pair.Area, y),
			core.Evidence{
				"first":         a,
				"second":        b,
				"first_rect":    elems[pair.I].Rect,
				"second_rect":   elems[pair.J].Rect,
				"area":          pair.Area,
				"epsilon":       c.cfg.Epsilon,
				"scroll_offset": y,
			},
		)}
	}

	return []schemas.Facet{core.Pass(schemas.CheckLayoutNonOverlap, SourceOverlap,
		fmt.Sprintf("no overlapping messages across %d scroll offset(s) (%d samples of %s)", len(offsets), compared, c.cfg.MessageSelector))}
}

// label names the i-th element by id, or by position when it has none.
func (c *Checker) label(elems []schemas.ElementDescriptor, i int) string {
	if elems[i].ID != "" {
		return "#" + elems[i].ID
	}
	return fmt.Sprintf("%s[%d]", c.cfg.MessageSelector, i)
}
