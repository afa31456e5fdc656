// Package media checks rendered media elements for forced rotation and
// aspect-ratio drift. Every element is examined and all violations are
// reported together.
package media

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/analysis/core"
)

const (
	CheckerID      = "media"
	SourceRotation = "media.rotation"
	SourceRatio    = "media.aspect_ratio"

	// DefaultRatioTolerance is the relative ratio error tolerated before an
	// image counts as distorted.
	DefaultRatioTolerance = 0.02
)

// Config controls the media checks.
type Config struct {
	MediaSelector  string
	RatioTolerance float64
}

// Checker is the media integrity checker.
type Checker struct {
	*core.BaseChecker
	cfg    Config
	logger *zap.Logger
}

// NewChecker creates a media integrity checker.
func NewChecker(cfg Config, logger *zap.Logger) *Checker {
	if cfg.RatioTolerance <= 0 {
		cfg.RatioTolerance = DefaultRatioTolerance
	}
	base := core.NewBaseChecker(CheckerID, "Rotation and aspect ratio of rendered media", core.TypeRendered,
		[]schemas.CheckName{schemas.CheckNoForcedRotation, schemas.CheckMediaAspectRatio}, logger)
	return &Checker{BaseChecker: base, cfg: cfg, logger: base.Logger}
}

// rotationViolation and ratioViolation are the evidence records.
type rotationViolation struct {
	Source    string  `json:"source"`
	Transform string  `json:"transform"`
	Degrees   float64 `json:"degrees,omitempty"`
}

type ratioViolation struct {
	Source         string  `json:"source"`
	Natural        string  `json:"natural"`
	Displayed      string  `json:"displayed"`
	NaturalRatio   float64 `json:"natural_ratio"`
	DisplayedRatio float64 `json:"displayed_ratio,omitempty"`
	Deviation      float64 `json:"deviation,omitempty"`
	Reason         string  `json:"reason"`
}

// Run inspects every media element. It always returns one rotation facet and
// one ratio facet.
func (c *Checker) Run(ctx context.Context, page schemas.Page) []schemas.Facet {
	items, err := page.Media(ctx, c.cfg.MediaSelector)
	if err != nil {
		c.logger.Warn("Could not read media descriptors", zap.Error(err))
		return []schemas.Facet{
			core.Errored(schemas.CheckNoForcedRotation, SourceRotation, err),
			core.Errored(schemas.CheckMediaAspectRatio, SourceRatio, err),
		}
	}
	if len(items) == 0 {
		return []schemas.Facet{
			core.Pass(schemas.CheckNoForcedRotation, SourceRotation, "page has no media elements"),
			core.Pass(schemas.CheckMediaAspectRatio, SourceRatio, "page has no media elements"),
		}
	}
	if err := c.readTransforms(ctx, page, items); err != nil {
		c.logger.Warn("Could not read computed transforms", zap.Error(err))
		return []schemas.Facet{
			core.Errored(schemas.CheckNoForcedRotation, SourceRotation, err),
			c.checkRatio(items),
		}
	}
	return []schemas.Facet{c.checkRotation(items), c.checkRatio(items)}
}

// readTransforms fills ComputedTransform for every descriptor. Indices follow
// the document order of MediaSelector, as Media does.
func (c *Checker) readTransforms(ctx context.Context, page schemas.Page, items []schemas.MediaDescriptor) error {
	for i := range items {
		v, err := page.ComputedStyle(ctx, c.cfg.MediaSelector, i, "transform")
		if err != nil {
			return fmt.Errorf("transform of %s: %w", items[i].Label(), err)
		}
		items[i].ComputedTransform = v
	}
	return nil
}

func (c *Checker) checkRotation(items []schemas.MediaDescriptor) schemas.Facet {
	var violations []rotationViolation
	var warnings []string
	for _, m := range items {
		rot, err := ParseRotation(m.ComputedTransform)
		if err != nil {
			c.logger.Debug("Unparseable computed transform", zap.String("source", m.Source), zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("%s: could not read transform %q: %v", m.Label(), m.ComputedTransform, err))
			continue
		}
		if !rot.Rotated() {
			continue
		}
		v := rotationViolation{Source: m.Label(), Transform: m.ComputedTransform}
		if !math.IsNaN(rot.Degrees) {
			v.Degrees = rot.Degrees
		}
		violations = append(violations, v)
	}
	if len(violations) > 0 {
		labels := make([]string, len(violations))
		for i, v := range violations {
			labels[i] = fmt.Sprintf("%s (%s)", v.Source, v.Transform)
		}
		ev := core.Evidence{"violations": violations}
		if len(warnings) > 0 {
			ev["warnings"] = warnings
		}
		return core.Fail(schemas.CheckNoForcedRotation, SourceRotation, schemas.KindLayoutViolation,
			fmt.Sprintf("%d of %d media element(s) are rotated: %s", len(violations), len(items), strings.Join(labels, ", ")),
			ev,
		)
	}
	var ev core.Evidence
	if len(warnings) > 0 {
		ev = core.Evidence{"warnings": warnings}
	}
	return core.PassWith(schemas.CheckNoForcedRotation, SourceRotation,
		fmt.Sprintf("%d media element(s) render unrotated", len(items)-len(warnings)), ev)
}

func (c *Checker) checkRatio(items []schemas.MediaDescriptor) schemas.Facet {
	var violations []ratioViolation
	var pending []string
	checked := 0
	for _, m := range items {
		if !m.Loaded() {
			pending = append(pending, m.Label())
			continue
		}
		checked++
		v := ratioViolation{
			Source:       m.Label(),
			Natural:      fmt.Sprintf("%.0fx%.0f", m.NaturalWidth, m.NaturalHeight),
			Displayed:    fmt.Sprintf("%.1fx%.1f", m.DisplayedWidth, m.DisplayedHeight),
			NaturalRatio: m.NaturalWidth / m.NaturalHeight,
		}
		if m.DisplayedHeight <= 0 {
			v.Reason = "zero displayed height"
			violations = append(violations, v)
			continue
		}
		dev, err := RatioDeviation(m.NaturalWidth, m.NaturalHeight, m.DisplayedWidth, m.DisplayedHeight)
		if err != nil {
			v.Reason = err.Error()
			violations = append(violations, v)
			continue
		}
		if dev > c.cfg.RatioTolerance {
			v.DisplayedRatio = m.DisplayedWidth / m.DisplayedHeight
			v.Deviation = dev
			v.Reason = fmt.Sprintf("ratio deviates %.2f%% (tolerance %.2f%%)", dev*100, c.cfg.RatioTolerance*100)
			violations = append(violations, v)
		}
	}

	if len(violations) > 0 {
		labels := make([]string, len(violations))
		for i, v := range violations {
			labels[i] = fmt.Sprintf("%s %s shown as %s: %s", v.Source, v.Natural, v.Displayed, v.Reason)
		}
		ev := core.Evidence{"violations": violations, "tolerance": c.cfg.RatioTolerance}
		if len(pending) > 0 {
			ev["not_loaded"] = pending
		}
		return core.Fail(schemas.CheckMediaAspectRatio, SourceRatio, schemas.KindLayoutViolation,
			fmt.Sprintf("%d of %d loaded media element(s) are distorted: %s", len(violations), checked, strings.Join(labels, "; ")),
			ev,
		)
	}
	if checked == 0 {
		return core.Skipped(schemas.CheckMediaAspectRatio, SourceRatio,
			fmt.Sprintf("none of %d media element(s) finished loading", len(items)))
	}
	var ev core.Evidence
	if len(pending) > 0 {
		ev = core.Evidence{"not_loaded": pending}
	}
	return core.PassWith(schemas.CheckMediaAspectRatio, SourceRatio,
		fmt.Sprintf("%d loaded media element(s) keep their aspect ratio", checked), ev)
}
