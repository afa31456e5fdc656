// Package accessibility re-verifies accessibility facts on the live page
// after the stability checker has mutated it.
package accessibility

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/analysis/core"
)

const (
	CheckerID                  = "accessibility"
	SourceIdentifierUniqueness = "runtime.identifier_uniqueness"
	SourceMediaAltText         = "runtime.media_alt_text"
)

// Config controls the runtime accessibility checks.
type Config struct {
	// ImageSelector selects the images whose text alternatives are checked.
	ImageSelector string
}

// Checker is the runtime accessibility checker.
type Checker struct {
	*core.BaseChecker
	cfg    Config
	logger *zap.Logger
}

// NewChecker creates a runtime accessibility checker.
func NewChecker(cfg Config, logger *zap.Logger) *Checker {
	if cfg.ImageSelector == "" {
		cfg.ImageSelector = "img"
	}
	base := core.NewBaseChecker(CheckerID, "Accessibility facts after mutation", core.TypeRendered,
		[]schemas.CheckName{schemas.CheckAccessibilitySmoke}, logger)
	return &Checker{BaseChecker: base, cfg: cfg, logger: base.Logger}
}

// Run returns one facet for id uniqueness and one for image alternatives.
func (c *Checker) Run(ctx context.Context, page schemas.Page) []schemas.Facet {
	return []schemas.Facet{c.identifiers(ctx, page), c.altText(ctx, page)}
}

func (c *Checker) identifiers(ctx context.Context, page schemas.Page) schemas.Facet {
	ids, err := page.IDs(ctx)
	if err != nil {
		c.logger.Warn("Could not list element ids", zap.Error(err))
		return core.Errored(schemas.CheckAccessibilitySmoke, SourceIdentifierUniqueness, err)
	}
	dups, counts := core.Duplicates(ids)
	if len(dups) > 0 {
		return core.Fail(schemas.CheckAccessibilitySmoke, SourceIdentifierUniqueness, schemas.KindLayoutViolation,
			"duplicate element ids in rendered page: "+strings.Join(dups, ", "),
			core.Evidence{"duplicates": dups, "counts": counts},
		)
	}
	return core.Pass(schemas.CheckAccessibilitySmoke, SourceIdentifierUniqueness,
		fmt.Sprintf("%d rendered element ids are unique", len(ids)))
}

func (c *Checker) altText(ctx context.Context, page schemas.Page) schemas.Facet {
	items, err := page.Media(ctx, c.cfg.ImageSelector)
	if err != nil {
		c.logger.Warn("Could not read rendered images", zap.Error(err))
		return core.Errored(schemas.CheckAccessibilitySmoke, SourceMediaAltText, err)
	}
	var missing []string
	for _, m := range items {
		if !schemas.HasTextAlternative(m.Attributes) {
			missing = append(missing, m.Label())
		}
	}
	if len(missing) > 0 {
		return core.Fail(schemas.CheckAccessibilitySmoke, SourceMediaAltText, schemas.KindLayoutViolation,
			fmt.Sprintf("%d rendered image(s) lack alternative text: %s", len(missing), strings.Join(missing, ", ")),
			core.Evidence{"elements": missing},
		)
	}
	return core.Pass(schemas.CheckAccessibilitySmoke, SourceMediaAltText,
		fmt.Sprintf("%d rendered image(s) have alternative text", len(items)))
}
