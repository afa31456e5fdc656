package orchestrator

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiconform/internal/analysis/accessibility"
	"github.com/xkilldash9x/uiconform/internal/analysis/core"
	"github.com/xkilldash9x/uiconform/internal/analysis/layout"
	"github.com/xkilldash9x/uiconform/internal/analysis/media"
	"github.com/xkilldash9x/uiconform/internal/analysis/stability"
	"github.com/xkilldash9x/uiconform/internal/analysis/static"
	"github.com/xkilldash9x/uiconform/internal/config"
)

// NewCheckers builds the static checker and the rendered checkers, in run
// order, from the checks configuration.
func NewCheckers(cfg config.ChecksConfig, logger *zap.Logger) (core.StaticChecker, []core.RenderedChecker) {
	st := static.NewChecker(static.Config{
		MediaClass:     cfg.MediaClass,
		MessageClass:   cfg.MessageClass,
		ContainerClass: cfg.ContainerClass,
		SeparatorClass: cfg.SeparatorClass,
	}, logger)

	rendered := []core.RenderedChecker{
		layout.NewChecker(layout.Config{
			MessageSelector: config.ClassSelector(cfg.MessageClass),
			ScrollContainer: cfg.ScrollContainer,
			Samples:         cfg.ScrollSamples,
			Epsilon:         cfg.OverlapEpsilon,
			Settle:          cfg.SettleDelay,
		}, logger),
		media.NewChecker(media.Config{
			MediaSelector:  "img, video, " + config.ClassSelector(cfg.MediaClass),
			RatioTolerance: cfg.RatioTolerance,
		}, logger),
		stability.NewChecker(stability.Config{
			SeparatorSelector: config.ClassSelector(cfg.SeparatorClass),
			ScrollContainer:   cfg.ScrollContainer,
			Hook:              cfg.InsertHook,
			Insertions:        cfg.Insertions,
			JumpThreshold:     cfg.JumpThreshold,
			Settle:            cfg.SettleDelay,
		}, logger),
		accessibility.NewChecker(accessibility.Config{
			ImageSelector: cfg.ImageSelector,
		}, logger),
	}
	return st, rendered
}
