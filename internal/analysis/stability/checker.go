// Package stability exercises the page's content-insertion hook and checks
// that time separators keep their identity and order and that the scroll
// position does not jump. All violations are collected before reporting.
package stability

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/analysis/core"
)

const (
	CheckerID       = "stability"
	SourceInsertion = "stability.insertion"

	// MinInsertions is the smallest number of hook invocations per run.
	MinInsertions        = 3
	DefaultHook          = "simulateInsertOnce"
	DefaultJumpThreshold = 120.0
)

// Config controls the insertion protocol.
type Config struct {
	SeparatorSelector string
	// ScrollContainer is the scrollable list; empty means the document.
	ScrollContainer string
	Hook            string
	Insertions      int
	JumpThreshold   float64
	Settle          time.Duration
}

// Checker is the temporal stability checker.
type Checker struct {
	*core.BaseChecker
	cfg    Config
	logger *zap.Logger
}

// NewChecker creates a stability checker. Insertions below MinInsertions are
// raised.
func NewChecker(cfg Config, logger *zap.Logger) *Checker {
	if cfg.Insertions < MinInsertions {
		cfg.Insertions = MinInsertions
	}
	if cfg.Hook == "" {
		cfg.Hook = DefaultHook
	}
	if cfg.JumpThreshold <= 0 {
		cfg.JumpThreshold = DefaultJumpThreshold
	}
	base := core.NewBaseChecker(CheckerID, "Time separator stability under insertions", core.TypeRendered,
		[]schemas.CheckName{schemas.CheckTimeHeaderStability}, logger)
	return &Checker{BaseChecker: base, cfg: cfg, logger: base.Logger}
}

// Run executes the insertion protocol and returns a single facet.
func (c *Checker) Run(ctx context.Context, page schemas.Page) []schemas.Facet {
	fail := func(err error) []schemas.Facet {
		c.logger.Warn("Stability protocol could not complete", zap.Error(err))
		return []schemas.Facet{core.Errored(schemas.CheckTimeHeaderStability, SourceInsertion, err)}
	}

	before, err := page.Separators(ctx, c.cfg.SeparatorSelector)
	if err != nil {
		return fail(err)
	}
	startOffset, err := page.ScrollOffset(ctx, c.cfg.ScrollContainer)
	if err != nil {
		return fail(err)
	}

	collisions := make(map[string]int)
	var collisionRounds []int
	after := before
	for round := 1; round <= c.cfg.Insertions; round++ {
		if err := page.InvokeHook(ctx, c.cfg.Hook); err != nil {
			if errors.Is(err, schemas.ErrPreconditionNotMet) {
				return fail(fmt.Errorf("page does not expose insertion hook %s(): %w", c.cfg.Hook, err))
			}
			return fail(fmt.Errorf("insertion %d: %w", round, err))
		}
		if err := core.Settle(ctx, c.cfg.Settle); err != nil {
			return fail(err)
		}
		after, err = page.Separators(ctx, c.cfg.SeparatorSelector)
		if err != nil {
			return fail(err)
		}
		dups, counts := core.Duplicates(separatorIDs(after))
		if len(dups) > 0 {
			collisionRounds = append(collisionRounds, round)
			for _, id := range dups {
				if counts[id] > collisions[id] {
					collisions[id] = counts[id]
				}
			}
		}
		c.logger.Debug("Insertion settled", zap.Int("round", round), zap.Int("separators", len(after)), zap.Strings("collisions", dups))
	}

	endOffset, err := page.ScrollOffset(ctx, c.cfg.ScrollContainer)
	if err != nil {
		return fail(err)
	}
	delta := endOffset - startOffset

	var problems []string
	ev := core.Evidence{
		"insertions":        c.cfg.Insertions,
		"separators_before": len(before),
		"separators_after":  len(after),
		"scroll_start":      startOffset,
		"scroll_end":        endOffset,
		"scroll_delta":      delta,
		"jump_threshold":    c.cfg.JumpThreshold,
	}

	if len(collisions) > 0 {
		ids := core.SortedKeys(collisions)
		problems = append(problems, "separator ids collide after insertion: "+strings.Join(ids, ", "))
		ev["collisions"] = ids
		ev["collision_rounds"] = collisionRounds
	}
	if moved := ReorderedSurvivors(before, after); len(moved) > 0 {
		problems = append(problems, "separators changed relative order: "+strings.Join(moved, ", "))
		ev["reordered"] = moved
	}
	if math.Abs(delta) > c.cfg.JumpThreshold {
		problems = append(problems, fmt.Sprintf("scroll offset jumped by %.0f (threshold %.0f)", math.Abs(delta), c.cfg.JumpThreshold))
	}

	if len(problems) > 0 {
		return []schemas.Facet{core.Fail(schemas.CheckTimeHeaderStability, SourceInsertion, schemas.KindLayoutViolation,
			strings.Join(problems, "; "), ev)}
	}
	return []schemas.Facet{core.PassWith(schemas.CheckTimeHeaderStability, SourceInsertion,
		fmt.Sprintf("%d insertion(s): separators stable, scroll moved %.0f", c.cfg.Insertions, math.Abs(delta)), ev)}
}

func separatorIDs(snaps []schemas.SeparatorSnapshot) []string {
	ids := make([]string, len(snaps))
	for i, s := range snaps {
		ids[i] = s.ID
	}
	return ids
}

// ReorderedSurvivors compares the relative order of separators present in
// both snapshots and returns the ids whose position among the survivors
// changed. Empty and duplicated ids are not tracked.
func ReorderedSurvivors(before, after []schemas.SeparatorSnapshot) []string {
	trackable := func(snaps []schemas.SeparatorSnapshot) map[string]bool {
		_, dups := core.Duplicates(separatorIDs(snaps))
		ok := make(map[string]bool, len(snaps))
		for _, s := range snaps {
			if s.ID != "" && dups[s.ID] == 0 {
				ok[s.ID] = true
			}
		}
		return ok
	}
	inBefore, inAfter := trackable(before), trackable(after)

	var seqBefore, seqAfter []string
	for _, s := range before {
		if inBefore[s.ID] && inAfter[s.ID] {
			seqBefore = append(seqBefore, s.ID)
		}
	}
	for _, s := range after {
		if inBefore[s.ID] && inAfter[s.ID] {
			seqAfter = append(seqAfter, s.ID)
		}
	}

	var moved []string
	for i := range seqBefore {
		if seqBefore[i] != seqAfter[i] {
			moved = append(moved, seqBefore[i])
		}
	}
	return moved
}
