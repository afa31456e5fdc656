// Package core holds the contract shared by every checker: facet builders,
// the fold that turns facets into one verdict per check, and small helpers
// for blocking page work.
package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xkilldash9x/uiconform/api/schemas"
)

// Evidence is the structured detail attached to a facet.
type Evidence = map[string]interface{}

// Pass builds a passing facet.
func Pass(check schemas.CheckName, source, message string) schemas.Facet {
	return schemas.Facet{Check: check, Source: source, Status: schemas.StatusPass, Message: message}
}

// PassWith builds a passing facet carrying evidence, e.g. warnings.
func PassWith(check schemas.CheckName, source, message string, ev Evidence) schemas.Facet {
	f := Pass(check, source, message)
	f.Evidence = ev
	return f
}

// Fail builds a failing facet.
func Fail(check schemas.CheckName, source string, kind schemas.Kind, message string, ev Evidence) schemas.Facet {
	return schemas.Facet{Check: check, Source: source, Status: schemas.StatusFail, Kind: kind, Message: message, Evidence: ev}
}

// Skipped builds a facet whose precondition did not hold. Skipped facets do
// not contribute to the verdict.
func Skipped(check schemas.CheckName, source, message string) schemas.Facet {
	return schemas.Facet{Check: check, Source: source, Status: schemas.StatusSkipped, Kind: schemas.KindPreconditionNotMet, Message: message}
}

// Errored converts a collaborator failure into an error facet.
func Errored(check schemas.CheckName, source string, err error) schemas.Facet {
	kind := schemas.KindCollaboratorUnavailable
	if errors.Is(err, schemas.ErrPreconditionNotMet) {
		kind = schemas.KindPreconditionNotMet
	}
	return schemas.Facet{Check: check, Source: source, Status: schemas.StatusError, Kind: kind, Message: err.Error()}
}

// ErroredAll returns one error facet per check for a failure that prevents a
// checker from running at all.
func ErroredAll(checks []schemas.CheckName, source string, err error) []schemas.Facet {
	out := make([]schemas.Facet, 0, len(checks))
	for _, c := range checks {
		out = append(out, Errored(c, source, err))
	}
	return out
}

// Verdict is the folded outcome of one named check.
type Verdict struct {
	Status   schemas.Status
	Message  string
	Evidence Evidence
}

// Fold reduces the facets contributed to check. Any fail wins, then any
// error, then any pass. A check with no deciding facet is an error.
func Fold(check schemas.CheckName, facets []schemas.Facet) Verdict {
	var fails, errs, passes []schemas.Facet
	for _, f := range facets {
		if f.Check != check {
			continue
		}
		switch f.Status {
		case schemas.StatusFail:
			fails = append(fails, f)
		case schemas.StatusError:
			errs = append(errs, f)
		case schemas.StatusPass:
			passes = append(passes, f)
		}
	}

	switch {
	case len(fails) > 0:
		return Verdict{Status: schemas.StatusFail, Message: joinMessages(fails), Evidence: collectEvidence(fails)}
	case len(errs) > 0:
		return Verdict{Status: schemas.StatusError, Message: joinMessages(errs), Evidence: collectEvidence(errs)}
	case len(passes) > 0:
		return Verdict{Status: schemas.StatusPass, Message: joinMessages(passes), Evidence: collectEvidence(passes)}
	}
	return Verdict{Status: schemas.StatusError, Message: "no checker produced an outcome"}
}

// FacetsFor filters facets down to those contributed to check.
func FacetsFor(check schemas.CheckName, facets []schemas.Facet) []schemas.Facet {
	var out []schemas.Facet
	for _, f := range facets {
		if f.Check == check {
			out = append(out, f)
		}
	}
	return out
}

func joinMessages(facets []schemas.Facet) string {
	msgs := make([]string, 0, len(facets))
	for _, f := range facets {
		if f.Message != "" {
			msgs = append(msgs, f.Message)
		}
	}
	return strings.Join(msgs, "; ")
}

// collectEvidence keys each facet's evidence by its source.
func collectEvidence(facets []schemas.Facet) Evidence {
	var ev Evidence
	for _, f := range facets {
		if len(f.Evidence) == 0 {
			continue
		}
		if ev == nil {
			ev = make(Evidence)
		}
		ev[f.Source] = f.Evidence
	}
	return ev
}

// SortedKeys returns the keys of a count map in order, for stable messages.
func SortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Duplicates returns the values that occur more than once, sorted, with
// their counts. Empty values are ignored.
func Duplicates(values []string) ([]string, map[string]int) {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	dups := make(map[string]int)
	for v, n := range counts {
		if n > 1 {
			dups[v] = n
		}
	}
	return SortedKeys(dups), dups
}

// Unavailable wraps err as a collaborator failure unless it already is one.
func Unavailable(op string, err error) error {
	if errors.Is(err, schemas.ErrCollaboratorUnavailable) || errors.Is(err, schemas.ErrPreconditionNotMet) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, schemas.ErrCollaboratorUnavailable, err)
}

// Settle waits for d or until ctx is done, whichever comes first.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("settle interrupted: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
