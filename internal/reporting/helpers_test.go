package reporting_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiconform/api/schemas"
)

var testStart = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// sampleReport builds a sealed report with three passing checks, one failure
// and one check that could not run.
func sampleReport(t *testing.T) *schemas.ValidationReport {
	t.Helper()
	r := schemas.NewValidationReport("file:///tmp/chat.html", schemas.ModeFull, testStart)

	finalize := func(name schemas.CheckName, status schemas.Status, msg string, facets ...schemas.Facet) {
		res := r.Result(name)
		res.Facets = facets
		require.NoError(t, res.Finalize(status, msg, nil))
	}

	finalize(schemas.CheckLayoutNonOverlap, schemas.StatusPass, "no overlapping messages",
		schemas.Facet{Check: schemas.CheckLayoutNonOverlap, Source: "layout", Status: schemas.StatusPass, Message: "no overlapping messages"})
	finalize(schemas.CheckMediaAspectRatio, schemas.StatusPass, "ratios preserved")
	finalize(schemas.CheckNoForcedRotation, schemas.StatusPass, "no rotation")
	finalize(schemas.CheckTimeHeaderStability, schemas.StatusError, "scroll container not found",
		schemas.Facet{
			Check:   schemas.CheckTimeHeaderStability,
			Source:  "stability",
			Status:  schemas.StatusError,
			Kind:    schemas.KindPreconditionNotMet,
			Message: errors.New("scroll container not found").Error(),
		})
	finalize(schemas.CheckAccessibilitySmoke, schemas.StatusFail, "duplicate element ids: hdr-1",
		schemas.Facet{
			Check:    schemas.CheckAccessibilitySmoke,
			Source:   "static",
			Status:   schemas.StatusFail,
			Kind:     schemas.KindStructuralViolation,
			Message:  "duplicate element ids: hdr-1",
			Evidence: map[string]interface{}{"duplicates": []string{"hdr-1"}},
		},
		schemas.Facet{Check: schemas.CheckAccessibilitySmoke, Source: "accessibility", Status: schemas.StatusPass, Message: "alt text present"},
	)

	r.Notes = append(r.Notes, "stylesheet chat.css not found")
	r.Seal(testStart.Add(2 * time.Second))
	return r
}
