package schemas

import "fmt"

// -- Check Enumerations --

// CheckName identifies one of the five conformance checks. The string values
// are the keys used in the persisted report.
type CheckName string

const (
	CheckLayoutNonOverlap    CheckName = "layout_non_overlap"
	CheckMediaAspectRatio    CheckName = "media_aspect_ratio_ok"
	CheckNoForcedRotation    CheckName = "no_forced_rotation"
	CheckTimeHeaderStability CheckName = "time_header_stability"
	CheckAccessibilitySmoke  CheckName = "accessibility_smoke"
)

// AllChecks lists every check in report order.
var AllChecks = []CheckName{
	CheckLayoutNonOverlap,
	CheckMediaAspectRatio,
	CheckNoForcedRotation,
	CheckTimeHeaderStability,
	CheckAccessibilitySmoke,
}

func (c CheckName) String() string { return string(c) }

// Valid reports whether c is one of the five known checks.
func (c CheckName) Valid() bool {
	for _, known := range AllChecks {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCheckName converts a wire name into a CheckName.
func ParseCheckName(s string) (CheckName, error) {
	c := CheckName(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown check %q", s)
	}
	return c, nil
}

// Status is the outcome of a check or of a single facet.
type Status string

const (
	// StatusNotRun is the initial state of every result.
	StatusNotRun Status = "not_run"
	StatusPass   Status = "pass"
	StatusFail   Status = "fail"
	// StatusError means the check could not be executed. It counts as a
	// failure for the overall verdict but is reported separately.
	StatusError Status = "error"
	// StatusSkipped only appears on facets whose precondition did not hold.
	StatusSkipped Status = "skipped"
)

func (s Status) String() string { return string(s) }

// Kind classifies why a facet did not pass.
type Kind string

const (
	KindNone                    Kind = ""
	KindStructuralViolation     Kind = "structural_violation"
	KindLayoutViolation         Kind = "layout_violation"
	KindCollaboratorUnavailable Kind = "collaborator_unavailable"
	KindPreconditionNotMet      Kind = "precondition_not_met"
)

func (k Kind) String() string { return string(k) }

// RunMode distinguishes a full rendered run from a static-only run.
type RunMode string

const (
	ModeFull   RunMode = "full"
	ModeStatic RunMode = "static"
)
