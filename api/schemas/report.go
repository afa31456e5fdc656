package schemas

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// -- Result Schemas --

// Facet is a single sub-check outcome contributed by one checker. Several
// facets are folded into each named CheckResult.
type Facet struct {
	Check    CheckName              `json:"check" yaml:"check"`
	Source   string                 `json:"source" yaml:"source"`
	Status   Status                 `json:"status" yaml:"status"`
	Kind     Kind                   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Message  string                 `json:"message" yaml:"message"`
	Evidence map[string]interface{} `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

// CheckResult is the verdict for one named check. It starts as not_run and is
// finalized exactly once.
type CheckResult struct {
	Name     CheckName              `json:"name" yaml:"name"`
	Status   Status                 `json:"status" yaml:"status"`
	Message  string                 `json:"message" yaml:"message"`
	Evidence map[string]interface{} `json:"evidence,omitempty" yaml:"evidence,omitempty"`
	Facets   []Facet                `json:"facets,omitempty" yaml:"facets,omitempty"`
}

// NewCheckResult returns an empty result for name.
func NewCheckResult(name CheckName) *CheckResult {
	return &CheckResult{Name: name, Status: StatusNotRun}
}

// Finalize sets the verdict. Only pass, fail and error are accepted, and only
// once per result.
func (r *CheckResult) Finalize(status Status, message string, evidence map[string]interface{}) error {
	if r.Status != StatusNotRun {
		return fmt.Errorf("%s: %w", r.Name, ErrResultFinalized)
	}
	switch status {
	case StatusPass, StatusFail, StatusError:
	default:
		return fmt.Errorf("%s: invalid final status %q", r.Name, status)
	}
	r.Status = status
	r.Message = message
	r.Evidence = evidence
	return nil
}

// Passed reports whether the result is a pass.
func (r *CheckResult) Passed() bool { return r.Status == StatusPass }

// ValidationReport is the durable output of one validation run.
type ValidationReport struct {
	ID             uuid.UUID                  `json:"id" yaml:"id"`
	Target         string                     `json:"target" yaml:"target"`
	Mode           RunMode                    `json:"mode" yaml:"mode"`
	Results        map[CheckName]*CheckResult `json:"results" yaml:"results"`
	OverallPass    bool                       `json:"overall_pass" yaml:"overall_pass"`
	Errors         []string                   `json:"errors" yaml:"errors"`
	Notes          []string                   `json:"notes,omitempty" yaml:"notes,omitempty"`
	Screenshot     string                     `json:"screenshot,omitempty" yaml:"screenshot,omitempty"`
	TimestampStart time.Time                  `json:"timestamp_start" yaml:"timestamp_start"`
	TimestampEnd   time.Time                  `json:"timestamp_end" yaml:"timestamp_end"`
}

// NewValidationReport creates a report with every check in the not_run state.
func NewValidationReport(target string, mode RunMode, start time.Time) *ValidationReport {
	r := &ValidationReport{
		ID:             uuid.New(),
		Target:         target,
		Mode:           mode,
		Results:        make(map[CheckName]*CheckResult, len(AllChecks)),
		Errors:         []string{},
		TimestampStart: start.UTC(),
	}
	for _, name := range AllChecks {
		r.Results[name] = NewCheckResult(name)
	}
	return r
}

// Result returns the slot for name, or nil for an unknown check.
func (r *ValidationReport) Result(name CheckName) *CheckResult {
	return r.Results[name]
}

// Ordered returns the results in fixed check order.
func (r *ValidationReport) Ordered() []*CheckResult {
	out := make([]*CheckResult, 0, len(AllChecks))
	for _, name := range AllChecks {
		if res, ok := r.Results[name]; ok {
			out = append(out, res)
		}
	}
	return out
}

// Seal computes OverallPass and the error list from the finalized results and
// stamps the end time. A check left in not_run counts as not passing.
func (r *ValidationReport) Seal(end time.Time) {
	r.OverallPass = true
	r.Errors = r.Errors[:0]
	for _, res := range r.Ordered() {
		switch res.Status {
		case StatusPass:
			continue
		case StatusError:
			r.Errors = append(r.Errors, fmt.Sprintf("%s: could not run: %s", res.Name, res.Message))
		case StatusNotRun:
			r.Errors = append(r.Errors, fmt.Sprintf("%s: could not run: not executed", res.Name))
		default:
			r.Errors = append(r.Errors, fmt.Sprintf("%s: %s", res.Name, res.Message))
		}
		r.OverallPass = false
	}
	r.TimestampEnd = end.UTC()
}

// Counts tallies results by status.
func (r *ValidationReport) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}
