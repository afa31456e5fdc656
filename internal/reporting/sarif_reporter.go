package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/observability"
	"github.com/xkilldash9x/uiconform/internal/reporting/sarif"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName     = "uiconform"
	ToolInfoURI  = "https://github.com/xkilldash9x/uiconform"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	rulePrefix   = "UICONFORM-"
)

var checkDescriptions = map[schemas.CheckName]struct{ short, full string }{
	schemas.CheckLayoutNonOverlap: {
		"Messages must not overlap",
		"Message elements keep disjoint bounding boxes at every sampled scroll position, and the stylesheet keeps them in normal flow.",
	},
	schemas.CheckMediaAspectRatio: {
		"Media keeps its natural aspect ratio",
		"Loaded media is displayed within 2% of its natural width/height ratio, and the stylesheet lets height follow width.",
	},
	schemas.CheckNoForcedRotation: {
		"Media is not rotated",
		"No media element carries a computed or declared transform with a rotation component.",
	},
	schemas.CheckTimeHeaderStability: {
		"Time headers stay stable under insertion",
		"Separator identifiers stay unique and ordered across simulated insertions, and the scroll offset does not jump.",
	},
	schemas.CheckAccessibilitySmoke: {
		"Basic accessibility holds",
		"Element identifiers are unique, images carry alt text and separators expose a labelled separator role.",
	},
}

// RuleID returns the SARIF rule identifier for a check.
func RuleID(name schemas.CheckName) string {
	return rulePrefix + strings.ToUpper(strings.ReplaceAll(string(name), "_", "-"))
}

// SARIFReporter implements the Reporter interface for the SARIF 2.1.0 format.
// Every non-passing facet becomes one result. It is thread safe.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	log    *sarif.Log
	mu     sync.Mutex
	// ruleIndex maps a check to its position in the driver's rule list.
	ruleIndex map[schemas.CheckName]int
}

// NewSARIFReporter creates a new reporter that writes SARIF output.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string) *SARIFReporter {
	logger := observability.GetLogger().Named("sarif_reporter")
	log := &sarif.Log{
		Version: SARIFVersion,
		Schema:  SARIFSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           ToolName,
						Version:        pString(toolVersion),
						InformationURI: pString(ToolInfoURI),
						Rules:          []*sarif.ReportingDescriptor{},
					},
				},
				Results: []*sarif.Result{},
			},
		},
	}

	return &SARIFReporter{
		writer:    writer,
		logger:    logger,
		log:       log,
		ruleIndex: make(map[schemas.CheckName]int),
	}
}

// Write converts a report into SARIF results and an invocation record.
func (r *SARIFReporter) Write(report *schemas.ValidationReport) error {
	if report == nil {
		return fmt.Errorf("cannot write a nil report")
	}
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	start, end := report.TimestampStart, report.TimestampEnd
	run.Invocations = append(run.Invocations, &sarif.Invocation{
		ExecutionSuccessful: true,
		StartTimeUTC:        &start,
		EndTimeUTC:          &end,
		Properties: &sarif.PropertyBag{
			"report_id":    report.ID.String(),
			"mode":         string(report.Mode),
			"overall_pass": report.OverallPass,
			"screenshot":   report.Screenshot,
		},
	})

	count := 0
	for _, res := range report.Ordered() {
		idx := r.ensureRule(res.Name)
		if res.Passed() {
			continue
		}
		emitted := false
		for _, f := range res.Facets {
			if f.Status != schemas.StatusFail && f.Status != schemas.StatusError {
				continue
			}
			run.Results = append(run.Results, r.newResult(report, res.Name, idx, f.Status, f.Message, facetProperties(f)))
			emitted = true
			count++
		}
		if !emitted {
			// A check can be non-passing without a failing facet, e.g. when no
			// checker contributed to it.
			run.Results = append(run.Results, r.newResult(report, res.Name, idx, res.Status, res.Message, nil))
			count++
		}
	}

	if count > 0 {
		r.logger.Debug("Wrote results to SARIF buffer",
			zap.Int("results_count", count),
			zap.Duration("duration_ms", time.Since(startTime)),
		)
	}
	return nil
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	r.logger.Info("Finalizing SARIF report",
		zap.Int("total_results", len(run.Results)),
		zap.Int("total_rules", len(run.Tool.Driver.Rules)),
	)

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(r.log)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF log to JSON", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}

	r.logger.Info("Successfully wrote SARIF report",
		zap.Duration("duration_ms", time.Since(startTime)),
	)
	return nil
}

// ensureRule registers the rule for name on first use and returns its index.
// Must be called while holding the mutex.
func (r *SARIFReporter) ensureRule(name schemas.CheckName) int {
	if idx, ok := r.ruleIndex[name]; ok {
		return idx
	}
	desc := checkDescriptions[name]
	driver := r.log.Runs[0].Tool.Driver
	driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{
		ID:               RuleID(name),
		Name:             pString(string(name)),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(desc.short)},
		FullDescription:  &sarif.MultiformatMessageString{Text: pString(desc.full)},
		Properties: &sarif.PropertyBag{
			"tags": []string{"ui", "conformance"},
		},
	})
	idx := len(driver.Rules) - 1
	r.ruleIndex[name] = idx
	return idx
}

func (r *SARIFReporter) newResult(report *schemas.ValidationReport, name schemas.CheckName, idx int, status schemas.Status, message string, props *sarif.PropertyBag) *sarif.Result {
	level := sarif.LevelError
	if status != schemas.StatusFail {
		// The check could not be evaluated; that is not a defect in the page.
		level = sarif.LevelWarning
	}
	if message == "" {
		message = string(status)
	}
	return &sarif.Result{
		RuleID:    RuleID(name),
		RuleIndex: idx,
		Message:   &sarif.Message{Text: pString(message)},
		Level:     level,
		Kind:      sarif.KindFail,
		Locations: []*sarif.Location{{
			PhysicalLocation: &sarif.PhysicalLocation{
				ArtifactLocation: &sarif.ArtifactLocation{URI: pString(report.Target)},
			},
		}},
		Properties: props,
	}
}

func facetProperties(f schemas.Facet) *sarif.PropertyBag {
	props := sarif.PropertyBag{"source": f.Source}
	if f.Kind != schemas.KindNone {
		props["kind"] = string(f.Kind)
	}
	if len(f.Evidence) > 0 {
		props["evidence"] = f.Evidence
	}
	return &props
}

// pString returns a pointer to the given string value.
func pString(s string) *string {
	return &s
}
