package reporting_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/reporting"
	"github.com/xkilldash9x/uiconform/internal/reporting/sarif"
)

// MockWriteCloser allows capturing output and simulating I/O errors.
type MockWriteCloser struct {
	Buffer    *bytes.Buffer
	FailWrite bool
	FailClose bool
	Closed    bool
}

func (m *MockWriteCloser) Write(p []byte) (n int, err error) {
	if m.FailWrite {
		return 0, errors.New("simulated write error")
	}
	return m.Buffer.Write(p)
}

func (m *MockWriteCloser) Close() error {
	m.Closed = true
	if m.FailClose {
		return errors.New("simulated close error")
	}
	return nil
}

func setupSARIFTest(_ *testing.T) (*reporting.SARIFReporter, *MockWriteCloser) {
	mockWriter := &MockWriteCloser{Buffer: new(bytes.Buffer)}
	return reporting.NewSARIFReporter(mockWriter, "v1.2.3-test"), mockWriter
}

func decodeSARIF(t *testing.T, raw []byte) *sarif.Log {
	t.Helper()
	var log sarif.Log
	require.NoError(t, json.Unmarshal(raw, &log), "Output should be valid SARIF JSON")
	require.Len(t, log.Runs, 1)
	return &log
}

func TestSARIFReporter_Initialization(t *testing.T) {
	reporter, writer := setupSARIFTest(t)
	require.NoError(t, reporter.Close())
	assert.True(t, writer.Closed)

	log := decodeSARIF(t, writer.Buffer.Bytes())
	assert.Equal(t, reporting.SARIFVersion, log.Version)
	assert.Equal(t, reporting.SARIFSchema, log.Schema)

	run := log.Runs[0]
	require.NotNil(t, run.Tool)
	require.NotNil(t, run.Tool.Driver)
	assert.Equal(t, reporting.ToolName, run.Tool.Driver.Name)
	assert.Equal(t, "v1.2.3-test", *run.Tool.Driver.Version)

	// Results must encode as [] rather than null.
	require.NotNil(t, run.Results)
	assert.Empty(t, run.Results)
	assert.Empty(t, run.Invocations)
}

func TestSARIFReporter_WriteAndClose(t *testing.T) {
	reporter, writer := setupSARIFTest(t)
	report := sampleReport(t)

	require.NoError(t, reporter.Write(report))
	require.NoError(t, reporter.Close())

	run := decodeSARIF(t, writer.Buffer.Bytes()).Runs[0]

	// One rule per check, in report order.
	rules := run.Tool.Driver.Rules
	require.Len(t, rules, len(schemas.AllChecks))
	for i, name := range schemas.AllChecks {
		assert.Equal(t, reporting.RuleID(name), rules[i].ID)
		assert.Equal(t, string(name), *rules[i].Name)
		assert.NotEmpty(t, *rules[i].ShortDescription.Text)
	}

	require.Len(t, run.Results, 2)

	stability := run.Results[0]
	assert.Equal(t, "UICONFORM-TIME-HEADER-STABILITY", stability.RuleID)
	assert.Equal(t, 3, stability.RuleIndex)
	assert.Equal(t, sarif.LevelWarning, stability.Level)
	assert.Equal(t, "scroll container not found", *stability.Message.Text)

	acc := run.Results[1]
	assert.Equal(t, "UICONFORM-ACCESSIBILITY-SMOKE", acc.RuleID)
	assert.Equal(t, 4, acc.RuleIndex)
	assert.Equal(t, sarif.LevelError, acc.Level)
	assert.Equal(t, sarif.KindFail, acc.Kind)
	assert.Equal(t, "duplicate element ids: hdr-1", *acc.Message.Text)
	require.Len(t, acc.Locations, 1)
	assert.Equal(t, report.Target, *acc.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	require.NotNil(t, acc.Properties)
	assert.Equal(t, "static", (*acc.Properties)["source"])
	assert.Equal(t, string(schemas.KindStructuralViolation), (*acc.Properties)["kind"])

	require.Len(t, run.Invocations, 1)
	inv := run.Invocations[0]
	assert.True(t, inv.ExecutionSuccessful)
	require.NotNil(t, inv.StartTimeUTC)
	assert.True(t, inv.StartTimeUTC.Equal(report.TimestampStart))
	assert.Equal(t, false, (*inv.Properties)["overall_pass"])
	assert.Equal(t, report.ID.String(), (*inv.Properties)["report_id"])
}

func TestSARIFReporter_CheckWithoutFacets(t *testing.T) {
	reporter, writer := setupSARIFTest(t)
	report := schemas.NewValidationReport("index.html", schemas.ModeStatic, testStart)
	for _, name := range schemas.AllChecks {
		status, msg := schemas.StatusPass, "ok"
		if name == schemas.CheckLayoutNonOverlap {
			status, msg = schemas.StatusError, "no checker produced an outcome"
		}
		require.NoError(t, report.Result(name).Finalize(status, msg, nil))
	}
	report.Seal(testStart)

	require.NoError(t, reporter.Write(report))
	require.NoError(t, reporter.Close())

	run := decodeSARIF(t, writer.Buffer.Bytes()).Runs[0]
	require.Len(t, run.Results, 1)
	assert.Equal(t, reporting.RuleID(schemas.CheckLayoutNonOverlap), run.Results[0].RuleID)
	assert.Equal(t, "no checker produced an outcome", *run.Results[0].Message.Text)
	assert.Nil(t, run.Results[0].Properties)
}

func TestSARIFReporter_RulesRegisteredOnce(t *testing.T) {
	reporter, writer := setupSARIFTest(t)
	require.NoError(t, reporter.Write(sampleReport(t)))
	require.NoError(t, reporter.Write(sampleReport(t)))
	require.NoError(t, reporter.Close())

	run := decodeSARIF(t, writer.Buffer.Bytes()).Runs[0]
	assert.Len(t, run.Tool.Driver.Rules, len(schemas.AllChecks))
	assert.Len(t, run.Results, 4)
	assert.Len(t, run.Invocations, 2)
}

func TestSARIFReporter_Errors(t *testing.T) {
	t.Run("nil report", func(t *testing.T) {
		reporter, _ := setupSARIFTest(t)
		assert.Error(t, reporter.Write(nil))
	})

	t.Run("write failure", func(t *testing.T) {
		reporter, writer := setupSARIFTest(t)
		writer.FailWrite = true
		err := reporter.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to encode SARIF output")
		assert.True(t, writer.Closed, "writer is closed even when encoding fails")
	})

	t.Run("close failure", func(t *testing.T) {
		reporter, writer := setupSARIFTest(t)
		writer.FailClose = true
		err := reporter.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to close output writer")
	})
}

func TestRuleID(t *testing.T) {
	assert.Equal(t, "UICONFORM-MEDIA-ASPECT-RATIO-OK", reporting.RuleID(schemas.CheckMediaAspectRatio))
	assert.Equal(t, "UICONFORM-NO-FORCED-ROTATION", reporting.RuleID(schemas.CheckNoForcedRotation))
}
