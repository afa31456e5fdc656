package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/observability"
)

// ErrReportAlreadyWritten is returned by a single-document reporter on a
// second Write.
var ErrReportAlreadyWritten = fmt.Errorf("report already written")

type encodeFunc func(w io.Writer, v interface{}) error

// DocumentReporter serializes exactly one report as a single JSON or YAML
// document.
type DocumentReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	format string
	encode encodeFunc

	mu     sync.Mutex
	report *schemas.ValidationReport
}

// NewJSONReporter writes the report as indented JSON.
func NewJSONReporter(writer io.WriteCloser) *DocumentReporter {
	return newDocumentReporter(writer, FormatJSON, func(w io.Writer, v interface{}) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// NewYAMLReporter writes the report as a YAML document.
func NewYAMLReporter(writer io.WriteCloser) *DocumentReporter {
	return newDocumentReporter(writer, FormatYAML, func(w io.Writer, v interface{}) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	})
}

func newDocumentReporter(writer io.WriteCloser, format string, encode encodeFunc) *DocumentReporter {
	return &DocumentReporter{
		writer: writer,
		logger: observability.GetLogger().Named(format + "_reporter"),
		format: format,
		encode: encode,
	}
}

// Write records report. It is encoded on Close.
func (r *DocumentReporter) Write(report *schemas.ValidationReport) error {
	if report == nil {
		return fmt.Errorf("cannot write a nil report")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.report != nil {
		return ErrReportAlreadyWritten
	}
	r.report = report
	return nil
}

// Close encodes the recorded report, if any, and closes the writer.
func (r *DocumentReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var encodeErr error
	if r.report != nil {
		encodeErr = r.encode(r.writer, r.report)
	}
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode report", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode %s output: %w", r.format, encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	if r.report != nil {
		r.logger.Debug("Wrote report", zap.String("report_id", r.report.ID.String()))
	}
	return nil
}
