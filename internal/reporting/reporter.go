// Package reporting persists validation reports and renders the console
// summary.
package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xkilldash9x/uiconform/api/schemas"
)

// Reporter defines the interface for writing validation reports to an output.
type Reporter interface {
	// Write records one sealed report.
	Write(report *schemas.ValidationReport) error
	// Close finalizes the output and releases the underlying writer. File
	// outputs become visible on disk only here.
	Close() error
}

// Supported output formats.
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatSARIF = "sarif"
)

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// IsStdout reports whether outputPath designates standard output.
func IsStdout(outputPath string) bool {
	return outputPath == "" || outputPath == "-" || outputPath == "stdout"
}

// New creates a reporter for format. File outputs are written atomically under
// an exclusive lock when the reporter is closed.
func New(format, outputPath, toolVersion string) (Reporter, error) {
	var writer io.WriteCloser
	if IsStdout(outputPath) {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		writer = newLockedFile(outputPath)
	}

	switch strings.ToLower(format) {
	case FormatJSON:
		return NewJSONReporter(writer), nil
	case FormatYAML:
		return NewYAMLReporter(writer), nil
	case FormatSARIF:
		return NewSARIFReporter(writer, toolVersion), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
