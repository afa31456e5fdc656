// File: cmd/validate.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/browser"
	"github.com/xkilldash9x/uiconform/internal/config"
	"github.com/xkilldash9x/uiconform/internal/observability"
	"github.com/xkilldash9x/uiconform/internal/orchestrator"
	"github.com/xkilldash9x/uiconform/internal/reporting"
)

var errChecksFailed = errors.New("one or more checks did not pass")

// browserCloseTimeout bounds the graceful browser shutdown after a run.
const browserCloseTimeout = 10 * time.Second

// openerFactory starts a rendering provider and returns it with its release
// function.
type openerFactory func(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (schemas.PageOpener, func(context.Context) error, error)

func newBrowserOpener(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (schemas.PageOpener, func(context.Context) error, error) {
	m, err := browser.NewManager(ctx, logger, cfg)
	if err != nil {
		return nil, nil, err
	}
	return m, m.Close, nil
}

type validateFlags struct {
	stylesheet string
	url        string
	staticOnly bool
	format     string
	output     string
	noColor    bool
	screenshot bool
}

// newValidateCmd creates and configures the `validate` command.
func newValidateCmd(opener openerFactory, stores storeProvider) *cobra.Command {
	var flags validateFlags

	validateCmd := &cobra.Command{
		Use:   "validate <document>",
		Short: "Validates a chat page against the five conformance checks",
		Long: `Parses the document and its stylesheet, renders the page in a headless browser
and runs the layout, media, stability and accessibility checks. The process exits
0 when every check passes, 1 when any check fails or could not run, and 2 when
the validation was aborted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if err := applyValidateFlags(cmd, cfg, flags, args[0]); err != nil {
				return err
			}

			summaryOut := cmd.OutOrStdout()
			if reporting.IsStdout(cfg.Report().Path) {
				summaryOut = cmd.ErrOrStderr()
			}

			code, err := runValidate(ctx, logger, cfg, summaryOut, opener, stores)
			switch {
			case err != nil:
				return &ExitError{Code: orchestrator.ExitAborted, Err: err}
			case code != orchestrator.ExitPass:
				return &ExitError{Code: code, Err: errChecksFailed}
			}
			return nil
		},
	}

	f := validateCmd.Flags()
	f.StringVar(&flags.stylesheet, "css", "", "Stylesheet to use instead of the ones linked from the document")
	f.StringVar(&flags.url, "url", "", "Page URL to render (defaults to the document file)")
	f.BoolVar(&flags.staticOnly, "static-only", false, "Run only the static checks; no browser is started")
	f.StringVarP(&flags.format, "format", "f", "", "Report format: json, yaml or sarif (overrides report.format)")
	f.StringVarP(&flags.output, "output", "o", "", "Report path, or '-' for stdout (overrides report.path)")
	f.BoolVar(&flags.noColor, "no-color", false, "Disable colored summary output")
	f.BoolVar(&flags.screenshot, "screenshot", true, "Capture a full-page screenshot when a rendered run fails")

	return validateCmd
}

// applyValidateFlags copies explicitly set flags over the loaded configuration.
func applyValidateFlags(cmd *cobra.Command, cfg config.Interface, flags validateFlags, document string) error {
	cfg.SetValidationConfig(config.ValidationConfig{
		Document:   document,
		Stylesheet: flags.stylesheet,
		URL:        flags.url,
		StaticOnly: flags.staticOnly,
	})
	if cmd.Flags().Changed("format") {
		cfg.SetReportFormat(flags.format)
	}
	if cmd.Flags().Changed("output") {
		cfg.SetReportPath(flags.output)
	}
	if cmd.Flags().Changed("screenshot") {
		cfg.SetReportScreenshot(flags.screenshot)
	}
	if flags.noColor {
		cfg.SetReportColor(false)
	}
	rc := cfg.Report()
	if err := rc.Validate(); err != nil {
		return fmt.Errorf("invalid report flags: %w", err)
	}
	return nil
}

// runValidate contains the core, testable logic of the validate command. It
// returns the exit code for a completed run, or an error when the run was
// aborted before a report existed.
func runValidate(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	summaryOut io.Writer,
	newOpener openerFactory,
	stores storeProvider,
) (int, error) {
	vc := cfg.Validation()
	static, rendered := orchestrator.NewCheckers(cfg.Checks(), logger)

	var opener schemas.PageOpener
	var opts []orchestrator.Option
	if !vc.StaticOnly {
		var closeBrowser func(context.Context) error
		var err error
		opener, closeBrowser, err = newOpener(ctx, logger, cfg.Browser())
		if err != nil {
			return orchestrator.ExitAborted, fmt.Errorf("%w: failed to start browser: %w", orchestrator.ErrAborted, err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(browser.Detach(ctx), browserCloseTimeout)
			defer cancel()
			if err := closeBrowser(closeCtx); err != nil {
				logger.Warn("Failed to close browser cleanly.", zap.Error(err))
			}
		}()
		if cfg.Report().Screenshot {
			opts = append(opts, orchestrator.WithScreenshots(reporting.NewScreenshotStore(cfg.Report().ArtifactDir)))
		}
	}

	orch, err := orchestrator.New(logger, opener, static, rendered, opts...)
	if err != nil {
		return orchestrator.ExitAborted, err
	}

	report, err := orch.Validate(ctx, orchestrator.Target{
		Document:   vc.Document,
		Stylesheet: vc.Stylesheet,
		URL:        vc.URL,
		StaticOnly: vc.StaticOnly,
	})
	if err != nil {
		return orchestrator.ExitAborted, err
	}

	if err := reporting.NewSummary(summaryOut, summaryColor(summaryOut, cfg.Report().Color)).Print(report); err != nil {
		logger.Warn("Failed to print summary.", zap.Error(err))
	}

	if err := writeReport(logger, report, cfg.Report()); err != nil {
		// The report is the durable output; losing it is an abort.
		return orchestrator.ExitAborted, err
	}

	if cfg.Database().URL != "" {
		saveReport(ctx, logger, cfg, stores, report)
	}

	return orchestrator.ExitCode(report, nil), nil
}

// summaryColor enables color only for terminals.
func summaryColor(w io.Writer, requested bool) bool {
	f, ok := w.(*os.File)
	return ok && reporting.ColorEnabled(f, requested)
}

// writeReport persists the report through the configured reporter.
func writeReport(logger *zap.Logger, report *schemas.ValidationReport, rc config.ReportConfig) error {
	reporter, err := reporting.New(rc.Format, rc.Path, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	if err := reporter.Write(report); err != nil {
		_ = reporter.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := reporter.Close(); err != nil {
		return fmt.Errorf("failed to finalize report: %w", err)
	}
	if !reporting.IsStdout(rc.Path) {
		logger.Info("Report written.", zap.String("path", rc.Path), zap.String("format", rc.Format))
	}
	return nil
}

// saveReport records the run in the history database. Failures are logged;
// the file report has already been written.
func saveReport(ctx context.Context, logger *zap.Logger, cfg config.Interface, stores storeProvider, report *schemas.ValidationReport) {
	st, cleanup, err := stores.Create(ctx, cfg)
	if err != nil {
		logger.Warn("Report history unavailable.", zap.Error(err))
		return
	}
	if cleanup != nil {
		defer cleanup()
	}
	if err := st.SaveReport(ctx, report); err != nil {
		logger.Warn("Failed to save report to history.", zap.Error(err))
		return
	}
	logger.Debug("Report saved to history.", zap.String("report_id", report.ID.String()))
}
