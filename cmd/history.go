// File: cmd/history.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/config"
	"github.com/xkilldash9x/uiconform/internal/observability"
	"github.com/xkilldash9x/uiconform/internal/reporting"
	"github.com/xkilldash9x/uiconform/internal/store"
)

// reportStore is the subset of the store used by the commands.
type reportStore interface {
	SaveReport(ctx context.Context, report *schemas.ValidationReport) error
	ListReports(ctx context.Context, limit int) ([]store.ReportSummary, error)
	GetReport(ctx context.Context, id uuid.UUID) (*schemas.ValidationReport, error)
}

// storeProvider defines an interface for components that can create a report
// store. Tests inject a fake instead of a live database connection.
type storeProvider interface {
	// Create initializes and returns a store, a cleanup function to release
	// resources, and an error if the creation fails.
	Create(ctx context.Context, cfg config.Interface) (reportStore, func(), error)
}

// defaultStoreProvider connects to PostgreSQL through a pgx pool.
type defaultStoreProvider struct{}

// NewStoreProvider is a factory function that creates a new defaultStoreProvider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

// Create connects to the database, makes sure the report tables exist and
// returns the store with a cleanup function that closes the pool.
func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (reportStore, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database().URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (UICONFORM_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database().URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storeService, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
	}
	if err := storeService.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return storeService, cleanup, nil
}

// newHistoryCmd creates and configures the `history` command.
func newHistoryCmd(provider storeProvider) *cobra.Command {
	var limit int
	var format string
	var noColor bool

	historyCmd := &cobra.Command{
		Use:   "history [report-id]",
		Short: "Lists past validation runs, or shows one run in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			st, cleanup, err := provider.Create(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize store: %w", err)
			}
			if cleanup != nil {
				defer cleanup()
			}

			if len(args) == 0 {
				return runHistoryList(ctx, cmd.OutOrStdout(), st, limit)
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid report id %q: %w", args[0], err)
			}
			useColor := cfg.Report().Color && !noColor
			return runHistoryShow(ctx, logger, cmd.OutOrStdout(), st, id, format, useColor)
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	historyCmd.Flags().StringVarP(&format, "format", "f", "", "Also print the stored report as json, yaml or sarif")
	historyCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return historyCmd
}

func runHistoryList(ctx context.Context, out io.Writer, st reportStore, limit int) error {
	reports, err := st.ListReports(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}
	if len(reports) == 0 {
		_, err := fmt.Fprintln(out, "No validation runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tMODE\tRESULT\tERRORS\tTARGET")
	for _, r := range reports {
		result := "FAIL"
		if r.OverallPass {
			result = "PASS"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.StartedAt.UTC().Format(time.RFC3339), r.Mode, result, r.ErrorCount, r.Target)
	}
	return tw.Flush()
}

func runHistoryShow(ctx context.Context, logger *zap.Logger, out io.Writer, st reportStore, id uuid.UUID, format string, useColor bool) error {
	report, err := st.GetReport(ctx, id)
	if err != nil {
		return err
	}
	if err := reporting.NewSummary(out, summaryColor(out, useColor)).Print(report); err != nil {
		return err
	}
	if format == "" {
		return nil
	}

	reporter, err := reporting.New(format, "stdout", Version)
	if err != nil {
		return err
	}
	if err := reporter.Write(report); err != nil {
		_ = reporter.Close()
		return err
	}
	logger.Debug("Printed stored report.", zap.String("report_id", id.String()), zap.String("format", format))
	return reporter.Close()
}
