// Command report runs a single fetch-and-aggregate pass over the configured
// subject sheets and writes the roster to CSV or XLSX. Useful for one-off
// exports without running the server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/exporter"
	"rollcall/internal/infrastructure"
	"rollcall/internal/sheets"
	"rollcall/pkg/contracts/domain"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		outPath    string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a one-shot attendance roster report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, outPath, format)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration file")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default <export_dir>/attendance.<format>)")
	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv or xlsx")

	return cmd
}

func run(ctx context.Context, configPath, outPath, format string) error {
	if format != "csv" && format != "xlsx" {
		return fmt.Errorf("unsupported format %q (want csv or xlsx)", format)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, logCloser, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer logCloser.Close()
	}
	slog.SetDefault(logger)

	fetcher := sheets.NewFetcher(logger, cfg.Refresh.FetchTimeout)
	fetched, err := fetcher.FetchAll(ctx, cfg.Sheets)
	if err != nil {
		return err
	}

	aggregator := attendance.NewAggregator(logger, attendance.AggregatorConfig{
		Threshold: cfg.Refresh.Threshold,
	})
	snap := aggregator.BuildSnapshot(ctx, fetched)

	if outPath == "" {
		outPath = filepath.Join(cfg.Paths.ExportDir, "attendance."+format)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	switch format {
	case "csv":
		err = exporter.WriteCSV(file, snap)
	case "xlsx":
		err = exporter.WriteExcel(file, snap)
	}
	if err != nil {
		return err
	}

	printSummary(snap)
	logger.Info("report written",
		slog.String("path", outPath),
		slog.Int("student_count", len(snap.Students)))
	return nil
}

func printSummary(snap *domain.Snapshot) {
	s := snap.Summary
	fmt.Printf("Students: %d\n", s.TotalStudents)
	fmt.Printf("Classes held: %d\n", s.TotalClassesHeld)
	fmt.Printf("Average attendance: %s\n", attendance.FormatPercent(s.AverageAttendance))
	fmt.Printf("Today: %d present, %d absent, %d unknown\n",
		s.Today.Present, s.Today.Absent, s.Today.Unknown)
}
