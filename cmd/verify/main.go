// Command verify checks coverage and value rules of the source data without
// running an analysis. The report goes to reports/verification.json.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Simon3728/Data-Analysis-Election/internal/cli"
	"github.com/Simon3728/Data-Analysis-Election/internal/exporter"
	"github.com/Simon3728/Data-Analysis-Election/internal/verify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, cli.Options{}); err != nil {
		cli.Failure(os.Stderr, "%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, opts cli.Options) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	opts.RegisterFlags(fs)
	fromDB := fs.Bool("from-db", false, "verify the indicators stored in PostgreSQL")
	strict := fs.Bool("strict", false, "exit non-zero on any coverage gap")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := cli.Setup(opts)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		env.Close(shutdownCtx)
	}()

	source, closeSource, err := env.Source(ctx, *fromDB)
	if err != nil {
		return err
	}
	defer closeSource()

	tables, err := source.LoadTables(ctx)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	report, err := verify.NewVerifier(env.Config.Verify, env.Logger, env.Metrics).Verify(ctx, tables)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	path, err := exporter.NewReportExporter(env.Paths, env.Logger).ExportVerification("", report)
	if err != nil {
		return err
	}

	exporter.PrintVerification(stdout, report)
	fmt.Fprintln(stdout)
	if report.HasGaps() || len(report.Findings) > 0 {
		cli.Warning(stdout, "%d gaps, %d findings, report in %s", len(report.Gaps), len(report.Findings), path)
	} else {
		cli.Success(stdout, "%d indicators verified, report in %s", len(tables), path)
	}

	if *strict || env.Config.Analysis.RequireFull {
		return verify.RequireCoverage(report)
	}
	return nil
}
