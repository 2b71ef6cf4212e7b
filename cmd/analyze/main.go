// Command analyze runs the full pipeline: load, verify, build the feature
// table, select features per model family, evaluate and plot.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Simon3728/Data-Analysis-Election/internal/cli"
	"github.com/Simon3728/Data-Analysis-Election/internal/exporter"
	"github.com/Simon3728/Data-Analysis-Election/internal/operations"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts"
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
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	opts.RegisterFlags(fs)
	fromDB := fs.Bool("from-db", false, "read indicators from PostgreSQL instead of the source files")
	noPlots := fs.Bool("no-plots", false, "skip chart rendering")
	label := fs.String("label", "", "override the label indicator")
	families := fs.String("families", "", "comma separated model families (knn,linear,polynomial)")
	requireFull := fs.Bool("require-full-coverage", false, "fail the run on any coverage gap")
	version := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString("analyze"))
		return nil
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

	if *label != "" {
		env.Config.Analysis.Label = *label
	}
	if *families != "" {
		env.Config.Analysis.Models.Families = strings.Split(*families, ",")
	}
	if *requireFull {
		env.Config.Analysis.RequireFull = true
	}
	if err := env.Config.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	source, closeSource, err := env.Source(ctx, *fromDB)
	if err != nil {
		return err
	}
	defer closeSource()

	manager := operations.NewAnalysisManager(env.Config, env.Paths, source,
		operations.PipelineOptions{SkipPlots: *noPlots}, env.Logger, env.Providers, env.Metrics)

	_, report, runErr := manager.Execute(ctx)
	if report != nil {
		exporter.PrintRunReport(stdout, report)
		fmt.Fprintln(stdout)
		dir := env.Paths.RunDir(report.ID)
		if runErr != nil {
			cli.Failure(stdout, "run %s failed, report in %s", report.ID, dir)
		} else {
			cli.Success(stdout, "run %s completed, %d artifacts in %s", report.ID, len(report.Artifacts), dir)
		}
	}
	return runErr
}
