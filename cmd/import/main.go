// Command import loads every declared source file and upserts the records
// into PostgreSQL, so later runs can use -from-db.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Simon3728/Data-Analysis-Election/internal/cli"
	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	"github.com/Simon3728/Data-Analysis-Election/internal/store"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

type indicatorSink interface {
	Migrate(ctx context.Context) error
	SaveTables(ctx context.Context, tables []*domain.IndicatorTable) (int, error)
	Close() error
}

var openSink = func(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (indicatorSink, error) {
	return store.Open(ctx, cfg, logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, cli.Options{}); err != nil {
		cli.Failure(os.Stderr, "%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, opts cli.Options) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	opts.RegisterFlags(fs)
	dryRun := fs.Bool("dry-run", false, "load and report the sources without writing")
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

	source, _, err := env.Source(ctx, false)
	if err != nil {
		return err
	}
	tables, err := source.LoadTables(ctx)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	records := 0
	for _, t := range tables {
		records += t.Len()
		fmt.Fprintf(stdout, "  %-28s %6d records  %s\n", t.Name(), t.Len(), t.Source())
	}
	if *dryRun {
		cli.Success(stdout, "%d indicators, %d records loaded (dry run)", len(tables), records)
		return nil
	}

	sink, err := openSink(ctx, env.Config.Database, env.Logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	if err := sink.Migrate(ctx); err != nil {
		return err
	}
	written, err := sink.SaveTables(ctx, tables)
	if err != nil {
		return err
	}

	env.Logger.InfoContext(ctx, "import finished",
		slog.Int("indicators", len(tables)),
		slog.Int("records", written))
	cli.Success(stdout, "%d indicators, %d records imported", len(tables), written)
	return nil
}
