// Command plot draws indicator charts from the source data: ranked bars for
// one year, an animated GIF across the analysis years, a trend line for the
// configured states and the two-party margin.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gonum.org/v1/plot"

	"github.com/Simon3728/Data-Analysis-Election/internal/cli"
	"github.com/Simon3728/Data-Analysis-Election/internal/features"
	"github.com/Simon3728/Data-Analysis-Election/internal/plotting"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, cli.Options{}); err != nil {
		cli.Failure(os.Stderr, "%v", err)
		os.Exit(1)
	}
}

type chartSet struct {
	renderer *plotting.Renderer
	dir      string
	written  []string
}

func (c *chartSet) png(name string, build func() (*plot.Plot, error)) error {
	p, err := build()
	if errors.Is(err, plotting.ErrNoData) {
		return nil
	}
	if err != nil {
		return err
	}
	path := filepath.Join(c.dir, name)
	if err := c.renderer.SavePNG(p, path); err != nil {
		return err
	}
	c.written = append(c.written, path)
	return nil
}

func run(ctx context.Context, args []string, stdout io.Writer, opts cli.Options) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	opts.RegisterFlags(fs)
	fromDB := fs.Bool("from-db", false, "read indicators from PostgreSQL")
	indicators := fs.String("indicators", "", "comma separated indicators to draw (default: the label)")
	year := fs.Int("year", 0, "year of the bar chart (default: last analysis year)")
	margin := fs.Bool("margin", true, "draw the two-party margin when both vote shares exist")
	outDir := fs.String("out", "", "output directory (default: reports/plots)")
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

	raw, err := source.LoadTables(ctx)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	all, err := features.Derive(raw, env.Config.Features.Derived)
	if err != nil {
		return fmt.Errorf("derive: %w", err)
	}
	byName := make(map[string]*domain.IndicatorTable, len(all))
	for _, t := range all {
		byName[t.Name()] = t
	}

	names := []string{env.Config.Analysis.Label}
	if *indicators != "" {
		names = strings.Split(*indicators, ",")
	}
	years := env.Config.Analysis.Years
	if *year == 0 && len(years) > 0 {
		*year = years[len(years)-1]
	}

	charts := &chartSet{renderer: plotting.NewRenderer(env.Config.Plots, env.Logger), dir: *outDir}
	if charts.dir == "" {
		charts.dir = env.Paths.PlotsDir
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, ok := byName[strings.TrimSpace(name)]
		if !ok {
			return fmt.Errorf("indicator %q not loaded", name)
		}
		if err := charts.png(fmt.Sprintf("%s_%d.png", t.Name(), *year), func() (*plot.Plot, error) {
			return plotting.IndicatorBars(t, *year, nil, 0)
		}); err != nil {
			return err
		}
		if len(env.Config.Plots.TrendStates) > 0 {
			if err := charts.png(t.Name()+"_trend.png", func() (*plot.Plot, error) {
				return plotting.Trend(t, env.Config.Plots.TrendStates)
			}); err != nil {
				return err
			}
		}
		frames, err := plotting.AnimatedBars(t, years, nil)
		switch {
		case err == nil:
			path := filepath.Join(charts.dir, t.Name()+"_animation.gif")
			if err := charts.renderer.SaveGIF(frames, path); err != nil {
				return err
			}
			charts.written = append(charts.written, path)
		case !errors.Is(err, plotting.ErrNoData):
			return err
		}
	}

	rep, okRep := byName["republican_percent"]
	dem, okDem := byName["democratic_percent"]
	if *margin && okRep && okDem {
		if err := charts.png(fmt.Sprintf("margin_%d.png", *year), func() (*plot.Plot, error) {
			return plotting.Margin(rep, dem, *year, nil)
		}); err != nil {
			return err
		}
	}

	for _, path := range charts.written {
		fmt.Fprintf(stdout, "  %s\n", path)
	}
	if len(charts.written) == 0 {
		cli.Warning(stdout, "no charts written, no data for the requested indicators")
		return nil
	}
	cli.Success(stdout, "%d charts written to %s", len(charts.written), charts.dir)
	return nil
}
