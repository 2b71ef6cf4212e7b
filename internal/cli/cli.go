package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/internal/loader"
	"github.com/Simon3728/Data-Analysis-Election/internal/operations"
	"github.com/Simon3728/Data-Analysis-Election/internal/store"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)

	closeLogFile = infrastructure.CloseLogFile
)

// Options are the flags every command shares.
type Options struct {
	ConfigPath string
	LogLevel   string
	RootDir    string
	// Logger replaces the global logger, mainly for tests.
	Logger *slog.Logger
}

// RegisterFlags adds the shared flags to fs.
func (o *Options) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&o.ConfigPath, "config", "", "path to the YAML config (default: search config.yaml, configs/config.yaml)")
	fs.StringVar(&o.LogLevel, "log-level", "", "override the configured log level")
	fs.StringVar(&o.RootDir, "root", "", "override the root directory for data and reports")
}

// Env holds what a command needs after startup.
type Env struct {
	Config    *config.Config
	Paths     *config.Paths
	Logger    *slog.Logger
	Providers *infrastructure.OTelProviders
	Metrics   *infrastructure.AnalysisMetrics
}

// Setup loads configuration, then initializes logging, paths and telemetry.
func Setup(opts Options) (*Env, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFile(opts.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.RootDir != "" {
		cfg.Paths.RootDir = opts.RootDir
	}

	logger := opts.Logger
	if logger == nil {
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	paths, err := config.GetPaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	metrics, err := infrastructure.CreateAnalysisMetrics(providers.Meter)
	if err != nil {
		logger.Warn("Failed to create metrics, continuing without them", slog.String("error", err.Error()))
		metrics = infrastructure.NoopAnalysisMetrics()
	}

	return &Env{
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		Providers: providers,
		Metrics:   metrics,
	}, nil
}

// Close flushes telemetry and the log file.
func (e *Env) Close(ctx context.Context) {
	if e.Providers != nil {
		if err := e.Providers.Shutdown(ctx); err != nil {
			e.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}
	if err := closeLogFile(); err != nil {
		e.Logger.WarnContext(ctx, "Failed to close log file", slog.String("error", err.Error()))
	}
}

// States returns the configured state universe.
func (e *Env) States() []string {
	if len(e.Config.Verify.States) > 0 {
		return e.Config.Verify.States
	}
	return config.ValidStates
}

// Loader builds a file loader over the configured state universe.
func (e *Env) Loader() *loader.Loader {
	aggregate := e.Config.Verify.Aggregate
	if aggregate == "" {
		aggregate = config.NationalAggregate
	}
	return loader.NewLoader(e.Logger, loader.NewStateNormalizer(e.States(), aggregate), e.Metrics)
}

// Source returns the indicator source: the database when fromDB is set,
// otherwise the declared files. The returned close function is never nil.
func (e *Env) Source(ctx context.Context, fromDB bool) (operations.TableSource, func() error, error) {
	if !fromDB {
		if err := e.Paths.ValidateSourceFiles(e.Config.Sources); err != nil {
			return nil, nil, err
		}
		return operations.FileSource(e.Loader(), e.Paths, e.Config.Sources), func() error { return nil }, nil
	}
	s, err := store.Open(ctx, e.Config.Database, e.Logger)
	if err != nil {
		return nil, nil, err
	}
	return operations.StoreSource(s), s.Close, nil
}

// Success prints a green status line.
func Success(w io.Writer, format string, args ...interface{}) {
	okColor.Fprint(w, "OK ")
	fmt.Fprintf(w, format+"\n", args...)
}

// Warning prints a yellow status line.
func Warning(w io.Writer, format string, args ...interface{}) {
	warnColor.Fprint(w, "WARN ")
	fmt.Fprintf(w, format+"\n", args...)
}

// Failure prints a red status line.
func Failure(w io.Writer, format string, args ...interface{}) {
	errColor.Fprint(w, "FAIL ")
	fmt.Fprintf(w, format+"\n", args...)
}
