// Command report-server serves finished analysis runs over HTTP.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Simon3728/Data-Analysis-Election/internal/app"
	"github.com/Simon3728/Data-Analysis-Election/internal/cli"
	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts"
)

func main() {
	var opts cli.Options
	opts.RegisterFlags(flag.CommandLine)
	port := flag.Int("port", 0, "override the configured server port")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println(contracts.GetFullVersionString("report-server"))
		return
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		cli.Failure(os.Stderr, "%v", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		cli.Failure(os.Stderr, "failed to initialize logger: %v", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		logger.Error("Failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		logger.Error("Report server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func loadConfig(opts cli.Options) (*config.Config, error) {
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
	return cfg, nil
}
