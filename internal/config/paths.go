package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	RootDir    string
	DataDir    string
	ReportsDir string
	RunsDir    string
	PlotsDir   string
	LogsDir    string

	// Well-known report files
	FeatureTableCSV  string
	ExclusionsCSV    string
	VerificationJSON string
}

// GetPaths resolves the configured directories. Relative directories are
// taken from RootDir, which itself defaults to the working directory.
func GetPaths(cfg PathsConfig) (*Paths, error) {
	root := cfg.RootDir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}

	resolve := func(dir, fallback string) string {
		if dir == "" {
			dir = fallback
		}
		if filepath.IsAbs(dir) {
			return filepath.Clean(dir)
		}
		return filepath.Join(root, dir)
	}

	reportsDir := resolve(cfg.ReportsDir, DefaultReportsDir)

	return &Paths{
		RootDir:          root,
		DataDir:          resolve(cfg.DataDir, DefaultDataDir),
		ReportsDir:       reportsDir,
		RunsDir:          filepath.Join(reportsDir, "runs"),
		PlotsDir:         resolve(cfg.PlotsDir, DefaultPlotsDir),
		LogsDir:          resolve(cfg.LogsDir, DefaultLogsDir),
		FeatureTableCSV:  filepath.Join(reportsDir, FeatureTableFile),
		ExclusionsCSV:    filepath.Join(reportsDir, ExclusionsFile),
		VerificationJSON: filepath.Join(reportsDir, VerificationFile),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.ReportsDir,
		p.RunsDir,
		p.PlotsDir,
		p.LogsDir,
	}

	logger := slog.Default()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// DataPath resolves a source path against the data directory.
func (p *Paths) DataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.DataDir, name)
}

// RunDir returns the directory holding one run's artifacts.
func (p *Paths) RunDir(runID string) string {
	return filepath.Join(p.RunsDir, runID)
}

// RunReportPath returns the report.json path of a run.
func (p *Paths) RunReportPath(runID string) string {
	return filepath.Join(p.RunDir(runID), RunReportFile)
}

// RunVerificationPath returns the verification.json path of a run.
func (p *Paths) RunVerificationPath(runID string) string {
	return filepath.Join(p.RunDir(runID), VerificationFile)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved directories at debug level.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Debug("Path resolution summary",
		slog.Group("directories",
			slog.String("root", p.RootDir),
			slog.String("data", p.DataDir),
			slog.String("reports", p.ReportsDir),
			slog.String("runs", p.RunsDir),
			slog.String("plots", p.PlotsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("report_files",
			slog.String("feature_table_csv", p.FeatureTableCSV),
			slog.String("exclusions_csv", p.ExclusionsCSV),
			slog.String("verification_json", p.VerificationJSON),
		))
}

// ValidateSourceFiles checks that every configured source path matches at
// least one file.
func (p *Paths) ValidateSourceFiles(sources []SourceConfig) error {
	var missing []string
	for _, src := range sources {
		matches, err := filepath.Glob(p.DataPath(src.Path))
		if err != nil {
			return fmt.Errorf("invalid source pattern %q: %w", src.Path, err)
		}
		if len(matches) == 0 {
			missing = append(missing, fmt.Sprintf("%s (%s)", src.Name, p.DataPath(src.Path)))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("source files missing: %s", strings.Join(missing, ", "))
	}

	return nil
}
