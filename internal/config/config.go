package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment override, e.g. ELECTION_ANALYSIS_FOLDS.
const EnvPrefix = "ELECTION"

// Config represents the complete application configuration
type Config struct {
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Features  FeaturesConfig  `yaml:"features" ignored:"true"`
	Verify    VerifyConfig    `yaml:"verify" ignored:"true"`
	Sources   []SourceConfig  `yaml:"sources" ignored:"true" validate:"dive"`
	Plots     PlotsConfig     `yaml:"plots" envconfig:"PLOTS"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// AnalysisConfig drives feature selection and model evaluation
type AnalysisConfig struct {
	Label          string       `yaml:"label" envconfig:"LABEL" validate:"required"`
	Task           string       `yaml:"task" envconfig:"TASK" validate:"oneof=regression classification"`
	ClassThreshold float64      `yaml:"class_threshold" envconfig:"CLASS_THRESHOLD"`
	Candidates     []string     `yaml:"candidates" envconfig:"CANDIDATES" validate:"required,min=1,dive,required"`
	Years          []int        `yaml:"years" envconfig:"YEARS"`
	Folds          int          `yaml:"folds" envconfig:"FOLDS" validate:"min=2"`
	Shuffle        bool         `yaml:"shuffle" envconfig:"SHUFFLE"`
	Seed           int64        `yaml:"seed" envconfig:"SEED"`
	TestFraction   float64      `yaml:"test_fraction" envconfig:"TEST_FRACTION" validate:"gt=0,lt=1"`
	Tolerance      float64      `yaml:"tolerance" envconfig:"TOLERANCE" validate:"gte=0"`
	MaxFeatures    int          `yaml:"max_features" envconfig:"MAX_FEATURES" validate:"gte=0"`
	OnDegenerate   string       `yaml:"on_degenerate" envconfig:"ON_DEGENERATE" validate:"oneof=skip fail"`
	MissingValues  string       `yaml:"missing_values" envconfig:"MISSING_VALUES" validate:"oneof=exclude impute_mean"`
	RequireFull    bool         `yaml:"require_full_coverage" envconfig:"REQUIRE_FULL_COVERAGE"`
	Standardize    bool         `yaml:"standardize" envconfig:"STANDARDIZE"`
	Models         ModelsConfig `yaml:"models" envconfig:"MODELS"`
}

// ModelsConfig lists the model families to run and their grids
type ModelsConfig struct {
	Families []string  `yaml:"families" envconfig:"FAMILIES" validate:"required,min=1,dive,oneof=knn linear polynomial"`
	K        GridRange `yaml:"k" envconfig:"K"`
	Degree   GridRange `yaml:"degree" envconfig:"DEGREE"`
}

// GridRange is either an explicit value list or an inclusive from/to/step range.
type GridRange struct {
	Values []int `yaml:"values" envconfig:"VALUES" validate:"dive,min=1"`
	From   int   `yaml:"from" envconfig:"FROM" validate:"gte=0"`
	To     int   `yaml:"to" envconfig:"TO" validate:"gte=0"`
	Step   int   `yaml:"step" envconfig:"STEP" validate:"gte=0"`
}

// Expand returns the grid points in order.
func (g GridRange) Expand() []int {
	if len(g.Values) > 0 {
		return append([]int(nil), g.Values...)
	}
	step := g.Step
	if step <= 0 {
		step = 1
	}
	var out []int
	for v := g.From; v <= g.To; v += step {
		out = append(out, v)
	}
	return out
}

// PlotsConfig controls chart output
type PlotsConfig struct {
	Enabled     bool     `yaml:"enabled" envconfig:"ENABLED"`
	Width       float64  `yaml:"width_cm" envconfig:"WIDTH_CM" validate:"gte=0"`
	Height      float64  `yaml:"height_cm" envconfig:"HEIGHT_CM" validate:"gte=0"`
	DPI         int      `yaml:"dpi" envconfig:"DPI" validate:"gte=0"`
	FrameDelay  int      `yaml:"frame_delay_cs" envconfig:"FRAME_DELAY_CS" validate:"gte=0"`
	TrendStates []string `yaml:"trend_states" envconfig:"TREND_STATES"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	URL      string `yaml:"url" envconfig:"URL"`
	Host     string `yaml:"host" envconfig:"HOST"`
	Port     int    `yaml:"port" envconfig:"PORT" validate:"gte=0,lte=65535"`
	User     string `yaml:"user" envconfig:"USER"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	Name     string `yaml:"name" envconfig:"NAME"`
	SSLMode  string `yaml:"sslmode" envconfig:"SSLMODE"`
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	RootDir    string `yaml:"root_dir" envconfig:"ROOT_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	PlotsDir   string `yaml:"plots_dir" envconfig:"PLOTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// TelemetryConfig controls OpenTelemetry exporters
type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceToStdout  bool   `yaml:"trace_to_stdout" envconfig:"TRACE_TO_STDOUT"`
	PrometheusPath string `yaml:"prometheus_path" envconfig:"PROMETHEUS_PATH"`
}

// Load loads configuration from the first config file found in the usual
// locations, then applies .env and environment overrides.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile loads configuration in three layers: defaults, the YAML file at
// path (skipped when empty), then ELECTION_* environment variables. A .env
// file in the working directory is read first so database credentials can
// live outside the YAML.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, src := range c.Sources {
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = true
	}

	for _, fam := range c.Analysis.Models.Families {
		switch fam {
		case "knn":
			if len(c.Analysis.Models.K.Expand()) == 0 {
				return fmt.Errorf("knn grid is empty")
			}
			for _, k := range c.Analysis.Models.K.Expand() {
				if k < 1 {
					return fmt.Errorf("knn grid value %d must be positive", k)
				}
			}
		case "polynomial":
			if len(c.Analysis.Models.Degree.Expand()) == 0 {
				return fmt.Errorf("polynomial degree grid is empty")
			}
			for _, d := range c.Analysis.Models.Degree.Expand() {
				if d < 1 {
					return fmt.Errorf("polynomial degree %d must be positive", d)
				}
			}
		}
	}

	if c.Analysis.MaxFeatures > len(c.Analysis.Candidates) {
		return fmt.Errorf("max_features %d exceeds candidate count %d", c.Analysis.MaxFeatures, len(c.Analysis.Candidates))
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging output %q requires file_path", c.Logging.Output)
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}

	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
		"../../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use defaults and env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Label:          DefaultLabel,
			Task:           "regression",
			ClassThreshold: 50,
			Candidates:     append([]string(nil), DefaultCandidates...),
			Years:          append([]int(nil), ElectionYears...),
			Folds:          DefaultFolds,
			Seed:           DefaultSeed,
			TestFraction:   DefaultTestFraction,
			Tolerance:      DefaultTolerance,
			OnDegenerate:   "skip",
			MissingValues:  "exclude",
			Standardize:    true,
			Models: ModelsConfig{
				Families: []string{"knn", "linear", "polynomial"},
				K:        GridRange{From: 7, To: 79, Step: 1},
				Degree:   GridRange{From: 1, To: 5, Step: 1},
			},
		},
		Verify: VerifyConfig{
			States:    append([]string(nil), ValidStates...),
			Aggregate: NationalAggregate,
		},
		Plots: PlotsConfig{
			Enabled:     true,
			Width:       24,
			Height:      16,
			DPI:         96,
			FrameDelay:  100,
			TrendStates: []string{"California", "Texas", "Florida", "New York", "Ohio"},
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "election",
			SSLMode: "disable",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/analysis.log",
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			ReportsDir: DefaultReportsDir,
			PlotsDir:   DefaultPlotsDir,
			LogsDir:    DefaultLogsDir,
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			ServiceName:    AppName,
			PrometheusPath: "/metrics",
		},
	}
}
