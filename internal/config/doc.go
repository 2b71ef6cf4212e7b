// Package config provides centralized configuration management for the
// election analysis tools. It handles loading configuration from multiple
// sources, validation, and path resolution.
//
// # Configuration Sources
//
// Configuration is layered, later layers winning:
//
//	1. Default values (Default())
//	2. The YAML file (configs/config.yaml, or ELECTION_CONFIG)
//	3. A .env file in the working directory
//	4. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern ELECTION_* for namespacing:
//
//	ELECTION_ANALYSIS_FOLDS=10
//	ELECTION_ANALYSIS_CANDIDATES=gdp_per_capita,unemployment_rate
//	ELECTION_ANALYSIS_MODELS_K_VALUES=1,3,5
//	ELECTION_DATABASE_URL=postgres://...
//	ELECTION_LOGGING_LEVEL=debug
//
// Source schemas, derivations, alignment and verification rules are only
// read from YAML.
//
// # Path Management
//
// Paths resolves the data, report, plot and log directories against the
// configured root directory:
//
//	paths, err := config.GetPaths(cfg.Paths)
//	runReport := paths.RunReportPath(runID)
//
// # Testing
//
// Tests build a configuration with Default() and adjust the fields they
// care about; no environment or files are required.
package config
