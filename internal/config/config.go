// =============================================================================
// Statement Normalizer - Configuration Module
// =============================================================================
//
// This module loads the main application configuration and the per-bank
// source profiles.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Source Profiles (profiles/*.yaml): Per-bank parsing hints
//
// Every main config value can be overridden from the environment with a
// NORMALIZER_ prefixed variable (see applyEnvOverrides). A missing main
// config file is not an error: the defaults are enough to run.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS (batch processing)
	// =========================================================================

	// InputDir is scanned for statement files by the process command.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives one normalized result per processed statement.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives statements after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// LogsDir receives the batch summary and per-file error logs.
	// Default: "./logs"
	LogsDir string `yaml:"logs_dir"`

	// ProfilesDir holds the per-bank source profiles.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the log writer: "console" (human readable) or "json".
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the output file name.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {original}  - Input file name without extension
	//   {profile}   - Matched source profile code ("default" if none)
	//
	// The extension is added from OutputType.
	// Default: "{original}_{uuid}"
	OutputNameFormat string `yaml:"output_name_format"`

	// OutputType is "json" or "xlsx".
	// Default: "json"
	OutputType string `yaml:"output_type"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files processed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps the batch going when one file fails.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`

	// Defaults fills canonical fields the statement does not carry.
	Defaults RecordDefaults `yaml:"defaults"`

	// CSV holds the CSV settings used when no profile matches.
	CSV CSVSettings `yaml:"csv"`

	// Rules configures where category rules are persisted.
	Rules RulesConfig `yaml:"rules"`

	// Server configures the HTTP adapter.
	Server ServerConfig `yaml:"server"`
}

// RecordDefaults are the values written into records that lack them.
type RecordDefaults struct {
	// Default: "AED"
	Currency string `yaml:"currency"`
	// Default: "SETTLED"
	Status string `yaml:"status"`
}

// RulesConfig selects the category rule store.
type RulesConfig struct {
	// Backend is "json" (a single JSON document) or "sqlite".
	// Default: "json"
	Backend string `yaml:"backend"`

	// Path is the JSON file or SQLite database path.
	// Default: "categories.json" (json) or "categories.db" (sqlite)
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	// Addr is the listen address. Default: ":8000"
	Addr string `yaml:"addr"`

	// MaxUploadBytes caps the upload size. Default: 10 MiB
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// AllowedOrigins are the CORS origins. Default: http://localhost:3000
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ContinueOnErrorEnabled reports the effective continue_on_error value.
func (c *MainConfig) ContinueOnErrorEnabled() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// =============================================================================
// SOURCE PROFILE STRUCTURE
// =============================================================================

// SourceProfile holds parsing hints for statements from one bank or export.
// A profile applies to an input file when its name matches one of
// FileMatchingPatterns.
type SourceProfile struct {
	// ProfileName is the human-readable name used in logs.
	ProfileName string `yaml:"profile_name"`

	// ProfileCode is a short code, used in output names. Defaults to the
	// profile file name without extension.
	ProfileCode string `yaml:"profile_code"`

	// FileMatchingPatterns are glob patterns matched against the base name.
	// Examples: "enbd_*.csv", "*_statement_*.pdf"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// CSVSettings overrides the main CSV settings for matching files.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// DefaultCurrency overrides Defaults.Currency for matching files.
	DefaultCurrency string `yaml:"default_currency"`

	// ColumnSynonyms adds source column names per canonical field.
	// Keys are canonical fields: date, description, amount, direction,
	// currency, status.
	//
	// Example:
	//   column_synonyms:
	//     description: ["Beneficiary"]
	//     amount: ["Txn Amt"]
	ColumnSynonyms map[string][]string `yaml:"column_synonyms"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV statements.
type CSVSettings struct {
	// Delimiter separates fields. Accepts a single character or one of
	// "tab", "pipe", "semicolon".
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows. Multi-row headers are merged
	// column by column.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the 1-based row where data begins.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row"`

	// Encoding forces a text encoding ("utf-8", "latin-1", "windows-1252").
	// "auto" tries them in that order.
	// Default: "auto"
	Encoding string `yaml:"encoding"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	config := &MainConfig{}
	applyMainConfigDefaults(config)
	return config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - The configuration with defaults and environment overrides applied.
//   - An error if the file exists but cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Run on defaults.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&config); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.LogsDir == "" {
		config.LogsDir = "./logs"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./profiles"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{original}_{uuid}"
	}
	if config.OutputType == "" {
		config.OutputType = "json"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Defaults.Currency == "" {
		config.Defaults.Currency = "AED"
	}
	if config.Defaults.Status == "" {
		config.Defaults.Status = "SETTLED"
	}
	applyCSVDefaults(&config.CSV)
	if config.Rules.Backend == "" {
		config.Rules.Backend = "json"
	}
	if config.Rules.Path == "" {
		if config.Rules.Backend == "sqlite" {
			config.Rules.Path = "categories.db"
		} else {
			config.Rules.Path = "categories.json"
		}
	}
	if config.Server.Addr == "" {
		config.Server.Addr = ":8000"
	}
	if config.Server.MaxUploadBytes <= 0 {
		config.Server.MaxUploadBytes = 10 * 1024 * 1024
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
}

func applyCSVDefaults(settings *CSVSettings) {
	if settings.Delimiter == "" {
		settings.Delimiter = ","
	}
	if settings.HeaderRows <= 0 {
		settings.HeaderRows = 1
	}
	if settings.DataStartRow <= 0 {
		settings.DataStartRow = settings.HeaderRows + 1
	}
	if settings.Encoding == "" {
		settings.Encoding = "auto"
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch config.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", config.LogLevel)
	}
	switch config.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", config.LogFormat)
	}
	switch config.OutputType {
	case "json", "xlsx":
	default:
		return fmt.Errorf("output_type must be json or xlsx, got %q", config.OutputType)
	}
	switch config.Rules.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("rules.backend must be json or sqlite, got %q", config.Rules.Backend)
	}
	if config.CSV.DataStartRow <= config.CSV.HeaderRows {
		return fmt.Errorf("csv.data_start_row (%d) must come after the header rows (%d)",
			config.CSV.DataStartRow, config.CSV.HeaderRows)
	}
	return nil
}

// applyEnvOverrides reads NORMALIZER_* variables into the configuration.
func applyEnvOverrides(config *MainConfig) error {
	stringVars := map[string]*string{
		"NORMALIZER_INPUT_DIR":     &config.InputDir,
		"NORMALIZER_OUTPUT_DIR":    &config.OutputDir,
		"NORMALIZER_LOG_LEVEL":     &config.LogLevel,
		"NORMALIZER_LOG_FORMAT":    &config.LogFormat,
		"NORMALIZER_OUTPUT_TYPE":   &config.OutputType,
		"NORMALIZER_RULES_BACKEND": &config.Rules.Backend,
		"NORMALIZER_RULES_PATH":    &config.Rules.Path,
		"NORMALIZER_ADDR":          &config.Server.Addr,
	}
	for key, target := range stringVars {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*target = v
		}
	}

	if v := strings.TrimSpace(os.Getenv("NORMALIZER_MAX_UPLOAD_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("NORMALIZER_MAX_UPLOAD_BYTES: %w", err)
		}
		config.Server.MaxUploadBytes = n
	}
	if v := strings.TrimSpace(os.Getenv("NORMALIZER_ALLOWED_ORIGINS")); v != "" {
		config.Server.AllowedOrigins = strings.Split(v, ",")
	}
	return nil
}

// EnsureDirectories creates the batch-processing directories.
func EnsureDirectories(config *MainConfig) error {
	dirs := []string{
		config.InputDir,
		config.OutputDir,
		config.InputArchiveDir,
		config.LogsDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// SOURCE PROFILES
// =============================================================================

// LoadProfiles loads every source profile in a directory, sorted by code.
// A missing directory yields no profiles.
func LoadProfiles(profilesDir string) ([]*SourceProfile, error) {
	if _, err := os.Stat(profilesDir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)

	profiles := make([]*SourceProfile, 0, len(files))
	for _, file := range files {
		profile, err := loadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		profiles = append(profiles, profile)
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].ProfileCode < profiles[j].ProfileCode
	})
	return profiles, nil
}

func loadProfile(filePath string) (*SourceProfile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile SourceProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	if profile.ProfileCode == "" {
		base := filepath.Base(filePath)
		profile.ProfileCode = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if profile.ProfileName == "" {
		profile.ProfileName = profile.ProfileCode
	}
	applyCSVDefaults(&profile.CSVSettings)

	return &profile, nil
}

// FindProfile returns the first profile whose patterns match the file's base
// name, or nil.
func FindProfile(profiles []*SourceProfile, fileName string) *SourceProfile {
	base := filepath.Base(fileName)
	for _, profile := range profiles {
		for _, pattern := range profile.FileMatchingPatterns {
			if matched, _ := filepath.Match(pattern, base); matched {
				return profile
			}
		}
	}
	return nil
}
