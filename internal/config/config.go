package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"claimsledger/internal/identifier"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "CLAIMS"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Collector CollectorConfig `yaml:"collector" envconfig:"COLLECTOR"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig points at the run's working directory.
type PathsConfig struct {
	Root string `yaml:"root" envconfig:"ROOT"`
}

// PipelineConfig carries the vocabulary and thresholds every stage receives.
type PipelineConfig struct {
	ChunkSize           int                 `yaml:"chunk_size" envconfig:"CHUNK_SIZE"`
	TotalAccount        string              `yaml:"total_account" envconfig:"TOTAL_ACCOUNT"`
	AccountPrefixes     []string            `yaml:"account_prefixes" envconfig:"ACCOUNT_PREFIXES"`
	IncludeTerms        []string            `yaml:"include_terms" envconfig:"INCLUDE_TERMS"`
	ExcludeTerms        []string            `yaml:"exclude_terms" envconfig:"EXCLUDE_TERMS"`
	FallbackTextColumns int                 `yaml:"fallback_text_columns" envconfig:"FALLBACK_TEXT_COLUMNS"`
	Synonyms            map[string][]string `yaml:"synonyms" ignored:"true"`
	Caps                ReportCaps          `yaml:"caps" envconfig:"CAPS"`
	StrictJoin          bool                `yaml:"strict_join" envconfig:"STRICT_JOIN"`
	StrictValidation    bool                `yaml:"strict_validation" envconfig:"STRICT_VALIDATION"`
	GroupBy             string              `yaml:"group_by" envconfig:"GROUP_BY"`
	ChecksumWeights     ChecksumWeights     `yaml:"checksum_weights" envconfig:"CHECKSUM_WEIGHTS"`
}

// ChecksumWeights are the weight vectors of the two identifier check digits.
type ChecksumWeights struct {
	First  []int `yaml:"first" envconfig:"FIRST"`
	Second []int `yaml:"second" envconfig:"SECOND"`
}

// Checksum returns the weights as an identifier checksum.
func (w ChecksumWeights) Checksum() identifier.Checksum {
	return identifier.Checksum{First: w.First, Second: w.Second}
}

// ReportCaps bounds how many entries of each diagnostic kind are reported.
type ReportCaps struct {
	InvalidAmount     int `yaml:"invalid_amount" envconfig:"INVALID_AMOUNT"`
	RegistryMiss      int `yaml:"registry_miss" envconfig:"REGISTRY_MISS"`
	NonPositiveAmount int `yaml:"non_positive_amount" envconfig:"NON_POSITIVE_AMOUNT"`
	AmbiguousName     int `yaml:"ambiguous_name" envconfig:"AMBIGUOUS_NAME"`
	NameSample        int `yaml:"name_sample" envconfig:"NAME_SAMPLE"`
	RawSample         int `yaml:"raw_sample" envconfig:"RAW_SAMPLE"`
	HeaderPreview     int `yaml:"header_preview" envconfig:"HEADER_PREVIEW"`
}

// CollectorConfig controls discovery and download of source archives.
type CollectorConfig struct {
	BaseURL         string        `yaml:"base_url" envconfig:"BASE_URL"`
	RegistryDirURL  string        `yaml:"registry_dir_url" envconfig:"REGISTRY_DIR_URL"`
	Periods         int           `yaml:"periods" envconfig:"PERIODS"`
	MaxAttempts     int           `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS"`
	InitialInterval time.Duration `yaml:"initial_interval" envconfig:"INITIAL_INTERVAL"`
	MaxInterval     time.Duration `yaml:"max_interval" envconfig:"MAX_INTERVAL"`
	Concurrency     int           `yaml:"concurrency" envconfig:"CONCURRENCY"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	UserAgent       string        `yaml:"user_agent" envconfig:"USER_AGENT"`
}

// DatabaseConfig contains the Postgres connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" envconfig:"DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME"`
}

// TelemetryConfig contains tracing and metrics settings.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TracesExporter string `yaml:"traces_exporter" envconfig:"TRACES_EXPORTER"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// Load builds the configuration from defaults, an optional YAML file and
// CLAIMS_* environment variables, in increasing order of precedence.
// An empty path searches the usual locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration and fills derived defaults
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	if c.Pipeline.ChunkSize <= 0 {
		return fmt.Errorf("pipeline chunk size must be positive, got %d", c.Pipeline.ChunkSize)
	}
	if strings.TrimSpace(c.Pipeline.TotalAccount) == "" {
		return fmt.Errorf("pipeline total account must not be empty")
	}
	if len(c.Pipeline.IncludeTerms) == 0 {
		return fmt.Errorf("at least one include term must be specified")
	}
	switch c.Pipeline.GroupBy {
	case GroupByLegalNameRegion, GroupByIdentifier:
	default:
		return fmt.Errorf("invalid pipeline group_by %q", c.Pipeline.GroupBy)
	}
	if n := len(c.Pipeline.ChecksumWeights.First); n != identifier.Length-2 {
		return fmt.Errorf("first checksum weight vector needs %d weights, got %d", identifier.Length-2, n)
	}
	if n := len(c.Pipeline.ChecksumWeights.Second); n != identifier.Length-1 {
		return fmt.Errorf("second checksum weight vector needs %d weights, got %d", identifier.Length-1, n)
	}
	for role, names := range c.Pipeline.Synonyms {
		if len(names) == 0 {
			return fmt.Errorf("synonym list for role %q is empty", role)
		}
	}

	if c.Collector.Periods <= 0 {
		return fmt.Errorf("collector periods must be positive")
	}
	if c.Collector.MaxAttempts <= 0 {
		return fmt.Errorf("collector max attempts must be positive")
	}
	if c.Collector.Concurrency <= 0 {
		c.Collector.Concurrency = 1
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	if c.Paths.Root == "" {
		c.Paths.Root = "."
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Grouping keys accepted by PipelineConfig.GroupBy.
const (
	GroupByLegalNameRegion = "legal_name_region"
	GroupByIdentifier      = "identifier"
)

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  30 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
			EnableCORS:     true,
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
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			Root: ".",
		},
		Pipeline: PipelineConfig{
			ChunkSize:           200000,
			TotalAccount:        "41",
			AccountPrefixes:     []string{"4", "7"},
			IncludeTerms:        []string{"EVENTO", "SINISTRO"},
			ExcludeTerms:        []string{"RECEITA"},
			FallbackTextColumns: 8,
			Caps: ReportCaps{
				InvalidAmount:     20,
				RegistryMiss:      50,
				NonPositiveAmount: 50,
				AmbiguousName:     200,
				NameSample:        6,
				RawSample:         3,
				HeaderPreview:     60,
			},
			GroupBy: GroupByLegalNameRegion,
			ChecksumWeights: ChecksumWeights{
				First:  slices.Clone(identifier.Default.First),
				Second: slices.Clone(identifier.Default.Second),
			},
		},
		Collector: CollectorConfig{
			BaseURL:         "https://dadosabertos.ans.gov.br/FTP/PDA/demonstracoes_contabeis/",
			RegistryDirURL:  "https://dadosabertos.ans.gov.br/FTP/PDA/operadoras_de_plano_de_saude_ativas/",
			Periods:         3,
			MaxAttempts:     5,
			InitialInterval: 2 * time.Second,
			MaxInterval:     20 * time.Second,
			Concurrency:     3,
			Timeout:         2 * time.Minute,
			UserAgent:       "claimsledger-collector/1.0",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "claimsledger",
			TracesExporter: "none",
			MetricsEnabled: true,
		},
	}
}
