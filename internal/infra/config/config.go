package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// VivadoConfig holds settings for the managed Vivado process.
type VivadoConfig struct {
	Path           string        `yaml:"path"`            // vivado executable (default: "vivado" from PATH)
	DefaultTimeout time.Duration `yaml:"default_timeout"` // per-command budget (default: 5m)
	StartupTimeout time.Duration `yaml:"startup_timeout"` // banner wait on start (default: 2m)
	HealthTimeout  time.Duration `yaml:"health_timeout"`  // marker-echo health probe (default: 5s)
	StopTimeout    time.Duration `yaml:"stop_timeout"`    // graceful exit wait (default: 30s)
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// TracerConfig holds OpenTelemetry tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// ReportsConfig holds settings for full-report file management.
type ReportsConfig struct {
	Dir            string        `yaml:"dir"`              // cache directory (default: /tmp/vivado_mcp)
	CacheTTL       time.Duration `yaml:"cache_ttl"`        // stale-file cleanup age (default: 1h)
	MaxInlineChars int           `yaml:"max_inline_chars"` // inline response cap (default: 8000)
}

// FeaturesConfig holds settings for the feature-request store.
type FeaturesConfig struct {
	File string `yaml:"file"` // JSON file path (default: data/feature_requests.json)
}

// Config is the top-level application configuration.
type Config struct {
	Vivado   VivadoConfig   `yaml:"vivado"`
	Logger   LoggerConfig   `yaml:"logger"`
	Tracer   TracerConfig   `yaml:"tracer"`
	Reports  ReportsConfig  `yaml:"reports"`
	Features FeaturesConfig `yaml:"features"`
}

// Defaults returns a Config populated with defaults that work without a file.
func Defaults() *Config {
	return &Config{
		Vivado: VivadoConfig{
			Path:           "vivado",
			DefaultTimeout: 5 * time.Minute,
			StartupTimeout: 2 * time.Minute,
			HealthTimeout:  5 * time.Second,
			StopTimeout:    30 * time.Second,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Reports: ReportsConfig{
			Dir:            "/tmp/vivado_mcp",
			CacheTTL:       time.Hour,
			MaxInlineChars: 8000,
		},
		Features: FeaturesConfig{
			File: "data/feature_requests.json",
		},
	}
}

// Load reads a YAML config file and applies env var overrides. A missing file
// is not an error; defaults plus env overrides are used instead.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps VIVADO_MCP_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VIVADO_MCP_VIVADO_PATH"); v != "" {
		cfg.Vivado.Path = v
	}
	if v := os.Getenv("VIVADO_MCP_DEFAULT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Vivado.DefaultTimeout = d
		}
	}
	if v := os.Getenv("VIVADO_MCP_STARTUP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Vivado.StartupTimeout = d
		}
	}
	if v := os.Getenv("VIVADO_MCP_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("VIVADO_MCP_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("VIVADO_MCP_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("VIVADO_MCP_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("VIVADO_MCP_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("VIVADO_MCP_REPORTS_DIR"); v != "" {
		cfg.Reports.Dir = v
	}
	if v := os.Getenv("VIVADO_MCP_REPORTS_MAX_INLINE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Reports.MaxInlineChars = n
		}
	}
	if v := os.Getenv("VIVADO_MCP_FEATURES_FILE"); v != "" {
		cfg.Features.File = v
	}
}

// Validate checks config invariants that would otherwise surface as confusing
// runtime failures.
func Validate(cfg *Config) error {
	if cfg.Vivado.Path == "" {
		return fmt.Errorf("vivado.path must not be empty")
	}
	if cfg.Vivado.DefaultTimeout <= 0 {
		return fmt.Errorf("vivado.default_timeout must be positive")
	}
	if cfg.Vivado.StartupTimeout <= 0 {
		return fmt.Errorf("vivado.startup_timeout must be positive")
	}
	switch cfg.Logger.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logger.format must be text or json, got %q", cfg.Logger.Format)
	}
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		return fmt.Errorf("tracer.exporter must be noop or stdout, got %q", cfg.Tracer.Exporter)
	}
	if cfg.Reports.MaxInlineChars <= 0 {
		return fmt.Errorf("reports.max_inline_chars must be positive")
	}
	return nil
}
