package agent

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/syslogexporter/internal/export"
	"github.com/ethpandaops/syslogexporter/internal/ingest"
	"github.com/ethpandaops/syslogexporter/internal/rate"
	"github.com/ethpandaops/syslogexporter/internal/sink"
	"github.com/ethpandaops/syslogexporter/internal/target"
)

// Config is the top-level configuration for the exporter.
type Config struct {
	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// TypesDB is an optional collectd types.db used to resolve data sets.
	TypesDB string `yaml:"types_db"`

	// Sink configures where formatted lines are written.
	Sink sink.Config `yaml:"sink"`

	// Rates configures the previous-observation cache for rate mode.
	Rates rate.Config `yaml:"rates"`

	// Ingest configures the HTTP endpoint samples are received on.
	Ingest ingest.Config `yaml:"ingest"`

	// Health configures the Prometheus health metrics server.
	Health export.HealthConfig `yaml:"health"`

	// Reload watches the config file and re-syncs targets on change.
	Reload bool `yaml:"reload"`

	// ReloadDelay debounces bursts of file events. Defaults to 500ms.
	ReloadDelay time.Duration `yaml:"reload_delay"`

	// Targets are the export target blocks. Each block is validated on
	// its own when targets are registered; an empty list registers one
	// unnamed target with default settings.
	Targets []target.Block `yaml:"targets"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		Sink:        sink.DefaultConfig(),
		Rates:       rate.DefaultConfig(),
		Ingest:      ingest.DefaultConfig(),
		ReloadDelay: 500 * time.Millisecond,
		Health: export.HealthConfig{
			Addr: ":9090",
		},
	}
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for required fields and consistency.
// Target blocks are not validated here.
func (c *Config) Validate() error {
	if err := c.Sink.Validate(); err != nil {
		return fmt.Errorf("sink: %w", err)
	}

	if c.Ingest.Addr == "" {
		return fmt.Errorf("ingest.addr is required")
	}

	if c.Ingest.MaxBodyBytes <= 0 {
		return fmt.Errorf("ingest.max_body_bytes must be positive")
	}

	if c.Reload && c.ReloadDelay <= 0 {
		return fmt.Errorf("reload_delay must be positive")
	}

	return nil
}

// TargetBlocks returns the configured blocks, or a single unnamed block
// when none are configured.
func (c *Config) TargetBlocks() []target.Block {
	if len(c.Targets) == 0 {
		return []target.Block{{}}
	}

	return c.Targets
}
