package awardscan

import (
	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/config"
)

// Config is the top-level scanner configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls the Chrome session.
type BrowserConfig = config.BrowserConfig

// ScanConfig selects airports and dates.
type ScanConfig = config.ScanConfig

// PacingConfig controls delays between queries.
type PacingConfig = config.PacingConfig

// OutputConfig selects the sinks.
type OutputConfig = config.OutputConfig

// DefaultConfig returns a complete configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
