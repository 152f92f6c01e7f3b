// Package common provides shared utilities for xapiport
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for xapiport
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	PBX         PBXConfig     `toml:"pbx"`
	Storage     StorageConfig `toml:"storage"`
	Export      ExportConfig  `toml:"export"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// PBXConfig holds the remote PBX XAPI connection settings.
type PBXConfig struct {
	BaseURL      string `toml:"base_url"`      // e.g. https://pbx.example.3cx.eu:5001
	ClientID     string `toml:"client_id"`     // API client id
	ClientSecret string `toml:"client_secret"` // API client secret
	Timeout      string `toml:"timeout"`       // HTTP timeout, e.g. "30s"
	RateLimit    int    `toml:"rate_limit"`    // requests per second against the PBX
	InsecureTLS  bool   `toml:"insecure_tls"`  // skip certificate verification (self-signed PBX certs)
}

// StorageConfig holds paths for persisted artifacts.
type StorageConfig struct {
	DefinitionsPath string `toml:"definitions_path"` // directory holding definitions.json
	ExportPath      string `toml:"export_path"`      // directory for generated export files ("" = os temp dir)
}

// ExportConfig holds export pipeline limits.
type ExportConfig struct {
	CooldownSeconds    int `toml:"cooldown_seconds"`     // minimum delay between export requests
	DefinitionsMaxAge  int `toml:"definitions_max_age"`  // seconds before definitions are recompiled
	PreviewRows        int `toml:"preview_rows"`         // rows shown in the HTML preview
	DownloadTTLMinutes int `toml:"download_ttl_minutes"` // minutes a download token stays valid
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// ClientTimeout returns the parsed PBX HTTP timeout.
func (c *Config) ClientTimeout() time.Duration {
	d, err := time.ParseDuration(c.PBX.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// DefinitionsMaxAge returns the definitions freshness window.
func (c *Config) DefinitionsMaxAge() time.Duration {
	if c.Export.DefinitionsMaxAge <= 0 {
		return FreshnessDefinitions
	}
	return time.Duration(c.Export.DefinitionsMaxAge) * time.Second
}

// DownloadTTL returns how long a generated export stays downloadable.
func (c *Config) DownloadTTL() time.Duration {
	if c.Export.DownloadTTLMinutes <= 0 {
		return FreshnessExportFile
	}
	return time.Duration(c.Export.DownloadTTLMinutes) * time.Minute
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// NewDefaultConfig returns a config populated with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		PBX: PBXConfig{
			Timeout:   "30s",
			RateLimit: 10,
		},
		Storage: StorageConfig{
			DefinitionsPath: "./data",
		},
		Export: ExportConfig{
			CooldownSeconds:    10,
			DefinitionsMaxAge:  int(FreshnessDefinitions / time.Second),
			PreviewRows:        20,
			DownloadTTLMinutes: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("XAPIPORT_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("XAPIPORT_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("XAPIPORT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("XAPIPORT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if url := os.Getenv("XAPIPORT_PBX_URL"); url != "" {
		config.PBX.BaseURL = url
	}
	if id := os.Getenv("XAPIPORT_PBX_CLIENT_ID"); id != "" {
		config.PBX.ClientID = id
	}
	if secret := os.Getenv("XAPIPORT_PBX_CLIENT_SECRET"); secret != "" {
		config.PBX.ClientSecret = secret
	}
	if v := os.Getenv("XAPIPORT_PBX_INSECURE_TLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.PBX.InsecureTLS = b
		}
	}

	if path := os.Getenv("XAPIPORT_DATA_PATH"); path != "" {
		config.Storage.DefinitionsPath = path
	}
	if path := os.Getenv("XAPIPORT_EXPORT_PATH"); path != "" {
		config.Storage.ExportPath = path
	}
}

// Validate reports configuration problems that make the PBX unreachable.
func (c *Config) Validate() error {
	if c.PBX.BaseURL == "" {
		return fmt.Errorf("pbx.base_url is required")
	}
	if c.PBX.ClientID == "" || c.PBX.ClientSecret == "" {
		return fmt.Errorf("pbx.client_id and pbx.client_secret are required")
	}
	return nil
}
