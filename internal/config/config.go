// Package config manages the catalog engine's configuration, loaded from a
// ".pansat/config.toml" file located by walking up from the working
// directory, with support for environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all engine configuration.
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Registries []RegistryConfig `mapstructure:"registries"`
	Match      MatchConfig      `mapstructure:"match"`
	Server     ServerConfig     `mapstructure:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	TLS        TLSConfig        `mapstructure:"tls"`
	Providers  []ProviderConfig `mapstructure:"providers"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Watch      WatchConfig      `mapstructure:"watch"`
	OnTheFly   bool             `mapstructure:"-"`
	NoCache    bool             `mapstructure:"-"`
	Password   string           `mapstructure:"-"`
}

// TLSConfig holds the optional automatic-HTTPS configuration for the
// server's public listener, backed by CertMagic's HTTP-01 challenge.
type TLSConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Domains  []string `mapstructure:"domains"`
	Email    string   `mapstructure:"email"`
	CacheDir string   `mapstructure:"cache_dir"`
	Staging  bool     `mapstructure:"staging"`
}

// ProviderConfig describes one configured data provider. Kind selects which
// fields apply: "localdir", "s3", "azureblob", or "httpidx".
type ProviderConfig struct {
	Name string `mapstructure:"name"`
	Kind string `mapstructure:"kind"`

	// localdir
	BasePath string `mapstructure:"base_path"`

	// s3
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// azureblob
	Container        string `mapstructure:"container"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`

	// httpidx
	BaseURL   string        `mapstructure:"base_url"`
	IndexFile string        `mapstructure:"index_file"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`

	// discrete wraps another provider's granularity assumptions; when set,
	// files from this provider are treated as covering a fixed granularity
	// rather than their granule-extracted time range.
	Granularity string `mapstructure:"granularity"`
}

// SyncConfig controls the background sync scheduler.
type SyncConfig struct {
	Products []string      `mapstructure:"products"`
	Window   time.Duration `mapstructure:"window"`
	Interval time.Duration `mapstructure:"interval"`
	DataDir  string        `mapstructure:"data_dir"`
}

// WatchConfig controls the local-directory file watcher that indexes files
// dropped into the sync data directory without a manual rescan.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Paths    []string      `mapstructure:"paths"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// GeneralConfig holds top-level identity settings.
type GeneralConfig struct {
	IdentityFile string `mapstructure:"identity_file"`
}

// RegistryConfig describes one link in the chain of registries to open.
// Registries is ordered outermost (parent) first, innermost (active, closest
// to the process) last; each entry whose parent chain should fall through on
// a local miss sets Transparent.
type RegistryConfig struct {
	Path        string `mapstructure:"path"`
	Name        string `mapstructure:"name"`
	NWorkers    int    `mapstructure:"n_workers"`
	IsDataDir   bool   `mapstructure:"is_data_dir"`
	Transparent bool   `mapstructure:"transparent"`
}

// MatchConfig holds default match-engine parameters.
type MatchConfig struct {
	TimeDiff time.Duration `mapstructure:"time_diff"`
	Merge    bool          `mapstructure:"merge"`
	Workers  int           `mapstructure:"workers"`
}

// ServerConfig holds the optional HTTP query surface's configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration for the optional HTTP surface.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Enabled reports whether CORS handling should be applied at all.
func (c CORSConfig) Enabled() bool {
	return len(c.AllowedOrigins) > 0
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// configDirName is the hidden directory searched for while walking up from
// the working directory. The fallback under the user config home uses a
// "pansat" subdirectory instead (see FindConfigFile).
const configDirName = ".pansat"

// Defaults sets the default configuration values.
func Defaults() {
	viper.SetDefault("general.identity_file", "identities.json")

	viper.SetDefault("registries", []map[string]any{
		{"name": "default", "n_workers": 4, "is_data_dir": true, "transparent": false},
	})

	viper.SetDefault("match.time_diff", 5*time.Minute)
	viper.SetDefault("match.merge", true)
	viper.SetDefault("match.workers", 4)

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8622)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.cors.allowed_origins", []string{})

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("tls.enabled", false)
	viper.SetDefault("tls.staging", false)

	viper.SetDefault("sync.window", 24*time.Hour)
	viper.SetDefault("sync.interval", time.Hour)
	viper.SetDefault("sync.data_dir", "data")

	viper.SetDefault("watch.enabled", false)
	viper.SetDefault("watch.debounce", 500*time.Millisecond)
}

// FindConfigFile walks up from startDir looking for "<dir>/.pansat/config.toml",
// falling back to the user config directory's copy if none is found on the
// way up. It returns "" if neither exists.
func FindConfigFile(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, configDirName, "config.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if home, err := os.UserConfigDir(); err == nil {
		candidate := filepath.Join(home, "pansat", "config.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Load loads configuration from the discovered (or explicitly given) config
// file and environment variables.
func Load(configPath string) (*Config, error) {
	Defaults()

	viper.SetEnvPrefix("PANSAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configPath == "" {
		configPath = FindConfigFile(".")
	}

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("toml")
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// PANSAT_ON_THE_FLY, PANSAT_DISABLE_CACHE and PANSAT_PASSWORD are
	// presence/value environment switches rather than mapstructure-bound
	// fields, per the engine's external contract.
	_, cfg.OnTheFly = os.LookupEnv("PANSAT_ON_THE_FLY")
	_, cfg.NoCache = os.LookupEnv("PANSAT_DISABLE_CACHE")
	cfg.Password = os.Getenv("PANSAT_PASSWORD")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if len(c.Registries) == 0 {
		return fmt.Errorf("at least one registry must be configured")
	}
	for i, r := range c.Registries {
		if r.NWorkers < 1 {
			return fmt.Errorf("registries[%d].n_workers must be >= 1", i)
		}
	}
	if c.Match.Workers < 1 {
		return fmt.Errorf("match.workers must be >= 1")
	}
	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
