package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultSourceURL is the published CSV export of the bankruptcy spreadsheet.
const DefaultSourceURL = "https://docs.google.com/spreadsheets/d/e/2PACX-1vT16cUw087uaTe3XKQw-pYUMw-gHAvs63dareFbvO8Eo-r7Go9YpPsOLfaXRq-uss0GnMyH1uIIt6xX/pub?output=csv"

// Config holds the full application configuration.
type Config struct {
	Source SourceConfig `yaml:"source" mapstructure:"source"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// SourceConfig describes where filings are read from and how rejected rows
// are kept.
type SourceConfig struct {
	URL               string `yaml:"url" mapstructure:"url"`
	City              string `yaml:"city" mapstructure:"city"`
	UserAgent         string `yaml:"user_agent" mapstructure:"user_agent"`
	HeaderTimeoutSecs int    `yaml:"header_timeout_secs" mapstructure:"header_timeout_secs"`
	RejectsPath       string `yaml:"rejects_path" mapstructure:"rejects_path"`
	SeenCacheSize     int    `yaml:"seen_cache_size" mapstructure:"seen_cache_size"`
	CSVLazyQuotes     bool   `yaml:"csv_lazy_quotes" mapstructure:"csv_lazy_quotes"`
	CSVTrimSpace      bool   `yaml:"csv_trim_space" mapstructure:"csv_trim_space"`
}

// StoreConfig configures the POI store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. Variables in a .env
// file in the working directory are exported first and never override the
// real environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("POI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.url", DefaultSourceURL)
	v.SetDefault("source.city", "amsterdam")
	v.SetDefault("source.user_agent", "poi-ingest/1.0")
	v.SetDefault("source.header_timeout_secs", 30)
	v.SetDefault("source.rejects_path", "")
	v.SetDefault("source.seen_cache_size", 4096)
	v.SetDefault("source.csv_lazy_quotes", false)
	v.SetDefault("source.csv_trim_space", false)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "poi.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	var errs []string
	if strings.TrimSpace(c.Source.URL) == "" {
		errs = append(errs, "source.url is required")
	}
	if c.Source.HeaderTimeoutSecs < 0 {
		errs = append(errs, "source.header_timeout_secs must not be negative")
	}
	if c.Source.SeenCacheSize < 0 {
		errs = append(errs, "source.seen_cache_size must not be negative")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported (sqlite, postgres)", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Store.MinConns > c.Store.MaxConns && c.Store.MaxConns > 0 {
		errs = append(errs, "store.min_conns must not exceed store.max_conns")
	}
	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
