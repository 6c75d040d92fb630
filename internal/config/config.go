// Package config loads application configuration and initializes logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Portal   PortalConfig   `yaml:"portal" mapstructure:"portal"`
	Browser  BrowserConfig  `yaml:"browser" mapstructure:"browser"`
	Download DownloadConfig `yaml:"download" mapstructure:"download"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// PortalConfig selects the portal profile.
type PortalConfig struct {
	// ProfilePath points at a YAML profile overriding the built-in
	// defaults (URLs, selectors, framework convention). Empty uses the
	// defaults unchanged.
	ProfilePath string `yaml:"profile_path" mapstructure:"profile_path"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	APIBaseURL  string `yaml:"api_base_url" mapstructure:"api_base_url"`
}

// BrowserConfig configures the browser-automation driver binding.
type BrowserConfig struct {
	Driver    string `yaml:"driver" mapstructure:"driver"`
	Headless  bool   `yaml:"headless" mapstructure:"headless"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// DownloadConfig configures file downloads.
type DownloadConfig struct {
	Dir         string  `yaml:"dir" mapstructure:"dir"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
}

// StoreConfig configures the run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CIVICGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("portal.base_url", "https://firestoneco.portal.civicclerk.com")
	v.SetDefault("portal.api_base_url", "https://firestoneco.api.civicclerk.com/v1/")
	v.SetDefault("browser.driver", "playwright")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	v.SetDefault("download.dir", "./downloads")
	v.SetDefault("download.timeout_secs", 30)
	v.SetDefault("download.rate_per_sec", 4)
	v.SetDefault("download.burst", 4)
	v.SetDefault("store.path", "civicgrab.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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
