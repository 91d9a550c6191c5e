package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Scrape  ScrapeConfig  `yaml:"scrape" envconfig:"SCRAPE"`
	Cohorts CohortsConfig `yaml:"cohorts" envconfig:"COHORTS"`
}

// ServerConfig contains HTTP server configuration for the data API.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// ScrapeConfig contains configuration for the draw-page scraper.
type ScrapeConfig struct {
	Headless     bool          `yaml:"headless" envconfig:"HEADLESS" default:"true"`
	PageTimeout  time.Duration `yaml:"page_timeout" envconfig:"PAGE_TIMEOUT" default:"45s"`
	PagesPerMin  float64       `yaml:"pages_per_min" envconfig:"PAGES_PER_MIN" default:"12" validate:"gt=0"`
	SettleDelay  time.Duration `yaml:"settle_delay" envconfig:"SETTLE_DELAY" default:"2s"`
	MaxBatchSize int           `yaml:"max_batch_size" envconfig:"MAX_BATCH_SIZE" default:"500" validate:"min=1"`
}

// CohortsConfig lists the cohort manifests a full run processes and
// how the combined table is named.
type CohortsConfig struct {
	Manifests    []string `yaml:"manifests" envconfig:"MANIFESTS"`
	CombinedName string   `yaml:"combined_name" envconfig:"COMBINED_NAME" default:"daily"`
}

var configValidate = validator.New()

// Load loads configuration from environment variables and an optional
// YAML config file next to the executable. Environment takes
// precedence over the file.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("PICK4", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := getConfigFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if len(cfg.Cohorts.Manifests) == 0 {
		cfg.Cohorts.Manifests = append([]string(nil), DefaultCohortManifests...)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence).
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Server.ReadTimeout == 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if envConfig.Server.WriteTimeout == 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if envConfig.Logging.Level == "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if envConfig.Logging.FilePath == "" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if envConfig.Scrape.PageTimeout == 0 {
		envConfig.Scrape.PageTimeout = fileConfig.Scrape.PageTimeout
	}
	if envConfig.Scrape.PagesPerMin == 0 {
		envConfig.Scrape.PagesPerMin = fileConfig.Scrape.PagesPerMin
	}
	if len(envConfig.Cohorts.Manifests) == 0 {
		envConfig.Cohorts.Manifests = fileConfig.Cohorts.Manifests
	}
	if envConfig.Cohorts.CombinedName == "" {
		envConfig.Cohorts.CombinedName = fileConfig.Cohorts.CombinedName
	}

	return envConfig
}

// validate checks the assembled configuration.
func (c *Config) validate() error {
	if err := configValidate.Struct(c); err != nil {
		return err
	}
	return nil
}

// getConfigFilePath returns the config file location next to the
// executable, falling back to the working directory.
func getConfigFilePath() string {
	exe, err := os.Executable()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(filepath.Dir(exe), "config.yaml")
}
