package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"picking-dash/internal/picklog"
)

// EnvPrefix prefixes every environment variable read into AppConfig.
const EnvPrefix = "PICKING"

// DefaultConfigFile is looked up in the data path when PICKING_CONFIG is not set.
const DefaultConfigFile = "picking.yaml"

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath  string `yaml:"data_path" envconfig:"DATA_PATH"`
	LogDir    string `yaml:"log_dir" envconfig:"LOG_DIR"`
	ExportDir string `yaml:"export_dir" envconfig:"EXPORT_DIR"`

	HTTP HTTPConfig `yaml:"http" envconfig:"HTTP"`

	// Timezone interprets zone-less timestamps and anchors the quick date slicers.
	Timezone            string   `yaml:"timezone" envconfig:"TIMEZONE"`
	EnableMermaidCharts bool     `yaml:"enable_mermaid_charts" envconfig:"ENABLE_MERMAID_CHARTS"`
	DefaultMetrics      []string `yaml:"default_metrics" envconfig:"DEFAULT_METRICS"`
	OpenBrowser         bool     `yaml:"open_browser" envconfig:"OPEN_BROWSER"`
	// StoreCapacity bounds the number of uploaded datasets kept in memory.
	StoreCapacity int `yaml:"store_capacity" envconfig:"STORE_CAPACITY"`

	location *time.Location
}

// HTTPConfig configures the dashboard server.
type HTTPConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults(baseDir string) *AppConfig {
	if baseDir == "" {
		baseDir = "."
	}
	return &AppConfig{
		DataPath:  baseDir,
		LogDir:    filepath.Join(baseDir, "logs"),
		ExportDir: filepath.Join(baseDir, "exports"),
		HTTP: HTTPConfig{
			Addr:            "127.0.0.1:8501",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		Timezone:       "UTC",
		DefaultMetrics: metricNames(picklog.Metrics),
		StoreCapacity:  picklog.DefaultStoreCapacity,
	}
}

// Load loads the configuration from .env files, an optional YAML file and environment variables.
// Environment variables win over the file, which wins over the defaults.
func Load() (*AppConfig, error) {
	// A .env beside the binary wins; MCP clients launch it from arbitrary directories.
	exeDir := ""
	if exePath, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// Then the working directory, for local runs.
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	cfg, err := load(exeDir)
	if err != nil {
		return nil, err
	}

	// Create the log and export directories up front.
	for _, dir := range []string{cfg.LogDir, cfg.ExportDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("Failed to create directory")
		}
	}
	return cfg, nil
}

func load(baseDir string) (*AppConfig, error) {
	if dataPath := os.Getenv(EnvPrefix + "_DATA_PATH"); dataPath != "" {
		baseDir = dataPath
	}
	cfg := Defaults(baseDir)
	if dir := os.Getenv("LOGS_FOLDER"); dir != "" {
		cfg.LogDir = dir
	}

	path, explicit := os.LookupEnv(EnvPrefix + "_CONFIG")
	if !explicit {
		path = filepath.Join(cfg.DataPath, DefaultConfigFile)
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else {
		log.Debug().Str("path", path).Msg("Loaded configuration file")
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// mergeFile overlays the keys present in a YAML file onto cfg.
func (c *AppConfig) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.location = loc

	if c.HTTP.Addr == "" {
		return errors.New("http address is required")
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.HTTP.MaxUploadBytes)
	}
	if c.StoreCapacity <= 0 {
		return fmt.Errorf("store capacity must be positive, got %d", c.StoreCapacity)
	}
	for _, name := range c.DefaultMetrics {
		if _, ok := picklog.ParseMetric(name); !ok {
			return fmt.Errorf("unknown default metric %q", name)
		}
	}
	return nil
}

// Location is the resolved Timezone.
func (c *AppConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func metricNames(metrics []picklog.Metric) []string {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = string(m)
	}
	return names
}
