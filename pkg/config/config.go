/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/infinipic/pkg/imagesrc"
	"github.com/ssargent/infinipic/pkg/mosaic"
	"github.com/ssargent/infinipic/pkg/scanner"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "INFINIPIC_"

// Config represents the Infinipic configuration
type Config struct {
	ImageDirectory     string      `yaml:"image_directory"`
	DirectoryBlacklist []string    `yaml:"directory_blacklist"`
	GenerateThumbnails bool        `yaml:"generate_thumbnails"`
	ThumbnailFile      string      `yaml:"thumbnail_file"`
	SingleImage        string      `yaml:"single_image"`
	Output             string      `yaml:"output"`
	Workers            int         `yaml:"workers"`
	Grid               mosaic.Grid `yaml:"grid"`
	Scale              float64     `yaml:"scale"`
	Imaging            Imaging     `yaml:"imaging"`
	Cache              Cache       `yaml:"cache"`
	Server             Server      `yaml:"server"`
	Logging            Logging     `yaml:"logging"`
}

// Imaging controls how source images are decoded and resampled
type Imaging struct {
	Interpolation string `yaml:"interpolation"`
	RespectEXIF   bool   `yaml:"respect_exif"`
}

// Cache configures the decoded-thumbnail cache
type Cache struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Server configures the HTTP viewer
type Server struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		GenerateThumbnails: true,
		ThumbnailFile:      "thumbnails.bin",
		Output:             "mosaic.png",
		Grid:               mosaic.DefaultGrid,
		Scale:              0.5,
		Imaging: Imaging{
			Interpolation: "bilinear",
		},
		Cache: Cache{
			Dir: ".infinipic-cache",
		},
		Server: Server{
			Bind: "127.0.0.1",
			Port: 8080,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from the specified path. Keys missing from
// the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotEnv loads variables from the given .env files (default ".env") into
// the process environment. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with INFINIPIC_* variables read through
// lookup (usually os.LookupEnv)
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	str("IMAGE_DIRECTORY", &c.ImageDirectory)
	if v, ok := lookup(EnvPrefix + "DIRECTORY_BLACKLIST"); ok {
		c.DirectoryBlacklist = scanner.SplitList(v)
	}
	boolean("GENERATE_THUMBNAILS", &c.GenerateThumbnails)
	str("THUMBNAIL_FILE", &c.ThumbnailFile)
	str("SINGLE_IMAGE", &c.SingleImage)
	str("OUTPUT", &c.Output)
	integer("WORKERS", &c.Workers)
	integer("GRID_ROWS", &c.Grid.Rows)
	integer("GRID_COLS", &c.Grid.Cols)
	if v, ok := lookup(EnvPrefix + "SCALE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSCALE: %w", EnvPrefix, err))
		} else {
			c.Scale = f
		}
	}
	str("INTERPOLATION", &c.Imaging.Interpolation)
	boolean("RESPECT_EXIF", &c.Imaging.RespectEXIF)
	boolean("CACHE_ENABLED", &c.Cache.Enabled)
	str("CACHE_DIR", &c.Cache.Dir)
	str("BIND", &c.Server.Bind)
	integer("PORT", &c.Server.Port)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	return errors.Join(errs...)
}

// Validate checks the configuration for values no command can work with
func (c *Config) Validate() error {
	var errs []error
	if err := c.Grid.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative: %d", c.Workers))
	}
	if !(c.Scale > 0) {
		errs = append(errs, fmt.Errorf("scale must be positive: %v", c.Scale))
	}
	if c.ThumbnailFile == "" {
		errs = append(errs, errors.New("thumbnail_file must be set"))
	}
	if _, err := imagesrc.ParseInterpolation(c.Imaging.Interpolation); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level: %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format: %q", c.Logging.Format))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d", c.Server.Port))
	}
	return errors.Join(errs...)
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./infinipic.yaml"
	}

	// For Linux/macOS, use ~/.config/infinipic/config.yaml
	configDir := filepath.Join(homeDir, ".config", "infinipic")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
