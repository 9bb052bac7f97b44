package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/infinipic/pkg/mosaic"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.True(t, config.GenerateThumbnails)
	assert.Equal(t, "thumbnails.bin", config.ThumbnailFile)
	assert.Equal(t, "mosaic.png", config.Output)
	assert.Equal(t, 0, config.Workers)
	assert.Equal(t, mosaic.Grid{Rows: 80, Cols: 80}, config.Grid)
	assert.Equal(t, 0.5, config.Scale)
	assert.Equal(t, "bilinear", config.Imaging.Interpolation)
	assert.False(t, config.Cache.Enabled)
	assert.Equal(t, "127.0.0.1", config.Server.Bind)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "console", config.Logging.Format)
	assert.NoError(t, config.Validate())
}

func TestLoadConfig(t *testing.T) {
	t.Run("load existing config", func(t *testing.T) {
		tmpDir, err := os.MkdirTemp("", "infinipic_config_test")
		require.NoError(t, err)
		defer os.RemoveAll(tmpDir)

		configPath := filepath.Join(tmpDir, "config.yaml")
		data := []byte(`image_directory: /photos
directory_blacklist: [/photos/private, "*.draft.jpg"]
generate_thumbnails: false
grid: {rows: 10, cols: 12}
logging: {level: debug}
`)
		require.NoError(t, os.WriteFile(configPath, data, 0600))

		config, err := LoadConfig(configPath)
		require.NoError(t, err)

		assert.Equal(t, "/photos", config.ImageDirectory)
		assert.Equal(t, []string{"/photos/private", "*.draft.jpg"}, config.DirectoryBlacklist)
		assert.False(t, config.GenerateThumbnails)
		assert.Equal(t, mosaic.Grid{Rows: 10, Cols: 12}, config.Grid)
		assert.Equal(t, "debug", config.Logging.Level)

		// unset keys keep their defaults
		assert.Equal(t, "thumbnails.bin", config.ThumbnailFile)
		assert.Equal(t, "console", config.Logging.Format)
		assert.Equal(t, 0.5, config.Scale)
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := LoadConfig("/non/existent/config.yaml")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "config file does not exist")
	})

	t.Run("load invalid yaml", func(t *testing.T) {
		tmpDir, err := os.MkdirTemp("", "infinipic_config_test")
		require.NoError(t, err)
		defer os.RemoveAll(tmpDir)

		configPath := filepath.Join(tmpDir, "invalid.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("grid: [unclosed"), 0600))

		_, err = LoadConfig(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestSaveConfig(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "infinipic_config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	config := DefaultConfig()
	config.ImageDirectory = "/srv/photos"
	config.DirectoryBlacklist = []string{"private"}
	config.Cache.Enabled = true

	configPath := filepath.Join(tmpDir, "nested", "config.yaml")
	require.NoError(t, SaveConfig(config, configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Equal(t, "/srv/photos", raw["image_directory"])

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"INFINIPIC_IMAGE_DIRECTORY":     "/mnt/pictures",
		"INFINIPIC_DIRECTORY_BLACKLIST": "a, b,,c",
		"INFINIPIC_GENERATE_THUMBNAILS": "false",
		"INFINIPIC_WORKERS":             "6",
		"INFINIPIC_GRID_ROWS":           "40",
		"INFINIPIC_SCALE":               "0.25",
		"INFINIPIC_CACHE_ENABLED":       "true",
		"INFINIPIC_PORT":                "9090",
		"INFINIPIC_LOG_FORMAT":          "json",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	config := DefaultConfig()
	require.NoError(t, config.ApplyEnv(lookup))

	assert.Equal(t, "/mnt/pictures", config.ImageDirectory)
	assert.Equal(t, []string{"a", "b", "c"}, config.DirectoryBlacklist)
	assert.False(t, config.GenerateThumbnails)
	assert.Equal(t, 6, config.Workers)
	assert.Equal(t, mosaic.Grid{Rows: 40, Cols: 80}, config.Grid)
	assert.Equal(t, 0.25, config.Scale)
	assert.True(t, config.Cache.Enabled)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	env := map[string]string{
		"INFINIPIC_WORKERS":       "many",
		"INFINIPIC_CACHE_ENABLED": "sometimes",
	}
	config := DefaultConfig()
	err := config.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INFINIPIC_WORKERS")
	assert.Contains(t, err.Error(), "INFINIPIC_CACHE_ENABLED")
	assert.Equal(t, 0, config.Workers)
}

func TestLoadDotEnv(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "infinipic_dotenv_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	envFile := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("INFINIPIC_TEST_DOTENV=loaded\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("INFINIPIC_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(tmpDir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("INFINIPIC_TEST_DOTENV"))
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty grid", func(c *Config) { c.Grid = mosaic.Grid{} }, "grid"},
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"zero scale", func(c *Config) { c.Scale = 0 }, "scale"},
		{"no thumbnail file", func(c *Config) { c.ThumbnailFile = "" }, "thumbnail_file"},
		{"bad interpolation", func(c *Config) { c.Imaging.Interpolation = "sinc" }, "sinc"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "port"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()
	assert.True(t, filepath.Base(path) == "config.yaml" || path == "./infinipic.yaml")
}

func TestConfigExists(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "infinipic_config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	assert.False(t, ConfigExists(configPath))
	require.NoError(t, SaveConfig(DefaultConfig(), configPath))
	assert.True(t, ConfigExists(configPath))
}
