package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
background: "#102030"
quality: 70
import:
  source_dir: "/photos/incoming"
  max_width: 800
  max_height: 600
  alt_format: "Photo %d"
strip:
  backup_dir: "backups"
rembg:
  backend: birefnet
  comfy_url: "http://comfy:8188/"
  poll_interval: 2s
log:
  file: "logs/run.log"
`
	require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0o644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, HexColor{R: 0x10, G: 0x20, B: 0x30, A: 0xFF}, cfg.Background)
	assert.EqualValues(t, 70, cfg.Quality)
	assert.Equal(t, 6, cfg.Method)
	assert.Equal(t, "/photos/incoming", cfg.Import.SourceDir)
	assert.Equal(t, 800, cfg.Import.MaxWidth)
	assert.Equal(t, 600, cfg.Import.MaxHeight)
	assert.Equal(t, "Photo %d", cfg.Import.AltFormat)
	assert.Equal(t, "coiffure", cfg.Import.FilePrefix, "unset keys keep defaults")
	assert.Equal(t, "backups", cfg.Strip.BackupDir)
	assert.Equal(t, BackendBiRefNet, cfg.RemBG.Backend)
	assert.Equal(t, "http://comfy:8188/", cfg.RemBG.ComfyURL)
	assert.Equal(t, 2*time.Second, cfg.RemBG.PollInterval)
	assert.Equal(t, "logs/run.log", cfg.Log.File)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "#FFF8DC", cfg.Background.String())
	assert.EqualValues(t, 85, cfg.Quality)
	assert.Equal(t, 1200, cfg.Import.MaxWidth)
	assert.Equal(t, 1600, cfg.Import.MaxHeight)
	assert.Equal(t, "IMG_", cfg.Import.CapturePrefix)
	assert.Equal(t, " 2", cfg.Import.DuplicateMarker)
	assert.Equal(t, "client/public/gallery", cfg.Strip.GalleryDir)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("REMBG_URL", "http://rembg.internal:7000/api/remove")
	t.Setenv("GALLERY_SOURCE_DIR", "/mnt/phone")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://rembg.internal:7000/api/remove", cfg.RemBG.URL)
	assert.Equal(t, "/mnt/phone", cfg.Import.SourceDir)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		validate func(*Config) error
		wantErr  string
	}{
		{name: "defaults import", mutate: func(*Config) {}, validate: (*Config).ValidateImport},
		{name: "defaults strip", mutate: func(*Config) {}, validate: (*Config).ValidateStrip},
		{name: "quality", mutate: func(c *Config) { c.Quality = 101 }, validate: (*Config).Validate, wantErr: "quality"},
		{name: "method on import", mutate: func(c *Config) { c.Method = 7 }, validate: (*Config).ValidateImport, wantErr: "method"},
		{name: "method on strip", mutate: func(c *Config) { c.Method = -1 }, validate: (*Config).ValidateStrip, wantErr: "method"},
		{name: "bounds", mutate: func(c *Config) { c.Import.MaxHeight = 0 }, validate: (*Config).ValidateImport, wantErr: "max_height"},
		{name: "alt format", mutate: func(c *Config) { c.Import.AltFormat = "static" }, validate: (*Config).ValidateImport, wantErr: "alt_format"},
		{name: "backend", mutate: func(c *Config) { c.RemBG.Backend = "magic" }, validate: (*Config).ValidateStrip, wantErr: "unknown rembg.backend"},
		{name: "backend ignored by import", mutate: func(c *Config) { c.RemBG.Backend = "magic" }, validate: (*Config).ValidateImport},
		{name: "import settings ignored by strip", mutate: func(c *Config) { c.Import.FilePrefix = "" }, validate: (*Config).ValidateStrip},
		{name: "gallery dir", mutate: func(c *Config) { c.Strip.GalleryDir = "" }, validate: (*Config).ValidateStrip, wantErr: "gallery_dir"},
		{name: "none backend", mutate: func(c *Config) { c.RemBG.Backend = BackendNone; c.RemBG.URL = "" }, validate: (*Config).ValidateStrip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := tt.validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_UnknownBackendDoesNotFailLoad(t *testing.T) {
	t.Setenv("REMBG_BACKEND", "foo")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateImport())
	assert.Error(t, cfg.ValidateStrip())
}

func TestLoadConfig_UnquotedBackground(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("quality: 80\nbackground: #102030\n"), 0o644))

	_, err := Load(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "background is empty")
}

func TestHexColor(t *testing.T) {
	c, err := ParseHexColor("#fff8dc")
	require.NoError(t, err)
	assert.Equal(t, "#FFF8DC", c.String())

	_, err = ParseHexColor("#fff")
	assert.Error(t, err)

	out, err := yaml.Marshal(struct {
		Background HexColor `yaml:"background"`
	}{c})
	require.NoError(t, err)
	assert.Contains(t, string(out), "#FFF8DC")
}
