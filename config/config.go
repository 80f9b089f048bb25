package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendRemBG    = "rembg"
	BackendBiRefNet = "birefnet"
	BackendNone     = "none"
)

// Config represents the application configuration
type Config struct {
	// Background must be quoted in YAML ("#FFF8DC"); a bare # starts a comment.
	Background HexColor     `yaml:"background"`
	Quality    float32      `yaml:"quality"`
	Method     int          `yaml:"method"`
	Import     ImportConfig `yaml:"import"`
	Strip      StripConfig  `yaml:"strip"`
	RemBG      RemBGConfig  `yaml:"rembg"`
	Log        LogConfig    `yaml:"log"`
}

type ImportConfig struct {
	SourceDir       string   `yaml:"source_dir"`
	OutputDir       string   `yaml:"output_dir"`
	ManifestPath    string   `yaml:"manifest_path"`
	MaxWidth        int      `yaml:"max_width"`
	MaxHeight       int      `yaml:"max_height"`
	Extensions      []string `yaml:"extensions"`
	CapturePrefix   string   `yaml:"capture_prefix"`
	DuplicateMarker string   `yaml:"duplicate_marker"`
	FilePrefix      string   `yaml:"file_prefix"`
	PublicPath      string   `yaml:"public_path"`
	AltFormat       string   `yaml:"alt_format"`
	Category        string   `yaml:"category"`
	AutoOrient      bool     `yaml:"auto_orient"`
}

type StripConfig struct {
	GalleryDir string `yaml:"gallery_dir"`
	BackupDir  string `yaml:"backup_dir"`
}

type RemBGConfig struct {
	Backend      string        `yaml:"backend"`
	URL          string        `yaml:"url"`
	Model        string        `yaml:"model"`
	ComfyURL     string        `yaml:"comfy_url"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	File string `yaml:"file"`
}

// Default returns the settings the gallery was originally produced with.
func Default() *Config {
	return &Config{
		Background: HexColor{R: 0xFF, G: 0xF8, B: 0xDC, A: 0xFF}, // cream #FFF8DC
		Quality:    85,
		Method:     6,
		Import: ImportConfig{
			SourceDir:       "~/Downloads",
			OutputDir:       "client/public/gallery",
			ManifestPath:    "client/src/data/gallery.json",
			MaxWidth:        1200,
			MaxHeight:       1600,
			Extensions:      []string{".jpg", ".jpeg", ".png", ".JPG", ".JPEG", ".PNG"},
			CapturePrefix:   "IMG_",
			DuplicateMarker: " 2",
			FilePrefix:      "coiffure",
			PublicPath:      "/gallery",
			AltFormat:       "Réalisation coiffure %d - Fat's Hair-Afro",
			Category:        "all",
		},
		Strip: StripConfig{
			GalleryDir: "client/public/gallery",
		},
		RemBG: RemBGConfig{
			Backend:      BackendRemBG,
			URL:          "http://localhost:7000/api/remove",
			Model:        "u2net",
			ComfyURL:     "http://127.0.0.1:8188/",
			PollInterval: time.Second,
			Timeout:      5 * time.Minute,
		},
	}
}

// Load reads the configuration file on top of the defaults and applies environment overrides.
// An empty path means defaults plus environment only. Only the shared settings are validated here;
// commands call ValidateImport or ValidateStrip once their flags are applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if err := checkBackground(data); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// checkBackground rejects a background key without a value, which the decoder would skip.
func checkBackground(data []byte) error {
	var raw struct {
		Background yaml.Node `yaml:"background"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if raw.Background.Kind == yaml.ScalarNode && raw.Background.ShortTag() == "!!null" {
		return errors.New(`background is empty; quote the color, e.g. background: "#FFF8DC"`)
	}
	return nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"GALLERY_SOURCE_DIR":     &c.Import.SourceDir,
		"GALLERY_OUTPUT_DIR":     &c.Import.OutputDir,
		"GALLERY_MANIFEST":       &c.Import.ManifestPath,
		"GALLERY_DIR":            &c.Strip.GalleryDir,
		"REMBG_BACKEND":          &c.RemBG.Backend,
		"REMBG_URL":              &c.RemBG.URL,
		"REMBG_MODEL":            &c.RemBG.Model,
		"COMFYUI_URL":            &c.RemBG.ComfyURL,
		"PHOTO2GALLERY_LOG_FILE": &c.Log.File,
	}
	for key, field := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*field = v
		}
	}
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	var errs []error
	if c.Quality < 0 || c.Quality > 100 {
		errs = append(errs, fmt.Errorf("quality must be within 0..100, got %v", c.Quality))
	}
	if c.Method < 0 || c.Method > 6 {
		errs = append(errs, fmt.Errorf("method must be within 0..6, got %d", c.Method))
	}
	return errors.Join(errs...)
}

// ValidateImport checks what the import command needs.
func (c *Config) ValidateImport() error {
	var errs []error
	if c.Import.MaxWidth <= 0 || c.Import.MaxHeight <= 0 {
		errs = append(errs, fmt.Errorf("import.max_width and import.max_height must be positive"))
	}
	if len(c.Import.Extensions) == 0 {
		errs = append(errs, errors.New("import.extensions is required"))
	}
	if c.Import.FilePrefix == "" {
		errs = append(errs, errors.New("import.file_prefix is required"))
	}
	if !strings.Contains(c.Import.AltFormat, "%d") {
		errs = append(errs, errors.New("import.alt_format must contain %d for the entry id"))
	}
	return errors.Join(append(errs, c.Validate())...)
}

// ValidateStrip checks what the strip command needs, the background removal backend included.
func (c *Config) ValidateStrip() error {
	var errs []error
	if c.Strip.GalleryDir == "" {
		errs = append(errs, errors.New("strip.gallery_dir is required"))
	}
	switch c.RemBG.Backend {
	case BackendRemBG:
		if c.RemBG.URL == "" {
			errs = append(errs, errors.New("rembg.url is required for the rembg backend"))
		}
	case BackendBiRefNet:
		if c.RemBG.ComfyURL == "" {
			errs = append(errs, errors.New("rembg.comfy_url is required for the birefnet backend"))
		}
		if c.RemBG.PollInterval <= 0 {
			errs = append(errs, errors.New("rembg.poll_interval must be positive"))
		}
	case BackendNone:
	default:
		errs = append(errs, fmt.Errorf("unknown rembg.backend %q", c.RemBG.Backend))
	}
	return errors.Join(append(errs, c.Validate())...)
}

// HexColor is an opaque color written as "#RRGGBB" in the config file.
type HexColor color.NRGBA

func ParseHexColor(s string) (HexColor, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return HexColor{}, fmt.Errorf("invalid color %q: want #RRGGBB", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return HexColor{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return HexColor{R: r, G: g, B: b, A: 0xFF}, nil
}

func (h HexColor) String() string {
	return fmt.Sprintf("#%02X%02X%02X", h.R, h.G, h.B)
}

func (h HexColor) NRGBA() color.NRGBA {
	return color.NRGBA(h)
}

func (h *HexColor) UnmarshalYAML(value *yaml.Node) error {
	c, err := ParseHexColor(value.Value)
	if err != nil {
		return err
	}
	*h = c
	return nil
}

func (h HexColor) MarshalYAML() (interface{}, error) {
	return h.String(), nil
}
