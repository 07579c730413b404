// Package config loads gopreview.yaml and merges command line overrides.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/philipparndt/gopreview/pkg/render"
	"github.com/philipparndt/gopreview/pkg/thumbnail"
)

// DefaultFile is read when no --config flag is given
const DefaultFile = "gopreview.yaml"

// Config holds all settings of the commands
type Config struct {
	Render  RenderConfig  `yaml:"render"`
	Capture CaptureConfig `yaml:"capture"`
	Load    LoadConfig    `yaml:"load"`
	Watch   WatchConfig   `yaml:"watch"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

type RenderConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background"`
	FPS        int    `yaml:"fps"`
}

type CaptureConfig struct {
	Edge   int    `yaml:"edge"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type LoadConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type WatchConfig struct {
	// Enabled is a pointer so an explicit false survives Resolve.
	Enabled  *bool         `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file. An empty path reads DefaultFile when it
// exists and yields an empty config otherwise.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds command line values that override the config file when set
type Flags struct {
	Width      int
	Height     int
	Background string
	Edge       int
	Format     string
	Output     string
	Timeout    time.Duration
	NoWatch    bool
	Addr       string
	LogLevel   string
	LogFormat  string
}

// Resolve applies flag overrides and fills empty fields with defaults
func (c *Config) Resolve(flags Flags) {
	if flags.Width > 0 {
		c.Render.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Render.Height = flags.Height
	}
	if flags.Background != "" {
		c.Render.Background = flags.Background
	}
	if flags.Edge > 0 {
		c.Capture.Edge = flags.Edge
	}
	if flags.Format != "" {
		c.Capture.Format = flags.Format
	}
	if flags.Output != "" {
		c.Capture.Output = flags.Output
	}
	if flags.Timeout > 0 {
		c.Load.Timeout = flags.Timeout
	}
	if flags.NoWatch {
		disabled := false
		c.Watch.Enabled = &disabled
	}
	if flags.Addr != "" {
		c.Server.Addr = flags.Addr
	}
	if flags.LogLevel != "" {
		c.Log.Level = flags.LogLevel
	}
	if flags.LogFormat != "" {
		c.Log.Format = flags.LogFormat
	}

	if c.Render.Width <= 0 {
		c.Render.Width = 800
	}
	if c.Render.Height <= 0 {
		c.Render.Height = 600
	}
	if c.Render.Background == "" {
		c.Render.Background = "#0f1219"
	}
	if c.Render.FPS <= 0 {
		c.Render.FPS = 60
	}
	if c.Capture.Edge <= 0 {
		c.Capture.Edge = 1024
	}
	if c.Capture.Format == "" {
		c.Capture.Format = "webp"
	}
	if c.Capture.Output == "" {
		c.Capture.Output = "thumbnail." + c.Capture.Format
	}
	if c.Load.Timeout <= 0 {
		c.Load.Timeout = 30 * time.Second
	}
	if c.Watch.Enabled == nil {
		enabled := true
		c.Watch.Enabled = &enabled
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate reports settings that Resolve cannot repair
func (c *Config) Validate() error {
	if _, err := c.BackgroundColor(); err != nil {
		return fmt.Errorf("config: render.background: %w", err)
	}
	switch c.Capture.Format {
	case "webp", "png":
	default:
		return fmt.Errorf("config: capture.format must be webp or png, got %q", c.Capture.Format)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// BackgroundColor parses Render.Background
func (c *Config) BackgroundColor() (color.NRGBA, error) {
	return render.ParseHexColor(c.Render.Background)
}

// FrameInterval is the period of the render loop
func (c *Config) FrameInterval() time.Duration {
	if c.Render.FPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.Render.FPS)
}

// WatchEnabled reports whether file watching is on
func (c *Config) WatchEnabled() bool {
	return c.Watch.Enabled == nil || *c.Watch.Enabled
}

// Capturer builds the thumbnail capturer for the capture section
func (c *Config) Capturer() (*thumbnail.Capturer, error) {
	codec, err := thumbnail.CodecFor(c.Capture.Format)
	if err != nil {
		return nil, err
	}
	capturer := thumbnail.NewCapturer()
	capturer.Codec = codec
	if c.Capture.Edge > 0 {
		capturer.Edge = c.Capture.Edge
	}
	return capturer, nil
}
