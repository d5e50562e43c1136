package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the validated application configuration. It is loaded once at
// startup; nothing reads the file again afterwards.
type Config struct {
	Device    Device        `mapstructure:"device"`
	Canvas    Canvas        `mapstructure:"canvas"`
	Tick      time.Duration `mapstructure:"tick"`
	Metrics   Metrics       `mapstructure:"metrics"`
	Reconnect Reconnect     `mapstructure:"reconnect"`
	Log       Log           `mapstructure:"log"`
	Widgets   []Widget      `mapstructure:"widgets"`
}

type Device struct {
	// Selector is "vid:pid", "vid:pid/serial" or a bare serial; empty
	// matches the first AX206 panel.
	Selector    string `mapstructure:"selector"`
	Backlight   int    `mapstructure:"backlight"`
	Orientation string `mapstructure:"orientation"`
}

type Canvas struct {
	Width      int    `mapstructure:"width"`
	Height     int    `mapstructure:"height"`
	Background string `mapstructure:"background"`
}

type Metrics struct {
	Interval     time.Duration `mapstructure:"interval"`
	HistoryDepth int           `mapstructure:"history_depth"`
	Mounts       []string      `mapstructure:"mounts"`
	Networks     []string      `mapstructure:"networks"`
	// Sensors maps a temperature sensor key substring to the field suffix
	// the dashboard binds to, e.g. k10temp: cpu exposes temp_cpu.
	Sensors map[string]string `mapstructure:"sensors"`
}

type Reconnect struct {
	Initial time.Duration `mapstructure:"initial"`
	Max     time.Duration `mapstructure:"max"`
	// LogEvery throttles persistent-absence logging to one line per this
	// many failed attempts.
	LogEvery int `mapstructure:"log_every"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// Widget is the raw, file-shaped description of one dashboard element. The
// layout package turns these into the validated widget tree.
type Widget struct {
	Kind     string  `mapstructure:"kind"`
	X        int     `mapstructure:"x"`
	Y        int     `mapstructure:"y"`
	W        int     `mapstructure:"w"`
	H        int     `mapstructure:"h"`
	Field    string  `mapstructure:"field"`
	Label    string  `mapstructure:"label"`
	Format   string  `mapstructure:"format"`
	Min      float64 `mapstructure:"min"`
	Max      float64 `mapstructure:"max"`
	Color    string  `mapstructure:"color"`
	FontSize float64 `mapstructure:"font_size"`
	Bold     bool    `mapstructure:"bold"`
	Resample string  `mapstructure:"resample"`
	Path     string  `mapstructure:"path"`
	Pattern  string  `mapstructure:"pattern"`
}

const envPrefix = "AX206DASH"

// Load reads and validates the config file at path. An empty path loads
// defaults only, which is enough for a stock dashboard.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.backlight", 4)
	v.SetDefault("device.orientation", "landscape")
	v.SetDefault("canvas.width", 480)
	v.SetDefault("canvas.height", 320)
	v.SetDefault("canvas.background", "#000000")
	v.SetDefault("tick", 2*time.Second)
	v.SetDefault("metrics.interval", 2*time.Second)
	v.SetDefault("metrics.history_depth", 60)
	v.SetDefault("metrics.mounts", []string{"/"})
	v.SetDefault("reconnect.initial", 1*time.Second)
	v.SetDefault("reconnect.max", 30*time.Second)
	v.SetDefault("reconnect.log_every", 10)
	v.SetDefault("log.level", "info")
}

// orientations maps config names to quarter turns clockwise.
var orientations = map[string]int{
	"landscape":         0,
	"portrait":          1,
	"landscape-flipped": 2,
	"portrait-flipped":  3,
}

// OrientationTurns resolves the configured orientation name.
func (d Device) OrientationTurns() int {
	return orientations[strings.ToLower(d.Orientation)]
}

func (c *Config) Validate() error {
	if c.Device.Backlight < 0 || c.Device.Backlight > 7 {
		return fmt.Errorf("device.backlight %d outside 0..7", c.Device.Backlight)
	}
	if _, ok := orientations[strings.ToLower(c.Device.Orientation)]; !ok {
		return fmt.Errorf("device.orientation %q: want landscape, portrait, landscape-flipped or portrait-flipped", c.Device.Orientation)
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas %dx%d: dimensions must be positive", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Tick <= 0 {
		return errors.New("tick must be > 0")
	}
	if c.Metrics.Interval <= 0 {
		return errors.New("metrics.interval must be > 0")
	}
	if c.Metrics.HistoryDepth < 2 {
		return errors.New("metrics.history_depth must be >= 2")
	}
	if c.Reconnect.Initial <= 0 {
		return errors.New("reconnect.initial must be > 0")
	}
	if c.Reconnect.Max < c.Reconnect.Initial {
		return errors.New("reconnect.max must be >= reconnect.initial")
	}
	if c.Reconnect.LogEvery < 1 {
		return errors.New("reconnect.log_every must be >= 1")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: want debug, info, warn or error", c.Log.Level)
	}
	return nil
}
