// Package config holds runtime settings. Defaults are overlaid from an
// optional INI file and then from command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/litescript/ls-textmoc/internal/region"
	"github.com/litescript/ls-textmoc/internal/session"
)

// Limits applied by Validate.
const (
	MinDuration = 5
	MaxDuration = 600
	MinFov      = 1.0
	MaxFov      = 360.0
)

// Config is the full application configuration.
type Config struct {
	LogLevel string
	LogFile  string

	Regions RegionsConfig
	Display DisplayConfig
	Game    GameConfig
	Audio   AudioConfig
	Server  ServerConfig
	Store   StoreConfig
}

// RegionsConfig selects the region source and its drawing style.
type RegionsConfig struct {
	Source    string
	Timeout   time.Duration
	Color     string
	Opacity   float64
	LineWidth int
	Fill      bool
	Perimeter bool
}

// DisplayConfig controls the sky map.
type DisplayConfig struct {
	CenterLon    float64
	CenterLat    float64
	FovDeg       float64
	ShowStars    bool
	StarMagLimit float64
	ShowGrid     bool
	ShowLabels   bool
	GameColor    string // single colour for every region during a game
}

// GameConfig holds the mode and game rules.
type GameConfig struct {
	Mode           string
	Duration       int
	TargetPoints   int
	WarningSeconds int
}

// AudioConfig controls cue playback.
type AudioConfig struct {
	Enabled    bool
	Volume     float64
	SampleRate int
}

// ServerConfig controls service mode. A non-empty Addr serves HTTP and
// WebSocket instead of running the TUI.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	WriteTimeout   time.Duration
}

// StoreConfig points at the score database. An empty path disables it.
type StoreConfig struct {
	Path string
}

// Default returns the built-in configuration.
func Default() Config {
	style := region.DefaultStyle()
	game := session.DefaultConfig()
	return Config{
		LogLevel: "info",
		Regions: RegionsConfig{
			Source:    "regions.json",
			Timeout:   region.DefaultTimeout,
			Color:     style.Color,
			Opacity:   style.Opacity,
			LineWidth: style.LineWidth,
			Fill:      style.Fill,
			Perimeter: style.Perimeter,
		},
		Display: DisplayConfig{
			FovDeg:       360,
			ShowStars:    true,
			StarMagLimit: 2.0,
			ShowGrid:     true,
			ShowLabels:   true,
			GameColor:    "#3B82F6",
		},
		Game: GameConfig{
			Mode:           session.ModeExplore.String(),
			Duration:       game.Duration,
			TargetPoints:   game.TargetPoints,
			WarningSeconds: game.WarningSeconds,
		},
		Audio: AudioConfig{
			Enabled:    true,
			Volume:     0.6,
			SampleRate: 44100,
		},
		Server: ServerConfig{
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Load returns Default overlaid with the INI file at path. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := ini.LoadSources(ini.LoadOptions{
		InsensitiveSections:     true,
		InsensitiveKeys:         true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.apply(f)
	return cfg, nil
}

// Parse overlays INI content onto the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	f, err := ini.LoadSources(ini.LoadOptions{
		InsensitiveSections:     true,
		InsensitiveKeys:         true,
		SkipUnrecognizableLines: true,
	}, data)
	if err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.apply(f)
	return cfg, nil
}

func (c *Config) apply(f *ini.File) {
	def := f.Section(ini.DefaultSection)
	c.LogLevel = def.Key("log_level").MustString(c.LogLevel)
	c.LogFile = def.Key("log_file").MustString(c.LogFile)

	r := f.Section("regions")
	c.Regions.Source = r.Key("source").MustString(c.Regions.Source)
	c.Regions.Timeout = r.Key("timeout").MustDuration(c.Regions.Timeout)
	c.Regions.Color = r.Key("color").MustString(c.Regions.Color)
	c.Regions.Opacity = r.Key("opacity").MustFloat64(c.Regions.Opacity)
	c.Regions.LineWidth = r.Key("line_width").MustInt(c.Regions.LineWidth)
	c.Regions.Fill = r.Key("fill").MustBool(c.Regions.Fill)
	c.Regions.Perimeter = r.Key("perimeter").MustBool(c.Regions.Perimeter)

	d := f.Section("display")
	c.Display.CenterLon = d.Key("center_lon").MustFloat64(c.Display.CenterLon)
	c.Display.CenterLat = d.Key("center_lat").MustFloat64(c.Display.CenterLat)
	c.Display.FovDeg = d.Key("fov").MustFloat64(c.Display.FovDeg)
	c.Display.ShowStars = d.Key("stars").MustBool(c.Display.ShowStars)
	c.Display.StarMagLimit = d.Key("star_mag_limit").MustFloat64(c.Display.StarMagLimit)
	c.Display.ShowGrid = d.Key("grid").MustBool(c.Display.ShowGrid)
	c.Display.ShowLabels = d.Key("labels").MustBool(c.Display.ShowLabels)
	c.Display.GameColor = d.Key("game_color").MustString(c.Display.GameColor)

	g := f.Section("game")
	c.Game.Mode = g.Key("mode").MustString(c.Game.Mode)
	c.Game.Duration = g.Key("duration").MustInt(c.Game.Duration)
	c.Game.TargetPoints = g.Key("target_points").MustInt(c.Game.TargetPoints)
	c.Game.WarningSeconds = g.Key("warning_seconds").MustInt(c.Game.WarningSeconds)

	a := f.Section("audio")
	c.Audio.Enabled = a.Key("enabled").MustBool(c.Audio.Enabled)
	c.Audio.Volume = a.Key("volume").MustFloat64(c.Audio.Volume)
	c.Audio.SampleRate = a.Key("sample_rate").MustInt(c.Audio.SampleRate)

	s := f.Section("server")
	c.Server.Addr = s.Key("addr").MustString(c.Server.Addr)
	c.Server.WriteTimeout = s.Key("write_timeout").MustDuration(c.Server.WriteTimeout)
	if s.HasKey("allowed_origins") {
		c.Server.AllowedOrigins = s.Key("allowed_origins").Strings(",")
	}

	c.Store.Path = f.Section("store").Key("path").MustString(c.Store.Path)
}

// Validate clamps out-of-range values and rejects unusable ones.
func (c *Config) Validate() error {
	if _, err := session.ParseMode(c.Game.Mode); err != nil {
		return fmt.Errorf("game.mode: %w", err)
	}
	c.Game.Mode = strings.ToLower(strings.TrimSpace(c.Game.Mode))
	if c.Game.Mode == "" {
		c.Game.Mode = session.ModeExplore.String()
	}

	c.Game.Duration = clampInt(c.Game.Duration, MinDuration, MaxDuration)
	if c.Game.TargetPoints < 1 {
		c.Game.TargetPoints = 1
	}
	c.Game.WarningSeconds = clampInt(c.Game.WarningSeconds, 0, c.Game.Duration)

	c.Regions.Opacity = clampFloat(c.Regions.Opacity, 0, 1)
	c.Regions.LineWidth = clampInt(c.Regions.LineWidth, 1, 3)
	if c.Regions.Timeout <= 0 {
		c.Regions.Timeout = region.DefaultTimeout
	}

	c.Display.FovDeg = clampFloat(c.Display.FovDeg, MinFov, MaxFov)
	c.Display.CenterLat = clampFloat(c.Display.CenterLat, -90, 90)
	c.Display.StarMagLimit = clampFloat(c.Display.StarMagLimit, -2, 6)

	c.Audio.Volume = clampFloat(c.Audio.Volume, 0, 1)
	if c.Audio.SampleRate < 8000 {
		c.Audio.SampleRate = 44100
	}

	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 5 * time.Second
	}
	return nil
}

// Mode returns the parsed session mode.
func (c Config) Mode() session.Mode {
	m, _ := session.ParseMode(c.Game.Mode)
	return m
}

// Session returns the game rules for the session package.
func (c Config) Session() session.Config {
	return session.Config{
		Duration:       c.Game.Duration,
		TargetPoints:   c.Game.TargetPoints,
		WarningSeconds: c.Game.WarningSeconds,
	}
}

// Style returns the base drawing style for loaded regions.
func (c Config) Style() region.Style {
	return region.Style{
		Color:     c.Regions.Color,
		Opacity:   c.Regions.Opacity,
		LineWidth: c.Regions.LineWidth,
		Fill:      c.Regions.Fill,
		Perimeter: c.Regions.Perimeter,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
