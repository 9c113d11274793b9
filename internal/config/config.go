// Package config handles lightbake configuration loading and management.
package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/lightbake/internal/engine"
	"github.com/Faultbox/lightbake/pkg/target"
)

// Engine names.
const (
	EngineLightmapper = "lightmapper"
	EngineConstant    = "constant"
)

// MaxLightmapSize bounds the configured lightmap width and height.
const MaxLightmapSize = 16384

// Config holds all lightbake settings.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Bake    BakeConfig    `yaml:"bake"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig selects and tunes the baking engine.
type EngineConfig struct {
	Name string `yaml:"name"` // "lightmapper" or "constant"

	SunLongitude float32    `yaml:"sun_longitude"`
	SunLatitude  float32    `yaml:"sun_latitude"`
	SunColor     [3]float32 `yaml:"sun_color"`
	SkyColor     [3]float32 `yaml:"sky_color"`
	Ambient      [3]float32 `yaml:"ambient"`
	AOSamples    int        `yaml:"ao_samples"`
	AORadius     float32    `yaml:"ao_radius"`
	Bias         float32    `yaml:"bias"`
	Dilation     int        `yaml:"dilation"`
	Workers      int        `yaml:"workers"` // 0 = all CPUs
	Seed         uint64     `yaml:"seed"`

	// Color is the output of the constant engine.
	Color [4]float32 `yaml:"color"`
}

// BakeConfig describes the lightmap to produce.
type BakeConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Format string `yaml:"format"` // r8, rgba8, r32f, rgba32f
	Shape  string `yaml:"shape"`  // built-in mesh baked by the CLI
}

// OutputConfig controls image files written by the CLI.
type OutputConfig struct {
	Path  string `yaml:"path"`  // .png, .webp or .tga
	Scale int    `yaml:"scale"` // resample factor applied when writing, 1 = none
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	lm := engine.DefaultConfig()
	return &Config{
		Engine: EngineConfig{
			Name:         EngineLightmapper,
			SunLongitude: lm.SunLongitude,
			SunLatitude:  lm.SunLatitude,
			SunColor:     lm.SunColor,
			SkyColor:     lm.SkyColor,
			Ambient:      lm.Ambient,
			AOSamples:    lm.AOSamples,
			AORadius:     lm.AORadius,
			Bias:         lm.Bias,
			Dilation:     lm.Dilation,
			Seed:         lm.Seed,
			Color:        [4]float32{1, 1, 1, 1},
		},
		Bake: BakeConfig{
			Width:  256,
			Height: 256,
			Format: "rgba8",
			Shape:  "box-on-plane",
		},
		Output: OutputConfig{
			Path:  "lightmap.png",
			Scale: 1,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings that cannot be baked with.
func (c *Config) Validate() error {
	switch c.Engine.Name {
	case EngineLightmapper, EngineConstant:
	default:
		return fmt.Errorf("unknown engine %q", c.Engine.Name)
	}
	if c.Bake.Width <= 0 || c.Bake.Height <= 0 ||
		c.Bake.Width > MaxLightmapSize || c.Bake.Height > MaxLightmapSize {
		return fmt.Errorf("invalid lightmap size %dx%d", c.Bake.Width, c.Bake.Height)
	}
	if _, err := c.Bake.PixelFormat(); err != nil {
		return err
	}
	if c.Output.Scale < 1 {
		return fmt.Errorf("invalid output scale %d", c.Output.Scale)
	}
	return nil
}

// PixelFormat parses Format.
func (b BakeConfig) PixelFormat() (target.Format, error) {
	return target.ParseFormat(b.Format)
}

// Lightmapper returns the engine settings as a Lightmapper configuration.
func (e EngineConfig) Lightmapper() engine.Config {
	return engine.Config{
		SunLongitude: e.SunLongitude,
		SunLatitude:  e.SunLatitude,
		SunColor:     e.SunColor,
		SkyColor:     e.SkyColor,
		Ambient:      e.Ambient,
		AOSamples:    e.AOSamples,
		AORadius:     e.AORadius,
		Bias:         e.Bias,
		Dilation:     e.Dilation,
		Workers:      e.Workers,
		Seed:         e.Seed,
	}
}

// NewEngine builds the engine selected by Name.
func (e EngineConfig) NewEngine(log *zap.Logger) engine.Engine {
	if e.Name == EngineConstant {
		return engine.Constant{Color: e.Color}
	}
	return engine.NewLightmapper(e.Lightmapper(), log)
}
