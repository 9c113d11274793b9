package config

import "flag"

// Flags are the command-line overrides of a Config. Zero values leave the
// config untouched.
type Flags struct {
	config  *string
	debug   *bool
	engine  *string
	width   *int
	height  *int
	format  *string
	shape   *string
	output  *string
	scale   *int
	samples *int
	workers *int
}

// RegisterFlags defines the config flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		config:  fs.String("config", "", "Path to config file"),
		debug:   fs.Bool("debug", false, "Enable debug logging"),
		engine:  fs.String("engine", "", "Baking engine (lightmapper, constant)"),
		width:   fs.Int("width", 0, "Lightmap width"),
		height:  fs.Int("height", 0, "Lightmap height"),
		format:  fs.String("format", "", "Pixel format (r8, rgba8, r32f, rgba32f)"),
		shape:   fs.String("shape", "", "Built-in mesh to bake"),
		output:  fs.String("o", "", "Output image (.png, .webp, .tga)"),
		scale:   fs.Int("scale", 0, "Resample the written image by this factor"),
		samples: fs.Int("samples", -1, "Sky occlusion rays per texel"),
		workers: fs.Int("workers", 0, "Shading workers (0 = all CPUs)"),
	}
}

// ConfigPath returns the explicit config path if provided via --config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.engine != "" {
		cfg.Engine.Name = *f.engine
	}
	if *f.width > 0 {
		cfg.Bake.Width = *f.width
	}
	if *f.height > 0 {
		cfg.Bake.Height = *f.height
	}
	if *f.format != "" {
		cfg.Bake.Format = *f.format
	}
	if *f.shape != "" {
		cfg.Bake.Shape = *f.shape
	}
	if *f.output != "" {
		cfg.Output.Path = *f.output
	}
	if *f.scale > 0 {
		cfg.Output.Scale = *f.scale
	}
	if *f.samples >= 0 {
		cfg.Engine.AOSamples = *f.samples
	}
	if *f.workers > 0 {
		cfg.Engine.Workers = *f.workers
	}
}
