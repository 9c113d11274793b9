// lightbake is a CLI for baking lightmaps of built-in meshes.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/lightbake/internal/bridge"
	"github.com/Faultbox/lightbake/internal/config"
	"github.com/Faultbox/lightbake/internal/export"
	"github.com/Faultbox/lightbake/internal/logger"
	"github.com/Faultbox/lightbake/pkg/shapes"
	"github.com/Faultbox/lightbake/pkg/target"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "bake":
		cmdBake(args)
	case "shapes", "ls":
		cmdShapes(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`lightbake - lightmap baker

Usage:
  lightbake <command> [options]

Commands:
  bake [options]            Bake a built-in mesh and write the lightmap
  shapes                    List built-in meshes
  config [-o path]          Write the default config file

Bake options:
  -config <file>            Config file (default: ./lightbake.yaml)
  -shape <name>             Mesh to bake (default: box-on-plane)
  -width, -height <n>       Lightmap size
  -format <f>               r8, rgba8, r32f or rgba32f
  -engine <name>            lightmapper or constant
  -samples <n>              Sky occlusion rays per texel
  -o <file>                 Output image (.png, .webp, .tga)
  -scale <n>                Resample the written image
  -debug                    Enable debug logging

Examples:
  lightbake bake -shape plane -o plane.png
  lightbake bake -width 512 -height 512 -samples 128 -o box.webp
  lightbake config -o ./lightbake.yaml`)
}

func cmdBake(args []string) {
	fs := flag.NewFlagSet("bake", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fatalf("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("invalid config: %v", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	logger.Debug("config loaded",
		zap.String("path", flags.ConfigPath()),
		zap.Int("width", cfg.Bake.Width),
		zap.Int("height", cfg.Bake.Height),
		zap.String("format", cfg.Bake.Format))

	mesh, ok := shapes.ByName(cfg.Bake.Shape)
	if !ok {
		fatalf("unknown shape %q (have %s)", cfg.Bake.Shape, strings.Join(shapes.Names(), ", "))
	}
	desc, err := mesh.Descriptor()
	if err != nil {
		fatalf("%v", err)
	}
	format, _ := cfg.Bake.PixelFormat()
	if format.IsFloat() {
		logger.Warn("float lightmap is clamped to 8 bits on export", zap.String("output", cfg.Output.Path))
	}

	eng := cfg.Engine.NewEngine(logger.Named("engine"))
	b := bridge.New(eng, logger.Named("bridge"))
	b.Init()

	if err := b.SetMeshData(desc); err != nil {
		logger.Fatal("set mesh data", zap.Error(err))
	}

	tgt, err := target.Alloc(uint32(cfg.Bake.Width), uint32(cfg.Bake.Height), format)
	if err != nil {
		logger.Fatal("allocate lightmap", zap.Error(err))
	}

	start := time.Now()
	if err := b.Bake(tgt); err != nil {
		logger.Fatal("bake failed", zap.Error(err))
	}
	logger.Info("baked",
		zap.String("shape", cfg.Bake.Shape),
		zap.String("engine", cfg.Engine.Name),
		zap.Int("triangles", len(mesh.Indices)/3),
		zap.Duration("elapsed", time.Since(start)))

	img := export.Scale(export.ToImage(tgt), cfg.Output.Scale)
	if err := export.Write(cfg.Output.Path, img); err != nil {
		logger.Error("write lightmap", zap.String("path", cfg.Output.Path), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	fmt.Printf("Shape:    %s (%d triangles)\n", cfg.Bake.Shape, len(mesh.Indices)/3)
	fmt.Printf("Lightmap: %dx%d %s\n", tgt.Width, tgt.Height, tgt.Format)
	fmt.Printf("Checksum: %08x\n", tgt.Checksum())
	fmt.Printf("Output:   %s\n", cfg.Output.Path)
}

func cmdShapes(args []string) {
	for _, name := range shapes.Names() {
		m, _ := shapes.ByName(name)
		fmt.Printf("  %-14s %3d vertices %3d triangles\n", name, m.VertexCount(), len(m.Indices)/3)
	}
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	out := fs.String("o", "", "Output path (default: user config directory)")
	fs.Parse(args)

	cfg := config.Default()
	var err error
	path := *out
	if path == "" {
		path = filepath.Join(config.ConfigDir(), config.FileName)
		err = cfg.Save()
	} else {
		err = cfg.SaveTo(path)
	}
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Wrote %s\n", path)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
