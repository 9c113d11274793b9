package engine

import (
	"errors"
	stdmath "math"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"go.uber.org/zap"

	"github.com/Faultbox/lightbake/pkg/bvh"
	"github.com/Faultbox/lightbake/pkg/math"
	"github.com/Faultbox/lightbake/pkg/scene"
	"github.com/Faultbox/lightbake/pkg/target"
)

// Config holds the lighting parameters of a Lightmapper.
type Config struct {
	SunLongitude float32    // degrees around +Y
	SunLatitude  float32    // degrees above the horizon
	SunColor     [3]float32 // radiance arriving from the sun
	SkyColor     [3]float32 // radiance of an unoccluded sky hemisphere
	Ambient      [3]float32 // constant term added everywhere

	AOSamples int     // hemisphere rays per texel, 0 disables sky occlusion
	AORadius  float32 // occluders further than this do not darken

	// Bias offsets ray origins along the surface normal to avoid
	// self-intersection.
	Bias     float32
	Dilation int // edge dilation passes
	Workers  int // 0 means runtime.NumCPU()
	Seed     uint64

	// Background is written to texels no triangle covers.
	Background [4]float32
}

// DefaultConfig returns the lighting used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		SunLongitude: 45,
		SunLatitude:  50,
		SunColor:     [3]float32{1, 0.95, 0.85},
		SkyColor:     [3]float32{0.35, 0.4, 0.5},
		Ambient:      [3]float32{0.05, 0.05, 0.05},
		AOSamples:    32,
		AORadius:     2,
		Bias:         1e-3,
		Dilation:     2,
		Seed:         1,
	}
}

// Lightmapper is a CPU engine computing direct sun light with ray-traced
// shadows plus sky occlusion. It is safe for concurrent use.
type Lightmapper struct {
	cfg Config
	log *zap.Logger

	mu     sync.Mutex
	cached weak.Pointer[scene.Scene] // does not keep a discarded scene alive
	tree   *bvh.BVH
}

// NewLightmapper returns a Lightmapper. A nil log discards output.
func NewLightmapper(cfg Config, log *zap.Logger) *Lightmapper {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Lightmapper{cfg: cfg, log: log}
}

// Config returns the effective configuration.
func (l *Lightmapper) Config() Config {
	return l.cfg
}

// ComputeLightmap implements Engine.
func (l *Lightmapper) ComputeLightmap(sc *scene.Scene, tgt *target.Target) error {
	if !sc.HasUVs {
		return ErrNoLightmapUVs
	}
	tree, err := l.accel(sc)
	if err != nil {
		return err
	}

	start := time.Now()
	g := newGBuffer(tgt.Width, tgt.Height)
	covered := g.rasterize(sc)

	colors := make([][4]float32, len(g.samples))
	mask := make([]bool, len(g.samples))
	l.shade(g, tree, colors, mask)
	dilate(colors, mask, g.width, g.height, l.cfg.Dilation)

	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			i := y*g.width + x
			if mask[i] {
				tgt.SetTexel(x, y, colors[i])
			} else {
				tgt.SetTexel(x, y, l.cfg.Background)
			}
		}
	}

	l.log.Debug("lightmap computed",
		zap.Int("width", tgt.Width),
		zap.Int("height", tgt.Height),
		zap.Stringer("format", tgt.Format),
		zap.Int("triangles", sc.TriangleCount()),
		zap.Int("covered", covered),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// accel returns the BVH for sc, reusing the last one when the same snapshot
// is baked again.
func (l *Lightmapper) accel(sc *scene.Scene) (*bvh.BVH, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tree != nil && l.cached.Value() == sc {
		return l.tree, nil
	}
	tree, err := bvh.Build(sc)
	if err != nil {
		if errors.Is(err, bvh.ErrEmptyMesh) {
			return nil, ErrEmptyScene
		}
		return nil, err
	}
	l.cached, l.tree = weak.Make(sc), tree
	l.log.Debug("bvh built", zap.Int("nodes", len(tree.Nodes)))
	return tree, nil
}

// shade fills colors for every covered texel. Rows are distributed over a
// worker pool.
func (l *Lightmapper) shade(g *gbuffer, tree *bvh.BVH, colors [][4]float32, mask []bool) {
	sun := SunDirection(l.cfg.SunLongitude, l.cfg.SunLatitude)
	rows := make(chan int, l.cfg.Workers*2)
	var shaded atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < l.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pcg := rand.NewPCG(0, 0)
			rng := rand.New(pcg)
			for y := range rows {
				for x := 0; x < g.width; x++ {
					i := y*g.width + x
					s := &g.samples[i]
					if !s.covered {
						continue
					}
					// Seeding per texel keeps results independent of scheduling.
					pcg.Seed(l.cfg.Seed, uint64(i))
					colors[i] = l.radiance(s, tree, sun, rng)
					mask[i] = true
					shaded.Add(1)
				}
			}
		}()
	}

	for y := 0; y < g.height; y++ {
		rows <- y
	}
	close(rows)
	wg.Wait()

	l.log.Debug("texels shaded", zap.Int64("count", shaded.Load()), zap.Int("workers", l.cfg.Workers))
}

func (l *Lightmapper) radiance(s *sample, tree *bvh.BVH, sun math.Vec3, rng *rand.Rand) [4]float32 {
	n := s.normal
	origin := s.position.Add(n.Scale(l.cfg.Bias))

	light := math.Vec3{X: l.cfg.Ambient[0], Y: l.cfg.Ambient[1], Z: l.cfg.Ambient[2]}

	if cos := n.Dot(sun); cos > 0 {
		if !tree.Occluded(math.Ray{Origin: origin, Dir: sun}, float32(stdmath.Inf(1))) {
			sunColor := math.Vec3{X: l.cfg.SunColor[0], Y: l.cfg.SunColor[1], Z: l.cfg.SunColor[2]}
			light = light.Add(sunColor.Scale(cos))
		}
	}

	sky := math.Vec3{X: l.cfg.SkyColor[0], Y: l.cfg.SkyColor[1], Z: l.cfg.SkyColor[2]}
	light = light.Add(sky.Scale(l.skyVisibility(origin, n, tree, rng)))

	return [4]float32{light.X, light.Y, light.Z, 1}
}

// skyVisibility returns the fraction of cosine-weighted hemisphere rays
// around n that escape within AORadius. Without samples the sky is fully
// visible.
func (l *Lightmapper) skyVisibility(origin, n math.Vec3, tree *bvh.BVH, rng *rand.Rand) float32 {
	if l.cfg.AOSamples <= 0 {
		return 1
	}
	t, b := n.Basis()
	open := 0
	for range l.cfg.AOSamples {
		dir := cosineHemisphere(rng.Float32(), rng.Float32())
		world := t.Scale(dir.X).Add(b.Scale(dir.Y)).Add(n.Scale(dir.Z))
		if !tree.Occluded(math.Ray{Origin: origin, Dir: world}, l.cfg.AORadius) {
			open++
		}
	}
	return float32(open) / float32(l.cfg.AOSamples)
}

// cosineHemisphere maps two uniform numbers to a direction around +Z with
// density proportional to the cosine of its angle to +Z.
func cosineHemisphere(u1, u2 float32) math.Vec3 {
	r := float32(stdmath.Sqrt(float64(u1)))
	phi := 2 * stdmath.Pi * float64(u2)
	return math.Vec3{
		X: r * float32(stdmath.Cos(phi)),
		Y: r * float32(stdmath.Sin(phi)),
		Z: float32(stdmath.Sqrt(float64(max(0, 1-u1)))),
	}
}
