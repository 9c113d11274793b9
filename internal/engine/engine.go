// Package engine defines the baking engine contract and its implementations.
//
// An engine receives a validated scene snapshot and a validated output target
// and fills the target with lighting. Engines never retain either argument
// after ComputeLightmap returns.
package engine

import (
	"errors"

	"github.com/Faultbox/lightbake/pkg/scene"
	"github.com/Faultbox/lightbake/pkg/target"
)

// Engine errors.
var (
	ErrNoLightmapUVs = errors.New("scene has no lightmap texture coordinates")
	ErrEmptyScene    = errors.New("scene has no triangles")
)

// Engine computes a lightmap for a scene into a target.
type Engine interface {
	ComputeLightmap(sc *scene.Scene, tgt *target.Target) error
}

// Func adapts an ordinary function to the Engine interface.
type Func func(sc *scene.Scene, tgt *target.Target) error

// ComputeLightmap calls f(sc, tgt).
func (f Func) ComputeLightmap(sc *scene.Scene, tgt *target.Target) error {
	return f(sc, tgt)
}

// Constant fills every texel with one colour. It ignores the geometry.
type Constant struct {
	Color [4]float32
}

// ComputeLightmap implements Engine.
func (c Constant) ComputeLightmap(_ *scene.Scene, tgt *target.Target) error {
	tgt.Fill(c.Color)
	return nil
}
