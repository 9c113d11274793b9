// Package bridge implements the lifecycle of a lightmap baking session: a
// mesh is validated and copied in, then baked into caller-owned images by a
// baking engine.
//
// Every operation fails with ErrBusy, without side effects, while another
// operation is running on the same session. This includes calls made from
// inside the engine during a bake.
package bridge

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/lightbake/internal/engine"
	"github.com/Faultbox/lightbake/pkg/scene"
	"github.com/Faultbox/lightbake/pkg/target"
)

// State is the lifecycle state of a session.
type State int32

const (
	StateUninitialized State = iota
	StateInitialized
	StateMeshLoaded
	StateBaking
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateMeshLoaded:
		return "mesh_loaded"
	case StateBaking:
		return "baking"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Stats counts what a session has done.
type Stats struct {
	Meshes       int // successful SetMeshData calls
	Bakes        int // successful bakes
	Failures     int // failed operations of any kind
	LastDuration time.Duration
}

// Session is one independent baking context.
type Session struct {
	engine engine.Engine
	log    *zap.Logger

	busy atomic.Bool

	mu    sync.Mutex // guards the fields below for concurrent readers
	state State
	scene *scene.Scene
	stats Stats
}

// NewSession returns an uninitialized session that bakes with eng.
func NewSession(eng engine.Engine, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{engine: eng, log: log}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a copy of the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Scene returns the held scene snapshot, or nil when no mesh is loaded.
func (s *Session) Scene() *scene.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene
}

// Init moves the session to StateInitialized and drops any loaded mesh. It
// may be called any number of times.
func (s *Session) Init() error {
	if !s.busy.CompareAndSwap(false, true) {
		return s.fail("init", KindState, ErrBusy)
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	s.scene = nil
	s.mu.Unlock()
	s.transition(StateInitialized)
	return nil
}

// SetMeshData validates d and replaces the held scene with a deep copy of
// it. d's buffers are not referenced after the call returns. On failure the
// session is left exactly as it was.
func (s *Session) SetMeshData(d scene.Descriptor) error {
	const op = "set_mesh_data"
	if !s.busy.CompareAndSwap(false, true) {
		return s.fail(op, KindState, ErrBusy)
	}
	defer s.busy.Store(false)

	if s.State() == StateUninitialized {
		return s.fail(op, KindInitialization, ErrNotInitialized)
	}

	sc, err := scene.Build(d)
	if err != nil {
		return s.fail(op, KindValidation, err)
	}

	s.mu.Lock()
	s.scene = sc
	s.stats.Meshes++
	s.mu.Unlock()
	s.transition(StateMeshLoaded)

	s.log.Debug("mesh loaded",
		zap.Int("vertices", len(sc.Vertices)),
		zap.Int("triangles", sc.TriangleCount()),
		zap.Bool("uvs", sc.HasUVs),
		zap.Bool("generated_normals", sc.GeneratedNormals),
	)
	return nil
}

// Bake runs the engine over the held scene, writing into tgt. State errors
// are reported before tgt is looked at. tgt is validated like target.New,
// and nothing is written on any error other than an engine failure.
func (s *Session) Bake(tgt *target.Target) error {
	const op = "bake"
	if !s.busy.CompareAndSwap(false, true) {
		return s.fail(op, KindState, ErrBusy)
	}
	defer s.busy.Store(false)

	sc, err := s.bakeable()
	if err != nil {
		return s.fail(op, KindOf(err), err)
	}
	if tgt == nil {
		return s.fail(op, KindValidation, target.ErrNullBuffer)
	}
	checked, err := tgt.Validated()
	if err != nil {
		return s.fail(op, KindValidation, err)
	}
	return s.run(sc, checked)
}

// BakeInto is Bake for a raw pixel buffer. The buffer is validated after the
// session state, so a bake before any mesh reports ErrNoMeshLoaded whatever
// the buffer.
func (s *Session) BakeInto(width, height uint32, format target.Format, pix []byte) error {
	const op = "bake"
	if !s.busy.CompareAndSwap(false, true) {
		return s.fail(op, KindState, ErrBusy)
	}
	defer s.busy.Store(false)

	sc, err := s.bakeable()
	if err != nil {
		return s.fail(op, KindOf(err), err)
	}
	tgt, err := target.New(width, height, format, pix)
	if err != nil {
		return s.fail(op, KindValidation, err)
	}
	return s.run(sc, tgt)
}

// bakeable returns the held scene or the state error that forbids a bake.
func (s *Session) bakeable() (*scene.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateUninitialized:
		return nil, &Error{Op: "bake", Kind: KindInitialization, Err: ErrNotInitialized}
	case StateInitialized:
		return nil, &Error{Op: "bake", Kind: KindState, Err: ErrNoMeshLoaded}
	}
	return s.scene, nil
}

func (s *Session) run(sc *scene.Scene, tgt *target.Target) (err error) {
	s.transition(StateBaking)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrEnginePanic, r)
		}
		elapsed := time.Since(start)

		s.mu.Lock()
		s.stats.LastDuration = elapsed
		if err == nil {
			s.stats.Bakes++
		}
		s.mu.Unlock()
		s.transition(StateMeshLoaded)

		if err != nil {
			err = s.fail("bake", KindEngine, err)
			return
		}
		s.log.Info("bake complete",
			zap.Int("width", tgt.Width),
			zap.Int("height", tgt.Height),
			zap.Stringer("format", tgt.Format),
			zap.Duration("elapsed", elapsed),
		)
	}()

	return s.engine.ComputeLightmap(sc, tgt)
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	if from != to {
		s.log.Debug("state transition", zap.Stringer("from", from), zap.Stringer("to", to))
	}
}

// fail records a failed operation and returns it as an *Error. err may
// already be an *Error, in which case it is returned unchanged.
func (s *Session) fail(op string, kind Kind, err error) error {
	s.mu.Lock()
	s.stats.Failures++
	state := s.state
	s.mu.Unlock()

	if _, ok := err.(*Error); !ok {
		err = newError(op, kind, err)
	}
	s.log.Warn("operation failed",
		zap.String("op", op),
		zap.Stringer("state", state),
		zap.Error(err),
	)
	return err
}
