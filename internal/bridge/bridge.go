package bridge

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/lightbake/internal/engine"
	"github.com/Faultbox/lightbake/pkg/scene"
	"github.com/Faultbox/lightbake/pkg/target"
)

// Handle identifies a session inside a Bridge.
type Handle uint32

const (
	// InvalidHandle is never assigned.
	InvalidHandle Handle = 0
	// DefaultHandle is the session behind the handle-less Init, SetMeshData
	// and Bake calls.
	DefaultHandle Handle = 1
)

// Bridge is an arena of sessions keyed by handle. The handle-less methods
// operate on the default session and reproduce a single process-wide
// baking context.
type Bridge struct {
	engine engine.Engine
	log    *zap.Logger

	mu       sync.Mutex
	sessions map[Handle]*Session
	next     Handle
}

// New returns a bridge whose sessions bake with eng. No session exists
// until Init or Open is called.
func New(eng engine.Engine, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		engine:   eng,
		log:      log,
		sessions: make(map[Handle]*Session),
		next:     DefaultHandle + 1,
	}
}

// Init installs a fresh, initialized default session, dropping any mesh the
// previous one held. It never fails: a bake still running on the previous
// default session completes against that session's own snapshot.
func (b *Bridge) Init() {
	s := b.newSession(DefaultHandle)
	_ = s.Init() // a session nobody else has seen cannot be busy

	b.mu.Lock()
	b.sessions[DefaultHandle] = s
	b.mu.Unlock()
	b.log.Debug("default session initialized")
}

// SetMeshData calls SetMeshData on the default session.
func (b *Bridge) SetMeshData(d scene.Descriptor) error {
	s, err := b.Session(DefaultHandle)
	if err != nil {
		return newError("set_mesh_data", KindInitialization, ErrNotInitialized)
	}
	return s.SetMeshData(d)
}

// Bake calls Bake on the default session.
func (b *Bridge) Bake(tgt *target.Target) error {
	s, err := b.Session(DefaultHandle)
	if err != nil {
		return newError("bake", KindInitialization, ErrNotInitialized)
	}
	return s.Bake(tgt)
}

// BakeInto calls BakeInto on the default session.
func (b *Bridge) BakeInto(width, height uint32, format target.Format, pix []byte) error {
	s, err := b.Session(DefaultHandle)
	if err != nil {
		return newError("bake", KindInitialization, ErrNotInitialized)
	}
	return s.BakeInto(width, height, format, pix)
}

// Open creates a new initialized session and returns its handle.
func (b *Bridge) Open() Handle {
	b.mu.Lock()
	h := b.nextFree()
	s := b.newSession(h)
	_ = s.Init()
	b.sessions[h] = s
	b.mu.Unlock()
	b.log.Debug("session opened", zap.Uint32("handle", uint32(h)))
	return h
}

// nextFree returns the next handle not in use, skipping InvalidHandle and
// DefaultHandle when the counter wraps. b.mu must be held.
func (b *Bridge) nextFree() Handle {
	for {
		h := b.next
		b.next++
		if b.next == InvalidHandle {
			b.next = DefaultHandle + 1
		}
		if _, live := b.sessions[h]; !live {
			return h
		}
	}
}

// Close removes the session h. Closing DefaultHandle returns the handle-less
// API to the uninitialized state.
func (b *Bridge) Close(h Handle) error {
	b.mu.Lock()
	_, ok := b.sessions[h]
	delete(b.sessions, h)
	b.mu.Unlock()
	if !ok {
		return newError("close", KindInitialization, fmt.Errorf("%w: %d", ErrInvalidHandle, h))
	}
	b.log.Debug("session closed", zap.Uint32("handle", uint32(h)))
	return nil
}

// Session returns the session behind h.
func (b *Bridge) Session(h Handle) (*Session, error) {
	b.mu.Lock()
	s, ok := b.sessions[h]
	b.mu.Unlock()
	if !ok {
		return nil, newError("session", KindInitialization, fmt.Errorf("%w: %d", ErrInvalidHandle, h))
	}
	return s, nil
}

// Len returns the number of live sessions.
func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

func (b *Bridge) newSession(h Handle) *Session {
	return NewSession(b.engine, b.log.With(zap.Uint32("session", uint32(h))))
}
