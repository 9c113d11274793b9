package bridge

import (
	"errors"
	"fmt"
)

// Bridge errors. Validation failures wrap the sentinels of the scene, target
// and attrib packages instead.
var (
	ErrNotInitialized = errors.New("bridge not initialized")
	ErrNoMeshLoaded   = errors.New("no mesh loaded")
	ErrBusy           = errors.New("bridge busy")
	ErrInvalidHandle  = errors.New("invalid session handle")
	ErrEnginePanic    = errors.New("baking engine panicked")
)

// Kind classifies bridge errors.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInitialization is a call made before the session was set up.
	KindInitialization
	// KindValidation is a malformed mesh or image buffer.
	KindValidation
	// KindState is an illegal call order or a reentrant call.
	KindState
	// KindEngine is an opaque failure of the baking engine.
	KindEngine
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindInitialization:
		return "initialization"
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindEngine:
		return "engine"
	default:
		return "unknown"
	}
}

// Error is returned by every failing bridge operation.
type Error struct {
	Op   string // "init", "set_mesh_data" or "bake"
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindUnknown when err did not come from
// the bridge.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(op string, kind Kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}
