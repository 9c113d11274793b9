package abi

import (
	"github.com/Faultbox/lightbake/internal/bridge"
	"github.com/Faultbox/lightbake/pkg/scene"
	"github.com/Faultbox/lightbake/pkg/target"
)

// Baker is the part of a bridge or session the boundary calls into.
type Baker interface {
	SetMeshData(d scene.Descriptor) error
	BakeInto(width, height uint32, format target.Format, pix []byte) error
}

// Library implements the exported C entry points on top of a Bridge. The
// handle-less calls use the bridge's default session.
type Library struct {
	Bridge *bridge.Bridge
}

// Init resets the default session. It cannot fail.
func (l *Library) Init() Status {
	l.Bridge.Init()
	return StatusOK
}

// SetMeshData loads m into the default session.
func (l *Library) SetMeshData(m Mesh) Status {
	return SetMeshData(l.Bridge, m)
}

// Bake bakes into img with the default session.
func (l *Library) Bake(img Image) Status {
	return Bake(l.Bridge, img)
}

// Open creates a session and returns its handle.
func (l *Library) Open() bridge.Handle {
	return l.Bridge.Open()
}

// Close destroys the session h.
func (l *Library) Close(h bridge.Handle) Status {
	return StatusOf(l.Bridge.Close(h))
}

// SessionSetMeshData loads m into session h.
func (l *Library) SessionSetMeshData(h bridge.Handle, m Mesh) Status {
	s, err := l.Bridge.Session(h)
	if err != nil {
		return StatusOf(err)
	}
	return SetMeshData(s, m)
}

// SessionBake bakes into img with session h.
func (l *Library) SessionBake(h bridge.Handle, img Image) Status {
	s, err := l.Bridge.Session(h)
	if err != nil {
		return StatusOf(err)
	}
	return Bake(s, img)
}

// SetMeshData converts m and hands it to dst. A nil m reports a missing
// attribute.
func SetMeshData(dst Baker, m Mesh) Status {
	if m == nil {
		return StatusMissingRequiredAttribute
	}
	d, err := m.Descriptor()
	if err != nil {
		return StatusOf(err)
	}
	return StatusOf(dst.SetMeshData(d))
}

// Bake hands the buffer described by img to dst. A nil img reports a null
// image.
func Bake(dst Baker, img Image) Status {
	if img == nil {
		return StatusNullImage
	}
	w, h, f, pix := img.Buffer()
	return StatusOf(dst.BakeInto(w, h, f, pix))
}
