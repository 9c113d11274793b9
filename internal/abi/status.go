package abi

import (
	"errors"

	"github.com/Faultbox/lightbake/internal/bridge"
	"github.com/Faultbox/lightbake/internal/engine"
	"github.com/Faultbox/lightbake/pkg/attrib"
	"github.com/Faultbox/lightbake/pkg/scene"
	"github.com/Faultbox/lightbake/pkg/target"
)

// Status is the int32 result of every exported call. Values are part of
// the ABI and never change meaning.
type Status int32

const (
	StatusOK Status = 0

	// Initialization and state.
	StatusNotInitialized Status = 1
	StatusNoMeshLoaded   Status = 2
	StatusBusy           Status = 3
	StatusInvalidHandle  Status = 4

	// Mesh validation.
	StatusMissingRequiredAttribute Status = 10
	StatusVertexCountMismatch      Status = 11
	StatusIndexCountMismatch       Status = 12
	StatusDegenerateTopology       Status = 13
	StatusIndexOutOfBounds         Status = 14
	StatusNonFinite                Status = 15
	StatusInvalidLayout            Status = 16
	StatusNullAttribute            Status = 17

	// Image validation.
	StatusBufferTooSmall Status = 20
	StatusNullImage      Status = 21
	StatusUnknownFormat  Status = 22

	// Engine.
	StatusEngine        Status = 30
	StatusEnginePanic   Status = 31
	StatusNoLightmapUVs Status = 32

	StatusUnknown Status = -1
)

var statusErrors = []struct {
	status Status
	err    error
}{
	{StatusNotInitialized, bridge.ErrNotInitialized},
	{StatusNoMeshLoaded, bridge.ErrNoMeshLoaded},
	{StatusBusy, bridge.ErrBusy},
	{StatusInvalidHandle, bridge.ErrInvalidHandle},
	{StatusMissingRequiredAttribute, scene.ErrMissingRequiredAttribute},
	{StatusVertexCountMismatch, scene.ErrVertexCountMismatch},
	{StatusIndexCountMismatch, scene.ErrIndexCountMismatch},
	{StatusDegenerateTopology, scene.ErrDegenerateTopology},
	{StatusIndexOutOfBounds, scene.ErrIndexOutOfBounds},
	{StatusNonFinite, scene.ErrNonFinite},
	{StatusInvalidLayout, attrib.ErrInvalidLayout},
	{StatusNullAttribute, attrib.ErrNullBuffer},
	{StatusBufferTooSmall, target.ErrBufferTooSmall},
	{StatusNullImage, target.ErrNullBuffer},
	{StatusUnknownFormat, target.ErrUnknownFormat},
	{StatusEnginePanic, bridge.ErrEnginePanic},
	{StatusNoLightmapUVs, engine.ErrNoLightmapUVs},
}

// StatusOf maps an error to its status code.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	for _, se := range statusErrors {
		if errors.Is(err, se.err) {
			return se.status
		}
	}
	if bridge.KindOf(err) == bridge.KindEngine {
		return StatusEngine
	}
	return StatusUnknown
}

// String returns a short description of s, as returned to C hosts by
// albedo_status_string.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEngine:
		return "baking engine failed"
	case StatusUnknown:
		return "unknown error"
	}
	for _, se := range statusErrors {
		if se.status == s {
			return se.err.Error()
		}
	}
	return "invalid status"
}
