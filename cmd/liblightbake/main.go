// liblightbake builds the lightbake C library:
//
//	go build -buildmode=c-shared -o liblightbake.so ./cmd/liblightbake
//
// The library reads the YAML file named by LIGHTBAKE_CONFIG, if set, when it
// is loaded. Logging goes to logging.log_file only; without one the library
// is silent.
package main

/*
#define LIGHTBAKE_BUILDING
#include "lightbake.h"
*/
import "C"

import (
	"path/filepath"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/Faultbox/lightbake/internal/abi"
	"github.com/Faultbox/lightbake/internal/bridge"
	"github.com/Faultbox/lightbake/internal/config"
	"github.com/Faultbox/lightbake/internal/logger"
)

var lib = newLibrary()

func newLibrary() *abi.Library {
	cfg, cfgErr := config.LoadEnv()
	if cfgErr != nil {
		cfg = config.Default()
	}
	// A configured log file that cannot be written falls back to the
	// library log in the user config directory, which records why.
	_, _ = logger.InitFileOnlyOr(cfg.Logging.Level, cfg.Logging.LogFile,
		filepath.Join(config.ConfigDir(), "liblightbake.log"))
	if cfgErr != nil {
		logger.Warn("using default config", zap.Error(cfgErr))
	} else if err := cfg.Validate(); err != nil {
		logger.Error("invalid config, using defaults", zap.Error(err))
		cfg = config.Default()
	}

	eng := cfg.Engine.NewEngine(logger.Named("engine"))
	return &abi.Library{Bridge: bridge.New(eng, logger.Named("bridge"))}
}

//export albedo_init
func albedo_init() C.int32_t {
	return C.int32_t(lib.Init())
}

//export albedo_set_mesh_data
func albedo_set_mesh_data(m *C.lightbake_mesh_v2) C.int32_t {
	var mesh abi.Mesh
	if m != nil {
		mesh = (*abi.MeshV2)(unsafe.Pointer(m))
	}
	return C.int32_t(lib.SetMeshData(mesh))
}

//export albedo_set_mesh_data_v1
func albedo_set_mesh_data_v1(m *C.lightbake_mesh_v1) C.int32_t {
	var mesh abi.Mesh
	if m != nil {
		mesh = (*abi.MeshV1)(unsafe.Pointer(m))
	}
	return C.int32_t(lib.SetMeshData(mesh))
}

//export albedo_set_mesh_data_v3
func albedo_set_mesh_data_v3(m *C.lightbake_mesh_v3) C.int32_t {
	var mesh abi.Mesh
	if m != nil {
		mesh = (*abi.MeshV3)(unsafe.Pointer(m))
	}
	return C.int32_t(lib.SetMeshData(mesh))
}

//export albedo_set_mesh_data_v4
func albedo_set_mesh_data_v4(m *C.lightbake_mesh_v4) C.int32_t {
	return C.int32_t(lib.SetMeshData(meshV4(m)))
}

//export albedo_bake
func albedo_bake(img *C.lightbake_image_slice) C.int32_t {
	return C.int32_t(lib.Bake(imageSlice(img)))
}

//export albedo_bake_f32
func albedo_bake_f32(img *C.lightbake_image_slice_f32) C.int32_t {
	var image abi.Image
	if img != nil {
		image = (*abi.ImageSliceF32)(unsafe.Pointer(img))
	}
	return C.int32_t(lib.Bake(image))
}

//export albedo_bake_u8
func albedo_bake_u8(img *C.lightbake_image_slice_u8) C.int32_t {
	var image abi.Image
	if img != nil {
		image = (*abi.ImageSliceU8)(unsafe.Pointer(img))
	}
	return C.int32_t(lib.Bake(image))
}

//export albedo_session_open
func albedo_session_open() C.lightbake_handle {
	return C.lightbake_handle(lib.Open())
}

//export albedo_session_close
func albedo_session_close(h C.lightbake_handle) C.int32_t {
	return C.int32_t(lib.Close(bridge.Handle(h)))
}

//export albedo_session_set_mesh_data
func albedo_session_set_mesh_data(h C.lightbake_handle, m *C.lightbake_mesh_v4) C.int32_t {
	return C.int32_t(lib.SessionSetMeshData(bridge.Handle(h), meshV4(m)))
}

//export albedo_session_bake
func albedo_session_bake(h C.lightbake_handle, img *C.lightbake_image_slice) C.int32_t {
	return C.int32_t(lib.SessionBake(bridge.Handle(h), imageSlice(img)))
}

var (
	statusMu      sync.Mutex
	statusStrings = make(map[abi.Status]*C.char)
)

//export albedo_status_string
func albedo_status_string(status C.int32_t) *C.char {
	s := abi.Status(status)

	statusMu.Lock()
	defer statusMu.Unlock()
	if cs, ok := statusStrings[s]; ok {
		return cs
	}
	// Allocated once per code and never freed.
	cs := C.CString(s.String())
	statusStrings[s] = cs
	return cs
}

// A nil C pointer must reach the adapters as a nil interface, not a typed
// nil.

func meshV4(m *C.lightbake_mesh_v4) abi.Mesh {
	if m == nil {
		return nil
	}
	return (*abi.MeshV4)(unsafe.Pointer(m))
}

func imageSlice(img *C.lightbake_image_slice) abi.Image {
	if img == nil {
		return nil
	}
	return (*abi.ImageSlice)(unsafe.Pointer(img))
}

func main() {}
