package abi

import (
	"errors"
	"fmt"
	"testing"
	"unsafe"

	"github.com/Faultbox/lightbake/internal/bridge"
	"github.com/Faultbox/lightbake/internal/engine"
	"github.com/Faultbox/lightbake/pkg/attrib"
	"github.com/Faultbox/lightbake/pkg/scene"
	"github.com/Faultbox/lightbake/pkg/target"
)

var (
	positions = []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	normals   = []float32{0, 0, 1, 0, 0, 1, 0, 0, 1}
	uvs       = []float32{0, 0, 1, 0, 0, 1}
	triIdx    = []uint32{0, 1, 2}
)

// interleaved returns position(3) normal(3) uv(2) vertices, 32 bytes each.
func interleaved() []float32 {
	var buf []float32
	for i := 0; i < 3; i++ {
		buf = append(buf, positions[3*i:3*i+3]...)
		buf = append(buf, normals[3*i:3*i+3]...)
		buf = append(buf, uvs[2*i:2*i+2]...)
	}
	return buf
}

func bytePtr(f []float32, offset int) *byte {
	return (*byte)(unsafe.Pointer(&f[offset]))
}

func build(t *testing.T, m Mesh) *scene.Scene {
	t.Helper()
	d, err := m.Descriptor()
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	s, err := scene.Build(d)
	if err != nil {
		t.Fatalf("scene.Build: %v", err)
	}
	return s
}

func TestMeshRevisionsAgree(t *testing.T) {
	buf := interleaved()
	// Unorm8 UVs for the typed revision: 0 and 255 map exactly to 0 and 1.
	uv8 := []byte{0, 0, 255, 0, 0, 255}

	meshes := []struct {
		name   string
		mesh   Mesh
		layout attrib.Layout
		hasUV  bool
	}{
		{"v1", &MeshV1{
			Positions: &positions[0], Normals: &normals[0], Indices: &triIdx[0],
			VertexCount: 3, IndexCount: 3,
		}, attrib.LayoutTightFloat, false},
		{"v2", &MeshV2{
			Positions:   AttributeSlice{bytePtr(buf, 0), 32},
			Normals:     AttributeSlice{bytePtr(buf, 3), 32},
			UVs:         AttributeSlice{bytePtr(buf, 6), 32},
			Indices:     &triIdx[0],
			VertexCount: 3, IndexCount: 3,
		}, attrib.LayoutByteStride, true},
		{"v3", &MeshV3{
			Positions:   FloatSlice{&buf[0], 32},
			Normals:     FloatSlice{&buf[3], 32},
			UVs:         FloatSlice{&buf[6], 32},
			Indices:     &triIdx[0],
			VertexCount: 3, IndexCount: 3,
		}, attrib.LayoutFloatStride, true},
		{"v4", &MeshV4{
			Positions:   TypedSlice{bytePtr(buf, 0), 32, ElemFloat32},
			Normals:     TypedSlice{bytePtr(buf, 3), 32, ElemFloat32},
			UVs:         TypedSlice{&uv8[0], 2, ElemUnorm8},
			Indices:     &triIdx[0],
			VertexCount: 3, IndexCount: 3,
		}, attrib.LayoutTypedByteStride, true},
	}

	for _, tt := range meshes {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.mesh.Descriptor()
			if err != nil {
				t.Fatal(err)
			}
			if d.Positions.Layout() != tt.layout {
				t.Errorf("layout = %s, want %s", d.Positions.Layout(), tt.layout)
			}
			s := build(t, tt.mesh)
			if s.HasUVs != tt.hasUV {
				t.Errorf("HasUVs = %v", s.HasUVs)
			}
			for i, v := range s.Vertices {
				p := v.Position.Array()
				for k := range p {
					if p[k] != positions[3*i+k] {
						t.Fatalf("vertex %d position %v", i, p)
					}
				}
				if v.Normal.Z != 1 {
					t.Errorf("vertex %d normal %v", i, v.Normal)
				}
				if tt.hasUV && (v.UV.X != uvs[2*i] || v.UV.Y != uvs[2*i+1]) {
					t.Errorf("vertex %d uv %v", i, v.UV)
				}
			}
		})
	}
}

func TestZeroStrideIsTight(t *testing.T) {
	m := &MeshV3{
		Positions:   FloatSlice{&positions[0], 0},
		UVs:         FloatSlice{&uvs[0], 0},
		Indices:     &triIdx[0],
		VertexCount: 3, IndexCount: 3,
	}
	d, err := m.Descriptor()
	if err != nil {
		t.Fatal(err)
	}
	if d.Positions.Stride() != 12 || d.UVs.Stride() != 8 {
		t.Errorf("strides %d, %d", d.Positions.Stride(), d.UVs.Stride())
	}
	if s := build(t, m); !s.GeneratedNormals {
		t.Error("absent normals should be generated")
	}
}

func TestMeshAdapterErrors(t *testing.T) {
	buf := interleaved()
	tests := []struct {
		name string
		mesh Mesh
		want Status
	}{
		{"v2 null positions", &MeshV2{Indices: &triIdx[0], VertexCount: 3, IndexCount: 3}, StatusMissingRequiredAttribute},
		{"v1 null indices", &MeshV1{Positions: &positions[0], VertexCount: 3, IndexCount: 3}, StatusMissingRequiredAttribute},
		{"v2 stride too small", &MeshV2{
			Positions: AttributeSlice{bytePtr(buf, 0), 8},
			Indices:   &triIdx[0], VertexCount: 3, IndexCount: 3,
		}, StatusInvalidLayout},
		{"v3 unaligned stride", &MeshV3{
			Positions: FloatSlice{&buf[0], 30},
			Indices:   &triIdx[0], VertexCount: 3, IndexCount: 3,
		}, StatusInvalidLayout},
		{"v4 unknown element", &MeshV4{
			Positions: TypedSlice{bytePtr(buf, 0), 32, 9},
			Indices:   &triIdx[0], VertexCount: 3, IndexCount: 3,
		}, StatusInvalidLayout},
		{"v1 index out of bounds", &MeshV1{
			Positions: &positions[0], Indices: &[]uint32{0, 1, 5}[0],
			VertexCount: 3, IndexCount: 3,
		}, StatusIndexOutOfBounds},
		{"v1 not a multiple of three", &MeshV1{
			Positions: &positions[0], Indices: &[]uint32{0, 1, 2, 0}[0],
			VertexCount: 3, IndexCount: 4,
		}, StatusDegenerateTopology},
		{"v2 huge count", &MeshV2{
			Positions: AttributeSlice{bytePtr(buf, 0), 0xFFFFFFFF},
			Indices:   &triIdx[0], VertexCount: 0xFFFFFFFF, IndexCount: 3,
		}, StatusInvalidLayout},
	}

	lib := &Library{Bridge: bridge.New(engine.Constant{}, nil)}
	lib.Init()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lib.SetMeshData(tt.mesh); got != tt.want {
				t.Errorf("status = %d (%s), want %d (%s)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestLibraryBakeShapes(t *testing.T) {
	red := [4]float32{1, 0, 0, 1}
	lib := &Library{Bridge: bridge.New(engine.Constant{Color: red}, nil)}
	mesh := &MeshV1{Positions: &positions[0], Normals: &normals[0], Indices: &triIdx[0], VertexCount: 3, IndexCount: 3}

	u8 := make([]byte, 4*2*2)
	if st := lib.Bake(&ImageSliceU8{Width: 2, Height: 2, Data: &u8[0]}); st != StatusNotInitialized {
		t.Fatalf("bake before init = %s", st)
	}
	lib.Init()
	if st := lib.Bake(&ImageSliceU8{Width: 2, Height: 2, Data: &u8[0]}); st != StatusNoMeshLoaded {
		t.Fatalf("bake before mesh = %s", st)
	}
	if st := lib.SetMeshData(mesh); st != StatusOK {
		t.Fatalf("set_mesh_data = %s", st)
	}

	if st := lib.Bake(&ImageSliceU8{Width: 2, Height: 2, Data: &u8[0]}); st != StatusOK {
		t.Fatalf("u8 bake = %s", st)
	}
	if u8[12] != 255 || u8[13] != 0 || u8[15] != 255 {
		t.Errorf("u8 pixels = %v", u8)
	}

	f32 := make([]float32, 4)
	if st := lib.Bake(&ImageSliceF32{Width: 1, Height: 1, Data: &f32[0]}); st != StatusOK {
		t.Fatalf("f32 bake = %s", st)
	}
	if f32[0] != 1 || f32[1] != 0 || f32[3] != 1 {
		t.Errorf("f32 pixels = %v", f32)
	}

	r8 := make([]byte, 3)
	img := &ImageSlice{Width: 3, Height: 1, Format: uint32(target.FormatR8), Data: &r8[0]}
	if st := lib.Bake(img); st != StatusOK {
		t.Fatalf("r8 bake = %s", st)
	}
	if r8[0] != 255 || r8[2] != 255 {
		t.Errorf("r8 pixels = %v", r8)
	}
}

func TestLibraryImageErrors(t *testing.T) {
	lib := &Library{Bridge: bridge.New(engine.Constant{Color: [4]float32{1, 1, 1, 1}}, nil)}
	lib.Init()
	mesh := &MeshV1{Positions: &positions[0], Indices: &triIdx[0], VertexCount: 3, IndexCount: 3}
	if st := lib.SetMeshData(mesh); st != StatusOK {
		t.Fatal(st)
	}

	pix := make([]byte, 16)
	tests := []struct {
		name string
		img  Image
		want Status
	}{
		{"nil image", nil, StatusNullImage},
		{"null data", &ImageSliceU8{Width: 2, Height: 2}, StatusNullImage},
		{"zero width", &ImageSliceU8{Width: 0, Height: 2, Data: &pix[0]}, StatusBufferTooSmall},
		{"zero height null data", &ImageSliceF32{Width: 2, Height: 0}, StatusBufferTooSmall},
		{"unknown format", &ImageSlice{Width: 1, Height: 1, Format: 77, Data: &pix[0]}, StatusUnknownFormat},
		{"overflow", &ImageSlice{Width: 0xFFFFFFFF, Height: 0xFFFFFFFF, Format: uint32(target.FormatRGBA32F), Data: &pix[0]}, StatusBufferTooSmall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lib.Bake(tt.img); got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
			for i, b := range pix {
				if b != 0 {
					t.Fatalf("pixel byte %d written", i)
				}
			}
		})
	}
}

func TestLibrarySessions(t *testing.T) {
	lib := &Library{Bridge: bridge.New(engine.Constant{Color: [4]float32{0, 1, 0, 1}}, nil)}
	h := lib.Open()
	mesh := &MeshV1{Positions: &positions[0], Indices: &triIdx[0], VertexCount: 3, IndexCount: 3}
	if st := lib.SessionSetMeshData(h, mesh); st != StatusOK {
		t.Fatalf("set_mesh_data = %s", st)
	}
	pix := make([]byte, 4)
	if st := lib.SessionBake(h, &ImageSliceU8{Width: 1, Height: 1, Data: &pix[0]}); st != StatusOK {
		t.Fatalf("bake = %s", st)
	}
	if pix[1] != 255 {
		t.Errorf("pixel = %v", pix)
	}
	// The default session is independent and still uninitialized.
	if st := lib.Bake(&ImageSliceU8{Width: 1, Height: 1, Data: &pix[0]}); st != StatusNotInitialized {
		t.Errorf("default bake = %s", st)
	}

	if st := lib.Close(h); st != StatusOK {
		t.Fatalf("close = %s", st)
	}
	if st := lib.SessionBake(h, &ImageSliceU8{Width: 1, Height: 1, Data: &pix[0]}); st != StatusInvalidHandle {
		t.Errorf("bake on closed session = %s", st)
	}
	if st := lib.Close(h); st != StatusInvalidHandle {
		t.Errorf("double close = %s", st)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{errors.New("other"), StatusUnknown},
		{fmt.Errorf("wrapped: %w", scene.ErrNonFinite), StatusNonFinite},
		{&bridge.Error{Op: "bake", Kind: bridge.KindEngine, Err: errors.New("gpu lost")}, StatusEngine},
		{&bridge.Error{Op: "bake", Kind: bridge.KindEngine, Err: engine.ErrNoLightmapUVs}, StatusNoLightmapUVs},
		{&bridge.Error{Op: "bake", Kind: bridge.KindState, Err: bridge.ErrBusy}, StatusBusy},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}

	seen := make(map[string]Status)
	for _, se := range statusErrors {
		msg := se.status.String()
		if prev, ok := seen[msg]; ok {
			t.Errorf("statuses %d and %d share the message %q", prev, se.status, msg)
		}
		seen[msg] = se.status
	}
	if Status(999).String() != "invalid status" {
		t.Errorf("unexpected message for an undefined status")
	}
}
