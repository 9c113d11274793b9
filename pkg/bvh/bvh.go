// Package bvh builds a bounding volume hierarchy over triangle meshes and
// answers closest-hit and occlusion queries against it.
//
// The tree is built with binned SAH splits and then flattened depth-first so
// traversal is stackless: every node stores the index of the node to visit
// when its subtree is skipped.
package bvh

import (
	"errors"

	"github.com/Faultbox/lightbake/pkg/math"
)

// ErrEmptyMesh is returned when building over a mesh without triangles.
var ErrEmptyMesh = errors.New("bvh: mesh has no triangles")

// Invalid marks the absence of a primitive or of a next node.
const Invalid = ^uint32(0)

const binCount = 12

// Mesh is the triangle source a BVH is built from.
type Mesh interface {
	TriangleCount() int
	TrianglePositions(i int) (a, b, c math.Vec3)
}

// Node is a flattened BVH node.
type Node struct {
	Bounds math.AABB
	// Next is the node visited after this one when its subtree is skipped
	// (or fully visited). Invalid ends traversal.
	Next uint32
	// Primitive is the triangle index for leaves and Invalid for inner nodes.
	Primitive uint32
}

// Leaf reports whether n references a triangle.
func (n *Node) Leaf() bool {
	return n.Primitive != Invalid
}

// Hit describes the closest intersection along a ray.
type Hit struct {
	T        float32
	Triangle int
}

// BVH is an immutable acceleration structure over a copy of the mesh's
// triangle positions.
type BVH struct {
	Nodes     []Node
	triangles [][3]math.Vec3
}

// buildNode is the tree form used during construction.
type buildNode struct {
	bounds      math.AABB
	centroid    math.Vec3
	primitive   uint32
	left, right int
	size        int // nodes in the subtree
}

type bin struct {
	bounds    math.AABB
	count     int
	rightCost float32
}

// Build constructs a BVH over m.
func Build(m Mesh) (*BVH, error) {
	n := m.TriangleCount()
	if n == 0 {
		return nil, ErrEmptyMesh
	}

	b := &BVH{triangles: make([][3]math.Vec3, n)}
	nodes := make([]buildNode, 0, 2*n-1)
	for i := 0; i < n; i++ {
		p0, p1, p2 := m.TrianglePositions(i)
		b.triangles[i] = [3]math.Vec3{p0, p1, p2}
		box := math.EmptyAABB().Expand(p0).Expand(p1).Expand(p2)
		nodes = append(nodes, buildNode{
			bounds:    box,
			centroid:  box.Center(),
			primitive: uint32(i),
			left:      -1,
			right:     -1,
			size:      1,
		})
	}

	var bins [binCount]bin
	root := build(&nodes, &bins, 0, n)
	b.Nodes = make([]Node, 0, len(nodes))
	b.flatten(nodes, root, Invalid)
	return b, nil
}

// build recursively splits the leaves in nodes[start:end] and returns the
// index of the subtree root. Inner nodes are appended after the leaves.
func build(nodes *[]buildNode, bins *[binCount]bin, start, end int) int {
	if end-start <= 1 {
		return start
	}

	ns := *nodes
	bounds := math.EmptyAABB()
	centroids := math.EmptyAABB()
	for i := start; i < end; i++ {
		bounds = bounds.Join(ns[i].bounds)
		centroids = centroids.Expand(ns[i].centroid)
	}

	axis := centroids.MaximumExtent()
	lo := centroids.Min.Axis(axis)
	extent := centroids.Max.Axis(axis) - lo

	middle := (start + end) / 2
	if extent > 0 {
		for i := range bins {
			bins[i] = bin{bounds: math.EmptyAABB()}
		}
		for i := start; i < end; i++ {
			bi := binIndex(ns[i].centroid.Axis(axis), lo, extent)
			bins[bi].count++
			bins[bi].bounds = bins[bi].bounds.Join(ns[i].bounds)
		}
		split := bestSplit(bins)
		m := partition(ns[start:end], func(n *buildNode) bool {
			return binIndex(n.centroid.Axis(axis), lo, extent) < split
		})
		if m > 0 && m < end-start {
			middle = start + m
		}
	}

	left := build(nodes, bins, start, middle)
	right := build(nodes, bins, middle, end)
	ns = *nodes
	// Visit the larger child first: it is the more likely to be hit.
	if ns[right].bounds.SurfaceArea() > ns[left].bounds.SurfaceArea() {
		left, right = right, left
	}
	*nodes = append(ns, buildNode{
		bounds:    bounds,
		primitive: Invalid,
		left:      left,
		right:     right,
		size:      1 + ns[left].size + ns[right].size,
	})
	return len(*nodes) - 1
}

func binIndex(v, lo, extent float32) int {
	i := int((v - lo) / extent * binCount)
	return min(max(i, 0), binCount-1)
}

// bestSplit returns the bin index that minimises the SAH cost of putting
// bins [0, i) on the left and [i, binCount) on the right.
func bestSplit(bins *[binCount]bin) int {
	box := math.EmptyAABB()
	count := 0
	for i := binCount - 1; i > 0; i-- {
		box = box.Join(bins[i].bounds)
		count += bins[i].count
		bins[i].rightCost = float32(count) * box.SurfaceArea()
	}

	box = math.EmptyAABB()
	count = 0
	split := binCount / 2
	best := float32(0)
	for i := 0; i < binCount-1; i++ {
		box = box.Join(bins[i].bounds)
		count += bins[i].count
		cost := float32(count)*box.SurfaceArea() + bins[i+1].rightCost
		if i == 0 || cost < best {
			best = cost
			split = i + 1
		}
	}
	return split
}

// partition moves the elements satisfying keep to the front and returns
// their count.
func partition(ns []buildNode, keep func(*buildNode) bool) int {
	last := 0
	for i := range ns {
		if keep(&ns[i]) {
			ns[i], ns[last] = ns[last], ns[i]
			last++
		}
	}
	return last
}

// flatten appends the subtree rooted at i in depth-first order. next is the
// node that follows the whole subtree.
func (b *BVH) flatten(nodes []buildNode, i int, next uint32) {
	n := &nodes[i]
	if n.primitive != Invalid {
		b.Nodes = append(b.Nodes, Node{Bounds: n.bounds, Next: next, Primitive: n.primitive})
		return
	}
	self := len(b.Nodes)
	b.Nodes = append(b.Nodes, Node{Bounds: n.bounds, Next: next, Primitive: Invalid})
	rightStart := uint32(self + 1 + nodes[n.left].size)
	b.flatten(nodes, n.left, rightStart)
	b.flatten(nodes, n.right, next)
}

// Intersect returns the closest triangle hit by r within (0, tMax].
func (b *BVH) Intersect(r math.Ray, tMax float32) (Hit, bool) {
	hit := Hit{T: tMax, Triangle: -1}
	b.traverse(r, func(prim int) bool {
		tri := &b.triangles[prim]
		if t, ok := r.IntersectTriangle(tri[0], tri[1], tri[2]); ok && t < hit.T {
			hit = Hit{T: t, Triangle: prim}
		}
		return false
	}, &hit.T)
	return hit, hit.Triangle >= 0
}

// Occluded reports whether any triangle is hit by r within (0, tMax].
func (b *BVH) Occluded(r math.Ray, tMax float32) bool {
	occluded := false
	b.traverse(r, func(prim int) bool {
		tri := &b.triangles[prim]
		if t, ok := r.IntersectTriangle(tri[0], tri[1], tri[2]); ok && t <= tMax {
			occluded = true
			return true
		}
		return false
	}, &tMax)
	return occluded
}

// traverse visits leaves whose bounds r enters before *tMax. visit returns
// true to stop early. tMax may shrink while traversing.
func (b *BVH) traverse(r math.Ray, visit func(prim int) bool, tMax *float32) {
	inv := r.InvDir()
	i := uint32(0)
	for i != Invalid {
		n := &b.Nodes[i]
		if !r.HitsAABB(n.Bounds, inv, *tMax) {
			i = n.Next
			continue
		}
		if n.Leaf() {
			if visit(int(n.Primitive)) {
				return
			}
			i = n.Next
			continue
		}
		i++
	}
}
