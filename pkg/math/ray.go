package math

// Ray is a half-line starting at Origin.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Dir.Scale(t))
}

// InvDir returns the component-wise reciprocal of the direction, as used by
// slab tests. Zero components map to +Inf.
func (r Ray) InvDir() Vec3 {
	return Vec3{1 / r.Dir.X, 1 / r.Dir.Y, 1 / r.Dir.Z}
}

// HitsAABB reports whether the ray enters the box within [0, tMax].
func (r Ray) HitsAABB(b AABB, invDir Vec3, tMax float32) bool {
	tx1 := (b.Min.X - r.Origin.X) * invDir.X
	tx2 := (b.Max.X - r.Origin.X) * invDir.X
	tmin := min(tx1, tx2)
	tmax := max(tx1, tx2)

	ty1 := (b.Min.Y - r.Origin.Y) * invDir.Y
	ty2 := (b.Max.Y - r.Origin.Y) * invDir.Y
	tmin = max(tmin, min(ty1, ty2))
	tmax = min(tmax, max(ty1, ty2))

	tz1 := (b.Min.Z - r.Origin.Z) * invDir.Z
	tz2 := (b.Max.Z - r.Origin.Z) * invDir.Z
	tmin = max(tmin, min(tz1, tz2))
	tmax = min(tmax, max(tz1, tz2))

	return tmax >= max(tmin, 0) && tmin <= tMax
}

// IntersectTriangle returns the distance along r to triangle (a, b, c) using
// the Möller–Trumbore test. Hits behind the origin or at t <= epsilon are
// ignored. Both faces are hit.
func (r Ray) IntersectTriangle(a, b, c Vec3) (t float32, ok bool) {
	const epsilon = 1e-7

	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Dir.Cross(e2)
	det := e1.Dot(p)
	if det > -epsilon && det < epsilon {
		return 0, false
	}
	inv := 1 / det

	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(e1)
	v := r.Dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t = e2.Dot(q) * inv
	if t <= epsilon {
		return 0, false
	}
	return t, true
}
