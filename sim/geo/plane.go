// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package geo

// Plane is the oriented half-space n·x = d. The solid side of a brush face is
// n·x <= d; normals point out of the solid.
type Plane struct {
	Normal Vec3    `json:"normal"`
	Dist   float32 `json:"dist"`
}

// DistanceTo is the signed distance of p from the plane, positive in front.
func (p Plane) DistanceTo(point Vec3) float32 {
	return p.Normal.Dot(point) - p.Dist
}

func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Mul(-1), Dist: -p.Dist}
}

// PlaneFromTriCW builds the plane of a triangle whose vertices wind clockwise
// when viewed from the front side.
func PlaneFromTriCW(v1, v2, v3 Vec3) Plane {
	n := NormalCWFront(v1, v2, v3)
	return Plane{Normal: n, Dist: n.Dot(v1)}
}

// NormalCWFront is the unit normal of a clockwise-wound triangle, pointing at
// the viewer.
func NormalCWFront(v1, v2, v3 Vec3) Vec3 {
	return v3.Sub(v1).Cross(v2.Sub(v1)).Norm()
}

// CWTriangleFacingUp reports whether a clockwise-wound triangle's normal has a
// positive Z component, without normalizing.
func CWTriangleFacingUp(v1, v2, v3 Vec3) bool {
	v1v3 := v3.Sub(v1)
	v1v2 := v2.Sub(v1)
	return v1v2.Y*v1v3.X-v1v2.X*v1v3.Y > 0
}

// LinePlaneIntersection returns the parameter t of the intersection of the
// line start + t*dir with the plane, and false when the line is parallel to
// it.
func LinePlaneIntersection(p Plane, start, dir Vec3) (float32, bool) {
	denom := p.Normal.Dot(dir)
	if denom == 0 {
		return 0, false
	}
	return (p.Dist - p.Normal.Dot(start)) / denom, true
}
