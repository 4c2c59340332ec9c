// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package geo

import (
	"github.com/chewxy/math32"
)

type AABB struct {
	Mins Vec3 `json:"mins"`
	Maxs Vec3 `json:"maxs"`
}

// EmptyAABB is the identity for Union/Extend: any point extends it.
func EmptyAABB() AABB {
	return AABB{
		Mins: Vec3{X: math32.Inf(1), Y: math32.Inf(1), Z: math32.Inf(1)},
		Maxs: Vec3{X: math32.Inf(-1), Y: math32.Inf(-1), Z: math32.Inf(-1)},
	}
}

func AABBFrom(mins, maxs Vec3) AABB {
	return AABB{Mins: mins, Maxs: maxs}
}

// AABBOf is the tight bounds of a point set.
func AABBOf(points ...Vec3) AABB {
	a := EmptyAABB()
	for _, p := range points {
		a = a.Extend(p)
	}
	return a
}

func (a AABB) Extend(p Vec3) AABB {
	a.Mins = a.Mins.Min(p)
	a.Maxs = a.Maxs.Max(p)
	return a
}

func (a AABB) Union(b AABB) AABB {
	a.Mins = a.Mins.Min(b.Mins)
	a.Maxs = a.Maxs.Max(b.Maxs)
	return a
}

// Intersects a and b are intersecting or touching
func (a AABB) Intersects(b AABB) bool {
	return a.Mins.X <= b.Maxs.X && a.Maxs.X >= b.Mins.X &&
		a.Mins.Y <= b.Maxs.Y && a.Maxs.Y >= b.Mins.Y &&
		a.Mins.Z <= b.Maxs.Z && a.Maxs.Z >= b.Mins.Z
}

// Contains a fully contains b
func (a AABB) Contains(b AABB) bool {
	return a.Mins.X <= b.Mins.X && a.Mins.Y <= b.Mins.Y && a.Mins.Z <= b.Mins.Z &&
		a.Maxs.X >= b.Maxs.X && a.Maxs.Y >= b.Maxs.Y && a.Maxs.Z >= b.Maxs.Z
}

func (a AABB) ContainsPoint(p Vec3) bool {
	return a.Mins.X <= p.X && p.X <= a.Maxs.X &&
		a.Mins.Y <= p.Y && p.Y <= a.Maxs.Y &&
		a.Mins.Z <= p.Z && p.Z <= a.Maxs.Z
}

func (a AABB) Center() Vec3 {
	return a.Mins.Add(a.Maxs).Mul(0.5)
}

func (a AABB) Size() Vec3 {
	return a.Maxs.Sub(a.Mins)
}

// Expand grows the box by a hull's extents on every side: collision against
// the expanded box equals collision of the hull against the original box.
func (a AABB) Expand(hullMins, hullMaxs Vec3) AABB {
	a.Mins = a.Mins.Add(hullMins)
	a.Maxs = a.Maxs.Add(hullMaxs)
	return a
}

func (a AABB) Translate(offset Vec3) AABB {
	a.Mins = a.Mins.Add(offset)
	a.Maxs = a.Maxs.Add(offset)
	return a
}

// LongestAxis returns 0, 1 or 2 for the longest side.
func (a AABB) LongestAxis() int {
	size := a.Size()
	axis := 0
	if size.Y > size.X {
		axis = 1
	}
	if size.Z > size.Component(axis) {
		axis = 2
	}
	return axis
}

// Valid reports whether every axis is bounded (mins <= maxs and finite).
func (a AABB) Valid() bool {
	for axis := 0; axis < 3; axis++ {
		lo, hi := a.Mins.Component(axis), a.Maxs.Component(axis)
		if math32.IsInf(lo, 0) || math32.IsInf(hi, 0) || lo > hi {
			return false
		}
	}
	return true
}

// SweptAABB is the union of a hull at the start and end of a sweep.
func SweptAABB(start, end, hullMins, hullMaxs Vec3) AABB {
	a := AABBFrom(start.Add(hullMins), start.Add(hullMaxs))
	return a.Union(AABBFrom(end.Add(hullMins), end.Add(hullMaxs)))
}
