// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package coll

import (
	"github.com/chewxy/math32"

	"github.com/SoftbearStudios/dzsim/sim/geo"
)

// DistEpsilon is the collision epsilon: positions are networked on a 1/32
// unit grid, so finer contact resolution is meaningless.
const DistEpsilon = 0.03125

// Trace describes a swept hull query: move an axis-aligned box with extents
// [HullMins, HullMaxs] (relative to the origin point) from Start to End.
// Start == End degenerates to a point-in-solid query.
type Trace struct {
	Start    geo.Vec3
	End      geo.Vec3
	HullMins geo.Vec3
	HullMaxs geo.Vec3
}

func (t *Trace) Delta() geo.Vec3 { return t.End.Sub(t.Start) }

// TraceResult reports the earliest impact of a swept hull. Values reference
// nothing that outlives the call.
type TraceResult struct {
	// Fraction is the largest t in [0,1] such that the hull moved to
	// Start + t*(End-Start) touches nothing solid.
	Fraction float32
	// PlaneNormal is the unit normal of the first surface hit, pointing out
	// of the obstacle. Zero when nothing was hit.
	PlaneNormal geo.Vec3
	// StartSolid is set when the hull at Start is already inside a solid;
	// AllSolid when it stays inside one for the whole sweep.
	StartSolid bool
	AllSolid   bool
	// Surface tags the surface class of the hit primitive for material
	// lookup; -1 when no hit.
	Surface int32
}

func (r *TraceResult) DidHit() bool { return r.Fraction < 1 || r.StartSolid }

// EndPos is the position reached by the sweep.
func (r *TraceResult) EndPos(t *Trace) geo.Vec3 {
	return t.Start.AddScaled(t.Delta(), r.Fraction)
}

func newTraceResult() TraceResult {
	return TraceResult{Fraction: 1, Surface: -1}
}

// clipToPlanes clips the sweep against a convex plane set, the shared
// narrow phase of brushes and prop sections. Each plane is shifted outward
// by the hull's support point, reducing the hull sweep to a segment sweep.
// hullMins/hullMaxs must be axis aligned in the space of the planes.
func clipToPlanes(planes []geo.Plane, surfaces []int32, defaultSurface int32,
	start, end, hullMins, hullMaxs geo.Vec3, result *TraceResult) {

	enterFrac := float32(-1)
	leaveFrac := float32(1)
	startOut := false
	getOut := false
	var clipPlane geo.Plane
	clipSurface := defaultSurface

	for i, plane := range planes {
		// Support point of the hull against the plane.
		ofs := geo.Vec3{
			X: pick(plane.Normal.X < 0, hullMaxs.X, hullMins.X),
			Y: pick(plane.Normal.Y < 0, hullMaxs.Y, hullMins.Y),
			Z: pick(plane.Normal.Z < 0, hullMaxs.Z, hullMins.Z),
		}
		dist := plane.Dist - ofs.Dot(plane.Normal)
		d1 := start.Dot(plane.Normal) - dist
		d2 := end.Dot(plane.Normal) - dist

		if d1 > 0 {
			startOut = true
		}
		if d2 > 0 {
			getOut = true
		}
		// Completely in front of this plane, never touching the solid.
		if d1 > 0 && d2 >= d1 {
			return
		}
		if d1 <= 0 && d2 <= 0 {
			continue
		}
		if d1 > d2 {
			// Entering through this plane.
			f := (d1 - DistEpsilon) / (d1 - d2)
			if f > enterFrac {
				enterFrac = f
				clipPlane = plane
				if surfaces != nil {
					clipSurface = surfaces[i]
				}
			}
		} else {
			// Leaving through this plane.
			f := (d1 + DistEpsilon) / (d1 - d2)
			if f < leaveFrac {
				leaveFrac = f
			}
		}
	}

	if !startOut {
		result.StartSolid = true
		if !getOut {
			result.AllSolid = true
			result.Fraction = 0
		}
		return
	}

	if enterFrac < leaveFrac && enterFrac > -1 && enterFrac < result.Fraction {
		result.Fraction = geo.Maxf(0, enterFrac)
		result.PlaneNormal = clipPlane.Normal
		result.Surface = clipSurface
	}
}

// clipToTriangle sweeps the hull against one triangle via the separating
// axis theorem: the triangle plane, the three hull face axes and the nine
// edge cross axes. The reported normal is the triangle plane normal.
func clipToTriangle(verts [3]geo.Vec3, plane geo.Plane, surface int32,
	trace *Trace, result *TraceResult) {

	halfExtents := trace.HullMaxs.Sub(trace.HullMins).Mul(0.5)
	hullCenter := trace.HullMins.Add(trace.HullMaxs).Mul(0.5)
	c0 := trace.Start.Add(hullCenter)
	delta := trace.Delta()

	axes := [13]geo.Vec3{
		plane.Normal,
		{X: 1}, {Y: 1}, {Z: 1},
	}
	n := 4
	edges := [3]geo.Vec3{
		verts[1].Sub(verts[0]),
		verts[2].Sub(verts[1]),
		verts[0].Sub(verts[2]),
	}
	for _, edge := range edges {
		for axis := 0; axis < 3; axis++ {
			var unit geo.Vec3
			unit.SetComponent(axis, 1)
			cross := edge.Cross(unit)
			if cross.LengthSquared() > 1e-8 {
				axes[n] = cross.Norm()
				n++
			}
		}
	}

	enter := float32(-1)
	leave := float32(2)

	for _, axis := range axes[:n] {
		triMin := math32.Inf(1)
		triMax := math32.Inf(-1)
		for _, v := range verts {
			d := v.Dot(axis)
			triMin = geo.Minf(triMin, d)
			triMax = geo.Maxf(triMax, d)
		}
		radius := halfExtents.X*math32.Abs(axis.X) +
			halfExtents.Y*math32.Abs(axis.Y) +
			halfExtents.Z*math32.Abs(axis.Z)

		center0 := c0.Dot(axis)
		move := delta.Dot(axis)

		lo := triMin - (center0 + radius) // >0: hull entirely below interval
		hi := (center0 - radius) - triMax // >0: hull entirely above interval

		if move == 0 {
			if lo > 0 || hi > 0 {
				return // separated for the whole sweep
			}
			continue // always overlapping on this axis
		}

		// Times at which the hull interval starts and stops overlapping the
		// triangle interval on this axis.
		tEnter := lo / move
		tLeave := (triMax - (center0 - radius)) / move
		if move < 0 {
			tEnter = hi / -move
			tLeave = ((center0 + radius) - triMin) / -move
		}
		if tEnter > enter {
			enter = tEnter
		}
		if tLeave < leave {
			leave = tLeave
		}
		if enter > leave {
			return
		}
	}

	if leave < 0 || enter > 1 {
		return
	}

	if enter <= 0 {
		result.StartSolid = true
		if leave >= 1 {
			result.AllSolid = true
			result.Fraction = 0
		}
		return
	}

	// Clamp the tiny overshoot back onto the contact.
	deltaLen := delta.Length()
	if deltaLen > 0 {
		enter = geo.Maxf(0, enter-DistEpsilon/deltaLen)
	}
	if enter < result.Fraction {
		result.Fraction = enter
		normal := plane.Normal
		if normal.Dot(delta) > 0 {
			normal = normal.Mul(-1)
		}
		result.PlaneNormal = normal
		result.Surface = surface
	}
}

// clipToPropSection reduces the sweep into the prop's model space via the
// cached inverse transform, clips against the section's triangle planes with
// its AABB planes as bevels, and maps the hit normal back to world space.
func clipToPropSection(cache *CollisionCache, section *ModelSection,
	trace *Trace, result *TraceResult) {

	localStart := cache.Transform.ApplyInverse(trace.Start)
	localEnd := cache.Transform.ApplyInverse(trace.End)
	localHull := localHullAABB(trace.HullMins, trace.HullMaxs, cache.Transform)

	local := newTraceResult()
	local.Fraction = result.Fraction
	clipToPlanes(section.ClipPlanes, nil, cache.Surface, localStart, localEnd,
		localHull.Mins, localHull.Maxs, &local)

	if local.StartSolid {
		result.StartSolid = true
		if local.AllSolid {
			result.AllSolid = true
			result.Fraction = 0
			return
		}
	}
	if local.Fraction < result.Fraction {
		result.Fraction = local.Fraction
		result.PlaneNormal = cache.Transform.Rotation.Apply(local.PlaneNormal).Norm()
		result.Surface = local.Surface
	}
}
