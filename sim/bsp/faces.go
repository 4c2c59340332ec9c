// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package bsp

import (
	"fmt"
	"sort"

	"github.com/SoftbearStudios/dzsim/sim/geo"
)

// When checking what vertices fall behind a plane, vertices on the plane are
// treated pretty much randomly (float inaccuracy). Therefore cut a fraction
// more behind the plane and then connect edges back up exactly with the
// plane. Observed intersection drift: 0.000488281.
const BrushPlaneOverCut = 0.001

// How much a plane at least has to cut to not be considered redundant and
// skipped.
const BrushPlaneRedundantCutSize = 0.01

// BrushPredicate filters whole brushes, SidePredicate filters individual
// brushside faces during reconstruction.
type (
	BrushPredicate func(Brush) bool
	SidePredicate  func(BrushSide, *Map) bool
)

// BrushAABB computes a brush's AABB from its axial planes (bevel sides
// included, tightest bounds win). It fails when any axis stays unbounded,
// except for two known-bad sides of one brush in a popular community map.
func (m *Map) BrushAABB(brushIdx int) (geo.AABB, error) {
	// Start unbounded (-Inf mins, +Inf maxs); every axial plane can only
	// tighten an axis.
	empty := geo.EmptyAABB()
	aabb := geo.AABB{Mins: empty.Maxs, Maxs: empty.Mins}
	// One func_brush in the "Only Up!" community map has 2 invalid planes
	// that have to be skipped to keep the rest of the brush usable.
	onlyUpMap := m.MapVersion == 2915 && m.SkyName == "vertigoblue_hdr"

	brush := m.Brushes[brushIdx]
	for i := int32(0); i < brush.NumSides; i++ {
		if onlyUpMap && brushIdx == 2537 && (i == 26 || i == 30) {
			continue
		}
		side := m.BrushSides[brush.FirstSide+i]
		plane := m.Planes[side.PlaneNum]
		for axis := 0; axis < 3; axis++ {
			if plane.Normal.Component(axis) == -1.0 && -plane.Dist > aabb.Mins.Component(axis) {
				aabb.Mins.SetComponent(axis, -plane.Dist)
			}
			if plane.Normal.Component(axis) == +1.0 && plane.Dist < aabb.Maxs.Component(axis) {
				aabb.Maxs.SetComponent(axis, plane.Dist)
			}
		}
	}

	if !aabb.Valid() {
		return aabb, fmt.Errorf("brush %d does not have all 6 axial brushsides", brushIdx)
	}
	return aabb, nil
}

// vertexBehindPlane reports whether v is on the solid side of p, cut deeper
// by overcut. Plane normals point out of the brush.
func vertexBehindPlane(v geo.Vec3, p Plane, overcut float32) bool {
	return p.DistanceTo(v) < -overcut
}

// BrushFaceVertices reconstructs the face polygons of the given brushes by
// clipping each brush's AABB against its non-bevel planes. Returned faces
// have clockwise vertex winding when viewed from outside the brush. Bad
// brushes are skipped and reported in the error list.
func (m *Map) BrushFaceVertices(brushIndices map[int]struct{},
	predBrush BrushPredicate, predSide SidePredicate) ([][]geo.Vec3, []error) {

	var finalFaces [][]geo.Vec3
	var errs []error

	// Iterate in index order for deterministic output.
	ordered := make([]int, 0, len(brushIndices))
	for idx := range brushIndices {
		ordered = append(ordered, idx)
	}
	sort.Ints(ordered)

	for _, brushIdx := range ordered {
		brush := m.Brushes[brushIdx]
		if predBrush != nil && !predBrush(brush) {
			continue
		}

		aabb, err := m.BrushAABB(brushIdx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		faces := m.clipBrushFaces(brush, aabb, predSide)
		finalFaces = append(finalFaces, faces...)
	}
	return finalFaces, errs
}

func (m *Map) clipBrushFaces(brush Brush, aabb geo.AABB, predSide SidePredicate) [][]geo.Vec3 {
	mins, maxs := aabb.Mins, aabb.Maxs

	// Start the cutting process with the faces of the brush AABB. Starting
	// with a large box would lead to float imprecision and degenerate faces.
	brushFaces := [][]geo.Vec3{
		{{X: maxs.X, Y: maxs.Y, Z: maxs.Z}, {X: maxs.X, Y: mins.Y, Z: maxs.Z}, {X: mins.X, Y: mins.Y, Z: maxs.Z}, {X: mins.X, Y: maxs.Y, Z: maxs.Z}}, // +Z
		{{X: mins.X, Y: maxs.Y, Z: mins.Z}, {X: mins.X, Y: mins.Y, Z: mins.Z}, {X: maxs.X, Y: mins.Y, Z: mins.Z}, {X: maxs.X, Y: maxs.Y, Z: mins.Z}}, // -Z
		{{X: maxs.X, Y: mins.Y, Z: maxs.Z}, {X: maxs.X, Y: maxs.Y, Z: maxs.Z}, {X: maxs.X, Y: maxs.Y, Z: mins.Z}, {X: maxs.X, Y: mins.Y, Z: mins.Z}}, // +X
		{{X: mins.X, Y: mins.Y, Z: mins.Z}, {X: mins.X, Y: maxs.Y, Z: mins.Z}, {X: mins.X, Y: maxs.Y, Z: maxs.Z}, {X: mins.X, Y: mins.Y, Z: maxs.Z}}, // -X
		{{X: maxs.X, Y: maxs.Y, Z: maxs.Z}, {X: mins.X, Y: maxs.Y, Z: maxs.Z}, {X: mins.X, Y: maxs.Y, Z: mins.Z}, {X: maxs.X, Y: maxs.Y, Z: mins.Z}}, // +Y
		{{X: maxs.X, Y: mins.Y, Z: mins.Z}, {X: mins.X, Y: mins.Y, Z: mins.Z}, {X: mins.X, Y: mins.Y, Z: maxs.Z}, {X: maxs.X, Y: mins.Y, Z: maxs.Z}}, // -Y
	}

	// Bevel brushsides only matter for AABB collision detection. They are
	// irrelevant for the visual representation of a brush and could cause
	// face parse errors; only the starting AABB above accounts for them.
	var nonBevelSides []int32
	for i := int32(0); i < brush.NumSides; i++ {
		sideIdx := brush.FirstSide + i
		if m.BrushSides[sideIdx].Bevel {
			continue
		}
		nonBevelSides = append(nonBevelSides, sideIdx)
	}

	if predSide != nil {
		anyFaceWanted := false
		for _, sideIdx := range nonBevelSides {
			if predSide(m.BrushSides[sideIdx], m) {
				anyFaceWanted = true
				break
			}
		}
		if !anyFaceWanted {
			return nil
		}
	}

	var unwantedFaceIndices []int

	for _, sideIdx := range nonBevelSides {
		side := m.BrushSides[sideIdx]
		plane := m.Planes[side.PlaneNum]

		// If no vertex of any face lies more than the redundancy threshold in
		// front of the plane, the plane cuts nothing worth keeping.
		redundant := true
	redundancy:
		for _, face := range brushFaces {
			for _, v := range face {
				if !vertexBehindPlane(v, plane, -BrushPlaneRedundantCutSize) {
					redundant = false
					break redundancy
				}
			}
		}
		if redundant {
			continue
		}

		// Vertices of the new face lying on this plane.
		var sideVertices []geo.Vec3

		for faceIdx, face := range brushFaces {
			if len(face) == 0 {
				continue
			}
			var altered []geo.Vec3

			behind := make([]bool, len(face))
			for i, v := range face {
				behind[i] = vertexBehindPlane(v, plane, BrushPlaneOverCut)
			}

			for currIdx := range face {
				nextIdx := currIdx + 1
				if nextIdx == len(face) {
					nextIdx = 0
				}
				currVert, nextVert := face[currIdx], face[nextIdx]
				currBehind, nextBehind := behind[currIdx], behind[nextIdx]

				if currBehind {
					altered = appendUniqueVertex(altered, currVert)
				}

				if currBehind != nextBehind {
					// Check whether the edge is actually cut (no overcut);
					// near-parallel grazing edges reuse the cut vertex.
					var edgeActuallyCut bool
					if nextBehind {
						edgeActuallyCut = !vertexBehindPlane(currVert, plane, 0)
					} else {
						edgeActuallyCut = !vertexBehindPlane(nextVert, plane, 0)
					}

					var newVertex geo.Vec3
					if edgeActuallyCut {
						dir := nextVert.Sub(currVert)
						if t, ok := geo.LinePlaneIntersection(plane, currVert, dir); ok {
							// Near-parallel edges can push t outside [0,1].
							t = geo.Clamp(t, 0, 1)
							newVertex = currVert.AddScaled(dir, t)
						} else if currBehind {
							newVertex = nextVert
						} else {
							newVertex = currVert
						}
					} else if currBehind {
						newVertex = nextVert
					} else {
						newVertex = currVert
					}

					// Duplicates get sorted out when the side face is built.
					sideVertices = append(sideVertices, newVertex)
					altered = appendUniqueVertex(altered, newVertex)
				}
			}

			if len(altered) >= 3 {
				brushFaces[faceIdx] = altered
			} else {
				brushFaces[faceIdx] = nil
			}
		}

		if len(sideVertices) == 0 {
			continue
		}
		sorted := buildPlaneFace(sideVertices, plane)
		if sorted == nil {
			continue
		}
		if predSide != nil && !predSide(side, m) {
			unwantedFaceIndices = append(unwantedFaceIndices, len(brushFaces))
		}
		brushFaces = append(brushFaces, sorted)
	}

	for _, i := range unwantedFaceIndices {
		brushFaces[i] = nil
	}

	var kept [][]geo.Vec3
	for _, face := range brushFaces {
		if len(face) != 0 {
			kept = append(kept, face)
		}
	}
	return kept
}

func appendUniqueVertex(verts []geo.Vec3, v geo.Vec3) []geo.Vec3 {
	for _, existing := range verts {
		if geo.VerticesEquivalent(v, existing) {
			return verts
		}
	}
	return append(verts, v)
}

// buildPlaneFace deduplicates the collected intersection vertices and sorts
// them clockwise around their centroid when viewed along the plane normal.
// Returns nil if fewer than 3 distinct vertices survive (the plane only
// touched a corner or edge).
func buildPlaneFace(verts []geo.Vec3, plane Plane) []geo.Vec3 {
	var filtered []geo.Vec3
	for _, v := range verts {
		filtered = appendUniqueVertex(filtered, v)
	}
	if len(filtered) < 3 {
		return nil
	}

	center := geo.Vec3{}
	for _, v := range filtered {
		center = center.Add(v)
	}
	center = center.Div(float32(len(filtered)))

	// Strict clockwise order predicate around the centroid.
	cwLess := func(a, b geo.Vec3) bool {
		return plane.Normal.Dot(a.Sub(center).Cross(b.Sub(center))) < 0
	}

	// Split remaining vertices into the halves before and after a reference
	// vertex; within a half the predicate is a consistent total order.
	reference := filtered[0]
	var preHalf, postHalf []geo.Vec3
	for _, v := range filtered[1:] {
		if cwLess(v, reference) {
			preHalf = append(preHalf, v)
		} else {
			postHalf = append(postHalf, v)
		}
	}
	sort.Slice(preHalf, func(i, j int) bool { return cwLess(preHalf[i], preHalf[j]) })
	sort.Slice(postHalf, func(i, j int) bool { return cwLess(postHalf[i], postHalf[j]) })

	sorted := make([]geo.Vec3, 0, len(filtered))
	sorted = append(sorted, preHalf...)
	sorted = append(sorted, reference)
	sorted = append(sorted, postHalf...)
	return sorted
}
