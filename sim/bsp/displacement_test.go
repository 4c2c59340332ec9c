// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package bsp_test

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/require"

	"github.com/SoftbearStudios/dzsim/sim/geo"
	"github.com/SoftbearStudios/dzsim/sim/testworld"
)

func flatDisp(power uint32, height float32) *testworld.Builder {
	return testworld.NewBuilder().
		AddDisplacement(power, geo.Vec3{}, 128, func(row, col int) float32 {
			return height
		})
}

func TestDisplacementVertices_FlatGrid(t *testing.T) {
	const power = 2
	m := flatDisp(power, 8).Build()

	verts, err := m.DisplacementVertices(0)
	require.NoError(t, err)
	require.Len(t, verts, 25) // (2^2+1)^2

	for _, v := range verts {
		require.InDelta(t, 8, v.Z, 1e-4)
		require.GreaterOrEqual(t, v.X, float32(-1e-3))
		require.LessOrEqual(t, v.X, float32(128)+1e-3)
		require.GreaterOrEqual(t, v.Y, float32(-1e-3))
		require.LessOrEqual(t, v.Y, float32(128)+1e-3)
	}
}

func TestDisplacementTriangles_CheckerboardWinding(t *testing.T) {
	const power = 3
	m := flatDisp(power, 0).Build()

	tris, err := m.DisplacementTriangles(0)
	require.NoError(t, err)
	tiles := 1 << power
	require.Len(t, tris, 2*tiles*tiles)

	// Every triangle of an upward-facing displacement winds clockwise seen
	// from above.
	for i, tri := range tris {
		require.True(t, geo.CWTriangleFacingUp(tri[0], tri[1], tri[2]),
			"triangle %d winds the wrong way", i)
	}

	// The separating diagonal alternates per tile: neighboring tiles in a
	// row must not share their diagonal direction.
	diagonalOf := func(tile int) geo.Vec3 {
		// Both triangles of a tile share the diagonal edge: its endpoints
		// are the two vertices the triangles have in common.
		var shared []geo.Vec3
		for _, v := range tris[2*tile] {
			for _, u := range tris[2*tile+1] {
				if v == u {
					shared = append(shared, v)
					break
				}
			}
		}
		require.Len(t, shared, 2, "tile %d triangles do not share one edge", tile)
		return shared[1].Sub(shared[0]).Norm()
	}
	d0 := diagonalOf(0)
	d1 := diagonalOf(1)
	// Diagonals of the same orientation are parallel in either direction.
	require.Less(t, math32.Abs(d0.Dot(d1)), float32(0.9),
		"adjacent tiles share the same diagonal orientation")
}

func TestDisplacementOffsets(t *testing.T) {
	m := testworld.NewBuilder().
		AddDisplacement(2, geo.Vec3{}, 64, func(row, col int) float32 {
			return float32(row * 10)
		}).Build()

	verts, err := m.DisplacementVertices(0)
	require.NoError(t, err)

	lowest := verts[0].Z
	highest := verts[0].Z
	for _, v := range verts {
		lowest = geo.Minf(lowest, v.Z)
		highest = geo.Maxf(highest, v.Z)
	}
	require.InDelta(t, 0, lowest, 1e-4)
	require.InDelta(t, 40, highest, 1e-4)
}

func TestDisplacementBoundaryFaces(t *testing.T) {
	m := flatDisp(2, 16).Build()

	faces, errs := m.DisplacementBoundaryFaceVertices()
	require.Empty(t, errs)
	// 4 sides, 4 tiles each, 2 triangles per tile.
	require.Len(t, faces, 4*4*2)

	// Strips hover above the surface.
	for _, face := range faces {
		for _, v := range face {
			require.Greater(t, v.Z, float32(16))
		}
	}
}

func TestDisplacementNoHullCollSkipped(t *testing.T) {
	m := flatDisp(2, 0).Build()
	m.DispInfos[0].Flags |= 1 << 2 // no hull collision

	faces, errs := m.DisplacementFaceVertices()
	require.Empty(t, errs)
	require.Empty(t, faces)
}
