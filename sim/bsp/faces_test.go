// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package bsp_test

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/require"

	"github.com/SoftbearStudios/dzsim/sim/bsp"
	"github.com/SoftbearStudios/dzsim/sim/geo"
	"github.com/SoftbearStudios/dzsim/sim/testworld"
)

func TestBrushAABB(t *testing.T) {
	m := testworld.NewBuilder().
		AddSolidBox(geo.Vec3{X: -64, Y: -32, Z: 0}, geo.Vec3{X: 64, Y: 32, Z: 16}).
		Build()

	aabb, err := m.BrushAABB(0)
	require.NoError(t, err)
	require.Equal(t, geo.Vec3{X: -64, Y: -32, Z: 0}, aabb.Mins)
	require.Equal(t, geo.Vec3{X: 64, Y: 32, Z: 16}, aabb.Maxs)
}

func TestBrushAABB_MissingAxialSide(t *testing.T) {
	m := testworld.NewBuilder().
		AddSolidBox(geo.Vec3{X: -1, Y: -1, Z: -1}, geo.Vec3{X: 1, Y: 1, Z: 1}).
		Build()
	// Break one axial plane.
	m.Planes[0].Normal = geo.Vec3{X: 0.5, Z: 0.866}

	_, err := m.BrushAABB(0)
	require.Error(t, err)
}

func TestBrushFaceVertices_Box(t *testing.T) {
	mins := geo.Vec3{X: -64, Y: -32, Z: 0}
	maxs := geo.Vec3{X: 64, Y: 32, Z: 16}
	m := testworld.NewBuilder().AddSolidBox(mins, maxs).Build()

	faces, errs := m.BrushFaceVertices(m.WorldspawnBrushIndices(), nil, nil)
	require.Empty(t, errs)
	require.Len(t, faces, 6)

	aabb := geo.AABBFrom(mins, maxs)
	for _, face := range faces {
		require.GreaterOrEqual(t, len(face), 3)
		requireFacePlanar(t, m, face)
		for _, v := range face {
			requireInsideAABB(t, aabb, v)
		}
	}
}

// A brush with a diagonal cut produces the cut face and trims the box faces.
func TestBrushFaceVertices_DiagonalCut(t *testing.T) {
	b := testworld.NewBuilder().
		AddSolidBox(geo.Vec3{X: 0, Y: 0, Z: 0}, geo.Vec3{X: 32, Y: 32, Z: 32})
	m := b.Build()

	// Cut off the +X/+Z corner: plane x + z = 48.
	inv := float32(1 / math32.Sqrt(2))
	planeNum := uint16(len(m.Planes))
	m.Planes = append(m.Planes, bsp.Plane{
		Normal: geo.Vec3{X: inv, Z: inv},
		Dist:   inv * 48,
	})
	m.BrushSides = append(m.BrushSides, bsp.BrushSide{PlaneNum: planeNum, TexInfo: -1})
	m.Brushes[0].NumSides = 7

	faces, errs := m.BrushFaceVertices(m.WorldspawnBrushIndices(), nil, nil)
	require.Empty(t, errs)
	require.Len(t, faces, 7)

	for _, face := range faces {
		requireFacePlanar(t, m, face)
		// Nothing may survive beyond the cut plane.
		for _, v := range face {
			require.LessOrEqual(t, v.X+v.Z, float32(48)+1e-3)
		}
	}
}

// A redundant plane that grazes the brush must not create a sliver face.
func TestBrushFaceVertices_RedundantPlane(t *testing.T) {
	m := testworld.NewBuilder().
		AddSolidBox(geo.Vec3{X: 0, Y: 0, Z: 0}, geo.Vec3{X: 32, Y: 32, Z: 32}).
		Build()

	planeNum := uint16(len(m.Planes))
	m.Planes = append(m.Planes, bsp.Plane{Normal: geo.Vec3{X: 1}, Dist: 32.001})
	m.BrushSides = append(m.BrushSides, bsp.BrushSide{PlaneNum: planeNum, TexInfo: -1})
	m.Brushes[0].NumSides = 7

	faces, errs := m.BrushFaceVertices(m.WorldspawnBrushIndices(), nil, nil)
	require.Empty(t, errs)
	require.Len(t, faces, 6)
}

// Every reconstructed face must be planar within 1e-3.
func requireFacePlanar(t *testing.T, m *bsp.Map, face []geo.Vec3) {
	t.Helper()
	plane := geo.PlaneFromTriCW(face[0], face[1], face[2])
	for _, v := range face {
		require.InDelta(t, 0, plane.DistanceTo(v), 1e-3)
	}
}

func requireInsideAABB(t *testing.T, aabb geo.AABB, v geo.Vec3) {
	t.Helper()
	const eps = 1e-3
	require.True(t,
		v.X >= aabb.Mins.X-eps && v.X <= aabb.Maxs.X+eps &&
			v.Y >= aabb.Mins.Y-eps && v.Y <= aabb.Maxs.Y+eps &&
			v.Z >= aabb.Mins.Z-eps && v.Z <= aabb.Maxs.Z+eps,
		"vertex %v outside AABB %v", v, aabb)
}

func TestCategoryTestFuncs(t *testing.T) {
	solid := bsp.Brush{Contents: bsp.ContentsSolid}
	clip := bsp.Brush{Contents: bsp.ContentsPlayerClip}
	water := bsp.Brush{Contents: bsp.ContentsWater}

	predBrush, _ := bsp.CategoryTestFuncs(bsp.CategorySolid)
	require.True(t, predBrush(solid))
	require.False(t, predBrush(clip))

	predBrush, _ = bsp.CategoryTestFuncs(bsp.CategoryPlayerClip)
	require.True(t, predBrush(clip))
	require.False(t, predBrush(water))

	require.True(t, bsp.SolidBrush(solid))
	require.True(t, bsp.SolidBrush(clip))
	require.False(t, bsp.SolidBrush(water))
	require.False(t, bsp.SolidBrush(bsp.Brush{Contents: bsp.ContentsGrenadeClip}))
}
