// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package coll_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SoftbearStudios/dzsim/sim/coll"
	"github.com/SoftbearStudios/dzsim/sim/geo"
	"github.com/SoftbearStudios/dzsim/sim/testworld"
)

var playerHull = struct {
	mins, maxs geo.Vec3
}{
	mins: geo.Vec3{X: -16, Y: -16, Z: 0},
	maxs: geo.Vec3{X: 16, Y: 16, Z: 72},
}

func playerTrace(start, end geo.Vec3) coll.Trace {
	return coll.Trace{Start: start, End: end, HullMins: playerHull.mins, HullMaxs: playerHull.maxs}
}

func TestSweep_FloorHit(t *testing.T) {
	w, errs := coll.NewWorld(testworld.FlatFloor(0), nil)
	require.Empty(t, errs)

	tr := playerTrace(geo.Vec3{Z: 100}, geo.Vec3{Z: -100})
	result := w.Sweep(&tr)

	require.True(t, result.DidHit())
	require.False(t, result.StartSolid)
	require.GreaterOrEqual(t, result.Fraction, float32(0))
	require.LessOrEqual(t, result.Fraction, float32(1))
	// The feet stop on the floor plane, within the collision epsilon.
	end := result.EndPos(&tr)
	require.InDelta(t, 0, end.Z, 2*coll.DistEpsilon+1e-3)
	require.InDelta(t, 1, result.PlaneNormal.Z, 1e-4)
	require.InDelta(t, 1, result.PlaneNormal.Length(), 1e-4)
	require.NotEqual(t, int32(-1), result.Surface)
}

func TestSweep_FreeSpaceRoundTrip(t *testing.T) {
	w, _ := coll.NewWorld(testworld.FlatFloor(0), nil)

	// A sweep wholly in free space reports no hit.
	tr := playerTrace(geo.Vec3{Z: 500}, geo.Vec3{X: 300, Y: -200, Z: 400})
	result := w.Sweep(&tr)
	require.Equal(t, float32(1), result.Fraction)
	require.False(t, result.StartSolid)
	require.Equal(t, int32(-1), result.Surface)
}

func TestSweep_PointQueryIdempotent(t *testing.T) {
	w, _ := coll.NewWorld(testworld.FlatFloor(0), nil)

	inSolid := playerTrace(geo.Vec3{Z: -32}, geo.Vec3{Z: -32})
	first := w.Sweep(&inSolid)
	second := w.Sweep(&inSolid)
	require.Equal(t, first.StartSolid, second.StartSolid)
	require.Equal(t, first.AllSolid, second.AllSolid)
	require.True(t, first.StartSolid)
	require.True(t, first.AllSolid)

	free := playerTrace(geo.Vec3{Z: 10}, geo.Vec3{Z: 10})
	result := w.Sweep(&free)
	require.False(t, result.StartSolid)
	require.Equal(t, float32(1), result.Fraction)
}

func TestSweep_WallNormal(t *testing.T) {
	b := testworld.NewBuilder()
	b.AddSolidBox(geo.Vec3{X: -1024, Y: -1024, Z: -64}, geo.Vec3{X: 1024, Y: 1024, Z: 0})
	// A wall ahead on +X.
	b.AddSolidBox(geo.Vec3{X: 128, Y: -1024, Z: 0}, geo.Vec3{X: 192, Y: 1024, Z: 256})
	w, errs := coll.NewWorld(b.Build(), nil)
	require.Empty(t, errs)

	tr := playerTrace(geo.Vec3{Z: 1}, geo.Vec3{X: 400, Z: 1})
	result := w.Sweep(&tr)
	require.True(t, result.DidHit())
	require.InDelta(t, -1, result.PlaneNormal.X, 1e-4)
	// The hull face (origin +16) stops just short of the wall at 128.
	end := result.EndPos(&tr)
	require.LessOrEqual(t, end.X+16, float32(128))
	require.Greater(t, end.X+16, float32(128)-1)
}

func TestSweep_Displacement(t *testing.T) {
	m := testworld.NewBuilder().
		AddDisplacement(2, geo.Vec3{X: -64, Y: -64}, 128, func(row, col int) float32 {
			return 32
		}).Build()
	w, errs := coll.NewWorld(m, nil)
	require.Empty(t, errs)
	require.Greater(t, w.PrimitiveCount(), 0)

	tr := playerTrace(geo.Vec3{Z: 100}, geo.Vec3{Z: -100})
	result := w.Sweep(&tr)
	require.True(t, result.DidHit())
	require.InDelta(t, 1, result.PlaneNormal.Z, 1e-3)
	end := result.EndPos(&tr)
	require.InDelta(t, 32, end.Z, 0.5)
}

func TestSweep_StaticProp(t *testing.T) {
	const mdl = "models/props/crate.mdl"
	b := testworld.NewBuilder()
	b.AddSolidBox(geo.Vec3{X: -512, Y: -512, Z: -64}, geo.Vec3{X: 512, Y: 512, Z: 0})
	b.AddStaticProp(mdl, geo.Vec3{X: 128}, geo.Vec3{}, 1.0)
	m := b.Build()

	assets := &coll.MemoryAssets{Models: map[string][]byte{
		mdl: testworld.EncodePhyBox(geo.Vec3{X: -24, Y: -24, Z: 0}, geo.Vec3{X: 24, Y: 24, Z: 48}, "metal"),
	}}
	w, errs := coll.NewWorld(m, assets)
	require.Empty(t, errs)
	require.NotNil(t, w.Model(mdl))
	require.Len(t, w.Caches(), 1)

	// The cached world AABB must contain every transformed triangle corner.
	cache := w.Caches()[0]
	for _, section := range cache.Model.Sections {
		for _, v := range section.Mesh.Vertices {
			world := cache.Transform.Apply(v)
			require.True(t, cache.WorldAABB.ContainsPoint(world),
				"vertex %v outside cached AABB %v", world, cache.WorldAABB)
		}
	}

	// Walking into the crate stops the sweep with a -X normal.
	tr := playerTrace(geo.Vec3{Z: 1}, geo.Vec3{X: 300, Z: 1})
	result := w.Sweep(&tr)
	require.True(t, result.DidHit())
	require.Less(t, result.Fraction, float32(1))
	require.InDelta(t, -1, result.PlaneNormal.X, 1e-3)
	require.Equal(t, "metal", w.SurfaceName(result.Surface))
}

func TestSweep_RotatedProp(t *testing.T) {
	const mdl = "models/props/ramp.mdl"
	b := testworld.NewBuilder()
	b.AddStaticProp(mdl, geo.Vec3{X: 64}, geo.Vec3{Y: 45}, 1.0) // yawed 45 degrees
	m := b.Build()

	assets := &coll.MemoryAssets{Models: map[string][]byte{
		mdl: testworld.EncodePhyBox(geo.Vec3{X: -16, Y: -16, Z: 0}, geo.Vec3{X: 16, Y: 16, Z: 64}, ""),
	}}
	w, errs := coll.NewWorld(m, assets)
	require.Empty(t, errs)

	tr := playerTrace(geo.Vec3{X: -64, Z: 1}, geo.Vec3{X: 128, Z: 1})
	result := w.Sweep(&tr)
	require.True(t, result.DidHit())
	require.InDelta(t, 1, result.PlaneNormal.Length(), 1e-4)
	// The yawed face normal points back toward the sweep.
	require.Negative(t, result.PlaneNormal.X)
}

func TestSweep_MissingPhySkipsSilently(t *testing.T) {
	const mdl = "models/props/ghost.mdl"
	b := testworld.NewBuilder()
	b.AddStaticProp(mdl, geo.Vec3{}, geo.Vec3{}, 1.0)
	m := b.Build() // embedded map: missing collision files are not errors

	w, errs := coll.NewWorld(m, &coll.MemoryAssets{Models: map[string][]byte{}})
	require.Empty(t, errs)
	require.Nil(t, w.Model(mdl))
	require.Empty(t, w.Caches())
}

func TestSweep_MultiSolidSkipped(t *testing.T) {
	const mdl = "models/props/door.mdl"
	blob := testworld.EncodePhyBox(geo.Vec3{X: -1, Y: -1, Z: -1}, geo.Vec3{X: 1, Y: 1, Z: 1}, "")
	blob[8] = 2 // solid count

	b := testworld.NewBuilder()
	b.AddStaticProp(mdl, geo.Vec3{}, geo.Vec3{}, 1.0)
	w, errs := coll.NewWorld(b.Build(), &coll.MemoryAssets{Models: map[string][]byte{mdl: blob}})
	require.Empty(t, errs)
	require.Equal(t, []string{mdl}, w.SkippedMultiSolid)
	require.Nil(t, w.Model(mdl))
}

func BenchmarkSweep(b *testing.B) {
	m := testworld.PerlinTerrain(1, 4, 2048, 192)
	w, _ := coll.NewWorld(m, nil)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		start := geo.Vec3{X: float32(i%64) * 16, Y: float32(i%32) * 16, Z: 300}
		tr := playerTrace(start, start.Add(geo.Vec3{Z: -400}))
		_ = w.Sweep(&tr)
	}
}
