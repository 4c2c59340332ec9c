// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package render_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SoftbearStudios/dzsim/sim/bsp"
	"github.com/SoftbearStudios/dzsim/sim/coll"
	"github.com/SoftbearStudios/dzsim/sim/geo"
	"github.com/SoftbearStudios/dzsim/sim/move"
	"github.com/SoftbearStudios/dzsim/sim/render"
	"github.com/SoftbearStudios/dzsim/sim/testworld"
)

var tunables = move.DefaultTunables()

func TestExtract_Categories(t *testing.T) {
	b := testworld.NewBuilder()
	b.AddSolidBox(geo.Vec3{X: -64, Y: -64, Z: -16}, geo.Vec3{X: 64, Y: 64, Z: 0})
	b.AddAxialBrush(geo.Vec3{X: -32, Y: -32, Z: 0}, geo.Vec3{X: 32, Y: 32, Z: 64}, bsp.ContentsPlayerClip)
	b.AddAxialBrush(geo.Vec3{X: 100, Y: -32, Z: 0}, geo.Vec3{X: 164, Y: 32, Z: 32}, bsp.ContentsWater)
	m := b.Build()

	w := render.Extract(m, nil)
	require.Empty(t, w.Errors)

	require.Len(t, w.BrushFaces[bsp.CategorySolid], 6)
	require.Len(t, w.BrushFaces[bsp.CategoryPlayerClip], 6)
	// Water keeps only upward-facing faces.
	require.Len(t, w.BrushFaces[bsp.CategoryWater], 1)
	face := w.BrushFaces[bsp.CategoryWater][0]
	require.True(t, geo.CWTriangleFacingUp(face[0], face[1], face[2]))
	require.Empty(t, w.BrushFaces[bsp.CategoryLadder])
}

func TestExtract_DisplacementsAndProps(t *testing.T) {
	const mdl = "models/rock.mdl"
	b := testworld.NewBuilder()
	b.AddDisplacement(2, geo.Vec3{X: -64, Y: -64}, 128, func(row, col int) float32 {
		return float32(row + col)
	})
	b.AddStaticProp(mdl, geo.Vec3{X: 10, Y: 20, Z: 0}, geo.Vec3{Y: 90}, 2.0)
	m := b.Build()

	assets := &coll.MemoryAssets{Models: map[string][]byte{
		mdl: testworld.EncodePhyBox(geo.Vec3{X: -8, Y: -8, Z: 0}, geo.Vec3{X: 8, Y: 8, Z: 16}, "rock"),
	}}
	cw, errs := coll.NewWorld(m, assets)
	require.Empty(t, errs)

	w := render.Extract(m, cw)
	require.Empty(t, w.Errors)
	require.Len(t, w.DisplacementFaces, 2*4*4)
	require.NotEmpty(t, w.DisplacementBoundaries)

	require.Len(t, w.Props, 1)
	require.Equal(t, mdl, w.Props[0].ModelPath)
	require.Len(t, w.Props[0].Instances, 1)
	require.Equal(t, float32(2.0), w.Props[0].Instances[0].Scale)
	require.Len(t, w.Props[0].Sections, 1)
}

func TestExtract_TriggerPush(t *testing.T) {
	b := testworld.NewBuilder()
	// Model 0 is worldspawn; the trigger lives in model 1. The builder only
	// produces model 0, so reference it and expect an error instead.
	b.AddEntity(map[string]string{
		"classname":  "trigger_push",
		"model":      "*7",
		"origin":     "0 0 0",
		"spawnflags": "1",
	})
	w := render.Extract(b.Build(), nil)
	require.NotEmpty(t, w.Errors)
	require.Empty(t, w.TriggerPushFaces)
}

func TestGlidability(t *testing.T) {
	// A flat floor never glides.
	require.Equal(t, render.SlideFail,
		render.ClassifySurface(geo.Vec3{Z: 1}, 500, &tunables))

	// A steep ramp at speed deflects well past the ground-check threshold.
	steep := geo.Vec3{X: -0.8, Z: 0.6}.Norm()
	require.Equal(t, render.SlideSuccess,
		render.ClassifySurface(steep, 700, &tunables))

	// The same ramp on a slow walk fails.
	require.Equal(t, render.SlideFail,
		render.ClassifySurface(steep, 50, &tunables))

	// Faster approach can only improve the classification.
	prev := render.SlideFail
	for speed := float32(50); speed <= 3000; speed += 50 {
		got := render.ClassifySurface(steep, speed, &tunables)
		require.GreaterOrEqual(t, uint8(got), uint8(prev), "speed %v", speed)
		prev = got
	}
}
