// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package move_test

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/require"

	"github.com/SoftbearStudios/dzsim/sim/coll"
	"github.com/SoftbearStudios/dzsim/sim/geo"
	"github.com/SoftbearStudios/dzsim/sim/move"
	"github.com/SoftbearStudios/dzsim/sim/testworld"
)

var tunables = move.DefaultTunables()

const tickDelta = 1.0 / 64

func flatWorld(t *testing.T, topZ float32) *coll.World {
	t.Helper()
	w, errs := coll.NewWorld(testworld.FlatFloor(topZ), nil)
	require.Empty(t, errs)
	return w
}

// groundedPlayer rests the hull where a downward trace would actually stop:
// the collision epsilon above the floor.
func groundedPlayer(origin geo.Vec3) move.Movement {
	mv := move.NewMovement(&tunables)
	origin.Z += coll.DistEpsilon
	mv.Origin = origin
	mv.GroundEntity = true
	return mv
}

// Vacuum jump: one tick after pressing jump on flat ground, the vertical
// velocity is the jump impulse minus one tick of gravity.
func TestJump_Vacuum(t *testing.T) {
	w := flatWorld(t, 64)
	mv := groundedPlayer(geo.Vec3{Z: 64})
	mv.Buttons = move.ButtonJump

	mv.PlayerMove(w, tickDelta)

	want := tunables.JumpImpulse - tunables.Gravity*tickDelta // 289.493377
	require.InDelta(t, want, mv.Velocity.Z, 1e-3)
	require.False(t, mv.GroundEntity)
}

func TestJump_NoPogoStick(t *testing.T) {
	w := flatWorld(t, 0)
	mv := groundedPlayer(geo.Vec3{})
	mv.Buttons = move.ButtonJump
	mv.OldButtons = move.ButtonJump // still held from last tick

	mv.PlayerMove(w, tickDelta)
	require.True(t, mv.GroundEntity)
	require.Equal(t, float32(0), mv.Velocity.Z)
}

func TestJump_StaminaCost(t *testing.T) {
	w := flatWorld(t, 0)
	mv := groundedPlayer(geo.Vec3{})
	mv.Buttons = move.ButtonJump

	mv.PlayerMove(w, tickDelta)

	want := tunables.StaminaMax - tunables.StaminaJumpCost*tunables.JumpImpulse
	require.InDelta(t, want, mv.Stamina, 0.01)
}

// Free fall integrates exactly -g*t, half before and half after the move.
func TestFreeFall(t *testing.T) {
	w := flatWorld(t, -10000)
	mv := move.NewMovement(&tunables)
	mv.Origin = geo.Vec3{Z: 5000}

	const ticks = 32
	for i := 0; i < ticks; i++ {
		mv.PlayerMove(w, tickDelta)
		mv.FinishMove()
	}
	require.InDelta(t, -tunables.Gravity*tickDelta*ticks, mv.Velocity.Z, 1e-2)
	require.Less(t, mv.Origin.Z, float32(5000))
}

// Ground friction follows the stepwise closed form.
func TestGroundFriction(t *testing.T) {
	w := flatWorld(t, 0)
	mv := groundedPlayer(geo.Vec3{})
	mv.Velocity = geo.Vec3{X: 100}

	mv.PlayerMove(w, tickDelta)

	s := float32(100)
	control := geo.Maxf(s, tunables.StopSpeed)
	want := s - control*tunables.Friction*tickDelta
	require.InDelta(t, want, mv.Velocity.LengthXY(), 1e-3)
	require.True(t, mv.GroundEntity)
}

func TestGroundFriction_StopsBelowThreshold(t *testing.T) {
	w := flatWorld(t, 0)
	mv := groundedPlayer(geo.Vec3{})
	mv.Velocity = geo.Vec3{X: 5}

	for i := 0; i < 20; i++ {
		mv.PlayerMove(w, tickDelta)
		mv.FinishMove()
	}
	require.InDelta(t, 0, mv.Velocity.LengthXY(), 1e-3)
}

// One tick can never leave a velocity component outside the clamp.
func TestTerminalClamp(t *testing.T) {
	w := flatWorld(t, -10000)
	mv := move.NewMovement(&tunables)
	mv.Origin = geo.Vec3{Z: 5000}
	mv.Velocity = geo.Vec3{X: 99999, Y: -99999, Z: 99999}

	mv.PlayerMove(w, tickDelta)

	for axis := 0; axis < 3; axis++ {
		require.LessOrEqual(t, math32.Abs(mv.Velocity.Component(axis)), tunables.MaxVelocity)
	}
}

func TestNaNVelocityScrubbed(t *testing.T) {
	w := flatWorld(t, -10000)
	mv := move.NewMovement(&tunables)
	mv.Origin = geo.Vec3{Z: 5000}
	mv.Velocity = geo.Vec3{X: math32.NaN()}

	mv.PlayerMove(w, tickDelta)

	require.False(t, math32.IsNaN(mv.Velocity.X))
	require.False(t, math32.IsNaN(mv.Origin.X))
}

// Wall slide: moving into a wall kills the into-wall component and leaves
// the parallel components free.
func TestWallSlide(t *testing.T) {
	b := testworld.NewBuilder()
	b.AddSolidBox(geo.Vec3{X: -1024, Y: -1024, Z: -64}, geo.Vec3{X: 1024, Y: 1024, Z: 0})
	b.AddSolidBox(geo.Vec3{X: 32, Y: -1024, Z: 0}, geo.Vec3{X: 96, Y: 1024, Z: 400})
	w, errs := coll.NewWorld(b.Build(), nil)
	require.Empty(t, errs)

	mv := move.NewMovement(&tunables)
	mv.Origin = geo.Vec3{X: 14, Z: 100} // airborne, hull face 2 units from the wall
	mv.Velocity = geo.Vec3{X: 320}

	mv.PlayerMove(w, tickDelta)

	require.InDelta(t, 0, mv.Velocity.X, 1e-3)
	require.InDelta(t, 0, mv.Velocity.Y, 1e-3)
	require.LessOrEqual(t, mv.Origin.X+16, float32(32))
}

// Step-up acceptance: a 17 unit step is climbed in one tick.
func TestStepUp_Accepted(t *testing.T) {
	b := testworld.NewBuilder()
	b.AddSolidBox(geo.Vec3{X: -1024, Y: -1024, Z: -64}, geo.Vec3{X: 1024, Y: 1024, Z: 0})
	b.AddSolidBox(geo.Vec3{X: 32, Y: -1024, Z: 0}, geo.Vec3{X: 1024, Y: 1024, Z: 17})
	w, errs := coll.NewWorld(b.Build(), nil)
	require.Empty(t, errs)

	mv := groundedPlayer(geo.Vec3{X: 14})
	mv.Velocity = geo.Vec3{X: 300}

	mv.PlayerMove(w, tickDelta)

	require.True(t, mv.GroundEntity)
	require.InDelta(t, 17, mv.Origin.Z, 2*tunables.CoordResolution)
	require.InDelta(t, 14+300*tickDelta, mv.Origin.X, 0.5)
}

// Step-up rejection: a 19 unit step is a wall.
func TestStepUp_RejectedAt19(t *testing.T) {
	b := testworld.NewBuilder()
	b.AddSolidBox(geo.Vec3{X: -1024, Y: -1024, Z: -64}, geo.Vec3{X: 1024, Y: 1024, Z: 0})
	b.AddSolidBox(geo.Vec3{X: 32, Y: -1024, Z: 0}, geo.Vec3{X: 1024, Y: 1024, Z: 19})
	w, errs := coll.NewWorld(b.Build(), nil)
	require.Empty(t, errs)

	mv := groundedPlayer(geo.Vec3{X: 14})
	mv.Velocity = geo.Vec3{X: 300}

	mv.PlayerMove(w, tickDelta)

	require.InDelta(t, 0, mv.Velocity.X, 1e-3)
	require.Less(t, mv.Origin.Z, float32(1))
}

// Slide seam: pushed into a 90 degree corner, the surviving motion runs
// along the crease of the two wall planes.
func TestSlideSeam(t *testing.T) {
	b := testworld.NewBuilder()
	b.AddSolidBox(geo.Vec3{X: 32, Y: -1024, Z: -200}, geo.Vec3{X: 256, Y: 1024, Z: 400})
	b.AddSolidBox(geo.Vec3{X: -1024, Y: 32, Z: -200}, geo.Vec3{X: 1024, Y: 256, Z: 400})
	w, errs := coll.NewWorld(b.Build(), nil)
	require.Empty(t, errs)

	mv := move.NewMovement(&tunables)
	mv.Origin = geo.Vec3{X: 14, Y: 14, Z: 100} // airborne, near the corner
	mv.Velocity = geo.Vec3{X: 300, Y: 300}

	mv.PlayerMove(w, tickDelta)

	// The crease of walls (-1,0,0) and (0,-1,0) is vertical: only Z motion
	// survives.
	require.InDelta(t, 0, mv.Velocity.X, 1e-2)
	require.InDelta(t, 0, mv.Velocity.Y, 1e-2)
}

// Walking off a ledge lower than the step height keeps the player grounded:
// the player snaps down onto the floor below instead of falling.
func TestStayOnGround_StepDown(t *testing.T) {
	b := testworld.NewBuilder()
	b.AddSolidBox(geo.Vec3{X: -1024, Y: -1024, Z: -64}, geo.Vec3{X: 0, Y: 1024, Z: 10})
	b.AddSolidBox(geo.Vec3{X: 0, Y: -1024, Z: -64}, geo.Vec3{X: 1024, Y: 1024, Z: 0})
	w, errs := coll.NewWorld(b.Build(), nil)
	require.Empty(t, errs)

	// Walking off the 10 unit ledge.
	mv := groundedPlayer(geo.Vec3{X: -18, Z: 10})
	mv.Velocity = geo.Vec3{X: 250}

	// Friction slows the player; 32 ticks carry the hull fully past the
	// ledge edge.
	for i := 0; i < 32; i++ {
		mv.PlayerMove(w, tickDelta)
		mv.FinishMove()
	}

	require.True(t, mv.GroundEntity)
	require.InDelta(t, 0, mv.Origin.Z, 2*tunables.CoordResolution)
}

func TestDuckJump(t *testing.T) {
	w := flatWorld(t, 0)
	mv := groundedPlayer(geo.Vec3{})
	mv.Buttons = move.ButtonDuck | move.ButtonJump

	mv.PlayerMove(w, tickDelta)

	require.True(t, mv.Ducked)
	require.False(t, mv.GroundEntity)
	// Ducked jumps set, rather than add, the impulse.
	want := tunables.JumpImpulse - tunables.Gravity*tickDelta*0.5
	require.InDelta(t, want, mv.Velocity.Z, 1e-3)
}

func TestLandingClassification(t *testing.T) {
	w := flatWorld(t, 0)
	mv := move.NewMovement(&tunables)
	mv.Origin = geo.Vec3{Z: 600}
	mv.Velocity = geo.Vec3{Z: -600}

	for i := 0; i < 80 && !mv.GroundEntity; i++ {
		mv.PlayerMove(w, tickDelta)
		mv.FinishMove()
	}
	require.True(t, mv.GroundEntity)
	require.Equal(t, move.LandingHard, mv.LastLanding)
	require.Less(t, mv.Stamina, tunables.StaminaMax)
	require.Equal(t, float32(0), mv.FallVelocity)
}

func TestLadderAndObserverAreStubs(t *testing.T) {
	w := flatWorld(t, 0)
	for _, moveType := range []move.MoveType{move.MoveTypeLadder, move.MoveTypeObserver} {
		mv := move.NewMovement(&tunables)
		mv.MoveType = moveType
		mv.Origin = geo.Vec3{Z: 50}
		before := mv.Origin
		mv.PlayerMove(w, tickDelta)
		require.Equal(t, before, mv.Origin)
	}
}

func TestNoclipIgnoresWalls(t *testing.T) {
	b := testworld.NewBuilder()
	b.AddSolidBox(geo.Vec3{X: 32, Y: -1024, Z: -1024}, geo.Vec3{X: 96, Y: 1024, Z: 1024})
	w, errs := coll.NewWorld(b.Build(), nil)
	require.Empty(t, errs)

	mv := move.NewMovement(&tunables)
	mv.MoveType = move.MoveTypeNoclip
	mv.ForwardMove = 450

	for i := 0; i < 64; i++ {
		mv.PlayerMove(w, tickDelta)
		mv.FinishMove()
	}
	require.Greater(t, mv.Origin.X, float32(96))
}
