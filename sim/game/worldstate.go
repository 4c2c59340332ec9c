// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package game

import (
	"github.com/chewxy/math32"

	"github.com/SoftbearStudios/dzsim/sim/coll"
	"github.com/SoftbearStudios/dzsim/sim/geo"
	"github.com/SoftbearStudios/dzsim/sim/move"
)

// Player is the simulated player entity: pose, input counters and weapon
// selection. Movement internals live in the Move field of WorldState.
type Player struct {
	Position geo.Vec3
	Velocity geo.Vec3
	Angles   geo.Vec3 // pitch, yaw, roll
	Crouched bool

	WeaponSlot uint8
	Counters   PressCounters
}

// WorldState is the complete simulation state of one tick. It is value
// semantic: Clone gives an independent copy, Interpolate blends two states
// for drawing. Finalized states are the determinism reference.
type WorldState struct {
	Move        move.Movement
	Player      Player
	Projectiles []Projectile
}

func NewWorldState(tunables *move.Tunables) WorldState {
	return WorldState{Move: move.NewMovement(tunables)}
}

// Clone deep-copies the state so ticking one copy never aliases another.
func (ws *WorldState) Clone() WorldState {
	out := *ws
	out.Projectiles = append([]Projectile(nil), ws.Projectiles...)
	return out
}

// SpawnProjectile throws a mine from the player's view.
func (ws *WorldState) SpawnProjectile(speed float32) {
	forward := geo.AngleForward(ws.Player.Angles)
	eye := ws.Player.Position.Add(geo.Vec3{Z: 64})
	ws.Projectiles = append(ws.Projectiles, Projectile{
		Position: eye,
		Velocity: forward.Mul(speed).Add(ws.Player.Velocity),
		Angles:   ws.Player.Angles,
	})
}

// Flying speeds of the debug free-fly path.
const (
	flySpeed      = 250.0
	flySpeedBoost = 12
	flyRiseSpeed  = 300.0
	attackBoost   = 1400.0
)

// DoTimeStep advances the state by stepSize seconds, applying the given
// chronologically ordered inputs. A nil world makes the tick a no-op apart
// from input bookkeeping (the map has not been published yet).
func (ws *WorldState) DoTimeStep(w *coll.World, stepSize float64, inputs []InputSample) {
	dt := float32(stepSize)

	tryAttack := false
	for _, sample := range inputs {
		for _, cmd := range sample.Commands {
			if cmd == PlusAttack && !ws.Player.Counters.Active(PlusAttack) {
				tryAttack = true
			}
			ws.Player.Counters.Apply(cmd)
		}
		ws.Player.WeaponSlot = sample.WeaponSlot
	}
	if len(inputs) > 0 {
		// The latest input decides the new viewing angle.
		last := inputs[len(inputs)-1]
		ws.Player.Angles = geo.Vec3{X: last.ViewPitch, Y: last.ViewYaw}
	}

	if w == nil {
		return
	}

	// Movement key state at the start of the tick is the counter state at
	// the end of this tick's input queue.
	tryForward := ws.Player.Counters.Active(PlusForward)
	tryBack := ws.Player.Counters.Active(PlusBack)
	tryLeft := ws.Player.Counters.Active(PlusMoveLeft)
	tryRight := ws.Player.Counters.Active(PlusMoveRight)

	if ws.Player.Counters.Active(PlusAttack2) {
		ws.flyMove(dt, tryForward, tryBack, tryLeft, tryRight)
	} else {
		ws.walkTick(w, dt, tryAttack, tryForward, tryBack, tryLeft, tryRight)
	}

	gravity := ws.Move.Tunables.Gravity
	alive := ws.Projectiles[:0]
	for i := range ws.Projectiles {
		if ws.Projectiles[i].update(w, gravity, dt) {
			alive = append(alive, ws.Projectiles[i])
		}
	}
	ws.Projectiles = alive
}

// flyMove is the direct-velocity flying path, toggled by holding attack2.
func (ws *WorldState) flyMove(dt float32, tryForward, tryBack, tryLeft, tryRight bool) {
	yaw := ws.Player.Angles.Y
	forwardXY := geo.Vec3{X: cosDeg(yaw), Y: sinDeg(yaw)}
	rightXY := geo.Vec3{X: cosDeg(yaw - 90), Y: sinDeg(yaw - 90)}

	var wishXY geo.Vec3
	if tryForward && !tryBack {
		wishXY = wishXY.Add(forwardXY)
	} else if tryBack && !tryForward {
		wishXY = wishXY.Sub(forwardXY)
	}
	if tryRight && !tryLeft {
		wishXY = wishXY.Add(rightXY)
	} else if tryLeft && !tryRight {
		wishXY = wishXY.Sub(rightXY)
	}

	if wishXY.X == 0 && wishXY.Y == 0 {
		ws.Player.Velocity.X = 0
		ws.Player.Velocity.Y = 0
	} else {
		wishXY = wishXY.Norm()
		speed := float32(flySpeed)
		if ws.Player.Counters.Active(PlusSpeed) {
			speed *= flySpeedBoost
		}
		ws.Player.Velocity.X = speed * wishXY.X
		ws.Player.Velocity.Y = speed * wishXY.Y
	}

	switch {
	case ws.Player.Counters.Active(PlusJump):
		if ws.Player.Counters.Active(PlusSpeed) {
			ws.Player.Velocity.Z = 6 * flyRiseSpeed
		} else {
			ws.Player.Velocity.Z = flyRiseSpeed
		}
	case ws.Player.Counters.Active(PlusDuck):
		ws.Player.Velocity.Z = 6 * -flyRiseSpeed
	default:
		ws.Player.Velocity.Z = 0
	}

	ws.Player.Position = ws.Player.Position.AddScaled(ws.Player.Velocity, dt)
}

func (ws *WorldState) walkTick(w *coll.World, dt float32,
	tryAttack, tryForward, tryBack, tryLeft, tryRight bool) {

	t := ws.Move.Tunables

	buttons := 0
	if tryForward {
		buttons |= move.ButtonForward
	}
	if tryBack {
		buttons |= move.ButtonBack
	}
	if tryLeft {
		buttons |= move.ButtonMoveLeft
	}
	if tryRight {
		buttons |= move.ButtonMoveRight
	}
	if ws.Player.Counters.Active(PlusJump) {
		buttons |= move.ButtonJump
	}
	if ws.Player.Counters.Active(PlusSpeed) {
		buttons |= move.ButtonSpeed
	}
	if ws.Player.Counters.Active(PlusDuck) {
		buttons |= move.ButtonDuck
	}
	ws.Move.Buttons = buttons

	ws.Move.ForwardMove = 0
	if tryForward {
		ws.Move.ForwardMove += t.ForwardSpeed
	}
	if tryBack {
		ws.Move.ForwardMove -= t.ForwardSpeed
	}
	ws.Move.SideMove = 0
	if tryRight {
		ws.Move.SideMove += t.SideSpeed
	}
	if tryLeft {
		ws.Move.SideMove -= t.SideSpeed
	}

	ws.Move.ViewAngles = ws.Player.Angles
	ws.Move.Origin = ws.Player.Position

	// On the attack edge, boost the player in the looking direction.
	if tryAttack {
		forward := geo.AngleForward(ws.Player.Angles)
		ws.Move.Velocity = ws.Move.Velocity.AddScaled(forward, attackBoost)
	}

	ws.Move.MaxSpeed = t.MaxSpeed
	ws.Move.PlayerMove(w, dt)
	ws.Move.FinishMove()

	ws.Player.Position = ws.Move.Origin
	ws.Player.Velocity = ws.Move.Velocity
	ws.Player.Crouched = ws.Move.Ducked
}

// Interpolate blends two states for drawing at the given phase. Positions
// interpolate; discrete flags snap to the predicted state.
func Interpolate(stateA, stateB *WorldState, phase float32) WorldState {
	if phase <= 0 {
		return stateA.Clone()
	}
	if phase >= 1 {
		return stateB.Clone()
	}

	out := stateB.Clone()
	out.Player.Position = stateA.Player.Position.Lerp(stateB.Player.Position, phase)
	out.Move.Origin = out.Player.Position
	for i := range out.Projectiles {
		if i < len(stateA.Projectiles) {
			out.Projectiles[i].Position =
				stateA.Projectiles[i].Position.Lerp(stateB.Projectiles[i].Position, phase)
		}
	}
	return out
}

// HorizontalSpeed is the player's speed ignoring Z, as shown by overlays.
func (ws *WorldState) HorizontalSpeed() float32 {
	return ws.Player.Velocity.LengthXY()
}

func cosDeg(deg float32) float32 {
	_, c := math32.Sincos(geo.Radians(deg))
	return c
}

func sinDeg(deg float32) float32 {
	s, _ := math32.Sincos(geo.Radians(deg))
	return s
}
