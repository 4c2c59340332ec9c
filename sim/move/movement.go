// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package move

import (
	"log"

	"github.com/chewxy/math32"

	"github.com/SoftbearStudios/dzsim/sim/coll"
	"github.com/SoftbearStudios/dzsim/sim/geo"
)

// Logf is the movement log sink. Tests and embedders may replace it.
var Logf = log.Printf

type MoveType uint8

const (
	MoveTypeNone MoveType = iota
	MoveTypeWalk
	MoveTypeFly
	MoveTypeNoclip
	MoveTypeLadder
	MoveTypeObserver
)

// Button bits of the per-tick input state.
const (
	ButtonJump      = 1 << 1
	ButtonDuck      = 1 << 2
	ButtonForward   = 1 << 3
	ButtonBack      = 1 << 4
	ButtonMoveLeft  = 1 << 9
	ButtonMoveRight = 1 << 10
	ButtonSpeed     = 1 << 17
)

// Landing classifies how hard the player hit the ground, for overlay
// callbacks.
type Landing uint8

const (
	LandingNone Landing = iota
	LandingSoft
	LandingMedium
	LandingHard
)

// Movement is the player movement state machine. It is value-semantic: world
// states copy it freely; the tunables table is shared immutable.
type Movement struct {
	Tunables *Tunables

	MoveType     MoveType
	GroundEntity bool

	Ducked     bool // fully ducked
	Ducking    bool // in process of ducking
	InDuckJump bool

	// Transition timers, in milliseconds.
	DuckTime     float32
	DuckJumpTime float32
	JumpTime     float32

	FallVelocity      float32
	AllowAutoMovement bool

	MaxSpeed    float32
	ForwardMove float32
	SideMove    float32
	Buttons     int
	OldButtons  int

	ViewAngles   geo.Vec3
	Origin       geo.Vec3
	Velocity     geo.Vec3
	BaseVelocity geo.Vec3
	OutJumpVel   geo.Vec3

	SurfaceFriction float32
	GroundSurface   int32
	Stamina         float32

	// LastLanding records the classification of the most recent landing;
	// consumed and reset by the caller.
	LastLanding Landing
}

func NewMovement(tunables *Tunables) Movement {
	return Movement{
		Tunables:          tunables,
		MoveType:          MoveTypeWalk,
		AllowAutoMovement: true,
		MaxSpeed:          tunables.MaxSpeed,
		SurfaceFriction:   1.0,
		GroundSurface:     -1,
		Stamina:           tunables.StaminaMax,
	}
}

// PlayerMins is the hull minimum relative to the feet origin.
func (mv *Movement) PlayerMins(ducked bool) geo.Vec3 {
	t := mv.Tunables
	return geo.Vec3{X: -0.5 * t.PlayerWidth, Y: -0.5 * t.PlayerWidth, Z: 0}
}

func (mv *Movement) PlayerMaxs(ducked bool) geo.Vec3 {
	t := mv.Tunables
	height := t.PlayerHeightStanding
	if ducked {
		height = t.PlayerHeightCrouched
	}
	return geo.Vec3{X: 0.5 * t.PlayerWidth, Y: 0.5 * t.PlayerWidth, Z: height}
}

func (mv *Movement) hullMins() geo.Vec3 { return mv.PlayerMins(mv.Ducked) }
func (mv *Movement) hullMaxs() geo.Vec3 { return mv.PlayerMaxs(mv.Ducked) }

// tracePlayerBBox sweeps the player hull from start to end.
func (mv *Movement) tracePlayerBBox(w *coll.World, start, end geo.Vec3) (coll.Trace, coll.TraceResult) {
	tr := coll.Trace{Start: start, End: end, HullMins: mv.hullMins(), HullMaxs: mv.hullMaxs()}
	return tr, w.Sweep(&tr)
}

func (mv *Movement) tryTouchGround(w *coll.World, start, end, mins, maxs geo.Vec3) coll.TraceResult {
	tr := coll.Trace{Start: start, End: end, HullMins: mins, HullMaxs: maxs}
	return w.Sweep(&tr)
}

// PlayerMove runs one tick of player movement, modifying origin, velocity
// and move state in place.
func (mv *Movement) PlayerMove(w *coll.World, timeDelta float32) {
	mv.checkParameters()
	mv.OutJumpVel = geo.Vec3{}
	mv.reduceTimers(timeDelta)

	if mv.MoveType != MoveTypeWalk {
		mv.categorizePosition(w)
	} else if mv.Velocity.Z > mv.Tunables.MinLeaveGroundVelZ {
		mv.setGroundEntity(false, -1)
	}

	// If we are not on ground, store off how fast we are moving down.
	if !mv.GroundEntity {
		mv.FallVelocity = -mv.Velocity.Z
	}

	mv.duck(w)

	switch mv.MoveType {
	case MoveTypeNone, MoveTypeLadder, MoveTypeObserver:
		// Ladder and observer movement keep the external contract but do
		// not move yet.
	case MoveTypeNoclip, MoveTypeFly:
		mv.fullNoClipMove(timeDelta)
	case MoveTypeWalk:
		mv.fullWalkMove(w, timeDelta)
	default:
		Logf("[movement] invalid move type: %d", mv.MoveType)
	}
}

// FinishMove latches the button state for edge detection next tick.
func (mv *Movement) FinishMove() {
	mv.OldButtons = mv.Buttons
}

// checkParameters clamps the requested move so its 2D magnitude never
// exceeds the speed cap.
func (mv *Movement) checkParameters() {
	if mv.MoveType == MoveTypeNoclip {
		return
	}
	t := mv.Tunables
	spd := mv.ForwardMove*mv.ForwardMove + mv.SideMove*mv.SideMove
	if t.ClientMaxSpeed != 0 {
		mv.MaxSpeed = geo.Minf(t.ClientMaxSpeed, mv.MaxSpeed)
	}
	if spd != 0 && spd > mv.MaxSpeed*mv.MaxSpeed {
		ratio := mv.MaxSpeed / math32.Sqrt(spd)
		mv.ForwardMove *= ratio
		mv.SideMove *= ratio
	}
}

func (mv *Movement) reduceTimers(timeDelta float32) {
	frameMsec := 1000 * timeDelta

	if mv.DuckTime > 0 {
		mv.DuckTime = geo.Maxf(0, mv.DuckTime-frameMsec)
	}
	if mv.DuckJumpTime > 0 {
		mv.DuckJumpTime = geo.Maxf(0, mv.DuckJumpTime-frameMsec)
	}
	if mv.JumpTime > 0 {
		mv.JumpTime = geo.Maxf(0, mv.JumpTime-frameMsec)
	}
}

// duck switches the hull between standing and crouched. The full duck
// animation timing is not simulated; the hull snaps as soon as the duck
// button changes (unducking waits for room), which is what collision cares
// about.
func (mv *Movement) duck(w *coll.World) {
	wantDuck := mv.Buttons&ButtonDuck != 0
	if mv.JumpTime == 0 {
		mv.InDuckJump = false
	}
	if wantDuck {
		if !mv.Ducked {
			mv.Ducked = true
			mv.Ducking = false
			mv.DuckTime = duckTimeMs
			// Crouching in air pulls the feet up; keep the view center
			// stable would need eye offsets, collision does not.
		}
		return
	}
	if mv.Ducked && mv.canUnduck(w) {
		mv.Ducked = false
		mv.Ducking = false
	}
}

// canUnduck verifies the standing hull has room at the current origin.
func (mv *Movement) canUnduck(w *coll.World) bool {
	tr := coll.Trace{
		Start:    mv.Origin,
		End:      mv.Origin,
		HullMins: mv.PlayerMins(false),
		HullMaxs: mv.PlayerMaxs(false),
	}
	result := w.Sweep(&tr)
	return !result.StartSolid
}

func (mv *Movement) startGravity(frametime float32) {
	const entGravity = 1.0
	// Half before the move, half after; yes, this 0.5 looks wrong, but it's
	// not.
	mv.Velocity.Z -= entGravity * mv.Tunables.Gravity * 0.5 * frametime
	mv.Velocity.Z += mv.BaseVelocity.Z * frametime
	mv.BaseVelocity.Z = 0
	mv.checkVelocity()
}

func (mv *Movement) finishGravity(frametime float32) {
	const entGravity = 1.0
	mv.Velocity.Z -= entGravity * mv.Tunables.Gravity * 0.5 * frametime
	mv.checkVelocity()
}

func (mv *Movement) friction(frametime float32) {
	t := mv.Tunables

	speed := mv.Velocity.Length()
	if speed < 0.1 {
		return
	}

	drop := float32(0)
	if mv.GroundEntity {
		friction := t.Friction * mv.SurfaceFriction

		// Bleed off some speed, but if we have less than the bleed
		// threshold, bleed the threshold amount.
		control := speed
		if control < t.StopSpeed {
			control = t.StopSpeed
		}
		drop += control * friction * frametime
	}

	newSpeed := speed - drop
	if newSpeed < 0 {
		newSpeed = 0
	}
	if newSpeed != speed {
		mv.Velocity = mv.Velocity.Mul(newSpeed / speed)
	}
}

func (mv *Movement) accelerate(wishDir geo.Vec3, wishSpeed, accel, frametime float32) {
	currentSpeed := mv.Velocity.Dot(wishDir)
	addSpeed := wishSpeed - currentSpeed
	if addSpeed <= 0 {
		return
	}
	accelSpeed := accel * frametime * wishSpeed * mv.SurfaceFriction
	if accelSpeed > addSpeed {
		accelSpeed = addSpeed
	}
	mv.Velocity = mv.Velocity.AddScaled(wishDir, accelSpeed)
}

func (mv *Movement) airAccelerate(frametime float32, wishDir geo.Vec3, wishSpeed, accel float32) {
	wishSpd := wishSpeed
	if wishSpd > mv.Tunables.AirMaxWishspeed {
		wishSpd = mv.Tunables.AirMaxWishspeed
	}
	currentSpeed := mv.Velocity.Dot(wishDir)
	addSpeed := wishSpd - currentSpeed
	if addSpeed <= 0 {
		return
	}
	accelSpeed := accel * wishSpeed * frametime * mv.SurfaceFriction
	if accelSpeed > addSpeed {
		accelSpeed = addSpeed
	}
	mv.Velocity = mv.Velocity.AddScaled(wishDir, accelSpeed)
}

// wishDirection builds the horizontal wish velocity from the view yaw and
// the requested move, capped to the speed limit.
func (mv *Movement) wishDirection() (geo.Vec3, float32) {
	forward, right, _ := geo.AngleVectors(mv.ViewAngles)
	forward.Z = 0
	right.Z = 0
	forward = forward.Norm()
	right = right.Norm()

	wishVel := geo.Vec3{
		X: forward.X*mv.ForwardMove + right.X*mv.SideMove,
		Y: forward.Y*mv.ForwardMove + right.Y*mv.SideMove,
	}
	wishSpeed := wishVel.Length()
	wishDir := wishVel
	if wishSpeed > 0 {
		wishDir = wishVel.Div(wishSpeed)
	}
	if wishSpeed != 0 && wishSpeed > mv.MaxSpeed {
		wishSpeed = mv.MaxSpeed
	}
	return wishDir, wishSpeed
}

func (mv *Movement) airMove(w *coll.World, frametime float32) {
	wishDir, wishSpeed := mv.wishDirection()
	mv.airAccelerate(frametime, wishDir, wishSpeed, mv.Tunables.AirAccelerate)

	mv.Velocity = mv.Velocity.Add(mv.BaseVelocity)
	mv.tryPlayerMove(w, frametime, nil, nil)
	mv.Velocity = mv.Velocity.Sub(mv.BaseVelocity)
}

func (mv *Movement) walkMove(w *coll.World, frametime float32) {
	wishDir, wishSpeed := mv.wishDirection()

	mv.Velocity.Z = 0
	mv.accelerate(wishDir, wishSpeed, mv.Tunables.Accelerate, frametime)
	mv.Velocity.Z = 0

	mv.Velocity = mv.Velocity.Add(mv.BaseVelocity)

	if mv.Velocity.Length() < 1.0 {
		mv.Velocity = geo.Vec3{}
		mv.Velocity = mv.Velocity.Sub(mv.BaseVelocity)
		return
	}

	dest := geo.Vec3{
		X: mv.Origin.X + mv.Velocity.X*frametime,
		Y: mv.Origin.Y + mv.Velocity.Y*frametime,
		Z: mv.Origin.Z,
	}
	tr, result := mv.tracePlayerBBox(w, mv.Origin, dest)

	if result.Fraction == 1 {
		mv.Origin = dest
		mv.Velocity = mv.Velocity.Sub(mv.BaseVelocity)
		mv.stayOnGround(w)
		return
	}

	// Don't walk up stairs if not on ground.
	if !mv.GroundEntity {
		mv.Velocity = mv.Velocity.Sub(mv.BaseVelocity)
		return
	}

	mv.stepMove(w, frametime, dest, tr, result)
	mv.Velocity = mv.Velocity.Sub(mv.BaseVelocity)

	mv.stayOnGround(w)
}

// stepMove tries sliding directly and sliding up a step height then back
// down, keeping whichever went farther horizontally.
func (mv *Movement) stepMove(w *coll.World, frametime float32, dest geo.Vec3,
	firstTraceQuery coll.Trace, firstTrace coll.TraceResult) {

	t := mv.Tunables
	startPos := mv.Origin
	startVel := mv.Velocity

	// Slide move down.
	mv.tryPlayerMove(w, frametime, &dest, &firstTrace)
	downPos := mv.Origin
	downVel := mv.Velocity

	// Reset and raise by a step height.
	mv.Origin = startPos
	mv.Velocity = startVel
	upDest := mv.Origin
	if mv.AllowAutoMovement {
		upDest.Z += t.StepSize + coll.DistEpsilon
	}
	upQuery, upResult := mv.tracePlayerBBox(w, mv.Origin, upDest)
	if !upResult.StartSolid && !upResult.AllSolid {
		mv.Origin = upResult.EndPos(&upQuery)
	}

	// Slide move up.
	mv.tryPlayerMove(w, frametime, nil, nil)

	// Move down a step height (attempt to).
	downDest := mv.Origin
	if mv.AllowAutoMovement {
		downDest.Z -= t.StepSize + coll.DistEpsilon
	}
	downQuery, downResult := mv.tracePlayerBBox(w, mv.Origin, downDest)

	// If we are not on the ground any more then use the original movement
	// attempt.
	if downResult.PlaneNormal.Z < t.StandableNormal {
		mv.Origin = downPos
		mv.Velocity = downVel
		return
	}
	if !downResult.StartSolid && !downResult.AllSolid {
		mv.Origin = downResult.EndPos(&downQuery)
	}
	upPos := mv.Origin

	downDist := (downPos.X-startPos.X)*(downPos.X-startPos.X) +
		(downPos.Y-startPos.Y)*(downPos.Y-startPos.Y)
	upDist := (upPos.X-startPos.X)*(upPos.X-startPos.X) +
		(upPos.Y-startPos.Y)*(upPos.Y-startPos.Y)

	if downDist > upDist {
		mv.Origin = downPos
		mv.Velocity = downVel
	} else {
		// Copy the Z velocity from the slide move.
		mv.Velocity.Z = downVel.Z
	}
}

// stayOnGround keeps a walking player snapped to the floor when running down
// slopes and short steps.
func (mv *Movement) stayOnGround(w *coll.World) {
	t := mv.Tunables
	start := mv.Origin
	end := mv.Origin
	start.Z += 2
	end.Z -= t.StepSize

	// See how far up we can go without getting stuck.
	upQuery, upResult := mv.tracePlayerBBox(w, mv.Origin, start)
	start = upResult.EndPos(&upQuery)

	// Now trace down from a known safe position.
	downQuery, downResult := mv.tracePlayerBBox(w, start, end)
	if downResult.Fraction > 0 && // must go somewhere
		downResult.Fraction < 1 && // must hit something
		!downResult.StartSolid && // can't be embedded in a solid
		downResult.PlaneNormal.Z >= t.StandableNormal { // can't hit a steep slope that we can't stand on anyway

		endPos := downResult.EndPos(&downQuery)
		delta := math32.Abs(mv.Origin.Z - endPos.Z)
		if delta > 0.5*t.CoordResolution {
			mv.Origin = endPos
		}
	}
}

func (mv *Movement) fullWalkMove(w *coll.World, frametime float32) {
	t := mv.Tunables

	mv.Stamina = geo.Minf(t.StaminaMax, mv.Stamina+t.StaminaRecoveryRate*frametime)

	mv.startGravity(frametime)

	if mv.Buttons&ButtonJump != 0 {
		mv.checkJumpButton()
	} else {
		mv.OldButtons &^= ButtonJump
	}

	// Friction is handled before we add in any base velocity, so standing
	// still on a conveyor does not bleed its speed.
	if mv.GroundEntity {
		mv.Velocity.Z = 0
		mv.friction(frametime)
	}

	mv.checkVelocity()

	if mv.GroundEntity {
		mv.walkMove(w, frametime)
	} else {
		mv.airMove(w, frametime)
	}

	mv.categorizePosition(w)
	mv.checkVelocity()
	mv.finishGravity(frametime)

	if mv.GroundEntity {
		mv.Velocity.Z = 0
	}
	mv.checkFalling()
}

// checkJumpButton returns true if a jump started.
func (mv *Movement) checkJumpButton() bool {
	t := mv.Tunables

	if !mv.GroundEntity {
		mv.OldButtons |= ButtonJump
		return false // in air, so no effect
	}
	if mv.OldButtons&ButtonJump != 0 {
		return false // don't pogo stick
	}
	// Cannot jump while in the unduck transition.
	if mv.Ducking && mv.Ducked {
		return false
	}
	// Still updating the eye position.
	if mv.DuckJumpTime > 0 {
		return false
	}

	mv.setGroundEntity(false, -1)

	// Initial upward velocity for player jumps; sqrt(2*gravity*height),
	// scaled down when stamina is spent.
	impulse := t.JumpImpulse
	if t.StaminaMax > 0 {
		impulse *= mv.Stamina / t.StaminaMax
	}

	startZ := mv.Velocity.Z
	if mv.Ducking || mv.Ducked {
		mv.Velocity.Z = impulse
	} else {
		mv.Velocity.Z += impulse
	}
	mv.OutJumpVel.Z += mv.Velocity.Z - startZ
	mv.Stamina = geo.Maxf(0, mv.Stamina-t.StaminaJumpCost*t.JumpImpulse)

	mv.JumpTime = jumpTimeMs
	mv.InDuckJump = true

	mv.OldButtons |= ButtonJump // don't jump again until released
	return true
}

// tryPlayerMove is the basic solid body movement clip that slides along up
// to maxClipPlanes planes. Returns blocked flags: 1 floor, 2 step/wall.
func (mv *Movement) tryPlayerMove(w *coll.World, frametime float32,
	firstDest *geo.Vec3, firstTrace *coll.TraceResult) int {

	blocked := 0
	numPlanes := 0
	var planes [maxClipPlanes]geo.Vec3

	originalVelocity := mv.Velocity
	primalVelocity := mv.Velocity

	allFraction := float32(0)
	timeLeft := frametime

	for bumpCount := 0; bumpCount < maxBumps; bumpCount++ {
		if mv.Velocity.Length() == 0 {
			break
		}

		end := mv.Origin.AddScaled(mv.Velocity, timeLeft)

		var query coll.Trace
		var result coll.TraceResult
		if firstDest != nil && firstTrace != nil && end.Equal(*firstDest) {
			// Reuse the identical trace done by the caller.
			query = coll.Trace{Start: mv.Origin, End: end,
				HullMins: mv.hullMins(), HullMaxs: mv.hullMaxs()}
			result = *firstTrace
		} else {
			query, result = mv.tracePlayerBBox(w, mv.Origin, end)
		}

		allFraction += result.Fraction

		if result.AllSolid {
			// Entity is trapped in another solid.
			mv.Velocity = geo.Vec3{}
			return 4
		}

		if result.Fraction > 0 {
			reachedEndPos := result.EndPos(&query)

			if result.Fraction == 1 {
				// There's a precision issue with terrain tracing that can
				// cause a swept box to successfully trace when the end
				// position is stuck in a triangle. Re-run the test with an
				// unswept box to catch that case.
				_, stuck := mv.tracePlayerBBox(w, reachedEndPos, reachedEndPos)
				if stuck.StartSolid || stuck.Fraction != 1 {
					mv.Velocity = geo.Vec3{}
					break
				}
			}

			mv.Origin = reachedEndPos
			originalVelocity = mv.Velocity
			numPlanes = 0
		}

		if result.Fraction == 1 {
			break // moved the entire distance
		}

		if result.PlaneNormal.Z > mv.Tunables.StandableNormal {
			blocked |= 1 // floor
		}
		if result.PlaneNormal.Z == 0 {
			blocked |= 2 // step / wall
		}

		timeLeft -= timeLeft * result.Fraction

		if numPlanes >= maxClipPlanes {
			// This shouldn't really happen; stop our movement if so.
			mv.Velocity = geo.Vec3{}
			break
		}

		planes[numPlanes] = result.PlaneNormal
		numPlanes++

		// Reflect player velocity. Only give this a try for the first
		// impact plane because you can get stuck in an acute corner by
		// jumping in place and pressing forward.
		if numPlanes == 1 && mv.MoveType == MoveTypeWalk && !mv.GroundEntity {
			var newVelocity geo.Vec3
			mv.clipVelocity(originalVelocity, planes[0], &newVelocity, 1.0)
			mv.Velocity = newVelocity
			originalVelocity = newVelocity
		} else {
			var i int
			for i = 0; i < numPlanes; i++ {
				mv.clipVelocity(originalVelocity, planes[i], &mv.Velocity, 1.0)
				var j int
				for j = 0; j < numPlanes; j++ {
					if j != i && mv.Velocity.Dot(planes[j]) < 0 {
						break // not ok
					}
				}
				if j == numPlanes { // didn't have to clip, so we're ok
					break
				}
			}

			if i == numPlanes {
				// Go along the crease.
				if numPlanes != 2 {
					mv.Velocity = geo.Vec3{}
					break
				}
				dir := planes[0].Cross(planes[1]).Norm()
				d := dir.Dot(mv.Velocity)
				mv.Velocity = dir.Mul(d)
			}

			// If velocity ends up against the original velocity, stop dead
			// to avoid tiny oscillations in sloping corners.
			if mv.Velocity.Dot(primalVelocity) <= 0 {
				mv.Velocity = geo.Vec3{}
				break
			}
		}
	}

	if allFraction == 0 {
		mv.Velocity = geo.Vec3{}
	}
	return blocked
}

// clipVelocity slides off of the impacting plane with the given overbounce.
// Returns blocked flags: 1 floor, 2 wall/step.
func (mv *Movement) clipVelocity(in, normal geo.Vec3, out *geo.Vec3, overbounce float32) int {
	blocked := 0
	if normal.Z > 0 {
		blocked |= 1
	}
	if normal.Z == 0 {
		blocked |= 2
	}

	backoff := in.Dot(normal) * overbounce
	*out = in.Sub(normal.Mul(backoff))

	// Iterate once to make sure we aren't still moving through the plane.
	if adjust := out.Dot(normal); adjust < 0 {
		*out = out.Sub(normal.Mul(adjust))
	}
	return blocked
}

func (mv *Movement) checkVelocity() {
	t := mv.Tunables
	for axis := 0; axis < 3; axis++ {
		v := mv.Velocity.Component(axis)
		if math32.IsNaN(v) {
			Logf("[movement] got a NaN velocity on axis %d", axis)
			v = 0
		}
		mv.Velocity.SetComponent(axis, geo.ClampMagnitude(v, t.MaxVelocity))

		o := mv.Origin.Component(axis)
		if math32.IsNaN(o) {
			Logf("[movement] got a NaN origin on axis %d", axis)
			mv.Origin.SetComponent(axis, 0)
		}
	}
}

func (mv *Movement) setGroundEntity(hasGround bool, surface int32) {
	oldGround := mv.GroundEntity

	// Ground velocity is always zero here; only the Z transfer matters.
	if oldGround != hasGround {
		mv.BaseVelocity.Z = 0
	}
	mv.GroundEntity = hasGround

	if hasGround {
		mv.categorizeGroundSurface(surface)
		mv.Velocity.Z = 0
	}
}

func (mv *Movement) categorizeGroundSurface(surface int32) {
	// Friction is 1.0 on every known surface; material-specific values stay
	// unwired until a confirmed mapping table exists.
	mv.SurfaceFriction = 1.0
	mv.GroundSurface = surface
}

// tryTouchGroundInQuadrants traces the player's collision bounds in
// quadrants, looking for a plane that can be stood upon, to recover from
// leaning walls the full-hull trace hit first.
func (mv *Movement) tryTouchGroundInQuadrants(w *coll.World, start, end geo.Vec3) (bool, int32) {
	t := mv.Tunables
	minsSrc := mv.hullMins()
	maxsSrc := mv.hullMaxs()

	quadrants := [4][2]geo.Vec3{
		// -x, -y quadrant
		{minsSrc, {X: geo.Minf(0, maxsSrc.X), Y: geo.Minf(0, maxsSrc.Y), Z: maxsSrc.Z}},
		// +x, +y quadrant
		{{X: geo.Maxf(0, minsSrc.X), Y: geo.Maxf(0, minsSrc.Y), Z: minsSrc.Z}, maxsSrc},
		// -x, +y quadrant
		{{X: minsSrc.X, Y: geo.Maxf(0, minsSrc.Y), Z: minsSrc.Z},
			{X: geo.Minf(0, maxsSrc.X), Y: maxsSrc.Y, Z: maxsSrc.Z}},
		// +x, -y quadrant
		{{X: geo.Maxf(0, minsSrc.X), Y: minsSrc.Y, Z: minsSrc.Z},
			{X: maxsSrc.X, Y: geo.Minf(0, maxsSrc.Y), Z: maxsSrc.Z}},
	}
	for _, q := range quadrants {
		result := mv.tryTouchGround(w, start, end, q[0], q[1])
		if result.DidHit() && result.PlaneNormal.Z >= t.StandableNormal {
			return true, result.Surface
		}
	}
	return false, -1
}

// categorizePosition decides whether the player is standing on ground.
func (mv *Movement) categorizePosition(w *coll.World) {
	t := mv.Tunables

	// Reset each recategorization to avoid bogus friction.
	mv.SurfaceFriction = 1.0

	// If the player hull traced two units down hits a standable plane, the
	// player is on ground.
	point := mv.Origin
	point.Z -= 2
	bumpOrigin := mv.Origin

	zvel := mv.Velocity.Z
	movingUp := zvel > 0
	movingUpRapidly := zvel > t.MinNoGroundChecksVelZ

	if movingUpRapidly || (movingUp && mv.MoveType == MoveTypeLadder) {
		mv.setGroundEntity(false, -1)
		return
	}

	initial := mv.tryTouchGround(w, bumpOrigin, point, mv.hullMins(), mv.hullMaxs())
	if initial.DidHit() && initial.PlaneNormal.Z >= t.StandableNormal {
		mv.setGroundEntity(true, initial.Surface)
		return
	}

	// The full hull hit a steep plane; test four sub-boxes to see if any of
	// them would have found a shallower slope we can actually stand on.
	if standable, surface := mv.tryTouchGroundInQuadrants(w, bumpOrigin, point); standable {
		mv.setGroundEntity(true, surface)
		return
	}

	mv.setGroundEntity(false, -1)
	if mv.Velocity.Z > 0 && mv.MoveType != MoveTypeNoclip {
		// Affects optimal airstrafe mouse movement during subportions of a
		// jump.
		mv.SurfaceFriction = 0.25
	}
}

// checkFalling classifies a landing and charges the stamina cost; it deals
// with landing, not falling, and early-outs otherwise.
func (mv *Movement) checkFalling() {
	t := mv.Tunables
	if !mv.GroundEntity || mv.FallVelocity <= 0 {
		return
	}

	if mv.FallVelocity >= t.FallPunchThreshold {
		switch {
		case mv.FallVelocity > t.MaxSafeFallSpeed:
			mv.LastLanding = LandingHard
		case mv.FallVelocity > t.MaxSafeFallSpeed/2:
			mv.LastLanding = LandingMedium
		case mv.FallVelocity < t.MinBounceSpeed:
			mv.LastLanding = LandingNone
		default:
			mv.LastLanding = LandingSoft
		}
		mv.Stamina = geo.Maxf(0, mv.Stamina-t.StaminaLandCost*mv.FallVelocity)
	}

	mv.FallVelocity = 0
}

// fullNoClipMove is the debug free-fly path: view-directed velocity, no
// collision.
func (mv *Movement) fullNoClipMove(frametime float32) {
	forward, right, _ := geo.AngleVectors(mv.ViewAngles)
	wishVel := forward.Mul(mv.ForwardMove).AddScaled(right, mv.SideMove)
	mv.Velocity = wishVel
	mv.Origin = mv.Origin.AddScaled(mv.Velocity, frametime)
	mv.checkVelocity()
}
