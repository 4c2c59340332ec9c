// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package game

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/SoftbearStudios/dzsim/sim/coll"
)

// Catch-up window: at most half a second of missed ticks is resimulated;
// past that the tick clock re-bases instead of spiraling.
const maxCatchUpTicks = 32

// Game simulates server ticks from player input and produces responsive
// world states suitable for drawing, the way the real client predicts ahead
// of the last acknowledged tick. No asynchronicity: every call runs on the
// caller's goroutine.
type Game struct {
	// world is swapped atomically when a new map loads; ticks read the
	// published snapshot without synchronization.
	world atomic.Pointer[coll.World]

	stepSizeSecs float32
	timescale    float32
	tickInterval time.Duration

	// gameStart is the time point of tick 0's world state.
	gameStart time.Time

	prevFinalizedID   uint64
	prevFinalized     WorldState
	inputsSinceFinal  []InputSample
	prevPredicted     WorldState
	prevDrawn         WorldState
	prevDrawnTime     time.Time

	interpolationOff bool
}

func NewGame() *Game {
	return &Game{}
}

// SetWorld publishes a new collidable world; in-flight readers keep the old
// snapshot.
func (g *Game) SetWorld(w *coll.World) {
	g.world.Store(w)
}

func (g *Game) World() *coll.World {
	return g.world.Load()
}

// SetInterpolation toggles render interpolation; disabled, ProcessInput
// returns the last finalized state.
func (g *Game) SetInterpolation(enabled bool) {
	g.interpolationOff = !enabled
}

// HasBeenStarted reports whether Start ran.
func (g *Game) HasBeenStarted() bool {
	return g.stepSizeSecs > 0
}

// Start (re-)starts the simulation at the given world state. stepSizeSecs
// and timescale must be positive; now is the time point of tick 0.
func (g *Game) Start(stepSizeSecs, timescale float32, initial WorldState, now time.Time) {
	g.stepSizeSecs = stepSizeSecs
	g.timescale = timescale
	g.tickInterval = time.Duration(1e9 * stepSizeSecs / timescale)
	g.gameStart = now

	g.prevFinalizedID = 0
	g.prevFinalized = initial.Clone()
	g.inputsSinceFinal = g.inputsSinceFinal[:0]

	// Simulate one tick ahead for the first prediction.
	g.prevPredicted = initial.Clone()
	g.prevPredicted.DoTimeStep(g.World(), float64(stepSizeSecs), nil)

	g.prevDrawn = initial.Clone()
	g.prevDrawnTime = now
}

// tickTime is the real time point of a tick.
func (g *Game) tickTime(tickID uint64) time.Time {
	return g.gameStart.Add(time.Duration(tickID) * g.tickInterval)
}

// FinalizedState exposes the last finalized tick, the reference for
// determinism tests.
func (g *Game) FinalizedState() (uint64, WorldState) {
	return g.prevFinalizedID, g.prevFinalized.Clone()
}

// ProcessInput ingests one input sample (whose time must not precede
// previously passed samples), advances the simulation through every tick the
// sample's timestamp has passed, re-predicts the next tick, and returns the
// state to draw now.
//
// An input affects a tick iff its sample time is <= the tick's time point.
func (g *Game) ProcessInput(input InputSample) WorldState {
	if !g.HasBeenStarted() {
		return WorldState{}
	}
	world := g.World()
	curTime := input.Time
	stepSize := float64(g.stepSizeSecs)

	// Step 1: the id of the tick directly preceding the new input.
	precedingID := g.prevFinalizedID
	for g.tickTime(precedingID + 1).Before(curTime) {
		precedingID++
	}

	if precedingID-g.prevFinalizedID > maxCatchUpTicks {
		// The machine fell far behind; drop the un-simulated span instead of
		// freezing while resimulating it.
		skipped := precedingID - g.prevFinalizedID - maxCatchUpTicks
		log.Printf("[game] fell %d ticks behind, dropping %d", precedingID-g.prevFinalizedID, skipped)
		g.gameStart = g.gameStart.Add(time.Duration(skipped) * g.tickInterval)
		precedingID -= skipped
	}

	// Step 2: finalize up to the preceding tick. The first advancement is
	// free: the previous prediction already simulated it and no input
	// relevant to it arrived since.
	if g.prevFinalizedID < precedingID {
		g.prevFinalized = g.prevPredicted
		g.prevFinalizedID++
		g.inputsSinceFinal = g.inputsSinceFinal[:0]
	}
	// Further ticks passed with no input at all.
	for g.prevFinalizedID < precedingID {
		g.prevFinalized.DoTimeStep(world, stepSize, nil)
		g.prevFinalizedID++
	}

	// Step 3: predict the next tick with the new input queued.
	g.inputsSinceFinal = append(g.inputsSinceFinal, input)
	predicted := g.prevFinalized.Clone()
	predicted.DoTimeStep(world, stepSize, g.inputsSinceFinal)
	nextTickTime := g.tickTime(g.prevFinalizedID + 1)

	// Step 4: the drawn state interpolates from the previously drawn state
	// toward the prediction.
	var drawn WorldState
	if g.interpolationOff {
		drawn = g.prevFinalized.Clone()
	} else {
		interpRange := nextTickTime.Sub(g.prevDrawnTime)
		interpStep := curTime.Sub(g.prevDrawnTime)
		if interpRange == 0 {
			drawn = predicted.Clone()
		} else {
			phase := float32(interpStep) / float32(interpRange)
			drawn = Interpolate(&g.prevDrawn, &predicted, phase)
		}
	}

	g.prevPredicted = predicted
	g.prevDrawn = drawn
	g.prevDrawnTime = curTime

	return drawn.Clone()
}
