// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"github.com/chewxy/math32"

	"github.com/SoftbearStudios/dzsim/sim/geo"
	"github.com/SoftbearStudios/dzsim/sim/move"
)

// Glidability classifies whether a player gliding onto a surface at their
// current speed keeps sliding or gets grounded. Renderers color surfaces
// with it; movement never consumes it.
type Glidability uint8

const (
	SlideFail Glidability = iota
	SlideAlmostFail
	SlideSuccess
)

// Margin below the no-ground-check threshold that still counts as "almost".
const almostFailMargin = 0.9

// ClassifySurface classifies one surface for a player moving horizontally at
// horiSpeed straight into the slope (the worst case direction).
//
// Landing velocity is clipped against the surface plane; if the upward
// component that survives exceeds the no-ground-check threshold, ground
// categorization is skipped and the player keeps sliding.
func ClassifySurface(normal geo.Vec3, horiSpeed float32, t *move.Tunables) Glidability {
	// A flat floor can never deflect motion upward.
	horiNormal := math32.Hypot(normal.X, normal.Y)
	if horiNormal == 0 || horiSpeed <= 0 {
		return SlideFail
	}

	// Worst case: running straight uphill into the slope.
	intoSlope := geo.Vec3{X: -normal.X / horiNormal, Y: -normal.Y / horiNormal}
	velocity := intoSlope.Mul(geo.Minf(horiSpeed, t.MaxVelocity))

	// Clip the velocity off the plane, the same way movement does.
	backoff := velocity.Dot(normal)
	clipped := velocity.Sub(normal.Mul(backoff))

	switch {
	case clipped.Z > t.MinNoGroundChecksVelZ:
		return SlideSuccess
	case clipped.Z > almostFailMargin*t.MinNoGroundChecksVelZ:
		return SlideAlmostFail
	default:
		return SlideFail
	}
}

// ClassifyForState is the per-frame entry point renderers feed with the
// displayed world state's horizontal speed.
func ClassifyForState(normal geo.Vec3, horiSpeed float32, t *move.Tunables) Glidability {
	if normal.Z >= 1 {
		return SlideFail
	}
	return ClassifySurface(normal, horiSpeed, t)
}
