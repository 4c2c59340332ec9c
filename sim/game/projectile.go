// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package game

import (
	"github.com/SoftbearStudios/dzsim/sim/coll"
	"github.com/SoftbearStudios/dzsim/sim/geo"
)

// Projectile arm/detonate pacing in seconds, and the fraction of world
// gravity a projectile feels.
const (
	projectileArmDelay      = 0.3
	projectileDetonateDelay = 0.25
	projectileGravityScale  = 0.4
)

// Projectile is a thrown mine flying ballistically until it sticks to a
// surface and arms.
type Projectile struct {
	Position geo.Vec3
	Velocity geo.Vec3
	Angles   geo.Vec3

	// Progress values ranging from 0 to 1.
	ArmProgress      float32
	DetonateProgress float32

	Stuck bool
}

// update advances one projectile by dt, sweeping its path against the
// world. Returns false once the projectile is done and should despawn.
func (p *Projectile) update(w *coll.World, gravity, dt float32) bool {
	if p.Stuck {
		if p.ArmProgress < 1 {
			p.ArmProgress = geo.Minf(1, p.ArmProgress+dt/projectileArmDelay)
			return true
		}
		if p.DetonateProgress > 0 {
			p.DetonateProgress += dt / projectileDetonateDelay
			return p.DetonateProgress < 1
		}
		return true
	}

	p.Velocity.Z -= projectileGravityScale * gravity * dt

	if w == nil {
		p.Position = p.Position.AddScaled(p.Velocity, dt)
		return true
	}

	end := p.Position.AddScaled(p.Velocity, dt)
	// Mines are small; trace a thin box.
	tr := coll.Trace{
		Start:    p.Position,
		End:      end,
		HullMins: geo.Vec3{X: -2, Y: -2, Z: -2},
		HullMaxs: geo.Vec3{X: 2, Y: 2, Z: 2},
	}
	result := w.Sweep(&tr)
	p.Position = result.EndPos(&tr)
	if result.DidHit() {
		p.Stuck = true
		p.Velocity = geo.Vec3{}
	}
	return true
}
