// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package move implements the server-authoritative player movement state
// machine: ground/air modes, friction, acceleration, gravity, stepping,
// auto-crouch-jump, stamina and the jump impulse. It consumes swept hull
// traces from the coll package.
package move

// Tunables is the table of game constants the simulation runs on. The values
// mirror the Danger Zone server settings; code never hard-codes them in
// expressions.
type Tunables struct {
	TickRate        float32 `yaml:"tick_rate"`
	CoordResolution float32 `yaml:"coord_resolution"`

	PlayerWidth          float32 `yaml:"player_width"`
	PlayerHeightStanding float32 `yaml:"player_height_standing"`
	PlayerHeightCrouched float32 `yaml:"player_height_crouched"`

	Accelerate  float32 `yaml:"accelerate"`
	StopSpeed   float32 `yaml:"stopspeed"`
	Friction    float32 `yaml:"friction"`
	Gravity     float32 `yaml:"gravity"`
	MaxVelocity float32 `yaml:"max_velocity"`
	StepSize    float32 `yaml:"stepsize"`

	AirAccelerate   float32 `yaml:"air_accelerate"`
	AirMaxWishspeed float32 `yaml:"air_max_wishspeed"`

	JumpImpulse float32 `yaml:"jump_impulse"`

	StaminaMax          float32 `yaml:"staminamax"`
	StaminaJumpCost     float32 `yaml:"stamina_jump_cost"`
	StaminaLandCost     float32 `yaml:"stamina_land_cost"`
	StaminaRecoveryRate float32 `yaml:"stamina_recovery_rate"`

	StandableNormal       float32 `yaml:"standable_normal"`
	MinLeaveGroundVelZ    float32 `yaml:"min_leave_ground_vel_z"`
	MinNoGroundChecksVelZ float32 `yaml:"min_no_ground_checks_vel_z"`

	MaxSafeFallSpeed   float32 `yaml:"max_safe_fall_speed"`
	FallPunchThreshold float32 `yaml:"fall_punch_threshold"`
	MinBounceSpeed     float32 `yaml:"min_bounce_speed"`

	// MaxSpeed is the running speed cap; ClientMaxSpeed caps the requested
	// forward/side move magnitudes, ForwardSpeed/SideSpeed are the values a
	// held movement key requests.
	MaxSpeed       float32 `yaml:"max_speed"`
	ClientMaxSpeed float32 `yaml:"client_max_speed"`
	ForwardSpeed   float32 `yaml:"forward_speed"`
	SideSpeed      float32 `yaml:"side_speed"`
}

// DefaultTunables returns the Danger Zone matchmaking values.
func DefaultTunables() Tunables {
	return Tunables{
		TickRate:        64,
		CoordResolution: 1.0 / 32.0,

		PlayerWidth:          32,
		PlayerHeightStanding: 72,
		PlayerHeightCrouched: 54,

		Accelerate:  5.5,
		StopSpeed:   80,
		Friction:    5.2,
		Gravity:     800,
		MaxVelocity: 3500,
		StepSize:    18,

		AirAccelerate:   12,
		AirMaxWishspeed: 30,

		JumpImpulse: 301.993377,

		StaminaMax:          80,
		StaminaJumpCost:     0.08,
		StaminaLandCost:     0.05,
		StaminaRecoveryRate: 60,

		StandableNormal:       0.7,
		MinLeaveGroundVelZ:    250,
		MinNoGroundChecksVelZ: 140,

		MaxSafeFallSpeed:   580,
		FallPunchThreshold: 350,
		MinBounceSpeed:     200,

		MaxSpeed:       260,
		ClientMaxSpeed: 320,
		ForwardSpeed:   450,
		SideSpeed:      450,
	}
}

// Timer constants, in milliseconds.
const (
	duckTimeMs = 1000
	// Approximate air time of a 21 unit jump; arms the auto-unduck.
	jumpTimeMs = 510
)

// TryPlayerMove limits.
const (
	maxClipPlanes = 5
	maxBumps      = 4
	stopEpsilon   = 0.1
)
