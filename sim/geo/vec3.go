// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package geo

import (
	"github.com/chewxy/math32"
)

type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func (vec Vec3) Mul(factor float32) Vec3 {
	vec.X *= factor
	vec.Y *= factor
	vec.Z *= factor
	return vec
}

func (vec Vec3) Div(divisor float32) Vec3 {
	return vec.Mul(1.0 / divisor)
}

func (vec Vec3) Add(otherVec Vec3) Vec3 {
	vec.X += otherVec.X
	vec.Y += otherVec.Y
	vec.Z += otherVec.Z
	return vec
}

func (vec Vec3) AddScaled(otherVec Vec3, factor float32) Vec3 {
	vec.X += otherVec.X * factor
	vec.Y += otherVec.Y * factor
	vec.Z += otherVec.Z * factor
	return vec
}

func (vec Vec3) Sub(otherVec Vec3) Vec3 {
	vec.X -= otherVec.X
	vec.Y -= otherVec.Y
	vec.Z -= otherVec.Z
	return vec
}

func (vec Vec3) Dot(otherVec Vec3) float32 {
	return vec.X*otherVec.X + vec.Y*otherVec.Y + vec.Z*otherVec.Z
}

func (vec Vec3) Cross(otherVec Vec3) Vec3 {
	return Vec3{
		X: vec.Y*otherVec.Z - vec.Z*otherVec.Y,
		Y: vec.Z*otherVec.X - vec.X*otherVec.Z,
		Z: vec.X*otherVec.Y - vec.Y*otherVec.X,
	}
}

func (vec Vec3) Length() float32 {
	return math32.Sqrt(vec.LengthSquared())
}

func (vec Vec3) LengthSquared() float32 {
	return vec.X*vec.X + vec.Y*vec.Y + vec.Z*vec.Z
}

// LengthXY is the horizontal magnitude, ignoring Z.
func (vec Vec3) LengthXY() float32 {
	return math32.Hypot(vec.X, vec.Y)
}

func (vec Vec3) Distance(otherVec Vec3) float32 {
	return vec.Sub(otherVec).Length()
}

func (vec Vec3) DistanceSquared(otherVec Vec3) float32 {
	return vec.Sub(otherVec).LengthSquared()
}

// Norm normalizes like the engine does: zero vectors normalize to zero
// vectors instead of producing NaNs.
func (vec Vec3) Norm() Vec3 {
	return vec.Div(vec.Length() + epsilonFloat)
}

const epsilonFloat = 1.1920929e-07

func Lerp(a, b, factor float32) float32 {
	return a + (b-a)*factor
}

func (vec Vec3) Lerp(otherVec Vec3, factor float32) Vec3 {
	vec.X = Lerp(vec.X, otherVec.X, factor)
	vec.Y = Lerp(vec.Y, otherVec.Y, factor)
	vec.Z = Lerp(vec.Z, otherVec.Z, factor)
	return vec
}

func (vec Vec3) Abs() Vec3 {
	vec.X = math32.Abs(vec.X)
	vec.Y = math32.Abs(vec.Y)
	vec.Z = math32.Abs(vec.Z)
	return vec
}

func (vec Vec3) Min(otherVec Vec3) Vec3 {
	vec.X = Minf(vec.X, otherVec.X)
	vec.Y = Minf(vec.Y, otherVec.Y)
	vec.Z = Minf(vec.Z, otherVec.Z)
	return vec
}

func (vec Vec3) Max(otherVec Vec3) Vec3 {
	vec.X = Maxf(vec.X, otherVec.X)
	vec.Y = Maxf(vec.Y, otherVec.Y)
	vec.Z = Maxf(vec.Z, otherVec.Z)
	return vec
}

// Component returns the axis component by index (0 = X, 1 = Y, 2 = Z).
func (vec Vec3) Component(axis int) float32 {
	switch axis {
	case 0:
		return vec.X
	case 1:
		return vec.Y
	default:
		return vec.Z
	}
}

// SetComponent sets the axis component by index (0 = X, 1 = Y, 2 = Z).
func (vec *Vec3) SetComponent(axis int, value float32) {
	switch axis {
	case 0:
		vec.X = value
	case 1:
		vec.Y = value
	default:
		vec.Z = value
	}
}

// Equal compares exactly, like the engine's vector comparison. The fuzzy
// comparison belongs to VerticesEquivalent.
func (vec Vec3) Equal(otherVec Vec3) bool {
	return vec.X == otherVec.X && vec.Y == otherVec.Y && vec.Z == otherVec.Z
}

// VerticesEquivalent returns true if two vertices are so close together they
// should be considered the same, using a relative tolerance for vertices far
// from the origin.
func VerticesEquivalent(a, b Vec3) bool {
	const epsilon = 1.0e-05
	const epsilonSquared = epsilon * epsilon

	distanceSquared := b.Sub(a).LengthSquared()
	if distanceSquared <= epsilonSquared {
		return true
	}
	return distanceSquared <= epsilonSquared*Maxf(a.LengthSquared(), b.LengthSquared())
}

func Minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func Maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func Clamp(val, minimum, maximum float32) float32 {
	return Minf(Maxf(val, minimum), maximum)
}

func ClampMagnitude(val, maximum float32) float32 {
	return Minf(Maxf(val, -maximum), maximum)
}
