// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package geo

import (
	"github.com/chewxy/math32"
)

// View angles are degrees: pitch (down positive), yaw, roll. Rotations
// compose roll, then pitch, then yaw (Rz·Ry·Rx).

const degToRad = math32.Pi / 180

func Radians(deg float32) float32 {
	return deg * degToRad
}

// AngleVectors converts euler view angles to forward/right/up basis vectors.
func AngleVectors(angles Vec3) (forward, right, up Vec3) {
	sp, cp := math32.Sincos(Radians(angles.X))
	sy, cy := math32.Sincos(Radians(angles.Y))
	sr, cr := math32.Sincos(Radians(angles.Z))

	forward = Vec3{
		X: cp * cy,
		Y: cp * sy,
		Z: -sp,
	}
	right = Vec3{
		X: -1*sr*sp*cy + -1*cr*-sy,
		Y: -1*sr*sp*sy + -1*cr*cy,
		Z: -1 * sr * cp,
	}
	up = Vec3{
		X: cr*sp*cy + -sr*-sy,
		Y: cr*sp*sy + -sr*cy,
		Z: cr * cp,
	}
	return
}

// AngleForward is AngleVectors when only the forward vector is needed.
func AngleForward(angles Vec3) Vec3 {
	sp, cp := math32.Sincos(Radians(angles.X))
	sy, cy := math32.Sincos(Radians(angles.Y))
	return Vec3{X: cp * cy, Y: cp * sy, Z: -sp}
}

// RotationMatrix is a row-major 3x3 rotation, enough for prop transforms
// without dragging in a full 4x4 type.
type RotationMatrix [3]Vec3

// RotationFromAngles composes Rz(yaw)·Ry(pitch)·Rx(roll).
func RotationFromAngles(angles Vec3) RotationMatrix {
	sp, cp := math32.Sincos(Radians(angles.X))
	sy, cy := math32.Sincos(Radians(angles.Y))
	sr, cr := math32.Sincos(Radians(angles.Z))

	return RotationMatrix{
		{X: cy * cp, Y: cy*sp*sr - sy*cr, Z: cy*sp*cr + sy*sr},
		{X: sy * cp, Y: sy*sp*sr + cy*cr, Z: sy*sp*cr - cy*sr},
		{X: -sp, Y: cp * sr, Z: cp * cr},
	}
}

func (m RotationMatrix) Apply(v Vec3) Vec3 {
	return Vec3{
		X: m[0].Dot(v),
		Y: m[1].Dot(v),
		Z: m[2].Dot(v),
	}
}

// ApplyTransposed applies the inverse of a pure rotation.
func (m RotationMatrix) ApplyTransposed(v Vec3) Vec3 {
	return Vec3{
		X: m[0].X*v.X + m[1].X*v.Y + m[2].X*v.Z,
		Y: m[0].Y*v.X + m[1].Y*v.Y + m[2].Y*v.Z,
		Z: m[0].Z*v.X + m[1].Z*v.Y + m[2].Z*v.Z,
	}
}

// Transform carries a prop's model-to-world mapping: uniform scale, then
// rotation, then translation.
type Transform struct {
	Origin   Vec3
	Rotation RotationMatrix
	Scale    float32
}

func TransformFrom(origin, angles Vec3, uniformScale float32) Transform {
	return Transform{
		Origin:   origin,
		Rotation: RotationFromAngles(angles),
		Scale:    uniformScale,
	}
}

func (t Transform) Apply(v Vec3) Vec3 {
	return t.Rotation.Apply(v.Mul(t.Scale)).Add(t.Origin)
}

// ApplyInverse maps a world-space point into model space.
func (t Transform) ApplyInverse(v Vec3) Vec3 {
	return t.Rotation.ApplyTransposed(v.Sub(t.Origin)).Div(t.Scale)
}

// ApplyInverseDir maps a world-space direction into model space without
// translation or scale.
func (t Transform) ApplyInverseDir(v Vec3) Vec3 {
	return t.Rotation.ApplyTransposed(v)
}
