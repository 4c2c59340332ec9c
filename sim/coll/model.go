// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package coll owns every collidable primitive of a loaded map and answers
// swept hull traces against them. A World is built once, published as a
// shared immutable reference and never mutated afterwards, so concurrent
// readers need no synchronization.
package coll

import (
	"github.com/SoftbearStudios/dzsim/sim/geo"
	"github.com/SoftbearStudios/dzsim/sim/phy"
)

// ModelSection is one convex section of a prop collision model with its
// precomputed per-triangle planes and model-space bounds. ClipPlanes appends
// the AABB bevel planes so sweeps clip against one prebuilt set.
type ModelSection struct {
	Mesh       phy.TriMesh
	Planes     []geo.Plane
	ClipPlanes []geo.Plane
	AABB       geo.AABB
}

// CollisionModel is a decoded prop collision model keyed by its model path.
type CollisionModel struct {
	Sections    []ModelSection
	SurfaceProp string
}

func NewCollisionModel(decoded *phy.Model) *CollisionModel {
	model := &CollisionModel{SurfaceProp: decoded.SurfaceProp}
	for _, mesh := range decoded.Sections {
		planes := mesh.TriPlanes()
		aabb := mesh.AABB()

		clipPlanes := make([]geo.Plane, 0, len(planes)+6)
		clipPlanes = append(clipPlanes, planes...)
		clipPlanes = append(clipPlanes,
			geo.Plane{Normal: geo.Vec3{X: 1}, Dist: aabb.Maxs.X},
			geo.Plane{Normal: geo.Vec3{X: -1}, Dist: -aabb.Mins.X},
			geo.Plane{Normal: geo.Vec3{Y: 1}, Dist: aabb.Maxs.Y},
			geo.Plane{Normal: geo.Vec3{Y: -1}, Dist: -aabb.Mins.Y},
			geo.Plane{Normal: geo.Vec3{Z: 1}, Dist: aabb.Maxs.Z},
			geo.Plane{Normal: geo.Vec3{Z: -1}, Dist: -aabb.Mins.Z},
		)

		model.Sections = append(model.Sections, ModelSection{
			Mesh:       mesh,
			Planes:     planes,
			ClipPlanes: clipPlanes,
			AABB:       aabb,
		})
	}
	return model
}

// CollisionCache is the per-prop-instance data a query needs: the world-space
// bounds of the transformed model and the transform to reduce queries to
// model space.
type CollisionCache struct {
	Model     *CollisionModel
	Transform geo.Transform
	WorldAABB geo.AABB
	Surface   int32
}

func newCollisionCache(model *CollisionModel, transform geo.Transform, surface int32) *CollisionCache {
	worldAABB := geo.EmptyAABB()
	for i := range model.Sections {
		worldAABB = worldAABB.Union(transformedAABB(model.Sections[i].AABB, transform))
	}
	return &CollisionCache{
		Model:     model,
		Transform: transform,
		WorldAABB: worldAABB,
		Surface:   surface,
	}
}

// transformedAABB is the world-space bounds of a model-space box: transform
// the 8 corners and take the tight bounds.
func transformedAABB(a geo.AABB, t geo.Transform) geo.AABB {
	out := geo.EmptyAABB()
	for corner := 0; corner < 8; corner++ {
		p := geo.Vec3{
			X: pick(corner&1 != 0, a.Maxs.X, a.Mins.X),
			Y: pick(corner&2 != 0, a.Maxs.Y, a.Mins.Y),
			Z: pick(corner&4 != 0, a.Maxs.Z, a.Mins.Z),
		}
		out = out.Extend(t.Apply(p))
	}
	return out
}

func pick(cond bool, a, b float32) float32 {
	if cond {
		return a
	}
	return b
}

// localHullAABB bounds a world-axis-aligned hull in the model's local frame.
func localHullAABB(hullMins, hullMaxs geo.Vec3, t geo.Transform) geo.AABB {
	out := geo.EmptyAABB()
	for corner := 0; corner < 8; corner++ {
		p := geo.Vec3{
			X: pick(corner&1 != 0, hullMaxs.X, hullMins.X),
			Y: pick(corner&2 != 0, hullMaxs.Y, hullMins.Y),
			Z: pick(corner&4 != 0, hullMaxs.Z, hullMins.Z),
		}
		out = out.Extend(t.ApplyInverseDir(p).Div(t.Scale))
	}
	return out
}
