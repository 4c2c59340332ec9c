// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package phy decodes the convex-decomposition binary format of prop
// collision models into triangle-mesh sections.
package phy

import (
	"github.com/SoftbearStudios/dzsim/sim/geo"
)

// VertIdx indexes a section's vertex array; the on-disk format stores 16-bit
// indices, so sections can never outgrow this.
type VertIdx = uint16

type Tri struct {
	Verts [3]VertIdx
}

type TriMeshEdge struct {
	Verts [2]VertIdx
}

// TriMesh is one convex section of a collision model. Vertices are unique,
// edges are unique as an undirected set, and triangles wind clockwise when
// viewed from outside.
type TriMesh struct {
	Vertices []geo.Vec3
	Edges    []TriMeshEdge
	Tris     []Tri
}

// AABB is the tight bounds of the section's vertices.
func (t *TriMesh) AABB() geo.AABB {
	return geo.AABBOf(t.Vertices...)
}

// TriPlanes returns the plane of every triangle, normals pointing out of the
// convex section.
func (t *TriMesh) TriPlanes() []geo.Plane {
	planes := make([]geo.Plane, len(t.Tris))
	for i, tri := range t.Tris {
		planes[i] = geo.PlaneFromTriCW(
			t.Vertices[tri.Verts[0]],
			t.Vertices[tri.Verts[1]],
			t.Vertices[tri.Verts[2]])
	}
	return planes
}
