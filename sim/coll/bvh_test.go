// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package coll

import (
	"math/rand"
	"testing"

	"github.com/SoftbearStudios/dzsim/sim/geo"
)

func randomBounds(r *rand.Rand, n int) []geo.AABB {
	bounds := make([]geo.AABB, n)
	for i := range bounds {
		center := geo.Vec3{
			X: r.Float32()*2000 - 1000,
			Y: r.Float32()*2000 - 1000,
			Z: r.Float32()*500 - 250,
		}
		half := geo.Vec3{
			X: r.Float32()*30 + 1,
			Y: r.Float32()*30 + 1,
			Z: r.Float32()*30 + 1,
		}
		bounds[i] = geo.AABBFrom(center.Sub(half), center.Add(half))
	}
	return bounds
}

// Every node's AABB must contain the union of its children's AABBs.
func TestBVH_NodeContainment(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	bounds := randomBounds(r, 500)
	b := buildBVH(bounds)

	var check func(nodeIdx int32) geo.AABB
	check = func(nodeIdx int32) geo.AABB {
		node := &b.nodes[nodeIdx]
		var children geo.AABB
		if node.leaf() {
			children = geo.EmptyAABB()
			for _, prim := range b.prims[node.start : node.start+node.count] {
				children = children.Union(bounds[prim])
			}
		} else {
			children = check(node.left).Union(check(node.right))
		}
		if !node.aabb.Contains(children) {
			t.Fatalf("node %d AABB %v does not contain children %v", nodeIdx, node.aabb, children)
		}
		return node.aabb
	}
	check(0)
}

// A query must return exactly the primitives whose bounds intersect the box.
func TestBVH_QueryMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	bounds := randomBounds(r, 300)
	b := buildBVH(bounds)

	for trial := 0; trial < 50; trial++ {
		center := geo.Vec3{
			X: r.Float32()*2000 - 1000,
			Y: r.Float32()*2000 - 1000,
			Z: r.Float32()*500 - 250,
		}
		half := geo.Vec3{X: 100, Y: 100, Z: 100}
		box := geo.AABBFrom(center.Sub(half), center.Add(half))

		got := make(map[int32]bool)
		for _, idx := range b.Query(box, nil) {
			got[idx] = true
		}
		for i, aabb := range bounds {
			want := aabb.Intersects(box)
			if got[int32(i)] != want {
				t.Fatalf("trial %d prim %d: query %v, brute force %v", trial, i, got[int32(i)], want)
			}
		}
	}
}

func TestBVH_Empty(t *testing.T) {
	b := buildBVH(nil)
	if got := b.Query(geo.AABBFrom(geo.Vec3{}, geo.Vec3{X: 1}), nil); len(got) != 0 {
		t.Errorf("empty BVH returned %v", got)
	}
}

func TestBVH_LeafSize(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	bounds := randomBounds(r, 200)
	b := buildBVH(bounds)
	for i := range b.nodes {
		if b.nodes[i].leaf() && b.nodes[i].count > bvhLeafMaxPrimitives {
			t.Errorf("leaf %d holds %d primitives", i, b.nodes[i].count)
		}
	}
}
