// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package coll

import (
	"sort"

	"github.com/SoftbearStudios/dzsim/sim/geo"
)

const bvhLeafMaxPrimitives = 8

// BVH is the broadphase over all collidable primitives: a binary tree built
// top-down by median split of primitive centroids along the longest axis.
// It is built once after every primitive array is final, then read-only.
type BVH struct {
	nodes []bvhNode
	// prims holds primitive indices, grouped per leaf.
	prims []int32
	// bounds holds every primitive's AABB, indexed by primitive.
	bounds []geo.AABB
}

type bvhNode struct {
	aabb geo.AABB
	// Internal nodes store children indices; leaves store a range of prims.
	left, right int32
	start, count int32
}

func (n *bvhNode) leaf() bool { return n.count > 0 }

// buildBVH builds over prim bounds; centroids drive the splits.
func buildBVH(bounds []geo.AABB) *BVH {
	b := &BVH{bounds: bounds}
	if len(bounds) == 0 {
		return b
	}
	b.prims = make([]int32, len(bounds))
	for i := range b.prims {
		b.prims[i] = int32(i)
	}
	centroids := make([]geo.Vec3, len(bounds))
	for i, aabb := range bounds {
		centroids[i] = aabb.Center()
	}
	b.nodes = make([]bvhNode, 0, 2*len(bounds))
	b.buildNode(bounds, centroids, 0, int32(len(bounds)))
	return b
}

func (b *BVH) buildNode(bounds []geo.AABB, centroids []geo.Vec3, start, count int32) int32 {
	nodeIdx := int32(len(b.nodes))
	b.nodes = append(b.nodes, bvhNode{})

	aabb := geo.EmptyAABB()
	for _, prim := range b.prims[start : start+count] {
		aabb = aabb.Union(bounds[prim])
	}

	if count <= bvhLeafMaxPrimitives {
		b.nodes[nodeIdx] = bvhNode{aabb: aabb, start: start, count: count}
		return nodeIdx
	}

	// Median split on centroids along the longest axis of the node bounds.
	axis := aabb.LongestAxis()
	segment := b.prims[start : start+count]
	sort.Slice(segment, func(i, j int) bool {
		return centroids[segment[i]].Component(axis) < centroids[segment[j]].Component(axis)
	})
	mid := count / 2

	left := b.buildNode(bounds, centroids, start, mid)
	right := b.buildNode(bounds, centroids, start+mid, count-mid)
	b.nodes[nodeIdx] = bvhNode{aabb: aabb, left: left, right: right}
	return nodeIdx
}

// Query appends to dst the indices of every leaf primitive whose bounds are
// pierced by the query box and returns the extended slice. dst is reused
// across queries to keep the hot path allocation-free.
func (b *BVH) Query(box geo.AABB, dst []int32) []int32 {
	if len(b.nodes) == 0 {
		return dst
	}
	// Explicit stack; tree depth is bounded by the primitive count.
	var stackArr [64]int32
	stack := stackArr[:0]
	stack = append(stack, 0)
	for len(stack) > 0 {
		nodeIdx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &b.nodes[nodeIdx]
		if !node.aabb.Intersects(box) {
			continue
		}
		if node.leaf() {
			for _, prim := range b.prims[node.start : node.start+node.count] {
				if b.bounds[prim].Intersects(box) {
					dst = append(dst, prim)
				}
			}
			continue
		}
		stack = append(stack, node.left, node.right)
	}
	return dst
}

// NodeCount reports the tree size, for debug output.
func (b *BVH) NodeCount() int { return len(b.nodes) }
