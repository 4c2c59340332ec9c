// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package testworld constructs synthetic parsed maps programmatically:
// axial brushes, displacement terrain and prop collision blobs. Tests and
// the demo mode use it instead of shipping real map files.
package testworld

import (
	"encoding/binary"
	"math"

	"github.com/aquilax/go-perlin"

	"github.com/SoftbearStudios/dzsim/sim/bsp"
	"github.com/SoftbearStudios/dzsim/sim/geo"
)

// Builder accumulates primitives and assembles a bsp.Map whose worldspawn
// model references every added brush.
type Builder struct {
	m           bsp.Map
	leafBrushes []uint16
}

func NewBuilder() *Builder {
	b := &Builder{}
	b.m.IsEmbeddedMap = true
	return b
}

// AddAxialBrush adds a box brush with the six axial planes its AABB
// requires.
func (b *Builder) AddAxialBrush(mins, maxs geo.Vec3, contents uint32) *Builder {
	firstSide := int32(len(b.m.BrushSides))

	planes := []bsp.Plane{
		{Normal: geo.Vec3{X: 1}, Dist: maxs.X},
		{Normal: geo.Vec3{X: -1}, Dist: -mins.X},
		{Normal: geo.Vec3{Y: 1}, Dist: maxs.Y},
		{Normal: geo.Vec3{Y: -1}, Dist: -mins.Y},
		{Normal: geo.Vec3{Z: 1}, Dist: maxs.Z},
		{Normal: geo.Vec3{Z: -1}, Dist: -mins.Z},
	}
	for _, plane := range planes {
		planeNum := uint16(len(b.m.Planes))
		b.m.Planes = append(b.m.Planes, plane)
		b.m.BrushSides = append(b.m.BrushSides, bsp.BrushSide{
			PlaneNum: planeNum,
			TexInfo:  -1,
		})
	}

	brushIdx := uint16(len(b.m.Brushes))
	b.m.Brushes = append(b.m.Brushes, bsp.Brush{
		FirstSide: firstSide,
		NumSides:  6,
		Contents:  contents,
	})
	b.leafBrushes = append(b.leafBrushes, brushIdx)
	return b
}

// AddSolidBox is AddAxialBrush with plain solid contents.
func (b *Builder) AddSolidBox(mins, maxs geo.Vec3) *Builder {
	return b.AddAxialBrush(mins, maxs, bsp.ContentsSolid)
}

// AddDisplacement adds a square displacement over the horizontal quad
// [origin, origin+size] at origin.Z, with per-grid-vertex heights supplied
// by heightAt(row, col) for a (2^power+1)² grid.
func (b *Builder) AddDisplacement(power uint32, origin geo.Vec3, size float32,
	heightAt func(row, col int) float32) *Builder {

	// The 4-vertex base face, clockwise when viewed from above.
	v0 := geo.Vec3{X: origin.X + size, Y: origin.Y + size, Z: origin.Z}
	v1 := geo.Vec3{X: origin.X + size, Y: origin.Y, Z: origin.Z}
	v2 := geo.Vec3{X: origin.X, Y: origin.Y, Z: origin.Z}
	v3 := geo.Vec3{X: origin.X, Y: origin.Y + size, Z: origin.Z}

	firstVert := uint16(len(b.m.Vertices))
	b.m.Vertices = append(b.m.Vertices, v0, v1, v2, v3)

	firstEdge := int32(len(b.m.Edges))
	for i := 0; i < 4; i++ {
		b.m.Edges = append(b.m.Edges, bsp.Edge{
			V: [2]uint16{firstVert + uint16(i), firstVert + uint16((i+1)%4)},
		})
	}
	firstSurfEdge := int32(len(b.m.SurfEdges))
	for i := int32(0); i < 4; i++ {
		b.m.SurfEdges = append(b.m.SurfEdges, firstEdge+i)
	}

	faceIdx := uint16(len(b.m.Faces))
	dispIdx := int16(len(b.m.DispInfos))
	b.m.Faces = append(b.m.Faces, bsp.Face{
		FirstEdge: firstSurfEdge,
		NumEdges:  4,
		TexInfo:   -1,
		DispInfo:  dispIdx,
	})

	numRowVerts := (1 << power) + 1
	dispVertStart := uint32(len(b.m.DispVerts))
	for i := 0; i < numRowVerts*numRowVerts; i++ {
		row := i / numRowVerts
		col := i % numRowVerts
		b.m.DispVerts = append(b.m.DispVerts, bsp.DispVert{
			Vec:  geo.Vec3{Z: 1},
			Dist: heightAt(row, col),
		})
	}

	b.m.DispInfos = append(b.m.DispInfos, bsp.DispInfo{
		StartPos:      v2,
		DispVertStart: dispVertStart,
		Power:         power,
		MapFace:       faceIdx,
	})
	return b
}

// AddStaticProp registers a model path and a solid-with-physics instance.
func (b *Builder) AddStaticProp(mdlPath string, origin, angles geo.Vec3, scale float32) *Builder {
	modelIdx := -1
	for i, existing := range b.m.StaticPropModelDict {
		if existing == mdlPath {
			modelIdx = i
			break
		}
	}
	if modelIdx < 0 {
		modelIdx = len(b.m.StaticPropModelDict)
		b.m.StaticPropModelDict = append(b.m.StaticPropModelDict, mdlPath)
	}
	b.m.StaticProps = append(b.m.StaticProps, bsp.StaticProp{
		Origin:       origin,
		Angles:       angles,
		ModelIdx:     uint16(modelIdx),
		Solid:        6,
		UniformScale: scale,
	})
	return b
}

// AddEntity appends a raw key/value entity.
func (b *Builder) AddEntity(kv map[string]string) *Builder {
	b.m.Entities = append(b.m.Entities, kv)
	return b
}

// Build finalizes the map: one leaf holding every brush, worldspawn model
// pointing at it.
func (b *Builder) Build() *bsp.Map {
	m := b.m // copy, the builder stays reusable

	m.LeafBrushes = append([]uint16(nil), b.leafBrushes...)
	m.Leafs = []bsp.Leaf{{
		FirstLeafBrush: 0,
		NumLeafBrushes: uint16(len(m.LeafBrushes)),
	}}
	m.Models = []bsp.Model{{HeadNode: -1}}
	return &m
}

// PerlinTerrain builds a map with a perlin-noise displacement landscape over
// a solid base slab, for demos and property tests. size is the side length
// in units, amplitude the height swing.
func PerlinTerrain(seed int64, power uint32, size, amplitude float32) *bsp.Map {
	noise := perlin.NewPerlin(2, 2, 3, seed)
	numRowVerts := (1 << power) + 1

	b := NewBuilder()
	b.AddSolidBox(
		geo.Vec3{X: -size / 2, Y: -size / 2, Z: -16},
		geo.Vec3{X: size / 2, Y: size / 2, Z: 0})
	b.AddDisplacement(power, geo.Vec3{X: -size / 2, Y: -size / 2, Z: 0}, size,
		func(row, col int) float32 {
			x := float64(row) / float64(numRowVerts-1)
			y := float64(col) / float64(numRowVerts-1)
			return amplitude * float32(noise.Noise2D(3*x, 3*y)+1) * 0.5
		})
	return b.Build()
}

// FlatFloor builds the simplest world: one large solid floor slab whose top
// is at the given height.
func FlatFloor(topZ float32) *bsp.Map {
	return NewBuilder().AddSolidBox(
		geo.Vec3{X: -4096, Y: -4096, Z: topZ - 64},
		geo.Vec3{X: 4096, Y: 4096, Z: topZ}).Build()
}

// EncodePhyBox encodes a valid single-solid collision blob for an axial box,
// exercising decoders without real game files. surfaceProp lands in the text
// section.
func EncodePhyBox(mins, maxs geo.Vec3, surfaceProp string) []byte {
	// World-space corner order; indices below reference it.
	corners := [8]geo.Vec3{
		{X: mins.X, Y: mins.Y, Z: mins.Z},
		{X: maxs.X, Y: mins.Y, Z: mins.Z},
		{X: maxs.X, Y: maxs.Y, Z: mins.Z},
		{X: mins.X, Y: maxs.Y, Z: mins.Z},
		{X: mins.X, Y: mins.Y, Z: maxs.Z},
		{X: maxs.X, Y: mins.Y, Z: maxs.Z},
		{X: maxs.X, Y: maxs.Y, Z: maxs.Z},
		{X: mins.X, Y: maxs.Y, Z: maxs.Z},
	}
	// Box faces as clockwise-from-outside triangles.
	cwTris := [12][3]uint16{
		{0, 1, 2}, {0, 2, 3}, // bottom (viewed from below)
		{4, 7, 6}, {4, 6, 5}, // top
		{0, 4, 5}, {0, 5, 1}, // -Y
		{2, 6, 7}, {2, 7, 3}, // +Y
		{1, 5, 6}, {1, 6, 2}, // +X
		{3, 7, 4}, {3, 4, 0}, // -X
	}

	le := binary.LittleEndian
	u32 := func(buf []byte, v uint32) []byte {
		var tmp [4]byte
		le.PutUint32(tmp[:], v)
		return append(buf, tmp[:]...)
	}
	u16 := func(buf []byte, v uint16) []byte {
		var tmp [2]byte
		le.PutUint16(tmp[:], v)
		return append(buf, tmp[:]...)
	}
	f32 := func(buf []byte, v float32) []byte {
		return u32(buf, math.Float32bits(v))
	}

	var body []byte
	// Section header: vertices start right after the triangle list.
	body = u32(body, uint32(16+len(cwTris)*16)) // offset to vertices
	body = u32(body, 0)
	body = u32(body, 0)                  // flags
	body = u32(body, uint32(len(cwTris))) // triangle count
	for i, tri := range cwTris {
		body = u32(body, uint32(i)&0xff)
		// The decoder flips winding back to clockwise, so store v1, v3, v2.
		body = u16(body, tri[0])
		body = u16(body, 0)
		body = u16(body, tri[2])
		body = u16(body, 0)
		body = u16(body, tri[1])
		body = u16(body, 0)
	}
	for _, c := range corners {
		// Inverse of the decoder's axis swap and unit scale.
		const invScale = 0.0254
		body = f32(body, c.X*invScale)
		body = f32(body, -c.Z*invScale)
		body = f32(body, c.Y*invScale)
		body = u32(body, 0)
	}

	var out []byte
	out = u32(out, 16) // header size
	out = u32(out, 0)
	out = u32(out, 1) // solid count
	out = u32(out, 0)

	out = u32(out, uint32(76+len(body))) // binary section size up to text
	out = u32(out, uint32('V')|uint32('P')<<8|uint32('H')<<16|uint32('Y')<<24)
	out = append(out, make([]byte, 68)...)
	out = u32(out, uint32('I')|uint32('V')<<8|uint32('P')<<16|uint32('S')<<24)
	out = append(out, body...)

	text := "solid {\n\"index\" \"0\"\n\"surfaceprop\" \"" + surfaceProp + "\"\n}\n"
	out = append(out, text...)
	return out
}
