// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package bsp

import (
	"fmt"

	"github.com/SoftbearStudios/dzsim/sim/geo"
)

// By how much boundary strips hover above the displacement surface.
const dispBoundaryHoverDist = 2.0

// Ratio of boundary strip width to displacement tile width.
const dispBoundaryThickness = 0.1

// DisplacementVertices computes the world positions of one displacement's
// vertex grid, in the order of the displacement vertex lump: bilinear
// interpolation of the underlying 4-vertex map face plus per-vertex offsets.
func (m *Map) DisplacementVertices(dispIdx int) ([]geo.Vec3, error) {
	dispInfo := m.DispInfos[dispIdx]
	numRowVerts := dispInfo.VertexRowCount()
	numVerts := numRowVerts * numRowVerts

	face := m.Faces[dispInfo.MapFace]
	if face.NumEdges != 4 {
		return nil, fmt.Errorf("displacement %d: map face has %d edges, want 4", dispIdx, face.NumEdges)
	}
	faceVertsCW := m.FaceVertices(uint32(dispInfo.MapFace))

	// The face vertex closest to start_pos anchors the grid orientation; the
	// other three corners are labeled by clockwise rotation from it.
	startIdx := 0
	startDist := dispInfo.StartPos.DistanceSquared(faceVertsCW[0])
	for i := 1; i < 4; i++ {
		if d := dispInfo.StartPos.DistanceSquared(faceVertsCW[i]); d < startDist {
			startIdx = i
			startDist = d
		}
	}
	topLeft := faceVertsCW[(startIdx+3)%4]
	topRight := faceVertsCW[(startIdx+0)%4]
	botRight := faceVertsCW[(startIdx+1)%4]
	botLeft := faceVertsCW[(startIdx+2)%4]

	verts := make([]geo.Vec3, numVerts)
	for i := 0; i < numVerts; i++ {
		rowPos := float32(i%numRowVerts) / float32(numRowVerts-1)
		colPos := float32(i/numRowVerts) / float32(numRowVerts-1)
		topInterp := topLeft.Mul(rowPos).Add(topRight.Mul(1 - rowPos))
		botInterp := botLeft.Mul(rowPos).Add(botRight.Mul(1 - rowPos))
		verts[i] = topInterp.Mul(1 - colPos).Add(botInterp.Mul(colPos))

		dispVert := m.DispVerts[int(dispInfo.DispVertStart)+i]
		verts[i] = verts[i].AddScaled(dispVert.Vec, dispVert.Dist)
	}
	return verts, nil
}

// DisplacementTriangles tessellates one displacement into its tile
// triangles, two per tile, clockwise winding, with the separating diagonal
// alternating in a checkerboard by (x+y) parity. Triangles are emitted tile
// by tile, row-major.
func (m *Map) DisplacementTriangles(dispIdx int) ([][3]geo.Vec3, error) {
	dispInfo := m.DispInfos[dispIdx]
	numRowVerts := dispInfo.VertexRowCount()
	numTiles := dispInfo.TileRowCount()

	verts, err := m.DisplacementVertices(dispIdx)
	if err != nil {
		return nil, err
	}

	tris := make([][3]geo.Vec3, 0, 2*numTiles*numTiles)
	for tileY := 0; tileY < numTiles; tileY++ {
		for tileX := 0; tileX < numTiles; tileX++ {
			topLeft := verts[(tileY)*numRowVerts+(tileX+1)]
			botLeft := verts[(tileY+1)*numRowVerts+(tileX+1)]
			botRight := verts[(tileY+1)*numRowVerts+(tileX)]
			topRight := verts[(tileY)*numRowVerts+(tileX)]

			if (tileX+tileY)%2 == 0 {
				tris = append(tris,
					[3]geo.Vec3{topLeft, topRight, botLeft},
					[3]geo.Vec3{botLeft, topRight, botRight})
			} else {
				tris = append(tris,
					[3]geo.Vec3{topLeft, botRight, botLeft},
					[3]geo.Vec3{topLeft, topRight, botRight})
			}
		}
	}
	return tris, nil
}

// DisplacementFaceVertices tessellates every displacement that takes part in
// hull collision into triangles for rendering. Bad displacements are skipped
// and reported.
func (m *Map) DisplacementFaceVertices() ([][]geo.Vec3, []error) {
	var finalFaces [][]geo.Vec3
	var errs []error

	for i := range m.DispInfos {
		if m.DispInfos[i].HasFlagNoHullColl() {
			continue
		}
		tris, err := m.DisplacementTriangles(i)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, tri := range tris {
			finalFaces = append(finalFaces, []geo.Vec3{tri[0], tri[1], tri[2]})
		}
	}
	return finalFaces, errs
}

// DisplacementBoundaryFaceVertices builds thin render-only strips along the
// 4 outer edges of each displacement grid, hovering slightly above the
// surface and leaning inward. Vertex offsets average the adjacent outermost
// tile-triangle normals.
func (m *Map) DisplacementBoundaryFaceVertices() ([][]geo.Vec3, []error) {
	var totalFaces [][]geo.Vec3
	var errs []error

	for dispIdx := range m.DispInfos {
		dispInfo := m.DispInfos[dispIdx]
		if dispInfo.HasFlagNoHullColl() {
			continue
		}
		numRowVerts := dispInfo.VertexRowCount()

		verts, err := m.DisplacementVertices(dispIdx)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		// Outermost and second-outermost vertex lines of the 4 sides,
		// walking the perimeter clockwise.
		var firstOuter, secondOuter [4][]geo.Vec3
		for i := 0; i < numRowVerts; i++ {
			idx := i // top row, right to left
			firstOuter[0] = append(firstOuter[0], verts[idx])
			secondOuter[0] = append(secondOuter[0], verts[idx+numRowVerts])
		}
		for i := 0; i < numRowVerts; i++ {
			idx := numRowVerts - 1 + i*numRowVerts // left column, top to bottom
			firstOuter[1] = append(firstOuter[1], verts[idx])
			secondOuter[1] = append(secondOuter[1], verts[idx-1])
		}
		for i := 0; i < numRowVerts; i++ {
			idx := numRowVerts*numRowVerts - 1 - i // bottom row, left to right
			firstOuter[2] = append(firstOuter[2], verts[idx])
			secondOuter[2] = append(secondOuter[2], verts[idx-numRowVerts])
		}
		for i := 0; i < numRowVerts; i++ {
			idx := (numRowVerts-1)*numRowVerts - i*numRowVerts // right column, bottom to top
			firstOuter[3] = append(firstOuter[3], verts[idx])
			secondOuter[3] = append(secondOuter[3], verts[idx+1])
		}

		for side := 0; side < 4; side++ {
			totalFaces = append(totalFaces,
				buildBoundaryStrip(firstOuter[side], secondOuter[side])...)
		}
	}
	return totalFaces, errs
}

func buildBoundaryStrip(firstOutermost, secondOutermost []geo.Vec3) [][]geo.Vec3 {
	numRowVerts := len(firstOutermost)

	// Normals of the triangles that own the displacement's outermost edges.
	edgeNormals := make([]geo.Vec3, 0, numRowVerts-1)
	for triIdx := 0; triIdx < numRowVerts-1; triIdx++ {
		edgeNormals = append(edgeNormals, geo.NormalCWFront(
			firstOutermost[triIdx+1],
			firstOutermost[triIdx],
			secondOutermost[1+(triIdx/2)*2]))
	}

	averagedNormal := func(i int) geo.Vec3 {
		offsetDir := geo.Vec3{}
		if i != 0 {
			offsetDir = offsetDir.Add(edgeNormals[i-1])
		}
		if i != numRowVerts-1 {
			offsetDir = offsetDir.Add(edgeNormals[i])
		}
		return offsetDir.Norm()
	}

	// Outer vertex line of the strip: hover along the averaged normal.
	outerLine := make([]geo.Vec3, numRowVerts)
	for i := 0; i < numRowVerts; i++ {
		outerLine[i] = firstOutermost[i].AddScaled(averagedNormal(i), dispBoundaryHoverDist)
	}

	// Inner vertex line: hover plus a slight inward lean. Odd grid vertices
	// sit on a tile edge and can use the true inward vector directly; even
	// ones reconstruct it from the adjacent edge directions.
	innerLine := make([]geo.Vec3, numRowVerts)
	for i := 0; i < numRowVerts; i++ {
		v := firstOutermost[i].AddScaled(averagedNormal(i), dispBoundaryHoverDist)

		trueInwards := secondOutermost[i].Sub(firstOutermost[i])
		var inwards geo.Vec3
		if i%2 == 1 {
			inwards = trueInwards
		} else {
			if i != 0 {
				tmp := firstOutermost[i-1].Sub(firstOutermost[i]).Cross(edgeNormals[i-1])
				inwards = inwards.Add(tmp.Norm())
			}
			if i != numRowVerts-1 {
				tmp := firstOutermost[i].Sub(firstOutermost[i+1]).Cross(edgeNormals[i])
				inwards = inwards.Add(tmp.Norm())
			}
			inwards = inwards.Norm().Mul(trueInwards.Length())
		}
		innerLine[i] = v.AddScaled(inwards, dispBoundaryThickness)
	}

	faces := make([][]geo.Vec3, 0, 2*(numRowVerts-1))
	for tile := 0; tile < numRowVerts-1; tile++ {
		faces = append(faces,
			[]geo.Vec3{innerLine[tile], innerLine[tile+1], outerLine[tile+1]},
			[]geo.Vec3{outerLine[tile+1], outerLine[tile], innerLine[tile]})
	}
	return faces
}
