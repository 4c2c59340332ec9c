// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render extracts the data an external renderer draws: per-category
// brush faces, displacement triangles and boundary strips, trigger-push
// meshes and per-prop instance transforms. It produces plain geometry, no
// GPU resources.
package render

import (
	"fmt"
	"sort"

	"github.com/SoftbearStudios/dzsim/sim/bsp"
	"github.com/SoftbearStudios/dzsim/sim/coll"
	"github.com/SoftbearStudios/dzsim/sim/geo"
	"github.com/SoftbearStudios/dzsim/sim/phy"
)

// PropInstances couples a prop collision mesh with the transforms of every
// instance using it.
type PropInstances struct {
	ModelPath string
	Sections  []phy.TriMesh
	Instances []geo.Transform
}

// World is the renderable-world bundle. All faces wind clockwise viewed from
// outside.
type World struct {
	// BrushFaces indexes by bsp.Category.
	BrushFaces [bsp.CategoryCount][][]geo.Vec3

	DisplacementFaces      [][]geo.Vec3
	DisplacementBoundaries [][]geo.Vec3
	TriggerPushFaces       [][]geo.Vec3

	Props []PropInstances

	// Errors collects non-fatal extraction problems.
	Errors []error
}

// Extract builds the renderable world from the parsed map and, when
// available, the collidable world's decoded prop models.
func Extract(m *bsp.Map, cw *coll.World) *World {
	w := &World{}

	faces, errs := m.DisplacementFaceVertices()
	w.DisplacementFaces = faces
	w.Errors = append(w.Errors, errs...)

	boundaries, errs := m.DisplacementBoundaryFaceVertices()
	w.DisplacementBoundaries = boundaries
	w.Errors = append(w.Errors, errs...)

	w.extractBrushCategories(m)
	w.extractTriggerPushes(m)
	if cw != nil {
		w.extractProps(m, cw)
	}
	return w
}

func (w *World) extractBrushCategories(m *bsp.Map) {
	worldspawn := m.WorldspawnBrushIndices()
	funcBrushes := m.FuncBrushEntities()

	for cat := bsp.Category(0); cat < bsp.CategoryCount; cat++ {
		predBrush, predSide := bsp.CategoryTestFuncs(cat)

		faces, errs := m.BrushFaceVertices(worldspawn, predBrush, predSide)
		w.Errors = append(w.Errors, errs...)

		for _, fb := range funcBrushes {
			if !fb.IsSolid() {
				continue
			}
			// Grenade-clip brushes don't work in func_brush entities (for
			// unknown reasons).
			if cat == bsp.CategoryGrenadeClip {
				continue
			}
			modelIdx, ok := brushEntityModelIndex(fb.Model, len(m.Models))
			if !ok {
				if cat == bsp.CategorySolid {
					w.Errors = append(w.Errors,
						fmt.Errorf("func_brush at %v has an invalid model idx", fb.Origin))
				}
				continue
			}
			entFaces, errs := m.BrushFaceVertices(m.ModelBrushIndices(uint32(modelIdx)), predBrush, predSide)
			w.Errors = append(w.Errors, errs...)
			if len(entFaces) == 0 {
				continue
			}

			// Rotate and translate every vertex by the entity pose.
			var rotation *geo.RotationMatrix
			if fb.IsRotated() {
				r := geo.RotationFromAngles(fb.Angles)
				rotation = &r
			}
			for _, face := range entFaces {
				for i, v := range face {
					if rotation != nil {
						v = rotation.Apply(v)
					}
					face[i] = v.Add(fb.Origin)
				}
			}
			faces = append(faces, entFaces...)
		}

		// Only the water surface is drawn; drop water faces not facing up.
		if cat == bsp.CategoryWater {
			surface := faces[:0]
			for _, face := range faces {
				if len(face) >= 3 && geo.CWTriangleFacingUp(face[0], face[1], face[2]) {
					surface = append(surface, face)
				}
			}
			faces = surface
		}

		w.BrushFaces[cat] = faces
	}
}

func (w *World) extractTriggerPushes(m *bsp.Map) {
	for _, tp := range m.TriggerPushEntities() {
		if !tp.CanPushPlayers() {
			continue
		}
		modelIdx, ok := brushEntityModelIndex(tp.Model, len(m.Models))
		if !ok {
			w.Errors = append(w.Errors,
				fmt.Errorf("trigger_push at %v has an invalid model idx", tp.Origin))
			continue
		}
		faces, errs := m.BrushFaceVertices(m.ModelBrushIndices(uint32(modelIdx)), nil, nil)
		w.Errors = append(w.Errors, errs...)
		if len(faces) == 0 {
			continue
		}

		// Lift push triggers that act on all players, not only falling ones,
		// a unit up to dodge Z-fighting; they draw slightly off on purpose.
		origin := tp.Origin
		if !tp.OnlyFallingPlayers {
			origin.Z += 1
		}
		transform := geo.TransformFrom(origin, tp.Angles, 1.0)
		for _, face := range faces {
			for i, v := range face {
				face[i] = transform.Apply(v)
			}
		}
		w.TriggerPushFaces = append(w.TriggerPushFaces, faces...)
	}
}

func (w *World) extractProps(m *bsp.Map, cw *coll.World) {
	instances := make(map[string][]geo.Transform)

	for _, sprop := range m.StaticProps {
		if !sprop.IsSolidWithVPhysics() || int(sprop.ModelIdx) >= len(m.StaticPropModelDict) {
			continue
		}
		mdlPath := m.StaticPropModelDict[sprop.ModelIdx]
		if cw.Model(mdlPath) == nil {
			continue
		}
		instances[mdlPath] = append(instances[mdlPath],
			geo.TransformFrom(sprop.Origin, sprop.Angles, sprop.UniformScale))
	}
	for _, dprop := range m.DynamicPropEntities() {
		if cw.Model(dprop.Model) == nil {
			continue
		}
		instances[dprop.Model] = append(instances[dprop.Model],
			geo.TransformFrom(dprop.Origin, dprop.Angles, 1.0))
	}

	paths := make([]string, 0, len(instances))
	for mdlPath := range instances {
		paths = append(paths, mdlPath)
	}
	sort.Strings(paths)

	for _, mdlPath := range paths {
		transforms := instances[mdlPath]
		model := cw.Model(mdlPath)
		sections := make([]phy.TriMesh, len(model.Sections))
		for i := range model.Sections {
			sections[i] = model.Sections[i].Mesh
		}
		w.Props = append(w.Props, PropInstances{
			ModelPath: mdlPath,
			Sections:  sections,
			Instances: transforms,
		})
	}
}

func brushEntityModelIndex(model string, modelCount int) (int, bool) {
	if len(model) < 2 || model[0] != '*' {
		return 0, false
	}
	idx := 0
	for _, c := range model[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		idx = idx*10 + int(c-'0')
	}
	if idx <= 0 || idx >= modelCount {
		return 0, false
	}
	return idx, true
}
