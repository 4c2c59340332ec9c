// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package coll

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/SoftbearStudios/dzsim/sim/bsp"
	"github.com/SoftbearStudios/dzsim/sim/geo"
	"github.com/SoftbearStudios/dzsim/sim/phy"
)

type primitiveKind uint8

const (
	primBrush primitiveKind = iota
	primDispTile
	primPropSection
)

// primitive is one BVH leaf entry. Collidables are a closed sum dispatched
// on the kind tag, keeping leaves dense and the narrow phase branch-
// predictable.
type primitive struct {
	aabb  geo.AABB
	kind  primitiveKind
	index int32
}

type worldBrush struct {
	planes   []geo.Plane
	contents uint32
	surface  int32
}

type dispTriangle struct {
	verts [3]geo.Vec3
	plane geo.Plane
}

// dispTile pairs the two triangles of one displacement grid tile.
type dispTile struct {
	tris    [2]dispTriangle
	surface int32
}

type propSectionRef struct {
	cache   *CollisionCache
	section *ModelSection
}

// World owns all collision primitives of a loaded map and the BVH over them.
// It holds a shared read-only reference to the parsed map snapshot.
type World struct {
	Map *bsp.Map

	brushes      []worldBrush
	dispTiles    []dispTile
	propSections []propSectionRef
	caches       []*CollisionCache
	models       map[string]*CollisionModel

	prims []primitive
	bvh   *BVH

	surfaces   []string
	surfaceIDs map[string]int32

	// SkippedMultiSolid lists model paths whose collision files contained
	// multiple solids; the rest of the system deliberately ignores these.
	SkippedMultiSolid []string
}

// NewWorld assembles the collidable world: displacement collision tiles,
// decoded prop collision models, per-prop caches, worldspawn and solid
// brush-entity brushes, and finally the BVH over everything. Single bad
// primitives are dropped and reported in the returned error list.
func NewWorld(m *bsp.Map, assets AssetSource) (*World, []error) {
	w := &World{
		Map:        m,
		models:     make(map[string]*CollisionModel),
		surfaceIDs: make(map[string]int32),
	}
	var errs []error

	// Default surface class at id 0.
	w.surfaceID("default")

	errs = append(errs, w.buildDisplacements()...)
	errs = append(errs, w.loadPropModels(assets)...)
	w.buildPropCaches()
	errs = append(errs, w.buildBrushes()...)

	// The BVH is only valid once every primitive array is final.
	bounds := make([]geo.AABB, len(w.prims))
	for i := range w.prims {
		bounds[i] = w.prims[i].aabb
	}
	w.bvh = buildBVH(bounds)
	return w, errs
}

func (w *World) surfaceID(name string) int32 {
	if name == "" {
		return 0
	}
	if id, ok := w.surfaceIDs[name]; ok {
		return id
	}
	id := int32(len(w.surfaces))
	w.surfaces = append(w.surfaces, name)
	w.surfaceIDs[name] = id
	return id
}

// SurfaceName resolves a trace surface tag; empty for -1.
func (w *World) SurfaceName(surface int32) string {
	if surface < 0 || int(surface) >= len(w.surfaces) {
		return ""
	}
	return w.surfaces[surface]
}

// SurfaceFriction is the material friction multiplier of a surface. There is
// no confirmed material mapping table, so every known surface is 1.0; the
// movement code overrides it to 0.25 while rising after a jump.
func (w *World) SurfaceFriction(surface int32) float32 {
	return 1.0
}

func (w *World) buildDisplacements() []error {
	var errs []error
	for dispIdx := range w.Map.DispInfos {
		dispInfo := w.Map.DispInfos[dispIdx]
		if dispInfo.HasFlagNoHullColl() {
			continue
		}
		tris, err := w.Map.DisplacementTriangles(dispIdx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		surface := int32(0)
		if int(dispInfo.MapFace) < len(w.Map.Faces) {
			surface = w.surfaceID(w.Map.TexName(w.Map.Faces[dispInfo.MapFace].TexInfo))
		}
		for i := 0; i+1 < len(tris); i += 2 {
			tile := dispTile{surface: surface}
			aabb := geo.EmptyAABB()
			for j := 0; j < 2; j++ {
				verts := tris[i+j]
				tile.tris[j] = dispTriangle{
					verts: verts,
					plane: geo.PlaneFromTriCW(verts[0], verts[1], verts[2]),
				}
				for _, v := range verts {
					aabb = aabb.Extend(v)
				}
			}
			w.prims = append(w.prims, primitive{
				aabb:  aabb,
				kind:  primDispTile,
				index: int32(len(w.dispTiles)),
			})
			w.dispTiles = append(w.dispTiles, tile)
		}
	}
	return errs
}

// loadPropModels decodes the collision model of every unique model path
// referenced by a solid prop instance. Loading is parallel per model and
// finishes before this returns, so the BVH built afterwards sees final data.
func (w *World) loadPropModels(assets AssetSource) []error {
	modelPaths := make(map[string]struct{})
	for _, sprop := range w.Map.StaticProps {
		if sprop.IsSolidWithVPhysics() && int(sprop.ModelIdx) < len(w.Map.StaticPropModelDict) {
			modelPaths[w.Map.StaticPropModelDict[sprop.ModelIdx]] = struct{}{}
		}
	}
	for _, dprop := range w.Map.DynamicPropEntities() {
		modelPaths[dprop.Model] = struct{}{}
	}

	ordered := make([]string, 0, len(modelPaths))
	for path := range modelPaths {
		ordered = append(ordered, path)
	}
	sort.Strings(ordered)

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs []error
	)
	for _, mdlPath := range ordered {
		mdlPath := mdlPath
		wg.Add(1)
		go func() {
			defer wg.Done()
			model, err := w.loadOneModel(assets, mdlPath)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, phy.ErrMultipleSolids):
				w.SkippedMultiSolid = append(w.SkippedMultiSolid, mdlPath)
			case errors.Is(err, ErrAssetNotFound):
				// Props whose collision file exists nowhere are non-solid,
				// silently.
			case err != nil:
				errs = append(errs, fmt.Errorf("props using %q are non-solid: %w", mdlPath, err))
			case model != nil:
				w.models[mdlPath] = model
			}
		}()
	}
	wg.Wait()
	sort.Strings(w.SkippedMultiSolid)
	return errs
}

func (w *World) loadOneModel(assets AssetSource, mdlPath string) (*CollisionModel, error) {
	if assets == nil {
		return nil, ErrAssetNotFound
	}
	// Regular maps follow the game: a prop is only solid if its model file
	// exists. Embedded maps are self-contained and skip the check.
	if !w.Map.IsEmbeddedMap && !assets.HasModel(mdlPath) {
		return nil, fmt.Errorf("model file %q not found: %w", mdlPath, errAssetRequired)
	}
	blob, err := assets.OpenCollisionModel(mdlPath)
	if err != nil {
		return nil, err
	}
	decoded, err := phy.Decode(blob, phy.Options{})
	if err != nil {
		return nil, err
	}
	return NewCollisionModel(decoded), nil
}

// errAssetRequired distinguishes a missing required model file (reported)
// from a missing collision file (silent).
var errAssetRequired = errors.New("required asset missing")

func (w *World) buildPropCaches() {
	addInstance := func(mdlPath string, transform geo.Transform) {
		model, ok := w.models[mdlPath]
		if !ok {
			return
		}
		cache := newCollisionCache(model, transform, w.surfaceID(model.SurfaceProp))
		w.caches = append(w.caches, cache)
		for i := range model.Sections {
			section := &model.Sections[i]
			w.prims = append(w.prims, primitive{
				aabb:  transformedAABB(section.AABB, transform),
				kind:  primPropSection,
				index: int32(len(w.propSections)),
			})
			w.propSections = append(w.propSections, propSectionRef{
				cache:   cache,
				section: section,
			})
		}
	}

	for _, sprop := range w.Map.StaticProps {
		if !sprop.IsSolidWithVPhysics() || int(sprop.ModelIdx) >= len(w.Map.StaticPropModelDict) {
			continue
		}
		mdlPath := w.Map.StaticPropModelDict[sprop.ModelIdx]
		addInstance(mdlPath, geo.TransformFrom(sprop.Origin, sprop.Angles, sprop.UniformScale))
	}
	for _, dprop := range w.Map.DynamicPropEntities() {
		addInstance(dprop.Model, geo.TransformFrom(dprop.Origin, dprop.Angles, 1.0))
	}
}

func (w *World) buildBrushes() []error {
	var errs []error

	addBrush := func(brushIdx int, transform *geo.Transform) {
		brush := w.Map.Brushes[brushIdx]
		if !bsp.SolidBrush(brush) {
			return
		}
		aabb, err := w.Map.BrushAABB(brushIdx)
		if err != nil {
			errs = append(errs, err)
			return
		}
		surface := int32(0)
		planes := make([]geo.Plane, 0, brush.NumSides)
		for i := int32(0); i < brush.NumSides; i++ {
			side := w.Map.BrushSides[brush.FirstSide+i]
			plane := w.Map.Planes[side.PlaneNum]
			if transform != nil {
				plane.Normal = transform.Rotation.Apply(plane.Normal)
				plane.Dist += plane.Normal.Dot(transform.Origin)
			}
			planes = append(planes, plane)
			if surface == 0 && !side.Bevel {
				surface = w.surfaceID(w.Map.TexName(side.TexInfo))
			}
		}
		if transform != nil {
			aabb = transformedAABB(aabb, *transform)
		}
		w.prims = append(w.prims, primitive{
			aabb:  aabb,
			kind:  primBrush,
			index: int32(len(w.brushes)),
		})
		w.brushes = append(w.brushes, worldBrush{
			planes:   planes,
			contents: brush.Contents,
			surface:  surface,
		})
	}

	// Worldspawn brushes.
	worldspawn := w.Map.WorldspawnBrushIndices()
	ordered := make([]int, 0, len(worldspawn))
	for idx := range worldspawn {
		ordered = append(ordered, idx)
	}
	sort.Ints(ordered)
	for _, brushIdx := range ordered {
		addBrush(brushIdx, nil)
	}

	// Brushes of solid func_brush entities, transformed by entity rotation
	// and origin.
	for _, fb := range w.Map.FuncBrushEntities() {
		if !fb.IsSolid() {
			continue
		}
		modelIdx, ok := brushModelIndex(fb.Model, len(w.Map.Models))
		if !ok {
			errs = append(errs, fmt.Errorf("func_brush at %v has an invalid model", fb.Origin))
			continue
		}
		var transform *geo.Transform
		if fb.Origin != (geo.Vec3{}) || fb.IsRotated() {
			t := geo.TransformFrom(fb.Origin, fb.Angles, 1.0)
			transform = &t
		}
		indices := w.Map.ModelBrushIndices(uint32(modelIdx))
		orderedEnt := make([]int, 0, len(indices))
		for idx := range indices {
			orderedEnt = append(orderedEnt, idx)
		}
		sort.Ints(orderedEnt)
		for _, brushIdx := range orderedEnt {
			addBrush(brushIdx, transform)
		}
	}
	return errs
}

// brushModelIndex parses a "*N" brush entity model reference.
func brushModelIndex(model string, modelCount int) (int, bool) {
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

// Sweep is the single collision entry point: it reports the earliest impact
// of the swept hull with the world. It allocates nothing and is safe for
// concurrent use.
func (w *World) Sweep(trace *Trace) TraceResult {
	result := newTraceResult()

	box := geo.SweptAABB(trace.Start, trace.End, trace.HullMins, trace.HullMaxs)
	pad := geo.Vec3{X: DistEpsilon, Y: DistEpsilon, Z: DistEpsilon}
	box.Mins = box.Mins.Sub(pad)
	box.Maxs = box.Maxs.Add(pad)

	var candidateArr [256]int32
	candidates := w.bvh.Query(box, candidateArr[:0])

	for _, primIdx := range candidates {
		prim := &w.prims[primIdx]
		switch prim.kind {
		case primBrush:
			brush := &w.brushes[prim.index]
			clipToPlanes(brush.planes, nil, brush.surface,
				trace.Start, trace.End, trace.HullMins, trace.HullMaxs, &result)
		case primDispTile:
			tile := &w.dispTiles[prim.index]
			for i := range tile.tris {
				clipToTriangle(tile.tris[i].verts, tile.tris[i].plane,
					tile.surface, trace, &result)
			}
		case primPropSection:
			ref := &w.propSections[prim.index]
			clipToPropSection(ref.cache, ref.section, trace, &result)
		}
		if result.AllSolid {
			break
		}
	}

	if result.Fraction >= 1 {
		result.Fraction = 1
		if !result.StartSolid {
			result.Surface = -1
			result.PlaneNormal = geo.Vec3{}
		}
	}
	return result
}

// Caches exposes the per-prop collision caches, for inspection and tests.
func (w *World) Caches() []*CollisionCache { return w.caches }

// Model returns a loaded collision model by path, if any.
func (w *World) Model(mdlPath string) *CollisionModel { return w.models[mdlPath] }

// PrimitiveCount reports how many collidable primitives the world holds.
func (w *World) PrimitiveCount() int { return len(w.prims) }
