// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package bsp

// Category classifies brushes by their contents bitmask for separate
// rendering and filtering. The values are indexable, keep them dense.
type Category uint8

const (
	CategorySolid Category = iota
	CategoryPlayerClip
	CategoryGrenadeClip
	CategoryLadder
	CategoryWater
	CategorySky
	CategoryCount
)

func (c Category) String() string {
	switch c {
	case CategorySolid:
		return "solid"
	case CategoryPlayerClip:
		return "playerclip"
	case CategoryGrenadeClip:
		return "grenadeclip"
	case CategoryLadder:
		return "ladder"
	case CategoryWater:
		return "water"
	case CategorySky:
		return "sky"
	}
	return "unknown"
}

// CategoryTestFuncs returns the brush and brushside predicates that select a
// category's faces during reconstruction. Either can be nil.
func CategoryTestFuncs(c Category) (BrushPredicate, SidePredicate) {
	switch c {
	case CategorySolid:
		return func(b Brush) bool {
				return b.HasFlags(ContentsSolid) &&
					!b.HasFlags(ContentsPlayerClip | ContentsGrenadeClip | ContentsLadder)
			},
			// Sky brushes are solid too; their faces belong to CategorySky.
			func(s BrushSide, m *Map) bool {
				return !sideHasSkyFlag(s, m)
			}
	case CategoryPlayerClip:
		return func(b Brush) bool { return b.HasFlags(ContentsPlayerClip) }, nil
	case CategoryGrenadeClip:
		return func(b Brush) bool { return b.HasFlags(ContentsGrenadeClip) }, nil
	case CategoryLadder:
		return func(b Brush) bool { return b.HasFlags(ContentsLadder) }, nil
	case CategoryWater:
		return func(b Brush) bool { return b.HasFlags(ContentsWater) }, nil
	case CategorySky:
		return func(b Brush) bool { return b.HasFlags(ContentsSolid) },
			sideHasSkyFlag
	}
	return nil, nil
}

func sideHasSkyFlag(s BrushSide, m *Map) bool {
	if s.TexInfo < 0 || int(s.TexInfo) >= len(m.TexInfos) {
		return false
	}
	return m.TexInfos[s.TexInfo].HasFlagSky()
}

// SolidBrush reports whether a brush blocks the player hull: solid world
// geometry and player clips, but not grenade clips, ladders or water.
func SolidBrush(b Brush) bool {
	if b.HasFlags(ContentsLadder | ContentsWater | ContentsGrenadeClip) {
		return false
	}
	return b.HasFlags(ContentsSolid | ContentsPlayerClip)
}
