// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package coll

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/SoftbearStudios/dzsim/sim/bsp"
)

// ErrAssetNotFound marks a referenced file that exists neither in the map's
// packed sub-files nor anywhere the asset source searches.
var ErrAssetNotFound = errors.New("asset not found")

// AssetSource resolves prop model references. Locating game installs and
// archive indexing live outside the core; the world only needs existence
// checks and collision file bytes.
type AssetSource interface {
	// HasModel reports whether the ".mdl" file at the given path exists.
	HasModel(mdlPath string) bool
	// OpenCollisionModel returns the bytes of the ".phy" file matching the
	// given ".mdl" path, or ErrAssetNotFound.
	OpenCollisionModel(mdlPath string) ([]byte, error)
}

// PackedAssets serves assets from the map's own packed file directory,
// re-reading the map bytes through its recorded file origin. This is all an
// embedded map needs; regular maps chain a game-directory source in front.
type PackedAssets struct {
	m       *bsp.Map
	mdlIdx  []int
	phyIdx  []int
}

func NewPackedAssets(m *bsp.Map) *PackedAssets {
	p := &PackedAssets{m: m}
	for i, f := range m.PackedFiles {
		if strings.HasSuffix(f.FileName, ".mdl") {
			p.mdlIdx = append(p.mdlIdx, i)
		} else if strings.HasSuffix(f.FileName, ".phy") {
			p.phyIdx = append(p.phyIdx, i)
		}
	}
	byName := func(indices []int) func(i, j int) bool {
		return func(i, j int) bool {
			return m.PackedFiles[indices[i]].FileName < m.PackedFiles[indices[j]].FileName
		}
	}
	sort.Slice(p.mdlIdx, byName(p.mdlIdx))
	sort.Slice(p.phyIdx, byName(p.phyIdx))
	return p
}

func (p *PackedAssets) find(indices []int, name string) (bsp.PackedFile, bool) {
	i := sort.Search(len(indices), func(i int) bool {
		return p.m.PackedFiles[indices[i]].FileName >= name
	})
	if i < len(indices) && p.m.PackedFiles[indices[i]].FileName == name {
		return p.m.PackedFiles[indices[i]], true
	}
	return bsp.PackedFile{}, false
}

func (p *PackedAssets) HasModel(mdlPath string) bool {
	_, ok := p.find(p.mdlIdx, mdlPath)
	return ok
}

// PhyPath swaps a model path's extension from ".mdl" to ".phy".
func PhyPath(mdlPath string) string {
	if !strings.HasSuffix(mdlPath, ".mdl") {
		return ""
	}
	return mdlPath[:len(mdlPath)-3] + "phy"
}

func (p *PackedAssets) OpenCollisionModel(mdlPath string) ([]byte, error) {
	phyPath := PhyPath(mdlPath)
	if phyPath == "" {
		return nil, fmt.Errorf("%q: %w", mdlPath, ErrAssetNotFound)
	}
	packed, ok := p.find(p.phyIdx, phyPath)
	if !ok {
		return nil, fmt.Errorf("%q: %w", phyPath, ErrAssetNotFound)
	}

	// Re-open the map bytes through the recorded origin; packed entries are
	// byte ranges of the map file itself.
	var content []byte
	if p.m.FileOrigin.InMemory() {
		content = p.m.FileOrigin.Content
	} else {
		var err error
		content, err = os.ReadFile(p.m.FileOrigin.AbsFilePath)
		if err != nil {
			return nil, fmt.Errorf("reopen map for packed file %q: %w", phyPath, err)
		}
	}
	start := int(packed.FileOffset)
	end := start + int(packed.FileLen)
	if start < 0 || end > len(content) || start > end {
		return nil, fmt.Errorf("packed file %q out of range: %w", phyPath, ErrAssetNotFound)
	}
	return content[start:end], nil
}

// MemoryAssets is a plain in-memory asset source, used by synthetic worlds
// and tests.
type MemoryAssets struct {
	Models map[string][]byte // keyed by ".mdl" path, value is the phy blob
}

func (m *MemoryAssets) HasModel(mdlPath string) bool {
	_, ok := m.Models[mdlPath]
	return ok
}

func (m *MemoryAssets) OpenCollisionModel(mdlPath string) ([]byte, error) {
	blob, ok := m.Models[mdlPath]
	if !ok {
		return nil, fmt.Errorf("%q: %w", mdlPath, ErrAssetNotFound)
	}
	return blob, nil
}
