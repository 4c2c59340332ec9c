// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package bsp

import (
	"strconv"
	"strings"

	"github.com/SoftbearStudios/dzsim/sim/geo"
)

// Typed views over the map's key/value entities. Only the classes the
// simulation consumes get a struct; everything else stays in Map.Entities.

type FuncBrush struct {
	Model         string
	Origin        geo.Vec3
	Angles        geo.Vec3 // pitch, yaw, roll in degrees
	Solidity      int
	StartDisabled bool
}

// IsSolid follows the game's solidity field: 1 never solid, 2 always solid,
// 0 toggles with visibility (start_disabled).
func (fb FuncBrush) IsSolid() bool {
	if fb.Solidity == 1 {
		return false
	}
	if fb.Solidity == 2 {
		return true
	}
	return !fb.StartDisabled
}

// IsRotated reports a non-identity angle set.
func (fb FuncBrush) IsRotated() bool {
	return fb.Angles != (geo.Vec3{})
}

type TriggerPush struct {
	Model              string
	Origin             geo.Vec3
	Angles             geo.Vec3
	PushDir            geo.Vec3
	Speed              float32
	SpawnFlags         uint32
	StartDisabled      bool
	OnlyFallingPlayers bool
}

func (tp TriggerPush) CanPushPlayers() bool { return tp.SpawnFlags&(1<<0) != 0 }

type DynamicProp struct {
	Model  string
	Origin geo.Vec3
	Angles geo.Vec3
}

// FuncBrushEntities collects every func_brush entity.
func (m *Map) FuncBrushEntities() []FuncBrush {
	var out []FuncBrush
	for _, kv := range m.Entities {
		if kv["classname"] != "func_brush" {
			continue
		}
		fb := FuncBrush{
			Model:  kv["model"],
			Origin: parseVec3(kv["origin"]),
			Angles: parseAngles(kv["angles"]),
		}
		if s, ok := kv["solidity"]; ok {
			fb.Solidity = parseInt(s, 1)
		} else {
			fb.Solidity = 0
		}
		fb.StartDisabled = parseInt(kv["startdisabled"], 0) == 1
		out = append(out, fb)
	}
	return out
}

// TriggerPushEntities collects every trigger_push entity.
func (m *Map) TriggerPushEntities() []TriggerPush {
	var out []TriggerPush
	for _, kv := range m.Entities {
		if kv["classname"] != "trigger_push" {
			continue
		}
		tp := TriggerPush{
			Model:              kv["model"],
			Origin:             parseVec3(kv["origin"]),
			Angles:             parseAngles(kv["angles"]),
			PushDir:            parseVec3(kv["pushdir"]),
			Speed:              float32(parseFloat(kv["speed"], 0)),
			SpawnFlags:         uint32(parseInt(kv["spawnflags"], 0)),
			StartDisabled:      parseInt(kv["startdisabled"], 0) != 0,
			OnlyFallingPlayers: parseInt(kv["onlyfallingplayers"], 0) != 0,
		}
		out = append(out, tp)
	}
	return out
}

// DynamicPropEntities collects the prop_dynamic entities that can take part
// in collision: those with a model and without the start-with-collision-
// disabled spawn flag.
func (m *Map) DynamicPropEntities() []DynamicProp {
	var out []DynamicProp
	for _, kv := range m.Entities {
		class := kv["classname"]
		if class != "prop_dynamic" && class != "prop_dynamic_override" {
			continue
		}
		model := kv["model"]
		if model == "" || !strings.HasSuffix(model, ".mdl") {
			continue
		}
		if parseInt(kv["spawnflags"], 0)&256 != 0 {
			continue
		}
		out = append(out, DynamicProp{
			Model:  model,
			Origin: parseVec3(kv["origin"]),
			Angles: parseAngles(kv["angles"]),
		})
	}
	return out
}

// Entity values are space-separated floats; missing or malformed fields fall
// back to zero like the game does.
func parseVec3(s string) geo.Vec3 {
	fields := strings.Fields(s)
	var v geo.Vec3
	for i := 0; i < len(fields) && i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return geo.Vec3{}
		}
		v.SetComponent(i, float32(f))
	}
	return v
}

// parseAngles reads "pitch yaw roll" key values.
func parseAngles(s string) geo.Vec3 {
	return parseVec3(s)
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return fallback
	}
	return v
}
