// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"reflect"
	"unsafe"

	jsoniter "github.com/json-iterator/go"

	"github.com/SoftbearStudios/dzsim/sim/geo"
)

// Make sure functions get run first
var json = func() jsoniter.API {
	neverEmpty := func(pointer unsafe.Pointer) bool { return false }

	// Vectors stream as compact [x, y, z] arrays.
	jsoniter.RegisterTypeEncoderFunc(reflect.TypeOf(geo.Vec3{}).String(), encodeVec3, neverEmpty)
	jsoniter.RegisterTypeDecoderFunc(reflect.TypeOf(geo.Vec3{}).String(), decodeVec3)

	return jsoniter.Config{
		MarshalFloatWith6Digits:       true,
		EscapeHTML:                    false,
		SortMapKeys:                   true,
		ObjectFieldMustBeSimpleString: true,
	}.Froze()
}()

func encodeVec3(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	vec := (*geo.Vec3)(ptr)
	stream.WriteArrayStart()
	stream.WriteFloat32Lossy(vec.X)
	stream.WriteMore()
	stream.WriteFloat32Lossy(vec.Y)
	stream.WriteMore()
	stream.WriteFloat32Lossy(vec.Z)
	stream.WriteArrayEnd()
}

func decodeVec3(ptr unsafe.Pointer, iter *jsoniter.Iterator) {
	vec := (*geo.Vec3)(ptr)
	i := 0
	iter.ReadArrayCB(func(iter *jsoniter.Iterator) bool {
		v := iter.ReadFloat32()
		if i < 3 {
			vec.SetComponent(i, v)
		}
		i++
		return true
	})
}

// Message is the wire envelope of the feed protocol.
type Message struct {
	Type string              `json:"type"`
	Data jsoniter.RawMessage `json:"data,omitempty"`
}

// SignedInbound couples an inbound message with its sender.
type SignedInbound struct {
	Client  *SocketClient
	Message Message
}

// InputMessage is the "input" inbound payload: edge-triggered command names
// plus the sampled view angles.
type InputMessage struct {
	Commands   []string `json:"commands"`
	ViewPitch  float32  `json:"pitch"`
	ViewYaw    float32  `json:"yaw"`
	WeaponSlot uint8    `json:"weaponSlot"`
}

// TeleportMessage is the "teleport" inbound payload, a debug relocation.
type TeleportMessage struct {
	Position geo.Vec3 `json:"position"`
}

// StateMessage is the "state" outbound payload drawn by overlay clients.
type StateMessage struct {
	Position    geo.Vec3          `json:"position"`
	Velocity    geo.Vec3          `json:"velocity"`
	Angles      geo.Vec3          `json:"angles"`
	OnGround    bool              `json:"onGround"`
	Crouched    bool              `json:"crouched"`
	HoriSpeed   float32           `json:"horiSpeed"`
	Stamina     float32           `json:"stamina"`
	Tick        uint64            `json:"tick"`
	Projectiles []StateProjectile `json:"projectiles,omitempty"`
}

type StateProjectile struct {
	Position geo.Vec3 `json:"position"`
	Angles   geo.Vec3 `json:"angles"`
	Armed    bool     `json:"armed"`
}

// marshalMessage wraps a payload in the envelope.
func marshalMessage(messageType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: messageType, Data: data})
}
