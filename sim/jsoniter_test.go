// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SoftbearStudios/dzsim/sim/geo"
)

func TestVec3Encoding(t *testing.T) {
	buf, err := json.Marshal(geo.Vec3{X: 1.5, Y: -2, Z: 0.25})
	require.NoError(t, err)
	require.Equal(t, "[1.5,-2,0.25]", string(buf))

	var back geo.Vec3
	require.NoError(t, json.Unmarshal(buf, &back))
	require.Equal(t, geo.Vec3{X: 1.5, Y: -2, Z: 0.25}, back)
}

func TestMessageEnvelope(t *testing.T) {
	buf, err := marshalMessage("state", &StateMessage{
		Position: geo.Vec3{X: 10},
		Tick:     7,
	})
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(buf, &msg))
	require.Equal(t, "state", msg.Type)

	var state StateMessage
	require.NoError(t, json.Unmarshal(msg.Data, &state))
	require.Equal(t, geo.Vec3{X: 10}, state.Position)
	require.Equal(t, uint64(7), state.Tick)
}

func TestInputMessageDecoding(t *testing.T) {
	raw := []byte(`{"type":"input","data":{"commands":["+jump","-duck"],"pitch":-10,"yaw":90}}`)
	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))

	var in InputMessage
	require.NoError(t, json.Unmarshal(msg.Data, &in))
	require.Equal(t, []string{"+jump", "-duck"}, in.Commands)
	require.Equal(t, float32(-10), in.ViewPitch)
	require.Equal(t, float32(90), in.ViewYaw)

	for _, name := range in.Commands {
		if _, ok := commandNames[name]; !ok {
			t.Errorf("unmapped command %q", name)
		}
	}
}
