// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	c, err := loadConfig("")
	require.NoError(t, err)
	require.Equal(t, 8192, c.Port)
	require.Equal(t, float32(64), c.Tunables.TickRate)
	require.Equal(t, float32(800), c.Tunables.Gravity)
	require.True(t, c.interpolation())
}

func TestConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9000
timescale: 0.5
interpolation: false
tunables:
  tick_rate: 64
  gravity: 400
  stepsize: 18
`), 0644))

	c, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 9000, c.Port)
	require.Equal(t, float32(0.5), c.Timescale)
	require.False(t, c.interpolation())
	require.Equal(t, float32(400), c.Tunables.Gravity)
	// Untouched tunables keep their defaults.
	require.Equal(t, float32(5.2), c.Tunables.Friction)
}

func TestConfigRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timescale: -1\n"), 0644))
	_, err := loadConfig(path)
	require.Error(t, err)
}
