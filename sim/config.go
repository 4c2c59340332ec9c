// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SoftbearStudios/dzsim/sim/move"
)

// Config is the simulator configuration file. Everything has a usable
// default; the tunables block overrides individual movement constants.
type Config struct {
	Port          int     `yaml:"port"`
	MapPath       string  `yaml:"map_path"`
	Timescale     float32 `yaml:"timescale"`
	Interpolation *bool   `yaml:"interpolation"`
	PerfLogPath   string  `yaml:"perf_log_path"`

	Demo struct {
		Seed      int64   `yaml:"seed"`
		Power     uint32  `yaml:"power"`
		Size      float32 `yaml:"size"`
		Amplitude float32 `yaml:"amplitude"`
	} `yaml:"demo"`

	Tunables move.Tunables `yaml:"tunables"`
}

func defaultConfig() Config {
	c := Config{
		Port:      8192,
		Timescale: 1,
		Tunables:  move.DefaultTunables(),
	}
	c.Demo.Seed = 1
	c.Demo.Power = 4
	c.Demo.Size = 2048
	c.Demo.Amplitude = 192
	return c
}

// loadConfig reads a YAML config over the defaults; an empty path returns
// the defaults.
func loadConfig(path string) (Config, error) {
	c := defaultConfig()
	if path == "" {
		return c, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(buf, &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	if c.Timescale <= 0 {
		return c, fmt.Errorf("invalid timescale %v", c.Timescale)
	}
	if c.Tunables.TickRate <= 0 {
		return c, fmt.Errorf("invalid tick rate %v", c.Tunables.TickRate)
	}
	return c, nil
}

func (c *Config) interpolation() bool {
	return c.Interpolation == nil || *c.Interpolation
}
