// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SoftbearStudios/dzsim/sim/bsp"
	"github.com/SoftbearStudios/dzsim/sim/coll"
	"github.com/SoftbearStudios/dzsim/sim/game"
	"github.com/SoftbearStudios/dzsim/sim/geo"
	"github.com/SoftbearStudios/dzsim/sim/render"
	"github.com/SoftbearStudios/dzsim/sim/testworld"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (h *Hub) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	buf, ok := h.statusJSON.Load().([]byte)
	if ok {
		_, _ = w.Write(buf)
	}
}

func (h *Hub) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade error", err)
		return
	}
	client := NewSocketClient(h, conn)
	h.register <- client
	go client.writePump()
	go client.readPump()
}

// loadMap reads a parsed-map JSON dump; the lump-level map decoding itself
// lives in an external tool.
func loadMap(path string) (*bsp.Map, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m bsp.Map
	if err := json.Unmarshal(buf, &m); err != nil {
		return nil, fmt.Errorf("parse map %q: %w", path, err)
	}
	m.FileOrigin = bsp.FileOrigin{AbsFilePath: path}
	return &m, nil
}

func main() {
	var (
		configPath string
		port       int
		mapPath    string
		demo       bool
	)
	flag.StringVar(&configPath, "config", "", "path to YAML config")
	flag.IntVar(&port, "port", 0, "http service port (overrides config)")
	flag.StringVar(&mapPath, "map", "", "parsed map JSON (overrides config)")
	flag.BoolVar(&demo, "demo", false, "run on generated perlin terrain")
	flag.Parse()

	config, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if port != 0 {
		config.Port = port
	}
	if mapPath != "" {
		config.MapPath = mapPath
	}

	var parsedMap *bsp.Map
	switch {
	case config.MapPath != "":
		parsedMap, err = loadMap(config.MapPath)
		if err != nil {
			log.Fatal(err)
		}
	case demo:
		parsedMap = testworld.PerlinTerrain(config.Demo.Seed, config.Demo.Power,
			config.Demo.Size, config.Demo.Amplitude)
	default:
		log.Fatal("no map: pass -map or -demo")
	}

	world, errs := coll.NewWorld(parsedMap, coll.NewPackedAssets(parsedMap))
	for _, err := range errs {
		log.Println("world:", err)
	}
	for _, skipped := range world.SkippedMultiSolid {
		log.Println("skipped multi-solid collision model:", skipped)
	}
	log.Printf("collidable world ready: %d primitives", world.PrimitiveCount())

	renderable := render.Extract(parsedMap, world)
	for _, err := range renderable.Errors {
		log.Println("render:", err)
	}

	g := game.NewGame()
	g.SetWorld(world)
	g.SetInterpolation(config.interpolation())

	initial := game.NewWorldState(&config.Tunables)
	initial.Player.Position = geo.Vec3{Z: 128}
	initial.Move.Origin = initial.Player.Position
	g.Start(1/config.Tunables.TickRate, config.Timescale, initial, time.Now())

	hub := newHub(g, &config.Tunables, config.PerfLogPath)
	go hub.run()

	http.HandleFunc("/", hub.serveIndex)
	http.HandleFunc("/ws", hub.serveWs)
	log.Printf("simulation feed on :%d", config.Port)
	log.Fatal("ListenAndServe: ", http.ListenAndServe(fmt.Sprint(":", config.Port), nil))
}
