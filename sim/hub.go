// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/SoftbearStudios/dzsim/sim/game"
	"github.com/SoftbearStudios/dzsim/sim/geo"
	"github.com/SoftbearStudios/dzsim/sim/move"
)

const (
	updatePeriod = time.Second / 64
	debugPeriod  = time.Second * 5
)

// Hub owns the game simulation and the set of connected feed clients. All
// simulation work happens on the hub goroutine; clients only exchange
// channel messages with it.
type Hub struct {
	game     *game.Game
	tunables *move.Tunables

	clients map[*SocketClient]struct{}

	// Things served atomically by HTTP.
	statusJSON atomic.Value

	// Inbound channels
	inbound    chan SignedInbound
	register   chan *SocketClient
	unregister chan *SocketClient

	// Timer based events
	updateTicker *time.Ticker
	debugTicker  *time.Ticker

	// Per-tick cost accounting, written to the perf log on debug ticks.
	perfLogPath  string
	tickDuration time.Duration
	tickCount    int

	lastDrawn game.WorldState
}

func newHub(g *game.Game, tunables *move.Tunables, perfLogPath string) *Hub {
	return &Hub{
		game:         g,
		tunables:     tunables,
		clients:      make(map[*SocketClient]struct{}),
		inbound:      make(chan SignedInbound, 64),
		register:     make(chan *SocketClient, 8),
		unregister:   make(chan *SocketClient, 8),
		updateTicker: time.NewTicker(updatePeriod),
		debugTicker:  time.NewTicker(debugPeriod),
		perfLogPath:  perfLogPath,
	}
}

// commandNames maps wire command strings onto simulation commands.
var commandNames = map[string]game.Command{
	"+forward":   game.PlusForward,
	"-forward":   game.MinusForward,
	"+back":      game.PlusBack,
	"-back":      game.MinusBack,
	"+moveleft":  game.PlusMoveLeft,
	"-moveleft":  game.MinusMoveLeft,
	"+moveright": game.PlusMoveRight,
	"-moveright": game.MinusMoveRight,
	"+use":       game.PlusUse,
	"-use":       game.MinusUse,
	"+jump":      game.PlusJump,
	"-jump":      game.MinusJump,
	"+duck":      game.PlusDuck,
	"-duck":      game.MinusDuck,
	"+speed":     game.PlusSpeed,
	"-speed":     game.MinusSpeed,
	"+attack":    game.PlusAttack,
	"-attack":    game.MinusAttack,
	"+attack2":   game.PlusAttack2,
	"-attack2":   game.MinusAttack2,
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			log.Printf("client connected (%d total)", len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case signed := <-h.inbound:
			h.handleInbound(signed)
		case <-h.updateTicker.C:
			h.update()
		case <-h.debugTicker.C:
			h.debug()
		}
	}
}

func (h *Hub) handleInbound(signed SignedInbound) {
	switch signed.Message.Type {
	case "input":
		var in InputMessage
		if err := json.Unmarshal(signed.Message.Data, &in); err != nil {
			log.Println("bad input message:", err)
			return
		}
		sample := game.InputSample{
			Time:       time.Now(),
			WeaponSlot: in.WeaponSlot,
			ViewPitch:  in.ViewPitch,
			ViewYaw:    in.ViewYaw,
		}
		for _, name := range in.Commands {
			cmd, ok := commandNames[name]
			if !ok {
				log.Printf("unknown command %q", name)
				continue
			}
			sample.Commands = append(sample.Commands, cmd)
		}
		h.processInput(sample)
	case "teleport":
		var in TeleportMessage
		if err := json.Unmarshal(signed.Message.Data, &in); err != nil {
			log.Println("bad teleport message:", err)
			return
		}
		h.teleport(in.Position)
	default:
		log.Printf("unknown message type %q", signed.Message.Type)
	}
}

// update advances the simulation to the present even without fresh input and
// broadcasts the drawn state.
func (h *Hub) update() {
	h.processInput(game.InputSample{Time: time.Now()})
	h.broadcast()
}

func (h *Hub) processInput(sample game.InputSample) {
	start := time.Now()
	h.lastDrawn = h.game.ProcessInput(sample)
	h.tickDuration += time.Since(start)
	h.tickCount++
}

func (h *Hub) broadcast() {
	tick, _ := h.game.FinalizedState()
	state := &h.lastDrawn

	msg := StateMessage{
		Position:  state.Player.Position,
		Velocity:  state.Player.Velocity,
		Angles:    state.Player.Angles,
		OnGround:  state.Move.GroundEntity,
		Crouched:  state.Player.Crouched,
		HoriSpeed: state.HorizontalSpeed(),
		Stamina:   state.Move.Stamina,
		Tick:      tick,
	}
	for i := range state.Projectiles {
		p := &state.Projectiles[i]
		msg.Projectiles = append(msg.Projectiles, StateProjectile{
			Position: p.Position,
			Angles:   p.Angles,
			Armed:    p.ArmProgress >= 1,
		})
	}

	buf, err := marshalMessage("state", &msg)
	if err != nil {
		log.Println("marshal state:", err)
		return
	}
	for client := range h.clients {
		client.Send(buf)
	}
}

// teleport relocates the player, a debug affordance for overlay alignment.
func (h *Hub) teleport(position geo.Vec3) {
	_, state := h.game.FinalizedState()
	state.Player.Position = position
	state.Player.Velocity = geo.Vec3{}
	state.Move.Origin = position
	state.Move.Velocity = geo.Vec3{}
	h.game.Start(1/h.tunables.TickRate, 1, state, time.Now())
}

func (h *Hub) debug() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	var avgTick time.Duration
	if h.tickCount > 0 {
		avgTick = h.tickDuration / time.Duration(h.tickCount)
	}
	tick, state := h.game.FinalizedState()

	log.Printf("clients: %d, tick: %d, avg tick cost: %v, memstats: %dM/%dM",
		len(h.clients), tick, avgTick, stats.HeapInuse/1e6, stats.NextGC/1e6)

	status, err := json.Marshal(map[string]interface{}{
		"clients":  len(h.clients),
		"tick":     tick,
		"position": state.Player.Position,
	})
	if err == nil {
		h.statusJSON.Store(status)
	}

	if h.perfLogPath != "" && h.tickCount > 0 {
		err := AppendLog(h.perfLogPath, []interface{}{
			time.Now().UnixMilli(),
			len(h.clients),
			tick,
			float64(avgTick) / float64(time.Millisecond),
		})
		if err != nil {
			log.Println("perf log:", err)
		}
	}
	h.tickDuration = 0
	h.tickCount = 0
}
