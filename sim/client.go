// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// SocketClient is one connected renderer/overlay feed consumer. It forwards
// its decoded inbound messages to the hub and writes outbound frames from
// its send channel.
type SocketClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewSocketClient(hub *Hub, conn *websocket.Conn) *SocketClient {
	return &SocketClient{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 16),
	}
}

// readPump decodes inbound messages until the connection dies.
func (c *SocketClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, buf, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Println("read error:", err)
			}
			return
		}
		var message Message
		if err := json.Unmarshal(buf, &message); err != nil {
			log.Println("invalid message:", err)
			continue
		}
		c.hub.inbound <- SignedInbound{Client: c, Message: message}
	}
}

// writePump flushes the send channel and keeps the connection alive.
func (c *SocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case buf, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, buf); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send enqueues an outbound frame, dropping it if the client is backed up.
func (c *SocketClient) Send(buf []byte) {
	select {
	case c.send <- buf:
	default:
	}
}
