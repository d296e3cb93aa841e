package feed

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// a subscriber that cannot drain an event within this window is dropped
const writeDeadline = 2 * time.Second

// Hub fans scrape-run events out to every connected subscriber as one
// JSON document per event: a newline-terminated line over TCP, a text
// frame over WebSocket.
type Hub struct {
	mu  sync.Mutex
	tcp map[net.Conn]struct{}
	ws  map[*websocket.Conn]struct{}
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

// welcome is the first line a TCP subscriber receives.
type welcome struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Clients int    `json:"clients"`
}

func NewHub() *Hub {
	return &Hub{
		tcp: make(map[net.Conn]struct{}),
		ws:  make(map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.tcp[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.tcp, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn) {
	h.mu.Lock()
	h.ws[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.ws, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Broadcast marshals the event once and writes it to every subscriber.
// Subscribers that cannot be written to are dropped.
func (h *Hub) Broadcast(ev RunEvent) {
	line, err := json.Marshal(ev)
	if err != nil {
		return
	}
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.tcp {
		_ = c.SetWriteDeadline(time.Now().Add(writeDeadline))
		if _, err := c.Write(line); err != nil {
			_ = c.Close()
			delete(h.tcp, c)
		}
	}

	for ws := range h.ws {
		if err := ws.WriteMessage(websocket.TextMessage, line); err != nil {
			_ = ws.Close()
			delete(h.ws, ws)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tcp)
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.tcp),
		WSClients:  len(h.ws),
	}
}

// Welcome greets a newly connected TCP subscriber.
func (h *Hub) Welcome(conn net.Conn) {
	b, err := json.Marshal(welcome{Type: "welcome", Message: "connected", Clients: h.Count()})
	if err != nil {
		return
	}
	_, _ = conn.Write(append(b, '\n'))
}
