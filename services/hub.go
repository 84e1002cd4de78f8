package services

import (
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tourguider/backend/utils"
)

// AdminChannel receives events meant for every signed-in admin
const AdminChannel = "admin"

// RealtimeMessage is what websocket clients receive
type RealtimeMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Conn is one websocket connection registered with the hub
type Conn struct {
	ws       *websocket.Conn
	key      string
	mu       sync.Mutex
	lastSeen time.Time
}

func (c *Conn) write(msg interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteJSON(msg)
}

// Touch records activity from the client
func (c *Conn) Touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

// Hub fans notifications out to websocket connections keyed by email or channel
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*Conn]struct{})}
}

func hubKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Add registers a connection under key
func (h *Hub) Add(key string, ws *websocket.Conn) *Conn {
	c := &Conn{ws: ws, key: hubKey(key), lastSeen: time.Now()}

	h.mu.Lock()
	if _, ok := h.conns[c.key]; !ok {
		h.conns[c.key] = make(map[*Conn]struct{})
	}
	h.conns[c.key][c] = struct{}{}
	total := len(h.conns[c.key])
	h.mu.Unlock()

	utils.LogDebug("WS connected: %s (total=%d)", c.key, total)
	return c
}

// Remove unregisters and closes a connection
func (h *Hub) Remove(c *Conn) {
	h.mu.Lock()
	if conns, ok := h.conns[c.key]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.conns, c.key)
		}
	}
	h.mu.Unlock()

	_ = c.ws.Close()
	utils.LogDebug("WS disconnected: %s", c.key)
}

// Count returns the number of connections registered under key
func (h *Hub) Count(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[hubKey(key)])
}

func (h *Hub) snapshot(key string) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Conn, 0, len(h.conns[key]))
	for c := range h.conns[key] {
		out = append(out, c)
	}
	return out
}

// Send delivers msg to every connection under key
func (h *Hub) Send(key string, msg RealtimeMessage) {
	for _, c := range h.snapshot(hubKey(key)) {
		if err := c.write(msg); err != nil {
			utils.LogWarn("failed WS send to %s: %v", c.key, err)
			h.Remove(c)
		}
	}
}

// Heartbeat pings connections every interval and drops the ones that went quiet
func (h *Hub) Heartbeat(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		h.mu.RLock()
		var all []*Conn
		for _, conns := range h.conns {
			for c := range conns {
				all = append(all, c)
			}
		}
		h.mu.RUnlock()

		for _, c := range all {
			c.mu.Lock()
			stale := time.Since(c.lastSeen) > 2*interval
			var err error
			if !stale {
				err = c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
			}
			c.mu.Unlock()
			if stale || err != nil {
				h.Remove(c)
			}
		}
	}
}
