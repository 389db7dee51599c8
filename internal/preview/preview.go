// Package preview mirrors the pad grid to browsers over a websocket.
package preview

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/backlight/internal/layout"
	"github.com/coreman2200/backlight/internal/led"
	"github.com/coreman2200/backlight/internal/loop"
)

type frameMsg struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	Size    int    `json:"size"`
	// RGB holds Size*Size*3 bytes, row-major from the top-left pad.
	RGB []byte `json:"rgb"`
}

// Server is a led.Sink that keeps the last grid and pushes it to every
// connected client. It only reads; clients cannot change anything.
type Server struct {
	// writeMu serialises websocket writes; mu guards the fields below it.
	writeMu sync.Mutex

	mu        sync.RWMutex
	rgb       []byte
	frameID   uint64
	startTime time.Time
	clients   map[*websocket.Conn]bool
	stats     func() loop.Stats

	upgrader websocket.Upgrader
}

func New() *Server {
	return &Server{
		rgb:       make([]byte, layout.Size*layout.Size*3),
		startTime: time.Now(),
		clients:   map[*websocket.Conn]bool{},
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// SetStats wires the loop counters into the health report.
func (s *Server) SetStats(fn func() loop.Stats) {
	s.mu.Lock()
	s.stats = fn
	s.mu.Unlock()
}

// Handler routes /ws and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return mux
}

func (s *Server) SetAll(c led.RGB) error {
	s.mu.Lock()
	for i := 0; i < len(s.rgb); i += 3 {
		s.rgb[i], s.rgb[i+1], s.rgb[i+2] = c.R, c.G, c.B
	}
	s.mu.Unlock()
	s.broadcast()
	return nil
}

func (s *Server) SetMany(cells []led.Cell) error {
	s.mu.Lock()
	for _, c := range cells {
		if !c.Pos.Valid() {
			continue
		}
		i := (c.Pos.Row*layout.Size + c.Pos.Col) * 3
		s.rgb[i], s.rgb[i+1], s.rgb[i+2] = c.Color.R, c.Color.G, c.Color.B
	}
	s.mu.Unlock()
	s.broadcast()
	return nil
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		_ = c.Close()
		delete(s.clients, c)
	}
	return nil
}

func (s *Server) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("preview upgrade")
		return
	}
	s.writeMu.Lock()
	s.mu.Lock()
	s.clients[conn] = true
	b := s.encodeLocked()
	s.mu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, b)
	s.writeMu.Unlock()

	go func() {
		defer s.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := map[string]any{
		"frame_id": s.frameID,
		"uptime_s": time.Since(s.startTime).Seconds(),
		"clients":  len(s.clients),
	}
	stats := s.stats
	s.mu.RUnlock()
	if stats != nil {
		st := stats()
		resp["frames"] = st.Frames
		resp["not_ready"] = st.NotReady
		resp["last_step_ms"] = float64(st.LastStep.Microseconds()) / 1000.0
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// broadcast writes the current grid to every client without holding mu, and
// drops clients whose write fails.
func (s *Server) broadcast() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.frameID++
	b := s.encodeLocked()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("dropping preview client")
			s.drop(c)
		}
	}
}

func (s *Server) drop(c *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.Close()
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) encodeLocked() []byte {
	b, _ := json.Marshal(frameMsg{
		T:       time.Now().UnixNano(),
		FrameID: s.frameID,
		Size:    layout.Size,
		RGB:     s.rgb,
	})
	return b
}
