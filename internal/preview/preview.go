// Package preview mirrors rendered frames to browsers over a websocket and
// serves a JSON health summary. It is output only.
package preview

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait   = 200 * time.Millisecond
	clientQueue = 4
)

// RingInfo locates one ring inside the concatenated frame.
type RingInfo struct {
	ID       int `json:"id"`
	Elements int `json:"elements"`
	Start    int `json:"start"` // first element index in the frame
}

// Topology is sent once to every client on connect.
type Topology struct {
	Rings  []RingInfo `json:"rings"`
	Driver string     `json:"driver"`
	FPS    int        `json:"fps"`
}

type frame struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	RGB     []byte `json:"rgb"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

type Server struct {
	log    zerolog.Logger
	topo   Topology
	health func() map[string]any

	mu        sync.RWMutex
	clients   map[*client]bool
	frameID   uint64
	dropped   uint64
	startTime time.Time
	up        websocket.Upgrader
}

// New returns a preview server. health, if set, contributes extra fields
// to /health.
func New(topo Topology, health func() map[string]any, log zerolog.Logger) *Server {
	return &Server{
		log:       log,
		topo:      topo,
		health:    health,
		clients:   map[*client]bool{},
		startTime: time.Now(),
		up:        websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Handler routes /ws and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return withCORS(mux)
}

// Publish queues rgb for every client. Slow clients drop frames rather
// than stall the caller.
func (s *Server) Publish(frameID uint64, rgb []byte) {
	b, err := json.Marshal(frame{T: time.Now().UnixNano(), FrameID: frameID, RGB: rgb})
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameID = frameID
	for c := range s.clients {
		select {
		case c.send <- b:
		default:
			s.dropped++
		}
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		c.close()
	}
}

func (s *Server) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("upgrade")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientQueue)}

	// topology goes out before the client can receive frames
	top, _ := json.Marshal(s.topo)
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, top); err != nil {
		conn.Close()
		return
	}

	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
	s.log.Debug().Str("remote", r.RemoteAddr).Msg("preview client connected")

	go s.writePump(c)
	go func() {
		defer s.drop(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) writePump(c *client) {
	defer c.conn.Close()
	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			s.log.Debug().Err(err).Msg("write frame")
			s.drop(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{}
	if s.health != nil {
		for k, v := range s.health() {
			resp[k] = v
		}
	}
	s.mu.RLock()
	resp["frame_id"] = s.frameID
	resp["uptime_s"] = time.Since(s.startTime).Seconds()
	resp["clients"] = len(s.clients)
	resp["dropped_frames"] = s.dropped
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
