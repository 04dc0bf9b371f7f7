// Package report exposes machine status over HTTP and WebSocket so a
// frontend or test rig can watch position, queue depth, and arc
// progress while a program runs.
package report

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tinyg-go-migration/pkg/log"
	"tinyg-go-migration/pkg/metrics"
)

// Status is one point-in-time snapshot of the machine.
type Status struct {
	Position          [3]float64 `json:"position"`
	Plane             string     `json:"plane"`
	FeedRate          float64    `json:"feed_rate"`
	CycleRunning      bool       `json:"cycle_running"`
	ArcRunning        bool       `json:"arc_running"`
	SegmentsRemaining int        `json:"segments_remaining"`
	QueueDepth        int        `json:"queue_depth"`
	QueueCapacity     int        `json:"queue_capacity"`
	LinesExecuted     int64      `json:"lines_executed"`
}

// StatusSource produces snapshots for the server to publish.
type StatusSource interface {
	Snapshot() Status
}

// Server serves GET /status and pushes periodic status frames to
// /websocket subscribers.
type Server struct {
	source StatusSource
	log    *log.Logger

	httpServer *http.Server
	registry   *metrics.Registry
	upgrader   websocket.Upgrader

	clientMu sync.Mutex
	clients  map[*websocket.Conn]struct{}

	interval time.Duration
	done     chan struct{}
}

// NewServer creates a status server listening on addr, broadcasting to
// websocket clients every interval.
func NewServer(addr string, source StatusSource, interval time.Duration) *Server {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	s := &Server{
		source:   source,
		log:      log.GetLogger("report"),
		clients:  make(map[*websocket.Conn]struct{}),
		interval: interval,
		done:     make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	s.httpServer = &http.Server{Addr: addr}
	return s
}

// SetMetrics attaches a metrics registry, served at /metrics. Must be
// called before Start.
func (s *Server) SetMetrics(reg *metrics.Registry) {
	s.registry = reg
}

// Start begins serving. It returns once the listener is running; serve
// errors after that are logged.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/websocket", s.handleWebSocket)
	if s.registry != nil {
		mux.HandleFunc("/metrics", s.registry.Handler())
	}
	s.httpServer.Handler = mux

	go s.broadcastLoop()
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("status server: %v", err)
		}
	}()
	s.log.Info("status server listening on %s", s.httpServer.Addr)
}

// Stop shuts the server down and closes all websocket clients.
func (s *Server) Stop(ctx context.Context) error {
	close(s.done)

	s.clientMu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]struct{})
	s.clientMu.Unlock()

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.source.Snapshot()); err != nil {
		s.log.Error("encode status: %v", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade: %v", err)
		return
	}

	s.clientMu.Lock()
	s.clients[conn] = struct{}{}
	n := len(s.clients)
	s.clientMu.Unlock()
	s.log.Debug("websocket client connected (%d total)", n)

	// Reads are discarded; the socket is push-only. The read loop just
	// detects disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.removeClient(conn)
				return
			}
		}
	}()
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		conn.Close()
	}
}

func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		s.clientMu.Lock()
		if len(s.clients) == 0 {
			s.clientMu.Unlock()
			continue
		}
		status := s.source.Snapshot()
		for conn := range s.clients {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(status); err != nil {
				delete(s.clients, conn)
				conn.Close()
			}
		}
		s.clientMu.Unlock()
	}
}
