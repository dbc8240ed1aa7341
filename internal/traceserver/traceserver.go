// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

// Package traceserver is the harness-external implementation of the
// scroll_save/screen_changed callback names spec §6 leaves abstract:
// an HTTP endpoint serving a session's latest 3270 snapshot (via the
// inbound encoder's Snapshot, spec §4.4) and a websocket stream of
// screen-changed/scrollback events, keyed by the google/uuid session
// ID the controller carries. Grounded on the vibetunnel forks' mux
// routing and websocket ping/writer-goroutine pattern
// (amantus-ai-vibetunnel/linux/pkg/api/raw_websocket.go), simplified
// to the one-way event fan-out this spec needs.
package traceserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is one screen-changed or scrollback notification relayed to
// websocket subscribers.
type Event struct {
	Type      string `json:"type"` // "screen_changed" or "scroll_save"
	SessionID string `json:"sessionId"`
	Rows      []string `json:"rows,omitempty"`
	Cols      int      `json:"cols,omitempty"`
}

// SnapshotFunc returns the current outbound byte snapshot for a
// session (typically ctlr.Encoder.Snapshot, spec §4.4), or nil if the
// session is unknown.
type SnapshotFunc func(sessionID string) []byte

// Server hosts the trace/scrollback viewer for every active session.
type Server struct {
	snapshot SnapshotFunc

	mu   sync.Mutex
	subs map[string]map[*subscriber]bool
}

type subscriber struct {
	send chan Event
}

// New creates a Server. snapshotFn supplies the latest snapshot bytes
// for the GET /sessions/{id}/snapshot endpoint.
func New(snapshotFn SnapshotFunc) *Server {
	return &Server{
		snapshot: snapshotFn,
		subs:     make(map[string]map[*subscriber]bool),
	}
}

// Router builds the gorilla/mux router serving this Server's routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/sessions/{id}/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/events", s.handleEvents)
	return r
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	data := s.snapshot(id)
	if data == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := &subscriber{send: make(chan Event, 64)}
	s.addSub(id, sub)
	defer s.removeSub(id, sub)

	done := make(chan struct{})
	go s.readLoop(conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readLoop drains and discards client frames so the websocket's
// control-frame handling (close, pong) keeps working; this is a
// one-way event feed, not a command channel.
func (s *Server) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) addSub(sessionID string, sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[sessionID] == nil {
		s.subs[sessionID] = make(map[*subscriber]bool)
	}
	s.subs[sessionID][sub] = true
}

func (s *Server) removeSub(sessionID string, sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs[sessionID], sub)
	close(sub.send)
}

// ScreenChanged publishes a screen_changed event to every subscriber
// of sessionID (the concrete sink for the abstract screen_changed
// callback name in spec §6).
func (s *Server) ScreenChanged(sessionID string) {
	s.publish(sessionID, Event{Type: "screen_changed", SessionID: sessionID})
}

// ScrollSave publishes a scrollback event carrying the rows that
// scrolled off the top of the screen (the concrete sink for
// scroll_save, spec §6).
func (s *Server) ScrollSave(sessionID string, rows []string, cols int) {
	s.publish(sessionID, Event{Type: "scroll_save", SessionID: sessionID, Rows: rows, Cols: cols})
}

func (s *Server) publish(sessionID string, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs[sessionID] {
		select {
		case sub.send <- ev:
		default:
		}
	}
}
