// Package web provides an HTTP status server for a thermo-loop node.
package web

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sweeney/thermo-loop/internal/status"
)

const (
	// DefaultWSInterval is how often /ws pushes a snapshot.
	DefaultWSInterval = time.Second
	// DefaultWSPing is how often /ws pings an idle client.
	DefaultWSPing = 30 * time.Second
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	wsInterval time.Duration
	wsPing     time.Duration
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{
		tracker:    tracker,
		wsInterval: DefaultWSInterval,
		wsPing:     DefaultWSPing,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleWS streams status snapshots until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("web: websocket accept: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "unexpected close")

	ctx := c.CloseRead(r.Context())

	ticker := time.NewTicker(s.wsInterval)
	defer ticker.Stop()
	ping := time.NewTicker(s.wsPing)
	defer ping.Stop()

	// First frame goes out immediately so clients do not wait a full interval.
	if err := wsjson.Write(ctx, c, status.Status(s.tracker.Snapshot())); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
			if err := wsjson.Write(ctx, c, status.Status(s.tracker.Snapshot())); err != nil {
				log.Printf("web: websocket write: %v", err)
				return
			}
		case <-ping.C:
			if err := c.Ping(ctx); err != nil {
				log.Printf("web: websocket ping: %v", err)
				return
			}
		}
	}
}
