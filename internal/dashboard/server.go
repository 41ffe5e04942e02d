// Package dashboard provides a local HTTP and WebSocket observer for the
// daemon.
//
// Connected WebSocket clients receive a "photos" message every time the shared
// photo list changes, and a "sync" message with the cache summary. The HTTP
// side serves the same data as JSON plus Prometheus metrics:
//
//	GET /ws           WebSocket stream
//	GET /api/photos   current photo list
//	GET /api/sync     sync cache summary
//	GET /metrics      Prometheus exposition
//	GET /health       liveness and client count
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lensapp/lens/internal/schema"
	"github.com/lensapp/lens/internal/state"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypePhotos carries the current photo list
	MessageTypePhotos MessageType = "photos"

	// MessageTypeSync carries the sync cache summary
	MessageTypeSync MessageType = "sync"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// PhotosData is the payload of a photos message.
type PhotosData struct {
	Version  uint64   `json:"version"`
	Count    int      `json:"count"`
	Photos   []string `json:"photos"`
	Selected string   `json:"selected,omitempty"`
}

// CacheSource exposes the discovery cache. *service.LensSync implements it.
type CacheSource interface {
	Cache() *schema.SyncCache
}

// Config holds server configuration
type Config struct {
	// Addr to listen on, e.g. "127.0.0.1:7490". Port 0 picks a free port.
	Addr string

	// State is the photo list served by /api/photos and the welcome message
	State *state.Store

	// Cache is optional; /api/sync returns 404 without it
	Cache CacheSource

	// Gatherer backs /metrics (default: prometheus.DefaultGatherer)
	Gatherer prometheus.Gatherer

	// Logger for server activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Addr:     "127.0.0.1:7490",
		Gatherer: prometheus.DefaultGatherer,
		Logger:   log.New(os.Stderr, "[dashboard] ", log.LstdFlags),
	}
}

// Server manages WebSocket connections and broadcasts dashboard messages
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	config   *Config

	// WebSocket client management
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	// Message broadcasting
	broadcast chan Message

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// NewServer creates a new dashboard server
func NewServer(config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.State == nil {
		return nil, fmt.Errorf("state cannot be nil")
	}
	if config.Addr == "" {
		config.Addr = DefaultConfig().Addr
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      config.Addr,
		config:    config,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}, nil
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/ws", s.handleWebSocket)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}).ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/photos", s.handlePhotos)
		r.Get("/sync", s.handleSync)
	})
	return r
}

// Start begins the HTTP server and WebSocket handler
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:     s.Routes(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()

	s.logger.Println("Dashboard server stopped")
	return nil
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// Watch broadcasts a photos message for every state change, plus a sync
// summary when a cache source is configured, until ctx is cancelled.
func (s *Server) Watch(ctx context.Context) {
	updates, cancel := s.config.State.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if msg, err := photosMessage(snap); err == nil {
				s.Broadcast(msg)
			}
			if s.config.Cache != nil {
				if msg, err := newMessage(MessageTypeSync, s.config.Cache.Cache().Summary()); err == nil {
					s.Broadcast(msg)
				}
			}
		}
	}
}

func newMessage(typ MessageType, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s data: %w", typ, err)
	}
	return Message{Type: typ, Timestamp: time.Now(), Data: raw}, nil
}

func photosMessage(snap state.Snapshot) (Message, error) {
	return newMessage(MessageTypePhotos, photosData(snap))
}

func photosData(snap state.Snapshot) PhotosData {
	photos := snap.Photos
	if photos == nil {
		photos = []string{}
	}
	return PhotosData{
		Version:  snap.Version,
		Count:    len(photos),
		Photos:   photos,
		Selected: snap.Selected,
	}
}

// broadcastLoop handles message broadcasting to all clients
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	// Send the current list before registering, so the welcome message is
	// always the first frame the client sees.
	if msg, err := photosMessage(s.config.State.Snapshot()); err == nil {
		data, _ := json.Marshal(msg)
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		err = conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			_ = conn.Close(websocket.StatusInternalError, "welcome failed")
			return
		}
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client connected (total: %d)", clientCount)

	go s.readLoop(conn)
}

// readLoop keeps the WebSocket connection alive and handles client disconnects
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

// removeClient safely removes a client connection
func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handlePhotos(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, photosData(s.config.State.Snapshot()))
}

func (s *Server) handleSync(w http.ResponseWriter, _ *http.Request) {
	if s.config.Cache == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "sync is not running"})
		return
	}
	writeJSON(w, http.StatusOK, s.config.Cache.Cache().Summary())
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
