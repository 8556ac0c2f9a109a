// Package dashboard serves a live mimic over HTTP. The drawing is pushed to
// browsers over a websocket after every telemetry update.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/chosenoffset/mimic/pkg/mimic"
	"github.com/chosenoffset/mimic/pkg/mimic/metrics"
	"github.com/chosenoffset/mimic/pkg/mimic/svgdom"
)

const (
	maxUpdateBody = 4 << 20
	pingInterval  = 30 * time.Second
	readTimeout   = 60 * time.Second
	writeTimeout  = 10 * time.Second
)

// Mimic is the part of *mimic.Controller the dashboard uses.
type Mimic interface {
	Update(batch mimic.Batch) error
	Render() ([]byte, error)
	Bindings() []string
	Status() mimic.Status
}

type Server struct {
	addr       string
	title      string
	mimic      Mimic
	collector  *metrics.Collector
	logger     *slog.Logger
	server     *http.Server
	upgrader   websocket.Upgrader
	maxClients int

	clients      map[*client]struct{}
	clientsMutex sync.RWMutex

	updates  chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// client serialises writes; gorilla connections allow one concurrent writer.
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// Message is what the dashboard pushes to websocket clients.
type Message struct {
	Type   string       `json:"type"`
	Cycle  string       `json:"cycle,omitempty"`
	SVG    string       `json:"svg,omitempty"`
	Status mimic.Status `json:"status"`
}

type Option func(*Server)

func WithCollector(c *metrics.Collector) Option {
	return func(s *Server) { s.collector = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithMaxClients(n int) Option {
	return func(s *Server) { s.maxClients = n }
}

func WithTitle(title string) Option {
	return func(s *Server) { s.title = title }
}

func NewServer(addr string, m Mimic, opts ...Option) *Server {
	s := &Server{
		addr:  addr,
		title: "Mimic",
		mimic: m,
		upgrader: websocket.Upgrader{
			CheckOrigin:     sameOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		maxClients: 100,
		clients:    make(map[*client]struct{}),
		updates:    make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "dashboard")
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Allow requests without an Origin header and same-host origins. Loopback
// origins are only accepted by a dashboard that is itself reached on
// loopback.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	for _, scheme := range []string{"http://", "https://"} {
		if rest, ok := strings.CutPrefix(origin, scheme); ok {
			if h, _, err := net.SplitHostPort(rest); err == nil {
				rest = h
			}
			rest = strings.Trim(rest, "[]")
			return rest == host || isLoopback(host) && isLoopback(rest)
		}
	}
	return false
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Handler returns the dashboard routes. It does not start the broadcaster;
// Start does.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	s.route(r, "/", "index", s.handleIndex).Methods(http.MethodGet)
	s.route(r, "/mimic.svg", "svg", s.handleSVG).Methods(http.MethodGet)
	s.route(r, "/api/bindings", "bindings", s.handleBindings).Methods(http.MethodGet)
	s.route(r, "/api/status", "status", s.handleStatus).Methods(http.MethodGet)
	s.route(r, "/api/update", "update", s.handleUpdate).Methods(http.MethodPost)
	s.route(r, "/ws", "ws", s.handleWebSocket)
	if s.collector != nil {
		r.Handle("/metrics", s.collector.Handler())
	}
	return r
}

func (s *Server) route(r *mux.Router, path, name string, h http.HandlerFunc) *mux.Route {
	var handler http.Handler = h
	if s.collector != nil {
		handler = s.collector.Middleware(name, handler)
	}
	return r.Handle(path, handler)
}

// Run starts the broadcaster. It returns when Stop is called.
func (s *Server) Run() {
	for {
		select {
		case <-s.updates:
			s.push()
		case <-s.stop:
			return
		}
	}
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Stop is called. It returns nil at once when Stop
// came first.
func (s *Server) Serve(ln net.Listener) error {
	go s.Run()

	s.logger.Info("Starting mimic dashboard", "addr", ln.Addr().String())
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Update forwards batch to the mimic and schedules a push to clients. Pushes
// are coalesced: clients always get the latest drawing, not every frame.
func (s *Server) Update(batch mimic.Batch) error {
	err := s.mimic.Update(batch)
	s.notify()
	return err
}

func (s *Server) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
		// a push is already pending
	}
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	return len(s.clients)
}

func (s *Server) frame() (Message, error) {
	svg, err := s.mimic.Render()
	if err != nil {
		return Message{}, err
	}
	status := s.mimic.Status()
	return Message{Type: "mimic", Cycle: status.LastCycle, SVG: string(svg), Status: status}, nil
}

func (s *Server) push() {
	s.clientsMutex.RLock()
	if len(s.clients) == 0 {
		s.clientsMutex.RUnlock()
		return
	}
	s.clientsMutex.RUnlock()

	msg, err := s.frame()
	if err != nil {
		s.logger.Warn("Cannot render mimic", "error", err)
		return
	}
	s.broadcastMessage(msg)
}

func (s *Server) broadcastMessage(message any) {
	s.clientsMutex.RLock()
	// Copy client connections to avoid holding lock during I/O
	clientsCopy := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clientsCopy = append(clientsCopy, c)
	}
	s.clientsMutex.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		s.logger.Error("Error marshaling message", "error", err)
		return
	}

	for _, c := range clientsCopy {
		if err := c.write(websocket.TextMessage, data); err != nil {
			s.logger.Debug("Dropping websocket client", "client", c.id, "error", err)
			// the read loop notices the closed connection and removes it
			_ = c.conn.Close()
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	svg, err := s.mimic.Render()
	if err != nil {
		http.Error(w, "Mimic not loaded", http.StatusServiceUnavailable)
		return
	}
	page, err := svgdom.Page(s.title, svg, liveScript)
	if err != nil {
		s.logger.Error("Cannot build host page", "error", err)
		http.Error(w, "Cannot build page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xhtml+xml; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	svg, err := s.mimic.Render()
	if err != nil {
		http.Error(w, "Mimic not loaded", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(svg)
}

func (s *Server) handleBindings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"data":   s.mimic.Bindings(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"data":    s.mimic.Status(),
		"clients": s.Clients(),
	})
}

// UpdateResponse reports the outcome of POST /api/update. Rule failures are
// isolated, so a batch can be applied and still carry errors.
type UpdateResponse struct {
	Status string   `json:"status"`
	Cycle  string   `json:"cycle,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpdateBody)

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var batch mimic.Batch
	if err := dec.Decode(&batch); err != nil {
		http.Error(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}
	if len(batch) == 0 {
		http.Error(w, "Batch is empty", http.StatusBadRequest)
		return
	}

	resp := UpdateResponse{Status: "ok"}
	if err := s.Update(batch); err != nil {
		resp.Status = "partial"
		for _, e := range splitJoined(err) {
			resp.Errors = append(resp.Errors, e.Error())
		}
	}
	resp.Cycle = s.mimic.Status().LastCycle
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Check client limit before upgrading
	if s.Clients() >= s.maxClients {
		http.Error(w, "Maximum clients reached", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	c := &client{id: uuid.NewString(), conn: conn}
	s.clientsMutex.Lock()
	s.clients[c] = struct{}{}
	s.clientsMutex.Unlock()
	if s.collector != nil {
		s.collector.ClientConnected()
	}
	s.logger.Debug("WebSocket client connected", "client", c.id)

	defer func() {
		s.clientsMutex.Lock()
		delete(s.clients, c)
		s.clientsMutex.Unlock()
		if s.collector != nil {
			s.collector.ClientDisconnected()
		}
		s.logger.Debug("WebSocket client disconnected", "client", c.id)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	// A reader is required to notice disconnections.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					s.logger.Warn("WebSocket read error", "client", c.id, "error", err)
				}
				return
			}
		}
	}()

	// New clients get the current drawing straight away.
	if msg, err := s.frame(); err == nil {
		data, _ := json.Marshal(msg)
		if err := c.write(websocket.TextMessage, data); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readDone:
			return
		case <-s.stop:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, "Cannot encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

func splitJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

// liveScript replaces the drawing in #mimic with each pushed frame.
const liveScript = `(function () {
  var container = document.getElementById("` + svgdom.ContainerID + `");
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  function connect() {
    var ws = new WebSocket(scheme + location.host + "/ws");
    ws.onmessage = function (ev) {
      var msg = JSON.parse(ev.data);
      if (msg.type !== "mimic") { return; }
      var doc = new DOMParser().parseFromString(msg.svg, "image/svg+xml");
      var svg = document.importNode(doc.documentElement, true);
      while (container.firstChild) { container.removeChild(container.firstChild); }
      container.appendChild(svg);
    };
    ws.onclose = function () { setTimeout(connect, 2000); };
  }
  connect();
})();`
