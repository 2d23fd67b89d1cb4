package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"flairbridge/internal/audit"
	"flairbridge/internal/entity"
	"flairbridge/internal/platform"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Entities is the live entity list the API serves.
type Entities interface {
	Get(uniqueID string) (entity.Entity, bool)
	All() []entity.Entity
}

// Health reports poll health.
type Health interface {
	Healthy() bool
	LastSuccess() time.Time
}

// Options are the collaborators behind the endpoints.
type Options struct {
	Entities Entities
	Audit    *audit.Tracker
	Health   Health
	Hub      *Hub
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Port     int
}

// Server provides HTTP API endpoints for the bridge
type Server struct {
	opts   Options
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a new API server
func NewServer(opts Options, logger *zap.Logger) *Server {
	if opts.Hub == nil {
		opts.Hub = NewHub(logger)
	}
	s := &Server{
		opts:   opts,
		logger: logger.Named("api"),
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSitemap)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/entities", s.handleListEntities)
	mux.HandleFunc("GET /api/entities/{id}", s.handleGetEntity)
	mux.HandleFunc("POST /api/entities/{id}/commands", s.handleCommand)
	mux.HandleFunc("GET /api/commands", s.handleCommandLog)
	mux.Handle("GET /api/events", s.opts.Hub)
	if s.opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// EntityResponse is the JSON form of an entity.
type EntityResponse struct {
	UniqueID         string                 `json:"unique_id"`
	Name             string                 `json:"name"`
	Platform         entity.Platform        `json:"platform"`
	Device           entity.DeviceInfo      `json:"device"`
	Available        bool                   `json:"available"`
	EnabledByDefault bool                   `json:"enabled_by_default"`
	Category         string                 `json:"category,omitempty"`
	State            map[string]interface{} `json:"state"`
}

func toResponse(e entity.Entity) EntityResponse {
	return EntityResponse{
		UniqueID:         e.UniqueID(),
		Name:             e.Name(),
		Platform:         e.Platform(),
		Device:           e.Device(),
		Available:        e.Available(),
		EnabledByDefault: e.EnabledByDefault(),
		Category:         e.Category(),
		State:            e.State(),
	}
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// handleListEntities returns every entity, optionally filtered by platform.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	filter := entity.Platform(r.URL.Query().Get("platform"))

	out := make([]EntityResponse, 0)
	for _, e := range s.opts.Entities.All() {
		if filter != "" && e.Platform() != filter {
			continue
		}
		out = append(out, toResponse(e))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, ok := s.opts.Entities.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("entity %s not found", id))
		return
	}
	s.writeJSON(w, http.StatusOK, toResponse(e))
}

// commandRequest accepts the value as a JSON string or a bare number.
type commandRequest struct {
	Command string          `json:"command"`
	Value   json.RawMessage `json:"value"`
}

func (c commandRequest) value() (string, error) {
	raw := bytes.TrimSpace(c.Value)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(raw), nil
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, ok := s.opts.Entities.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("entity %s not found", id))
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	value, err := req.value()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid value: %w", err))
		return
	}

	cmd := platform.Command{Name: req.Command, Value: value}
	if err := platform.Dispatch(r.Context(), e, cmd); err != nil {
		s.logger.Warn("Command failed",
			zap.String("entity", id),
			zap.String("command", cmd.Name),
			zap.Error(err))
		s.writeError(w, commandStatus(err), err)
		return
	}

	s.logger.Debug("Command applied", zap.String("entity", id), zap.String("command", cmd.Name))
	s.writeJSON(w, http.StatusOK, toResponse(e))
}

func commandStatus(err error) int {
	switch {
	case errors.Is(err, platform.ErrUnknownCommand), errors.Is(err, platform.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrUnitPoweredOff):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// handleCommandLog returns recent command outcomes, newest first.
func (s *Server) handleCommandLog(w http.ResponseWriter, r *http.Request) {
	if s.opts.Audit == nil {
		s.writeJSON(w, http.StatusOK, []audit.Record{})
		return
	}
	var records []audit.Record
	if id := r.URL.Query().Get("entity"); id != "" {
		records = s.opts.Audit.ForEntity(id)
	} else {
		records = s.opts.Audit.All()
	}
	if records == nil {
		records = []audit.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status      string     `json:"status"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
	Entities    int        `json:"entities"`
}

// handleHealth reports ok while the last poll succeeded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Entities: len(s.opts.Entities.All())}
	status := http.StatusOK

	if s.opts.Health != nil {
		if last := s.opts.Health.LastSuccess(); !last.IsZero() {
			resp.LastRefresh = &last
		}
		if !s.opts.Health.Healthy() {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, status, resp)
}

// Endpoint represents an API endpoint with its documentation
type Endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

var endpoints = []Endpoint{
	{Path: "/", Method: "GET", Description: "This sitemap"},
	{Path: "/health", Method: "GET", Description: "Poll health and last refresh time"},
	{Path: "/api/entities", Method: "GET", Description: "All entities, ?platform=climate|select|sensor to filter"},
	{Path: "/api/entities/{id}", Method: "GET", Description: "One entity by unique id"},
	{Path: "/api/entities/{id}/commands", Method: "POST", Description: `Run a command, body {"command": "mode", "value": "cool"}`},
	{Path: "/api/commands", Method: "GET", Description: "Recent command outcomes, ?entity=<id> to filter"},
	{Path: "/api/events", Method: "GET", Description: "WebSocket stream of state_changed events"},
	{Path: "/metrics", Method: "GET", Description: "Prometheus metrics"},
}

// handleSitemap lists the available endpoints
func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s", r.URL.Path))
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		s.writeJSON(w, http.StatusOK, endpoints)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Flair Bridge API\n")
	fmt.Fprintf(w, "================\n\n")
	for _, ep := range endpoints {
		fmt.Fprintf(w, "  %-6s %-30s %s\n", ep.Method, ep.Path, ep.Description)
	}
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP API server", zap.String("addr", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP API server")

	s.opts.Hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
