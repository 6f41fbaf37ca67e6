// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/encore/internal/adapters/http/stream"
	"github.com/okian/encore/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionStarter
	TagResolver
	ClientRegistry
	StatsProvider

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// SessionStarter launches a session run loop by id.
type SessionStarter interface {
	StartSession(ctx context.Context, id int) error
}

// TagResolver delivers a wire tag plus raw payload to a pending waiter.
// Returns false when no waiter is registered on the tag.
type TagResolver interface {
	Resolve(ctx context.Context, tag string, payload json.RawMessage) (bool, error)
}

// ClientRegistry attaches and detaches stream connections.
type ClientRegistry interface {
	AttachClient(ctx context.Context, clientID string) *stream.Client
	DetachClient(ctx context.Context, c *stream.Client)
}

// Server wires HTTP routes for the coordinator API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	registerHandler *RegisterHandler
	eventsHandler   *EventsHandler
	sessionsHandler *SessionsHandler
	responseHandler *ResponseHandler
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	jwtSecret    []byte
	tokenTTL     time.Duration
	pingInterval time.Duration
	logger       logger.Logger
}

// WithJWTSecret sets the HMAC secret used for stream tokens.
func WithJWTSecret(secret string) ServerOption {
	return func(c *serverConfig) {
		if secret != "" {
			c.jwtSecret = []byte(secret)
		}
	}
}

// WithTokenTTL sets the stream token lifetime.
func WithTokenTTL(ttl time.Duration) ServerOption {
	return func(c *serverConfig) {
		if ttl > 0 {
			c.tokenTTL = ttl
		}
	}
}

// WithPingInterval sets the SSE keepalive interval.
func WithPingInterval(d time.Duration) ServerOption {
	return func(c *serverConfig) {
		if d > 0 {
			c.pingInterval = d
		}
	}
}

// WithServerLogger sets the logger for request handlers.
func WithServerLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	cfg := serverConfig{
		jwtSecret:    []byte("change-me"),
		tokenTTL:     time.Hour,
		pingInterval: 30 * time.Second,
		logger:       logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	issuer := newTokenIssuer(cfg.jwtSecret, cfg.tokenTTL)
	return &Server{
		healthHandler:   NewHealthHandler(deps),
		statsHandler:    NewStatsHandler(deps),
		registerHandler: NewRegisterHandler(issuer, cfg.tokenTTL),
		eventsHandler:   NewEventsHandler(deps, issuer, cfg.pingInterval, cfg.logger),
		sessionsHandler: NewSessionsHandler(deps),
		responseHandler: NewResponseHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/register", MetricsMiddleware(s.registerHandler.HandleRegister, "register"))
	mux.HandleFunc("/events", s.eventsHandler.HandleEvents)
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleStart, "sessions_start"))
	mux.HandleFunc("/response", MetricsMiddleware(s.responseHandler.HandleResponse, "response"))
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
