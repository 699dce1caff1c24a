package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/realign"
	"github.com/aretw0/realign/internal/logging"
	"github.com/aretw0/realign/internal/presentation/graph"
	"github.com/aretw0/realign/pkg/domain"
	"github.com/aretw0/realign/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes an Assistant as a JSON API with SSE diff streams.
type Server struct {
	assistant  *realign.Assistant
	streams    *StreamManager
	handler    http.Handler
	metrics    http.Handler
	logger     *slog.Logger
	maxInput   int
	apiVersion string

	removeObserver func()
	done           chan struct{}
	closeOnce      sync.Once
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithMaxInputSize overrides the sanitizer limit for chat messages.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.maxInput = n
	}
}

// NewServer builds the router and starts forwarding session diffs to SSE
// subscribers. Close releases the subscription.
func NewServer(a *realign.Assistant, opts ...Option) (*Server, error) {
	s := &Server{assistant: a, done: make(chan struct{})}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.streams = NewStreamManager(s.logger)

	doc, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	s.apiVersion = doc.Info.Version

	validator, err := newRequestValidator(doc)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(RawSpec())
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(validator.Middleware)

		r.Get("/health", s.GetHealth)
		r.Get("/info", s.GetInfo)
		r.Get("/catalog", s.GetCatalog)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.ListSessions)
			r.Post("/", s.OpenSession)

			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", s.GetSession)
				r.Delete("/", s.CloseSession)
				r.Post("/select", s.SelectOption)
				r.Post("/messages", s.SendMessage)
				r.Get("/events", s.SubscribeEvents)
				r.Get("/graph", s.GetSessionGraph)
			})
		})
	})

	s.handler = enableCORS(r)
	s.removeObserver = a.AddObserver(s.broadcast)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops forwarding diffs and ends every open event stream.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.removeObserver()
		close(s.done)
	})
}

// Streams exposes the SSE fan-out.
func (s *Server) Streams() *StreamManager {
	return s.streams
}

func (s *Server) broadcast(state *domain.State, diff *domain.StateDiff) {
	data, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("Failed to encode diff", "session_id", state.SessionID, "err", err)
		return
	}
	s.streams.Broadcast(state.SessionID, string(data))
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "realign-http",
		"version":     strings.TrimSpace(realign.Version),
		"api_version": s.apiVersion,
	})
}

// GetCatalog handles GET /catalog.
func (s *Server) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.assistant.Catalog().Questions())
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.assistant.List(r.Context())
	if err != nil {
		s.fail(w, "ListSessions", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// OpenSession handles POST /sessions.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.assistant.Open(r.Context())
	if err != nil {
		s.fail(w, "OpenSession", err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionView(state))
}

// GetSession handles GET /sessions/{sessionId}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.assistant.State(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		s.fail(w, "GetSession", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(state))
}

// CloseSession handles DELETE /sessions/{sessionId}.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.assistant.Close(r.Context(), chi.URLParam(r, "sessionId")); err != nil {
		s.fail(w, "CloseSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectRequest struct {
	Option string `json:"option"`
}

// SelectOption handles POST /sessions/{sessionId}/select.
func (s *Server) SelectOption(w http.ResponseWriter, r *http.Request) {
	var body selectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	state, err := s.assistant.Select(r.Context(), chi.URLParam(r, "sessionId"), body.Option)
	if err != nil {
		s.fail(w, "SelectOption", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(state))
}

type messageRequest struct {
	Text string `json:"text"`
}

// SendMessage handles POST /sessions/{sessionId}/messages.
func (s *Server) SendMessage(w http.ResponseWriter, r *http.Request) {
	var body messageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	text, err := runner.SanitizeInputLimit(body.Text, s.maxInput)
	if err != nil {
		s.logger.Warn("SendMessage: Input rejected", "err", err, "size", len(body.Text))
		s.fail(w, "SendMessage", err)
		return
	}

	state, err := s.assistant.Submit(r.Context(), chi.URLParam(r, "sessionId"), text)
	if err != nil {
		s.fail(w, "SendMessage", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(state))
}

// GetSessionGraph handles GET /sessions/{sessionId}/graph.
func (s *Server) GetSessionGraph(w http.ResponseWriter, r *http.Request) {
	state, err := s.assistant.State(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		s.fail(w, "GetSessionGraph", err)
		return
	}
	c := s.assistant.Catalog()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(c, graph.OverlayFor(c, state))))
}

// SubscribeEvents handles GET /sessions/{sessionId}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	// Subscribe before the existence check so no commit slips in between.
	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	if _, err := s.assistant.State(r.Context(), sessionID); err != nil {
		s.fail(w, "SubscribeEvents", err)
		return
	}

	var watch []string
	if raw := r.URL.Query().Get("watch"); raw != "" {
		for _, field := range strings.Split(raw, ",") {
			if field = strings.TrimSpace(field); field != "" {
				watch = append(watch, field)
			}
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", sessionID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !matchesWatch(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// matchesWatch reports whether the encoded diff touches a watched field.
func matchesWatch(msg string, watch []string) bool {
	var diff domain.StateDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range watch {
		switch field {
		case "phase":
			if diff.Phase != nil {
				return true
			}
		case "generation":
			if diff.Generation != nil {
				return true
			}
		case "profile":
			if len(diff.Profile) > 0 {
				return true
			}
		case "messages":
			if len(diff.Messages) > 0 {
				return true
			}
		}
	}
	return false
}

// -- Helpers --

type sessionView struct {
	SessionID    string           `json:"session_id"`
	ThreadID     string           `json:"thread_id"`
	Generation   uint64           `json:"generation"`
	Phase        domain.Phase     `json:"phase"`
	Profile      map[string]any   `json:"profile"`
	Messages     []domain.Message `json:"messages"`
	PendingChats int              `json:"pending_chats"`
}

func newSessionView(s *domain.State) sessionView {
	return sessionView{
		SessionID:    s.SessionID,
		ThreadID:     s.ThreadID,
		Generation:   s.Generation,
		Phase:        s.Phase,
		Profile:      s.Profile.Payload(),
		Messages:     s.Messages,
		PendingChats: s.PendingChats,
	}
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownOption), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	}
	writeError(w, status, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
