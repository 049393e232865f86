// Package httpapi exposes the engine over HTTP: message ingestion, flow
// documents, and on-demand auto-arrange.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbaleeiro/chatvine/internal/logging"
	"github.com/mbaleeiro/chatvine/pkg/domain"
	"github.com/mbaleeiro/chatvine/pkg/flow"
	"github.com/mbaleeiro/chatvine/pkg/layout"
	"github.com/mbaleeiro/chatvine/pkg/ports"
	"github.com/mbaleeiro/chatvine/pkg/trigger"
)

// Server wires the trigger engine and flow store into HTTP handlers.
type Server struct {
	engine *trigger.Engine
	flows  ports.FlowStore
	logger *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewHandler builds the chi router for the engine.
func NewHandler(engine *trigger.Engine, flows ports.FlowStore, reg *prometheus.Registry, opts ...Option) http.Handler {
	s := &Server{
		engine: engine,
		flows:  flows,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(requestMetrics(reg))

	r.Post("/messages", s.ingest)
	r.Get("/flows/{id}", s.getFlow)
	r.Put("/flows/{id}", s.putFlow)
	r.Post("/flows/{id}/arrange", s.arrange)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}

// ingest handles POST /messages: one inbound message in, one routing
// decision out.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	var msg domain.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("ingest: invalid request body", "err", err)
		return
	}
	if msg.ContactID == "" || msg.ChannelType == "" {
		http.Error(w, "contactId and channelType are required", http.StatusBadRequest)
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	decision, err := s.engine.HandleMessage(r.Context(), msg)
	if err != nil {
		// Fail closed: the caller must not act as if the message matched.
		http.Error(w, "Routing unavailable", http.StatusServiceUnavailable)
		s.logger.Error("ingest: routing failed", "contact", msg.ContactID, "err", err)
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) getFlow(w http.ResponseWriter, r *http.Request) {
	f, err := s.flows.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.flowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) putFlow(w http.ResponseWriter, r *http.Request) {
	var f domain.Flow
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, "Invalid flow document", http.StatusBadRequest)
		return
	}
	if f.ID != chi.URLParam(r, "id") {
		http.Error(w, "Flow id mismatch", http.StatusBadRequest)
		return
	}
	// A structurally broken document must never reach the store: routing
	// deserializes every stored flow, so one bad save would block all of it.
	if err := flow.Validate(&f); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		s.logger.Warn("put flow rejected", "flow", f.ID, "err", err)
		return
	}
	if err := s.flows.Put(r.Context(), &f); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		s.logger.Warn("put flow rejected", "flow", f.ID, "err", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// arrange handles POST /flows/{id}/arrange: computes the layout, persists
// the new positions, and returns them with any diagnostics.
func (s *Server) arrange(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := s.flows.Get(r.Context(), id)
	if err != nil {
		s.flowError(w, err)
		return
	}

	res := layout.Arrange(f)
	layout.Apply(f, res)
	if err := s.flows.Put(r.Context(), f); err != nil {
		http.Error(w, "Failed to save arranged flow", http.StatusInternalServerError)
		s.logger.Error("arrange: save failed", "flow", id, "err", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) flowError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrFlowNotFound) {
		http.Error(w, "Flow not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
