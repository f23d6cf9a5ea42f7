// Package server exposes the service surfaces: an HTTP API for queries and
// manual event injection, and a gRPC endpoint for load-balancer health
// probes. Queries are answered by the engine loop itself via request-reply
// messages, so results are always consistent with every event applied so far.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"PayLedger/internal/engine"
	"PayLedger/internal/ingestion"
	"PayLedger/internal/ledger"
	"PayLedger/internal/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// HTTPServer serves the query and injection API.
type HTTPServer struct {
	server *http.Server
	log    zerolog.Logger
}

// HTTPDeps holds the dependencies of the HTTP handlers.
type HTTPDeps struct {
	Handle        *engine.Handle
	HealthChecker *observability.HealthChecker
	Metrics       *observability.Metrics
	Logger        zerolog.Logger
}

type httpAPI struct {
	handle  *engine.Handle
	metrics *observability.Metrics
	log     zerolog.Logger
}

// NewHTTPServer builds the router and wraps it in an http.Server.
func NewHTTPServer(addr string, deps *HTTPDeps) *HTTPServer {
	api := &httpAPI{
		handle:  deps.Handle,
		metrics: deps.Metrics,
		log:     deps.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", deps.HealthChecker.LivenessHandler)
	r.Get("/readyz", deps.HealthChecker.ReadinessHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/accounts", api.listAccounts)
		r.Get("/accounts/{client}", api.getAccount)
		r.Post("/events", api.injectEvent)
	})

	return &HTTPServer{
		server: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		log: deps.Logger,
	}
}

// Handler exposes the router, mainly for httptest.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe blocks until the server stops.
func (s *HTTPServer) ListenAndServe() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// accountJSON is the wire form of an account snapshot.
type accountJSON struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

func toAccountJSON(s ledger.AccountSnapshot) accountJSON {
	return accountJSON{
		Client:    uint16(s.Client),
		Available: s.Available.String(),
		Held:      s.Held.String(),
		Total:     s.Total.String(),
		Locked:    s.Locked,
	}
}

func (api *httpAPI) listAccounts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	accounts, err := api.handle.Accounts(r.Context())
	if err != nil {
		api.observe("list_accounts", "error", start)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	out := make([]accountJSON, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountJSON(a))
	}

	api.observe("list_accounts", "ok", start)
	writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": out})
}

func (api *httpAPI) getAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	client64, err := strconv.ParseUint(chi.URLParam(r, "client"), 10, 16)
	if err != nil {
		api.observe("get_account", "bad_request", start)
		writeError(w, http.StatusBadRequest, errors.New("client must be a 16-bit unsigned integer"))
		return
	}

	snapshot, found, err := api.handle.QueryAccount(r.Context(), ledger.ClientID(client64))
	if err != nil {
		api.observe("get_account", "error", start)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if !found {
		api.observe("get_account", "not_found", start)
		writeError(w, http.StatusNotFound, errors.New("unknown client"))
		return
	}

	api.observe("get_account", "ok", start)
	writeJSON(w, http.StatusOK, toAccountJSON(snapshot))
}

// injectEvent accepts a JSON event body ({"type": "deposit", ...}) and
// submits it to the engine. The optional Idempotency-Key header becomes the
// delivery key, so retried requests are absorbed by the delivery guard.
// 202 means accepted into the queue; the verdict lands in the audit log.
func (api *httpAPI) injectEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4096))
	if err != nil {
		api.observe("inject_event", "bad_request", start)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	evt, err := ingestion.ParseTyped(data, r.Header.Get("Idempotency-Key"))
	if err != nil {
		api.observe("inject_event", "bad_request", start)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := api.handle.Submit(r.Context(), evt); err != nil {
		api.observe("inject_event", "error", start)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	api.observe("inject_event", "accepted", start)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (api *httpAPI) observe(endpoint, status string, start time.Time) {
	if api.metrics == nil {
		return
	}
	api.metrics.QueryRequests.WithLabelValues(endpoint, status).Inc()
	api.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
