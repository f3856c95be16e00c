// Package httpapi serves the local status API: health, the session history,
// typed input and Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	log "log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"emovox/internal/chat"
	"emovox/internal/metrics"
	"emovox/internal/vox"
)

const maxSayBody = 16 << 10

type RoundTripper interface {
	Busy() bool
	HandleText(ctx context.Context, text string) (*vox.Result, error)
}

type Deps struct {
	Vox     RoundTripper
	History *chat.History
	Metrics *metrics.Metrics
	// BaseContext bounds round trips started by POST /say, which outlive the request.
	BaseContext context.Context
	Logger      *log.Logger
}

type handler struct {
	Deps
	log *log.Logger
}

func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.BaseContext == nil {
		deps.BaseContext = context.Background()
	}
	h := &handler{Deps: deps, log: deps.Logger.With("component", "http")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.health)
	r.Get("/history", h.history)
	r.Post("/say", h.say)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	return r
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type healthResponse struct {
	Status string `json:"status"`
	Busy   bool   `json:"busy"`
	Turns  int    `json:"turns"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Busy: h.Vox.Busy()}
	if h.History != nil {
		resp.Turns = h.History.Len()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		respondJSON(w, http.StatusOK, []chat.Turn{})
		return
	}
	respondJSON(w, http.StatusOK, h.History.Turns())
}

type sayRequest struct {
	Text string `json:"text"`
}

func (h *handler) say(w http.ResponseWriter, r *http.Request) {
	var req sayRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSayBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if h.Vox.Busy() {
		respondError(w, http.StatusConflict, vox.ErrBusy.Error())
		return
	}

	go func() {
		if _, err := h.Vox.HandleText(h.BaseContext, text); errors.Is(err, vox.ErrBusy) {
			h.log.Info("Say dropped, round trip in progress")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
