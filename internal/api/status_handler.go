package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shaiso/Tranche/internal/worker"
)

// pingTimeout ограничивает проверку хранилища в статусных запросах.
const pingTimeout = 2 * time.Second

// Home обрабатывает GET /
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Hello from Instance %d!<br>Using DB Host: %s DB Name: %s",
		h.instanceIndex, h.storeHost, h.dbName)
}

// Status обрабатывает GET /api/v1/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		InstanceIndex: h.instanceIndex,
		StoreTarget:   h.storeTarget,
		LoopState:     worker.StateStopped,
	}

	if err := h.ping(r.Context()); err != nil {
		resp.StoreError = err.Error()
	} else {
		resp.StoreReachable = true
	}

	if h.loop != nil {
		stats := h.loop.Stats()
		resp.LoopState = h.loop.State()
		resp.Stats = &stats
	}

	if h.events != nil {
		connected := h.events.IsConnected()
		resp.EventsConnected = &connected
	}

	Success(w, resp)
}

// TaskStats обрабатывает GET /api/v1/tasks/stats
func (h *Handler) TaskStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountByStatus(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	Success(w, TaskStatsFromCounts(counts))
}

// Healthz обрабатывает GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "store unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func (h *Handler) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return h.store.Ping(ctx)
}
