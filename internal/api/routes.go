package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
//
// /metrics регистрируется отдельно в cmd, чтобы не логировать каждый scrape.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger, h.instanceIndex),
	)

	mux.Handle("GET /{$}", chain(http.HandlerFunc(h.Home)))
	mux.Handle("GET /healthz", chain(http.HandlerFunc(h.Healthz)))

	// Status
	mux.Handle("GET /api/v1/status", chain(http.HandlerFunc(h.Status)))
	mux.Handle("GET /api/v1/tasks/stats", chain(http.HandlerFunc(h.TaskStats)))
}
