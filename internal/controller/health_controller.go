package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/arvindkp/settlements/internal/providers"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthController struct {
	pool     *pgxpool.Pool
	redis    *redis.Client
	registry *providers.Registry
}

func NewHealthController(pool *pgxpool.Pool, redis *redis.Client, registry *providers.Registry) *HealthController {
	return &HealthController{pool: pool, redis: redis, registry: registry}
}

func (h *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthController) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *HealthController) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "redis unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Providers handles GET /health/providers, exposing the health gate state of
// the provider fleet.
func (h *HealthController) Providers(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeJSON(w, http.StatusOK, map[string]bool{})
		return
	}
	out := make(map[string]bool)
	for _, p := range h.registry.Providers() {
		out[p.Name()] = h.registry.Healthy(p.Name())
	}
	writeJSON(w, http.StatusOK, out)
}
