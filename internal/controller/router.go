package controller

import (
	"time"

	"github.com/arvindkp/settlements/internal/application/settlement"
	"github.com/arvindkp/settlements/internal/config"
	customMW "github.com/arvindkp/settlements/internal/middleware"
	"github.com/arvindkp/settlements/internal/observability"
	"github.com/arvindkp/settlements/internal/providers"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Submit      *settlement.SubmitUseCase
	Get         *settlement.GetTransactionUseCase
	Registry    *providers.Registry
	Metrics     *observability.Metrics
	CORSConfig  config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient, deps.Registry)
	txH := NewTransactionController(deps.Submit, deps.Get, deps.Metrics)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)
	r.Get("/health/providers", healthH.Providers)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Replay cache for mutating endpoints carrying an Idempotency-Key.
		replayMW := customMW.IdempotencyReplay(deps.RedisClient)

		r.With(replayMW).Post("/transactions", txH.Create)
		r.Get("/transactions/{id}", txH.Get)
	})

	return r
}
