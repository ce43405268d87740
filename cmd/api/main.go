package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/arvindkp/settlements/internal/application/settlement"
	"github.com/arvindkp/settlements/internal/bootstrap"
	"github.com/arvindkp/settlements/internal/controller"
	infraSQS "github.com/arvindkp/settlements/internal/infrastructure/sqs"
	"github.com/arvindkp/settlements/internal/providers"
	"github.com/arvindkp/settlements/internal/repository/postgres"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "settlements-api", "settlements")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	txRepo := postgres.NewTransactionRepository(app.Pool)
	idemRepo := postgres.NewIdempotencyRepository(app.Pool)

	// --- Queue ---
	sqsClient, err := infraSQS.NewClient(ctx, &app.Config.AWS)
	if err != nil {
		app.Logger.Fatal().Err(err).Msg("Failed to create SQS client")
	}
	jobQueueURL := app.Config.Queue.URL
	if name := app.Config.Queue.Name; name != "" {
		jobQueueURL, err = infraSQS.Resolve(ctx, sqsClient, name)
		if err != nil {
			app.Logger.Fatal().Err(err).Str("queue", name).Msg("Failed to resolve job queue URL")
		}
	}
	jobQueue := infraSQS.New(sqsClient, jobQueueURL)

	// --- Use cases ---
	submitUC := settlement.NewSubmitUseCase(txRepo, idemRepo, jobQueue, app.Logger)
	getUC := settlement.NewGetTransactionUseCase(txRepo)

	// Registry is exposed read-only here for /health/providers; the worker
	// process owns the breakers that matter.
	registry := providers.NewRegistry(providers.RegistryConfig{
		FailureThreshold: app.Config.Settlement.ProviderFailureThreshold,
		Cooldown:         app.Config.Settlement.ProviderCooldown,
	}, providers.DefaultProviders()...)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:        app.Pool,
		RedisClient: app.Redis,
		Submit:      submitUC,
		Get:         getUC,
		Registry:    registry,
		Metrics:     app.Metrics,
		CORSConfig:  app.Config.Server.CORS,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
