package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arvindkp/settlements/internal/application/settlement"
	"github.com/arvindkp/settlements/internal/bootstrap"
	infraRedis "github.com/arvindkp/settlements/internal/infrastructure/redis"
	infraSQS "github.com/arvindkp/settlements/internal/infrastructure/sqs"
	"github.com/arvindkp/settlements/internal/providers"
	"github.com/arvindkp/settlements/internal/repository/postgres"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "settlements-worker", "settlements_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	txRepo := postgres.NewTransactionRepository(app.Pool)
	idemRepo := postgres.NewIdempotencyRepository(app.Pool)

	// --- Queues ---
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
	dlQueueURL := app.Config.Queue.DeadLetterURL
	if name := app.Config.Queue.DeadLetterName; name != "" {
		dlQueueURL, err = infraSQS.Resolve(ctx, sqsClient, name)
		if err != nil {
			app.Logger.Fatal().Err(err).Str("queue", name).Msg("Failed to resolve dead-letter queue URL")
		}
	}
	jobQueue := infraSQS.New(sqsClient, jobQueueURL)
	dlQueue := infraSQS.New(sqsClient, dlQueueURL)

	// --- Provider fleet ---
	registry := providers.NewRegistry(providers.RegistryConfig{
		FailureThreshold: app.Config.Settlement.ProviderFailureThreshold,
		Cooldown:         app.Config.Settlement.ProviderCooldown,
	}, providers.DefaultProviders()...)
	for name, p := range app.Config.Settlement.ProviderProfiles {
		registry.SetBackoffProfile(name, providers.BackoffProfile{
			Multiplier: p.Multiplier,
			Jitter:     p.Jitter,
		})
	}

	// --- Event fan-out ---
	events := infraRedis.NewStreamPublisher(app.Redis)

	worker := settlement.NewWorker(
		txRepo,
		idemRepo,
		jobQueue,
		dlQueue,
		registry,
		events,
		app.Metrics,
		app.Logger,
		settlement.WorkerConfig{
			BatchSize:      app.Config.Queue.BatchSize,
			WaitTime:       app.Config.Queue.WaitTime,
			EmptyPollDelay: app.Config.Queue.EmptyPollDelay,
			ErrorPollDelay: app.Config.Queue.ErrorPollDelay,
			MaxRetries:     app.Config.Settlement.MaxRetries,
			Backoff: settlement.BackoffConfig{
				BaseDelay: app.Config.Settlement.BaseDelay,
				MaxDelay:  app.Config.Settlement.MaxDelay,
				MinDelay:  app.Config.Settlement.MinDelay,
			},
			VisibilityBase: app.Config.Queue.VisibilityBase,
			VisibilityMax:  app.Config.Queue.VisibilityMax,
		},
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(gCtx)
	})

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
