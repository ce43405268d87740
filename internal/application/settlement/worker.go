package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/arvindkp/settlements/internal/observability"
	"github.com/arvindkp/settlements/internal/providers"
	"github.com/arvindkp/settlements/internal/queue"
	"github.com/arvindkp/settlements/pkg/retry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Dead-letter causes. They label the dead-letter metric and, for the
// no-provider path, tag the payload itself; an exhausted job's payload carries
// the last provider error instead.
const (
	ReasonMaxRetriesExceeded = "MAX_RETRIES_EXCEEDED"
	ReasonNoHealthyProvider  = "NO_HEALTHY_PROVIDER"
)

// WorkerConfig tunes the settlement poll loop.
type WorkerConfig struct {
	BatchSize      int
	WaitTime       time.Duration
	EmptyPollDelay time.Duration
	ErrorPollDelay time.Duration
	MaxRetries     int
	Backoff        BackoffConfig
	VisibilityBase time.Duration
	VisibilityMax  time.Duration
}

// DefaultWorkerConfig returns the standard worker tuning.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize:      5,
		WaitTime:       5 * time.Second,
		EmptyPollDelay: 500 * time.Millisecond,
		ErrorPollDelay: 1500 * time.Millisecond,
		MaxRetries:     3,
		Backoff:        DefaultBackoffConfig(),
		VisibilityBase: 30 * time.Second,
		VisibilityMax:  120 * time.Second,
	}
}

// Worker drains the settlement queue: it leases job batches, drives each
// transaction through the charge state machine, and requeues, dead-letters or
// acknowledges messages according to the outcome. Multiple workers can run
// concurrently; correctness rests on the queue's visibility lease and on
// status-guarded store writes, not on any cross-worker coordination.
type Worker struct {
	txRepo   TransactionRepository
	idemRepo IdempotencyRepository
	jobs     queue.Queue
	dlq      queue.Queue
	registry *providers.Registry
	events   EventPublisher
	metrics  *observability.Metrics
	logger   zerolog.Logger
	cfg      WorkerConfig

	// lastBatchMaxAttempts is the visibility hint: the highest attempts value
	// seen in the previous batch, used to size the next lease. Only the poll
	// loop goroutine touches it.
	lastBatchMaxAttempts int
}

// NewWorker wires a settlement worker. events may be nil when no fan-out is
// configured.
func NewWorker(
	txRepo TransactionRepository,
	idemRepo IdempotencyRepository,
	jobs queue.Queue,
	dlq queue.Queue,
	registry *providers.Registry,
	events EventPublisher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	cfg WorkerConfig,
) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultWorkerConfig().BatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultWorkerConfig().MaxRetries
	}
	return &Worker{
		txRepo:   txRepo,
		idemRepo: idemRepo,
		jobs:     jobs,
		dlq:      dlq,
		registry: registry,
		events:   events,
		metrics:  metrics,
		logger:   logger.With().Str("component", "settlement_worker").Logger(),
		cfg:      cfg,
	}
}

// Run polls the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().
		Int("batch_size", w.cfg.BatchSize).
		Int("max_retries", w.cfg.MaxRetries).
		Msg("Settlement worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Settlement worker stopping")
			return ctx.Err()
		default:
		}

		n, err := w.pollOnce(ctx)
		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.metrics.WorkerPollErrors.Inc()
			w.logger.Error().Err(err).Msg("Queue poll failed")
			w.sleep(ctx, w.cfg.ErrorPollDelay)
		case n == 0:
			w.sleep(ctx, w.cfg.EmptyPollDelay)
		}
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// pollOnce leases one batch and handles its messages concurrently. It returns
// the number of messages leased.
func (w *Worker) pollOnce(ctx context.Context) (int, error) {
	visibility := VisibilityTimeout(w.cfg.VisibilityBase, w.cfg.VisibilityMax, w.lastBatchMaxAttempts)
	msgs, err := w.jobs.Receive(ctx, w.cfg.BatchSize, w.cfg.WaitTime, visibility)
	if err != nil {
		return 0, err
	}
	w.metrics.WorkerBatchSize.Observe(float64(len(msgs)))
	if len(msgs) == 0 {
		w.lastBatchMaxAttempts = 0
		return 0, nil
	}

	hints := make([]int, len(msgs))
	g, gctx := errgroup.WithContext(ctx)
	for i, msg := range msgs {
		i, msg := i, msg
		g.Go(func() error {
			hints[i] = w.handleMessageSafe(gctx, msg)
			return nil
		})
	}
	_ = g.Wait()

	maxHint := 0
	for _, h := range hints {
		if h > maxHint {
			maxHint = h
		}
	}
	w.lastBatchMaxAttempts = maxHint
	return len(msgs), nil
}

// handleMessageSafe isolates panics so one poisoned message cannot take down
// the batch. The message is left to redeliver after its lease expires.
func (w *Worker) handleMessageSafe(ctx context.Context, msg queue.Message) (attempts int) {
	start := time.Now()
	outcome := "handled"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			w.logger.Error().
				Interface("panic", r).
				Str("message_id", msg.ID).
				Msg("Panic while handling settlement message")
		}
		w.metrics.WorkerMessageTime.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	a, err := w.HandleMessage(ctx, msg)
	if err != nil {
		outcome = "error"
		w.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Settlement message handling failed")
	}
	return a
}

// HandleMessage processes one leased settlement job. It returns the attempt
// count reached, used as the visibility hint for the next batch. Returning a
// non-nil error means the message was intentionally left unacknowledged so the
// queue redelivers it.
func (w *Worker) HandleMessage(ctx context.Context, msg queue.Message) (int, error) {
	job, err := transaction.DecodeSettlementJob(msg.Body)
	if err != nil {
		// Decode failures are producer bugs; keep the message for inspection
		// rather than silently dropping money movement.
		return 0, fmt.Errorf("decode job: %w", err)
	}

	txID, err := job.TransactionUUID()
	if err != nil {
		return 0, fmt.Errorf("decode job: %w", err)
	}
	log := w.logger.With().
		Str("transaction_id", job.TransactionID).
		Str("client_id", job.ClientID).
		Logger()

	t, err := w.txRepo.GetByID(ctx, txID)
	if err != nil {
		return job.Attempts, fmt.Errorf("load transaction: %w", err)
	}
	if t == nil {
		// A job without a stored transaction cannot be settled. Drop it.
		log.Warn().Msg("Settlement job references unknown transaction, dropping")
		return job.Attempts, w.ack(ctx, msg)
	}
	if t.IsTerminal() {
		// Redelivery after a processed charge. Acknowledge and move on.
		log.Debug().Str("status", string(t.Status)).Msg("Transaction already terminal, dropping redelivery")
		return t.Attempts, w.ack(ctx, msg)
	}

	provider := w.registry.Select(t)
	if provider == nil {
		// Every provider is cooling down. Dead-letter rather than spin.
		log.Warn().Msg("No healthy provider available, routing to dead-letter queue")
		if err := w.deadLetter(ctx, job, t.Attempts, ReasonNoHealthyProvider, ReasonNoHealthyProvider); err != nil {
			return t.Attempts, fmt.Errorf("dead-letter: %w", err)
		}
		return t.Attempts, w.ack(ctx, msg)
	}

	attempts := t.Attempts + 1
	result := w.charge(ctx, provider, t)

	if result.Success {
		return attempts, w.handleSuccess(ctx, msg, log, provider, t, attempts, result.ProviderRef)
	}
	return attempts, w.handleFailure(ctx, msg, log, provider, job, t, attempts, result.ErrorMessage)
}

// charge calls the provider and normalizes transport errors into a failed
// ChargeResult so the retry path treats them like declines.
func (w *Worker) charge(ctx context.Context, p providers.Provider, t *transaction.Transaction) *providers.ChargeResult {
	start := time.Now()
	result, err := p.Charge(ctx, t)
	w.metrics.ProviderChargeTime.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		w.metrics.ProviderCharges.WithLabelValues(p.Name(), "error").Inc()
		return &providers.ChargeResult{Success: false, ErrorMessage: err.Error()}
	}
	if result.Success {
		w.metrics.ProviderCharges.WithLabelValues(p.Name(), "success").Inc()
	} else {
		w.metrics.ProviderCharges.WithLabelValues(p.Name(), "failure").Inc()
	}
	return result
}

func (w *Worker) handleSuccess(
	ctx context.Context,
	msg queue.Message,
	log zerolog.Logger,
	provider providers.Provider,
	t *transaction.Transaction,
	attempts int,
	providerRef string,
) error {
	stored, err := w.txRepo.MarkSucceeded(ctx, t.ID, attempts, providerRef)
	if err != nil {
		// The charge went through but the write did not. Keep the message so
		// redelivery reapplies the guarded update; the status guard makes the
		// reapply harmless.
		w.registry.ReportSuccess(provider.Name())
		return fmt.Errorf("persist success: %w", err)
	}

	w.registry.ReportSuccess(provider.Name())
	w.mirrorStatus(ctx, log, stored)
	w.publishSettled(ctx, log, stored)

	w.metrics.SettlementsTotal.WithLabelValues(string(transaction.StatusSuccess)).Inc()
	w.metrics.SettlementAttempts.Observe(float64(stored.Attempts))
	log.Info().
		Str("provider", provider.Name()).
		Str("provider_ref", providerRef).
		Int("attempts", stored.Attempts).
		Msg("Settlement succeeded")

	return w.ack(ctx, msg)
}

func (w *Worker) handleFailure(
	ctx context.Context,
	msg queue.Message,
	log zerolog.Logger,
	provider providers.Provider,
	job *transaction.SettlementJob,
	t *transaction.Transaction,
	attempts int,
	chargeError string,
) error {
	stored, err := w.txRepo.RecordFailure(ctx, t.ID, attempts, chargeError)
	if err != nil {
		// Worst case the attempt count lags by one; the next redelivery
		// catches it up.
		log.Error().Err(err).Msg("Failed to record attempt")
		stored = t
		stored.Attempts = attempts
	}
	w.registry.ReportFailure(provider.Name())

	if stored.Attempts >= w.cfg.MaxRetries {
		return w.exhaust(ctx, msg, log, job, stored, chargeError)
	}

	delay := RetryDelay(w.cfg.Backoff, w.registry.BackoffProfile(provider.Name()), stored.Attempts)
	requeue := *job
	requeue.Attempts = stored.Attempts
	body, err := requeue.Encode()
	if err != nil {
		return fmt.Errorf("encode requeue job: %w", err)
	}
	if err := w.jobs.Send(ctx, body, delay); err != nil {
		// Keep the original message; lease expiry covers the retry instead.
		return fmt.Errorf("requeue job: %w", err)
	}

	w.metrics.RetriesScheduled.WithLabelValues(provider.Name()).Inc()
	log.Info().
		Str("provider", provider.Name()).
		Int("attempts", stored.Attempts).
		Dur("retry_delay", delay).
		Str("last_error", chargeError).
		Msg("Settlement attempt failed, retry scheduled")

	return w.ack(ctx, msg)
}

// exhaust finalizes a transaction that used up its retry budget: terminal
// FAILED state, idempotency mirror, dead-letter routing and event fan-out.
func (w *Worker) exhaust(
	ctx context.Context,
	msg queue.Message,
	log zerolog.Logger,
	job *transaction.SettlementJob,
	t *transaction.Transaction,
	chargeError string,
) error {
	stored, err := w.txRepo.MarkFailed(ctx, t.ID, t.Attempts, chargeError)
	if err != nil {
		return fmt.Errorf("persist terminal failure: %w", err)
	}

	w.mirrorStatus(ctx, log, stored)

	if err := w.deadLetter(ctx, job, stored.Attempts, ReasonMaxRetriesExceeded, chargeError); err != nil {
		// The store already says FAILED; redelivery hits the terminal check
		// and acks, so a lost dead letter here stays lost. Surface it loudly.
		log.Error().Err(err).Msg("Failed to dead-letter exhausted job")
		return fmt.Errorf("dead-letter: %w", err)
	}

	w.publishSettled(ctx, log, stored)
	w.metrics.SettlementsTotal.WithLabelValues(string(transaction.StatusFailed)).Inc()
	w.metrics.SettlementAttempts.Observe(float64(stored.Attempts))
	log.Warn().
		Int("attempts", stored.Attempts).
		Str("last_error", chargeError).
		Msg("Settlement failed permanently, routed to dead-letter queue")

	return w.ack(ctx, msg)
}

// deadLetter routes the job to the dead-letter queue, with a short retry
// because losing a dead letter loses the failure audit trail. cause is the
// bounded metric label; failureReason goes into the payload for operators and
// is the last provider error on the exhaustion path.
func (w *Worker) deadLetter(ctx context.Context, job *transaction.SettlementJob, attempts int, cause, failureReason string) error {
	dl := transaction.NewDeadLetterJob(job, attempts, failureReason)
	body, err := dl.Encode()
	if err != nil {
		return err
	}
	err = retry.Do(ctx, retry.DefaultConfig(), func() error {
		return w.dlq.Send(ctx, body, 0)
	})
	if err != nil {
		return err
	}
	w.metrics.DeadLetters.WithLabelValues(cause).Inc()
	if w.events != nil {
		if perr := w.events.PublishDeadLetter(ctx, dl); perr != nil {
			w.logger.Warn().Err(perr).Str("transaction_id", job.TransactionID).Msg("Dead-letter event publish failed")
		}
	}
	return nil
}

// mirrorStatus propagates the terminal status to the idempotency index.
// Best-effort: the transaction record is authoritative, so a failed mirror
// write is logged and not retried.
func (w *Worker) mirrorStatus(ctx context.Context, log zerolog.Logger, t *transaction.Transaction) {
	if t.IdempotencyKey == nil {
		return
	}
	if err := w.idemRepo.UpdateStatus(ctx, *t.IdempotencyKey, t.Status); err != nil {
		log.Warn().Err(err).Msg("Idempotency status mirror failed")
	}
}

func (w *Worker) publishSettled(ctx context.Context, log zerolog.Logger, t *transaction.Transaction) {
	if w.events == nil {
		return
	}
	if err := w.events.PublishSettled(ctx, t); err != nil {
		log.Warn().Err(err).Msg("Settlement event publish failed")
	}
}

func (w *Worker) ack(ctx context.Context, msg queue.Message) error {
	if err := w.jobs.Delete(ctx, msg.ReceiptHandle); err != nil {
		return fmt.Errorf("ack message: %w", err)
	}
	return nil
}
