package transaction

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arvindkp/settlements/internal/domain/errors"
	"github.com/google/uuid"
)

// jobSchemaVersion is the current settlement job schema. Version 0 is accepted
// for payloads produced before the field existed.
const jobSchemaVersion = 1

// SettlementJob is the queue message payload representing "attempt to charge
// this transaction". Attempts is a scheduling hint carried on requeue; the
// stored transaction is authoritative for the attempt count.
type SettlementJob struct {
	Version       int    `json:"version,omitempty"`
	TransactionID string `json:"transactionId"`
	ClientID      string `json:"clientId"`
	AmountCents   int64  `json:"amount"`
	Currency      string `json:"currency"`
	Attempts      int    `json:"attempts,omitempty"`
}

// NewSettlementJob builds the job for a freshly created transaction.
func NewSettlementJob(t *Transaction) *SettlementJob {
	return &SettlementJob{
		Version:       jobSchemaVersion,
		TransactionID: t.ID.String(),
		ClientID:      t.ClientID,
		AmountCents:   t.AmountCents,
		Currency:      t.Currency,
	}
}

// Encode serializes the job for the queue.
func (j *SettlementJob) Encode() (string, error) {
	b, err := json.Marshal(j)
	if err != nil {
		return "", fmt.Errorf("encode settlement job: %w", err)
	}
	return string(b), nil
}

// TransactionUUID parses the job's transaction id.
func (j *SettlementJob) TransactionUUID() (uuid.UUID, error) {
	return uuid.Parse(j.TransactionID)
}

// DecodeSettlementJob parses and validates a queue message body. Anything that
// fails schema validation is rejected so a producer bug is never masked by a
// guessed-at payload.
func DecodeSettlementJob(body string) (*SettlementJob, error) {
	var j SettlementJob
	if err := json.Unmarshal([]byte(body), &j); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedJob, err)
	}
	if j.Version > jobSchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", errors.ErrMalformedJob, j.Version)
	}
	if _, err := uuid.Parse(j.TransactionID); err != nil {
		return nil, fmt.Errorf("%w: bad transactionId %q", errors.ErrMalformedJob, j.TransactionID)
	}
	if j.ClientID == "" {
		return nil, fmt.Errorf("%w: missing clientId", errors.ErrMalformedJob)
	}
	if j.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: non-positive amount", errors.ErrMalformedJob)
	}
	if j.Currency == "" {
		return nil, fmt.Errorf("%w: missing currency", errors.ErrMalformedJob)
	}
	if j.Attempts < 0 {
		return nil, fmt.Errorf("%w: negative attempts", errors.ErrMalformedJob)
	}
	return &j, nil
}

// DeadLetterJob is the payload routed to the dead-letter destination when a
// job exhausts its retries or no healthy provider is available.
type DeadLetterJob struct {
	SettlementJob
	FailureReason string    `json:"failureReason"`
	FailedAt      time.Time `json:"failedAt"`
}

// NewDeadLetterJob tags a job with its terminal failure context.
func NewDeadLetterJob(j *SettlementJob, attempts int, reason string) *DeadLetterJob {
	dl := &DeadLetterJob{
		SettlementJob: *j,
		FailureReason: reason,
		FailedAt:      time.Now().UTC(),
	}
	dl.Attempts = attempts
	return dl
}

// Encode serializes the dead-letter payload.
func (d *DeadLetterJob) Encode() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode dead-letter job: %w", err)
	}
	return string(b), nil
}
