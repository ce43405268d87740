package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/arvindkp/settlements/internal/providers"
	"github.com/google/uuid"
)

// --- Transaction Repository Mock ---

// MockTransactionRepository is a map-backed mock of the settlement store. Its
// default behavior mirrors the real repository: status-guarded updates that
// never regress a terminal state or decrease attempts.
type MockTransactionRepository struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]*transaction.Transaction

	CreateFunc        func(ctx context.Context, t *transaction.Transaction) error
	GetByIDFunc       func(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	MarkSucceededFunc func(ctx context.Context, id uuid.UUID, attempts int, providerRef string) (*transaction.Transaction, error)
	RecordFailureFunc func(ctx context.Context, id uuid.UUID, attempts int, lastError string) (*transaction.Transaction, error)
	MarkFailedFunc    func(ctx context.Context, id uuid.UUID, attempts int, lastError string) (*transaction.Transaction, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		transactions: make(map[uuid.UUID]*transaction.Transaction),
	}
}

// AddTransaction pre-populates the mock with a transaction.
func (m *MockTransactionRepository) AddTransaction(t *transaction.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = t
}

func (m *MockTransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = t
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (m *MockTransactionRepository) MarkSucceeded(ctx context.Context, id uuid.UUID, attempts int, providerRef string) (*transaction.Transaction, error) {
	if m.MarkSucceededFunc != nil {
		return m.MarkSucceededFunc(ctx, id, attempts, providerRef)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", id)
	}
	if t.Status == transaction.StatusPending {
		t.Status = transaction.StatusSuccess
		if attempts > t.Attempts {
			t.Attempts = attempts
		}
		t.ProviderRef = &providerRef
	}
	copied := *t
	return &copied, nil
}

func (m *MockTransactionRepository) RecordFailure(ctx context.Context, id uuid.UUID, attempts int, lastError string) (*transaction.Transaction, error) {
	if m.RecordFailureFunc != nil {
		return m.RecordFailureFunc(ctx, id, attempts, lastError)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", id)
	}
	if t.Status == transaction.StatusPending {
		if attempts > t.Attempts {
			t.Attempts = attempts
		}
		t.LastError = &lastError
	}
	copied := *t
	return &copied, nil
}

func (m *MockTransactionRepository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) (*transaction.Transaction, error) {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id, attempts, lastError)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", id)
	}
	if t.Status == transaction.StatusPending {
		t.Status = transaction.StatusFailed
		if attempts > t.Attempts {
			t.Attempts = attempts
		}
		t.LastError = &lastError
	}
	copied := *t
	return &copied, nil
}

// GetTransactionByID returns the stored transaction (test helper, no context
// needed).
func (m *MockTransactionRepository) GetTransactionByID(id uuid.UUID) *transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactions[id]
}

// --- Idempotency Repository Mock ---

// MockIdempotencyRepository is a map-backed mock of the idempotency index.
type MockIdempotencyRepository struct {
	mu      sync.Mutex
	records map[string]*transaction.IdempotencyRecord

	GetFunc          func(ctx context.Context, key string) (*transaction.IdempotencyRecord, error)
	PutFunc          func(ctx context.Context, rec *transaction.IdempotencyRecord) error
	UpdateStatusFunc func(ctx context.Context, key string, status transaction.Status) error
}

func NewMockIdempotencyRepository() *MockIdempotencyRepository {
	return &MockIdempotencyRepository{
		records: make(map[string]*transaction.IdempotencyRecord),
	}
}

func (m *MockIdempotencyRepository) Get(ctx context.Context, key string) (*transaction.IdempotencyRecord, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (m *MockIdempotencyRepository) Put(ctx context.Context, rec *transaction.IdempotencyRecord) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.Key]; !exists {
		m.records[rec.Key] = rec
	}
	return nil
}

func (m *MockIdempotencyRepository) UpdateStatus(ctx context.Context, key string, status transaction.Status) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, key, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[key]; ok {
		rec.Status = status
	}
	return nil
}

// GetRecord returns the stored record (test helper, no context needed).
func (m *MockIdempotencyRepository) GetRecord(key string) *transaction.IdempotencyRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[key]
}

// --- Event Publisher Mock ---

// MockEventPublisher records published events.
type MockEventPublisher struct {
	mu          sync.Mutex
	Settled     []*transaction.Transaction
	DeadLetters []*transaction.DeadLetterJob

	PublishSettledFunc    func(ctx context.Context, t *transaction.Transaction) error
	PublishDeadLetterFunc func(ctx context.Context, d *transaction.DeadLetterJob) error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) PublishSettled(ctx context.Context, t *transaction.Transaction) error {
	if m.PublishSettledFunc != nil {
		return m.PublishSettledFunc(ctx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Settled = append(m.Settled, t)
	return nil
}

func (m *MockEventPublisher) PublishDeadLetter(ctx context.Context, d *transaction.DeadLetterJob) error {
	if m.PublishDeadLetterFunc != nil {
		return m.PublishDeadLetterFunc(ctx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeadLetters = append(m.DeadLetters, d)
	return nil
}

// --- Scripted Provider ---

// ScriptedProvider returns pre-programmed charge results in order, then
// repeats the last one. A nil result entry means "return an error".
type ScriptedProvider struct {
	mu      sync.Mutex
	name    string
	results []*providers.ChargeResult
	calls   int
}

func NewScriptedProvider(name string, results ...*providers.ChargeResult) *ScriptedProvider {
	return &ScriptedProvider{name: name, results: results}
}

func (p *ScriptedProvider) Name() string {
	return p.name
}

func (p *ScriptedProvider) Charge(ctx context.Context, t *transaction.Transaction) (*providers.ChargeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.calls
	if idx >= len(p.results) {
		idx = len(p.results) - 1
	}
	p.calls++
	if idx < 0 || p.results[idx] == nil {
		return nil, fmt.Errorf("%s: connection refused", p.name)
	}
	return p.results[idx], nil
}

// Calls returns how many charges were attempted.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
