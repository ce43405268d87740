package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arvindkp/settlements/internal/application/settlement"
	"github.com/arvindkp/settlements/internal/config"
	"github.com/arvindkp/settlements/internal/controller"
	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/arvindkp/settlements/internal/providers"
	"github.com/arvindkp/settlements/internal/testutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	txRepo   *testutil.MockTransactionRepository
	idemRepo *testutil.MockIdempotencyRepository
	jobs     *testutil.MemoryQueue
	router   http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		txRepo:   testutil.NewMockTransactionRepository(),
		idemRepo: testutil.NewMockIdempotencyRepository(),
		jobs:     testutil.NewMemoryQueue(),
	}

	registry := providers.NewRegistry(providers.DefaultRegistryConfig(), providers.DefaultProviders()...)
	f.router = controller.NewRouter(controller.RouterDeps{
		Submit:   settlement.NewSubmitUseCase(f.txRepo, f.idemRepo, f.jobs, zerolog.Nop()),
		Get:      settlement.NewGetTransactionUseCase(f.txRepo),
		Registry: registry,
		Metrics:  testutil.NewTestMetrics(),
		CORSConfig: config.CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	})
	return f
}

func (f *apiFixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestTransactionController_Create(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/transactions",
		`{"clientId":"client-1","amount":50.00,"currency":"INR"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp controller.CreateTransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(transaction.StatusPending), resp.Status)

	id, err := uuid.Parse(resp.TransactionID)
	require.NoError(t, err)

	stored := f.txRepo.GetTransactionByID(id)
	require.NotNil(t, stored)
	assert.Equal(t, int64(5000), stored.AmountCents)
	assert.Equal(t, 1, f.jobs.Len())
}

func TestTransactionController_Create_WithIdempotencyKey(t *testing.T) {
	f := newAPIFixture(t)
	headers := map[string]string{"Idempotency-Key": "key-1"}

	first := f.do(http.MethodPost, "/api/v1/transactions",
		`{"clientId":"client-1","amount":50.00}`, headers)
	require.Equal(t, http.StatusCreated, first.Code)

	second := f.do(http.MethodPost, "/api/v1/transactions",
		`{"clientId":"client-1","amount":50.00}`, headers)
	require.Equal(t, http.StatusCreated, second.Code)

	var a, b controller.CreateTransactionResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.Equal(t, a.TransactionID, b.TransactionID)
	assert.Equal(t, 1, f.jobs.Len())
}

func TestTransactionController_Create_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing client id", `{"amount":50.00}`},
		{"missing amount", `{"clientId":"client-1"}`},
		{"zero amount", `{"clientId":"client-1","amount":0}`},
		{"negative amount", `{"clientId":"client-1","amount":-5}`},
		{"bad currency length", `{"clientId":"client-1","amount":50,"currency":"RUPEES"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			rec := f.do(http.MethodPost, "/api/v1/transactions", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, 0, f.jobs.Len())
		})
	}
}

func TestTransactionController_Get(t *testing.T) {
	f := newAPIFixture(t)

	tx := testutil.NewTestTransaction("client-1", 5000)
	require.NoError(t, tx.MarkSucceeded(2, "RAZORPAY-00042"))
	f.txRepo.AddTransaction(tx)

	rec := f.do(http.MethodGet, "/api/v1/transactions/"+tx.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp controller.TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, tx.ID.String(), resp.ID)
	assert.Equal(t, string(transaction.StatusSuccess), resp.Status)
	assert.Equal(t, 50.0, resp.Amount)
	assert.Equal(t, 2, resp.Attempts)
	require.NotNil(t, resp.ProviderRef)
	assert.Equal(t, "RAZORPAY-00042", *resp.ProviderRef)
}

func TestTransactionController_Get_NotFound(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/transactions/"+uuid.New().String(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransactionController_Get_InvalidID(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/transactions/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/health/providers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fleet map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fleet))
	assert.True(t, fleet["razorpay_mock"])
	assert.True(t, fleet["cashfree_mock"])
	assert.True(t, fleet["mock_provider"])
}
