package controller

import (
	"net/http"

	"github.com/arvindkp/settlements/internal/application/settlement"
	"github.com/arvindkp/settlements/internal/observability"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// TransactionController handles settlement transaction HTTP requests.
type TransactionController struct {
	submit  *settlement.SubmitUseCase
	get     *settlement.GetTransactionUseCase
	metrics *observability.Metrics
}

// NewTransactionController creates a new TransactionController.
func NewTransactionController(
	submit *settlement.SubmitUseCase,
	get *settlement.GetTransactionUseCase,
	metrics *observability.Metrics,
) *TransactionController {
	return &TransactionController{submit: submit, get: get, metrics: metrics}
}

// Create handles POST /api/v1/transactions
func (h *TransactionController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amountCents := floatToCents(*req.Amount)
	resp, err := h.submit.Execute(r.Context(), settlement.SubmitRequest{
		ClientID:       req.ClientID,
		AmountCents:    &amountCents,
		Currency:       req.Currency,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Metadata:       req.Metadata,
	})
	if err != nil {
		h.metrics.TransactionsSubmitted.WithLabelValues("error").Inc()
		writeError(w, err)
		return
	}

	if resp.Replayed {
		h.metrics.IdempotencyHits.Inc()
		h.metrics.TransactionsSubmitted.WithLabelValues("replayed").Inc()
	} else {
		h.metrics.TransactionsSubmitted.WithLabelValues("accepted").Inc()
	}

	writeJSON(w, http.StatusCreated, CreateTransactionResponse{
		TransactionID: resp.TransactionID,
		Status:        string(resp.Status),
	})
}

// Get handles GET /api/v1/transactions/{id}
func (h *TransactionController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid transaction id", Code: "invalid_id"})
		return
	}

	t, err := h.get.Execute(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromTransaction(t))
}
