package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"safenet-risk-service/internal/application/challenge"
	"safenet-risk-service/internal/domain/risk"
	"safenet-risk-service/internal/domain/transaction"
)

// ChallengeHandler exposes verification and resend for pending
// transactions.
type ChallengeHandler struct {
	challenges *challenge.Service
	log        *zap.Logger
}

func NewChallengeHandler(challenges *challenge.Service, log *zap.Logger) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges, log: log}
}

type verifyRequest struct {
	Code string `json:"code"`
}

// Verify handles POST /api/v1/challenges/{transaction_id}/verify.
// Failure outcomes are 200 responses with a typed reason; only
// infrastructure trouble is a 5xx.
func (h *ChallengeHandler) Verify(w http.ResponseWriter, r *http.Request) {
	transactionID, err := uuid.Parse(r.PathValue("transaction_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Code) != 6 {
		writeError(w, http.StatusBadRequest, "code must be 6 digits")
		return
	}

	result, err := h.challenges.Verify(r.Context(), transactionID, req.Code)
	if errors.Is(err, transaction.ErrNotFound) || errors.Is(err, transaction.ErrClientNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		h.log.Error("verification failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Resend handles POST /api/v1/challenges/{transaction_id}/resend.
func (h *ChallengeHandler) Resend(w http.ResponseWriter, r *http.Request) {
	transactionID, err := uuid.Parse(r.PathValue("transaction_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	receipt, err := h.challenges.Resend(r.Context(), transactionID)
	if errors.Is(err, transaction.ErrNotFound) || errors.Is(err, transaction.ErrClientNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if errors.Is(err, risk.ErrDispatchFailed) {
		writeJSON(w, http.StatusBadGateway, receipt)
		return
	}
	if err != nil {
		h.log.Error("resend failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}
