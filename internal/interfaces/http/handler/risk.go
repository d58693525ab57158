package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"safenet-risk-service/internal/application/transfer"
	"safenet-risk-service/internal/domain/transaction"
)

// RiskHandler exposes transaction submission with inline assessment.
type RiskHandler struct {
	transfers *transfer.Service
	clients   transaction.ClientRepository
	log       *zap.Logger
}

func NewRiskHandler(transfers *transfer.Service, clients transaction.ClientRepository, log *zap.Logger) *RiskHandler {
	return &RiskHandler{transfers: transfers, clients: clients, log: log}
}

// Assess handles POST /api/v1/risk/assess. The response never carries
// the challenge code, only the receipt.
func (h *RiskHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var req transfer.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid client_id")
		return
	}

	client, err := h.clients.GetByID(r.Context(), clientID)
	if errors.Is(err, transaction.ErrClientNotFound) {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		h.log.Error("client lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	outcome, err := h.transfers.Submit(r.Context(), client, req)
	switch {
	case errors.Is(err, transaction.ErrInvalidType),
		errors.Is(err, transaction.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, transaction.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		h.log.Error("submission failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusOK
	if outcome.Assessment.RequiresOTP {
		status = http.StatusAccepted
	}
	writeJSON(w, status, outcome)
}
