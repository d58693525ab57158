package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"safenet-risk-service/internal/application/alerts"
	"safenet-risk-service/internal/domain/risk"
)

// AlertHandler exposes the fraud alert review workflow.
type AlertHandler struct {
	alerts *alerts.Service
	log    *zap.Logger
}

func NewAlertHandler(service *alerts.Service, log *zap.Logger) *AlertHandler {
	return &AlertHandler{alerts: service, log: log}
}

// List handles GET /api/v1/alerts?status=active&limit=50&offset=0.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	status := risk.AlertStatus(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.alerts.List(r.Context(), status, limit, offset)
	if err != nil {
		h.log.Error("alert listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": list})
}

// Approve handles POST /api/v1/alerts/{id}/approve.
func (h *AlertHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.alerts.Approve)
}

// Reject handles POST /api/v1/alerts/{id}/reject.
func (h *AlertHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.alerts.Reject)
}

func (h *AlertHandler) review(w http.ResponseWriter, r *http.Request, act func(ctx context.Context, id uuid.UUID) (*risk.FraudAlert, error)) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	alert, err := act(r.Context(), id)
	if errors.Is(err, risk.ErrAlertNotFound) {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	if errors.Is(err, risk.ErrAlertAlreadyReviewed) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.log.Error("alert review failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, alert)
}
