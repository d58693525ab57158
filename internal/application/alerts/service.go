package alerts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"safenet-risk-service/internal/domain/risk"
	"safenet-risk-service/internal/domain/transaction"
)

// Service is the alert review workflow. Reviewers either approve the
// flagged transaction, letting it settle, or reject it, cancelling the
// transaction. Review is the only path that mutates alert status.
type Service struct {
	alerts       risk.AlertRepository
	transactions transaction.Repository
	settler      transaction.Settler
	log          *zap.Logger
}

func NewService(alerts risk.AlertRepository, transactions transaction.Repository, settler transaction.Settler, log *zap.Logger) *Service {
	return &Service{alerts: alerts, transactions: transactions, settler: settler, log: log}
}

func (s *Service) List(ctx context.Context, status risk.AlertStatus, limit, offset int) ([]*risk.FraudAlert, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.alerts.List(ctx, status, limit, offset)
}

// Approve clears the alert and settles its transaction if it is still
// pending.
func (s *Service) Approve(ctx context.Context, alertID uuid.UUID) (*risk.FraudAlert, error) {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if err := alert.Review(); err != nil {
		return nil, err
	}

	tx, err := s.transactions.GetByID(ctx, alert.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status == transaction.StatusPending {
		if err := s.settler.Settle(ctx, tx); err != nil {
			return nil, fmt.Errorf("settle approved transaction: %w", err)
		}
		if err := tx.Complete(); err != nil {
			return nil, err
		}
		if err := s.transactions.Update(ctx, tx); err != nil {
			return nil, err
		}
	}

	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}

	s.log.Info("fraud alert approved",
		zap.String("alert_id", alert.ID.String()),
		zap.String("transaction_id", alert.TransactionID.String()),
	)
	return alert, nil
}

// Reject resolves the alert and cancels its transaction if it is still
// pending. No funds move.
func (s *Service) Reject(ctx context.Context, alertID uuid.UUID) (*risk.FraudAlert, error) {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if err := alert.Resolve(); err != nil {
		return nil, err
	}

	tx, err := s.transactions.GetByID(ctx, alert.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status == transaction.StatusPending {
		if err := tx.Cancel(); err != nil {
			return nil, err
		}
		if err := s.transactions.Update(ctx, tx); err != nil {
			return nil, err
		}
	}

	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}

	s.log.Info("fraud alert rejected",
		zap.String("alert_id", alert.ID.String()),
		zap.String("transaction_id", alert.TransactionID.String()),
	)
	return alert, nil
}
