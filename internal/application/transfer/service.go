package transfer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"safenet-risk-service/internal/application/assessment"
	"safenet-risk-service/internal/application/challenge"
	"safenet-risk-service/internal/domain/risk"
	"safenet-risk-service/internal/domain/transaction"
	"safenet-risk-service/internal/pkg/geo"
)

// Request is one submitted transaction.
type Request struct {
	ClientID  string          `json:"client_id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	ToAccount string          `json:"to_account,omitempty"`
	Location  *geo.Point      `json:"location,omitempty"`
}

// Outcome is the result of a submission: the stored transaction, its
// assessment and, when a step-up is required, the challenge receipt.
type Outcome struct {
	Transaction *transaction.Transaction `json:"transaction"`
	Assessment  *risk.Assessment         `json:"assessment"`
	Challenge   *challenge.Receipt       `json:"challenge,omitempty"`
}

// Service orchestrates submission: persist, assess, then either settle
// immediately or hold the transaction pending verification.
type Service struct {
	transactions transaction.Repository
	clients      transaction.ClientRepository
	settler      transaction.Settler
	assessor     *assessment.Service
	challenges   *challenge.Service
	log          *zap.Logger
}

func NewService(
	transactions transaction.Repository,
	clients transaction.ClientRepository,
	settler transaction.Settler,
	assessor *assessment.Service,
	challenges *challenge.Service,
	log *zap.Logger,
) *Service {
	return &Service{
		transactions: transactions,
		clients:      clients,
		settler:      settler,
		assessor:     assessor,
		challenges:   challenges,
		log:          log,
	}
}

// Submit runs the full flow for one transaction. A required challenge
// leaves the transaction pending; an unchallenged one settles and
// completes in the same call. Assessment always happens before any
// funds move.
func (s *Service) Submit(ctx context.Context, client *transaction.ClientProfile, req Request) (*Outcome, error) {
	txType := transaction.Type(req.Type)
	switch txType {
	case transaction.TypeDeposit, transaction.TypeWithdraw, transaction.TypeTransfer:
	default:
		return nil, transaction.ErrInvalidType
	}
	if !req.Amount.IsPositive() {
		return nil, transaction.ErrInvalidAmount
	}
	if txType.IsDebit() && client.Balance.LessThan(req.Amount) {
		return nil, transaction.ErrInsufficientFunds
	}

	tx := transaction.New(client.ID, txType, req.Amount, req.Currency)
	tx.ToAccountNumber = req.ToAccount
	if req.Location != nil {
		loc := *req.Location
		tx.CurrentLocation = &loc
	}

	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("store transaction: %w", err)
	}

	asmt, err := s.assessor.Assess(ctx, tx, client)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Transaction: tx, Assessment: asmt}

	if asmt.RequiresOTP {
		receipt, err := s.challenges.Create(ctx, tx, client)
		if receipt != nil {
			outcome.Challenge = receipt
		}
		// A dispatch failure still holds the transaction pending; the
		// client can ask for a resend.
		if err != nil && outcome.Challenge == nil {
			return nil, err
		}
		return outcome, nil
	}

	if err := s.settler.Settle(ctx, tx); err != nil {
		tx.Fail()
		if uerr := s.transactions.Update(ctx, tx); uerr != nil {
			s.log.Error("failed to record settlement failure", zap.Error(uerr))
		}
		return nil, err
	}
	if err := tx.Complete(); err != nil {
		return nil, err
	}
	if err := s.transactions.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("finalize transaction: %w", err)
	}

	// An unchallenged completion is trusted too: its origin becomes the
	// client's last-verified reference point.
	if tx.CurrentLocation != nil {
		client.VerifyLocation(tx.CurrentLocation)
		if err := s.clients.Update(ctx, client); err != nil {
			s.log.Warn("trusted location update failed",
				zap.String("client_id", client.ID.String()), zap.Error(err))
		}
	}

	return outcome, nil
}
