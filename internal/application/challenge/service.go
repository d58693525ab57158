package challenge

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"safenet-risk-service/internal/domain/risk"
	"safenet-risk-service/internal/domain/transaction"
	"safenet-risk-service/internal/pkg/metrics"
)

// ConfigProvider supplies the challenge TTL and attempt budget.
type ConfigProvider interface {
	Snapshot(ctx context.Context) risk.Config
}

// Receipt describes an issued challenge. The code itself travels only
// through the notifier.
type Receipt struct {
	ChallengeID   uuid.UUID `json:"challenge_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	MaxAttempts   int       `json:"max_attempts"`
}

// Service manages the verification challenge lifecycle. Verification
// attempts against the same transaction are serialized so the attempt
// counter and single-use flag observe every submission.
type Service struct {
	otps         risk.OTPRepository
	transactions transaction.Repository
	clients      transaction.ClientRepository
	settler      transaction.Settler
	notifier     risk.Notifier
	snapshots    ConfigProvider
	metrics      *metrics.Metrics
	log          *zap.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewService(
	otps risk.OTPRepository,
	transactions transaction.Repository,
	clients transaction.ClientRepository,
	settler transaction.Settler,
	notifier risk.Notifier,
	snapshots ConfigProvider,
	m *metrics.Metrics,
	log *zap.Logger,
) *Service {
	return &Service{
		otps:         otps,
		transactions: transactions,
		clients:      clients,
		settler:      settler,
		notifier:     notifier,
		snapshots:    snapshots,
		metrics:      m,
		log:          log,
		locks:        map[uuid.UUID]*sync.Mutex{},
	}
}

// lockFor returns the mutex serializing operations on one transaction.
// Entries are never removed; the map is bounded by the number of
// challenged transactions in a process lifetime.
func (s *Service) lockFor(transactionID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[transactionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[transactionID] = l
	}
	return l
}

// generateCode produces a uniformly random 6-digit code, leading zeros
// included.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Create issues a fresh challenge for the transaction, replacing any
// unused one so at most a single challenge is live. A notifier failure
// keeps the challenge valid and is reported as ErrDispatchFailed so the
// caller can offer a resend.
func (s *Service) Create(ctx context.Context, tx *transaction.Transaction, client *transaction.ClientProfile) (*Receipt, error) {
	lock := s.lockFor(tx.ID)
	lock.Lock()
	defer lock.Unlock()

	cfg := s.snapshots.Snapshot(ctx)

	if _, err := s.otps.DeleteUnused(ctx, tx.ID); err != nil {
		return nil, fmt.Errorf("replace challenge: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	otp := risk.NewTransactionOTP(tx.ID, client.UserID, code, cfg.OTPTTL, cfg.OTPMaxAttempts)
	if err := s.otps.Create(ctx, otp); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ChallengesIssued.Inc()
	}

	receipt := &Receipt{
		ChallengeID:   otp.ID,
		TransactionID: tx.ID,
		ExpiresAt:     otp.ExpiresAt,
		MaxAttempts:   otp.MaxAttempts,
	}

	if err := s.notifier.SendOTP(ctx, client, tx, code); err != nil {
		s.log.Warn("challenge dispatch failed, challenge kept",
			zap.String("transaction_id", tx.ID.String()), zap.Error(err))
		return receipt, fmt.Errorf("%w: %v", risk.ErrDispatchFailed, err)
	}

	s.log.Info("challenge issued",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("challenge_id", otp.ID.String()),
		zap.Time("expires_at", otp.ExpiresAt),
	)
	return receipt, nil
}

// Resend redelivers the active challenge code. An expired or exhausted
// challenge is replaced with a fresh one.
func (s *Service) Resend(ctx context.Context, transactionID uuid.UUID) (*Receipt, error) {
	tx, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.GetByID(ctx, tx.ClientID)
	if err != nil {
		return nil, err
	}

	lock := s.lockFor(tx.ID)
	lock.Lock()
	otp, err := s.otps.ActiveByTransaction(ctx, tx.ID, client.UserID)
	if err == nil && otp.IsValid(time.Now()) {
		code := otp.Code
		receipt := &Receipt{
			ChallengeID:   otp.ID,
			TransactionID: tx.ID,
			ExpiresAt:     otp.ExpiresAt,
			MaxAttempts:   otp.MaxAttempts,
		}
		lock.Unlock()

		if err := s.notifier.SendOTP(ctx, client, tx, code); err != nil {
			return receipt, fmt.Errorf("%w: %v", risk.ErrDispatchFailed, err)
		}
		return receipt, nil
	}
	lock.Unlock()

	return s.Create(ctx, tx, client)
}

// Verify checks a submitted code. On success the challenge is consumed,
// funds settle, the transaction completes and the origin becomes the
// client's trusted reference point. Every failure outcome is a typed
// result, not an error; errors mean infrastructure trouble.
func (s *Service) Verify(ctx context.Context, transactionID uuid.UUID, code string) (risk.VerifyResult, error) {
	tx, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return risk.VerifyResult{}, err
	}
	client, err := s.clients.GetByID(ctx, tx.ClientID)
	if err != nil {
		return risk.VerifyResult{}, err
	}

	lock := s.lockFor(tx.ID)
	lock.Lock()
	defer lock.Unlock()

	result, err := s.verifyLocked(ctx, tx, client, code)
	if err != nil {
		return risk.VerifyResult{}, err
	}

	if s.metrics != nil {
		s.metrics.Verifications.WithLabelValues(string(result.Reason)).Inc()
	}
	s.log.Info("challenge verification",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("reason", string(result.Reason)),
		zap.Bool("success", result.Success),
	)
	return result, nil
}

func (s *Service) verifyLocked(ctx context.Context, tx *transaction.Transaction, client *transaction.ClientProfile, code string) (risk.VerifyResult, error) {
	otp, err := s.otps.ActiveByTransaction(ctx, tx.ID, client.UserID)
	if errors.Is(err, risk.ErrNoActiveChallenge) {
		return risk.VerifyResult{Reason: risk.ReasonNoActiveChallenge}, nil
	}
	if err != nil {
		return risk.VerifyResult{}, err
	}

	now := time.Now()

	if otp.IsExhausted() {
		otp.MarkUsed()
		if err := s.otps.Update(ctx, otp); err != nil {
			return risk.VerifyResult{}, err
		}
		return risk.VerifyResult{Reason: risk.ReasonAttemptsExhausted}, nil
	}

	if otp.IsExpired(now) {
		otp.MarkUsed()
		if err := s.otps.Update(ctx, otp); err != nil {
			return risk.VerifyResult{}, err
		}
		return risk.VerifyResult{Reason: risk.ReasonExpired}, nil
	}

	if otp.Code != code {
		otp.RecordFailure()
		if err := s.otps.Update(ctx, otp); err != nil {
			return risk.VerifyResult{}, err
		}
		return risk.VerifyResult{
			Reason:            risk.ReasonInvalidCode,
			AttemptsRemaining: otp.AttemptsRemaining(),
		}, nil
	}

	otp.MarkUsed()
	if err := s.otps.Update(ctx, otp); err != nil {
		return risk.VerifyResult{}, err
	}

	if err := s.settler.Settle(ctx, tx); err != nil {
		return risk.VerifyResult{}, fmt.Errorf("settle after verification: %w", err)
	}
	if err := tx.Complete(); err != nil {
		return risk.VerifyResult{}, err
	}
	if err := s.transactions.Update(ctx, tx); err != nil {
		return risk.VerifyResult{}, err
	}

	// The verified origin becomes the trusted reference point.
	if tx.CurrentLocation != nil {
		client.VerifyLocation(tx.CurrentLocation)
		if err := s.clients.Update(ctx, client); err != nil {
			return risk.VerifyResult{}, err
		}
	}

	return risk.VerifyResult{Success: true, Reason: risk.ReasonVerified}, nil
}

// Cleanup removes unused challenges past their TTL. Lazy state checks
// keep correctness independent of this job; it only reclaims rows.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	return s.otps.DeleteExpired(ctx, time.Now())
}
