package risk

import (
	"context"
	"time"

	"github.com/google/uuid"

	"safenet-risk-service/internal/domain/transaction"
)

// AlertRepository persists fraud alerts with at-most-one-per-transaction
// semantics.
type AlertRepository interface {
	// GetOrCreate inserts the alert unless one already exists for its
	// transaction, in which case the existing alert is returned and
	// created is false. The check-and-insert is atomic under concurrent
	// callers.
	GetOrCreate(ctx context.Context, alert *FraudAlert) (stored *FraudAlert, created bool, err error)

	GetByID(ctx context.Context, id uuid.UUID) (*FraudAlert, error)
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*FraudAlert, error)
	List(ctx context.Context, status AlertStatus, limit, offset int) ([]*FraudAlert, error)
	Update(ctx context.Context, alert *FraudAlert) error
}

// OTPRepository persists verification challenges.
type OTPRepository interface {
	Create(ctx context.Context, otp *TransactionOTP) error

	// ActiveByTransaction returns the single unused challenge for the
	// transaction and user, or ErrNoActiveChallenge.
	ActiveByTransaction(ctx context.Context, transactionID, userID uuid.UUID) (*TransactionOTP, error)

	Update(ctx context.Context, otp *TransactionOTP) error

	// DeleteUnused removes unused challenges for the transaction and
	// returns how many were removed. Called before issuing a
	// replacement so at most one challenge is ever live.
	DeleteUnused(ctx context.Context, transactionID uuid.UUID) (int64, error)

	// DeleteExpired removes unused challenges whose TTL elapsed before
	// the cutoff. Housekeeping only; correctness never depends on it.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// ThresholdRepository reads numeric threshold overrides from the
// registry. Keys follow the registry naming in thresholds.go.
type ThresholdRepository interface {
	All(ctx context.Context) (map[string]float64, error)
}

// RuleRepository reads per-rule enablement from the registry.
type RuleRepository interface {
	Enabled(ctx context.Context) (map[string]bool, error)
}

// Notifier delivers out-of-band messages to clients. Implementations
// must not surface the OTP code anywhere except the delivery channel.
type Notifier interface {
	SendOTP(ctx context.Context, client *transaction.ClientProfile, tx *transaction.Transaction, code string) error
	SendFraudAlert(ctx context.Context, client *transaction.ClientProfile, tx *transaction.Transaction, alert *FraudAlert) error
}
