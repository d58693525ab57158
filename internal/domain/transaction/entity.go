package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"safenet-risk-service/internal/pkg/geo"
)

// Status represents the current state of a transaction
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Type categorizes the type of transaction
type Type string

const (
	TypeDeposit  Type = "deposit"
	TypeWithdraw Type = "withdraw"
	TypeTransfer Type = "transfer"
)

// IsDebit reports whether the transaction type moves money out of the
// client's account.
func (t Type) IsDebit() bool {
	return t == TypeWithdraw || t == TypeTransfer
}

// Transaction represents a single transfer attempt flowing through the
// risk pipeline. Risk metadata is written by the assessment and the
// terminal status by the challenge outcome.
type Transaction struct {
	ID       uuid.UUID `json:"id"`
	ClientID uuid.UUID `json:"client_id"`

	Type            Type            `json:"type"`
	Status          Status          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	ToAccountNumber string          `json:"to_account_number,omitempty"`

	// Declared location of the current attempt. Optional; the risk
	// engine falls back to the client's last-verified location.
	CurrentLocation *geo.Point `json:"current_location,omitempty"`

	// Risk metadata set by assessment.
	RiskScore int      `json:"risk_score"`
	Triggers  []string `json:"triggers,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a pending transaction for a client.
func New(clientID uuid.UUID, txType Type, amount decimal.Decimal, currency string) *Transaction {
	now := time.Now()
	return &Transaction{
		ID:        uuid.New(),
		ClientID:  clientID,
		Type:      txType,
		Status:    StatusPending,
		Amount:    amount,
		Currency:  currency,
		Triggers:  make([]string, 0),
		Timestamp: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetRisk records the assessment outcome on the transaction.
func (t *Transaction) SetRisk(score int, triggers []string) {
	t.RiskScore = score
	t.Triggers = triggers
	t.UpdatedAt = time.Now()
}

// Complete marks the transaction as completed.
func (t *Transaction) Complete() error {
	if t.Status != StatusPending {
		return ErrNotPending
	}
	t.Status = StatusCompleted
	t.UpdatedAt = time.Now()
	return nil
}

// Fail marks the transaction as failed.
func (t *Transaction) Fail() {
	t.Status = StatusFailed
	t.UpdatedAt = time.Now()
}

// Cancel marks the transaction as cancelled.
func (t *Transaction) Cancel() error {
	if t.Status != StatusPending {
		return ErrNotPending
	}
	t.Status = StatusCancelled
	t.UpdatedAt = time.Now()
	return nil
}

// ClientProfile is one account holder. Location fields are optional:
// home coordinates are set at registration, last-verified coordinates
// only after a successful step-up verification or an unchallenged
// completion.
type ClientProfile struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"user_id"`
	FullName          string          `json:"full_name"`
	Email             string          `json:"email"`
	BankAccountNumber string          `json:"bank_account_number"`
	Balance           decimal.Decimal `json:"balance"`

	// Running statistics over historical transaction amounts,
	// refreshed out-of-band by the statistics job.
	AvgAmount float64 `json:"avg_amount"`
	StdAmount float64 `json:"std_amount"`

	HomeLocation         *geo.Point `json:"home_location,omitempty"`
	LastVerifiedLocation *geo.Point `json:"last_verified_location,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountAgeDays returns the age of the account in days at the given
// instant.
func (c *ClientProfile) AccountAgeDays(now time.Time) float64 {
	if c.CreatedAt.IsZero() || now.Before(c.CreatedAt) {
		return 0
	}
	return now.Sub(c.CreatedAt).Hours() / 24
}

// VerifyLocation records the coordinates of a successfully verified
// transaction as the new trusted reference point.
func (c *ClientProfile) VerifyLocation(p *geo.Point) {
	if p == nil {
		return
	}
	loc := *p
	c.LastVerifiedLocation = &loc
	c.UpdatedAt = time.Now()
}

// Debit reduces the client balance. The balance must cover the amount.
func (c *ClientProfile) Debit(amount decimal.Decimal) error {
	if c.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	c.Balance = c.Balance.Sub(amount)
	c.UpdatedAt = time.Now()
	return nil
}

// Credit increases the client balance.
func (c *ClientProfile) Credit(amount decimal.Decimal) {
	c.Balance = c.Balance.Add(amount)
	c.UpdatedAt = time.Now()
}
