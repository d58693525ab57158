package risk

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeState describes the lifecycle position of a verification
// challenge. Expiry and exhaustion are evaluated lazily at read time;
// no background sweeper is required for correctness.
type ChallengeState string

const (
	ChallengeActive    ChallengeState = "active"
	ChallengeVerified  ChallengeState = "verified"
	ChallengeExpired   ChallengeState = "expired"
	ChallengeExhausted ChallengeState = "exhausted"
)

// VerifyReason explains a verification outcome.
type VerifyReason string

const (
	ReasonVerified          VerifyReason = "verified"
	ReasonNoActiveChallenge VerifyReason = "no_active_challenge"
	ReasonExpired           VerifyReason = "expired"
	ReasonAttemptsExhausted VerifyReason = "attempts_exhausted"
	ReasonInvalidCode       VerifyReason = "invalid_code"
)

// VerifyResult is the typed outcome of a verification attempt.
type VerifyResult struct {
	Success           bool         `json:"success"`
	Reason            VerifyReason `json:"reason"`
	AttemptsRemaining int          `json:"attempts_remaining"`
}

// TransactionOTP is a one-time verification challenge bound to a single
// transaction. At most one unused challenge exists per transaction.
type TransactionOTP struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	UserID        uuid.UUID `json:"user_id"`

	// Code is the 6-digit secret. It is delivered out of band and never
	// returned over the assessment or challenge HTTP surface.
	Code string `json:"-"`

	Attempts    int  `json:"attempts"`
	MaxAttempts int  `json:"max_attempts"`
	Used        bool `json:"used"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewTransactionOTP creates an active challenge with the given code and
// time-to-live.
func NewTransactionOTP(transactionID, userID uuid.UUID, code string, ttl time.Duration, maxAttempts int) *TransactionOTP {
	now := time.Now()
	return &TransactionOTP{
		ID:            uuid.New(),
		TransactionID: transactionID,
		UserID:        userID,
		Code:          code,
		Attempts:      0,
		MaxAttempts:   maxAttempts,
		Used:          false,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
}

// IsExpired reports whether the challenge TTL has elapsed at the given
// instant.
func (o *TransactionOTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// IsExhausted reports whether the attempt budget is spent.
func (o *TransactionOTP) IsExhausted() bool {
	return o.Attempts >= o.MaxAttempts
}

// State derives the lifecycle state at the given instant. Exhaustion
// takes precedence over expiry so an exhausted challenge stays
// exhausted after its TTL elapses.
func (o *TransactionOTP) State(now time.Time) ChallengeState {
	if o.Used {
		return ChallengeVerified
	}
	if o.IsExhausted() {
		return ChallengeExhausted
	}
	if o.IsExpired(now) {
		return ChallengeExpired
	}
	return ChallengeActive
}

// IsValid reports whether a code submission could still succeed: the
// challenge is unused, unexpired and has attempts remaining.
func (o *TransactionOTP) IsValid(now time.Time) bool {
	return o.State(now) == ChallengeActive
}

// RecordFailure consumes one attempt after a code mismatch.
func (o *TransactionOTP) RecordFailure() {
	o.Attempts++
}

// MarkUsed finalizes the challenge so it can never be replayed.
func (o *TransactionOTP) MarkUsed() {
	o.Used = true
}

// AttemptsRemaining returns the attempts left before exhaustion, never
// negative.
func (o *TransactionOTP) AttemptsRemaining() int {
	if o.Attempts >= o.MaxAttempts {
		return 0
	}
	return o.MaxAttempts - o.Attempts
}
