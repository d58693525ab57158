package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages transaction persistence. Count and last-completed
// reads back the risk engine's history queries; slight staleness is
// acceptable there (a missed just-now transaction only lowers the
// frequency score marginally).
type Repository interface {
	// Create stores a new transaction
	Create(ctx context.Context, tx *Transaction) error

	// GetByID retrieves a transaction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// Update persists transaction mutations (status, risk metadata)
	Update(ctx context.Context, tx *Transaction) error

	// CountSince counts a client's transactions with timestamps at or
	// after the given instant
	CountSince(ctx context.Context, clientID uuid.UUID, since time.Time) (int64, error)

	// LastCompleted returns the client's most recent completed
	// transaction strictly before the given one, or ErrNotFound
	LastCompleted(ctx context.Context, clientID uuid.UUID, before time.Time) (*Transaction, error)

	// ListByClient retrieves a client's transactions, newest first
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Transaction, error)
}

// ClientRepository manages client profiles.
type ClientRepository interface {
	// GetByID retrieves a client profile by ID
	GetByID(ctx context.Context, id uuid.UUID) (*ClientProfile, error)

	// GetByAccountNumber retrieves a client profile by bank account number
	GetByAccountNumber(ctx context.Context, account string) (*ClientProfile, error)

	// Update persists profile mutations (balance, statistics, locations)
	Update(ctx context.Context, client *ClientProfile) error
}

// Settler applies balance movement for a completed transaction. It is
// invoked by the challenge flow once a step-up succeeds, and by the
// low/medium risk completion paths.
type Settler interface {
	Settle(ctx context.Context, tx *Transaction) error
}
