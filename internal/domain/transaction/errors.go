package transaction

import "errors"

var (
	ErrNotFound          = errors.New("transaction not found")
	ErrClientNotFound    = errors.New("client profile not found")
	ErrNotPending        = errors.New("transaction is not pending")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("transaction amount must be positive")
	ErrInvalidType       = errors.New("invalid transaction type")
)
