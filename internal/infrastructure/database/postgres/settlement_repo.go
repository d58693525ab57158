package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"safenet-risk-service/internal/domain/transaction"
)

// SettlementRepository moves funds for a completing transaction inside
// a single database transaction. Client rows are locked for the
// duration so concurrent settlements against the same account
// serialize.
type SettlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

func (r *SettlementRepository) Settle(ctx context.Context, t *transaction.Transaction) error {
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		var sender ClientModel
		err := dbtx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&sender, "id = ?", t.ClientID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return transaction.ErrClientNotFound
		}
		if err != nil {
			return fmt.Errorf("lock sender: %w", err)
		}

		switch t.Type {
		case transaction.TypeDeposit:
			sender.Balance = sender.Balance.Add(t.Amount)

		case transaction.TypeWithdraw:
			if sender.Balance.LessThan(t.Amount) {
				return transaction.ErrInsufficientFunds
			}
			sender.Balance = sender.Balance.Sub(t.Amount)

		case transaction.TypeTransfer:
			if sender.Balance.LessThan(t.Amount) {
				return transaction.ErrInsufficientFunds
			}
			sender.Balance = sender.Balance.Sub(t.Amount)

			if t.ToAccountNumber != "" {
				var recipient ClientModel
				err := dbtx.Clauses(clause.Locking{Strength: "UPDATE"}).
					First(&recipient, "bank_account_number = ?", t.ToAccountNumber).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return transaction.ErrClientNotFound
				}
				if err != nil {
					return fmt.Errorf("lock recipient: %w", err)
				}
				recipient.Balance = recipient.Balance.Add(t.Amount)
				if err := dbtx.Model(&ClientModel{}).
					Where("id = ?", recipient.ID).
					Update("balance", recipient.Balance).Error; err != nil {
					return fmt.Errorf("credit recipient: %w", err)
				}
			}

		default:
			return transaction.ErrInvalidType
		}

		if err := dbtx.Model(&ClientModel{}).
			Where("id = ?", sender.ID).
			Update("balance", sender.Balance).Error; err != nil {
			return fmt.Errorf("update sender balance: %w", err)
		}
		return nil
	})
}
