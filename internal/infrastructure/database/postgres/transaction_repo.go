package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"safenet-risk-service/internal/domain/transaction"
)

// TransactionRepository is the gorm-backed transaction store.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	if err := r.db.WithContext(ctx).Create(toTransactionModel(t)).Error; err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	var m TransactionModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, transaction.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return m.toDomain(), nil
}

func (r *TransactionRepository) Update(ctx context.Context, t *transaction.Transaction) error {
	result := r.db.WithContext(ctx).
		Model(&TransactionModel{}).
		Where("id = ?", t.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(toTransactionModel(t))
	if result.Error != nil {
		return fmt.Errorf("update transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return transaction.ErrNotFound
	}
	return nil
}

func (r *TransactionRepository) CountSince(ctx context.Context, clientID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&TransactionModel{}).
		Where("client_id = ? AND timestamp >= ?", clientID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

func (r *TransactionRepository) LastCompleted(ctx context.Context, clientID uuid.UUID, before time.Time) (*transaction.Transaction, error) {
	var m TransactionModel
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND status = ? AND timestamp < ?",
			clientID, transaction.StatusCompleted, before).
		Order("timestamp DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, transaction.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("last completed transaction: %w", err)
	}
	return m.toDomain(), nil
}

func (r *TransactionRepository) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	var models []TransactionModel
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]*transaction.Transaction, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, nil
}
