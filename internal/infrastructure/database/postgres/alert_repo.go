package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"safenet-risk-service/internal/domain/risk"
)

// AlertRepository is the gorm-backed fraud alert store. The unique
// index on transaction_id plus an on-conflict insert gives atomic
// get-or-create semantics without an advisory lock.
type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) GetOrCreate(ctx context.Context, alert *risk.FraudAlert) (*risk.FraudAlert, bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(toAlertModel(alert))
	if result.Error != nil {
		return nil, false, fmt.Errorf("create alert: %w", result.Error)
	}

	// RowsAffected is zero when a concurrent or earlier call won the
	// insert; either way the stored row is authoritative.
	created := result.RowsAffected > 0

	stored, err := r.GetByTransactionID(ctx, alert.TransactionID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*risk.FraudAlert, error) {
	var m FraudAlertModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, risk.ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return m.toDomain(), nil
}

func (r *AlertRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*risk.FraudAlert, error) {
	var m FraudAlertModel
	err := r.db.WithContext(ctx).First(&m, "transaction_id = ?", transactionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, risk.ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert by transaction: %w", err)
	}
	return m.toDomain(), nil
}

func (r *AlertRepository) List(ctx context.Context, status risk.AlertStatus, limit, offset int) ([]*risk.FraudAlert, error) {
	query := r.db.WithContext(ctx).Model(&FraudAlertModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var models []FraudAlertModel
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	out := make([]*risk.FraudAlert, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, nil
}

func (r *AlertRepository) Update(ctx context.Context, alert *risk.FraudAlert) error {
	result := r.db.WithContext(ctx).
		Model(&FraudAlertModel{}).
		Where("id = ?", alert.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(toAlertModel(alert))
	if result.Error != nil {
		return fmt.Errorf("update alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return risk.ErrAlertNotFound
	}
	return nil
}
