package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"safenet-risk-service/internal/domain/risk"
)

// OTPRepository is the gorm-backed challenge store.
type OTPRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

func (r *OTPRepository) Create(ctx context.Context, otp *risk.TransactionOTP) error {
	if err := r.db.WithContext(ctx).Create(toOTPModel(otp)).Error; err != nil {
		return fmt.Errorf("create challenge: %w", err)
	}
	return nil
}

func (r *OTPRepository) ActiveByTransaction(ctx context.Context, transactionID, userID uuid.UUID) (*risk.TransactionOTP, error) {
	var m TransactionOTPModel
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND user_id = ? AND used = false", transactionID, userID).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, risk.ErrNoActiveChallenge
	}
	if err != nil {
		return nil, fmt.Errorf("get active challenge: %w", err)
	}
	return m.toDomain(), nil
}

func (r *OTPRepository) Update(ctx context.Context, otp *risk.TransactionOTP) error {
	result := r.db.WithContext(ctx).
		Model(&TransactionOTPModel{}).
		Where("id = ?", otp.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(toOTPModel(otp))
	if result.Error != nil {
		return fmt.Errorf("update challenge: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return risk.ErrNoActiveChallenge
	}
	return nil
}

func (r *OTPRepository) DeleteUnused(ctx context.Context, transactionID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("transaction_id = ? AND used = false", transactionID).
		Delete(&TransactionOTPModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete unused challenges: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *OTPRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("used = false AND expires_at < ?", cutoff).
		Delete(&TransactionOTPModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete expired challenges: %w", result.Error)
	}
	return result.RowsAffected, nil
}
