package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"safenet-risk-service/internal/domain/transaction"
)

// ClientRepository is the gorm-backed client profile store.
type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.ClientProfile, error) {
	var m ClientModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, transaction.ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return m.toDomain(), nil
}

func (r *ClientRepository) GetByAccountNumber(ctx context.Context, account string) (*transaction.ClientProfile, error) {
	var m ClientModel
	err := r.db.WithContext(ctx).First(&m, "bank_account_number = ?", account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, transaction.ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client by account: %w", err)
	}
	return m.toDomain(), nil
}

// ListAll returns every client profile. Used by the offline training
// and statistics jobs, not the request path.
func (r *ClientRepository) ListAll(ctx context.Context) ([]*transaction.ClientProfile, error) {
	var models []ClientModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	out := make([]*transaction.ClientProfile, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, nil
}

func (r *ClientRepository) Update(ctx context.Context, c *transaction.ClientProfile) error {
	result := r.db.WithContext(ctx).
		Model(&ClientModel{}).
		Where("id = ?", c.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(toClientModel(c))
	if result.Error != nil {
		return fmt.Errorf("update client: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return transaction.ErrClientNotFound
	}
	return nil
}
