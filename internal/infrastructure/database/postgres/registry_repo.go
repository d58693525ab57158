package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// RegistryRepository reads threshold and rule overrides. It implements
// both risk.ThresholdRepository and risk.RuleRepository.
type RegistryRepository struct {
	db *gorm.DB
}

func NewRegistryRepository(db *gorm.DB) *RegistryRepository {
	return &RegistryRepository{db: db}
}

func (r *RegistryRepository) All(ctx context.Context) (map[string]float64, error) {
	var models []ThresholdModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list thresholds: %w", err)
	}

	out := make(map[string]float64, len(models))
	for _, m := range models {
		out[m.Key] = m.Value
	}
	return out, nil
}

func (r *RegistryRepository) Enabled(ctx context.Context) (map[string]bool, error) {
	var models []RuleModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	out := make(map[string]bool, len(models))
	for _, m := range models {
		out[m.Name] = m.Enabled
	}
	return out, nil
}
