package rules

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"safenet-risk-service/internal/domain/risk"
)

// SnapshotProvider builds immutable config snapshots from the registry,
// overlaying stored thresholds and rule toggles onto the built-in
// defaults. Snapshots are cached briefly so the hot assessment path
// does not hit the registry on every call.
type SnapshotProvider struct {
	thresholds risk.ThresholdRepository
	rules      risk.RuleRepository
	log        *zap.Logger

	mu       sync.RWMutex
	cached   risk.Config
	cachedAt time.Time
	ttl      time.Duration
}

func NewSnapshotProvider(thresholds risk.ThresholdRepository, rules risk.RuleRepository, log *zap.Logger) *SnapshotProvider {
	return &SnapshotProvider{
		thresholds: thresholds,
		rules:      rules,
		log:        log,
		ttl:        30 * time.Second,
	}
}

// Snapshot returns the current config. Registry failures degrade to the
// built-in defaults rather than failing the assessment.
func (p *SnapshotProvider) Snapshot(ctx context.Context) risk.Config {
	p.mu.RLock()
	if !p.cachedAt.IsZero() && time.Since(p.cachedAt) < p.ttl {
		cfg := p.cached
		p.mu.RUnlock()
		return cfg
	}
	p.mu.RUnlock()

	cfg := p.build(ctx)

	p.mu.Lock()
	p.cached = cfg
	p.cachedAt = time.Now()
	p.mu.Unlock()

	return cfg
}

// Invalidate drops the cached snapshot so the next call rebuilds it.
func (p *SnapshotProvider) Invalidate() {
	p.mu.Lock()
	p.cachedAt = time.Time{}
	p.mu.Unlock()
}

func (p *SnapshotProvider) build(ctx context.Context) risk.Config {
	cfg := risk.DefaultConfig()

	if p.thresholds != nil {
		values, err := p.thresholds.All(ctx)
		if err != nil {
			p.log.Warn("threshold registry unavailable, using defaults", zap.Error(err))
		} else {
			applyThresholds(&cfg, values)
		}
	}

	if p.rules != nil {
		enabled, err := p.rules.Enabled(ctx)
		if err != nil {
			p.log.Warn("rule registry unavailable, using defaults", zap.Error(err))
		} else {
			applyToggles(&cfg, enabled)
		}
	}

	return cfg
}

func applyThresholds(cfg *risk.Config, values map[string]float64) {
	if v, ok := values[risk.KeyLargeAmountThreshold]; ok && v > 0 {
		cfg.LargeAmountThreshold = decimal.NewFromFloat(v)
	}
	if v, ok := values[risk.KeyMaxTransactionsHourly]; ok && v > 0 {
		cfg.MaxTransactionsPerWindow = int64(v)
	}
	if v, ok := values[risk.KeyLowBalanceFloor]; ok && v >= 0 {
		cfg.LowBalanceFloor = decimal.NewFromFloat(v)
	}
	if v, ok := values[risk.KeyZScoreThreshold]; ok && v > 0 {
		cfg.ZScoreThreshold = v
	}
	if v, ok := values[risk.KeyMaxDistanceKm]; ok && v > 0 {
		cfg.MaxDistanceKm = v
	}
	if v, ok := values[risk.KeyLocationRiskIncrement]; ok && v > 0 {
		cfg.LocationRiskIncrement = int(v)
	}
	if v, ok := values[risk.KeyMediumRiskScore]; ok && v > 0 {
		cfg.MediumRiskScore = int(v)
	}
	if v, ok := values[risk.KeyHighRiskScore]; ok && v > 0 {
		cfg.HighRiskScore = int(v)
	}
	if v, ok := values[risk.KeyAnomalyOTPThreshold]; ok && v > 0 {
		cfg.AnomalyOTPThreshold = v
	}
	if v, ok := values[risk.KeyOTPTTLMinutes]; ok && v > 0 {
		cfg.OTPTTL = time.Duration(v) * time.Minute
	}
	if v, ok := values[risk.KeyOTPMaxAttempts]; ok && v > 0 {
		cfg.OTPMaxAttempts = int(v)
	}
}

func applyToggles(cfg *risk.Config, enabled map[string]bool) {
	if v, ok := enabled[risk.RuleLargeAmount]; ok {
		cfg.Rules.LargeAmount = v
	}
	if v, ok := enabled[risk.RuleHighFrequency]; ok {
		cfg.Rules.HighFrequency = v
	}
	if v, ok := enabled[risk.RuleLowBalance]; ok {
		cfg.Rules.LowBalance = v
	}
	if v, ok := enabled[risk.RuleStatisticalOutlier]; ok {
		cfg.Rules.StatisticalOutlier = v
	}
	if v, ok := enabled[risk.RuleUnusualHour]; ok {
		cfg.Rules.UnusualHour = v
	}
	if v, ok := enabled[risk.RuleLocationCheck]; ok {
		cfg.Rules.LocationCheck = v
	}
}
