package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"safenet-risk-service/internal/domain/risk"
	"safenet-risk-service/internal/domain/transaction"
	"safenet-risk-service/internal/infrastructure/ml"
	"safenet-risk-service/internal/infrastructure/rules"
	"safenet-risk-service/internal/pkg/metrics"
)

// ConfigProvider supplies an immutable threshold snapshot per call.
type ConfigProvider interface {
	Snapshot(ctx context.Context) risk.Config
}

// AnomalyScorer produces an anomaly result for a feature vector. It
// never fails; a missing model yields the neutral result.
type AnomalyScorer interface {
	Score(features *ml.FeatureVector) risk.AnomalyResult
}

// VelocityTracker is the fast path for recent-activity counts. It may
// be absent; the service then counts from the transaction store.
type VelocityTracker interface {
	Record(ctx context.Context, clientID, transactionID uuid.UUID, at time.Time) error
	CountSince(ctx context.Context, clientID uuid.UUID, since time.Time) (int64, error)
}

// Service runs the full assessment pipeline for one transaction: rule
// evaluation, anomaly scoring, fusion, alert registration and risk
// persistence.
type Service struct {
	transactions transaction.Repository
	clients      transaction.ClientRepository
	velocity     VelocityTracker
	snapshots    ConfigProvider
	evaluator    *rules.Evaluator
	scorer       AnomalyScorer
	alerts       risk.AlertRepository
	notifier     risk.Notifier
	metrics      *metrics.Metrics
	log          *zap.Logger
}

func NewService(
	transactions transaction.Repository,
	clients transaction.ClientRepository,
	velocity VelocityTracker,
	snapshots ConfigProvider,
	evaluator *rules.Evaluator,
	scorer AnomalyScorer,
	alerts risk.AlertRepository,
	notifier risk.Notifier,
	m *metrics.Metrics,
	log *zap.Logger,
) *Service {
	return &Service{
		transactions: transactions,
		clients:      clients,
		velocity:     velocity,
		snapshots:    snapshots,
		evaluator:    evaluator,
		scorer:       scorer,
		alerts:       alerts,
		notifier:     notifier,
		metrics:      m,
		log:          log,
	}
}

// Assess scores a persisted transaction against its client profile and
// stores the outcome on the transaction. The assessment itself never
// moves funds; callers act on the returned decision.
func (s *Service) Assess(ctx context.Context, tx *transaction.Transaction, client *transaction.ClientProfile) (*risk.Assessment, error) {
	if tx == nil || client == nil {
		return nil, fmt.Errorf("assess: transaction and client are required")
	}

	cfg := s.snapshots.Snapshot(ctx)
	since := tx.Timestamp.Add(-cfg.FrequencyWindow)

	recent := s.recentCount(ctx, tx, client, since)
	lastCompletedAt := s.lastCompletedAt(ctx, client.ID, tx.Timestamp)

	report := s.evaluator.Evaluate(rules.Input{
		Tx:                tx,
		Client:            client,
		RecentCount:       recent,
		HasPriorCompleted: lastCompletedAt != nil,
	}, cfg)

	features := ml.Extract(tx, client, recent, lastCompletedAt, time.Now())
	anomaly := s.scorer.Score(features)

	asmt := risk.Fuse(tx.ID, report, anomaly, cfg, time.Now())

	tx.SetRisk(asmt.RiskScore, asmt.Triggers)
	if err := s.transactions.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("persist risk outcome: %w", err)
	}

	if asmt.RiskScore >= cfg.MediumRiskScore {
		s.registerAlert(ctx, tx, client, asmt)
	}

	if s.metrics != nil {
		s.metrics.Assessments.WithLabelValues(string(asmt.Decision)).Inc()
	}

	s.log.Info("transaction assessed",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("client_id", client.ID.String()),
		zap.Int("risk_score", asmt.RiskScore),
		zap.String("risk_level", string(asmt.Level)),
		zap.String("decision", string(asmt.Decision)),
		zap.Bool("requires_otp", asmt.RequiresOTP),
		zap.Float64("anomaly_score", asmt.AnomalyScore),
	)
	return asmt, nil
}

// recentCount records the transaction in the velocity cache and counts
// activity inside the window. Cache failures fall back to the store;
// the count always includes the current transaction.
func (s *Service) recentCount(ctx context.Context, tx *transaction.Transaction, client *transaction.ClientProfile, since time.Time) int64 {
	if s.velocity != nil {
		if err := s.velocity.Record(ctx, client.ID, tx.ID, tx.Timestamp); err != nil {
			s.log.Warn("velocity record failed", zap.Error(err))
		} else if count, err := s.velocity.CountSince(ctx, client.ID, since); err == nil {
			return count
		} else {
			s.log.Warn("velocity count failed, falling back to store", zap.Error(err))
		}
	}

	count, err := s.transactions.CountSince(ctx, client.ID, since)
	if err != nil {
		s.log.Warn("store count failed, assuming only the current transaction", zap.Error(err))
		return 1
	}
	return count
}

func (s *Service) lastCompletedAt(ctx context.Context, clientID uuid.UUID, before time.Time) *time.Time {
	prev, err := s.transactions.LastCompleted(ctx, clientID, before)
	if errors.Is(err, transaction.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.log.Warn("previous transaction lookup failed", zap.Error(err))
		return nil
	}
	return &prev.Timestamp
}

// registerAlert files a fraud alert for a flagged transaction. The
// unique constraint makes re-assessment idempotent; notification goes
// out only for a newly created alert. Alert failures are logged, not
// returned: an unreachable alert store must not turn a scored
// transaction into an error.
func (s *Service) registerAlert(ctx context.Context, tx *transaction.Transaction, client *transaction.ClientProfile, asmt *risk.Assessment) {
	alert := risk.NewFraudAlert(tx.ID, asmt.Level, asmt.RiskScore, asmt.Triggers)

	stored, created, err := s.alerts.GetOrCreate(ctx, alert)
	if err != nil {
		s.log.Error("fraud alert registration failed",
			zap.String("transaction_id", tx.ID.String()), zap.Error(err))
		return
	}
	if !created {
		return
	}

	if s.metrics != nil {
		s.metrics.AlertsCreated.Inc()
	}
	if s.notifier != nil {
		if err := s.notifier.SendFraudAlert(ctx, client, tx, stored); err != nil {
			s.log.Warn("fraud alert notification failed",
				zap.String("alert_id", stored.ID.String()), zap.Error(err))
		}
	}
}
