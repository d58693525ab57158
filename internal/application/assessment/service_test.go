package assessment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"safenet-risk-service/internal/domain/risk"
	"safenet-risk-service/internal/domain/transaction"
	"safenet-risk-service/internal/infrastructure/ml"
	"safenet-risk-service/internal/infrastructure/rules"
	"safenet-risk-service/internal/pkg/geo"
)

type memTxRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*transaction.Transaction
	count int64
}

func newMemTxRepo() *memTxRepo {
	return &memTxRepo{items: map[uuid.UUID]*transaction.Transaction{}, count: 1}
}

func (r *memTxRepo) Create(ctx context.Context, t *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[t.ID] = t
	return nil
}

func (r *memTxRepo) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return nil, transaction.ErrNotFound
	}
	return t, nil
}

func (r *memTxRepo) Update(ctx context.Context, t *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[t.ID]; !ok {
		return transaction.ErrNotFound
	}
	r.items[t.ID] = t
	return nil
}

func (r *memTxRepo) CountSince(ctx context.Context, clientID uuid.UUID, since time.Time) (int64, error) {
	return r.count, nil
}

func (r *memTxRepo) LastCompleted(ctx context.Context, clientID uuid.UUID, before time.Time) (*transaction.Transaction, error) {
	return nil, transaction.ErrNotFound
}

func (r *memTxRepo) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	return nil, nil
}

type memClientRepo struct {
	clients map[uuid.UUID]*transaction.ClientProfile
}

func (r *memClientRepo) GetByID(ctx context.Context, id uuid.UUID) (*transaction.ClientProfile, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, transaction.ErrClientNotFound
	}
	return c, nil
}

func (r *memClientRepo) GetByAccountNumber(ctx context.Context, account string) (*transaction.ClientProfile, error) {
	for _, c := range r.clients {
		if c.BankAccountNumber == account {
			return c, nil
		}
	}
	return nil, transaction.ErrClientNotFound
}

func (r *memClientRepo) Update(ctx context.Context, c *transaction.ClientProfile) error {
	r.clients[c.ID] = c
	return nil
}

type memAlertRepo struct {
	mu     sync.Mutex
	byTx   map[uuid.UUID]*risk.FraudAlert
	failed bool
}

func newMemAlertRepo() *memAlertRepo {
	return &memAlertRepo{byTx: map[uuid.UUID]*risk.FraudAlert{}}
}

func (r *memAlertRepo) GetOrCreate(ctx context.Context, alert *risk.FraudAlert) (*risk.FraudAlert, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed {
		return nil, false, errors.New("alert store down")
	}
	if existing, ok := r.byTx[alert.TransactionID]; ok {
		return existing, false, nil
	}
	r.byTx[alert.TransactionID] = alert
	return alert, true, nil
}

func (r *memAlertRepo) GetByID(ctx context.Context, id uuid.UUID) (*risk.FraudAlert, error) {
	for _, a := range r.byTx {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, risk.ErrAlertNotFound
}

func (r *memAlertRepo) GetByTransactionID(ctx context.Context, txID uuid.UUID) (*risk.FraudAlert, error) {
	a, ok := r.byTx[txID]
	if !ok {
		return nil, risk.ErrAlertNotFound
	}
	return a, nil
}

func (r *memAlertRepo) List(ctx context.Context, status risk.AlertStatus, limit, offset int) ([]*risk.FraudAlert, error) {
	var out []*risk.FraudAlert
	for _, a := range r.byTx {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAlertRepo) Update(ctx context.Context, alert *risk.FraudAlert) error {
	r.byTx[alert.TransactionID] = alert
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	otps   int
	alerts int
}

func (n *recordingNotifier) SendOTP(ctx context.Context, c *transaction.ClientProfile, t *transaction.Transaction, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otps++
	return nil
}

func (n *recordingNotifier) SendFraudAlert(ctx context.Context, c *transaction.ClientProfile, t *transaction.Transaction, a *risk.FraudAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts++
	return nil
}

type fixedConfig struct{ cfg risk.Config }

func (f fixedConfig) Snapshot(ctx context.Context) risk.Config { return f.cfg }

type fixedScorer struct{ result risk.AnomalyResult }

func (f fixedScorer) Score(features *ml.FeatureVector) risk.AnomalyResult { return f.result }

type fixture struct {
	svc      *Service
	txRepo   *memTxRepo
	alerts   *memAlertRepo
	notifier *recordingNotifier
	client   *transaction.ClientProfile
}

func newFixture(t *testing.T, anomaly risk.AnomalyResult) *fixture {
	t.Helper()
	client := &transaction.ClientProfile{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		Balance:      decimal.NewFromInt(50000),
		AvgAmount:    1000,
		StdAmount:    500,
		HomeLocation: &geo.Point{Latitude: 36.7538, Longitude: 3.0588},
		CreatedAt:    time.Now().AddDate(-1, 0, 0),
	}

	txRepo := newMemTxRepo()
	alerts := newMemAlertRepo()
	notifier := &recordingNotifier{}

	svc := NewService(
		txRepo,
		&memClientRepo{clients: map[uuid.UUID]*transaction.ClientProfile{client.ID: client}},
		nil,
		fixedConfig{cfg: risk.DefaultConfig()},
		rules.NewEvaluator(zap.NewNop()),
		fixedScorer{result: anomaly},
		alerts,
		notifier,
		nil,
		zap.NewNop(),
	)
	return &fixture{svc: svc, txRepo: txRepo, alerts: alerts, notifier: notifier, client: client}
}

func (f *fixture) newTx(t *testing.T, amount int64) *transaction.Transaction {
	t.Helper()
	tx := transaction.New(f.client.ID, transaction.TypeTransfer, decimal.NewFromInt(amount), "DZD")
	tx.Timestamp = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	tx.CurrentLocation = f.client.HomeLocation
	require.NoError(t, f.txRepo.Create(context.Background(), tx))
	return tx
}

func TestAssessCleanTransactionApproves(t *testing.T) {
	f := newFixture(t, risk.AnomalyResult{Score: 0.2, ModelAvailable: true})
	tx := f.newTx(t, 1200)

	asmt, err := f.svc.Assess(context.Background(), tx, f.client)
	require.NoError(t, err)

	assert.Equal(t, 0, asmt.RiskScore)
	assert.Equal(t, risk.DecisionApprove, asmt.Decision)
	assert.False(t, asmt.RequiresOTP)
	assert.Empty(t, f.alerts.byTx, "no alert below the medium threshold")
}

func TestAssessHighRiskCreatesAlertAndRequiresOTP(t *testing.T) {
	f := newFixture(t, risk.AnomalyResult{Score: 0.3, ModelAvailable: true})
	tx := f.newTx(t, 15000)
	tx.CurrentLocation = &geo.Point{Latitude: 48.8566, Longitude: 2.3522}

	asmt, err := f.svc.Assess(context.Background(), tx, f.client)
	require.NoError(t, err)

	// location 50 + large amount 30 + outlier 15
	assert.Equal(t, 95, asmt.RiskScore)
	assert.Equal(t, risk.LevelHigh, asmt.Level)
	assert.Equal(t, risk.DecisionBlock, asmt.Decision)
	assert.True(t, asmt.RequiresOTP)

	alert, err := f.alerts.GetByTransactionID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, risk.LevelHigh, alert.Level)
	assert.Equal(t, risk.AlertStatusActive, alert.Status)
	assert.Equal(t, 1, f.notifier.alerts)
}

func TestAssessPersistsRiskOnTransaction(t *testing.T) {
	f := newFixture(t, risk.AnomalyResult{Score: 0.5})
	tx := f.newTx(t, 15000)

	asmt, err := f.svc.Assess(context.Background(), tx, f.client)
	require.NoError(t, err)

	stored, err := f.txRepo.GetByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, asmt.RiskScore, stored.RiskScore)
	assert.Equal(t, asmt.Triggers, stored.Triggers)
}

func TestAssessIsIdempotentForAlerts(t *testing.T) {
	f := newFixture(t, risk.AnomalyResult{Score: 0.3, ModelAvailable: true})
	tx := f.newTx(t, 15000)
	tx.CurrentLocation = &geo.Point{Latitude: 48.8566, Longitude: 2.3522}

	first, err := f.svc.Assess(context.Background(), tx, f.client)
	require.NoError(t, err)
	second, err := f.svc.Assess(context.Background(), tx, f.client)
	require.NoError(t, err)

	assert.Equal(t, first.RiskScore, second.RiskScore)
	assert.Len(t, f.alerts.byTx, 1, "re-assessment must not duplicate the alert")
	assert.Equal(t, 1, f.notifier.alerts, "only the creating call notifies")
}

func TestAssessAnomalyGateWithoutRuleViolations(t *testing.T) {
	f := newFixture(t, risk.AnomalyResult{Score: 0.9, ModelAvailable: true})
	tx := f.newTx(t, 1000)

	asmt, err := f.svc.Assess(context.Background(), tx, f.client)
	require.NoError(t, err)

	assert.Equal(t, 0, asmt.RiskScore)
	assert.True(t, asmt.RequiresOTP, "a high anomaly score alone must force a challenge")
	assert.Empty(t, f.alerts.byTx, "the anomaly gate does not file alerts")
}

func TestAssessAlertStoreFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, risk.AnomalyResult{Score: 0.3, ModelAvailable: true})
	f.alerts.failed = true
	tx := f.newTx(t, 15000)
	tx.CurrentLocation = &geo.Point{Latitude: 48.8566, Longitude: 2.3522}

	asmt, err := f.svc.Assess(context.Background(), tx, f.client)
	require.NoError(t, err, "an unreachable alert store must not fail the assessment")
	assert.True(t, asmt.RequiresOTP)
}

func TestAssessRejectsNilInput(t *testing.T) {
	f := newFixture(t, risk.AnomalyResult{})

	_, err := f.svc.Assess(context.Background(), nil, f.client)
	assert.Error(t, err)

	_, err = f.svc.Assess(context.Background(), f.newTx(t, 100), nil)
	assert.Error(t, err)
}
