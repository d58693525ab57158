package challenge

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
	"safenet-risk-service/internal/pkg/geo"
)

type memOTPRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*risk.TransactionOTP
}

func newMemOTPRepo() *memOTPRepo {
	return &memOTPRepo{items: map[uuid.UUID]*risk.TransactionOTP{}}
}

func (r *memOTPRepo) Create(ctx context.Context, otp *risk.TransactionOTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *otp
	r.items[otp.ID] = &cp
	return nil
}

func (r *memOTPRepo) ActiveByTransaction(ctx context.Context, txID, userID uuid.UUID) (*risk.TransactionOTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *risk.TransactionOTP
	for _, o := range r.items {
		if o.TransactionID == txID && o.UserID == userID && !o.Used {
			if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
				latest = o
			}
		}
	}
	if latest == nil {
		return nil, risk.ErrNoActiveChallenge
	}
	cp := *latest
	return &cp, nil
}

func (r *memOTPRepo) Update(ctx context.Context, otp *risk.TransactionOTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[otp.ID]; !ok {
		return risk.ErrNoActiveChallenge
	}
	cp := *otp
	r.items[otp.ID] = &cp
	return nil
}

func (r *memOTPRepo) DeleteUnused(ctx context.Context, txID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, o := range r.items {
		if o.TransactionID == txID && !o.Used {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

func (r *memOTPRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, o := range r.items {
		if !o.Used && o.ExpiresAt.Before(cutoff) {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

func (r *memOTPRepo) activeCode(t *testing.T, txID, userID uuid.UUID) string {
	t.Helper()
	otp, err := r.ActiveByTransaction(context.Background(), txID, userID)
	require.NoError(t, err)
	return otp.Code
}

type memTxRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*transaction.Transaction
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
	r.items[t.ID] = t
	return nil
}

func (r *memTxRepo) CountSince(ctx context.Context, clientID uuid.UUID, since time.Time) (int64, error) {
	return 0, nil
}

func (r *memTxRepo) LastCompleted(ctx context.Context, clientID uuid.UUID, before time.Time) (*transaction.Transaction, error) {
	return nil, transaction.ErrNotFound
}

func (r *memTxRepo) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	return nil, nil
}

type memClientRepo struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*transaction.ClientProfile
}

func (r *memClientRepo) GetByID(ctx context.Context, id uuid.UUID) (*transaction.ClientProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, transaction.ErrClientNotFound
	}
	return c, nil
}

func (r *memClientRepo) GetByAccountNumber(ctx context.Context, account string) (*transaction.ClientProfile, error) {
	return nil, transaction.ErrClientNotFound
}

func (r *memClientRepo) Update(ctx context.Context, c *transaction.ClientProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
	return nil
}

type fakeSettler struct {
	mu     sync.Mutex
	calls  int
	failed bool
}

func (s *fakeSettler) Settle(ctx context.Context, t *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return transaction.ErrInsufficientFunds
	}
	s.calls++
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   int
	failed bool
}

func (n *fakeNotifier) SendOTP(ctx context.Context, c *transaction.ClientProfile, t *transaction.Transaction, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failed {
		return errors.New("gateway timeout")
	}
	n.sent++
	return nil
}

func (n *fakeNotifier) SendFraudAlert(ctx context.Context, c *transaction.ClientProfile, t *transaction.Transaction, a *risk.FraudAlert) error {
	return nil
}

type fixedConfig struct{ cfg risk.Config }

func (f fixedConfig) Snapshot(ctx context.Context) risk.Config { return f.cfg }

type fixture struct {
	svc      *Service
	otps     *memOTPRepo
	txs      *memTxRepo
	clients  *memClientRepo
	settler  *fakeSettler
	notifier *fakeNotifier
	client   *transaction.ClientProfile
	tx       *transaction.Transaction
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := &transaction.ClientProfile{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		Balance:      decimal.NewFromInt(50000),
		HomeLocation: &geo.Point{Latitude: 36.7538, Longitude: 3.0588},
	}
	tx := transaction.New(client.ID, transaction.TypeTransfer, decimal.NewFromInt(15000), "DZD")
	tx.CurrentLocation = &geo.Point{Latitude: 48.8566, Longitude: 2.3522}

	f := &fixture{
		otps:     newMemOTPRepo(),
		txs:      &memTxRepo{items: map[uuid.UUID]*transaction.Transaction{tx.ID: tx}},
		clients:  &memClientRepo{clients: map[uuid.UUID]*transaction.ClientProfile{client.ID: client}},
		settler:  &fakeSettler{},
		notifier: &fakeNotifier{},
		client:   client,
		tx:       tx,
	}
	f.svc = NewService(f.otps, f.txs, f.clients, f.settler, f.notifier, fixedConfig{cfg: risk.DefaultConfig()}, nil, zap.NewNop())
	return f
}

func TestCreateIssuesSixDigitChallenge(t *testing.T) {
	f := newFixture(t)

	receipt, err := f.svc.Create(context.Background(), f.tx, f.client)
	require.NoError(t, err)

	assert.Equal(t, f.tx.ID, receipt.TransactionID)
	assert.Equal(t, 3, receipt.MaxAttempts)

	code := f.otps.activeCode(t, f.tx.ID, f.client.UserID)
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9')
	}
	assert.Equal(t, 1, f.notifier.sent)
}

func TestCreateReplacesUnusedChallenge(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Create(context.Background(), f.tx, f.client)
	require.NoError(t, err)
	second, err := f.svc.Create(context.Background(), f.tx, f.client)
	require.NoError(t, err)

	assert.NotEqual(t, first.ChallengeID, second.ChallengeID)

	active, err := f.otps.ActiveByTransaction(context.Background(), f.tx.ID, f.client.UserID)
	require.NoError(t, err)
	assert.Equal(t, second.ChallengeID, active.ID, "only the newest challenge survives")
}

func TestCreateDispatchFailureKeepsChallenge(t *testing.T) {
	f := newFixture(t)
	f.notifier.failed = true

	receipt, err := f.svc.Create(context.Background(), f.tx, f.client)

	assert.ErrorIs(t, err, risk.ErrDispatchFailed)
	require.NotNil(t, receipt, "the receipt is still returned for a resend")
	_, err = f.otps.ActiveByTransaction(context.Background(), f.tx.ID, f.client.UserID)
	assert.NoError(t, err, "a dispatch failure must not delete the challenge")
}

func TestVerifySuccessCompletesAndTrustsLocation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.tx, f.client)
	require.NoError(t, err)
	code := f.otps.activeCode(t, f.tx.ID, f.client.UserID)

	result, err := f.svc.Verify(context.Background(), f.tx.ID, code)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, risk.ReasonVerified, result.Reason)
	assert.Equal(t, 1, f.settler.calls)
	assert.Equal(t, transaction.StatusCompleted, f.tx.Status)

	require.NotNil(t, f.client.LastVerifiedLocation)
	assert.Equal(t, f.tx.CurrentLocation.Latitude, f.client.LastVerifiedLocation.Latitude)
}

func TestVerifyCannotReplayConsumedChallenge(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.tx, f.client)
	require.NoError(t, err)
	code := f.otps.activeCode(t, f.tx.ID, f.client.UserID)

	_, err = f.svc.Verify(context.Background(), f.tx.ID, code)
	require.NoError(t, err)

	result, err := f.svc.Verify(context.Background(), f.tx.ID, code)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, risk.ReasonNoActiveChallenge, result.Reason)
	assert.Equal(t, 1, f.settler.calls, "funds move exactly once")
}

func TestVerifyWrongCodeConsumesAttempts(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.tx, f.client)
	require.NoError(t, err)
	code := f.otps.activeCode(t, f.tx.ID, f.client.UserID)
	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}

	for want := 2; want >= 1; want-- {
		result, err := f.svc.Verify(context.Background(), f.tx.ID, wrong)
		require.NoError(t, err)
		assert.Equal(t, risk.ReasonInvalidCode, result.Reason)
		assert.Equal(t, want, result.AttemptsRemaining)
	}

	// third wrong submission spends the final attempt
	result, err := f.svc.Verify(context.Background(), f.tx.ID, wrong)
	require.NoError(t, err)
	assert.Equal(t, risk.ReasonInvalidCode, result.Reason)
	assert.Equal(t, 0, result.AttemptsRemaining)

	// even the correct code is now rejected
	result, err = f.svc.Verify(context.Background(), f.tx.ID, code)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, risk.ReasonAttemptsExhausted, result.Reason)
	assert.Equal(t, 0, f.settler.calls)
	assert.Equal(t, transaction.StatusPending, f.tx.Status)
}

func TestVerifyExpiredChallenge(t *testing.T) {
	f := newFixture(t)
	cfg := risk.DefaultConfig()
	cfg.OTPTTL = -time.Minute // already expired at creation
	f.svc.snapshots = fixedConfig{cfg: cfg}

	_, err := f.svc.Create(context.Background(), f.tx, f.client)
	require.NoError(t, err)
	code := f.otps.activeCode(t, f.tx.ID, f.client.UserID)

	result, err := f.svc.Verify(context.Background(), f.tx.ID, code)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, risk.ReasonExpired, result.Reason)

	// the expired challenge was finalized, not left dangling
	result, err = f.svc.Verify(context.Background(), f.tx.ID, code)
	require.NoError(t, err)
	assert.Equal(t, risk.ReasonNoActiveChallenge, result.Reason)
}

func TestVerifyWithoutChallenge(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Verify(context.Background(), f.tx.ID, "123456")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, risk.ReasonNoActiveChallenge, result.Reason)
}

func TestVerifySettlementFailureDoesNotComplete(t *testing.T) {
	f := newFixture(t)
	f.settler.failed = true
	_, err := f.svc.Create(context.Background(), f.tx, f.client)
	require.NoError(t, err)
	code := f.otps.activeCode(t, f.tx.ID, f.client.UserID)

	_, err = f.svc.Verify(context.Background(), f.tx.ID, code)
	assert.Error(t, err)
	assert.Equal(t, transaction.StatusPending, f.tx.Status)
	assert.Nil(t, f.client.LastVerifiedLocation, "an unsettled verification must not move the trusted point")
}

func TestResendRedeliversActiveChallenge(t *testing.T) {
	f := newFixture(t)
	first, err := f.svc.Create(context.Background(), f.tx, f.client)
	require.NoError(t, err)

	receipt, err := f.svc.Resend(context.Background(), f.tx.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ChallengeID, receipt.ChallengeID, "a live challenge is redelivered, not replaced")
	assert.Equal(t, 2, f.notifier.sent)
}

func TestResendReplacesExpiredChallenge(t *testing.T) {
	f := newFixture(t)
	cfg := risk.DefaultConfig()
	cfg.OTPTTL = -time.Minute
	f.svc.snapshots = fixedConfig{cfg: cfg}
	first, err := f.svc.Create(context.Background(), f.tx, f.client)
	require.NoError(t, err)

	f.svc.snapshots = fixedConfig{cfg: risk.DefaultConfig()}
	receipt, err := f.svc.Resend(context.Background(), f.tx.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.ChallengeID, receipt.ChallengeID)
}

func TestCleanupRemovesExpiredChallenges(t *testing.T) {
	f := newFixture(t)
	cfg := risk.DefaultConfig()
	cfg.OTPTTL = -time.Minute
	f.svc.snapshots = fixedConfig{cfg: cfg}
	_, err := f.svc.Create(context.Background(), f.tx, f.client)
	require.NoError(t, err)

	removed, err := f.svc.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestVerifyConcurrentSubmissionsSettleOnce(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.tx, f.client)
	require.NoError(t, err)
	code := f.otps.activeCode(t, f.tx.ID, f.client.UserID)

	var wg sync.WaitGroup
	successes := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.svc.Verify(context.Background(), f.tx.ID, code)
			if err == nil && result.Success {
				successes <- true
			}
		}()
	}
	wg.Wait()
	close(successes)

	var wins int
	for range successes {
		wins++
	}
	assert.Equal(t, 1, wins, "exactly one concurrent submission may win")
	assert.Equal(t, 1, f.settler.calls)
}
