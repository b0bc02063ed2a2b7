package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"pricepulse/internal/alert"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAlertRepo struct {
	alerts []*alert.Alert
	nextID int64
}

func (f *fakeAlertRepo) Insert(_ context.Context, a *alert.Alert) error {
	f.nextID++
	a.ID = f.nextID
	clone := *a
	f.alerts = append(f.alerts, &clone)
	return nil
}

func (f *fakeAlertRepo) ListActive(_ context.Context) ([]*alert.Alert, error) {
	var active []*alert.Alert
	for _, a := range f.alerts {
		if a.IsActive {
			clone := *a
			active = append(active, &clone)
		}
	}
	return active, nil
}

func (f *fakeAlertRepo) ListByUser(_ context.Context, userID int64) ([]*alert.Alert, error) {
	var out []*alert.Alert
	for _, a := range f.alerts {
		if a.IsActive && a.UserID == userID {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeAlertRepo) Deactivate(_ context.Context, id int64) error {
	for _, a := range f.alerts {
		if a.ID == id {
			a.IsActive = false
		}
	}
	return nil
}

func (f *fakeAlertRepo) CountActive(_ context.Context) (int64, error) {
	var count int64
	for _, a := range f.alerts {
		if a.IsActive {
			count++
		}
	}
	return count, nil
}

func (f *fakeAlertRepo) activeIDs() []int64 {
	var ids []int64
	for _, a := range f.alerts {
		if a.IsActive {
			ids = append(ids, a.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type fakeProvider struct {
	prices map[string]decimal.Decimal
	err    error
	calls  [][]string
}

func (f *fakeProvider) GetPrices(_ context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	sorted := append([]string(nil), tickers...)
	sort.Strings(sorted)
	f.calls = append(f.calls, sorted)
	if f.err != nil {
		return nil, f.err
	}
	return f.prices, nil
}

type fakeNotifier struct {
	sent []int64
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, userID int64, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, userID)
	return nil
}

func price(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func setup(prices map[string]decimal.Decimal) (*Service, *fakeAlertRepo, *fakeProvider, *fakeNotifier) {
	repo := &fakeAlertRepo{}
	provider := &fakeProvider{prices: prices}
	notifier := &fakeNotifier{}
	return NewService(repo, provider, notifier, zap.NewNop()), repo, provider, notifier
}

func TestCreateRejectsInvalidDirection(t *testing.T) {
	svc, repo, _, _ := setup(nil)

	_, err := svc.Create(context.Background(), 1, "bitcoin", price("100"), "sideways")

	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, repo.alerts, "invalid alert must not be persisted")
}

func TestCreateRejectsNonPositivePrice(t *testing.T) {
	svc, repo, _, _ := setup(nil)

	_, err := svc.Create(context.Background(), 1, "bitcoin", price("0"), "up")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), 1, "bitcoin", price("-5"), "down")
	require.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, repo.alerts)
}

func TestCreateNormalizesTicker(t *testing.T) {
	svc, repo, _, _ := setup(nil)

	a, err := svc.Create(context.Background(), 1, "  Bitcoin ", price("100"), "up")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", a.Crypto)
	require.Len(t, repo.alerts, 1)
	assert.True(t, repo.alerts[0].IsActive)
}

func TestCreateAllowsDuplicates(t *testing.T) {
	svc, repo, _, _ := setup(nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, "bitcoin", price("100"), "up")
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, "bitcoin", price("100"), "up")
	require.NoError(t, err)

	assert.Len(t, repo.alerts, 2)
}

func TestEvaluateAllEmptyIsNoop(t *testing.T) {
	svc, _, provider, notifier := setup(nil)

	require.NoError(t, svc.EvaluateAll(context.Background()))
	assert.Empty(t, provider.calls, "no price fetch without active alerts")
	assert.Empty(t, notifier.sent)
}

func TestEvaluateAllTriggerBoundary(t *testing.T) {
	cases := []struct {
		name      string
		direction string
		target    string
		current   string
		fires     bool
	}{
		{"up fires at exact target", "up", "100", "100", true},
		{"up fires above target", "up", "100", "101", true},
		{"up holds below target", "up", "100", "99.99", false},
		{"down fires at exact target", "down", "100", "100", true},
		{"down fires below target", "down", "100", "99", true},
		{"down holds above target", "down", "100", "100.01", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, _, notifier := setup(map[string]decimal.Decimal{"bitcoin": price(tc.current)})
			ctx := context.Background()

			a, err := svc.Create(ctx, 42, "bitcoin", price(tc.target), tc.direction)
			require.NoError(t, err)

			require.NoError(t, svc.EvaluateAll(ctx))

			if tc.fires {
				assert.Empty(t, repo.activeIDs(), "alert must be deactivated")
				assert.Equal(t, []int64{42}, notifier.sent)
			} else {
				assert.Equal(t, []int64{a.ID}, repo.activeIDs(), "alert must stay active")
				assert.Empty(t, notifier.sent)
			}
		})
	}
}

func TestEvaluateAllOneShot(t *testing.T) {
	svc, repo, _, notifier := setup(map[string]decimal.Decimal{"bitcoin": price("150")})
	ctx := context.Background()

	_, err := svc.Create(ctx, 42, "bitcoin", price("100"), "up")
	require.NoError(t, err)

	require.NoError(t, svc.EvaluateAll(ctx))
	require.NoError(t, svc.EvaluateAll(ctx))

	// Сработавший алерт гасится навсегда, уведомление ровно одно
	assert.Empty(t, repo.activeIDs())
	assert.Equal(t, []int64{42}, notifier.sent)
}

func TestEvaluateAllIdempotentOnUntriggered(t *testing.T) {
	svc, repo, _, notifier := setup(map[string]decimal.Decimal{
		"bitcoin":  price("90"),
		"ethereum": price("310"),
	})
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, "bitcoin", price("100"), "up")
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, "ethereum", price("300"), "down")
	require.NoError(t, err)

	before := repo.activeIDs()
	require.NoError(t, svc.EvaluateAll(ctx))
	require.NoError(t, svc.EvaluateAll(ctx))

	assert.Equal(t, before, repo.activeIDs())
	assert.Empty(t, notifier.sent)
}

func TestEvaluateAllBatchesDistinctTickers(t *testing.T) {
	svc, _, provider, _ := setup(map[string]decimal.Decimal{})
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, "bitcoin", price("100"), "up")
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, "bitcoin", price("200"), "up")
	require.NoError(t, err)
	_, err = svc.Create(ctx, 3, "ethereum", price("300"), "down")
	require.NoError(t, err)

	require.NoError(t, svc.EvaluateAll(ctx))

	require.Len(t, provider.calls, 1, "exactly one batched call per pass")
	assert.Equal(t, []string{"bitcoin", "ethereum"}, provider.calls[0])
}

func TestEvaluateAllFetchFailureAborts(t *testing.T) {
	svc, repo, provider, notifier := setup(nil)
	provider.err = errors.New("upstream down")
	ctx := context.Background()

	_, err := svc.Create(ctx, 42, "bitcoin", price("100"), "up")
	require.NoError(t, err)
	before := repo.activeIDs()

	err = svc.EvaluateAll(ctx)
	require.Error(t, err)

	// Никаких побочных эффектов: состояние и уведомления не тронуты
	assert.Equal(t, before, repo.activeIDs())
	assert.Empty(t, notifier.sent)
}

func TestEvaluateAllSkipsUnknownTicker(t *testing.T) {
	svc, repo, _, notifier := setup(map[string]decimal.Decimal{"bitcoin": price("150")})
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, "bitcoin", price("100"), "up")
	require.NoError(t, err)
	unknown, err := svc.Create(ctx, 2, "obscurecoin", price("1"), "up")
	require.NoError(t, err)

	require.NoError(t, svc.EvaluateAll(ctx))

	// Неизвестный тикер пропускается и остается активным
	assert.Equal(t, []int64{unknown.ID}, repo.activeIDs())
	assert.Equal(t, []int64{1}, notifier.sent)
}

func TestEvaluateAllNotifyFailureStillDeactivates(t *testing.T) {
	svc, repo, _, notifier := setup(map[string]decimal.Decimal{"bitcoin": price("150")})
	notifier.err = errors.New("bot was blocked by the user")
	ctx := context.Background()

	_, err := svc.Create(ctx, 42, "bitcoin", price("100"), "up")
	require.NoError(t, err)

	require.NoError(t, svc.EvaluateAll(ctx))

	assert.Empty(t, repo.activeIDs(), "failed notification must not keep the alert alive")
}
