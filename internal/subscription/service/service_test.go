package service

import (
	"context"
	"testing"
	"time"

	"pricepulse/internal/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	records map[int64]subscription.Subscription
	upserts int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[int64]subscription.Subscription)}
}

func (f *fakeRepo) Upsert(_ context.Context, sub *subscription.Subscription) error {
	f.records[sub.UserID] = *sub
	f.upserts++
	return nil
}

func (f *fakeRepo) Get(_ context.Context, userID int64) (*subscription.Subscription, error) {
	sub, ok := f.records[userID]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (f *fakeRepo) CountPremium(_ context.Context, now time.Time) (int64, error) {
	var count int64
	for _, sub := range f.records {
		if sub.IsPremium && sub.PremiumUntil != nil && sub.PremiumUntil.After(now) {
			count++
		}
	}
	return count, nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, zap.NewNop())
}

func TestActivateThenStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	duration := 30 * 24 * time.Hour
	require.NoError(t, svc.Activate(ctx, 42, duration))

	isPremium, until, err := svc.Status(ctx, 42)
	require.NoError(t, err)
	assert.True(t, isPremium)
	require.NotNil(t, until)
	assert.WithinDuration(t, time.Now().Add(duration), *until, 5*time.Second)
}

func TestActivateTwiceResetsWindow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Activate(ctx, 42, 24*time.Hour))
	require.NoError(t, svc.Activate(ctx, 42, 48*time.Hour))

	_, until, err := svc.Status(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, until)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), *until, 5*time.Second)
}

func TestStatusAbsentRecord(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	isPremium, until, err := svc.Status(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, isPremium)
	assert.Nil(t, until)

	// Чтение не должно создавать запись
	assert.Empty(t, repo.records)
	assert.Zero(t, repo.upserts)
}

func TestStatusLazyExpiry(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	repo.records[42] = subscription.Subscription{UserID: 42, IsPremium: true, PremiumUntil: &past}

	isPremium, until, err := svc.Status(ctx, 42)
	require.NoError(t, err)
	assert.False(t, isPremium)
	assert.Nil(t, until)

	// Корректирующая запись произошла на этом же чтении
	stored := repo.records[42]
	assert.False(t, stored.IsPremium)
	assert.Nil(t, stored.PremiumUntil)

	// Повторные чтения после истечения идемпотентны
	writes := repo.upserts
	for i := 0; i < 3; i++ {
		isPremium, until, err = svc.Status(ctx, 42)
		require.NoError(t, err)
		assert.False(t, isPremium)
		assert.Nil(t, until)
	}
	assert.Equal(t, writes, repo.upserts, "no extra corrective writes expected")
}

func TestPremiumCountExcludesExpired(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)
	repo.records[1] = subscription.Subscription{UserID: 1, IsPremium: true, PremiumUntil: &future}
	repo.records[2] = subscription.Subscription{UserID: 2, IsPremium: true, PremiumUntil: &past}
	repo.records[3] = subscription.Subscription{UserID: 3}

	count, err := svc.PremiumCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestExtendUnexpiredAddsDays(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	until := time.Now().Add(10 * 24 * time.Hour).UTC()
	repo.records[42] = subscription.Subscription{UserID: 42, IsPremium: true, PremiumUntil: &until}

	require.NoError(t, svc.Extend(ctx, 42, 5))

	stored := repo.records[42]
	require.NotNil(t, stored.PremiumUntil)
	assert.WithinDuration(t, until.Add(5*24*time.Hour), *stored.PremiumUntil, time.Second)
}

func TestExtendExpiredActsAsActivate(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	repo.records[42] = subscription.Subscription{UserID: 42, IsPremium: true, PremiumUntil: &past}

	require.NoError(t, svc.Extend(ctx, 42, 30))

	isPremium, until, err := svc.Status(ctx, 42)
	require.NoError(t, err)
	assert.True(t, isPremium)
	require.NotNil(t, until)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), *until, 5*time.Second)
}
