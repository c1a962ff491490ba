package services

import (
	"context"
	"ecgd/internal/analysis"
	"ecgd/internal/apperrors"
	"ecgd/internal/models"
	"ecgd/internal/testutil"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newHistoryFixture(t *testing.T) (*HistoryService, models.MeasurementStoreInterface, *testutil.MockCache) {
	t.Helper()
	store := testutil.NewTestStore(t)
	cache := testutil.NewMockCache()
	svc := NewHistoryService(store, cache, &testutil.MockLogger{}).(*HistoryService)
	svc.now = func() time.Time { return fixedNow }
	return svc, store, cache
}

func record(owner string, c analysis.Class, risk analysis.RiskLevel, hr int, at time.Time) *models.Measurement {
	return &models.Measurement{
		UserID:     owner,
		EcgData:    []float64{1, 2, 1},
		HeartRate:  hr,
		Prediction: c,
		Confidence: 0.8,
		RiskLevel:  risk,
		IsAnomaly:  analysis.IsAnomaly(c),
		CreatedAt:  at,
	}
}

func TestHistoryService_Summary(t *testing.T) {
	svc, store, _ := newHistoryFixture(t)
	ctx := context.Background()

	for _, m := range []*models.Measurement{
		record("u1", analysis.ClassNormal, analysis.RiskLow, 60, fixedNow.Add(-time.Hour)),
		record("u1", analysis.ClassNormal, analysis.RiskLow, 70, fixedNow.Add(-30*24*time.Hour)),
		record("u1", analysis.ClassVentricular, analysis.RiskHigh, 111, fixedNow.Add(-2*24*time.Hour)),
		record("u2", analysis.ClassFusion, analysis.RiskMedium, 90, fixedNow),
	} {
		require.NoError(t, store.Create(ctx, m))
	}

	sum, err := svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.Total)
	assert.Equal(t, int64(1), sum.Anomalies)
	assert.Equal(t, int64(2), sum.Normal)
	assert.Equal(t, int64(2), sum.Recent)
	assert.Equal(t, 80.3, sum.AvgHeartRate)
	assert.Equal(t, map[string]int64{"Low": 2, "Medium": 0, "High": 1}, sum.RiskLevels)
	assert.Equal(t, map[string]int64{
		"Normal": 2, "Supraventricular": 0, "Ventricular": 1, "Fusion": 0, "Unknown": 0,
	}, sum.Predictions)
}

func TestHistoryService_SummaryEmpty(t *testing.T) {
	svc, _, _ := newHistoryFixture(t)
	sum, err := svc.Summary(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
	assert.Zero(t, sum.AvgHeartRate)
	assert.Len(t, sum.Predictions, 5)
}

func TestHistoryService_DeleteInvalidatesCache(t *testing.T) {
	svc, store, cache := newHistoryFixture(t)
	ctx := context.Background()

	m := record("u1", analysis.ClassNormal, analysis.RiskLow, 72, fixedNow)
	require.NoError(t, store.Create(ctx, m))
	cache.Set(SummaryCacheKey("u1"), []byte("{}"))

	removed, err := svc.Delete(ctx, "u1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, removed.ID)
	_, cached := cache.Get(SummaryCacheKey("u1"))
	assert.False(t, cached)

	_, err = svc.Delete(ctx, "u1", m.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHistoryService_ListAndGet(t *testing.T) {
	svc, store, _ := newHistoryFixture(t)
	ctx := context.Background()
	m := record("u1", analysis.ClassSupraventricular, analysis.RiskMedium, 72, fixedNow)
	require.NoError(t, store.Create(ctx, m))

	page, err := svc.List(ctx, "u1", models.Filter{Prediction: analysis.ClassSupraventricular}, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	got, err := svc.Get(ctx, "u1", m.ID)
	require.NoError(t, err)
	assert.Len(t, got.EcgData, 3)

	_, err = svc.Get(ctx, "u2", m.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHistoryService_PurgeUser(t *testing.T) {
	svc, store, cache := newHistoryFixture(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, record("u1", analysis.ClassNormal, analysis.RiskLow, 72, fixedNow)))
	require.NoError(t, store.Create(ctx, record("u1", analysis.ClassNormal, analysis.RiskLow, 72, fixedNow)))
	require.NoError(t, store.Create(ctx, record("u2", analysis.ClassNormal, analysis.RiskLow, 72, fixedNow)))

	n, err := svc.PurgeUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, cache.Deleted, SummaryCacheKey("u1"))

	left, err := store.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), left)
}

func TestHistoryService_StoreFailure(t *testing.T) {
	logger := &testutil.MockLogger{}
	failing := &testutil.FailingStore{Err: apperrors.StoreFailure("store.list", errors.New("timeout"))}
	svc := NewHistoryService(failing, testutil.NewMockCache(), logger)

	_, err := svc.List(context.Background(), "u1", models.Filter{}, 1, 20)
	assert.ErrorIs(t, err, apperrors.ErrStoreFailure)
	assert.Equal(t, 1, logger.Count("error"))

	_, err = svc.Summary(context.Background(), "u1")
	assert.ErrorIs(t, err, apperrors.ErrStoreFailure)
}
