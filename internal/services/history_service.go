package services

import (
	"context"
	"ecgd/internal/analysis"
	"ecgd/internal/models"
	"ecgd/internal/providers"
	"math"
	"time"
)

const recentWindow = 7 * 24 * time.Hour

type Summary struct {
	Total        int64            `json:"total"`
	Anomalies    int64            `json:"anomalies"`
	Normal       int64            `json:"normal"`
	RiskLevels   map[string]int64 `json:"riskLevels"`
	Predictions  map[string]int64 `json:"predictions"`
	AvgHeartRate float64          `json:"avgHeartRate"`
	Recent       int64            `json:"recent"`
}

type HistoryServiceInterface interface {
	List(ctx context.Context, ownerID string, f models.Filter, page, limit int) (*models.Page, error)
	Get(ctx context.Context, ownerID, id string) (*models.Measurement, error)
	Delete(ctx context.Context, ownerID, id string) (*models.Measurement, error)
	Summary(ctx context.Context, ownerID string) (*Summary, error)
	PurgeUser(ctx context.Context, userID string) (int64, error)
}

type HistoryService struct {
	store  models.MeasurementStoreInterface
	cache  providers.CacheProviderInterface
	logger providers.Logger
	now    func() time.Time
}

func NewHistoryService(
	store models.MeasurementStoreInterface,
	cache providers.CacheProviderInterface,
	logger providers.Logger,
) HistoryServiceInterface {
	return &HistoryService{
		store:  store,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

func (s *HistoryService) List(ctx context.Context, ownerID string, f models.Filter, page, limit int) (*models.Page, error) {
	p, err := s.store.List(ctx, ownerID, f, page, limit)
	if err != nil {
		s.logger.Errorf(providers.TypeGet, "List history for %s: %v", ownerID, err)
		return nil, err
	}
	return p, nil
}

func (s *HistoryService) Get(ctx context.Context, ownerID, id string) (*models.Measurement, error) {
	return s.store.GetByID(ctx, id, ownerID)
}

func (s *HistoryService) Delete(ctx context.Context, ownerID, id string) (*models.Measurement, error) {
	m, err := s.store.Delete(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	InvalidateSummary(s.cache, ownerID)
	s.logger.Infof(providers.TypePost, "Deleted measurement %s of %s", id, ownerID)
	return m, nil
}

// Summary aggregates the owner's history. Every known risk level and class
// is present in the maps, with zero when unused.
func (s *HistoryService) Summary(ctx context.Context, ownerID string) (*Summary, error) {
	total, err := s.store.Count(ctx, ownerID, models.Filter{})
	if err != nil {
		return nil, err
	}

	byAnomaly, err := s.store.AggregateCounts(ctx, ownerID, models.GroupByAnomaly)
	if err != nil {
		return nil, err
	}
	byRisk, err := s.store.AggregateCounts(ctx, ownerID, models.GroupByRiskLevel)
	if err != nil {
		return nil, err
	}
	byPrediction, err := s.store.AggregateCounts(ctx, ownerID, models.GroupByPrediction)
	if err != nil {
		return nil, err
	}

	avg, err := s.store.AverageHeartRate(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	recent, err := s.store.Count(ctx, ownerID, models.Filter{Start: s.now().Add(-recentWindow)})
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		Total:        total,
		Anomalies:    byAnomaly["true"],
		Normal:       byAnomaly["false"],
		RiskLevels:   map[string]int64{},
		Predictions:  map[string]int64{},
		AvgHeartRate: math.Round(avg*10) / 10,
		Recent:       recent,
	}
	for _, r := range []analysis.RiskLevel{analysis.RiskLow, analysis.RiskMedium, analysis.RiskHigh} {
		sum.RiskLevels[string(r)] = byRisk[string(r)]
	}
	for _, c := range analysis.Classes {
		sum.Predictions[string(c)] = byPrediction[string(c)]
	}
	return sum, nil
}

// PurgeUser removes every measurement of a deleted account.
func (s *HistoryService) PurgeUser(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.DeleteAllForUser(ctx, userID)
	if err != nil {
		s.logger.Errorf(providers.TypeDb, "Purge measurements of %s: %v", userID, err)
		return 0, err
	}
	InvalidateSummary(s.cache, userID)
	s.logger.Infof(providers.TypeApp, "Purged %d measurements of %s", n, userID)
	return n, nil
}
