package services

import (
	"context"
	"ecgd/internal/analysis"
	"ecgd/internal/apperrors"
	"ecgd/internal/models"
	"ecgd/internal/providers"
	"ecgd/internal/structures"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// SummaryCacheKey is the cache slot holding an owner's summary response.
func SummaryCacheKey(ownerID string) string {
	return "summary:" + ownerID
}

// SummaryStampKey holds a token that changes on every invalidation, so a
// reader can tell that its freshly cached summary may already be stale.
func SummaryStampKey(ownerID string) string {
	return "summary-stamp:" + ownerID
}

// InvalidateSummary must run after the write is committed. The stamp is
// replaced before the entry is dropped.
func InvalidateSummary(cache providers.CacheProviderInterface, ownerID string) {
	cache.Set(SummaryStampKey(ownerID), []byte(uuid.NewString()))
	cache.Del(SummaryCacheKey(ownerID))
}

type IngestResult struct {
	Measurement *models.Measurement
	Analysis    *analysis.Result
}

type DirectResult struct {
	Measurement     *models.Measurement
	Recommendations []string
}

type IngestionServiceInterface interface {
	Ingest(ctx context.Context, ownerID string, signal []float64, meta *models.Metadata) (*IngestResult, error)
	CreateDirect(ctx context.Context, ownerID string, in models.DirectMeasurement) (*DirectResult, error)
	Annotate(ctx context.Context, ownerID, id string, a models.Annotation) (*models.Measurement, error)
	IngestedCount() int64
}

type IngestionService struct {
	store    models.MeasurementStoreInterface
	analyzer *analysis.Analyzer
	cache    providers.CacheProviderInterface
	metrics  providers.MetricsProviderInterface
	logger   providers.Logger
	conf     structures.AnalysisConfig
	ingested atomic.Int64
}

func NewIngestionService(
	conf *structures.Config,
	store models.MeasurementStoreInterface,
	analyzer *analysis.Analyzer,
	cache providers.CacheProviderInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
) IngestionServiceInterface {
	return &IngestionService{
		store:    store,
		analyzer: analyzer,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		conf:     conf.Analysis,
	}
}

// Ingest analyzes a raw signal and persists the result for ownerID.
// Nothing is written when the signal is rejected.
func (s *IngestionService) Ingest(ctx context.Context, ownerID string, signal []float64, meta *models.Metadata) (*IngestResult, error) {
	const op = "ingest"
	if len(signal) == 0 {
		return nil, apperrors.InvalidInput(op, "signal must be a non-empty array of numbers")
	}

	res, err := s.analyzer.Analyze(signal)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, op, err, err.Error())
	}

	m := &models.Measurement{
		UserID:     ownerID,
		EcgData:    signal,
		HeartRate:  res.HeartRate,
		Prediction: res.Prediction,
		Confidence: res.Confidence,
		RiskLevel:  res.RiskLevel,
		IsAnomaly:  res.IsAnomaly,
	}
	s.applyMetadata(m, meta)

	if err := s.persist(ctx, op, m); err != nil {
		return nil, err
	}
	s.metrics.ObserveSignalLength(res.Length)

	return &IngestResult{Measurement: m, Analysis: res}, nil
}

// CreateDirect stores a measurement the client already classified.
// A missing risk level is derived with the configured policy.
func (s *IngestionService) CreateDirect(ctx context.Context, ownerID string, in models.DirectMeasurement) (*DirectResult, error) {
	const op = "create_measurement"
	if err := analysis.ValidateSignal(in.EcgData); err != nil {
		return nil, apperrors.Validation(op, fmt.Sprintf("ecgData: %v", err))
	}
	if in.HeartRate < models.MinClientHeartRate || in.HeartRate > models.MaxClientHeartRate {
		return nil, apperrors.Validation(op,
			fmt.Sprintf("heartRate must be within [%d,%d]", models.MinClientHeartRate, models.MaxClientHeartRate))
	}
	class, err := analysis.ParseClass(in.Prediction)
	if err != nil {
		return nil, apperrors.Validation(op, err.Error())
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return nil, apperrors.Validation(op, "confidence must be within [0,1]")
	}

	risk := s.analyzer.Policy().Assess(class, in.Confidence)
	if in.RiskLevel != "" {
		if risk, err = analysis.ParseRiskLevel(in.RiskLevel); err != nil {
			return nil, apperrors.Validation(op, err.Error())
		}
	}

	m := &models.Measurement{
		UserID:     ownerID,
		EcgData:    in.EcgData,
		HeartRate:  in.HeartRate,
		Prediction: class,
		Confidence: in.Confidence,
		RiskLevel:  risk,
		IsAnomaly:  analysis.IsAnomaly(class),
	}
	s.applyMetadata(m, &in.Metadata)

	if err := s.persist(ctx, op, m); err != nil {
		return nil, err
	}

	// the legacy label is kept for the advice lookup only
	return &DirectResult{
		Measurement:     m,
		Recommendations: analysis.Recommend(in.Prediction, in.Confidence, in.HeartRate),
	}, nil
}

func (s *IngestionService) Annotate(ctx context.Context, ownerID, id string, a models.Annotation) (*models.Measurement, error) {
	if a.Empty() {
		return nil, apperrors.InvalidInput("annotate", "provide symptoms or notes")
	}
	m, err := s.store.Annotate(ctx, id, ownerID, a)
	if err != nil {
		s.logStoreError("annotate", err)
		return nil, err
	}
	InvalidateSummary(s.cache, ownerID)
	return m, nil
}

func (s *IngestionService) IngestedCount() int64 {
	return s.ingested.Load()
}

func (s *IngestionService) applyMetadata(m *models.Measurement, meta *models.Metadata) {
	m.DeviceInfo = s.conf.DefaultDevice
	m.MeasurementDuration = s.conf.DefaultDuration
	if meta == nil {
		return
	}
	m.Symptoms = meta.Symptoms
	m.Notes = meta.Notes
	if meta.DeviceInfo != "" {
		m.DeviceInfo = meta.DeviceInfo
	}
	if seconds := meta.CaptureSeconds(); seconds > 0 {
		m.MeasurementDuration = seconds
	}
}

func (s *IngestionService) persist(ctx context.Context, op string, m *models.Measurement) error {
	start := time.Now()
	err := s.store.Create(ctx, m)
	s.metrics.ObservePersistenceDuration(time.Since(start))
	if err != nil {
		s.logStoreError(op, err)
		return err
	}

	s.ingested.Inc()
	InvalidateSummary(s.cache, m.UserID)
	s.metrics.IncMeasurementsIngested(string(m.Prediction), m.IsAnomaly)
	s.logger.Debugf(providers.TypePost, "Stored measurement %s for %s: %s (%.3f)", m.ID, m.UserID, m.Prediction, m.Confidence)
	return nil
}

func (s *IngestionService) logStoreError(op string, err error) {
	if apperrors.KindOf(err) == apperrors.KindStoreFailure {
		s.logger.Errorf(providers.TypeDb, "%s failed: %v", op, err)
	}
}
