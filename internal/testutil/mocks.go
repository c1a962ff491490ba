package testutil

import (
	"context"
	"ecgd/internal/models"
	"ecgd/internal/providers"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (e LogEntry) Message() string {
	return fmt.Sprintf(e.Format, e.Args...)
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Logs {
		if e.Level == level {
			n++
		}
	}
	return n
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu      sync.Mutex
	Data    map[string][]byte
	Deleted []string
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
	m.Deleted = append(m.Deleted, key)
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu           sync.Mutex
	Requests     int
	CacheHits    int
	CacheMisses  int
	Persisted    int
	Ingested     map[string]int
	SignalLength []int
	AuthFailures []string
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{Ingested: make(map[string]int)}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}
func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}
func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persisted++
}
func (m *MockMetrics) IncMeasurementsIngested(prediction string, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ingested[prediction]++
}
func (m *MockMetrics) ObserveSignalLength(samples int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignalLength = append(m.SignalLength, samples)
}
func (m *MockMetrics) IncAuthFailures(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AuthFailures = append(m.AuthFailures, reason)
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
	Closed       bool
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {
	m.Closed = true
}

// NewTestStore returns a migrated store backed by a temporary SQLite file.
func NewTestStore(t *testing.T) models.MeasurementStoreInterface {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), models.GormConfig(nil))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store, err := models.NewMeasurementStore(db)
	require.NoError(t, err)
	return store
}

// FailingStore returns Err from every operation.
type FailingStore struct {
	Err error
}

func (s *FailingStore) Create(context.Context, *models.Measurement) error { return s.Err }
func (s *FailingStore) GetByID(context.Context, string, string) (*models.Measurement, error) {
	return nil, s.Err
}
func (s *FailingStore) List(context.Context, string, models.Filter, int, int) (*models.Page, error) {
	return nil, s.Err
}
func (s *FailingStore) Delete(context.Context, string, string) (*models.Measurement, error) {
	return nil, s.Err
}
func (s *FailingStore) AggregateCounts(context.Context, string, models.GroupField) (map[string]int64, error) {
	return nil, s.Err
}
func (s *FailingStore) Count(context.Context, string, models.Filter) (int64, error) { return 0, s.Err }
func (s *FailingStore) AverageHeartRate(context.Context, string) (float64, error)  { return 0, s.Err }
func (s *FailingStore) Annotate(context.Context, string, string, models.Annotation) (*models.Measurement, error) {
	return nil, s.Err
}
func (s *FailingStore) DeleteAllForUser(context.Context, string) (int64, error) { return 0, s.Err }
func (s *FailingStore) Export(context.Context) ([]models.Measurement, error)   { return nil, s.Err }
func (s *FailingStore) Import(context.Context, []models.Measurement) (int64, error) {
	return 0, s.Err
}
func (s *FailingStore) CountAll(context.Context) (int64, error)            { return 0, s.Err }
func (s *FailingStore) Stats(context.Context) (*models.StoreStats, error) { return nil, s.Err }
