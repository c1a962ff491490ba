package models

import (
	"context"
	"ecgd/internal/apperrors"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const importBatchSize = 200

type MeasurementStoreInterface interface {
	Create(ctx context.Context, m *Measurement) error
	GetByID(ctx context.Context, id, ownerID string) (*Measurement, error)
	List(ctx context.Context, ownerID string, f Filter, page, limit int) (*Page, error)
	Delete(ctx context.Context, id, ownerID string) (*Measurement, error)
	AggregateCounts(ctx context.Context, ownerID string, field GroupField) (map[string]int64, error)
	Count(ctx context.Context, ownerID string, f Filter) (int64, error)
	AverageHeartRate(ctx context.Context, ownerID string) (float64, error)
	Annotate(ctx context.Context, id, ownerID string, a Annotation) (*Measurement, error)
	DeleteAllForUser(ctx context.Context, ownerID string) (int64, error)
	Export(ctx context.Context) ([]Measurement, error)
	Import(ctx context.Context, items []Measurement) (int64, error)
	CountAll(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*StoreStats, error)
}

// GormConfig is shared by the daemon and tests so timestamps are always UTC.
func GormConfig(logger gormlogger.Interface) *gorm.Config {
	if logger == nil {
		logger = gormlogger.Discard
	}
	return &gorm.Config{
		Logger:  logger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

type MeasurementStore struct {
	db *gorm.DB
}

// NewMeasurementStore migrates the schema and returns a store bound to db.
func NewMeasurementStore(db *gorm.DB) (MeasurementStoreInterface, error) {
	if err := db.AutoMigrate(&Measurement{}); err != nil {
		return nil, fmt.Errorf("migrate measurements: %w", err)
	}
	return newMeasurementStore(db), nil
}

func newMeasurementStore(db *gorm.DB) *MeasurementStore {
	return &MeasurementStore{db: db}
}

func ownedBy(ownerID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", ownerID)
	}
}

func matching(f Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.IsAnomaly != nil {
			db = db.Where("is_anomaly = ?", *f.IsAnomaly)
		}
		if f.RiskLevel != "" {
			db = db.Where("risk_level = ?", f.RiskLevel)
		}
		if f.Prediction != "" {
			db = db.Where("prediction = ?", f.Prediction)
		}
		if !f.Start.IsZero() {
			db = db.Where("created_at >= ?", f.Start.UTC())
		}
		if !f.End.IsZero() {
			db = db.Where("created_at <= ?", f.End.UTC())
		}
		return db
	}
}

func translate(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(op, "measurement not found")
	}
	return apperrors.StoreFailure(op, err)
}

func (s *MeasurementStore) Create(ctx context.Context, m *Measurement) error {
	const op = "store.create"
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return translate(op, err)
	}
	return nil
}

func (s *MeasurementStore) GetByID(ctx context.Context, id, ownerID string) (*Measurement, error) {
	var m Measurement
	err := s.db.WithContext(ctx).Scopes(ownedBy(ownerID)).Where("id = ?", id).First(&m).Error
	if err != nil {
		return nil, translate("store.get", err)
	}
	return &m, nil
}

func (s *MeasurementStore) List(ctx context.Context, ownerID string, f Filter, page, limit int) (*Page, error) {
	const op = "store.list"
	page, limit = ClampPage(page, limit)

	var total int64
	err := s.db.WithContext(ctx).Model(&Measurement{}).
		Scopes(ownedBy(ownerID), matching(f)).
		Count(&total).Error
	if err != nil {
		return nil, translate(op, err)
	}

	items := make([]Measurement, 0, limit)
	err = s.db.WithContext(ctx).
		Scopes(ownedBy(ownerID), matching(f)).
		Omit("ecg_data").
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, translate(op, err)
	}

	return &Page{Total: total, Page: page, Limit: limit, Items: items}, nil
}

func (s *MeasurementStore) Delete(ctx context.Context, id, ownerID string) (*Measurement, error) {
	const op = "store.delete"
	var removed Measurement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(ownedBy(ownerID)).Where("id = ?", id).First(&removed).Error; err != nil {
			return err
		}
		res := tx.Scopes(ownedBy(ownerID)).Where("id = ?", id).Delete(&Measurement{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, translate(op, err)
	}
	return &removed, nil
}

type bucketCount struct {
	Bucket string
	Total  int64
}

func (s *MeasurementStore) AggregateCounts(ctx context.Context, ownerID string, field GroupField) (map[string]int64, error) {
	const op = "store.aggregate"
	expr, ok := groupExpressions[field]
	if !ok {
		return nil, apperrors.InvalidInput(op, fmt.Sprintf("cannot group by %q", field))
	}

	var rows []bucketCount
	err := s.db.WithContext(ctx).Model(&Measurement{}).
		Select(expr + " AS bucket, COUNT(*) AS total").
		Scopes(ownedBy(ownerID)).
		Group("bucket").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(op, err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Bucket] = r.Total
	}
	return counts, nil
}

func (s *MeasurementStore) Count(ctx context.Context, ownerID string, f Filter) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Measurement{}).
		Scopes(ownedBy(ownerID), matching(f)).
		Count(&n).Error
	if err != nil {
		return 0, translate("store.count", err)
	}
	return n, nil
}

func (s *MeasurementStore) AverageHeartRate(ctx context.Context, ownerID string) (float64, error) {
	var avg float64
	err := s.db.WithContext(ctx).Model(&Measurement{}).
		Scopes(ownedBy(ownerID)).
		Select("COALESCE(AVG(heart_rate), 0)").
		Row().Scan(&avg)
	if err != nil {
		return 0, translate("store.avg_heart_rate", err)
	}
	return avg, nil
}

// Annotate is a single conditional update keyed by id and owner.
func (s *MeasurementStore) Annotate(ctx context.Context, id, ownerID string, a Annotation) (*Measurement, error) {
	const op = "store.annotate"
	if a.Empty() {
		return nil, apperrors.InvalidInput(op, "nothing to update")
	}

	updates := make(map[string]interface{}, 2)
	if a.Symptoms != nil {
		symptoms := *a.Symptoms
		if symptoms == nil {
			symptoms = []string{}
		}
		updates["symptoms"] = datatypes.JSONSlice[string](symptoms)
	}
	if a.Notes != nil {
		updates["notes"] = strings.TrimSpace(*a.Notes)
	}

	res := s.db.WithContext(ctx).Model(&Measurement{}).
		Scopes(ownedBy(ownerID)).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound(op, "measurement not found")
	}
	return s.GetByID(ctx, id, ownerID)
}

func (s *MeasurementStore) DeleteAllForUser(ctx context.Context, ownerID string) (int64, error) {
	res := s.db.WithContext(ctx).Scopes(ownedBy(ownerID)).Delete(&Measurement{})
	if res.Error != nil {
		return 0, translate("store.delete_all", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *MeasurementStore) Export(ctx context.Context) ([]Measurement, error) {
	var items []Measurement
	err := s.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&items).Error
	if err != nil {
		return nil, translate("store.export", err)
	}
	return items, nil
}

// Import inserts records, skipping ids that already exist. It returns the
// number of rows actually inserted.
func (s *MeasurementStore) Import(ctx context.Context, items []Measurement) (int64, error) {
	const op = "store.import"
	if len(items) == 0 {
		return 0, nil
	}
	for i := range items {
		items[i].applyDefaults()
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if err := items[i].Validate(); err != nil {
			return 0, apperrors.Wrap(apperrors.KindValidation, op, err, fmt.Sprintf("record %s", items[i].ID))
		}
	}

	var inserted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(items, importBatchSize)
		inserted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, translate(op, err)
	}
	return inserted, nil
}

func (s *MeasurementStore) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Measurement{}).Count(&n).Error; err != nil {
		return 0, translate("store.count_all", err)
	}
	return n, nil
}

func (s *MeasurementStore) Stats(ctx context.Context) (*StoreStats, error) {
	const op = "store.stats"
	var st StoreStats
	db := s.db.WithContext(ctx)

	if err := db.Model(&Measurement{}).Count(&st.Total).Error; err != nil {
		return nil, translate(op, err)
	}
	if err := db.Model(&Measurement{}).Where("is_anomaly = ?", true).Count(&st.Anomalies).Error; err != nil {
		return nil, translate(op, err)
	}
	if err := db.Model(&Measurement{}).Distinct("user_id").Count(&st.Users).Error; err != nil {
		return nil, translate(op, err)
	}
	return &st, nil
}
