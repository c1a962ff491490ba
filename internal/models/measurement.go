package models

import (
	"ecgd/internal/analysis"
	"ecgd/internal/apperrors"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	DefaultDeviceInfo          = "AD8232 ECG Sensor"
	DefaultMeasurementDuration = 30

	MinClientHeartRate = 30
	MaxClientHeartRate = 200

	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Measurement is one analyzed ECG recording owned by a single user.
type Measurement struct {
	ID                  string                       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID              string                       `gorm:"type:varchar(64);not null;index:idx_measurements_user_created,priority:1" json:"userId"`
	EcgData             datatypes.JSONSlice[float64] `gorm:"not null" json:"ecgData,omitempty"`
	HeartRate           int                          `gorm:"not null" json:"heartRate"`
	Prediction          analysis.Class               `gorm:"type:varchar(32);not null;index" json:"prediction"`
	Confidence          float64                      `gorm:"not null" json:"confidence"`
	RiskLevel           analysis.RiskLevel           `gorm:"type:varchar(16);not null;index" json:"riskLevel"`
	Symptoms            datatypes.JSONSlice[string]  `json:"symptoms"`
	Notes               string                       `gorm:"type:text" json:"notes"`
	IsAnomaly           bool                         `gorm:"not null;index" json:"isAnomaly"`
	DeviceInfo          string                       `gorm:"type:varchar(128)" json:"deviceInfo"`
	MeasurementDuration int                          `json:"measurementDuration"`
	CreatedAt           time.Time                    `gorm:"index:idx_measurements_user_created,priority:2" json:"createdAt"`
	UpdatedAt           time.Time                    `json:"updatedAt"`
}

// Validate checks the record invariants enforced on every create.
func (m *Measurement) Validate() error {
	const op = "measurement.validate"
	if strings.TrimSpace(m.UserID) == "" {
		return apperrors.Validation(op, "userId is required")
	}
	if len(m.EcgData) == 0 {
		return apperrors.Validation(op, "ecgData must not be empty")
	}
	for i, v := range m.EcgData {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperrors.Validation(op, fmt.Sprintf("ecgData[%d] is not a finite number", i))
		}
	}
	if m.HeartRate < MinClientHeartRate || m.HeartRate > MaxClientHeartRate {
		return apperrors.Validation(op, fmt.Sprintf("heartRate must be within [%d,%d]", MinClientHeartRate, MaxClientHeartRate))
	}
	if !m.Prediction.Valid() {
		return apperrors.Validation(op, fmt.Sprintf("unknown prediction %q", m.Prediction))
	}
	if math.IsNaN(m.Confidence) || m.Confidence < 0 || m.Confidence > 1 {
		return apperrors.Validation(op, "confidence must be within [0,1]")
	}
	if !m.RiskLevel.Valid() {
		return apperrors.Validation(op, fmt.Sprintf("unknown riskLevel %q", m.RiskLevel))
	}
	if m.IsAnomaly != analysis.IsAnomaly(m.Prediction) {
		return apperrors.Validation(op, "isAnomaly must match prediction")
	}
	return nil
}

// applyDefaults fills optional fields before a write.
func (m *Measurement) applyDefaults() {
	if m.Symptoms == nil {
		m.Symptoms = datatypes.JSONSlice[string]{}
	}
	m.Notes = strings.TrimSpace(m.Notes)
	if m.DeviceInfo == "" {
		m.DeviceInfo = DefaultDeviceInfo
	}
	if m.MeasurementDuration <= 0 {
		m.MeasurementDuration = DefaultMeasurementDuration
	}
}

// ClassIndex and ClassCode are presentation fields derived from Prediction.
func (m *Measurement) ClassIndex() int   { return m.Prediction.Index() }
func (m *Measurement) ClassCode() string { return m.Prediction.Code() }

// Metadata is the optional provenance a client attaches to a signal.
// Zero values fall back to the documented defaults. Capture length is
// accepted as either measurementDuration or the shorter duration key.
type Metadata struct {
	Symptoms            []string `json:"symptoms,omitempty"`
	Notes               string   `json:"notes,omitempty"`
	DeviceInfo          string   `json:"deviceInfo,omitempty"`
	MeasurementDuration int      `json:"measurementDuration,omitempty"`
	Duration            int      `json:"duration,omitempty"`
}

// CaptureSeconds prefers measurementDuration and falls back to duration.
func (m Metadata) CaptureSeconds() int {
	if m.MeasurementDuration > 0 {
		return m.MeasurementDuration
	}
	return m.Duration
}

// DirectMeasurement is a client-classified record that skips the analyzer.
type DirectMeasurement struct {
	EcgData    []float64 `json:"ecgData"`
	HeartRate  int       `json:"heartRate"`
	Prediction string    `json:"prediction"`
	Confidence float64   `json:"confidence"`
	RiskLevel  string    `json:"riskLevel,omitempty"`
	Metadata
}

// Annotation carries the only fields that may change after creation.
// A nil field is left untouched.
type Annotation struct {
	Symptoms *[]string `json:"symptoms,omitempty"`
	Notes    *string   `json:"notes,omitempty"`
}

func (a Annotation) Empty() bool {
	return a.Symptoms == nil && a.Notes == nil
}

// Filter narrows a listing. Zero values match everything; the time range
// is inclusive on both ends.
type Filter struct {
	IsAnomaly  *bool
	RiskLevel  analysis.RiskLevel
	Prediction analysis.Class
	Start      time.Time
	End        time.Time
}

type Page struct {
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Items []Measurement `json:"items"`
}

// ClampPage bounds page to >= 1 and limit to [1, MaxLimit].
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

type GroupField string

const (
	GroupByRiskLevel  GroupField = "riskLevel"
	GroupByPrediction GroupField = "prediction"
	GroupByAnomaly    GroupField = "isAnomaly"
)

var groupExpressions = map[GroupField]string{
	GroupByRiskLevel:  "risk_level",
	GroupByPrediction: "prediction",
	GroupByAnomaly:    "CASE WHEN is_anomaly THEN 'true' ELSE 'false' END",
}

// StoreStats is the store-wide view used by the status command.
type StoreStats struct {
	Total     int64 `json:"total"`
	Anomalies int64 `json:"anomalies"`
	Users     int64 `json:"users"`
}
