package backup

import (
	"bytes"
	"ecgd/internal/analysis"
	"ecgd/internal/models"
	"fmt"
	"math"
	"time"

	json "github.com/goccy/go-json"
	"gorm.io/datatypes"
)

// objectID accepts both a bare hex string and the extended {"$oid": "..."} form.
type objectID string

func (o *objectID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = ""
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var ext struct {
			OID string `json:"$oid"`
		}
		if err := json.Unmarshal(data, &ext); err != nil {
			return err
		}
		*o = objectID(ext.OID)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = objectID(s)
	return nil
}

// legacyTime accepts an ISO string or {"$date": "..."}.
type legacyTime time.Time

func (t *legacyTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var ext struct {
			Date time.Time `json:"$date"`
		}
		if err := json.Unmarshal(data, &ext); err != nil {
			return err
		}
		*t = legacyTime(ext.Date.UTC())
		return nil
	}
	var v time.Time
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = legacyTime(v.UTC())
	return nil
}

type legacyMeasurement struct {
	ID                  objectID   `json:"_id"`
	UserID              objectID   `json:"userId"`
	EcgData             []float64  `json:"ecgData"`
	HeartRate           int        `json:"heartRate"`
	Prediction          string     `json:"prediction"`
	Confidence          float64    `json:"confidence"`
	RiskLevel           string     `json:"riskLevel"`
	Symptoms            []string   `json:"symptoms"`
	Notes               string     `json:"notes"`
	IsAnomaly           bool       `json:"isAnomaly"`
	DeviceInfo          string     `json:"deviceInfo"`
	MeasurementDuration int        `json:"measurementDuration"`
	CreatedAt           legacyTime `json:"createdAt"`
	UpdatedAt           legacyTime `json:"updatedAt"`
}

// legacyBackup is the document dump written by the previous deployment.
// Users are not carried over; only measurements are restored.
type legacyBackup struct {
	Timestamp   string `json:"timestamp"`
	Collections struct {
		Measurements []legacyMeasurement `json:"measurements"`
	} `json:"collections"`
}

// legacyConfidence bounds a stored score to [0,1]; older rows were never checked.
func legacyConfidence(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(1, max(0, v))
}

// toMeasurement converts one dumped row. The statistical estimator of the
// previous deployment stored unbounded heart rates, so they are clamped to
// the range accepted on create.
func (l legacyMeasurement) toMeasurement() (models.Measurement, error) {
	class, err := analysis.ParseClass(l.Prediction)
	if err != nil {
		return models.Measurement{}, fmt.Errorf("record %s: %w", l.ID, err)
	}
	risk, err := analysis.ParseRiskLevel(l.RiskLevel)
	if err != nil {
		return models.Measurement{}, fmt.Errorf("record %s: %w", l.ID, err)
	}
	return models.Measurement{
		ID:                  string(l.ID),
		UserID:              string(l.UserID),
		EcgData:             datatypes.JSONSlice[float64](l.EcgData),
		HeartRate:           max(models.MinClientHeartRate, min(models.MaxClientHeartRate, l.HeartRate)),
		Prediction:          class,
		Confidence:          legacyConfidence(l.Confidence),
		RiskLevel:           risk,
		Symptoms:            datatypes.JSONSlice[string](l.Symptoms),
		Notes:               l.Notes,
		IsAnomaly:           analysis.IsAnomaly(class),
		DeviceInfo:          l.DeviceInfo,
		MeasurementDuration: l.MeasurementDuration,
		CreatedAt:           time.Time(l.CreatedAt),
		UpdatedAt:           time.Time(l.UpdatedAt),
	}, nil
}
