package controllers

import (
	"ecgd/internal/analysis"
	"ecgd/internal/models"
	"ecgd/internal/providers"
	"ecgd/internal/services"
	"net/http"
	"time"
)

const modelVersion = "1.0.0"

type ApiController struct {
	logger    providers.Logger
	ingestion services.IngestionServiceInterface
	analyzer  *analysis.Analyzer
}

func NewApiController(logger providers.Logger, ingestion services.IngestionServiceInterface, analyzer *analysis.Analyzer) *ApiController {
	return &ApiController{
		logger:    logger,
		ingestion: ingestion,
		analyzer:  analyzer,
	}
}

type predictRequest struct {
	Signal  []float64        `json:"signal"`
	EcgData []float64        `json:"ecgData"`
	Meta    *models.Metadata `json:"meta"`
	models.Metadata
}

type predictMeta struct {
	Symptoms            []string `json:"symptoms"`
	Notes               string   `json:"notes"`
	DeviceInfo          string   `json:"deviceInfo"`
	MeasurementDuration int      `json:"measurementDuration"`
}

type predictResponse struct {
	ID              string             `json:"id"`
	UserID          string             `json:"userId"`
	CreatedAt       time.Time          `json:"createdAt"`
	ClassIndex      int                `json:"classIndex"`
	ClassCode       string             `json:"classCode"`
	Prediction      analysis.Class     `json:"prediction"`
	Confidence      float64            `json:"confidence"`
	RiskLevel       analysis.RiskLevel `json:"riskLevel"`
	IsAnomaly       bool               `json:"isAnomaly"`
	HeartRate       int                `json:"heartRate"`
	Recommendations []string           `json:"recommendations"`
	Probabilities   []float64          `json:"probabilities"`
	Stats           analysis.Stats     `json:"stats"`
	Length          int                `json:"length"`
	Meta            predictMeta        `json:"meta"`
}

// Predict serves both the classifier and the analysis routes. The signal
// may arrive as "signal" or "ecgData".
func (ac *ApiController) Predict(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req predictRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, ac.logger, r, err)
		return
	}
	signal := req.Signal
	if len(signal) == 0 {
		signal = req.EcgData
	}
	meta := req.Meta
	if meta == nil {
		meta = &req.Metadata
	}

	res, err := ac.ingestion.Ingest(r.Context(), owner, signal, meta)
	if err != nil {
		writeError(w, ac.logger, r, err)
		return
	}

	m := res.Measurement
	recs := res.Analysis.Recommendations
	if recs == nil {
		recs = []string{}
	}
	writeJSON(w, http.StatusOK, predictResponse{
		ID:              m.ID,
		UserID:          m.UserID,
		CreatedAt:       m.CreatedAt,
		ClassIndex:      m.ClassIndex(),
		ClassCode:       m.ClassCode(),
		Prediction:      m.Prediction,
		Confidence:      m.Confidence,
		RiskLevel:       m.RiskLevel,
		IsAnomaly:       m.IsAnomaly,
		HeartRate:       m.HeartRate,
		Recommendations: recs,
		Probabilities:   res.Analysis.Probabilities,
		Stats:           res.Analysis.Stats,
		Length:          res.Analysis.Length,
		Meta: predictMeta{
			Symptoms:            m.Symptoms,
			Notes:               m.Notes,
			DeviceInfo:          m.DeviceInfo,
			MeasurementDuration: m.MeasurementDuration,
		},
	})
}

func (ac *ApiController) Classes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"classes": analysis.ClassTable()})
}

type modelInfo struct {
	Name               string               `json:"name"`
	Version            string               `json:"version"`
	Type               string               `json:"type"`
	Classes            []analysis.ClassInfo `json:"classes"`
	HeartRateEstimator string               `json:"heartRateEstimator"`
	RiskPolicy         string               `json:"riskPolicy"`
	Input              string               `json:"input"`
	Description        string               `json:"description"`
}

func (ac *ApiController) ModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, modelInfo{
		Name:               "ecg-statistical-baseline",
		Version:            modelVersion,
		Type:               "statistical",
		Classes:            analysis.ClassTable(),
		HeartRateEstimator: ac.analyzer.Estimator().Name(),
		RiskPolicy:         ac.analyzer.Policy().Name(),
		Input:              "single-lead ECG samples (number[])",
		Description:        "Heuristic beat classification from signal statistics. Not a medical device.",
	})
}

type createResponse struct {
	measurementView
	Recommendations []string `json:"recommendations"`
}

func (ac *ApiController) CreateMeasurement(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req models.DirectMeasurement
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, ac.logger, r, err)
		return
	}

	res, err := ac.ingestion.CreateDirect(r.Context(), owner, req)
	if err != nil {
		writeError(w, ac.logger, r, err)
		return
	}

	recs := res.Recommendations
	if recs == nil {
		recs = []string{}
	}
	writeJSON(w, http.StatusCreated, createResponse{measurementView: viewOf(res.Measurement), Recommendations: recs})
}

func (ac *ApiController) AnnotateMeasurement(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req models.Annotation
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, ac.logger, r, err)
		return
	}

	m, err := ac.ingestion.Annotate(r.Context(), owner, r.PathValue("id"), req)
	if err != nil {
		writeError(w, ac.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(m))
}
