package controllers

import (
	"context"
	"ecgd/internal/models"
	"ecgd/internal/providers"
	"ecgd/internal/services"
	"fmt"
	"net/http"
	"time"
)

const healthProbeTimeout = 2 * time.Second

type HealthController struct {
	logger    providers.Logger
	store     models.MeasurementStoreInterface
	ingestion services.IngestionServiceInterface
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Stored        int64   `json:"stored"`
	Ingested      int64   `json:"ingested"`
}

// Health reports 503 with status "degraded" when the store cannot be queried.
func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Stored:        -1,
		Ingested:      hc.ingestion.IngestedCount(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	status := http.StatusOK
	stored, err := hc.store.CountAll(ctx)
	if err != nil {
		hc.logger.Warnf(providers.TypeDb, "Health probe failed: %v", err)
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	} else {
		resp.Stored = stored
	}

	writeJSON(w, status, resp)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(logger providers.Logger, store models.MeasurementStoreInterface, ingestion services.IngestionServiceInterface) *HealthController {
	return &HealthController{
		logger:    logger,
		store:     store,
		ingestion: ingestion,
		startTime: time.Now(),
	}
}
