package controllers

import (
	"ecgd/internal/analysis"
	"ecgd/internal/providers"
	"ecgd/internal/services"
	"net/http"
	"time"
)

type HistoryController struct {
	logger  providers.Logger
	history services.HistoryServiceInterface
	cache   providers.CacheProviderInterface
}

func NewHistoryController(logger providers.Logger, history services.HistoryServiceInterface, cache providers.CacheProviderInterface) *HistoryController {
	return &HistoryController{
		logger:  logger,
		history: history,
		cache:   cache,
	}
}

type listResponse struct {
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
	Items []measurementView `json:"items"`
}

func (hc *HistoryController) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	q, err := ParseHistoryQuery(r.URL.Query())
	if err != nil {
		writeError(w, hc.logger, r, err)
		return
	}

	page, err := hc.history.List(r.Context(), owner, q.Filter, q.Page, q.Limit)
	if err != nil {
		writeError(w, hc.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
		Items: viewsOf(page.Items),
	})
}

func (hc *HistoryController) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	m, err := hc.history.Get(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, hc.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(m))
}

type removedRecord struct {
	ID         string         `json:"id"`
	Prediction analysis.Class `json:"prediction"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func (hc *HistoryController) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	m, err := hc.history.Delete(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, hc.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"removed": removedRecord{ID: m.ID, Prediction: m.Prediction, CreatedAt: m.CreatedAt},
	})
}

func (hc *HistoryController) Summary(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	serveFromCacheOrCompute(w, r, hc.cache, hc.logger, services.SummaryCacheKey(owner), services.SummaryStampKey(owner), func() (any, error) {
		return hc.history.Summary(r.Context(), owner)
	})
}
