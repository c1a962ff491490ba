package controllers

import (
	"bytes"
	"ecgd/internal/apperrors"
	"ecgd/internal/models"
	"ecgd/internal/providers"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
)

// Signals of a few minutes at 360 Hz fit comfortably.
const maxRequestBodySize = 10 << 20

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// writeError maps err to a status and a client-safe message. Causes of
// server-side failures only reach the log.
func writeError(w http.ResponseWriter, logger providers.Logger, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorResponse{Success: false, Message: apperrors.PublicMessage(err)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.InvalidInput("decode", "request body too large")
		}
		return apperrors.InvalidInput("decode", "malformed JSON body")
	}
	return nil
}

func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, ok := providers.PrincipalFromContext(r.Context())
	if !ok || p.UserID == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Authentication required"})
		return "", false
	}
	return p.UserID, true
}

// serveFromCacheOrCompute answers from cacheKey or computes and caches the
// result. When stampKey changes while computing, the new entry is dropped
// again since an invalidation may have raced with it.
func serveFromCacheOrCompute(w http.ResponseWriter, r *http.Request, cache providers.CacheProviderInterface, logger providers.Logger, cacheKey, stampKey string, compute func() (any, error)) {
	if data, ok := cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	stamp, _ := cache.Get(stampKey)
	result, err := compute()
	if err != nil {
		writeError(w, logger, r, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	cache.Set(cacheKey, gson)
	if current, _ := cache.Get(stampKey); !bytes.Equal(stamp, current) {
		cache.Del(cacheKey)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

// measurementView adds the derived class fields to a stored record.
type measurementView struct {
	*models.Measurement
	ClassIndex int    `json:"classIndex"`
	ClassCode  string `json:"classCode"`
}

func viewOf(m *models.Measurement) measurementView {
	return measurementView{Measurement: m, ClassIndex: m.ClassIndex(), ClassCode: m.ClassCode()}
}

func viewsOf(items []models.Measurement) []measurementView {
	views := make([]measurementView, 0, len(items))
	for i := range items {
		views = append(views, viewOf(&items[i]))
	}
	return views
}
