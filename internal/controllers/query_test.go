package controllers

import (
	"ecgd/internal/analysis"
	"ecgd/internal/apperrors"
	"ecgd/internal/models"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHistoryQuery_Defaults(t *testing.T) {
	hq, err := ParseHistoryQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPage, hq.Page)
	assert.Equal(t, models.DefaultLimit, hq.Limit)
	assert.Equal(t, models.Filter{}, hq.Filter)
}

func TestParseHistoryQuery_Paging(t *testing.T) {
	tests := []struct {
		raw   string
		page  int
		limit int
	}{
		{"page=3&limit=50", 3, 50},
		{"page=0&limit=0", 1, 1},
		{"page=-2&limit=1000", 1, models.MaxLimit},
		{"page=abc&limit=xyz", models.DefaultPage, models.DefaultLimit},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.raw)
			hq, err := ParseHistoryQuery(q)
			require.NoError(t, err)
			assert.Equal(t, tt.page, hq.Page)
			assert.Equal(t, tt.limit, hq.Limit)
		})
	}
}

func TestParseHistoryQuery_Filters(t *testing.T) {
	q, _ := url.ParseQuery("isAnomaly=TRUE&riskLevel=High&prediction=Ventricular&startDate=2024-01-01&endDate=2024-01-31")
	hq, err := ParseHistoryQuery(q)
	require.NoError(t, err)

	require.NotNil(t, hq.Filter.IsAnomaly)
	assert.True(t, *hq.Filter.IsAnomaly)
	assert.Equal(t, analysis.RiskHigh, hq.Filter.RiskLevel)
	assert.Equal(t, analysis.ClassVentricular, hq.Filter.Prediction)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), hq.Filter.Start)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC), hq.Filter.End)
}

func TestParseHistoryQuery_RFC3339(t *testing.T) {
	q, _ := url.ParseQuery("startDate=2024-01-01T10:00:00%2B02:00")
	hq, err := ParseHistoryQuery(q)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), hq.Filter.Start)
}

func TestParseHistoryQuery_Rejects(t *testing.T) {
	for _, raw := range []string{
		"isAnomaly=1",
		"riskLevel=Critical",
		"prediction=Sinus",
		"startDate=01/02/2024",
		"endDate=tomorrow",
		"startDate=2024-03-01&endDate=2024-02-01",
	} {
		t.Run(raw, func(t *testing.T) {
			q, _ := url.ParseQuery(raw)
			_, err := ParseHistoryQuery(q)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}
