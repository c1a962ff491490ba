package controllers

import (
	"ecgd/internal/analysis"
	"ecgd/internal/apperrors"
	"ecgd/internal/models"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const dateOnly = "2006-01-02"

type HistoryQuery struct {
	Filter models.Filter
	Page   int
	Limit  int
}

func intOrDefault(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}

// parseTime accepts RFC 3339 or a bare date. A bare end date covers the
// whole day.
func parseTime(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// ParseHistoryQuery validates the listing parameters. Non-numeric paging
// values fall back to defaults; every other malformed value is rejected.
func ParseHistoryQuery(q url.Values) (*HistoryQuery, error) {
	const op = "history.query"
	hq := &HistoryQuery{}
	hq.Page, hq.Limit = models.ClampPage(
		intOrDefault(q.Get("page"), models.DefaultPage),
		intOrDefault(q.Get("limit"), models.DefaultLimit),
	)

	if raw := q.Get("isAnomaly"); raw != "" {
		switch strings.ToLower(raw) {
		case "true":
			v := true
			hq.Filter.IsAnomaly = &v
		case "false":
			v := false
			hq.Filter.IsAnomaly = &v
		default:
			return nil, apperrors.InvalidInput(op, "isAnomaly must be true or false")
		}
	}

	if raw := q.Get("riskLevel"); raw != "" {
		r, err := analysis.ParseRiskLevel(raw)
		if err != nil {
			return nil, apperrors.InvalidInput(op, "riskLevel must be one of Low, Medium, High")
		}
		hq.Filter.RiskLevel = r
	}

	if raw := q.Get("prediction"); raw != "" {
		c, err := analysis.ParseClass(raw)
		if err != nil {
			return nil, apperrors.InvalidInput(op, err.Error())
		}
		hq.Filter.Prediction = c
	}

	if raw := q.Get("startDate"); raw != "" {
		t, err := parseTime(raw, false)
		if err != nil {
			return nil, apperrors.InvalidInput(op, "startDate must be RFC 3339 or YYYY-MM-DD")
		}
		hq.Filter.Start = t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := parseTime(raw, true)
		if err != nil {
			return nil, apperrors.InvalidInput(op, "endDate must be RFC 3339 or YYYY-MM-DD")
		}
		hq.Filter.End = t
	}
	if !hq.Filter.Start.IsZero() && !hq.Filter.End.IsZero() && hq.Filter.Start.After(hq.Filter.End) {
		return nil, apperrors.InvalidInput(op, "startDate is after endDate")
	}

	return hq, nil
}
