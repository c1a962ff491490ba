package providers

import (
	"ecgd/internal/analysis"
	"ecgd/internal/structures"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnalyzerProvider(t *testing.T) {
	conf := &structures.Config{Analysis: structures.AnalysisConfig{
		HeartRateEstimator: "statistical",
		RiskPolicy:         "strict",
		SampleDuration:     10 * time.Second,
	}}
	a, err := NewAnalyzerProvider(conf, &cacheTestLogger{})
	require.NoError(t, err)
	assert.Equal(t, analysis.EstimatorStatistical, a.Estimator().Name())
	assert.Equal(t, analysis.PolicyStrict, a.Policy().Name())
}

func TestNewAnalyzerProvider_UnknownNames(t *testing.T) {
	conf := &structures.Config{Analysis: structures.AnalysisConfig{HeartRateEstimator: "fft", RiskPolicy: "standard"}}
	_, err := NewAnalyzerProvider(conf, &cacheTestLogger{})
	assert.Error(t, err)

	conf.Analysis = structures.AnalysisConfig{HeartRateEstimator: "peak", RiskPolicy: "lenient"}
	_, err = NewAnalyzerProvider(conf, &cacheTestLogger{})
	assert.Error(t, err)
}
