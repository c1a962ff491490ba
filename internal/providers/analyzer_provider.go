package providers

import (
	"ecgd/internal/analysis"
	"ecgd/internal/structures"
	"fmt"
)

func NewAnalyzerProvider(conf *structures.Config, logger Logger) (*analysis.Analyzer, error) {
	estimator, err := analysis.NewHeartRateEstimator(conf.Analysis.HeartRateEstimator, conf.Analysis.SampleDuration)
	if err != nil {
		return nil, fmt.Errorf("analysis config: %w", err)
	}
	policy, err := analysis.NewRiskPolicy(conf.Analysis.RiskPolicy)
	if err != nil {
		return nil, fmt.Errorf("analysis config: %w", err)
	}
	logger.Infof(TypeApp, "Analyzer: heart rate estimator=%s, risk policy=%s", estimator.Name(), policy.Name())
	return analysis.NewAnalyzer(estimator, policy), nil
}
