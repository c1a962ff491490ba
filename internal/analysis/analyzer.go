package analysis

type Result struct {
	Stats           Stats
	Length          int
	HeartRate       int
	Probabilities   []float64
	Prediction      Class
	Confidence      float64
	RiskLevel       RiskLevel
	IsAnomaly       bool
	Recommendations []string
}

// Analyzer runs the statistics engine followed by the classification and
// risk policy. It holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	estimator HeartRateEstimator
	policy    RiskPolicy
}

func NewAnalyzer(estimator HeartRateEstimator, policy RiskPolicy) *Analyzer {
	if estimator == nil {
		estimator = &PeakDetectionEstimator{Duration: DefaultSampleDuration}
	}
	if policy == nil {
		policy = StandardRiskPolicy{}
	}
	return &Analyzer{estimator: estimator, policy: policy}
}

func (a *Analyzer) Estimator() HeartRateEstimator { return a.estimator }
func (a *Analyzer) Policy() RiskPolicy            { return a.policy }

func (a *Analyzer) Analyze(samples []float64) (*Result, error) {
	st, err := ComputeStats(samples)
	if err != nil {
		return nil, err
	}

	hr := a.estimator.Estimate(samples, st)
	cls := Classify(ScoreVector(st))
	risk := a.policy.Assess(cls.Class, cls.Confidence)

	return &Result{
		Stats:           st,
		Length:          len(samples),
		HeartRate:       hr,
		Probabilities:   cls.Probabilities,
		Prediction:      cls.Class,
		Confidence:      cls.Confidence,
		RiskLevel:       risk,
		IsAnomaly:       IsAnomaly(cls.Class),
		Recommendations: Recommend(string(cls.Class), cls.Confidence, hr),
	}, nil
}
