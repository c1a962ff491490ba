package analysis

import (
	"fmt"
	"math"
)

const (
	PolicyStandard = "standard"
	PolicyStrict   = "strict"
)

type Classification struct {
	Class         Class
	Confidence    float64
	Probabilities []float64
}

// Classify picks the arg-max of the score vector; ties go to the lowest index.
// NaN scores never win and yield zero confidence.
func Classify(probabilities []float64) Classification {
	best := 0
	for i := 1; i < len(probabilities) && i < len(Classes); i++ {
		if probabilities[i] > probabilities[best] {
			best = i
		}
	}
	confidence := 0.0
	if len(probabilities) > 0 {
		confidence = min(1, max(0, probabilities[best]))
		if math.IsNaN(confidence) {
			confidence = 0
		}
	}
	return Classification{
		Class:         Classes[best],
		Confidence:    confidence,
		Probabilities: probabilities,
	}
}

type RiskPolicy interface {
	Name() string
	Assess(c Class, confidence float64) RiskLevel
}

// StandardRiskPolicy escalates non-normal classes above 0.6 and 0.8 confidence.
type StandardRiskPolicy struct{}

func (StandardRiskPolicy) Name() string { return PolicyStandard }

func (StandardRiskPolicy) Assess(c Class, confidence float64) RiskLevel {
	if c == ClassNormal {
		return RiskLow
	}
	switch {
	case confidence > 0.8:
		return RiskHigh
	case confidence > 0.6:
		return RiskMedium
	default:
		return RiskLow
	}
}

// StrictRiskPolicy escalates non-normal classes earlier, at 0.5 and 0.7.
type StrictRiskPolicy struct{}

func (StrictRiskPolicy) Name() string { return PolicyStrict }

func (StrictRiskPolicy) Assess(c Class, confidence float64) RiskLevel {
	switch {
	case c != ClassNormal && confidence > 0.7:
		return RiskHigh
	case c != ClassNormal && confidence > 0.5:
		return RiskMedium
	default:
		return RiskLow
	}
}

func NewRiskPolicy(name string) (RiskPolicy, error) {
	switch name {
	case PolicyStandard, "":
		return StandardRiskPolicy{}, nil
	case PolicyStrict:
		return StrictRiskPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown risk policy %q", name)
	}
}

const (
	AdviceBradycardia      = "Slow heart rate (bradycardia): consult a physician."
	AdviceTachycardia      = "Fast heart rate (tachycardia): rest and relax, then re-measure."
	AdviceSupraventricular = "Abnormal supraventricular rhythm detected: keep monitoring."
	AdviceVentricular      = "Ventricular rhythm detected: seek immediate medical attention."
	AdvicePaced            = "Rhythm appears to be regulated by a pacemaker."
	AdviceUncertain        = "Result is uncertain: please re-measure."
)

// Recommend builds the advisory list. label may be a canonical class name or
// a legacy label such as "Paced"; each rule is independent.
func Recommend(label string, confidence float64, heartRate int) []string {
	advice := make([]string, 0, 3)
	if heartRate < 60 {
		advice = append(advice, AdviceBradycardia)
	} else if heartRate > 100 {
		advice = append(advice, AdviceTachycardia)
	}
	switch label {
	case string(ClassSupraventricular):
		advice = append(advice, AdviceSupraventricular)
	case string(ClassVentricular):
		advice = append(advice, AdviceVentricular)
	case "Paced":
		advice = append(advice, AdvicePaced)
	}
	if confidence < 0.7 {
		advice = append(advice, AdviceUncertain)
	}
	return advice
}
