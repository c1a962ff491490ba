// Package analysis derives heart rate, a placeholder beat classification and
// a risk assessment from a raw ECG sample sequence.
package analysis

import (
	"errors"
	"math"
)

var (
	ErrEmptySignal     = errors.New("signal is empty")
	ErrNonFiniteSample = errors.New("signal contains a non-finite sample")
)

type Stats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

func ValidateSignal(samples []float64) error {
	if len(samples) == 0 {
		return ErrEmptySignal
	}
	for _, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFiniteSample
		}
	}
	return nil
}

// ComputeStats returns min, max, mean and the population standard deviation.
// Samples near the float64 limits are summed in a scaled domain so the
// result stays finite.
func ComputeStats(samples []float64) (Stats, error) {
	if err := ValidateSignal(samples); err != nil {
		return Stats{}, err
	}

	st := Stats{Min: samples[0], Max: samples[0]}
	for _, v := range samples {
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
	}

	st.Mean, st.Std = moments(samples, 1)
	if !finite(st.Mean) || !finite(st.Std) {
		scale := math.Max(math.Abs(st.Min), math.Abs(st.Max))
		mean, std := moments(samples, scale)
		st.Mean, st.Std = mean*scale, std*scale
	}
	if !finite(st.Mean) || !finite(st.Std) {
		return Stats{}, ErrNonFiniteSample
	}
	return st, nil
}

// moments returns the mean and population standard deviation of samples/scale.
func moments(samples []float64, scale float64) (float64, float64) {
	n := float64(len(samples))
	sum := 0.0
	for _, v := range samples {
		sum += v / scale
	}
	mean := sum / n

	variance := 0.0
	for _, v := range samples {
		d := v/scale - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / n)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RawScores are the unnormalized per-class scores, one per entry of Classes.
func RawScores(st Stats) []float64 {
	return []float64{
		math.Abs(st.Mean),
		math.Abs(st.Std),
		math.Abs(st.Max),
		math.Abs(st.Min),
		math.Abs(st.Max - st.Min),
	}
}

// ScoreVector normalizes RawScores to sum to 1. An all-zero vector stays zero.
// Stats too large to sum are scaled into [-1,1] first; normalization is
// scale invariant.
func ScoreVector(st Stats) []float64 {
	raw, sum := rawWithSum(st)
	if !finite(sum) {
		scale := math.Max(math.Abs(st.Min), math.Abs(st.Max))
		raw, sum = rawWithSum(Stats{Min: st.Min / scale, Max: st.Max / scale, Mean: st.Mean / scale, Std: st.Std / scale})
	}
	if sum == 0 {
		sum = 1
	}
	for i := range raw {
		raw[i] /= sum
	}
	return raw
}

func rawWithSum(st Stats) ([]float64, float64) {
	raw := RawScores(st)
	sum := 0.0
	for _, v := range raw {
		sum += v
	}
	return raw, sum
}
