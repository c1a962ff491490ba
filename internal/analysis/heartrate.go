package analysis

import (
	"fmt"
	"math"
	"time"
)

const (
	MinHeartRate      = 40
	MaxHeartRate      = 200
	FallbackHeartRate = 72

	DefaultSampleDuration = 30 * time.Second

	peakThresholdRatio = 0.7
)

const (
	EstimatorPeak        = "peak"
	EstimatorStatistical = "statistical"
)

type HeartRateEstimator interface {
	Name() string
	Estimate(samples []float64, st Stats) int
}

// PeakDetectionEstimator counts local maxima above 70% of the signal maximum
// over an assumed capture duration.
type PeakDetectionEstimator struct {
	Duration time.Duration
}

func (e *PeakDetectionEstimator) Name() string { return EstimatorPeak }

func (e *PeakDetectionEstimator) Estimate(samples []float64, st Stats) int {
	seconds := e.Duration.Seconds()
	if seconds <= 0 {
		seconds = DefaultSampleDuration.Seconds()
	}
	peaks := CountPeaks(samples, st.Max*peakThresholdRatio)
	return ClampHeartRate(int(math.Round(float64(peaks) / seconds * 60)))
}

// StdDeviationEstimator derives a rate from the signal spread alone.
type StdDeviationEstimator struct{}

func (e *StdDeviationEstimator) Name() string { return EstimatorStatistical }

func (e *StdDeviationEstimator) Estimate(_ []float64, st Stats) int {
	hr := math.Round(60 / (st.Std * 0.01))
	if math.IsNaN(hr) || math.IsInf(hr, 0) || hr == 0 {
		return ClampHeartRate(FallbackHeartRate)
	}
	if hr > math.MaxInt32 {
		return MaxHeartRate
	}
	return ClampHeartRate(int(hr))
}

// CountPeaks counts interior samples above threshold and strictly greater
// than both neighbours.
func CountPeaks(samples []float64, threshold float64) int {
	peaks := 0
	for i := 1; i < len(samples)-1; i++ {
		v := samples[i]
		if v > threshold && v > samples[i-1] && v > samples[i+1] {
			peaks++
		}
	}
	return peaks
}

func ClampHeartRate(bpm int) int {
	return max(MinHeartRate, min(MaxHeartRate, bpm))
}

func NewHeartRateEstimator(name string, duration time.Duration) (HeartRateEstimator, error) {
	switch name {
	case EstimatorPeak, "":
		return &PeakDetectionEstimator{Duration: duration}, nil
	case EstimatorStatistical:
		return &StdDeviationEstimator{}, nil
	default:
		return nil, fmt.Errorf("unknown heart rate estimator %q", name)
	}
}
