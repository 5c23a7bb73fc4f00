package features

import (
	"errors"
	"math"
)

// StvWindow is the rolling window length of the short-term variability.
const StvWindow = 5

var ErrNoSamples = errors.New("no valid pupil samples")

// Sample is one frame of pupil measurements. Brightness is nil when the frame
// carried no light reading.
type Sample struct {
	Frame      float64  `json:"frame"`
	Left       float64  `json:"left_mm"`
	Right      float64  `json:"right_mm"`
	Brightness *float64 `json:"brightness,omitempty"`
}

// Aggregate summarises a session. Standard deviations are population
// deviations. Correlations are only computed when every sample has a
// brightness reading and stay nil when undefined.
func Aggregate(samples []Sample) (Vector, error) {
	if len(samples) == 0 {
		return Vector{}, ErrNoSamples
	}

	left := make([]float64, len(samples))
	right := make([]float64, len(samples))
	bright := make([]float64, 0, len(samples))
	for i, s := range samples {
		left[i] = s.Left
		right[i] = s.Right
		if s.Brightness != nil {
			bright = append(bright, *s.Brightness)
		}
	}

	lm, rm := mean(left), mean(right)
	v := Vector{
		N:     len(samples),
		LMean: lm,
		RMean: rm,
		LStd:  std(left, lm),
		RStd:  std(right, rm),
		Asym:  math.Abs(lm - rm),
		STV:   (shortTermVariability(left) + shortTermVariability(right)) / 2,
	}

	if len(bright) == len(samples) {
		v.CorrLB = pearson(bright, left)
		v.CorrRB = pearson(bright, right)
	}

	return v, nil
}

func mean(a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	var sum float64
	for _, v := range a {
		sum += v
	}
	return sum / float64(len(a))
}

func std(a []float64, m float64) float64 {
	if len(a) == 0 {
		return 0
	}
	var sum float64
	for _, v := range a {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(a)))
}

func pearson(x, y []float64) *float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n == 0 {
		return nil
	}

	mx, my := mean(x[:n]), mean(y[:n])
	var num, dx, dy float64
	for i := 0; i < n; i++ {
		a, b := x[i]-mx, y[i]-my
		num += a * b
		dx += a * a
		dy += b * b
	}

	den := math.Sqrt(dx * dy)
	if den == 0 {
		return nil
	}
	r := num / den
	return &r
}

// shortTermVariability averages the std of a window of StvWindow samples
// roughly centred on each index.
func shortTermVariability(a []float64) float64 {
	if len(a) < 2 {
		return 0
	}

	out := make([]float64, len(a))
	for i := range a {
		s := i - StvWindow/2
		if s < 0 {
			s = 0
		}
		e := s + StvWindow
		if e > len(a) {
			e = len(a)
		}
		seg := a[s:e]
		out[i] = std(seg, mean(seg))
	}
	return mean(out)
}
