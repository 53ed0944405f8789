package rank

import (
	"math"
	"sort"
)

// NormalizeFunc rescales a sub-score list before it enters the composite.
// Implementations return the input unchanged when it is empty.
type NormalizeFunc func(scores []float64) []float64

// ZScore centers on the mean and divides by the population standard
// deviation. A constant input has no spread, so it maps to all zeros.
func ZScore(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	stddev := math.Sqrt(variance / float64(len(scores)))
	if stddev == 0 {
		return make([]float64, len(scores))
	}

	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = (s - mean) / stddev
	}
	return out
}

// MinMax rescales into [0, 1]. A constant input maps to all ones.
func MinMax(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	out := make([]float64, len(scores))
	if hi == lo {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}

// LogTransform maps each score to log(x+1).
func LogTransform(scores []float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = math.Log(s + 1)
	}
	return out
}

// RobustScale centers on the median and divides by the interquartile range,
// with the quartiles taken at the len/4, len/2 and 3·len/4 positions of the
// sorted input. A zero IQR maps to all zeros.
func RobustScale(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	median := sorted[len(sorted)/2]
	q1 := sorted[len(sorted)/4]
	q3 := sorted[3*len(sorted)/4]
	iqr := q3 - q1
	if iqr == 0 {
		return make([]float64, len(scores))
	}

	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = (s - median) / iqr
	}
	return out
}

// Clip returns a NormalizeFunc that clamps every score into [lo, hi].
func Clip(lo, hi float64) NormalizeFunc {
	return func(scores []float64) []float64 {
		out := make([]float64, len(scores))
		for i, s := range scores {
			out[i] = math.Max(math.Min(s, hi), lo)
		}
		return out
	}
}

// ExpTransform maps each score to 1 − e^(−x).
func ExpTransform(scores []float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = 1 - math.Exp(-s)
	}
	return out
}
