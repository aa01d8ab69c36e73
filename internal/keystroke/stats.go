package keystroke

import (
	"math"
	"sort"
)

// safeFloat maps NaN and ±Inf to zero.
func safeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0
	}
	return v
}

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// populationStd divides by N, not N-1. A single value has zero spread.
func populationStd(data []float64) float64 {
	if len(data) <= 1 {
		return 0.0
	}

	m := mean(data)
	sumSquares := 0.0
	for _, v := range data {
		diff := v - m
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(data)))
}

// percentile uses linear interpolation between closest ranks.
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// robust returns mean, population std, p25 and p75, all zero for an empty set.
func robust(data []float64) [4]float64 {
	if len(data) == 0 {
		return [4]float64{}
	}
	return [4]float64{
		safeFloat(mean(data)),
		safeFloat(populationStd(data)),
		safeFloat(percentile(data, 25)),
		safeFloat(percentile(data, 75)),
	}
}
