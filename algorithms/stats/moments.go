package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds descriptive statistics of a sample
type Summary struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"` // population standard deviation
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Count  int     `json:"count"`
}

// Summarize computes the descriptive statistics of values.
// It returns false for an empty sample.
func Summarize(values []float64) (Summary, bool) {
	if len(values) == 0 {
		return Summary{}, false
	}

	return Summary{
		Mean:   stat.Mean(values, nil),
		Std:    math.Sqrt(stat.PopVariance(values, nil)),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Median: Median(values),
		Count:  len(values),
	}, true
}

// Median returns the middle value of the sample, averaging the two middle
// values for even sizes. The input is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Percentage returns 100*count/total, or 0 when total is 0
func Percentage(count, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(count) / float64(total) * 100
}

// Round rounds to the given number of decimal places
func Round(value float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(value*scale) / scale
}
