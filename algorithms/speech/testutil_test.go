package speech

import (
	"math"
	"math/rand"
)

func sine(freq, amplitude, duration float64, sampleRate int) []float64 {
	n := int(duration * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// resonantNoise drives a two-pole resonator at freq Hz with seeded white noise
func resonantNoise(freq, radius float64, n, sampleRate int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	a1 := 2 * radius * math.Cos(2*math.Pi*freq/float64(sampleRate))
	a2 := -radius * radius

	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64() * 0.01
		if i >= 1 {
			out[i] += a1 * out[i-1]
		}
		if i >= 2 {
			out[i] += a2 * out[i-2]
		}
	}
	return out
}
