package detection

import (
	"math"
	"math/rand"
)

const testSampleRate = 22050

func tone(freq, amplitude, duration float64) []float64 {
	n := int(duration * testSampleRate)
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
	}
	return out
}

func silence(duration float64) []float64 {
	return make([]float64, int(duration*testSampleRate))
}

func noise(amplitude, duration float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, int(duration*testSampleRate))
	for i := range out {
		out[i] = amplitude * (2*rng.Float64() - 1)
	}
	return out
}

func concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
