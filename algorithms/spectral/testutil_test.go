package spectral

import "math"

func sine(freq, amplitude, duration float64, sampleRate int) []float64 {
	n := int(duration * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}
