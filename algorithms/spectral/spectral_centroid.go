package spectral

import (
	"github.com/mjibson/go-dsp/window"
)

// SpectralCentroid computes the spectral centroid (center of mass) of a spectrum
type SpectralCentroid struct {
	sampleRate  int
	freqBins    []float64 // Pre-calculated frequency bins for efficiency
	initialized bool
	fft         *FFT
}

// NewSpectralCentroid creates a new spectral centroid calculator
func NewSpectralCentroid(sampleRate int) *SpectralCentroid {
	return &SpectralCentroid{
		sampleRate: sampleRate,
		fft:        NewFFT(),
	}
}

// Compute calculates spectral centroid for a single magnitude spectrum
func (sc *SpectralCentroid) Compute(spectrum []float64) float64 {
	if len(spectrum) < 2 {
		return 0.0
	}

	// Initialize frequency bins if needed
	if !sc.initialized || len(sc.freqBins) != len(spectrum) {
		sc.initializeFreqBins(len(spectrum))
	}

	numerator := 0.0
	denominator := 0.0

	for i := range len(spectrum) {
		numerator += sc.freqBins[i] * spectrum[i]
		denominator += spectrum[i]
	}

	if denominator == 0 {
		return 0
	}

	return numerator / denominator
}

// ComputeFrames returns one centroid per centred, Hann-windowed frame of the
// signal. Frame i is centred on sample i*hopSize and zero padded at the edges,
// giving 1 + len(signal)/hopSize frames.
func (sc *SpectralCentroid) ComputeFrames(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) == 0 || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	numFrames := 1 + len(signal)/hopSize
	centroids := make([]float64, numFrames)

	hann := window.Hann(frameSize)
	frame := make([]float64, frameSize)
	half := frameSize / 2

	for t := range numFrames {
		start := t*hopSize - half
		for j := range frameSize {
			idx := start + j
			if idx < 0 || idx >= len(signal) {
				frame[j] = 0
				continue
			}
			frame[j] = signal[idx] * hann[j]
		}
		centroids[t] = sc.Compute(sc.fft.Magnitude(frame))
	}

	return centroids
}

// initializeFreqBins pre-calculates frequency bins
func (sc *SpectralCentroid) initializeFreqBins(numBins int) {
	sc.freqBins = make([]float64, numBins)
	for i := range numBins {
		sc.freqBins[i] = float64(i) * float64(sc.sampleRate) / float64((numBins-1)*2)
	}
	sc.initialized = true
}
