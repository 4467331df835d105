// Package features computes the low-level per-frame signals shared by the
// episode detector and the unit segmenter.
package features

import (
	"github.com/RyanBlaney/cry-sonar/algorithms/spectral"
	"github.com/RyanBlaney/cry-sonar/algorithms/temporal"
)

// Extractor computes frame features over centred frames of frameSize samples
// spaced hopSize apart. A buffer of n samples yields 1 + n/hopSize frames,
// frame i being centred on sample i*hopSize. All methods are pure and return
// empty or zero values for empty input.
type Extractor struct {
	frameSize int
	hopSize   int
	fft       *spectral.FFT
}

// NewExtractor creates a frame feature extractor
func NewExtractor(frameSize, hopSize int) *Extractor {
	return &Extractor{
		frameSize: frameSize,
		hopSize:   hopSize,
		fft:       spectral.NewFFT(),
	}
}

// HopSize returns the frame spacing in samples
func (e *Extractor) HopSize() int {
	return e.hopSize
}

// FrameDuration returns the frame spacing in seconds
func (e *Extractor) FrameDuration(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(e.hopSize) / float64(sampleRate)
}

// Energy returns the RMS amplitude of each frame
func (e *Extractor) Energy(buffer []float64) []float64 {
	return temporal.NewEnergy(e.frameSize, e.hopSize, 0).ComputeShortTimeEnergy(buffer)
}

// RMS returns the RMS amplitude of the whole buffer
func (e *Extractor) RMS(buffer []float64) float64 {
	return temporal.NewEnergy(e.frameSize, e.hopSize, 0).ComputeRMS(buffer)
}

// SpectralCentroid returns the magnitude-weighted mean frequency of each frame
func (e *Extractor) SpectralCentroid(buffer []float64, sampleRate int) []float64 {
	return spectral.NewSpectralCentroid(sampleRate).ComputeFrames(buffer, e.frameSize, e.hopSize)
}

// ZeroCrossingRate returns the fraction of sign changes in each frame
func (e *Extractor) ZeroCrossingRate(buffer []float64) []float64 {
	return spectral.NewZeroCrossingRate(e.frameSize, e.hopSize).ComputeFrames(buffer)
}

// MeanZeroCrossingRate returns the mean of the per-frame zero-crossing rates
func (e *Extractor) MeanZeroCrossingRate(buffer []float64) float64 {
	return spectral.NewZeroCrossingRate(e.frameSize, e.hopSize).ComputeMean(buffer)
}

// PeakFrequency returns the frequency of the strongest bin of the whole
// buffer's one-sided spectrum, 0 when the buffer is shorter than one window
func (e *Extractor) PeakFrequency(buffer []float64, sampleRate int) float64 {
	return e.fft.PeakFrequency(buffer, sampleRate)
}
