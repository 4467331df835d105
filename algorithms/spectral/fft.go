package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// MinPeakWindow is the shortest buffer PeakFrequency will analyze.
const MinPeakWindow = 512

// FFT provides Fast Fourier Transform functionality
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the Fast Fourier Transform using mjibson/go-dsp
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// go-dsp handles non-power-of-2 sizes (Bluestein)
	return fft.FFTReal(x)
}

// ComputeInverse computes inverse FFT
func (f *FFT) ComputeInverse(x []complex128) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.IFFT(x)
}

// Magnitude returns the one-sided magnitude spectrum (N/2+1 bins) of x
func (f *FFT) Magnitude(x []float64) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	spectrum := f.Compute(x)
	numBins := len(x)/2 + 1
	magnitude := make([]float64, numBins)
	for i := range numBins {
		magnitude[i] = cmplx.Abs(spectrum[i])
	}

	return magnitude
}

// PeakFrequency returns the frequency of the strongest bin in the one-sided
// spectrum of the whole buffer. Buffers shorter than MinPeakWindow yield 0.
//
// The bin index is scaled by sampleRate / (2 * numBins), which keeps results
// comparable with previously stored analyses.
func (f *FFT) PeakFrequency(x []float64, sampleRate int) float64 {
	if len(x) < MinPeakWindow || sampleRate <= 0 {
		return 0.0
	}

	magnitude := f.Magnitude(x)

	peakIdx := 0
	for i := 1; i < len(magnitude); i++ {
		if magnitude[i] > magnitude[peakIdx] {
			peakIdx = i
		}
	}

	return float64(peakIdx) * float64(sampleRate) / float64(2*len(magnitude))
}

// NextPowerOfTwo returns the smallest power of two >= n
func NextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
