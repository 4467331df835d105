package temporal

import (
	"math"

	"github.com/mjibson/go-dsp/window"
)

// referencePressure is the squared 20 µPa auditory threshold
const referencePressure = 4e-10

// Energy computes frame-based energy envelopes
type Energy struct {
	frameSize  int
	hopSize    int
	sampleRate int
}

// NewEnergy creates a new energy calculator
func NewEnergy(frameSize, hopSize, sampleRate int) *Energy {
	return &Energy{
		frameSize:  frameSize,
		hopSize:    hopSize,
		sampleRate: sampleRate,
	}
}

// FrameDuration returns the time between consecutive frames in seconds
func (e *Energy) FrameDuration() float64 {
	if e.sampleRate <= 0 {
		return 0
	}
	return float64(e.hopSize) / float64(e.sampleRate)
}

// ComputeShortTimeEnergy calculates the RMS of centred frames.
// Frame i is centred on sample i*hopSize, samples outside the signal count as
// zeros, and the signal yields 1 + len(signal)/hopSize frames.
func (e *Energy) ComputeShortTimeEnergy(signal []float64) []float64 {
	if len(signal) == 0 || e.hopSize <= 0 || e.frameSize <= 0 {
		return []float64{}
	}

	// prefix[i] = sum of squares of signal[:i]
	prefix := make([]float64, len(signal)+1)
	for i, s := range signal {
		prefix[i+1] = prefix[i] + s*s
	}

	numFrames := 1 + len(signal)/e.hopSize
	energies := make([]float64, numFrames)
	half := e.frameSize / 2

	for i := range numFrames {
		startIdx := max(i*e.hopSize-half, 0)
		endIdx := min(i*e.hopSize-half+e.frameSize, len(signal))
		if endIdx <= startIdx {
			continue
		}

		sumSquares := prefix[endIdx] - prefix[startIdx]
		if sumSquares < 0 {
			// rounding in the prefix sums
			sumSquares = 0
		}
		energies[i] = math.Sqrt(sumSquares / float64(e.frameSize))
	}

	return energies
}

// ComputeRMS returns the RMS of the whole signal
func (e *Energy) ComputeRMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0.0
	}

	sumSquares := 0.0
	for _, s := range signal {
		sumSquares += s * s
	}
	return math.Sqrt(sumSquares / float64(len(signal)))
}

// IntensityContour returns the sound intensity (dB SPL) of Hann-weighted
// windows of windowLen samples centred on the given samples. The mean is
// removed before weighting. Windows that leave the signal or contain only
// silence are nil.
func (e *Energy) IntensityContour(signal []float64, centers []int, windowLen int) []*float64 {
	contour := make([]*float64, len(centers))
	if windowLen <= 0 || windowLen > len(signal) {
		return contour
	}

	weights := window.Hann(windowLen)
	weightSum := 0.0
	for _, w := range weights {
		weightSum += w
	}

	half := windowLen / 2
	for i, center := range centers {
		start := center - half
		end := start + windowLen
		if start < 0 || end > len(signal) {
			continue
		}

		frame := signal[start:end]
		mean := 0.0
		for _, s := range frame {
			mean += s
		}
		mean /= float64(windowLen)

		sumSquares := 0.0
		for j, s := range frame {
			d := s - mean
			sumSquares += weights[j] * d * d
		}
		meanSquare := sumSquares / weightSum
		if meanSquare <= 0 {
			continue
		}

		db := 10 * math.Log10(meanSquare/referencePressure)
		contour[i] = &db
	}

	return contour
}
