package spectral

import (
	"gonum.org/v1/gonum/stat"
)

// ZeroCrossingRate calculates zero crossing rate for voicing decisions.
// High ZCR indicates noisy/unvoiced sound, low ZCR indicates voiced sound
type ZeroCrossingRate struct {
	frameSize int
	hopSize   int
}

// NewZeroCrossingRate creates calculator with custom framing parameters
func NewZeroCrossingRate(frameSize, hopSize int) *ZeroCrossingRate {
	return &ZeroCrossingRate{
		frameSize: frameSize,
		hopSize:   hopSize,
	}
}

// crossed reports a sign change between two consecutive samples.
// Zero counts as positive.
func crossed(a, b float64) bool {
	return (a >= 0 && b < 0) || (a < 0 && b >= 0)
}

// ComputeFraction returns the fraction of samples in the frame that start a
// sign change (0-1 range)
func (zcr *ZeroCrossingRate) ComputeFraction(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}

	crossings := 0
	for i := 1; i < len(frame); i++ {
		if crossed(frame[i-1], frame[i]) {
			crossings++
		}
	}

	return float64(crossings) / float64(len(frame))
}

// ComputeFrames calculates ZCR for centred, overlapping frames of a signal.
// Frames are edge padded so short signals still produce 1 + len/hop values.
func (zcr *ZeroCrossingRate) ComputeFrames(signal []float64) []float64 {
	if len(signal) == 0 || zcr.frameSize <= 0 || zcr.hopSize <= 0 {
		return []float64{}
	}

	numFrames := 1 + len(signal)/zcr.hopSize
	zcrValues := make([]float64, numFrames)
	frame := make([]float64, zcr.frameSize)
	half := zcr.frameSize / 2
	last := len(signal) - 1

	for i := range numFrames {
		start := i*zcr.hopSize - half
		for j := range zcr.frameSize {
			idx := min(max(start+j, 0), last)
			frame[j] = signal[idx]
		}
		zcrValues[i] = zcr.ComputeFraction(frame)
	}

	return zcrValues
}

// ComputeMean returns the mean frame ZCR of the signal
func (zcr *ZeroCrossingRate) ComputeMean(signal []float64) float64 {
	values := zcr.ComputeFrames(signal)
	if len(values) == 0 {
		return 0.0
	}
	return stat.Mean(values, nil)
}
