package transcode

import (
	"context"
	"fmt"
)

// Source is a read-only handle to mono PCM audio with a known sample rate
// and duration. Ranges are requested in seconds.
type Source interface {
	SampleRate() int
	Duration() float64
	ReadRange(ctx context.Context, start, end float64) ([]float64, error)
}

// PCMSource serves ranges from decoded samples held in memory
type PCMSource struct {
	samples    []float64
	sampleRate int
}

// NewPCMSource wraps decoded mono samples
func NewPCMSource(samples []float64, sampleRate int) *PCMSource {
	return &PCMSource{samples: samples, sampleRate: sampleRate}
}

func (s *PCMSource) SampleRate() int {
	return s.sampleRate
}

func (s *PCMSource) Duration() float64 {
	if s.sampleRate <= 0 {
		return 0
	}
	return float64(len(s.samples)) / float64(s.sampleRate)
}

// ReadRange returns a copy of the samples in [start, end) seconds, clamped to
// the available audio
func (s *PCMSource) ReadRange(ctx context.Context, start, end float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if end < start {
		return nil, fmt.Errorf("invalid range [%.3f, %.3f)", start, end)
	}

	startIdx := min(max(int(start*float64(s.sampleRate)), 0), len(s.samples))
	endIdx := min(max(int(end*float64(s.sampleRate)), startIdx), len(s.samples))

	out := make([]float64, endIdx-startIdx)
	copy(out, s.samples[startIdx:endIdx])
	return out, nil
}
