// Package acoustic measures frame-level voice parameters of cry episodes and
// aggregates them into per-episode statistics.
package acoustic

import (
	"context"
	"math"

	"github.com/RyanBlaney/cry-sonar/algorithms/speech"
	"github.com/RyanBlaney/cry-sonar/algorithms/temporal"
	"github.com/RyanBlaney/cry-sonar/algorithms/tonal"
	"github.com/RyanBlaney/cry-sonar/analysis/config"
	"github.com/RyanBlaney/cry-sonar/logging"
)

// AcousticFrame is one analysis instant of an episode. Time is absolute
// seconds in the recording; nil parameters are undefined at that instant.
type AcousticFrame struct {
	Time      float64  `json:"time"`
	F0        *float64 `json:"f0"`
	F1        *float64 `json:"f1"`
	F2        *float64 `json:"f2"`
	F3        *float64 `json:"f3"`
	HNR       *float64 `json:"hnr"`
	Shimmer   *float64 `json:"shimmer"`
	Jitter    *float64 `json:"jitter"`
	Intensity *float64 `json:"intensity"`
}

// ProgressFunc receives analyzer sub-steps in the range [1, 10]
type ProgressFunc func(step float64, message string)

// Analyzer computes the acoustic frames of one episode
type Analyzer struct {
	cfg config.AcousticConfig
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(cfg config.AcousticConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze measures the episode audio in samples, which starts at startTime
// seconds in the recording. Frames are spaced by the configured time step and
// centred in the episode. An episode shorter than one pitch window yields no
// frames.
func (a *Analyzer) Analyze(ctx context.Context, samples []float64, sampleRate int, startTime float64, progress ProgressFunc) ([]AcousticFrame, error) {
	logger := logging.WithFields(logging.Fields{
		"component":  "acoustic_analyzer",
		"function":   "Analyze",
		"start_time": startTime,
	})

	report := func(step float64, msg string) {
		if progress != nil {
			progress(step, msg)
		}
	}

	report(2, "Extracting segment")
	if len(samples) == 0 || sampleRate <= 0 {
		return []AcousticFrame{}, nil
	}

	pitch := tonal.NewPitchDetector(sampleRate, a.cfg.PitchFloor, a.cfg.PitchCeiling)
	times, centers := a.timeGrid(len(samples), sampleRate, pitch.WindowDuration())
	if len(times) == 0 {
		logger.Debug("Episode shorter than the pitch window", logging.Fields{
			"samples": len(samples),
		})
		return []AcousticFrame{}, nil
	}

	report(3, "Computing pitch")
	f0 := pitch.Contour(samples, centers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report(4, "Computing formants")
	formants := speech.NewFormantTracker(sampleRate).Track(samples, times, a.cfg.FormantCount)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report(5, "Setting up periodicity analysis")
	voice := speech.NewVoiceQualityAnalyzer(sampleRate, a.cfg.PitchFloor, a.cfg.PitchCeiling)
	pulses := voice.TrackPulses(samples, times, f0, a.cfg.TimeStep)

	report(6, "Computing intensity")
	intensityWindow := int(math.Round(3.2 / a.cfg.PitchFloor * float64(sampleRate)))
	intensity := temporal.NewEnergy(0, 0, sampleRate).IntensityContour(samples, centers, intensityWindow)

	report(6.5, "Computing harmonicity")
	hnr := voice.HarmonicityContour(samples, centers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report(6.7, "Computing jitter and shimmer")
	var jitter, shimmer *float64
	if j, err := voice.Jitter(pulses); err == nil {
		jitter = &j
	} else {
		logger.Debug("Jitter undefined", logging.Fields{"pulses": len(pulses), "reason": err.Error()})
	}
	if s, err := voice.Shimmer(pulses); err == nil {
		shimmer = &s
	} else {
		logger.Debug("Shimmer undefined", logging.Fields{"pulses": len(pulses), "reason": err.Error()})
	}

	n := len(times)
	reportEvery := max(n/10, 1)
	frames := make([]AcousticFrame, n)

	for i := range n {
		if i%reportEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			report(7+3*float64(i)/float64(n), "Extracting frame features")
		}

		frames[i] = AcousticFrame{
			Time:      startTime + times[i],
			F0:        f0[i],
			F1:        formants.At(i, 0),
			F2:        formants.At(i, 1),
			F3:        formants.At(i, 2),
			HNR:       hnr[i],
			Shimmer:   shimmer,
			Jitter:    jitter,
			Intensity: intensity[i],
		}
	}

	logger.Debug("Episode analyzed", logging.Fields{
		"frames": n,
		"pulses": len(pulses),
	})

	return frames, nil
}

// timeGrid places frames every time step such that each pitch window fits
// inside the signal, with the grid centred in the signal. It returns frame
// times in seconds relative to the signal and the matching centre samples.
func (a *Analyzer) timeGrid(numSamples, sampleRate int, windowDuration float64) ([]float64, []int) {
	duration := float64(numSamples) / float64(sampleRate)
	step := a.cfg.TimeStep
	if duration < windowDuration || step <= 0 {
		return nil, nil
	}

	n := int(math.Floor((duration-windowDuration)/step)) + 1
	first := (duration - float64(n-1)*step) / 2

	times := make([]float64, n)
	centers := make([]int, n)
	for i := range n {
		times[i] = first + float64(i)*step
		centers[i] = int(math.Round(times[i] * float64(sampleRate)))
	}

	return times, centers
}
