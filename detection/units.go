package detection

import (
	"fmt"

	"github.com/RyanBlaney/cry-sonar/algorithms/temporal"
	"github.com/RyanBlaney/cry-sonar/analysis/config"
	"github.com/RyanBlaney/cry-sonar/features"
	"gonum.org/v1/gonum/stat"
)

// CryUnit is a respiration-phase sub-segment of an episode, bounded by
// silence. Times are absolute seconds within the recording.
type CryUnit struct {
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
	Duration      float64 `json:"duration"`
	IsVoiced      bool    `json:"is_voiced"`
	MeanEnergy    float64 `json:"mean_energy"`
	PeakFrequency float64 `json:"peak_frequency"`
}

// UnitSummary is the unit roll-up of one episode
type UnitSummary struct {
	Units     []CryUnit `json:"units"`
	UnitCount int       `json:"unit_count"`
	// CryCE is the mean duration of voiced units
	CryCE float64 `json:"cryCE"`
	// UnvoicedCE is the summed duration of unvoiced units
	UnvoicedCE float64 `json:"unvoicedCE"`
}

// UnitSegmenter splits an episode into units at silence gaps of its
// smoothed energy envelope
type UnitSegmenter struct {
	cfg       config.UnitConfig
	extractor *features.Extractor
	smoother  *temporal.SavitzkyGolay
	silence   *temporal.SilenceDetection
}

// NewUnitSegmenter creates a segmenter
func NewUnitSegmenter(cfg config.UnitConfig) (*UnitSegmenter, error) {
	smoother, err := temporal.NewSavitzkyGolay(cfg.SmoothingWindow, cfg.SmoothingOrder)
	if err != nil {
		return nil, fmt.Errorf("unit envelope smoother: %w", err)
	}

	return &UnitSegmenter{
		cfg:       cfg,
		extractor: features.NewExtractor(cfg.FrameSize, cfg.HopSize),
		smoother:  smoother,
		silence:   temporal.NewSilenceDetection(cfg.SilenceThreshold),
	}, nil
}

type span struct {
	start, end float64
}

// Segment returns the units of one episode. samples must hold the episode's
// audio starting at episode.StartTime. Unit bounds never leave the episode.
func (s *UnitSegmenter) Segment(episode CryEpisode, samples []float64, sampleRate int) []CryUnit {
	if len(samples) == 0 || sampleRate <= 0 {
		return []CryUnit{}
	}

	frameDuration := s.extractor.FrameDuration(sampleRate)
	envelope := s.extractor.Energy(samples)
	if len(envelope) >= s.smoother.Window() {
		envelope = s.smoother.Smooth(envelope)
	}

	total := min(float64(len(envelope))*frameDuration, episode.Duration)

	units := []CryUnit{}
	for _, b := range s.boundaries(envelope, frameDuration, total) {
		if b.end-b.start < s.cfg.MinUnitDuration {
			continue
		}

		from := int(b.start * float64(sampleRate))
		to := min(int(b.end*float64(sampleRate)), len(samples))
		if to <= from {
			continue
		}
		audio := samples[from:to]

		meanEnergy := 0.0
		frameFrom := int(b.start / frameDuration)
		frameTo := min(int(b.end/frameDuration), len(envelope))
		if frameTo > frameFrom {
			meanEnergy = stat.Mean(envelope[frameFrom:frameTo], nil)
		}

		start := episode.StartTime + b.start
		end := episode.StartTime + b.end
		units = append(units, CryUnit{
			StartTime:     start,
			EndTime:       end,
			Duration:      end - start,
			IsVoiced:      s.isVoiced(audio, sampleRate),
			MeanEnergy:    meanEnergy,
			PeakFrequency: s.extractor.PeakFrequency(audio, sampleRate),
		})
	}

	return units
}

// boundaries returns the complement of the valid silence gaps within
// [0, total] seconds relative to the episode start
func (s *UnitSegmenter) boundaries(envelope []float64, frameDuration, total float64) []span {
	var spans []span
	current := 0.0

	for _, run := range s.silence.DetectSilence(envelope) {
		if float64(run.Len())*frameDuration < s.cfg.MinSilenceDuration {
			continue
		}

		gapStart := min(float64(run.Start)*frameDuration, total)
		gapEnd := min(float64(run.End)*frameDuration, total)
		if gapStart > current {
			spans = append(spans, span{start: current, end: gapStart})
		}
		current = max(current, gapEnd)
	}

	if current < total {
		spans = append(spans, span{start: current, end: total})
	}

	return spans
}

// isVoiced reports whether a unit is voiced: long enough to judge, a low
// mean zero-crossing rate and enough energy
func (s *UnitSegmenter) isVoiced(audio []float64, sampleRate int) bool {
	if len(audio) < int(float64(sampleRate)*s.cfg.MinVoicingDuration) {
		return false
	}

	zcr := s.extractor.MeanZeroCrossingRate(audio)
	rms := s.extractor.RMS(audio)

	return zcr < s.cfg.VoicingZCRThreshold && rms >= s.cfg.VoicingEnergyFloor
}

// Summarize computes the unit roll-up
func Summarize(units []CryUnit) UnitSummary {
	summary := UnitSummary{
		Units:     units,
		UnitCount: len(units),
	}
	if summary.Units == nil {
		summary.Units = []CryUnit{}
	}

	var voiced []float64
	for _, u := range units {
		if u.IsVoiced {
			voiced = append(voiced, u.Duration)
		} else {
			summary.UnvoicedCE += u.Duration
		}
	}
	if len(voiced) > 0 {
		summary.CryCE = stat.Mean(voiced, nil)
	}

	return summary
}
