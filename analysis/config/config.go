package config

import (
	"github.com/RyanBlaney/cry-sonar/apperr"
)

// DetectorConfig configures cry episode detection over a whole recording
type DetectorConfig struct {
	SampleRate      int     `json:"sample_rate"`
	ChunkDuration   float64 `json:"chunk_duration"` // seconds read per pass
	FrameSize       int     `json:"frame_size"`
	HopSize         int     `json:"hop_size"`
	EnergyThreshold float64 `json:"energy_threshold"` // RMS a cry frame must exceed
	MinDuration     float64 `json:"min_duration"`     // shortest kept segment (s)
	MaxMergeGap     float64 `json:"max_merge_gap"`    // gaps up to this are merged (s)
	CentroidMin     float64 `json:"centroid_min"`     // Hz
	CentroidMax     float64 `json:"centroid_max"`     // Hz
}

// UnitConfig configures silence-bounded unit segmentation within an episode
type UnitConfig struct {
	FrameSize           int     `json:"frame_size"`
	HopSize             int     `json:"hop_size"`
	SilenceThreshold    float64 `json:"silence_threshold"`
	MinUnitDuration     float64 `json:"min_unit_duration"`
	MinSilenceDuration  float64 `json:"min_silence_duration"`
	VoicingZCRThreshold float64 `json:"voicing_zcr_threshold"`
	VoicingEnergyFloor  float64 `json:"voicing_energy_floor"`
	MinVoicingDuration  float64 `json:"min_voicing_duration"` // shorter units are unvoiced
	SmoothingWindow     int     `json:"smoothing_window"`
	SmoothingOrder      int     `json:"smoothing_order"`
}

// HyperPhonationConfig holds the compound hyper-phonation predicate:
// hnr < HNRBelow AND shimmer > ShimmerAbove AND jitter > JitterAbove
type HyperPhonationConfig struct {
	HNRBelow     float64 `json:"hnr_below"`     // dB
	ShimmerAbove float64 `json:"shimmer_above"` // percent
	JitterAbove  float64 `json:"jitter_above"`  // percent
}

// AcousticConfig configures frame-level acoustic measurement
type AcousticConfig struct {
	TimeStep           float64              `json:"time_step"` // seconds
	PitchFloor         float64              `json:"pitch_floor"`
	PitchCeiling       float64              `json:"pitch_ceiling"`
	FormantCount       int                  `json:"formant_count"`
	HighPitchThreshold float64              `json:"high_pitch_threshold"`
	HyperPhonation     HyperPhonationConfig `json:"hyper_phonation"`
}

// Config is the complete set of analysis parameters for one job
type Config struct {
	Detector            DetectorConfig `json:"detector"`
	Units               UnitConfig     `json:"units"`
	Acoustic            AcousticConfig `json:"acoustic"`
	NoiseReductionLevel int            `json:"noise_reduction_level"` // 0 disables denoising
}

// DefaultDetectorConfig returns default episode detection parameters
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		SampleRate:      22050,
		ChunkDuration:   60.0,
		FrameSize:       2048,
		HopSize:         512,
		EnergyThreshold: 0.02,
		MinDuration:     0.5,
		MaxMergeGap:     1.0,
		CentroidMin:     200,
		CentroidMax:     5000,
	}
}

// DefaultUnitConfig returns default unit segmentation parameters
func DefaultUnitConfig() UnitConfig {
	return UnitConfig{
		FrameSize:           2048,
		HopSize:             512,
		SilenceThreshold:    0.01,
		MinUnitDuration:     0.1,
		MinSilenceDuration:  0.05,
		VoicingZCRThreshold: 0.1,
		VoicingEnergyFloor:  0.01,
		MinVoicingDuration:  0.02,
		SmoothingWindow:     5,
		SmoothingOrder:      2,
	}
}

// DefaultAcousticConfig returns default acoustic measurement parameters
func DefaultAcousticConfig() AcousticConfig {
	return AcousticConfig{
		TimeStep:           0.01,
		PitchFloor:         75,
		PitchCeiling:       600,
		FormantCount:       3,
		HighPitchThreshold: 500,
		HyperPhonation: HyperPhonationConfig{
			HNRBelow:     10,
			ShimmerAbove: 5,
			JitterAbove:  1,
		},
	}
}

// Default returns the full default analysis configuration
func Default() *Config {
	return &Config{
		Detector:            DefaultDetectorConfig(),
		Units:               DefaultUnitConfig(),
		Acoustic:            DefaultAcousticConfig(),
		NoiseReductionLevel: 0,
	}
}

// Validate rejects out-of-range parameters. The first offending field is
// reported as an *apperr.ValidationError.
func (c *Config) Validate() error {
	d, u, a := c.Detector, c.Units, c.Acoustic

	checks := []struct {
		ok    bool
		field string
		value any
		msg   string
	}{
		{d.SampleRate >= 8000 && d.SampleRate <= 192000, "detector.sample_rate", d.SampleRate, "must be in [8000, 192000]"},
		{d.ChunkDuration > 0, "detector.chunk_duration", d.ChunkDuration, "must be positive"},
		{d.HopSize > 0, "detector.hop_size", d.HopSize, "must be positive"},
		{d.FrameSize >= d.HopSize, "detector.frame_size", d.FrameSize, "must be at least the hop size"},
		{d.EnergyThreshold >= 0.001 && d.EnergyThreshold <= 0.1, "detector.energy_threshold", d.EnergyThreshold, "must be in [0.001, 0.1]"},
		{d.MinDuration >= 0.1 && d.MinDuration <= 5.0, "detector.min_duration", d.MinDuration, "must be in [0.1, 5.0]"},
		{d.MaxMergeGap >= 0, "detector.max_merge_gap", d.MaxMergeGap, "must not be negative"},
		{d.CentroidMin >= 0 && d.CentroidMin < d.CentroidMax, "detector.centroid_min", d.CentroidMin, "must be below centroid_max"},
		{d.CentroidMax <= float64(d.SampleRate)/2, "detector.centroid_max", d.CentroidMax, "must not exceed the Nyquist frequency"},

		{u.HopSize > 0, "units.hop_size", u.HopSize, "must be positive"},
		{u.FrameSize >= u.HopSize, "units.frame_size", u.FrameSize, "must be at least the hop size"},
		{u.SilenceThreshold > 0 && u.SilenceThreshold <= 1, "units.silence_threshold", u.SilenceThreshold, "must be in (0, 1]"},
		{u.MinUnitDuration >= 0, "units.min_unit_duration", u.MinUnitDuration, "must not be negative"},
		{u.MinSilenceDuration >= 0, "units.min_silence_duration", u.MinSilenceDuration, "must not be negative"},
		{u.VoicingZCRThreshold > 0 && u.VoicingZCRThreshold <= 1, "units.voicing_zcr_threshold", u.VoicingZCRThreshold, "must be in (0, 1]"},
		{u.VoicingEnergyFloor >= 0, "units.voicing_energy_floor", u.VoicingEnergyFloor, "must not be negative"},
		{u.MinVoicingDuration >= 0, "units.min_voicing_duration", u.MinVoicingDuration, "must not be negative"},
		{u.SmoothingWindow > 0 && u.SmoothingWindow%2 == 1, "units.smoothing_window", u.SmoothingWindow, "must be a positive odd number"},
		{u.SmoothingOrder >= 0 && u.SmoothingOrder < u.SmoothingWindow, "units.smoothing_order", u.SmoothingOrder, "must be below the smoothing window"},

		{a.TimeStep > 0 && a.TimeStep <= 0.1, "acoustic.time_step", a.TimeStep, "must be in (0, 0.1]"},
		{a.PitchFloor > 0 && a.PitchFloor < a.PitchCeiling, "acoustic.pitch_floor", a.PitchFloor, "must be positive and below pitch_ceiling"},
		{a.PitchCeiling <= float64(d.SampleRate)/2, "acoustic.pitch_ceiling", a.PitchCeiling, "must not exceed the Nyquist frequency"},
		{a.FormantCount >= 1 && a.FormantCount <= 5, "acoustic.formant_count", a.FormantCount, "must be in [1, 5]"},
		{a.HighPitchThreshold >= 100 && a.HighPitchThreshold <= 2000, "acoustic.high_pitch_threshold", a.HighPitchThreshold, "must be in [100, 2000]"},
		{a.HyperPhonation.HNRBelow >= 0 && a.HyperPhonation.HNRBelow <= 50, "acoustic.hyper_phonation.hnr_below", a.HyperPhonation.HNRBelow, "must be in [0, 50]"},
		{a.HyperPhonation.ShimmerAbove >= 0 && a.HyperPhonation.ShimmerAbove <= 100, "acoustic.hyper_phonation.shimmer_above", a.HyperPhonation.ShimmerAbove, "must be in [0, 100]"},
		{a.HyperPhonation.JitterAbove >= 0 && a.HyperPhonation.JitterAbove <= 100, "acoustic.hyper_phonation.jitter_above", a.HyperPhonation.JitterAbove, "must be in [0, 100]"},

		{c.NoiseReductionLevel >= 0 && c.NoiseReductionLevel <= 3, "noise_reduction_level", c.NoiseReductionLevel, "must be in [0, 3]"},
	}

	for _, check := range checks {
		if !check.ok {
			return apperr.NewValidationError(check.field, check.value, check.msg)
		}
	}

	return nil
}
