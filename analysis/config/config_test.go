package config

import (
	"testing"

	"github.com/RyanBlaney/cry-sonar/apperr"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{"energy threshold too low", func(c *Config) { c.Detector.EnergyThreshold = 0.0005 }, "detector.energy_threshold"},
		{"energy threshold too high", func(c *Config) { c.Detector.EnergyThreshold = 0.2 }, "detector.energy_threshold"},
		{"min duration too short", func(c *Config) { c.Detector.MinDuration = 0.05 }, "detector.min_duration"},
		{"min duration too long", func(c *Config) { c.Detector.MinDuration = 6 }, "detector.min_duration"},
		{"high pitch too low", func(c *Config) { c.Acoustic.HighPitchThreshold = 99 }, "acoustic.high_pitch_threshold"},
		{"high pitch too high", func(c *Config) { c.Acoustic.HighPitchThreshold = 2500 }, "acoustic.high_pitch_threshold"},
		{"noise reduction", func(c *Config) { c.NoiseReductionLevel = 4 }, "noise_reduction_level"},
		{"centroid band inverted", func(c *Config) { c.Detector.CentroidMin = 6000 }, "detector.centroid_min"},
		{"centroid above nyquist", func(c *Config) { c.Detector.CentroidMax = 12000 }, "detector.centroid_max"},
		{"even smoothing window", func(c *Config) { c.Units.SmoothingWindow = 4 }, "units.smoothing_window"},
		{"smoothing order too high", func(c *Config) { c.Units.SmoothingOrder = 5 }, "units.smoothing_order"},
		{"zero time step", func(c *Config) { c.Acoustic.TimeStep = 0 }, "acoustic.time_step"},
		{"pitch floor above ceiling", func(c *Config) { c.Acoustic.PitchFloor = 700 }, "acoustic.pitch_floor"},
		{"too many formants", func(c *Config) { c.Acoustic.FormantCount = 6 }, "acoustic.formant_count"},
		{"hop larger than frame", func(c *Config) { c.Detector.HopSize = 4096 }, "detector.frame_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			v, ok := apperr.As[*apperr.ValidationError](err)
			if !ok {
				t.Fatalf("got %v, want a validation error", err)
			}
			if v.Field != tt.wantField {
				t.Errorf("field = %q, want %q", v.Field, tt.wantField)
			}
			if apperr.CodeOf(err) != apperr.ErrCodeConfig {
				t.Errorf("code = %s", apperr.CodeOf(err))
			}
		})
	}
}

func TestValidateBoundaries(t *testing.T) {
	cfg := Default()
	cfg.Detector.EnergyThreshold = 0.1
	cfg.Detector.MinDuration = 5.0
	cfg.Acoustic.HighPitchThreshold = 2000
	cfg.NoiseReductionLevel = 3

	if err := cfg.Validate(); err != nil {
		t.Errorf("inclusive limits rejected: %v", err)
	}
}
