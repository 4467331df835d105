package acoustic

import (
	"github.com/RyanBlaney/cry-sonar/algorithms/stats"
	"github.com/RyanBlaney/cry-sonar/analysis/config"
)

// ParameterStats summarizes the defined values of one parameter across an
// episode's frames. All fields are nil when no frame defines the parameter.
type ParameterStats struct {
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Median *float64 `json:"median"`
}

// EpisodeStatistics is the per-episode roll-up stored with the result
type EpisodeStatistics struct {
	F0        ParameterStats `json:"f0"`
	F1        ParameterStats `json:"f1"`
	F2        ParameterStats `json:"f2"`
	F3        ParameterStats `json:"f3"`
	HNR       ParameterStats `json:"hnr"`
	Shimmer   ParameterStats `json:"shimmer"`
	Jitter    ParameterStats `json:"jitter"`
	Intensity ParameterStats `json:"intensity"`

	SpecialParameters

	CryCE        float64 `json:"cryCE"`
	UnvoicedCE   float64 `json:"unvoicedCE"`
	CryUnitCount int     `json:"cry_unit_count"`
}

// SpecialParameters are frame percentages rounded to two decimals. Every
// percentage is over all frames of the episode, defined or not.
type SpecialParameters struct {
	HighPitchPct      float64 `json:"high_pitch_pct"`
	HyperPhonationPct float64 `json:"hyper_phonation_pct"`
	VoicedPct         float64 `json:"voiced_pct"`
	UnvoicedPct       float64 `json:"unvoiced_pct"`
}

// ComputeStatistics summarizes every frame parameter
func ComputeStatistics(frames []AcousticFrame) EpisodeStatistics {
	pick := func(get func(AcousticFrame) *float64) ParameterStats {
		var values []float64
		for _, f := range frames {
			if v := get(f); v != nil {
				values = append(values, *v)
			}
		}
		return summarize(values)
	}

	return EpisodeStatistics{
		F0:        pick(func(f AcousticFrame) *float64 { return f.F0 }),
		F1:        pick(func(f AcousticFrame) *float64 { return f.F1 }),
		F2:        pick(func(f AcousticFrame) *float64 { return f.F2 }),
		F3:        pick(func(f AcousticFrame) *float64 { return f.F3 }),
		HNR:       pick(func(f AcousticFrame) *float64 { return f.HNR }),
		Shimmer:   pick(func(f AcousticFrame) *float64 { return f.Shimmer }),
		Jitter:    pick(func(f AcousticFrame) *float64 { return f.Jitter }),
		Intensity: pick(func(f AcousticFrame) *float64 { return f.Intensity }),
	}
}

func summarize(values []float64) ParameterStats {
	s, ok := stats.Summarize(values)
	if !ok {
		return ParameterStats{}
	}
	return ParameterStats{
		Mean:   &s.Mean,
		Std:    &s.Std,
		Min:    &s.Min,
		Max:    &s.Max,
		Median: &s.Median,
	}
}

// ComputeSpecialParameters derives the high-pitch, hyper-phonation and
// voicing percentages. Voiced and unvoiced always sum to 100 for a non-empty
// episode; all percentages are 0 without frames.
func ComputeSpecialParameters(frames []AcousticFrame, cfg config.AcousticConfig) SpecialParameters {
	total := len(frames)
	if total == 0 {
		return SpecialParameters{}
	}

	hyper := cfg.HyperPhonation
	var highPitch, hyperPhonation, voiced int
	for _, f := range frames {
		if f.F0 != nil {
			voiced++
			if *f.F0 > cfg.HighPitchThreshold {
				highPitch++
			}
		}
		if f.HNR != nil && f.Shimmer != nil && f.Jitter != nil &&
			*f.HNR < hyper.HNRBelow && *f.Shimmer > hyper.ShimmerAbove && *f.Jitter > hyper.JitterAbove {
			hyperPhonation++
		}
	}

	voicedPct := stats.Round(stats.Percentage(voiced, total), 2)
	return SpecialParameters{
		HighPitchPct:      stats.Round(stats.Percentage(highPitch, total), 2),
		HyperPhonationPct: stats.Round(stats.Percentage(hyperPhonation, total), 2),
		VoicedPct:         voicedPct,
		UnvoicedPct:       100 - voicedPct,
	}
}
