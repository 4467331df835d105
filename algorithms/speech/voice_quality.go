package speech

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/cry-sonar/algorithms/tonal"
)

// Pulse is one glottal cycle marker
type Pulse struct {
	Time      float64 // seconds from the start of the analyzed signal
	Amplitude float64 // peak amplitude of the cycle
}

// VoiceQualityAnalyzer computes perturbation (jitter, shimmer) and
// harmonicity measures for voiced speech-like signals
type VoiceQualityAnalyzer struct {
	sampleRate int

	// period constraints applied to consecutive pulses
	periodFloor     float64
	periodCeiling   float64
	maxPeriodFactor float64
	maxAmpFactor    float64

	harmonicity      *tonal.Periodicity
	silenceThreshold float64
}

// NewVoiceQualityAnalyzer creates an analyzer for the given pitch range.
// Harmonicity uses a window of 4.5 periods of the pitch floor.
func NewVoiceQualityAnalyzer(sampleRate int, pitchFloor, pitchCeiling float64) *VoiceQualityAnalyzer {
	return &VoiceQualityAnalyzer{
		sampleRate:       sampleRate,
		periodFloor:      0.0001,
		periodCeiling:    0.02,
		maxPeriodFactor:  1.3,
		maxAmpFactor:     1.6,
		harmonicity:      tonal.NewPeriodicity(sampleRate, pitchFloor, pitchCeiling, 4.5),
		silenceThreshold: 0.1,
	}
}

// TrackPulses places one pulse per glottal cycle inside voiced stretches of
// the pitch contour. times[i] is the centre (seconds from the start of
// signal) of contour frame i and step is the frame spacing.
func (vqa *VoiceQualityAnalyzer) TrackPulses(signal []float64, times []float64, f0 []*float64, step float64) []Pulse {
	var pulses []Pulse
	sr := float64(vqa.sampleRate)

	for i := 0; i < len(f0); {
		if f0[i] == nil {
			i++
			continue
		}

		// voiced stretch [first, last]
		first := i
		for i < len(f0) && f0[i] != nil {
			i++
		}
		last := i - 1

		stretchStart := max(times[first]-step/2, 0)
		stretchEnd := min(times[last]+step/2, float64(len(signal))/sr)

		periodAt := func(t float64) float64 {
			idx := int(math.Round((t - times[first]) / step))
			idx = min(max(idx, 0), last-first) + first
			return 1.0 / *f0[idx]
		}

		// first pulse: the largest peak within one period of the stretch start
		t, amp, ok := vqa.peakIn(signal, stretchStart, stretchStart+periodAt(stretchStart))
		if !ok {
			continue
		}
		pulses = append(pulses, Pulse{Time: t, Amplitude: amp})

		for {
			period := periodAt(t)
			predicted := t + period
			if predicted+0.2*period > stretchEnd {
				break
			}
			next, nextAmp, ok := vqa.peakIn(signal, predicted-0.2*period, predicted+0.2*period)
			if !ok || next <= t {
				break
			}
			pulses = append(pulses, Pulse{Time: next, Amplitude: nextAmp})
			t = next
		}
	}

	return pulses
}

// peakIn finds the maximum sample in [from, to] seconds and refines its time
// and height by parabolic interpolation
func (vqa *VoiceQualityAnalyzer) peakIn(signal []float64, from, to float64) (float64, float64, bool) {
	sr := float64(vqa.sampleRate)
	lo := max(int(math.Ceil(from*sr)), 1)
	hi := min(int(math.Floor(to*sr)), len(signal)-2)
	if hi < lo {
		return 0, 0, false
	}

	best := lo
	for i := lo + 1; i <= hi; i++ {
		if signal[i] > signal[best] {
			best = i
		}
	}

	left, center, right := signal[best-1], signal[best], signal[best+1]
	offset, height := 0.0, center
	denominator := left - 2*center + right
	if denominator < 0 {
		offset = 0.5 * (left - right) / denominator
		height = center - 0.25*(left-right)*offset
	}

	return (float64(best) + offset) / sr, height, true
}

// Jitter returns the local jitter (percent): the mean absolute difference
// between consecutive periods divided by the mean period. Periods outside
// the floor/ceiling or differing by more than maxPeriodFactor are skipped.
func (vqa *VoiceQualityAnalyzer) Jitter(pulses []Pulse) (float64, error) {
	sumDiff, sumPeriod := 0.0, 0.0
	pairs, periods := 0, 0

	for i := 2; i < len(pulses); i++ {
		p1 := pulses[i-1].Time - pulses[i-2].Time
		p2 := pulses[i].Time - pulses[i-1].Time
		if !vqa.validPeriod(p1) || !vqa.validPeriod(p2) || !withinFactor(p1, p2, vqa.maxPeriodFactor) {
			continue
		}
		sumDiff += math.Abs(p2 - p1)
		pairs++
	}

	for i := 1; i < len(pulses); i++ {
		p := pulses[i].Time - pulses[i-1].Time
		if vqa.validPeriod(p) {
			sumPeriod += p
			periods++
		}
	}

	if pairs == 0 || periods == 0 || sumPeriod == 0 {
		return 0, fmt.Errorf("too few periods for jitter (pulses=%d)", len(pulses))
	}

	return (sumDiff / float64(pairs)) / (sumPeriod / float64(periods)) * 100, nil
}

// Shimmer returns the local shimmer (percent): the mean absolute difference
// between consecutive cycle amplitudes divided by the mean amplitude
func (vqa *VoiceQualityAnalyzer) Shimmer(pulses []Pulse) (float64, error) {
	sumDiff, sumAmp := 0.0, 0.0
	pairs := 0

	for i := 2; i < len(pulses); i++ {
		p1 := pulses[i-1].Time - pulses[i-2].Time
		p2 := pulses[i].Time - pulses[i-1].Time
		if !vqa.validPeriod(p1) || !vqa.validPeriod(p2) || !withinFactor(p1, p2, vqa.maxPeriodFactor) {
			continue
		}

		a1, a2 := math.Abs(pulses[i-1].Amplitude), math.Abs(pulses[i].Amplitude)
		if a1 == 0 || a2 == 0 || !withinFactor(a1, a2, vqa.maxAmpFactor) {
			continue
		}
		sumDiff += math.Abs(a2 - a1)
		sumAmp += (a1 + a2) / 2
		pairs++
	}

	if pairs == 0 || sumAmp == 0 {
		return 0, fmt.Errorf("too few periods for shimmer (pulses=%d)", len(pulses))
	}

	return sumDiff / sumAmp * 100, nil
}

// HarmonicityContour returns the harmonics-to-noise ratio (dB) for windows
// centred on the given samples. Frames that are silent, aperiodic or whose
// window leaves the signal are nil.
func (vqa *VoiceQualityAnalyzer) HarmonicityContour(signal []float64, centers []int) []*float64 {
	contour := make([]*float64, len(centers))
	globalPeak := tonal.PeakAmplitude(signal)
	if globalPeak == 0 {
		return contour
	}

	for i, center := range centers {
		candidate, ok := vqa.harmonicity.Analyze(signal, center)
		if !ok || candidate.Lag == 0 || candidate.Strength <= 0 {
			continue
		}
		if candidate.Peak < vqa.silenceThreshold*globalPeak {
			continue
		}

		r := min(candidate.Strength, 1-1e-7)
		hnr := 10 * math.Log10(r/(1-r))
		contour[i] = &hnr
	}

	return contour
}

func (vqa *VoiceQualityAnalyzer) validPeriod(p float64) bool {
	return p >= vqa.periodFloor && p <= vqa.periodCeiling
}

func withinFactor(a, b, factor float64) bool {
	if a <= 0 || b <= 0 {
		return false
	}
	ratio := a / b
	return ratio <= factor && ratio >= 1/factor
}
