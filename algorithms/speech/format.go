package speech

import (
	"math"

	"github.com/mjibson/go-dsp/window"
)

// FormantTracker estimates vocal-tract resonances frame by frame.
// The signal is low-passed and decimated so that the analysis band reaches
// the formant ceiling, pre-emphasized, Hamming-windowed and fitted with a
// Burg LPC model whose pole pairs become formant candidates.
type FormantTracker struct {
	sampleRate     int
	ceiling        float64 // highest formant searched (Hz)
	maxFormants    int     // pole pairs modelled by the LPC filter
	windowDuration float64 // full analysis window (s)
	preEmphasisHz  float64
	minFrequency   float64
}

// NewFormantTracker creates a tracker with a 5500 Hz ceiling, five modelled
// formants and a 50 ms window
func NewFormantTracker(sampleRate int) *FormantTracker {
	return &FormantTracker{
		sampleRate:     sampleRate,
		ceiling:        5500,
		maxFormants:    5,
		windowDuration: 0.05,
		preEmphasisHz:  50,
		minFrequency:   50,
	}
}

// FormantTrack holds formant frequencies per requested frame; a nil entry
// means the formant is undefined for that frame
type FormantTrack struct {
	Formants [][]*float64 // [frame][formant index]
}

// At returns formant n (0-based) of a frame, nil when undefined
func (ft *FormantTrack) At(frame, n int) *float64 {
	if frame < 0 || frame >= len(ft.Formants) || n >= len(ft.Formants[frame]) {
		return nil
	}
	return ft.Formants[frame][n]
}

// WindowDuration returns the analysis window length in seconds
func (f *FormantTracker) WindowDuration() float64 {
	return f.windowDuration
}

// Track computes up to count formants for windows centred on the given
// times (seconds from the start of signal). Frames whose window leaves the
// signal have no formants.
func (f *FormantTracker) Track(signal []float64, times []float64, count int) *FormantTrack {
	track := &FormantTrack{Formants: make([][]*float64, len(times))}
	for i := range track.Formants {
		track.Formants[i] = make([]*float64, count)
	}
	if len(signal) == 0 || f.sampleRate <= 0 {
		return track
	}

	decimated, rate := f.decimate(signal)
	emphasized := preEmphasize(decimated, math.Exp(-2*math.Pi*f.preEmphasisHz/float64(rate)))

	windowLen := int(math.Round(f.windowDuration * float64(rate)))
	hamming := window.Hamming(windowLen)
	lpc := NewLPCAnalyzer(rate, 2*f.maxFormants)
	maxFrequency := float64(rate)/2 - f.minFrequency

	frame := make([]float64, windowLen)
	for i, t := range times {
		start := int(math.Round(t*float64(rate))) - windowLen/2
		if start < 0 || start+windowLen > len(emphasized) {
			continue
		}
		for j := range windowLen {
			frame[j] = emphasized[start+j] * hamming[j]
		}

		result, err := lpc.Analyze(frame)
		if err != nil {
			continue
		}
		resonances, err := lpc.Resonances(result)
		if err != nil {
			continue
		}

		n := 0
		for _, r := range resonances {
			if n >= count {
				break
			}
			if r.Frequency < f.minFrequency || r.Frequency > maxFrequency {
				continue
			}
			frequency := r.Frequency
			track.Formants[i][n] = &frequency
			n++
		}
	}

	return track
}

// decimate low-passes and downsamples the signal by the largest integer
// factor that keeps the Nyquist frequency at or above the ceiling
func (f *FormantTracker) decimate(signal []float64) ([]float64, int) {
	factor := int(float64(f.sampleRate) / (2 * f.ceiling))
	if factor <= 1 {
		return signal, f.sampleRate
	}

	rate := f.sampleRate / factor
	taps := lowPassTaps(0.5/float64(factor)*0.9, 8*factor+1)
	half := len(taps) / 2

	out := make([]float64, 0, len(signal)/factor+1)
	for i := 0; i < len(signal); i += factor {
		sum := 0.0
		for k, tap := range taps {
			idx := i + k - half
			if idx < 0 || idx >= len(signal) {
				continue
			}
			sum += tap * signal[idx]
		}
		out = append(out, sum)
	}

	return out, rate
}

// lowPassTaps designs a Hamming-windowed sinc FIR with the given normalized
// cutoff (cycles per sample)
func lowPassTaps(cutoff float64, length int) []float64 {
	hamming := window.Hamming(length)
	taps := make([]float64, length)
	half := length / 2
	sum := 0.0
	for i := range length {
		x := float64(i - half)
		if x == 0 {
			taps[i] = 2 * cutoff
		} else {
			taps[i] = math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
		}
		taps[i] *= hamming[i]
		sum += taps[i]
	}
	for i := range taps {
		taps[i] /= sum
	}
	return taps
}

// preEmphasize applies y[n] = x[n] - alpha*x[n-1]
func preEmphasize(signal []float64, alpha float64) []float64 {
	if len(signal) == 0 {
		return []float64{}
	}

	out := make([]float64, len(signal))
	out[0] = signal[0]
	for i := 1; i < len(signal); i++ {
		out[i] = signal[i] - alpha*signal[i-1]
	}
	return out
}
