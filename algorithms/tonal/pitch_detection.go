package tonal

import (
	"math"

	"github.com/RyanBlaney/cry-sonar/algorithms/spectral"
	"github.com/mjibson/go-dsp/window"
)

// Candidate is the strongest periodicity found in one analysis window
type Candidate struct {
	Lag      float64 // refined lag in samples (0 when nothing periodic was found)
	Strength float64 // normalized autocorrelation at Lag, in [0, 1]
	Peak     float64 // local absolute peak of the DC-removed window
}

// Periodicity estimates the dominant period of windowed frames using the
// autocorrelation of the Hann-windowed frame divided by the autocorrelation
// of the window itself, which removes the taper bias at long lags.
type Periodicity struct {
	sampleRate int
	windowLen  int
	minLag     int
	maxLag     int
	floor      float64
	octaveCost float64
	nfft       int
	window     []float64
	windowAC   []float64
	fft        *spectral.FFT
}

// NewPeriodicity creates an analyzer whose window spans periodsPerWindow
// periods of the lowest searched frequency
func NewPeriodicity(sampleRate int, floor, ceiling, periodsPerWindow float64) *Periodicity {
	windowLen := int(math.Round(periodsPerWindow / floor * float64(sampleRate)))
	windowLen = max(windowLen, 8)

	p := &Periodicity{
		sampleRate: sampleRate,
		windowLen:  windowLen,
		minLag:     max(int(math.Floor(float64(sampleRate)/ceiling)), 2),
		maxLag:     min(int(math.Ceil(float64(sampleRate)/floor)), windowLen-2),
		floor:      floor,
		octaveCost: 0.01,
		nfft:       spectral.NextPowerOfTwo(2 * windowLen),
		window:     window.Hann(windowLen),
		fft:        spectral.NewFFT(),
	}

	ac := p.autocorrelation(p.window)
	p.windowAC = make([]float64, len(ac))
	for i := range ac {
		p.windowAC[i] = ac[i] / ac[0]
	}

	return p
}

// WindowLength returns the analysis window length in samples
func (p *Periodicity) WindowLength() int {
	return p.windowLen
}

// Analyze inspects the window centred on the given sample. It returns false
// when the window does not fit inside the signal.
func (p *Periodicity) Analyze(signal []float64, center int) (Candidate, bool) {
	start := center - p.windowLen/2
	if start < 0 || start+p.windowLen > len(signal) {
		return Candidate{}, false
	}

	frame := make([]float64, p.windowLen)
	copy(frame, signal[start:start+p.windowLen])

	mean := 0.0
	for _, s := range frame {
		mean += s
	}
	mean /= float64(len(frame))

	candidate := Candidate{}
	for i := range frame {
		frame[i] -= mean
		candidate.Peak = max(candidate.Peak, math.Abs(frame[i]))
		frame[i] *= p.window[i]
	}

	ac := p.autocorrelation(frame)
	if ac[0] <= 0 {
		return candidate, true
	}

	normalized := func(lag int) float64 {
		return ac[lag] / ac[0] / p.windowAC[lag]
	}

	bestScore := math.Inf(-1)
	for lag := p.minLag; lag <= p.maxLag; lag++ {
		prev, cur, next := normalized(lag-1), normalized(lag), normalized(lag+1)
		if cur <= 0 || cur < prev || cur < next {
			continue
		}

		refinedLag, refinedR := parabolicPeak(float64(lag), prev, cur, next)
		refinedR = min(refinedR, 1.0)
		frequency := float64(p.sampleRate) / refinedLag

		// favour higher candidates slightly so a period multiple does not win a tie
		score := refinedR + p.octaveCost*math.Log2(frequency/p.floor)
		if score > bestScore {
			bestScore = score
			candidate.Lag = refinedLag
			candidate.Strength = refinedR
		}
	}

	return candidate, true
}

// autocorrelation computes the linear autocorrelation of x through the FFT
func (p *Periodicity) autocorrelation(x []float64) []float64 {
	padded := make([]float64, p.nfft)
	copy(padded, x)

	spectrum := p.fft.Compute(padded)
	for i, c := range spectrum {
		spectrum[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}

	inverse := p.fft.ComputeInverse(spectrum)
	ac := make([]float64, len(x))
	for i := range ac {
		ac[i] = real(inverse[i])
	}
	return ac
}

// parabolicPeak refines a local maximum through its two neighbours
func parabolicPeak(x, left, center, right float64) (float64, float64) {
	denominator := left - 2*center + right
	if denominator >= 0 {
		return x, center
	}
	delta := 0.5 * (left - right) / denominator
	return x + delta, center - 0.25*(left-right)*delta
}

// PeakAmplitude returns the largest absolute deviation from the signal mean
func PeakAmplitude(signal []float64) float64 {
	if len(signal) == 0 {
		return 0.0
	}

	mean := 0.0
	for _, s := range signal {
		mean += s
	}
	mean /= float64(len(signal))

	peak := 0.0
	for _, s := range signal {
		peak = max(peak, math.Abs(s-mean))
	}
	return peak
}

// PitchDetector produces a pitch contour with the autocorrelation method.
// Frames are unvoiced when their local peak falls below silenceThreshold of
// the global peak or when the best normalized autocorrelation is below
// voicingThreshold.
type PitchDetector struct {
	sampleRate       int
	floor            float64
	ceiling          float64
	voicingThreshold float64
	silenceThreshold float64
	periodicity      *Periodicity
}

// NewPitchDetector creates a detector searching [floor, ceiling] Hz with a
// three-period analysis window
func NewPitchDetector(sampleRate int, floor, ceiling float64) *PitchDetector {
	return &PitchDetector{
		sampleRate:       sampleRate,
		floor:            floor,
		ceiling:          ceiling,
		voicingThreshold: 0.45,
		silenceThreshold: 0.03,
		periodicity:      NewPeriodicity(sampleRate, floor, ceiling, 3.0),
	}
}

// WindowDuration returns the analysis window length in seconds
func (pd *PitchDetector) WindowDuration() float64 {
	return float64(pd.periodicity.WindowLength()) / float64(pd.sampleRate)
}

// Contour returns the fundamental frequency at each centre sample, nil where
// the frame is unvoiced
func (pd *PitchDetector) Contour(signal []float64, centers []int) []*float64 {
	contour := make([]*float64, len(centers))
	globalPeak := PeakAmplitude(signal)
	if globalPeak == 0 {
		return contour
	}

	for i, center := range centers {
		candidate, ok := pd.periodicity.Analyze(signal, center)
		if !ok || candidate.Lag == 0 {
			continue
		}
		if candidate.Peak < pd.silenceThreshold*globalPeak {
			continue
		}
		if candidate.Strength < pd.voicingThreshold {
			continue
		}

		f0 := float64(pd.sampleRate) / candidate.Lag
		if f0 < pd.floor || f0 > pd.ceiling {
			continue
		}
		contour[i] = &f0
	}

	return contour
}
