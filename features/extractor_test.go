package features

import (
	"math"
	"testing"
)

func sine(freq, amplitude, duration float64, sampleRate int) []float64 {
	n := int(duration * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestExtractorFrameAlignment(t *testing.T) {
	e := NewExtractor(2048, 512)
	sr := 22050
	signal := sine(440, 0.3, 2.0, sr)

	want := 1 + len(signal)/512
	if got := len(e.Energy(signal)); got != want {
		t.Errorf("energy frames = %d, want %d", got, want)
	}
	if got := len(e.SpectralCentroid(signal, sr)); got != want {
		t.Errorf("centroid frames = %d, want %d", got, want)
	}
	if got := len(e.ZeroCrossingRate(signal)); got != want {
		t.Errorf("zcr frames = %d, want %d", got, want)
	}
}

func TestExtractorEmptyInput(t *testing.T) {
	e := NewExtractor(2048, 512)

	if len(e.Energy(nil)) != 0 || len(e.SpectralCentroid(nil, 22050)) != 0 || len(e.ZeroCrossingRate(nil)) != 0 {
		t.Error("empty input should yield no frames")
	}
	if e.RMS(nil) != 0 || e.MeanZeroCrossingRate(nil) != 0 || e.PeakFrequency(nil, 22050) != 0 {
		t.Error("empty input should yield zero scalars")
	}
}

func TestExtractorScalars(t *testing.T) {
	e := NewExtractor(2048, 512)
	sr := 22050
	signal := sine(440, 0.3, 1.0, sr)

	if rms := e.RMS(signal); math.Abs(rms-0.3/math.Sqrt2) > 1e-3 {
		t.Errorf("RMS = %f, want %f", rms, 0.3/math.Sqrt2)
	}
	if zcr := e.MeanZeroCrossingRate(signal); zcr >= 0.1 {
		t.Errorf("mean ZCR of a 440 Hz tone = %f, want below 0.1", zcr)
	}
	if peak := e.PeakFrequency(signal, sr); math.Abs(peak-440) > 5 {
		t.Errorf("peak frequency = %.1f Hz, want about 440 Hz", peak)
	}
	if d := e.FrameDuration(sr); math.Abs(d-512.0/22050) > 1e-12 {
		t.Errorf("frame duration = %f", d)
	}
}
