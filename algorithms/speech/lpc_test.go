package speech

import (
	"math"
	"testing"
)

func TestLPCRecoversResonator(t *testing.T) {
	sr := 8000
	signal := resonantNoise(1000, 0.95, 4000, sr, 7)

	lpc := NewLPCAnalyzer(sr, 2)
	result, err := lpc.Analyze(signal)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	wantA1 := 2 * 0.95 * math.Cos(2*math.Pi*1000/float64(sr))
	wantA2 := -0.95 * 0.95
	if math.Abs(result.Coefficients[0]-wantA1) > 0.05 || math.Abs(result.Coefficients[1]-wantA2) > 0.05 {
		t.Errorf("coefficients = %v, want about [%.3f %.3f]", result.Coefficients, wantA1, wantA2)
	}

	resonances, err := lpc.Resonances(result)
	if err != nil {
		t.Fatalf("Resonances: %v", err)
	}
	if len(resonances) != 1 {
		t.Fatalf("got %d resonances, want 1", len(resonances))
	}
	if math.Abs(resonances[0].Frequency-1000) > 100 {
		t.Errorf("resonance at %.1f Hz, want about 1000 Hz", resonances[0].Frequency)
	}
	if resonances[0].Bandwidth <= 0 {
		t.Errorf("bandwidth = %.1f, want positive", resonances[0].Bandwidth)
	}
}

func TestLPCErrors(t *testing.T) {
	lpc := NewLPCAnalyzer(8000, 10)

	if _, err := lpc.Analyze(make([]float64, 5)); err == nil {
		t.Error("expected error for a signal shorter than the order")
	}
	if _, err := lpc.Analyze(make([]float64, 400)); err == nil {
		t.Error("expected error for a silent frame")
	}
}

func TestFormantTrackerUndefinedFrames(t *testing.T) {
	sr := 22050
	tracker := NewFormantTracker(sr)

	silent := tracker.Track(make([]float64, sr), []float64{0.5}, 3)
	for n := range 3 {
		if silent.At(0, n) != nil {
			t.Errorf("formant %d of silence should be undefined", n+1)
		}
	}

	edge := tracker.Track(sine(440, 0.3, 1.0, sr), []float64{0, 1.0}, 3)
	if edge.At(0, 0) != nil || edge.At(1, 0) != nil {
		t.Error("windows leaving the signal should have no formants")
	}

	if edge.At(5, 0) != nil || edge.At(0, 7) != nil {
		t.Error("out-of-range lookups should be nil")
	}
}

func TestFormantTrackerResonance(t *testing.T) {
	sr := 22050
	tracker := NewFormantTracker(sr)
	signal := resonantNoise(1000, 0.98, sr, sr, 3)

	times := []float64{0.2, 0.4, 0.6, 0.8}
	track := tracker.Track(signal, times, 3)

	for i := range times {
		f1 := track.At(i, 0)
		if f1 == nil {
			t.Fatalf("frame %d: F1 undefined", i)
		}
		if *f1 < 50 || *f1 > 5462 {
			t.Errorf("frame %d: F1 = %.1f Hz outside the analysis band", i, *f1)
		}
		if f2 := track.At(i, 1); f2 != nil && *f2 < *f1 {
			t.Errorf("frame %d: F2 %.1f below F1 %.1f", i, *f2, *f1)
		}
	}
}
