package spectral

import (
	"math"
	"testing"
)

func TestMagnitudeBins(t *testing.T) {
	f := NewFFT()

	if got := f.Magnitude(nil); len(got) != 0 {
		t.Errorf("empty input gave %d bins", len(got))
	}

	for _, n := range []int{8, 9, 1000} {
		if got := len(f.Magnitude(make([]float64, n))); got != n/2+1 {
			t.Errorf("n=%d: got %d bins, want %d", n, got, n/2+1)
		}
	}
}

func TestPeakFrequency(t *testing.T) {
	f := NewFFT()
	sr := 22050

	tests := []struct {
		name string
		freq float64
	}{
		{"low", 300},
		{"mid", 1000},
		{"high", 4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.PeakFrequency(sine(tt.freq, 0.5, 1.0, sr), sr)
			if math.Abs(got-tt.freq) > 5 {
				t.Errorf("peak = %.2f Hz, want about %.0f Hz", got, tt.freq)
			}
		})
	}
}

func TestPeakFrequencyShortBuffer(t *testing.T) {
	f := NewFFT()
	if got := f.PeakFrequency(sine(1000, 1, 0.01, 22050), 22050); got != 0 {
		t.Errorf("short buffer peak = %f, want 0", got)
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {1000, 1024}, {2048, 2048},
	}
	for _, tt := range tests {
		if got := NextPowerOfTwo(tt.in); got != tt.want {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
