package spectral

import (
	"math"
	"testing"
)

func TestCentroidSingleBin(t *testing.T) {
	sc := NewSpectralCentroid(8000)

	// five bins span 0..4000 Hz in 1000 Hz steps
	if got := sc.Compute([]float64{0, 0, 1, 0, 0}); got != 2000 {
		t.Errorf("centroid = %f, want 2000", got)
	}
	if got := sc.Compute([]float64{0, 1, 0, 1, 0}); got != 2000 {
		t.Errorf("centroid = %f, want 2000", got)
	}
	if got := sc.Compute(make([]float64, 5)); got != 0 {
		t.Errorf("silent centroid = %f, want 0", got)
	}
}

func TestCentroidFramesOfTone(t *testing.T) {
	sr := 22050
	sc := NewSpectralCentroid(sr)
	signal := sine(1000, 0.5, 1.0, sr)

	centroids := sc.ComputeFrames(signal, 2048, 512)
	if len(centroids) != 1+len(signal)/512 {
		t.Fatalf("got %d frames, want %d", len(centroids), 1+len(signal)/512)
	}

	for i := 4; i < len(centroids)-4; i++ {
		if math.Abs(centroids[i]-1000) > 50 {
			t.Fatalf("frame %d centroid = %.1f Hz, want about 1000 Hz", i, centroids[i])
		}
	}
}
