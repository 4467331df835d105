package temporal

// Run is a half-open range of frame indices [Start, End)
type Run struct {
	Start int
	End   int
}

// Len returns the number of frames in the run
func (r Run) Len() int {
	return r.End - r.Start
}

// SilenceDetection groups frames of an energy envelope into silent runs
type SilenceDetection struct {
	threshold float64
}

// NewSilenceDetection creates a silence detector. Frames strictly below the
// threshold are silent.
func NewSilenceDetection(threshold float64) *SilenceDetection {
	return &SilenceDetection{threshold: threshold}
}

// DetectSilence returns every maximal run of silent frames, in order.
// A run still open at the end of the envelope ends at len(envelope).
func (sd *SilenceDetection) DetectSilence(envelope []float64) []Run {
	return FindRuns(len(envelope), func(i int) bool {
		return envelope[i] < sd.threshold
	})
}

// FindRuns groups consecutive indices in [0, n) for which active returns true
func FindRuns(n int, active func(i int) bool) []Run {
	var runs []Run
	currentStart := -1

	for i := range n {
		if active(i) {
			if currentStart == -1 {
				currentStart = i
			}
			continue
		}
		if currentStart != -1 {
			runs = append(runs, Run{Start: currentStart, End: i})
			currentStart = -1
		}
	}

	// Handle run that extends to end
	if currentStart != -1 {
		runs = append(runs, Run{Start: currentStart, End: n})
	}

	return runs
}
