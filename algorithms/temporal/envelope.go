package temporal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SavitzkyGolay smooths an envelope by fitting a least-squares polynomial over
// a sliding symmetric window. Edges are handled by evaluating the polynomial
// fitted to the first and last full windows, so the output length always
// matches the input.
type SavitzkyGolay struct {
	window int
	order  int
	// pinv maps window samples to polynomial coefficients ((order+1) x window)
	pinv *mat.Dense
}

// NewSavitzkyGolay creates a smoother for an odd window length and polynomial
// order smaller than the window
func NewSavitzkyGolay(window, order int) (*SavitzkyGolay, error) {
	if window <= 0 || window%2 == 0 {
		return nil, fmt.Errorf("savitzky-golay window must be a positive odd number, got %d", window)
	}
	if order < 0 || order >= window {
		return nil, fmt.Errorf("savitzky-golay order %d must be in [0, %d)", order, window)
	}

	half := window / 2
	vandermonde := mat.NewDense(window, order+1, nil)
	for i := range window {
		for j := range order + 1 {
			vandermonde.Set(i, j, math.Pow(float64(i-half), float64(j)))
		}
	}

	identity := mat.NewDense(window, window, nil)
	for i := range window {
		identity.Set(i, i, 1)
	}

	var pinv mat.Dense
	if err := pinv.Solve(vandermonde, identity); err != nil {
		return nil, fmt.Errorf("savitzky-golay fit failed: %w", err)
	}

	return &SavitzkyGolay{
		window: window,
		order:  order,
		pinv:   &pinv,
	}, nil
}

// Window returns the smoothing window length
func (sg *SavitzkyGolay) Window() int {
	return sg.window
}

// weights returns the filter taps that evaluate the fitted polynomial at
// offset t from the window centre
func (sg *SavitzkyGolay) weights(t float64) []float64 {
	taps := make([]float64, sg.window)
	power := 1.0
	for j := range sg.order + 1 {
		for k := range sg.window {
			taps[k] += power * sg.pinv.At(j, k)
		}
		power *= t
	}
	return taps
}

// Smooth returns the smoothed envelope. Inputs shorter than the window are
// returned unchanged (as a copy).
func (sg *SavitzkyGolay) Smooth(envelope []float64) []float64 {
	n := len(envelope)
	smoothed := make([]float64, n)
	if n < sg.window {
		copy(smoothed, envelope)
		return smoothed
	}

	half := sg.window / 2
	center := sg.weights(0)
	for i := half; i < n-half; i++ {
		sum := 0.0
		for k, w := range center {
			sum += w * envelope[i-half+k]
		}
		smoothed[i] = sum
	}

	// leading and trailing edges
	for i := range half {
		head := sg.weights(float64(i - half))
		tail := sg.weights(float64(i + 1))
		headSum, tailSum := 0.0, 0.0
		for k := range sg.window {
			headSum += head[k] * envelope[k]
			tailSum += tail[k] * envelope[n-sg.window+k]
		}
		smoothed[i] = headSum
		smoothed[n-half+i] = tailSum
	}

	return smoothed
}
