package speech

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// LPCAnalyzer performs Linear Predictive Coding analysis with Burg's method.
// LPC models the vocal tract as an all-pole filter, essential for
// formant extraction
type LPCAnalyzer struct {
	sampleRate int
	order      int
}

// LPCResult contains LPC analysis results
type LPCResult struct {
	// Coefficients a1..ap of the predictor x[n] ~ sum a_k x[n-k], so the
	// inverse filter is A(z) = 1 - sum a_k z^-k
	Coefficients   []float64 `json:"coefficients"`
	ResidualEnergy float64   `json:"residual_energy"` // mean squared prediction error
	Order          int       `json:"order"`
}

// Resonance is one complex-conjugate pole pair of the LPC filter
type Resonance struct {
	Frequency float64 `json:"frequency"`
	Bandwidth float64 `json:"bandwidth"`
}

// NewLPCAnalyzer creates a new LPC analyzer
func NewLPCAnalyzer(sampleRate int, order int) *LPCAnalyzer {
	if order <= 0 {
		order = 2 + sampleRate/1000 // Rule of thumb for speech
	}

	return &LPCAnalyzer{
		sampleRate: sampleRate,
		order:      order,
	}
}

// Analyze estimates predictor coefficients with Burg's recursion
func (lpc *LPCAnalyzer) Analyze(signal []float64) (*LPCResult, error) {
	n := len(signal)
	m := lpc.order
	if n <= m+1 {
		return nil, fmt.Errorf("signal too short for LPC analysis of order %d", m)
	}

	power := 0.0
	for _, s := range signal {
		power += s * s
	}
	if power == 0 {
		return nil, fmt.Errorf("silent frame")
	}
	residual := power / float64(n)

	// forward and backward prediction errors
	forward := make([]float64, n)
	backward := make([]float64, n)
	forward[0] = signal[0]
	backward[n-2] = signal[n-1]
	for j := 1; j < n-1; j++ {
		forward[j] = signal[j]
		backward[j-1] = signal[j]
	}

	coeffs := make([]float64, m)
	previous := make([]float64, m)

	for k := range m {
		num, denom := 0.0, 0.0
		for j := range n - k - 1 {
			num += forward[j] * backward[j]
			denom += forward[j]*forward[j] + backward[j]*backward[j]
		}
		if denom == 0 {
			return nil, fmt.Errorf("burg recursion degenerated at order %d", k+1)
		}

		coeffs[k] = 2.0 * num / denom
		residual *= 1.0 - coeffs[k]*coeffs[k]
		for i := range k {
			coeffs[i] = previous[i] - coeffs[k]*previous[k-1-i]
		}

		if k == m-1 {
			break
		}

		copy(previous, coeffs[:k+1])
		for j := range n - k - 2 {
			forward[j] -= previous[k] * backward[j]
			backward[j] = backward[j+1] - previous[k]*forward[j+1]
		}
	}

	return &LPCResult{
		Coefficients:   coeffs,
		ResidualEnergy: residual,
		Order:          m,
	}, nil
}

// Resonances finds the pole pairs of 1/A(z) from the roots of
// z^p - a1 z^(p-1) - ... - ap, computed as eigenvalues of the companion
// matrix. Results are sorted by ascending frequency.
func (lpc *LPCAnalyzer) Resonances(result *LPCResult) ([]Resonance, error) {
	p := len(result.Coefficients)
	if p == 0 {
		return nil, nil
	}

	companion := mat.NewDense(p, p, nil)
	for j, a := range result.Coefficients {
		companion.Set(0, j, a)
	}
	for i := 1; i < p; i++ {
		companion.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(companion, mat.EigenNone); !ok {
		return nil, fmt.Errorf("LPC root finding did not converge")
	}

	resonances := make([]Resonance, 0, p/2)
	for _, root := range eig.Values(nil) {
		if imag(root) <= 0 {
			continue
		}
		radius := cmplx.Abs(root)
		if radius == 0 {
			continue
		}
		resonances = append(resonances, Resonance{
			Frequency: cmplx.Phase(root) * float64(lpc.sampleRate) / (2 * math.Pi),
			Bandwidth: -math.Log(radius) * float64(lpc.sampleRate) / math.Pi,
		})
	}

	sort.Slice(resonances, func(i, j int) bool {
		return resonances[i].Frequency < resonances[j].Frequency
	})

	return resonances, nil
}
