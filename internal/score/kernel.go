// Package score converts per-label interface distances into fuzzy membership
// values and combines them into a single prospectivity score per cell.
package score

import (
	"math"

	"github.com/rotisserie/eris"
)

// ErrInvalidParameter is returned when a kernel parameter is outside its
// valid domain.
var ErrInvalidParameter = eris.New("score: invalid parameter")

// Params configures the Gaussian fall-off and the fuzzy combination. Fixed
// for the duration of a run.
type Params struct {
	// FalloffKm is the distance at which favorability cuts off entirely.
	FalloffKm float64
	// Alpha is the Gaussian shape factor; larger values steepen the fall-off.
	Alpha float64
	// WeightA is the weight of the first label. The second label gets
	// 1 - WeightA. At the neutral midpoint 0.5 the combination is a pure
	// fuzzy AND (elementwise minimum).
	WeightA float64
}

// Validate checks the parameter domains declared by the kernel contract.
func (p Params) Validate() error {
	if p.FalloffKm <= 0 {
		return eris.Wrapf(ErrInvalidParameter, "falloff_km %v must be > 0", p.FalloffKm)
	}
	if p.Alpha <= 0 {
		return eris.Wrapf(ErrInvalidParameter, "alpha %v must be > 0", p.Alpha)
	}
	if p.WeightA < 0 || p.WeightA > 1 {
		return eris.Wrapf(ErrInvalidParameter, "weight_a %v must be in [0,1]", p.WeightA)
	}
	return nil
}

// Weights returns the normalized two-label weight vector {WeightA, 1-WeightA}.
func (p Params) Weights() []float64 {
	return []float64{p.WeightA, 1 - p.WeightA}
}

// Membership maps a distance to a Gaussian membership value in [0,1]:
// exp(-alpha * (d/d0)^2), exactly 1 at d = 0 and exactly 0 at or beyond the
// fall-off distance. Negative distances mark unreached cells and also yield
// exactly 0.
func Membership(distanceKm float64, p Params) float64 {
	if distanceKm < 0 || distanceKm >= p.FalloffKm {
		return 0
	}
	if distanceKm == 0 {
		return 1
	}
	ratio := distanceKm / p.FalloffKm
	return clamp01(math.Exp(-p.Alpha * ratio * ratio))
}

// Combine folds per-label memberships into one score. The rule interpolates
// between a pure minimum (fuzzy AND) at uniform weights and the weighted
// average at full skew:
//
//	bias  = (maxWeight - 1/n) / (1 - 1/n)
//	score = (1-bias)*min(mu) + bias*sum(w_i*mu_i)
//
// so weight_a = 0.5 gives min(mu_a, mu_b), weight_a = 0 or 1 gives the single
// remaining label's membership, and intermediate weights blend smoothly. The
// rule is symmetric under label permutation.
func Combine(memberships, weights []float64) float64 {
	n := len(memberships)
	if n == 0 || len(weights) != n {
		return 0
	}
	if n == 1 {
		return clamp01(memberships[0])
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}

	minMu := memberships[0]
	avg := 0.0
	maxW := 0.0
	for i, mu := range memberships {
		w := weights[i] / total
		if mu < minMu {
			minMu = mu
		}
		avg += w * mu
		if w > maxW {
			maxW = w
		}
	}

	uniform := 1 / float64(n)
	bias := (maxW - uniform) / (1 - uniform)
	return clamp01((1-bias)*minMu + bias*avg)
}

// Cell scores one cell from its per-label distances (km, negative for
// unreached) under the two-label parameterization.
func Cell(distAKm, distBKm float64, p Params) (muA, muB, score float64) {
	muA = Membership(distAKm, p)
	muB = Membership(distBKm, p)
	return muA, muB, Combine([]float64{muA, muB}, p.Weights())
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
