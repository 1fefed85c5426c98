// Package chaos provides deterministic chaotic number generators that can
// replace uniform draws for the swarm's velocity coefficients.  Each
// generator evolves an internal map or flow one step per draw, so
// successive numbers are chained through the underlying dynamics rather
// than independent.
package chaos

import (
	"fmt"
	"math/rand"
	"sync"
)

// Generator yields numbers in (0, 1) driven by a chaotic map.  Generators
// are deterministic for a given seed and are not safe for concurrent use;
// give each run its own.
type Generator interface {
	Float64() float64
}

// New constructs a named generator ("logistic", "tent" or "lorenz")
// seeded with seed.
func New(kind string, seed int64) (Generator, error) {
	switch kind {
	case "logistic":
		return NewLogistic(seed), nil
	case "tent":
		return NewTent(seed), nil
	case "lorenz":
		return NewLorenz(seed), nil
	}
	return nil, fmt.Errorf("chaos: unknown generator %q", kind)
}

// Pair bundles two independent generators into the r1/r2 coefficient
// source the swarm update consumes.
type Pair struct {
	R1 Generator
	R2 Generator
}

func (p Pair) Next() (float64, float64) { return p.R1.Float64(), p.R2.Float64() }

// NewPair builds a coefficient pair of the named kind with decorrelated
// seeds derived from seed.
func NewPair(kind string, seed int64) (Pair, error) {
	r1, err := New(kind, seed)
	if err != nil {
		return Pair{}, err
	}
	r2, err := New(kind, seed+0x9e3779b9)
	if err != nil {
		return Pair{}, err
	}
	return Pair{R1: r1, R2: r2}, nil
}

// Logistic iterates the logistic map f(x) = r*x*(1-x); r = 4 gives full
// chaos on (0, 1).
type Logistic struct {
	R float64
	x float64
}

func NewLogistic(seed int64) *Logistic {
	return &Logistic{R: 4, x: seedState(seed)}
}

func (l *Logistic) Float64() float64 {
	x := l.x
	l.x = l.R * x * (1 - x)
	return x
}

// Tent iterates the tent map in the numerically stable form
// f(x) = x/mu for x <= mu, (1-x)/(1-mu) otherwise, with mu just under
// one half so trajectories do not collapse onto the unstable fixed point.
type Tent struct {
	Mu float64
	x  float64
}

func NewTent(seed int64) *Tent {
	return &Tent{Mu: 0.49999, x: seedState(seed)}
}

func (t *Tent) Float64() float64 {
	x := t.x
	if x <= t.Mu {
		t.x = x / t.Mu
	} else {
		t.x = (1 - x) / (1 - t.Mu)
	}
	return x
}

// LorenzParams are the sigma, beta, rho coefficients of the Lorenz flow:
//
//	xdot = sigma*(y-x)
//	ydot = x*(rho-z) - y
//	zdot = x*y - beta*z
type LorenzParams struct {
	Sigma, Beta, Rho float64
}

// DefaultLorenzParams is the classic chaotic regime.
var DefaultLorenzParams = LorenzParams{Sigma: 10, Beta: 8.0 / 3, Rho: 28}

// Lorenz evolves the Lorenz flow one RK4 step per draw and returns the
// tracked component rescaled to (0, 1) against the flow's attractor
// limits.  Values that stray past the precomputed limits are pinned just
// inside the unit interval.
type Lorenz struct {
	Params LorenzParams
	// Comp selects which of the three flow components produces numbers.
	Comp int
	// H is the integration time step.
	H     float64
	state [3]float64
	lims  [3][2]float64
}

const lorenzEps = 1e-5

func NewLorenz(seed int64) *Lorenz {
	l := &Lorenz{
		Params: DefaultLorenzParams,
		Comp:   0,
		H:      0.01,
		lims:   lorenzLimits(DefaultLorenzParams),
	}
	rng := rand.New(rand.NewSource(seed))
	for i := range l.state {
		lo, hi := l.lims[i][0], l.lims[i][1]
		l.state[i] = lo + rng.Float64()*(hi-lo)
	}
	return l
}

func (l *Lorenz) Float64() float64 {
	lo, hi := l.lims[l.Comp][0], l.lims[l.Comp][1]
	v := (l.state[l.Comp] - lo) / (hi - lo)
	if v < 0 {
		v = lorenzEps
	} else if v > 1 {
		v = 1 - lorenzEps
	}
	l.state = rk4(l.state, l.H, l.Params)
	return v
}

func deriv(s [3]float64, p LorenzParams) [3]float64 {
	x, y, z := s[0], s[1], s[2]
	return [3]float64{
		p.Sigma * (y - x),
		x*(p.Rho-z) - y,
		x*y - p.Beta*z,
	}
}

func rk4(s [3]float64, h float64, p LorenzParams) [3]float64 {
	add := func(a [3]float64, b [3]float64, f float64) [3]float64 {
		return [3]float64{a[0] + f*b[0], a[1] + f*b[1], a[2] + f*b[2]}
	}
	k1 := deriv(s, p)
	k2 := deriv(add(s, k1, h/2), p)
	k3 := deriv(add(s, k2, h/2), p)
	k4 := deriv(add(s, k3, h), p)
	var out [3]float64
	for i := range out {
		out[i] = s[i] + h/6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return out
}

var (
	limsMu    sync.Mutex
	limsCache = map[LorenzParams][3][2]float64{}
)

// lorenzLimits integrates the flow long enough to bracket the attractor so
// draws can be normalized.  Limits are cached per parameter set.
func lorenzLimits(p LorenzParams) [3][2]float64 {
	limsMu.Lock()
	defer limsMu.Unlock()
	if lims, ok := limsCache[p]; ok {
		return lims
	}

	const (
		h     = 0.01
		steps = 1000000
	)
	s := [3]float64{1, 1, 1}
	var lims [3][2]float64
	for i := range lims {
		lims[i] = [2]float64{s[i], s[i]}
	}
	for n := 0; n < steps; n++ {
		s = rk4(s, h, p)
		for i := range lims {
			if s[i] < lims[i][0] {
				lims[i][0] = s[i]
			}
			if s[i] > lims[i][1] {
				lims[i][1] = s[i]
			}
		}
	}

	limsCache[p] = lims
	return lims
}

func seedState(seed int64) float64 {
	x := rand.New(rand.NewSource(seed)).Float64()
	// nudge away from the maps' fixed points at the interval edges
	if x < 1e-3 {
		x = 1e-3
	} else if x > 1-1e-3 {
		x = 1 - 1e-3
	}
	return x
}
