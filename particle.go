package cpso

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// These params are calculated using a constriction factor originally
// described in:
//
//     Clerc and M.  “The swarm and the queen: towards a deterministic and
//     adaptive particle swarm optimization” Proc. 1999 Congress on
//     Evolutionary Computation, pp. 1951-1957
//
// The cognition and social parameters correspond to c1 and c2 values of 2.05
// that have been multiplied by their constriction coeffient - i.e.
// DefaultSocial = Constriction(2.05, 2.05)*2.05.  DefaultInertia is set equal
// to the constriction coefficient.
const (
	DefaultCognition = 1.496179765663133
	DefaultSocial    = 1.496179765663133
	DefaultInertia   = 0.7298437881283576
)

// Constriction calculates the constriction coefficient for the given c1 and
// c2 for the particle velocity equation:
//
//    v_next = k(v_curr + c1*rand*(p_glob-x) + c2*rand*(p_personal-x))
//
//    or
//
//    v_next = w*v_curr + b1*rand*(p_glob-x) + b2*rand*(p_personal-x)
//
//    (with constriction coefficient multiplied through.
//
// c1+c2 should usually be greater than (but close to) 4.  'w = k' is often
// referred to as the inertia in the traditional swarm equation
func Constriction(c1, c2 float64) float64 {
	phi := c1 + c2
	return 2 / math.Abs(2-phi-math.Sqrt(phi*phi-4*phi))
}

// CoeffSource yields the stochastic r1 (cognitive) and r2 (social) weights
// for one dimension of a velocity update.  The default source draws both
// uniformly; chaotic map sources can be substituted.
type CoeffSource interface {
	Next() (r1, r2 float64)
}

// UniformCoeffs draws both velocity coefficients uniformly from [0, 1).
type UniformCoeffs struct {
	Rng Rng
}

func (u UniformCoeffs) Next() (float64, float64) {
	rng := u.Rng
	if rng == nil {
		rng = Rand
	}
	return rng.Float64(), rng.Float64()
}

type Particle struct {
	Id int
	Point
	Vel  []float64
	Best Point
}

// Move performs one velocity and position update pulling the particle
// toward its personal best and the swarm best gbest, then reflects the new
// position back inside b.
func (p *Particle) Move(gbest Point, b *Bounds, vmax []float64, inertia, cognition, social float64, coeffs CoeffSource) {
	// update velocity
	for i, currv := range p.Vel {
		// random weights r1 and r2 MUST go inside this loop and be generated
		// uniquely for each dimension of p's velocity.
		r1, r2 := coeffs.Next()
		p.Vel[i] = inertia*currv +
			cognition*r1*(p.Best.At(i)-p.At(i)) +
			social*r2*(gbest.At(i)-p.At(i))
		if math.Abs(p.Vel[i]) > vmax[i] {
			p.Vel[i] = math.Copysign(vmax[i], p.Vel[i])
		}
	}

	// update position
	pos := make([]float64, p.Len())
	for i := range pos {
		pos[i] = p.At(i) + p.Vel[i]
	}
	b.Reflect(pos, p.Vel)
	p.Point = NewPoint(pos, math.Inf(1))
}

// Update records a freshly evaluated point for the particle, keeping the
// personal best only on strict improvement so ties retain the incumbent.
func (p *Particle) Update(newp Point) {
	p.Val = newp.Val
	if p.Val < p.Best.Val {
		p.Best = newp
	}
}

type Population []*Particle

// NewPopulation initializes a population of particles at the given points
// with velocities for each dimension i drawn uniformly from
// [-vmax[i], vmax[i]].
func NewPopulation(points []Point, vmax []float64, rng Rng) Population {
	if rng == nil {
		rng = Rand
	}
	pop := make(Population, len(points))
	for i, p := range points {
		pop[i] = &Particle{
			Id:    i,
			Point: p,
			Best:  p,
			Vel:   make([]float64, len(vmax)),
		}
		for j, v := range vmax {
			pop[i].Vel[j] = v * (1 - 2*rng.Float64())
		}
	}
	return pop
}

// NewPopulationRand creates n randomly positioned particles uniformly
// distributed inside b with speed limits derived from the bound widths.
func NewPopulationRand(n int, b *Bounds, rng Rng) Population {
	return NewPopulation(RandPop(n, b, rng), VmaxFromBounds(b), rng)
}

func (pop Population) Points() []Point {
	points := make([]Point, 0, len(pop))
	for _, p := range pop {
		points = append(points, p.Point)
	}
	return points
}

// Best returns the particle holding the lowest personal-best value.
func (pop Population) Best() *Particle {
	if len(pop) == 0 {
		return nil
	}

	best := pop[0]
	for _, p := range pop[1:] {
		if p.Best.Val < best.Best.Val {
			best = p
		}
	}
	return best
}

// Spread returns the per-dimension standard deviation of particle
// positions - a measure of how far the swarm has collapsed.
func (pop Population) Spread() []float64 {
	if len(pop) == 0 {
		return nil
	}
	ndim := pop[0].Len()
	spread := make([]float64, ndim)
	col := make([]float64, len(pop))
	for j := 0; j < ndim; j++ {
		for i, p := range pop {
			col[i] = p.At(j)
		}
		spread[j] = stat.StdDev(col, nil)
	}
	return spread
}

// Scatter diversifies a stagnated swarm: every particle is mirrored
// through gbest (clamped into b), its velocity is re-randomized with
// magnitude informed by the swarm's current spread, and its personal best
// is reset to the new position so the swarm re-converges instead of
// collapsing straight back onto the incumbent.
func (pop Population) Scatter(gbest Point, b *Bounds, rng Rng) {
	if rng == nil {
		rng = Rand
	}

	spread := pop.Spread()
	for j := range spread {
		// collapsed swarms get a floor so the probe still moves
		if min := 0.01 * b.Span(j); spread[j] < min {
			spread[j] = min
		}
	}

	for _, p := range pop {
		pos := make([]float64, p.Len())
		for j := range pos {
			pos[j] = 2*gbest.At(j) - p.At(j)
			p.Vel[j] = spread[j] * (1 - 2*rng.Float64()) * 2
		}
		b.Clamp(pos)
		p.Point = NewPoint(pos, math.Inf(1))
		p.Best = p.Point
	}
}

// VmaxFromBounds returns per-dimension speed limits equal to the bounded
// range of each dimension.
//
//     Eberhart, R.C.; Yuhui Shi, "Particle swarm optimization: developments,
//     applications and resources," Evolutionary Computation, 2001. Proceedings of
//     the 2001 Congress on , vol.1, no., pp.81,86 vol. 1, 2001 doi:
//     10.1109/CEC.2001.934374
func VmaxFromBounds(b *Bounds) []float64 {
	vmax := make([]float64, b.Len())
	for i := range vmax {
		// Eberhart et al. suggest (up-low)/2 - removing the divide by two
		// seems to help the swarm avoid premature convergence in difficult
		// problems.
		vmax[i] = b.Span(i)
	}
	return vmax
}
