// Package cpso implements a restart particle swarm minimizer for
// box-bounded continuous objectives.  A swarm is driven through a
// convergence ("forward") phase and, when it stagnates, a verification
// ("reverse") phase that scatters particles away from the incumbent best
// to probe for escape from a local minimum.  Independent seeded runs
// repeat until a central-difference gradient check certifies the
// candidate as (approximately) stationary.
package cpso

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Rand is the package-default random number source.  It is only consulted
// when no per-run generator is supplied explicitly; it can be swapped for
// any other generator (e.g. a Mersenne twister) before use.
var Rand Rng = rand.New(rand.NewSource(1))

// Rng is the minimal random number capability the package needs.
type Rng interface {
	Float64() float64
}

// Point is a position in the search domain together with its objective
// value.  The position is copied on construction and never mutated.
type Point struct {
	pos []float64
	Val float64
}

func NewPoint(pos []float64, val float64) Point {
	cpos := make([]float64, len(pos))
	copy(cpos, pos)
	return Point{pos: cpos, Val: val}
}

func (p Point) At(i int) float64 { return p.pos[i] }

func (p Point) Len() int { return len(p.pos) }

func (p Point) Pos() []float64 {
	pos := make([]float64, len(p.pos))
	copy(pos, p.pos)
	return pos
}

func (p Point) String() string { return fmt.Sprintf("f(%v) = %v", p.pos, p.Val) }

func hashPoint(p Point) [sha1.Size]byte {
	data := make([]byte, p.Len()*8)
	for i := 0; i < p.Len(); i++ {
		binary.BigEndian.PutUint64(data[i*8:], math.Float64bits(p.At(i)))
	}
	return sha1.Sum(data)
}

// Bounds is an immutable per-dimension box constraining the search domain.
// It is safe for concurrent use by multiple runs.
type Bounds struct {
	low []float64
	up  []float64
}

// NewBounds validates and copies the given lower and upper bound vectors.
// Any dimension with lower >= upper is a configuration error.
func NewBounds(low, up []float64) (*Bounds, error) {
	if len(low) != len(up) {
		return nil, fmt.Errorf("cpso: bounds length mismatch: %v lower vs %v upper", len(low), len(up))
	}
	if len(low) == 0 {
		return nil, fmt.Errorf("cpso: bounds must have at least one dimension")
	}
	for i := range low {
		if low[i] >= up[i] {
			return nil, fmt.Errorf("cpso: degenerate bounds in dimension %v: lower %v >= upper %v", i, low[i], up[i])
		}
	}
	b := &Bounds{
		low: make([]float64, len(low)),
		up:  make([]float64, len(up)),
	}
	copy(b.low, low)
	copy(b.up, up)
	return b, nil
}

func (b *Bounds) Len() int { return len(b.low) }

func (b *Bounds) Low(i int) float64 { return b.low[i] }

func (b *Bounds) Up(i int) float64 { return b.up[i] }

// Span returns the width of dimension i.
func (b *Bounds) Span(i int) float64 { return b.up[i] - b.low[i] }

// Contains reports whether pos lies inside the box component-wise.
func (b *Bounds) Contains(pos []float64) bool {
	for i, x := range pos {
		if x < b.low[i] || x > b.up[i] {
			return false
		}
	}
	return true
}

// Clamp slides each coordinate of pos to the nearest value inside the box.
func (b *Bounds) Clamp(pos []float64) {
	for i := range pos {
		pos[i] = math.Max(b.low[i], pos[i])
		pos[i] = math.Min(b.up[i], pos[i])
	}
}

// Reflect mirrors out-of-box coordinates of pos back across the violated
// boundary and negates the corresponding velocity component.  Coordinates
// that overshoot by more than the box width are clamped to the boundary.
func (b *Bounds) Reflect(pos, vel []float64) {
	for i := range pos {
		if pos[i] < b.low[i] {
			pos[i] = 2*b.low[i] - pos[i]
			vel[i] = -vel[i]
		} else if pos[i] > b.up[i] {
			pos[i] = 2*b.up[i] - pos[i]
			vel[i] = -vel[i]
		}
		if pos[i] < b.low[i] || pos[i] > b.up[i] {
			pos[i] = math.Max(b.low[i], math.Min(b.up[i], pos[i]))
		}
	}
}

// RandPos returns a position drawn uniformly from the box using rng, or
// the package-level Rand if rng is nil.
func (b *Bounds) RandPos(rng Rng) []float64 {
	if rng == nil {
		rng = Rand
	}
	pos := make([]float64, b.Len())
	for i := range pos {
		pos[i] = b.low[i] + rng.Float64()*(b.up[i]-b.low[i])
	}
	return pos
}

// RandPop generates n unevaluated points uniformly distributed inside b.
func RandPop(n int, b *Bounds, rng Rng) []Point {
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		points[i] = Point{pos: b.RandPos(rng), Val: math.Inf(1)}
	}
	return points
}

// Objectiver evaluates a single point.  The objective must be framed so
// that lower values are better.  If the evaluation fails, positive
// infinity should be returned along with an error.
type Objectiver interface {
	Objective(v []float64) (float64, error)
}

// BatchObjectiver evaluates many points in one call: x holds one point per
// row, and the returned slice holds one value per row.  Objectives backed
// by vectorized benchmark libraries should implement this in addition to
// Objectiver so the whole swarm costs a single call per iteration.
type BatchObjectiver interface {
	BatchObjective(x *mat.Dense) ([]float64, error)
}

// Func adapts an ordinary function to the Objectiver interface.
type Func func([]float64) float64

func (f Func) Objective(v []float64) (float64, error) { return f(v), nil }

// PosMatrix packs point positions into a row-per-point dense matrix.
func PosMatrix(points []Point) *mat.Dense {
	if len(points) == 0 {
		return nil
	}
	ndim := points[0].Len()
	x := mat.NewDense(len(points), ndim, nil)
	for i, p := range points {
		for j := 0; j < ndim; j++ {
			x.Set(i, j, p.At(j))
		}
	}
	return x
}
