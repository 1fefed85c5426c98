// Package bench provides batch-evaluable benchmark optimization functions
// from http://en.wikipedia.org/wiki/Test_functions_for_optimization for
// exercising the swarm solver.
package bench

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	cpso "github.com/anwesh0304/Chaotic-PSO"
)

var (
	sin  = math.Sin
	cos  = math.Cos
	abs  = math.Abs
	exp  = math.Exp
	sqrt = math.Sqrt
)

var AllFuncs = []Func{
	Sphere{NDim: 2},
	Sphere{NDim: 10},
	Rastrigin{NDim: 2},
	Rastrigin{NDim: 5},
	Ackley{},
	Styblinski{NDim: 2},
	Styblinski{NDim: 10},
	Rosenbrock{NDim: 2},
	Eggholder{},
}

// Func is a benchmark objective.  At evaluates a single point; bounds and
// known optima support assertions in tests.
type Func interface {
	At(v []float64) float64
	Bounds() (low, up []float64)
	Optima() []cpso.Point
	Name() string
}

// Gradder is implemented by functions with a known analytic derivative.
// The derivative exists for validating gradient approximations only; the
// optimizer never sees it.
type Gradder interface {
	Grad(v []float64) []float64
}

// Objective adapts fn to the optimizer's objective interfaces, evaluating
// whole position matrices row by row in one call.  Points outside fn's
// bounds evaluate to +Inf.
func Objective(fn Func) *BatchFunc { return &BatchFunc{fn: fn} }

type BatchFunc struct {
	fn Func
}

func (bf *BatchFunc) Objective(v []float64) (float64, error) {
	if !InsideBounds(v, bf.fn) {
		return math.Inf(1), nil
	}
	return bf.fn.At(v), nil
}

func (bf *BatchFunc) BatchObjective(x *mat.Dense) ([]float64, error) {
	rows, _ := x.Dims()
	vals := make([]float64, rows)
	for i := 0; i < rows; i++ {
		v := x.RawRowView(i)
		if !InsideBounds(v, bf.fn) {
			vals[i] = math.Inf(1)
			continue
		}
		vals[i] = bf.fn.At(v)
	}
	return vals, nil
}

// Sphere is the unimodal convex paraboloid sum(x_i^2) with its single
// minimum of zero at the origin.
type Sphere struct {
	NDim int
}

func (fn Sphere) Name() string { return fmt.Sprintf("Sphere_%vD", fn.NDim) }

func (fn Sphere) At(v []float64) float64 {
	tot := 0.0
	for _, x := range v {
		tot += x * x
	}
	return tot
}

func (fn Sphere) Grad(v []float64) []float64 {
	g := make([]float64, len(v))
	for i, x := range v {
		g[i] = 2 * x
	}
	return g
}

func (fn Sphere) Bounds() (low, up []float64) {
	return uniformBounds(fn.NDim, -100, 100)
}

func (fn Sphere) Optima() []cpso.Point {
	return []cpso.Point{cpso.NewPoint(make([]float64, fn.NDim), 0)}
}

// Rastrigin is the classic highly multimodal benchmark
// 10*D + sum(x_i^2 - 10*cos(2*pi*x_i)) with a dense grid of local minima
// and the global minimum of zero at the origin.
type Rastrigin struct {
	NDim int
}

func (fn Rastrigin) Name() string { return fmt.Sprintf("Rastrigin_%vD", fn.NDim) }

func (fn Rastrigin) At(v []float64) float64 {
	tot := 10 * float64(len(v))
	for _, x := range v {
		tot += x*x - 10*cos(2*math.Pi*x)
	}
	return tot
}

func (fn Rastrigin) Grad(v []float64) []float64 {
	g := make([]float64, len(v))
	for i, x := range v {
		g[i] = 2*x + 20*math.Pi*sin(2*math.Pi*x)
	}
	return g
}

func (fn Rastrigin) Bounds() (low, up []float64) {
	return uniformBounds(fn.NDim, -5.12, 5.12)
}

func (fn Rastrigin) Optima() []cpso.Point {
	return []cpso.Point{cpso.NewPoint(make([]float64, fn.NDim), 0)}
}

type Ackley struct{}

func (fn Ackley) Name() string { return "Ackley" }

func (fn Ackley) At(v []float64) float64 {
	x := v[0]
	y := v[1]
	return -20*exp(-0.2*sqrt(0.5*(x*x+y*y))) -
		exp(0.5*(cos(2*math.Pi*x)+cos(2*math.Pi*y))) +
		20 + math.E
}

func (fn Ackley) Bounds() (low, up []float64) {
	return []float64{-5, -5}, []float64{5, 5}
}

func (fn Ackley) Optima() []cpso.Point {
	return []cpso.Point{cpso.NewPoint([]float64{0, 0}, 0)}
}

type Styblinski struct {
	NDim int
}

func (fn Styblinski) Name() string { return fmt.Sprintf("Styblinski_%vD", fn.NDim) }

func (fn Styblinski) At(x []float64) float64 {
	tot := 0.0
	for _, v := range x {
		tot += math.Pow(v, 4) - 16*math.Pow(v, 2) + 5*v
	}
	return tot / 2
}

func (fn Styblinski) Grad(x []float64) []float64 {
	g := make([]float64, len(x))
	for i, v := range x {
		g[i] = 2*math.Pow(v, 3) - 16*v + 2.5
	}
	return g
}

func (fn Styblinski) Bounds() (low, up []float64) {
	return uniformBounds(fn.NDim, -5, 5)
}

func (fn Styblinski) Optima() []cpso.Point {
	pos := make([]float64, fn.NDim)
	for i := range pos {
		pos[i] = -2.903534
	}
	return []cpso.Point{cpso.NewPoint(pos, -39.16599*float64(fn.NDim))}
}

type Rosenbrock struct {
	NDim int
}

func (fn Rosenbrock) Name() string { return fmt.Sprintf("Rosenbrock_%vD", fn.NDim) }

func (fn Rosenbrock) At(x []float64) float64 {
	tot := 0.0
	for i := 0; i < len(x)-1; i++ {
		tot += 100*math.Pow(x[i+1]-x[i]*x[i], 2) + math.Pow(x[i]-1, 2)
	}
	return tot
}

func (fn Rosenbrock) Bounds() (low, up []float64) {
	return uniformBounds(fn.NDim, -30, 30)
}

func (fn Rosenbrock) Optima() []cpso.Point {
	pos := make([]float64, fn.NDim)
	for i := range pos {
		pos[i] = 1
	}
	return []cpso.Point{cpso.NewPoint(pos, 0)}
}

type Eggholder struct{}

func (fn Eggholder) Name() string { return "Eggholder" }

func (fn Eggholder) At(v []float64) float64 {
	x := v[0]
	y := v[1]
	return -(y+47)*sin(sqrt(abs(y+x/2+47))) - x*sin(sqrt(abs(x-(y+47))))
}

func (fn Eggholder) Bounds() (low, up []float64) {
	return []float64{-512, -512}, []float64{512, 512}
}

func (fn Eggholder) Optima() []cpso.Point {
	return []cpso.Point{cpso.NewPoint([]float64{512, 404.2319}, -959.6407)}
}

func InsideBounds(p []float64, fn Func) bool {
	low, up := fn.Bounds()
	for i := range p {
		if p[i] < low[i] || p[i] > up[i] {
			return false
		}
	}
	return true
}

func uniformBounds(ndim int, lo, hi float64) (low, up []float64) {
	low = make([]float64, ndim)
	up = make([]float64, ndim)
	for i := range low {
		low[i] = lo
		up[i] = hi
	}
	return low, up
}
