package bench_test

import (
	"math"
	"testing"

	rand2 "bitbucket.org/MaVo159/rand"

	cpso "github.com/anwesh0304/Chaotic-PSO"
	"github.com/anwesh0304/Chaotic-PSO/bench"
)

const seed = 7

// funcs the solver is expected to nail with modest budgets; the harder
// entries in AllFuncs are run for the log only.
var required = map[string]bool{
	"Sphere_2D":    true,
	"Sphere_10D":   true,
	"Rastrigin_2D": true,
	"Ackley":       true,
}

func TestOptimaConsistent(t *testing.T) {
	for _, fn := range bench.AllFuncs {
		opt := fn.Optima()[0]
		got := fn.At(opt.Pos())
		if math.Abs(got-opt.Val) > 1e-2 {
			t.Errorf("%v: At(optimum) = %v, want %v", fn.Name(), got, opt.Val)
		}
		if !bench.InsideBounds(opt.Pos(), fn) {
			t.Errorf("%v: published optimum %v lies outside bounds", fn.Name(), opt.Pos())
		}
	}
}

// Analytic derivatives must agree with central differences of At.
func TestGradsConsistent(t *testing.T) {
	pos := []float64{0.9, -1.7}
	h := 1e-6

	for _, fn := range bench.AllFuncs {
		g, ok := fn.(bench.Gradder)
		if !ok {
			continue
		}
		low, _ := fn.Bounds()
		if len(low) != len(pos) {
			continue
		}

		analytic := g.Grad(pos)
		for i := range pos {
			plus := append([]float64{}, pos...)
			minus := append([]float64{}, pos...)
			plus[i] += h
			minus[i] -= h
			numeric := (fn.At(plus) - fn.At(minus)) / (2 * h)
			if math.Abs(analytic[i]-numeric) > 1e-4 {
				t.Errorf("%v: grad[%v] = %v, finite difference gives %v", fn.Name(), i, analytic[i], numeric)
			}
		}
	}
}

func TestBenchAll(t *testing.T) {
	if testing.Short() {
		t.Skip("benchmark sweep skipped in short mode")
	}

	for _, fn := range bench.AllFuncs {
		_, ok := bench.Benchmark(t, fn, 0.01,
			cpso.Seed(seed),
			cpso.MaxForwardIter(600),
			cpso.MaxReverseIter(100),
			cpso.Patience(60),
			cpso.MaxRuns(4),
		)
		if !ok && required[fn.Name()] {
			t.Errorf("%v: optimum not reached", fn.Name())
		}
	}
}

// The swarm accepts any Float64 source, including the Mersenne twister.
func TestMersenneTwisterSwarm(t *testing.T) {
	rng := rand2.New(rand2.NewMersenneTwister(seed))
	fn := bench.Sphere{NDim: 4}
	low, up := fn.Bounds()
	b, err := cpso.NewBounds(low, up)
	if err != nil {
		t.Fatal(err)
	}

	pop := cpso.NewPopulationRand(30, b, rng)
	it, err := cpso.NewIterator(nil, pop, b, rng, cpso.Vmax(cpso.VmaxFromBounds(b)))
	if err != nil {
		t.Fatal(err)
	}

	obj := bench.Objective(fn)
	for i := 0; i < 200; i++ {
		if _, _, err := it.Iterate(obj); err != nil {
			t.Fatal(err)
		}
	}

	if it.Best().Val > 1e-2 {
		t.Errorf("swarm best after 200 iterations is %v, want < 1e-2", it.Best().Val)
	}
}
