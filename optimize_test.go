package cpso_test

import (
	"bytes"
	"math"
	"math/rand"
	"strings"
	"testing"

	cpso "github.com/anwesh0304/Chaotic-PSO"
	"github.com/anwesh0304/Chaotic-PSO/bench"
)

func TestOptimizeRejectsBadConfig(t *testing.T) {
	obj := bench.Objective(bench.Sphere{NDim: 2})

	if _, err := cpso.Optimize(obj, []float64{1, -1}, []float64{-1, 1}, 10); err == nil {
		t.Error("inverted bounds accepted")
	}
	if _, err := cpso.Optimize(obj, []float64{-1, -1}, []float64{1, 1}, 0); err == nil {
		t.Error("zero particle count accepted")
	}
	if _, err := cpso.Optimize(obj, []float64{-1, -1}, []float64{1, 1}, 10, cpso.GradTol(0)); err == nil {
		t.Error("zero gradient tolerance accepted")
	}
}

// Scenario: a 2-dimensional multimodal function with known global minimum
// zero at the origin must be located to high precision with 25 particles.
func TestOptimizeRastrigin2D(t *testing.T) {
	fn := bench.Rastrigin{NDim: 2}
	low, up := fn.Bounds()

	out, err := cpso.Optimize(bench.Objective(fn), low, up, 25,
		cpso.Seed(7),
		cpso.MaxForwardIter(2000),
		cpso.MaxReverseIter(300),
		cpso.Patience(100),
		cpso.GradTol(5e-4),
	)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < out.Best.Len(); i++ {
		if math.Abs(out.Best.At(i)) > 1e-4 {
			t.Errorf("coordinate %v is %v, want magnitude < 1e-4", i, out.Best.At(i))
		}
	}
	if out.Best.Val > 1e-6 {
		t.Errorf("best value is %v, want < 1e-6", out.Best.Val)
	}
	if len(out.Runs) == 0 {
		t.Error("no run results reported")
	}
	t.Logf("accepted %v after %v runs (gradient tolerance met: %v)", out.Best, len(out.Runs), out.GradMet)
}

// Scenario: an impossibly small gradient tolerance must exhaust the run
// budget and still return the best candidate instead of looping or failing.
func TestOptimizeExhaustsRuns(t *testing.T) {
	fn := bench.Rastrigin{NDim: 2}
	low, up := fn.Bounds()

	out, err := cpso.Optimize(bench.Objective(fn), low, up, 10,
		cpso.Seed(3),
		cpso.MaxForwardIter(150),
		cpso.MaxReverseIter(30),
		cpso.Patience(20),
		cpso.GradTol(1e-30),
		cpso.MaxRuns(3),
	)
	if err != nil {
		t.Fatal(err)
	}

	if out.GradMet {
		t.Error("gradient criterion reported met despite impossible tolerance")
	}
	if len(out.Runs) != 3 {
		t.Errorf("got %v runs, want the full budget of 3", len(out.Runs))
	}
	if math.IsInf(out.Best.Val, 1) {
		t.Error("no candidate value recorded")
	}
	for _, r := range out.Runs {
		if r.Accepted {
			t.Errorf("run %v reported accepted", r.Run)
		}
	}
}

// Scenario: a unimodal convex function must be accepted on the first run's
// forward phase without ever entering reverse.
func TestOptimizeConvexFirstRun(t *testing.T) {
	fn := bench.Sphere{NDim: 2}
	low, up := fn.Bounds()

	out, err := cpso.Optimize(bench.Objective(fn), low, up, 20, cpso.Seed(5))
	if err != nil {
		t.Fatal(err)
	}

	if !out.GradMet {
		t.Error("gradient criterion not met on a convex function")
	}
	if len(out.Runs) != 1 {
		t.Fatalf("took %v runs, want 1", len(out.Runs))
	}
	r := out.Runs[0]
	if !r.Accepted {
		t.Error("first run not accepted")
	}
	if r.Reverse != 0 {
		t.Errorf("reverse phase ran %v iterations, want 0", r.Reverse)
	}
	if r.Forward == 0 {
		t.Error("forward phase reported zero iterations")
	}
}

func TestOptimizeDeterministic(t *testing.T) {
	fn := bench.Sphere{NDim: 3}
	low, up := fn.Bounds()
	obj := bench.Objective(fn)

	first, err := cpso.Optimize(obj, low, up, 15, cpso.Seed(11))
	if err != nil {
		t.Fatal(err)
	}
	second, err := cpso.Optimize(obj, low, up, 15, cpso.Seed(11))
	if err != nil {
		t.Fatal(err)
	}

	if first.Best.Val != second.Best.Val {
		t.Errorf("values differ across identical seeds: %v vs %v", first.Best.Val, second.Best.Val)
	}
	for i := 0; i < first.Best.Len(); i++ {
		if first.Best.At(i) != second.Best.At(i) {
			t.Errorf("positions differ in dimension %v: %v vs %v", i, first.Best.At(i), second.Best.At(i))
		}
	}
}

func TestOptimizeParallelRuns(t *testing.T) {
	fn := bench.Sphere{NDim: 2}
	low, up := fn.Bounds()

	out, err := cpso.Optimize(bench.Objective(fn), low, up, 15,
		cpso.Seed(2),
		cpso.MaxRuns(4),
		cpso.ParallelRuns(4),
	)
	if err != nil {
		t.Fatal(err)
	}

	if !out.GradMet {
		t.Error("gradient criterion not met")
	}
	if math.Abs(out.Best.Val) > 1e-4 {
		t.Errorf("best value is %v, want ~0", out.Best.Val)
	}
	for i := 1; i < len(out.Runs); i++ {
		if out.Runs[i].Run <= out.Runs[i-1].Run {
			t.Error("run results not sorted by run index")
		}
	}
}

func TestOptimizeReportsIterCounts(t *testing.T) {
	fn := bench.Sphere{NDim: 2}
	low, up := fn.Bounds()

	var buf bytes.Buffer
	if _, err := cpso.Optimize(bench.Objective(fn), low, up, 15,
		cpso.Seed(4), cpso.ReportIters(&buf)); err != nil {
		t.Fatal(err)
	}

	report := buf.String()
	if !strings.Contains(report, "Forward = ") {
		t.Errorf("report missing forward count:\n%v", report)
	}
	if !strings.Contains(report, "Reverse = ") {
		t.Errorf("report missing reverse count:\n%v", report)
	}
}

// The gradient estimator handed back in the outcome should agree with the
// analytic derivative the benchmark library publishes.
func TestOutcomeGradientMatchesAnalytic(t *testing.T) {
	fn := bench.Rastrigin{NDim: 2}
	low, up := fn.Bounds()

	out, err := cpso.Optimize(bench.Objective(fn), low, up, 10,
		cpso.Seed(1), cpso.MaxRuns(1), cpso.MaxForwardIter(50), cpso.Patience(10))
	if err != nil {
		t.Fatal(err)
	}

	pos := []float64{0.7, -1.3}
	got := out.Grad(pos)
	want := fn.Grad(pos)
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-3 {
			t.Errorf("grad[%v] = %v, want %v (within 1e-3)", i, got[i], want[i])
		}
	}
}

func TestSwarmBestMonotonic(t *testing.T) {
	fn := bench.Rastrigin{NDim: 2}
	low, up := fn.Bounds()
	b, err := cpso.NewBounds(low, up)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(13))
	pop := cpso.NewPopulationRand(20, b, rng)
	it, err := cpso.NewIterator(nil, pop, b, rng, cpso.Vmax(cpso.VmaxFromBounds(b)))
	if err != nil {
		t.Fatal(err)
	}

	obj := bench.Objective(fn)
	prev := math.Inf(1)
	for i := 0; i < 100; i++ {
		best, _, err := it.Iterate(obj)
		if err != nil {
			t.Fatal(err)
		}
		if best.Val > prev {
			t.Fatalf("iter %v: swarm best worsened from %v to %v", i, prev, best.Val)
		}
		prev = best.Val

		for _, p := range it.Pop {
			if !b.Contains(p.Pos()) {
				t.Fatalf("iter %v: particle %v outside bounds: %v", i, p.Id, p.Pos())
			}
		}
	}
	if math.IsInf(prev, 1) {
		t.Error("swarm never evaluated a point")
	}
}
