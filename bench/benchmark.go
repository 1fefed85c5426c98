package bench

import (
	"math"
	"testing"

	cpso "github.com/anwesh0304/Chaotic-PSO"
)

// Benchmark runs the optimizer against fn and logs a pass/fail summary in
// the form the solver tests share.  A run counts as successful when the
// best value lands within tol*|optimum| (floored at 0.01) of the known
// optimum.  The outcome is returned for further assertions.
func Benchmark(t *testing.T, fn Func, tol float64, opts ...cpso.Opt) (*cpso.Outcome, bool) {
	t.Helper()

	optimum := fn.Optima()[0].Val
	thresh := tol * abs(optimum)
	if thresh < 0.01 {
		thresh = 0.01
	}

	low, up := fn.Bounds()
	out, err := cpso.Optimize(Objective(fn), low, up, 30, opts...)
	if err != nil {
		t.Errorf("[ERROR:%v] %v", fn.Name(), err)
		return nil, false
	}

	neval := 0
	for _, r := range out.Runs {
		neval += r.Neval
	}

	ok := math.Abs(out.Best.Val-optimum) < thresh
	if ok {
		t.Logf("[pass:%v] %v evals (%v runs): optimum is %v, got %v", fn.Name(), neval, len(out.Runs), optimum, out.Best.Val)
	} else {
		t.Logf("[MISS:%v] %v evals (%v runs): optimum is %v, got %v", fn.Name(), neval, len(out.Runs), optimum, out.Best.Val)
	}
	return out, ok
}
