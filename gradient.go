package cpso

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultGradEps is the default central-difference step expressed as a
// fraction of each dimension's bounded span.
const DefaultGradEps = 1e-6

// GradFn estimates the objective's gradient at an arbitrary point in the
// domain.  It holds no mutable state: querying the same point twice yields
// identical results.
type GradFn func(pos []float64) []float64

// GradApprox builds a reusable central-difference gradient estimator bound
// to obj.  For each dimension the point is perturbed by +-eps*span and the
// difference quotient taken; all 2*D probe points are submitted to ev in a
// single call so batch-capable objectives pay one evaluation per query.
// Probes that would leave the box are clamped to the boundary and the
// quotient divided by the actual probe separation.
func GradApprox(ev Evaler, obj Objectiver, b *Bounds, eps float64) GradFn {
	if ev == nil {
		ev = BatchEvaler{}
	}
	if eps <= 0 {
		eps = DefaultGradEps
	}

	steps := make([]float64, b.Len())
	for i := range steps {
		steps[i] = eps * b.Span(i)
	}

	return func(pos []float64) []float64 {
		ndim := len(pos)
		probes := make([]Point, 0, 2*ndim)
		for i := 0; i < ndim; i++ {
			plus := append([]float64{}, pos...)
			minus := append([]float64{}, pos...)
			plus[i] = math.Min(pos[i]+steps[i], b.Up(i))
			minus[i] = math.Max(pos[i]-steps[i], b.Low(i))
			probes = append(probes, NewPoint(plus, math.Inf(1)), NewPoint(minus, math.Inf(1)))
		}

		results, _, err := ev.Eval(obj, probes...)
		grad := make([]float64, ndim)
		if err != nil || len(results) < 2*ndim {
			for i := range grad {
				grad[i] = math.Inf(1)
			}
			return grad
		}
		for i := 0; i < ndim; i++ {
			h := results[2*i].At(i) - results[2*i+1].At(i)
			grad[i] = (results[2*i].Val - results[2*i+1].Val) / h
		}
		return grad
	}
}

// GradNorm returns the Euclidean norm of a gradient vector.
func GradNorm(grad []float64) float64 { return floats.Norm(grad, 2) }
