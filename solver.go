package cpso

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"
)

// Phase identifies the stage a run is in.
type Phase int

const (
	PhaseForward Phase = iota
	PhaseReverse
	PhaseGradCheck
	PhaseAccepted
	PhaseRejected
)

func (p Phase) String() string {
	switch p {
	case PhaseForward:
		return "forward"
	case PhaseReverse:
		return "reverse"
	case PhaseGradCheck:
		return "gradcheck"
	case PhaseAccepted:
		return "accepted"
	case PhaseRejected:
		return "rejected"
	}
	return "unknown"
}

// RunResult is the immutable record of one completed run.
type RunResult struct {
	Run int
	// Best is the run's candidate optimum.
	Best Point
	// Forward and Reverse count the iterations each phase consumed.  Both
	// are always populated; zero means the phase never ran.
	Forward int
	Reverse int
	// Neval is the total number of objective evaluations.
	Neval int
	// GradNorm is the Euclidean norm of the approximate gradient at Best
	// from the final acceptance test.
	GradNorm float64
	// Accepted reports whether GradNorm fell under the tolerance.
	Accepted bool
}

// Solver drives a single run of the two-phase swarm loop.  The forward
// phase converges the swarm until its best value stagnates; the gradient
// of the candidate is then checked and, when it fails, the reverse phase
// scatters the swarm away from the candidate to probe for escape from a
// local minimum.  Any tolerated improvement during reverse hands control
// back to forward.  The alternation is an explicit state loop (not
// recursion) so arbitrarily many phase switches use constant stack.
type Solver struct {
	It  *Iterator
	Obj Objectiver
	// Grad is the acceptance test: a run is accepted once the Euclidean
	// norm of Grad at the swarm best falls under GradTol.
	Grad    GradFn
	GradTol float64
	// MaxForward and MaxReverse cap the cumulative iterations each phase
	// may consume across all alternations within the run.
	MaxForward int
	MaxReverse int
	// Patience is the number of consecutive non-improving forward
	// iterations tolerated before the candidate is checked.
	Patience int
	// AbsTol and RelTol define a meaningful improvement: a new best must
	// undercut the old by more than AbsTol + RelTol*|old| to reset the
	// stagnation counter.  Exact-equality comparisons would stagnate
	// forever on floating-point jitter.
	AbsTol float64
	RelTol float64
	Rng    Rng
	Log    logrus.FieldLogger

	phase    Phase
	best     Point
	forward  int
	reverse  int
	neval    int
	stagnant int
	gradnorm float64
	// stagnated distinguishes a gradient check triggered by stagnation
	// (reverse may follow) from one triggered by an iteration cap.
	stagnated bool
}

// Best returns the best point found so far in this run.
func (s *Solver) Best() Point { return s.best }

// Phase returns the solver's current state.
func (s *Solver) Phase() Phase { return s.phase }

// improved reports whether val meaningfully undercuts the current best.
func (s *Solver) improved(val float64) bool {
	if math.IsInf(s.best.Val, 1) {
		return !math.IsInf(val, 1)
	}
	return val < s.best.Val-(s.AbsTol+s.RelTol*math.Abs(s.best.Val))
}

// Run executes the state machine to completion and reports the run's
// candidate.  ctx aborts between iterations, which is safe because no
// state is shared across runs.
func (s *Solver) Run(ctx context.Context, run int) (RunResult, error) {
	s.phase = PhaseForward
	s.best = s.It.Best()

	for {
		if err := ctx.Err(); err != nil {
			return s.result(run), err
		}

		var err error
		switch s.phase {
		case PhaseForward:
			err = s.stepForward()
		case PhaseReverse:
			err = s.stepReverse()
		case PhaseGradCheck:
			s.checkGradient()
		case PhaseAccepted, PhaseRejected:
			return s.result(run), nil
		}
		if err != nil {
			return s.result(run), err
		}
	}
}

func (s *Solver) result(run int) RunResult {
	return RunResult{
		Run:      run,
		Best:     s.best,
		Forward:  s.forward,
		Reverse:  s.reverse,
		Neval:    s.neval,
		GradNorm: s.gradnorm,
		Accepted: s.phase == PhaseAccepted,
	}
}

func (s *Solver) stepForward() error {
	if s.forward >= s.MaxForward {
		s.stagnated = false
		s.phase = PhaseGradCheck
		return nil
	}

	best, n, err := s.It.Iterate(s.Obj)
	if err != nil {
		return err
	}
	s.forward++
	s.neval += n

	if s.improved(best.Val) {
		s.stagnant = 0
	} else {
		s.stagnant++
	}
	if best.Val < s.best.Val {
		s.best = best
	}

	if s.stagnant >= s.Patience {
		s.stagnated = true
		s.phase = PhaseGradCheck
	}
	return nil
}

func (s *Solver) stepReverse() error {
	if s.reverse >= s.MaxReverse {
		s.stagnated = false
		s.phase = PhaseGradCheck
		return nil
	}

	best, n, err := s.It.Iterate(s.Obj)
	if err != nil {
		return err
	}
	s.reverse++
	s.neval += n

	if s.improved(best.Val) {
		// escaped the candidate's basin: refine from the improved state
		s.best = best
		s.stagnant = 0
		s.phase = PhaseForward
		if s.Log != nil {
			s.Log.WithFields(logrus.Fields{"reverse": s.reverse, "val": best.Val}).
				Debug("reverse phase escaped local minimum")
		}
		return nil
	}
	if best.Val < s.best.Val {
		s.best = best
	}
	return nil
}

func (s *Solver) checkGradient() {
	grad := s.Grad(s.best.Pos())
	s.gradnorm = GradNorm(grad)
	// 2 evaluations per dimension for the central difference
	s.neval += 2 * len(grad)

	if s.gradnorm < s.GradTol {
		s.phase = PhaseAccepted
		return
	}

	if s.stagnated && s.reverse < s.MaxReverse {
		// the candidate is not certified stationary: scatter the swarm away
		// from it and probe for a deeper basin
		s.It.Scatter(s.Rng)
		s.stagnant = 0
		s.stagnated = false
		s.phase = PhaseReverse
		return
	}
	s.phase = PhaseRejected
}
