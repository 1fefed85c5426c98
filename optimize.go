package cpso

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"

	"github.com/petar/GoLLRB/llrb"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxForward = 1000
	DefaultMaxReverse = 200
	DefaultPatience   = 50
	DefaultGradTol    = 1e-2
	DefaultMaxRuns    = 10
	DefaultAbsTol     = 1e-12
	DefaultRelTol     = 1e-9
)

// Outcome is the final product of an Optimize call, owned by the caller.
type Outcome struct {
	// Best is the accepted position and value.
	Best Point
	// Grad is the gradient estimator bound to the objective, usable at any
	// point in the domain after the optimization finishes.
	Grad GradFn
	// Runs records every run in order for diagnostics.
	Runs []RunResult
	// GradMet reports whether Best actually satisfied the gradient
	// tolerance.  False means the run budget was exhausted and Best is
	// simply the best candidate seen.
	GradMet bool
}

type config struct {
	maxForward int
	maxReverse int
	patience   int
	maxRuns    int
	gradTol    float64
	gradEps    float64
	absTol     float64
	relTol     float64
	seed       int64
	parallel   int
	evaler     Evaler
	db         *sql.DB
	log        logrus.FieldLogger
	coeffs     func(run int, rng Rng) CoeffSource
	report     io.Writer
	iterOpts   []Option
}

// Opt configures an Optimize call.
type Opt func(*config)

// MaxForwardIter caps the cumulative forward-phase iterations per run.
func MaxForwardIter(n int) Opt { return func(c *config) { c.maxForward = n } }

// MaxReverseIter caps the cumulative reverse-phase iterations per run.
func MaxReverseIter(n int) Opt { return func(c *config) { c.maxReverse = n } }

// Patience sets how many consecutive non-improving forward iterations are
// tolerated before the run's candidate is gradient-checked.
func Patience(n int) Opt { return func(c *config) { c.patience = n } }

// GradTol sets the gradient-norm threshold under which a run is accepted.
func GradTol(tol float64) Opt { return func(c *config) { c.gradTol = tol } }

// GradEps sets the central-difference step as a fraction of each
// dimension's span.
func GradEps(eps float64) Opt { return func(c *config) { c.gradEps = eps } }

// MaxRuns caps the number of independent restarts.
func MaxRuns(n int) Opt { return func(c *config) { c.maxRuns = n } }

// Seed fixes the base random seed; run r uses seed+r so runs remain
// independently reproducible.
func Seed(seed int64) Opt { return func(c *config) { c.seed = seed } }

// ImproveTol overrides the absolute and relative improvement tolerances
// used for stagnation tracking.
func ImproveTol(abs, rel float64) Opt {
	return func(c *config) {
		c.absTol = abs
		c.relTol = rel
	}
}

// WithEvaler substitutes the evaluation strategy (serial, caching,
// parallel).  The default evaluates the whole swarm in one batch call.
func WithEvaler(ev Evaler) Opt { return func(c *config) { c.evaler = ev } }

// WithDB records a per-iteration trace of every run's swarm into db.
func WithDB(db *sql.DB) Opt { return func(c *config) { c.db = db } }

// WithLogger installs the diagnostic channel.
func WithLogger(log logrus.FieldLogger) Opt { return func(c *config) { c.log = log } }

// WithCoeffs installs a per-run factory for the velocity-coefficient
// source, e.g. chaotic map generators.
func WithCoeffs(f func(run int, rng Rng) CoeffSource) Opt {
	return func(c *config) { c.coeffs = f }
}

// ParallelRuns executes up to k runs concurrently.  Runs own no shared
// mutable state; the first accepted candidate cancels the rest.
func ParallelRuns(k int) Opt { return func(c *config) { c.parallel = k } }

// ReportIters emits "Forward = N" / "Reverse = N" lines per run to w
// (os.Stdout if w is nil).  Both counts are always reported; zero means
// the phase never ran.
func ReportIters(w io.Writer) Opt {
	return func(c *config) {
		if w == nil {
			w = os.Stdout
		}
		c.report = w
	}
}

// IterOptions forwards extra options to each run's swarm iterator.
func IterOptions(opts ...Option) Opt {
	return func(c *config) { c.iterOpts = append(c.iterOpts, opts...) }
}

func defaultConfig() *config {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	return &config{
		maxForward: DefaultMaxForward,
		maxReverse: DefaultMaxReverse,
		patience:   DefaultPatience,
		maxRuns:    DefaultMaxRuns,
		gradTol:    DefaultGradTol,
		gradEps:    DefaultGradEps,
		absTol:     DefaultAbsTol,
		relTol:     DefaultRelTol,
		seed:       1,
		evaler:     BatchEvaler{},
		log:        quiet,
	}
}

func (c *config) validate() error {
	switch {
	case c.maxForward < 1:
		return fmt.Errorf("cpso: max forward iterations must be at least 1, got %v", c.maxForward)
	case c.maxReverse < 0:
		return fmt.Errorf("cpso: max reverse iterations cannot be negative, got %v", c.maxReverse)
	case c.patience < 1:
		return fmt.Errorf("cpso: stagnation patience must be at least 1, got %v", c.patience)
	case c.maxRuns < 1:
		return fmt.Errorf("cpso: max runs must be at least 1, got %v", c.maxRuns)
	case c.gradTol <= 0:
		return fmt.Errorf("cpso: gradient tolerance must be positive, got %v", c.gradTol)
	}
	return nil
}

// runItem orders run candidates by objective value in the archive, with
// the run index breaking ties deterministically.
type runItem struct {
	RunResult
}

func (r runItem) Less(than llrb.Item) bool {
	o := than.(runItem)
	if r.Best.Val != o.Best.Val {
		return r.Best.Val < o.Best.Val
	}
	return r.Run < o.Run
}

// Optimize minimizes obj inside the box [low, up] using n particles.  It
// repeats independently seeded runs of the forward/reverse swarm loop and
// accepts the first candidate whose approximate gradient norm falls under
// the tolerance.  If no run satisfies the tolerance within the run budget,
// the best candidate found is still returned with Outcome.GradMet == false.
func Optimize(obj Objectiver, low, up []float64, n int, opts ...Opt) (*Outcome, error) {
	b, err := NewBounds(low, up)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("cpso: particle count must be at least 1, got %v", n)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	grad := GradApprox(cfg.evaler, obj, b, cfg.gradEps)
	if cfg.parallel > 1 {
		return cfg.optimizeParallel(obj, b, n, grad)
	}

	outcome := &Outcome{Grad: grad}
	archive := llrb.New()
	for run := 1; run <= cfg.maxRuns; run++ {
		res, err := cfg.oneRun(context.Background(), obj, b, n, grad, run)
		if err != nil {
			return nil, err
		}
		outcome.Runs = append(outcome.Runs, res)
		archive.InsertNoReplace(runItem{res})
		cfg.emit(res)

		if res.Accepted {
			outcome.Best = res.Best
			outcome.GradMet = true
			return outcome, nil
		}
		cfg.log.WithFields(logrus.Fields{"run": run, "gradnorm": res.GradNorm, "val": res.Best.Val}).
			Info("run rejected by gradient check")
	}

	// soft degradation: the gradient criterion was never met
	best := archive.Min().(runItem).RunResult
	outcome.Best = best.Best
	cfg.log.WithFields(logrus.Fields{"runs": cfg.maxRuns, "val": best.Best.Val}).
		Warn("run budget exhausted without satisfying gradient tolerance")
	return outcome, nil
}

func (c *config) oneRun(ctx context.Context, obj Objectiver, b *Bounds, n int, grad GradFn, run int) (RunResult, error) {
	// every run owns its generator so runs are independently reproducible
	rng := rand.New(rand.NewSource(c.seed + int64(run)))
	pop := NewPopulationRand(n, b, rng)

	iterOpts := append([]Option{Vmax(VmaxFromBounds(b))}, c.iterOpts...)
	if c.db != nil {
		iterOpts = append(iterOpts, DB(c.db))
	}
	if c.coeffs != nil {
		iterOpts = append(iterOpts, Coeffs(c.coeffs(run, rng)))
	}

	it, err := NewIterator(c.evaler, pop, b, rng, iterOpts...)
	if err != nil {
		return RunResult{}, err
	}

	s := &Solver{
		It:         it,
		Obj:        obj,
		Grad:       grad,
		GradTol:    c.gradTol,
		MaxForward: c.maxForward,
		MaxReverse: c.maxReverse,
		Patience:   c.patience,
		AbsTol:     c.absTol,
		RelTol:     c.relTol,
		Rng:        rng,
		Log:        c.log,
	}
	return s.Run(ctx, run)
}

func (c *config) emit(res RunResult) {
	if c.report == nil {
		return
	}
	fmt.Fprintf(c.report, "Forward = %v\n", res.Forward)
	fmt.Fprintf(c.report, "Reverse = %v\n", res.Reverse)
}

func (c *config) optimizeParallel(obj Objectiver, b *Bounds, n int, grad GradFn) (*Outcome, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var results []RunResult

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallel)
	for run := 1; run <= c.maxRuns; run++ {
		run := run
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res, err := c.oneRun(ctx, obj, b, n, grad, run)
			if errors.Is(err, context.Canceled) {
				// an accepted sibling cancelled this run mid-flight; its
				// partial candidate is discarded
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			if res.Accepted {
				cancel()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Run < results[j].Run })

	outcome := &Outcome{Grad: grad, Runs: results}
	archive := llrb.New()
	for _, res := range results {
		archive.InsertNoReplace(runItem{res})
		c.emit(res)
		if res.Accepted && !outcome.GradMet {
			outcome.Best = res.Best
			outcome.GradMet = true
		}
	}
	if !outcome.GradMet {
		if archive.Len() == 0 {
			return nil, fmt.Errorf("cpso: no run produced a candidate")
		}
		outcome.Best = archive.Min().(runItem).Best
		c.log.WithField("runs", c.maxRuns).
			Warn("run budget exhausted without satisfying gradient tolerance")
	}
	return outcome, nil
}
