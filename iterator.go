package cpso

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/google/uuid"
)

const (
	// TblParticles is the name of the sql database table that contains
	// positions and values for particles at each iteration.
	TblParticles = "swarmparticles"
	// TblParticlesBest is the name of the sql database table that contains
	// each particle's personal best position at each iteration.
	TblParticlesBest = "swarmparticlesbest"
	// TblBest is the name of the sql database table that contains the best
	// position for the entire swarm at each iteration.
	TblBest = "swarmbest"
)

type Option func(*Iterator)

func Vmax(vmaxes []float64) Option {
	return func(it *Iterator) {
		it.Vmax = vmaxes
	}
}

func VmaxAll(vmax float64) Option {
	return func(it *Iterator) {
		for i := range it.Vmax {
			it.Vmax[i] = vmax
		}
	}
}

func DB(db *sql.DB) Option {
	return func(it *Iterator) {
		it.Db = db
	}
}

func LearnFactors(cognition, social float64) Option {
	return func(it *Iterator) {
		it.Cognition = cognition
		it.Social = social
	}
}

// Coeffs replaces the uniform velocity-coefficient draws, e.g. with a
// chaotic map source.
func Coeffs(cs CoeffSource) Option {
	return func(it *Iterator) {
		it.Coeffs = cs
	}
}

// LinInertia sets particle inertia for velocity updates to vary linearly
// from the start (high) to end (low) values from 0 to maxiter.  Common
// values are start = 0.9 and end = 0.4 - for details see:
//
//     Eberhart, R.C.; Yuhui Shi, "Particle swarm optimization: developments,
//     applications and resources," Evolutionary Computation, 2001. Proceedings of
//     the 2001 Congress on , vol.1, no., pp.81,86 vol. 1, 2001 doi:
//     10.1109/CEC.2001.934374
func LinInertia(start, end float64, maxiter int) Option {
	return func(it *Iterator) {
		it.InertiaFn = func(iter int) float64 {
			return start - (start-end)*float64(iter)/float64(maxiter)
		}
	}
}

func FixedInertia(v float64) Option {
	return func(it *Iterator) {
		it.InertiaFn = func(iter int) float64 { return v }
	}
}

// Iterator advances a swarm one batch evaluation + move per call.  It owns
// every particle it iterates and tracks the swarm-best point, which is
// monotonically non-increasing in value across calls.
type Iterator struct {
	Pop Population
	Evaler
	Cognition float64
	Social    float64
	InertiaFn func(iter int) float64
	// Vmax is the speed limit per dimension for particles.  If nil,
	// infinity is used.
	Vmax   []float64
	Coeffs CoeffSource
	// Db, when set, receives a per-iteration trace of every particle and
	// the swarm best.
	Db     *sql.DB
	bounds *Bounds
	runid  string
	count  int
	best   Point
}

// NewIterator assembles an iterator over pop confined to b.  A nil evaler
// defaults to batch evaluation; a nil rng defaults the coefficient source
// to the package-level Rand.
func NewIterator(e Evaler, pop Population, b *Bounds, rng Rng, opts ...Option) (*Iterator, error) {
	if e == nil {
		e = BatchEvaler{}
	}
	if rng == nil {
		rng = Rand
	}
	if len(pop) == 0 {
		return nil, fmt.Errorf("cpso: cannot iterate an empty population")
	}

	vmax := make([]float64, b.Len())
	for i := range vmax {
		vmax[i] = math.Inf(1)
	}

	it := &Iterator{
		Pop:       pop,
		Evaler:    e,
		Cognition: DefaultCognition,
		Social:    DefaultSocial,
		InertiaFn: func(iter int) float64 { return DefaultInertia },
		Vmax:      vmax,
		Coeffs:    UniformCoeffs{Rng: rng},
		bounds:    b,
		runid:     uuid.NewString(),
		best:      pop.Best().Best,
	}

	for _, opt := range opts {
		opt(it)
	}

	if err := it.initdb(); err != nil {
		return nil, err
	}
	return it, nil
}

// Best returns the best point seen by any particle so far.
func (it *Iterator) Best() Point { return it.best }

// Niter returns the number of completed iterations.
func (it *Iterator) Niter() int { return it.count }

// RunID identifies this iterator's rows in the trace tables.
func (it *Iterator) RunID() string { return it.runid }

// Scatter kicks the swarm away from the current best for a reverse
// (verification) pass.  The iterator's own best is deliberately retained.
func (it *Iterator) Scatter(rng Rng) {
	it.Pop.Scatter(it.best, it.bounds, rng)
}

// Iterate evaluates the swarm's current positions in one batch, updates
// personal and swarm bests, records the trace, and moves every particle.
func (it *Iterator) Iterate(obj Objectiver) (best Point, neval int, err error) {
	it.count++

	results, n, err := it.Evaler.Eval(obj, it.Pop.Points()...)
	if err != nil {
		return Point{Val: math.Inf(1)}, n, err
	}
	for i := range results {
		it.Pop[i].Update(results[i])
	}

	pbest := it.Pop.Best()
	if pbest != nil && pbest.Best.Val < it.best.Val {
		it.best = pbest.Best
	}

	if err := it.updateDb(); err != nil {
		return it.best, n, err
	}

	for _, p := range it.Pop {
		p.Move(it.best, it.bounds, it.Vmax, it.InertiaFn(it.count), it.Cognition, it.Social, it.Coeffs)
	}

	return it.best, n, nil
}

func (it *Iterator) initdb() error {
	if it.Db == nil {
		return nil
	}

	for _, s := range []string{
		"CREATE TABLE IF NOT EXISTS " + TblParticles + " (run TEXT, particle INTEGER, iter INTEGER, val REAL" + it.xdbsql("define") + ");",
		"CREATE TABLE IF NOT EXISTS " + TblParticlesBest + " (run TEXT, particle INTEGER, iter INTEGER, best REAL" + it.xdbsql("define") + ");",
		"CREATE TABLE IF NOT EXISTS " + TblBest + " (run TEXT, iter INTEGER, val REAL" + it.xdbsql("define") + ");",
	} {
		if _, err := it.Db.Exec(s); err != nil {
			return fmt.Errorf("cpso: trace table creation failed: %w", err)
		}
	}
	return nil
}

func (it *Iterator) xdbsql(op string) string {
	s := ""
	for i := 0; i < it.bounds.Len(); i++ {
		switch op {
		case "?":
			s += ",?"
		case "define":
			s += fmt.Sprintf(",x%v REAL", i)
		case "x":
			s += fmt.Sprintf(",x%v", i)
		default:
			panic("invalid db op " + op)
		}
	}
	return s
}

func pos2iface(pos []float64) []interface{} {
	iface := []interface{}{}
	for _, v := range pos {
		iface = append(iface, v)
	}
	return iface
}

func (it *Iterator) updateDb() error {
	if it.Db == nil {
		return nil
	}

	tx, err := it.Db.Begin()
	if err != nil {
		return fmt.Errorf("cpso: trace transaction failed: %w", err)
	}
	defer tx.Commit()

	s0 := "INSERT INTO " + TblParticles + " (run,particle,iter,val" + it.xdbsql("x") + ") VALUES (?,?,?,?" + it.xdbsql("?") + ");"
	s1 := "INSERT INTO " + TblParticlesBest + " (run,particle,iter,best" + it.xdbsql("x") + ") VALUES (?,?,?,?" + it.xdbsql("?") + ");"
	for _, p := range it.Pop {
		args := []interface{}{it.runid, p.Id, it.count, p.Val}
		args = append(args, pos2iface(p.Pos())...)
		if _, err := tx.Exec(s0, args...); err != nil {
			return fmt.Errorf("cpso: trace insert failed: %w", err)
		}

		args = []interface{}{it.runid, p.Id, it.count, p.Best.Val}
		args = append(args, pos2iface(p.Best.Pos())...)
		if _, err := tx.Exec(s1, args...); err != nil {
			return fmt.Errorf("cpso: trace insert failed: %w", err)
		}
	}

	s2 := "INSERT INTO " + TblBest + " (run,iter,val" + it.xdbsql("x") + ") VALUES (?,?,?" + it.xdbsql("?") + ");"
	args := []interface{}{it.runid, it.count, it.best.Val}
	args = append(args, pos2iface(it.best.Pos())...)
	if _, err := tx.Exec(s2, args...); err != nil {
		return fmt.Errorf("cpso: trace insert failed: %w", err)
	}
	return nil
}
