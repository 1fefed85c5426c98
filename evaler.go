package cpso

import (
	"crypto/sha1"
	"math"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Evaler computes objective values for a set of points.  Implementations
// must preserve order: result i corresponds to points[i].  n reports the
// number of actual objective evaluations performed (cache hits excluded).
type Evaler interface {
	Eval(obj Objectiver, points ...Point) (results []Point, n int, err error)
}

// sanitize coerces invalid fitness values to positive infinity so a single
// bad evaluation can never be preferred by a comparison.  +Inf itself is
// passed through silently since objectives conventionally return it for
// out-of-bounds points.
func sanitize(v float64, log logrus.FieldLogger) float64 {
	if math.IsNaN(v) || math.IsInf(v, -1) {
		if log != nil {
			log.WithField("value", v).Warn("non-finite objective value treated as worst fitness")
		}
		return math.Inf(1)
	}
	return v
}

// SerialEvaler evaluates points one at a time in order.
type SerialEvaler struct {
	ContinueOnErr bool
	Log           logrus.FieldLogger
}

func (ev SerialEvaler) Eval(obj Objectiver, points ...Point) (results []Point, n int, err error) {
	results = make([]Point, 0, len(points))
	for _, p := range points {
		p.Val, err = obj.Objective(p.Pos())
		p.Val = sanitize(p.Val, ev.Log)
		results = append(results, p)
		if err != nil && !ev.ContinueOnErr {
			return results, len(results), err
		}
	}
	return results, len(results), nil
}

// BatchEvaler hands the whole point set to the objective in a single call
// when the objective supports it, so objective cost scales once per
// iteration rather than once per particle-iteration pair.  Objectives
// without batch support fall back to serial evaluation.
type BatchEvaler struct {
	Log logrus.FieldLogger
}

func (ev BatchEvaler) Eval(obj Objectiver, points ...Point) (results []Point, n int, err error) {
	bobj, ok := obj.(BatchObjectiver)
	if !ok || len(points) == 0 {
		return SerialEvaler{ContinueOnErr: true, Log: ev.Log}.Eval(obj, points...)
	}

	vals, err := bobj.BatchObjective(PosMatrix(points))
	if err != nil {
		return nil, 0, err
	}
	for i := range points {
		points[i].Val = sanitize(vals[i], ev.Log)
	}
	return points, len(points), nil
}

// ParallelEvaler fans point evaluations out over N goroutines.  Result
// order matches point order regardless of completion order.  N <= 0 uses
// one worker per CPU.
type ParallelEvaler struct {
	N   int
	Log logrus.FieldLogger
}

func (ev ParallelEvaler) Eval(obj Objectiver, points ...Point) (results []Point, n int, err error) {
	nworker := ev.N
	if nworker <= 0 {
		nworker = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(nworker)
	results = make([]Point, len(points))
	for i, p := range points {
		i, p := i, p
		g.Go(func() error {
			val, err := obj.Objective(p.Pos())
			results[i] = NewPoint(p.Pos(), sanitize(val, ev.Log))
			return err
		})
	}
	err = g.Wait()
	return results, len(points), err
}

// CacheEvaler wraps another evaler and memoizes values by exact position
// so revisited points cost nothing.
type CacheEvaler struct {
	ev    Evaler
	cache map[[sha1.Size]byte]float64
	// UseCount reports the total number of cache hits.
	UseCount int
}

func NewCacheEvaler(ev Evaler) *CacheEvaler {
	return &CacheEvaler{
		ev:    ev,
		cache: map[[sha1.Size]byte]float64{},
	}
}

func (ev *CacheEvaler) Eval(obj Objectiver, points ...Point) (results []Point, n int, err error) {
	fromnew := make([]int, 0, len(points))
	newp := make([]Point, 0, len(points))
	for i, p := range points {
		if val, ok := ev.cache[hashPoint(p)]; ok {
			points[i].Val = val
			ev.UseCount++
		} else {
			fromnew = append(fromnew, i)
			newp = append(newp, p)
		}
	}

	newresults, n, err := ev.ev.Eval(obj, newp...)
	for i, p := range newresults {
		ev.cache[hashPoint(p)] = p.Val
		points[fromnew[i]].Val = p.Val
	}

	// an error may have cut the new results short
	if len(newresults) < len(newp) {
		if len(newresults) == 0 {
			return nil, n, err
		}
		return points[:fromnew[len(newresults)-1]+1], n, err
	}
	return points, n, err
}
