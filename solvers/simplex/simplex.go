// Package simplex is the built-in MILP backend: branch and bound over
// gonum's dense simplex LP solver. It is always available, which makes
// it the fallback at the end of every candidate list; the tree search
// is depth-first with incumbent pruning.
package simplex

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"pwnet/core/model"
	"pwnet/solvers"
	"pwnet/internal/errors"
	"pwnet/internal/logging"
)

// Name is the registry name of this backend.
const Name = "simplex"

const (
	// intTol is the integrality tolerance on relaxation values.
	intTol = 1e-6

	// lpTol is the pivot tolerance handed to the simplex routine.
	lpTol = 1e-10

	// pruneTol guards against cycling on ties with the incumbent.
	pruneTol = 1e-9
)

func init() {
	solvers.Register(&Backend{})
}

// Backend is the built-in solver.
type Backend struct{}

// Name identifies the backend.
func (*Backend) Name() string { return Name }

// Available always holds: the backend is pure Go.
func (*Backend) Available() bool { return true }

// Solve minimizes the model's active objective by branch and bound.
func (*Backend) Solve(ctx context.Context, m *model.Model, opt solvers.Options) (*solvers.Solution, error) {
	p, err := solvers.Export(m)
	if err != nil {
		return nil, err
	}
	t := &tree{
		p:       p,
		opt:     opt,
		intCols: p.IntegerCols(),
		bestObj: math.Inf(1),
	}
	if opt.TimeLimit > 0 {
		t.deadline = time.Now().Add(opt.TimeLimit)
	}
	t.seedIncumbent()

	start := time.Now()
	sol, err := t.run(ctx)
	if err != nil {
		return nil, err
	}
	logging.Debug("simplex backend finished",
		zap.String("model", m.Name),
		zap.String("status", string(sol.Status)),
		zap.Int("nodes", t.nodes),
		zap.Duration("elapsed", time.Since(start)))
	return sol, nil
}

// bounds is a per-node [lo, hi] override on one column.
type bounds struct {
	lo, hi float64
}

// node is one open subproblem: the root problem plus the branching
// bound overrides accumulated on the path to it.
type node struct {
	overrides map[int]bounds
}

func (n *node) child(col int, b bounds) *node {
	c := &node{overrides: make(map[int]bounds, len(n.overrides)+1)}
	for k, v := range n.overrides {
		c.overrides[k] = v
	}
	if prev, ok := c.overrides[col]; ok {
		b.lo = math.Max(b.lo, prev.lo)
		b.hi = math.Min(b.hi, prev.hi)
	}
	c.overrides[col] = b
	return c
}

type tree struct {
	p       *solvers.Problem
	opt     solvers.Options
	intCols []int

	deadline time.Time
	nodes    int

	bestX   []float64
	bestObj float64
}

// seedIncumbent adopts a complete warm-start vector as the initial
// incumbent when it is feasible, so pruning starts immediately.
func (t *tree) seedIncumbent() {
	x, complete := t.p.StartValues()
	if !complete || !t.feasible(x) {
		return
	}
	t.bestX = append([]float64(nil), x...)
	t.bestObj = x[t.p.ObjCol]
}

// feasible checks a candidate vector against bounds, rows, and
// integrality.
func (t *tree) feasible(x []float64) bool {
	for i, v := range t.p.Cols {
		if x[i] < v.Lo-intTol || x[i] > v.Hi+intTol {
			return false
		}
	}
	for _, col := range t.intCols {
		if math.Abs(x[col]-math.Round(x[col])) > intTol {
			return false
		}
	}
	for _, r := range t.p.Rows {
		sum := 0.0
		for col, coef := range r.Coefs {
			sum += coef * x[col]
		}
		if sum < r.Lo-1e-6 || sum > r.Hi+1e-6 {
			return false
		}
	}
	return true
}

func (t *tree) expired(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return !t.deadline.IsZero() && time.Now().After(t.deadline)
}

func (t *tree) run(ctx context.Context) (*solvers.Solution, error) {
	stack := []*node{{overrides: map[int]bounds{}}}
	sawInfeasible := false

	for len(stack) > 0 {
		if t.expired(ctx) {
			return t.timeLimited(), nil
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.nodes++

		x, status := t.relax(n)
		switch status {
		case lpInfeasible:
			sawInfeasible = true
			continue
		case lpUnbounded:
			if t.nodes == 1 {
				return &solvers.Solution{Status: solvers.StatusUnbounded}, nil
			}
			continue
		}

		bound := x[t.p.ObjCol]
		if bound >= t.bestObj-pruneTol {
			continue
		}
		if !math.IsInf(t.bestObj, 1) && t.opt.RelativeGap > 0 {
			if t.bestObj-bound <= t.opt.RelativeGap*math.Max(1, math.Abs(t.bestObj)) {
				continue
			}
		}

		branchCol := t.mostFractional(x)
		if branchCol < 0 {
			for _, col := range t.intCols {
				x[col] = math.Round(x[col])
			}
			t.bestX = append([]float64(nil), x...)
			t.bestObj = x[t.p.ObjCol]
			continue
		}

		v := x[branchCol]
		stack = append(stack,
			n.child(branchCol, bounds{lo: math.Ceil(v), hi: math.Inf(1)}),
			n.child(branchCol, bounds{lo: math.Inf(-1), hi: math.Floor(v)}),
		)
	}

	if t.bestX == nil {
		if sawInfeasible {
			return &solvers.Solution{Status: solvers.StatusInfeasible}, nil
		}
		return nil, errors.New(errors.TypeSolver, "branch and bound exhausted the tree without any relaxation result")
	}
	return &solvers.Solution{
		Status:    solvers.StatusOptimal,
		Objective: t.bestObj,
		Values:    t.bestX,
	}, nil
}

func (t *tree) timeLimited() *solvers.Solution {
	sol := &solvers.Solution{Status: solvers.StatusTimeLimit}
	if t.bestX != nil {
		sol.Objective = t.bestObj
		sol.Values = t.bestX
	}
	return sol
}

// mostFractional returns the integer column farthest from integrality,
// or -1 when the vector is integral.
func (t *tree) mostFractional(x []float64) int {
	best, bestDist := -1, intTol
	for _, col := range t.intCols {
		d := math.Abs(x[col] - math.Round(x[col]))
		if d > bestDist {
			best, bestDist = col, d
		}
	}
	return best
}

type lpStatus int

const (
	lpOK lpStatus = iota
	lpInfeasible
	lpUnbounded
)

// relax solves the node's LP relaxation and maps the standard-form
// optimum back to original columns.
func (t *tree) relax(n *node) ([]float64, lpStatus) {
	sf, ok := newStandardForm(t.p, n.overrides)
	if !ok {
		return nil, lpInfeasible
	}
	_, xs, err := lp.Simplex(sf.c, sf.a, sf.b, lpTol, nil)
	switch err {
	case nil:
	case lp.ErrInfeasible:
		return nil, lpInfeasible
	case lp.ErrUnbounded:
		return nil, lpUnbounded
	default:
		// Numerical trouble on a node is treated as infeasible rather
		// than aborting the whole search.
		return nil, lpInfeasible
	}
	return sf.recover(xs), lpOK
}

// standardForm is the node LP in gonum's required shape:
// min c.x subject to a.x = b, x >= 0.
type standardForm struct {
	c []float64
	a *mat.Dense
	b []float64

	// Per original column: the standard column of its shifted positive
	// part, the column of its negative part (-1 when absent), the shift
	// constant, and whether the column was mirrored (x = shift - u).
	pos      []int
	neg      []int
	shift    []float64
	mirrored []bool
}

// newStandardForm converts the bounded-row problem to equality standard
// form: finite lower bounds are shifted out, upper bounds become slack
// rows, free columns are split, ranged rows become two slack rows.
// Returns ok=false when an override empties a column's bound interval.
func newStandardForm(p *solvers.Problem, overrides map[int]bounds) (*standardForm, bool) {
	ncols := len(p.Cols)
	sf := &standardForm{
		pos:      make([]int, ncols),
		neg:      make([]int, ncols),
		shift:    make([]float64, ncols),
		mirrored: make([]bool, ncols),
	}

	lo := make([]float64, ncols)
	hi := make([]float64, ncols)
	for i, v := range p.Cols {
		lo[i], hi[i] = v.Lo, v.Hi
		if b, ok := overrides[i]; ok {
			lo[i] = math.Max(lo[i], b.lo)
			hi[i] = math.Min(hi[i], b.hi)
		}
		if lo[i] > hi[i]+intTol {
			return nil, false
		}
	}

	// Assign standard columns.
	next := 0
	for i := range p.Cols {
		switch {
		case !math.IsInf(lo[i], -1):
			sf.pos[i], sf.neg[i], sf.shift[i] = next, -1, lo[i]
			next++
		case !math.IsInf(hi[i], 1):
			// No lower bound but a finite upper: mirror so the standard
			// column stays nonnegative.
			sf.pos[i], sf.neg[i], sf.shift[i] = next, -1, hi[i]
			sf.mirrored[i] = true
			next++
		default:
			sf.pos[i], sf.neg[i] = next, next+1
			next += 2
		}
	}

	// Bounded-row expansion. Each entry is (coefs over original columns,
	// rhs) of one <= or == row after splitting ranges.
	type stdRow struct {
		coefs map[int]float64
		rhs   float64
		slack int // +1 for <=, -1 for >=, 0 for ==
	}
	var rows []stdRow
	for _, r := range p.Rows {
		switch {
		case r.Lo == r.Hi:
			rows = append(rows, stdRow{coefs: r.Coefs, rhs: r.Lo, slack: 0})
		default:
			if !math.IsInf(r.Hi, 1) {
				rows = append(rows, stdRow{coefs: r.Coefs, rhs: r.Hi, slack: 1})
			}
			if !math.IsInf(r.Lo, -1) {
				rows = append(rows, stdRow{coefs: r.Coefs, rhs: r.Lo, slack: -1})
			}
		}
	}
	// Finite two-sided column bounds become one slack row on the shifted
	// column: u <= hi - lo.
	for i := range p.Cols {
		if math.IsInf(lo[i], -1) || math.IsInf(hi[i], 1) || sf.mirrored[i] {
			continue
		}
		rows = append(rows, stdRow{coefs: map[int]float64{i: 1}, rhs: hi[i], slack: 1})
	}
	nslack := 0
	for _, r := range rows {
		if r.slack != 0 {
			nslack++
		}
	}
	nstd := next + nslack
	a := mat.NewDense(len(rows), nstd, nil)
	b := make([]float64, len(rows))
	slackCol := next
	for ri, r := range rows {
		rhs := r.rhs
		for col, coef := range r.coefs {
			// Substitute x = shift + u, x = shift - u, or x = u - w.
			switch {
			case sf.mirrored[col]:
				a.Set(ri, sf.pos[col], a.At(ri, sf.pos[col])-coef)
			case sf.neg[col] >= 0:
				a.Set(ri, sf.pos[col], a.At(ri, sf.pos[col])+coef)
				a.Set(ri, sf.neg[col], a.At(ri, sf.neg[col])-coef)
			default:
				a.Set(ri, sf.pos[col], a.At(ri, sf.pos[col])+coef)
			}
			rhs -= coef * sf.shift[col]
		}
		if r.slack != 0 {
			a.Set(ri, slackCol, float64(r.slack))
			slackCol++
		}
		b[ri] = rhs
	}

	c := make([]float64, nstd)
	oc := p.ObjCol
	switch {
	case sf.mirrored[oc]:
		c[sf.pos[oc]] = -1
	case sf.neg[oc] >= 0:
		c[sf.pos[oc]] = 1
		c[sf.neg[oc]] = -1
	default:
		c[sf.pos[oc]] = 1
	}

	sf.a, sf.b, sf.c = a, b, c
	return sf, true
}

// recover maps a standard-form optimum back to the original columns.
func (sf *standardForm) recover(xs []float64) []float64 {
	out := make([]float64, len(sf.pos))
	for i := range out {
		switch {
		case sf.mirrored[i]:
			out[i] = sf.shift[i] - xs[sf.pos[i]]
		case sf.neg[i] >= 0:
			out[i] = xs[sf.pos[i]] - xs[sf.neg[i]]
		default:
			out[i] = sf.shift[i] + xs[sf.pos[i]]
		}
	}
	return out
}

var _ solvers.Solver = (*Backend)(nil)
