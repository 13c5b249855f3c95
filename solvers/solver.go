// Package solvers defines the backend-neutral solver contract and the
// registry backends self-register into. Backends live in subpackages
// and register themselves from init; callers pick by name or take the
// first available candidate.
package solvers

import (
	"context"
	"sync"
	"time"

	"pwnet/core/model"
	"pwnet/internal/errors"
)

// Status classifies a finished solve.
type Status string

const (
	// StatusOptimal means the backend proved optimality (within its gap).
	StatusOptimal Status = "optimal"

	// StatusInfeasible means the backend proved there is no feasible point.
	StatusInfeasible Status = "infeasible"

	// StatusUnbounded means the objective is unbounded below.
	StatusUnbounded Status = "unbounded"

	// StatusTimeLimit means the time limit expired; Values holds the
	// incumbent when one was found.
	StatusTimeLimit Status = "time_limit"

	// StatusError means the backend failed for another reason.
	StatusError Status = "error"
)

// Options are the backend-neutral solve controls.
type Options struct {
	// TimeLimit bounds the solve wall time; zero means unlimited.
	TimeLimit time.Duration

	// RelativeGap is the MIP termination gap; zero means prove optimality.
	RelativeGap float64

	// NumericFocus asks the backend for more careful numerics when it
	// supports the notion.
	NumericFocus bool
}

// Solution is a finished solve: a status, the objective value, and a
// column-ordered value vector matching model.Columns().
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
}

// Solver is one MILP backend.
type Solver interface {
	// Name identifies the backend in configuration and logs.
	Name() string

	// Available reports whether the backend can run on this host.
	Available() bool

	// Solve minimizes the model's active objective.
	Solve(ctx context.Context, m *model.Model, opt Options) (*Solution, error)
}

var (
	mu       sync.RWMutex
	backends = make(map[string]Solver)
	order    []string
)

// Register adds a backend to the registry. Backends call this from
// init; a duplicate name panics since it is a programming error.
func Register(s Solver) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := backends[s.Name()]; ok {
		panic("solvers: duplicate backend " + s.Name())
	}
	backends[s.Name()] = s
	order = append(order, s.Name())
}

// Lookup returns a backend by name.
func Lookup(name string) (Solver, error) {
	mu.RLock()
	defer mu.RUnlock()
	s, ok := backends[name]
	if !ok {
		return nil, errors.Newf(errors.TypeSolver, "unknown solver backend %q", name)
	}
	return s, nil
}

// Names returns the registered backend names in registration order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), order...)
}

// FirstAvailable walks the candidate list and returns the first
// registered, available backend. An empty candidate list walks the
// whole registry in registration order.
func FirstAvailable(candidates []string) (Solver, error) {
	if len(candidates) == 0 {
		candidates = Names()
	}
	for _, name := range candidates {
		s, err := Lookup(name)
		if err != nil {
			continue
		}
		if s.Available() {
			return s, nil
		}
	}
	return nil, errors.Newf(errors.TypeSolver,
		"no available solver among candidates %v", candidates)
}
