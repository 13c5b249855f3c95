// Package risk runs the subsurface-risk pre-solve: minimize
// risk-weighted disposal under the cluster curtailment covering rules,
// then pin the chosen curtailment selections before the main economic
// solve. The covering constraints themselves are assembled with the
// rest of the model.
package risk

import (
	"context"
	"math"

	"go.uber.org/zap"

	"pwnet/core/model"
	"pwnet/solvers"
	"pwnet/internal/errors"
	"pwnet/internal/logging"
)

// Result reports what the pre-solve decided.
type Result struct {
	// Objective is the minimized risk-weighted disposal volume.
	Objective float64

	// Curtailed lists the disposal sites whose curtailment binary was
	// fixed to one.
	Curtailed []string
}

// Presolve minimizes the subsurface-risk objective, fixes the resulting
// curtailment selections on the model, and restores the previously
// active objective. The fixed binaries stay fixed for the main solve;
// the returned snapshot releases them again.
func Presolve(ctx context.Context, m *model.Model, solver solvers.Solver, opt solvers.Options) (*Result, *model.BoundSnapshot, error) {
	prev, ok := m.ActiveObjective()
	if !ok {
		return nil, nil, errors.New(errors.TypeModel, "risk pre-solve needs an active objective to restore")
	}
	if err := m.SetObjective(model.ObjectiveSubsurfaceRisk); err != nil {
		return nil, nil, err
	}
	// The economic objective comes back whatever happens below.
	defer func() {
		if err := m.SetObjective(prev.Kind); err != nil {
			logging.Error("restoring objective after risk pre-solve", zap.Error(err))
		}
	}()

	sol, err := solver.Solve(ctx, m, opt)
	if err != nil {
		return nil, nil, errors.Wrap(errors.TypeSolver, "risk pre-solve failed", err)
	}
	if sol.Status != solvers.StatusOptimal {
		return nil, nil, errors.Newf(errors.TypeSolver,
			"risk pre-solve finished %s: curtailment selections are undecided", sol.Status)
	}
	if err := m.ApplySolution(sol.Values); err != nil {
		return nil, nil, err
	}

	snap := m.Snapshot(func(v *model.Var) bool { return v.Name == model.VarCurtailment })
	res := &Result{Objective: sol.Objective}
	for _, v := range m.VarsNamed(model.VarCurtailment) {
		choice := math.Round(v.Value)
		v.Fix(choice)
		if choice > 0.5 {
			res.Curtailed = append(res.Curtailed, string(v.Index))
		}
	}

	logging.Info("subsurface-risk pre-solve complete",
		zap.Float64("risk_objective", res.Objective),
		zap.Strings("curtailed", res.Curtailed))
	return res, snap, nil
}
