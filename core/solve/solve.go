// Package solve orchestrates a full optimization run: solver selection,
// optional subsurface-risk pre-solve, optional scaling, the quality-mode
// solve procedure, and the post-processors that turn a solved model into
// a Result.
package solve

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"pwnet/core/hydraulics"
	"pwnet/core/model"
	"pwnet/core/quality"
	"pwnet/core/results"
	"pwnet/core/risk"
	"pwnet/core/scaling"
	"pwnet/core/timing"
	"pwnet/internal/errors"
	"pwnet/internal/logging"
	"pwnet/solvers"
)

// slackTol is the activity threshold for slack warnings.
const slackTol = 1e-6

// freezeBand is the relative half-width of the phase-two continuous
// freeze around phase-one values.
const freezeBand = 0.01

// Options controls one orchestrated run.
type Options struct {
	// SolverCandidates is the ordered backend preference; the first
	// available one wins.
	SolverCandidates []string

	// TimeLimitS bounds the wall time of each backend call, in seconds.
	// Zero means unlimited.
	TimeLimitS float64

	// RelativeGap is the MIP termination gap.
	RelativeGap float64

	// DeactivateSlacks fixes every slack variable to zero, turning soft
	// relief into hard constraints.
	DeactivateSlacks bool

	// ApplyScaling rescales the model before solving and maps the
	// solution back afterwards.
	ApplyScaling  bool
	ScalingFactor float64

	// NumericFocus asks the backend for more careful numerics.
	NumericFocus bool

	// SubsurfaceOnly stops after the risk pre-solve and reports its
	// outcome.
	SubsurfaceOnly bool
}

// DefaultOptions returns the documented defaults: prefer the external
// HiGHS backend, fall back to the built-in one, keep slacks soft.
func DefaultOptions() Options {
	return Options{
		SolverCandidates: []string{"highs", "simplex"},
		ScalingFactor:    scaling.DefaultFactor,
	}
}

func (o Options) backendOptions() solvers.Options {
	return solvers.Options{
		TimeLimit:    time.Duration(o.TimeLimitS * float64(time.Second)),
		RelativeGap:  o.RelativeGap,
		NumericFocus: o.NumericFocus,
	}
}

// Solve runs the full §4.4-style sequence on an assembled model. Solver
// infeasibility is a warning on the result, not an error: the caller
// gets the status and a recommendation to relax slacks. Fatal errors
// are backend failures and internal inconsistencies.
func Solve(ctx context.Context, m *model.Model, opts Options) (*results.Result, error) {
	solver, err := solvers.FirstAvailable(opts.SolverCandidates)
	if err != nil {
		return nil, err
	}
	sopt := opts.backendOptions()
	res := &results.Result{Model: m}
	logging.Info("solve starting",
		zap.String("model", m.Name),
		zap.String("solver", solver.Name()),
		zap.Int("variables", m.NumVars()),
		zap.Int("constraints", m.NumRows()))

	if opts.DeactivateSlacks {
		deactivateSlacks(m)
	}

	// Subsurface-risk pre-solve fixes curtailment selections before the
	// economic solve.
	if m.Cfg.SubsurfaceRisk == model.RiskCalculated || opts.SubsurfaceOnly {
		riskRes, _, err := risk.Presolve(ctx, m, solver, sopt)
		if err != nil {
			return nil, err
		}
		if opts.SubsurfaceOnly {
			res.Status = solvers.StatusOptimal
			res.Objective = riskRes.Objective
			return res, nil
		}
	}

	var tr *scaling.Transform
	if opts.ApplyScaling {
		factor := opts.ScalingFactor
		if factor <= 0 {
			factor = scaling.DefaultFactor
		}
		if tr, err = scaling.Apply(m, factor); err != nil {
			return nil, err
		}
	}

	sol, err := dispatchSolve(ctx, m, solver, sopt)
	if err != nil {
		if tr != nil {
			tr.Restore(m)
		}
		return nil, err
	}

	solved := sol.Values != nil
	if solved {
		if err := m.ApplySolution(sol.Values); err != nil {
			if tr != nil {
				tr.Restore(m)
			}
			return nil, err
		}
	}
	if tr != nil {
		if solved {
			tr.PropagateSolution(m)
		}
		tr.Restore(m)
	}

	res.Status = sol.Status
	switch sol.Status {
	case solvers.StatusInfeasible:
		res.Warn("solver reported the model infeasible; re-run with slack relief enabled to locate the binding shortfall")
		logging.Warn("solver-infeasible termination", zap.String("model", m.Name))
		return res, nil
	case solvers.StatusUnbounded:
		return nil, errors.Newf(errors.TypeSolver, "model %s is unbounded; an objective definition is missing a term", m.Name)
	case solvers.StatusError:
		return nil, errors.Newf(errors.TypeSolver, "backend %s failed on model %s", solver.Name(), m.Name)
	case solvers.StatusTimeLimit:
		res.Warn("time limit reached; reporting the best incumbent found")
		if !solved {
			return res, nil
		}
	}

	res.Objective = m.ObjectiveValue()
	res.Costs = results.NewCostSummary(m)
	warnSlackActivity(m, res)

	if strat := quality.ForMode(m.Cfg); strat != nil {
		rep, err := strat.Finalize(ctx, m, solver, sopt)
		if err != nil {
			return nil, err
		}
		res.Quality = rep
	}

	if m.Cfg.InfrastructureTiming {
		res.BuildSchedule = timing.ComputeBuildStarts(m)
	}

	switch m.Cfg.Hydraulics {
	case model.HydraulicsPostProcess, model.HydraulicsCoOptimize, model.HydraulicsCoOptimizeLinearized:
		rep, err := hydraulics.PostProcess(m, nil)
		if err != nil {
			return nil, err
		}
		res.Hydraulics = rep
		hydraulics.Deactivate(m)
	}

	logging.Info("solve finished",
		zap.String("model", m.Name),
		zap.String("status", string(res.Status)),
		zap.Float64("objective", res.Objective))
	return res, nil
}

// dispatchSolve routes by quality mode: the discrete strategy gets the
// two-phase warm-start procedure, everything else a direct solve.
func dispatchSolve(ctx context.Context, m *model.Model, solver solvers.Solver, sopt solvers.Options) (*solvers.Solution, error) {
	if m.Cfg.WaterQuality == model.QualityDiscrete {
		return solveTwoPhase(ctx, m, solver, sopt)
	}
	return solver.Solve(ctx, m, sopt)
}

// qualityVarNames are the discrete-quality variable families excluded
// from the phase-two freeze.
var qualityVarNames = map[string]bool{
	model.VarQualityBucket:    true,
	model.VarPipedQ:           true,
	model.VarTruckedQ:         true,
	model.VarStorageLevelQ:    true,
	model.VarPadStorageLevelQ: true,
	model.VarPadStorageInQ:    true,
	model.VarPadStorageOutQ:   true,
	model.VarTreatedQ:         true,
	model.VarDisposalQ:        true,
	model.VarReuseQ:           true,
	model.VarCompletionsQ:     true,
}

func isQualityVar(v *model.Var) bool {
	return qualityVarNames[v.Name]
}

// solveTwoPhase runs the discrete-quality warm-start procedure.
//
// Phase 1 fixes every bucket selection to an initial guess and solves
// the resulting flow problem; it then freezes all non-quality variables
// near their phase-one values (binaries exactly, continuous within a
// one-percent band), frees the selections, and resolves so the quality
// block becomes consistent with the flows. Phase 2 restores every bound
// from the snapshots and solves the joint model warm-started from the
// phase-one point, which is bound-feasible by construction.
func solveTwoPhase(ctx context.Context, m *model.Model, solver solvers.Solver, sopt solvers.Options) (*solvers.Solution, error) {
	d := quality.NewDiscrete(m.Cfg.QualityBuckets)

	guessSnap := m.Snapshot(func(v *model.Var) bool { return v.Name == model.VarQualityBucket })
	d.GuessInitial(m)

	flowSol, err := solver.Solve(ctx, m, sopt)
	if err != nil {
		guessSnap.Restore()
		return nil, errors.Wrap(errors.TypeSolver, "two-phase flow solve failed", err)
	}
	if flowSol.Status != solvers.StatusOptimal {
		// Nothing to warm-start from; fall back to the joint solve.
		guessSnap.Restore()
		logging.Warn("two-phase flow solve did not reach optimality; solving jointly",
			zap.String("status", string(flowSol.Status)))
		return solver.Solve(ctx, m, sopt)
	}
	if err := m.ApplySolution(flowSol.Values); err != nil {
		guessSnap.Restore()
		return nil, err
	}

	freezeSnap := m.Snapshot(func(v *model.Var) bool { return !isQualityVar(v) })
	for _, v := range m.Columns() {
		if isQualityVar(v) {
			continue
		}
		if v.IsDiscrete() {
			v.Fix(math.Round(v.Value))
			continue
		}
		half := freezeBand*math.Abs(v.Value) + slackTol
		v.Lo = math.Max(v.Lo, v.Value-half)
		v.Hi = math.Min(v.Hi, v.Value+half)
	}
	guessSnap.Restore()

	warmSol, err := solver.Solve(ctx, m, sopt)
	freezeSnap.Restore()
	if err != nil {
		return nil, errors.Wrap(errors.TypeSolver, "two-phase quality warm-start solve failed", err)
	}
	if warmSol.Status == solvers.StatusOptimal {
		if err := m.ApplySolution(warmSol.Values); err != nil {
			return nil, err
		}
		m.WarmStartFromValues()
	} else {
		logging.Warn("two-phase warm-start solve did not reach optimality; joint solve starts cold",
			zap.String("status", string(warmSol.Status)))
	}

	return solver.Solve(ctx, m, sopt)
}

// deactivateSlacks pins every slack column to zero.
func deactivateSlacks(m *model.Model) {
	n := 0
	for _, v := range m.Columns() {
		if strings.HasPrefix(v.Name, "v_S_") {
			v.Fix(0)
			n++
		}
	}
	logging.Info("slack relief disabled", zap.Int("slacks_fixed", n))
}

// warnSlackActivity reports every slack that carried volume: the
// solution is feasible only by relaxation there.
func warnSlackActivity(m *model.Model, res *results.Result) {
	for _, v := range m.Columns() {
		if strings.HasPrefix(v.Name, "v_S_") && v.Value > slackTol {
			res.Warn(fmt.Sprintf("slack %s active at %.4g; the underlying balance could not be met exactly", v.ID(), v.Value))
		}
	}
}
