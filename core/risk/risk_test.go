package risk

import (
	"context"
	"testing"

	"pwnet/core/model"
	"pwnet/solvers"
)

// scriptedSolver returns a canned solution sized to the model.
type scriptedSolver struct {
	status solvers.Status
	values func(m *model.Model) []float64
}

func (s *scriptedSolver) Name() string    { return "scripted" }
func (s *scriptedSolver) Available() bool { return true }
func (s *scriptedSolver) Solve(_ context.Context, m *model.Model, _ solvers.Options) (*solvers.Solution, error) {
	sol := &solvers.Solution{Status: s.status}
	if s.values != nil {
		sol.Values = s.values(m)
	}
	return sol, nil
}

func riskModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New("risk-test", model.NewRegistry(nil, nil), model.DefaultConfig())
	m.NewVar(model.VarCurtailment, model.Binary, 0, 1, "K01")
	m.NewVar(model.VarCurtailment, model.Binary, 0, 1, "K02")
	d := m.NewVar(model.VarDisposal, model.Continuous, 0, 100, "K01", "T01")
	if err := m.DefineObjective(model.ObjectiveCost, model.NewExpr().AddTerm(d, 1)); err != nil {
		t.Fatalf("DefineObjective(cost): %v", err)
	}
	if err := m.DefineObjective(model.ObjectiveSubsurfaceRisk, model.NewExpr().AddTerm(d, 2)); err != nil {
		t.Fatalf("DefineObjective(risk): %v", err)
	}
	if err := m.SetObjective(model.ObjectiveCost); err != nil {
		t.Fatalf("SetObjective: %v", err)
	}
	return m
}

func TestPresolveFixesCurtailments(t *testing.T) {
	m := riskModel(t)
	solver := &scriptedSolver{
		status: solvers.StatusOptimal,
		values: func(m *model.Model) []float64 {
			vals := make([]float64, m.NumVars())
			// Curtail K01 only.
			vals[m.Var(model.VarCurtailment, "K01").Column] = 1
			return vals
		},
	}

	res, snap, err := Presolve(context.Background(), m, solver, solvers.Options{})
	if err != nil {
		t.Fatalf("Presolve: %v", err)
	}

	k1 := m.Var(model.VarCurtailment, "K01")
	k2 := m.Var(model.VarCurtailment, "K02")
	if k1.Lo != 1 || k1.Hi != 1 {
		t.Fatalf("K01 curtailment not fixed to 1: [%v, %v]", k1.Lo, k1.Hi)
	}
	if k2.Lo != 0 || k2.Hi != 0 {
		t.Fatalf("K02 curtailment not fixed to 0: [%v, %v]", k2.Lo, k2.Hi)
	}
	if len(res.Curtailed) != 1 || res.Curtailed[0] != "K01" {
		t.Fatalf("curtailed = %v, want [K01]", res.Curtailed)
	}

	// The economic objective is active again.
	obj, ok := m.ActiveObjective()
	if !ok || obj.Kind != model.ObjectiveCost {
		t.Fatalf("active objective = %v, want cost", obj)
	}

	// The snapshot releases the binaries.
	snap.Restore()
	if k1.Lo != 0 || k1.Hi != 1 {
		t.Fatalf("K01 bounds not released: [%v, %v]", k1.Lo, k1.Hi)
	}
}

func TestPresolveRejectsInfeasible(t *testing.T) {
	m := riskModel(t)
	solver := &scriptedSolver{status: solvers.StatusInfeasible}

	if _, _, err := Presolve(context.Background(), m, solver, solvers.Options{}); err == nil {
		t.Fatal("expected an error when the risk pre-solve is infeasible")
	}
	// The objective is restored even on failure.
	obj, ok := m.ActiveObjective()
	if !ok || obj.Kind != model.ObjectiveCost {
		t.Fatal("objective not restored after failed pre-solve")
	}
}
