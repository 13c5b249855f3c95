package simplex

import (
	"context"
	"math"
	"testing"

	"pwnet/core/model"
	"pwnet/solvers"
)

func solve(t *testing.T, m *model.Model) *solvers.Solution {
	t.Helper()
	sol, err := (&Backend{}).Solve(context.Background(), m, solvers.Options{})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	return sol
}

func setObjective(t *testing.T, m *model.Model, expr model.LinExpr) {
	t.Helper()
	if err := m.DefineObjective(model.ObjectiveCost, expr); err != nil {
		t.Fatalf("DefineObjective: %v", err)
	}
	if err := m.SetObjective(model.ObjectiveCost); err != nil {
		t.Fatalf("SetObjective: %v", err)
	}
}

func TestSolveLP(t *testing.T) {
	m := model.New("lp", model.NewRegistry(nil, nil), model.DefaultConfig())
	x := m.NewVar("x", model.Continuous, 0, 10)
	y := m.NewVar("y", model.Continuous, 0, 10)
	if _, err := m.AddGe("demand", "", model.NewExpr().AddTerm(x, 1).AddTerm(y, 1), 8); err != nil {
		t.Fatalf("AddGe: %v", err)
	}
	setObjective(t, m, model.NewExpr().AddTerm(x, 2).AddTerm(y, 3))

	sol := solve(t, m)
	if sol.Status != solvers.StatusOptimal {
		t.Fatalf("status = %s, want optimal", sol.Status)
	}
	if math.Abs(sol.Objective-16) > 1e-6 {
		t.Fatalf("objective = %v, want 16", sol.Objective)
	}
	if err := m.ApplySolution(sol.Values); err != nil {
		t.Fatalf("ApplySolution: %v", err)
	}
	if math.Abs(x.Value-8) > 1e-6 || math.Abs(y.Value) > 1e-6 {
		t.Fatalf("optimum = (%v, %v), want (8, 0)", x.Value, y.Value)
	}
}

func TestSolveIntegerRoundsUp(t *testing.T) {
	m := model.New("ip", model.NewRegistry(nil, nil), model.DefaultConfig())
	x := m.NewVar("x", model.Integer, 0, 10)
	if _, err := m.AddGe("min", "", model.NewExpr().AddTerm(x, 1), 2.5); err != nil {
		t.Fatalf("AddGe: %v", err)
	}
	setObjective(t, m, model.NewExpr().AddTerm(x, 1))

	sol := solve(t, m)
	if sol.Status != solvers.StatusOptimal {
		t.Fatalf("status = %s, want optimal", sol.Status)
	}
	if math.Abs(sol.Objective-3) > 1e-6 {
		t.Fatalf("objective = %v, want 3", sol.Objective)
	}
}

func TestSolveBinaryActivation(t *testing.T) {
	m := model.New("milp", model.NewRegistry(nil, nil), model.DefaultConfig())
	f := m.NewVar("f", model.Continuous, 0, 100)
	y := m.NewVar("y", model.Binary, 0, 1)
	// Flow needs the facility open, and at least 50 must move.
	if _, err := m.AddLe("gate", "", model.NewExpr().AddTerm(f, 1).AddTerm(y, -60), 0); err != nil {
		t.Fatalf("AddLe: %v", err)
	}
	if _, err := m.AddGe("demand", "", model.NewExpr().AddTerm(f, 1), 50); err != nil {
		t.Fatalf("AddGe: %v", err)
	}
	setObjective(t, m, model.NewExpr().AddTerm(f, 1).AddTerm(y, 10))

	sol := solve(t, m)
	if sol.Status != solvers.StatusOptimal {
		t.Fatalf("status = %s, want optimal", sol.Status)
	}
	if math.Abs(sol.Objective-60) > 1e-6 {
		t.Fatalf("objective = %v, want 60", sol.Objective)
	}
	if err := m.ApplySolution(sol.Values); err != nil {
		t.Fatalf("ApplySolution: %v", err)
	}
	if math.Abs(y.Value-1) > 1e-6 {
		t.Fatalf("facility binary = %v, want 1", y.Value)
	}
}

func TestSolveInfeasible(t *testing.T) {
	m := model.New("inf", model.NewRegistry(nil, nil), model.DefaultConfig())
	x := m.NewVar("x", model.Continuous, 0, 1)
	if _, err := m.AddGe("impossible", "", model.NewExpr().AddTerm(x, 1), 5); err != nil {
		t.Fatalf("AddGe: %v", err)
	}
	setObjective(t, m, model.NewExpr().AddTerm(x, 1))

	sol := solve(t, m)
	if sol.Status != solvers.StatusInfeasible {
		t.Fatalf("status = %s, want infeasible", sol.Status)
	}
}

func TestWarmStartSeedsIncumbent(t *testing.T) {
	m := model.New("warm", model.NewRegistry(nil, nil), model.DefaultConfig())
	m.NewVar("x", model.Integer, 0, 10)
	x := m.Var("x")
	if _, err := m.AddGe("min", "", model.NewExpr().AddTerm(x, 1), 2.5); err != nil {
		t.Fatalf("AddGe: %v", err)
	}
	setObjective(t, m, model.NewExpr().AddTerm(x, 1))

	// A feasible start: x = 3, so the objective variable starts at 3 too.
	for _, v := range m.Columns() {
		v.SetStart(3)
	}

	p, err := solvers.Export(m)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	tr := &tree{p: p, intCols: p.IntegerCols(), bestObj: math.Inf(1)}
	tr.seedIncumbent()
	if tr.bestX == nil {
		t.Fatal("feasible warm start was not adopted as incumbent")
	}
	if tr.bestObj != 3 {
		t.Fatalf("incumbent objective = %v, want 3", tr.bestObj)
	}
}

func TestRegistryHasSimplex(t *testing.T) {
	s, err := solvers.Lookup(Name)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !s.Available() {
		t.Fatal("built-in backend must always be available")
	}
}
