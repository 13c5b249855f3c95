package highs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pwnet/core/model"
	"pwnet/solvers"
)

func exportedProblem(t *testing.T) *solvers.Problem {
	t.Helper()
	m := model.New("lp-test", model.NewRegistry(nil, nil), model.DefaultConfig())
	x := m.NewVar("x", model.Continuous, 0, 10)
	y := m.NewVar("y", model.Binary, 0, 1)
	if _, err := m.AddLe("gate", "", model.NewExpr().AddTerm(x, 1).AddTerm(y, -8), 0); err != nil {
		t.Fatalf("AddLe: %v", err)
	}
	if _, err := m.AddGe("demand", "", model.NewExpr().AddTerm(x, 1), 3); err != nil {
		t.Fatalf("AddGe: %v", err)
	}
	if err := m.DefineObjective(model.ObjectiveCost, model.NewExpr().AddTerm(x, 2).AddTerm(y, 5)); err != nil {
		t.Fatalf("DefineObjective: %v", err)
	}
	if err := m.SetObjective(model.ObjectiveCost); err != nil {
		t.Fatalf("SetObjective: %v", err)
	}
	p, err := solvers.Export(m)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	return p
}

func TestWriteLP(t *testing.T) {
	p := exportedProblem(t)
	path := filepath.Join(t.TempDir(), "model.lp")
	if err := writeLP(path, "lp-test", p); err != nil {
		t.Fatalf("writeLP: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lp := string(data)

	for _, want := range []string{
		"Minimize",
		"Subject To",
		"Bounds",
		"Binary",
		"End",
		// The objective definition equality carries the cost expression.
		"= 0",
		// The demand row survives as a one-sided inequality.
		">= 3",
	} {
		if !strings.Contains(lp, want) {
			t.Fatalf("LP file missing %q:\n%s", want, lp)
		}
	}
	// The binary column is listed in the Binary section.
	if !strings.Contains(lp, "Binary\n x1\n") {
		t.Fatalf("binary column not declared:\n%s", lp)
	}
}

func TestReadSolution(t *testing.T) {
	p := exportedProblem(t)
	path := filepath.Join(t.TempDir(), "model.sol")
	content := `Model status
Optimal

# Primal solution values
Feasible
Objective 11
# Columns 3
x0 3
x1 1
x2 11
# Rows 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	sol, err := readSolution(path, p)
	if err != nil {
		t.Fatalf("readSolution: %v", err)
	}
	if sol.Status != solvers.StatusOptimal {
		t.Fatalf("status = %s, want optimal", sol.Status)
	}
	if sol.Objective != 11 {
		t.Fatalf("objective = %v, want 11", sol.Objective)
	}
	want := []float64{3, 1, 11}
	for i, v := range want {
		if sol.Values[i] != v {
			t.Fatalf("values[%d] = %v, want %v", i, sol.Values[i], v)
		}
	}
}

func TestReadSolutionInfeasible(t *testing.T) {
	p := exportedProblem(t)
	path := filepath.Join(t.TempDir(), "model.sol")
	content := "Model status\nInfeasible\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	sol, err := readSolution(path, p)
	if err != nil {
		t.Fatalf("readSolution: %v", err)
	}
	if sol.Status != solvers.StatusInfeasible {
		t.Fatalf("status = %s, want infeasible", sol.Status)
	}
	if sol.Values != nil {
		t.Fatal("infeasible solution should carry no values")
	}
}

func TestStatusMapping(t *testing.T) {
	cases := map[string]solvers.Status{
		"Optimal":            solvers.StatusOptimal,
		"Infeasible":         solvers.StatusInfeasible,
		"Unbounded":          solvers.StatusUnbounded,
		"Time limit reached": solvers.StatusTimeLimit,
		"Interrupted":        solvers.StatusError,
	}
	for in, want := range cases {
		if got := mapStatus(in); got != want {
			t.Fatalf("mapStatus(%q) = %s, want %s", in, got, want)
		}
	}
}
