package build

import (
	"context"
	"math"
	"strings"
	"testing"

	"pwnet/core/model"
	"pwnet/internal/errors"
	"pwnet/solvers"
	_ "pwnet/solvers/simplex"
)

// twoNodeCase is the smallest meaningful network: one production pad
// piped to one disposal site over two periods.
func twoNodeCase() (map[string][]string, map[string]map[model.Key]float64) {
	sets := map[string][]string{
		model.SetTimePeriods:    {"T01", "T02"},
		model.SetProductionPads: {"PP01"},
		model.SetDisposalSites:  {"K01"},
		model.SetPipingArcs:     {"PP01,K01"},
	}
	params := map[string]map[model.Key]float64{
		model.ParamProductionRates: {
			model.K("PP01", "T01"): 100,
			model.K("PP01", "T02"): 80,
		},
		model.ParamInitialDisposalCapacity: {model.K("K01"): 200},
		model.ParamInitialPipelineCapacity: {model.K("PP01", "K01"): 200},
		model.ParamPipingRate:              {model.K("PP01", "K01"): 0.5},
		model.ParamDisposalRate:            {model.K("K01"): 1.5},
	}
	return sets, params
}

func solveWith(t *testing.T, m *model.Model) {
	t.Helper()
	s, err := solvers.Lookup("simplex")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	sol, err := s.Solve(context.Background(), m, solvers.Options{})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Status != solvers.StatusOptimal {
		t.Fatalf("status = %v, want optimal", sol.Status)
	}
	if err := m.ApplySolution(sol.Values); err != nil {
		t.Fatalf("ApplySolution: %v", err)
	}
}

func TestAssembleTwoNodeScenario(t *testing.T) {
	sets, params := twoNodeCase()
	m, err := Assemble(sets, params, model.DefaultConfig())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if got := len(m.RowsNamed("ProductionBalance")); got != 2 {
		t.Fatalf("ProductionBalance rows = %d, want one per period", got)
	}
	if got := len(m.RowsNamed("DisposalIntake")); got != 2 {
		t.Fatalf("DisposalIntake rows = %d, want one per period", got)
	}
	obj, ok := m.ActiveObjective()
	if !ok || obj.Kind != model.ObjectiveCost {
		t.Fatalf("active objective = %v, want cost", obj)
	}

	solveWith(t, m)

	// All produced water is routed to disposal; relief stays unused.
	for _, tc := range []struct {
		period string
		want   float64
	}{{"T01", 100}, {"T02", 80}} {
		if got := m.Value(model.VarPiped, "PP01", "K01", tc.period); math.Abs(got-tc.want) > 1e-6 {
			t.Fatalf("piped flow in %s = %v, want %v", tc.period, got, tc.want)
		}
		if got := m.Value(model.VarDisposal, "K01", tc.period); math.Abs(got-tc.want) > 1e-6 {
			t.Fatalf("disposed volume in %s = %v, want %v", tc.period, got, tc.want)
		}
	}
	for _, v := range m.Columns() {
		if strings.HasPrefix(v.Name, "v_S_") && v.Value > 1e-6 {
			t.Fatalf("slack %s active at %v in a feasible scenario", v.ID(), v.Value)
		}
	}
}

func TestAssembleExpansionForcedBySupply(t *testing.T) {
	sets, params := twoNodeCase()
	// Supply above the initial disposal capacity forces an increment.
	params[model.ParamProductionRates] = map[model.Key]float64{
		model.K("PP01", "T01"): 300,
		model.K("PP01", "T02"): 300,
	}
	params[model.ParamInitialPipelineCapacity] = map[model.Key]float64{model.K("PP01", "K01"): 400}
	sets[model.SetDisposalIncrements] = []string{"I0"}
	params[model.ParamDisposalIncrementSize] = map[model.Key]float64{model.K("I0"): 200}
	params[model.ParamDisposalIncrementCost] = map[model.Key]float64{model.K("K01", "I0"): 1000}

	m, err := Assemble(sets, params, model.DefaultConfig())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	solveWith(t, m)

	if got := m.Value(model.VarDisposalExpansion, "K01", "I0"); math.Abs(got-1) > 1e-6 {
		t.Fatalf("expansion selection = %v, want 1", got)
	}
	if got := m.Value(model.VarDisposal, "K01", "T01"); math.Abs(got-300) > 1e-6 {
		t.Fatalf("disposed volume = %v, want 300 after expansion", got)
	}
}

func TestAssembleRejectsOverloadedPeriod(t *testing.T) {
	sets, params := twoNodeCase()
	params[model.ParamProductionRates][model.K("PP01", "T02")] = 1000

	_, err := Assemble(sets, params, model.DefaultConfig())
	if err == nil {
		t.Fatal("expected a structural-infeasibility error")
	}
	if !errors.IsType(err, errors.TypeDataInfeasibility) {
		t.Fatalf("error type = %v, want data infeasibility", err)
	}
	if !strings.Contains(err.Error(), "T02") {
		t.Fatalf("error %q does not name the overloaded period", err)
	}
	if strings.Contains(err.Error(), "T01") {
		t.Fatalf("error %q names a period that is fine", err)
	}
}

func TestAssembleAggregatesValidationErrors(t *testing.T) {
	_, err := Assemble(map[string][]string{}, nil, model.DefaultConfig())
	if err == nil {
		t.Fatal("expected validation errors for an empty case")
	}
	for _, frag := range []string{model.SetTimePeriods, "transport arcs", "enters the system"} {
		if !strings.Contains(err.Error(), frag) {
			t.Fatalf("aggregated error %q does not mention %q", err, frag)
		}
	}
}

func TestDirectionExclusivity(t *testing.T) {
	sets, params := twoNodeCase()
	sets[model.SetPipingArcs] = []string{"PP01,K01", "K01,PP01"}
	params[model.ParamInitialPipelineCapacity][model.K("K01", "PP01")] = 200
	params[model.ParamPipingRate][model.K("K01", "PP01")] = 0.5

	m, err := Assemble(sets, params, model.DefaultConfig())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if got := len(m.RowsNamed("FlowDirectionForward")); got != 2 {
		t.Fatalf("FlowDirectionForward rows = %d, want one per period", got)
	}
	if got := len(m.VarsNamed(model.VarFlowDirection)); got != 2 {
		t.Fatalf("direction binaries = %d, want one per period", got)
	}

	solveWith(t, m)

	// Water only has a reason to flow toward disposal; the reverse arc
	// must be shut by the indicator.
	for _, period := range []string{"T01", "T02"} {
		fwd := m.Value(model.VarPiped, "PP01", "K01", period)
		rev := m.Value(model.VarPiped, "K01", "PP01", period)
		if fwd > 1e-6 && rev > 1e-6 {
			t.Fatalf("period %s: both directions flow (%v, %v)", period, fwd, rev)
		}
	}
}
