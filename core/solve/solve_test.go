package solve

import (
	"context"
	"math"
	"testing"

	"pwnet/core/build"
	"pwnet/core/model"
	"pwnet/solvers"
	_ "pwnet/solvers/simplex"
)

func newModel(t *testing.T, cfg model.Config) *model.Model {
	t.Helper()
	return model.New("solve-test", model.NewRegistry(nil, nil), cfg)
}

func setCostObjective(t *testing.T, m *model.Model, expr model.LinExpr) {
	t.Helper()
	if err := m.DefineObjective(model.ObjectiveCost, expr); err != nil {
		t.Fatalf("DefineObjective: %v", err)
	}
	if err := m.SetObjective(model.ObjectiveCost); err != nil {
		t.Fatalf("SetObjective: %v", err)
	}
}

func simplexOptions() Options {
	opts := DefaultOptions()
	opts.SolverCandidates = []string{"simplex"}
	return opts
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if len(opts.SolverCandidates) != 2 || opts.SolverCandidates[0] != "highs" || opts.SolverCandidates[1] != "simplex" {
		t.Fatalf("candidates = %v, want [highs simplex]", opts.SolverCandidates)
	}
	if opts.ScalingFactor != 1000 {
		t.Fatalf("scaling factor = %v, want 1000", opts.ScalingFactor)
	}
	if opts.DeactivateSlacks {
		t.Fatal("slacks should stay soft by default")
	}
}

func TestSolveDirect(t *testing.T) {
	m := newModel(t, model.DefaultConfig())
	flow := m.NewVar(model.VarPiped, model.Continuous, 0, 100, "PP01", "N01", "T01")
	if _, err := m.AddGe("Demand", model.K("N01", "T01"), model.NewExpr().AddTerm(flow, 1), 20); err != nil {
		t.Fatalf("AddGe: %v", err)
	}
	setCostObjective(t, m, model.NewExpr().AddTerm(flow, 2))

	res, err := Solve(context.Background(), m, simplexOptions())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Status != solvers.StatusOptimal {
		t.Fatalf("status = %v, want optimal", res.Status)
	}
	if math.Abs(res.Objective-40) > 1e-6 {
		t.Fatalf("objective = %v, want 40", res.Objective)
	}
	if v := flow.Value; math.Abs(v-20) > 1e-6 {
		t.Fatalf("flow = %v, want 20", v)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
}

func TestSolveInfeasibleIsWarningNotError(t *testing.T) {
	m := newModel(t, model.DefaultConfig())
	flow := m.NewVar(model.VarPiped, model.Continuous, 0, 100, "PP01", "N01", "T01")
	if _, err := m.AddGe("Demand", model.K("N01", "T01"), model.NewExpr().AddTerm(flow, 1), 200); err != nil {
		t.Fatalf("AddGe: %v", err)
	}
	setCostObjective(t, m, model.NewExpr().AddTerm(flow, 1))

	res, err := Solve(context.Background(), m, simplexOptions())
	if err != nil {
		t.Fatalf("infeasibility must not surface as an error, got %v", err)
	}
	if res.Status != solvers.StatusInfeasible {
		t.Fatalf("status = %v, want infeasible", res.Status)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a slack-relief recommendation warning")
	}
}

func TestSolveSlackModes(t *testing.T) {
	build := func() (*model.Model, *model.Var) {
		m := newModel(t, model.DefaultConfig())
		flow := m.NewVar(model.VarPiped, model.Continuous, 0, 100, "PP01", "N01", "T01")
		slack := m.NewVar("v_S_Demand", model.Continuous, 0, 1000, "N01", "T01")
		expr := model.NewExpr().AddTerm(flow, 1).AddTerm(slack, 1)
		if _, err := m.AddGe("Demand", model.K("N01", "T01"), expr, 150); err != nil {
			t.Fatalf("AddGe: %v", err)
		}
		setCostObjective(t, m, model.NewExpr().AddTerm(flow, 1).AddTerm(slack, 10))
		return m, slack
	}

	// Soft mode: the slack absorbs the shortfall and is reported.
	m, slack := build()
	res, err := Solve(context.Background(), m, simplexOptions())
	if err != nil {
		t.Fatalf("Solve(soft): %v", err)
	}
	if res.Status != solvers.StatusOptimal {
		t.Fatalf("soft status = %v, want optimal", res.Status)
	}
	if math.Abs(slack.Value-50) > 1e-6 {
		t.Fatalf("slack = %v, want 50", slack.Value)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("active slack must produce a warning")
	}

	// Hard mode: slacks pinned to zero makes the demand unmeetable.
	m, slack = build()
	opts := simplexOptions()
	opts.DeactivateSlacks = true
	res, err = Solve(context.Background(), m, opts)
	if err != nil {
		t.Fatalf("Solve(hard): %v", err)
	}
	if slack.Lo != 0 || slack.Hi != 0 {
		t.Fatalf("slack bounds = [%v, %v], want fixed to zero", slack.Lo, slack.Hi)
	}
	if res.Status != solvers.StatusInfeasible {
		t.Fatalf("hard status = %v, want infeasible", res.Status)
	}
}

func TestSolveSubsurfaceOnly(t *testing.T) {
	m := newModel(t, model.DefaultConfig())
	y := m.NewVar(model.VarCurtailment, model.Binary, 0, 1, "K01")
	d := m.NewVar(model.VarDisposal, model.Continuous, 0, 100, "K01", "T01")
	// Without curtailment the disposal site must take 40 units.
	expr := model.NewExpr().AddTerm(d, 1).AddTerm(y, 40)
	if _, err := m.AddGe("DisposalDemand", model.K("K01", "T01"), expr, 40); err != nil {
		t.Fatalf("AddGe: %v", err)
	}
	if err := m.DefineObjective(model.ObjectiveSubsurfaceRisk, model.NewExpr().AddTerm(d, 2).AddTerm(y, 5)); err != nil {
		t.Fatalf("DefineObjective(risk): %v", err)
	}
	setCostObjective(t, m, model.NewExpr().AddTerm(d, 1))

	opts := simplexOptions()
	opts.SubsurfaceOnly = true
	res, err := Solve(context.Background(), m, opts)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Status != solvers.StatusOptimal {
		t.Fatalf("status = %v, want optimal", res.Status)
	}
	// Curtailing K01 costs 5 against 80 for disposal, so it is selected
	// and fixed by the pre-solve.
	if y.Lo != 1 || y.Hi != 1 {
		t.Fatalf("curtailment bounds = [%v, %v], want fixed to 1", y.Lo, y.Hi)
	}
	if math.Abs(res.Objective-5) > 1e-6 {
		t.Fatalf("risk objective = %v, want 5", res.Objective)
	}
	if res.Costs != nil {
		t.Fatal("subsurface-only runs must not produce a cost summary")
	}
}

func TestSolveTwoPhaseDiscreteQuality(t *testing.T) {
	sets := map[string][]string{
		model.SetTimePeriods:       {"T01", "T02"},
		model.SetProductionPads:    {"PP01"},
		model.SetDisposalSites:     {"K01"},
		model.SetPipingArcs:        {"PP01,K01"},
		model.SetQualityComponents: {"TDS"},
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
		model.ParamSourceQuality:           {model.K("PP01", "TDS"): 20},
	}
	cfg := model.DefaultConfig()
	cfg.WaterQuality = model.QualityDiscrete
	cfg.QualityBuckets = 3

	m, err := build.Assemble(sets, params, cfg)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	flow := m.Var(model.VarPiped, "PP01", "K01", "T01")
	if flow == nil {
		t.Fatal("missing piped flow variable")
	}
	origLo, origHi := flow.Lo, flow.Hi

	res, err := Solve(context.Background(), m, simplexOptions())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Status != solvers.StatusOptimal {
		t.Fatalf("status = %v, want optimal", res.Status)
	}

	// The freeze bands from phase one must be gone after the joint solve.
	if flow.Lo != origLo || flow.Hi != origHi {
		t.Fatalf("flow bounds = [%v, %v], want [%v, %v] restored", flow.Lo, flow.Hi, origLo, origHi)
	}
	for _, z := range m.VarsNamed(model.VarQualityBucket) {
		if z.Lo != 0 || z.Hi != 1 {
			t.Fatalf("selection %s bounds = [%v, %v], want [0, 1] restored", z.ID(), z.Lo, z.Hi)
		}
	}

	// Flows match the continuous optimum; the quality block must not
	// distort the routing.
	for _, tc := range []struct {
		period string
		want   float64
	}{{"T01", 100}, {"T02", 80}} {
		if got := m.Value(model.VarPiped, "PP01", "K01", tc.period); math.Abs(got-tc.want) > 1e-6 {
			t.Fatalf("piped flow in %s = %v, want %v", tc.period, got, tc.want)
		}
	}

	// Exactly one bucket per location, component, and period.
	selected := 0.0
	for _, z := range m.VarsNamed(model.VarQualityBucket) {
		if math.Abs(z.Value) > 1e-6 && math.Abs(z.Value-1) > 1e-6 {
			t.Fatalf("selection %s = %v, want integral", z.ID(), z.Value)
		}
		selected += z.Value
	}
	if math.Abs(selected-2) > 1e-6 {
		t.Fatalf("selections active = %v, want one per period", selected)
	}

	// A single 20-unit source makes every bucket value 20.
	if res.Quality == nil || res.Quality.Mode != model.QualityDiscrete {
		t.Fatalf("quality report = %+v, want discrete mode", res.Quality)
	}
	if got := res.Quality.Value("K01", "TDS", "T01"); got != 20 {
		t.Fatalf("disposal quality = %v, want the source concentration 20", got)
	}
}

func TestSolveScalingRoundTrip(t *testing.T) {
	m := newModel(t, model.DefaultConfig())
	flow := m.NewVar(model.VarPiped, model.Continuous, 0, 50000, "PP01", "N01", "T01")
	if _, err := m.AddGe("Demand", model.K("N01", "T01"), model.NewExpr().AddTerm(flow, 1), 20000); err != nil {
		t.Fatalf("AddGe: %v", err)
	}
	setCostObjective(t, m, model.NewExpr().AddTerm(flow, 1))

	opts := simplexOptions()
	opts.ApplyScaling = true
	res, err := Solve(context.Background(), m, opts)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Status != solvers.StatusOptimal {
		t.Fatalf("status = %v, want optimal", res.Status)
	}
	if math.Abs(flow.Value-20000) > 1e-3 {
		t.Fatalf("flow = %v, want 20000 in original units", flow.Value)
	}
	if flow.Hi != 50000 {
		t.Fatalf("flow.Hi = %v, bounds not restored after solve", flow.Hi)
	}
	if math.Abs(res.Objective-20000) > 1e-3 {
		t.Fatalf("objective = %v, want 20000", res.Objective)
	}
}

func TestSolveUnknownSolverFails(t *testing.T) {
	m := newModel(t, model.DefaultConfig())
	flow := m.NewVar(model.VarPiped, model.Continuous, 0, 1, "PP01", "N01", "T01")
	setCostObjective(t, m, model.NewExpr().AddTerm(flow, 1))

	opts := DefaultOptions()
	opts.SolverCandidates = []string{"no-such-backend"}
	if _, err := Solve(context.Background(), m, opts); err == nil {
		t.Fatal("expected an error when no candidate backend exists")
	}
}
