package quality

import (
	"context"
	"testing"

	"pwnet/core/model"
	"pwnet/solvers"
	"pwnet/internal/errors"
)

func testRegistry() *model.Registry {
	sets := map[string][]string{
		model.SetTimePeriods:       {"T01", "T02"},
		model.SetProductionPads:    {"PP01"},
		model.SetNetworkNodes:      {"N01"},
		model.SetDisposalSites:     {"K01"},
		model.SetTreatmentSites:    {"R01"},
		model.SetQualityComponents: {"TDS"},
		model.SetPipingArcs:        {"PP01,N01", "N01,K01", "N01,R01"},
	}
	params := map[string]map[model.Key]float64{
		model.ParamSourceQuality: {
			model.K("PP01", "TDS"): 20,
		},
		model.ParamInitialDisposalCapacity: {
			model.K("K01"): 500,
		},
		model.ParamInitialTreatmentCapacity: {
			model.K("R01"): 500,
		},
		model.ParamRemovalEfficiency: {
			model.K("R01", "TDS"): 0.9,
		},
	}
	return model.NewRegistry(sets, params)
}

func TestLadderSpansSourceRange(t *testing.T) {
	sets := map[string][]string{model.SetQualityComponents: {"TDS"}}
	params := map[string]map[model.Key]float64{
		model.ParamSourceQuality: {
			model.K("PP01", "TDS"): 10,
			model.K("PP02", "TDS"): 30,
			model.K("PP03", "TDS"): 25,
		},
	}
	reg := model.NewRegistry(sets, params)

	got := ladder(reg, "TDS", 3)
	want := []float64{10, 20, 30}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ladder[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLadderDegenerateRange(t *testing.T) {
	sets := map[string][]string{model.SetQualityComponents: {"TDS"}}
	params := map[string]map[model.Key]float64{
		model.ParamSourceQuality: {model.K("PP01", "TDS"): 15},
	}
	reg := model.NewRegistry(sets, params)

	for _, v := range ladder(reg, "TDS", 4) {
		if v != 15 {
			t.Fatalf("degenerate ladder produced %v, want 15", v)
		}
	}
}

func flowModel(t *testing.T, reg *model.Registry) *model.Model {
	t.Helper()
	m := model.New("test", reg, model.DefaultConfig())
	m.BigM = 1000
	for _, a := range reg.Arcs(model.SetPipingArcs) {
		for _, tp := range reg.Periods() {
			m.NewVar(model.VarPiped, model.Continuous, 0, model.Inf(), a.From, a.To, tp)
		}
	}
	for _, tp := range reg.Periods() {
		m.NewVar(model.VarDisposal, model.Continuous, 0, model.Inf(), "K01", tp)
		m.NewVar(model.VarTreated, model.Continuous, 0, model.Inf(), "R01", tp)
	}
	return m
}

func TestDiscretePrepareStructure(t *testing.T) {
	reg := testRegistry()
	m := flowModel(t, reg)

	if err := NewDiscrete(3).Prepare(m); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	// Every variable-quality location selects exactly one bucket per
	// component and period.
	if c := m.Constraint("QualityBucketSelection", "N01", "TDS", "T01"); c == nil {
		t.Fatal("missing bucket selection for N01")
	} else if !c.IsEquality() || c.Lo != 1 {
		t.Fatalf("selection row is not a one-hot equality: [%v, %v]", c.Lo, c.Hi)
	}

	// Flows out of the variable-quality node are disaggregated; flows out
	// of the fixed-quality production pad are not.
	if m.Constraint("DiscretePipedSum", "N01", "K01", "T01", "TDS") == nil {
		t.Fatal("flow out of N01 was not disaggregated")
	}
	if m.Constraint("DiscretePipedSum", "PP01", "N01", "T01", "TDS") != nil {
		t.Fatal("flow out of fixed-quality PP01 should not be disaggregated")
	}

	// Three sub-flows per disaggregated stage, each gated by its bucket.
	for q := 0; q < 3; q++ {
		if m.Var(model.VarPipedQ, "N01", "K01", "T01", "TDS", bucketID(q)) == nil {
			t.Fatalf("missing sub-flow for bucket %d", q)
		}
	}

	if m.Constraint("NodeQualityBalance", "N01", "TDS", "T01") == nil {
		t.Fatal("missing node load balance")
	}
	if m.Constraint("TreatmentQualityBalance", "R01", "TDS", "T01") == nil {
		t.Fatal("missing treatment load balance")
	}
}

func TestDiscreteSubFlowsSumToParent(t *testing.T) {
	reg := testRegistry()
	m := flowModel(t, reg)
	if err := NewDiscrete(3).Prepare(m); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	parent := m.Var(model.VarPiped, "N01", "K01", "T01")
	parent.Value = 120
	for q, share := range []float64{0, 120, 0} {
		m.Var(model.VarPipedQ, "N01", "K01", "T01", "TDS", bucketID(q)).Value = share
	}
	c := m.Constraint("DiscretePipedSum", "N01", "K01", "T01", "TDS")
	if v := c.Violation(); v > 1e-9 {
		t.Fatalf("sum row violated by %v with consistent sub-flows", v)
	}

	m.Var(model.VarPipedQ, "N01", "K01", "T01", "TDS", bucketID(1)).Value = 100
	if v := c.Violation(); v < 19 {
		t.Fatalf("sum row should be violated by about 20, got %v", v)
	}
}

func TestDiscreteGuessInitialFixesSelections(t *testing.T) {
	reg := testRegistry()
	m := flowModel(t, reg)
	d := NewDiscrete(3)
	if err := d.Prepare(m); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	d.GuessInitial(m)

	for _, z := range m.VarsNamed(model.VarQualityBucket) {
		if z.Lo != z.Hi {
			t.Fatalf("selection %s not fixed after initial guess", z.ID())
		}
	}
	// The single source sits at 20, so the middle ladder value wins.
	if z := m.Var(model.VarQualityBucket, "N01", "TDS", bucketID(1), "T01"); z.Lo != 1 {
		t.Fatal("expected the middle bucket to be the initial guess")
	}
}

func solvedTreatmentFlows(t *testing.T, mode model.RemovalEfficiencyMode) *model.Model {
	t.Helper()
	reg := testRegistry()
	cfg := model.DefaultConfig()
	cfg.RemovalEfficiency = mode
	m := model.New("test", reg, cfg)
	m.BigM = 1000

	set := func(name string, val float64, idx ...string) {
		m.NewVar(name, model.Continuous, 0, model.Inf(), idx...).Value = val
	}
	for _, tp := range reg.Periods() {
		set(model.VarPiped, 100, "PP01", "N01", tp)
		set(model.VarPiped, 0, "N01", "K01", tp)
		set(model.VarPiped, 100, "N01", "R01", tp)
		set(model.VarDisposal, 0, "K01", tp)
		set(model.VarTreated, 80, "R01", tp)
	}
	return m
}

func TestContinuousRemovalModes(t *testing.T) {
	cases := []struct {
		mode       model.RemovalEfficiencyMode
		wantOutlet float64
		wantInlet  float64
	}{
		// Concentration-based: outlet == (1-eff) * inlet.
		{model.RemovalConcentrationBased, 1, -0.1},
		// Load-based: treated * outlet == (1-eff) * inflow * inlet.
		{model.RemovalLoadBased, 80, -10},
	}
	for _, tc := range cases {
		flows := solvedTreatmentFlows(t, tc.mode)
		sub := model.New("quality", flows.Registry, flows.Cfg)
		b := &continuousBuilder{flows: flows, sub: sub, reg: flows.Registry, comps: []string{"TDS"}}
		if err := b.build(); err != nil {
			t.Fatalf("%s: build: %v", tc.mode, err)
		}

		c := sub.Constraint("TreatmentRemoval", "R01", "TDS", "T01")
		if c == nil {
			t.Fatalf("%s: missing removal row", tc.mode)
		}
		outlet := sub.Var(model.VarQuality, "R01", "TDS", "T01")
		inlet := sub.Var(varTreatmentInlet, "R01", "TDS", "T01")
		if got := c.Expr.Terms[outlet]; got != tc.wantOutlet {
			t.Fatalf("%s: outlet coefficient = %v, want %v", tc.mode, got, tc.wantOutlet)
		}
		if got := c.Expr.Terms[inlet]; got != tc.wantInlet {
			t.Fatalf("%s: inlet coefficient = %v, want %v", tc.mode, got, tc.wantInlet)
		}
	}
}

func TestContinuousNodeBlend(t *testing.T) {
	flows := solvedTreatmentFlows(t, model.RemovalConcentrationBased)
	sub := model.New("quality", flows.Registry, flows.Cfg)
	b := &continuousBuilder{flows: flows, sub: sub, reg: flows.Registry, comps: []string{"TDS"}}
	if err := b.build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	// The node receives 100 units at fixed concentration 20: the blend
	// row is 100*20 - 100*Q == 0, so Q == 20 satisfies it.
	c := sub.Constraint("NodeQualityBlend", "N01", "TDS", "T01")
	if c == nil {
		t.Fatal("missing node blend row")
	}
	sub.Var(model.VarQuality, "N01", "TDS", "T01").Value = 20
	if v := c.Violation(); v > 1e-9 {
		t.Fatalf("node blend violated by %v at the exact blend concentration", v)
	}

	// The disposal site receives nothing this period: no blend row.
	if sub.Constraint("SinkQualityBlend", "K01", "TDS", "T01") != nil {
		t.Fatal("zero-inflow sink should not get a blend row")
	}
}

func TestStageUpperBoundStoragePassThrough(t *testing.T) {
	sets := map[string][]string{
		model.SetTimePeriods:       {"T01"},
		model.SetNetworkNodes:      {"N01"},
		model.SetStorageSites:      {"S01"},
		model.SetDisposalSites:     {"K01"},
		model.SetQualityComponents: {"TDS"},
		model.SetPipingArcs:        {"N01,S01", "S01,K01"},
	}
	params := map[string]map[model.Key]float64{
		model.ParamInitialStorageCapacity: {model.K("S01"): 10},
		model.ParamInitialPipelineCapacity: {
			model.K("N01", "S01"): 100,
			model.K("S01", "K01"): 100,
		},
	}
	m := model.New("test", model.NewRegistry(sets, params), model.DefaultConfig())
	m.BigM = 1000

	// The level recursion allows same-period pass-through: an outflow of
	// 100 is feasible against a 10-unit vessel (0 + 100 - 100 = 0), so
	// the stage bound must cover the inbound feed on top of the vessel.
	if got := stageUpperBound(m, "S01"); got < 110 {
		t.Fatalf("stageUpperBound(S01) = %v, cuts off feasible pass-through of 100", got)
	}
}

func TestStageUpperBoundStorageTruckedFeed(t *testing.T) {
	sets := map[string][]string{
		model.SetTimePeriods:       {"T01"},
		model.SetStorageSites:      {"S01"},
		model.SetQualityComponents: {"TDS"},
		model.SetTruckingArcs:      {"N01,S01"},
	}
	params := map[string]map[model.Key]float64{
		model.ParamInitialStorageCapacity: {model.K("S01"): 10},
	}
	m := model.New("test", model.NewRegistry(sets, params), model.DefaultConfig())
	m.BigM = 1000

	// Trucked feed is uncapacitated, so the bound saturates network-wide.
	if got := stageUpperBound(m, "S01"); got != m.BigM {
		t.Fatalf("stageUpperBound(S01) = %v, want BigM %v for uncapacitated feed", got, m.BigM)
	}
}

func TestFinalizeRejectsInfeasibleInput(t *testing.T) {
	reg := testRegistry()
	m := flowModel(t, reg)
	v := m.Var(model.VarPiped, "PP01", "N01", "T01")
	if _, err := m.AddEq("ProductionBalance", model.K("PP01", "T01"), model.NewExpr().AddTerm(v, 1), 50); err != nil {
		t.Fatalf("AddEq: %v", err)
	}
	v.Value = 0 // violates the balance

	_, err := NewPostProcess().Finalize(context.Background(), m, nil, solvers.Options{})
	if err == nil {
		t.Fatal("expected a loud failure on an infeasible input solution")
	}
	if !errors.IsType(err, errors.TypeModel) {
		t.Fatalf("expected a model error, got %v", err)
	}
}
