package scaling

import (
	"math"
	"testing"

	"pwnet/core/model"
)

func buildModel(t *testing.T) (*model.Model, *model.Var, *model.Var, *model.Constraint) {
	t.Helper()
	m := model.New("scale-test", model.NewRegistry(nil, nil), model.DefaultConfig())
	flow := m.NewVar("v_F_Piped", model.Continuous, 0, 50000, "A", "B", "T01")
	open := m.NewVar("vb_y_Pipeline", model.Binary, 0, 1, "A", "B", "D1")
	c, err := m.AddLe("PipelineCapacityLimit", model.K("A", "B", "T01"),
		model.NewExpr().AddTerm(flow, 1).AddTerm(open, -50000), 0)
	if err != nil {
		t.Fatalf("AddLe: %v", err)
	}
	return m, flow, open, c
}

func TestApplyKeepsBinariesUnitScaled(t *testing.T) {
	m, flow, open, _ := buildModel(t)
	tr, err := Apply(m, 1000)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer tr.Restore(m)

	if open.Scale != 1 || open.Lo != 0 || open.Hi != 1 {
		t.Fatalf("binary column was rescaled: scale=%v bounds=[%v,%v]", open.Scale, open.Lo, open.Hi)
	}
	if flow.Scale != 1000 {
		t.Fatalf("flow scale = %v, want 1000", flow.Scale)
	}
	if flow.Hi != 50 {
		t.Fatalf("flow upper bound = %v, want 50", flow.Hi)
	}
}

func TestApplyNormalizesRowMagnitude(t *testing.T) {
	m, _, _, c := buildModel(t)
	tr, err := Apply(m, 1000)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer tr.Restore(m)

	maxAbs := 0.0
	for _, coef := range c.Expr.Terms {
		if a := math.Abs(coef); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs < 0.1 || maxAbs > 10 {
		t.Fatalf("scaled row magnitude %v is not near one", maxAbs)
	}
}

func TestRoundTrip(t *testing.T) {
	m, flow, open, c := buildModel(t)
	origFlow := c.Expr.Terms[flow]
	origOpen := c.Expr.Terms[open]
	origHi := c.Hi
	origFlowHi := flow.Hi

	tr, err := Apply(m, 1000)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	tr.Restore(m)

	if math.Abs(c.Expr.Terms[flow]-origFlow) > 1e-6 {
		t.Fatalf("flow coefficient drifted: %v != %v", c.Expr.Terms[flow], origFlow)
	}
	if math.Abs(c.Expr.Terms[open]-origOpen) > 1e-6 {
		t.Fatalf("binary coefficient drifted: %v != %v", c.Expr.Terms[open], origOpen)
	}
	if math.Abs(c.Hi-origHi) > 1e-6 {
		t.Fatalf("row bound drifted: %v != %v", c.Hi, origHi)
	}
	if math.Abs(flow.Hi-origFlowHi) > 1e-6 {
		t.Fatalf("column bound drifted: %v != %v", flow.Hi, origFlowHi)
	}
	if flow.Scale != 1 || c.Scale != 1 {
		t.Fatal("scale fields not reset after restore")
	}
}

func TestPropagateSolution(t *testing.T) {
	m, flow, open, _ := buildModel(t)
	tr, err := Apply(m, 1000)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// A scaled solve returns values in scaled units.
	flow.Value = 12.5
	open.Value = 1
	tr.PropagateSolution(m)
	tr.Restore(m)

	if flow.Value != 12500 {
		t.Fatalf("flow value = %v, want 12500", flow.Value)
	}
	if open.Value != 1 {
		t.Fatalf("binary value = %v, want 1", open.Value)
	}
}

func TestSlackColumnsScaleHarder(t *testing.T) {
	m := model.New("slack-test", model.NewRegistry(nil, nil), model.DefaultConfig())
	slack := m.NewVar("v_S_Demand", model.Continuous, 0, model.Inf(), "CP01", "T01")
	if _, err := m.AddLe("cap", "", model.NewExpr().AddTerm(slack, 1), 10); err != nil {
		t.Fatalf("AddLe: %v", err)
	}

	tr, err := Apply(m, 1000)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer tr.Restore(m)

	if slack.Scale != 10000 {
		t.Fatalf("slack scale = %v, want 10000", slack.Scale)
	}
}

func TestApplyRejectsBadFactor(t *testing.T) {
	m, _, _, _ := buildModel(t)
	if _, err := Apply(m, 0); err == nil {
		t.Fatal("expected an error for a zero factor")
	}
}
