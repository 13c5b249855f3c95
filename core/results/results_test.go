package results

import (
	"bytes"
	"encoding/json"
	"testing"

	"pwnet/core/model"
	"pwnet/solvers"
)

func solvedModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New("results-test", model.NewRegistry(nil, nil), model.DefaultConfig())
	set := func(name string, value float64, idx ...string) {
		m.NewVar(name, model.Continuous, 0, model.Inf(), idx...).Value = value
	}
	set(model.VarTotalPiping, 1200.505)
	set(model.VarTotalDisposal, 300.25)
	set(model.VarTotalReuseCredit, 100.10)
	set(model.VarPiped, 75, "PP01", "N01", "T01")
	set(model.VarPiped, 0, "PP01", "N01", "T02")
	return m
}

func TestCostSummaryTotals(t *testing.T) {
	cs := NewCostSummary(solvedModel(t))

	if len(cs.Lines) != 2 {
		t.Fatalf("got %d cost lines, want 2 (absent totals are skipped)", len(cs.Lines))
	}
	if got := cs.Total.String(); got != "1500.76" {
		t.Fatalf("total = %s, want 1500.76", got)
	}
	if len(cs.Credits) != 1 {
		t.Fatalf("got %d credit lines, want 1", len(cs.Credits))
	}
	// Decimal arithmetic: 1500.76 - 100.1 exactly.
	if got := cs.Net.String(); got != "1400.66" {
		t.Fatalf("net = %s, want 1400.66", got)
	}
}

func TestWriteJSONSkipsZeroFlows(t *testing.T) {
	m := solvedModel(t)
	r := &Result{
		Status:    solvers.StatusOptimal,
		Objective: 1400.66,
		Model:     m,
		Costs:     NewCostSummary(m),
	}
	r.Warn("demand slack active at CP01 in T02")

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var out struct {
		Status   string             `json:"status"`
		Flows    map[string]float64 `json:"flows"`
		Warnings []string           `json:"warnings"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Status != "optimal" {
		t.Fatalf("status = %q, want optimal", out.Status)
	}
	if len(out.Flows) != 1 {
		t.Fatalf("flows = %v, want only the nonzero arc", out.Flows)
	}
	if out.Flows["v_F_Piped[PP01,N01,T01]"] != 75 {
		t.Fatalf("missing the nonzero piped flow: %v", out.Flows)
	}
	if len(out.Warnings) != 1 {
		t.Fatalf("warnings = %v, want 1 entry", out.Warnings)
	}
}

func TestValueQueriesModel(t *testing.T) {
	m := solvedModel(t)
	r := &Result{Model: m}
	if got := r.Value(model.VarPiped, "PP01", "N01", "T01"); got != 75 {
		t.Fatalf("Value = %v, want 75", got)
	}
	if got := (&Result{}).Value(model.VarPiped, "PP01", "N01", "T01"); got != 0 {
		t.Fatalf("nil-model Value = %v, want 0", got)
	}
}
