package timing

import (
	"testing"

	"pwnet/core/model"
)

func timingModel(t *testing.T) *model.Model {
	t.Helper()
	sets := map[string][]string{
		model.SetTimePeriods:        {"T01", "T02", "T03", "T04"},
		model.SetDisposalSites:      {"K01"},
		model.SetStorageSites:       {"S01"},
		model.SetPipingArcs:         {"N01,K01"},
		model.SetDisposalIncrements: {"I1"},
	}
	params := map[string]map[model.Key]float64{
		model.ParamInitialDisposalCapacity: {model.K("K01"): 100},
		model.ParamInitialPipelineCapacity: {model.K("N01", "K01"): 100},
		model.ParamDisposalLeadTime:        {model.K("K01"): 1.5},
		model.ParamPipelineLeadTime:        {model.K("N01", "K01"): 6},
	}
	m := model.New("timing-test", model.NewRegistry(sets, params), model.DefaultConfig())
	for _, tp := range []string{"T01", "T02", "T03", "T04"} {
		m.NewVar(model.VarDisposal, model.Continuous, 0, model.Inf(), "K01", tp)
		m.NewVar(model.VarPiped, model.Continuous, 0, model.Inf(), "N01", "K01", tp)
	}
	return m
}

func TestBuildStartWithinHorizon(t *testing.T) {
	m := timingModel(t)
	m.NewVar(model.VarDisposalExpansion, model.Binary, 0, 1, "K01", "I1").Value = 1
	// Disposal exceeds the initial 100 in T03 for the first time.
	m.Var(model.VarDisposal, "K01", "T01").Value = 80
	m.Var(model.VarDisposal, "K01", "T02").Value = 100
	m.Var(model.VarDisposal, "K01", "T03").Value = 150
	m.Var(model.VarDisposal, "K01", "T04").Value = 150

	sched := ComputeBuildStarts(m)
	if len(sched) != 1 {
		t.Fatalf("got %d events, want 1", len(sched))
	}
	ev := sched[0]
	if ev.Kind != KindDisposal || ev.FirstNeeded != "T03" {
		t.Fatalf("event = %+v, want disposal needed in T03", ev)
	}
	// A 1.5-period lead rounds up to 2 whole periods: start in T01.
	if ev.LeadPeriods != 2 || ev.Start != "T01" {
		t.Fatalf("start = %q with lead %d, want T01 with lead 2", ev.Start, ev.LeadPeriods)
	}
}

func TestBuildStartBeforeHorizon(t *testing.T) {
	m := timingModel(t)
	m.NewVar(model.VarPipelineExpansion, model.Binary, 0, 1, "N01", "K01", "D8").Value = 1
	// The pipeline is over capacity from T02 on, and the lead time is
	// six periods: construction reaches back before the horizon.
	m.Var(model.VarPiped, "N01", "K01", "T02").Value = 250
	m.Var(model.VarPiped, "N01", "K01", "T03").Value = 250

	sched := ComputeBuildStarts(m)
	if len(sched) != 1 {
		t.Fatalf("got %d events, want 1", len(sched))
	}
	ev := sched[0]
	if ev.FirstNeeded != "T02" {
		t.Fatalf("first needed = %q, want T02", ev.FirstNeeded)
	}
	if ev.Start != "5 periods prior to T01" {
		t.Fatalf("start = %q, want a pre-horizon rendering", ev.Start)
	}
}

func TestUnselectedExpansionsProduceNoEvents(t *testing.T) {
	m := timingModel(t)
	m.NewVar(model.VarDisposalExpansion, model.Binary, 0, 1, "K01", "I1").Value = 0

	if sched := ComputeBuildStarts(m); len(sched) != 0 {
		t.Fatalf("got %d events for an unselected expansion, want 0", len(sched))
	}
}

func TestNeverExceededCapacityLeavesStartEmpty(t *testing.T) {
	m := timingModel(t)
	m.NewVar(model.VarDisposalExpansion, model.Binary, 0, 1, "K01", "I1").Value = 1
	for _, tp := range []string{"T01", "T02", "T03", "T04"} {
		m.Var(model.VarDisposal, "K01", tp).Value = 50
	}

	sched := ComputeBuildStarts(m)
	if len(sched) != 1 {
		t.Fatalf("got %d events, want 1", len(sched))
	}
	if sched[0].FirstNeeded != "" || sched[0].Start != "" {
		t.Fatalf("event = %+v, want empty start when capacity is never needed", sched[0])
	}
}
