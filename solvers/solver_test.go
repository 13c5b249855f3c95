package solvers

import (
	"context"
	"testing"

	"pwnet/core/model"
)

type fakeSolver struct {
	name      string
	available bool
}

func (f *fakeSolver) Name() string    { return f.name }
func (f *fakeSolver) Available() bool { return f.available }
func (f *fakeSolver) Solve(context.Context, *model.Model, Options) (*Solution, error) {
	return &Solution{Status: StatusOptimal}, nil
}

func TestFirstAvailableSkipsUnavailable(t *testing.T) {
	Register(&fakeSolver{name: "absent-backend", available: false})
	Register(&fakeSolver{name: "present-backend", available: true})

	s, err := FirstAvailable([]string{"absent-backend", "present-backend"})
	if err != nil {
		t.Fatalf("FirstAvailable: %v", err)
	}
	if s.Name() != "present-backend" {
		t.Fatalf("picked %s, want present-backend", s.Name())
	}
}

func TestFirstAvailableSkipsUnknownNames(t *testing.T) {
	s, err := FirstAvailable([]string{"no-such-backend", "present-backend"})
	if err != nil {
		t.Fatalf("FirstAvailable: %v", err)
	}
	if s.Name() != "present-backend" {
		t.Fatalf("picked %s, want present-backend", s.Name())
	}
}

func TestFirstAvailableFailsWhenNoneRun(t *testing.T) {
	if _, err := FirstAvailable([]string{"absent-backend"}); err == nil {
		t.Fatal("expected an error when no candidate is available")
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("never-registered"); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestExportUsesActiveRowsOnly(t *testing.T) {
	m := model.New("export", model.NewRegistry(nil, nil), model.DefaultConfig())
	x := m.NewVar("x", model.Continuous, 0, 10)
	c, err := m.AddLe("cap", "", model.NewExpr().AddTerm(x, 1), 5)
	if err != nil {
		t.Fatalf("AddLe: %v", err)
	}
	if err := m.DefineObjective(model.ObjectiveCost, model.NewExpr().AddTerm(x, 1)); err != nil {
		t.Fatalf("DefineObjective: %v", err)
	}
	if err := m.SetObjective(model.ObjectiveCost); err != nil {
		t.Fatalf("SetObjective: %v", err)
	}

	p, err := Export(m)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(p.Rows) != 2 { // cap + objective definition
		t.Fatalf("exported %d rows, want 2", len(p.Rows))
	}

	c.Active = false
	p, err = Export(m)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(p.Rows) != 1 {
		t.Fatalf("exported %d rows after deactivation, want 1", len(p.Rows))
	}
}

func TestExportRequiresObjective(t *testing.T) {
	m := model.New("noobj", model.NewRegistry(nil, nil), model.DefaultConfig())
	m.NewVar("x", model.Continuous, 0, 1)
	if _, err := Export(m); err == nil {
		t.Fatal("expected an error when no objective is active")
	}
}
