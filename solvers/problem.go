package solvers

import (
	"pwnet/core/model"
	"pwnet/internal/errors"
)

// Row is one exported constraint in bounded form: Lo <= coefs . x <= Hi.
// Coefs is sparse, keyed by column.
type Row struct {
	Name  string
	Coefs map[int]float64
	Lo    float64
	Hi    float64
}

// Problem is the backend-neutral export of a model: columns in creation
// order, active rows in bounded form, and the objective column to
// minimize. The objective's defining equality is among the rows, so
// minimizing its value column minimizes the objective expression.
type Problem struct {
	Cols []*model.Var
	Rows []Row

	// ObjCol is the column index of the active objective variable.
	ObjCol int
}

// Export flattens a model into a Problem. It fails when no objective is
// active: a model without a selected objective cannot be solved.
func Export(m *model.Model) (*Problem, error) {
	obj, ok := m.ActiveObjective()
	if !ok {
		return nil, errors.Newf(errors.TypeSolver, "model %s has no active objective", m.Name)
	}
	p := &Problem{
		Cols:   m.Columns(),
		ObjCol: obj.Var.Column,
	}
	for _, c := range m.ActiveRows() {
		row := Row{
			Name:  c.ID(),
			Coefs: make(map[int]float64, c.Expr.Len()),
			Lo:    c.Lo,
			Hi:    c.Hi,
		}
		for v, coef := range c.Expr.Terms {
			row.Coefs[v.Column] += coef
		}
		p.Rows = append(p.Rows, row)
	}
	return p, nil
}

// IntegerCols returns the column indices of discrete variables.
func (p *Problem) IntegerCols() []int {
	var out []int
	for i, v := range p.Cols {
		if v.IsDiscrete() {
			out = append(out, i)
		}
	}
	return out
}

// StartValues returns the warm-start vector and whether every column
// carries a start value.
func (p *Problem) StartValues() ([]float64, bool) {
	out := make([]float64, len(p.Cols))
	complete := true
	for i, v := range p.Cols {
		if !v.HasStart {
			complete = false
			continue
		}
		out[i] = v.Start
	}
	return out, complete
}
