package model

import (
	"pwnet/internal/errors"
)

// Objective is one candidate objective: its value variable and the
// defining equality constraint (v_Z == expression).
type Objective struct {
	Kind ObjectiveKind
	Var  *Var
	Def  *Constraint
}

// Model is the owned container that accumulates named, typed collections
// of variables and constraints over the course of assembly, later
// queried by name. It is single-owner: nothing mutates it concurrently
// with a solve.
type Model struct {
	Name string

	// Cfg is the configuration the model was assembled under.
	Cfg Config

	// Registry is the entity registry the model was assembled from.
	Registry *Registry

	// BigM is the conditional-constraint relaxation constant, derived
	// from the largest plausible flow in the network.
	BigM float64

	vars    []*Var
	varByID map[string]*Var

	cons    []*Constraint
	conByID map[string]*Constraint

	objectives map[ObjectiveKind]*Objective
	active     ObjectiveKind
}

// New creates an empty model bound to a registry and configuration.
func New(name string, reg *Registry, cfg Config) *Model {
	return &Model{
		Name:       name,
		Cfg:        cfg,
		Registry:   reg,
		varByID:    make(map[string]*Var),
		conByID:    make(map[string]*Constraint),
		objectives: make(map[ObjectiveKind]*Objective),
	}
}

// NewVar creates a variable, or returns the existing one when the same
// name/index was already created. Binary variables get [0,1] bounds
// regardless of the supplied pair.
func (m *Model) NewVar(name string, kind VarKind, lo, hi float64, idx ...string) *Var {
	key := K(idx...)
	id := qualifiedID(name, key)
	if v, ok := m.varByID[id]; ok {
		return v
	}
	if kind == Binary {
		lo, hi = 0, 1
	}
	v := &Var{
		Name:   name,
		Index:  key,
		Kind:   kind,
		Lo:     lo,
		Hi:     hi,
		Scale:  1,
		Column: len(m.vars),
	}
	m.vars = append(m.vars, v)
	m.varByID[id] = v
	return v
}

// Var looks up a variable by name and index, or nil.
func (m *Model) Var(name string, idx ...string) *Var {
	return m.varByID[qualifiedID(name, K(idx...))]
}

// Value returns the solved value of a variable, or 0 when it does not
// exist. This is the query handle handed to the report generator.
func (m *Model) Value(name string, idx ...string) float64 {
	if v := m.Var(name, idx...); v != nil {
		return v.Value
	}
	return 0
}

// AddRow adds a constraint lo <= expr <= hi. The expression's constant
// is folded into the bounds. A row without any variable term is
// degenerate and rejected: emitters must skip vacuous index
// combinations explicitly rather than emit no-op constraints.
func (m *Model) AddRow(name string, idx Key, expr LinExpr, lo, hi float64) (*Constraint, error) {
	if expr.Len() == 0 {
		return nil, errors.Newf(errors.TypeModel,
			"degenerate constraint %s: no variable terms; the emitter should have skipped this index", qualifiedID(name, idx))
	}
	id := qualifiedID(name, idx)
	if _, ok := m.conByID[id]; ok {
		return nil, errors.Newf(errors.TypeModel, "duplicate constraint %s", id)
	}
	if expr.Const != 0 {
		lo -= expr.Const
		hi -= expr.Const
		expr.Const = 0
	}
	c := &Constraint{
		Name:   name,
		Index:  idx,
		Expr:   expr,
		Lo:     lo,
		Hi:     hi,
		Active: true,
		Scale:  1,
		Row:    len(m.cons),
	}
	m.cons = append(m.cons, c)
	m.conByID[id] = c
	return c, nil
}

// AddEq adds an equality constraint expr == rhs.
func (m *Model) AddEq(name string, idx Key, expr LinExpr, rhs float64) (*Constraint, error) {
	return m.AddRow(name, idx, expr, rhs, rhs)
}

// AddLe adds an inequality constraint expr <= rhs.
func (m *Model) AddLe(name string, idx Key, expr LinExpr, rhs float64) (*Constraint, error) {
	return m.AddRow(name, idx, expr, NegInf(), rhs)
}

// AddGe adds an inequality constraint expr >= rhs.
func (m *Model) AddGe(name string, idx Key, expr LinExpr, rhs float64) (*Constraint, error) {
	return m.AddRow(name, idx, expr, rhs, Inf())
}

// Constraint looks up a constraint by name and index, or nil.
func (m *Model) Constraint(name string, idx ...string) *Constraint {
	return m.conByID[qualifiedID(name, K(idx...))]
}

// Columns returns the variables in creation (column) order.
func (m *Model) Columns() []*Var {
	return m.vars
}

// Rows returns every constraint in creation order, active or not.
func (m *Model) Rows() []*Constraint {
	return m.cons
}

// ActiveRows returns the currently active constraints in row order.
func (m *Model) ActiveRows() []*Constraint {
	out := make([]*Constraint, 0, len(m.cons))
	for _, c := range m.cons {
		if c.Active {
			out = append(out, c)
		}
	}
	return out
}

// VarsNamed returns every variable created under the given family name.
func (m *Model) VarsNamed(name string) []*Var {
	var out []*Var
	for _, v := range m.vars {
		if v.Name == name {
			out = append(out, v)
		}
	}
	return out
}

// RowsNamed returns every constraint created under the given family name.
func (m *Model) RowsNamed(name string) []*Constraint {
	var out []*Constraint
	for _, c := range m.cons {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// DefineObjective registers one candidate objective kind with its
// defining expression. The objective variable and constraint are created
// deactivated; SetObjective chooses among them.
func (m *Model) DefineObjective(kind ObjectiveKind, expr LinExpr) error {
	if _, ok := m.objectives[kind]; ok {
		return errors.Newf(errors.TypeModel, "objective %s already defined", kind)
	}
	v := m.NewVar("v_Z", Continuous, NegInf(), Inf(), string(kind))
	def := expr.Scaled(-1).AddTerm(v, 1)
	c, err := m.AddEq("ObjectiveDefinition", K(string(kind)), def, 0)
	if err != nil {
		return err
	}
	c.Active = false
	m.objectives[kind] = &Objective{Kind: kind, Var: v, Def: c}
	return nil
}

// SetObjective activates exactly one objective kind, deactivating all
// others. Re-entering the current kind is a no-op.
func (m *Model) SetObjective(kind ObjectiveKind) error {
	obj, ok := m.objectives[kind]
	if !ok {
		return errors.Newf(errors.TypeModel, "objective %s is not defined on this model", kind)
	}
	if m.active == kind {
		return nil
	}
	for _, o := range m.objectives {
		o.Def.Active = false
	}
	obj.Def.Active = true
	m.active = kind
	return nil
}

// ActiveObjective returns the currently active objective, if any.
func (m *Model) ActiveObjective() (*Objective, bool) {
	obj, ok := m.objectives[m.active]
	return obj, ok
}

// Objectives returns every defined objective, keyed by kind.
func (m *Model) Objectives() map[ObjectiveKind]*Objective {
	return m.objectives
}

// ObjectiveValue returns the solved value of the active objective.
func (m *Model) ObjectiveValue() float64 {
	if obj, ok := m.ActiveObjective(); ok {
		return obj.Var.Value
	}
	return 0
}

// ApplySolution writes a column-ordered value vector onto the variables.
func (m *Model) ApplySolution(values []float64) error {
	if len(values) != len(m.vars) {
		return errors.Newf(errors.TypeModel,
			"solution has %d values, model has %d columns", len(values), len(m.vars))
	}
	for i, v := range m.vars {
		v.Value = values[i]
	}
	return nil
}

// WarmStartFromValues records every variable's current value as its
// warm-start point.
func (m *Model) WarmStartFromValues() {
	for _, v := range m.vars {
		v.SetStart(v.Value)
	}
}

// NumVars returns the number of variables.
func (m *Model) NumVars() int { return len(m.vars) }

// NumRows returns the number of constraints (active and inactive).
func (m *Model) NumRows() int { return len(m.cons) }
