package model

import "math"

// VarKind classifies a decision variable.
type VarKind int

const (
	// Continuous is a real-valued variable.
	Continuous VarKind = iota

	// Binary is a 0/1 selection variable.
	Binary

	// Integer is a general integer variable.
	Integer
)

// Var is a decision variable. Lo/Hi are the current bounds, Value is the
// last solved value, Start is an optional warm-start point, and Scale is
// the multiplicative factor attached by the scaling transform (1 when the
// model is unscaled).
type Var struct {
	Name  string
	Index Key
	Kind  VarKind

	Lo, Hi float64

	Value    float64
	Start    float64
	HasStart bool

	Scale float64

	// Column is the variable's creation-order position, used as the
	// column index on solver export.
	Column int
}

// ID returns the fully qualified variable identifier.
func (v *Var) ID() string {
	return qualifiedID(v.Name, v.Index)
}

// IsDiscrete reports whether the variable carries an integrality
// constraint.
func (v *Var) IsDiscrete() bool {
	return v.Kind != Continuous
}

// Fix pins the variable to a single value.
func (v *Var) Fix(value float64) {
	v.Lo = value
	v.Hi = value
}

// SetStart records a warm-start point for the variable.
func (v *Var) SetStart(value float64) {
	v.Start = value
	v.HasStart = true
}

// ClearStart drops any recorded warm-start point.
func (v *Var) ClearStart() {
	v.Start = 0
	v.HasStart = false
}

func qualifiedID(name string, index Key) string {
	if index == "" {
		return name
	}
	return name + "[" + string(index) + "]"
}

// Bounds is a snapshot of one variable's [Lo, Hi] interval.
type Bounds struct {
	Lo, Hi float64
}

// BoundSnapshot preserves variable bounds so a temporary narrowing (the
// two-phase freeze) can be undone exactly, without recomputing defaults.
type BoundSnapshot struct {
	saved map[*Var]Bounds
}

// Snapshot records the current bounds of every variable accepted by
// filter (nil filter accepts all).
func (m *Model) Snapshot(filter func(*Var) bool) *BoundSnapshot {
	s := &BoundSnapshot{saved: make(map[*Var]Bounds)}
	for _, v := range m.vars {
		if filter == nil || filter(v) {
			s.saved[v] = Bounds{Lo: v.Lo, Hi: v.Hi}
		}
	}
	return s
}

// Restore writes every recorded bound pair back onto its variable.
func (s *BoundSnapshot) Restore() {
	for v, b := range s.saved {
		v.Lo = b.Lo
		v.Hi = b.Hi
	}
}

// Len returns the number of variables covered by the snapshot.
func (s *BoundSnapshot) Len() int {
	return len(s.saved)
}

// Inf is the engine's representation of an absent bound.
func Inf() float64 { return math.Inf(1) }

// NegInf is the engine's representation of an absent lower bound.
func NegInf() float64 { return math.Inf(-1) }
