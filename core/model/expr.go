// Package model provides the algebraic model container for the
// produced-water network engine: the entity registry, variables,
// linear expressions, constraints, and the objective state machine.
package model

import (
	"strings"
)

// Key is a canonical index tuple, stored comma-joined.
type Key string

// K builds a Key from index elements.
func K(parts ...string) Key {
	return Key(strings.Join(parts, ","))
}

// Parts splits the key back into its index elements.
func (k Key) Parts() []string {
	if k == "" {
		return nil
	}
	return strings.Split(string(k), ",")
}

// LinExpr is a sparse linear expression: sum of Coef*Var plus a constant.
type LinExpr struct {
	Terms map[*Var]float64
	Const float64
}

// NewExpr returns an empty expression.
func NewExpr() LinExpr {
	return LinExpr{Terms: make(map[*Var]float64)}
}

// AddTerm adds coef*v to the expression and returns it for chaining.
func (e LinExpr) AddTerm(v *Var, coef float64) LinExpr {
	if v == nil || coef == 0 {
		return e
	}
	e.Terms[v] += coef
	if e.Terms[v] == 0 {
		delete(e.Terms, v)
	}
	return e
}

// AddConst adds a constant to the expression.
func (e LinExpr) AddConst(c float64) LinExpr {
	e.Const += c
	return e
}

// Plus adds another expression into this one.
func (e LinExpr) Plus(other LinExpr) LinExpr {
	for v, c := range other.Terms {
		e = e.AddTerm(v, c)
	}
	e.Const += other.Const
	return e
}

// Scaled returns a copy of the expression with every coefficient and
// the constant multiplied by f.
func (e LinExpr) Scaled(f float64) LinExpr {
	out := NewExpr()
	for v, c := range e.Terms {
		out.Terms[v] = c * f
	}
	out.Const = e.Const * f
	return out
}

// Eval computes the expression value at the variables' current values.
func (e LinExpr) Eval() float64 {
	total := e.Const
	for v, c := range e.Terms {
		total += c * v.Value
	}
	return total
}

// Len returns the number of nonzero terms.
func (e LinExpr) Len() int {
	return len(e.Terms)
}
