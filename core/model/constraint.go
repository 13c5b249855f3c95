package model

// Constraint is a linear row of the model: Lo <= Expr <= Hi. An equality
// has Lo == Hi. Inactive constraints are skipped on solver export (the
// objective state machine and the hydraulics block toggle activity).
type Constraint struct {
	Name  string
	Index Key

	Expr   LinExpr
	Lo, Hi float64

	Active bool
	Scale  float64

	// Row is the constraint's creation-order position.
	Row int
}

// ID returns the fully qualified constraint identifier.
func (c *Constraint) ID() string {
	return qualifiedID(c.Name, c.Index)
}

// IsEquality reports whether the row is an equality constraint.
func (c *Constraint) IsEquality() bool {
	return c.Lo == c.Hi
}

// Violation returns how far the row bounds are exceeded at the current
// variable values (0 when satisfied).
func (c *Constraint) Violation() float64 {
	val := c.Expr.Eval()
	if val < c.Lo {
		return c.Lo - val
	}
	if val > c.Hi {
		return val - c.Hi
	}
	return 0
}
