// Package scaling rescales a model before solving and maps the solution
// back afterwards. Produced-water models mix per-barrel operating costs
// with multimillion capital costs in the same objective, which strains
// solver numerics; dividing volume and money columns by a common factor
// and normalizing row magnitudes narrows the coefficient range.
package scaling

import (
	"math"

	"go.uber.org/zap"

	"pwnet/core/model"
	"pwnet/internal/errors"
	"pwnet/internal/logging"
)

// DefaultFactor is the documented default scaling divisor.
const DefaultFactor = 1000

// slackBoost scales slack columns harder than ordinary columns so their
// penalty coefficients stay dominant after row normalization.
const slackBoost = 10

// rowScaleClamp bounds the row normalization factors.
const rowScaleClamp = 1e6

// Transform is one applied scaling, able to undo itself. Apply and
// Restore bracket a solve; the transform is single-use.
type Transform struct {
	factor   float64
	applied  bool
	restored bool
}

// Apply rescales the model in place: continuous columns are divided by
// the factor (slack columns by ten times the factor), discrete columns
// stay unit-scaled to preserve their integrality, and every row is
// normalized toward unit magnitude by a power of ten. Column and row
// Scale fields record the applied factors for Restore.
func Apply(m *model.Model, factor float64) (*Transform, error) {
	if factor <= 0 {
		return nil, errors.Newf(errors.TypeConfigData, "scaling factor must be positive, got %g", factor)
	}

	for _, v := range m.Columns() {
		s := columnScale(v, factor)
		v.Scale = s
		if s == 1 {
			continue
		}
		v.Lo /= s
		v.Hi /= s
		if v.HasStart {
			v.Start /= s
		}
	}

	for _, c := range m.Rows() {
		// Substituting x = s * x' multiplies each coefficient by its
		// column scale.
		maxAbs := 0.0
		for v, coef := range c.Expr.Terms {
			coef *= v.Scale
			c.Expr.Terms[v] = coef
			if a := math.Abs(coef); a > maxAbs {
				maxAbs = a
			}
		}
		r := rowScale(maxAbs)
		c.Scale = r
		if r == 1 {
			continue
		}
		for v := range c.Expr.Terms {
			c.Expr.Terms[v] *= r
		}
		c.Lo *= r
		c.Hi *= r
	}

	logging.Debug("model scaled", zap.String("model", m.Name), zap.Float64("factor", factor))
	return &Transform{factor: factor, applied: true}, nil
}

// PropagateSolution maps solved column values back into original units.
// It runs after the scaled model's solution has been applied and before
// Restore.
func (t *Transform) PropagateSolution(m *model.Model) {
	if !t.applied {
		return
	}
	for _, v := range m.Columns() {
		v.Value *= v.Scale
	}
}

// Restore undoes the coefficient, bound, and start-value scaling,
// returning the model to its original units. Solved values are expected
// to have been propagated already.
func (t *Transform) Restore(m *model.Model) {
	if !t.applied || t.restored {
		return
	}
	t.restored = true

	for _, c := range m.Rows() {
		if c.Scale != 1 {
			inv := 1 / c.Scale
			for v := range c.Expr.Terms {
				c.Expr.Terms[v] *= inv
			}
			c.Lo *= inv
			c.Hi *= inv
			c.Scale = 1
		}
		for v := range c.Expr.Terms {
			if v.Scale != 1 {
				c.Expr.Terms[v] /= v.Scale
			}
		}
	}

	for _, v := range m.Columns() {
		if v.Scale == 1 {
			continue
		}
		v.Lo *= v.Scale
		v.Hi *= v.Scale
		if v.HasStart {
			v.Start *= v.Scale
		}
		v.Scale = 1
	}
}

// columnScale picks the divisor for one column: discrete columns keep
// unit scale, slack columns get the boosted factor.
func columnScale(v *model.Var, factor float64) float64 {
	if v.IsDiscrete() {
		return 1
	}
	if isSlack(v.Name) {
		return factor * slackBoost
	}
	return factor
}

func isSlack(name string) bool {
	return len(name) >= 4 && name[:4] == "v_S_"
}

// rowScale normalizes a row's largest coefficient toward one with a
// power of ten, clamped so pathological rows cannot blow up.
func rowScale(maxAbs float64) float64 {
	if maxAbs == 0 || math.IsInf(maxAbs, 0) || math.IsNaN(maxAbs) {
		return 1
	}
	r := math.Pow(10, math.Round(-math.Log10(maxAbs)))
	if r > rowScaleClamp {
		return rowScaleClamp
	}
	if r < 1/rowScaleClamp {
		return 1 / rowScaleClamp
	}
	return r
}
