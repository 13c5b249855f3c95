// Package hydraulics builds the optional hydraulics block: pump-head
// and node-pressure relations over the piping network. The friction
// model is a black-box surrogate behind the Friction interface; the
// built-in implementation is a Hazen-Williams relation linearized
// around a reference operating point.
package hydraulics

import (
	"math"

	"pwnet/core/model"
	"pwnet/internal/errors"
)

// Friction computes the head loss (in feet) over a pipe segment.
type Friction interface {
	// HeadLoss returns friction head loss for a flow (volume units per
	// period) through a pipe of the given diameter (inches) and length
	// (miles).
	HeadLoss(flow, diameterIn, lengthMiles float64) float64
}

// HazenWilliams is the default friction surrogate.
type HazenWilliams struct {
	// C is the roughness coefficient (120 for welded steel).
	C float64
}

// HeadLoss implements Friction using the Hazen-Williams relation.
func (h HazenWilliams) HeadLoss(flow, diameterIn, lengthMiles float64) float64 {
	if flow <= 0 || diameterIn <= 0 || lengthMiles <= 0 {
		return 0
	}
	c := h.C
	if c <= 0 {
		c = 120
	}
	// Head loss per unit length grows with flow^1.85 and shrinks with
	// diameter^4.87.
	return 10.46 * lengthMiles * math.Pow(flow/c, 1.852) / math.Pow(diameterIn, 4.87)
}

// RatedCapacity derives a pipeline increment's flow capacity from its
// diameter, used when the pipeline-capacity mode is "calculated".
func RatedCapacity(diameterIn, c float64) float64 {
	if diameterIn <= 0 {
		return 0
	}
	if c <= 0 {
		c = 120
	}
	return 0.285 * c * math.Pow(diameterIn, 2.63)
}

// referenceFlow picks the linearization point for an arc: its initial
// capacity when known, otherwise a unit flow.
func referenceFlow(reg *model.Registry, a model.Arc) float64 {
	if f := reg.ValueOr(model.ParamInitialPipelineCapacity, 0, a.From, a.To); f > 0 {
		return f
	}
	return 1
}

// Embed attaches the co-optimized hydraulics block to an unsolved
// model: pump-head variables, node pressure balances against elevation
// and well-pressure data, and the pumping-cost total that the caller
// adds into the main objective. The linearized mode embeds only the
// flow-proportional pumping-cost coefficient. Returns the pumping-cost
// total variable.
func Embed(m *model.Model) (*model.Var, error) {
	reg := m.Registry
	cfg := m.Cfg
	inf := model.Inf()

	if cfg.Hydraulics != model.HydraulicsCoOptimize && cfg.Hydraulics != model.HydraulicsCoOptimizeLinearized {
		return nil, errors.Newf(errors.TypeModel, "hydraulics embed called under mode %q", cfg.Hydraulics)
	}

	fr := HazenWilliams{C: reg.ScalarOr(model.ParamHazenWilliamsC, 120)}
	rate := reg.ScalarOr(model.ParamElectricityRate, 0.1)
	eff := reg.ScalarOr(model.ParamPumpEfficiency, 0.9)
	costPerHead := rate / eff

	total := m.NewVar(model.VarTotalPumping, model.Continuous, 0, inf)
	totalExpr := model.NewExpr().AddTerm(total, 1)

	if cfg.Hydraulics == model.HydraulicsCoOptimizeLinearized {
		// Flow-proportional pumping cost only: no pressure variables.
		for _, a := range reg.Arcs(model.SetPipingArcs) {
			ref := referenceFlow(reg, a)
			length := reg.ValueOr(model.ParamDistance, 1, a.From, a.To)
			slope := fr.HeadLoss(ref, nominalDiameter(reg), length) / ref
			for _, t := range reg.Periods() {
				totalExpr = totalExpr.AddTerm(m.Var(model.VarPiped, a.From, a.To, t), -costPerHead*slope)
			}
		}
		if _, err := m.AddEq(model.VarTotalPumping+"Definition", "", totalExpr, 0); err != nil {
			return nil, err
		}
		return total, nil
	}

	// Full co-optimization: pressure per location and period, pump head
	// per arc and period.
	for _, t := range reg.Periods() {
		for _, l := range reg.Locations() {
			m.NewVar(model.VarNodePressure, model.Continuous, 0, inf, l, t)
		}
		for _, a := range reg.Arcs(model.SetPipingArcs) {
			m.NewVar(model.VarPumpHead, model.Continuous, 0, inf, a.From, a.To, t)
		}
	}

	for _, a := range reg.Arcs(model.SetPipingArcs) {
		ref := referenceFlow(reg, a)
		length := reg.ValueOr(model.ParamDistance, 1, a.From, a.To)
		slope := fr.HeadLoss(ref, nominalDiameter(reg), length) / ref
		elevDiff := reg.ValueOr(model.ParamElevation, 0, a.To) - reg.ValueOr(model.ParamElevation, 0, a.From)

		for _, t := range reg.Periods() {
			e := model.NewExpr().
				AddTerm(m.Var(model.VarNodePressure, a.From, t), 1).
				AddTerm(m.Var(model.VarNodePressure, a.To, t), -1).
				AddTerm(m.Var(model.VarPumpHead, a.From, a.To, t), 1).
				AddTerm(m.Var(model.VarPiped, a.From, a.To, t), -slope)
			if _, err := m.AddGe("PressureBalance", model.K(a.From, a.To, t), e, elevDiff); err != nil {
				return nil, err
			}
			totalExpr = totalExpr.AddTerm(m.Var(model.VarPumpHead, a.From, a.To, t), -costPerHead)
		}
	}

	// Anchor pad pressures to the measured well pressures.
	for k, p := range reg.Param(model.ParamWellPressure) {
		pad := string(k)
		for _, t := range reg.Periods() {
			v := m.Var(model.VarNodePressure, pad, t)
			if v == nil {
				continue
			}
			e := model.NewExpr().AddTerm(v, 1)
			if _, err := m.AddEq("WellPressureAnchor", model.K(pad, t), e, p); err != nil {
				return nil, err
			}
		}
	}

	if _, err := m.AddEq(model.VarTotalPumping+"Definition", "", totalExpr, 0); err != nil {
		return nil, err
	}
	return total, nil
}

// nominalDiameter returns a representative diameter for linearization:
// the largest diameter in the increment table, or a 12 inch default.
func nominalDiameter(reg *model.Registry) float64 {
	best := 0.0
	for _, d := range reg.Set(model.SetPipelineDiameters) {
		if v := reg.ValueOr(model.ParamDiameterInches, 0, d); v > best {
			best = v
		}
	}
	if best == 0 {
		return 12
	}
	return best
}

// SegmentReport is the hydraulics result for one pipe segment and period.
type SegmentReport struct {
	From, To string
	Period   string
	Flow     float64
	HeadLoss float64
	PumpHead float64
	Cost     float64
}

// Report aggregates the hydraulics pass.
type Report struct {
	Segments    []SegmentReport
	PumpingCost float64
}

// PostProcess evaluates the hydraulics block standalone against a
// solved flow pattern: exact (non-linearized) friction losses, pump
// heads, and energy cost per segment.
func PostProcess(m *model.Model, fr Friction) (*Report, error) {
	reg := m.Registry
	if fr == nil {
		fr = HazenWilliams{C: reg.ScalarOr(model.ParamHazenWilliamsC, 120)}
	}
	rate := reg.ScalarOr(model.ParamElectricityRate, 0.1)
	eff := reg.ScalarOr(model.ParamPumpEfficiency, 0.9)

	rep := &Report{}
	for _, a := range reg.Arcs(model.SetPipingArcs) {
		length := reg.ValueOr(model.ParamDistance, 1, a.From, a.To)
		elevDiff := reg.ValueOr(model.ParamElevation, 0, a.To) - reg.ValueOr(model.ParamElevation, 0, a.From)
		for _, t := range reg.Periods() {
			flow := m.Value(model.VarPiped, a.From, a.To, t)
			if flow <= 0 {
				continue
			}
			loss := fr.HeadLoss(flow, nominalDiameter(reg), length)
			head := loss + elevDiff
			if head < 0 {
				head = 0
			}
			cost := rate / eff * head
			rep.Segments = append(rep.Segments, SegmentReport{
				From: a.From, To: a.To, Period: t,
				Flow: flow, HeadLoss: loss, PumpHead: head, Cost: cost,
			})
			rep.PumpingCost += cost
		}
	}
	return rep, nil
}

// Deactivate turns the embedded hydraulics rows off after the pass, so
// later re-solves of the flow model are not re-constrained by them.
func Deactivate(m *model.Model) {
	for _, name := range []string{"PressureBalance", "WellPressureAnchor", model.VarTotalPumping + "Definition"} {
		for _, c := range m.RowsNamed(name) {
			c.Active = false
		}
	}
}
