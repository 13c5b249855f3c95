package build

import (
	"pwnet/core/hydraulics"
	"pwnet/core/model"
)

// createVariables creates every decision variable of the base model:
// flows, stocks, capacity variables, expansion binaries, and slacks.
// Cost-term variables are created lazily by the costing rows.
func (b *builder) createVariables() {
	reg, m := b.reg, b.m
	inf := model.Inf()

	for _, t := range reg.Periods() {
		for _, a := range reg.Arcs(model.SetPipingArcs) {
			m.NewVar(model.VarPiped, model.Continuous, 0, inf, a.From, a.To, t)
		}
		for _, a := range reg.Arcs(model.SetTruckingArcs) {
			m.NewVar(model.VarTrucked, model.Continuous, 0, inf, a.From, a.To, t)
		}
		for _, a := range reg.Arcs(model.SetSourcingArcs) {
			m.NewVar(model.VarSourced, model.Continuous, 0, inf, a.From, a.To, t)
		}

		for _, k := range reg.Set(model.SetDisposalSites) {
			m.NewVar(model.VarDisposal, model.Continuous, 0, inf, k, t)
			m.NewVar(model.VarDisposalCapacity, model.Continuous, 0, inf, k, t)
		}
		for _, s := range reg.Set(model.SetStorageSites) {
			m.NewVar(model.VarStorageLevel, model.Continuous, 0, inf, s, t)
		}
		for _, r := range reg.Set(model.SetTreatmentSites) {
			m.NewVar(model.VarTreated, model.Continuous, 0, inf, r, t)
			m.NewVar(model.VarResidual, model.Continuous, 0, inf, r, t)
		}
		for _, o := range reg.Set(model.SetReuseOptions) {
			m.NewVar(model.VarReuse, model.Continuous, 0, inf, o, t)
		}

		for _, p := range reg.Set(model.SetCompletionsPads) {
			m.NewVar(model.VarCompletions, model.Continuous, 0, inf, p, t)
			if !b.outsideSystem(p) {
				m.NewVar(model.VarSlackDemand, model.Continuous, 0, inf, p, t)
			}
			if _, ok := reg.Value(model.ParamFlowbackRates, p, t); ok {
				m.NewVar(model.VarSlackFlowback, model.Continuous, 0, inf, p, t)
			}
			if b.hasPadStorage(p) {
				m.NewVar(model.VarPadStorageLevel, model.Continuous, 0, inf, p, t)
				m.NewVar(model.VarPadStorageIn, model.Continuous, 0, inf, p, t)
				m.NewVar(model.VarPadStorageOut, model.Continuous, 0, inf, p, t)
			}
		}

		for _, p := range reg.Set(model.SetProductionPads) {
			m.NewVar(model.VarSlackProduction, model.Continuous, 0, inf, p, t)
			tanks := b.padTanks(p)
			switch {
			case len(tanks) == 0:
				// Direct supply balance, no tank stock.
			case b.cfg.Tanks == model.TanksIndividual:
				for _, a := range tanks {
					m.NewVar(model.VarTankLevel, model.Continuous, 0, inf, p, a, t)
					m.NewVar(model.VarTankDrain, model.Continuous, 0, inf, p, a, t)
				}
			default: // equalized
				m.NewVar(model.VarTankLevel, model.Continuous, 0, inf, p, t)
				m.NewVar(model.VarTankDrain, model.Continuous, 0, inf, p, t)
			}
		}
	}

	// Capacity variables, expansion binaries, and capacity slacks are
	// horizon-wide (built increments persist; no decommissioning).
	for _, a := range reg.Arcs(model.SetPipingArcs) {
		m.NewVar(model.VarPipelineCapacity, model.Continuous, 0, inf, a.From, a.To)
		m.NewVar(model.VarSlackPipelineCapacity, model.Continuous, 0, inf, a.From, a.To)
		for _, d := range reg.Set(model.SetPipelineDiameters) {
			m.NewVar(model.VarPipelineExpansion, model.Binary, 0, 1, a.From, a.To, d)
		}
	}
	for _, k := range reg.Set(model.SetDisposalSites) {
		m.NewVar(model.VarSlackDisposalCapacity, model.Continuous, 0, inf, k)
		for _, i := range reg.Set(model.SetDisposalIncrements) {
			m.NewVar(model.VarDisposalExpansion, model.Binary, 0, 1, k, i)
		}
	}
	for _, s := range reg.Set(model.SetStorageSites) {
		m.NewVar(model.VarStorageCapacity, model.Continuous, 0, inf, s)
		m.NewVar(model.VarSlackStorageCapacity, model.Continuous, 0, inf, s)
		for _, i := range reg.Set(model.SetStorageIncrements) {
			m.NewVar(model.VarStorageExpansion, model.Binary, 0, 1, s, i)
		}
	}
	for _, r := range reg.Set(model.SetTreatmentSites) {
		m.NewVar(model.VarTreatmentCapacity, model.Continuous, 0, inf, r)
		m.NewVar(model.VarSlackTreatmentCapacity, model.Continuous, 0, inf, r)
		for _, tech := range reg.Set(model.SetTreatmentTechnologies) {
			for _, i := range reg.Set(model.SetTreatmentIncrements) {
				m.NewVar(model.VarTreatmentExpansion, model.Binary, 0, 1, r, tech, i)
			}
		}
	}

	// One direction indicator per bidirectional piping pair per period.
	for _, pair := range b.bidirectionalPairs() {
		for _, t := range reg.Periods() {
			m.NewVar(model.VarFlowDirection, model.Binary, 0, 1, pair.From, pair.To, t)
		}
	}

	if b.riskEnabled() {
		for _, k := range reg.Set(model.SetDisposalSites) {
			m.NewVar(model.VarCurtailment, model.Binary, 0, 1, k)
		}
	}
}

// outsideSystem reports whether a completions pad is flagged as outside
// the managed system, relaxing its demand balance to an inequality.
func (b *builder) outsideSystem(pad string) bool {
	return b.reg.ValueOr(model.ParamPadOutsideSystem, 0, pad) != 0
}

// riskEnabled reports whether the subsurface-risk block is built.
func (b *builder) riskEnabled() bool {
	return b.cfg.SubsurfaceRisk != model.RiskOff || b.cfg.Objective == model.ObjectiveSubsurfaceRisk
}

// bidirectionalPairs returns each piping location pair that has arcs in
// both directions, once, in canonical (From < To) order.
func (b *builder) bidirectionalPairs() []model.Arc {
	arcs := b.reg.Arcs(model.SetPipingArcs)
	directed := make(map[model.Key]bool, len(arcs))
	for _, a := range arcs {
		directed[a.Key()] = true
	}
	var pairs []model.Arc
	for _, a := range arcs {
		if a.From < a.To && directed[model.K(a.To, a.From)] {
			pairs = append(pairs, a)
		}
	}
	return pairs
}

// diameterCapacity returns the flow capacity contributed by one
// diameter increment, per the configured pipeline-capacity mode.
func (b *builder) diameterCapacity(d string) float64 {
	if b.cfg.PipelineCapacity == model.PipelineCapacityCalculated {
		inches := b.reg.ValueOr(model.ParamDiameterInches, 0, d)
		c := b.reg.ScalarOr(model.ParamHazenWilliamsC, 120)
		return hydraulics.RatedCapacity(inches, c)
	}
	return b.reg.ValueOr(model.ParamDiameterCapacity, 0, d)
}
