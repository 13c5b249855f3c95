package build

import (
	"pwnet/core/model"
)

// defaultSlackPenalty prices slack relief far above any plausible
// operating rate so slacks activate only when the data leaves no
// feasible alternative.
const defaultSlackPenalty = 1e6

// costFamily describes one operating-cost family: the flow variable it
// prices, the rate lookup, and the cost/credit variable it defines.
type costFamily struct {
	costVar  string
	flowVar  string
	totalVar string
	// keys enumerates (cost index, flow index, rate) triples.
	keys func() []costEntry
}

type costEntry struct {
	idx  model.Key
	flow []string
	rate float64
}

// costingRows emits the per-index costing equalities
// (cost == flow x unit rate) and the running totals that feed the
// objective definitions. Cost variables are created here; a family
// member with no applicable rate is skipped rather than priced at zero.
func (b *builder) costingRows() error {
	reg, m := b.reg, b.m
	periods := reg.Periods()
	inf := model.Inf()

	families := []costFamily{
		{
			costVar: model.VarCostPiped, flowVar: model.VarPiped, totalVar: model.VarTotalPiping,
			keys: func() []costEntry {
				var out []costEntry
				for _, a := range reg.Arcs(model.SetPipingArcs) {
					rate, ok := reg.Value(model.ParamPipingRate, a.From, a.To)
					if !ok {
						continue
					}
					for _, t := range periods {
						out = append(out, costEntry{model.K(a.From, a.To, t), []string{a.From, a.To, t}, rate})
					}
				}
				return out
			},
		},
		{
			costVar: model.VarCostTrucked, flowVar: model.VarTrucked, totalVar: model.VarTotalTrucking,
			keys: func() []costEntry {
				var out []costEntry
				for _, a := range reg.Arcs(model.SetTruckingArcs) {
					rate, ok := reg.Value(model.ParamTruckingRate, a.From, a.To)
					if !ok {
						continue
					}
					for _, t := range periods {
						out = append(out, costEntry{model.K(a.From, a.To, t), []string{a.From, a.To, t}, rate})
					}
				}
				return out
			},
		},
		{
			costVar: model.VarCostSourced, flowVar: model.VarSourced, totalVar: model.VarTotalSourced,
			keys: func() []costEntry {
				var out []costEntry
				for _, a := range reg.Arcs(model.SetSourcingArcs) {
					rate, ok := reg.Value(model.ParamSourcingRate, a.From)
					if !ok {
						continue
					}
					for _, t := range periods {
						out = append(out, costEntry{model.K(a.From, a.To, t), []string{a.From, a.To, t}, rate})
					}
				}
				return out
			},
		},
		{
			costVar: model.VarCostDisposal, flowVar: model.VarDisposal, totalVar: model.VarTotalDisposal,
			keys: func() []costEntry {
				var out []costEntry
				for _, k := range reg.Set(model.SetDisposalSites) {
					rate, ok := reg.Value(model.ParamDisposalRate, k)
					if !ok {
						continue
					}
					for _, t := range periods {
						out = append(out, costEntry{model.K(k, t), []string{k, t}, rate})
					}
				}
				return out
			},
		},
		{
			costVar: model.VarCostTreated, flowVar: model.VarTreated, totalVar: model.VarTotalTreatment,
			keys: func() []costEntry {
				var out []costEntry
				for _, r := range reg.Set(model.SetTreatmentSites) {
					rate, ok := reg.Value(model.ParamTreatmentRate, r)
					if !ok {
						continue
					}
					for _, t := range periods {
						out = append(out, costEntry{model.K(r, t), []string{r, t}, rate})
					}
				}
				return out
			},
		},
		{
			costVar: model.VarCostResidual, flowVar: model.VarResidual, totalVar: model.VarTotalResidual,
			keys: func() []costEntry {
				var out []costEntry
				for _, r := range reg.Set(model.SetTreatmentSites) {
					rate, ok := reg.Value(model.ParamResidualDisposalRate, r)
					if !ok {
						continue
					}
					for _, t := range periods {
						out = append(out, costEntry{model.K(r, t), []string{r, t}, rate})
					}
				}
				return out
			},
		},
		{
			costVar: model.VarCostStorage, flowVar: model.VarStorageLevel, totalVar: model.VarTotalStorage,
			keys: func() []costEntry {
				var out []costEntry
				for _, s := range reg.Set(model.SetStorageSites) {
					rate, ok := reg.Value(model.ParamStorageRate, s)
					if !ok {
						continue
					}
					for _, t := range periods {
						out = append(out, costEntry{model.K(s, t), []string{s, t}, rate})
					}
				}
				return out
			},
		},
		{
			costVar: model.VarCostReuse, flowVar: model.VarReuse, totalVar: "",
			keys: func() []costEntry {
				var out []costEntry
				for _, o := range reg.Set(model.SetReuseOptions) {
					rate, ok := reg.Value(model.ParamReuseRate, o)
					if !ok {
						continue
					}
					for _, t := range periods {
						out = append(out, costEntry{model.K(o, t), []string{o, t}, rate})
					}
				}
				return out
			},
		},
	}

	for _, fam := range families {
		entries := fam.keys()
		total := model.NewExpr()
		for _, entry := range entries {
			cv := m.NewVar(fam.costVar, model.Continuous, 0, inf, entry.idx.Parts()...)
			e := model.NewExpr().
				AddTerm(cv, 1).
				AddTerm(m.Var(fam.flowVar, entry.flow...), -entry.rate)
			if _, err := m.AddEq(fam.costVar+"Definition", entry.idx, e, 0); err != nil {
				return err
			}
			total = total.AddTerm(cv, -1)
		}
		if fam.totalVar == "" {
			continue
		}
		tv := m.NewVar(fam.totalVar, model.Continuous, 0, inf)
		total = total.AddTerm(tv, 1)
		if _, err := m.AddEq(fam.totalVar+"Definition", "", total, 0); err != nil {
			return err
		}
	}

	if err := b.creditRows(); err != nil {
		return err
	}
	if err := b.expansionCostRow(); err != nil {
		return err
	}
	return b.slackCostRow()
}

// creditRows emits the credit equalities: storage withdrawal revenue
// and beneficial-reuse credit, each summed into a credit total.
func (b *builder) creditRows() error {
	reg, m := b.reg, b.m
	inf := model.Inf()

	storageTotal := model.NewExpr()
	for _, s := range reg.Set(model.SetStorageSites) {
		credit, ok := reg.Value(model.ParamStorageWithdrawalCredit, s)
		if !ok {
			continue
		}
		for _, t := range reg.Periods() {
			rv := m.NewVar(model.VarCreditStorage, model.Continuous, 0, inf, s, t)
			e := model.NewExpr().AddTerm(rv, 1).Plus(b.outflow(s, t).Scaled(-credit))
			if _, err := m.AddEq(model.VarCreditStorage+"Definition", model.K(s, t), e, 0); err != nil {
				return err
			}
			storageTotal = storageTotal.AddTerm(rv, -1)
		}
	}
	stv := m.NewVar(model.VarTotalStorageCredit, model.Continuous, 0, inf)
	storageTotal = storageTotal.AddTerm(stv, 1)
	if _, err := m.AddEq(model.VarTotalStorageCredit+"Definition", "", storageTotal, 0); err != nil {
		return err
	}

	reuseTotal := model.NewExpr()
	for _, o := range reg.Set(model.SetReuseOptions) {
		credit, ok := reg.Value(model.ParamReuseCredit, o)
		if !ok {
			continue
		}
		for _, t := range reg.Periods() {
			rv := m.NewVar(model.VarCreditReuse, model.Continuous, 0, inf, o, t)
			e := model.NewExpr().
				AddTerm(rv, 1).
				AddTerm(m.Var(model.VarReuse, o, t), -credit)
			if _, err := m.AddEq(model.VarCreditReuse+"Definition", model.K(o, t), e, 0); err != nil {
				return err
			}
			reuseTotal = reuseTotal.AddTerm(rv, -1)
		}
	}
	rtv := m.NewVar(model.VarTotalReuseCredit, model.Continuous, 0, inf)
	reuseTotal = reuseTotal.AddTerm(rtv, 1)
	_, err := m.AddEq(model.VarTotalReuseCredit+"Definition", "", reuseTotal, 0)
	return err
}

// expansionCostRow emits the annualized CAPEX total over every selected
// increment, with pipeline expansion priced per the configured mode.
func (b *builder) expansionCostRow() error {
	reg, m := b.reg, b.m
	ann := reg.ScalarOr(model.ParamAnnualizationRate, 1)

	tv := m.NewVar(model.VarTotalExpansion, model.Continuous, 0, model.Inf())
	e := model.NewExpr().AddTerm(tv, 1)

	for _, a := range reg.Arcs(model.SetPipingArcs) {
		for _, d := range reg.Set(model.SetPipelineDiameters) {
			var cost float64
			if b.cfg.PipelineCost == model.PipelineCostDistanceBased {
				perMile := reg.ValueOr(model.ParamPipelineCostPerMile, 0, d)
				cost = perMile * reg.ValueOr(model.ParamDistance, 0, a.From, a.To)
			} else {
				cost = reg.ValueOr(model.ParamPipelineIncrementCost, 0, d)
			}
			e = e.AddTerm(m.Var(model.VarPipelineExpansion, a.From, a.To, d), -ann*cost)
		}
	}
	for _, k := range reg.Set(model.SetDisposalSites) {
		for _, i := range reg.Set(model.SetDisposalIncrements) {
			cost := reg.ValueOr(model.ParamDisposalIncrementCost, 0, k, i)
			e = e.AddTerm(m.Var(model.VarDisposalExpansion, k, i), -ann*cost)
		}
	}
	for _, s := range reg.Set(model.SetStorageSites) {
		for _, i := range reg.Set(model.SetStorageIncrements) {
			cost := reg.ValueOr(model.ParamStorageIncrementCost, 0, s, i)
			e = e.AddTerm(m.Var(model.VarStorageExpansion, s, i), -ann*cost)
		}
	}
	for _, r := range reg.Set(model.SetTreatmentSites) {
		for _, tech := range reg.Set(model.SetTreatmentTechnologies) {
			for _, i := range reg.Set(model.SetTreatmentIncrements) {
				cost := reg.ValueOr(model.ParamTreatmentIncrementCost, 0, r, tech, i)
				e = e.AddTerm(m.Var(model.VarTreatmentExpansion, r, tech, i), -ann*cost)
			}
		}
	}

	_, err := m.AddEq(model.VarTotalExpansion+"Definition", "", e, 0)
	return err
}

// slackCostRow prices every slack variable at its family's penalty and
// sums them into the slack total.
func (b *builder) slackCostRow() error {
	reg, m := b.reg, b.m

	penalties := map[string]float64{
		model.VarSlackProduction:        reg.ScalarOr(model.ParamSlackPenaltyProduction, defaultSlackPenalty),
		model.VarSlackDemand:            reg.ScalarOr(model.ParamSlackPenaltyDemand, defaultSlackPenalty),
		model.VarSlackFlowback:          reg.ScalarOr(model.ParamSlackPenaltyFlowback, defaultSlackPenalty),
		model.VarSlackPipelineCapacity:  reg.ScalarOr(model.ParamSlackPenaltyCapacity, defaultSlackPenalty),
		model.VarSlackDisposalCapacity:  reg.ScalarOr(model.ParamSlackPenaltyCapacity, defaultSlackPenalty),
		model.VarSlackStorageCapacity:   reg.ScalarOr(model.ParamSlackPenaltyStorage, defaultSlackPenalty),
		model.VarSlackTreatmentCapacity: reg.ScalarOr(model.ParamSlackPenaltyCapacity, defaultSlackPenalty),
	}

	tv := m.NewVar(model.VarTotalSlack, model.Continuous, 0, model.Inf())
	e := model.NewExpr().AddTerm(tv, 1)
	for name, penalty := range penalties {
		for _, v := range m.VarsNamed(name) {
			e = e.AddTerm(v, -penalty)
		}
	}
	_, err := m.AddEq(model.VarTotalSlack+"Definition", "", e, 0)
	return err
}

// defineObjectives registers every candidate objective kind applicable
// to this configuration: cost, reuse, and environmental always;
// cost_surrogate when a desalination surrogate is supplied;
// subsurface_risk when the risk block is built.
func (b *builder) defineObjectives(pumping *model.Var) error {
	reg, m := b.reg, b.m

	costExpr := model.NewExpr()
	for _, total := range []string{
		model.VarTotalPiping, model.VarTotalTrucking, model.VarTotalSourced,
		model.VarTotalDisposal, model.VarTotalTreatment, model.VarTotalStorage,
		model.VarTotalResidual, model.VarTotalExpansion, model.VarTotalSlack,
	} {
		if v := m.Var(total); v != nil {
			costExpr = costExpr.AddTerm(v, 1)
		}
	}
	for _, v := range m.VarsNamed(model.VarCostReuse) {
		costExpr = costExpr.AddTerm(v, 1)
	}
	if pumping != nil {
		costExpr = costExpr.AddTerm(pumping, 1)
	}
	costExpr = costExpr.
		AddTerm(m.Var(model.VarTotalStorageCredit), -1).
		AddTerm(m.Var(model.VarTotalReuseCredit), -1)

	if err := m.DefineObjective(model.ObjectiveCost, costExpr); err != nil {
		return err
	}

	// Maximizing reuse is expressed as minimizing its negative; slack
	// stays penalized so relief never masquerades as reuse.
	reuseExpr := model.NewExpr().AddTerm(m.Var(model.VarTotalSlack), 1)
	for _, t := range reg.Periods() {
		for _, p := range reg.Set(model.SetCompletionsPads) {
			reuseExpr = reuseExpr.AddTerm(m.Var(model.VarCompletions, p, t), -1)
		}
		for _, o := range reg.Set(model.SetReuseOptions) {
			reuseExpr = reuseExpr.AddTerm(m.Var(model.VarReuse, o, t), -1)
		}
	}
	if err := m.DefineObjective(model.ObjectiveReuse, reuseExpr); err != nil {
		return err
	}

	truckEmis := reg.ScalarOr(model.ParamTruckingEmissions, 0)
	treatEmis := reg.ScalarOr(model.ParamTreatmentEmissions, 0)
	envExpr := model.NewExpr().AddTerm(m.Var(model.VarTotalSlack), 1)
	for _, v := range m.VarsNamed(model.VarTrucked) {
		envExpr = envExpr.AddTerm(v, truckEmis)
	}
	for _, v := range m.VarsNamed(model.VarTreated) {
		envExpr = envExpr.AddTerm(v, treatEmis)
	}
	if err := m.DefineObjective(model.ObjectiveEnvironmental, envExpr); err != nil {
		return err
	}

	if b.cfg.DesalinationSurrogate != model.SurrogateOff && b.cfg.SurrogateModel != nil {
		ann := reg.ScalarOr(model.ParamAnnualizationRate, 1)
		surExpr := costExpr.Scaled(1)
		for _, r := range reg.Set(model.SetTreatmentSites) {
			for _, tech := range reg.Set(model.SetTreatmentTechnologies) {
				for _, i := range reg.Set(model.SetTreatmentIncrements) {
					size := reg.ValueOr(model.ParamTreatmentIncrementSize, 0, i)
					capex := b.cfg.SurrogateModel.Capex(r, size)
					surExpr = surExpr.AddTerm(m.Var(model.VarTreatmentExpansion, r, tech, i), ann*capex)
				}
			}
		}
		if err := m.DefineObjective(model.ObjectiveCostSurrogate, surExpr); err != nil {
			return err
		}
	}

	if b.riskEnabled() {
		riskExpr := model.NewExpr()
		for _, k := range reg.Set(model.SetDisposalSites) {
			weight := reg.ValueOr(model.ParamRiskWeight, 1, k)
			for _, t := range reg.Periods() {
				riskExpr = riskExpr.AddTerm(m.Var(model.VarDisposal, k, t), weight)
			}
		}
		if riskExpr.Len() > 0 {
			if err := m.DefineObjective(model.ObjectiveSubsurfaceRisk, riskExpr); err != nil {
				return err
			}
		}
	}

	return nil
}
