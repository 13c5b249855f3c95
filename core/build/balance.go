package build

import (
	"pwnet/core/model"
)

// locPeriodKeys builds the (location, period) index domain.
func locPeriodKeys(locs, periods []string) []model.Key {
	keys := make([]model.Key, 0, len(locs)*len(periods))
	for _, l := range locs {
		for _, t := range periods {
			keys = append(keys, model.K(l, t))
		}
	}
	return keys
}

// arcPeriodKeys builds the (from, to, period) index domain.
func arcPeriodKeys(arcs []model.Arc, periods []string) []model.Key {
	keys := make([]model.Key, 0, len(arcs)*len(periods))
	for _, a := range arcs {
		for _, t := range periods {
			keys = append(keys, model.K(a.From, a.To, t))
		}
	}
	return keys
}

// supplyBalances emits the production-pad side: produced water must be
// absorbed by outgoing transport, slack-relieved. Pads with production
// tanks route supply through the tank stock first, under the configured
// tank mode.
func (b *builder) supplyBalances() error {
	reg, m := b.reg, b.m
	pads := reg.Set(model.SetProductionPads)

	err := b.emit("ProductionBalance", locPeriodKeys(pads, reg.Periods()), func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		p, t := parts[0], parts[1]
		slack := m.Var(model.VarSlackProduction, p, t)

		if len(b.padTanks(p)) > 0 {
			// Tank drainage must be absorbed instead of raw production.
			e := b.outflow(p, t).AddTerm(slack, 1)
			if b.cfg.Tanks == model.TanksIndividual {
				for _, a := range b.padTanks(p) {
					e = e.AddTerm(m.Var(model.VarTankDrain, p, a, t), -1)
				}
			} else {
				e = e.AddTerm(m.Var(model.VarTankDrain, p, t), -1)
			}
			return eq(e, 0), true
		}

		rate := reg.ValueOr(model.ParamProductionRates, 0, p, t)
		e := b.outflow(p, t).AddTerm(slack, 1)
		return eq(e, rate), true
	})
	if err != nil {
		return err
	}

	if err := b.tankRecursions(); err != nil {
		return err
	}
	return nil
}

// tankRecursions emits the production-tank stock recursion and capacity
// rows. The two tank modes build the same named families with different
// index arity: (pad, tank, period) individually, (pad, period) equalized.
func (b *builder) tankRecursions() error {
	reg, m := b.reg, b.m

	var keys []model.Key
	for _, p := range reg.Set(model.SetProductionPads) {
		tanks := b.padTanks(p)
		if len(tanks) == 0 {
			continue
		}
		for _, t := range reg.Periods() {
			if b.cfg.Tanks == model.TanksIndividual {
				for _, a := range tanks {
					keys = append(keys, model.K(p, a, t))
				}
			} else {
				keys = append(keys, model.K(p, t))
			}
		}
	}

	err := b.emit("TankLevelRecursion", keys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		p := parts[0]
		t := parts[len(parts)-1]

		var level, drain *model.Var
		var prev *model.Var
		rate := 0.0
		if b.cfg.Tanks == model.TanksIndividual {
			a := parts[1]
			level = m.Var(model.VarTankLevel, p, a, t)
			drain = m.Var(model.VarTankDrain, p, a, t)
			rate = reg.ValueOr(model.ParamProductionRates, 0, p, a, t)
			if pt := reg.PrevPeriod(t); pt != "" {
				prev = m.Var(model.VarTankLevel, p, a, pt)
			}
		} else {
			level = m.Var(model.VarTankLevel, p, t)
			drain = m.Var(model.VarTankDrain, p, t)
			for _, a := range b.padTanks(p) {
				r, ok := reg.Value(model.ParamProductionRates, p, a, t)
				if !ok {
					r = reg.ValueOr(model.ParamProductionRates, 0, p, t)
				}
				rate += r
			}
			if pt := reg.PrevPeriod(t); pt != "" {
				prev = m.Var(model.VarTankLevel, p, pt)
			}
		}

		e := model.NewExpr().AddTerm(level, 1).AddTerm(drain, 1)
		if prev != nil {
			e = e.AddTerm(prev, -1)
		}
		return eq(e, rate), true
	})
	if err != nil {
		return err
	}

	return b.emit("TankCapacity", keys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		p := parts[0]
		t := parts[len(parts)-1]
		if b.cfg.Tanks == model.TanksIndividual {
			a := parts[1]
			cap, ok := reg.Value(model.ParamProductionTankCapacity, p, a)
			if !ok {
				return row{}, false
			}
			e := model.NewExpr().AddTerm(m.Var(model.VarTankLevel, p, a, t), 1)
			return le(e, cap), true
		}
		total := 0.0
		found := false
		for _, a := range b.padTanks(p) {
			if cap, ok := reg.Value(model.ParamProductionTankCapacity, p, a); ok {
				total += cap
				found = true
			}
		}
		if !found {
			if cap, ok := reg.Value(model.ParamProductionTankCapacity, p); ok {
				total = cap
				found = true
			}
		}
		if !found {
			return row{}, false
		}
		e := model.NewExpr().AddTerm(m.Var(model.VarTankLevel, p, t), 1)
		return le(e, total), true
	})
}

// demandBalances emits the completions-pad side: intake routing, the
// demand balance (equality with slack relief, or an inequality for pads
// flagged outside the managed system), the flowback supply balance, and
// the pad-storage stock recursion.
func (b *builder) demandBalances() error {
	reg, m := b.reg, b.m
	pads := reg.Set(model.SetCompletionsPads)
	keys := locPeriodKeys(pads, reg.Periods())

	err := b.emit("CompletionsIntake", keys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		p, t := parts[0], parts[1]
		e := b.inflow(p, t).AddTerm(m.Var(model.VarCompletions, p, t), -1)
		if b.hasPadStorage(p) {
			e = e.AddTerm(m.Var(model.VarPadStorageOut, p, t), 1).
				AddTerm(m.Var(model.VarPadStorageIn, p, t), -1)
		}
		return eq(e, 0), true
	})
	if err != nil {
		return err
	}

	err = b.emit("CompletionsDemandBalance", keys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		p, t := parts[0], parts[1]
		demand := reg.ValueOr(model.ParamCompletionsDemand, 0, p, t)
		dest := model.NewExpr().AddTerm(m.Var(model.VarCompletions, p, t), 1)
		if b.outsideSystem(p) {
			return le(dest, demand), true
		}
		dest = dest.AddTerm(m.Var(model.VarSlackDemand, p, t), 1)
		return eq(dest, demand), true
	})
	if err != nil {
		return err
	}

	err = b.emit("FlowbackBalance", keys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		p, t := parts[0], parts[1]
		rate, ok := reg.Value(model.ParamFlowbackRates, p, t)
		if !ok {
			// No flowback at this pad and period: nothing to absorb,
			// but any outgoing arcs must carry nothing.
			out := b.outflow(p, t)
			if out.Len() == 0 {
				return row{}, false
			}
			return eq(out, 0), true
		}
		e := b.outflow(p, t).AddTerm(m.Var(model.VarSlackFlowback, p, t), 1)
		return eq(e, rate), true
	})
	if err != nil {
		return err
	}

	err = b.emit("PadStorageRecursion", keys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		p, t := parts[0], parts[1]
		if !b.hasPadStorage(p) {
			return row{}, false
		}
		e := model.NewExpr().
			AddTerm(m.Var(model.VarPadStorageLevel, p, t), 1).
			AddTerm(m.Var(model.VarPadStorageIn, p, t), -1).
			AddTerm(m.Var(model.VarPadStorageOut, p, t), 1)
		if pt := reg.PrevPeriod(t); pt != "" {
			e = e.AddTerm(m.Var(model.VarPadStorageLevel, p, pt), -1)
		}
		return eq(e, 0), true
	})
	if err != nil {
		return err
	}

	return b.emit("PadStorageCapacity", keys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		p, t := parts[0], parts[1]
		cap, ok := reg.Value(model.ParamPadStorageCapacity, p)
		if !ok {
			return row{}, false
		}
		e := model.NewExpr().AddTerm(m.Var(model.VarPadStorageLevel, p, t), 1)
		return le(e, cap), true
	})
}

// nodeBalances emits pass-through conservation at network nodes.
func (b *builder) nodeBalances() error {
	reg := b.reg
	keys := locPeriodKeys(reg.Set(model.SetNetworkNodes), reg.Periods())
	return b.emit("NetworkNodeBalance", keys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		n, t := parts[0], parts[1]
		in := b.inflow(n, t)
		out := b.outflow(n, t)
		if in.Len() == 0 && out.Len() == 0 {
			return row{}, false
		}
		return eq(in.Plus(out.Scaled(-1)), 0), true
	})
}

// storageBalances emits the storage-site level recursion with the fixed
// initial condition, evaporation losses on the carried level, and the
// optional terminal bound at the last period.
func (b *builder) storageBalances() error {
	reg, m := b.reg, b.m
	sites := reg.Set(model.SetStorageSites)
	keys := locPeriodKeys(sites, reg.Periods())

	err := b.emit("StorageLevelRecursion", keys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		s, t := parts[0], parts[1]
		evap := reg.ValueOr(model.ParamEvaporationRate, 0, s)
		carry := 1 - evap

		e := model.NewExpr().
			AddTerm(m.Var(model.VarStorageLevel, s, t), 1).
			Plus(b.inflow(s, t).Scaled(-1)).
			Plus(b.outflow(s, t))

		if pt := reg.PrevPeriod(t); pt != "" {
			e = e.AddTerm(m.Var(model.VarStorageLevel, s, pt), -carry)
			return eq(e, 0), true
		}
		initial := reg.ValueOr(model.ParamInitialStorageLevel, 0, s)
		return eq(e, carry*initial), true
	})
	if err != nil {
		return err
	}

	var lastKeys []model.Key
	for _, s := range sites {
		lastKeys = append(lastKeys, model.K(s))
	}
	return b.emit("StorageTerminalLevel", lastKeys, func(idx model.Key) (row, bool) {
		s := idx.Parts()[0]
		terminal, ok := reg.Value(model.ParamTerminalStorageLevel, s)
		if !ok {
			return row{}, false
		}
		e := model.NewExpr().AddTerm(m.Var(model.VarStorageLevel, s, reg.LastPeriod()), 1)
		return ge(e, terminal), true
	})
}

// sinkBalances ties disposal and reuse intake to their destination
// variables.
func (b *builder) sinkBalances() error {
	reg, m := b.reg, b.m

	err := b.emit("DisposalIntake", locPeriodKeys(reg.Set(model.SetDisposalSites), reg.Periods()),
		func(idx model.Key) (row, bool) {
			parts := idx.Parts()
			k, t := parts[0], parts[1]
			e := b.inflow(k, t).AddTerm(m.Var(model.VarDisposal, k, t), -1)
			return eq(e, 0), true
		})
	if err != nil {
		return err
	}

	return b.emit("ReuseIntake", locPeriodKeys(reg.Set(model.SetReuseOptions), reg.Periods()),
		func(idx model.Key) (row, bool) {
			parts := idx.Parts()
			o, t := parts[0], parts[1]
			e := b.inflow(o, t).AddTerm(m.Var(model.VarReuse, o, t), -1)
			return eq(e, 0), true
		})
}

// treatmentBalances emits the treatment intake split, the treated
// outflow tie, and the removal-efficiency relations. When technology
// increments exist, the selected technology's efficiency is enforced
// through a big-M pair; the site's default efficiency applies while no
// increment is selected.
func (b *builder) treatmentBalances() error {
	reg, m := b.reg, b.m
	sites := reg.Set(model.SetTreatmentSites)
	keys := locPeriodKeys(sites, reg.Periods())
	techs := reg.Set(model.SetTreatmentTechnologies)
	incs := reg.Set(model.SetTreatmentIncrements)
	bigM := b.m.BigM

	err := b.emit("TreatmentIntake", keys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		r, t := parts[0], parts[1]
		e := b.inflow(r, t).
			AddTerm(m.Var(model.VarTreated, r, t), -1).
			AddTerm(m.Var(model.VarResidual, r, t), -1)
		return eq(e, 0), true
	})
	if err != nil {
		return err
	}

	err = b.emit("TreatedOutflow", keys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		r, t := parts[0], parts[1]
		e := b.outflow(r, t).AddTerm(m.Var(model.VarTreated, r, t), -1)
		return eq(e, 0), true
	})
	if err != nil {
		return err
	}

	hasTechSplit := len(techs) > 0 && len(incs) > 0

	if hasTechSplit {
		var techKeys []model.Key
		for _, r := range sites {
			for _, tech := range techs {
				for _, t := range reg.Periods() {
					techKeys = append(techKeys, model.K(r, tech, t))
				}
			}
		}

		// treated - eff*inflow must vanish when the technology is
		// selected; M relaxes the pair otherwise.
		split := func(sign float64) emitter {
			return func(idx model.Key) (row, bool) {
				parts := idx.Parts()
				r, tech, t := parts[0], parts[1], parts[2]
				eff, ok := reg.Value(model.ParamTreatmentEfficiency, r, tech)
				if !ok {
					return row{}, false
				}
				e := model.NewExpr().
					AddTerm(m.Var(model.VarTreated, r, t), sign).
					Plus(b.inflow(r, t).Scaled(-sign * eff))
				for _, i := range incs {
					e = e.AddTerm(m.Var(model.VarTreatmentExpansion, r, tech, i), bigM)
				}
				return le(e, bigM), true
			}
		}
		if err := b.emit("TreatmentEfficiencyUpper", techKeys, split(1)); err != nil {
			return err
		}
		if err := b.emit("TreatmentEfficiencyLower", techKeys, split(-1)); err != nil {
			return err
		}
	}

	// Default efficiency: binds exactly while no increment is selected,
	// or unconditionally when there is no technology choice at all.
	defaultSplit := func(sign float64) emitter {
		return func(idx model.Key) (row, bool) {
			parts := idx.Parts()
			r, t := parts[0], parts[1]
			eff, ok := reg.Value(model.ParamTreatmentEfficiency, r)
			if !ok {
				return row{}, false
			}
			e := model.NewExpr().
				AddTerm(m.Var(model.VarTreated, r, t), sign).
				Plus(b.inflow(r, t).Scaled(-sign * eff))
			if !hasTechSplit {
				if sign < 0 {
					return row{}, false
				}
				return eq(e, 0), true
			}
			// The pair relaxes as soon as any increment is selected.
			for _, tech := range techs {
				for _, i := range incs {
					e = e.AddTerm(m.Var(model.VarTreatmentExpansion, r, tech, i), -bigM)
				}
			}
			return le(e, 0), true
		}
	}
	if err := b.emit("TreatmentDefaultEfficiencyUpper", keys, defaultSplit(1)); err != nil {
		return err
	}
	return b.emit("TreatmentDefaultEfficiencyLower", keys, defaultSplit(-1))
}

// sourcingLimits caps externally sourced water at each source's
// per-period availability.
func (b *builder) sourcingLimits() error {
	reg, m := b.reg, b.m
	keys := locPeriodKeys(reg.Set(model.SetExternalSources), reg.Periods())
	return b.emit("SourcingAvailability", keys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		f, t := parts[0], parts[1]
		e := model.NewExpr()
		for _, a := range reg.ArcsOutOf(model.SetSourcingArcs, f) {
			e = e.AddTerm(m.Var(model.VarSourced, a.From, a.To, t), 1)
		}
		if e.Len() == 0 {
			return row{}, false
		}
		avail := reg.ValueOr(model.ParamExternalAvailability, 0, f, t)
		return le(e, avail), true
	})
}
