package build

import (
	"pwnet/core/model"
)

// expansionLogic emits the logic constraints: at most one capacity
// increment may be selected per expandable entity. Selected increments
// persist for the remainder of the horizon, so the binaries carry no
// time index.
func (b *builder) expansionLogic() error {
	reg, m := b.reg, b.m

	var arcKeys []model.Key
	for _, a := range reg.Arcs(model.SetPipingArcs) {
		arcKeys = append(arcKeys, a.Key())
	}
	err := b.emit("PipelineExpansionLogic", arcKeys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		diameters := reg.Set(model.SetPipelineDiameters)
		if len(diameters) == 0 {
			return row{}, false
		}
		e := model.NewExpr()
		for _, d := range diameters {
			e = e.AddTerm(m.Var(model.VarPipelineExpansion, parts[0], parts[1], d), 1)
		}
		return le(e, 1), true
	})
	if err != nil {
		return err
	}

	single := func(name, set, incSet, varName string) error {
		var keys []model.Key
		for _, l := range reg.Set(set) {
			keys = append(keys, model.K(l))
		}
		return b.emit(name, keys, func(idx model.Key) (row, bool) {
			incs := reg.Set(incSet)
			if len(incs) == 0 {
				return row{}, false
			}
			e := model.NewExpr()
			for _, i := range incs {
				e = e.AddTerm(m.Var(varName, idx.Parts()[0], i), 1)
			}
			return le(e, 1), true
		})
	}
	if err := single("DisposalExpansionLogic", model.SetDisposalSites, model.SetDisposalIncrements, model.VarDisposalExpansion); err != nil {
		return err
	}
	if err := single("StorageExpansionLogic", model.SetStorageSites, model.SetStorageIncrements, model.VarStorageExpansion); err != nil {
		return err
	}

	var treatKeys []model.Key
	for _, r := range reg.Set(model.SetTreatmentSites) {
		treatKeys = append(treatKeys, model.K(r))
	}
	return b.emit("TreatmentExpansionLogic", treatKeys, func(idx model.Key) (row, bool) {
		techs := reg.Set(model.SetTreatmentTechnologies)
		incs := reg.Set(model.SetTreatmentIncrements)
		if len(techs) == 0 || len(incs) == 0 {
			return row{}, false
		}
		e := model.NewExpr()
		for _, tech := range techs {
			for _, i := range incs {
				e = e.AddTerm(m.Var(model.VarTreatmentExpansion, idx.Parts()[0], tech, i), 1)
			}
		}
		return le(e, 1), true
	})
}

// capacityLimits emits the capacity-definition equalities
// (available = initial + selected increments + slack) and the flow and
// stock limits against them.
func (b *builder) capacityLimits() error {
	reg, m := b.reg, b.m
	periods := reg.Periods()

	var arcKeys []model.Key
	for _, a := range reg.Arcs(model.SetPipingArcs) {
		arcKeys = append(arcKeys, a.Key())
	}

	// Bidirectional pairs share the physical pipe: increments selected
	// in either direction contribute to both capacities.
	err := b.emit("PipelineCapacityDefinition", arcKeys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		from, to := parts[0], parts[1]
		e := model.NewExpr().
			AddTerm(m.Var(model.VarPipelineCapacity, from, to), 1).
			AddTerm(m.Var(model.VarSlackPipelineCapacity, from, to), -1)
		for _, d := range reg.Set(model.SetPipelineDiameters) {
			cap := b.diameterCapacity(d)
			e = e.AddTerm(m.Var(model.VarPipelineExpansion, from, to, d), -cap)
			if rev := m.Var(model.VarPipelineExpansion, to, from, d); rev != nil {
				e = e.AddTerm(rev, -cap)
			}
		}
		initial := reg.ValueOr(model.ParamInitialPipelineCapacity, 0, from, to)
		return eq(e, initial), true
	})
	if err != nil {
		return err
	}

	err = b.emit("PipelineCapacityLimit", arcPeriodKeys(reg.Arcs(model.SetPipingArcs), periods),
		func(idx model.Key) (row, bool) {
			parts := idx.Parts()
			from, to, t := parts[0], parts[1], parts[2]
			e := model.NewExpr().
				AddTerm(m.Var(model.VarPiped, from, to, t), 1).
				AddTerm(m.Var(model.VarPipelineCapacity, from, to), -1)
			return le(e, 0), true
		})
	if err != nil {
		return err
	}

	// Disposal capacity is time-indexed: the initial capacity is
	// derated by the operating schedule and zeroed out for curtailed
	// wells when the subsurface-risk block is built.
	disposalKeys := locPeriodKeys(reg.Set(model.SetDisposalSites), periods)
	err = b.emit("DisposalCapacityDefinition", disposalKeys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		k, t := parts[0], parts[1]
		initial := reg.ValueOr(model.ParamInitialDisposalCapacity, 0, k)
		mult := reg.ValueOr(model.ParamOperatingCapacityMultiplier, 1, k, t)
		e := model.NewExpr().
			AddTerm(m.Var(model.VarDisposalCapacity, k, t), 1).
			AddTerm(m.Var(model.VarSlackDisposalCapacity, k), -1)
		for _, i := range reg.Set(model.SetDisposalIncrements) {
			size := reg.ValueOr(model.ParamDisposalIncrementSize, 0, i)
			e = e.AddTerm(m.Var(model.VarDisposalExpansion, k, i), -size)
		}
		if b.riskEnabled() {
			e = e.AddTerm(m.Var(model.VarCurtailment, k), initial*mult)
		}
		return eq(e, initial*mult), true
	})
	if err != nil {
		return err
	}

	err = b.emit("DisposalCapacityLimit", disposalKeys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		k, t := parts[0], parts[1]
		e := model.NewExpr().
			AddTerm(m.Var(model.VarDisposal, k, t), 1).
			AddTerm(m.Var(model.VarDisposalCapacity, k, t), -1)
		return le(e, 0), true
	})
	if err != nil {
		return err
	}

	var storageKeys []model.Key
	for _, s := range reg.Set(model.SetStorageSites) {
		storageKeys = append(storageKeys, model.K(s))
	}
	err = b.emit("StorageCapacityDefinition", storageKeys, func(idx model.Key) (row, bool) {
		s := idx.Parts()[0]
		e := model.NewExpr().
			AddTerm(m.Var(model.VarStorageCapacity, s), 1).
			AddTerm(m.Var(model.VarSlackStorageCapacity, s), -1)
		for _, i := range reg.Set(model.SetStorageIncrements) {
			size := reg.ValueOr(model.ParamStorageIncrementSize, 0, i)
			e = e.AddTerm(m.Var(model.VarStorageExpansion, s, i), -size)
		}
		return eq(e, reg.ValueOr(model.ParamInitialStorageCapacity, 0, s)), true
	})
	if err != nil {
		return err
	}

	err = b.emit("StorageCapacityLimit", locPeriodKeys(reg.Set(model.SetStorageSites), periods),
		func(idx model.Key) (row, bool) {
			parts := idx.Parts()
			s, t := parts[0], parts[1]
			e := model.NewExpr().
				AddTerm(m.Var(model.VarStorageLevel, s, t), 1).
				AddTerm(m.Var(model.VarStorageCapacity, s), -1)
			return le(e, 0), true
		})
	if err != nil {
		return err
	}

	var treatKeys []model.Key
	for _, r := range reg.Set(model.SetTreatmentSites) {
		treatKeys = append(treatKeys, model.K(r))
	}
	err = b.emit("TreatmentCapacityDefinition", treatKeys, func(idx model.Key) (row, bool) {
		r := idx.Parts()[0]
		e := model.NewExpr().
			AddTerm(m.Var(model.VarTreatmentCapacity, r), 1).
			AddTerm(m.Var(model.VarSlackTreatmentCapacity, r), -1)
		for _, tech := range reg.Set(model.SetTreatmentTechnologies) {
			for _, i := range reg.Set(model.SetTreatmentIncrements) {
				size := reg.ValueOr(model.ParamTreatmentIncrementSize, 0, i)
				e = e.AddTerm(m.Var(model.VarTreatmentExpansion, r, tech, i), -size)
			}
		}
		return eq(e, reg.ValueOr(model.ParamInitialTreatmentCapacity, 0, r)), true
	})
	if err != nil {
		return err
	}

	err = b.emit("TreatmentCapacityLimit", locPeriodKeys(reg.Set(model.SetTreatmentSites), periods),
		func(idx model.Key) (row, bool) {
			parts := idx.Parts()
			r, t := parts[0], parts[1]
			e := b.inflow(r, t).AddTerm(m.Var(model.VarTreatmentCapacity, r), -1)
			if e.Len() <= 1 {
				return row{}, false
			}
			return le(e, 0), true
		})
	if err != nil {
		return err
	}

	if b.cfg.NodeCapacity {
		err = b.emit("NodeCapacityLimit", locPeriodKeys(reg.Set(model.SetNetworkNodes), periods),
			func(idx model.Key) (row, bool) {
				parts := idx.Parts()
				n, t := parts[0], parts[1]
				cap, ok := reg.Value(model.ParamNodeCapacity, n)
				if !ok {
					return row{}, false
				}
				in := b.inflow(n, t)
				if in.Len() == 0 {
					return row{}, false
				}
				return le(in, cap), true
			})
		if err != nil {
			return err
		}
	}

	err = b.emit("ReuseCapacityLimit", locPeriodKeys(reg.Set(model.SetReuseOptions), periods),
		func(idx model.Key) (row, bool) {
			parts := idx.Parts()
			o, t := parts[0], parts[1]
			cap, ok := reg.Value(model.ParamReuseCapacity, o)
			if !ok {
				return row{}, false
			}
			e := model.NewExpr().AddTerm(m.Var(model.VarReuse, o, t), 1)
			return le(e, cap), true
		})
	if err != nil {
		return err
	}

	err = b.emit("PadOffloadingLimit", locPeriodKeys(reg.Set(model.SetCompletionsPads), periods),
		func(idx model.Key) (row, bool) {
			parts := idx.Parts()
			p, t := parts[0], parts[1]
			cap, ok := reg.Value(model.ParamPadOffloadingCapacity, p)
			if !ok {
				return row{}, false
			}
			e := model.NewExpr()
			for _, a := range reg.ArcsInto(model.SetTruckingArcs, p) {
				e = e.AddTerm(m.Var(model.VarTrucked, a.From, a.To, t), 1)
			}
			if e.Len() == 0 {
				return row{}, false
			}
			return le(e, cap), true
		})
	if err != nil {
		return err
	}

	// Minimum-reuse-fraction side constraint over the whole horizon;
	// omitted entirely when the parameter is absent.
	frac, ok := reg.Scalar(model.ParamMinReuseFraction)
	if !ok {
		return nil
	}
	reused := model.NewExpr()
	produced := 0.0
	for _, t := range periods {
		for _, p := range reg.Set(model.SetCompletionsPads) {
			reused = reused.AddTerm(m.Var(model.VarCompletions, p, t), 1)
		}
		for _, o := range reg.Set(model.SetReuseOptions) {
			reused = reused.AddTerm(m.Var(model.VarReuse, o, t), 1)
		}
		for _, p := range reg.Set(model.SetProductionPads) {
			produced += reg.ValueOr(model.ParamProductionRates, 0, p, t)
		}
		for _, p := range reg.Set(model.SetCompletionsPads) {
			produced += reg.ValueOr(model.ParamFlowbackRates, 0, p, t)
		}
	}
	if reused.Len() == 0 {
		return nil
	}
	_, err = m.AddGe("MinReuseFraction", "", reused, frac*produced)
	return err
}

// directionExclusivity forces bidirectional piping pairs to flow in at
// most one direction per period, selected by a binary indicator.
func (b *builder) directionExclusivity() error {
	m := b.m
	bigM := b.m.BigM
	keys := arcPeriodKeys(b.bidirectionalPairs(), b.reg.Periods())

	err := b.emit("FlowDirectionForward", keys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		from, to, t := parts[0], parts[1], parts[2]
		e := model.NewExpr().
			AddTerm(m.Var(model.VarPiped, from, to, t), 1).
			AddTerm(m.Var(model.VarFlowDirection, from, to, t), -bigM)
		return le(e, 0), true
	})
	if err != nil {
		return err
	}

	return b.emit("FlowDirectionReverse", keys, func(idx model.Key) (row, bool) {
		parts := idx.Parts()
		from, to, t := parts[0], parts[1], parts[2]
		e := model.NewExpr().
			AddTerm(m.Var(model.VarPiped, to, from, t), 1).
			AddTerm(m.Var(model.VarFlowDirection, from, to, t), bigM)
		return le(e, bigM), true
	})
}
