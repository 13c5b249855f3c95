package quality

import (
	"context"
	"math"

	"go.uber.org/zap"

	"pwnet/core/model"
	"pwnet/solvers"
	"pwnet/internal/logging"
)

// Discrete is the bucketed mixed-integer quality strategy. Each
// variable-quality location picks exactly one representative
// concentration per component and period through a one-hot binary
// selection, and every flow leaving such a location is disaggregated
// into per-bucket sub-flows so that contaminant load balances stay
// linear.
type Discrete struct {
	n int
}

// NewDiscrete returns the discrete strategy with an n-value ladder per
// component. Ladders below two values cannot distinguish anything and
// are widened to two.
func NewDiscrete(n int) *Discrete {
	if n < 2 {
		n = 2
	}
	return &Discrete{n: n}
}

// Name identifies the strategy.
func (d *Discrete) Name() string { return "discrete" }

// Mode returns the configuration mode this strategy serves.
func (d *Discrete) Mode() model.QualityMode { return model.QualityDiscrete }

// Prepare adds the discrete quality block to the unsolved flow model:
// bucket selections, disaggregated stage sub-flows, and per-component
// load balances at every variable-quality location.
func (d *Discrete) Prepare(m *model.Model) error {
	reg := m.Registry
	comps := reg.Set(model.SetQualityComponents)
	if len(comps) == 0 {
		return nil
	}

	b := &discreteBuilder{
		m:     m,
		reg:   reg,
		comps: comps,
		lads:  make(map[string][]float64, len(comps)),
		ubs:   make(map[string]float64),
		n:     d.n,
	}
	for _, w := range comps {
		b.lads[w] = ladder(reg, w, d.n)
	}
	for _, l := range variableQualityLocations(reg) {
		b.ubs[l] = stageUpperBound(m, l)
	}

	steps := []func() error{
		b.bucketSelections,
		b.transportStages,
		b.storageBlock,
		b.treatmentBlock,
		b.sinkBlocks,
		b.completionsBlock,
		b.nodeBalances,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	logging.Info("discrete quality block added",
		zap.Int("buckets", d.n),
		zap.Int("components", len(comps)),
		zap.Int("locations", len(b.ubs)))
	return nil
}

// GuessInitial fixes every bucket selection to the ladder value nearest
// the flow-weighted mean source concentration of its component. This is
// the phase-one fixing of the two-phase warm-start procedure; callers
// snapshot bounds beforehand and restore them afterwards.
func (d *Discrete) GuessInitial(m *model.Model) {
	reg := m.Registry
	for _, w := range reg.Set(model.SetQualityComponents) {
		lad := ladder(reg, w, d.n)
		guess := nearestBucket(lad, meanSourceQuality(reg, w))
		for _, z := range m.VarsNamed(model.VarQualityBucket) {
			parts := z.Index.Parts()
			if len(parts) != 4 || parts[1] != w {
				continue
			}
			if parts[2] == bucketID(guess) {
				z.Fix(1)
			} else {
				z.Fix(0)
			}
		}
	}
}

// Finalize reads the solved bucket selections back into a report. The
// discrete strategy needs no further solve.
func (d *Discrete) Finalize(_ context.Context, m *model.Model, _ solvers.Solver, _ solvers.Options) (*Report, error) {
	if err := checkSolved(m); err != nil {
		return nil, err
	}
	reg := m.Registry
	rep := &Report{Mode: model.QualityDiscrete, Values: make(map[model.Key]float64)}
	for _, z := range m.VarsNamed(model.VarQualityBucket) {
		if z.Value < 0.5 {
			continue
		}
		parts := z.Index.Parts()
		if len(parts) != 4 {
			continue
		}
		loc, w, bucket, t := parts[0], parts[1], parts[2], parts[3]
		lad := ladder(reg, w, d.n)
		for q := 0; q < d.n; q++ {
			if bucketID(q) == bucket {
				rep.Values[model.K(loc, w, t)] = lad[q]
			}
		}
	}
	return rep, nil
}

// meanSourceQuality averages a component's concentration over all
// fixed-quality sources.
func meanSourceQuality(reg *model.Registry, component string) float64 {
	total, count := 0.0, 0
	for k, v := range reg.Param(model.ParamSourceQuality) {
		parts := k.Parts()
		if len(parts) == 2 && parts[1] == component {
			total += v
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// nearestBucket returns the ladder index closest to target.
func nearestBucket(lad []float64, target float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, v := range lad {
		if d := math.Abs(v - target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// discreteBuilder carries the shared state of one Prepare pass.
type discreteBuilder struct {
	m     *model.Model
	reg   *model.Registry
	comps []string
	lads  map[string][]float64
	ubs   map[string]float64
	n     int
}

// bucketSelections creates the one-hot binaries and their selection rows.
func (b *discreteBuilder) bucketSelections() error {
	for _, l := range variableQualityLocations(b.reg) {
		for _, w := range b.comps {
			for _, t := range b.reg.Periods() {
				sel := model.NewExpr()
				for q := 0; q < b.n; q++ {
					z := b.m.NewVar(model.VarQualityBucket, model.Binary, 0, 1, l, w, bucketID(q), t)
					sel = sel.AddTerm(z, 1)
				}
				if _, err := b.m.AddEq("QualityBucketSelection", model.K(l, w, t), sel, 1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// selection returns the one-hot binary for (loc, component, bucket,
// period). It must already exist.
func (b *discreteBuilder) selection(l, w string, q int, t string) *model.Var {
	return b.m.Var(model.VarQualityBucket, l, w, bucketID(q), t)
}

// disaggregate splits a parent flow (or stock) owned by a
// variable-quality location into per-bucket sub-flows: the sub-flows sum
// to the parent, and each is forced to zero unless its bucket is
// selected. The parent's final index element is its period.
func (b *discreteBuilder) disaggregate(subFamily, rowBase string, parent *model.Var, owner, w string) error {
	idx := parent.Index.Parts()
	t := idx[len(idx)-1]
	sum := model.NewExpr().AddTerm(parent, -1)
	for q := 0; q < b.n; q++ {
		sidx := append(append([]string(nil), idx...), w, bucketID(q))
		sub := b.m.NewVar(subFamily, model.Continuous, 0, model.Inf(), sidx...)
		sum = sum.AddTerm(sub, 1)
		bound := model.NewExpr().AddTerm(sub, 1).AddTerm(b.selection(owner, w, q, t), -b.ubs[owner])
		if _, err := b.m.AddLe(rowBase+"Bound", model.K(sidx...), bound, 0); err != nil {
			return err
		}
	}
	_, err := b.m.AddEq(rowBase+"Sum", model.K(append(idx, w)...), sum, 0)
	return err
}

// bucketLoad is the contaminant load carried by one disaggregated
// family at the given index prefix: sum over buckets of ladder value
// times sub-flow.
func (b *discreteBuilder) bucketLoad(subFamily, w string, prefix ...string) model.LinExpr {
	e := model.NewExpr()
	for q := 0; q < b.n; q++ {
		idx := append(append([]string(nil), prefix...), w, bucketID(q))
		e = e.AddTerm(b.m.Var(subFamily, idx...), b.lads[w][q])
	}
	return e
}

// transportStages disaggregates every piping and trucking flow that
// originates at a variable-quality location. Flows out of fixed-quality
// sources carry a known concentration and need no sub-flows.
func (b *discreteBuilder) transportStages() error {
	families := []struct {
		arcSet, flow, sub, rowBase string
	}{
		{model.SetPipingArcs, model.VarPiped, model.VarPipedQ, "DiscretePiped"},
		{model.SetTruckingArcs, model.VarTrucked, model.VarTruckedQ, "DiscreteTrucked"},
	}
	for _, fam := range families {
		for _, a := range b.reg.Arcs(fam.arcSet) {
			if _, fixed := fixedQuality(b.reg, a.From, b.comps[0]); fixed {
				continue
			}
			for _, t := range b.reg.Periods() {
				f := b.m.Var(fam.flow, a.From, a.To, t)
				if f == nil {
					continue
				}
				for _, w := range b.comps {
					if err := b.disaggregate(fam.sub, fam.rowBase, f, a.From, w); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// inflowLoad is the contaminant load entering a location in one period:
// fixed-quality origins contribute concentration times flow, variable
// ones contribute their disaggregated sub-flow loads, and external
// sourcing contributes at the source's fixed quality.
func (b *discreteBuilder) inflowLoad(l, w, t string) model.LinExpr {
	e := model.NewExpr()
	transport := func(arcSet, flow, sub string) {
		for _, a := range b.reg.ArcsInto(arcSet, l) {
			f := b.m.Var(flow, a.From, a.To, t)
			if f == nil {
				continue
			}
			if conc, fixed := fixedQuality(b.reg, a.From, w); fixed {
				e = e.AddTerm(f, conc)
				continue
			}
			e = e.Plus(b.bucketLoad(sub, w, a.From, a.To, t))
		}
	}
	transport(model.SetPipingArcs, model.VarPiped, model.VarPipedQ)
	transport(model.SetTruckingArcs, model.VarTrucked, model.VarTruckedQ)
	for _, a := range b.reg.ArcsInto(model.SetSourcingArcs, l) {
		f := b.m.Var(model.VarSourced, a.From, a.To, t)
		if f == nil {
			continue
		}
		conc, _ := fixedQuality(b.reg, a.From, w)
		e = e.AddTerm(f, conc)
	}
	return e
}

// outflowLoad is the contaminant load leaving a variable-quality
// location through piping and trucking arcs in one period.
func (b *discreteBuilder) outflowLoad(l, w, t string) model.LinExpr {
	e := model.NewExpr()
	for _, a := range b.reg.ArcsOutOf(model.SetPipingArcs, l) {
		if b.m.Var(model.VarPiped, a.From, a.To, t) != nil {
			e = e.Plus(b.bucketLoad(model.VarPipedQ, w, a.From, a.To, t))
		}
	}
	for _, a := range b.reg.ArcsOutOf(model.SetTruckingArcs, l) {
		if b.m.Var(model.VarTrucked, a.From, a.To, t) != nil {
			e = e.Plus(b.bucketLoad(model.VarTruckedQ, w, a.From, a.To, t))
		}
	}
	return e
}

// storageBlock disaggregates storage levels and balances stored load:
// this period's held load equals last period's held load net of
// evaporation, plus received load, minus withdrawn load. Withdrawals
// leave at the current period's bucket.
func (b *discreteBuilder) storageBlock() error {
	for _, s := range b.reg.Set(model.SetStorageSites) {
		for _, t := range b.reg.Periods() {
			lv := b.m.Var(model.VarStorageLevel, s, t)
			if lv == nil {
				continue
			}
			for _, w := range b.comps {
				if err := b.disaggregate(model.VarStorageLevelQ, "DiscreteStorage", lv, s, w); err != nil {
					return err
				}
			}
		}
		carry := 1 - b.reg.ValueOr(model.ParamEvaporationRate, 0, s)
		for _, t := range b.reg.Periods() {
			for _, w := range b.comps {
				e := b.bucketLoad(model.VarStorageLevelQ, w, s, t)
				e = e.Plus(b.inflowLoad(s, w, t).Scaled(-1))
				e = e.Plus(b.outflowLoad(s, w, t))
				rhs := 0.0
				if prev := b.reg.PrevPeriod(t); prev != "" {
					e = e.Plus(b.bucketLoad(model.VarStorageLevelQ, w, s, prev).Scaled(-carry))
				} else {
					initLevel := b.reg.ValueOr(model.ParamInitialStorageLevel, 0, s)
					initQ := b.reg.ValueOr(model.ParamStorageInitialQuality, 0, s, w)
					rhs = carry * initLevel * initQ
				}
				if e.Len() == 0 {
					continue
				}
				if _, err := b.m.AddEq("StorageQualityBalance", model.K(s, w, t), e, rhs); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// treatmentBlock disaggregates treated outflow and applies removal to
// the bucketed load: the treated stream carries the inlet load reduced
// by the site's removal efficiency for that component. The removed mass
// leaves with the residual stream and is no longer tracked.
func (b *discreteBuilder) treatmentBlock() error {
	for _, r := range b.reg.Set(model.SetTreatmentSites) {
		for _, t := range b.reg.Periods() {
			tv := b.m.Var(model.VarTreated, r, t)
			if tv == nil {
				continue
			}
			for _, w := range b.comps {
				if err := b.disaggregate(model.VarTreatedQ, "DiscreteTreated", tv, r, w); err != nil {
					return err
				}
				eff := b.reg.ValueOr(model.ParamRemovalEfficiency, 0, r, w)
				e := b.bucketLoad(model.VarTreatedQ, w, r, t)
				e = e.Plus(b.inflowLoad(r, w, t).Scaled(-(1 - eff)))
				if e.Len() == 0 {
					continue
				}
				if _, err := b.m.AddEq("TreatmentQualityBalance", model.K(r, w, t), e, 0); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// sinkBlocks disaggregate disposal and reuse destination volumes and
// pin their bucketed load to the arriving load, which fixes each sink's
// bucket to the concentration of its inflow blend.
func (b *discreteBuilder) sinkBlocks() error {
	sinks := []struct {
		set, flow, sub, rowBase, balance string
	}{
		{model.SetDisposalSites, model.VarDisposal, model.VarDisposalQ, "DiscreteDisposal", "DisposalQualityBalance"},
		{model.SetReuseOptions, model.VarReuse, model.VarReuseQ, "DiscreteReuse", "ReuseQualityBalance"},
	}
	for _, sink := range sinks {
		for _, k := range b.reg.Set(sink.set) {
			for _, t := range b.reg.Periods() {
				f := b.m.Var(sink.flow, k, t)
				if f == nil {
					continue
				}
				for _, w := range b.comps {
					if err := b.disaggregate(sink.sub, sink.rowBase, f, k, w); err != nil {
						return err
					}
					e := b.bucketLoad(sink.sub, w, k, t)
					e = e.Plus(b.inflowLoad(k, w, t).Scaled(-1))
					if e.Len() == 0 {
						continue
					}
					if _, err := b.m.AddEq(sink.balance, model.K(k, w, t), e, 0); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// completionsBlock tracks quality through completions pads: the pad's
// bucket covers its intake, its pad storage, and any flowback leaving
// it. Flowback enters at the pad's own source concentration when one is
// tabulated.
func (b *discreteBuilder) completionsBlock() error {
	for _, p := range b.reg.Set(model.SetCompletionsPads) {
		hasStorage := b.m.Var(model.VarPadStorageLevel, p, b.reg.FirstPeriod()) != nil
		for _, t := range b.reg.Periods() {
			dest := b.m.Var(model.VarCompletions, p, t)
			if dest != nil {
				for _, w := range b.comps {
					if err := b.disaggregate(model.VarCompletionsQ, "DiscreteCompletions", dest, p, w); err != nil {
						return err
					}
				}
			}
			if hasStorage {
				stages := []struct {
					flow, sub, rowBase string
				}{
					{model.VarPadStorageLevel, model.VarPadStorageLevelQ, "DiscretePadStorage"},
					{model.VarPadStorageIn, model.VarPadStorageInQ, "DiscretePadStorageIn"},
					{model.VarPadStorageOut, model.VarPadStorageOutQ, "DiscretePadStorageOut"},
				}
				for _, st := range stages {
					f := b.m.Var(st.flow, p, t)
					if f == nil {
						continue
					}
					for _, w := range b.comps {
						if err := b.disaggregate(st.sub, st.rowBase, f, p, w); err != nil {
							return err
						}
					}
				}
			}
		}

		for _, t := range b.reg.Periods() {
			for _, w := range b.comps {
				// Intake balance: arriving load plus withdrawn pad-storage
				// load covers the completions destination load, stored
				// load, and any flowback load leaving the pad.
				e := b.inflowLoad(p, w, t)
				e = e.Plus(b.bucketLoad(model.VarCompletionsQ, w, p, t).Scaled(-1))
				e = e.Plus(b.outflowLoad(p, w, t).Scaled(-1))
				if hasStorage {
					e = e.Plus(b.bucketLoad(model.VarPadStorageOutQ, w, p, t))
					e = e.Plus(b.bucketLoad(model.VarPadStorageInQ, w, p, t).Scaled(-1))
				}
				flowback := b.reg.ValueOr(model.ParamFlowbackRates, 0, p, t)
				conc := b.reg.ValueOr(model.ParamSourceQuality, 0, p, w)
				rhs := -flowback * conc
				if e.Len() == 0 {
					continue
				}
				if _, err := b.m.AddEq("CompletionsQualityBalance", model.K(p, w, t), e, rhs); err != nil {
					return err
				}

				if !hasStorage {
					continue
				}
				lvl := b.bucketLoad(model.VarPadStorageLevelQ, w, p, t)
				lvl = lvl.Plus(b.bucketLoad(model.VarPadStorageInQ, w, p, t).Scaled(-1))
				lvl = lvl.Plus(b.bucketLoad(model.VarPadStorageOutQ, w, p, t))
				if prev := b.reg.PrevPeriod(t); prev != "" {
					lvl = lvl.Plus(b.bucketLoad(model.VarPadStorageLevelQ, w, p, prev).Scaled(-1))
				}
				if _, err := b.m.AddEq("PadStorageQualityBalance", model.K(p, w, t), lvl, 0); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// nodeBalances conserve load at pass-through network nodes.
func (b *discreteBuilder) nodeBalances() error {
	for _, n := range b.reg.Set(model.SetNetworkNodes) {
		for _, t := range b.reg.Periods() {
			for _, w := range b.comps {
				e := b.inflowLoad(n, w, t)
				e = e.Plus(b.outflowLoad(n, w, t).Scaled(-1))
				if e.Len() == 0 {
					continue
				}
				if _, err := b.m.AddEq("NodeQualityBalance", model.K(n, w, t), e, 0); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

var _ Strategy = (*Discrete)(nil)
