package quality

import (
	"context"

	"go.uber.org/zap"

	"pwnet/core/model"
	"pwnet/solvers"
	"pwnet/internal/errors"
	"pwnet/internal/logging"
)

// varTreatmentInlet holds the blended inlet concentration at a
// treatment site, which the removal constraint reads.
const varTreatmentInlet = "v_Q_TreatmentInlet"

// varPadStorage holds the concentration of water held in a completions
// pad's storage.
const varPadStorage = "v_Q_PadStorage"

// flowTol is the threshold below which a solved flow is treated as zero
// when building quality blends.
const flowTol = 1e-9

// PostProcess is the continuous quality strategy: once the flow model
// is solved, the flows become constants and the nonconvex flow times
// concentration products turn into a linear system over concentration
// variables, solved as a standalone sub-model.
type PostProcess struct{}

// NewPostProcess returns the continuous post-process strategy.
func NewPostProcess() *PostProcess { return &PostProcess{} }

// Name identifies the strategy.
func (p *PostProcess) Name() string { return "post_process" }

// Mode returns the configuration mode this strategy serves.
func (p *PostProcess) Mode() model.QualityMode { return model.QualityPostProcess }

// Prepare is a no-op: the continuous strategy touches nothing before
// the flow solve.
func (p *PostProcess) Prepare(_ *model.Model) error { return nil }

// Finalize builds the concentration sub-model over the solved flows and
// solves it. It fails loudly when the input model does not carry a
// feasible solution: the quality system is undefined in that case.
func (p *PostProcess) Finalize(ctx context.Context, m *model.Model, solver solvers.Solver, opt solvers.Options) (*Report, error) {
	if err := checkSolved(m); err != nil {
		return nil, err
	}
	reg := m.Registry
	comps := reg.Set(model.SetQualityComponents)
	if len(comps) == 0 {
		return &Report{Mode: model.QualityPostProcess, Values: map[model.Key]float64{}}, nil
	}

	sub := model.New(m.Name+"-quality", reg, m.Cfg)
	qb := &continuousBuilder{flows: m, sub: sub, reg: reg, comps: comps}
	if err := qb.build(); err != nil {
		return nil, err
	}

	sol, err := solver.Solve(ctx, sub, opt)
	if err != nil {
		return nil, errors.Wrap(errors.TypeSolver, "quality sub-model solve failed", err)
	}
	if sol.Status != solvers.StatusOptimal {
		return nil, errors.Newf(errors.TypeSolver,
			"quality sub-model finished %s: the flow solution admits no consistent concentration field", sol.Status)
	}
	if err := sub.ApplySolution(sol.Values); err != nil {
		return nil, err
	}

	rep := &Report{Mode: model.QualityPostProcess, Values: make(map[model.Key]float64)}
	for _, v := range sub.VarsNamed(model.VarQuality) {
		rep.Values[v.Index] = v.Value
	}
	logging.Info("quality post-process solved",
		zap.Int("concentrations", len(rep.Values)),
		zap.String("solver", solver.Name()))
	return rep, nil
}

// continuousBuilder carries one Finalize pass: flows is the solved flow
// model, sub the concentration model under construction.
type continuousBuilder struct {
	flows *model.Model
	sub   *model.Model
	reg   *model.Registry
	comps []string
}

func (b *continuousBuilder) build() error {
	obj := model.NewExpr()
	for _, l := range variableQualityLocations(b.reg) {
		for _, w := range b.comps {
			for _, t := range b.reg.Periods() {
				obj = obj.AddTerm(b.quality(l, w, t), 1)
			}
		}
	}

	steps := []func() error{
		b.nodeBlends,
		b.storageRecursions,
		b.treatmentRemoval,
		b.sinkBlends,
		b.completionsBlends,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	// Minimizing the concentration sum pins locations that receive no
	// water in a period to zero instead of leaving them free.
	if err := b.sub.DefineObjective(model.ObjectiveCost, obj); err != nil {
		return err
	}
	return b.sub.SetObjective(model.ObjectiveCost)
}

// quality returns (creating on first use) the concentration variable
// for one location, component, and period.
func (b *continuousBuilder) quality(l, w, t string) *model.Var {
	return b.sub.NewVar(model.VarQuality, model.Continuous, 0, model.Inf(), l, w, t)
}

// originQuality resolves the concentration of water leaving loc in
// period t: a constant for fixed-quality sources (and for completions
// pads with a tabulated flowback quality), a sub-model variable
// otherwise.
func (b *continuousBuilder) originQuality(loc, w, t string) (*model.Var, float64) {
	if conc, fixed := fixedQuality(b.reg, loc, w); fixed {
		return nil, conc
	}
	if b.reg.InSet(model.SetCompletionsPads, loc) {
		if conc, ok := b.reg.Value(model.ParamSourceQuality, loc, w); ok {
			return nil, conc
		}
	}
	return b.quality(loc, w, t), 0
}

// inflow accumulates the load arriving at a location in one period and
// the total arriving volume. Solved flows below flowTol are dropped.
func (b *continuousBuilder) inflow(l, w, t string) (model.LinExpr, float64) {
	e := model.NewExpr()
	total := 0.0
	add := func(arcSet, flowFam string) {
		for _, a := range b.reg.ArcsInto(arcSet, l) {
			f := b.flows.Value(flowFam, a.From, a.To, t)
			if f <= flowTol {
				continue
			}
			total += f
			if qv, conc := b.originQuality(a.From, w, t); qv != nil {
				e = e.AddTerm(qv, f)
			} else {
				e = e.AddConst(f * conc)
			}
		}
	}
	add(model.SetPipingArcs, model.VarPiped)
	add(model.SetTruckingArcs, model.VarTrucked)
	for _, a := range b.reg.ArcsInto(model.SetSourcingArcs, l) {
		f := b.flows.Value(model.VarSourced, a.From, a.To, t)
		if f <= flowTol {
			continue
		}
		total += f
		conc, _ := fixedQuality(b.reg, a.From, w)
		e = e.AddConst(f * conc)
	}
	return e, total
}

// blend pins a location's concentration to its inflow blend:
// totalIn * Q == arriving load. Locations receiving nothing are fixed
// at zero by the objective.
func (b *continuousBuilder) blend(rowName, l, w, t string) error {
	load, total := b.inflow(l, w, t)
	if total <= flowTol {
		return nil
	}
	e := load.Plus(model.NewExpr().AddTerm(b.quality(l, w, t), -total))
	_, err := b.sub.AddEq(rowName, model.K(l, w, t), e, 0)
	return err
}

func (b *continuousBuilder) nodeBlends() error {
	for _, n := range b.reg.Set(model.SetNetworkNodes) {
		for _, w := range b.comps {
			for _, t := range b.reg.Periods() {
				if err := b.blend("NodeQualityBlend", n, w, t); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// storageRecursions balance the held load at each storage site: this
// period's level at this period's concentration equals the carried-over
// load plus received load minus withdrawn load. Withdrawals leave at
// the current concentration.
func (b *continuousBuilder) storageRecursions() error {
	for _, s := range b.reg.Set(model.SetStorageSites) {
		carry := 1 - b.reg.ValueOr(model.ParamEvaporationRate, 0, s)
		for _, t := range b.reg.Periods() {
			level := b.flows.Value(model.VarStorageLevel, s, t)
			out := 0.0
			for _, a := range b.reg.ArcsOutOf(model.SetPipingArcs, s) {
				out += b.flows.Value(model.VarPiped, a.From, a.To, t)
			}
			for _, a := range b.reg.ArcsOutOf(model.SetTruckingArcs, s) {
				out += b.flows.Value(model.VarTrucked, a.From, a.To, t)
			}
			for _, w := range b.comps {
				load, _ := b.inflow(s, w, t)
				e := load.Scaled(-1).AddTerm(b.quality(s, w, t), level+out)
				rhs := 0.0
				if prev := b.reg.PrevPeriod(t); prev != "" {
					prevLevel := b.flows.Value(model.VarStorageLevel, s, prev)
					e = e.AddTerm(b.quality(s, w, prev), -carry*prevLevel)
				} else {
					initLevel := b.reg.ValueOr(model.ParamInitialStorageLevel, 0, s)
					initQ := b.reg.ValueOr(model.ParamStorageInitialQuality, 0, s, w)
					rhs = carry * initLevel * initQ
				}
				if e.Len() == 0 {
					continue
				}
				if _, err := b.sub.AddEq("StorageQualityRecursion", model.K(s, w, t), e, rhs); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// treatmentRemoval blends the inlet and applies removal efficiency. The
// two configuration modes differ exactly here: concentration-based
// removal relates inlet and outlet concentration directly, load-based
// removal relates inlet and outlet mass flow.
func (b *continuousBuilder) treatmentRemoval() error {
	loadBased := b.flows.Cfg.RemovalEfficiency == model.RemovalLoadBased
	for _, r := range b.reg.Set(model.SetTreatmentSites) {
		for _, t := range b.reg.Periods() {
			treated := b.flows.Value(model.VarTreated, r, t)
			for _, w := range b.comps {
				load, total := b.inflow(r, w, t)
				if total <= flowTol {
					continue
				}
				inlet := b.sub.NewVar(varTreatmentInlet, model.Continuous, 0, model.Inf(), r, w, t)
				e := load.Plus(model.NewExpr().AddTerm(inlet, -total))
				if _, err := b.sub.AddEq("TreatmentInletBlend", model.K(r, w, t), e, 0); err != nil {
					return err
				}

				eff := b.reg.ValueOr(model.ParamRemovalEfficiency, 0, r, w)
				outlet := b.quality(r, w, t)
				var rem model.LinExpr
				if loadBased {
					if treated <= flowTol {
						continue
					}
					rem = model.NewExpr().AddTerm(outlet, treated).AddTerm(inlet, -(1-eff)*total)
				} else {
					rem = model.NewExpr().AddTerm(outlet, 1).AddTerm(inlet, -(1 - eff))
				}
				if _, err := b.sub.AddEq("TreatmentRemoval", model.K(r, w, t), rem, 0); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (b *continuousBuilder) sinkBlends() error {
	for _, set := range []string{model.SetDisposalSites, model.SetReuseOptions} {
		for _, k := range b.reg.Set(set) {
			for _, w := range b.comps {
				for _, t := range b.reg.Periods() {
					if err := b.blend("SinkQualityBlend", k, w, t); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// completionsBlends track the intake blend at completions pads,
// including water cycled through pad storage at its own tracked
// concentration.
func (b *continuousBuilder) completionsBlends() error {
	for _, p := range b.reg.Set(model.SetCompletionsPads) {
		for _, t := range b.reg.Periods() {
			storeIn := b.flows.Value(model.VarPadStorageIn, p, t)
			storeOut := b.flows.Value(model.VarPadStorageOut, p, t)
			level := b.flows.Value(model.VarPadStorageLevel, p, t)
			for _, w := range b.comps {
				load, total := b.inflow(p, w, t)
				if storeOut > flowTol {
					sq := b.sub.NewVar(varPadStorage, model.Continuous, 0, model.Inf(), p, w, t)
					load = load.AddTerm(sq, storeOut)
					total += storeOut
				}
				if total > flowTol {
					e := load.Plus(model.NewExpr().AddTerm(b.quality(p, w, t), -total))
					if _, err := b.sub.AddEq("CompletionsQualityBlend", model.K(p, w, t), e, 0); err != nil {
						return err
					}
				}

				if level <= flowTol && storeIn <= flowTol && storeOut <= flowTol {
					continue
				}
				sq := b.sub.NewVar(varPadStorage, model.Continuous, 0, model.Inf(), p, w, t)
				rec := model.NewExpr().AddTerm(sq, level+storeOut)
				if storeIn > flowTol {
					rec = rec.AddTerm(b.quality(p, w, t), -storeIn)
				}
				if prev := b.reg.PrevPeriod(t); prev != "" {
					prevLevel := b.flows.Value(model.VarPadStorageLevel, p, prev)
					if prevLevel > flowTol {
						rec = rec.AddTerm(b.sub.NewVar(varPadStorage, model.Continuous, 0, model.Inf(), p, w, prev), -prevLevel)
					}
				}
				if rec.Len() == 0 {
					continue
				}
				if _, err := b.sub.AddEq("PadStorageQualityRecursion", model.K(p, w, t), rec, 0); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

var _ Strategy = (*PostProcess)(nil)
