// Package build assembles a ready-to-solve produced-water network model
// from the entity registry and a configuration. Each constraint family
// is a pure emitter invoked over its index domain; an emitter either
// returns a row or explicitly skips the index, so structurally vacuous
// combinations never reach the model.
package build

import (
	"pwnet/core/hydraulics"
	"pwnet/core/model"
	"pwnet/core/quality"
	"pwnet/internal/logging"

	"go.uber.org/zap"
)

// row is one emitted constraint body: lo <= expr <= hi.
type row struct {
	expr   model.LinExpr
	lo, hi float64
}

// eq builds an equality row.
func eq(expr model.LinExpr, rhs float64) row {
	return row{expr: expr, lo: rhs, hi: rhs}
}

// le builds an upper-bounded row.
func le(expr model.LinExpr, rhs float64) row {
	return row{expr: expr, lo: model.NegInf(), hi: rhs}
}

// ge builds a lower-bounded row.
func ge(expr model.LinExpr, rhs float64) row {
	return row{expr: expr, lo: rhs, hi: model.Inf()}
}

// emitter produces the row for one index tuple, or reports a skip.
type emitter func(idx model.Key) (row, bool)

// builder carries the assembly state through the constraint families.
type builder struct {
	reg *model.Registry
	cfg model.Config
	m   *model.Model
}

func newBuilder(reg *model.Registry, cfg model.Config) *builder {
	m := model.New("pwnet", reg, cfg)
	m.BigM = deriveBigM(reg)
	return &builder{reg: reg, cfg: cfg, m: m}
}

// emit iterates an emitter over its index domain, adding every
// non-skipped row under the family name.
func (b *builder) emit(name string, domain []model.Key, fn emitter) error {
	for _, idx := range domain {
		r, ok := fn(idx)
		if !ok {
			continue
		}
		if _, err := b.m.AddRow(name, idx, r.expr, r.lo, r.hi); err != nil {
			return err
		}
	}
	return nil
}

// deriveBigM computes the conditional-constraint relaxation constant
// from the largest plausible flow in the network: the biggest
// single-period volume the system could be asked to move.
func deriveBigM(reg *model.Registry) float64 {
	largest := 1.0
	for _, t := range reg.Periods() {
		supply := 0.0
		for _, p := range reg.Set(model.SetProductionPads) {
			supply += reg.ValueOr(model.ParamProductionRates, 0, p, t)
		}
		for _, p := range reg.Set(model.SetCompletionsPads) {
			supply += reg.ValueOr(model.ParamFlowbackRates, 0, p, t)
		}
		for _, f := range reg.Set(model.SetExternalSources) {
			supply += reg.ValueOr(model.ParamExternalAvailability, 0, f, t)
		}
		for _, s := range reg.Set(model.SetStorageSites) {
			supply += reg.ValueOr(model.ParamInitialStorageLevel, 0, s)
		}
		if supply > largest {
			largest = supply
		}
	}
	return largest
}

// inflow sums every transport term arriving at a location in a period:
// piped and trucked arcs in, plus externally sourced water for
// completions pads.
func (b *builder) inflow(loc, t string) model.LinExpr {
	e := model.NewExpr()
	for _, a := range b.reg.ArcsInto(model.SetPipingArcs, loc) {
		e = e.AddTerm(b.m.Var(model.VarPiped, a.From, a.To, t), 1)
	}
	for _, a := range b.reg.ArcsInto(model.SetTruckingArcs, loc) {
		e = e.AddTerm(b.m.Var(model.VarTrucked, a.From, a.To, t), 1)
	}
	for _, a := range b.reg.ArcsInto(model.SetSourcingArcs, loc) {
		e = e.AddTerm(b.m.Var(model.VarSourced, a.From, a.To, t), 1)
	}
	return e
}

// outflow sums every transport term leaving a location in a period.
func (b *builder) outflow(loc, t string) model.LinExpr {
	e := model.NewExpr()
	for _, a := range b.reg.ArcsOutOf(model.SetPipingArcs, loc) {
		e = e.AddTerm(b.m.Var(model.VarPiped, a.From, a.To, t), 1)
	}
	for _, a := range b.reg.ArcsOutOf(model.SetTruckingArcs, loc) {
		e = e.AddTerm(b.m.Var(model.VarTrucked, a.From, a.To, t), 1)
	}
	return e
}

// hasPadStorage reports whether a completions pad carries intermediate
// storage (present only when a capacity is supplied for it).
func (b *builder) hasPadStorage(pad string) bool {
	_, ok := b.reg.Value(model.ParamPadStorageCapacity, pad)
	return ok
}

// padTanks returns the production tanks of a pad under the individual
// tank mode (empty when the pad has none).
func (b *builder) padTanks(pad string) []string {
	var tanks []string
	for _, e := range b.reg.Set(model.SetProductionTanks) {
		parts := model.Key(e).Parts()
		if len(parts) == 2 && parts[0] == pad {
			tanks = append(tanks, parts[1])
		}
	}
	return tanks
}

// Assemble is the sole entry point for constructing a ready-to-solve
// model from the two input dictionaries and a configuration. Fatal data
// problems abort with an aggregated error before any variable is
// created; optional gaps are defaulted with one aggregated warning.
func Assemble(sets map[string][]string, params map[string]map[model.Key]float64, cfg model.Config) (*model.Model, error) {
	reg := model.NewRegistry(sets, params)

	if err := validateEssential(reg); err != nil {
		return nil, err
	}
	if err := validateConfig(reg, cfg); err != nil {
		return nil, err
	}
	if err := checkStructuralFeasibility(reg); err != nil {
		return nil, err
	}
	warnOptionalDefaults(reg, cfg)

	b := newBuilder(reg, cfg)
	b.createVariables()

	steps := []func() error{
		b.supplyBalances,
		b.demandBalances,
		b.nodeBalances,
		b.storageBalances,
		b.sinkBalances,
		b.treatmentBalances,
		b.sourcingLimits,
		b.expansionLogic,
		b.capacityLimits,
		b.directionExclusivity,
		b.riskBlock,
		b.costingRows,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	var pumping *model.Var
	if cfg.Hydraulics == model.HydraulicsCoOptimize || cfg.Hydraulics == model.HydraulicsCoOptimizeLinearized {
		var err error
		pumping, err = hydraulics.Embed(b.m)
		if err != nil {
			return nil, err
		}
	}

	if err := b.defineObjectives(pumping); err != nil {
		return nil, err
	}

	if cfg.WaterQuality == model.QualityDiscrete {
		if err := quality.NewDiscrete(cfg.QualityBuckets).Prepare(b.m); err != nil {
			return nil, err
		}
	}

	if err := b.m.SetObjective(cfg.Objective); err != nil {
		return nil, err
	}

	logging.Info("model assembled",
		zap.Int("variables", b.m.NumVars()),
		zap.Int("constraints", b.m.NumRows()),
		zap.String("objective", string(cfg.Objective)),
		zap.String("water_quality", string(cfg.WaterQuality)))

	return b.m, nil
}
