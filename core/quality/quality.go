// Package quality implements the two water-quality strategies: a
// continuous formulation solved as a post-process against fixed optimal
// flows, and a discretized (bucketed) mixed-integer formulation added
// before solving, which linearizes the flow x concentration product via
// a per-location one-hot selection over representative concentration
// values.
package quality

import (
	"context"
	"fmt"

	"pwnet/core/model"
	"pwnet/solvers"
	"pwnet/internal/errors"
)

// feasTol is the tolerance used when checking that an input flow
// solution actually satisfies its model.
const feasTol = 1e-6

// Report is the downstream contract shared by both strategies: a
// quality value per variable-quality location, component, and period.
type Report struct {
	Mode model.QualityMode

	// Values is keyed (location, component, period).
	Values map[model.Key]float64
}

// Value returns one concentration, or 0 when untracked.
func (r *Report) Value(loc, component, period string) float64 {
	if r == nil {
		return 0
	}
	return r.Values[model.K(loc, component, period)]
}

// Strategy is the shared contract of the two variants. Prepare extends
// the unsolved model (the discrete strategy adds its block there);
// Finalize runs after the flow model is solved (the continuous strategy
// builds and solves its sub-model there).
type Strategy interface {
	Name() string
	Mode() model.QualityMode
	Prepare(m *model.Model) error
	Finalize(ctx context.Context, m *model.Model, solver solvers.Solver, opt solvers.Options) (*Report, error)
}

// ForMode returns the strategy selected by a configuration, or nil for
// QualityOff.
func ForMode(cfg model.Config) Strategy {
	switch cfg.WaterQuality {
	case model.QualityPostProcess:
		return NewPostProcess()
	case model.QualityDiscrete:
		return NewDiscrete(cfg.QualityBuckets)
	default:
		return nil
	}
}

// variableQualityLocations returns every location whose quality is a
// decision rather than a fixed input: everything except production pads
// and external sources.
func variableQualityLocations(reg *model.Registry) []string {
	var out []string
	for _, set := range []string{
		model.SetNetworkNodes, model.SetStorageSites, model.SetTreatmentSites,
		model.SetDisposalSites, model.SetReuseOptions, model.SetCompletionsPads,
	} {
		out = append(out, reg.Set(set)...)
	}
	return out
}

// fixedQuality returns the known source concentration of a location for
// one component, and whether the location is a fixed-quality source.
func fixedQuality(reg *model.Registry, loc, component string) (float64, bool) {
	if !reg.InSet(model.SetProductionPads, loc) && !reg.InSet(model.SetExternalSources, loc) {
		return 0, false
	}
	return reg.ValueOr(model.ParamSourceQuality, 0, loc, component), true
}

// ladder returns the discretization ladder for one component: n
// representative values linearly interpolated between the observed
// minimum and maximum across all fixed-quality sources.
func ladder(reg *model.Registry, component string, n int) []float64 {
	min, max := 0.0, 0.0
	first := true
	for k, v := range reg.Param(model.ParamSourceQuality) {
		parts := k.Parts()
		if len(parts) != 2 || parts[1] != component {
			continue
		}
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	vals := make([]float64, n)
	if n == 1 || max == min {
		for i := range vals {
			vals[i] = min
		}
		return vals
	}
	step := (max - min) / float64(n-1)
	for i := range vals {
		vals[i] = min + float64(i)*step
	}
	return vals
}

// bucketID labels ladder positions Q1..Qn.
func bucketID(i int) string {
	return fmt.Sprintf("Q%d", i+1)
}

// checkSolved fails loudly when the supplied flow model does not carry
// a feasible solution: both strategies assume the underlying flow model
// is feasible, and the continuous variant's result is undefined
// otherwise.
func checkSolved(m *model.Model) error {
	for _, c := range m.ActiveRows() {
		if v := c.Violation(); v > feasTol*(1+m.BigM) {
			return errors.Newf(errors.TypeModel,
				"water-quality pass requires a solved, feasible flow model: constraint %s violated by %.6g", c.ID(), v)
		}
	}
	return nil
}

// stageUpperBound derives a bucketed sub-flow's aggregate bound for a
// stage owned by loc: the sum of all capacities that could feed it.
func stageUpperBound(m *model.Model, loc string) float64 {
	reg := m.Registry

	maxIncrement := func(incSet, sizeParam string) float64 {
		best := 0.0
		for _, i := range reg.Set(incSet) {
			if s := reg.ValueOr(sizeParam, 0, i); s > best {
				best = s
			}
		}
		return best
	}

	switch {
	case reg.InSet(model.SetDisposalSites, loc):
		return reg.ValueOr(model.ParamInitialDisposalCapacity, 0, loc) +
			maxIncrement(model.SetDisposalIncrements, model.ParamDisposalIncrementSize)
	case reg.InSet(model.SetStorageSites, loc):
		// The level recursion permits same-period pass-through, so the
		// outflow stage is fed by the inbound arcs on top of the stored
		// level. Bounding at vessel size alone would cut off feasible
		// pass-through flows.
		vessel := reg.ValueOr(model.ParamInitialStorageCapacity, 0, loc) +
			maxIncrement(model.SetStorageIncrements, model.ParamStorageIncrementSize)
		feed := inboundFeedBound(m, loc)
		if feed >= m.BigM {
			return m.BigM
		}
		return vessel + feed
	case reg.InSet(model.SetTreatmentSites, loc):
		return reg.ValueOr(model.ParamInitialTreatmentCapacity, 0, loc) +
			maxIncrement(model.SetTreatmentIncrements, model.ParamTreatmentIncrementSize)
	}

	return inboundFeedBound(m, loc)
}

// inboundFeedBound sums the capacities of every arc entering loc.
// Trucking and sourcing arcs are uncapacitated, so their presence falls
// back to the network-wide bound.
func inboundFeedBound(m *model.Model, loc string) float64 {
	reg := m.Registry
	if len(reg.ArcsInto(model.SetTruckingArcs, loc)) > 0 ||
		len(reg.ArcsInto(model.SetSourcingArcs, loc)) > 0 {
		return m.BigM
	}
	total := 0.0
	maxDiameter := 0.0
	for _, d := range reg.Set(model.SetPipelineDiameters) {
		if c := reg.ValueOr(model.ParamDiameterCapacity, 0, d); c > maxDiameter {
			maxDiameter = c
		}
	}
	for _, a := range reg.ArcsInto(model.SetPipingArcs, loc) {
		total += reg.ValueOr(model.ParamInitialPipelineCapacity, 0, a.From, a.To) + maxDiameter
	}
	if total == 0 {
		return m.BigM
	}
	return total
}
