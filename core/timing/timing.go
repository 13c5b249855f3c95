// Package timing derives build-start schedules for the capacity
// expansions a solved model selected. The planning model treats chosen
// capacity as available across the whole horizon; this post-processor
// works out when construction must begin so the capacity exists by the
// first period that actually needs it.
package timing

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"pwnet/core/model"
	"pwnet/internal/logging"
)

// capacityTol separates genuine exceedance from solver noise.
const capacityTol = 1e-6

// AssetKind classifies one scheduled build.
type AssetKind string

const (
	KindPipeline  AssetKind = "pipeline"
	KindDisposal  AssetKind = "disposal"
	KindStorage   AssetKind = "storage"
	KindTreatment AssetKind = "treatment"
)

// BuildEvent is one scheduled expansion: the asset, the increment the
// solver chose, the first period whose realized use exceeds the
// pre-expansion capacity, and the latest start that still meets it.
type BuildEvent struct {
	Kind      AssetKind
	Asset     model.Key
	Increment string

	// FirstNeeded is the first period requiring the new capacity; empty
	// when the horizon never exceeds the initial capacity.
	FirstNeeded string

	// LeadPeriods is the construction lead time rounded up to whole
	// periods.
	LeadPeriods int

	// Start renders the required construction start: a horizon period,
	// or "N periods prior to <first period>" when the lead time reaches
	// back before the horizon.
	Start string
}

// Schedule is the ordered build plan of one solved model.
type Schedule []BuildEvent

// ComputeBuildStarts scans the solved expansion binaries and derives a
// build event for each selected increment.
func ComputeBuildStarts(m *model.Model) Schedule {
	reg := m.Registry
	var sched Schedule

	sched = append(sched, pipelineEvents(m)...)
	sched = append(sched, facilityEvents(m, KindDisposal, model.VarDisposalExpansion,
		model.ParamInitialDisposalCapacity, model.ParamDisposalLeadTime, disposalUse)...)
	sched = append(sched, facilityEvents(m, KindStorage, model.VarStorageExpansion,
		model.ParamInitialStorageCapacity, model.ParamStorageLeadTime, storageUse)...)
	sched = append(sched, facilityEvents(m, KindTreatment, model.VarTreatmentExpansion,
		model.ParamInitialTreatmentCapacity, model.ParamTreatmentLeadTime, treatmentUse)...)

	logging.Info("build schedule computed",
		zap.String("model", m.Name),
		zap.Int("events", len(sched)),
		zap.Int("periods", len(reg.Periods())))
	return sched
}

// renderStart turns a needed-by period and lead time into the start
// label. A start before the horizon is expressed relative to its first
// period, matching how planners read these schedules.
func renderStart(reg *model.Registry, firstNeeded string, leadPeriods int) string {
	idx := reg.PeriodIndex(firstNeeded) - leadPeriods
	if idx >= 0 {
		return reg.Periods()[idx]
	}
	return fmt.Sprintf("%d periods prior to %s", -idx, reg.FirstPeriod())
}

// leadPeriods rounds a fractional lead time up to whole periods.
func leadPeriods(lead float64) int {
	if lead <= 0 {
		return 0
	}
	return int(math.Ceil(lead))
}

// firstExceeding returns the first period where use exceeds capacity.
func firstExceeding(reg *model.Registry, capacity float64, use func(t string) float64) string {
	for _, t := range reg.Periods() {
		if use(t) > capacity+capacityTol {
			return t
		}
	}
	return ""
}

// pipelineEvents schedules selected pipeline increments. Bidirectional
// pairs share both their increments and their initial capacity, so use
// and capacity aggregate both directions.
func pipelineEvents(m *model.Model) Schedule {
	reg := m.Registry
	var out Schedule
	for _, y := range m.VarsNamed(model.VarPipelineExpansion) {
		if y.Value < 0.5 {
			continue
		}
		parts := y.Index.Parts()
		if len(parts) != 3 {
			continue
		}
		from, to, d := parts[0], parts[1], parts[2]
		capacity := reg.ValueOr(model.ParamInitialPipelineCapacity, 0, from, to) +
			reg.ValueOr(model.ParamInitialPipelineCapacity, 0, to, from)
		needed := firstExceeding(reg, capacity, func(t string) float64 {
			return m.Value(model.VarPiped, from, to, t) + m.Value(model.VarPiped, to, from, t)
		})
		ev := BuildEvent{
			Kind:      KindPipeline,
			Asset:     model.K(from, to),
			Increment: d,
			LeadPeriods: leadPeriods(math.Max(
				reg.ValueOr(model.ParamPipelineLeadTime, 0, from, to),
				reg.ValueOr(model.ParamPipelineLeadTime, 0, to, from))),
		}
		if needed != "" {
			ev.FirstNeeded = needed
			ev.Start = renderStart(reg, needed, ev.LeadPeriods)
		}
		out = append(out, ev)
	}
	return out
}

// facilityEvents schedules selected site increments for one facility
// family, on a family-specific realized-use reading.
func facilityEvents(m *model.Model, kind AssetKind, expansionVar, initialParam, leadParam string,
	use func(m *model.Model, site, t string) float64) Schedule {

	reg := m.Registry
	var out Schedule
	for _, y := range m.VarsNamed(expansionVar) {
		if y.Value < 0.5 {
			continue
		}
		parts := y.Index.Parts()
		if len(parts) < 2 {
			continue
		}
		site := parts[0]
		increment := parts[len(parts)-1]
		capacity := reg.ValueOr(initialParam, 0, site)
		needed := firstExceeding(reg, capacity, func(t string) float64 {
			return use(m, site, t)
		})
		ev := BuildEvent{
			Kind:        kind,
			Asset:       model.K(site),
			Increment:   increment,
			LeadPeriods: leadPeriods(reg.ValueOr(leadParam, 0, site)),
		}
		if needed != "" {
			ev.FirstNeeded = needed
			ev.Start = renderStart(reg, needed, ev.LeadPeriods)
		}
		out = append(out, ev)
	}
	return out
}

func disposalUse(m *model.Model, site, t string) float64 {
	mult := m.Registry.ValueOr(model.ParamOperatingCapacityMultiplier, 1, site, t)
	use := m.Value(model.VarDisposal, site, t)
	if mult > 0 {
		// The multiplier derates operating capacity, so usage is read
		// against the underated initial capacity.
		use /= mult
	}
	return use
}

func storageUse(m *model.Model, site, t string) float64 {
	return m.Value(model.VarStorageLevel, site, t)
}

func treatmentUse(m *model.Model, site, t string) float64 {
	return m.Value(model.VarTreated, site, t) + m.Value(model.VarResidual, site, t)
}
