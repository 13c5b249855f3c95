package build

import (
	"strings"

	"pwnet/core/model"
	"pwnet/internal/errors"
	"pwnet/internal/logging"

	"go.uber.org/zap"
)

// validateEssential checks that the sets and parameters the base model
// cannot be built without are present and mutually consistent. Every
// detected problem is aggregated into one error.
func validateEssential(reg *model.Registry) error {
	var c errors.Collector

	if !reg.HasSet(model.SetTimePeriods) {
		c.Addf("set %s is empty or absent", model.SetTimePeriods)
	}
	if !reg.HasSet(model.SetProductionPads) && !reg.HasSet(model.SetCompletionsPads) && !reg.HasSet(model.SetExternalSources) {
		c.Addf("no water enters the system: %s, %s and %s are all absent",
			model.SetProductionPads, model.SetCompletionsPads, model.SetExternalSources)
	}
	if !reg.HasSet(model.SetDisposalSites) && !reg.HasSet(model.SetCompletionsPads) &&
		!reg.HasSet(model.SetReuseOptions) && !reg.HasSet(model.SetStorageSites) {
		c.Addf("no water leaves the system: no disposal sites, completions pads, reuse options, or storage sites")
	}
	if !reg.HasSet(model.SetPipingArcs) && !reg.HasSet(model.SetTruckingArcs) {
		c.Addf("no transport arcs: %s and %s are both absent", model.SetPipingArcs, model.SetTruckingArcs)
	}

	if reg.HasSet(model.SetProductionPads) && !reg.HasParam(model.ParamProductionRates) {
		c.Addf("parameter %s is required when %s is non-empty", model.ParamProductionRates, model.SetProductionPads)
	}
	if reg.HasSet(model.SetCompletionsPads) && !reg.HasParam(model.ParamCompletionsDemand) {
		c.Addf("parameter %s is required when %s is non-empty", model.ParamCompletionsDemand, model.SetCompletionsPads)
	}
	if reg.HasSet(model.SetExternalSources) && !reg.HasParam(model.ParamExternalAvailability) {
		c.Addf("parameter %s is required when %s is non-empty", model.ParamExternalAvailability, model.SetExternalSources)
	}

	// A parameter whose governing set is absent points at a broken
	// input pipeline, not a modeling choice.
	governed := map[string]string{
		model.ParamProductionRates:       model.SetProductionPads,
		model.ParamCompletionsDemand:     model.SetCompletionsPads,
		model.ParamFlowbackRates:         model.SetCompletionsPads,
		model.ParamExternalAvailability:  model.SetExternalSources,
		model.ParamInitialDisposalCapacity: model.SetDisposalSites,
		model.ParamInitialStorageCapacity:  model.SetStorageSites,
		model.ParamInitialTreatmentCapacity: model.SetTreatmentSites,
	}
	for param, set := range governed {
		if reg.HasParam(param) && !reg.HasSet(set) {
			c.Addf("parameter %s supplied but its governing set %s is absent", param, set)
		}
	}

	// Index consistency of the main tables.
	for k := range reg.Param(model.ParamProductionRates) {
		parts := k.Parts()
		if len(parts) != 2 {
			c.Addf("%s entry %q: expected (pad, period) index", model.ParamProductionRates, k)
			continue
		}
		if !reg.InSet(model.SetProductionPads, parts[0]) {
			c.Addf("%s references unknown production pad %q", model.ParamProductionRates, parts[0])
		}
		if reg.PeriodIndex(parts[1]) < 0 {
			c.Addf("%s references unknown period %q", model.ParamProductionRates, parts[1])
		}
	}
	for k := range reg.Param(model.ParamCompletionsDemand) {
		parts := k.Parts()
		if len(parts) != 2 {
			c.Addf("%s entry %q: expected (pad, period) index", model.ParamCompletionsDemand, k)
			continue
		}
		if !reg.InSet(model.SetCompletionsPads, parts[0]) {
			c.Addf("%s references unknown completions pad %q", model.ParamCompletionsDemand, parts[0])
		}
		if reg.PeriodIndex(parts[1]) < 0 {
			c.Addf("%s references unknown period %q", model.ParamCompletionsDemand, parts[1])
		}
	}
	for k := range reg.Param(model.ParamInitialPipelineCapacity) {
		if !arcInSet(reg, model.SetPipingArcs, k) {
			c.Addf("%s references arc %q not present in %s", model.ParamInitialPipelineCapacity, k, model.SetPipingArcs)
		}
	}

	// Role connectivity invariants: every role except production pads
	// and external sources needs an incoming arc; every role except
	// disposal, reuse, and storage needs an outgoing arc.
	needIncoming := []string{
		model.SetCompletionsPads, model.SetDisposalSites, model.SetStorageSites,
		model.SetTreatmentSites, model.SetReuseOptions, model.SetNetworkNodes,
	}
	for _, set := range needIncoming {
		for _, loc := range reg.Set(set) {
			if len(reg.ArcsInto(model.SetPipingArcs, loc)) == 0 &&
				len(reg.ArcsInto(model.SetTruckingArcs, loc)) == 0 &&
				len(reg.ArcsInto(model.SetSourcingArcs, loc)) == 0 {
				c.Addf("%s %q has no incoming transport arc", set, loc)
			}
		}
	}
	needOutgoing := []string{model.SetProductionPads, model.SetTreatmentSites, model.SetNetworkNodes}
	for _, set := range needOutgoing {
		for _, loc := range reg.Set(set) {
			if len(reg.ArcsOutOf(model.SetPipingArcs, loc)) == 0 &&
				len(reg.ArcsOutOf(model.SetTruckingArcs, loc)) == 0 {
				c.Addf("%s %q has no outgoing transport arc", set, loc)
			}
		}
	}

	return c.Err(errors.TypeMissingData, "essential input data is missing or inconsistent")
}

func arcInSet(reg *model.Registry, set string, k model.Key) bool {
	for _, a := range reg.Arcs(set) {
		if a.Key() == k {
			return true
		}
	}
	return false
}

// validateConfig checks that every selected configuration option has
// the tables it needs.
func validateConfig(reg *model.Registry, cfg model.Config) error {
	var c errors.Collector

	if cfg.Hydraulics != model.HydraulicsOff {
		if !reg.HasParam(model.ParamElevation) {
			c.Addf("hydraulics mode %q requires parameter %s", cfg.Hydraulics, model.ParamElevation)
		}
		if !reg.HasParam(model.ParamWellPressure) {
			c.Addf("hydraulics mode %q requires parameter %s", cfg.Hydraulics, model.ParamWellPressure)
		}
	}
	if cfg.WaterQuality != model.QualityOff {
		if !reg.HasSet(model.SetQualityComponents) {
			c.Addf("water-quality mode %q requires set %s", cfg.WaterQuality, model.SetQualityComponents)
		}
		if !reg.HasParam(model.ParamSourceQuality) {
			c.Addf("water-quality mode %q requires parameter %s", cfg.WaterQuality, model.ParamSourceQuality)
		}
	}
	if cfg.WaterQuality == model.QualityDiscrete && cfg.QualityBuckets < 2 {
		c.Addf("discrete water quality requires at least 2 buckets, have %d", cfg.QualityBuckets)
	}
	if cfg.Objective == model.ObjectiveCostSurrogate || cfg.DesalinationSurrogate != model.SurrogateOff {
		if cfg.SurrogateModel == nil {
			c.Addf("desalination surrogate mode %q selected but no surrogate model supplied", cfg.DesalinationSurrogate)
		}
		if !reg.HasSet(model.SetTreatmentSites) {
			c.Addf("desalination surrogate requires set %s", model.SetTreatmentSites)
		}
	}
	if cfg.SubsurfaceRisk != model.RiskOff || cfg.Objective == model.ObjectiveSubsurfaceRisk {
		if !reg.HasSet(model.SetInjectionClusters) {
			c.Addf("subsurface risk requires set %s", model.SetInjectionClusters)
		}
		if !reg.HasParam(model.ParamClusterMembership) {
			c.Addf("subsurface risk requires parameter %s", model.ParamClusterMembership)
		}
	}
	if cfg.PipelineCapacity == model.PipelineCapacityCalculated && !reg.HasParam(model.ParamDiameterInches) {
		c.Addf("calculated pipeline capacity requires parameter %s", model.ParamDiameterInches)
	}
	if cfg.PipelineCapacity == model.PipelineCapacityInput &&
		reg.HasSet(model.SetPipelineDiameters) && !reg.HasParam(model.ParamDiameterCapacity) {
		c.Addf("input pipeline capacity requires parameter %s when %s is supplied",
			model.ParamDiameterCapacity, model.SetPipelineDiameters)
	}

	return c.Err(errors.TypeConfigData, "selected configuration requires absent input tables")
}

// checkStructuralFeasibility detects, analytically and before any
// solver runs, periods where aggregate produced water exceeds aggregate
// sink capacity or aggregate demand exceeds aggregate available supply.
func checkStructuralFeasibility(reg *model.Registry) error {
	var c errors.Collector

	disposalMax := 0.0
	for _, k := range reg.Set(model.SetDisposalSites) {
		disposalMax += reg.ValueOr(model.ParamInitialDisposalCapacity, 0, k)
		best := 0.0
		for _, i := range reg.Set(model.SetDisposalIncrements) {
			if size := reg.ValueOr(model.ParamDisposalIncrementSize, 0, i); size > best {
				best = size
			}
		}
		disposalMax += best
	}
	storageMax := 0.0
	for _, s := range reg.Set(model.SetStorageSites) {
		storageMax += reg.ValueOr(model.ParamInitialStorageCapacity, 0, s)
		best := 0.0
		for _, i := range reg.Set(model.SetStorageIncrements) {
			if size := reg.ValueOr(model.ParamStorageIncrementSize, 0, i); size > best {
				best = size
			}
		}
		storageMax += best
	}
	reuseMax := 0.0
	for _, o := range reg.Set(model.SetReuseOptions) {
		reuseMax += reg.ValueOr(model.ParamReuseCapacity, 0, o)
	}

	storageHeld := 0.0
	for _, s := range reg.Set(model.SetStorageSites) {
		storageHeld += reg.ValueOr(model.ParamInitialStorageLevel, 0, s)
	}

	for _, t := range reg.Periods() {
		produced := 0.0
		for _, p := range reg.Set(model.SetProductionPads) {
			produced += reg.ValueOr(model.ParamProductionRates, 0, p, t)
		}
		for _, p := range reg.Set(model.SetCompletionsPads) {
			produced += reg.ValueOr(model.ParamFlowbackRates, 0, p, t)
		}

		demand := 0.0
		for _, p := range reg.Set(model.SetCompletionsPads) {
			demand += reg.ValueOr(model.ParamCompletionsDemand, 0, p, t)
		}

		external := 0.0
		for _, f := range reg.Set(model.SetExternalSources) {
			external += reg.ValueOr(model.ParamExternalAvailability, 0, f, t)
		}

		sinks := disposalMax + storageMax + reuseMax + demand
		if produced > sinks {
			c.Addf("period %s: produced water %.6g exceeds aggregate sink capacity %.6g (disposal %.6g, storage %.6g, reuse %.6g, demand %.6g)",
				t, produced, sinks, disposalMax, storageMax, reuseMax, demand)
		}

		supply := produced + external + storageHeld
		if demand > supply {
			c.Addf("period %s: completions demand %.6g exceeds aggregate available supply %.6g (produced %.6g, external %.6g, stored %.6g)",
				t, demand, supply, produced, external, storageHeld)
		}
	}

	return c.Err(errors.TypeDataInfeasibility, "input data is structurally infeasible")
}

// warnOptionalDefaults logs one aggregated warning listing optional
// tables that are absent and therefore defaulted. Missing optional data
// never interrupts assembly.
func warnOptionalDefaults(reg *model.Registry, cfg model.Config) {
	optional := map[string]string{
		model.ParamEvaporationRate:             "storage evaporation losses default to 0",
		model.ParamOperatingCapacityMultiplier: "operating-capacity derating defaults to 1.0",
		model.ParamAnnualizationRate:           "CAPEX annualization rate defaults to 1.0",
		model.ParamStorageWithdrawalCredit:     "storage withdrawal credit defaults to 0",
		model.ParamReuseCredit:                 "beneficial reuse credit defaults to 0",
	}
	var absent []string
	for param, note := range optional {
		if !reg.HasParam(param) {
			absent = append(absent, param+" ("+note+")")
		}
	}
	if cfg.InfrastructureTiming {
		for _, p := range []string{
			model.ParamPipelineLeadTime, model.ParamDisposalLeadTime,
			model.ParamStorageLeadTime, model.ParamTreatmentLeadTime,
		} {
			if !reg.HasParam(p) {
				absent = append(absent, p+" (lead time defaults to 0 periods)")
			}
		}
	}
	if len(absent) > 0 {
		logging.Warn("optional input tables absent; documented defaults substituted",
			zap.String("tables", strings.Join(absent, "; ")))
	}
}
