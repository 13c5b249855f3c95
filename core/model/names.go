package model

// Set names recognized by the engine. The data-loading collaborator
// supplies a set-name -> identifiers mapping using these names.
const (
	SetProductionPads   = "ProductionPads"
	SetCompletionsPads  = "CompletionsPads"
	SetExternalSources  = "ExternalWaterSources"
	SetDisposalSites    = "DisposalSites"
	SetStorageSites     = "StorageSites"
	SetTreatmentSites   = "TreatmentSites"
	SetReuseOptions     = "ReuseOptions"
	SetNetworkNodes     = "NetworkNodes"
	SetTimePeriods      = "TimePeriods"
	SetPipingArcs       = "PipingArcs"
	SetTruckingArcs     = "TruckingArcs"
	SetSourcingArcs     = "SourcingArcs"
	SetPipelineDiameters     = "PipelineDiameters"
	SetDisposalIncrements    = "DisposalCapacityIncrements"
	SetStorageIncrements     = "StorageCapacityIncrements"
	SetTreatmentIncrements   = "TreatmentCapacityIncrements"
	SetTreatmentTechnologies = "TreatmentTechnologies"
	SetProductionTanks       = "ProductionTanks"
	SetQualityComponents     = "QualityComponents"
	SetInjectionClusters     = "InjectionClusters"
)

// Parameter names recognized by the engine. Index tuples are noted per
// parameter; scalars use the empty key.
const (
	// Supply and demand.
	ParamProductionRates   = "ProductionRates"   // (pad, period)
	ParamFlowbackRates     = "FlowbackRates"     // (pad, period)
	ParamCompletionsDemand = "CompletionsDemand" // (pad, period)
	ParamPadOutsideSystem  = "PadOutsideSystem"  // (pad); nonzero relaxes demand to an inequality

	// Initial capacities and stocks.
	ParamInitialPipelineCapacity  = "InitialPipelineCapacity"  // (from, to)
	ParamInitialDisposalCapacity  = "InitialDisposalCapacity"  // (site)
	ParamInitialStorageCapacity   = "InitialStorageCapacity"   // (site)
	ParamInitialTreatmentCapacity = "InitialTreatmentCapacity" // (site)
	ParamInitialStorageLevel      = "InitialStorageLevel"      // (site)
	ParamTerminalStorageLevel     = "TerminalStorageLevel"     // (site); optional
	ParamPadStorageCapacity       = "PadStorageCapacity"       // (pad)
	ParamProductionTankCapacity   = "ProductionTankCapacity"   // (pad, tank) or (pad)
	ParamNodeCapacity             = "NodeCapacity"             // (node)
	ParamReuseCapacity            = "ReuseCapacity"            // (option)
	ParamPadOffloadingCapacity    = "PadOffloadingCapacity"    // (pad)
	ParamExternalAvailability     = "ExternalWaterAvailability" // (source, period)

	// Capacity-expansion increments.
	ParamDiameterCapacity       = "PipelineDiameterCapacity"    // (diameter)
	ParamDiameterInches         = "PipelineDiameterValue"       // (diameter)
	ParamPipelineCostPerMile    = "PipelineExpansionCostPerMile" // (diameter)
	ParamPipelineIncrementCost  = "PipelineExpansionCost"       // (diameter)
	ParamDisposalIncrementSize  = "DisposalIncrementSize"       // (increment)
	ParamDisposalIncrementCost  = "DisposalExpansionCost"       // (site, increment)
	ParamStorageIncrementSize   = "StorageIncrementSize"        // (increment)
	ParamStorageIncrementCost   = "StorageExpansionCost"        // (site, increment)
	ParamTreatmentIncrementSize = "TreatmentIncrementSize"      // (increment)
	ParamTreatmentIncrementCost = "TreatmentExpansionCost"      // (site, technology, increment)

	// Lead times, in fractional periods.
	ParamPipelineLeadTime  = "PipelineLeadTime"  // (from, to)
	ParamDisposalLeadTime  = "DisposalLeadTime"  // (site)
	ParamStorageLeadTime   = "StorageLeadTime"   // (site)
	ParamTreatmentLeadTime = "TreatmentLeadTime" // (site)

	// Operating rates and credits.
	ParamDistance               = "Distance"               // (from, to)
	ParamPipingRate             = "PipelineOperationalCost" // (from, to)
	ParamTruckingRate           = "TruckingCost"           // (from, to)
	ParamDisposalRate           = "DisposalOperationalCost" // (site)
	ParamTreatmentRate          = "TreatmentOperationalCost" // (site)
	ParamSourcingRate           = "ExternalSourcingCost"   // (source)
	ParamStorageRate            = "StorageCost"            // (site)
	ParamStorageWithdrawalCredit = "StorageWithdrawalRevenue" // (site)
	ParamReuseRate              = "ReuseOperationalCost"   // (option)
	ParamReuseCredit            = "BeneficialReuseCredit"  // (option)
	ParamResidualDisposalRate   = "ResidualDisposalCost"   // (site)
	ParamAnnualizationRate      = "AnnualizationRate"      // scalar

	// Slack penalties (scalars with documented defaults).
	ParamSlackPenaltyProduction = "SlackPenaltyProduction"
	ParamSlackPenaltyDemand     = "SlackPenaltyDemand"
	ParamSlackPenaltyFlowback   = "SlackPenaltyFlowback"
	ParamSlackPenaltyCapacity   = "SlackPenaltyCapacity"
	ParamSlackPenaltyStorage    = "SlackPenaltyStorage"

	// Schedules and optional adjustments.
	ParamOperatingCapacityMultiplier = "OperatingCapacityMultiplier" // (site, period); default 1
	ParamEvaporationRate             = "EvaporationRate"             // (site); fraction per period
	ParamMinReuseFraction            = "MinReuseFraction"            // scalar; optional

	// Treatment performance.
	ParamTreatmentEfficiency = "TreatmentEfficiency" // (site, technology)
	ParamRemovalEfficiency   = "RemovalEfficiency"   // (site, component)

	// Water quality.
	ParamSourceQuality         = "SourceWaterQuality"    // (location, component)
	ParamStorageInitialQuality = "StorageInitialQuality" // (site, component)

	// Hydraulics.
	ParamElevation       = "Elevation"       // (location)
	ParamWellPressure    = "WellPressure"    // (pad)
	ParamHazenWilliamsC  = "HazenWilliamsC"  // scalar
	ParamElectricityRate = "ElectricityRate" // scalar
	ParamPumpEfficiency  = "PumpEfficiency"  // scalar

	// Subsurface risk.
	ParamClusterMembership  = "InjectionClusterMembership" // (cluster, site); nonzero = member
	ParamClusterCurtailment = "ClusterCurtailmentCount"    // (cluster)
	ParamRiskWeight         = "DisposalRiskWeight"         // (site)

	// Environmental objective weights.
	ParamTruckingEmissions  = "TruckingEmissionsRate"  // scalar
	ParamTreatmentEmissions = "TreatmentEmissionsRate" // scalar
)
