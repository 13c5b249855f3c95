package model

// ObjectiveKind identifies one candidate objective of the model. Every
// kind owns its own objective variable and defining constraint; exactly
// one pair is active at any time.
type ObjectiveKind string

const (
	// ObjectiveCost minimizes annualized network cost.
	ObjectiveCost ObjectiveKind = "cost"

	// ObjectiveReuse maximizes the volume of water reused.
	ObjectiveReuse ObjectiveKind = "reuse"

	// ObjectiveCostSurrogate is the cost objective with a desalination
	// surrogate CAPEX term added for treatment expansion.
	ObjectiveCostSurrogate ObjectiveKind = "cost_surrogate"

	// ObjectiveSubsurfaceRisk minimizes risk-weighted retained injection.
	ObjectiveSubsurfaceRisk ObjectiveKind = "subsurface_risk"

	// ObjectiveEnvironmental minimizes emissions-weighted trucking and
	// treatment activity.
	ObjectiveEnvironmental ObjectiveKind = "environmental"
)

// PipelineCostMode selects how pipeline expansion is priced.
type PipelineCostMode string

const (
	// PipelineCostDistanceBased prices expansion per diameter per mile.
	PipelineCostDistanceBased PipelineCostMode = "distance_based"

	// PipelineCostCapacityBased prices expansion per increment directly.
	PipelineCostCapacityBased PipelineCostMode = "capacity_based"
)

// PipelineCapacityMode selects where pipeline increment capacities come from.
type PipelineCapacityMode string

const (
	// PipelineCapacityInput reads increment capacities from the input tables.
	PipelineCapacityInput PipelineCapacityMode = "input"

	// PipelineCapacityCalculated derives increment capacities from the
	// diameter table via a hydraulic rating.
	PipelineCapacityCalculated PipelineCapacityMode = "calculated"
)

// QualityMode selects the water-quality strategy.
type QualityMode string

const (
	// QualityOff disables water-quality tracking.
	QualityOff QualityMode = "off"

	// QualityPostProcess adds a continuous quality sub-model solved
	// against the fixed optimal flows.
	QualityPostProcess QualityMode = "post_process"

	// QualityDiscrete adds the bucketed mixed-integer quality
	// formulation before solving.
	QualityDiscrete QualityMode = "discrete"
)

// HydraulicsMode selects the hydraulics block behavior.
type HydraulicsMode string

const (
	// HydraulicsOff disables the hydraulics block.
	HydraulicsOff HydraulicsMode = "off"

	// HydraulicsPostProcess solves the hydraulics block standalone after
	// the main solve.
	HydraulicsPostProcess HydraulicsMode = "post_process"

	// HydraulicsCoOptimize embeds pump-head variables and pressure
	// balances into the main solve.
	HydraulicsCoOptimize HydraulicsMode = "co_optimize"

	// HydraulicsCoOptimizeLinearized embeds only a flow-proportional
	// pumping-cost coefficient into the main objective.
	HydraulicsCoOptimizeLinearized HydraulicsMode = "co_optimize_linearized"
)

// RemovalEfficiencyMode selects how treatment removal efficiency is applied.
type RemovalEfficiencyMode string

const (
	// RemovalConcentrationBased compares inlet and outlet concentration.
	RemovalConcentrationBased RemovalEfficiencyMode = "concentration_based"

	// RemovalLoadBased compares inlet and outlet mass flow.
	RemovalLoadBased RemovalEfficiencyMode = "load_based"
)

// SubsurfaceRiskMode selects the subsurface-risk block behavior.
type SubsurfaceRiskMode string

const (
	// RiskOff disables the subsurface-risk block.
	RiskOff SubsurfaceRiskMode = "off"

	// RiskCalculated builds the covering block and pre-solves it before
	// the main solve.
	RiskCalculated SubsurfaceRiskMode = "calculated"
)

// TankMode selects how production-pad tanks are represented.
type TankMode string

const (
	// TanksIndividual tracks each production tank separately.
	TanksIndividual TankMode = "individual"

	// TanksEqualized aggregates a pad's tanks into one equalized level.
	TanksEqualized TankMode = "equalized"
)

// SurrogateMode selects the desalination cost surrogate family.
type SurrogateMode string

const (
	// SurrogateOff disables the desalination surrogate.
	SurrogateOff SurrogateMode = "off"

	// SurrogateMVC uses a mechanical-vapor-compression cost surrogate.
	SurrogateMVC SurrogateMode = "mvc"

	// SurrogateMD uses a membrane-distillation cost surrogate.
	SurrogateMD SurrogateMode = "md"
)

// Surrogate is the black-box interface a pretrained desalination cost
// model must satisfy. The engine never trains or introspects one.
type Surrogate interface {
	// Name identifies the surrogate family.
	Name() string

	// Capex returns the annualizable capital cost of building the given
	// treatment capacity at a site.
	Capex(site string, capacity float64) float64

	// Opex returns the per-volume operating cost at the given capacity.
	Opex(site string, capacity float64) float64
}

// Config is the immutable set of enumerated model-build choices. Several
// constraint families are only created, or are created in a structurally
// different form, depending on these values.
type Config struct {
	// Objective is the initially active objective kind.
	Objective ObjectiveKind

	// PipelineCost selects distance-based or capacity-based expansion pricing.
	PipelineCost PipelineCostMode

	// PipelineCapacity selects input or calculated increment capacities.
	PipelineCapacity PipelineCapacityMode

	// WaterQuality selects the quality strategy.
	WaterQuality QualityMode

	// QualityBuckets is the discretization ladder size for the discrete
	// quality strategy.
	QualityBuckets int

	// Hydraulics selects the hydraulics block behavior.
	Hydraulics HydraulicsMode

	// RemovalEfficiency selects how treatment removal is applied.
	RemovalEfficiency RemovalEfficiencyMode

	// SubsurfaceRisk selects the subsurface-risk block behavior.
	SubsurfaceRisk SubsurfaceRiskMode

	// Tanks selects the production-tank representation.
	Tanks TankMode

	// DesalinationSurrogate selects the surrogate family; SurrogateModel
	// supplies the pretrained artifact when the mode is not off.
	DesalinationSurrogate SurrogateMode
	SurrogateModel        Surrogate

	// NodeCapacity enables per-node throughput limits.
	NodeCapacity bool

	// InfrastructureTiming enables the build-start post-processor.
	InfrastructureTiming bool
}

// DefaultConfig returns the documented defaults: cost objective,
// distance-based pipeline pricing, no quality, hydraulics, risk, or
// timing extensions.
func DefaultConfig() Config {
	return Config{
		Objective:             ObjectiveCost,
		PipelineCost:          PipelineCostDistanceBased,
		PipelineCapacity:      PipelineCapacityInput,
		WaterQuality:          QualityOff,
		QualityBuckets:        6,
		Hydraulics:            HydraulicsOff,
		RemovalEfficiency:     RemovalConcentrationBased,
		SubsurfaceRisk:        RiskOff,
		Tanks:                 TanksEqualized,
		DesalinationSurrogate: SurrogateOff,
		NodeCapacity:          false,
		InfrastructureTiming:  false,
	}
}
