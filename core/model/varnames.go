package model

// Variable family names. These are shared vocabulary between the
// assembler, the quality and hydraulics extensions, the post-processors,
// and the report layer, which queries solved values by name/index.
const (
	// Flows.
	VarPiped       = "v_F_Piped"                  // (from, to, period)
	VarTrucked     = "v_F_Trucked"                // (from, to, period)
	VarSourced     = "v_F_Sourced"                // (source, pad, period)
	VarDisposal    = "v_F_DisposalDestination"    // (site, period)
	VarReuse       = "v_F_ReuseDestination"       // (option, period)
	VarCompletions = "v_F_CompletionsDestination" // (pad, period)
	VarTreated     = "v_F_TreatedWater"           // (site, period)
	VarResidual    = "v_F_ResidualWater"          // (site, period)

	// Stocks.
	VarStorageLevel    = "v_L_Storage"       // (site, period)
	VarPadStorageLevel = "v_L_PadStorage"    // (pad, period)
	VarPadStorageIn    = "v_F_PadStorageIn"  // (pad, period)
	VarPadStorageOut   = "v_F_PadStorageOut" // (pad, period)
	VarTankLevel       = "v_L_ProductionTank" // (pad[, tank], period)
	VarTankDrain       = "v_F_TankDrain"      // (pad[, tank], period)

	// Capacity-expansion binaries.
	VarPipelineExpansion  = "vb_y_Pipeline"  // (from, to, diameter)
	VarDisposalExpansion  = "vb_y_Disposal"  // (site, increment)
	VarStorageExpansion   = "vb_y_Storage"   // (site, increment)
	VarTreatmentExpansion = "vb_y_Treatment" // (site, technology, increment)

	// Direction selection for bidirectional piping pairs.
	VarFlowDirection = "vb_y_FlowDirection" // (from, to, period)

	// Subsurface-risk curtailment selection.
	VarCurtailment = "vb_y_Curtailment" // (site)

	// Available (expanded) capacities.
	VarPipelineCapacity  = "v_X_PipelineCapacity"  // (from, to)
	VarDisposalCapacity  = "v_X_DisposalCapacity"  // (site, period)
	VarStorageCapacity   = "v_X_StorageCapacity"   // (site)
	VarTreatmentCapacity = "v_X_TreatmentCapacity" // (site)

	// Slack relief.
	VarSlackProduction        = "v_S_Production"        // (pad, period)
	VarSlackDemand            = "v_S_Demand"            // (pad, period)
	VarSlackFlowback          = "v_S_Flowback"          // (pad, period)
	VarSlackPipelineCapacity  = "v_S_PipelineCapacity"  // (from, to)
	VarSlackDisposalCapacity  = "v_S_DisposalCapacity"  // (site)
	VarSlackStorageCapacity   = "v_S_StorageCapacity"   // (site)
	VarSlackTreatmentCapacity = "v_S_TreatmentCapacity" // (site)

	// Cost terms.
	VarCostPiped    = "v_C_Piped"     // (from, to, period)
	VarCostTrucked  = "v_C_Trucked"   // (from, to, period)
	VarCostSourced  = "v_C_Sourced"   // (source, pad, period)
	VarCostDisposal = "v_C_Disposal"  // (site, period)
	VarCostTreated  = "v_C_Treatment" // (site, period)
	VarCostStorage  = "v_C_Storage"   // (site, period)
	VarCostReuse    = "v_C_Reuse"     // (option, period)
	VarCostResidual = "v_C_Residual"  // (site, period)

	// Credit terms.
	VarCreditStorage = "v_R_Storage" // (site, period)
	VarCreditReuse   = "v_R_Reuse"   // (option, period)

	// Running totals feeding the objective definitions.
	VarTotalPiping    = "v_C_TotalPiping"
	VarTotalTrucking  = "v_C_TotalTrucking"
	VarTotalSourced   = "v_C_TotalSourced"
	VarTotalDisposal  = "v_C_TotalDisposal"
	VarTotalTreatment = "v_C_TotalTreatment"
	VarTotalStorage   = "v_C_TotalStorage"
	VarTotalResidual  = "v_C_TotalResidual"
	VarTotalExpansion = "v_C_TotalExpansion"
	VarTotalSlack     = "v_C_TotalSlack"
	VarTotalStorageCredit = "v_R_TotalStorage"
	VarTotalReuseCredit   = "v_R_TotalReuse"

	// Hydraulics block.
	VarPumpHead    = "v_PumpHead"       // (from, to, period)
	VarNodePressure = "v_Pressure"      // (location, period)
	VarTotalPumping = "v_C_TotalPumping"

	// Water quality: continuous post-process concentration.
	VarQuality = "v_Q" // (location, component, period)

	// Water quality: discrete bucket selection and disaggregated stages.
	VarQualityBucket     = "vb_y_Quality"           // (location, component, bucket, period)
	VarPipedQ            = "v_F_DiscretePiped"      // (from, to, period, component, bucket)
	VarTruckedQ          = "v_F_DiscreteTrucked"    // (from, to, period, component, bucket)
	VarStorageLevelQ     = "v_L_DiscreteStorage"    // (site, period, component, bucket)
	VarPadStorageLevelQ  = "v_L_DiscretePadStorage" // (pad, period, component, bucket)
	VarPadStorageInQ     = "v_F_DiscretePadStorageIn"
	VarPadStorageOutQ    = "v_F_DiscretePadStorageOut"
	VarTreatedQ          = "v_F_DiscreteTreatedWater"
	VarDisposalQ         = "v_F_DiscreteDisposalDestination"
	VarReuseQ            = "v_F_DiscreteReuseDestination"
	VarCompletionsQ      = "v_F_DiscreteCompletionsDestination"
)
