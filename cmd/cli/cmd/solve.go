// Package cmd - solve command
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pwnet/adapters/casefile"
	"pwnet/core/build"
	"pwnet/core/model"
	"pwnet/core/output"
	"pwnet/core/solve"
	"pwnet/internal/config"
	"pwnet/internal/logging"
	_ "pwnet/solvers/highs"
	_ "pwnet/solvers/simplex"
)

var (
	objectiveFlag  string
	qualityFlag    string
	solverFlag     string
	timeLimitFlag  float64
	gapFlag        float64
	scaleFlag      bool
	hardSlacksFlag bool
	jsonFlag       string
	riskOnlyFlag   bool
)

// solveCmd represents the solve command
var solveCmd = &cobra.Command{
	Use:   "solve [case file]",
	Short: "Solve a produced-water network case",
	Long: `Assemble and solve the optimization model for a case file.

The case file declares the network (periods, locations, arcs, expansion
increments), the parameter tables, and the build configuration. Flags
override the case file's configuration for the run.

Examples:
  pwnet solve field.pwnet.hcl
  pwnet solve --objective reuse field.pwnet.hcl
  pwnet solve --quality post_process --time-limit 600 field.pwnet.hcl`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVar(&objectiveFlag, "objective", "", "objective to optimize (cost, reuse, cost_surrogate, subsurface_risk, environmental)")
	solveCmd.Flags().StringVar(&qualityFlag, "quality", "", "water-quality mode (off, post_process, discrete)")
	solveCmd.Flags().StringVar(&solverFlag, "solver", "", "comma-separated backend preference (highs, simplex)")
	solveCmd.Flags().Float64Var(&timeLimitFlag, "time-limit", 0, "solver time limit in seconds (0 = unlimited)")
	solveCmd.Flags().Float64Var(&gapFlag, "gap", 0, "relative MIP gap")
	solveCmd.Flags().BoolVar(&scaleFlag, "scale", false, "rescale the model before solving")
	solveCmd.Flags().BoolVar(&hardSlacksFlag, "hard-slacks", false, "disable slack relief (infeasibility becomes binding)")
	solveCmd.Flags().StringVar(&jsonFlag, "json", "", "write the full result as JSON to this path")
	solveCmd.Flags().BoolVar(&riskOnlyFlag, "risk-only", false, "run only the subsurface-risk pre-solve")
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	startTime := time.Now()
	path := args[0]

	c, err := casefile.Load(path)
	if err != nil {
		return err
	}
	if err := applyFlagOverrides(&c.Config); err != nil {
		return err
	}

	logging.Info("assembling model", zap.String("case", path))
	m, err := build.Assemble(c.Sets, c.Params, c.Config)
	if err != nil {
		return err
	}

	opts := solveOptions()
	res, err := solve.Solve(ctx, m, opts)
	if err != nil {
		return err
	}

	cli := &output.CLIFormatter{
		Elapsed:      time.Since(startTime),
		ShowSchedule: config.Get().Output.ShowSchedule,
	}
	if err := cli.Render(cmd.OutOrStdout(), res); err != nil {
		return err
	}

	if jsonFlag != "" {
		f, err := os.Create(jsonFlag)
		if err != nil {
			return fmt.Errorf("creating %s: %w", jsonFlag, err)
		}
		defer f.Close()
		if err := (&output.JSONFormatter{}).Render(f, res); err != nil {
			return fmt.Errorf("writing %s: %w", jsonFlag, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nResult written to %s\n", jsonFlag)
	}
	return nil
}

func applyFlagOverrides(cfg *model.Config) error {
	if objectiveFlag != "" {
		cfg.Objective = model.ObjectiveKind(objectiveFlag)
	}
	if qualityFlag != "" {
		switch model.QualityMode(qualityFlag) {
		case model.QualityOff, model.QualityPostProcess, model.QualityDiscrete:
			cfg.WaterQuality = model.QualityMode(qualityFlag)
		default:
			return fmt.Errorf("unknown quality mode %q", qualityFlag)
		}
	}
	return nil
}

func solveOptions() solve.Options {
	appCfg := config.Get().Solve
	opts := solve.DefaultOptions()

	if len(appCfg.Solvers) > 0 {
		opts.SolverCandidates = appCfg.Solvers
	}
	if solverFlag != "" {
		opts.SolverCandidates = strings.Split(solverFlag, ",")
	}
	opts.TimeLimitS = appCfg.TimeLimitSeconds
	if timeLimitFlag > 0 {
		opts.TimeLimitS = timeLimitFlag
	}
	opts.RelativeGap = appCfg.RelativeGap
	if gapFlag > 0 {
		opts.RelativeGap = gapFlag
	}
	opts.ApplyScaling = appCfg.Scaling || scaleFlag
	if appCfg.ScalingFactor > 0 {
		opts.ScalingFactor = appCfg.ScalingFactor
	}
	opts.DeactivateSlacks = appCfg.DeactivateSlacks || hardSlacksFlag
	opts.NumericFocus = appCfg.NumericFocus
	opts.SubsurfaceOnly = riskOnlyFlag
	return opts
}

