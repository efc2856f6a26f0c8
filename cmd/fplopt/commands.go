package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stitts-dev/fpl-optimizer/internal/forecast"
	"github.com/stitts-dev/fpl-optimizer/internal/services"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Select the optimal starting eleven and captain",
	Long: `Run the full pipeline for one forecasting method. By default the selection
is restricted to the players in the squad file; use --no-squad-constraint to
pick from every player.

Examples:
  fplopt optimize
  fplopt optimize --method hybrid --strategy rank_climbing
  fplopt optimize --no-squad-constraint --robust --format json`,
	RunE: runOptimize,
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare every forecasting method side by side",
	RunE:  runCompare,
}

var transfersCmd = &cobra.Command{
	Use:   "transfers",
	Short: "Recommend transfers from the squad file towards the optimal eleven",
	RunE:  runTransfers,
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write an empty squad file to fill in",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if err := writeSquadTemplate(flagSquadFile, force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Squad template written to %s\n", flagSquadFile)
		return nil
	},
}

func init() {
	optimizeCmd.Flags().BoolVar(&flagNoSquad, "no-squad-constraint", false, "Select from every player instead of the squad")
	compareCmd.Flags().BoolVar(&flagNoSquad, "no-squad-constraint", false, "Select from every player instead of the squad")
	transfersCmd.Flags().IntVar(&flagMaxTransfers, "max-transfers", 1, "Maximum number of transfers to recommend")
	templateCmd.Flags().Bool("force", false, "Overwrite an existing squad file")

	rootCmd.AddCommand(optimizeCmd, compareCmd, transfersCmd, templateCmd)
}

// loadSquad reads the squad file unless the constraint is disabled. A missing
// file falls back to an unconstrained run.
func loadSquad(env *environment, req *services.RunRequest) error {
	if flagNoSquad {
		return nil
	}
	squad, err := readSquadFile(flagSquadFile)
	if errors.Is(err, os.ErrNotExist) {
		env.log.WithField("path", flagSquadFile).Warn("Squad file not found, selecting from every player")
		return nil
	}
	if err != nil {
		return err
	}
	req.Squad = squad
	req.ConstrainToSquad = true
	return nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	env, err := newEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.cleanup()

	req, err := env.runRequest(false)
	if err != nil {
		return err
	}
	if err := loadSquad(env, &req); err != nil {
		return err
	}

	result, err := env.gameweeks.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}
	return writeRun(cmd.OutOrStdout(), flagFormat, result)
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	env, err := newEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.cleanup()

	req, err := env.runRequest(false)
	if err != nil {
		return err
	}
	if err := loadSquad(env, &req); err != nil {
		return err
	}

	var methods []forecast.Method
	if flagMethod != "" {
		methods = []forecast.Method{req.Method}
	}
	rows, err := env.gameweeks.CompareMethods(ctx, req, methods)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}
	return writeComparison(cmd.OutOrStdout(), flagFormat, rows)
}

func runTransfers(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	env, err := newEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.cleanup()

	req, err := env.runRequest(true)
	if err != nil {
		return err
	}

	plan, err := env.gameweeks.SuggestTransfers(ctx, services.TransferRequest{RunRequest: req, MaxTransfers: flagMaxTransfers})
	if err != nil {
		return fmt.Errorf("transfer recommendation failed: %w", err)
	}
	return writeTransferPlan(cmd.OutOrStdout(), flagFormat, plan)
}
