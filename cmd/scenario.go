package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/battsim/core/scenario"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Scenario file commands",
}

var scenarioValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a scenario file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := scenario.LoadFile(args[0])
		if err != nil {
			return err
		}
		sims, err := scenario.ResolveAll(f.Simulations)
		if err != nil {
			return err
		}
		for _, s := range sims {
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s: %d channel(s), interval %s\n", s.Name, len(s.Channels), s.Interval())
		}
		return nil
	},
}

var scenarioListCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in presets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, n := range scenario.Presets() {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
	},
}

func init() {
	scenarioCmd.AddCommand(scenarioValidateCmd, scenarioListCmd)
	rootCmd.AddCommand(scenarioCmd)
}
