package main

import (
	"encoding/json"
	"fmt"
	"io"

	"votecore/internal/app/bootstrap"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tabulateCmd)
	rootCmd.AddCommand(resultsCmd)
	tabulateCmd.Flags().Bool("trace", false, "print the round trace after the result")
}

var tabulateCmd = &cobra.Command{
	Use:   "tabulate <election-id>",
	Short: "Tabulate a closed election and publish its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap.BuildTally(cmd.Context(), "tallyctl")
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.Module.Handler.TabulateHandler(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("tabulate %s: %w", args[0], err)
		}
		showTrace, _ := cmd.Flags().GetBool("trace")
		if !showTrace {
			result.Trace = nil
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var resultsCmd = &cobra.Command{
	Use:   "results <election-id>",
	Short: "Print the published result of an election",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap.BuildTally(cmd.Context(), "tallyctl")
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.Module.Handler.GetResultsHandler(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("results %s: %w", args[0], err)
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func printJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
