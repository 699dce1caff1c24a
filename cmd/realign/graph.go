package main

import (
	"fmt"

	"github.com/aretw0/realign/internal/cli"
	"github.com/aretw0/realign/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [catalog.yaml]",
	Short: "Export the wizard state machine",
	Long: `Outputs a Mermaid diagram (graph TD) of the questionnaire flow.
With --session the stored session's position and answered questions are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveCatalog(args)
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, closeStore, err := cli.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			state, err := store.Load(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("error loading session '%s': %w", sessionID, err)
			}
			overlay = graph.OverlayFor(c, state)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(c, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("session", "s", "", "Highlight the position of a stored session")
}
