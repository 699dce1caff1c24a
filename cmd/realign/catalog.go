package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/realign/internal/cli"
	"github.com/aretw0/realign/pkg/catalog"
	"github.com/aretw0/realign/pkg/domain"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and check intake questionnaires",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <catalog.yaml>",
	Short: "Check a questionnaire for consistency",
	Long:  `Reports empty prompts, duplicate keys, option mismatches and fields the advice service requires.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cli.LoadCatalog(args[0])
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Catalog is valid! ✅ (%d questions)\n", c.Len())
		return nil
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show [catalog.yaml]",
	Short: "Print a questionnaire as JSON (built-in when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveCatalog(args)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(c.Questions(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogShowCmd)
}

func resolveCatalog(args []string) (*domain.Catalog, error) {
	if len(args) == 0 {
		return catalog.Health(), nil
	}
	return cli.LoadCatalog(args[0])
}
