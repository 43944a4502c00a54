package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vectis-research/sinotrace/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate rule tables",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <rules.yaml>",
	Short: "Validate a rule table file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		compiled, err := rules.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("OK: %s (hash %s)\n", args[0], compiled.Rules.Hash())
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective rule tables as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		compiled, err := loadRules()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "# rules hash: %s\n", compiled.Rules.Hash())
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(compiled.Rules)
	},
}

func init() {
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesShowCmd)
	rootCmd.AddCommand(rulesCmd)
}
