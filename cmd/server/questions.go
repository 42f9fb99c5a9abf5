package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soaringjerry/tsa-checkout/internal/config"
	"github.com/soaringjerry/tsa-checkout/internal/services"
)

func questionsCmd() *cobra.Command {
	var check string
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Print the active questionnaire catalog as YAML",
		Long: `Print the questionnaire catalog the server would use.

Examples:
  tsa-server questions > questions.yaml
  tsa-server questions --check questions.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var catalog *services.Catalog
			if check != "" {
				c, err := services.LoadCatalog(check)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d locales)\n", check, len(c.Locales()))
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if catalog, err = loadCatalog(cfg); err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(catalog); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&check, "check", "", "validate a questions file and exit")
	return cmd
}
