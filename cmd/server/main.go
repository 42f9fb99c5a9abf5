package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var addr string
	root := &cobra.Command{
		Use:          "tsa-server",
		Short:        "TSA questionnaire with paid result download",
		SilenceUsage: true,
		// serve is the default when no subcommand is given
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}
	root.Flags().StringVar(&addr, "addr", "", "listen address (overrides TSA_ADDR)")

	root.AddCommand(serveCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(questionsCmd())
	return root
}
