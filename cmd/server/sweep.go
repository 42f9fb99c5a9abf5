package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/tsa-checkout/internal/config"
	"github.com/soaringjerry/tsa-checkout/internal/logging"
	"github.com/soaringjerry/tsa-checkout/internal/payment"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove submissions older than TSA_SUBMISSION_TTL and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logCloser, err := logging.Setup(cfg.Log)
			if err != nil {
				return err
			}
			defer logCloser.Close()

			// sweeping never talks to the processor
			svc, closer, err := newCheckout(cfg, payment.NewFakeClient())
			if err != nil {
				return err
			}
			defer closer.Close()

			n, err := svc.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale submission(s)\n", n)
			return nil
		},
	}
}
