package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakovmitrovski/zkp-club-login/pkg/logger"
	"github.com/jakovmitrovski/zkp-club-login/pkg/measure"
	"github.com/jakovmitrovski/zkp-club-login/pkg/zkp"
)

func newBenchCmd(a *app) *cobra.Command {
	var (
		mc      measure.Config
		hashID  string
		address string
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure latency of the hash status and membership queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if hashID == "" && address == "" {
				return errors.New("nothing to measure: pass --hash and/or --address")
			}
			client := a.chainClient()
			if err := client.Connect(cmd.Context()); err != nil {
				return err
			}

			var probes []measure.Probe
			if hashID != "" {
				checker := zkp.NewStatusChecker(client, logger.Component(a.log, "hash-status"))
				probes = append(probes, measure.Probe{Name: "hash-status", Run: func(ctx context.Context) error {
					_, err := checker.Status(ctx, hashID)
					return err
				}})
			}
			if address != "" {
				gate := zkp.NewMembershipGate(client, a.cfg.Club, logger.Component(a.log, "membership"))
				probes = append(probes, measure.Probe{Name: "membership", Run: func(ctx context.Context) error {
					_, err := gate.Check(ctx, address, gate.Club())
					return err
				}})
			}

			runner := measure.NewRunner(mc, logger.Component(a.log, "bench"))
			if err := runner.Run(cmd.Context(), probes...); err != nil {
				return err
			}
			runner.PrintSummary(cmd.OutOrStdout())
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&mc.NumIterations, "iterations", 10, "number of rounds")
	f.StringVar(&mc.OutputDir, "out", "", "directory for the CSV results (none if empty)")
	f.BoolVar(&mc.MeasureSystem, "system", false, "record host memory and CPU usage")
	f.BoolVar(&mc.MeasureNetwork, "network", false, "record host network bytes per probe")
	f.DurationVar(&mc.Pause, "pause", 100*time.Millisecond, "pause between rounds")
	f.StringVar(&hashID, "hash", "", "proof hash identifier to query")
	f.StringVar(&address, "address", "", "wallet address to query")
	return cmd
}
