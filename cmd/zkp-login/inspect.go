package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakovmitrovski/zkp-club-login/pkg/logger"
	"github.com/jakovmitrovski/zkp-club-login/pkg/zkp"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <proof>",
		Short: "Decode a proof string without touching the chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := zkp.ParseProof(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "A:     [%s, %s]\n", p.A[0], p.A[1])
			fmt.Fprintf(out, "B:     [[%s, %s], [%s, %s]]\n", p.B[0][0], p.B[0][1], p.B[1][0], p.B[1][1])
			fmt.Fprintf(out, "C:     [%s, %s]\n", p.C[0], p.C[1])
			fmt.Fprintf(out, "Input: [%s]\n", p.Input[0])
			fmt.Fprintf(out, "Hash:  %s\n", p.HashID())
			return nil
		},
	}
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <proof>",
		Short: "Verify a proof on chain, record it and check club membership",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := zkp.ParseProof(args[0])
			if err != nil {
				return err
			}
			client := a.chainClient()
			v, err := zkp.NewVerifier(client, a.cfg.PrivateKey, logger.Component(a.log, "verifier"))
			if err != nil {
				return err
			}

			outcome, err := v.Verify(cmd.Context(), p)
			if err != nil {
				if outcome != nil && errors.Is(err, zkp.ErrSubmitFailed) {
					fmt.Fprintf(cmd.OutOrStdout(), "Wallet:      %s\n", outcome.WalletAddress.Hex())
				}
				return err
			}

			gate := zkp.NewMembershipGate(client, a.cfg.Club, logger.Component(a.log, "membership"))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wallet:      %s\n", outcome.WalletAddress.Hex())
			fmt.Fprintf(out, "Transaction: %s\n", outcome.TransactionHash.Hex())
			fmt.Fprintf(out, "Member of %q: %t\n", gate.Club(), gate.IsMember(cmd.Context(), outcome.WalletAddress.Hex()))
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <hash>",
		Short: "Show the on-chain status of a verified proof hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checker := zkp.NewStatusChecker(a.chainClient(), logger.Component(a.log, "hash-status"))
			st, err := checker.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Exists:   %t\n", st.Exists)
			fmt.Fprintf(out, "Active:   %t\n", st.IsActive)
			fmt.Fprintf(out, "Deployer: %s\n", st.Deployer.Hex())
			fmt.Fprintf(out, "Valid:    %t\n", st.Exists && st.IsActive)
			return nil
		},
	}
}

func newMembershipCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "membership <address>",
		Short: "Show the membership tiers of a wallet in the configured club",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gate := zkp.NewMembershipGate(a.chainClient(), a.cfg.Club, logger.Component(a.log, "membership"))
			st, err := gate.Check(cmd.Context(), args[0], gate.Club())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Club:        %s\n", gate.Club())
			fmt.Fprintf(out, "Permanent:   %t\n", st.IsPermanent)
			fmt.Fprintf(out, "Temporary:   %t\n", st.IsTemporary)
			fmt.Fprintf(out, "Token based: %t\n", st.IsTokenBased)
			fmt.Fprintf(out, "Cross chain: %t\n", st.IsCrossChain)
			fmt.Fprintf(out, "Member:      %t\n", st.IsMember())
			return nil
		},
	}
}
