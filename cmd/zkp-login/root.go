package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jakovmitrovski/zkp-club-login/pkg/chain"
	"github.com/jakovmitrovski/zkp-club-login/pkg/config"
	"github.com/jakovmitrovski/zkp-club-login/pkg/logger"
)

type app struct {
	cfg config.Config
	log zerolog.Logger
}

func newRootCmd(getenv func(string) string) (*cobra.Command, error) {
	cfg, err := config.FromEnv(getenv)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "zkp-login",
		Short:         "Club login backed by on-chain zero-knowledge proof verification",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	a.cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCmd(a),
		newParseCmd(),
		newVerifyCmd(a),
		newStatusCmd(a),
		newMembershipCmd(a),
		newBenchCmd(a),
	)
	return root, nil
}

func (a *app) setup() error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	l, err := logger.New(a.cfg.Logger())
	if err != nil {
		return err
	}
	a.log = l
	return nil
}

func (a *app) chainClient() *chain.Client {
	return chain.NewClient(a.cfg.Chain())
}
