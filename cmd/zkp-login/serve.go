package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jakovmitrovski/zkp-club-login/pkg/auth"
	"github.com/jakovmitrovski/zkp-club-login/pkg/logger"
	"github.com/jakovmitrovski/zkp-club-login/pkg/server"
	"github.com/jakovmitrovski/zkp-club-login/pkg/store"
	"github.com/jakovmitrovski/zkp-club-login/pkg/zkp"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP login service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	log := a.log
	client := a.chainClient()
	if err := client.Connect(ctx); err != nil {
		log.Error().Err(err).Str("rpc", a.cfg.RPCURL).Msg("chain client unavailable, ZKP login disabled until restart")
	}

	verifier, err := zkp.NewVerifier(client, a.cfg.PrivateKey, logger.Component(log, "verifier"))
	if err != nil {
		return fmt.Errorf("ZKP_PRIVATE_KEY: %w", err)
	}
	if !verifier.Enabled() {
		log.Warn().Msg("ZKP_PRIVATE_KEY not set, ZKP login disabled")
	}

	db, err := store.Open(a.cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	accounts, err := store.New(db)
	if err != nil {
		return err
	}

	secret := []byte(a.cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
		log.Warn().Msg("SESSION_SECRET not set, sessions will not survive a restart")
	}

	membership := zkp.NewMembershipGate(client, a.cfg.Club, logger.Component(log, "membership"))
	orch := auth.NewOrchestrator(verifier, membership, accounts, auth.Options{
		RegisterEnabled: a.cfg.RegisterEnabled,
		DefaultGroup:    a.cfg.DefaultGroup,
	}, logger.Component(log, "login"))

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: a.cfg.ListenAddr,
		Handler: server.New(server.Deps{
			Login:         orch,
			Hashes:        zkp.NewStatusChecker(client, logger.Component(log, "hash-status")),
			Membership:    membership,
			Accounts:      accounts,
			Chain:         client,
			SessionSecret: secret,
			Log:           logger.Component(log, "http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("club", a.cfg.Club).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
