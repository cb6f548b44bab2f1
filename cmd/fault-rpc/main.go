package main

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jakovmitrovski/zkp-club-login/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{Level: os.Getenv("LOG_LEVEL"), Pretty: true})
	if err != nil {
		log = zerolog.New(os.Stderr)
	}

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded")
	}

	realURL := os.Getenv("REAL_RPC_URL")
	if realURL == "" {
		realURL = "http://localhost:8545"
	}

	port := os.Getenv("FAULT_RPC_PORT")
	if port == "" {
		port = "8548"
	}

	every := 0
	if v := os.Getenv("FAULT_INVALIDATE_EVERY"); v != "" {
		if every, err = strconv.Atoi(v); err != nil || every < 0 {
			log.Fatal().Str("value", v).Msg("FAULT_INVALIDATE_EVERY must be a non-negative integer")
		}
	}

	var delay time.Duration
	if v := os.Getenv("FAULT_DELAY"); v != "" {
		if delay, err = time.ParseDuration(v); err != nil {
			log.Fatal().Err(err).Msg("FAULT_DELAY must be a duration")
		}
	}

	node := NewFaultyNode(realURL, every, delay, log)
	log.Info().
		Str("port", port).
		Str("upstream", realURL).
		Int("invalidate_every", every).
		Dur("delay", delay).
		Msg("fault-injecting RPC proxy starting")

	if err := http.ListenAndServe(":"+port, node); err != nil {
		log.Fatal().Err(err).Msg("proxy stopped")
	}
}
