package config

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"

	"github.com/jakovmitrovski/zkp-club-login/pkg/chain"
	"github.com/jakovmitrovski/zkp-club-login/pkg/logger"
)

const (
	DefaultRPCURL            = "https://mainnet.base.org"
	DefaultChainID           = 8453
	DefaultVerifierAddress   = "0x7587CA385f1e10c411638003dA0f1bd3C99b919e"
	DefaultMembershipAddress = "0x2A152405afB201258D66919570BbD4625455a65f"
	DefaultClub              = "ai"
	DefaultGroup             = "vip"
	DefaultDatabaseDSN       = "zkp-login.db"
	DefaultListenAddr        = ":3000"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	RPCURL            string
	ChainID           int64
	VerifierAddress   string
	MembershipAddress string
	Club              string
	CallTimeout       time.Duration

	// PrivateKey is read from the environment only.
	PrivateKey string

	RegisterEnabled bool
	DefaultGroup    string
	DatabaseDSN     string
	ListenAddr      string
	SessionSecret   string

	LogLevel  string
	LogPretty bool
}

func Default() Config {
	return Config{
		RPCURL:            DefaultRPCURL,
		ChainID:           DefaultChainID,
		VerifierAddress:   DefaultVerifierAddress,
		MembershipAddress: DefaultMembershipAddress,
		Club:              DefaultClub,
		CallTimeout:       chain.DefaultCallTimeout,
		RegisterEnabled:   true,
		DefaultGroup:      DefaultGroup,
		DatabaseDSN:       DefaultDatabaseDSN,
		ListenAddr:        DefaultListenAddr,
	}
}

// FromEnv overlays the defaults with every variable getenv reports as set.
func FromEnv(getenv func(string) string) (Config, error) {
	c := Default()

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("ZKP_RPC_URL", &c.RPCURL)
	str("ZKP_CONTRACT_ADDRESS", &c.VerifierAddress)
	str("MEMBERSHIP_QUERY_ADDRESS", &c.MembershipAddress)
	str("ZKP_CLUB_NAME", &c.Club)
	str("ZKP_PRIVATE_KEY", &c.PrivateKey)
	str("DEFAULT_GROUP", &c.DefaultGroup)
	str("DATABASE_DSN", &c.DatabaseDSN)
	str("LISTEN_ADDR", &c.ListenAddr)
	str("SESSION_SECRET", &c.SessionSecret)
	str("LOG_LEVEL", &c.LogLevel)

	if v := strings.TrimSpace(getenv("ZKP_CHAIN_ID")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c, fmt.Errorf("%w: ZKP_CHAIN_ID: %w", ErrInvalidConfig, err)
		}
		c.ChainID = id
	}
	if v := strings.TrimSpace(getenv("ZKP_CALL_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, fmt.Errorf("%w: ZKP_CALL_TIMEOUT: %w", ErrInvalidConfig, err)
		}
		c.CallTimeout = d
	}
	for key, dst := range map[string]*bool{
		"REGISTER_ENABLED": &c.RegisterEnabled,
		"LOG_PRETTY":       &c.LogPretty,
	} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return c, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
			}
			*dst = b
		}
	}
	return c, nil
}

// BindFlags registers overrides for every setting except the signing key and
// the session secret. Current values become the flag defaults.
func (c *Config) BindFlags(f *flag.FlagSet) {
	f.StringVar(&c.RPCURL, "rpc-url", c.RPCURL, "JSON-RPC endpoint of the chain")
	f.Int64Var(&c.ChainID, "chain-id", c.ChainID, "chain id used for transaction signing")
	f.StringVar(&c.VerifierAddress, "verifier-address", c.VerifierAddress, "ZKP verifier contract address")
	f.StringVar(&c.MembershipAddress, "membership-address", c.MembershipAddress, "membership query contract address")
	f.StringVar(&c.Club, "club", c.Club, "club whose membership gates login")
	f.DurationVar(&c.CallTimeout, "call-timeout", c.CallTimeout, "deadline for each remote chain call")
	f.BoolVar(&c.RegisterEnabled, "register-enabled", c.RegisterEnabled, "allow first-time logins to create accounts")
	f.StringVar(&c.DefaultGroup, "default-group", c.DefaultGroup, "group assigned to new accounts")
	f.StringVar(&c.DatabaseDSN, "database", c.DatabaseDSN, "SQLite file or Postgres DSN")
	f.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "HTTP listen address")
	f.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
}

func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("%w: rpc url is empty", ErrInvalidConfig)
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("%w: chain id must be positive, got %d", ErrInvalidConfig, c.ChainID)
	}
	if !common.IsHexAddress(c.VerifierAddress) {
		return fmt.Errorf("%w: verifier address %q", ErrInvalidConfig, c.VerifierAddress)
	}
	if !common.IsHexAddress(c.MembershipAddress) {
		return fmt.Errorf("%w: membership address %q", ErrInvalidConfig, c.MembershipAddress)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("%w: call timeout must be positive", ErrInvalidConfig)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) Chain() chain.Config {
	return chain.Config{
		RPCURL:            c.RPCURL,
		ChainID:           big.NewInt(c.ChainID),
		VerifierAddress:   common.HexToAddress(c.VerifierAddress),
		MembershipAddress: common.HexToAddress(c.MembershipAddress),
		CallTimeout:       c.CallTimeout,
	}
}

func (c Config) Logger() logger.Config {
	return logger.Config{Level: c.LogLevel, Pretty: c.LogPretty}
}
