package config_test

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakovmitrovski/zkp-club-login/pkg/config"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	c, err := config.FromEnv(env(nil))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, int64(8453), c.ChainID)
	assert.Equal(t, "ai", c.Club)
	assert.Equal(t, 30*time.Second, c.CallTimeout)
	assert.True(t, c.RegisterEnabled)
	assert.Equal(t, "vip", c.DefaultGroup)
	assert.Empty(t, c.PrivateKey)

	cc := c.Chain()
	assert.Equal(t, common.HexToAddress(config.DefaultVerifierAddress), cc.VerifierAddress)
	assert.Equal(t, int64(8453), cc.ChainID.Int64())
}

func TestEnvOverrides(t *testing.T) {
	c, err := config.FromEnv(env(map[string]string{
		"ZKP_RPC_URL":      "http://localhost:8548",
		"ZKP_CHAIN_ID":     "31337",
		"ZKP_CLUB_NAME":    "defi",
		"ZKP_PRIVATE_KEY":  "0xabc",
		"ZKP_CALL_TIMEOUT": "5s",
		"REGISTER_ENABLED": "false",
		"LOG_PRETTY":       "1",
	}))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8548", c.RPCURL)
	assert.Equal(t, int64(31337), c.ChainID)
	assert.Equal(t, "defi", c.Club)
	assert.Equal(t, "0xabc", c.PrivateKey)
	assert.Equal(t, 5*time.Second, c.CallTimeout)
	assert.False(t, c.RegisterEnabled)
	assert.True(t, c.LogPretty)
}

func TestEnvParseErrors(t *testing.T) {
	for key, val := range map[string]string{
		"ZKP_CHAIN_ID":     "base",
		"ZKP_CALL_TIMEOUT": "soon",
		"REGISTER_ENABLED": "maybe",
	} {
		_, err := config.FromEnv(env(map[string]string{key: val}))
		assert.ErrorIs(t, err, config.ErrInvalidConfig, key)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	c, err := config.FromEnv(env(map[string]string{"ZKP_CLUB_NAME": "defi"}))
	require.NoError(t, err)

	f := flag.NewFlagSet("test", flag.ContinueOnError)
	c.BindFlags(f)
	require.NoError(t, f.Parse([]string{"--club", "gaming", "--call-timeout", "2s"}))

	assert.Equal(t, "gaming", c.Club)
	assert.Equal(t, 2*time.Second, c.CallTimeout)
	assert.Nil(t, f.Lookup("private-key"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty rpc", func(c *config.Config) { c.RPCURL = "" }},
		{"zero chain", func(c *config.Config) { c.ChainID = 0 }},
		{"bad verifier", func(c *config.Config) { c.VerifierAddress = "0x1234" }},
		{"bad membership", func(c *config.Config) { c.MembershipAddress = "nope" }},
		{"zero timeout", func(c *config.Config) { c.CallTimeout = 0 }},
		{"bad level", func(c *config.Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), config.ErrInvalidConfig)
		})
	}
}
