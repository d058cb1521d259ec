package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const merchantAddr = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  mode: release
chain:
  endpoints:
    - https://rpc-a.example.com
    - https://rpc-b.example.com
  merchant: `+merchantAddr+`
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, []string{"https://rpc-a.example.com", "https://rpc-b.example.com"}, cfg.Chain.Endpoints)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, merchantAddr, cfg.MerchantKey().String())
}

func TestLoadRejectsMissingMerchant(t *testing.T) {
	path := writeConfig(t, `
chain:
  endpoints: [https://rpc-a.example.com]
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "merchant")
}

func TestLoadRejectsBadAddresses(t *testing.T) {
	path := writeConfig(t, `
chain:
  endpoints: [https://rpc-a.example.com]
  merchant: not-an-address
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "not a valid address")

	path = writeConfig(t, `
chain:
  endpoints: [https://rpc-a.example.com]
  merchant: `+merchantAddr+`
  candidate_mints: [bogus]
`)
	_, err = Load(path)
	assert.ErrorContains(t, err, "candidate_mints")
}

func TestLoadRejectsBadMode(t *testing.T) {
	path := writeConfig(t, `
server:
  mode: production
chain:
  endpoints: [https://rpc-a.example.com]
  merchant: `+merchantAddr+`
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "server.mode")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SOLCHECKOUT_ADDR", ":7000")
	t.Setenv("SOLCHECKOUT_MERCHANT", merchantAddr)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, merchantAddr, cfg.Chain.Merchant)
}

func TestMintsFallBackToRegistry(t *testing.T) {
	t.Setenv("SOLCHECKOUT_MERCHANT", merchantAddr)

	cfg, err := Load("")
	require.NoError(t, err)
	mints := cfg.Mints()
	require.NotEmpty(t, mints)
	// Registry order is trial order; USDC first.
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", mints[0].String())
}
