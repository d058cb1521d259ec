package money

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("12", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(12_000_000), got)

	got, err = ParseAmount("0.10", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), got)

	got, err = ParseAmount("12.345678", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(12_345_678), got)

	got, err = ParseAmount(".5", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), got)
}

func TestParseAmountRejects(t *testing.T) {
	_, err := ParseAmount("-1", 6)
	assert.Error(t, err)

	_, err = ParseAmount("1.2345678", 6)
	assert.Error(t, err, "more fractional digits than the token supports")

	_, err = ParseAmount("", 6)
	assert.Error(t, err)

	_, err = ParseAmount("abc", 6)
	assert.Error(t, err)

	_, err = ParseAmount("1", MaxDecimals+1)
	assert.Error(t, err, "decimal widths past the uint64 range are rejected")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "12", FormatAmount(12_000_000, 6))
	assert.Equal(t, "12.34", FormatAmount(12_340_000, 6))
	assert.Equal(t, "0.000001", FormatAmount(1, 6))
	assert.Equal(t, "7", FormatAmount(7, 0))
}

func TestFormatAmountExtremeDecimals(t *testing.T) {
	// Widths past MaxDecimals still format; attacker-minted tokens can claim
	// any decimals byte and formatting must stay total.
	assert.Equal(t, "0."+strings.Repeat("0", 63)+"1", FormatAmount(1, 64))
	assert.Equal(t, "0."+strings.Repeat("0", 254)+"1", FormatAmount(1, 255))
	assert.Equal(t, "0", FormatAmount(0, 64))
	assert.Equal(t, "0."+strings.Repeat("0", 17)+"18446744073709551615",
		FormatAmount(^uint64(0), 37))
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"0.5", "19.99", "1000000"} {
		raw, err := ParseAmount(s, 6)
		require.NoError(t, err)
		assert.Equal(t, s, FormatAmount(raw, 6))
	}
}

func TestRegistryLookups(t *testing.T) {
	sc, ok := BySymbol("usdc")
	require.True(t, ok)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", sc.Mint)

	sc, ok = ByMint("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	require.True(t, ok)
	assert.Equal(t, "USDT", sc.Symbol)

	assert.False(t, IsKnownMint("So11111111111111111111111111111111111111112"))
}
