// Package money holds the stablecoin mint registry and raw-amount helpers.
// All amounts cross package boundaries as integers in the token's smallest
// unit; conversion to and from decimal strings happens here and nowhere else.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxDecimals is the largest mint decimal width the raw-amount arithmetic
// supports: 10^19 is the last power of ten below 2^64. Mints reporting more
// are rejected rather than risking overflow.
const MaxDecimals = 19

// Stablecoin describes one accepted payment token.
type Stablecoin struct {
	Symbol   string
	Mint     string
	Decimals uint8
}

// KnownStablecoins is the ordered candidate list the balance resolver tries
// before falling back to a full account scan. Order is trial priority.
var KnownStablecoins = []Stablecoin{
	{Symbol: "USDC", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6},
	{Symbol: "USDT", Mint: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Decimals: 6},
	{Symbol: "PYUSD", Mint: "2b1kV6DkPAnxd5ixfnxCpjxmKwqjjaYmCZfHsFu24GXo", Decimals: 6},
	{Symbol: "USDC-Dev", Mint: "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU", Decimals: 6},
}

// BySymbol returns the registered stablecoin for a symbol, or false.
func BySymbol(symbol string) (Stablecoin, bool) {
	for _, sc := range KnownStablecoins {
		if strings.EqualFold(sc.Symbol, symbol) {
			return sc, true
		}
	}
	return Stablecoin{}, false
}

// ByMint returns the registered stablecoin for a mint address, or false.
func ByMint(mint string) (Stablecoin, bool) {
	for _, sc := range KnownStablecoins {
		if sc.Mint == mint {
			return sc, true
		}
	}
	return Stablecoin{}, false
}

// IsKnownMint reports whether the mint address is a registered stablecoin.
func IsKnownMint(mint string) bool {
	_, ok := ByMint(mint)
	return ok
}

// ParseAmount converts a decimal string like "12.34" into the token's
// smallest unit. Negative amounts and fractions finer than the token's
// decimals are rejected.
func ParseAmount(amount string, decimals uint8) (uint64, error) {
	if decimals > MaxDecimals {
		return 0, fmt.Errorf("decimals %d exceeds the supported maximum %d", decimals, MaxDecimals)
	}
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	if strings.HasPrefix(amount, "-") {
		return 0, fmt.Errorf("amount must not be negative: %s", amount)
	}

	whole, frac := amount, ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}

	wholeUnits, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	// Right-pad the fractional part to the full decimal width.
	frac += strings.Repeat("0", int(decimals)-len(frac))
	fracUnits := uint64(0)
	if frac != "" {
		fracUnits, err = strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
		}
	}

	scale := pow10(decimals)
	if wholeUnits > (^uint64(0)-fracUnits)/scale {
		return 0, fmt.Errorf("amount %s overflows uint64", amount)
	}
	return wholeUnits*scale + fracUnits, nil
}

// FormatAmount renders a raw smallest-unit amount as a decimal string,
// trimming trailing fractional zeros. Pure digit-string arithmetic: it never
// scales by a power of ten, so any decimal width is safe to format.
func FormatAmount(raw uint64, decimals uint8) string {
	digits := strconv.FormatUint(raw, 10)
	if decimals == 0 {
		return digits
	}
	if len(digits) <= int(decimals) {
		digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
	}
	split := len(digits) - int(decimals)
	whole, frac := digits[:split], strings.TrimRight(digits[split:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

func pow10(n uint8) uint64 {
	out := uint64(1)
	for i := uint8(0); i < n; i++ {
		out *= 10
	}
	return out
}
