// Package config loads and validates the service configuration from YAML,
// with environment overrides for the values that differ per deployment.
package config

import (
	"fmt"
	"os"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"

	"solcheckout/internal/money"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"` // listen address, e.g. ":8080"
	Mode string `yaml:"mode"` // "debug" or "release"

	// Per-client-IP token bucket. Zero disables rate limiting.
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// ChainConfig configures blockchain access.
type ChainConfig struct {
	// Endpoints is the ordered RPC candidate list; insertion order is the
	// failover trial order.
	Endpoints []string `yaml:"endpoints"`
	// CandidateMints overrides the built-in stablecoin list when set.
	CandidateMints []string `yaml:"candidate_mints"`
	// Merchant is the base58 address every sale pays out to.
	Merchant string `yaml:"merchant"`
}

// WalletConfig configures keypair derivation.
type WalletConfig struct {
	// DerivationSalt is an app-wide salt mixed into HKDF. Rotating it
	// rotates every derived wallet, so treat it as immutable in production.
	DerivationSalt string `yaml:"derivation_salt"`
}

// ImageAPIConfig configures the external receipt-image service.
type ImageAPIConfig struct {
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	TimeoutS int    `yaml:"timeout_s"`
}

// Timeout returns the request timeout as a duration.
func (c ImageAPIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutS) * time.Second
}

// LogConfig configures zap output.
type LogConfig struct {
	Level    string `yaml:"level"`    // debug / info / warn / error
	Format   string `yaml:"format"`   // "console" or "json"
	Dir      string `yaml:"dir"`      // when set, also log to a rotated file
	Compress bool   `yaml:"compress"` // compress rotated files
}

// Config is the root configuration.
type Config struct {
	Server ServerConfig   `yaml:"server"`
	Chain  ChainConfig    `yaml:"chain"`
	Wallet WalletConfig   `yaml:"wallet"`
	Image  ImageAPIConfig `yaml:"image_api"`
	Log    LogConfig      `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			Mode:           "debug",
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Chain: ChainConfig{
			Endpoints: []string{
				"https://api.mainnet-beta.solana.com",
				"https://solana-rpc.publicnode.com",
				"https://rpc.ankr.com/solana",
			},
		},
		Image: ImageAPIConfig{
			TimeoutS: 15,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path on top of defaults, then applies
// environment overrides and validates the result. An empty path loads
// defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers the deployment-specific environment variables on top of
// whatever the file provided.
func (c *Config) applyEnv() {
	if v := os.Getenv("SOLCHECKOUT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SOLCHECKOUT_MODE"); v != "" {
		c.Server.Mode = v
	}
	if v := os.Getenv("SOLCHECKOUT_MERCHANT"); v != "" {
		c.Chain.Merchant = v
	}
	if v := os.Getenv("SOLCHECKOUT_DERIVATION_SALT"); v != "" {
		c.Wallet.DerivationSalt = v
	}
	if v := os.Getenv("SOLCHECKOUT_IMAGE_API_KEY"); v != "" {
		c.Image.APIKey = v
	}
}

// Validate checks the loaded configuration for the mistakes that would
// otherwise only surface mid-request.
func (c *Config) Validate() error {
	if len(c.Chain.Endpoints) == 0 {
		return fmt.Errorf("chain.endpoints must list at least one RPC endpoint")
	}
	if c.Chain.Merchant == "" {
		return fmt.Errorf("chain.merchant is required")
	}
	if _, err := solana.PublicKeyFromBase58(c.Chain.Merchant); err != nil {
		return fmt.Errorf("chain.merchant is not a valid address: %w", err)
	}
	for _, m := range c.Chain.CandidateMints {
		if _, err := solana.PublicKeyFromBase58(m); err != nil {
			return fmt.Errorf("chain.candidate_mints entry %q is not a valid address: %w", m, err)
		}
	}
	switch c.Server.Mode {
	case "debug", "release":
	default:
		return fmt.Errorf("server.mode must be \"debug\" or \"release\", got %q", c.Server.Mode)
	}
	return nil
}

// MerchantKey returns the merchant address as a parsed public key. Validate
// must have succeeded first.
func (c *Config) MerchantKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.Chain.Merchant)
}

// Mints returns the candidate mint list in trial order: the configured
// override when present, otherwise the built-in stablecoin registry.
func (c *Config) Mints() []solana.PublicKey {
	if len(c.Chain.CandidateMints) > 0 {
		out := make([]solana.PublicKey, 0, len(c.Chain.CandidateMints))
		for _, m := range c.Chain.CandidateMints {
			out = append(out, solana.MustPublicKeyFromBase58(m))
		}
		return out
	}
	out := make([]solana.PublicKey, 0, len(money.KnownStablecoins))
	for _, sc := range money.KnownStablecoins {
		out = append(out, solana.MustPublicKeyFromBase58(sc.Mint))
	}
	return out
}
