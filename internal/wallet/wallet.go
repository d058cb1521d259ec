// Package wallet derives Solana keypairs from social-login key material.
// The login provider never sees the chain key: the provider-issued secret is
// stretched through HKDF and the resulting seed deterministically produces
// the same keypair on every login.
package wallet

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"io"

	solana "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	bip39 "github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

const hkdfInfoPrefix = "solcheckout/wallet/v1"

// Material is the key material handed over by the login provider after a
// successful social login.
type Material struct {
	Provider string // e.g. "google", "twitter"
	Subject  string // provider-scoped stable user id
	Secret   []byte // provider-issued entropy, at least 16 bytes
}

// Keypair is a derived Solana keypair plus its export encodings.
type Keypair struct {
	PublicKey  solana.PublicKey
	PrivateKey solana.PrivateKey
	// Mnemonic is a BIP-39 phrase over the derived entropy, offered to the
	// user as a backup path out of the walletless flow.
	Mnemonic string
}

// Deriver turns login material into keypairs. The salt is an app-wide
// constant from configuration; changing it rotates every derived wallet.
type Deriver struct {
	salt []byte
}

// NewDeriver creates a Deriver with the given application salt.
func NewDeriver(salt []byte) *Deriver {
	return &Deriver{salt: salt}
}

// Derive produces the keypair for the given login material. The derivation
// is deterministic: identical material always yields the same keypair.
func (d *Deriver) Derive(m Material) (*Keypair, error) {
	if m.Provider == "" || m.Subject == "" {
		return nil, fmt.Errorf("provider and subject are required")
	}
	if len(m.Secret) < 16 {
		return nil, fmt.Errorf("key material too short: need at least 16 bytes, got %d", len(m.Secret))
	}

	info := fmt.Sprintf("%s/%s/%s", hkdfInfoPrefix, m.Provider, m.Subject)
	seed, err := hkdfExpand(m.Secret, d.salt, info, ed25519.SeedSize)
	if err != nil {
		return nil, fmt.Errorf("failed to expand key material: %w", err)
	}

	priv := ed25519.NewKeyFromSeed(seed)

	mnemonic, err := bip39.NewMnemonic(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to build mnemonic: %w", err)
	}

	solPriv := solana.PrivateKey(priv)
	return &Keypair{
		PublicKey:  solPriv.PublicKey(),
		PrivateKey: solPriv,
		Mnemonic:   mnemonic,
	}, nil
}

// ExportPrivateKey returns the base58 encoding of the full private key, the
// form Solana wallet apps accept on import.
func (k *Keypair) ExportPrivateKey() string {
	return base58.Encode(k.PrivateKey)
}

func hkdfExpand(secret, salt []byte, info string, outLen int) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, salt, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
