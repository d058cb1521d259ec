package chain

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeMint(t *testing.T, decimals uint8) []byte {
	t.Helper()
	mint := token.Mint{
		Supply:        1_000_000_000,
		Decimals:      decimals,
		IsInitialized: true,
	}
	buf := new(bytes.Buffer)
	require.NoError(t, bin.NewBinEncoder(buf).Encode(mint))
	return buf.Bytes()
}

// builderClient serves a mint account plus any extra accounts by address.
func builderClient(t *testing.T, mint solana.PublicKey, extra map[solana.PublicKey]bool) *fakeClient {
	t.Helper()
	return &fakeClient{
		accountInfoFn: func(_ context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
			if account == mint {
				return &rpc.GetAccountInfoResult{Value: &rpc.Account{
					Owner: solana.TokenProgramID,
					Data:  accountData(t, encodeMint(t, 6)),
				}}, nil
			}
			if extra[account] {
				return &rpc.GetAccountInfoResult{Value: &rpc.Account{
					Owner: solana.TokenProgramID,
					Data:  accountData(t, []byte{}),
				}}, nil
			}
			return &rpc.GetAccountInfoResult{}, nil
		},
		blockhashFn: func(context.Context) (*rpc.GetLatestBlockhashResult, error) {
			return &rpc.GetLatestBlockhashResult{
				Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{1}},
			}, nil
		},
	}
}

func TestBuildTransfer(t *testing.T) {
	buyer := solana.NewWallet().PublicKey()
	merchant := solana.NewWallet().PublicKey()

	sourceATA := ataFor(t, buyer, usdcMint)
	destATA := ataFor(t, merchant, usdcMint)
	client := builderClient(t, usdcMint, map[solana.PublicKey]bool{sourceATA: true, destATA: true})

	encoded, err := BuildTransfer(context.Background(), &Conn{Client: client}, TransferParams{
		Buyer:    buyer,
		Merchant: merchant,
		Mint:     usdcMint,
		Amount:   12_000_000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(t, err)

	// Buyer pays the fee and must sign; merchant ATA is among the accounts.
	assert.Equal(t, buyer, tx.Message.AccountKeys[0])
	assert.Len(t, tx.Message.Instructions, 3, "compute limit + compute price + transfer")

	found := false
	for _, key := range tx.Message.AccountKeys {
		if key.Equals(destATA) {
			found = true
		}
	}
	assert.True(t, found, "destination token account missing from transaction")
}

func TestBuildTransferRejectsZeroAmount(t *testing.T) {
	_, err := BuildTransfer(context.Background(), &Conn{Client: &fakeClient{}}, TransferParams{
		Buyer:    solana.NewWallet().PublicKey(),
		Merchant: solana.NewWallet().PublicKey(),
		Mint:     usdcMint,
	})
	assert.ErrorContains(t, err, "amount must be positive")
}

func TestBuildTransferRejectsUnknownMint(t *testing.T) {
	client := &fakeClient{
		accountInfoFn: func(context.Context, solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
			return &rpc.GetAccountInfoResult{}, nil
		},
	}
	_, err := BuildTransfer(context.Background(), &Conn{Client: client}, TransferParams{
		Buyer:    solana.NewWallet().PublicKey(),
		Merchant: solana.NewWallet().PublicKey(),
		Mint:     solana.NewWallet().PublicKey(),
		Amount:   1,
	})
	assert.ErrorContains(t, err, "not found")
}

func TestBuildTransferRequiresBuyerTokenAccount(t *testing.T) {
	buyer := solana.NewWallet().PublicKey()
	merchant := solana.NewWallet().PublicKey()

	destATA := ataFor(t, merchant, usdcMint)
	client := builderClient(t, usdcMint, map[solana.PublicKey]bool{destATA: true})

	_, err := BuildTransfer(context.Background(), &Conn{Client: client}, TransferParams{
		Buyer:    buyer,
		Merchant: merchant,
		Mint:     usdcMint,
		Amount:   1_000,
	})
	assert.ErrorContains(t, err, "buyer holds no token account")
}
