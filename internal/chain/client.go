// Package chain talks to the Solana network: endpoint selection with
// failover, stablecoin balance resolution, transfer building, and
// confirmation fetching. Everything above it consumes *Conn handles and
// never dials RPC directly.
package chain

import (
	"context"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Client is the slice of the Solana RPC surface this service uses.
// *rpc.Client satisfies it; tests substitute fakes.
type Client interface {
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	GetVersion(ctx context.Context) (*rpc.GetVersionResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
	GetProgramAccountsWithOpts(ctx context.Context, program solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetTransaction(ctx context.Context, signature solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

// Conn is a verified connection to one endpoint.
type Conn struct {
	Client   Client
	Endpoint string
}

// Dialer constructs a Client for an endpoint URL.
type Dialer func(endpoint string) Client

// DialRPC is the production dialer.
func DialRPC(endpoint string) Client {
	return rpc.New(endpoint)
}
