package chain

import "errors"

var (
	// ErrNoEndpoint means every candidate RPC endpoint failed its liveness
	// probes. Fatal for the calling request; surfaced as 503 at the edge.
	ErrNoEndpoint = errors.New("no rpc endpoint available")

	// ErrTransactionNotFound means the signature could not be fetched from
	// the network within the attempt budget.
	ErrTransactionNotFound = errors.New("transaction not found on chain")

	// ErrMerchantNotInTransaction means the fetched transaction does not
	// reference the merchant address. The confirmation is rejected even if
	// the transaction itself succeeded on-chain.
	ErrMerchantNotInTransaction = errors.New("merchant address not present in transaction account list")
)
