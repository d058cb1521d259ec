package chain

import "github.com/gagliardetto/solana-go/rpc"

const (
	// probeCommitment keeps liveness probes cheap.
	probeCommitment = rpc.CommitmentProcessed
	// balanceCommitment is used for balance lookups.
	balanceCommitment = rpc.CommitmentConfirmed
	// confirmCommitment is required before a sale is recorded.
	confirmCommitment = rpc.CommitmentFinalized

	// defaultComputeUnitPrice is the priority fee in micro-lamports attached
	// to checkout transactions.
	defaultComputeUnitPrice uint64 = 1_000

	// transferComputeUnits covers the three instructions of a checkout
	// transaction (ComputeLimit + ComputePrice + TransferChecked).
	transferComputeUnits uint32 = 6_500

	// SPL token account layout: fixed 165-byte records with the owner field
	// at byte offset 32.
	tokenAccountSize        uint64 = 165
	tokenAccountOwnerOffset uint64 = 32

	// confirmAttempts bounds transaction-fetch retries. Linear, no backoff.
	confirmAttempts = 3
)
