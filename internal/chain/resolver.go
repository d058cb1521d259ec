package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"solcheckout/internal/money"
	"solcheckout/internal/observability"
)

// Balance is a resolved stablecoin holding.
type Balance struct {
	Mint     solana.PublicKey
	Amount   uint64 // smallest unit
	Decimals uint8
	UIAmount string
}

// strategy is one resolution phase: nil Balance + nil error means the phase
// found nothing and the next one should run.
type strategy struct {
	name string
	run  func(ctx context.Context, conn *Conn, owner solana.PublicKey) (*Balance, error)
}

// Resolver locates an owner's stablecoin balance. It tries the known mint
// candidates first, then scans the owner's token accounts, then falls back
// to a server-side filtered query. First nonzero balance wins.
type Resolver struct {
	mints      []solana.PublicKey
	log        *zap.Logger
	metrics    *observability.Metrics
	strategies []strategy
}

// NewResolver creates a Resolver trying the given mints in order.
func NewResolver(mints []solana.PublicKey, log *zap.Logger, m *observability.Metrics) *Resolver {
	r := &Resolver{
		mints:   mints,
		log:     log,
		metrics: m,
	}
	r.strategies = []strategy{
		{name: "known_mints", run: r.resolveKnownMints},
		{name: "owner_scan", run: r.resolveOwnerScan},
		{name: "filtered_query", run: r.resolveFilteredQuery},
	}
	return r
}

// Resolve runs the phases in order and returns the first nonzero balance.
// A nil Balance with nil error means the owner holds nothing; that is a
// result, not a failure. Individual lookup errors are logged and skipped.
func (r *Resolver) Resolve(ctx context.Context, conn *Conn, owner solana.PublicKey) (*Balance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, s := range r.strategies {
		bal, err := s.run(ctx, conn, owner)
		if err != nil {
			// Whole-phase failure is still best effort: fall through to the
			// next phase rather than aborting the resolution.
			r.log.Warn("balance resolution phase failed",
				zap.String("phase", s.name),
				zap.String("owner", owner.String()),
				zap.Error(err))
			r.metrics.ResolverSkipped.WithLabelValues(s.name).Inc()
			continue
		}
		if bal != nil {
			r.metrics.ResolverHits.WithLabelValues(s.name).Inc()
			return bal, nil
		}
	}
	r.metrics.ResolverMisses.Inc()
	return nil, nil
}

// resolveKnownMints derives the owner's associated token account for each
// candidate mint in order and returns the first with a nonzero balance.
func (r *Resolver) resolveKnownMints(ctx context.Context, conn *Conn, owner solana.PublicKey) (*Balance, error) {
	for _, mint := range r.mints {
		bal, err := r.lookupMintBalance(ctx, conn, owner, mint)
		if err != nil {
			r.skip("known_mints", owner, err)
			continue
		}
		if bal != nil {
			return bal, nil
		}
	}
	return nil, nil
}

// ResolveMint checks one specific mint for the owner, for checkouts that
// name the token explicitly. nil, nil when the owner holds nothing; unlike
// the discovery phases a transport failure is returned, not skipped, since
// there is no other candidate to fall through to.
func (r *Resolver) ResolveMint(ctx context.Context, conn *Conn, owner, mint solana.PublicKey) (*Balance, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	info, err := conn.Client.GetAccountInfo(ctx, ata)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			r.metrics.ResolverMisses.Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("getAccountInfo %s: %w", ata, err)
	}
	if info == nil || info.Value == nil {
		r.metrics.ResolverMisses.Inc()
		return nil, nil
	}
	bal, err := r.decodeTokenAccount(ctx, conn, info.Value.Data.GetBinary())
	if err != nil {
		return nil, err
	}
	if bal != nil {
		r.metrics.ResolverHits.WithLabelValues("explicit_mint").Inc()
	} else {
		r.metrics.ResolverMisses.Inc()
	}
	return bal, nil
}

// lookupMintBalance fetches the balance of the owner's associated token
// account for one mint. Returns nil for missing accounts and zero balances.
func (r *Resolver) lookupMintBalance(ctx context.Context, conn *Conn, owner, mint solana.PublicKey) (*Balance, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	res, err := conn.Client.GetTokenAccountBalance(ctx, ata, balanceCommitment)
	if err != nil {
		// Most commonly "account not found": the owner simply has no
		// holding of this mint.
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, nil
	}
	amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, nil
	}
	return &Balance{
		Mint:     mint,
		Amount:   amount,
		Decimals: res.Value.Decimals,
		UIAmount: money.FormatAmount(amount, res.Value.Decimals),
	}, nil
}

// resolveOwnerScan enumerates every token account the owner holds under the
// SPL token program. Scan order is whatever the provider returns.
func (r *Resolver) resolveOwnerScan(ctx context.Context, conn *Conn, owner solana.PublicKey) (*Balance, error) {
	programID := solana.TokenProgramID
	out, err := conn.Client.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{
			Commitment: balanceCommitment,
			Encoding:   solana.EncodingBase64,
		})
	if err != nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner: %w", err)
	}
	if out == nil {
		return nil, nil
	}

	var first *Balance
	nonzero := 0
	for _, keyed := range out.Value {
		bal, err := r.decodeTokenAccount(ctx, conn, keyed.Account.Data.GetBinary())
		if err != nil {
			r.skip("owner_scan", owner, err)
			continue
		}
		if bal == nil {
			continue
		}
		nonzero++
		if first == nil {
			first = bal
		}
	}
	if nonzero > 1 {
		// Which of several nonzero holdings is surfaced depends on provider
		// enumeration order. Flagged, intentionally left as-is.
		r.log.Warn("owner holds multiple nonzero token balances, surfacing first in scan order",
			zap.String("owner", owner.String()),
			zap.Int("nonzero_accounts", nonzero),
			zap.String("surfaced_mint", first.Mint.String()))
	}
	return first, nil
}

// resolveFilteredQuery asks the RPC node for token accounts whose owner
// field matches and whose record size matches the fixed token layout.
func (r *Resolver) resolveFilteredQuery(ctx context.Context, conn *Conn, owner solana.PublicKey) (*Balance, error) {
	out, err := conn.Client.GetProgramAccountsWithOpts(ctx, solana.TokenProgramID,
		&rpc.GetProgramAccountsOpts{
			Commitment: balanceCommitment,
			Encoding:   solana.EncodingBase64,
			Filters: []rpc.RPCFilter{
				{DataSize: tokenAccountSize},
				{Memcmp: &rpc.RPCFilterMemcmp{
					Offset: tokenAccountOwnerOffset,
					Bytes:  solana.Base58(owner.Bytes()),
				}},
			},
		})
	if err != nil {
		return nil, fmt.Errorf("getProgramAccounts: %w", err)
	}

	for _, keyed := range out {
		bal, err := r.decodeTokenAccount(ctx, conn, keyed.Account.Data.GetBinary())
		if err != nil {
			r.skip("filtered_query", owner, err)
			continue
		}
		if bal != nil {
			return bal, nil
		}
	}
	return nil, nil
}

// decodeTokenAccount decodes a raw SPL token account and, when its balance
// is nonzero, fills in the mint's decimals. Returns nil for zero balances.
func (r *Resolver) decodeTokenAccount(ctx context.Context, conn *Conn, data []byte) (*Balance, error) {
	var acct token.Account
	if err := bin.NewBinDecoder(data).Decode(&acct); err != nil {
		return nil, fmt.Errorf("failed to decode token account: %w", err)
	}
	if acct.Amount == 0 {
		return nil, nil
	}

	decimals, err := r.mintDecimals(ctx, conn, acct.Mint)
	if err != nil {
		return nil, err
	}
	// Anyone can mint a token claiming any decimals byte; widths past the
	// uint64 range cannot be priced against, so the account is skipped.
	if decimals > money.MaxDecimals {
		return nil, fmt.Errorf("mint %s reports unsupported decimals %d", acct.Mint, decimals)
	}
	return &Balance{
		Mint:     acct.Mint,
		Amount:   acct.Amount,
		Decimals: decimals,
		UIAmount: money.FormatAmount(acct.Amount, decimals),
	}, nil
}

// mintDecimals answers from the stablecoin registry when it can and decodes
// the mint account otherwise.
func (r *Resolver) mintDecimals(ctx context.Context, conn *Conn, mint solana.PublicKey) (uint8, error) {
	if sc, ok := money.ByMint(mint.String()); ok {
		return sc.Decimals, nil
	}
	info, err := conn.Client.GetAccountInfo(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to get mint account %s: %w", mint, err)
	}
	if info == nil || info.Value == nil {
		return 0, fmt.Errorf("mint account %s not found", mint)
	}
	var mintData token.Mint
	if err := bin.NewBinDecoder(info.Value.Data.GetBinary()).Decode(&mintData); err != nil {
		return 0, fmt.Errorf("failed to decode mint %s: %w", mint, err)
	}
	return mintData.Decimals, nil
}

func (r *Resolver) skip(phase string, owner solana.PublicKey, err error) {
	r.log.Debug("skipping candidate after lookup failure",
		zap.String("phase", phase),
		zap.String("owner", owner.String()),
		zap.Error(err))
	r.metrics.ResolverSkipped.WithLabelValues(phase).Inc()
}
