package chain

import (
	"context"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// ConfirmedTransfer is what the confirmation step hands back to the ledger
// layer once a transaction has been fetched and verified.
type ConfirmedTransfer struct {
	Signature solana.Signature
	Buyer     solana.PublicKey // fee payer, first account key
	Slot      uint64
	BlockTime time.Time
}

// Confirmer fetches finalized transactions and verifies they pay the
// merchant.
type Confirmer struct {
	selector *Selector
	merchant solana.PublicKey
	log      *zap.Logger
}

// NewConfirmer creates a Confirmer for the given merchant address.
func NewConfirmer(selector *Selector, merchant solana.PublicKey, log *zap.Logger) *Confirmer {
	return &Confirmer{
		selector: selector,
		merchant: merchant,
		log:      log,
	}
}

// Confirm fetches the finalized transaction for the signature, invalidating
// and re-acquiring the connection between attempts, and verifies the
// merchant address appears in the transaction's account list. A transaction
// that confirmed on-chain but never references the merchant is rejected.
func (c *Confirmer) Confirm(ctx context.Context, signature solana.Signature) (*ConfirmedTransfer, error) {
	var lastErr error
	for attempt := 1; attempt <= confirmAttempts; attempt++ {
		conn, err := c.selector.Acquire(ctx)
		if err != nil {
			return nil, err
		}

		res, err := conn.Client.GetTransaction(ctx, signature, getTransactionOpts())
		if err != nil || res == nil {
			lastErr = err
			c.log.Warn("transaction fetch failed, re-acquiring connection",
				zap.String("signature", signature.String()),
				zap.Int("attempt", attempt),
				zap.Error(err))
			c.selector.Invalidate()
			continue
		}

		tx, err := res.Transaction.GetTransaction()
		if err != nil {
			lastErr = err
			c.selector.Invalidate()
			continue
		}

		if !c.paysMerchant(tx) {
			return nil, ErrMerchantNotInTransaction
		}

		confirmed := &ConfirmedTransfer{
			Signature: signature,
			Slot:      res.Slot,
		}
		if keys := tx.Message.AccountKeys; len(keys) > 0 {
			confirmed.Buyer = keys[0]
		}
		if res.BlockTime != nil {
			confirmed.BlockTime = res.BlockTime.Time()
		}
		return confirmed, nil
	}

	if lastErr != nil {
		c.log.Warn("giving up on transaction fetch",
			zap.String("signature", signature.String()), zap.Error(lastErr))
	}
	return nil, ErrTransactionNotFound
}

// Lookup fetches a transaction without merchant verification, for the
// read-only transaction endpoint. Single attempt.
func (c *Confirmer) Lookup(ctx context.Context, signature solana.Signature) (*ConfirmedTransfer, error) {
	conn, err := c.selector.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	res, err := conn.Client.GetTransaction(ctx, signature, getTransactionOpts())
	if err != nil || res == nil {
		return nil, ErrTransactionNotFound
	}
	tx, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil, ErrTransactionNotFound
	}

	out := &ConfirmedTransfer{Signature: signature, Slot: res.Slot}
	if keys := tx.Message.AccountKeys; len(keys) > 0 {
		out.Buyer = keys[0]
	}
	if res.BlockTime != nil {
		out.BlockTime = res.BlockTime.Time()
	}
	return out, nil
}

func (c *Confirmer) paysMerchant(tx *solana.Transaction) bool {
	for _, key := range tx.Message.AccountKeys {
		if key.Equals(c.merchant) {
			return true
		}
	}
	return false
}

func getTransactionOpts() *rpc.GetTransactionOpts {
	maxVersion := uint64(0)
	return &rpc.GetTransactionOpts{
		Commitment:                     confirmCommitment,
		MaxSupportedTransactionVersion: &maxVersion,
	}
}
