// Package ledger is the in-memory sales record backing the merchant
// dashboard. It is append-only and lives for the process lifetime; a
// restart starts from an empty book. Durable storage is an explicit
// non-goal of this demo.
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Receipt is one confirmed sale.
type Receipt struct {
	ID        string    `json:"id"`
	Buyer     string    `json:"buyer"`
	Product   string    `json:"product"`
	Amount    float64   `json:"amount"`
	Signature string    `json:"signature"`
	Timestamp time.Time `json:"timestamp"`
	ImageURL  string    `json:"imageUrl,omitempty"`
}

// Totals are the running dashboard counters.
type Totals struct {
	Sales    int     `json:"sales"`
	Receipts int     `json:"receipts"`
	Volume   float64 `json:"volume"`
}

// Ledger is a mutex-guarded append-only receipt book.
type Ledger struct {
	mu       sync.RWMutex
	receipts []Receipt
	totals   Totals
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append records a confirmed sale and bumps the running totals. The receipt
// id is assigned here.
func (l *Ledger) Append(r Receipt) Receipt {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.receipts = append(l.receipts, r)
	l.totals.Sales++
	l.totals.Receipts++
	l.totals.Volume += r.Amount
	return r
}

// BySignature returns the receipt recorded for a transaction signature.
func (l *Ledger) BySignature(signature string) (Receipt, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.receipts {
		if r.Signature == signature {
			return r, true
		}
	}
	return Receipt{}, false
}

// Snapshot returns a copy of all receipts in append order plus the totals.
func (l *Ledger) Snapshot() ([]Receipt, Totals) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Receipt, len(l.receipts))
	copy(out, l.receipts)
	return out, l.totals
}
