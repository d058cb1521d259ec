package ledger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	l := New()

	r := l.Append(Receipt{
		Buyer:     "buyer-address",
		Product:   "Widget",
		Amount:    12,
		Signature: "sig-1",
	})

	assert.NotEmpty(t, r.ID)
	assert.False(t, r.Timestamp.IsZero())
}

func TestTotalsAccumulate(t *testing.T) {
	l := New()
	l.Append(Receipt{Product: "Widget", Amount: 12, Signature: "sig-1"})
	l.Append(Receipt{Product: "Gadget", Amount: 7.5, Signature: "sig-2"})

	receipts, totals := l.Snapshot()
	assert.Len(t, receipts, 2)
	assert.Equal(t, 2, totals.Sales)
	assert.Equal(t, 2, totals.Receipts)
	assert.InDelta(t, 19.5, totals.Volume, 1e-9)
}

func TestBySignature(t *testing.T) {
	l := New()
	l.Append(Receipt{Product: "Widget", Amount: 12, Signature: "sig-1"})

	got, ok := l.BySignature("sig-1")
	require.True(t, ok)
	assert.Equal(t, "Widget", got.Product)

	_, ok = l.BySignature("unknown")
	assert.False(t, ok)
}

func TestSnapshotIsACopy(t *testing.T) {
	l := New()
	l.Append(Receipt{Product: "Widget", Amount: 1, Signature: "sig-1"})

	receipts, _ := l.Snapshot()
	receipts[0].Product = "mutated"

	stored, ok := l.BySignature("sig-1")
	require.True(t, ok)
	assert.Equal(t, "Widget", stored.Product)
}

func TestConcurrentAppend(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.Append(Receipt{Product: "Widget", Amount: 1, Signature: fmt.Sprintf("sig-%d", n)})
		}(i)
	}
	wg.Wait()

	receipts, totals := l.Snapshot()
	assert.Len(t, receipts, 50)
	assert.Equal(t, 50, totals.Sales)
	assert.InDelta(t, 50, totals.Volume, 1e-9)
}
