package chain

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solcheckout/internal/observability"
)

// Selector picks a live RPC endpoint from an ordered candidate list and
// memoizes it. The cache holds at most one connection; any probe failure
// empties it. Concurrent callers may race on the slot, which at worst costs
// duplicate probing, never a wrong result.
type Selector struct {
	endpoints []string
	dial      Dialer
	log       *zap.Logger
	metrics   *observability.Metrics

	mu     sync.Mutex
	cached *Conn
}

// NewSelector creates a Selector over the given candidate endpoints.
// Insertion order is the trial priority order.
func NewSelector(endpoints []string, dial Dialer, log *zap.Logger, m *observability.Metrics) *Selector {
	return &Selector{
		endpoints: endpoints,
		dial:      dial,
		log:       log,
		metrics:   m,
	}
}

// Acquire returns a verified connection, reusing the cached one when its
// liveness probe still passes. Every call re-probes: the latency buys
// resilience to endpoints that degrade silently.
func (s *Selector) Acquire(ctx context.Context) (*Conn, error) {
	if conn := s.current(); conn != nil {
		start := time.Now()
		_, err := conn.Client.GetBlockHeight(ctx, probeCommitment)
		s.metrics.RPCCallLatency.WithLabelValues("getBlockHeight").Observe(time.Since(start).Seconds())
		if err == nil {
			s.metrics.EndpointCacheHits.Inc()
			return conn, nil
		}
		s.log.Warn("cached endpoint failed liveness probe, reselecting",
			zap.String("endpoint", conn.Endpoint))
		s.metrics.ProbeFailures.WithLabelValues(conn.Endpoint).Inc()
		s.invalidateIf(conn)
	}
	return s.selectEndpoint(ctx)
}

// Invalidate empties the cache slot so the next Acquire runs a full
// selection pass.
func (s *Selector) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// selectEndpoint walks the candidate list in order and returns the first
// endpoint that passes both liveness probes. The two probes run
// concurrently and must both succeed.
func (s *Selector) selectEndpoint(ctx context.Context) (*Conn, error) {
	s.metrics.EndpointSelections.Inc()

	for _, endpoint := range s.endpoints {
		client := s.dial(endpoint)

		g, probeCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			start := time.Now()
			_, err := client.GetBlockHeight(probeCtx, probeCommitment)
			s.metrics.RPCCallLatency.WithLabelValues("getBlockHeight").Observe(time.Since(start).Seconds())
			return err
		})
		g.Go(func() error {
			start := time.Now()
			_, err := client.GetVersion(probeCtx)
			s.metrics.RPCCallLatency.WithLabelValues("getVersion").Observe(time.Since(start).Seconds())
			return err
		})
		if err := g.Wait(); err != nil {
			s.log.Warn("endpoint failed probes, trying next candidate",
				zap.String("endpoint", endpoint), zap.Error(err))
			s.metrics.ProbeFailures.WithLabelValues(endpoint).Inc()
			continue
		}

		conn := &Conn{Client: client, Endpoint: endpoint}
		s.mu.Lock()
		s.cached = conn
		s.mu.Unlock()
		s.log.Info("selected rpc endpoint", zap.String("endpoint", endpoint))
		return conn, nil
	}

	s.metrics.NoEndpointErrors.Inc()
	return nil, ErrNoEndpoint
}

func (s *Selector) current() *Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached
}

// invalidateIf clears the slot only when it still holds the given
// connection, so a concurrent reselection is not thrown away.
func (s *Selector) invalidateIf(conn *Conn) {
	s.mu.Lock()
	if s.cached == conn {
		s.cached = nil
	}
	s.mu.Unlock()
}
