package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

type DispatcherConfig struct {
	BatchSize   int
	MaxAttempts int
	Interval    time.Duration
	Concurrency int
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
	return c
}

// Dispatcher moves outbox rows to a Transport. Messages of one aggregate are
// sent in outbox order, one at a time; different aggregates are sent
// concurrently.
type Dispatcher struct {
	relay     repository.OutboxRelay
	transport Transport
	logger    *logrus.Logger
	cfg       DispatcherConfig
}

func NewDispatcher(relay repository.OutboxRelay, transport Transport, logger *logrus.Logger, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{relay: relay, transport: transport, logger: logger, cfg: cfg.withDefaults()}
}

// Run polls until ctx is cancelled. A full batch triggers an immediate
// follow-up poll.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	for {
		n, err := d.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			d.logger.WithError(err).Error("outbox relay failed")
		}
		if err == nil && n >= d.cfg.BatchSize {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce relays one batch and returns the number of delivered messages.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	return d.relay.Relay(ctx, d.cfg.BatchSize, d.cfg.MaxAttempts, d.deliver)
}

func (d *Dispatcher) deliver(ctx context.Context, batch []repository.OutboxMessage) map[uuid.UUID]error {
	var (
		mu      sync.Mutex
		results = make(map[uuid.UUID]error, len(batch))
	)
	record := func(id uuid.UUID, err error) {
		mu.Lock()
		results[id] = err
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)
	for _, group := range groupByAggregate(batch) {
		g.Go(func() error {
			var failed error
			for _, m := range group {
				if failed != nil {
					// not attempted: the row keeps its attempt count
					continue
				}
				if err := d.transport.Send(gctx, m); err != nil {
					failed = err
					record(m.ID, err)
					d.logger.WithFields(logrus.Fields{
						"message_id":     m.ID,
						"aggregate_id":   m.AggregateID,
						"event_type":     m.EventType,
						"correlation_id": m.CorrelationID,
						"attempt":        m.Attempts + 1,
					}).WithError(err).Warn("outbox delivery failed")
					continue
				}
				record(m.ID, nil)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// groupByAggregate splits a batch into per-aggregate slices, preserving the
// batch order inside each slice and the order of first appearance across them.
func groupByAggregate(batch []repository.OutboxMessage) [][]repository.OutboxMessage {
	index := make(map[uuid.UUID]int)
	var groups [][]repository.OutboxMessage
	for _, m := range batch {
		i, ok := index[m.AggregateID]
		if !ok {
			i = len(groups)
			index[m.AggregateID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], m)
	}
	return groups
}
