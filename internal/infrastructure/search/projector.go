package search

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/application/projection"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

type ProjectorConfig struct {
	Name      string
	BatchSize int
	Interval  time.Duration
}

// Projector tails the event store in global sequence order and applies each
// event to a projection store, saving its position after every batch. A crash
// between apply and save replays the batch; the synchronizer skips events a
// row has already seen.
type Projector struct {
	feed        repository.EventFeed
	checkpoints repository.CheckpointStore
	sync        *projection.Synchronizer
	logger      *logrus.Logger
	cfg         ProjectorConfig
}

func NewProjector(feed repository.EventFeed, checkpoints repository.CheckpointStore, sync *projection.Synchronizer, logger *logrus.Logger, cfg ProjectorConfig) *Projector {
	if cfg.Name == "" {
		cfg.Name = "search"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Projector{feed: feed, checkpoints: checkpoints, sync: sync, logger: logger, cfg: cfg}
}

// Run catches up, then polls until ctx is cancelled.
func (p *Projector) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		if _, err := p.CatchUp(ctx); err != nil && ctx.Err() == nil {
			p.logger.WithError(err).WithField("projector", p.cfg.Name).Error("projection catch-up failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// CatchUp applies every event past the checkpoint and returns how many it
// applied.
func (p *Projector) CatchUp(ctx context.Context) (int, error) {
	pos, err := p.checkpoints.Load(ctx, p.cfg.Name)
	if err != nil {
		return 0, fmt.Errorf("load checkpoint %s: %w", p.cfg.Name, err)
	}
	applied := 0
	for {
		batch, err := p.feed.ReadSince(ctx, pos, p.cfg.BatchSize)
		if err != nil {
			return applied, fmt.Errorf("read events after %d: %w", pos, err)
		}
		if len(batch) == 0 {
			return applied, nil
		}
		for _, se := range batch {
			if err := p.sync.Apply(ctx, se.Event); err != nil {
				return applied, err
			}
			pos = se.Seq
			applied++
		}
		if err := p.checkpoints.Save(ctx, p.cfg.Name, pos); err != nil {
			return applied, fmt.Errorf("save checkpoint %s: %w", p.cfg.Name, err)
		}
		p.logger.WithFields(logrus.Fields{
			"projector": p.cfg.Name,
			"position":  pos,
			"events":    len(batch),
		}).Debug("projection advanced")
		if len(batch) < p.cfg.BatchSize {
			return applied, nil
		}
	}
}
