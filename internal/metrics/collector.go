package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/ep9io/ax206dash/internal/model"
)

// Collector polls the source on its own cadence and publishes snapshots to
// the store. It is the only writer; renderers read the store without locks.
type Collector struct {
	src          Source
	store        *model.Store
	logger       *slog.Logger
	interval     time.Duration
	historyDepth int
	histories    map[model.Field]*model.History
}

func NewCollector(src Source, store *model.Store, interval time.Duration, historyDepth int, logger *slog.Logger) *Collector {
	return &Collector{
		src:          src,
		store:        store,
		logger:       logger,
		interval:     interval,
		historyDepth: historyDepth,
		histories:    make(map[model.Field]*model.History),
	}
}

// Run polls until the context is cancelled. Poll errors are partial by
// contract: whatever fields did arrive are published, the rest is logged.
func (c *Collector) Run(ctx context.Context) error {
	c.collect(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

// CollectOnce runs a single poll/publish cycle, for one-shot mode.
func (c *Collector) CollectOnce(ctx context.Context) {
	c.collect(ctx)
}

func (c *Collector) collect(ctx context.Context) {
	samples, err := c.src.Poll(ctx)
	if err != nil {
		c.logger.Warn("metric poll incomplete", "error", err, "fields", len(samples))
	}
	if len(samples) == 0 {
		return
	}
	c.store.Publish(c.buildSnapshot(samples))
}

func (c *Collector) buildSnapshot(samples map[model.Field]model.Sample) *model.Snapshot {
	histories := make(map[model.Field]*model.History, len(c.histories))
	for f, s := range samples {
		if s.Kind == model.KindText {
			continue
		}
		h, ok := c.histories[f]
		if !ok {
			h = model.NewHistory(c.historyDepth)
			c.histories[f] = h
		}
		h.Push(s.Num, s.At)
	}
	// Snapshot histories are clones: the collector keeps pushing into its
	// own rings while renderers iterate the published copies.
	for f, h := range c.histories {
		histories[f] = h.Clone()
	}
	return &model.Snapshot{
		At:        time.Now(),
		Samples:   samples,
		Histories: histories,
	}
}
