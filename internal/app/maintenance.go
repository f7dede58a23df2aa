package app

import (
	"context"
	"time"

	"github.com/vk/imgboot/internal/ctxlog"
	"github.com/vk/imgboot/internal/managers"
	"github.com/vk/imgboot/internal/registry"
)

// Names of the maintenance tasks, as they appear in failure reports.
const (
	TaskPerfSampler = "perf-sampler"
	TaskPoolPruner  = "pool-pruner"
)

// sampleMark is the perfmon span restarted on every sampler tick.
const sampleMark = "sample"

// maintain starts the periodic upkeep of the managers that need it. The
// loops run through the failure channel until ctx is done. Managers missing
// from the registry are skipped.
func (b *Bootstrapper) maintain(ctx context.Context, run *Run) {
	logger := ctxlog.FromContext(ctx)

	if m, err := registry.Lookup[*managers.PerfMonitor](run.Registry, ManagerPerfMon); err == nil {
		m.Mark(sampleMark)
		run.Channel.Go(ctx, TaskPerfSampler, every(run.Config.Performance.SampleInterval, func(ctx context.Context) error {
			if sample, ok := m.Lap(sampleMark); ok {
				ctxlog.FromContext(ctx).Debug("Performance sampled.", "interval", sample.Duration)
			}
			return nil
		}))
		logger.Debug("Performance sampler started.", "interval", run.Config.Performance.SampleInterval)
	}

	if p, err := registry.Lookup[*managers.Pool](run.Registry, ManagerPool); err == nil {
		ttl := run.Config.Pool.IdleTTL
		run.Channel.Go(ctx, TaskPoolPruner, every(ttl, func(ctx context.Context) error {
			if n := p.Prune(ttl); n > 0 {
				ctxlog.FromContext(ctx).Debug("Idle buffers pruned.", "dropped", n)
			}
			return nil
		}))
		logger.Debug("Pool pruner started.", "idle_ttl", ttl)
	}
}

// every returns a task calling tick once per interval until ctx is done or
// tick fails.
func every(interval time.Duration, tick func(ctx context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := tick(ctx); err != nil {
					return err
				}
			}
		}
	}
}
