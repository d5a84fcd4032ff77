package ingest

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"velostream-backend/application/ports"
	"velostream-backend/domain/telemetry"
)

// aggregateUpdater maintains the per-(race, rider) latest-state projection.
// Updates are grouped per aggregate kind into transactional batches of up
// to ports.BatchPutLimit; a group is flushed when full and any leftovers at
// the end of the input batch. Lives for one invocation.
type aggregateUpdater struct {
	repo    ports.TelemetryRepository
	logger  *zap.Logger
	pending map[telemetry.Kind][]telemetry.UpdateSpec
}

func newAggregateUpdater(repo ports.TelemetryRepository, logger *zap.Logger) *aggregateUpdater {
	return &aggregateUpdater{
		repo:    repo,
		logger:  logger,
		pending: make(map[telemetry.Kind][]telemetry.UpdateSpec),
	}
}

// Observe derives the latest-state update from one mapped aggregate record
// and queues it, flushing the kind's group when it reaches the store limit.
func (u *aggregateUpdater) Observe(ctx context.Context, kind telemetry.Kind, rec telemetry.Record) {
	spec, ok := telemetry.LatestUpdate(rec)
	if !ok {
		u.logger.Warn("aggregate record lacks race or rider identity, skipping latest update",
			zap.String("kind", kind.String()),
			zap.String("sk", rec.Key.SK),
		)
		return
	}
	u.pending[kind] = append(u.pending[kind], spec)
	if len(u.pending[kind]) == ports.BatchPutLimit {
		u.flush(ctx, kind)
	}
}

// Flush applies every remaining partial group.
func (u *aggregateUpdater) Flush(ctx context.Context) {
	for kind := range u.pending {
		if len(u.pending[kind]) > 0 {
			u.flush(ctx, kind)
		}
	}
}

func (u *aggregateUpdater) flush(ctx context.Context, kind telemetry.Kind) {
	specs := collapseUpdates(u.pending[kind])
	u.pending[kind] = nil

	u.logger.Debug("applying latest-aggregate updates",
		zap.String("kind", kind.String()),
		zap.Int("updates", len(specs)),
	)

	err := u.repo.TransactUpdates(ctx, specs)
	if err == nil {
		return
	}
	u.logger.Error("failed to apply latest-aggregate updates transactionally, falling back to single updates",
		zap.String("kind", kind.String()),
		zap.Error(err),
	)

	for _, spec := range specs {
		if err := u.repo.ApplyUpdate(ctx, spec, updateRetries); err != nil {
			u.logger.Error("failed to apply latest-aggregate update",
				zap.String("sk", spec.Key.SK),
				zap.Error(err),
			)
		}
	}
}

// collapseUpdates orders a group by sort key and merges updates addressed
// at the same key into one, later assignments winning per field. The
// transactional write forbids acting on the same key twice in one call.
func collapseUpdates(specs []telemetry.UpdateSpec) []telemetry.UpdateSpec {
	ordered := make([]telemetry.UpdateSpec, len(specs))
	copy(ordered, specs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Key.SK < ordered[j].Key.SK
	})

	index := make(map[telemetry.Key]int, len(ordered))
	out := make([]telemetry.UpdateSpec, 0, len(ordered))
	for _, spec := range ordered {
		if i, seen := index[spec.Key]; seen {
			out[i] = out[i].Merge(spec)
			continue
		}
		index[spec.Key] = len(out)
		out = append(out, spec)
	}
	return out
}
