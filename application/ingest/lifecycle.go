package ingest

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"velostream-backend/application/ports"
	"velostream-backend/domain/telemetry"
)

// LifecycleController reacts to race control events by advancing the race
// status and, on completion, triggering the race-level aggregate and the
// personal-best notification. Status transitions are the primary effect;
// the derived computations are best-effort and never block them.
type LifecycleController struct {
	directory ports.RaceDirectory
	stats     *RaceStatsComputer
	notifier  *PersonalBestNotifier
	publisher ports.StatusPublisher
	logger    *zap.Logger
}

// NewLifecycleController creates a LifecycleController. publisher may be
// nil when status-change events are disabled.
func NewLifecycleController(
	directory ports.RaceDirectory,
	stats *RaceStatsComputer,
	notifier *PersonalBestNotifier,
	publisher ports.StatusPublisher,
	logger *zap.Logger,
) *LifecycleController {
	return &LifecycleController{
		directory: directory,
		stats:     stats,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
	}
}

// RaceLive moves the race to LIVE. The transition is guarded: a race that
// already finished stays FINISHED, a late RaceStartLive is ignored.
func (c *LifecycleController) RaceLive(ctx context.Context, d telemetry.Details) {
	err := c.directory.UpdateRaceStatus(ctx, d.EventID, d.RaceID, telemetry.StatusLive, true)
	if errors.Is(err, ports.ErrTransitionGuarded) {
		c.logger.Warn("ignoring RaceStartLive for a finished race",
			zap.String("raceID", d.RaceID),
		)
		return
	}
	if err != nil {
		c.logger.Error("failed to set race status to LIVE",
			zap.String("raceID", d.RaceID),
			zap.Error(err),
		)
		return
	}
	c.publish(ctx, d, telemetry.StatusLive)
}

// RaceFinished computes and stores the race aggregates, then flips the
// status to FINISHED, then sends the personal-best notification. The
// ordering matters: consumers treat FINISHED as the signal that aggregates
// are ready. FinishTime does not require the race to have been LIVE.
func (c *LifecycleController) RaceFinished(ctx context.Context, d telemetry.Details) {
	if err := c.stats.ComputeAndStore(ctx, d.RaceID); err != nil {
		c.logger.Error("failed to compute race level aggregates",
			zap.String("raceID", d.RaceID),
			zap.Error(err),
		)
	}

	c.logger.Info("updating race status to FINISHED", zap.String("raceID", d.RaceID))
	if err := c.directory.UpdateRaceStatus(ctx, d.EventID, d.RaceID, telemetry.StatusFinished, false); err != nil {
		c.logger.Error("failed to set race status to FINISHED",
			zap.String("raceID", d.RaceID),
			zap.Error(err),
		)
	} else {
		c.publish(ctx, d, telemetry.StatusFinished)
	}

	if err := c.notifier.Notify(ctx, d); err != nil {
		c.logger.Error("failed to send personal best notification",
			zap.String("raceID", d.RaceID),
			zap.Error(err),
		)
	}
}

func (c *LifecycleController) publish(ctx context.Context, d telemetry.Details, status telemetry.RaceStatus) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishStatusChange(ctx, d, status); err != nil {
		c.logger.Error("failed to publish race status change",
			zap.String("raceID", d.RaceID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}
