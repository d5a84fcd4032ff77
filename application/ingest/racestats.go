package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"velostream-backend/application/ports"
	"velostream-backend/domain/telemetry"
)

// RaceStatsComputer reduces the rider latest-state records of a finished
// race into the single race-level aggregate record.
type RaceStatsComputer struct {
	repo   ports.TelemetryRepository
	logger *zap.Logger
}

// NewRaceStatsComputer creates a RaceStatsComputer.
func NewRaceStatsComputer(repo ports.TelemetryRepository, logger *zap.Logger) *RaceStatsComputer {
	return &RaceStatsComputer{repo: repo, logger: logger}
}

// ComputeAndStore queries every latest-state record of the race, reduces
// them in one pass and stores the race-level aggregate. Finding no records
// is an error: the live stream should have produced aggregates by the time
// the race finishes.
func (c *RaceStatsComputer) ComputeAndStore(ctx context.Context, raceID string) error {
	riders, err := c.repo.LatestAggregates(ctx, raceID)
	if err != nil {
		return fmt.Errorf("failed to query latest aggregates: %w", err)
	}
	if len(riders) == 0 {
		return fmt.Errorf("no aggregate data found for race %s, check the live data stream", raceID)
	}

	agg := ReduceRiderAggregates(raceID, riders)
	c.logger.Debug("computed race aggregates",
		zap.String("raceID", raceID),
		zap.Int("riders", len(riders)),
	)

	if err := c.repo.PutRaceAggregate(ctx, agg); err != nil {
		return fmt.Errorf("failed to store race aggregate: %w", err)
	}
	return nil
}

// ReduceRiderAggregates tracks, independently per metric, the maximum
// value seen and the rider that produced it. Comparison is strict, so ties
// keep the first-seen maximum; metrics absent from every rider stay nil.
func ReduceRiderAggregates(raceID string, riders []telemetry.RiderAggregate) telemetry.RaceAggregate {
	agg := telemetry.RaceAggregate{RaceID: raceID}
	for _, r := range riders {
		agg.MaxCadency = higher(agg.MaxCadency, r.UCIID, r.MaxCadency)
		agg.MaxHeartrate = higher(agg.MaxHeartrate, r.UCIID, r.MaxHeartrate)
		agg.MaxPower = higher(agg.MaxPower, r.UCIID, r.MaxPower)
		agg.MaxSpeed = higher(agg.MaxSpeed, r.UCIID, r.MaxSpeed)
	}
	return agg
}

func higher(current *telemetry.MetricMax, uciID string, value *float64) *telemetry.MetricMax {
	if value == nil {
		return current
	}
	if current == nil {
		if *value > 0 {
			return &telemetry.MetricMax{UCIID: uciID, Value: *value}
		}
		return nil
	}
	if *value > current.Value {
		return &telemetry.MetricMax{UCIID: uciID, Value: *value}
	}
	return current
}
