// Package ports declares the storage and sink contracts the ingestion
// engine consumes. Implementations live in infrastructure; the engine only
// sees these interfaces so every component is testable with mocks.
package ports

import (
	"context"
	"errors"
	"time"

	"velostream-backend/domain/telemetry"
)

// BatchPutLimit is the store-imposed ceiling on records per batched write.
const BatchPutLimit = 25

// ErrTransitionGuarded is returned by UpdateRaceStatus when the guarded
// transition was rejected because the race already moved past the
// requested status. Callers treat it as a no-op, not a failure.
var ErrTransitionGuarded = errors.New("race status transition rejected by guard")

// TelemetryRepository persists telemetry records and derived aggregates in
// the live table.
type TelemetryRepository interface {
	// BatchPut writes up to BatchPutLimit records in one round trip and
	// returns the records the store reported as unprocessed. An error means
	// the batched call itself failed and nothing can be assumed written.
	BatchPut(ctx context.Context, recs []telemetry.Record) ([]telemetry.Record, error)

	// Put writes a single record.
	Put(ctx context.Context, rec telemetry.Record) error

	// ApplyUpdate applies one update with the given bounded retry budget.
	ApplyUpdate(ctx context.Context, spec telemetry.UpdateSpec, retries int) error

	// TransactUpdates applies all updates atomically. The store rejects
	// groups that address the same key twice; callers collapse first.
	TransactUpdates(ctx context.Context, specs []telemetry.UpdateSpec) error

	// LatestAggregates returns every rider latest-state record of a race.
	LatestAggregates(ctx context.Context, raceID string) ([]telemetry.RiderAggregate, error)

	// PersonalBests returns every personal-best sample of a race.
	PersonalBests(ctx context.Context, raceID string) ([]telemetry.PersonalBestSample, error)

	// PutRaceAggregate stores the race-level reduction.
	PutRaceAggregate(ctx context.Context, agg telemetry.RaceAggregate) error
}

// RaceDirectory reads and advances the externally created race records and
// reads the rider baselines in the static table.
type RaceDirectory interface {
	// UpdateRaceStatus moves a race to the given status with a bounded
	// retry budget. With guardForward set, the update carries a condition
	// that the race is not already FINISHED and ErrTransitionGuarded is
	// returned when that condition fails.
	UpdateRaceStatus(ctx context.Context, eventID, raceID string, status telemetry.RaceStatus, guardForward bool) error

	// Race fetches the static race record.
	Race(ctx context.Context, eventID, raceID string) (telemetry.RaceInfo, error)

	// RiderBaseline fetches a rider's pre-season thresholds.
	RiderBaseline(ctx context.Context, uciID string) (telemetry.RiderBaseline, error)
}

// PipelineTimings are the per-kind latencies derived from the timestamps
// each record carries through the pipeline.
type PipelineTimings struct {
	TotalPipeline    time.Duration
	APIToKinesis     time.Duration
	KinesisToDynamo  time.Duration
	LambdaProcessing time.Duration
}

// MetricsSink receives pipeline latency measurements. Fire-and-forget:
// callers log failures and move on.
type MetricsSink interface {
	PutPipelineTimings(ctx context.Context, entity string, t PipelineTimings) error
}

// MailSink sends one plain-text notification. Failures are logged, never
// retried.
type MailSink interface {
	Send(ctx context.Context, subject, body string) error
}

// StatusPublisher announces race lifecycle transitions to downstream
// dashboard consumers. Best-effort.
type StatusPublisher interface {
	PublishStatusChange(ctx context.Context, d telemetry.Details, status telemetry.RaceStatus) error
}
