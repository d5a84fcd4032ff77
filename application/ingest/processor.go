// Package ingest implements the stream-batch ingestion engine: it decodes
// each delivered record, maps it to its storage key and attributes, writes
// batches with bounded retry and partial-failure recovery, maintains the
// per-(race, rider) latest-state projection, and drives the race lifecycle.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"velostream-backend/application/ports"
	"velostream-backend/domain/telemetry"
	"velostream-backend/interfaces/stream"
	appErrors "velostream-backend/pkg/errors"
	"velostream-backend/pkg/observability"
)

const (
	// recordRetryLimit bounds upstream redelivery: once the runtime's
	// retry hint passes it, a persistently failing record is acknowledged
	// and dropped instead of being redelivered forever.
	// TODO: route such records to a dead-letter stream once one exists.
	recordRetryLimit = 2

	// putRetries bounds the per-record fallback writes.
	putRetries = 3

	// updateRetries bounds single-item update attempts.
	updateRetries = 3
)

// Processor consumes one bounded batch of transport-encoded records per
// invocation. Single logical thread of control: all grouping is a store
// round-trip optimization, never concurrency.
type Processor struct {
	repo      ports.TelemetryRepository
	lifecycle *LifecycleController
	metrics   ports.MetricsSink
	tracer    *observability.Tracer
	logger    *zap.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(
	repo ports.TelemetryRepository,
	lifecycle *LifecycleController,
	metrics ports.MetricsSink,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		repo:      repo,
		lifecycle: lifecycle,
		metrics:   metrics,
		tracer:    tracer,
		logger:    logger,
	}
}

// pendingRecord ties a mapped storage record back to the input record it
// came from, for status reporting and the give-up decision.
type pendingRecord struct {
	recordID  string
	retryHint int
	rec       telemetry.Record
}

// HandleBatch processes the delivered batch to completion and returns one
// terminal status per input record. Only a store subsystem that failed
// every write of the invocation makes the batch itself fail; every other
// error is contained per record or per side computation.
func (p *Processor) HandleBatch(ctx context.Context, ev stream.DeliveryEvent) (stream.DeliveryResponse, error) {
	correlationID := ev.InvocationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := p.logger.With(zap.String("invocationID", correlationID))
	logger.Info("processing telemetry batch", zap.Int("records", len(ev.Records)))

	batchStart := time.Now()
	metrics := newPipelineMetrics(p.metrics, batchStart, logger)
	updater := newAggregateUpdater(p.repo, logger)

	var (
		results        []stream.ResponseRecord
		group          []pendingRecord
		writesAttempts int
		writeSucceeded bool
	)

	for i, record := range ev.Records {
		var mapped *telemetry.Record
		env, err := telemetry.Decode(record.Data)
		if err != nil {
			// A malformed record never enters the write pipeline;
			// acknowledge it so the runtime does not redeliver garbage.
			logger.Error("failed to decode record, skipping",
				zap.String("recordID", record.RecordID),
				zap.Error(appErrors.NewDecodeError("undecodable stream payload", err)),
			)
			results = append(results, stream.ResponseRecord{RecordID: record.RecordID, Result: stream.ResultOK})
		} else if rec, ok := telemetry.MapRecord(env, time.Now()); !ok {
			logger.Warn("unrecognized message kind, skipping",
				zap.String("recordID", record.RecordID),
				zap.Error(appErrors.NewMappingError(fmt.Sprintf("no schema for message kind %q", env.RawKind))),
			)
			results = append(results, stream.ResponseRecord{RecordID: record.RecordID, Result: stream.ResultOK})
		} else {
			mapped = &rec
			group = append(group, pendingRecord{
				recordID:  record.RecordID,
				retryHint: record.Metadata.RetryHint,
				rec:       rec,
			})
			metrics.Observe(rec)
		}

		if len(group) == ports.BatchPutLimit || i == len(ev.Records)-1 {
			if len(group) > 0 {
				statuses, succeeded := p.flushGroup(ctx, group, logger)
				results = append(results, statuses...)
				metrics.FlushGroup(ctx, time.Now())
				writesAttempts++
				writeSucceeded = writeSucceeded || succeeded
				group = nil
			}
		}

		if err == nil {
			p.react(ctx, env, mapped, updater)
		}
	}

	updater.Flush(ctx)

	if writesAttempts > 0 && !writeSucceeded {
		return stream.DeliveryResponse{}, fmt.Errorf("store rejected every write of the batch, failing invocation for redelivery")
	}

	logger.Info("telemetry batch processed",
		zap.Int("records", len(ev.Records)),
		zap.Duration("took", time.Since(batchStart)),
	)
	return stream.DeliveryResponse{Records: results}, nil
}

// react runs the side computations of one decoded record: latest-aggregate
// maintenance for the aggregate kinds and lifecycle transitions for the
// race control kinds.
func (p *Processor) react(ctx context.Context, env *telemetry.Envelope, mapped *telemetry.Record, updater *aggregateUpdater) {
	d := env.Details()
	switch {
	case d.Kind.IsAggregate():
		if mapped != nil {
			updater.Observe(ctx, d.Kind, *mapped)
		}
	case d.Kind == telemetry.KindRaceStartLive:
		p.lifecycle.RaceLive(ctx, d)
	case d.Kind == telemetry.KindFinishTime:
		// Aggregates must see every update observed so far before the
		// race-level reduction runs.
		updater.Flush(ctx)
		p.lifecycle.RaceFinished(ctx, d)
	}
}

// flushGroup durably persists one group of mapped records and returns one
// terminal status per group member plus whether any write went through.
func (p *Processor) flushGroup(ctx context.Context, group []pendingRecord, logger *zap.Logger) ([]stream.ResponseRecord, bool) {
	distinct := dedupeLastWins(group)
	logger.Debug("flushing record group",
		zap.Int("records", len(group)),
		zap.Int("distinct", len(distinct)),
	)

	var unprocessed []telemetry.Record
	err := p.tracer.Capture(ctx, "BatchPut", func(ctx context.Context) error {
		var batchErr error
		unprocessed, batchErr = p.repo.BatchPut(ctx, distinct)
		return batchErr
	})
	if err != nil {
		logger.Error("batched write failed, writing records one by one", zap.Error(err))
		return p.fallbackIndividually(ctx, group, logger)
	}

	failed := make(map[telemetry.Key]bool)
	if len(unprocessed) > 0 {
		logger.Warn("store reported unprocessed records, retrying once",
			zap.Int("unprocessed", len(unprocessed)),
		)
		retryLeft, retryErr := p.repo.BatchPut(ctx, unprocessed)
		switch {
		case retryErr != nil:
			logger.Error("unprocessed-record retry failed", zap.Error(retryErr))
			for _, rec := range unprocessed {
				failed[rec.Key] = true
			}
		case len(retryLeft) > 0:
			for _, rec := range retryLeft {
				failed[rec.Key] = true
			}
		}
	}

	statuses := make([]stream.ResponseRecord, 0, len(group))
	succeeded := false
	for _, pr := range group {
		if !failed[pr.rec.Key] {
			statuses = append(statuses, stream.ResponseRecord{RecordID: pr.recordID, Result: stream.ResultOK})
			succeeded = true
			continue
		}
		statuses = append(statuses, p.writeIndividually(ctx, pr, logger, &succeeded))
	}
	return statuses, succeeded
}

// fallbackIndividually writes every group member on its own after the
// batched call itself failed.
func (p *Processor) fallbackIndividually(ctx context.Context, group []pendingRecord, logger *zap.Logger) ([]stream.ResponseRecord, bool) {
	statuses := make([]stream.ResponseRecord, 0, len(group))
	succeeded := false
	for _, pr := range group {
		statuses = append(statuses, p.writeIndividually(ctx, pr, logger, &succeeded))
	}
	return statuses, succeeded
}

// writeIndividually writes one record with a bounded retry budget and
// decides its terminal status. A record that exhausts both its write
// budget and the runtime's redelivery budget is acknowledged and dropped
// so it cannot be redelivered forever.
func (p *Processor) writeIndividually(ctx context.Context, pr pendingRecord, logger *zap.Logger, succeeded *bool) stream.ResponseRecord {
	var err error
	for attempt := 1; attempt <= putRetries; attempt++ {
		if err = p.repo.Put(ctx, pr.rec); err == nil {
			*succeeded = true
			return stream.ResponseRecord{RecordID: pr.recordID, Result: stream.ResultOK}
		}
		logger.Warn("single-record write failed",
			zap.String("recordID", pr.recordID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	if pr.retryHint > recordRetryLimit {
		logger.Error("dropping record after exhausted redeliveries",
			zap.String("recordID", pr.recordID),
			zap.Int("retryHint", pr.retryHint),
			zap.Error(err),
		)
		return stream.ResponseRecord{RecordID: pr.recordID, Result: stream.ResultOK}
	}
	return stream.ResponseRecord{RecordID: pr.recordID, Result: stream.ResultDeliveryFailed}
}

// dedupeLastWins keeps only the last record per storage key. Within one
// group a redelivered or duplicated event would otherwise make the store
// reject the whole batched write.
func dedupeLastWins(group []pendingRecord) []telemetry.Record {
	index := make(map[telemetry.Key]int, len(group))
	out := make([]telemetry.Record, 0, len(group))
	for _, pr := range group {
		if i, seen := index[pr.rec.Key]; seen {
			out[i] = pr.rec
			continue
		}
		index[pr.rec.Key] = len(out)
		out = append(out, pr.rec)
	}
	return out
}
