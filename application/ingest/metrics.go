package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"velostream-backend/application/ports"
	"velostream-backend/domain/telemetry"
)

// pipelineMetrics derives per-kind pipeline latencies from the timestamps
// each record carries and forwards them to the metrics sink after every
// write flush. Fire-and-forget: a sink failure is logged and processing
// continues.
type pipelineMetrics struct {
	sink       ports.MetricsSink
	logger     *zap.Logger
	batchStart time.Time
	samples    map[string]timingSample
}

// timingSample keeps the last observed ingest timestamps for one kind.
type timingSample struct {
	apiIngest     string
	kinesisIngest string
	dynamoIngest  string
}

func newPipelineMetrics(sink ports.MetricsSink, batchStart time.Time, logger *zap.Logger) *pipelineMetrics {
	return &pipelineMetrics{
		sink:       sink,
		logger:     logger,
		batchStart: batchStart,
		samples:    make(map[string]timingSample),
	}
}

// Observe records the ingest timestamps of one mapped record. Later
// records of the same kind overwrite earlier ones within a flush window.
func (m *pipelineMetrics) Observe(rec telemetry.Record) {
	kind := rec.Attrs["Message"].Value
	if kind == "" {
		return
	}
	m.samples[kind] = timingSample{
		apiIngest:     rec.Attrs["ApiIngestTime"].Value,
		kinesisIngest: rec.Attrs["KinesisAnalyticsIngestTime"].Value,
		dynamoIngest:  rec.Attrs["DynamoIngestTime"].Value,
	}
}

// FlushGroup emits one set of measurements per observed kind and resets
// the window.
func (m *pipelineMetrics) FlushGroup(ctx context.Context, end time.Time) {
	if m.sink == nil {
		m.samples = make(map[string]timingSample)
		return
	}
	for kind, sample := range m.samples {
		timings, err := sample.timings(m.batchStart, end)
		if err != nil {
			m.logger.Debug("skipping pipeline metrics for kind",
				zap.String("entity", kind),
				zap.Error(err),
			)
			continue
		}
		if err := m.sink.PutPipelineTimings(ctx, kind, timings); err != nil {
			m.logger.Error("failed to send pipeline metrics",
				zap.String("entity", kind),
				zap.Error(err),
			)
		}
	}
	m.samples = make(map[string]timingSample)
}

func (s timingSample) timings(start, end time.Time) (ports.PipelineTimings, error) {
	api, err := time.Parse(telemetry.TimestampLayout, s.apiIngest)
	if err != nil {
		return ports.PipelineTimings{}, fmt.Errorf("bad ApiIngestTime %q: %w", s.apiIngest, err)
	}
	kinesis, err := time.Parse(telemetry.TimestampLayout, s.kinesisIngest)
	if err != nil {
		return ports.PipelineTimings{}, fmt.Errorf("bad KinesisAnalyticsIngestTime %q: %w", s.kinesisIngest, err)
	}
	dynamo, err := time.Parse(telemetry.TimestampLayout, s.dynamoIngest)
	if err != nil {
		return ports.PipelineTimings{}, fmt.Errorf("bad DynamoIngestTime %q: %w", s.dynamoIngest, err)
	}
	return ports.PipelineTimings{
		TotalPipeline:    dynamo.Sub(api),
		APIToKinesis:     kinesis.Sub(api),
		KinesisToDynamo:  dynamo.Sub(kinesis),
		LambdaProcessing: end.Sub(start),
	}, nil
}
