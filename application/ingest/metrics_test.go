package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"velostream-backend/application/ports"
	"velostream-backend/domain/telemetry"
)

func timedRecord(kind, api, kinesis, dynamo string) telemetry.Record {
	return telemetry.Record{
		Attrs: map[string]telemetry.Attr{
			"Message":                    telemetry.S(kind),
			"ApiIngestTime":              telemetry.S(api),
			"KinesisAnalyticsIngestTime": telemetry.S(kinesis),
			"DynamoIngestTime":           telemetry.S(dynamo),
		},
	}
}

func TestPipelineMetrics_EmitsPerKindTimings(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sink := new(MockMetricsSink)
	start := time.Date(2021, 8, 11, 9, 52, 43, 0, time.UTC)
	metrics := newPipelineMetrics(sink, start, zap.NewNop())

	metrics.Observe(timedRecord("LiveRidersData",
		"2021-08-11 09:52:42.000",
		"2021-08-11 09:52:42.250",
		"2021-08-11 09:52:43.000",
	))
	sink.On("PutPipelineTimings", ctx, "LiveRidersData", ports.PipelineTimings{
		TotalPipeline:    time.Second,
		APIToKinesis:     250 * time.Millisecond,
		KinesisToDynamo:  750 * time.Millisecond,
		LambdaProcessing: 400 * time.Millisecond,
	}).Return(nil).Once()

	// Act
	metrics.FlushGroup(ctx, start.Add(400*time.Millisecond))

	// Assert
	sink.AssertExpectations(t)
}

func TestPipelineMetrics_LastSamplePerKindWins(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sink := new(MockMetricsSink)
	start := time.Now()
	metrics := newPipelineMetrics(sink, start, zap.NewNop())

	metrics.Observe(timedRecord("LiveRidersData",
		"2021-08-11 09:52:41.000", "2021-08-11 09:52:41.100", "2021-08-11 09:52:41.500"))
	metrics.Observe(timedRecord("LiveRidersData",
		"2021-08-11 09:52:42.000", "2021-08-11 09:52:42.250", "2021-08-11 09:52:43.000"))

	sink.On("PutPipelineTimings", ctx, "LiveRidersData", mock.MatchedBy(func(tm ports.PipelineTimings) bool {
		return tm.TotalPipeline == time.Second
	})).Return(nil).Once()

	// Act
	metrics.FlushGroup(ctx, start)

	// Assert
	sink.AssertExpectations(t)
	require.Empty(t, metrics.samples)
}

func TestPipelineMetrics_UnparsableTimestampsAreSkipped(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sink := new(MockMetricsSink)
	metrics := newPipelineMetrics(sink, time.Now(), zap.NewNop())

	metrics.Observe(timedRecord("LiveRidersData", "", "", "2021-08-11 09:52:43.000"))

	// Act
	metrics.FlushGroup(ctx, time.Now())

	// Assert
	sink.AssertNotCalled(t, "PutPipelineTimings", mock.Anything, mock.Anything, mock.Anything)
}
