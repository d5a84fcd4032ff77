// Package metrics emits pipeline latency measurements to CloudWatch.
package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"velostream-backend/application/ports"
	appErrors "velostream-backend/pkg/errors"
)

const metricNamespace = "Velostream/DataPipeline"

// cloudwatchAPI is the slice of the CloudWatch client the emitter uses.
type cloudwatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Emitter publishes per-kind pipeline latencies. Metrics are an observation
// aid, not pipeline state, so the emitter sits behind a circuit breaker:
// when CloudWatch degrades we drop measurements instead of slowing every
// invocation down with timed-out calls.
type Emitter struct {
	client  cloudwatchAPI
	env     string
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewEmitter(client *cloudwatch.Client, env string, logger *zap.Logger) *Emitter {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "cloudwatch-metrics",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("metrics circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Emitter{client: client, env: env, breaker: breaker, logger: logger}
}

// PutPipelineTimings publishes the four latency metrics of one record kind.
func (e *Emitter) PutPipelineTimings(ctx context.Context, entity string, t ports.PipelineTimings) error {
	dims := []types.Dimension{
		{Name: aws.String("Env"), Value: aws.String(e.env)},
		{Name: aws.String("Entity"), Value: aws.String(entity)},
	}
	data := []types.MetricDatum{
		datum("TotalPipelineTimeMs", t.TotalPipeline, dims),
		datum("APIToKinesisTimeMs", t.APIToKinesis, dims),
		datum("KinesisToDynamoTimeMs", t.KinesisToDynamo, dims),
		datum("StoreToDynamoLambdaTime", t.LambdaProcessing, dims),
	}

	_, err := e.breaker.Execute(func() (interface{}, error) {
		return e.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(metricNamespace),
			MetricData: data,
		})
	})
	if err != nil {
		return appErrors.NewExternalError("cloudwatch", err)
	}
	return nil
}

func datum(name string, d time.Duration, dims []types.Dimension) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: dims,
		Unit:       types.StandardUnitMilliseconds,
		Value:      aws.Float64(float64(d.Milliseconds())),
	}
}
