package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	awsses "github.com/aws/aws-sdk-go-v2/service/ses"
	"go.uber.org/zap"

	"velostream-backend/application/ingest"
	"velostream-backend/application/ports"
	"velostream-backend/infrastructure/config"
	"velostream-backend/infrastructure/mail"
	"velostream-backend/infrastructure/messaging/eventbridge"
	"velostream-backend/infrastructure/metrics"
	"velostream-backend/infrastructure/persistence/dynamodb"
	"velostream-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Processor *ingest.Processor
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = level
	}
	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideSESClient creates an SES client
func ProvideSESClient(awsCfg aws.Config) *awsses.Client {
	return awsses.NewFromConfig(awsCfg)
}

// ProvideTracer creates the segment tracer
func ProvideTracer() *observability.Tracer {
	return observability.NewTracer("velostream-ingest")
}

// ProvideTelemetryRepository creates the live-table repository
func ProvideTelemetryRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.TelemetryRepository {
	return dynamodb.NewTelemetryRepository(client, cfg.LiveTable, cfg.PersonalBestIndex, logger)
}

// ProvideRaceDirectory creates the static-table directory
func ProvideRaceDirectory(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.RaceDirectory {
	return dynamodb.NewRaceDirectory(client, cfg.StaticTable, logger)
}

// ProvideMetricsSink creates the pipeline latency emitter
func ProvideMetricsSink(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) ports.MetricsSink {
	return metrics.NewEmitter(client, cfg.Environment, logger)
}

// ProvideMailSink creates the notification sender, or a log-only stand-in
// when no recipient is configured
func ProvideMailSink(client *awsses.Client, cfg *config.Config, logger *zap.Logger) ports.MailSink {
	if !cfg.NotificationsEnabled() {
		return mail.NewLogSender(logger)
	}
	return mail.NewSender(client, cfg.NotificationSender, cfg.NotificationRecipient, cfg.NotificationCC, logger)
}

// ProvideStatusPublisher creates the lifecycle event publisher, or nil
// when no event bus is configured
func ProvideStatusPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.StatusPublisher {
	if !cfg.StatusEventsEnabled() {
		return nil
	}
	return eventbridge.NewStatusPublisher(client, cfg.EventBusName, logger)
}

// ProvideRaceStatsComputer creates the race aggregate reducer
func ProvideRaceStatsComputer(repo ports.TelemetryRepository, logger *zap.Logger) *ingest.RaceStatsComputer {
	return ingest.NewRaceStatsComputer(repo, logger)
}

// ProvidePersonalBestNotifier creates the personal-best notifier
func ProvidePersonalBestNotifier(
	repo ports.TelemetryRepository,
	directory ports.RaceDirectory,
	mailSink ports.MailSink,
	cfg *config.Config,
	logger *zap.Logger,
) *ingest.PersonalBestNotifier {
	return ingest.NewPersonalBestNotifier(repo, directory, mailSink, cfg.Environment, logger)
}

// ProvideLifecycleController creates the race lifecycle controller
func ProvideLifecycleController(
	directory ports.RaceDirectory,
	stats *ingest.RaceStatsComputer,
	notifier *ingest.PersonalBestNotifier,
	publisher ports.StatusPublisher,
	logger *zap.Logger,
) *ingest.LifecycleController {
	return ingest.NewLifecycleController(directory, stats, notifier, publisher, logger)
}

// ProvideProcessor creates the batch processor
func ProvideProcessor(
	repo ports.TelemetryRepository,
	lifecycle *ingest.LifecycleController,
	metricsSink ports.MetricsSink,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *ingest.Processor {
	return ingest.NewProcessor(repo, lifecycle, metricsSink, tracer, logger)
}
