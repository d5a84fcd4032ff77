package main

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"velostream-backend/infrastructure/config"
	"velostream-backend/infrastructure/di"
	"velostream-backend/interfaces/stream"
)

// Global variables for Lambda lifecycle management
var (
	// container holds the dependency injection container
	container *di.Container

	// coldStartTime records when the cold start began
	coldStartTime time.Time
)

// init runs during cold start
func init() {
	coldStartTime = time.Now()
	log.Println("Lambda cold start initiated")

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	container.Logger.Info("Lambda cold start completed",
		zap.Duration("duration", time.Since(coldStartTime)),
		zap.String("environment", cfg.Environment),
	)
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, ev stream.DeliveryEvent) (stream.DeliveryResponse, error) {
	container.Logger.Debug("delivery batch received",
		zap.String("invocation_id", ev.InvocationID),
		zap.Int("records", len(ev.Records)),
	)
	return container.Processor.HandleBatch(ctx, ev)
}

// main is the entry point for the Lambda function
func main() {
	defer container.Logger.Sync() //nolint:errcheck

	lambda.Start(Handler)
}
