// Package eventbridge publishes race lifecycle transitions to the event bus
// the dashboard consumers subscribe to.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"velostream-backend/domain/telemetry"
	appErrors "velostream-backend/pkg/errors"
)

const (
	eventSource      = "velostream.ingest"
	statusDetailType = "race-status-changed"
)

// eventBridgeAPI is the slice of the EventBridge client the publisher uses.
type eventBridgeAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// StatusPublisher implements ports.StatusPublisher over EventBridge.
type StatusPublisher struct {
	client  eventBridgeAPI
	busName string
	logger  *zap.Logger
}

func NewStatusPublisher(client *eventbridge.Client, busName string, logger *zap.Logger) *StatusPublisher {
	return &StatusPublisher{client: client, busName: busName, logger: logger}
}

type statusChangeDetail struct {
	SeasonID string `json:"seasonId"`
	EventID  string `json:"eventId"`
	RaceID   string `json:"raceId"`
	Status   string `json:"status"`
}

// PublishStatusChange announces one race status transition.
func (p *StatusPublisher) PublishStatusChange(ctx context.Context, d telemetry.Details, status telemetry.RaceStatus) error {
	detail, err := json.Marshal(statusChangeDetail{
		SeasonID: d.SeasonID,
		EventID:  d.EventID,
		RaceID:   d.RaceID,
		Status:   string(status),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal status change detail: %w", err)
	}

	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				EventBusName: aws.String(p.busName),
				Source:       aws.String(eventSource),
				DetailType:   aws.String(statusDetailType),
				Detail:       aws.String(string(detail)),
			},
		},
	})
	if err != nil {
		return appErrors.NewExternalError("eventbridge", err)
	}
	if out.FailedEntryCount > 0 {
		entry := out.Entries[0]
		return fmt.Errorf("status change entry rejected: %s: %s",
			aws.ToString(entry.ErrorCode), aws.ToString(entry.ErrorMessage))
	}

	p.logger.Debug("published race status change",
		zap.String("race_id", d.RaceID),
		zap.String("status", string(status)),
	)
	return nil
}
