package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"velostream-backend/application/ports"
	"velostream-backend/domain/telemetry"
	appErrors "velostream-backend/pkg/errors"
)

const statusUpdateRetries = 3

// RaceDirectory implements ports.RaceDirectory against the static table,
// which holds race descriptions and rider baselines.
type RaceDirectory struct {
	client    dynamoAPI
	tableName string
	logger    *zap.Logger
}

func NewRaceDirectory(client *dynamodb.Client, tableName string, logger *zap.Logger) *RaceDirectory {
	return &RaceDirectory{client: client, tableName: tableName, logger: logger}
}

func raceKey(eventID, raceID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("EVENT#EventID=%s#", eventID)},
		"sk": &types.AttributeValueMemberS{Value: fmt.Sprintf("RACE#RaceID=%s#", raceID)},
	}
}

// UpdateRaceStatus moves a race to the given status. With guardForward
// set the write is conditional on the race not already being finished,
// so a status event replayed after the finish cannot reopen the race;
// a guarded rejection surfaces as ports.ErrTransitionGuarded.
func (d *RaceDirectory) UpdateRaceStatus(ctx context.Context, eventID, raceID string, status telemetry.RaceStatus, guardForward bool) error {
	builder := expression.NewBuilder().WithUpdate(
		expression.Set(expression.Name("RaceStatus"), expression.Value(string(status))),
	)
	if guardForward {
		builder = builder.WithCondition(
			expression.Name("RaceStatus").NotEqual(expression.Value(string(telemetry.StatusFinished))),
		)
	}
	expr, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build status update: %w", err)
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.tableName),
		Key:                       raceKey(eventID, raceID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var lastErr error
	for attempt := 1; attempt <= statusUpdateRetries; attempt++ {
		_, lastErr = d.client.UpdateItem(ctx, input)
		if lastErr == nil {
			return nil
		}
		var condErr *types.ConditionalCheckFailedException
		if errors.As(lastErr, &condErr) {
			return ports.ErrTransitionGuarded
		}
		d.logger.Warn("race status update attempt failed",
			zap.String("race_id", raceID),
			zap.String("status", string(status)),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
	}
	return appErrors.NewStoreError("UpdateItem", lastErr)
}

// Race loads the description of one race.
func (d *RaceDirectory) Race(ctx context.Context, eventID, raceID string) (telemetry.RaceInfo, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key:       raceKey(eventID, raceID),
	})
	if err != nil {
		return telemetry.RaceInfo{}, appErrors.NewStoreError("GetItem", err)
	}
	if len(out.Item) == 0 {
		return telemetry.RaceInfo{}, fmt.Errorf("race %q of event %q is not registered", raceID, eventID)
	}
	return telemetry.RaceInfo{
		EventID:  eventID,
		RaceID:   raceID,
		RaceName: stringAttr(out.Item, "RaceName"),
		Status:   telemetry.RaceStatus(stringAttr(out.Item, "RaceStatus")),
	}, nil
}

// baselineFields maps each tracked personal-best metric to the attribute
// that stores the rider's registered threshold for it.
var baselineFields = map[string]string{
	"RiderHeartrate": "MaxHrBpm",
	"RiderPower":     "PowerPeakW",
	"Power5s":        "Power5sW",
	"Power15s":       "Power15sW",
	"Power30s":       "Power30sW",
	"Power60s":       "Power60sW",
	"Power120s":      "Power120sW",
	"Power180s":      "Power180sW",
	"Power300s":      "Power300sW",
	"Power600s":      "Power600sW",
}

// RiderBaseline loads the registered thresholds of one rider. Thresholds
// that are missing or unparsable are left out of the result.
func (d *RaceDirectory) RiderBaseline(ctx context.Context, uciID string) (telemetry.RiderBaseline, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("RIDER#UCIID=%s#", uciID)},
			"sk": &types.AttributeValueMemberS{Value: "RIDER#"},
		},
	})
	if err != nil {
		return telemetry.RiderBaseline{}, appErrors.NewStoreError("GetItem", err)
	}
	if len(out.Item) == 0 {
		return telemetry.RiderBaseline{}, fmt.Errorf("rider %q is not registered", uciID)
	}

	baseline := telemetry.RiderBaseline{
		UCIID:      uciID,
		Thresholds: make(map[string]float64, len(baselineFields)),
	}
	for metric, field := range baselineFields {
		raw := stringAttr(out.Item, field)
		if raw == "" {
			if num, ok := numberAttr(out.Item, field); ok {
				raw = num
			}
		}
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			d.logger.Warn("rider baseline field is not numeric",
				zap.String("uciid", uciID),
				zap.String("field", field),
				zap.String("value", raw),
			)
			continue
		}
		baseline.Thresholds[metric] = value
	}
	return baseline, nil
}
