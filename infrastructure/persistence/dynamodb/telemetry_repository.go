package dynamodb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"velostream-backend/application/ports"
	"velostream-backend/domain/telemetry"
	appErrors "velostream-backend/pkg/errors"
)

// TelemetryRepository implements ports.TelemetryRepository against the
// live table.
type TelemetryRepository struct {
	client            dynamoAPI
	tableName         string
	personalBestIndex string
	logger            *zap.Logger
}

// NewTelemetryRepository creates a TelemetryRepository. personalBestIndex
// is the (pk, EventTimeStamp) index the personal-best query reads from.
func NewTelemetryRepository(client *dynamodb.Client, tableName, personalBestIndex string, logger *zap.Logger) *TelemetryRepository {
	return &TelemetryRepository{
		client:            client,
		tableName:         tableName,
		personalBestIndex: personalBestIndex,
		logger:            logger,
	}
}

// BatchPut writes up to ports.BatchPutLimit records in one round trip and
// returns the records the store reported as unprocessed.
func (r *TelemetryRepository) BatchPut(ctx context.Context, recs []telemetry.Record) ([]telemetry.Record, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	if len(recs) > ports.BatchPutLimit {
		return nil, fmt.Errorf("batch of %d records exceeds the store limit of %d", len(recs), ports.BatchPutLimit)
	}

	requests := make([]types.WriteRequest, 0, len(recs))
	for _, rec := range recs {
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: marshalRecord(rec)},
		})
	}

	out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{r.tableName: requests},
	})
	if err != nil {
		return nil, appErrors.NewStoreError("BatchWriteItem", err)
	}

	var unprocessed []telemetry.Record
	for _, wr := range out.UnprocessedItems[r.tableName] {
		if wr.PutRequest == nil {
			continue
		}
		rec, err := unmarshalRecord(wr.PutRequest.Item)
		if err != nil {
			r.logger.Error("failed to read back an unprocessed item", zap.Error(err))
			continue
		}
		unprocessed = append(unprocessed, rec)
	}
	return unprocessed, nil
}

// Put writes a single record.
func (r *TelemetryRepository) Put(ctx context.Context, rec telemetry.Record) error {
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      marshalRecord(rec),
	})
	if err != nil {
		return appErrors.NewStoreError("PutItem", err)
	}
	return nil
}

// ApplyUpdate applies one update, retrying up to the given budget. The
// bound is an explicit loop so a slow store cannot stall the invocation.
func (r *TelemetryRepository) ApplyUpdate(ctx context.Context, spec telemetry.UpdateSpec, retries int) error {
	expr, err := buildUpdateExpression(spec)
	if err != nil {
		return err
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       keyItem(spec.Key),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if _, lastErr = r.client.UpdateItem(ctx, input); lastErr == nil {
			return nil
		}
		r.logger.Warn("update attempt failed",
			zap.String("sk", spec.Key.SK),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
	}
	return appErrors.NewStoreError("UpdateItem", lastErr)
}

// TransactUpdates applies the updates atomically. Callers collapse
// same-key updates beforehand; the store rejects duplicate keys.
func (r *TelemetryRepository) TransactUpdates(ctx context.Context, specs []telemetry.UpdateSpec) error {
	if len(specs) == 0 {
		return nil
	}

	items := make([]types.TransactWriteItem, 0, len(specs))
	for _, spec := range specs {
		expr, err := buildUpdateExpression(spec)
		if err != nil {
			return err
		}
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:                 aws.String(r.tableName),
				Key:                       keyItem(spec.Key),
				UpdateExpression:          expr.Update(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
			},
		})
	}

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return appErrors.NewStoreError("TransactWriteItems", err)
	}
	return nil
}

// latestAggregateItem is the stored shape of one rider latest-state record.
// Metrics the rider never reported are absent from the item.
type latestAggregateItem struct {
	UCIID                 string   `dynamodbav:"UCIID"`
	MaxRaceRiderHeartrate *float64 `dynamodbav:"MaxRaceRiderHeartrate"`
	MaxRaceRiderCadency   *float64 `dynamodbav:"MaxRaceRiderCadency"`
	MaxRaceRiderPower     *float64 `dynamodbav:"MaxRaceRiderPower"`
	MaxRaceRiderSpeed     *float64 `dynamodbav:"MaxRaceRiderSpeed"`
}

// LatestAggregates returns every rider latest-state record of a race.
func (r *TelemetryRepository) LatestAggregates(ctx context.Context, raceID string) ([]telemetry.RiderAggregate, error) {
	keyCond := expression.KeyAnd(
		expression.Key("pk").Equal(expression.Value(telemetry.LatestAggregatePK)),
		expression.Key("sk").BeginsWith(fmt.Sprintf("RACE#RaceID=%s#", raceID)),
	)
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build latest-aggregate query: %w", err)
	}

	var out []telemetry.RiderAggregate
	var startKey map[string]types.AttributeValue
	for {
		page, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, appErrors.NewStoreError("Query", err)
		}

		for _, raw := range page.Items {
			var item latestAggregateItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("failed to unmarshal latest-aggregate item, skipping", zap.Error(err))
				continue
			}
			out = append(out, telemetry.RiderAggregate{
				UCIID:        item.UCIID,
				MaxHeartrate: item.MaxRaceRiderHeartrate,
				MaxCadency:   item.MaxRaceRiderCadency,
				MaxPower:     item.MaxRaceRiderPower,
				MaxSpeed:     item.MaxRaceRiderSpeed,
			})
		}

		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}

// PersonalBests returns every personal-best sample of a race, newest
// first, read through the (pk, EventTimeStamp) index.
func (r *TelemetryRepository) PersonalBests(ctx context.Context, raceID string) ([]telemetry.PersonalBestSample, error) {
	keyCond := expression.Key("pk").Equal(
		expression.Value(fmt.Sprintf("AGG#PERSONALBEST#RaceID=%s#", raceID)),
	)
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build personal-best query: %w", err)
	}

	var out []telemetry.PersonalBestSample
	var startKey map[string]types.AttributeValue
	for {
		page, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(r.personalBestIndex),
			ScanIndexForward:          aws.Bool(false),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, appErrors.NewStoreError("Query", err)
		}

		for _, item := range page.Items {
			out = append(out, unmarshalPersonalBest(item))
		}

		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}

// unmarshalPersonalBest extracts the tracked metric readings of a sample.
// A metric is only present when both its value and its exceeded flag were
// stored.
func unmarshalPersonalBest(item map[string]types.AttributeValue) telemetry.PersonalBestSample {
	sample := telemetry.PersonalBestSample{
		UCIID:          stringAttr(item, "UCIID"),
		EventTimeStamp: stringAttr(item, "EventTimeStamp"),
		Readings:       make(map[string]telemetry.MetricReading),
	}
	for _, metric := range telemetry.PersonalBestMetrics {
		rawValue, okValue := numberAttr(item, metric)
		rawFlag, okFlag := numberAttr(item, metric+"Exceeded")
		if !okValue || !okFlag {
			continue
		}
		value, err := strconv.ParseFloat(rawValue, 64)
		if err != nil {
			continue
		}
		sample.Readings[metric] = telemetry.MetricReading{
			Value:    value,
			Exceeded: rawFlag == "1",
		}
	}
	return sample
}

// PutRaceAggregate stores the race-level reduction. Metrics absent from
// every rider are omitted rather than written as a sentinel.
func (r *TelemetryRepository) PutRaceAggregate(ctx context.Context, agg telemetry.RaceAggregate) error {
	item := map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: "AGG#RaceStats#"},
		"sk": &types.AttributeValueMemberS{Value: fmt.Sprintf("RaceID=%s#", agg.RaceID)},
	}
	putMetricMax(item, "max_power", agg.MaxPower)
	putMetricMax(item, "max_hr", agg.MaxHeartrate)
	putMetricMax(item, "max_speed", agg.MaxSpeed)
	putMetricMax(item, "max_cadency", agg.MaxCadency)

	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return appErrors.NewStoreError("PutItem", err)
	}
	return nil
}

func putMetricMax(item map[string]types.AttributeValue, name string, max *telemetry.MetricMax) {
	if max == nil {
		return
	}
	item[name] = &types.AttributeValueMemberM{
		Value: map[string]types.AttributeValue{
			"UCIID": &types.AttributeValueMemberN{Value: max.UCIID},
			"value": &types.AttributeValueMemberN{Value: strconv.FormatFloat(max.Value, 'f', -1, 64)},
		},
	}
}

// keyItem renders a storage key as a DynamoDB key map.
func keyItem(key telemetry.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: key.PK},
		"sk": &types.AttributeValueMemberS{Value: key.SK},
	}
}

// buildUpdateExpression renders an update spec as a SET expression.
func buildUpdateExpression(spec telemetry.UpdateSpec) (expression.Expression, error) {
	if len(spec.Assignments) == 0 {
		return expression.Expression{}, fmt.Errorf("update for %q has no assignments", spec.Key.SK)
	}
	upd := expression.UpdateBuilder{}
	for _, a := range spec.Assignments {
		upd = upd.Set(expression.Name(a.Name), expression.Value(marshalAttr(a.Value)))
	}
	expr, err := expression.NewBuilder().WithUpdate(upd).Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("failed to build update expression: %w", err)
	}
	return expr, nil
}
