// Package dynamodb implements the storage ports against AWS DynamoDB:
// the live telemetry table and the static race directory table.
package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"velostream-backend/domain/telemetry"
)

// dynamoAPI is the subset of the DynamoDB SDK client the repositories use.
// *dynamodb.Client satisfies it; tests substitute a fake.
type dynamoAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// marshalRecord converts a mapped record to a DynamoDB item.
func marshalRecord(rec telemetry.Record) map[string]types.AttributeValue {
	item := make(map[string]types.AttributeValue, len(rec.Attrs)+2)
	item["pk"] = &types.AttributeValueMemberS{Value: rec.Key.PK}
	item["sk"] = &types.AttributeValueMemberS{Value: rec.Key.SK}
	for name, attr := range rec.Attrs {
		item[name] = marshalAttr(attr)
	}
	return item
}

func marshalAttr(attr telemetry.Attr) types.AttributeValue {
	if attr.Type == telemetry.AttrNumber {
		return &types.AttributeValueMemberN{Value: attr.Value}
	}
	return &types.AttributeValueMemberS{Value: attr.Value}
}

// unmarshalRecord converts an item the store handed back (e.g. an
// unprocessed batch entry) into a record.
func unmarshalRecord(item map[string]types.AttributeValue) (telemetry.Record, error) {
	rec := telemetry.Record{Attrs: make(map[string]telemetry.Attr, len(item))}
	for name, av := range item {
		var attr telemetry.Attr
		switch v := av.(type) {
		case *types.AttributeValueMemberS:
			attr = telemetry.S(v.Value)
		case *types.AttributeValueMemberN:
			attr = telemetry.N(v.Value)
		default:
			return telemetry.Record{}, fmt.Errorf("unexpected attribute type %T for %q", av, name)
		}
		switch name {
		case "pk":
			rec.Key.PK = attr.Value
		case "sk":
			rec.Key.SK = attr.Value
		default:
			rec.Attrs[name] = attr
		}
	}
	if rec.Key.PK == "" || rec.Key.SK == "" {
		return telemetry.Record{}, fmt.Errorf("item is missing its key attributes")
	}
	return rec, nil
}

// stringAttr extracts a string attribute from an item.
func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// numberAttr extracts a number attribute from an item.
func numberAttr(item map[string]types.AttributeValue, name string) (string, bool) {
	if v, ok := item[name].(*types.AttributeValueMemberN); ok {
		return v.Value, true
	}
	return "", false
}
