// Package stream defines the wire contract between the stream-analytics
// runtime and the ingestion Lambda: the batch of transport-encoded records
// delivered per invocation and the per-record terminal status returned to
// decide redelivery.
package stream

// Terminal statuses the runtime understands.
const (
	ResultOK             = "Ok"
	ResultDeliveryFailed = "DeliveryFailed"
)

// DeliveryEvent is one bounded batch of records from the analytics output.
type DeliveryEvent struct {
	InvocationID   string           `json:"invocationId"`
	ApplicationARN string           `json:"applicationArn"`
	Records        []DeliveryRecord `json:"records"`
}

// DeliveryRecord carries one event. Data is base64 on the wire and decoded
// by the JSON unmarshal; the payload is UTF-8 JSON.
type DeliveryRecord struct {
	RecordID string         `json:"recordId"`
	Data     []byte         `json:"data"`
	Metadata RecordMetadata `json:"lambdaDeliveryRecordMetadata"`
}

// RecordMetadata is the redelivery metadata attached by the runtime.
// RetryHint counts prior delivery attempts and is the only input to the
// give-up decision after repeated per-record failures.
type RecordMetadata struct {
	RetryHint int `json:"retryHint"`
}

// DeliveryResponse reports one terminal status per input record.
type DeliveryResponse struct {
	Records []ResponseRecord `json:"records"`
}

// ResponseRecord is the terminal status of one input record.
type ResponseRecord struct {
	RecordID string `json:"recordId"`
	Result   string `json:"result"`
}
