// Package telemetry holds the domain model of the live race-telemetry
// pipeline: the event envelope decoded from the stream, the deterministic
// mapping from events to storage records, and the read-side projections
// (latest aggregates, race aggregates, personal bests, rider baselines).
package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the wall-clock format used by every timestamp that
// travels through the pipeline, e.g. "2021-08-11 09:52:42.244".
const TimestampLayout = "2006-01-02 15:04:05.000"

// FormatTimestamp renders t in the pipeline's wire format.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// Envelope is one decoded telemetry event. Fields preserves the raw JSON
// object; numbers are kept as json.Number so that values round-trip into
// storage without floating-point reformatting.
type Envelope struct {
	Kind    Kind
	RawKind string
	Fields  map[string]any
}

// Details is the compact projection of an envelope used by the race
// lifecycle controller and the metrics emitter. All values are strings
// because identifiers arrive as either JSON strings or numbers.
type Details struct {
	Kind     Kind
	UCIID    string
	SeasonID string
	EventID  string
	RaceID   string
}

// Decode parses one transport payload (UTF-8 JSON) into an Envelope.
// A payload that is not a JSON object or lacks the InputMessage
// discriminator is a decode error; unknown message types decode fine and
// carry KindUnknown.
func Decode(data []byte) (*Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode telemetry payload: %w", err)
	}

	raw, ok := fields["InputMessage"].(string)
	if !ok {
		return nil, fmt.Errorf("telemetry payload has no InputMessage discriminator")
	}

	return &Envelope{
		Kind:    ParseKind(raw),
		RawKind: raw,
		Fields:  fields,
	}, nil
}

// Details extracts the identifying fields of the envelope.
func (e *Envelope) Details() Details {
	return Details{
		Kind:     e.Kind,
		UCIID:    e.StringField("UCIID"),
		SeasonID: e.StringField("SeasonID"),
		EventID:  e.StringField("EventID"),
		RaceID:   e.StringField("RaceID"),
	}
}

// StringField returns the named field rendered as a string. Identifiers
// such as UCIID and RaceID arrive as JSON numbers from some providers and
// as strings from others; both render to the same canonical form. A
// missing field renders as the empty string.
func (e *Envelope) StringField(name string) string {
	switch v := e.Fields[name].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
