// Package observability provides X-Ray tracing helpers for the Lambda.
package observability

import (
	"context"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// Tracer wraps store round trips in X-Ray subsegments of the invocation's
// segment. A nil Tracer disables tracing, which is how unit tests run.
type Tracer struct {
	serviceName string
}

// NewTracer creates a new tracer instance.
func NewTracer(serviceName string) *Tracer {
	return &Tracer{serviceName: serviceName}
}

// Capture runs fn inside a subsegment named after the traced operation,
// recording its error if any.
func (t *Tracer) Capture(ctx context.Context, name string, fn func(context.Context) error) error {
	if t == nil {
		return fn(ctx)
	}
	return xray.Capture(ctx, t.serviceName+"."+name, fn)
}

// Annotate attaches an indexed annotation to the current segment.
func (t *Tracer) Annotate(ctx context.Context, key, value string) {
	if t == nil {
		return
	}
	if seg := xray.GetSegment(ctx); seg != nil {
		seg.AddAnnotation(key, value)
	}
}
