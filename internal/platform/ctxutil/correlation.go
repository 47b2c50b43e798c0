// Package ctxutil carries request correlation ids through context.Context so
// log lines from the HTTP layer down can be joined into one request story.
package ctxutil

import "context"

type correlationKey struct{}

// Correlation identifies one inbound request. TraceID follows the request
// across services, RequestID is unique to this hop.
type Correlation struct {
	TraceID   string
	RequestID string
}

// LogFields renders the correlation as logger key/value pairs, skipping
// whichever ids are empty.
func (c Correlation) LogFields() []interface{} {
	fields := make([]interface{}, 0, 4)
	if c.TraceID != "" {
		fields = append(fields, "trace_id", c.TraceID)
	}
	if c.RequestID != "" {
		fields = append(fields, "request_id", c.RequestID)
	}
	return fields
}

// WithCorrelation returns a context carrying the given ids.
func WithCorrelation(ctx context.Context, corr Correlation) context.Context {
	return context.WithValue(ctx, correlationKey{}, corr)
}

// CorrelationFrom extracts the ids attached by WithCorrelation. It returns
// the zero Correlation when none are attached.
func CorrelationFrom(ctx context.Context) Correlation {
	corr, _ := ctx.Value(correlationKey{}).(Correlation)
	return corr
}
