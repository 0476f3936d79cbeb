package domain

import (
	"context"
	"time"
)

// EventMetadata accompanies every command and every published event. The
// correlation id is client-supplied, required, and doubles as the
// per-entity idempotency token.
type EventMetadata struct {
	CorrelationID string            `json:"correlationId"`
	Timestamp     time.Time         `json:"timestamp"`
	Properties    map[string]string `json:"properties,omitempty"`
}

// NewMetadata builds metadata stamped with the current time.
func NewMetadata(correlationID string) EventMetadata {
	return EventMetadata{
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
		Properties:    map[string]string{},
	}
}

// Validate checks the metadata is usable for command processing.
func (m EventMetadata) Validate() *Error {
	if m.CorrelationID == "" {
		return NewError(KindValidation, CodeCorrelationIDRequired)
	}
	return nil
}

// WithProperty returns a copy with the property set.
func (m EventMetadata) WithProperty(key, value string) EventMetadata {
	props := make(map[string]string, len(m.Properties)+1)
	for k, v := range m.Properties {
		props[k] = v
	}
	props[key] = value
	m.Properties = props
	return m
}

// Derive returns child metadata for a cascading command against another
// entity. The suffix keeps the child correlation id unique per target so
// the idempotency guard on the child does not trip on legitimate cascades.
func (m EventMetadata) Derive(suffix string) EventMetadata {
	child := m
	child.CorrelationID = m.CorrelationID + "/" + suffix
	return child
}

type correlationKey struct{}

// WithCorrelation stores the correlation id on the context for tracing.
func WithCorrelation(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationKey{}, correlationID)
}

// CorrelationFromContext returns the correlation id stored on ctx, if any.
func CorrelationFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(correlationKey{}).(string); ok {
		return v
	}
	return ""
}
