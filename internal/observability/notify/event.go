package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// OpsEventPayload captures the canonical data we emit for operational
// notifications: stock alerts, profile reconciliation failures, and
// similar events staff should see.
type OpsEventPayload struct {
	Source     string // emitting component, e.g. "stock_alerts"
	Summary    string
	Detail     string
	Severity   string
	OccurredAt time.Time
	Metadata   map[string]string
}

// Sink describes a destination capable of consuming ops notifications.
type Sink interface {
	SendOpsEvent(ctx context.Context, payload OpsEventPayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload OpsEventPayload) error

// SendOpsEvent implements the Sink interface.
func (f SinkFunc) SendOpsEvent(ctx context.Context, payload OpsEventPayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
