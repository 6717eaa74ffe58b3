package metrics

import (
	"time"

	obserrors "github.com/bulkhaus/bulk-ui-api/internal/observability/errors"
	"github.com/bulkhaus/bulk-ui-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// ReconcileMetric captures one profile reconciliation pass for metric emission.
type ReconcileMetric struct {
	// Outcome is one of: merged, created, refetched, failed.
	Outcome  string
	Duration time.Duration
	Err      error
}

// EmitReconcile emits standardised profile reconciliation metrics.
func EmitReconcile(sink statsd.Sink, in ReconcileMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"outcome": in.Outcome}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("profile.reconcile", 1, tags)

	if in.Duration > 0 {
		sink.Timing("profile.reconcile_duration", in.Duration, CloneTags(tags))
	}
}

// CheckoutMetric captures one checkout attempt for metric emission.
type CheckoutMetric struct {
	Result     string
	TotalCents int64
	Lines      int
	Duration   time.Duration
	Err        error
}

// EmitCheckout emits standardised checkout metrics.
func EmitCheckout(sink statsd.Sink, in CheckoutMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"result": in.Result}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("order.checkout", 1, tags)

	if in.Result == ResultSuccess {
		sink.Gauge("order.total_cents", float64(in.TotalCents), CloneTags(tags))
		sink.Count("order.lines", int64(in.Lines), CloneTags(tags))
	}
	if in.Duration > 0 {
		sink.Timing("order.checkout_duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
