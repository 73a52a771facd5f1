package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	allocationRequestCounter  metric.Int64Counter
	allocationApprovalCounter metric.Int64Counter
	nodeTokenCounter          metric.Int64Counter
	nodeAuthCounter           metric.Int64Counter
	manifestPublishDuration   metric.Float64Histogram
)

// InitFacilitiesMetrics registers the domain instruments on the global meter provider.
func InitFacilitiesMetrics() error {
	meter := otel.Meter("facilities")

	var err error

	allocationRequestCounter, err = meter.Int64Counter(
		"allocation_request.submitted",
		metric.WithDescription("Allocation requests submitted, by request type and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	allocationApprovalCounter, err = meter.Int64Counter(
		"allocation_request.approved",
		metric.WithDescription("Allocation requests approved"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	nodeTokenCounter, err = meter.Int64Counter(
		"node.token.issued",
		metric.WithDescription("Node tokens issued on create or rotation"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return err
	}

	nodeAuthCounter, err = meter.Int64Counter(
		"node.auth.attempts",
		metric.WithDescription("Node bearer authentication attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	manifestPublishDuration, err = meter.Float64Histogram(
		"manifest.publish.duration",
		metric.WithDescription("Duration of manifest uploads to the object store"),
		metric.WithUnit("ms"),
	)
	return err
}

// RecordAllocationRequest counts a submission. outcome is "accepted", "invalid", "conflict" or "error".
func RecordAllocationRequest(ctx context.Context, requestType, outcome string) {
	if allocationRequestCounter != nil {
		allocationRequestCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("request_type", requestType),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordAllocationApproval(ctx context.Context, requestType string) {
	if allocationApprovalCounter != nil {
		allocationApprovalCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("request_type", requestType)))
	}
}

// RecordNodeToken counts an issued token. reason is "create" or "rotate".
func RecordNodeToken(ctx context.Context, reason string) {
	if nodeTokenCounter != nil {
		nodeTokenCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func RecordNodeAuth(ctx context.Context, ok bool) {
	if nodeAuthCounter != nil {
		nodeAuthCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("authenticated", ok)))
	}
}

func RecordManifestPublish(ctx context.Context, durationMs float64, ok bool) {
	if manifestPublishDuration != nil {
		status := "success"
		if !ok {
			status = "error"
		}
		manifestPublishDuration.Record(ctx, durationMs, metric.WithAttributes(attribute.String("status", status)))
	}
}
