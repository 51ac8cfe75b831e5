package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names emitted by the pipeline.
const (
	MetricSamplesIngested      = "SamplesIngested"
	MetricZoneTransitions      = "ZoneTransitions"
	MetricEmergencySignals     = "EmergencySignals"
	MetricNotificationsSent    = "NotificationsSent"
	MetricNotificationsFailed  = "NotificationsFailed"
	MetricIngestLatencyMillis  = "IngestLatencyMillis"
	MetricLockContentionEvents = "LockContentionEvents"
)

// Metrics publishes operational counters to CloudWatch. Publishing is
// fire-and-forget: a metrics outage must never fail the operation being
// measured.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
}

// NewMetrics creates a metrics instance for the given namespace.
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
	}
}

// Count records a counter increment with optional dimensions.
func (m *Metrics) Count(name string, value float64, dimensions map[string]string) {
	m.put(name, value, types.StandardUnitCount, dimensions)
}

// Duration records an elapsed time in milliseconds.
func (m *Metrics) Duration(name string, elapsed time.Duration, dimensions map[string]string) {
	m.put(name, float64(elapsed.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
}

func (m *Metrics) put(name string, value float64, unit types.StandardUnit, dimensions map[string]string) {
	if m == nil || m.client == nil {
		return
	}

	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
	}
	for k, v := range dimensions {
		datum.Dimensions = append(datum.Dimensions, types.Dimension{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		// Errors are intentionally dropped; metrics are best-effort.
		_, _ = m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: []types.MetricDatum{datum},
		})
	}()
}
