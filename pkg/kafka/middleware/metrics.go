package kafka_middleware

import (
	"context"

	"slotkeeper/pkg/kafka"
	"slotkeeper/pkg/metrics"
)

// MetricsProducerMiddleware counts publish outcomes per topic.
func MetricsProducerMiddleware(m *metrics.EngineMetrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		err := next(ctx, msg)
		m.ObservePublish(msg.Topic, err)
		return err
	}
}
