package events

import (
	"context"
	"log/slog"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/contracts"
)

// LoggingPublisher is the broker-less fallback: events land in the
// structured log instead of a topic. Used when no Kafka brokers are
// configured (local/dev runtimes).
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) PublishDomain(ctx context.Context, event contracts.EventEnvelope) error {
	return p.log(ctx, event)
}

func (p *LoggingPublisher) PublishAnalytics(ctx context.Context, event contracts.EventEnvelope) error {
	return p.log(ctx, event)
}

func (p *LoggingPublisher) log(ctx context.Context, event contracts.EventEnvelope) error {
	p.logger.InfoContext(ctx, "published event",
		"module", "events",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "success",
		"event_type", event.EventType,
		"event_id", event.EventID,
		"partition_key", event.PartitionKey,
	)
	return nil
}
