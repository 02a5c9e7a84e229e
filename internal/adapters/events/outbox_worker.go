package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/ports"
)

// OutboxWorker drains outbox records that the request path failed to flush,
// so transactional writes and broker delivery stay decoupled.
type OutboxWorker struct {
	logger    *slog.Logger
	outbox    ports.OutboxRepository
	domainPub ports.DomainPublisher
	analytics ports.AnalyticsPublisher
	interval  time.Duration
	batchSize int
}

func NewOutboxWorker(
	logger *slog.Logger,
	outbox ports.OutboxRepository,
	domainPub ports.DomainPublisher,
	analytics ports.AnalyticsPublisher,
	interval time.Duration,
	batchSize int,
) *OutboxWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxWorker{
		logger:    logger,
		outbox:    outbox,
		domainPub: domainPub,
		analytics: analytics,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run executes the periodic publish loop until context cancellation.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "outbox_process_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *OutboxWorker) processOnce(ctx context.Context) error {
	records, err := w.outbox.ListPending(ctx, w.batchSize)
	if err != nil {
		return err
	}
	for _, record := range records {
		var pubErr error
		switch record.EventClass {
		case domain.CanonicalEventClassDomain:
			pubErr = w.domainPub.PublishDomain(ctx, record.Envelope)
		case domain.CanonicalEventClassAnalyticsOnly:
			pubErr = w.analytics.PublishAnalytics(ctx, record.Envelope)
		default:
			continue
		}
		if pubErr != nil {
			w.logger.WarnContext(ctx, "outbox publish failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "publish",
				"outcome", "failure",
				"event_type", record.Envelope.EventType,
				"error", pubErr,
			)
			continue
		}
		if err := w.outbox.MarkSent(ctx, record.RecordID, time.Now().UTC()); err != nil {
			return err
		}
	}
	return nil
}
