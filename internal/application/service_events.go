package application

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/ports"
)

// FlushOutbox publishes pending outbox records. The API path calls it at the
// end of each mutating operation; the worker runs it on a poll loop so
// records survive a crashed request.
func (s *Service) FlushOutbox(ctx context.Context) error {
	if s.outbox == nil {
		return nil
	}
	pending, err := s.outbox.ListPending(ctx, s.cfg.OutboxFlushBatchSize)
	if err != nil {
		return err
	}
	for _, record := range pending {
		switch record.EventClass {
		case domain.CanonicalEventClassDomain:
			if s.domainEvents == nil {
				continue
			}
			if err := s.domainEvents.PublishDomain(ctx, record.Envelope); err != nil {
				return err
			}
		case domain.CanonicalEventClassAnalyticsOnly:
			if s.analytics == nil {
				continue
			}
			if err := s.analytics.PublishAnalytics(ctx, record.Envelope); err != nil {
				return err
			}
		default:
			continue
		}
		if err := s.outbox.MarkSent(ctx, record.RecordID, s.nowFn()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) campaignStartedRecord(project domain.Project, duration time.Duration) (ports.OutboxRecord, error) {
	payload := contracts.CampaignStartedPayload{
		ProjectID:       project.ProjectID,
		TargetAmount:    project.TargetAmount,
		DurationSeconds: int64(duration.Seconds()),
		Deadline:        project.Deadline.Format(time.RFC3339),
	}
	return s.outboxRecord(domain.EventCampaignStarted, project.ProjectID, project.CreatedAt, payload)
}

func (s *Service) contributionMadeRecord(projectID uint64, contributor string, amount uint64) (ports.OutboxRecord, error) {
	payload := contracts.ContributionMadePayload{
		ProjectID:   projectID,
		Contributor: contributor,
		Amount:      amount,
	}
	return s.outboxRecord(domain.EventContributionMade, projectID, s.nowFn(), payload)
}

func (s *Service) fundsClaimedRecord(project domain.Project, at time.Time) (ports.OutboxRecord, error) {
	payload := contracts.FundsClaimedPayload{
		ProjectID: project.ProjectID,
		Amount:    project.RaisedAmount,
		ClaimedAt: at.Format(time.RFC3339),
	}
	return s.outboxRecord(domain.EventFundsClaimed, project.ProjectID, at, payload)
}

func (s *Service) refundBatchRecords(project domain.Project, batch domain.RefundBatch, at time.Time) ([]ports.OutboxRecord, error) {
	processed, err := s.outboxRecord(domain.EventRefundBatchProcessed, project.ProjectID, at, contracts.RefundBatchProcessedPayload{
		ProjectID: batch.ProjectID,
		FromIndex: batch.FromIndex,
		ToIndex:   batch.ToIndex,
		PaidCount: len(batch.Payments),
		Done:      batch.Done,
	})
	if err != nil {
		return nil, err
	}
	records := []ports.OutboxRecord{processed}
	if batch.Done {
		refunded, err := s.outboxRecord(domain.EventCampaignRefunded, project.ProjectID, at, contracts.CampaignRefundedPayload{
			ProjectID:        batch.ProjectID,
			RefundedAmount:   project.RaisedAmount,
			ContributorCount: project.ContributorCount,
			RefundedAt:       at.Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
		records = append(records, refunded)
	}
	return records, nil
}

func (s *Service) outboxRecord(eventType string, projectID uint64, at time.Time, payload interface{}) (ports.OutboxRecord, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return ports.OutboxRecord{}, err
	}
	return ports.OutboxRecord{
		RecordID:   uuid.NewString(),
		EventClass: domain.CanonicalEventClass(eventType),
		Envelope: contracts.EventEnvelope{
			EventID:          uuid.NewString(),
			EventType:        eventType,
			EventClass:       domain.CanonicalEventClass(eventType),
			OccurredAt:       at,
			PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
			PartitionKey:     strconv.FormatUint(projectID, 10),
			SourceService:    s.cfg.ServiceName,
			TraceID:          uuid.NewString(),
			SchemaVersion:    "v1",
			Data:             data,
		},
		CreatedAt: at,
	}, nil
}
