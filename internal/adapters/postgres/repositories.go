package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repositories struct {
	Projects    *ProjectRepository
	Idempotency *IdempotencyRepository
	Outbox      *OutboxRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Projects:    &ProjectRepository{db: db},
		Idempotency: &IdempotencyRepository{db: db},
		Outbox:      &OutboxRepository{db: db},
	}
}

type ProjectRepository struct {
	db *gorm.DB
}

func (r *ProjectRepository) CreateWithOutboxTx(ctx context.Context, row domain.Project, event ports.OutboxRecord) (domain.Project, error) {
	var result domain.Project
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := projectModel{
			TargetAmount: row.TargetAmount,
			Deadline:     row.Deadline,
			IsActive:     row.IsActive,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if err := insertOutbox(tx, stampProjectID(event, rec.ProjectID)); err != nil {
			return err
		}
		result = toDomainProject(rec)
		return nil
	})
	if err != nil {
		return domain.Project{}, err
	}
	return result, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, projectID uint64) (domain.Project, error) {
	var rec projectModel
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Project{}, domain.ErrNotFound
		}
		return domain.Project{}, err
	}
	return toDomainProject(rec), nil
}

func (r *ProjectRepository) GetContribution(ctx context.Context, projectID uint64, contributor string) (domain.Contribution, error) {
	var rec contributionModel
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND contributor = ?", projectID, contributor).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Contribution{}, domain.ErrNotFound
		}
		return domain.Contribution{}, err
	}
	return toDomainContribution(rec), nil
}

func (r *ProjectRepository) ListContributions(ctx context.Context, projectID uint64, fromPosition, limit int) ([]domain.Contribution, error) {
	var recs []contributionModel
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND position >= ?", projectID, fromPosition).
		Order("position ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Contribution, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainContribution(rec))
	}
	return out, nil
}

func (r *ProjectRepository) RecordContributionTx(ctx context.Context, params ports.RecordContributionParams, event ports.OutboxRecord, interact func() error) (domain.Contribution, error) {
	var result domain.Contribution
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := lockProject(tx, params.ProjectID)
		if err != nil {
			return err
		}

		var rec contributionModel
		err = tx.Where("project_id = ? AND contributor = ?", params.ProjectID, params.Contributor).
			Take(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = contributionModel{
				ProjectID:   params.ProjectID,
				Contributor: params.Contributor,
				Amount:      params.Amount,
				Position:    project.ContributorCount,
				FirstAt:     params.At,
				UpdatedAt:   params.At,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
			project.ContributorCount++
		case err != nil:
			return err
		default:
			rec.Amount += params.Amount
			rec.UpdatedAt = params.At
			if err := tx.Save(&rec).Error; err != nil {
				return err
			}
		}

		project.RaisedAmount += params.Amount
		project.UpdatedAt = params.At
		if err := tx.Save(&project).Error; err != nil {
			return err
		}
		if err := insertOutbox(tx, event); err != nil {
			return err
		}
		if interact != nil {
			if err := interact(); err != nil {
				return err
			}
		}
		result = toDomainContribution(rec)
		return nil
	})
	if err != nil {
		return domain.Contribution{}, err
	}
	return result, nil
}

func (r *ProjectRepository) SettleClaimTx(ctx context.Context, projectID uint64, at time.Time, event ports.OutboxRecord, interact func() error) (domain.Project, error) {
	var result domain.Project
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if !project.IsActive {
			return domain.ErrAlreadySettled
		}
		project.IsActive = false
		project.UpdatedAt = at
		if err := tx.Save(&project).Error; err != nil {
			return err
		}
		if err := insertOutbox(tx, event); err != nil {
			return err
		}
		if interact != nil {
			if err := interact(); err != nil {
				return err
			}
		}
		result = toDomainProject(project)
		return nil
	})
	if err != nil {
		return domain.Project{}, err
	}
	return result, nil
}

func (r *ProjectRepository) CommitRefundBatchTx(ctx context.Context, params ports.RefundBatchParams, events []ports.OutboxRecord, interact func() error) (domain.Project, error) {
	var result domain.Project
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := lockProject(tx, params.ProjectID)
		if err != nil {
			return err
		}
		if !project.IsActive {
			return domain.ErrAlreadySettled
		}
		if project.LastContributorIndex != params.FromIndex {
			return domain.ErrConflict
		}
		if params.ToIndex < params.FromIndex || params.ToIndex > project.ContributorCount {
			return domain.ErrInvalidInput
		}

		project.LastContributorIndex = params.ToIndex
		if params.Done {
			project.IsActive = false
		}
		project.UpdatedAt = params.At
		if err := tx.Save(&project).Error; err != nil {
			return err
		}
		for _, event := range events {
			if err := insertOutbox(tx, event); err != nil {
				return err
			}
		}
		if interact != nil {
			if err := interact(); err != nil {
				return err
			}
		}
		result = toDomainProject(project)
		return nil
	})
	if err != nil {
		return domain.Project{}, err
	}
	return result, nil
}

func lockProject(tx *gorm.DB, projectID uint64) (projectModel, error) {
	var rec projectModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("project_id = ?", projectID).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return projectModel{}, domain.ErrNotFound
		}
		return projectModel{}, err
	}
	return rec, nil
}

func insertOutbox(tx *gorm.DB, record ports.OutboxRecord) error {
	blob, err := json.Marshal(record.Envelope)
	if err != nil {
		return fmt.Errorf("encode outbox envelope: %w", err)
	}
	return tx.Create(&outboxModel{
		RecordID:   record.RecordID,
		EventClass: record.EventClass,
		Envelope:   string(blob),
		CreatedAt:  record.CreatedAt,
		SentAt:     record.SentAt,
	}).Error
}

func stampProjectID(record ports.OutboxRecord, projectID uint64) ports.OutboxRecord {
	record.Envelope.PartitionKey = strconv.FormatUint(projectID, 10)
	var payload map[string]any
	if err := json.Unmarshal(record.Envelope.Data, &payload); err == nil {
		payload["project_id"] = projectID
		if adjusted, mErr := json.Marshal(payload); mErr == nil {
			record.Envelope.Data = adjusted
		}
	}
	return record
}

func toDomainProject(rec projectModel) domain.Project {
	return domain.Project{
		ProjectID:            rec.ProjectID,
		TargetAmount:         rec.TargetAmount,
		RaisedAmount:         rec.RaisedAmount,
		Deadline:             rec.Deadline,
		IsActive:             rec.IsActive,
		LastContributorIndex: rec.LastContributorIndex,
		ContributorCount:     rec.ContributorCount,
		CreatedAt:            rec.CreatedAt,
		UpdatedAt:            rec.UpdatedAt,
	}
}

func toDomainContribution(rec contributionModel) domain.Contribution {
	return domain.Contribution{
		ProjectID:   rec.ProjectID,
		Contributor: rec.Contributor,
		Amount:      rec.Amount,
		Position:    rec.Position,
		FirstAt:     rec.FirstAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

type IdempotencyRepository struct {
	db *gorm.DB
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	var rec idempotencyModel
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ? AND expires_at > ?", key, now).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ports.IdempotencyRecord{
		Key:          rec.IdempotencyKey,
		RequestHash:  rec.RequestHash,
		ResponseCode: rec.ResponseCode,
		ResponseBody: rec.ResponseBody,
		ExpiresAt:    rec.ExpiresAt,
	}, nil
}

func (r *IdempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	err := r.db.WithContext(ctx).Create(&idempotencyModel{
		IdempotencyKey: key,
		RequestHash:    requestHash,
		ExpiresAt:      expiresAt,
	}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

func (r *IdempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	return r.db.WithContext(ctx).Model(&idempotencyModel{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]any{
			"response_code": responseCode,
			"response_body": responseBody,
		}).Error
}

type OutboxRepository struct {
	db *gorm.DB
}

func (r *OutboxRepository) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	blob, err := json.Marshal(record.Envelope)
	if err != nil {
		return fmt.Errorf("encode outbox envelope: %w", err)
	}
	return r.db.WithContext(ctx).Create(&outboxModel{
		RecordID:   record.RecordID,
		EventClass: record.EventClass,
		Envelope:   string(blob),
		CreatedAt:  record.CreatedAt,
		SentAt:     record.SentAt,
	}).Error
}

func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	var recs []outboxModel
	err := r.db.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(recs))
	for _, rec := range recs {
		var envelope contracts.EventEnvelope
		if err := json.Unmarshal([]byte(rec.Envelope), &envelope); err != nil {
			return nil, fmt.Errorf("decode outbox envelope %s: %w", rec.RecordID, err)
		}
		out = append(out, ports.OutboxRecord{
			RecordID:   rec.RecordID,
			EventClass: rec.EventClass,
			Envelope:   envelope,
			CreatedAt:  rec.CreatedAt,
			SentAt:     rec.SentAt,
		})
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, recordID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("record_id = ?", recordID).
		Update("sent_at", at).Error
}
