package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/ports"
)

// StartProject creates a new campaign at the next sequential id. The target
// and duration are deliberately not validated: a zero duration yields an
// immediately expired campaign and a zero target one that is claimable on
// creation, both of which are legitimate degenerate configurations.
func (s *Service) StartProject(ctx context.Context, actor Actor, input StartProjectInput) (domain.Project, error) {
	if err := s.ensureOwner(ctx, actor); err != nil {
		return domain.Project{}, err
	}
	now := s.nowFn()
	row := domain.Project{
		TargetAmount: input.TargetAmount,
		Deadline:     now.Add(input.Duration),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	event, err := s.campaignStartedRecord(row, input.Duration)
	if err != nil {
		return domain.Project{}, err
	}
	project, err := s.projects.CreateWithOutboxTx(ctx, row, event)
	if err != nil {
		return domain.Project{}, fmt.Errorf("create project: %w", err)
	}
	if err := s.FlushOutbox(ctx); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// Contribute adds amount to the caller's stake in an open project. On the
// caller's first nonzero contribution it appends them to the project's
// ordered contributor sequence. Bookkeeping commits before the token pull
// runs, and the whole operation aborts with no state change if the pull
// fails.
func (s *Service) Contribute(ctx context.Context, actor Actor, input ContributeInput) (domain.Contribution, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Contribution{}, domain.ErrNotAuthorized
	}
	if input.Amount == 0 {
		return domain.Contribution{}, domain.ErrZeroAmount
	}

	lock := s.projectLock(input.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	project, err := s.projects.GetByID(ctx, input.ProjectID)
	if err != nil {
		return domain.Contribution{}, err
	}
	if !project.IsActive {
		return domain.Contribution{}, domain.ErrAlreadySettled
	}
	now := s.nowFn()
	if !project.Open(now) {
		return domain.Contribution{}, domain.ErrClosed
	}

	requestHash := hashPayload(struct {
		ProjectID   uint64
		Contributor string
		Amount      uint64
	}{input.ProjectID, actor.SubjectID, input.Amount})
	if actor.IdempotencyKey != "" {
		existing, err := s.idempotency.Get(ctx, actor.IdempotencyKey, now)
		if err != nil {
			return domain.Contribution{}, err
		}
		if existing != nil {
			if existing.RequestHash != requestHash {
				return domain.Contribution{}, domain.ErrIdempotencyConflict
			}
			var cached domain.Contribution
			if err := json.Unmarshal(existing.ResponseBody, &cached); err != nil {
				return domain.Contribution{}, err
			}
			return cached, nil
		}
		if err := s.idempotency.Reserve(ctx, actor.IdempotencyKey, requestHash, now.Add(s.cfg.IdempotencyTTL)); err != nil {
			return domain.Contribution{}, err
		}
	}

	event, err := s.contributionMadeRecord(input.ProjectID, actor.SubjectID, input.Amount)
	if err != nil {
		return domain.Contribution{}, err
	}
	contribution, err := s.projects.RecordContributionTx(ctx, ports.RecordContributionParams{
		ProjectID:   input.ProjectID,
		Contributor: actor.SubjectID,
		Amount:      input.Amount,
		At:          now,
	}, event, func() error {
		return s.transfer.Pull(ctx, actor.SubjectID, input.Amount)
	})
	if err != nil {
		return domain.Contribution{}, fmt.Errorf("record contribution: %w", err)
	}

	s.invalidateProgress(ctx, input.ProjectID)
	if err := s.FlushOutbox(ctx); err != nil {
		return domain.Contribution{}, err
	}
	if actor.IdempotencyKey != "" {
		payload, err := json.Marshal(contribution)
		if err != nil {
			return domain.Contribution{}, err
		}
		if err := s.idempotency.Complete(ctx, actor.IdempotencyKey, 201, payload, s.nowFn()); err != nil {
			return domain.Contribution{}, err
		}
	}
	return contribution, nil
}

// ClaimFunds settles a successful campaign: once the target is reached and
// the deadline has passed, the full raised amount is pushed to the
// configured beneficiary and the project goes terminal. A repeat claim on a
// settled project fails with ErrAlreadySettled rather than paying twice.
func (s *Service) ClaimFunds(ctx context.Context, actor Actor, projectID uint64) (domain.Project, error) {
	if err := s.ensureOwner(ctx, actor); err != nil {
		return domain.Project{}, err
	}

	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if !project.IsActive {
		return domain.Project{}, domain.ErrAlreadySettled
	}
	now := s.nowFn()
	if !project.TargetReached() || project.Open(now) {
		return domain.Project{}, fmt.Errorf("project %d: %w", projectID, domain.ErrCannotClaim)
	}

	event, err := s.fundsClaimedRecord(project, now)
	if err != nil {
		return domain.Project{}, err
	}
	settled, err := s.projects.SettleClaimTx(ctx, projectID, now, event, func() error {
		return s.transfer.Push(ctx, s.cfg.Beneficiary, project.RaisedAmount)
	})
	if err != nil {
		return domain.Project{}, fmt.Errorf("settle claim: %w", err)
	}

	s.invalidateProgress(ctx, projectID)
	if err := s.FlushOutbox(ctx); err != nil {
		return domain.Project{}, err
	}
	return settled, nil
}

// RepayContributors refunds one bounded batch of a failed campaign and
// reports whether the drain is complete. Each call pays at most
// RepayBatchSize contributors in insertion order starting from the persisted
// cursor, then advances the cursor; the last batch flips the project
// terminal. The batch commit is all-or-nothing: if any transfer fails the
// cursor does not move and the identical batch is retried on the next call,
// so across however many calls the drain takes, every contributor is paid
// exactly once.
func (s *Service) RepayContributors(ctx context.Context, actor Actor, projectID uint64) (domain.RefundBatch, error) {
	if err := s.ensureOwner(ctx, actor); err != nil {
		return domain.RefundBatch{}, err
	}

	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return domain.RefundBatch{}, err
	}
	if !project.IsActive {
		return domain.RefundBatch{}, domain.ErrAlreadySettled
	}
	now := s.nowFn()
	if project.Open(now) || project.TargetReached() {
		return domain.RefundBatch{}, domain.ErrCampaignStillActive
	}

	fromIndex := project.LastContributorIndex
	boundary := fromIndex + s.cfg.RepayBatchSize
	if boundary > project.ContributorCount {
		boundary = project.ContributorCount
	}
	done := boundary == project.ContributorCount

	payments := []domain.RefundPayment{}
	if boundary > fromIndex {
		rows, err := s.projects.ListContributions(ctx, projectID, fromIndex, boundary-fromIndex)
		if err != nil {
			return domain.RefundBatch{}, fmt.Errorf("list refund batch: %w", err)
		}
		payments = make([]domain.RefundPayment, 0, len(rows))
		for _, row := range rows {
			payments = append(payments, domain.RefundPayment{
				Contributor: row.Contributor,
				Amount:      row.Amount,
			})
		}
	}

	batch := domain.RefundBatch{
		ProjectID: projectID,
		FromIndex: fromIndex,
		ToIndex:   boundary,
		Payments:  payments,
		Done:      done,
	}
	events, err := s.refundBatchRecords(project, batch, now)
	if err != nil {
		return domain.RefundBatch{}, err
	}
	if _, err := s.projects.CommitRefundBatchTx(ctx, ports.RefundBatchParams{
		ProjectID: projectID,
		FromIndex: fromIndex,
		ToIndex:   boundary,
		Done:      done,
		At:        now,
	}, events, func() error {
		if len(payments) == 0 {
			return nil
		}
		return s.transfer.PushBatch(ctx, payments)
	}); err != nil {
		return domain.RefundBatch{}, fmt.Errorf("commit refund batch: %w", err)
	}

	s.invalidateProgress(ctx, projectID)
	if err := s.FlushOutbox(ctx); err != nil {
		return domain.RefundBatch{}, err
	}
	return batch, nil
}

func (s *Service) ensureOwner(ctx context.Context, actor Actor) error {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.ErrNotAuthorized
	}
	return s.gate.EnsureOwner(ctx, actor.SubjectID)
}

func (s *Service) invalidateProgress(ctx context.Context, projectID uint64) {
	if s.progress == nil {
		return
	}
	_ = s.progress.Invalidate(ctx, projectID)
}

func hashPayload(value interface{}) string {
	blob, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}
