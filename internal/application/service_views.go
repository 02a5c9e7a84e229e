package application

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
)

// GetProject returns the full committed project record, terminal or not.
func (s *Service) GetProject(ctx context.Context, projectID uint64) (domain.Project, error) {
	return s.projects.GetByID(ctx, projectID)
}

// GetProgress returns the (raised, target) pair, read through the cache.
func (s *Service) GetProgress(ctx context.Context, projectID uint64) (domain.Progress, error) {
	if s.progress != nil {
		if cached, err := s.progress.Get(ctx, projectID); err == nil && cached != nil {
			return *cached, nil
		}
	}
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return domain.Progress{}, err
	}
	progress := domain.Progress{
		RaisedAmount: project.RaisedAmount,
		TargetAmount: project.TargetAmount,
	}
	if s.progress != nil {
		_ = s.progress.Set(ctx, projectID, progress, s.cfg.ProgressCacheTTL)
	}
	return progress, nil
}

// GetDeadline returns the project's fixed deadline.
func (s *Service) GetDeadline(ctx context.Context, projectID uint64) (time.Time, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return time.Time{}, err
	}
	return project.Deadline, nil
}

// IsActive reports whether the project has not yet reached terminal state.
func (s *Service) IsActive(ctx context.Context, projectID uint64) (bool, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return false, err
	}
	return project.IsActive, nil
}

// GetContribution returns the stored cumulative amount for one contributor.
// Refunds never zero these records; a settled project still reports what
// each contributor had staked.
func (s *Service) GetContribution(ctx context.Context, projectID uint64, contributor string) (domain.Contribution, error) {
	return s.projects.GetContribution(ctx, projectID, contributor)
}

// TokenIdentity returns the configured asset all campaigns settle in.
func (s *Service) TokenIdentity() domain.TokenInfo {
	return s.cfg.Token
}
