package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
)

// ProgressCache is a read-through cache for the progress view. Get returns
// nil on a miss. Entries are invalidated whenever a project's totals change.
type ProgressCache interface {
	Get(ctx context.Context, projectID uint64) (*domain.Progress, error)
	Set(ctx context.Context, projectID uint64, progress domain.Progress, ttl time.Duration) error
	Invalidate(ctx context.Context, projectID uint64) error
}
