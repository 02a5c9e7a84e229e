package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
)

// RecordContributionParams carries one contribution delta. Amount is the
// increment for this call, not the contributor's cumulative total.
type RecordContributionParams struct {
	ProjectID   uint64
	Contributor string
	Amount      uint64
	At          time.Time
}

// RefundBatchParams commits one refund slice. FromIndex must equal the
// project's current cursor or the commit fails with domain.ErrConflict;
// batches therefore never overlap and never skip.
type RefundBatchParams struct {
	ProjectID uint64
	FromIndex int
	ToIndex   int
	Done      bool
	At        time.Time
}

// ProjectRepository owns all project records and their embedded contribution
// ledgers. Ids are assigned sequentially at creation and never reused;
// terminal records stay queryable forever.
//
// The *Tx methods commit the entity mutation and the given outbox records in
// one transaction, invoking interact (the external token transfer) inside
// it. If interact fails the whole transaction aborts and no state change is
// visible, which is what makes a failed refund batch safely retryable.
type ProjectRepository interface {
	CreateWithOutboxTx(ctx context.Context, row domain.Project, event OutboxRecord) (domain.Project, error)
	GetByID(ctx context.Context, projectID uint64) (domain.Project, error)
	GetContribution(ctx context.Context, projectID uint64, contributor string) (domain.Contribution, error)
	// ListContributions returns contributions ordered by Position, starting
	// at fromPosition, at most limit rows. The order is the fixed insertion
	// order of first contributions and is reproducible across calls.
	ListContributions(ctx context.Context, projectID uint64, fromPosition, limit int) ([]domain.Contribution, error)

	RecordContributionTx(ctx context.Context, params RecordContributionParams, event OutboxRecord, interact func() error) (domain.Contribution, error)
	SettleClaimTx(ctx context.Context, projectID uint64, at time.Time, event OutboxRecord, interact func() error) (domain.Project, error)
	CommitRefundBatchTx(ctx context.Context, params RefundBatchParams, events []OutboxRecord, interact func() error) (domain.Project, error)
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}

type OutboxRecord struct {
	RecordID   string
	EventClass string
	Envelope   contracts.EventEnvelope
	CreatedAt  time.Time
	SentAt     *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
}
