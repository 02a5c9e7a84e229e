package memory

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/ports"
)

// Repositories bundles the in-memory adapters used by unit tests and local
// runs. They honor the same transactional contract as the postgres adapter:
// a *Tx method stages its mutation, runs the interaction, and only then
// makes the change visible.
type Repositories struct {
	Projects    *ProjectRepository
	Idempotency *IdempotencyRepository
	Outbox      *OutboxRepository
}

func NewRepositories() *Repositories {
	outbox := &OutboxRepository{rows: map[string]ports.OutboxRecord{}, order: []string{}}
	return &Repositories{
		Projects:    &ProjectRepository{rows: map[uint64]*projectState{}, outbox: outbox},
		Idempotency: &IdempotencyRepository{rows: map[string]ports.IdempotencyRecord{}},
		Outbox:      outbox,
	}
}

type projectState struct {
	row          domain.Project
	byAddress    map[string]domain.Contribution
	contributors []string
}

type ProjectRepository struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*projectState
	outbox *OutboxRepository
}

func (r *ProjectRepository) CreateWithOutboxTx(_ context.Context, row domain.Project, event ports.OutboxRecord) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row.ProjectID = r.nextID
	r.nextID++
	r.rows[row.ProjectID] = &projectState{
		row:       row,
		byAddress: map[string]domain.Contribution{},
	}
	r.outbox.enqueue(stampProjectID(event, row.ProjectID))
	return row, nil
}

func (r *ProjectRepository) GetByID(_ context.Context, projectID uint64) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.rows[projectID]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	return state.row, nil
}

func (r *ProjectRepository) GetContribution(_ context.Context, projectID uint64, contributor string) (domain.Contribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.rows[projectID]
	if !ok {
		return domain.Contribution{}, domain.ErrNotFound
	}
	row, ok := state.byAddress[contributor]
	if !ok {
		return domain.Contribution{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *ProjectRepository) ListContributions(_ context.Context, projectID uint64, fromPosition, limit int) ([]domain.Contribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.rows[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if fromPosition < 0 {
		fromPosition = 0
	}
	out := make([]domain.Contribution, 0, limit)
	for i := fromPosition; i < len(state.contributors) && len(out) < limit; i++ {
		out = append(out, state.byAddress[state.contributors[i]])
	}
	return out, nil
}

func (r *ProjectRepository) RecordContributionTx(_ context.Context, params ports.RecordContributionParams, event ports.OutboxRecord, interact func() error) (domain.Contribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.rows[params.ProjectID]
	if !ok {
		return domain.Contribution{}, domain.ErrNotFound
	}

	staged, ok := state.byAddress[params.Contributor]
	firstTime := !ok
	if firstTime {
		staged = domain.Contribution{
			ProjectID:   params.ProjectID,
			Contributor: params.Contributor,
			Position:    len(state.contributors),
			FirstAt:     params.At,
		}
	}
	staged.Amount += params.Amount
	staged.UpdatedAt = params.At

	if interact != nil {
		if err := interact(); err != nil {
			return domain.Contribution{}, err
		}
	}

	if firstTime {
		state.contributors = append(state.contributors, params.Contributor)
		state.row.ContributorCount = len(state.contributors)
	}
	state.byAddress[params.Contributor] = staged
	state.row.RaisedAmount += params.Amount
	state.row.UpdatedAt = params.At
	r.outbox.enqueue(event)
	return staged, nil
}

func (r *ProjectRepository) SettleClaimTx(_ context.Context, projectID uint64, at time.Time, event ports.OutboxRecord, interact func() error) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.rows[projectID]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	if !state.row.IsActive {
		return domain.Project{}, domain.ErrAlreadySettled
	}

	if interact != nil {
		if err := interact(); err != nil {
			return domain.Project{}, err
		}
	}

	state.row.IsActive = false
	state.row.UpdatedAt = at
	r.outbox.enqueue(event)
	return state.row, nil
}

func (r *ProjectRepository) CommitRefundBatchTx(_ context.Context, params ports.RefundBatchParams, events []ports.OutboxRecord, interact func() error) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.rows[params.ProjectID]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	if !state.row.IsActive {
		return domain.Project{}, domain.ErrAlreadySettled
	}
	if state.row.LastContributorIndex != params.FromIndex {
		return domain.Project{}, domain.ErrConflict
	}
	if params.ToIndex < params.FromIndex || params.ToIndex > len(state.contributors) {
		return domain.Project{}, domain.ErrInvalidInput
	}

	if interact != nil {
		if err := interact(); err != nil {
			return domain.Project{}, err
		}
	}

	state.row.LastContributorIndex = params.ToIndex
	if params.Done {
		state.row.IsActive = false
	}
	state.row.UpdatedAt = params.At
	for _, event := range events {
		r.outbox.enqueue(event)
	}
	return state.row, nil
}

// stampProjectID rewrites the assigned id into an outbox record built before
// the id existed.
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

type IdempotencyRepository struct {
	mu   sync.Mutex
	rows map[string]ports.IdempotencyRecord
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok || now.After(row.ExpiresAt) {
		return nil, nil
	}
	copied := row
	return &copied, nil
}

func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[key]; ok {
		return domain.ErrIdempotencyConflict
	}
	r.rows[key] = ports.IdempotencyRecord{Key: key, RequestHash: requestHash, ExpiresAt: expiresAt}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok {
		return domain.ErrNotFound
	}
	row.ResponseCode = responseCode
	row.ResponseBody = responseBody
	r.rows[key] = row
	return nil
}

type OutboxRepository struct {
	mu    sync.Mutex
	rows  map[string]ports.OutboxRecord
	order []string
}

func (r *OutboxRepository) enqueue(record ports.OutboxRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[record.RecordID] = record
	r.order = append(r.order, record.RecordID)
}

func (r *OutboxRepository) Enqueue(_ context.Context, record ports.OutboxRecord) error {
	r.enqueue(record)
	return nil
}

func (r *OutboxRepository) ListPending(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.order {
		row := r.rows[id]
		if row.SentAt != nil {
			continue
		}
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, recordID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	row.SentAt = &at
	r.rows[recordID] = row
	return nil
}
