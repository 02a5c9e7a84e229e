package application

import (
	"sync"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/ports"
)

type Config struct {
	ServiceName          string
	Beneficiary          string
	Token                domain.TokenInfo
	RepayBatchSize       int
	IdempotencyTTL       time.Duration
	ProgressCacheTTL     time.Duration
	OutboxFlushBatchSize int
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

type StartProjectInput struct {
	TargetAmount uint64
	Duration     time.Duration
}

type ContributeInput struct {
	ProjectID uint64
	Amount    uint64
}

type Service struct {
	cfg         Config
	projects    ports.ProjectRepository
	idempotency ports.IdempotencyRepository
	outbox      ports.OutboxRepository

	transfer ports.TokenTransfer
	gate     ports.OwnerGate
	progress ports.ProgressCache

	domainEvents ports.DomainPublisher
	analytics    ports.AnalyticsPublisher
	nowFn        func() time.Time

	// Per-project serialization for contribute/claim/repay. The repositories
	// commit atomically on their own, but cursor arithmetic and the terminal
	// flag assume operations against one project never interleave.
	locksMu sync.Mutex
	locks   map[uint64]*sync.Mutex
}

type Dependencies struct {
	Config       Config
	Projects     ports.ProjectRepository
	Idempotency  ports.IdempotencyRepository
	Outbox       ports.OutboxRepository
	Transfer     ports.TokenTransfer
	Gate         ports.OwnerGate
	Progress     ports.ProgressCache
	DomainEvents ports.DomainPublisher
	Analytics    ports.AnalyticsPublisher
	Clock        func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "M15-Campaign-Funding-Service"
	}
	if cfg.RepayBatchSize <= 0 {
		cfg.RepayBatchSize = domain.MaxRepayBatch
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.ProgressCacheTTL <= 0 {
		cfg.ProgressCacheTTL = 5 * time.Second
	}
	if cfg.OutboxFlushBatchSize <= 0 {
		cfg.OutboxFlushBatchSize = 100
	}
	if cfg.Token.Symbol == "" {
		cfg.Token.Symbol = "VFT"
	}
	nowFn := deps.Clock
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		cfg:          cfg,
		projects:     deps.Projects,
		idempotency:  deps.Idempotency,
		outbox:       deps.Outbox,
		transfer:     deps.Transfer,
		gate:         deps.Gate,
		progress:     deps.Progress,
		domainEvents: deps.DomainEvents,
		analytics:    deps.Analytics,
		nowFn:        nowFn,
		locks:        map[uint64]*sync.Mutex{},
	}
}

func (s *Service) projectLock(projectID uint64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[projectID] = lock
	}
	return lock
}
