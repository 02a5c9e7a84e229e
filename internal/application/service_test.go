package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	cacheadapter "github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/adapters/events"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/adapters/treasury"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
)

const (
	ownerSubject = "owner-1"
	beneficiary  = "beneficiary-1"
)

type fixture struct {
	svc    *application.Service
	vault  *treasury.MemoryVault
	repos  *memory.Repositories
	events *eventadapter.MemoryDomainPublisher
	now    time.Time
}

func newFixture(cfg application.Config) *fixture {
	f := &fixture{
		vault:  treasury.NewMemoryVault(),
		repos:  memory.NewRepositories(),
		events: eventadapter.NewMemoryDomainPublisher(),
		now:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if cfg.Beneficiary == "" {
		cfg.Beneficiary = beneficiary
	}
	f.svc = application.NewService(application.Dependencies{
		Config:       cfg,
		Projects:     f.repos.Projects,
		Idempotency:  f.repos.Idempotency,
		Outbox:       f.repos.Outbox,
		Transfer:     f.vault,
		Gate:         security.NewStaticOwnerGate(ownerSubject),
		Progress:     cacheadapter.NewMemoryProgressCache(),
		DomainEvents: f.events,
		Analytics:    eventadapter.NewMemoryAnalyticsPublisher(),
		Clock:        func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func owner() application.Actor {
	return application.Actor{SubjectID: ownerSubject, Role: "admin"}
}

func backer(id string) application.Actor {
	return application.Actor{SubjectID: id}
}

func (f *fixture) startProject(t *testing.T, target uint64, duration time.Duration) domain.Project {
	t.Helper()
	project, err := f.svc.StartProject(context.Background(), owner(), application.StartProjectInput{
		TargetAmount: target,
		Duration:     duration,
	})
	if err != nil {
		t.Fatalf("start project: %v", err)
	}
	return project
}

func (f *fixture) contribute(t *testing.T, projectID uint64, who string, amount uint64) domain.Contribution {
	t.Helper()
	f.vault.Mint(who, amount)
	contribution, err := f.svc.Contribute(context.Background(), backer(who), application.ContributeInput{
		ProjectID: projectID,
		Amount:    amount,
	})
	if err != nil {
		t.Fatalf("contribute %d from %s: %v", amount, who, err)
	}
	return contribution
}

func TestStartProjectAssignsSequentialIDs(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})

	for want := uint64(0); want < 3; want++ {
		project := f.startProject(t, 1000, time.Hour)
		if project.ProjectID != want {
			t.Fatalf("expected project id %d, got %d", want, project.ProjectID)
		}
		if !project.IsActive {
			t.Fatalf("new project must be active")
		}
		if project.LastContributorIndex != 0 {
			t.Fatalf("new project cursor must be 0, got %d", project.LastContributorIndex)
		}
		if !project.Deadline.Equal(f.now.Add(time.Hour)) {
			t.Fatalf("deadline mismatch: %v", project.Deadline)
		}
	}
}

func TestStartProjectRequiresOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})

	_, err := f.svc.StartProject(context.Background(), backer("intruder"), application.StartProjectInput{
		TargetAmount: 1000,
		Duration:     time.Hour,
	})
	if !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestContributeAccumulatesAndKeepsOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})
	project := f.startProject(t, 1000, time.Hour)

	f.contribute(t, project.ProjectID, "alice", 400)
	f.contribute(t, project.ProjectID, "bob", 300)
	repeat := f.contribute(t, project.ProjectID, "alice", 100)

	if repeat.Amount != 500 {
		t.Fatalf("expected alice's cumulative amount 500, got %d", repeat.Amount)
	}
	if repeat.Position != 0 {
		t.Fatalf("alice's position must stay 0, got %d", repeat.Position)
	}

	updated, err := f.svc.GetProject(context.Background(), project.ProjectID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if updated.RaisedAmount != 800 {
		t.Fatalf("expected raised 800, got %d", updated.RaisedAmount)
	}
	if updated.ContributorCount != 2 {
		t.Fatalf("expected 2 distinct contributors, got %d", updated.ContributorCount)
	}
	if f.vault.Custody() != 800 {
		t.Fatalf("expected custody 800, got %d", f.vault.Custody())
	}

	bob, err := f.svc.GetContribution(context.Background(), project.ProjectID, "bob")
	if err != nil {
		t.Fatalf("get bob's contribution: %v", err)
	}
	if bob.Amount != 300 || bob.Position != 1 {
		t.Fatalf("unexpected bob record: %+v", bob)
	}
}

func TestContributeZeroAmountFails(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})
	project := f.startProject(t, 1000, time.Hour)

	_, err := f.svc.Contribute(context.Background(), backer("alice"), application.ContributeInput{
		ProjectID: project.ProjectID,
		Amount:    0,
	})
	if !errors.Is(err, domain.ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
}

func TestContributeAfterDeadlineFails(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})
	project := f.startProject(t, 1000, time.Hour)

	// The boundary itself is closed: now == deadline rejects.
	f.advance(time.Hour)
	f.vault.Mint("alice", 100)
	_, err := f.svc.Contribute(context.Background(), backer("alice"), application.ContributeInput{
		ProjectID: project.ProjectID,
		Amount:    100,
	})
	if !errors.Is(err, domain.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestContributeUnknownProjectFails(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})

	_, err := f.svc.Contribute(context.Background(), backer("alice"), application.ContributeInput{
		ProjectID: 99,
		Amount:    100,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestContributePullFailureCommitsNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})
	project := f.startProject(t, 1000, time.Hour)

	// alice holds nothing, so the pull must fail and roll everything back.
	_, err := f.svc.Contribute(context.Background(), backer("alice"), application.ContributeInput{
		ProjectID: project.ProjectID,
		Amount:    100,
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	updated, err := f.svc.GetProject(context.Background(), project.ProjectID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if updated.RaisedAmount != 0 || updated.ContributorCount != 0 {
		t.Fatalf("failed contribution leaked state: %+v", updated)
	}
	if _, err := f.svc.GetContribution(context.Background(), project.ProjectID, "alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected no contribution record, got %v", err)
	}
}

func TestContributeIdempotencyReplay(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})
	project := f.startProject(t, 1000, time.Hour)

	f.vault.Mint("alice", 1000)
	actor := backer("alice")
	actor.IdempotencyKey = "contrib:alice:1"
	input := application.ContributeInput{ProjectID: project.ProjectID, Amount: 400}

	first, err := f.svc.Contribute(context.Background(), actor, input)
	if err != nil {
		t.Fatalf("first contribute: %v", err)
	}
	second, err := f.svc.Contribute(context.Background(), actor, input)
	if err != nil {
		t.Fatalf("replayed contribute: %v", err)
	}
	if first.Amount != second.Amount {
		t.Fatalf("replay must return the cached record")
	}
	if f.vault.Custody() != 400 {
		t.Fatalf("replay must not pull twice, custody %d", f.vault.Custody())
	}

	// Same key with different payload is a conflict.
	input.Amount = 500
	if _, err := f.svc.Contribute(context.Background(), actor, input); !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
	}
}

func TestClaimFunds(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})
	project := f.startProject(t, 700, time.Hour)

	f.contribute(t, project.ProjectID, "alice", 400)
	f.contribute(t, project.ProjectID, "bob", 300)

	// Before the deadline the claim is premature even with the target met.
	if _, err := f.svc.ClaimFunds(context.Background(), owner(), project.ProjectID); !errors.Is(err, domain.ErrCannotClaim) {
		t.Fatalf("expected ErrCannotClaim before deadline, got %v", err)
	}

	f.advance(time.Hour)
	settled, err := f.svc.ClaimFunds(context.Background(), owner(), project.ProjectID)
	if err != nil {
		t.Fatalf("claim funds: %v", err)
	}
	if settled.IsActive {
		t.Fatalf("claimed project must be terminal")
	}
	if got := f.vault.BalanceOf(beneficiary); got != 700 {
		t.Fatalf("beneficiary expected 700, got %d", got)
	}

	// The terminal guard blocks a second claim; the beneficiary is not paid twice.
	if _, err := f.svc.ClaimFunds(context.Background(), owner(), project.ProjectID); !errors.Is(err, domain.ErrAlreadySettled) {
		t.Fatalf("expected ErrAlreadySettled on second claim, got %v", err)
	}
	if got := f.vault.BalanceOf(beneficiary); got != 700 {
		t.Fatalf("second claim must not move funds, beneficiary has %d", got)
	}
}

func TestClaimBelowTargetFails(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})
	project := f.startProject(t, 1000, time.Hour)

	f.contribute(t, project.ProjectID, "alice", 400)
	f.advance(time.Hour)
	if _, err := f.svc.ClaimFunds(context.Background(), owner(), project.ProjectID); !errors.Is(err, domain.ErrCannotClaim) {
		t.Fatalf("expected ErrCannotClaim below target, got %v", err)
	}
}

func TestRepayPreconditions(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})
	project := f.startProject(t, 1000, time.Hour)
	f.contribute(t, project.ProjectID, "alice", 400)

	// Still running: deadline not passed.
	if _, err := f.svc.RepayContributors(context.Background(), owner(), project.ProjectID); !errors.Is(err, domain.ErrCampaignStillActive) {
		t.Fatalf("expected ErrCampaignStillActive before deadline, got %v", err)
	}

	// Target reached: refund never applies.
	funded := f.startProject(t, 300, time.Hour)
	f.contribute(t, funded.ProjectID, "bob", 300)
	f.advance(time.Hour)
	if _, err := f.svc.RepayContributors(context.Background(), owner(), funded.ProjectID); !errors.Is(err, domain.ErrCampaignStillActive) {
		t.Fatalf("expected ErrCampaignStillActive with target met, got %v", err)
	}

	// Non-owner is rejected by the gate.
	if _, err := f.svc.RepayContributors(context.Background(), backer("intruder"), project.ProjectID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestRepayDrainsInBatchesExactlyOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{RepayBatchSize: 500})
	project := f.startProject(t, 10_000_000, time.Hour)

	const contributors = 1200
	for i := 0; i < contributors; i++ {
		f.contribute(t, project.ProjectID, fmt.Sprintf("backer-%04d", i), uint64(i+1))
	}
	f.advance(time.Hour)

	wantBounds := [][2]int{{0, 500}, {500, 1000}, {1000, 1200}}
	for call, bounds := range wantBounds {
		batch, err := f.svc.RepayContributors(context.Background(), owner(), project.ProjectID)
		if err != nil {
			t.Fatalf("repay call %d: %v", call+1, err)
		}
		if batch.FromIndex != bounds[0] || batch.ToIndex != bounds[1] {
			t.Fatalf("call %d expected [%d,%d), got [%d,%d)", call+1, bounds[0], bounds[1], batch.FromIndex, batch.ToIndex)
		}
		if wantDone := call == len(wantBounds)-1; batch.Done != wantDone {
			t.Fatalf("call %d done=%v, want %v", call+1, batch.Done, wantDone)
		}
	}

	// Every contributor got back exactly what they put in, custody is empty,
	// and the project is terminal.
	for i := 0; i < contributors; i++ {
		who := fmt.Sprintf("backer-%04d", i)
		if got := f.vault.BalanceOf(who); got != uint64(i+1) {
			t.Fatalf("%s expected refund %d, got %d", who, i+1, got)
		}
	}
	if f.vault.Custody() != 0 {
		t.Fatalf("custody must be drained, got %d", f.vault.Custody())
	}
	updated, err := f.svc.GetProject(context.Background(), project.ProjectID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if updated.IsActive || updated.LastContributorIndex != contributors {
		t.Fatalf("unexpected terminal state: %+v", updated)
	}

	// A drained project cannot be repaid again.
	if _, err := f.svc.RepayContributors(context.Background(), owner(), project.ProjectID); !errors.Is(err, domain.ErrAlreadySettled) {
		t.Fatalf("expected ErrAlreadySettled after drain, got %v", err)
	}
}

func TestRepayFailedBatchRetriesWithoutDoublePay(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{RepayBatchSize: 2})
	project := f.startProject(t, 10_000, time.Hour)

	f.contribute(t, project.ProjectID, "alice", 100)
	f.contribute(t, project.ProjectID, "bob", 200)
	f.contribute(t, project.ProjectID, "carol", 300)
	f.advance(time.Hour)

	// First batch succeeds: alice and bob.
	batch, err := f.svc.RepayContributors(context.Background(), owner(), project.ProjectID)
	if err != nil {
		t.Fatalf("first repay: %v", err)
	}
	if batch.Done {
		t.Fatalf("first batch must not finish the drain")
	}

	// Second batch fails mid-transfer; nothing commits.
	f.vault.FailPushesTo("carol")
	if _, err := f.svc.RepayContributors(context.Background(), owner(), project.ProjectID); err == nil {
		t.Fatalf("expected second repay to fail")
	}
	stuck, err := f.svc.GetProject(context.Background(), project.ProjectID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if stuck.LastContributorIndex != 2 || !stuck.IsActive {
		t.Fatalf("failed batch must not advance the cursor: %+v", stuck)
	}

	// Retry replays the identical batch and completes the drain.
	f.vault.ClearFailures()
	batch, err = f.svc.RepayContributors(context.Background(), owner(), project.ProjectID)
	if err != nil {
		t.Fatalf("retried repay: %v", err)
	}
	if !batch.Done || batch.FromIndex != 2 || batch.ToIndex != 3 {
		t.Fatalf("unexpected retried batch: %+v", batch)
	}

	if f.vault.BalanceOf("alice") != 100 || f.vault.BalanceOf("bob") != 200 || f.vault.BalanceOf("carol") != 300 {
		t.Fatalf("refunds must pay each contributor exactly once: alice=%d bob=%d carol=%d",
			f.vault.BalanceOf("alice"), f.vault.BalanceOf("bob"), f.vault.BalanceOf("carol"))
	}
	if f.vault.Custody() != 0 {
		t.Fatalf("custody must be drained, got %d", f.vault.Custody())
	}
}

func TestRepayExampleScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})
	project := f.startProject(t, 1000, 100*time.Second)

	f.contribute(t, project.ProjectID, "A", 400)
	f.contribute(t, project.ProjectID, "B", 300)
	f.advance(100 * time.Second)

	batch, err := f.svc.RepayContributors(context.Background(), owner(), project.ProjectID)
	if err != nil {
		t.Fatalf("repay: %v", err)
	}
	if !batch.Done {
		t.Fatalf("single batch must drain both contributors")
	}
	if f.vault.BalanceOf("A") != 400 || f.vault.BalanceOf("B") != 300 {
		t.Fatalf("expected A=400 B=300, got A=%d B=%d", f.vault.BalanceOf("A"), f.vault.BalanceOf("B"))
	}
	active, err := f.svc.IsActive(context.Background(), project.ProjectID)
	if err != nil {
		t.Fatalf("is active: %v", err)
	}
	if active {
		t.Fatalf("drained project must be inactive")
	}

	// Contributions stay queryable after settlement; refunds do not zero them.
	a, err := f.svc.GetContribution(context.Background(), project.ProjectID, "A")
	if err != nil {
		t.Fatalf("get contribution: %v", err)
	}
	if a.Amount != 400 {
		t.Fatalf("stored contribution must survive the refund, got %d", a.Amount)
	}
}

func TestProgressViewTracksContributions(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})
	project := f.startProject(t, 1000, time.Hour)

	f.contribute(t, project.ProjectID, "alice", 250)
	progress, err := f.svc.GetProgress(context.Background(), project.ProjectID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if progress.RaisedAmount != 250 || progress.TargetAmount != 1000 {
		t.Fatalf("unexpected progress: %+v", progress)
	}

	// The cache entry is invalidated by the next contribution.
	f.contribute(t, project.ProjectID, "bob", 150)
	progress, err = f.svc.GetProgress(context.Background(), project.ProjectID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if progress.RaisedAmount != 400 {
		t.Fatalf("expected raised 400 after invalidation, got %d", progress.RaisedAmount)
	}
}

func TestZeroDurationProjectIsImmediatelyClosed(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})
	project := f.startProject(t, 1000, 0)

	f.vault.Mint("alice", 100)
	_, err := f.svc.Contribute(context.Background(), backer("alice"), application.ContributeInput{
		ProjectID: project.ProjectID,
		Amount:    100,
	})
	if !errors.Is(err, domain.ErrClosed) {
		t.Fatalf("expected ErrClosed for zero-duration project, got %v", err)
	}
}

func TestZeroTargetProjectIsClaimableOnceExpired(t *testing.T) {
	t.Parallel()
	f := newFixture(application.Config{})
	project := f.startProject(t, 0, 0)

	settled, err := f.svc.ClaimFunds(context.Background(), owner(), project.ProjectID)
	if err != nil {
		t.Fatalf("claim zero-target project: %v", err)
	}
	if settled.IsActive {
		t.Fatalf("claimed project must be terminal")
	}
}
