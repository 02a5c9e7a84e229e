package treasury

import (
	"context"
	"fmt"
	"sync"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
)

// MemoryVault is a token transfer adapter backed by an in-process balance
// table. Unit tests use it to observe exact custody movement; a transfer
// either fully applies or returns an error with balances untouched.
type MemoryVault struct {
	mu       sync.Mutex
	balances map[string]uint64
	custody  uint64

	// FailPushesTo makes pushes to the named holder fail until cleared,
	// simulating a rejected transfer mid-batch.
	failPushesTo string
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{balances: map[string]uint64{}}
}

// Mint credits a holder out of thin air. Test setup only.
func (v *MemoryVault) Mint(holder string, amount uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balances[holder] += amount
}

func (v *MemoryVault) FailPushesTo(holder string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failPushesTo = holder
}

func (v *MemoryVault) ClearFailures() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failPushesTo = ""
}

func (v *MemoryVault) BalanceOf(holder string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[holder]
}

func (v *MemoryVault) Custody() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.custody
}

func (v *MemoryVault) Pull(_ context.Context, from string, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.balances[from] < amount {
		return fmt.Errorf("pull %d from %s: %w", amount, from, domain.ErrInsufficientFunds)
	}
	v.balances[from] -= amount
	v.custody += amount
	return nil
}

func (v *MemoryVault) Push(_ context.Context, to string, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pushLocked(to, amount)
}

func (v *MemoryVault) PushBatch(_ context.Context, payments []domain.RefundPayment) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	var total uint64
	for _, p := range payments {
		if p.Contributor == v.failPushesTo && v.failPushesTo != "" {
			return fmt.Errorf("push to %s rejected", p.Contributor)
		}
		total += p.Amount
	}
	if v.custody < total {
		return fmt.Errorf("push batch of %d: %w", total, domain.ErrInsufficientFunds)
	}
	for _, p := range payments {
		if err := v.pushLocked(p.Contributor, p.Amount); err != nil {
			return err
		}
	}
	return nil
}

func (v *MemoryVault) pushLocked(to string, amount uint64) error {
	if to == v.failPushesTo && v.failPushesTo != "" {
		return fmt.Errorf("push to %s rejected", to)
	}
	if v.custody < amount {
		return fmt.Errorf("push %d to %s: %w", amount, to, domain.ErrInsufficientFunds)
	}
	v.custody -= amount
	v.balances[to] += amount
	return nil
}
