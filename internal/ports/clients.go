package ports

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
)

// TokenTransfer moves asset value between external holders and this
// service's custody. Every method either fully succeeds or returns an error;
// a silent partial transfer is a contract violation on the adapter's side.
type TokenTransfer interface {
	// Pull debits from and credits custody. Fails (and propagates) when the
	// holder cannot cover amount.
	Pull(ctx context.Context, from string, amount uint64) error
	// Push credits to from custody. Fails when custody cannot cover amount.
	Push(ctx context.Context, to string, amount uint64) error
	// PushBatch applies all payments from custody or none of them. The repay
	// path relies on this to keep a refund batch all-or-nothing.
	PushBatch(ctx context.Context, payments []domain.RefundPayment) error
}

// OwnerGate is the single-owner capability check gating privileged
// operations. It is an external collaborator; this service never manages
// ownership itself.
type OwnerGate interface {
	// EnsureOwner returns domain.ErrNotAuthorized when subjectID is not the
	// current owner.
	EnsureOwner(ctx context.Context, subjectID string) error
}
