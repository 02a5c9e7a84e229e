package security

import (
	"context"
	"strings"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
)

// StaticOwnerGate authorizes exactly one configured subject for privileged
// operations. Ownership lives outside this service; the gate only checks.
type StaticOwnerGate struct {
	owner string
}

func NewStaticOwnerGate(owner string) *StaticOwnerGate {
	return &StaticOwnerGate{owner: strings.TrimSpace(owner)}
}

func (g *StaticOwnerGate) EnsureOwner(_ context.Context, subjectID string) error {
	if g.owner == "" || strings.TrimSpace(subjectID) != g.owner {
		return domain.ErrNotAuthorized
	}
	return nil
}
