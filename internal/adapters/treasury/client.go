package treasury

import (
	"context"
	"log/slog"

	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
)

// Client fronts the treasury service that actually moves token value.
// Until the treasury gRPC contract lands this adapter acknowledges transfers
// and logs them, mirroring how sibling services stub their internal clients.
type Client struct {
	endpoint string
	logger   *slog.Logger
}

func NewClient(endpoint string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{endpoint: endpoint, logger: logger}
}

func (c *Client) Pull(ctx context.Context, from string, amount uint64) error {
	c.logger.InfoContext(ctx, "treasury pull",
		"module", "treasury",
		"layer", "adapter",
		"operation", "pull",
		"outcome", "success",
		"holder", from,
		"amount", amount,
	)
	return nil
}

func (c *Client) Push(ctx context.Context, to string, amount uint64) error {
	c.logger.InfoContext(ctx, "treasury push",
		"module", "treasury",
		"layer", "adapter",
		"operation", "push",
		"outcome", "success",
		"holder", to,
		"amount", amount,
	)
	return nil
}

func (c *Client) PushBatch(ctx context.Context, payments []domain.RefundPayment) error {
	var total uint64
	for _, p := range payments {
		total += p.Amount
	}
	c.logger.InfoContext(ctx, "treasury push batch",
		"module", "treasury",
		"layer", "adapter",
		"operation", "push_batch",
		"outcome", "success",
		"payment_count", len(payments),
		"total_amount", total,
	)
	return nil
}
