package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type CampaignStartedPayload struct {
	ProjectID       uint64 `json:"project_id"`
	TargetAmount    uint64 `json:"target_amount"`
	DurationSeconds int64  `json:"duration_seconds"`
	Deadline        string `json:"deadline"`
}

type ContributionMadePayload struct {
	ProjectID   uint64 `json:"project_id"`
	Contributor string `json:"contributor"`
	Amount      uint64 `json:"amount"`
}

type FundsClaimedPayload struct {
	ProjectID uint64 `json:"project_id"`
	Amount    uint64 `json:"amount"`
	ClaimedAt string `json:"claimed_at"`
}

type RefundBatchProcessedPayload struct {
	ProjectID uint64 `json:"project_id"`
	FromIndex int    `json:"from_index"`
	ToIndex   int    `json:"to_index"`
	PaidCount int    `json:"paid_count"`
	Done      bool   `json:"done"`
}

type CampaignRefundedPayload struct {
	ProjectID        uint64 `json:"project_id"`
	RefundedAmount   uint64 `json:"refunded_amount"`
	ContributorCount int    `json:"contributor_count"`
	RefundedAt       string `json:"refunded_at"`
}
