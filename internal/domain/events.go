package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
	CanonicalEventClassOps           = "ops"
)

const (
	EventCampaignStarted      = "campaign.started"
	EventContributionMade     = "campaign.contribution_made"
	EventFundsClaimed         = "campaign.funds_claimed"
	EventRefundBatchProcessed = "campaign.refund_batch_processed"
	EventCampaignRefunded     = "campaign.refunded"
)

func IsCanonicalInputEvent(string) bool { return false }

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventCampaignStarted, EventContributionMade, EventFundsClaimed,
		EventRefundBatchProcessed, EventCampaignRefunded:
		return true
	default:
		return false
	}
}

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventFundsClaimed, EventCampaignRefunded:
		return CanonicalEventClassDomain
	case EventCampaignStarted, EventContributionMade, EventRefundBatchProcessed:
		return CanonicalEventClassAnalyticsOnly
	default:
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	if IsCanonicalEmittedEvent(eventType) {
		return "data.project_id"
	}
	return ""
}
