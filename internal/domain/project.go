package domain

import "time"

// MaxRepayBatch bounds how many contributors a single refund call may pay.
// Refunding a large campaign is done as a sequence of batches that resume
// from the persisted cursor, so every call does bounded work.
const MaxRepayBatch = 500

// Project is one funding campaign. TargetAmount and Deadline are fixed at
// creation. RaisedAmount is maintained incrementally and always equals the
// sum of the campaign's contribution amounts. IsActive is terminal: once
// false it never becomes true again. LastContributorIndex is the refund
// cursor; it only advances and is used by nothing but the repay path.
type Project struct {
	ProjectID            uint64
	TargetAmount         uint64
	RaisedAmount         uint64
	Deadline             time.Time
	IsActive             bool
	LastContributorIndex int
	ContributorCount     int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Open reports whether the campaign still accepts contributions at now.
func (p Project) Open(now time.Time) bool {
	return now.Before(p.Deadline)
}

// TargetReached reports whether the fundraising goal has been met.
func (p Project) TargetReached() bool {
	return p.RaisedAmount >= p.TargetAmount
}

// Contribution is one contributor's cumulative stake in a project.
// Position is the contributor's index in the project's insertion-ordered
// contributor sequence; it never changes after the first contribution and
// drives deterministic refund ordering.
type Contribution struct {
	ProjectID   uint64
	Contributor string
	Amount      uint64
	Position    int
	FirstAt     time.Time
	UpdatedAt   time.Time
}

// RefundPayment is one contributor payout inside a refund batch.
type RefundPayment struct {
	Contributor string
	Amount      uint64
}

// RefundBatch describes one committed slice of a project's refund drain.
type RefundBatch struct {
	ProjectID uint64
	FromIndex int
	ToIndex   int
	Payments  []RefundPayment
	Done      bool
}

// Progress is the (raised, target) pair exposed by the progress view.
type Progress struct {
	RaisedAmount uint64
	TargetAmount uint64
}

// TokenInfo identifies the single fungible asset all campaigns settle in.
type TokenInfo struct {
	Symbol   string
	Address  string
	Decimals int
}
