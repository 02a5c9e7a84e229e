package postgres

import "time"

type projectModel struct {
	ProjectID            uint64    `gorm:"column:project_id;primaryKey"`
	TargetAmount         uint64    `gorm:"column:target_amount"`
	RaisedAmount         uint64    `gorm:"column:raised_amount"`
	Deadline             time.Time `gorm:"column:deadline"`
	IsActive             bool      `gorm:"column:is_active"`
	LastContributorIndex int       `gorm:"column:last_contributor_index"`
	ContributorCount     int       `gorm:"column:contributor_count"`
	CreatedAt            time.Time `gorm:"column:created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at"`
}

func (projectModel) TableName() string { return "projects" }

type contributionModel struct {
	ProjectID   uint64    `gorm:"column:project_id;primaryKey"`
	Contributor string    `gorm:"column:contributor;primaryKey"`
	Amount      uint64    `gorm:"column:amount"`
	Position    int       `gorm:"column:position"`
	FirstAt     time.Time `gorm:"column:first_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (contributionModel) TableName() string { return "contributions" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   []byte    `gorm:"column:response_body"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string { return "funding_idempotency" }

type outboxModel struct {
	RecordID   string     `gorm:"column:record_id;primaryKey"`
	EventClass string     `gorm:"column:event_class"`
	Envelope   string     `gorm:"column:envelope;type:jsonb"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	SentAt     *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string { return "funding_outbox" }
