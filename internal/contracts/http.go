package contracts

type StartProjectRequest struct {
	TargetAmount    uint64 `json:"target_amount"`
	DurationSeconds int64  `json:"duration_seconds"`
}

type ContributeRequest struct {
	Amount uint64 `json:"amount"`
}

type ProjectResponse struct {
	ProjectID            uint64 `json:"project_id"`
	TargetAmount         uint64 `json:"target_amount"`
	RaisedAmount         uint64 `json:"raised_amount"`
	Deadline             string `json:"deadline"`
	IsActive             bool   `json:"is_active"`
	LastContributorIndex int    `json:"last_contributor_index"`
	ContributorCount     int    `json:"contributor_count"`
}

type ContributionResponse struct {
	ProjectID   uint64 `json:"project_id"`
	Contributor string `json:"contributor"`
	Amount      uint64 `json:"amount"`
	Position    int    `json:"position"`
}

type ProgressResponse struct {
	ProjectID    uint64 `json:"project_id"`
	RaisedAmount uint64 `json:"raised_amount"`
	TargetAmount uint64 `json:"target_amount"`
}

type RepayResponse struct {
	ProjectID uint64 `json:"project_id"`
	FromIndex int    `json:"from_index"`
	ToIndex   int    `json:"to_index"`
	PaidCount int    `json:"paid_count"`
	Done      bool   `json:"done"`
}

type TokenResponse struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}
