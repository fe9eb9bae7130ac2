package models

import "time"

// Delegation is the stored outcome of matching one task. There is at most one per task.
type Delegation struct {
	TaskID    int64     `json:"task_id"`
	MemberIDs []string  `json:"member_ids"`
	AgentIDs  []string  `json:"agent_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DelegationChoice is what the decision model returns.
// BestCombination keys are "member_<external_id>" or "agent_<external_id>"; values are justifications.
type DelegationChoice struct {
	BestCombination map[string]string `json:"best_combination"`
	Reasoning       string            `json:"reasoning" validate:"no_null_bytes"`
}

// DelegationDecision is the result of delegating a task.
type DelegationDecision struct {
	TaskID          int64             `json:"task_id"`
	TaskExternalID  string            `json:"task_external_id"`
	PersonIDs       []string          `json:"person_ids"`
	AgentIDs        []string          `json:"agent_ids"`
	BestCombination map[string]string `json:"best_combination"`
	Reasoning       string            `json:"reasoning"`
}

// Match is one nearest-neighbour hit. Similarity is 1 minus the cosine distance.
type Match struct {
	ExternalID string  `json:"external_id"`
	Similarity float64 `json:"similarity"`
}

// ListParams are the paging query parameters accepted by list endpoints.
type ListParams struct {
	Limit  int `form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset int `form:"offset" validate:"omitempty,min=0"`
}
