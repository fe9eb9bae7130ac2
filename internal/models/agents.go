package models

import "time"

// AgentProfile is the structured description of an automated agent.
type AgentProfile struct {
	Tags                []string `json:"tags" validate:"dive,no_null_bytes"`
	Skills              []string `json:"skills" validate:"dive,no_null_bytes"`
	Capabilities        []string `json:"capabilities" validate:"dive,no_null_bytes"`
	CoreFunctionalities []string `json:"core_functionalities" validate:"dive,no_null_bytes"`
}

// Agent is a stored agent record.
type Agent struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	AgentProfile
	Embedding    []float32 `json:"-"`
	HasEmbedding bool      `json:"has_embedding"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateAgentRequest is the JSON body of POST /v1/agents.
type CreateAgentRequest struct {
	ExternalID  string `json:"external_id" validate:"required,max=255,no_null_bytes"`
	Description string `json:"description" validate:"required,no_null_bytes"`
}
