package models

import "time"

// TaskProfile is the structured description of a unit of work.
type TaskProfile struct {
	RequiredSkills []string `json:"required_skills" validate:"dive,no_null_bytes"`
	Sector         *string  `json:"sector,omitempty" validate:"omitempty,no_null_bytes"`
	Tags           []string `json:"tags" validate:"dive,no_null_bytes"`
	ManpowerNeeded int      `json:"manpower_needed" validate:"gte=0"`
	RolesRequired  []string `json:"roles_required" validate:"dive,no_null_bytes"`
	EstimatedTime  int      `json:"estimated_time" validate:"gte=0"` // hours
}

// Task is a stored task record. External ids are not unique across tasks.
type Task struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	TaskProfile
	Embedding    []float32 `json:"-"`
	HasEmbedding bool      `json:"has_embedding"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateTaskRequest is the JSON body of POST /v1/tasks.
type CreateTaskRequest struct {
	ExternalID  string `json:"external_id" validate:"required,max=255,no_null_bytes"`
	Description string `json:"description" validate:"required,no_null_bytes"`
}
