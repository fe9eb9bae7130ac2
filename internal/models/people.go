package models

import "time"

// EmbeddingDimensions is the length of every stored vector (VECTOR(1536) columns).
const EmbeddingDimensions = 1536

// PersonProfile is the structured description of a team member extracted from a resume.
type PersonProfile struct {
	PersonalSummary               string   `json:"personal_summary" validate:"no_null_bytes"`
	TechnicalSkills               []string `json:"technical_skills" validate:"dive,no_null_bytes"`
	Certifications                []string `json:"certifications" validate:"dive,no_null_bytes"`
	SoftSkills                    []string `json:"soft_skills" validate:"dive,no_null_bytes"`
	VocalAttributes               *string  `json:"vocal_attributes,omitempty" validate:"omitempty,no_null_bytes"`
	TaskDelegationRecommendations []string `json:"task_delegation_recommendations" validate:"dive,no_null_bytes"`
	SpecializationTaskCategories  []string `json:"specialization_task_categories" validate:"dive,no_null_bytes"`
	AdditionalObservations        []string `json:"additional_observations" validate:"dive,no_null_bytes"`
}

// Person is a stored person record.
type Person struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	PersonProfile
	Embedding    []float32 `json:"-"`
	HasEmbedding bool      `json:"has_embedding"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreatePersonRequest is the JSON body of POST /v1/people.
type CreatePersonRequest struct {
	ExternalID string `json:"external_id" validate:"required,max=255,no_null_bytes"`
	ResumeText string `json:"resume_text" validate:"required,no_null_bytes"`
}
