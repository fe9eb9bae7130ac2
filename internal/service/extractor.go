package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/huberrors"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/validation"
)

// Candidate id prefixes the decision model uses to refer to people and agents.
const (
	MemberPrefix = "member_"
	AgentPrefix  = "agent_"
)

// TaskBrief is the task as shown to the decision model.
type TaskBrief struct {
	ExternalID string `json:"external_id"`
	models.TaskProfile
}

// PersonCandidate is a nearest person as shown to the decision model. It carries no embedding.
type PersonCandidate struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
	models.PersonProfile
}

// AgentCandidate is a nearest agent as shown to the decision model. It carries no embedding.
type AgentCandidate struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
	models.AgentProfile
}

// DelegationContext is the input of the decision call.
type DelegationContext struct {
	TaskID  int64
	Task    TaskBrief
	Members []PersonCandidate
	Agents  []AgentCandidate
}

// Extractor turns unstructured input into typed records with one generative model call.
// It never retries; callers wrap it with retry.Do.
type Extractor struct {
	generator llm.Generator
	logger    *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger uses slog.Default().
func NewExtractor(generator llm.Generator, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{generator: generator, logger: logger}
}

// ExtractPerson extracts a person profile from resume text or a resume document.
func (e *Extractor) ExtractPerson(ctx context.Context, src llm.Source) (*models.PersonProfile, error) {
	out, err := extractFromSource[models.PersonProfile](ctx, e, personPrompt, personSchema, src)
	if err != nil {
		return nil, err
	}

	out.TechnicalSkills = emptyIfNil(out.TechnicalSkills)
	out.Certifications = emptyIfNil(out.Certifications)
	out.SoftSkills = emptyIfNil(out.SoftSkills)
	out.TaskDelegationRecommendations = emptyIfNil(out.TaskDelegationRecommendations)
	out.SpecializationTaskCategories = emptyIfNil(out.SpecializationTaskCategories)
	out.AdditionalObservations = emptyIfNil(out.AdditionalObservations)

	return out, nil
}

// ExtractTask extracts a task profile from a task description.
func (e *Extractor) ExtractTask(ctx context.Context, src llm.Source) (*models.TaskProfile, error) {
	out, err := extractFromSource[models.TaskProfile](ctx, e, taskPrompt, taskSchema, src)
	if err != nil {
		return nil, err
	}

	out.RequiredSkills = emptyIfNil(out.RequiredSkills)
	out.Tags = emptyIfNil(out.Tags)
	out.RolesRequired = emptyIfNil(out.RolesRequired)

	return out, nil
}

// ExtractAgent extracts an agent profile from an agent description.
func (e *Extractor) ExtractAgent(ctx context.Context, src llm.Source) (*models.AgentProfile, error) {
	out, err := extractFromSource[models.AgentProfile](ctx, e, agentPrompt, agentSchema, src)
	if err != nil {
		return nil, err
	}

	out.Tags = emptyIfNil(out.Tags)
	out.Skills = emptyIfNil(out.Skills)
	out.Capabilities = emptyIfNil(out.Capabilities)
	out.CoreFunctionalities = emptyIfNil(out.CoreFunctionalities)

	return out, nil
}

// DecideDelegation asks the model for the best combination among the candidates.
// PersonIDs and AgentIDs of the result are left for the caller to parse from BestCombination.
func (e *Extractor) DecideDelegation(ctx context.Context, dc DelegationContext) (*models.DelegationDecision, error) {
	schemaDoc, err := delegationSchema.JSONSchema()
	if err != nil {
		return nil, err
	}

	prompt, err := renderPrompt(delegationPrompt, delegationPromptData{
		Schema:  schemaDoc,
		Task:    dc.Task,
		Members: emptyIfNil(dc.Members),
		Agents:  emptyIfNil(dc.Agents),
	})
	if err != nil {
		return nil, err
	}

	choice, err := generateAndParse[models.DelegationChoice](ctx, e, delegationSchema, llm.Request{Prompt: prompt})
	if err != nil {
		return nil, err
	}

	combination := choice.BestCombination
	if combination == nil {
		combination = map[string]string{}
	}

	return &models.DelegationDecision{
		TaskID:          dc.TaskID,
		TaskExternalID:  dc.Task.ExternalID,
		BestCombination: combination,
		Reasoning:       choice.Reasoning,
	}, nil
}

func extractFromSource[T any](
	ctx context.Context, e *Extractor, promptName string, schema Schema, src llm.Source,
) (*T, error) {
	if src.IsEmpty() {
		return nil, huberrors.Invalid("source", "source text or document is required")
	}

	schemaDoc, err := schema.JSONSchema()
	if err != nil {
		return nil, err
	}

	prompt, err := renderPrompt(promptName, sourcePromptData{
		Schema:      schemaDoc,
		Source:      src.Text,
		HasDocument: src.Document != nil,
	})
	if err != nil {
		return nil, err
	}

	return generateAndParse[T](ctx, e, schema, llm.Request{Prompt: prompt, Document: src.Document})
}

func generateAndParse[T any](ctx context.Context, e *Extractor, schema Schema, req llm.Request) (*T, error) {
	content, err := e.generator.GenerateJSON(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", schema.Title, err)
	}

	out, err := parseRecord[T](content, schema)
	if err != nil {
		e.logger.DebugContext(ctx, "model output rejected", "schema", schema.Title, "error", err)

		return nil, err
	}

	return out, nil
}

// parseRecord validates raw model content against schema and decodes it into T.
func parseRecord[T any](content string, schema Schema) (*T, error) {
	content = stripCodeFence(strings.TrimSpace(content))
	if content == "" {
		return nil, huberrors.ErrEmptyResponse
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &object); err != nil || object == nil {
		return nil, huberrors.ErrMalformedOutput
	}

	for _, name := range schema.RequiredFields() {
		raw, ok := object[name]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, fmt.Errorf("%w: %s is required", huberrors.ErrSchemaViolation, name)
		}
	}

	var out T
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %s must be %s, got %s", huberrors.ErrSchemaViolation, typeErr.Field, typeErr.Type, typeErr.Value)
		}

		return nil, fmt.Errorf("%w: %w", huberrors.ErrSchemaViolation, err)
	}

	if err := validation.ValidateStruct(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", huberrors.ErrSchemaViolation, err)
	}

	return &out, nil
}

// stripCodeFence removes a surrounding Markdown code fence (```json ... ```), if any.
func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}

	_, body, found := strings.Cut(content, "\n")
	if !found {
		return ""
	}

	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")

	return strings.TrimSpace(body)
}

func emptyIfNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}

	return list
}
