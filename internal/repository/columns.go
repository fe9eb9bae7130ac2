package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
)

// Column lists are the single source of positional truth for each table. Every SELECT of a
// full row uses the list, and the matching scan function reads values in the same order.
var (
	personColumns = []string{
		"id", "external_id",
		"personal_summary", "technical_skills", "certifications", "soft_skills", "vocal_attributes",
		"task_delegation_recommendations", "specialization_task_categories", "additional_observations",
		"embedding", "created_at",
	}

	taskColumns = []string{
		"id", "external_id",
		"required_skills", "sector", "tags", "manpower_needed", "roles_required", "estimated_time",
		"embedding", "created_at",
	}

	agentColumns = []string{
		"id", "external_id",
		"tags", "skills", "capabilities", "core_functionalities",
		"embedding", "created_at",
	}

	delegationColumns = []string{"task_id", "member_ids", "agent_ids", "created_at", "updated_at"}
)

// selectList renders columns for a SELECT or RETURNING clause.
func selectList(columns []string) string {
	return strings.Join(columns, ", ")
}

// insertColumns returns every column a caller supplies on insert: the list minus the
// generated id and created_at.
func insertColumns(columns []string) []string {
	out := make([]string, 0, len(columns))

	for _, c := range columns {
		if c == "id" || c == "created_at" {
			continue
		}

		out = append(out, c)
	}

	return out
}

// insertStatement builds "INSERT INTO table (...) VALUES ($1, ...) RETURNING <all columns>".
func insertStatement(table string, columns []string) string {
	cols := insertColumns(columns)

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), selectList(columns))
}

// jsonList encodes a list for a JSONB column; nil becomes [].
func jsonList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}

	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}

	return data, nil
}

// vectorArg converts an embedding into a query argument; nil stores NULL.
func vectorArg(embedding []float32) *pgvector.Vector {
	if embedding == nil {
		return nil
	}

	vec := pgvector.NewVector(embedding)

	return &vec
}

// applyEmbedding copies a scanned vector into the record fields.
func applyEmbedding(vec *pgvector.Vector) ([]float32, bool) {
	if vec == nil {
		return nil, false
	}

	return vec.Slice(), true
}

// personArgs returns insert arguments in insertColumns(personColumns) order.
func personArgs(externalID string, p *models.PersonProfile, embedding []float32) ([]any, error) {
	lists := [][]string{
		p.TechnicalSkills, p.Certifications, p.SoftSkills,
		p.TaskDelegationRecommendations, p.SpecializationTaskCategories, p.AdditionalObservations,
	}

	encoded := make([][]byte, len(lists))
	for i, l := range lists {
		data, err := jsonList(l)
		if err != nil {
			return nil, err
		}

		encoded[i] = data
	}

	return []any{
		externalID,
		p.PersonalSummary, encoded[0], encoded[1], encoded[2], p.VocalAttributes,
		encoded[3], encoded[4], encoded[5],
		vectorArg(embedding),
	}, nil
}

// taskArgs returns insert arguments in insertColumns(taskColumns) order.
func taskArgs(externalID string, t *models.TaskProfile, embedding []float32) ([]any, error) {
	required, err := jsonList(t.RequiredSkills)
	if err != nil {
		return nil, err
	}

	tags, err := jsonList(t.Tags)
	if err != nil {
		return nil, err
	}

	roles, err := jsonList(t.RolesRequired)
	if err != nil {
		return nil, err
	}

	return []any{
		externalID,
		required, t.Sector, tags, t.ManpowerNeeded, roles, t.EstimatedTime,
		vectorArg(embedding),
	}, nil
}

// agentArgs returns insert arguments in insertColumns(agentColumns) order.
func agentArgs(externalID string, a *models.AgentProfile, embedding []float32) ([]any, error) {
	lists := [][]string{a.Tags, a.Skills, a.Capabilities, a.CoreFunctionalities}

	args := make([]any, 0, len(lists)+2)
	args = append(args, externalID)

	for _, l := range lists {
		data, err := jsonList(l)
		if err != nil {
			return nil, err
		}

		args = append(args, data)
	}

	return append(args, vectorArg(embedding)), nil
}

func scanPerson(row pgx.Row) (*models.Person, error) {
	var (
		p   models.Person
		vec *pgvector.Vector
	)

	err := row.Scan(
		&p.ID, &p.ExternalID,
		&p.PersonalSummary, &p.TechnicalSkills, &p.Certifications, &p.SoftSkills, &p.VocalAttributes,
		&p.TaskDelegationRecommendations, &p.SpecializationTaskCategories, &p.AdditionalObservations,
		&vec, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Embedding, p.HasEmbedding = applyEmbedding(vec)

	return &p, nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var (
		t   models.Task
		vec *pgvector.Vector
	)

	err := row.Scan(
		&t.ID, &t.ExternalID,
		&t.RequiredSkills, &t.Sector, &t.Tags, &t.ManpowerNeeded, &t.RolesRequired, &t.EstimatedTime,
		&vec, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Embedding, t.HasEmbedding = applyEmbedding(vec)

	return &t, nil
}

func scanAgent(row pgx.Row) (*models.Agent, error) {
	var (
		a   models.Agent
		vec *pgvector.Vector
	)

	err := row.Scan(
		&a.ID, &a.ExternalID,
		&a.Tags, &a.Skills, &a.Capabilities, &a.CoreFunctionalities,
		&vec, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Embedding, a.HasEmbedding = applyEmbedding(vec)

	return &a, nil
}

func scanDelegation(row pgx.Row) (*models.Delegation, error) {
	var d models.Delegation

	if err := row.Scan(&d.TaskID, &d.MemberIDs, &d.AgentIDs, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}

	if d.MemberIDs == nil {
		d.MemberIDs = []string{}
	}

	if d.AgentIDs == nil {
		d.AgentIDs = []string{}
	}

	return &d, nil
}
