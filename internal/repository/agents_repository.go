package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/huberrors"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
)

const agentsTable = "agents"

// AgentsRepository handles data access for agents. External ids may repeat.
type AgentsRepository struct {
	db *pgxpool.Pool
}

// NewAgentsRepository creates a new agents repository.
func NewAgentsRepository(db *pgxpool.Pool) *AgentsRepository {
	return &AgentsRepository{db: db}
}

// Insert stores an agent. A nil embedding is stored as NULL.
func (r *AgentsRepository) Insert(
	ctx context.Context, externalID string, profile *models.AgentProfile, embedding []float32,
) (*models.Agent, error) {
	args, err := agentArgs(externalID, profile, embedding)
	if err != nil {
		return nil, err
	}

	agent, err := scanAgent(r.db.QueryRow(ctx, insertStatement(agentsTable, agentColumns), args...))
	if err != nil {
		return nil, fmt.Errorf("failed to insert agent: %w", err)
	}

	return agent, nil
}

// GetByExternalID retrieves the most recently inserted agent with the external id.
func (r *AgentsRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Agent, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE external_id = $1 ORDER BY id DESC LIMIT 1`,
		selectList(agentColumns), agentsTable)

	agent, err := scanAgent(r.db.QueryRow(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NotFound("agent", externalID)
		}

		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	return agent, nil
}

// List returns agents in insertion order.
func (r *AgentsRepository) List(ctx context.Context, params models.ListParams) ([]models.Agent, error) {
	page, args := pageClause(params, 1)
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id%s`, selectList(agentColumns), agentsTable, page)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	agents, err := collect(rows, scanAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to scan agent: %w", err)
	}

	return agents, nil
}

// FindNearest returns up to topN agents most similar to query, most similar first.
func (r *AgentsRepository) FindNearest(ctx context.Context, query []float32, topN int) ([]models.Match, error) {
	return findNearest(ctx, r.db, agentsTable, query, topN)
}
