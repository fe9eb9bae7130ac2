package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
)

const delegationsTable = "delegated_tasks"

// DelegationsRepository handles data access for delegated tasks.
type DelegationsRepository struct {
	db *pgxpool.Pool
}

// NewDelegationsRepository creates a new delegations repository.
func NewDelegationsRepository(db *pgxpool.Pool) *DelegationsRepository {
	return &DelegationsRepository{db: db}
}

// Upsert stores the chosen people and agents for a task, replacing any earlier choice and
// refreshing updated_at.
func (r *DelegationsRepository) Upsert(
	ctx context.Context, taskID int64, personIDs, agentIDs []string,
) (*models.Delegation, error) {
	if personIDs == nil {
		personIDs = []string{}
	}

	if agentIDs == nil {
		agentIDs = []string{}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (task_id, member_ids, agent_ids)
		VALUES ($1, $2, $3)
		ON CONFLICT (task_id)
		DO UPDATE SET member_ids = EXCLUDED.member_ids, agent_ids = EXCLUDED.agent_ids, updated_at = now()
		RETURNING %s`, delegationsTable, selectList(delegationColumns))

	delegation, err := scanDelegation(r.db.QueryRow(ctx, query, taskID, personIDs, agentIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert delegation: %w", err)
	}

	return delegation, nil
}

// List returns every delegation ordered by task id.
func (r *DelegationsRepository) List(ctx context.Context, params models.ListParams) ([]models.Delegation, error) {
	page, args := pageClause(params, 1)
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY task_id%s`, selectList(delegationColumns), delegationsTable, page)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list delegations: %w", err)
	}

	delegations, err := collect(rows, scanDelegation)
	if err != nil {
		return nil, fmt.Errorf("failed to scan delegation: %w", err)
	}

	return delegations, nil
}
