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

const tasksTable = "tasks"

// TasksRepository handles data access for tasks. External ids may repeat.
type TasksRepository struct {
	db *pgxpool.Pool
}

// NewTasksRepository creates a new tasks repository.
func NewTasksRepository(db *pgxpool.Pool) *TasksRepository {
	return &TasksRepository{db: db}
}

// Insert stores a task. A nil embedding is stored as NULL.
func (r *TasksRepository) Insert(
	ctx context.Context, externalID string, profile *models.TaskProfile, embedding []float32,
) (*models.Task, error) {
	args, err := taskArgs(externalID, profile, embedding)
	if err != nil {
		return nil, err
	}

	task, err := scanTask(r.db.QueryRow(ctx, insertStatement(tasksTable, taskColumns), args...))
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	return task, nil
}

// GetByExternalID retrieves the most recently inserted task with the external id.
func (r *TasksRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE external_id = $1 ORDER BY id DESC LIMIT 1`,
		selectList(taskColumns), tasksTable)

	return r.getOne(ctx, query, externalID)
}

// GetByID retrieves a task by its internal id.
func (r *TasksRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, selectList(taskColumns), tasksTable)

	return r.getOne(ctx, query, id)
}

func (r *TasksRepository) getOne(ctx context.Context, query string, arg any) (*models.Task, error) {
	task, err := scanTask(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NotFound("task", fmt.Sprint(arg))
		}

		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// List returns tasks in insertion order.
func (r *TasksRepository) List(ctx context.Context, params models.ListParams) ([]models.Task, error) {
	page, args := pageClause(params, 1)
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id%s`, selectList(taskColumns), tasksTable, page)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks, err := collect(rows, scanTask)
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	return tasks, nil
}

// FindNearest returns up to topN tasks most similar to query, most similar first.
func (r *TasksRepository) FindNearest(ctx context.Context, query []float32, topN int) ([]models.Match, error) {
	return findNearest(ctx, r.db, tasksTable, query, topN)
}
