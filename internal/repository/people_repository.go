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

const peopleTable = "people"

// PeopleRepository handles data access for people.
type PeopleRepository struct {
	db *pgxpool.Pool
}

// NewPeopleRepository creates a new people repository.
func NewPeopleRepository(db *pgxpool.Pool) *PeopleRepository {
	return &PeopleRepository{db: db}
}

// Insert stores a person. A nil embedding is stored as NULL.
// Returns huberrors.ErrDuplicateExternalID when the external id is taken.
func (r *PeopleRepository) Insert(
	ctx context.Context, externalID string, profile *models.PersonProfile, embedding []float32,
) (*models.Person, error) {
	args, err := personArgs(externalID, profile, embedding)
	if err != nil {
		return nil, err
	}

	person, err := scanPerson(r.db.QueryRow(ctx, insertStatement(peopleTable, personColumns), args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert person %q: %w", externalID, huberrors.ErrDuplicateExternalID)
		}

		return nil, fmt.Errorf("failed to insert person: %w", err)
	}

	return person, nil
}

// GetByExternalID retrieves a person by external id.
func (r *PeopleRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Person, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE external_id = $1`, selectList(personColumns), peopleTable)

	person, err := scanPerson(r.db.QueryRow(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NotFound("person", externalID)
		}

		return nil, fmt.Errorf("failed to get person: %w", err)
	}

	return person, nil
}

// List returns people in insertion order.
func (r *PeopleRepository) List(ctx context.Context, params models.ListParams) ([]models.Person, error) {
	page, args := pageClause(params, 1)
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id%s`, selectList(personColumns), peopleTable, page)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}

	people, err := collect(rows, scanPerson)
	if err != nil {
		return nil, fmt.Errorf("failed to scan person: %w", err)
	}

	return people, nil
}

// FindNearest returns up to topN people most similar to query, most similar first.
func (r *PeopleRepository) FindNearest(ctx context.Context, query []float32, topN int) ([]models.Match, error) {
	return findNearest(ctx, r.db, peopleTable, query, topN)
}
