package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
)

// findNearest returns the external ids of the topN rows of table closest to query by cosine
// distance. Rows without an embedding are skipped. table is always a package constant.
func findNearest(ctx context.Context, db *pgxpool.Pool, table string, query []float32, topN int) ([]models.Match, error) {
	if topN <= 0 {
		return []models.Match{}, nil
	}

	rows, err := db.Query(ctx, fmt.Sprintf(`
		SELECT external_id, 1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1, id
		LIMIT $2`, table),
		pgvector.NewVector(query), topN,
	)
	if err != nil {
		return nil, fmt.Errorf("find nearest %s: %w", table, err)
	}
	defer rows.Close()

	matches := []models.Match{}

	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ExternalID, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan nearest %s: %w", table, err)
		}

		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nearest %s: %w", table, err)
	}

	return matches, nil
}

// pageClause renders LIMIT/OFFSET for params, starting at placeholder $next. A zero limit
// returns every row.
func pageClause(params models.ListParams, next int) (string, []any) {
	var (
		clause string
		args   []any
	)

	if params.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT $%d", next)
		args = append(args, params.Limit)
		next++
	}

	if params.Offset > 0 {
		clause += fmt.Sprintf(" OFFSET $%d", next)
		args = append(args, params.Offset)
	}

	return clause, args
}

// collect scans every row with scan.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	out := []T{}

	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
