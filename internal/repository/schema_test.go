package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUndefinedTable(t *testing.T) {
	undefined := fmt.Errorf("failed to insert task: %w", &pgconn.PgError{Code: pgUndefinedTable})
	unique := fmt.Errorf("failed to insert person: %w", &pgconn.PgError{Code: pgUniqueViolation})

	assert.True(t, IsUndefinedTable(undefined))
	assert.False(t, IsUndefinedTable(unique))
	assert.False(t, IsUndefinedTable(errors.New("connection refused")))
	assert.False(t, IsUndefinedTable(nil))

	assert.True(t, isUniqueViolation(unique))
	assert.False(t, isUniqueViolation(undefined))
}

func TestSchemaStatements_CoverEveryTable(t *testing.T) {
	ddl := strings.Join(schemaStatements, "\n")

	assert.True(t, strings.HasPrefix(schemaStatements[0], "CREATE EXTENSION IF NOT EXISTS vector"))

	for _, table := range []string{peopleTable, tasksTable, agentsTable, delegationsTable} {
		assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}

	for _, cols := range [][]string{personColumns, taskColumns, agentColumns, delegationColumns} {
		for _, c := range cols {
			assert.Contains(t, ddl, c+" ", "column %s missing from DDL", c)
		}
	}
}
