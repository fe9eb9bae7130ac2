//go:build integration

package repository

import (
	"context"
	"math"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/huberrors"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
	"github.com/404drakefound/ucl-deepflow-task-delegation/pkg/database"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "pgvector/pgvector:pg16",
		postgres.WithDatabase("delegation_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.NewPostgresPool(ctx, dsn, database.WithVectorTypes())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, NewSchema(pool).Ensure(ctx))

	return pool
}

// unitVector returns a 1536-dim unit vector whose cosine similarity with axis(0) is sim.
func unitVector(sim float64) []float32 {
	v := make([]float32, models.EmbeddingDimensions)
	v[0] = float32(sim)
	v[1] = float32(math.Sqrt(1 - sim*sim))

	return v
}

func TestSchemaEnsure_Idempotent(t *testing.T) {
	pool := setupTestDB(t)

	assert.NoError(t, NewSchema(pool).Ensure(context.Background()))
}

func TestPeopleRepository_RoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewPeopleRepository(pool)

	profile := &models.PersonProfile{
		PersonalSummary:               "Backend engineer focused on data pipelines",
		TechnicalSkills:               []string{"Go", "PostgreSQL"},
		Certifications:                []string{},
		SoftSkills:                    []string{"Mentoring"},
		TaskDelegationRecommendations: []string{"API design"},
		SpecializationTaskCategories:  []string{"Backend"},
		AdditionalObservations:        []string{},
	}
	embedding := unitVector(1)

	inserted, err := repo.Insert(ctx, "m1", profile, embedding)
	require.NoError(t, err)
	assert.Positive(t, inserted.ID)

	got, err := repo.GetByExternalID(ctx, "m1")
	require.NoError(t, err)

	assert.Equal(t, *profile, got.PersonProfile)
	assert.True(t, got.HasEmbedding)
	assert.Equal(t, embedding, got.Embedding)
	assert.Nil(t, got.VocalAttributes)

	_, err = repo.Insert(ctx, "m1", profile, nil)
	assert.ErrorIs(t, err, huberrors.ErrDuplicateExternalID)

	_, err = repo.GetByExternalID(ctx, "missing")
	assert.ErrorIs(t, err, huberrors.ErrNotFound)
}

func TestFindNearest_OrdersAndExcludesNullEmbeddings(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewPeopleRepository(pool)

	profile := &models.PersonProfile{PersonalSummary: "x"}

	_, err := repo.Insert(ctx, "A", profile, unitVector(0.9))
	require.NoError(t, err)
	_, err = repo.Insert(ctx, "B", profile, unitVector(0.95))
	require.NoError(t, err)
	_, err = repo.Insert(ctx, "C", profile, nil)
	require.NoError(t, err)

	matches, err := repo.FindNearest(ctx, unitVector(1), 3)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "B", matches[0].ExternalID)
	assert.Equal(t, "A", matches[1].ExternalID)
	assert.InDelta(t, 0.95, matches[0].Similarity, 1e-4)
	assert.InDelta(t, 0.9, matches[1].Similarity, 1e-4)

	top1, err := repo.FindNearest(ctx, unitVector(1), 1)
	require.NoError(t, err)
	require.Len(t, top1, 1)
	assert.Equal(t, "B", top1[0].ExternalID)

	none, err := repo.FindNearest(ctx, unitVector(1), 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTasksRepository_DuplicateExternalIDReturnsLatest(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewTasksRepository(pool)

	sector := "Finance"

	first, err := repo.Insert(ctx, "t1", &models.TaskProfile{RequiredSkills: []string{"Excel"}, ManpowerNeeded: 1}, nil)
	require.NoError(t, err)

	second, err := repo.Insert(ctx, "t1", &models.TaskProfile{
		RequiredSkills: []string{"SQL"}, Sector: &sector, ManpowerNeeded: 2, EstimatedTime: 5,
	}, unitVector(1))
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	got, err := repo.GetByExternalID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, []string{"SQL"}, got.RequiredSkills)
	assert.Equal(t, []string{}, got.Tags)
	require.NotNil(t, got.Sector)
	assert.Equal(t, "Finance", *got.Sector)

	byID, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, byID.HasEmbedding)

	all, err := repo.List(ctx, models.ListParams{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)

	page, err := repo.List(ctx, models.ListParams{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)
}

func TestAgentsRepository_RoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewAgentsRepository(pool)

	profile := &models.AgentProfile{
		Tags:                []string{"support"},
		Skills:              []string{"NLP"},
		Capabilities:        []string{"Understand customer intent"},
		CoreFunctionalities: []string{"Answer FAQs"},
	}

	_, err := repo.Insert(ctx, "a1", profile, unitVector(0.5))
	require.NoError(t, err)

	got, err := repo.GetByExternalID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, *profile, got.AgentProfile)

	matches, err := repo.FindNearest(ctx, unitVector(1), 3)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a1", matches[0].ExternalID)
}

func TestDelegationsRepository_UpsertReplaces(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	task, err := NewTasksRepository(pool).Insert(ctx, "t1", &models.TaskProfile{}, nil)
	require.NoError(t, err)

	repo := NewDelegationsRepository(pool)

	first, err := repo.Upsert(ctx, task.ID, []string{"m1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, first.MemberIDs)
	assert.Equal(t, []string{}, first.AgentIDs)

	second, err := repo.Upsert(ctx, task.ID, []string{"m2"}, []string{"a1"})
	require.NoError(t, err)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	all, err := repo.List(ctx, models.ListParams{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []string{"m2"}, all[0].MemberIDs)
	assert.Equal(t, []string{"a1"}, all[0].AgentIDs)
	assert.Equal(t, first.CreatedAt, all[0].CreatedAt)
}
