package persistence_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/fieldops/dispatch/internal/scheduling/infrastructure/persistence"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Skipf("Failed to connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("Failed to ping test database: %v", err)
	}

	// Chunks, tasks and links cascade from works.
	_, _ = pool.Exec(ctx, "DELETE FROM works")

	return pool
}

func testWork() *domain.Work {
	return &domain.Work{
		ID:       uuid.New(),
		Name:     "rack swap",
		Type:     domain.WorkGeneral,
		Priority: domain.PriorityMedium,
		Status:   domain.WorkStatusCreated,
	}
}

func TestPostgresWorkRepository_SaveAndFindByID(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	repo := persistence.NewPostgresWorkRepository(pool)

	work := testWork()
	require.NoError(t, repo.Save(ctx, work))
	assert.Equal(t, 1, work.Version)

	found, err := repo.FindByID(ctx, work.ID)
	require.NoError(t, err)
	assert.Equal(t, work.ID, found.ID)
	assert.Equal(t, work.Name, found.Name)
	assert.Equal(t, 1, found.Version)
}

// Two writers read the same version; the second write must lose rather
// than silently overwrite the first.
func TestPostgresWorkRepository_SaveStaleVersionConflicts(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	repo := persistence.NewPostgresWorkRepository(pool)

	work := testWork()
	require.NoError(t, repo.Save(ctx, work))

	first, err := repo.FindByID(ctx, work.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, work.ID)
	require.NoError(t, err)

	first.Name = "rack swap, hall B"
	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Name = "rack swap, hall C"
	err = repo.Save(ctx, second)
	require.ErrorIs(t, err, domain.ErrConflict)

	found, err := repo.FindByID(ctx, work.ID)
	require.NoError(t, err)
	assert.Equal(t, "rack swap, hall B", found.Name, "first write survives")
	assert.Equal(t, 2, found.Version)
}

func TestPostgresWorkRepository_SaveChunkStaleVersionConflicts(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	repo := persistence.NewPostgresWorkRepository(pool)

	work := testWork()
	require.NoError(t, repo.Save(ctx, work))

	chunk := &domain.WorkChunk{
		ID:     uuid.New(),
		WorkID: work.ID,
		Title:  "cabling",
		Order:  1,
		Status: domain.ChunkStatusCreated,
	}
	require.NoError(t, repo.SaveChunk(ctx, chunk))
	assert.Equal(t, 1, chunk.Version)

	first, err := repo.FindChunkByID(ctx, chunk.ID)
	require.NoError(t, err)
	second, err := repo.FindChunkByID(ctx, chunk.ID)
	require.NoError(t, err)

	first.Title = "cabling, row 3"
	require.NoError(t, repo.SaveChunk(ctx, first))

	second.Title = "cabling, row 7"
	err = repo.SaveChunk(ctx, second)
	require.ErrorIs(t, err, domain.ErrConflict)

	found, err := repo.FindChunkByID(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, "cabling, row 3", found.Title)
	assert.Equal(t, 2, found.Version)
}
