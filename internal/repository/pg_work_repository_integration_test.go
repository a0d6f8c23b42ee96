//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/migrations"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("repository"),
		postgres.WithUsername("ingest"),
		postgres.WithPassword("ingest"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	src, err := iofs.New(migrations.FS, ".")
	require.NoError(t, err)
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate up: %v", err)
	}
	_, _ = m.Close()

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPgWorkRepository_Lifecycle(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	repo := NewPgWorkRepository(pool, zerolog.Nop())

	require.NoError(t, repo.GrantAdminSet(ctx, "open_access_articles", "admin", "manage"))
	require.NoError(t, repo.GrantAdminSet(ctx, "open_access_articles", "public", "view"))

	attrs := newTestAttributes()
	work, err := repo.CreateWork(ctx, attrs)
	require.NoError(t, err)

	doc, err := repo.SearchByIdentifier(ctx, domain.FieldSecondaryID, "9876543")
	require.NoError(t, err)
	assert.Equal(t, work.ID, doc.ID)
	assert.False(t, doc.HasFiles())

	require.NoError(t, repo.SyncWorkflow(ctx, work.ID, work.AdminSet))
	require.NoError(t, repo.SyncWorkflow(ctx, work.ID, work.AdminSet))

	var grants int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM object_permissions WHERE object_id = $1`, work.ID).Scan(&grants))
	assert.Equal(t, 2, grants)

	file, err := repo.AttachFile(ctx, work, domain.FileSpec{
		Path:       "/tmp/t.pdf",
		Name:       "t.pdf",
		Visibility: domain.VisibilityOpen,
		Size:       10,
	})
	require.NoError(t, err)

	doc, err = repo.SearchByIdentifier(ctx, domain.FieldDOI, "10.1234/test")
	require.NoError(t, err)
	assert.Equal(t, []string{file.ID}, doc.FileSetIDs)

	count, err := repo.CountFileSets(ctx, work.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, repo.DestroyWork(ctx, work.ID))

	_, err = repo.SearchByIdentifier(ctx, domain.FieldPrimaryID, "12345678")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM object_permissions`).Scan(&grants))
	assert.Zero(t, grants)
}
