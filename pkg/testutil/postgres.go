package testutil

import (
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	pkgpostgres "github.com/bibbank/microloan/pkg/postgres"
)

// PostgresContainer is a throwaway PostgreSQL with an open pool. It is
// terminated when the test that started it finishes.
type PostgresContainer struct {
	Container *postgres.PostgresContainer
	DSN       string
	Pool      *pgxpool.Pool
}

// NewPostgresContainer starts PostgreSQL 16 and connects to it.
func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	t.Helper()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("microloan"),
		postgres.WithUsername("microloan"),
		postgres.WithPassword("microloan"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")

	pc := &PostgresContainer{Container: container}
	t.Cleanup(pc.terminate(t))

	pc.DSN, err = container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "postgres connection string")

	pc.Pool, err = pgxpool.New(ctx, pc.DSN)
	require.NoError(t, err, "open pool")
	require.NoError(t, pkgpostgres.HealthCheck(ctx, pc.Pool), "ping postgres")
	return pc
}

// Migrate applies the golang-migrate scripts under dir in fsys, the same
// path the binaries take at startup.
func (pc *PostgresContainer) Migrate(t *testing.T, fsys fs.FS, dir string) {
	t.Helper()
	require.NoError(t, pkgpostgres.RunMigrationsFS(pc.DSN, fsys, dir), "run migrations")
}

// Truncate empties tables between subtests.
func (pc *PostgresContainer) Truncate(t *testing.T, tables ...string) {
	t.Helper()
	for _, table := range tables {
		_, err := pc.Pool.Exec(context.Background(), "TRUNCATE TABLE "+table)
		require.NoError(t, err, "truncate %s", table)
	}
}

func (pc *PostgresContainer) terminate(t *testing.T) func() {
	return func() {
		if pc.Pool != nil {
			pc.Pool.Close()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pc.Container.Terminate(ctx); err != nil {
			t.Logf("warning: failed to terminate postgres container: %v", err)
		}
	}
}
