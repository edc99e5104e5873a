package testdb

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	sharedContainer *PostgresContainer
	sharedOnce      sync.Once
)

// PostgresContainer wraps the postgres testcontainer
type PostgresContainer struct {
	Container *postgres.PostgresContainer
	DB        *bun.DB
	DSN       string
}

// SetupSharedPostgres starts one PostgreSQL container per test binary and
// returns it on every call. Tests sharing it must not run in parallel and
// should truncate their tables at the start of each subtest.
//
// Usage:
//
//	func TestClasses(t *testing.T) {
//	    pg := testdb.SetupSharedPostgres(t)
//	    defer pg.Cleanup(t)
//
//	    t.Run("Create", func(t *testing.T) {
//	        testdb.CleanupTables(t, pg.DB, "class_schedule", "classes", "users")
//	        // ...
//	    })
//	}
func SetupSharedPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres container in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	sharedOnce.Do(func() {
		ctx := context.Background()
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("testdb"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2),
			),
		)
		require.NoError(t, err)

		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
		db := bun.NewDB(sqldb, pgdialect.New())
		require.NoError(t, db.Ping())

		sharedContainer = &PostgresContainer{
			Container: pgContainer,
			DB:        db,
			DSN:       connStr,
		}
	})

	require.NotNil(t, sharedContainer, "postgres container failed to start")
	return sharedContainer
}

func (pc *PostgresContainer) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if pc.DB != nil {
		pc.DB.Close()
	}

	if pc.Container != nil {
		if err := pc.Container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
}

// CountRows returns the number of rows in table.
func (pc *PostgresContainer) CountRows(t *testing.T, table string) int {
	t.Helper()

	count, err := pc.DB.NewSelect().Table(table).Count(context.Background())
	require.NoError(t, err, "failed to count rows in %s", table)
	return count
}

// CleanupTables truncates the given tables and resets their identity sequences.
func CleanupTables(t *testing.T, db *bun.DB, tables ...string) {
	t.Helper()

	ctx := context.Background()

	for _, table := range tables {
		_, err := db.ExecContext(ctx, "TRUNCATE "+table+" RESTART IDENTITY CASCADE")
		require.NoError(t, err, "failed to truncate table: %s", table)
	}
}
