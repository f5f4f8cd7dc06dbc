package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nfowatch/nfowatch/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	databaseName     = "NFOWATCH_TEST"
	databaseUser     = "postgres"
	databasePassword = "postgres"
)

// ProvisionPostgres spawns a throwaway Postgres container, connects the
// database manager to it (running all pending migrations in the process) and
// returns the migrated connection. The container is torn down automatically
// when the calling test finishes.
func ProvisionPostgres(t *testing.T) *sqlx.DB {
	ctx := context.Background()

	pgContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:14.1-alpine"),
		postgres.WithDatabase(databaseName),
		postgres.WithUsername(databaseUser),
		postgres.WithPassword(databasePassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %s", err)
	}

	t.Cleanup(func() {
		timeout := 5 * time.Second
		if err := pgContainer.Stop(ctx, &timeout); err != nil {
			t.Logf("WARNING: failed to stop postgres container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to resolve postgres container host: %s", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to resolve postgres container port: %s", err)
	}

	manager := database.New()
	if err := manager.Connect(database.DatabaseConfig{
		User:     databaseUser,
		Password: databasePassword,
		Name:     databaseName,
		Host:     host,
		Port:     port.Port(),
	}); err != nil {
		t.Fatalf("failed to connect to postgres container: %s", err)
	}

	return manager.GetSqlxDb()
}
