//go:build integration

package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/database"
)

const postgresImage = "postgres:16-alpine"

type postgresContainer struct {
	container testcontainers.Container
	host      string
	port      string
}

var (
	sharedPostgres     *postgresContainer
	sharedPostgresOnce sync.Once
	sharedPostgresErr  error
	databaseSeq        atomic.Int64
)

// NewPostgresStore returns a migrated store on a fresh database inside a
// shared PostgreSQL container. The container is started once per test
// binary; each call gets its own database.
func NewPostgresStore(t *testing.T) *database.Store {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedPostgresOnce.Do(func() {
		sharedPostgres, sharedPostgresErr = startPostgres()
	})
	if sharedPostgresErr != nil {
		t.Fatalf("Failed to start postgres container: %v", sharedPostgresErr)
	}

	ctx := context.Background()
	name := fmt.Sprintf("cardcat_%d_%d", time.Now().UnixNano(), databaseSeq.Add(1))

	admin, err := pgx.Connect(ctx, sharedPostgres.url("postgres"))
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE DATABASE "+name)
	require.NoError(t, err)
	require.NoError(t, admin.Close(ctx))

	db, err := database.Open(ctx, config.StoreConfig{
		Driver:      "postgres",
		DatabaseURL: sharedPostgres.url(name),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	return database.NewStore(db)
}

func startPostgres() (*postgresContainer, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "postgres",
			"POSTGRES_USER":     "cardcat",
			"POSTGRES_PASSWORD": "test_password",
		},
		// The server logs readiness once for the init pass and once for real.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &postgresContainer{container: container, host: host, port: port.Port()}, nil
}

func (p *postgresContainer) url(dbName string) string {
	return fmt.Sprintf("postgres://cardcat:test_password@%s:%s/%s?sslmode=disable", p.host, p.port, dbName)
}
