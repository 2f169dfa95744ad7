package ledgerstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// skipIfDockerUnavailable skips the test when no Docker provider is usable.
// testcontainers panics (rather than returning an error) when no Docker host
// can be resolved at all, so the panic is treated as "docker not available".
func skipIfDockerUnavailable(t *testing.T) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("docker not available for testcontainers: %v", r)
		}
	}()
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	skipIfDockerUnavailable(t)

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "chatdapp",
			"POSTGRES_PASSWORD": "chatdapp",
			"POSTGRES_DB":       "chatdapp",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}
	conn := fmt.Sprintf("postgres://chatdapp:chatdapp@%s:%s/chatdapp?sslmode=disable", host, port.Port())

	store, err := NewPostgresStore(ctx, conn)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestPostgresStore(t *testing.T) {
	storeSuite(t, setupPostgresStore(t))
}

func TestPostgresStoreMigrateIsIdempotent(t *testing.T) {
	store := setupPostgresStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
