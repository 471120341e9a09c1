// Package storetest starts throwaway postgres and redis containers for
// integration tests (build tags integration_pg / integration_redis)
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// start runs one container and returns host:port for the exposed port
func start(t *testing.T, req tc.ContainerRequest, port string) string {
	t.Helper()

	// generous deadline for the first image pull
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("start %s: %v", req.Image, err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

// Postgres starts postgres:16-alpine and returns its DSN
func Postgres(t *testing.T) string {
	t.Helper()
	addr := start(t, tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "catalog",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(2 * time.Minute),
	}, "5432/tcp")
	return fmt.Sprintf("postgres://postgres:postgres@%s/catalog?sslmode=disable", addr)
}

// Redis starts redis:7-alpine and returns a redis:// URL
func Redis(t *testing.T) string {
	t.Helper()
	addr := start(t, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("6379/tcp"),
			wait.ForLog("Ready to accept connections"),
		).WithDeadline(time.Minute),
	}, "6379/tcp")
	return "redis://" + addr + "/0"
}
