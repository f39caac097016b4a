package storage

import (
	"context"
	"os"
	"testing"

	"github.com/lumofit/companion/internal/database"
)

func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run")
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.Set(ctx, TokenKey, "a"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, TokenKey, "b"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, ok, err := s.Get(ctx, TokenKey); err != nil || !ok || v != "b" {
		t.Fatalf("expected b, got %q ok=%v err=%v", v, ok, err)
	}
	if err := s.Remove(ctx, SessionKeys...); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, err := s.Get(ctx, TokenKey); ok || err != nil {
		t.Fatalf("expected miss after remove, ok=%v err=%v", ok, err)
	}
}

func TestRedisStore_Integration(t *testing.T) {
	requireIntegration(t)
	uri := os.Getenv("REDIS_URI")
	if uri == "" {
		uri = "redis://localhost:6379/0"
	}
	client, err := database.ConnectRedis(context.Background(), uri)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	s := NewRedisStore(client)
	defer s.Close()
	exerciseStore(t, s)
}

func TestPostgresStore_Integration(t *testing.T) {
	requireIntegration(t)
	uri := os.Getenv("POSTGRES_URI")
	if uri == "" {
		uri = "postgres://localhost:5432/lumofit?sslmode=disable"
	}
	db, err := database.ConnectPostgres(context.Background(), uri)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	s := NewPostgresStore(db)
	defer s.Close()
	exerciseStore(t, s)
}
