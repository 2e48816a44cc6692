package infra

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/flexyearn/flexyearn/internal/config"
	"github.com/flexyearn/flexyearn/internal/logging"
)

func TestOpenWithoutBackends(t *testing.T) {
	stores, err := Open(context.Background(), config.Config{}, logging.Discard())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if stores.DB != nil || stores.Cache != nil {
		t.Fatalf("expected no backends, got %+v", stores)
	}
	if err := stores.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	stores, err := Open(context.Background(), config.Config{RedisURL: "redis://" + mr.Addr()}, logging.Discard())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer stores.Close()

	if stores.Cache == nil {
		t.Fatalf("expected redis client")
	}
	if err := stores.Cache.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Fatalf("expected v in miniredis, got %q", got)
	}
}

func TestOpenRejectsBadRedisURL(t *testing.T) {
	if _, err := Open(context.Background(), config.Config{RedisURL: "not-a-url"}, logging.Discard()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil || len(names) == 0 {
		t.Fatalf("expected embedded migrations, got %v (%v)", names, err)
	}
	body, err := migrations.ReadFile(names[0])
	if err != nil {
		t.Fatalf("read %s: %v", names[0], err)
	}
	for _, table := range []string{"accounts", "point_entries"} {
		if !strings.Contains(string(body), table) {
			t.Fatalf("expected %s in %s", table, names[0])
		}
	}
}

func TestNewAMQPConnectionValidatesURL(t *testing.T) {
	cases := []string{"", "http://localhost", "://bad"}
	for _, raw := range cases {
		if _, err := NewAMQPConnection(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
