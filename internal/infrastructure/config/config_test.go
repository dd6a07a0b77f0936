package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("LEARNING_POOL_CAPACITY", "20")
	t.Setenv("DATABASE_DRIVER", "postgres")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Learning.PoolCapacity != 20 {
		t.Fatalf("expected env override, got %d", cfg.Learning.PoolCapacity)
	}
	if cfg.Learning.StudyQuizSize != 3 || cfg.Learning.ReviewQuizSize != 10 {
		t.Fatalf("unexpected quiz defaults: %+v", cfg.Learning)
	}
	if cfg.Server.HTTPPort != 8080 || cfg.Server.ReadTimeout != 15*time.Second {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Maintenance.Enabled || cfg.Maintenance.Interval != time.Hour {
		t.Fatalf("unexpected maintenance defaults: %+v", cfg.Maintenance)
	}
	if driver, _ := cfg.DatabaseDriver(); driver != DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", driver)
	}
}

func TestDatabaseURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "sqlite from name",
			cfg:  DatabaseConfig{Driver: "sqlite", Name: "ladder"},
			want: "file:ladder.db?cache=shared&_foreign_keys=on",
		},
		{
			name: "explicit dsn wins",
			cfg:  DatabaseConfig{Driver: "pgx", DSN: " postgres://u@db/x ", Name: "ignored"},
			want: "postgres://u@db/x",
		},
		{
			name: "postgres fields",
			cfg:  DatabaseConfig{Driver: "postgresql", User: "app", Password: "secret", Host: "db", Port: 5433, Name: "ladder", SSLMode: "disable"},
			want: "postgres://app:secret@db:5433/ladder?sslmode=disable",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := &Config{Database: c.cfg}
			got, err := cfg.DatabaseURL()
			if err != nil {
				t.Fatalf("database url: %v", err)
			}
			if got != c.want {
				t.Fatalf("got %q, want %q", got, c.want)
			}
		})
	}

	bad := &Config{Database: DatabaseConfig{Driver: "mysql"}}
	if _, err := bad.DatabaseURL(); err == nil || !strings.Contains(err.Error(), "mysql") {
		t.Fatalf("expected unsupported driver error, got %v", err)
	}
}

func TestOrigins(t *testing.T) {
	cfg := &Config{Server: ServerConfig{AllowedOrigins: " https://a.example , ,https://b.example"}}
	got := cfg.Origins()
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %q", got)
	}
	if (&Config{}).Origins() != nil {
		t.Fatalf("expected no origins for empty setting")
	}
}
