package config

import (
	"strings"
	"testing"
)

func TestEnsureDSNBuildsPostgresDSN(t *testing.T) {
	cfg := DBConfig{
		Driver:   DriverPostgres,
		Host:     "localhost",
		Port:     5432,
		User:     "pharma",
		Password: "secret",
		Name:     "pharma",
		SSLMode:  "disable",
	}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN: %v", err)
	}
	for _, want := range []string{"host=localhost", "user=pharma", "dbname=pharma"} {
		if !strings.Contains(cfg.DSN, want) {
			t.Fatalf("expected %q in DSN %q", want, cfg.DSN)
		}
	}
}

func TestEnsureDSNRequiresConnectionDetails(t *testing.T) {
	cfg := DBConfig{Driver: DriverPostgres}
	if err := cfg.ensureDSN(); err == nil {
		t.Fatal("expected error when host/user/name missing")
	}
}

func TestEnsureDSNDefaultsSQLiteFile(t *testing.T) {
	cfg := DBConfig{Driver: DriverSQLite}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN: %v", err)
	}
	if !strings.HasPrefix(cfg.DSN, "file:") {
		t.Fatalf("expected sqlite file DSN, got %q", cfg.DSN)
	}
}

func TestEnsureDSNKeepsExplicitDSN(t *testing.T) {
	cfg := DBConfig{DSN: "host=db user=u dbname=d"}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN: %v", err)
	}
	if cfg.DSN != "host=db user=u dbname=d" {
		t.Fatalf("DSN should be untouched, got %q", cfg.DSN)
	}
}
