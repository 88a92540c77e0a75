package server

import (
	"context"
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q, want %q", cfg.Addr, ":8080")
	}
	if cfg.DBPath != "torchlight.db" {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, "torchlight.db")
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("TORCHLIGHT_APP_ADDR", "env:9000")

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", "flag:9001"})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Addr != "flag:9001" {
		t.Fatalf("Addr = %q, want %q", cfg.Addr, "flag:9001")
	}
}

func TestParseConfigSplitsExcludedPaths(t *testing.T) {
	t.Setenv("TORCHLIGHT_MAINTENANCE_EXCLUDED", "/healthz,/encounter/*")

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if len(cfg.MaintenanceExcluded) != 2 || cfg.MaintenanceExcluded[1] != "/encounter/*" {
		t.Fatalf("MaintenanceExcluded = %q", cfg.MaintenanceExcluded)
	}
}

func TestRunRequiresSecrets(t *testing.T) {
	err := Run(context.Background(), Config{Addr: ":0", DBPath: "x.db"})
	if err == nil {
		t.Fatal("expected missing secret error")
	}

	err = Run(context.Background(), Config{Addr: ":0", DBPath: "x.db", GrantSecret: "g"})
	if err == nil {
		t.Fatal("expected missing session secret error")
	}
}
