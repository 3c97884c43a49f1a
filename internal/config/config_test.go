/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import "testing"

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("SEATWISE_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("SEATWISE_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("SEATWISE_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected DB DSN to be set")
	}
	if cfg.JWTSigningKey != "supersecret" {
		t.Fatalf("unexpected jwt signing key: %q", cfg.JWTSigningKey)
	}
}

func TestLoadRequiresDSNAndSigningKey(t *testing.T) {
	t.Setenv("SEATWISE_DB_DSN", "")
	t.Setenv("SEATWISE_JWT_SIGNING_KEY", "supersecret")
	if _, err := Load(); err == nil {
		t.Fatal("expected load to fail without a DSN")
	}

	t.Setenv("SEATWISE_DB_DSN", "file::memory:?cache=shared")
	t.Setenv("SEATWISE_JWT_SIGNING_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected load to fail without a signing key")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("SEATWISE_DB_DSN", "file::memory:?cache=shared")
	t.Setenv("SEATWISE_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("SEATWISE_DB_BACKEND", "mongodb")

	if _, err := Load(); err == nil {
		t.Fatal("expected load to reject unknown backend")
	}
}

func TestLoadProductionRequiresStrongSigningKey(t *testing.T) {
	t.Setenv("SEATWISE_DB_DSN", "file::memory:?cache=shared")
	t.Setenv("SEATWISE_ENV", "production")
	t.Setenv("SEATWISE_JWT_SIGNING_KEY", "short")

	if _, err := Load(); err == nil {
		t.Fatal("expected production load to reject a short signing key")
	}
}

func TestLoadClampsSlotDefaults(t *testing.T) {
	t.Setenv("SEATWISE_DB_DSN", "file::memory:?cache=shared")
	t.Setenv("SEATWISE_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("SEATWISE_DEFAULT_SLOT_INTERVAL_MINUTES", "-15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DefaultSlotIntervalMinutes != 30 {
		t.Fatalf("interval = %d, want clamped default 30", cfg.DefaultSlotIntervalMinutes)
	}
}
