package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.BaseCurrency != "USD" {
		t.Errorf("expected default currency USD, got %s", cfg.BaseCurrency)
	}
	if cfg.AutoSync {
		t.Error("auto-sync must default to off")
	}
	if cfg.SyncMaxConcurrency != 8 {
		t.Errorf("expected default concurrency 8, got %d", cfg.SyncMaxConcurrency)
	}
	if cfg.SyncRecordTimeout != 30*time.Second {
		t.Errorf("expected default record timeout 30s, got %s", cfg.SyncRecordTimeout)
	}
	if cfg.KafkaTopic != "ledger.synced" {
		t.Errorf("expected default topic ledger.synced, got %s", cfg.KafkaTopic)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AUTO_SYNC", "true")
	t.Setenv("SYNC_SCHEDULE", "@every 5m")
	t.Setenv("SYNC_RECORD_TIMEOUT", "10s")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if !cfg.AutoSync {
		t.Error("expected auto-sync enabled")
	}
	if cfg.SyncSchedule != "@every 5m" {
		t.Errorf("expected schedule override, got %s", cfg.SyncSchedule)
	}
	if cfg.SyncRecordTimeout != 10*time.Second {
		t.Errorf("expected record timeout 10s, got %s", cfg.SyncRecordTimeout)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "broker-2:9092" {
		t.Errorf("expected trimmed broker list, got %v", cfg.KafkaBrokers)
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("HTTP_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("expected fallback port, got %d", cfg.Port)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("expected fallback timeout, got %s", cfg.HTTPTimeout)
	}
}
