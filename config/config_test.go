package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Fatalf("unexpected default addr: %s", cfg.Server.ListenAddr)
	}
	if cfg.Durable.SnapshotInterval != time.Minute {
		t.Fatalf("unexpected snapshot interval: %s", cfg.Durable.SnapshotInterval)
	}
	if cfg.Kafka.Enabled {
		t.Fatal("kafka should default to disabled")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OME_LISTEN_ADDR", ":9999")
	t.Setenv("OME_SNAPSHOT_INTERVAL", "30s")
	t.Setenv("OME_KAFKA_ENABLED", "true")
	t.Setenv("OME_KAFKA_BROKERS", "broker-1:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.ListenAddr != ":9999" {
		t.Fatalf("override not applied: %s", cfg.Server.ListenAddr)
	}
	if cfg.Durable.SnapshotInterval != 30*time.Second {
		t.Fatalf("override not applied: %s", cfg.Durable.SnapshotInterval)
	}
	if !cfg.Kafka.Enabled || cfg.Kafka.Brokers[0] != "broker-1:9092" {
		t.Fatalf("kafka override not applied: %+v", cfg.Kafka)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"empty addr":     func(c *Config) { c.Server.ListenAddr = "" },
		"zero segment":   func(c *Config) { c.Durable.JournalSegment = 0 },
		"zero interval":  func(c *Config) { c.Durable.SnapshotInterval = 0 },
		"odd ring size":  func(c *Config) { c.Memory.RetireRingSize = 100 },
		"kafka no hosts": func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil },
	}
	for name, mutate := range cases {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("%s: load: %v", name, err)
		}
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
