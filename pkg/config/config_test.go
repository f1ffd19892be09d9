package config_test

import (
	"testing"

	"github.com/shubham-shewale/stock-watchlist/pkg/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.App.Port != ":8080" {
		t.Errorf("App.Port = %q, want %q", cfg.App.Port, ":8080")
	}
	if cfg.Processor.BatchSize != 100 {
		t.Errorf("Processor.BatchSize = %d, want 100", cfg.Processor.BatchSize)
	}
	if cfg.Processor.FlushIntervalMs != 1000 {
		t.Errorf("Processor.FlushIntervalMs = %d, want 1000", cfg.Processor.FlushIntervalMs)
	}
	if cfg.Gateway.BroadcastGlobal {
		t.Errorf("Gateway.BroadcastGlobal = true, want false by default")
	}
}

func TestStreamLogConfig_URLTakesPrecedence(t *testing.T) {
	c := config.StreamLogConfig{Host: "localhost", Port: "6379", URL: "redis://cache:6380"}
	if got := c.Addr(); got != "redis://cache:6380" {
		t.Errorf("Addr() = %q, want URL to win", got)
	}
}

func TestStreamLogConfig_HostPortFallback(t *testing.T) {
	c := config.StreamLogConfig{Host: "redis-host", Port: "6380"}
	if got := c.Addr(); got != "redis-host:6380" {
		t.Errorf("Addr() = %q, want %q", got, "redis-host:6380")
	}
}

func TestStoreConfig_DatabaseURLTakesPrecedence(t *testing.T) {
	c := config.StoreConfig{Host: "localhost", Port: "5432", Name: "market", User: "u", Password: "p", DatabaseURL: "postgres://custom"}
	if got := c.DSN(); got != "postgres://custom" {
		t.Errorf("DSN() = %q, want DATABASE_URL to win", got)
	}
}
