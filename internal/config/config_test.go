package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Port:             "8081",
		SQLiteDBPath:     "./data/test.db",
		WebSharedSecret:  "secret",
		TokenTTL:         24 * time.Hour,
		DashboardBaseURL: "https://avalonfi.example.com",
		SyncInterval:     30 * time.Second,
		AMQPExchange:     "avalonfi",
		AMQPQueue:        "mirror_transactions",
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Port = "abc" },
			wantMsg: "invalid port",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Port = "70000" },
			wantMsg: "must be between",
		},
		{
			name:    "missing shared secret",
			mutate:  func(c *Config) { c.WebSharedSecret = "" },
			wantMsg: "WEB_SHARED_SECRET",
		},
		{
			name:    "tiny token ttl",
			mutate:  func(c *Config) { c.TokenTTL = time.Second },
			wantMsg: "token TTL",
		},
		{
			name:    "bad amqp scheme",
			mutate:  func(c *Config) { c.AMQPURL = "http://localhost:5672" },
			wantMsg: "AMQP URL scheme",
		},
		{
			name:    "empty queue with amqp",
			mutate:  func(c *Config) { c.AMQPURL = "amqp://localhost:5672"; c.AMQPQueue = "" },
			wantMsg: "queue name",
		},
		{
			name:    "sync interval too small",
			mutate:  func(c *Config) { c.SyncInterval = 100 * time.Millisecond },
			wantMsg: "sync interval",
		},
		{
			name:    "bad dashboard url",
			mutate:  func(c *Config) { c.DashboardBaseURL = "not a url" },
			wantMsg: "dashboard base URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestMirrorEnabled(t *testing.T) {
	cfg := validConfig()
	if cfg.MirrorEnabled() {
		t.Fatal("mirror should be disabled without AMQP and spreadsheet")
	}
	cfg.AMQPURL = "amqp://localhost:5672"
	cfg.SpreadsheetID = "sheet-id"
	if !cfg.MirrorEnabled() {
		t.Fatal("mirror should be enabled")
	}
}
