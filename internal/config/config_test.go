package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Scan.SubnetPrefix != 24 {
		t.Errorf("SubnetPrefix = %d, want 24", cfg.Scan.SubnetPrefix)
	}
	if len(cfg.Scan.Ports) != 13 {
		t.Errorf("len(Ports) = %d, want 13", len(cfg.Scan.Ports))
	}
	if cfg.Scan.Concurrency != 100 {
		t.Errorf("Concurrency = %d, want 100", cfg.Scan.Concurrency)
	}
	if cfg.Scan.RateLimit != 300 {
		t.Errorf("RateLimit = %d, want 300", cfg.Scan.RateLimit)
	}
	if cfg.Scan.ProbeTimeout() != 6*time.Second {
		t.Errorf("ProbeTimeout = %s, want 6s", cfg.Scan.ProbeTimeout())
	}
	if cfg.AMQP.URL != "" {
		t.Errorf("AMQP.URL should default to empty (publishing disabled), got %q", cfg.AMQP.URL)
	}
	if err := cfg.Scan.Validate(); err != nil {
		t.Errorf("default scan config should validate, got %v", err)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "httpmap.yaml")
	data := []byte(`
scan:
  subnet_prefix: 16
  concurrency: 50
  timeout: 2000
server:
  port: 9090
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Scan.SubnetPrefix != 16 {
		t.Errorf("SubnetPrefix = %d, want 16", cfg.Scan.SubnetPrefix)
	}
	if cfg.Scan.Concurrency != 50 {
		t.Errorf("Concurrency = %d, want 50", cfg.Scan.Concurrency)
	}
	if cfg.Scan.ProbeTimeout() != 2*time.Second {
		t.Errorf("ProbeTimeout = %s, want 2s", cfg.Scan.ProbeTimeout())
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	// Untouched fields keep their defaults.
	if cfg.Scan.RateLimit != 300 {
		t.Errorf("RateLimit = %d, want default 300", cfg.Scan.RateLimit)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestScanConfigValidate(t *testing.T) {
	valid := ScanConfig{
		SubnetPrefix: 24,
		Ports:        DefaultPorts,
		Concurrency:  100,
		RateLimit:    300,
		Timeout:      6000,
	}

	tests := []struct {
		name    string
		mutate  func(*ScanConfig)
		wantErr bool
		prefix  bool // expect ErrInvalidPrefix specifically
	}{
		{"valid", func(c *ScanConfig) {}, false, false},
		{"prefix 1", func(c *ScanConfig) { c.SubnetPrefix = 1 }, false, false},
		{"prefix 31", func(c *ScanConfig) { c.SubnetPrefix = 31 }, false, false},
		{"prefix 0", func(c *ScanConfig) { c.SubnetPrefix = 0 }, true, true},
		{"prefix 32", func(c *ScanConfig) { c.SubnetPrefix = 32 }, true, true},
		{"prefix 33", func(c *ScanConfig) { c.SubnetPrefix = 33 }, true, true},
		{"zero concurrency", func(c *ScanConfig) { c.Concurrency = 0 }, true, false},
		{"negative rate", func(c *ScanConfig) { c.RateLimit = -1 }, true, false},
		{"zero timeout", func(c *ScanConfig) { c.Timeout = 0 }, true, false},
		{"no ports", func(c *ScanConfig) { c.Ports = nil }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.prefix && !errors.Is(err, ErrInvalidPrefix) {
				t.Errorf("expected ErrInvalidPrefix, got %v", err)
			}
		})
	}
}
