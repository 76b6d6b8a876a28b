package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // keep a developer .env out of the test

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.Sink != SinkStdout {
		t.Errorf("expected default sink %q, got %q", SinkStdout, cfg.Sink)
	}
	if cfg.MaxMessageSize != 1048576 {
		t.Errorf("expected default max message size 1048576, got %d", cfg.MaxMessageSize)
	}
	if cfg.RedisStream != "senzing_messages" || cfg.RedisDLQStream != "senzing_messages_dlq" {
		t.Errorf("unexpected default streams: %q, %q", cfg.RedisStream, cfg.RedisDLQStream)
	}
	if cfg.RejectLogInterval != time.Second {
		t.Errorf("expected reject log interval 1s, got %s", cfg.RejectLogInterval)
	}
	if !cfg.FailOnReject {
		t.Error("expected FailOnReject to default to true")
	}
	if len(cfg.RedactDetailKeys) != 0 {
		t.Errorf("expected no redacted keys, got %v", cfg.RedactDetailKeys)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SINK", " Redis ")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDACT_DETAIL_KEYS", "SSN,PASSWORD")
	t.Setenv("BATCH_SIZE", "10")
	t.Setenv("FAIL_ON_REJECT", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.Sink != SinkRedis {
		t.Errorf("expected sink %q, got %q", SinkRedis, cfg.Sink)
	}
	if len(cfg.RedactDetailKeys) != 2 || cfg.RedactDetailKeys[1] != "PASSWORD" {
		t.Errorf("unexpected redacted keys: %v", cfg.RedactDetailKeys)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("expected batch size 10, got %d", cfg.BatchSize)
	}
	if cfg.FailOnReject {
		t.Error("expected FailOnReject to be false")
	}
}

func TestValidate(t *testing.T) {
	base := Config{MaxMessageSize: 1024, BatchSize: 10, WriteRetryCount: 1}

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "stdout needs nothing", mutate: func(c *Config) { c.Sink = SinkStdout }},
		{name: "discard needs nothing", mutate: func(c *Config) { c.Sink = SinkDiscard }},
		{name: "wal needs a path", mutate: func(c *Config) { c.Sink = SinkWAL }, wantErr: "WAL_PATH"},
		{name: "redis needs an address", mutate: func(c *Config) { c.Sink = SinkRedis }, wantErr: "REDIS_ADDR"},
		{name: "postgres needs a url", mutate: func(c *Config) { c.Sink = SinkPostgres }, wantErr: "POSTGRES_URL"},
		{name: "unknown sink", mutate: func(c *Config) { c.Sink = "kafka" }, wantErr: `unknown SINK "kafka"`},
		{name: "zero batch size", mutate: func(c *Config) { c.Sink = SinkStdout; c.BatchSize = 0 }, wantErr: "BATCH_SIZE"},
		{name: "zero message size", mutate: func(c *Config) { c.Sink = SinkStdout; c.MaxMessageSize = 0 }, wantErr: "MAX_MESSAGE_SIZE_BYTES"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() returned an unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
