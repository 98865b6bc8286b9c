package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/arqlink/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	testlog.Start(t)
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default invalid: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:5000" {
		t.Fatalf("unexpected addr: %s", cfg.Addr())
	}
	policy, err := cfg.RetryPolicy()
	if err != nil {
		t.Fatalf("retry policy: %v", err)
	}
	if policy.MaxAttempts != 5 || policy.AttemptTimeout != time.Second || policy.Backoff.InitialDelay != time.Second {
		t.Fatalf("unexpected policy: %+v", policy)
	}
}

func TestTemplatesLoadToDefaults(t *testing.T) {
	testlog.Start(t)
	for _, format := range []Format{FormatTOML, FormatYAML} {
		tmpl, err := Template(format)
		if err != nil {
			t.Fatalf("template %s: %v", format, err)
		}
		got, err := Load(writeFile(t, "arqlink."+string(format), tmpl))
		if err != nil {
			t.Fatalf("load %s template: %v", format, err)
		}
		want := Default()
		if got.Addr() != want.Addr() ||
			got.Sender != want.Sender ||
			got.Receiver.CorruptionProbability != want.Receiver.CorruptionProbability ||
			got.Receiver.Sentinel != want.Receiver.Sentinel ||
			got.Log != want.Log {
			t.Fatalf("%s template diverges from defaults: %+v", format, got)
		}
	}
}

func TestLoadTOMLPartialOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "arqlink.toml", `
[server]
port = 6000

[sender]
timeout = "250ms"
max_attempts = 3

[receiver]
corruption_probability = 0.0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:6000" {
		t.Fatalf("unexpected addr: %s", cfg.Addr())
	}
	sc, err := cfg.SenderConfig()
	if err != nil {
		t.Fatalf("sender config: %v", err)
	}
	if sc.Retry.AttemptTimeout != 250*time.Millisecond || sc.Retry.MaxAttempts != 3 {
		t.Fatalf("unexpected retry policy: %+v", sc.Retry)
	}
	if sc.Retry.Backoff.InitialDelay != time.Second {
		t.Fatalf("retry delay should keep default: %v", sc.Retry.Backoff.InitialDelay)
	}
	if cfg.Receiver.CorruptionProbability != 0 || cfg.Simulator().Probability() != 0 {
		t.Fatalf("probability override lost")
	}
}

func TestLoadYAML(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "arqlink.yml", `
server:
  host: 0.0.0.0
receiver:
  admin_addr: 127.0.0.1:7010
  admin_token: s3cret
  sentinel: "#"
log:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	admin := cfg.AdminConfig("recv")
	if cfg.Server.Host != "0.0.0.0" || admin.Addr != "127.0.0.1:7010" || admin.Token != "s3cret" || admin.NodeID != "recv" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.LogConfig().Level != zerolog.DebugLevel {
		t.Fatalf("unexpected log level: %v", cfg.LogConfig().Level)
	}
	if cfg.Receiver.Sentinel != "#" || cfg.Receiver.CorruptionProbability != DefaultCorruptionProbability {
		t.Fatalf("unexpected receiver section: %+v", cfg.Receiver)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)
	if _, err := Load(writeFile(t, "arqlink.toml", "[sender]\nretries = 4\n")); !errors.Is(err, ErrUnknownKeys) {
		t.Fatalf("toml expected ErrUnknownKeys, got %v", err)
	}
	if _, err := Load(writeFile(t, "arqlink.yaml", "sender:\n  retries: 4\n")); !errors.Is(err, ErrUnknownKeys) {
		t.Fatalf("yaml expected ErrUnknownKeys, got %v", err)
	}
}

func TestLoadRejectsNaNProbability(t *testing.T) {
	testlog.Start(t)
	_, err := Load(writeFile(t, "arqlink.toml", "[receiver]\ncorruption_probability = nan\n"))
	if err == nil || !strings.Contains(err.Error(), "corruption_probability") {
		t.Fatalf("expected nan probability to be rejected, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name   string
		mutate func(*File)
		want   string
	}{
		{name: "empty host", mutate: func(f *File) { f.Server.Host = " " }, want: "server.host"},
		{name: "port zero", mutate: func(f *File) { f.Server.Port = 0 }, want: "server.port"},
		{name: "port high", mutate: func(f *File) { f.Server.Port = 70000 }, want: "server.port"},
		{name: "no attempts", mutate: func(f *File) { f.Sender.MaxAttempts = 0 }, want: "max_attempts"},
		{name: "bad timeout", mutate: func(f *File) { f.Sender.Timeout = "abc" }, want: "sender.timeout"},
		{name: "zero timeout", mutate: func(f *File) { f.Sender.Timeout = "0s" }, want: "sender.timeout"},
		{name: "negative delay", mutate: func(f *File) { f.Sender.RetryDelay = "-1s" }, want: "retry_delay"},
		{name: "probability high", mutate: func(f *File) { f.Receiver.CorruptionProbability = 1.5 }, want: "corruption_probability"},
		{name: "probability low", mutate: func(f *File) { f.Receiver.CorruptionProbability = -0.1 }, want: "corruption_probability"},
		{name: "probability nan", mutate: func(f *File) { f.Receiver.CorruptionProbability = math.NaN() }, want: "corruption_probability"},
		{name: "sentinel delimiter", mutate: func(f *File) { f.Receiver.Sentinel = "|" }, want: "sentinel"},
		{name: "sentinel long", mutate: func(f *File) { f.Receiver.Sentinel = "ab" }, want: "sentinel"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRenderRoundTrip(t *testing.T) {
	testlog.Start(t)
	cfg := Default()
	cfg.Server.Port = 5100
	cfg.Receiver.AdminToken = "tok"
	for _, format := range []Format{FormatTOML, FormatYAML} {
		b, err := Render(cfg, format)
		if err != nil {
			t.Fatalf("render %s: %v", format, err)
		}
		got, err := Load(writeFile(t, "rendered."+string(format), string(b)))
		if err != nil {
			t.Fatalf("reload %s: %v\n%s", format, err, b)
		}
		if got.Server.Port != 5100 || got.Receiver.AdminToken != "tok" {
			t.Fatalf("%s render lost values: %+v", format, got)
		}
	}
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "arqlink.toml")
	if err := WriteTemplate(path, FormatTOML, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteTemplate(path, FormatTOML, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, FormatYAML, true); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}
	if _, err := ParseFormat("ini"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
