package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadWithoutArgsRequestsHelp(t *testing.T) {
	_, err := NewLoader().Load(nil)
	if !errors.Is(err, ErrHelpRequested) {
		t.Fatalf("Load() error = %v, want ErrHelpRequested", err)
	}
}

func TestLoadHelpFlag(t *testing.T) {
	_, err := NewLoader().Load([]string{"--help"})
	if !errors.Is(err, ErrHelpRequested) {
		t.Fatalf("Load() error = %v, want ErrHelpRequested", err)
	}
}

func TestLoadFlags(t *testing.T) {
	cfg, err := NewLoader().Load([]string{
		"--target", " http://localhost:9000/health ",
		"--method", "post",
		"--header", "x-request-id=abc",
		"-n", "5",
		"-c", "2",
		"--rate", "10",
		"--interval", "250ms",
		"--probe", "HTTP",
		"--probe-url", "http://localhost:9000/stats",
		"--probe-field", "heap=memstats.heap",
		"--key", "probe",
		"--flatten",
		"-o", "JSON",
		"--threshold", "duration < 500",
		"--threshold", "runs:p95 < 800",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetURL != "http://localhost:9000/health" {
		t.Errorf("TargetURL = %q", cfg.TargetURL)
	}
	if cfg.Method != "POST" {
		t.Errorf("Method = %q, want POST", cfg.Method)
	}
	if cfg.Headers["X-Request-Id"] != "abc" {
		t.Errorf("Headers = %v, want X-Request-Id=abc", cfg.Headers)
	}
	if cfg.Runs != 5 || cfg.Concurrency != 2 || cfg.Rate != 10 {
		t.Errorf("Runs/Concurrency/Rate = %d/%d/%d, want 5/2/10", cfg.Runs, cfg.Concurrency, cfg.Rate)
	}
	if cfg.Probe.Type != ProbeHTTP || cfg.Probe.Interval != 250*time.Millisecond {
		t.Errorf("Probe = %+v", cfg.Probe)
	}
	if cfg.Probe.Fields["heap"] != "memstats.heap" {
		t.Errorf("Probe.Fields = %v", cfg.Probe.Fields)
	}
	if cfg.Key != "probe" || !cfg.Flatten {
		t.Errorf("Key/Flatten = %q/%v", cfg.Key, cfg.Flatten)
	}
	if cfg.Output != OutputJSON {
		t.Errorf("Output = %q, want json", cfg.Output)
	}
	if len(cfg.Thresholds) != 2 || cfg.Thresholds[1] != "runs:p95 < 800" {
		t.Errorf("Thresholds = %v", cfg.Thresholds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadCommandAfterDash(t *testing.T) {
	cfg, err := NewLoader().Load([]string{"-n", "3", "--", "sleep", "0.1"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Command) != 2 || cfg.Command[0] != "sleep" || cfg.Command[1] != "0.1" {
		t.Fatalf("Command = %v, want [sleep 0.1]", cfg.Command)
	}
	if cfg.Runs != 3 {
		t.Errorf("Runs = %d, want 3", cfg.Runs)
	}
}

func TestLoadInvalidHeader(t *testing.T) {
	_, err := NewLoader().Load([]string{"--target", "http://x", "--header", "novalue"})
	if err == nil {
		t.Fatal("Load() error = nil, want invalid header error")
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	path := writeConfig(t, "tickmeter.json", `{
		"target": "https://api.example.com",
		"method": "PUT",
		"headers": {"content-type": "application/json"},
		"runs": 20,
		"timeout": "45s",
		"retries": 2,
		"probe": {
			"type": "http",
			"interval": 50,
			"url": "https://api.example.com/stats",
			"fields": {"conns": "server.connections"}
		},
		"records_file": "runs.jsonl",
		"thresholds": ["duration < 900"],
		"tracing": {"endpoint": "localhost:4317", "sample_rate": 0.5, "insecure": true}
	}`)

	cfg, err := NewLoader().Load([]string{"--config", path, "--method", "patch", "-n", "7"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetURL != "https://api.example.com" {
		t.Errorf("TargetURL = %q", cfg.TargetURL)
	}
	if cfg.Method != "PATCH" {
		t.Errorf("Method = %q, want PATCH (flag overrides file)", cfg.Method)
	}
	if cfg.Runs != 7 {
		t.Errorf("Runs = %d, want 7 (flag overrides file)", cfg.Runs)
	}
	if cfg.Headers["Content-Type"] != "application/json" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if cfg.Timeout != 45*time.Second || cfg.Retries != 2 {
		t.Errorf("Timeout/Retries = %s/%d", cfg.Timeout, cfg.Retries)
	}
	if cfg.Probe.Type != ProbeHTTP || cfg.Probe.Interval != 50*time.Millisecond {
		t.Errorf("Probe = %+v", cfg.Probe)
	}
	if cfg.Probe.Fields["conns"] != "server.connections" {
		t.Errorf("Probe.Fields = %v", cfg.Probe.Fields)
	}
	if cfg.RecordsFile != "runs.jsonl" {
		t.Errorf("RecordsFile = %q", cfg.RecordsFile)
	}
	if len(cfg.Thresholds) != 1 || cfg.Thresholds[0] != "duration < 900" {
		t.Errorf("Thresholds = %v", cfg.Thresholds)
	}
	if cfg.Tracing.Endpoint != "localhost:4317" || cfg.Tracing.SampleRate != 0.5 || !cfg.Tracing.Insecure {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	path := writeConfig(t, "tickmeter.yaml", `
command: "sleep 0.05"
runs: 0
duration: 5s
concurrency: 4
probe:
  type: command
  command: ["cat", "/proc/loadavg"]
output: yaml
`)

	cfg, err := NewLoader().Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, []string{"sleep", "0.05"}, cfg.Command)
	assert.Zero(t, cfg.Runs)
	assert.Equal(t, 5*time.Second, cfg.Duration)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, ProbeCommand, cfg.Probe.Type)
	assert.Equal(t, []string{"cat", "/proc/loadavg"}, cfg.Probe.Command)
	assert.Equal(t, OutputYAML, cfg.Output)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := NewLoader().Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}

func TestLookupSettingCaseInsensitive(t *testing.T) {
	settings := map[string]interface{}{"records_file": "a.jsonl"}
	if v, ok := lookupSetting(settings, "RECORDS_FILE"); !ok || v != "a.jsonl" {
		t.Fatalf("lookupSetting() = %v, %v", v, ok)
	}
	if _, ok := lookupSetting(settings, "missing"); ok {
		t.Fatal("lookupSetting() found a missing key")
	}
}

func TestSetDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{"250ms", 250 * time.Millisecond},
		{"2s", 2 * time.Second},
		{100, 100 * time.Millisecond},
		{float64(1500), 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		var got time.Duration
		if err := setDuration(&got)(tt.input); err != nil {
			t.Errorf("setDuration(%v) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("setDuration(%v) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestSetCommand(t *testing.T) {
	var argv []string
	if err := setCommand(&argv)("echo hello world"); err != nil {
		t.Fatalf("setCommand() error = %v", err)
	}
	if len(argv) != 3 {
		t.Fatalf("argv = %v, want 3 elements", argv)
	}
	if err := setCommand(&argv)([]interface{}{"ls", "-la"}); err != nil {
		t.Fatalf("setCommand() error = %v", err)
	}
	if len(argv) != 2 || argv[1] != "-la" {
		t.Fatalf("argv = %v, want [ls -la]", argv)
	}
}
