package config_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/torosent/tickmeter/internal/config"
)

func validConfig() *config.Config {
	cfg := config.Defaults()
	cfg.TargetURL = "http://localhost:8080"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := config.Defaults()
	if cfg.Method != "GET" {
		t.Errorf("Method = %q, want GET", cfg.Method)
	}
	if cfg.Runs != 1 || cfg.Concurrency != 1 {
		t.Errorf("Runs/Concurrency = %d/%d, want 1/1", cfg.Runs, cfg.Concurrency)
	}
	if cfg.Probe.Type != config.ProbeRuntime {
		t.Errorf("Probe.Type = %q, want runtime", cfg.Probe.Type)
	}
	if cfg.Probe.Interval != 100*time.Millisecond {
		t.Errorf("Probe.Interval = %s, want 100ms", cfg.Probe.Interval)
	}
	if cfg.Output != config.OutputText {
		t.Errorf("Output = %q, want text", cfg.Output)
	}
	if cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("Tracing.SampleRate = %g, want 1.0", cfg.Tracing.SampleRate)
	}
}

func TestValidateAcceptsTarget(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateAcceptsCommand(t *testing.T) {
	cfg := config.Defaults()
	cfg.Command = []string{"sleep", "0.1"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateReportsIssues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"no workload", func(c *config.Config) { c.TargetURL = "" }, "target URL or a command is required"},
		{"both workloads", func(c *config.Config) { c.Command = []string{"true"} }, "mutually exclusive"},
		{"body and body file", func(c *config.Config) { c.Body = "{}"; c.BodyFile = "body.json" }, "cannot both be set"},
		{"body with command", func(c *config.Config) { c.TargetURL = ""; c.Command = []string{"true"}; c.Body = "x" }, "HTTP targets only"},
		{"negative runs", func(c *config.Config) { c.Runs = -1 }, "runs must be >= 0"},
		{"unbounded runs", func(c *config.Config) { c.Runs = 0 }, "requires a duration"},
		{"zero concurrency", func(c *config.Config) { c.Concurrency = 0 }, "concurrency must be >= 1"},
		{"negative rate", func(c *config.Config) { c.Rate = -5 }, "rate must be >= 0"},
		{"negative retries", func(c *config.Config) { c.Retries = -1 }, "retries must be >= 0"},
		{"negative interval", func(c *config.Config) { c.Probe.Interval = -time.Second }, "interval must be >= 0"},
		{"unknown probe", func(c *config.Config) { c.Probe.Type = "disk" }, "probe: type must be"},
		{"http probe without url", func(c *config.Config) { c.Probe.Type = config.ProbeHTTP }, "url is required"},
		{"command probe without argv", func(c *config.Config) { c.Probe.Type = config.ProbeCommand }, "command is required"},
		{"bad output", func(c *config.Config) { c.Output = "xml" }, "output: must be"},
		{"bad log level", func(c *config.Config) { c.LogLevel = "trace" }, "unsupported level"},
		{"bad tracing protocol", func(c *config.Config) { c.Tracing.Protocol = "udp" }, "tracing: protocol"},
		{"bad sample rate", func(c *config.Config) { c.Tracing.SampleRate = 1.5 }, "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestValidationErrorIssues(t *testing.T) {
	cfg := config.Defaults()
	cfg.Concurrency = 0
	cfg.Output = "xml"

	err := cfg.Validate()
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error type = %T, want ValidationError", err)
	}
	if got := len(verr.Issues()); got != 3 {
		t.Errorf("Issues() len = %d, want 3: %v", got, verr.Issues())
	}
}

func TestUnlimitedRunsWithDuration(t *testing.T) {
	cfg := validConfig()
	cfg.Runs = 0
	cfg.Duration = 10 * time.Second
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestTracingEnabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	var tc config.TracingConfig
	if tc.Enabled() {
		t.Fatal("Enabled() = true for empty config")
	}
	tc.Endpoint = "localhost:4317"
	if !tc.Enabled() {
		t.Fatal("Enabled() = false with endpoint set")
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	if !(config.TracingConfig{}).Enabled() {
		t.Fatal("Enabled() = false with OTEL_EXPORTER_OTLP_ENDPOINT set")
	}
}
