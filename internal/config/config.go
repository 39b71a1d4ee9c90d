package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ProbeType selects the built-in probe sampled while the workload runs.
type ProbeType string

const (
	ProbeNone    ProbeType = "none"
	ProbeRuntime ProbeType = "runtime"
	ProbeHTTP    ProbeType = "http"
	ProbeCommand ProbeType = "command"
)

// OutputFormat selects how the final report is rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

type Config struct {
	TargetURL   string            `mapstructure:"target"`
	Method      string            `mapstructure:"method"`
	Headers     map[string]string `mapstructure:"headers"`
	Body        string            `mapstructure:"body"`
	BodyFile    string            `mapstructure:"body_file"`
	Command     []string          `mapstructure:"command"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	Runs        int               `mapstructure:"runs"`
	Concurrency int               `mapstructure:"concurrency"`
	Rate        int               `mapstructure:"rate"`
	Duration    time.Duration     `mapstructure:"duration"`
	Retries     int               `mapstructure:"retries"`
	Probe       ProbeConfig       `mapstructure:"probe"`
	Key         string            `mapstructure:"key"`
	Flatten     bool              `mapstructure:"flatten"`
	Output      OutputFormat      `mapstructure:"output"`
	RecordsFile string            `mapstructure:"records_file"`
	NoColor     bool              `mapstructure:"no_color"`
	Progress    bool              `mapstructure:"progress"`
	Thresholds  []string          `mapstructure:"thresholds"`
	LogLevel    string            `mapstructure:"log_level"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	ConfigFile  string            `mapstructure:"-"`
}

type ProbeConfig struct {
	Type     ProbeType         `mapstructure:"type"`
	Interval time.Duration     `mapstructure:"interval"`
	URL      string            `mapstructure:"url"`
	Fields   map[string]string `mapstructure:"fields"`  // record field -> gjson path
	Command  []string          `mapstructure:"command"` // argv; stdout is a number or JSON object
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
	Propagate   bool    `mapstructure:"propagate"` // inject W3C headers into HTTP workloads
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether trace context is injected into outgoing requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Propagate
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Method:      "GET",
		Headers:     map[string]string{},
		Timeout:     30 * time.Second,
		Runs:        1,
		Concurrency: 1,
		Probe: ProbeConfig{
			Type:     ProbeRuntime,
			Interval: 100 * time.Millisecond,
		},
		Output:   OutputText,
		LogLevel: "warn",
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: 1.0,
		},
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	hasTarget := strings.TrimSpace(c.TargetURL) != ""
	hasCommand := len(c.Command) > 0
	switch {
	case !hasTarget && !hasCommand:
		issues = append(issues, "a target URL or a command is required (use --help for usage information)")
	case hasTarget && hasCommand:
		issues = append(issues, "target and command are mutually exclusive")
	}

	if c.Body != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and body_file cannot both be set")
	}
	if hasCommand && (c.Body != "" || strings.TrimSpace(c.BodyFile) != "") {
		issues = append(issues, "body applies to HTTP targets only")
	}

	if c.Runs < 0 {
		issues = append(issues, "runs must be >= 0")
	}
	if c.Runs == 0 && c.Duration <= 0 {
		issues = append(issues, "runs=0 (unlimited) requires a duration")
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}

	issues = append(issues, validateProbeConfig(c.Probe)...)
	issues = append(issues, validateTracingConfig(c.Tracing)...)

	switch c.Output {
	case "", OutputText, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output: must be 'text', 'json' or 'yaml', got %q", c.Output))
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log_level: unsupported level %q", c.LogLevel))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateProbeConfig(p ProbeConfig) []string {
	var issues []string
	if p.Interval < 0 {
		issues = append(issues, "probe: interval must be >= 0")
	}
	switch p.Type {
	case "", ProbeNone, ProbeRuntime:
	case ProbeHTTP:
		if strings.TrimSpace(p.URL) == "" {
			issues = append(issues, "probe: url is required for http probes")
		}
		for name, path := range p.Fields {
			if strings.TrimSpace(name) == "" || strings.TrimSpace(path) == "" {
				issues = append(issues, "probe: fields need a non-empty name and path")
				break
			}
		}
	case ProbeCommand:
		if len(p.Command) == 0 {
			issues = append(issues, "probe: command is required for command probes")
		}
	default:
		issues = append(issues, fmt.Sprintf("probe: type must be 'none', 'runtime', 'http' or 'command', got %q", p.Type))
	}
	return issues
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
