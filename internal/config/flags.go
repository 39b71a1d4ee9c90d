package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tickmeter [flags] [-- command args...]",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Workload flags
	flags.String("target", "", "URL requested once per run (HTTP workload)")
	flags.String("method", "GET", "HTTP method for the target")
	flags.StringSlice("header", nil, "Additional request header in key=value form")
	flags.String("body", "", "Inline request body")
	flags.String("body-file", "", "Path to request body file")
	flags.Duration("timeout", 30*time.Second, "Per-run timeout")

	// Run control flags
	flags.IntP("runs", "n", 1, "Number of instrumented runs (0 means until --duration elapses)")
	flags.IntP("concurrency", "c", 1, "Number of concurrent runs")
	flags.IntP("rate", "r", 0, "Runs started per second (0 means unlimited)")
	flags.DurationP("duration", "d", 0, "Overall time limit (e.g. 30s, 1m)")
	flags.Int("retries", 0, "Number of retries per failed run")

	// Probe flags
	flags.String("probe", string(ProbeRuntime), "Probe sampled during each run: none, runtime, http or command")
	flags.Duration("interval", 100*time.Millisecond, "Probe sampling interval")
	flags.String("probe-url", "", "URL returning JSON for the http probe")
	flags.StringToString("probe-field", nil, "Field extracted by the http probe as name=gjson.path (repeatable)")
	flags.String("probe-command", "", "Command whose stdout (number or JSON) is sampled by the command probe")

	// Record and output flags
	flags.String("key", "", "Nest probe statistics under this record key")
	flags.Bool("flatten", false, "Flatten nested record keys into dotted names")
	flags.StringP("output", "o", string(OutputText), "Report format: text, json or yaml")
	flags.String("records-file", "", "Append every run's record to this file as JSON lines")
	flags.Bool("no-color", false, "Disable colored text output")
	flags.Bool("progress", false, "Print live progress while runs execute")
	flags.StringArray("threshold", nil, "Assertion such as 'duration < 500' or 'runs:p95 < 800' (repeatable)")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP endpoint for run spans (empty disables export)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")
	flags.String("tracing-service-name", "", "Service name reported with spans")
	flags.Bool("tracing-propagate", false, "Inject W3C trace headers into HTTP workload requests")
}

func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	integer := func(name string, dst *int) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetInt(name)
		}
	}
	duration := func(name string, dst *time.Duration) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetDuration(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetBool(name)
		}
	}

	str("target", &cfg.TargetURL)
	str("method", &cfg.Method)
	str("body", &cfg.Body)
	str("body-file", &cfg.BodyFile)
	duration("timeout", &cfg.Timeout)
	integer("runs", &cfg.Runs)
	integer("concurrency", &cfg.Concurrency)
	integer("rate", &cfg.Rate)
	duration("duration", &cfg.Duration)
	integer("retries", &cfg.Retries)
	duration("interval", &cfg.Probe.Interval)
	str("probe-url", &cfg.Probe.URL)
	str("key", &cfg.Key)
	boolean("flatten", &cfg.Flatten)
	str("records-file", &cfg.RecordsFile)
	boolean("no-color", &cfg.NoColor)
	boolean("progress", &cfg.Progress)
	str("log-level", &cfg.LogLevel)
	str("tracing-endpoint", &cfg.Tracing.Endpoint)
	str("tracing-protocol", &cfg.Tracing.Protocol)
	boolean("tracing-insecure", &cfg.Tracing.Insecure)
	str("tracing-service-name", &cfg.Tracing.ServiceName)
	boolean("tracing-propagate", &cfg.Tracing.Propagate)
	if err != nil {
		return err
	}

	if fs.Changed("tracing-sample-rate") {
		if cfg.Tracing.SampleRate, err = fs.GetFloat64("tracing-sample-rate"); err != nil {
			return err
		}
	}
	if fs.Changed("probe") {
		val, err := fs.GetString("probe")
		if err != nil {
			return err
		}
		cfg.Probe.Type = ProbeType(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("header") {
		values, err := fs.GetStringSlice("header")
		if err != nil {
			return err
		}
		for _, raw := range values {
			key, value, ok := strings.Cut(raw, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return fmt.Errorf("invalid header %q: expected key=value", raw)
			}
			cfg.Headers[http.CanonicalHeaderKey(strings.TrimSpace(key))] = strings.TrimSpace(value)
		}
	}
	if fs.Changed("probe-field") {
		fields, err := fs.GetStringToString("probe-field")
		if err != nil {
			return err
		}
		if cfg.Probe.Fields == nil {
			cfg.Probe.Fields = map[string]string{}
		}
		for name, path := range fields {
			cfg.Probe.Fields[name] = path
		}
	}
	if fs.Changed("probe-command") {
		val, err := fs.GetString("probe-command")
		if err != nil {
			return err
		}
		cfg.Probe.Command = strings.Fields(val)
	}
	if fs.Changed("threshold") {
		values, err := fs.GetStringArray("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = values
	}
	return nil
}
