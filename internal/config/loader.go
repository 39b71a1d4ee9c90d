package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
// Arguments after "--" form the command workload.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := Defaults()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		cfg.Command = append([]string(nil), rest...)
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	cfg.Key = strings.TrimSpace(cfg.Key)
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	fields := []struct {
		keys  []string
		apply func(interface{}) error
	}{
		{[]string{"target"}, setString(&cfg.TargetURL)},
		{[]string{"method"}, setString(&cfg.Method)},
		{[]string{"headers"}, mergeHeaders(&cfg.Headers)},
		{[]string{"body"}, setRawString(&cfg.Body)},
		{[]string{"body_file", "bodyfile", "body-file"}, setString(&cfg.BodyFile)},
		{[]string{"command"}, setCommand(&cfg.Command)},
		{[]string{"timeout"}, setDuration(&cfg.Timeout)},
		{[]string{"runs"}, setInt(&cfg.Runs)},
		{[]string{"concurrency"}, setInt(&cfg.Concurrency)},
		{[]string{"rate"}, setInt(&cfg.Rate)},
		{[]string{"duration"}, setDuration(&cfg.Duration)},
		{[]string{"retries"}, setInt(&cfg.Retries)},
		{[]string{"key"}, setString(&cfg.Key)},
		{[]string{"flatten"}, setBool(&cfg.Flatten)},
		{[]string{"output"}, func(raw interface{}) error {
			var s string
			if err := setString(&s)(raw); err != nil {
				return err
			}
			cfg.Output = OutputFormat(strings.ToLower(s))
			return nil
		}},
		{[]string{"records_file", "recordsfile", "records-file"}, setString(&cfg.RecordsFile)},
		{[]string{"no_color", "nocolor", "no-color"}, setBool(&cfg.NoColor)},
		{[]string{"progress"}, setBool(&cfg.Progress)},
		{[]string{"thresholds"}, setStringSlice(&cfg.Thresholds)},
		{[]string{"log_level", "loglevel", "log-level"}, setString(&cfg.LogLevel)},
		{[]string{"probe"}, func(raw interface{}) error { return applyProbeSettings(&cfg.Probe, raw) }},
		{[]string{"tracing"}, func(raw interface{}) error { return applyTracingSettings(&cfg.Tracing, raw) }},
	}

	for _, f := range fields {
		raw, ok := lookupSetting(settings, f.keys...)
		if !ok {
			continue
		}
		if err := f.apply(raw); err != nil {
			return fmt.Errorf("%s: %w", f.keys[0], err)
		}
	}
	return nil
}

func applyProbeSettings(p *ProbeConfig, raw interface{}) error {
	settings, err := asStringKeyMap(raw)
	if err != nil {
		return err
	}
	fields := []struct {
		key   string
		apply func(interface{}) error
	}{
		{"type", func(raw interface{}) error {
			var s string
			if err := setString(&s)(raw); err != nil {
				return err
			}
			p.Type = ProbeType(strings.ToLower(s))
			return nil
		}},
		{"interval", setDuration(&p.Interval)},
		{"url", setString(&p.URL)},
		{"fields", mergeStringMap(&p.Fields)},
		{"command", setCommand(&p.Command)},
	}
	for _, f := range fields {
		if v, ok := lookupSetting(settings, f.key); ok {
			if err := f.apply(v); err != nil {
				return fmt.Errorf("%s: %w", f.key, err)
			}
		}
	}
	return nil
}

func applyTracingSettings(t *TracingConfig, raw interface{}) error {
	settings, err := asStringKeyMap(raw)
	if err != nil {
		return err
	}
	fields := []struct {
		keys  []string
		apply func(interface{}) error
	}{
		{[]string{"endpoint"}, setString(&t.Endpoint)},
		{[]string{"protocol"}, setString(&t.Protocol)},
		{[]string{"insecure"}, setBool(&t.Insecure)},
		{[]string{"sample_rate", "samplerate", "sample-rate"}, setFloat(&t.SampleRate)},
		{[]string{"service_name", "servicename", "service-name"}, setString(&t.ServiceName)},
		{[]string{"propagate"}, setBool(&t.Propagate)},
	}
	for _, f := range fields {
		if v, ok := lookupSetting(settings, f.keys...); ok {
			if err := f.apply(v); err != nil {
				return fmt.Errorf("%s: %w", f.keys[0], err)
			}
		}
	}
	return nil
}
