// Package config provides configuration loading and parsing for tickmeter.
package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// lookupSetting searches for a value in settings using multiple candidate keys.
// It performs case-insensitive matching by also checking lowercase versions.
func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		if val, ok := settings[key]; ok {
			return val, true
		}
		lower := strings.ToLower(key)
		if val, ok := settings[lower]; ok {
			return val, true
		}
	}
	return nil, false
}

func setString(dst *string) func(interface{}) error {
	return func(raw interface{}) error {
		v, err := cast.ToStringE(raw)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(v)
		return nil
	}
}

// setRawString keeps surrounding whitespace, which matters for request bodies.
func setRawString(dst *string) func(interface{}) error {
	return func(raw interface{}) error {
		v, err := cast.ToStringE(raw)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func setInt(dst *int) func(interface{}) error {
	return func(raw interface{}) error {
		v, err := cast.ToIntE(raw)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func setFloat(dst *float64) func(interface{}) error {
	return func(raw interface{}) error {
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func setBool(dst *bool) func(interface{}) error {
	return func(raw interface{}) error {
		v, err := cast.ToBoolE(raw)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

// setDuration accepts Go duration strings ("250ms") or a bare number of
// milliseconds.
func setDuration(dst *time.Duration) func(interface{}) error {
	return func(raw interface{}) error {
		switch v := raw.(type) {
		case int, int64, float64:
			ms, err := cast.ToInt64E(v)
			if err != nil {
				return err
			}
			*dst = time.Duration(ms) * time.Millisecond
			return nil
		}
		v, err := cast.ToDurationE(raw)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func setStringSlice(dst *[]string) func(interface{}) error {
	return func(raw interface{}) error {
		v, err := cast.ToStringSliceE(raw)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

// setCommand accepts either an argv list or a single whitespace-separated string.
func setCommand(dst *[]string) func(interface{}) error {
	return func(raw interface{}) error {
		if s, ok := raw.(string); ok {
			*dst = strings.Fields(s)
			return nil
		}
		return setStringSlice(dst)(raw)
	}
}

func mergeStringMap(dst *map[string]string) func(interface{}) error {
	return func(raw interface{}) error {
		v, err := cast.ToStringMapStringE(raw)
		if err != nil {
			return err
		}
		if *dst == nil {
			*dst = make(map[string]string, len(v))
		}
		for k, val := range v {
			(*dst)[k] = val
		}
		return nil
	}
}

// mergeHeaders canonicalizes header names, which viper lower-cases when reading files.
func mergeHeaders(dst *map[string]string) func(interface{}) error {
	return func(raw interface{}) error {
		v, err := cast.ToStringMapStringE(raw)
		if err != nil {
			return err
		}
		if *dst == nil {
			*dst = make(map[string]string, len(v))
		}
		for k, val := range v {
			key := strings.TrimSpace(k)
			if key == "" {
				return fmt.Errorf("header name cannot be empty")
			}
			(*dst)[http.CanonicalHeaderKey(key)] = val
		}
		return nil
	}
}

func asStringKeyMap(raw interface{}) (map[string]interface{}, error) {
	m, err := cast.ToStringMapE(raw)
	if err != nil {
		return nil, fmt.Errorf("expected an object: %w", err)
	}
	return m, nil
}
