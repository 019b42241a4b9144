// Package timex holds time helpers for configuration decoding.
package timex

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidDuration = errors.New("invalid duration")

// Duration wraps time.Duration so config files can carry either a Go
// duration string ("300ms", "1h") or an integer number of nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

// UnmarshalYAML implements yaml.v3's obsolete-style Unmarshaler so the
// package does not need to import yaml itself.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var v any
	if err := unmarshal(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case int:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDuration, value)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("%w: %v", ErrInvalidDuration, v)
	}
	return nil
}
