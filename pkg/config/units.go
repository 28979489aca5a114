package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support extended units (d, w) in YAML.
type Duration time.Duration

// Common durations.
const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

var durationTokenRe = regexp.MustCompile(`(\d+(?:\.\d+)?)(ns|us|µs|ms|s|m|h|d|w)`)

// ParseDuration parses a duration string, additionally supporting d and w.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if !strings.ContainsAny(s, "dw") {
		return time.ParseDuration(s)
	}

	matches := durationTokenRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	var total time.Duration
	for _, m := range matches {
		var val float64
		if _, err := fmt.Sscanf(m[1], "%f", &val); err != nil {
			return 0, fmt.Errorf("invalid duration value %q: %w", m[1], err)
		}
		switch m[2] {
		case "d":
			total += time.Duration(val * float64(Day))
		case "w":
			total += time.Duration(val * float64(Week))
		default:
			part, err := time.ParseDuration(m[1] + m[2])
			if err != nil {
				return 0, err
			}
			total += part
		}
	}
	return total, nil
}
