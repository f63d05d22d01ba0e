// Package simtime provides the simulated clock primitives: nanosecond
// timestamps on a fixed epoch and the duration literal grammar used in
// latency configuration. Simulation time is monotonic and never tied to
// the wall clock.
package simtime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamp is a signed nanosecond offset from a fixed epoch.
type Timestamp int64

// MinTimestamp is earlier than any timestamp produced during a run.
const MinTimestamp = Timestamp(-1 << 63)

// Add returns the timestamp shifted forward by d.
func (t Timestamp) Add(d time.Duration) Timestamp {
	return t + Timestamp(d)
}

// Sub returns the duration t - u.
func (t Timestamp) Sub(u Timestamp) time.Duration {
	return time.Duration(t - u)
}

// Before reports whether t is strictly earlier than u.
func (t Timestamp) Before(u Timestamp) bool { return t < u }

// After reports whether t is strictly later than u.
func (t Timestamp) After(u Timestamp) bool { return t > u }

// Nanos returns the raw nanosecond count.
func (t Timestamp) Nanos() int64 { return int64(t) }

// String formats the timestamp as decimal nanoseconds since epoch.
// ParseTimestamp(t.String()) == t for every t.
func (t Timestamp) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// ParseTimestamp parses a decimal nanosecond count.
func ParseTimestamp(s string) (Timestamp, error) {
	ns, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp string %q: %w", s, err)
	}
	return Timestamp(ns), nil
}

// ParseDuration parses a duration literal of the form <integer><unit>,
// where unit is one of ns, us, micros, ms, millis, s, sec. A bare "0"
// is accepted as zero. The grammar is deliberately narrower than
// time.ParseDuration: no fractions, no compound literals.
func ParseDuration(s string) (time.Duration, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, nil
	}
	lower := strings.ToLower(trimmed)

	i := 0
	if i < len(lower) && (lower[i] == '-' || lower[i] == '+') {
		i++
	}
	digitStart := i
	for i < len(lower) && lower[i] >= '0' && lower[i] <= '9' {
		i++
	}
	if i == digitStart {
		return 0, fmt.Errorf("invalid duration string %q: missing value", s)
	}

	value, err := strconv.ParseInt(lower[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration string %q: %w", s, err)
	}

	switch unit := lower[i:]; unit {
	case "ns":
		return time.Duration(value) * time.Nanosecond, nil
	case "us", "micros":
		return time.Duration(value) * time.Microsecond, nil
	case "ms", "millis":
		return time.Duration(value) * time.Millisecond, nil
	case "s", "sec":
		return time.Duration(value) * time.Second, nil
	case "":
		if value == 0 {
			return 0, nil
		}
		return 0, fmt.Errorf("invalid duration string %q: missing unit", s)
	default:
		return 0, fmt.Errorf("invalid duration string %q: unsupported unit %q", s, unit)
	}
}
