package simtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampRoundTrip(t *testing.T) {
	cases := []string{"0", "1678886400000000000", "-5", "1000000000"}
	for _, s := range cases {
		ts, err := ParseTimestamp(s)
		require.NoError(t, err, "parsing %q", s)
		assert.Equal(t, s, ts.String(), "round trip of %q", s)
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	_, err := ParseTimestamp("not-a-number")
	assert.Error(t, err)

	_, err = ParseTimestamp("")
	assert.Error(t, err)
}

func TestTimestampArithmetic(t *testing.T) {
	t0 := Timestamp(1_000_000_000)
	t1 := t0.Add(50 * time.Microsecond)

	assert.Equal(t, Timestamp(1_000_050_000), t1)
	assert.Equal(t, 50*time.Microsecond, t1.Sub(t0))
	assert.True(t, t0.Before(t1))
	assert.True(t, t1.After(t0))
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"100ns", 100 * time.Nanosecond},
		{"50us", 50 * time.Microsecond},
		{"50micros", 50 * time.Microsecond},
		{"20ms", 20 * time.Millisecond},
		{"20millis", 20 * time.Millisecond},
		{"3s", 3 * time.Second},
		{"3sec", 3 * time.Second},
		{"0", 0},
		{"50US", 50 * time.Microsecond},
		{"", 0},
	}
	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		require.NoError(t, err, "parsing %q", tc.in)
		assert.Equal(t, tc.want, got, "parsing %q", tc.in)
	}
}

func TestParseDurationInvalid(t *testing.T) {
	for _, s := range []string{"100xyz", "abc", "100", "us", "12.5ms"} {
		_, err := ParseDuration(s)
		assert.Error(t, err, "expected error for %q", s)
	}
}

func TestParseDurationRoundTripValues(t *testing.T) {
	got, err := ParseDuration("50us")
	require.NoError(t, err)
	assert.EqualValues(t, 50_000, got.Nanoseconds())

	got, err = ParseDuration("20ms")
	require.NoError(t, err)
	assert.EqualValues(t, 20_000_000, got.Nanoseconds())
}
