package auth

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2025-01-15T12:00:00")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC).Unix()
	if ts != want {
		t.Fatalf("expected %d, got %d", want, ts)
	}
}

func TestParseTimestampFraction(t *testing.T) {
	ts, err := ParseTimestamp("2025-01-15T12:00:00.123456")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC).Unix()
	if ts != want {
		t.Fatalf("expected %d, got %d", want, ts)
	}
}

func TestParseTimestampRejectsZone(t *testing.T) {
	if _, err := ParseTimestamp("2025-01-15T12:00:00Z"); err == nil {
		t.Fatal("expected zone suffix to be rejected")
	}
	if _, err := ParseTimestamp("2025-01-15T12:00:00+02:00"); err == nil {
		t.Fatal("expected offset suffix to be rejected")
	}
}

func TestParseTimestampRejectsEpoch(t *testing.T) {
	if _, err := ParseTimestamp("1736942400"); err == nil {
		t.Fatal("expected epoch seconds to be rejected")
	}
}

func TestIsFreshBoundaries(t *testing.T) {
	now := int64(1_000_000)
	cases := []struct {
		name string
		ts   int64
		want bool
	}{
		{"equal", now, true},
		{"at past boundary", now - 60, true},
		{"at future boundary", now + 60, true},
		{"past boundary exceeded", now - 61, false},
		{"future boundary exceeded", now + 61, false},
	}
	for _, tc := range cases {
		if got := IsFresh(tc.ts, now, 60); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
