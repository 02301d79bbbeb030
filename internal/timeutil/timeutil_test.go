package timeutil

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"08:30", 510, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"-1:00", 0, true},
		{"8", 0, true},
		{"not-a-time", 0, true},
		{"", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "00:00"},
		{510, "08:30"},
		{1439, "23:59"},
		{-5, "00:00"},
	}
	for _, tc := range cases {
		if got := FormatClock(tc.in); got != tc.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClockRoundTrip(t *testing.T) {
	for min := 0; min < 24*60; min += 17 {
		got, err := ParseClock(FormatClock(min))
		if err != nil {
			t.Fatalf("round trip %d: %v", min, err)
		}
		if got != min {
			t.Errorf("round trip %d came back as %d", min, got)
		}
	}
}

func TestResolveDate(t *testing.T) {
	now := time.Date(2026, 8, 19, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"today", "2026-08-19", false},
		{"", "2026-08-19", false},
		{"Tomorrow", "2026-08-20", false},
		{"2026-12-01", "2026-12-01", false},
		{"12/01/2026", "", true},
		{"yesterday", "", true},
	}

	for _, tc := range cases {
		got, err := ResolveDate(tc.in, now)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ResolveDate(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolveDate(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ResolveDate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMinuteOfDay(t *testing.T) {
	moment := time.Date(2026, 8, 19, 18, 59, 42, 0, time.UTC)
	if got := MinuteOfDay(moment); got != 18*60+59 {
		t.Errorf("MinuteOfDay = %d, want %d", got, 18*60+59)
	}
}
