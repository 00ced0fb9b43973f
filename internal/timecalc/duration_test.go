package timecalc_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Tiliavir/ots/internal/apperr"
	"github.com/Tiliavir/ots/internal/timecalc"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"00:00", 0},
		{"01:30", 90 * time.Minute},
		{"1:05", 65 * time.Minute},
		{"12:59", 12*time.Hour + 59*time.Minute},
		{"2", 2 * time.Hour},
		{" 03:15 ", 3*time.Hour + 15*time.Minute},
		{"100:00", 100 * time.Hour},
		{"9999:59", 9999*time.Hour + 59*time.Minute},
	}
	for _, tt := range tests {
		got, err := timecalc.ParseDuration(tt.in)
		if err != nil {
			t.Errorf("ParseDuration(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDurationErrors(t *testing.T) {
	for _, in := range []string{"", "ab:cd", "01:60", "-01:00", "01:-5", "1:2:3", "01:", ":30", "1.5",
		"10000:00", "3000000:00", "99999999999999999999"} {
		_, err := timecalc.ParseDuration(in)
		if !errors.Is(err, apperr.ErrFormat) {
			t.Errorf("ParseDuration(%q) err = %v, want ErrFormat", in, err)
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for minutes := 0; minutes < 48*60; minutes += 7 {
		d := time.Duration(minutes) * time.Minute
		got, err := timecalc.ParseDuration(timecalc.FormatHHMM(d))
		if err != nil {
			t.Fatalf("ParseDuration(FormatHHMM(%v)): %v", d, err)
		}
		if got != d {
			t.Fatalf("round trip %v -> %q -> %v", d, timecalc.FormatHHMM(d), got)
		}
	}
}

func TestFormatHHMM(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{59 * time.Second, "00:00"},
		{90 * time.Minute, "01:30"},
		{125*time.Hour + 5*time.Minute, "125:05"},
		{-time.Hour, "00:00"},
	}
	for _, tt := range tests {
		if got := timecalc.FormatHHMM(tt.d); got != tt.want {
			t.Errorf("FormatHHMM(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestDeltaApply(t *testing.T) {
	base := time.Hour
	tests := []struct {
		in   string
		base time.Duration
		want time.Duration
	}{
		{"00:45", base, 45 * time.Minute},
		{"+00:30", base, 90 * time.Minute},
		{"-00:15", base, 45 * time.Minute},
		{"-02:00", 90 * time.Minute, 0},
		{"+0:00", 0, 0},
	}
	for _, tt := range tests {
		d, err := timecalc.ParseDelta(tt.in)
		if err != nil {
			t.Fatalf("ParseDelta(%q): %v", tt.in, err)
		}
		if got := d.Apply(tt.base); got != tt.want {
			t.Errorf("ParseDelta(%q).Apply(%v) = %v, want %v", tt.in, tt.base, got, tt.want)
		}
	}
}

func TestDeltaErrors(t *testing.T) {
	for _, in := range []string{"+", "--01:00", "+-01:00", "+1:75", "+3000000:00", "-3000000:00"} {
		if _, err := timecalc.ParseDelta(in); !errors.Is(err, apperr.ErrFormat) {
			t.Errorf("ParseDelta(%q) err = %v, want ErrFormat", in, err)
		}
	}
}
