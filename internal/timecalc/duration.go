package timecalc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Tiliavir/ots/internal/apperr"
)

// MaxHours is the largest hour component ParseDuration accepts.
const MaxHours = 9999

// ParseDuration parses "HH:mm". A bare "H" is read as whole hours.
func ParseDuration(text string) (time.Duration, error) {
	text = strings.TrimSpace(text)
	hoursStr, minutesStr, found := strings.Cut(text, ":")
	if !found {
		minutesStr = "0"
	}
	hours, err := parseComponent(hoursStr)
	if err != nil {
		return 0, apperr.Errorf(apperr.ErrFormat, "duration %q: expected HH:mm", text)
	}
	if hours > MaxHours {
		return 0, apperr.Errorf(apperr.ErrFormat, "duration %q: more than %d hours", text, MaxHours)
	}
	minutes, err := parseComponent(minutesStr)
	if err != nil || minutes >= 60 {
		return 0, apperr.Errorf(apperr.ErrFormat, "duration %q: expected HH:mm with minutes below 60", text)
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
}

// parseComponent accepts a non-empty run of ASCII digits only, so signs and
// spaces inside a component are rejected.
func parseComponent(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

// FormatHHMM formats d as zero-padded "HH:mm", truncating seconds.
func FormatHHMM(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int64(d / time.Minute)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Delta is a parsed duration argument: Sign 0 replaces the current value,
// +1 and -1 adjust it.
type Delta struct {
	Sign   int
	Amount time.Duration
}

// ParseDelta parses "[+|-]HH:mm".
func ParseDelta(text string) (Delta, error) {
	text = strings.TrimSpace(text)
	var d Delta
	switch {
	case strings.HasPrefix(text, "+"):
		d.Sign = 1
		text = text[1:]
	case strings.HasPrefix(text, "-"):
		d.Sign = -1
		text = text[1:]
	}
	amount, err := ParseDuration(text)
	if err != nil {
		return Delta{}, err
	}
	d.Amount = amount
	return d, nil
}

// Apply returns base adjusted by the delta, never below zero.
func (d Delta) Apply(base time.Duration) time.Duration {
	var res time.Duration
	switch d.Sign {
	case 1:
		res = base + d.Amount
	case -1:
		res = base - d.Amount
	default:
		res = d.Amount
	}
	if res < 0 {
		return 0
	}
	return res
}

func (d Delta) String() string {
	switch d.Sign {
	case 1:
		return "+" + FormatHHMM(d.Amount)
	case -1:
		return "-" + FormatHHMM(d.Amount)
	}
	return FormatHHMM(d.Amount)
}
