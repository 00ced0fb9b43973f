package address_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Tiliavir/ots/internal/address"
	"github.com/Tiliavir/ots/internal/apperr"
	"github.com/Tiliavir/ots/internal/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		token string
		want  address.Index
	}{
		{"0", address.Index{DayOffset: 0, Position: 0}},
		{"3", address.Index{DayOffset: 0, Position: 3}},
		{"0.2", address.Index{DayOffset: 0, Position: 2}},
		{"1.0", address.Index{DayOffset: 1, Position: 0}},
		{" 12.4 ", address.Index{DayOffset: 12, Position: 4}},
	}
	for _, tt := range tests {
		got, err := address.Parse(tt.token)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.token, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.token, got, tt.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, token := range []string{"", "a", "1.a", "1.2.3", "-1", "1.-2", ".", "1."} {
		if _, err := address.Parse(token); !errors.Is(err, apperr.ErrAddress) {
			t.Errorf("Parse(%q) err = %v, want ErrAddress", token, err)
		}
	}
}

func TestResolveTodayEquivalence(t *testing.T) {
	today := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	short, err := address.Resolve("0", today)
	if err != nil {
		t.Fatal(err)
	}
	long, err := address.Resolve("0.0", today)
	if err != nil {
		t.Fatal(err)
	}
	if short != long {
		t.Errorf("Resolve(\"0\") = %+v, Resolve(\"0.0\") = %+v", short, long)
	}
	if short.Date != "2026-10-19" {
		t.Errorf("Date = %q, want 2026-10-19", short.Date)
	}
}

func TestResolveAcrossMonth(t *testing.T) {
	today := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p, err := address.Resolve("1.3", today)
	if err != nil {
		t.Fatal(err)
	}
	want := model.Pointer{Date: "2026-02-28", Position: 3}
	if p != want {
		t.Errorf("Resolve = %+v, want %+v", p, want)
	}
}

func TestFormat(t *testing.T) {
	today := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		p    model.Pointer
		want string
	}{
		{model.Pointer{Date: "2026-10-19", Position: 2}, "2"},
		{model.Pointer{Date: "2026-10-18", Position: 0}, "1.0"},
		{model.Pointer{Date: "2026-10-12", Position: 5}, "7.5"},
	}
	for _, tt := range tests {
		if got := address.Format(tt.p, today); got != tt.want {
			t.Errorf("Format(%+v) = %q, want %q", tt.p, got, tt.want)
		}
		back, err := address.Resolve(tt.want, today)
		if err != nil || back != tt.p {
			t.Errorf("Resolve(%q) = %+v, %v; want %+v", tt.want, back, err, tt.p)
		}
	}
}
