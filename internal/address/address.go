// Package address maps user-facing index tokens onto (date, position)
// pointers. A token is either "N", position N today, or "D.N", position N on
// the day D days before today.
package address

import (
	"strconv"
	"strings"
	"time"

	"github.com/Tiliavir/ots/internal/apperr"
	"github.com/Tiliavir/ots/internal/model"
	"github.com/Tiliavir/ots/internal/timecalc"
)

// Index is a parsed token, still relative to "today".
type Index struct {
	DayOffset int
	Position  int
}

// Parse parses an index token.
func Parse(token string) (Index, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) > 2 {
		return Index{}, invalid(token)
	}
	var idx Index
	var err error
	if len(parts) == 2 {
		if idx.DayOffset, err = parseNonNegative(parts[0]); err != nil {
			return Index{}, invalid(token)
		}
	}
	if idx.Position, err = parseNonNegative(parts[len(parts)-1]); err != nil {
		return Index{}, invalid(token)
	}
	return idx, nil
}

func parseNonNegative(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

func invalid(token string) error {
	return apperr.Errorf(apperr.ErrAddress,
		"the index needs to be an integer, or two integers separated by a period '.', got %q", token)
}

// Pointer anchors the index at today.
func (i Index) Pointer(today time.Time) model.Pointer {
	return model.Pointer{
		Date:     timecalc.DateKey(today.AddDate(0, 0, -i.DayOffset)),
		Position: i.Position,
	}
}

// Resolve parses token and anchors it at today. Whether the pointer refers
// to an existing entry is for the store to decide.
func Resolve(token string, today time.Time) (model.Pointer, error) {
	idx, err := Parse(token)
	if err != nil {
		return model.Pointer{}, err
	}
	return idx.Pointer(today), nil
}

// Format renders p as the token that addresses it when today is today.
func Format(p model.Pointer, today time.Time) string {
	day, err := time.ParseInLocation(timecalc.DateLayout, p.Date, today.Location())
	if err != nil {
		return p.Date + "#" + strconv.Itoa(p.Position)
	}
	offset := timecalc.DaysBetween(day, today)
	if offset == 0 {
		return strconv.Itoa(p.Position)
	}
	return strconv.Itoa(offset) + "." + strconv.Itoa(p.Position)
}
