package jobs

import (
	"fmt"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// ParseDay parses a calendar day ("2006-01-02" or RFC3339) to midnight UTC
func ParseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(dayLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidInput, value)
	}
	return StartOfDay(t), nil
}

// StartOfDay truncates t to 00:00:00 of its calendar day in UTC
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay is the last millisecond (23:59:59.999) of t's calendar day in UTC
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Millisecond)
}

func parseOptionalDay(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := ParseDay(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
