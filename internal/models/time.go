package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is how slot dates appear on the wire: day-month-year.
const DateLayout = "02-01-2006"

// Date is a calendar day (no time component, no zone) that marshals as
// day-month-year JSON.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day.
func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("date must be %s: %w", strings.ToUpper(DateLayout), err)
	}
	d.Time = t
	return nil
}

// HourMinute is a time of day in "HH:MM" form. It is a plain string so
// it marshals and scans without ceremony; ParseHourMinute is the only
// way handlers should build one from user input.
type HourMinute string

// ParseHourMinute validates s as a time of day. "HH:MM:SS" is accepted
// and truncated to minutes.
func ParseHourMinute(s string) (HourMinute, error) {
	if t, err := time.Parse("15:04", s); err == nil {
		return HourMinute(t.Format("15:04")), nil
	}
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return "", fmt.Errorf("heure must be HH:MM: %w", err)
	}
	return HourMinute(t.Format("15:04")), nil
}
