package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the DD-MM-YYYY layout the HR API uses for every date.
const DateLayout = "02-01-2006"

// Date is a calendar day. It marshals as "DD-MM-YYYY" and as null when zero.
type Date struct {
	time.Time
}

// NewDate returns the given day at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a DD-MM-YYYY string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected DD-MM-YYYY: %w", s, err)
	}
	return Date{t}, nil
}

// DatePtr is a convenience for optional end dates.
func DatePtr(d Date) *Date {
	return &d
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// BeforeDay compares at day granularity.
func (d Date) BeforeDay(o Date) bool {
	return d.day().Before(o.day())
}

// AfterDay compares at day granularity.
func (d Date) AfterDay(o Date) bool {
	return d.day().After(o.day())
}

// SameDay compares at day granularity.
func (d Date) SameDay(o Date) bool {
	return d.day().Equal(o.day())
}

func (d Date) day() time.Time {
	y, m, dd := d.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML writes the same DD-MM-YYYY text as the JSON form.
func (d Date) MarshalYAML() (interface{}, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}
