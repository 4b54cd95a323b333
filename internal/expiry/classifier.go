// Package expiry classifies tracked items by how close they are to their
// expiration date. Every call site (entries, batches, daily checks,
// reminders) goes through Classify so that the day-zero boundary stays
// consistent.
package expiry

import (
	"errors"
	"strings"
	"time"
)

type Status string

const (
	StatusFresh        Status = "fresh"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
)

const (
	DateLayout        = "2006-01-02"
	DefaultSoonWindow = 7
)

var ErrInvalidDate = errors.New("invalid_expiration_date")

// Policy carries the tunable part of the classification rule.
type Policy struct {
	SoonWindowDays int
}

func DefaultPolicy() Policy {
	return Policy{SoonWindowDays: DefaultSoonWindow}
}

// Classify applies the default policy.
func Classify(expirationDate, today time.Time) Status {
	return DefaultPolicy().Classify(expirationDate, today)
}

// Classify returns expired when the date is already behind today, and
// expiring_soon from today up to and including SoonWindowDays ahead.
func (p Policy) Classify(expirationDate, today time.Time) Status {
	window := p.SoonWindowDays
	if window < 0 {
		window = 0
	}
	days := DaysUntil(expirationDate, today)
	switch {
	case days < 0:
		return StatusExpired
	case days <= window:
		return StatusExpiringSoon
	default:
		return StatusFresh
	}
}

// DaysUntil counts whole calendar days from today to expirationDate.
// Negative values mean the date has passed.
func DaysUntil(expirationDate, today time.Time) int {
	exp := TruncateDay(expirationDate)
	ref := TruncateDay(today)
	return int(exp.Sub(ref).Hours() / 24)
}

// IsWithin reports whether the item is already expired or expires within
// the next days calendar days.
func IsWithin(expirationDate, today time.Time, days int) bool {
	return DaysUntil(expirationDate, today) <= days
}

// TruncateDay drops the time of day, keeping the calendar date as seen in
// the value's own location, and returns midnight UTC of that date.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, ErrInvalidDate
	}
	if parsed, err := time.Parse(DateLayout, trimmed); err == nil {
		return parsed, nil
	}
	// Clients occasionally send full timestamps; only the date part counts.
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return TruncateDay(parsed), nil
	}
	return time.Time{}, ErrInvalidDate
}

func FormatDate(t time.Time) string {
	return TruncateDay(t).Format(DateLayout)
}

func (s Status) Valid() bool {
	switch s {
	case StatusFresh, StatusExpiringSoon, StatusExpired:
		return true
	default:
		return false
	}
}

// ParseStatus accepts the canonical values plus "expiring" as an alias.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusFresh:
		return StatusFresh, true
	case StatusExpiringSoon, "expiring":
		return StatusExpiringSoon, true
	case StatusExpired:
		return StatusExpired, true
	default:
		return "", false
	}
}
