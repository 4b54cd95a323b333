package service

import (
	"fmt"
	"strings"
	"time"

	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	"github.com/smallbiznis/shelflife/internal/expiry"
	"github.com/smallbiznis/shelflife/internal/providers/push"
)

const (
	reminderTitle   = "Expiry reminder"
	reminderType    = "expiration_reminder"
	maxNamedEntries = 3
)

// buildReminder summarizes entries for one device. Entries arrive sorted by
// expiration date, so the named ones are the most urgent.
func buildReminder(token string, entries []entrydomain.Entry, daysBefore int, today time.Time) push.Message {
	expired, soon := 0, 0
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if expiry.DaysUntil(entry.ExpirationDate, today) < 0 {
			expired++
		} else {
			soon++
		}
		ids = append(ids, entry.ID.String())
	}

	parts := make([]string, 0, 2)
	if expired > 0 {
		parts = append(parts, fmt.Sprintf("%d expired", expired))
	}
	if soon > 0 {
		parts = append(parts, fmt.Sprintf("%d expiring within %d %s", soon, daysBefore, plural(daysBefore, "day", "days")))
	}

	names := make([]string, 0, maxNamedEntries)
	for i := 0; i < len(entries) && i < maxNamedEntries; i++ {
		names = append(names, entries[i].ProductName)
	}
	body := strings.Join(parts, ", ") + ": " + strings.Join(names, ", ")
	if extra := len(entries) - len(names); extra > 0 {
		body += fmt.Sprintf(" and %d more", extra)
	}

	return push.Message{
		To:    token,
		Title: reminderTitle,
		Body:  body,
		Sound: "default",
		Data: map[string]any{
			"type":         reminderType,
			"expired":      expired,
			"expiringSoon": soon,
			"entryIds":     ids,
		},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
