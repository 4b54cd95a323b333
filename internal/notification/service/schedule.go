package service

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/smallbiznis/shelflife/internal/notification/domain"
	"gorm.io/datatypes"
)

// dueWindow tolerates scheduler ticks that were missed or delayed; a slot
// older than this is skipped for the day.
const dueWindow = time.Hour

const localDateLayout = "2006-01-02"

// dueOn reports the schedule's local date when its slot is due at now.
func dueOn(schedule domain.Schedule, now time.Time) (string, bool) {
	if !schedule.Enabled {
		return "", false
	}
	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		return "", false
	}
	local := now.In(loc)

	weekdays, err := decodeWeekdays(schedule.Weekdays)
	if err != nil {
		return "", false
	}
	if len(weekdays) > 0 && !containsWeekday(weekdays, int(local.Weekday())) {
		return "", false
	}

	slot := time.Date(local.Year(), local.Month(), local.Day(), schedule.Hour, schedule.Minute, 0, 0, loc)
	if local.Before(slot) || local.Sub(slot) >= dueWindow {
		return "", false
	}

	date := local.Format(localDateLayout)
	if schedule.LastSentOn != nil && *schedule.LastSentOn == date {
		return "", false
	}
	return date, true
}

func normalizeWeekdays(days []int) (datatypes.JSON, error) {
	seen := map[int]bool{}
	out := make([]int, 0, len(days))
	for _, day := range days {
		if day < 0 || day > 6 {
			return nil, domain.ErrInvalidWeekdays
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		out = append(out, day)
	}
	sort.Ints(out)
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decodeWeekdays(raw datatypes.JSON) ([]int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var days []int
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, err
	}
	return days, nil
}

func containsWeekday(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
