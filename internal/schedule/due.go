package schedule

import (
	"time"

	"video_notifier/internal/domain"
)

// SlotFor returns the UTC instant of the schedule's check on the local calendar
// day containing now. The zone offset is resolved for that day on every call.
func SlotFor(s domain.Schedule, now time.Time) (time.Time, error) {
	tod, err := parseStoredCheckTime(s.CheckTime)
	if err != nil {
		return time.Time{}, err
	}

	loc, err := LoadLocation(s.Timezone)
	if err != nil {
		return time.Time{}, err
	}

	local := now.In(loc)
	slot := time.Date(local.Year(), local.Month(), local.Day(), tod.Hour, tod.Minute, 0, 0, loc)

	return slot.UTC(), nil
}

// IsDue reports whether today's slot has arrived and was not yet acted on.
// Missed earlier days are not backfilled: only today's slot is considered.
func IsDue(s domain.Schedule, lastCheck, now time.Time) (bool, time.Time, error) {
	slot, err := SlotFor(s, now)
	if err != nil {
		return false, time.Time{}, err
	}

	due := !now.Before(slot) && lastCheck.Before(slot)
	return due, slot, nil
}
