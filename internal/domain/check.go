package domain

import "time"

// CheckResult holds the outcome of one guild cycle.
type CheckResult struct {
	GuildID   int64
	Due       bool
	Slot      time.Time
	Claimed   bool
	Video     *Video
	Notified  bool
	NotifyErr error
	Duration  time.Duration
}
