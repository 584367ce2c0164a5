package schedule

import (
	"fmt"
	"strings"
	"time"

	"video_notifier/internal/domain"
)

// checkTimeLayouts are tried in order. 12-hour with meridiem wins over 24-hour.
var checkTimeLayouts = []string{
	"3:04pm",
	"15:04",
}

// storedLayout is the normalized form persisted with a schedule.
const storedLayout = "15:04"

// TimeOfDay is a wall-clock time without seconds.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Setting is a validated schedule ready to be persisted.
type Setting struct {
	CheckTime TimeOfDay
	Location  *time.Location
}

// Timezone returns the IANA name of the setting's zone.
func (s Setting) Timezone() string {
	return s.Location.String()
}

// Parse validates operator input for a schedule. It returns a *domain.ConfigError
// wrapping domain.ErrInvalidFormat or domain.ErrInvalidTimezone.
func Parse(checkTime, timezone string) (Setting, error) {
	tod, err := ParseCheckTime(checkTime)
	if err != nil {
		return Setting{}, err
	}

	loc, err := LoadLocation(timezone)
	if err != nil {
		return Setting{}, err
	}

	return Setting{CheckTime: tod, Location: loc}, nil
}

// ParseCheckTime accepts "9:30am", "09:30PM" or "21:30".
func ParseCheckTime(input string) (TimeOfDay, error) {
	value := strings.ToLower(strings.TrimSpace(input))

	for _, layout := range checkTimeLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}

	return TimeOfDay{}, &domain.ConfigError{Field: "check_time", Value: input, Err: domain.ErrInvalidFormat}
}

// parseStoredCheckTime only accepts the normalized 24-hour form.
func parseStoredCheckTime(value string) (TimeOfDay, error) {
	t, err := time.Parse(storedLayout, value)
	if err != nil {
		return TimeOfDay{}, &domain.ConfigError{Field: "check_time", Value: value, Err: domain.ErrInvalidFormat}
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// LoadLocation resolves an IANA zone name. Empty and "Local" are rejected.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, &domain.ConfigError{Field: "timezone", Value: name, Err: domain.ErrInvalidTimezone}
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &domain.ConfigError{
			Field: "timezone",
			Value: name,
			Err:   fmt.Errorf("%w: %v", domain.ErrInvalidTimezone, err),
		}
	}

	return loc, nil
}
