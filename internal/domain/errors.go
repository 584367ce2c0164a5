package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat       = errors.New("invalid time format")
	ErrInvalidTimezone     = errors.New("invalid timezone")
	ErrSourceNotConfigured = errors.New("source channel not configured")
	ErrGuildNotConfigured  = errors.New("guild not configured")
	ErrDestinationNotFound = errors.New("destination not found")
	ErrRateLimited         = errors.New("rate limited")
	ErrChannelNotFound     = errors.New("source channel not found")
)

// ConfigError reports an invalid schedule or guild setting.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
