package service

import (
	"fmt"
	"strconv"
	"strings"

	appErrors "github.com/sevaproject/booking-api/pkg/errors"
)

// Clock times use 24h "HH:MM" notation throughout the schedule and booking
// tables; fixed-width strings compare correctly, and ParseClock converts to
// minutes from midnight for arithmetic.

// ParseClock converts "HH:MM" into minutes from midnight.
func ParseClock(value string) (int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hours*60 + minutes, nil
}

// ValidateInterval enforces the schedule write invariant: both bounds present
// and well-formed, and the start strictly earlier than the end. Equal bounds
// are rejected, not warned about.
func ValidateInterval(start, end string) error {
	if strings.TrimSpace(start) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "a start time is required")
	}
	if strings.TrimSpace(end) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "an end time is required")
	}
	startMin, err := ParseClock(start)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if startMin >= endMin {
		return appErrors.Clone(appErrors.ErrValidation, "the start time must be strictly earlier than the end time")
	}
	return nil
}

// ValidateDayOfWeek checks the 0 (Sunday) .. 6 (Saturday) range.
func ValidateDayOfWeek(day int) error {
	if day < 0 || day > 6 {
		return appErrors.Clone(appErrors.ErrValidation, "day of week must be between 0 and 6")
	}
	return nil
}
