// Package timeconv converts "HH:MM" clock strings to minutes since midnight.
package timeconv

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidTime = errors.New("invalid time")

// HourToMinutes converts "HH:MM" to minutes since midnight, e.g. "08:00" is 480.
// Only the first two colon-separated parts are read and neither is range
// checked, so "25:00" yields 1500. A blank part counts as zero: "08:" is 480
// and ":30" is 30.
func HourToMinutes(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}

	hours, err := part(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	minutes, err := part(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}

	return hours*60 + minutes, nil
}

func part(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
