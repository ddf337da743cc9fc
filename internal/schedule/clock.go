package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseError reports a malformed time-of-day spec. Callers treat it as
// non-fatal: an unparsable schedule means "deliver now".
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("invalid schedule %q: %v", e.Raw, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// ParseClock parses "HH:MM:SS" or "HH:MM" (seconds default to 0).
func ParseClock(raw string) (Clock, error) {
	s := strings.TrimSpace(raw)
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Clock{}, &ParseError{Raw: raw, Err: fmt.Errorf("want HH:MM:SS or HH:MM")}
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Clock{}, &ParseError{Raw: raw, Err: err}
		}
		nums[i] = v
	}

	c := Clock{Hour: nums[0], Minute: nums[1]}
	if len(nums) == 3 {
		c.Second = nums[2]
	}
	if c.Hour < 0 || c.Hour > 23 {
		return Clock{}, &ParseError{Raw: raw, Err: fmt.Errorf("hour out of range")}
	}
	if c.Minute < 0 || c.Minute > 59 {
		return Clock{}, &ParseError{Raw: raw, Err: fmt.Errorf("minute out of range")}
	}
	if c.Second < 0 || c.Second > 59 {
		return Clock{}, &ParseError{Raw: raw, Err: fmt.Errorf("second out of range")}
	}
	return c, nil
}

// NextAfter returns the next instant with this time of day at or after now.
// If the instant on now's calendar day has already passed it rolls forward
// exactly one day; jobs are never scheduled into the past.
func (c Clock) NextAfter(now time.Time) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, c.Second, 0, now.Location())
	if target.Before(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// WaitUntil computes the non-negative duration from now until the next
// occurrence of the given time-of-day spec.
func WaitUntil(raw string, now time.Time) (time.Duration, error) {
	c, err := ParseClock(raw)
	if err != nil {
		return 0, err
	}
	d := c.NextAfter(now).Sub(now)
	if d < 0 {
		d = 0
	}
	return d, nil
}
