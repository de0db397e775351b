package availability

import (
	"fmt"
	"time"
)

// SlotMinutes is the fixed step between bookable slot start times.
const SlotMinutes = 30

const minutesPerDay = 24 * 60

// Window is one recurring availability range within a day, "HH:MM" 24h.
type Window struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// WeeklyAvailability maps a lower-case weekday name to its windows.
// Window order is significant and windows are never merged.
type WeeklyAvailability map[string][]Window

var dayKeys = [7]string{
	"sunday",
	"monday",
	"tuesday",
	"wednesday",
	"thursday",
	"friday",
	"saturday",
}

// Weekdays returns the weekday keys in time.Weekday order.
func Weekdays() []string {
	return dayKeys[:]
}

func DayKey(d time.Weekday) string {
	return dayKeys[d]
}

// ClockError reports a time-of-day string that is not "HH:MM".
type ClockError struct {
	Value string
	Err   error
}

func (e *ClockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid time string %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("invalid time string %q", e.Value)
}

func (e *ClockError) Unwrap() error { return e.Err }

// DeriveSlots expands the windows stored for date's weekday into slot start
// times. A slot is emitted while its start is before the window end, so the
// last slot of an unaligned window may run past it. Overlapping windows
// produce duplicate entries.
func DeriveSlots(av WeeklyAvailability, date time.Time) ([]string, error) {
	slots := []string{}
	if date.IsZero() {
		return slots, nil
	}

	for _, w := range av[DayKey(date.Weekday())] {
		start, err := ParseClock(w.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := ParseEndClock(w.EndTime)
		if err != nil {
			return nil, err
		}
		for cur := start; cur < end; cur += SlotMinutes {
			slots = append(slots, FormatClock(cur))
		}
	}
	return slots, nil
}

// Contains reports whether slot is one of the slots derived for date.
func Contains(av WeeklyAvailability, date time.Time, slot string) (bool, error) {
	slots, err := DeriveSlots(av, date)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s == slot {
			return true, nil
		}
	}
	return false, nil
}

// ParseClock converts "HH:MM" into minutes since midnight. Both fields must
// be two unsigned digits.
func ParseClock(s string) (int, error) {
	minutes, err := parseHHMM(s)
	if err != nil {
		return 0, err
	}
	if minutes >= minutesPerDay {
		return 0, &ClockError{Value: s}
	}
	return minutes, nil
}

// ParseEndClock is ParseClock for window ends, which may also be "24:00".
func ParseEndClock(s string) (int, error) {
	return parseHHMM(s)
}

func parseHHMM(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, &ClockError{Value: s}
	}
	for _, i := range [4]int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, &ClockError{Value: s}
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if m > 59 || h*60+m > minutesPerDay {
		return 0, &ClockError{Value: s}
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as zero-padded "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Validate checks that every key is a weekday and every time parses.
// Windows with start >= end are allowed; they simply yield no slots.
func Validate(av WeeklyAvailability) error {
	for day, windows := range av {
		if !isDayKey(day) {
			return fmt.Errorf("unknown weekday %q", day)
		}
		for _, w := range windows {
			if _, err := ParseClock(w.StartTime); err != nil {
				return err
			}
			if _, err := ParseEndClock(w.EndTime); err != nil {
				return err
			}
		}
	}
	return nil
}

func isDayKey(s string) bool {
	for _, k := range dayKeys {
		if k == s {
			return true
		}
	}
	return false
}
