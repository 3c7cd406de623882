package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var (
	ErrInvalidDate    = errors.New("invalid date format")
	ErrInvalidTime    = errors.New("invalid time format")
	ErrInvalidWeekday = errors.New("invalid weekday")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidInstant = errors.New("invalid ISO-8601 timestamp")
)

// localLayouts are the offset-less forms browsers send, datetime-local
// included.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

var weekdayNames = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// ParseTimestamp accepts RFC 3339 first, then offset-less date-times which
// are read as wall clock in loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidInstant
}

func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation(DateLayout, dateStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

func ParseClockToMinutes(timeStr string) (int, error) {
	tm, err := time.Parse(ClockLayout, timeStr)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return tm.Hour()*60 + tm.Minute(), nil
}

func MinutesToClock(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// MinuteOfDay is the wall-clock minute of t in loc.
func MinuteOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}

func WeekdayName(d time.Weekday) string {
	return weekdayNames[d]
}

func ParseWeekday(name string) (time.Weekday, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range weekdayNames {
		if n == name {
			return time.Weekday(i), nil
		}
	}
	return time.Sunday, ErrInvalidWeekday
}

// DayBounds returns [midnight, next midnight) for the calendar day of t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// MonthRange returns every calendar day of the given month in loc.
func MonthRange(year int, month time.Month, loc *time.Location) ([]time.Time, error) {
	if month < time.January || month > time.December {
		return nil, ErrInvalidMonth
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	days := make([]time.Time, 0, 31)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}

// Interval is a half-open [Start, End) range of minutes within a day.
type Interval struct {
	Start int
	End   int
}

func ParseInterval(start, end string) (Interval, error) {
	s, err := ParseClockToMinutes(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClockToMinutes(end)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: s, End: e}, nil
}

func (iv Interval) Valid() bool {
	return iv.Start < iv.End
}

func (iv Interval) Contains(minute int) bool {
	return minute >= iv.Start && minute < iv.End
}

func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}
