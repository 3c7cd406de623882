package availability

import (
	"errors"
	"fmt"
	"time"

	"ayudabesh-backend/internal/schedule"
)

var (
	ErrInvalidSchedule = errors.New("invalid availability schedule")
	ErrInvalidTimezone = errors.New("invalid timezone")
)

const (
	defaultStart = "09:00"
	defaultEnd   = "18:00"
)

func boolPtr(v bool) *bool { return &v }

// DefaultSchedule is Monday to Saturday, 09:00 to 18:00.
func DefaultSchedule() map[string]DaySchedule {
	out := make(map[string]DaySchedule, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		out[schedule.WeekdayName(d)] = DaySchedule{
			Available: boolPtr(d != time.Sunday),
			Start:     defaultStart,
			End:       defaultEnd,
			Breaks:    []Break{},
		}
	}
	return out
}

func Default(providerID, timezone string) Availability {
	return Availability{
		ProviderID:    providerID,
		Schedule:      DefaultSchedule(),
		SpecificDates: []DateOverride{},
		Timezone:      timezone,
	}
}

// window is the working interval of one day plus its breaks.
type window struct {
	start, end string
	breaks     []Break
}

func (w window) check(minute int) Verdict {
	if w.start != "" && w.end != "" {
		iv, err := schedule.ParseInterval(w.start, w.end)
		if err != nil {
			return Verdict{Reason: fmt.Sprintf("Outside working hours (%s - %s)", w.start, w.end)}
		}
		if !iv.Contains(minute) {
			return Verdict{Reason: fmt.Sprintf("Outside working hours (%s - %s)",
				schedule.MinutesToClock(iv.Start), schedule.MinutesToClock(iv.End))}
		}
	}
	for _, b := range w.breaks {
		iv, err := schedule.ParseInterval(b.Start, b.End)
		if err == nil && iv.Contains(minute) {
			return Verdict{Reason: "During break time"}
		}
	}
	return Verdict{Available: true}
}

func (a Availability) override(date string) (DateOverride, bool) {
	for _, o := range a.SpecificDates {
		if o.Date == date {
			return o, true
		}
	}
	return DateOverride{}, false
}

// Evaluate reports availability at the wall-clock instant of at in loc. A
// date override wins over the weekly schedule, and every interval is
// half-open.
func (a Availability) Evaluate(at time.Time, loc *time.Location) Verdict {
	local := at.In(loc)
	minute := schedule.MinuteOfDay(at, loc)

	if o, ok := a.override(local.Format(schedule.DateLayout)); ok {
		if !o.IsAvailable() {
			reason := o.Reason
			if reason == "" {
				reason = "Provider marked this date as unavailable"
			}
			return Verdict{Reason: reason}
		}
		return window{start: o.Start, end: o.End, breaks: o.Breaks}.check(minute)
	}

	day := schedule.WeekdayName(local.Weekday())
	entry, ok := a.Schedule[day]
	if !ok {
		return Verdict{Reason: "Day not in schedule"}
	}
	if entry.Available == nil || !*entry.Available {
		return Verdict{Reason: "Provider not available on " + day}
	}
	return window{start: entry.Start, end: entry.End, breaks: entry.Breaks}.check(minute)
}

// DayStatus is the whole-day view used by the calendar. Hours are ignored.
func (a Availability) DayStatus(day time.Time) (bool, string) {
	if o, ok := a.override(day.Format(schedule.DateLayout)); ok {
		if o.IsAvailable() {
			return true, ""
		}
		if o.Reason != "" {
			return false, o.Reason
		}
		return false, "Marked as unavailable"
	}
	name := schedule.WeekdayName(day.Weekday())
	entry, ok := a.Schedule[name]
	if !ok {
		return true, ""
	}
	if entry.Available == nil || !*entry.Available {
		return false, "Not available on " + name
	}
	return true, ""
}

func checkWindow(label, start, end string, breaks []Break, required bool) error {
	if required && (start == "" || end == "") {
		return fmt.Errorf("%w: missing start/end time for %s", ErrInvalidSchedule, label)
	}
	if (start == "") != (end == "") {
		return fmt.Errorf("%w: start and end must be set together for %s", ErrInvalidSchedule, label)
	}
	if start != "" {
		iv, err := schedule.ParseInterval(start, end)
		if err != nil || !iv.Valid() {
			return fmt.Errorf("%w: start must be before end for %s", ErrInvalidSchedule, label)
		}
	}
	parsed := make([]schedule.Interval, 0, len(breaks))
	for _, b := range breaks {
		iv, err := schedule.ParseInterval(b.Start, b.End)
		if err != nil || !iv.Valid() {
			return fmt.Errorf("%w: invalid break for %s", ErrInvalidSchedule, label)
		}
		for _, prev := range parsed {
			if schedule.Overlaps(prev, iv) {
				return fmt.Errorf("%w: overlapping breaks for %s", ErrInvalidSchedule, label)
			}
		}
		parsed = append(parsed, iv)
	}
	return nil
}

// Validate checks what struct tags cannot express.
func Validate(req Request) error {
	for day, entry := range req.Schedule {
		if _, err := schedule.ParseWeekday(day); err != nil {
			return fmt.Errorf("%w: unknown day %q", ErrInvalidSchedule, day)
		}
		if entry.Available == nil {
			return fmt.Errorf("%w: missing \"available\" field for %s", ErrInvalidSchedule, day)
		}
		if err := checkWindow(day, entry.Start, entry.End, entry.Breaks, *entry.Available); err != nil {
			return err
		}
	}
	seen := map[string]bool{}
	for _, o := range req.SpecificDates {
		if _, err := time.Parse(schedule.DateLayout, o.Date); err != nil {
			return fmt.Errorf("%w: invalid date format: %s", ErrInvalidSchedule, o.Date)
		}
		if seen[o.Date] {
			return fmt.Errorf("%w: duplicate date %s", ErrInvalidSchedule, o.Date)
		}
		seen[o.Date] = true
		if err := checkWindow(o.Date, o.Start, o.End, o.Breaks, false); err != nil {
			return err
		}
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return ErrInvalidTimezone
		}
	}
	return nil
}
