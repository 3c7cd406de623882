package schedule

import (
	"testing"
	"time"
)

func mustLoadLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestParseClockToMinutes(t *testing.T) {
	got, err := ParseClockToMinutes("09:30")
	if err != nil {
		t.Fatalf("ParseClockToMinutes error: %v", err)
	}
	if got != 570 {
		t.Fatalf("expected 570, got %d", got)
	}
	if _, err := ParseClockToMinutes("9h30"); err != ErrInvalidTime {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
	if MinutesToClock(570) != "09:30" {
		t.Fatalf("unexpected clock: %s", MinutesToClock(570))
	}
}

func TestIntervalIsHalfOpen(t *testing.T) {
	iv, err := ParseInterval("09:00", "18:00")
	if err != nil {
		t.Fatalf("ParseInterval error: %v", err)
	}
	if !iv.Contains(9 * 60) {
		t.Fatalf("start minute should be inside")
	}
	if iv.Contains(18 * 60) {
		t.Fatalf("end minute should be outside")
	}
	if !iv.Valid() || (Interval{Start: 600, End: 600}).Valid() {
		t.Fatalf("unexpected validity")
	}
}

func TestOverlaps(t *testing.T) {
	if !Overlaps(Interval{Start: 60, End: 120}, Interval{Start: 90, End: 150}) {
		t.Fatalf("expected overlap")
	}
	if Overlaps(Interval{Start: 60, End: 120}, Interval{Start: 120, End: 150}) {
		t.Fatalf("touching intervals should not overlap")
	}
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday(" Wednesday ")
	if err != nil || d != time.Wednesday {
		t.Fatalf("expected wednesday, got %v %v", d, err)
	}
	if _, err := ParseWeekday("someday"); err != ErrInvalidWeekday {
		t.Fatalf("expected ErrInvalidWeekday, got %v", err)
	}
	if WeekdayName(time.Sunday) != "sunday" {
		t.Fatalf("unexpected name %s", WeekdayName(time.Sunday))
	}
}

func TestMinuteOfDayUsesLocation(t *testing.T) {
	loc := mustLoadLoc(t)
	utc := time.Date(2025, 3, 5, 2, 15, 0, 0, time.UTC)
	if got := MinuteOfDay(utc, loc); got != 10*60+15 {
		t.Fatalf("expected 615, got %d", got)
	}
}

func TestMonthRange(t *testing.T) {
	loc := mustLoadLoc(t)
	days, err := MonthRange(2024, time.February, loc)
	if err != nil {
		t.Fatalf("MonthRange error: %v", err)
	}
	if len(days) != 29 {
		t.Fatalf("expected 29 days, got %d", len(days))
	}
	if _, err := MonthRange(2024, 13, loc); err != ErrInvalidMonth {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestDayBounds(t *testing.T) {
	loc := mustLoadLoc(t)
	at := time.Date(2025, 3, 5, 23, 30, 0, 0, loc)
	start, end := DayBounds(at, loc)
	if start.Day() != 5 || end.Day() != 6 || start.Hour() != 0 {
		t.Fatalf("unexpected bounds %v %v", start, end)
	}
}

func TestParseTimestamp(t *testing.T) {
	loc := mustLoadLoc(t)
	want := time.Date(2024, 6, 5, 10, 0, 0, 0, loc)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-06-05T10:00:00+08:00", want},
		{"2024-06-05T02:00:00Z", want},
		{"2024-06-05T10:00:00.000+08:00", want},
		{"2024-06-05T10:00:00", want},
		{"2024-06-05T10:00", want},
		{"2024-06-05 10:00", want},
		{" 2024-06-05T10:00:30.5 ", want.Add(30*time.Second + 500*time.Millisecond)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in, loc)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) error: %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "2024-06-05", "10:00", "2024-13-05T10:00", "tomorrow"} {
		if _, err := ParseTimestamp(bad, loc); err != ErrInvalidInstant {
			t.Fatalf("ParseTimestamp(%q) error = %v, want ErrInvalidInstant", bad, err)
		}
	}

	utc, err := ParseTimestamp("2024-06-05T10:00", nil)
	if err != nil || utc.Location() != time.UTC || utc.Hour() != 10 {
		t.Fatalf("nil location should read wall clock as UTC, got %v %v", utc, err)
	}
}
