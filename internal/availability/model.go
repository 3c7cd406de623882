package availability

import "time"

type Break struct {
	Start string `bson:"start" json:"start" validate:"required,clock"`
	End   string `bson:"end" json:"end" validate:"required,clock"`
}

type DaySchedule struct {
	Available *bool   `bson:"available" json:"available" validate:"required"`
	Start     string  `bson:"start,omitempty" json:"start,omitempty" validate:"omitempty,clock"`
	End       string  `bson:"end,omitempty" json:"end,omitempty" validate:"omitempty,clock"`
	Breaks    []Break `bson:"breaks" json:"breaks" validate:"dive"`
}

// DateOverride replaces the weekly entry for one calendar date. A missing
// available flag means the provider works that day.
type DateOverride struct {
	Date      string  `bson:"date" json:"date" validate:"required,date"`
	Available *bool   `bson:"available,omitempty" json:"available,omitempty"`
	Start     string  `bson:"start,omitempty" json:"start,omitempty" validate:"omitempty,clock"`
	End       string  `bson:"end,omitempty" json:"end,omitempty" validate:"omitempty,clock"`
	Breaks    []Break `bson:"breaks,omitempty" json:"breaks,omitempty" validate:"dive"`
	Reason    string  `bson:"reason,omitempty" json:"reason,omitempty" validate:"max=300"`
}

func (o DateOverride) IsAvailable() bool {
	return o.Available == nil || *o.Available
}

type Availability struct {
	ID            string                 `bson:"_id,omitempty" json:"id,omitempty"`
	ProviderID    string                 `bson:"provider_id" json:"provider_id"`
	Schedule      map[string]DaySchedule `bson:"schedule" json:"schedule"`
	SpecificDates []DateOverride         `bson:"specific_dates" json:"specific_dates"`
	Timezone      string                 `bson:"timezone" json:"timezone"`
	CreatedAt     time.Time              `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt     time.Time              `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

type Request struct {
	Schedule      map[string]DaySchedule `json:"schedule" validate:"dive,keys,weekday,endkeys"`
	SpecificDates []DateOverride         `json:"specific_dates" validate:"dive"`
	Timezone      string                 `json:"timezone" validate:"max=64"`
}

type CheckRequest struct {
	ProviderID string `json:"provider_id" validate:"required"`
	Datetime   string `json:"datetime" validate:"required,iso8601"`
}

type Verdict struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type CalendarBooking struct {
	ID           string    `json:"id"`
	Time         time.Time `json:"time"`
	ServiceType  string    `json:"service_type"`
	Status       string    `json:"status"`
	CustomerName string    `json:"customer_name"`
}

type CalendarDay struct {
	Date          string            `json:"date"`
	DayName       string            `json:"day_name"`
	Available     bool              `json:"available"`
	Reason        *string           `json:"reason"`
	BookingsCount int               `json:"bookings_count"`
	Bookings      []CalendarBooking `json:"bookings"`
}

type Calendar struct {
	Month    int           `json:"month"`
	Year     int           `json:"year"`
	Calendar []CalendarDay `json:"calendar"`
}
