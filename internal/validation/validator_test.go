package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Date  string `validate:"required,date"`
	Start string `validate:"required,clock"`
	Phone string `validate:"omitempty,phone"`
	Day   string `validate:"omitempty,weekday"`
	At    string `validate:"omitempty,iso8601"`
}

func TestCustomTags(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(sample{Date: "2024-12-25", Start: "09:00", Phone: "+639171234567", Day: "Monday", At: "2024-12-25T10:00:00+08:00"}))

	err := v.Struct(sample{Date: "25/12/2024", Start: "9am", Phone: "abc", Day: "funday", At: "tomorrow"})
	require.Error(t, err)
	ve := v.ValidationErrors(err)
	tags := map[string]string{}
	for _, fe := range ve {
		tags[fe.Field()] = fe.Tag()
	}
	assert.Equal(t, map[string]string{"Date": "date", "Start": "clock", "Phone": "phone", "Day": "weekday", "At": "iso8601"}, tags)
}

func TestValidationErrorsNil(t *testing.T) {
	assert.Nil(t, New().ValidationErrors(nil))
}

func TestISO8601Tag(t *testing.T) {
	v := New()
	for _, at := range []string{"2024-06-05T10:00:00Z", "2024-06-05T10:00:00+08:00", "2024-06-05T10:00:00", "2024-06-05T10:00"} {
		assert.NoError(t, v.Struct(sample{Date: "2024-06-05", Start: "10:00", At: at}), at)
	}
	assert.Error(t, v.Struct(sample{Date: "2024-06-05", Start: "10:00", At: "2024-06-05"}))
}
