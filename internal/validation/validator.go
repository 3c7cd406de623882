package validation

import (
	"errors"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"ayudabesh-backend/internal/schedule"
)

type Validator struct {
	v *validator.Validate
}

func stringRule(check func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return check(value)
	}
}

func New() *Validator {
	v := validator.New()

	v.RegisterValidation("date", stringRule(func(value string) bool {
		_, err := time.Parse(schedule.DateLayout, value)
		return err == nil
	}))

	v.RegisterValidation("clock", stringRule(func(value string) bool {
		_, err := time.Parse(schedule.ClockLayout, value)
		return err == nil
	}))

	phoneRegex := regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	v.RegisterValidation("phone", stringRule(phoneRegex.MatchString))

	v.RegisterValidation("weekday", stringRule(func(value string) bool {
		_, err := schedule.ParseWeekday(value)
		return err == nil
	}))

	v.RegisterValidation("iso8601", stringRule(func(value string) bool {
		_, err := schedule.ParseTimestamp(value, time.UTC)
		return err == nil
	}))

	return &Validator{v: v}
}

func (v *Validator) Struct(s interface{}) error {
	return v.v.Struct(s)
}

func (v *Validator) ValidationErrors(err error) validator.ValidationErrors {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
