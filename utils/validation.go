package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// ParseDate parses a calendar day and returns midnight UTC of that day.
// Full RFC3339 timestamps are accepted and truncated to their calendar date.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return StartOfDay(t), nil
	}
	return time.Time{}, ErrInvalidDate
}

// StartOfDay returns midnight UTC of t's calendar date as seen in t's own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseClock parses an HH:MM wall-clock string.
func ParseClock(value string) (hour, minute int, err error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	return t.Hour(), t.Minute(), nil
}

// CombineDateAndClock places an HH:MM wall-clock time on the given calendar day in loc.
func CombineDateAndClock(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc), nil
}

func isClock(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, _, err := ParseClock(value)
	return err == nil
}

// RegisterValidators adds the custom binding tags used by request structs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return v.RegisterValidation("clock", isClock)
}

// SanitizeValidationError takes a validator error and returns a user-friendly message
// without leaking internal Go struct names.
func SanitizeValidationError(err error) string {
	if err == nil {
		return ""
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "Invalid request body"
	}

	var messages []string
	for _, fe := range validationErrors {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required", "required_without":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email address", field))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "clock":
			messages = append(messages, fmt.Sprintf("%s must be a time in HH:MM format", field))
		case "gte", "lte":
			messages = append(messages, fmt.Sprintf("%s is out of range", field))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", field))
		}
	}

	if len(messages) == 0 {
		return "Invalid request body"
	}

	return strings.Join(messages, "; ")
}
