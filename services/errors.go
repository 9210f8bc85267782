package services

import "errors"

var (
	ErrInvalidDateRange   = errors.New("end date must not be before start date")
	ErrDateRangeTooLong   = errors.New("date range is too long")
	ErrStaffNotFound      = errors.New("staff member not found")
	ErrShiftNotFound      = errors.New("shift not found")
	ErrShiftExists        = errors.New("staff member already has a shift on this date")
	ErrInvalidShiftStatus = errors.New("invalid shift status")
	ErrTimeOffNotFound    = errors.New("time-off request not found")
	ErrTimeOffNotPending  = errors.New("time-off request has already been decided")
	ErrInvalidTimeRange   = errors.New("end time must be after start time")
)
