package services

import (
	"context"
	"time"

	"safemeds-backend/dtos"
	"safemeds-backend/utils"

	"gorm.io/gorm"
)

// DefaultMaxRangeDays caps a single generation request.
const DefaultMaxRangeDays = 366

// AvailabilityCache stores availability reports keyed by calendar date.
// Implementations must treat failures as cache misses.
//
// Get also returns the date's current version. Invalidate and InvalidateAll
// advance it, and Set only stores records while the version it was given is
// still current, so a report loaded before an invalidation is never written
// back after it.
type AvailabilityCache interface {
	Get(ctx context.Context, date time.Time) (records []dtos.StaffAvailability, version string, ok bool)
	Set(ctx context.Context, date time.Time, version string, records []dtos.StaffAvailability)
	Invalidate(ctx context.Context, dates ...time.Time)
	InvalidateAll(ctx context.Context)
}

// StaffService holds the scheduling operations shared by the HTTP handlers,
// the cron job and the operator CLI.
type StaffService struct {
	DB           *gorm.DB
	Cache        AvailabilityCache // optional
	Runs         *utils.RunStore   // optional
	Location     *time.Location    // wall-clock zone for schedule times, UTC when nil
	MaxRangeDays int
}

func NewStaffService(db *gorm.DB) *StaffService {
	return &StaffService{
		DB:           db,
		Runs:         utils.Runs,
		Location:     time.UTC,
		MaxRangeDays: DefaultMaxRangeDays,
	}
}

func (s *StaffService) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// DayOf returns the calendar day t falls on in the shift location.
func (s *StaffService) DayOf(t time.Time) time.Time {
	return utils.StartOfDay(t.In(s.location()))
}

func (s *StaffService) maxRangeDays() int {
	if s.MaxRangeDays <= 0 {
		return DefaultMaxRangeDays
	}
	return s.MaxRangeDays
}

// InvalidateDates drops cached availability for the given days.
func (s *StaffService) InvalidateDates(ctx context.Context, dates ...time.Time) {
	if s.Cache == nil || len(dates) == 0 {
		return
	}
	s.Cache.Invalidate(ctx, dates...)
}

// InvalidateRange drops cached availability for every day in [start, end].
// Ranges longer than the generation cap flush the whole cache instead.
func (s *StaffService) InvalidateRange(ctx context.Context, start, end time.Time) {
	if s.Cache == nil {
		return
	}
	start, end = utils.StartOfDay(start), utils.StartOfDay(end)
	if end.Before(start) {
		return
	}
	if daysBetween(start, end)+1 > s.maxRangeDays() {
		s.Cache.InvalidateAll(ctx)
		return
	}
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	s.Cache.Invalidate(ctx, dates...)
}

// InvalidateAll is used after staff or schedule changes, which affect every date.
func (s *StaffService) InvalidateAll(ctx context.Context) {
	if s.Cache != nil {
		s.Cache.InvalidateAll(ctx)
	}
}

func daysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}
