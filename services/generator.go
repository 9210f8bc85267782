package services

import (
	"context"
	"fmt"
	"time"

	"safemeds-backend/models"
	"safemeds-backend/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/clause"
)

// GenerateResult reports what a generation pass did. On failure it holds the
// progress made before the error; shifts already created stay committed.
type GenerateResult struct {
	Shifts        []models.Shift
	Created       int
	Skipped       int
	DaysProcessed int
	LastDate      *time.Time // last fully processed day
}

// dayObserver is called after each day is fully processed.
type dayObserver func(day time.Time, created, skipped int)

// ValidateRange normalises both ends to calendar days and checks the range.
func (s *StaffService) ValidateRange(start, end time.Time) (time.Time, time.Time, error) {
	start, end = utils.StartOfDay(start), utils.StartOfDay(end)
	if end.Before(start) {
		return start, end, ErrInvalidDateRange
	}
	if days := daysBetween(start, end) + 1; days > s.maxRangeDays() {
		return start, end, fmt.Errorf("%w: %d days requested, at most %d allowed", ErrDateRangeTooLong, days, s.maxRangeDays())
	}
	return start, end, nil
}

// GenerateShiftsFromSchedules materialises shifts for every active schedule of
// every active staff member on each day in [start, end]. Days that already
// have a shift for the staff member are skipped, so repeated or concurrent
// calls never create duplicates. Only newly created shifts are returned.
func (s *StaffService) GenerateShiftsFromSchedules(ctx context.Context, start, end time.Time) (*GenerateResult, error) {
	return s.generate(ctx, start, end, nil)
}

// RunGeneration wraps GenerateShiftsFromSchedules with a tracked run so callers
// can report progress. Range errors are returned before a run is created.
func (s *StaffService) RunGeneration(ctx context.Context, source string, start, end time.Time) (uuid.UUID, *GenerateResult, error) {
	start, end, err := s.ValidateRange(start, end)
	if err != nil {
		return uuid.Nil, &GenerateResult{}, err
	}
	if s.Runs == nil {
		result, err := s.generate(ctx, start, end, nil)
		return uuid.Nil, result, err
	}

	run := s.Runs.CreateRun(source, start, end)
	s.Runs.SetProcessing(run.ID)

	result, err := s.generate(ctx, start, end, func(day time.Time, created, skipped int) {
		s.Runs.RecordDay(run.ID, day, created, skipped)
	})
	s.Runs.CompleteRun(run.ID, err)

	event := log.Info()
	if err != nil {
		event = log.Error().Err(err)
	}
	event.Str("run_id", run.ID.String()).
		Str("source", source).
		Str("start_date", start.Format(utils.DateLayout)).
		Str("end_date", end.Format(utils.DateLayout)).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("days_processed", result.DaysProcessed).
		Msg("Shift generation finished")

	return run.ID, result, err
}

func (s *StaffService) generate(ctx context.Context, start, end time.Time, onDay dayObserver) (*GenerateResult, error) {
	result := &GenerateResult{Shifts: []models.Shift{}}

	start, end, err := s.ValidateRange(start, end)
	if err != nil {
		return result, err
	}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		created, skipped, err := s.generateDay(ctx, day)
		result.Shifts = append(result.Shifts, created...)
		result.Created += len(created)
		result.Skipped += skipped
		if err != nil {
			return result, fmt.Errorf("generating shifts for %s: %w", day.Format(utils.DateLayout), err)
		}

		d := day
		result.DaysProcessed++
		result.LastDate = &d
		if len(created) > 0 {
			s.InvalidateDates(ctx, day)
		}
		if onDay != nil {
			onDay(day, len(created), skipped)
		}
	}

	return result, nil
}

func (s *StaffService) generateDay(ctx context.Context, day time.Time) ([]models.Shift, int, error) {
	db := s.DB.WithContext(ctx)

	var schedules []models.StaffSchedule
	if err := db.
		Joins("JOIN staffs ON staffs.id = staff_schedules.staff_id AND staffs.deleted_at IS NULL").
		Where("staff_schedules.day_of_week = ? AND staff_schedules.is_active = ? AND staffs.is_active = ?",
			int(day.Weekday()), true, true).
		Order("staff_schedules.start_time ASC").
		Find(&schedules).Error; err != nil {
		return nil, 0, err
	}
	if len(schedules) == 0 {
		return nil, 0, nil
	}

	staffIDs := make([]uuid.UUID, 0, len(schedules))
	for _, sched := range schedules {
		staffIDs = append(staffIDs, sched.StaffID)
	}

	var existing []models.Shift
	if err := db.Select("staff_id").
		Where("staff_id IN ? AND shift_date >= ? AND shift_date < ?", staffIDs, day, day.AddDate(0, 0, 1)).
		Find(&existing).Error; err != nil {
		return nil, 0, err
	}
	taken := make(map[uuid.UUID]bool, len(existing))
	for _, shift := range existing {
		taken[shift.StaffID] = true
	}

	var created []models.Shift
	skipped := 0
	for _, sched := range schedules {
		if taken[sched.StaffID] {
			skipped++
			continue
		}

		shift, err := s.shiftFromSchedule(sched, day)
		if err != nil {
			log.Warn().Err(err).Str("schedule_id", sched.ID.String()).Msg("Skipping schedule with invalid times")
			skipped++
			continue
		}

		// The unique (staff_id, shift_date) index settles races with concurrent runs.
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&shift)
		if res.Error != nil {
			return created, skipped, res.Error
		}
		taken[sched.StaffID] = true
		if res.RowsAffected == 0 {
			skipped++
			continue
		}
		created = append(created, shift)
	}

	return created, skipped, nil
}

func (s *StaffService) shiftFromSchedule(sched models.StaffSchedule, day time.Time) (models.Shift, error) {
	startAt, err := utils.CombineDateAndClock(day, sched.StartTime, s.location())
	if err != nil {
		return models.Shift{}, err
	}
	endAt, err := utils.CombineDateAndClock(day, sched.EndTime, s.location())
	if err != nil {
		return models.Shift{}, err
	}
	// Overnight schedules end on the following day.
	if !endAt.After(startAt) {
		endAt = endAt.AddDate(0, 0, 1)
	}

	scheduleID := sched.ID
	return models.Shift{
		StaffID:    sched.StaffID,
		ScheduleID: &scheduleID,
		Date:       day,
		StartTime:  startAt,
		EndTime:    endAt,
		Status:     models.ShiftStatusScheduled,
	}, nil
}
