package services

import (
	"context"
	"time"

	"safemeds-backend/dtos"
	"safemeds-backend/models"
	"safemeds-backend/utils"

	"github.com/google/uuid"
)

// GetStaffAvailability reports, for every active staff member, whether they
// are scheduled, already assigned a shift, or on approved time off on date.
// A staff member is available only when scheduled with neither of the others.
func (s *StaffService) GetStaffAvailability(ctx context.Context, date time.Time) ([]dtos.StaffAvailability, error) {
	day := utils.StartOfDay(date)

	// The version is read before loading so a write that commits while the
	// report is being built makes the Set below a no-op.
	var version string
	if s.Cache != nil {
		records, v, ok := s.Cache.Get(ctx, day)
		if ok {
			return records, nil
		}
		version = v
	}

	records, err := s.loadAvailability(ctx, day)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, day, version, records)
	}
	return records, nil
}

func (s *StaffService) loadAvailability(ctx context.Context, day time.Time) ([]dtos.StaffAvailability, error) {
	db := s.DB.WithContext(ctx)

	var staff []models.Staff
	if err := db.Joins("User").
		Where("staffs.is_active = ?", true).
		Order("staffs.created_at ASC").
		Find(&staff).Error; err != nil {
		return nil, err
	}

	records := make([]dtos.StaffAvailability, 0, len(staff))
	if len(staff) == 0 {
		return records, nil
	}

	staffIDs := make([]uuid.UUID, len(staff))
	for i, member := range staff {
		staffIDs[i] = member.ID
	}

	// Batch the three lookups instead of querying per staff member.
	var schedules []models.StaffSchedule
	if err := db.Where("staff_id IN ? AND day_of_week = ? AND is_active = ?", staffIDs, int(day.Weekday()), true).
		Order("start_time ASC").
		Find(&schedules).Error; err != nil {
		return nil, err
	}
	scheduleByStaff := make(map[uuid.UUID]*models.StaffSchedule, len(schedules))
	for i := range schedules {
		if _, seen := scheduleByStaff[schedules[i].StaffID]; !seen {
			scheduleByStaff[schedules[i].StaffID] = &schedules[i]
		}
	}

	var shifts []models.Shift
	if err := db.Where("staff_id IN ? AND shift_date >= ? AND shift_date < ?", staffIDs, day, day.AddDate(0, 0, 1)).
		Find(&shifts).Error; err != nil {
		return nil, err
	}
	shiftByStaff := make(map[uuid.UUID]*models.Shift, len(shifts))
	for i := range shifts {
		shiftByStaff[shifts[i].StaffID] = &shifts[i]
	}

	var timeOff []models.TimeOffRequest
	if err := db.Where("staff_id IN ? AND status = ? AND start_date <= ? AND end_date >= ?",
		staffIDs, models.TimeOffApproved, day, day).
		Order("start_date ASC").
		Find(&timeOff).Error; err != nil {
		return nil, err
	}
	timeOffByStaff := make(map[uuid.UUID]*models.TimeOffRequest, len(timeOff))
	for i := range timeOff {
		if _, seen := timeOffByStaff[timeOff[i].StaffID]; !seen {
			timeOffByStaff[timeOff[i].StaffID] = &timeOff[i]
		}
	}

	for _, member := range staff {
		record := dtos.StaffAvailability{
			StaffID:    member.ID,
			UserID:     member.UserID,
			Name:       member.User.Name,
			Email:      member.User.Email,
			Position:   member.Position,
			Department: member.Department,
			Schedule:   scheduleByStaff[member.ID],
			Shift:      shiftByStaff[member.ID],
			TimeOff:    timeOffByStaff[member.ID],
		}
		record.HasSchedule = record.Schedule != nil
		record.HasShift = record.Shift != nil
		record.HasTimeOff = record.TimeOff != nil
		record.IsAvailable = record.HasSchedule && !record.HasShift && !record.HasTimeOff
		records = append(records, record)
	}

	return records, nil
}
