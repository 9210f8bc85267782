package services

import (
	"context"
	"errors"
	"time"

	"safemeds-backend/models"
	"safemeds-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateShift adds a manual shift. A second shift for the same staff member
// and day is rejected with ErrShiftExists.
func (s *StaffService) CreateShift(ctx context.Context, shift *models.Shift) error {
	db := s.DB.WithContext(ctx)

	var staff models.Staff
	if err := db.Where("id = ?", shift.StaffID).First(&staff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStaffNotFound
		}
		return err
	}
	if !shift.EndTime.After(shift.StartTime) {
		return ErrInvalidTimeRange
	}
	if shift.Status == "" {
		shift.Status = models.ShiftStatusScheduled
	}
	if !shift.Status.IsValid() {
		return ErrInvalidShiftStatus
	}
	shift.Date = utils.StartOfDay(shift.Date)

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(shift)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrShiftExists
	}

	s.InvalidateDates(ctx, shift.Date)
	return nil
}

// UpdateShiftStatus accepts any known status; transitions are not restricted.
func (s *StaffService) UpdateShiftStatus(ctx context.Context, id uuid.UUID, status models.ShiftStatus, notes *string) (*models.Shift, error) {
	if !status.IsValid() {
		return nil, ErrInvalidShiftStatus
	}

	db := s.DB.WithContext(ctx)
	var shift models.Shift
	if err := db.Where("id = ?", id).First(&shift).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}

	shift.ApplyStatus(status, time.Now())
	if notes != nil {
		shift.Notes = notes
	}

	if err := db.Model(&shift).Select("status", "actual_start_time", "actual_end_time", "notes", "updated_at").
		Updates(&shift).Error; err != nil {
		return nil, err
	}

	s.InvalidateDates(ctx, shift.Date)
	return &shift, nil
}
