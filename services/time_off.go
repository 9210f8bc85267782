package services

import (
	"context"
	"errors"
	"time"

	"safemeds-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DecideTimeOff approves or rejects a pending request. Only PENDING requests
// can be decided; the update is conditional on that status so two managers
// deciding at once cannot both succeed.
func (s *StaffService) DecideTimeOff(ctx context.Context, id uuid.UUID, decision models.TimeOffStatus, deciderID uuid.UUID, notes *string) (*models.TimeOffRequest, error) {
	db := s.DB.WithContext(ctx)

	var req models.TimeOffRequest
	if err := db.Preload("Staff.User").Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimeOffNotFound
		}
		return nil, err
	}
	if req.Status != models.TimeOffPending {
		return nil, ErrTimeOffNotPending
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":      decision,
		"approved_by": deciderID,
		"approved_at": now,
	}
	if notes != nil {
		updates["notes"] = *notes
	}

	res := db.Model(&models.TimeOffRequest{}).
		Where("id = ? AND status = ?", id, models.TimeOffPending).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrTimeOffNotPending
	}

	req.Status = decision
	req.ApprovedBy = &deciderID
	req.ApprovedAt = &now
	if notes != nil {
		req.Notes = notes
	}

	if decision == models.TimeOffApproved {
		s.InvalidateRange(ctx, req.StartDate, req.EndDate)
	}
	return &req, nil
}
