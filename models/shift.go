package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ShiftStatus string

const (
	ShiftStatusScheduled  ShiftStatus = "SCHEDULED"
	ShiftStatusInProgress ShiftStatus = "IN_PROGRESS"
	ShiftStatusCompleted  ShiftStatus = "COMPLETED"
	ShiftStatusCancelled  ShiftStatus = "CANCELLED"
)

// ShiftStatuses lists every status a shift may carry. Transition rules between
// them are not enforced.
var ShiftStatuses = []ShiftStatus{
	ShiftStatusScheduled,
	ShiftStatusInProgress,
	ShiftStatusCompleted,
	ShiftStatusCancelled,
}

func (s ShiftStatus) IsValid() bool {
	for _, known := range ShiftStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Shift is a concrete dated work assignment. A staff member has at most one
// shift per calendar day; the unique index is what makes generation safe to
// run concurrently.
type Shift struct {
	ID              uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	StaffID         uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_shift_staff_date" json:"staff_id"`
	Staff           *Staff      `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
	ScheduleID      *uuid.UUID  `gorm:"type:uuid" json:"schedule_id,omitempty"`
	Date            time.Time   `gorm:"column:shift_date;type:date;not null;uniqueIndex:idx_shift_staff_date" json:"date"`
	StartTime       time.Time   `gorm:"not null" json:"start_time"`
	EndTime         time.Time   `gorm:"not null" json:"end_time"`
	Status          ShiftStatus `gorm:"default:SCHEDULED;index" json:"status"`
	ActualStartTime *time.Time  `json:"actual_start_time,omitempty"`
	ActualEndTime   *time.Time  `json:"actual_end_time,omitempty"`
	Notes           *string     `json:"notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (s *Shift) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = ShiftStatusScheduled
	}
	return nil
}

// ApplyStatus sets the status and stamps the actual clock-in/clock-out time
// the first time a shift enters IN_PROGRESS or COMPLETED.
func (s *Shift) ApplyStatus(status ShiftStatus, now time.Time) {
	s.Status = status
	switch status {
	case ShiftStatusInProgress:
		if s.ActualStartTime == nil {
			s.ActualStartTime = &now
		}
	case ShiftStatusCompleted:
		if s.ActualStartTime == nil {
			start := s.StartTime
			s.ActualStartTime = &start
		}
		if s.ActualEndTime == nil {
			s.ActualEndTime = &now
		}
	}
}
