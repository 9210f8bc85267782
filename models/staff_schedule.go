package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StaffSchedule is a recurring weekly working window for one staff member.
type StaffSchedule struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	StaffID    uuid.UUID `gorm:"type:uuid;not null;index:idx_staff_schedule_day" json:"staff_id"`
	Staff      *Staff    `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
	DayOfWeek  int       `gorm:"not null;index:idx_staff_schedule_day" json:"day_of_week"` // 0=Sunday, 6=Saturday
	StartTime  string    `gorm:"not null" json:"start_time"`                               // HH:MM
	EndTime    string    `gorm:"not null" json:"end_time"`
	BreakStart *string   `json:"break_start,omitempty"`
	BreakEnd   *string   `json:"break_end,omitempty"`
	IsActive   bool      `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s *StaffSchedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
