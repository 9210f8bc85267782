package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TimeOffType string

const (
	TimeOffVacation    TimeOffType = "VACATION"
	TimeOffSickLeave   TimeOffType = "SICK_LEAVE"
	TimeOffPersonalDay TimeOffType = "PERSONAL_DAY"
	TimeOffBereavement TimeOffType = "BEREAVEMENT"
	TimeOffOther       TimeOffType = "OTHER"
)

func (t TimeOffType) IsValid() bool {
	switch t {
	case TimeOffVacation, TimeOffSickLeave, TimeOffPersonalDay, TimeOffBereavement, TimeOffOther:
		return true
	}
	return false
}

type TimeOffStatus string

const (
	TimeOffPending  TimeOffStatus = "PENDING"
	TimeOffApproved TimeOffStatus = "APPROVED"
	TimeOffRejected TimeOffStatus = "REJECTED"
)

func (s TimeOffStatus) IsValid() bool {
	return s == TimeOffPending || s == TimeOffApproved || s == TimeOffRejected
}

// TimeOffRequest covers StartDate through EndDate inclusive.
type TimeOffRequest struct {
	ID         uuid.UUID     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	StaffID    uuid.UUID     `gorm:"type:uuid;not null;index:idx_time_off_staff_dates" json:"staff_id"`
	Staff      *Staff        `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
	StartDate  time.Time     `gorm:"type:date;not null;index:idx_time_off_staff_dates" json:"start_date"`
	EndDate    time.Time     `gorm:"type:date;not null;index:idx_time_off_staff_dates" json:"end_date"`
	Reason     string        `json:"reason"`
	Type       TimeOffType   `gorm:"not null" json:"type"`
	Status     TimeOffStatus `gorm:"default:PENDING;index" json:"status"`
	ApprovedBy *uuid.UUID    `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt *time.Time    `json:"approved_at,omitempty"`
	Notes      *string       `json:"notes,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func (r *TimeOffRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = TimeOffPending
	}
	return nil
}

// Covers reports whether the request's inclusive range contains day.
func (r *TimeOffRequest) Covers(day time.Time) bool {
	return !day.Before(r.StartDate) && !day.After(r.EndDate)
}
