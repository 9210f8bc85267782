package dtos

import (
	"safemeds-backend/models"

	"github.com/google/uuid"
)

// StaffAvailability is the per-staff row of the availability report.
type StaffAvailability struct {
	StaffID     uuid.UUID              `json:"staff_id"`
	UserID      uuid.UUID              `json:"user_id"`
	Name        string                 `json:"name"`
	Email       string                 `json:"email"`
	Position    string                 `json:"position"`
	Department  string                 `json:"department"`
	HasSchedule bool                   `json:"has_schedule"`
	HasShift    bool                   `json:"has_shift"`
	HasTimeOff  bool                   `json:"has_time_off"`
	IsAvailable bool                   `json:"is_available"`
	Schedule    *models.StaffSchedule  `json:"schedule,omitempty"`
	Shift       *models.Shift          `json:"shift,omitempty"`
	TimeOff     *models.TimeOffRequest `json:"time_off,omitempty"`
}
