package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Staff struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User       User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Position   string          `gorm:"not null" json:"position"`
	Department string          `json:"department"`
	Phone      string          `json:"phone"`
	IsActive   bool            `gorm:"default:true" json:"is_active"`
	Schedules  []StaffSchedule `gorm:"foreignKey:StaffID" json:"schedules,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (s *Staff) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
