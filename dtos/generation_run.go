package dtos

import (
	"time"

	"github.com/google/uuid"
)

// GenerationRun tracks one invocation of the shift generator
type GenerationRun struct {
	ID            uuid.UUID  `json:"id"`
	Source        string     `json:"source"` // api, cron, cli
	Status        string     `json:"status"` // pending, processing, completed, failed
	StartDate     string     `json:"start_date"`
	EndDate       string     `json:"end_date"`
	TotalDays     int        `json:"total_days"`
	DaysProcessed int        `json:"days_processed"`
	Progress      int        `json:"progress"` // 0-100 percentage
	Created       int        `json:"created"`
	Skipped       int        `json:"skipped"`
	LastDate      *string    `json:"last_date,omitempty"` // last fully processed day
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
}

// RunStatus constants
const (
	RunStatusPending    = "pending"
	RunStatusProcessing = "processing"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
)

const (
	RunSourceAPI  = "api"
	RunSourceCron = "cron"
	RunSourceCLI  = "cli"
)
