package cron

import (
	"context"
	"time"

	"safemeds-backend/dtos"
	"safemeds-backend/services"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const DefaultHorizonDays = 14

// ShiftGenerationJob generates shifts for today through today+HorizonDays,
// where today is taken in the service's shift location.
type ShiftGenerationJob struct {
	Service     *services.StaffService
	HorizonDays int
	Timeout     time.Duration
	Now         func() time.Time
}

// Run performs one generation pass. Range and persistence errors are logged;
// the run store keeps the details.
func (j *ShiftGenerationJob) Run() {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	horizon := j.HorizonDays
	if horizon < 0 {
		horizon = DefaultHorizonDays
	}
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := j.Service.DayOf(now())
	end := start.AddDate(0, 0, horizon)
	runID, result, err := j.Service.RunGeneration(ctx, dtos.RunSourceCron, start, end)
	if err != nil {
		log.Error().Err(err).Str("run_id", runID.String()).Int("created", result.Created).Msg("Scheduled shift generation failed")
	}
}

// StartShiftGeneration schedules the job on spec (standard 5-field cron syntax)
// and starts the scheduler. The caller stops it on shutdown.
func StartShiftGeneration(spec string, job *ShiftGenerationJob) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddJob(spec, job); err != nil {
		return nil, err
	}
	c.Start()
	log.Info().Str("schedule", spec).Int("horizon_days", job.HorizonDays).Msg("Shift generation scheduler started")
	return c, nil
}
