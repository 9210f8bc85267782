package utils

import (
	"sort"
	"sync"
	"time"

	"safemeds-backend/dtos"

	"github.com/google/uuid"
)

// RunStore keeps recent shift generation runs in memory
type RunStore struct {
	runs map[uuid.UUID]*dtos.GenerationRun
	mu   sync.RWMutex
}

// Global run store instance
var Runs = NewRunStore()

func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[uuid.UUID]*dtos.GenerationRun)}
}

// CleanupOldRuns removes finished runs older than 1 hour.
func (rs *RunStore) CleanupOldRuns() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	cutoff := time.Now().Add(-1 * time.Hour)
	for id, run := range rs.runs {
		if run.CompletedAt != nil && run.CompletedAt.Before(cutoff) {
			delete(rs.runs, id)
		}
	}
}

// CreateRun registers a pending run covering startDate..endDate inclusive
func (rs *RunStore) CreateRun(source string, startDate, endDate time.Time) *dtos.GenerationRun {
	rs.CleanupOldRuns()

	rs.mu.Lock()
	defer rs.mu.Unlock()

	totalDays := int(endDate.Sub(startDate).Hours()/24) + 1
	if totalDays < 0 {
		totalDays = 0
	}

	run := &dtos.GenerationRun{
		ID:        uuid.New(),
		Source:    source,
		Status:    dtos.RunStatusPending,
		StartDate: startDate.Format(DateLayout),
		EndDate:   endDate.Format(DateLayout),
		TotalDays: totalDays,
		StartedAt: time.Now(),
	}

	rs.runs[run.ID] = run
	return run
}

// GetRun returns a copy of the run so callers never race with updates
func (rs *RunStore) GetRun(id uuid.UUID) (dtos.GenerationRun, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	run, exists := rs.runs[id]
	if !exists {
		return dtos.GenerationRun{}, false
	}
	return *run, true
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (rs *RunStore) ListRuns(limit int) []dtos.GenerationRun {
	rs.mu.RLock()
	runs := make([]dtos.GenerationRun, 0, len(rs.runs))
	for _, run := range rs.runs {
		runs = append(runs, *run)
	}
	rs.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}

// SetProcessing marks run as processing
func (rs *RunStore) SetProcessing(id uuid.UUID) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if run, exists := rs.runs[id]; exists {
		run.Status = dtos.RunStatusProcessing
	}
}

// RecordDay records one fully processed day
func (rs *RunStore) RecordDay(id uuid.UUID, day time.Time, created, skipped int) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	run, exists := rs.runs[id]
	if !exists {
		return
	}
	run.DaysProcessed++
	run.Created += created
	run.Skipped += skipped
	last := day.Format(DateLayout)
	run.LastDate = &last
	if run.TotalDays > 0 {
		run.Progress = run.DaysProcessed * 100 / run.TotalDays
	}
}

// CompleteRun marks a run as finished. A non-nil err marks it failed.
func (rs *RunStore) CompleteRun(id uuid.UUID, err error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	run, exists := rs.runs[id]
	if !exists {
		return
	}
	now := time.Now()
	run.CompletedAt = &now
	if err != nil {
		run.Status = dtos.RunStatusFailed
		run.Error = err.Error()
		return
	}
	run.Status = dtos.RunStatusCompleted
	run.Progress = 100
}
