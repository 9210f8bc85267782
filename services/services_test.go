package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"safemeds-backend/dtos"
	"safemeds-backend/models"
	"safemeds-backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBCounter++
	// Named shared-cache databases let concurrent goroutines see one schema.
	dsn := fmt.Sprintf("file:services_%d?mode=memory&cache=shared", testDBCounter)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	tables := []string{
		`CREATE TABLE IF NOT EXISTS "users" (
			"id" TEXT PRIMARY KEY, "email" TEXT NOT NULL UNIQUE, "password" TEXT NOT NULL,
			"name" TEXT, "role" TEXT DEFAULT 'patient',
			"created_at" DATETIME, "updated_at" DATETIME, "deleted_at" DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS "staffs" (
			"id" TEXT PRIMARY KEY, "user_id" TEXT NOT NULL UNIQUE, "position" TEXT NOT NULL,
			"department" TEXT, "phone" TEXT, "is_active" INTEGER DEFAULT 1,
			"created_at" DATETIME, "updated_at" DATETIME, "deleted_at" DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS "staff_schedules" (
			"id" TEXT PRIMARY KEY, "staff_id" TEXT NOT NULL, "day_of_week" INTEGER NOT NULL,
			"start_time" TEXT NOT NULL, "end_time" TEXT NOT NULL, "break_start" TEXT, "break_end" TEXT,
			"is_active" INTEGER DEFAULT 1, "created_at" DATETIME, "updated_at" DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS "shifts" (
			"id" TEXT PRIMARY KEY, "staff_id" TEXT NOT NULL, "schedule_id" TEXT,
			"shift_date" DATE NOT NULL, "start_time" DATETIME NOT NULL, "end_time" DATETIME NOT NULL,
			"status" TEXT DEFAULT 'SCHEDULED', "actual_start_time" DATETIME, "actual_end_time" DATETIME,
			"notes" TEXT, "created_at" DATETIME, "updated_at" DATETIME
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_shift_staff_date ON "shifts"("staff_id","shift_date")`,
		`CREATE TABLE IF NOT EXISTS "time_off_requests" (
			"id" TEXT PRIMARY KEY, "staff_id" TEXT NOT NULL, "start_date" DATE NOT NULL,
			"end_date" DATE NOT NULL, "reason" TEXT, "type" TEXT NOT NULL, "status" TEXT DEFAULT 'PENDING',
			"approved_by" TEXT, "approved_at" DATETIME, "notes" TEXT,
			"created_at" DATETIME, "updated_at" DATETIME
		)`,
	}
	for _, sql := range tables {
		require.NoError(t, db.Exec(sql).Error)
	}
	return db
}

func newTestService(t *testing.T) (*StaffService, *gorm.DB) {
	db := setupTestDB(t)
	svc := NewStaffService(db)
	svc.Runs = utils.NewRunStore()
	return svc, db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// 2026-10-19 is a Monday.
var monday = day(2026, 10, 19)

func seedStaff(t *testing.T, db *gorm.DB, name string) models.Staff {
	t.Helper()
	user := models.User{Email: fmt.Sprintf("%s-%s@safemeds.test", name, uuid.NewString()[:8]), Password: "hash", Name: name, Role: models.RoleStaff}
	require.NoError(t, db.Create(&user).Error)
	staff := models.Staff{UserID: user.ID, Position: "Pharmacy Technician", Department: "Dispensary", IsActive: true}
	require.NoError(t, db.Create(&staff).Error)
	staff.User = user
	return staff
}

func seedSchedule(t *testing.T, db *gorm.DB, staffID uuid.UUID, dow time.Weekday, start, end string) models.StaffSchedule {
	t.Helper()
	sched := models.StaffSchedule{StaffID: staffID, DayOfWeek: int(dow), StartTime: start, EndTime: end, IsActive: true}
	require.NoError(t, db.Create(&sched).Error)
	return sched
}

func seedTimeOff(t *testing.T, db *gorm.DB, staffID uuid.UUID, start, end time.Time, status models.TimeOffStatus) models.TimeOffRequest {
	t.Helper()
	req := models.TimeOffRequest{StaffID: staffID, StartDate: start, EndDate: end, Type: models.TimeOffVacation, Status: status}
	require.NoError(t, db.Create(&req).Error)
	return req
}

func countShifts(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(&models.Shift{}).Count(&n).Error)
	return n
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string][]dtos.StaffAvailability
	versions    map[string]int
	epoch       int
	invalidated []string
	flushed     int
	staleWrites int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]dtos.StaffAvailability{}, versions: map[string]int{}}
}

func (f *fakeCache) version(key string) string {
	return fmt.Sprintf("%d:%d", f.versions[key], f.epoch)
}

func (f *fakeCache) Get(_ context.Context, date time.Time) ([]dtos.StaffAvailability, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := date.Format(utils.DateLayout)
	records, ok := f.entries[key]
	return records, f.version(key), ok
}

func (f *fakeCache) Set(_ context.Context, date time.Time, version string, records []dtos.StaffAvailability) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := date.Format(utils.DateLayout)
	if version != f.version(key) {
		f.staleWrites++
		return
	}
	f.entries[key] = records
}

func (f *fakeCache) Invalidate(_ context.Context, dates ...time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range dates {
		key := d.Format(utils.DateLayout)
		delete(f.entries, key)
		f.versions[key]++
		f.invalidated = append(f.invalidated, key)
	}
}

func (f *fakeCache) InvalidateAll(_ context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = map[string][]dtos.StaffAvailability{}
	f.epoch++
	f.flushed++
}
