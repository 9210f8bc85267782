package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"safemeds-backend/middleware"
	"safemeds-backend/models"
	"safemeds-backend/services"
	"safemeds-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", "test-secret-key-for-unit-tests")
	os.Unsetenv("SMTP_HOST")

	if err := utils.RegisterValidators(); err != nil {
		panic("failed to register validators: " + err.Error())
	}

	var err error
	testDB, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}
	// One connection keeps every query on the same in-memory database.
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)

	// Raw DDL instead of AutoMigrate: the model tags use PostgreSQL defaults like gen_random_uuid().
	if err := createSQLiteTables(testDB); err != nil {
		panic("failed to migrate test database: " + err.Error())
	}

	code := m.Run()
	os.Exit(code)
}

// freshDB returns a clean database for each test by deleting all rows.
func freshDB() *gorm.DB {
	testDB.Exec("DELETE FROM shifts")
	testDB.Exec("DELETE FROM time_off_requests")
	testDB.Exec("DELETE FROM staff_schedules")
	testDB.Exec("DELETE FROM staffs")
	testDB.Exec("DELETE FROM users")
	return testDB
}

func createSQLiteTables(db *gorm.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS "users" (
			"id" TEXT PRIMARY KEY,
			"email" TEXT NOT NULL UNIQUE,
			"password" TEXT NOT NULL,
			"name" TEXT,
			"role" TEXT DEFAULT 'patient',
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_deleted_at ON "users"("deleted_at")`,

		`CREATE TABLE IF NOT EXISTS "staffs" (
			"id" TEXT PRIMARY KEY,
			"user_id" TEXT NOT NULL UNIQUE,
			"position" TEXT NOT NULL,
			"department" TEXT,
			"phone" TEXT,
			"is_active" INTEGER DEFAULT 1,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_staffs_deleted_at ON "staffs"("deleted_at")`,

		`CREATE TABLE IF NOT EXISTS "staff_schedules" (
			"id" TEXT PRIMARY KEY,
			"staff_id" TEXT NOT NULL,
			"day_of_week" INTEGER NOT NULL,
			"start_time" TEXT NOT NULL,
			"end_time" TEXT NOT NULL,
			"break_start" TEXT,
			"break_end" TEXT,
			"is_active" INTEGER DEFAULT 1,
			"created_at" DATETIME,
			"updated_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_staff_schedule_day ON "staff_schedules"("staff_id","day_of_week")`,

		`CREATE TABLE IF NOT EXISTS "shifts" (
			"id" TEXT PRIMARY KEY,
			"staff_id" TEXT NOT NULL,
			"schedule_id" TEXT,
			"shift_date" DATE NOT NULL,
			"start_time" DATETIME NOT NULL,
			"end_time" DATETIME NOT NULL,
			"status" TEXT DEFAULT 'SCHEDULED',
			"actual_start_time" DATETIME,
			"actual_end_time" DATETIME,
			"notes" TEXT,
			"created_at" DATETIME,
			"updated_at" DATETIME
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_shift_staff_date ON "shifts"("staff_id","shift_date")`,

		`CREATE TABLE IF NOT EXISTS "time_off_requests" (
			"id" TEXT PRIMARY KEY,
			"staff_id" TEXT NOT NULL,
			"start_date" DATE NOT NULL,
			"end_date" DATE NOT NULL,
			"reason" TEXT,
			"type" TEXT NOT NULL,
			"status" TEXT DEFAULT 'PENDING',
			"approved_by" TEXT,
			"approved_at" DATETIME,
			"notes" TEXT,
			"created_at" DATETIME,
			"updated_at" DATETIME
		)`,
	}

	for _, sql := range tables {
		if err := db.Exec(sql).Error; err != nil {
			return err
		}
	}
	return nil
}

// ==================== Seed Helpers ====================

// seedTestUser creates a user with the given role and returns it along with a valid JWT token.
func seedTestUser(db *gorm.DB, email, role string) (models.User, string) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := models.User{
		ID:       uuid.New(),
		Email:    email,
		Password: string(hashed),
		Name:     "Test User",
		Role:     role,
	}
	db.Create(&user)

	token, _ := utils.GenerateToken(user.ID, user.Email, user.Role, nil, time.Hour)
	return user, token
}

// seedStaff creates a staff user plus staff record and returns a token carrying the staff ID.
func seedStaff(db *gorm.DB, email string) (models.Staff, string) {
	user, _ := seedTestUser(db, email, models.RoleStaff)
	staff := models.Staff{
		UserID:     user.ID,
		Position:   "Pharmacy Technician",
		Department: "Dispensary",
		IsActive:   true,
	}
	db.Create(&staff)
	staff.User = user

	token, _ := utils.GenerateToken(user.ID, user.Email, user.Role, &staff.ID, time.Hour)
	return staff, token
}

func seedSchedule(db *gorm.DB, staffID uuid.UUID, dow time.Weekday, start, end string) models.StaffSchedule {
	schedule := models.StaffSchedule{
		StaffID:   staffID,
		DayOfWeek: int(dow),
		StartTime: start,
		EndTime:   end,
		IsActive:  true,
	}
	db.Create(&schedule)
	return schedule
}

func seedShift(db *gorm.DB, staffID uuid.UUID, day time.Time) models.Shift {
	shift := models.Shift{
		StaffID:   staffID,
		Date:      day,
		StartTime: day.Add(9 * time.Hour),
		EndTime:   day.Add(17 * time.Hour),
		Status:    models.ShiftStatusScheduled,
	}
	db.Create(&shift)
	return shift
}

func seedTimeOff(db *gorm.DB, staffID uuid.UUID, start, end time.Time, status models.TimeOffStatus) models.TimeOffRequest {
	req := models.TimeOffRequest{
		StaffID:   staffID,
		StartDate: start,
		EndDate:   end,
		Type:      models.TimeOffVacation,
		Reason:    "Family trip",
		Status:    status,
	}
	db.Create(&req)
	return req
}

// 2026-10-19 is a Monday.
var testMonday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

// ==================== Router Setup Helpers ====================

func newTestService(db *gorm.DB) *services.StaffService {
	svc := services.NewStaffService(db)
	svc.Runs = utils.NewRunStore()
	return svc
}

// setupAuthRouter sets up routes for auth handler tests.
func setupAuthRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	authHandler := &AuthHandler{DB: db}

	api := r.Group("/api")
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("/auth/profile", authHandler.GetProfile)

	return r
}

// setupStaffRouter mirrors the /api/staff routes.
func setupStaffRouter(db *gorm.DB) (*gin.Engine, *services.StaffService) {
	r := gin.New()
	svc := newTestService(db)
	staffHandler := &StaffHandler{DB: db, Service: svc}
	shiftHandler := &ShiftHandler{DB: db, Service: svc}
	timeOffHandler := &TimeOffHandler{DB: db, Service: svc}

	staff := r.Group("/api/staff")
	staff.Use(middleware.AuthMiddleware())
	staff.GET("", staffHandler.ListStaff)
	staff.GET("/availability", shiftHandler.GetAvailability)
	staff.GET("/shifts", shiftHandler.ListShifts)
	staff.PUT("/shifts/:id/status", shiftHandler.UpdateShiftStatus)
	staff.GET("/time-off", timeOffHandler.ListTimeOff)
	staff.POST("/time-off", timeOffHandler.CreateTimeOff)
	staff.GET("/:id", staffHandler.GetStaff)
	staff.GET("/:id/schedules", staffHandler.GetSchedules)

	manager := staff.Group("")
	manager.Use(middleware.ManagerMiddleware())
	manager.POST("", staffHandler.CreateStaff)
	manager.PUT("/:id", staffHandler.UpdateStaff)
	manager.POST("/:id/schedules", staffHandler.CreateSchedule)
	manager.PUT("/schedules/:scheduleId", staffHandler.UpdateSchedule)
	manager.POST("/shifts", shiftHandler.CreateShift)
	manager.POST("/shifts/generate", shiftHandler.GenerateShifts)
	manager.GET("/shifts/generate", shiftHandler.ListGenerationRuns)
	manager.GET("/shifts/generate/:id", shiftHandler.GetGenerationRun)
	manager.PUT("/time-off/:id/approve", timeOffHandler.ApproveTimeOff)
	manager.PUT("/time-off/:id/reject", timeOffHandler.RejectTimeOff)

	return r, svc
}

// ==================== Request Helpers ====================

// jsonRequest creates an HTTP request with JSON body.
func jsonRequest(method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// authRequest creates an HTTP request with JSON body and Authorization header.
func authRequest(method, url string, body interface{}, token string) *http.Request {
	req := jsonRequest(method, url, body)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// ==================== Response Helpers ====================

// parseResponse reads the response body into a map.
func parseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// parseResponseArray reads the response body into a slice of maps.
func parseResponseArray(w *httptest.ResponseRecorder) []interface{} {
	var result []interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}
