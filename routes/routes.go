package routes

import (
	"net/http"
	"time"

	"safemeds-backend/config"
	"safemeds-backend/handlers"
	"safemeds-backend/middleware"
	"safemeds-backend/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes registers every route. loginLimiter may be nil to disable
// login throttling.
func SetupRoutes(r *gin.Engine, db *gorm.DB, svc *services.StaffService, loginLimiter *middleware.RateLimiter) {
	// Initialize handlers
	authHandler := &handlers.AuthHandler{DB: db, TokenTTL: config.GetDuration("JWT_TTL", 2*time.Hour)}
	staffHandler := &handlers.StaffHandler{DB: db, Service: svc}
	shiftHandler := &handlers.ShiftHandler{DB: db, Service: svc}
	timeOffHandler := &handlers.TimeOffHandler{DB: db, Service: svc}

	// Public routes
	api := r.Group("/api")
	{
		login := []gin.HandlerFunc{authHandler.Login}
		if loginLimiter != nil {
			login = append([]gin.HandlerFunc{loginLimiter.Middleware()}, login...)
		}
		api.POST("/auth/login", login...)
	}

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/auth/profile", authHandler.GetProfile)
	}

	staff := api.Group("/staff")
	staff.Use(middleware.AuthMiddleware())
	{
		staff.GET("", staffHandler.ListStaff)
		staff.GET("/availability", shiftHandler.GetAvailability)

		// Shifts
		staff.GET("/shifts", shiftHandler.ListShifts)
		staff.PUT("/shifts/:id/status", shiftHandler.UpdateShiftStatus)

		// Time off
		staff.GET("/time-off", timeOffHandler.ListTimeOff)
		staff.POST("/time-off", timeOffHandler.CreateTimeOff)

		staff.GET("/:id", staffHandler.GetStaff)
		staff.GET("/:id/schedules", staffHandler.GetSchedules)
	}

	// Manager routes (admin or pharmacist)
	manager := staff.Group("")
	manager.Use(middleware.ManagerMiddleware())
	{
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
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
