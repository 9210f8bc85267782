package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"safemeds-backend/cache"
	"safemeds-backend/config"
	"safemeds-backend/cron"
	"safemeds-backend/database"
	"safemeds-backend/middleware"
	"safemeds-backend/routes"
	"safemeds-backend/services"
	"safemeds-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load environment variables
	if err := config.LoadEnv(); err != nil {
		log.Fatal().Err(err).Msg("Error loading .env file")
	}
	utils.InitLogger()

	// Validate critical environment variables
	if err := config.ValidateEnv(); err != nil {
		log.Fatal().Err(err).Msg("Environment validation failed")
	}
	if err := utils.RegisterValidators(); err != nil {
		log.Fatal().Err(err).Msg("Failed to register validators")
	}

	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Create default admin user if not exists
	if err := database.CreateDefaultAdmin(db); err != nil {
		log.Warn().Err(err).Msg("Could not create default admin")
	}

	loc, _ := config.ShiftLocation()
	svc := services.NewStaffService(db)
	svc.Location = loc
	svc.MaxRangeDays = config.GetInt("SHIFT_GENERATION_MAX_DAYS", services.DefaultMaxRangeDays)

	// Availability cache is optional
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client, err := cache.Connect(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), config.GetInt("REDIS_DB", 0))
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, availability cache disabled")
		} else {
			defer client.Close()
			svc.Cache = cache.NewRedisAvailabilityCache(client, config.GetDuration("AVAILABILITY_CACHE_TTL", 5*time.Minute))
			log.Info().Str("addr", addr).Msg("Availability cache enabled")
		}
	}

	// Scheduled generation is optional
	stopScheduler := func() {}
	if spec := os.Getenv("SHIFT_GENERATION_CRON"); spec != "" {
		job := &cron.ShiftGenerationJob{
			Service:     svc,
			HorizonDays: config.GetInt("SHIFT_GENERATION_HORIZON_DAYS", cron.DefaultHorizonDays),
		}
		scheduler, err := cron.StartShiftGeneration(spec, job)
		if err != nil {
			log.Fatal().Err(err).Str("spec", spec).Msg("Invalid SHIFT_GENERATION_CRON")
		}
		stopScheduler = func() { <-scheduler.Stop().Done() }
	}

	// Drop finished generation runs after an hour
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				svc.Runs.CleanupOldRuns()
			case <-cleanupDone:
				return
			}
		}
	}()
	defer close(cleanupDone)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery(), utils.GinLogger())

	origins := []string{"http://localhost:3000"}
	if frontend := os.Getenv("FRONTEND_URL"); frontend != "" {
		origins = []string{frontend}
	} else {
		log.Warn().Msg("No CORS origins configured, defaulting to http://localhost:3000")
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
	}))

	// 10 login attempts per minute per client
	loginLimiter := middleware.NewRateLimiter(10, time.Minute)
	defer loginLimiter.Stop()

	// Setup routes
	routes.SetupRoutes(r, db, svc, loginLimiter)

	// Start server with graceful shutdown
	port := config.GetEnv("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in a goroutine
	go func() {
		log.Info().Str("port", port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	// Let a running generation pass finish before the database goes away
	stopScheduler()

	// Close database connection
	sqlDB, err := db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		} else {
			log.Info().Msg("Database connection closed")
		}
	}

	log.Info().Msg("Server exited gracefully")
}
