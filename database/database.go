package database

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"safemeds-backend/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect() (*gorm.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=safemeds port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	// Ensure PostgreSQL has gen_random_uuid() available (pgcrypto extension).
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		return fmt.Errorf("failed to enable pgcrypto extension: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Staff{},
		&models.StaffSchedule{},
		&models.Shift{},
		&models.TimeOffRequest{},
	); err != nil {
		return err
	}

	return ensureShiftUniqueIndex(db)
}

// ensureShiftUniqueIndex creates the (staff_id, shift_date) index on databases that
// already had a shifts table before the index was declared on the model.
// Duplicate rows must be resolved by hand before this can succeed.
func ensureShiftUniqueIndex(db *gorm.DB) error {
	if db.Migrator().HasIndex(&models.Shift{}, "idx_shift_staff_date") {
		return nil
	}
	if err := db.Migrator().CreateIndex(&models.Shift{}, "idx_shift_staff_date"); err != nil {
		return fmt.Errorf("failed to create idx_shift_staff_date (duplicate staff/day shifts?): %w", err)
	}
	return nil
}

func CreateDefaultAdmin(db *gorm.DB) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" {
		adminEmail = "admin@safemeds.local"
	}

	var existingUser models.User
	result := db.Where("email = ?", adminEmail).First(&existingUser)
	if result.Error == nil {
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	generated := false
	if adminPassword == "" {
		buf := make([]byte, 12)
		if _, err := rand.Read(buf); err != nil {
			return err
		}
		adminPassword = hex.EncodeToString(buf)
		generated = true
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:    adminEmail,
		Password: string(hashedPassword),
		Role:     models.RoleAdmin,
		Name:     "Pharmacy Admin",
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	event := log.Info().Str("email", adminEmail)
	if generated {
		event = event.Str("password", adminPassword)
	}
	event.Msg("Default admin created")
	return nil
}
