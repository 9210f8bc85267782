package handlers

import (
	"errors"
	"net/http"
	"strings"

	"safemeds-backend/models"
	"safemeds-backend/services"
	"safemeds-backend/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type StaffHandler struct {
	DB      *gorm.DB
	Service *services.StaffService
}

// ListStaff returns staff members with their user accounts.
// ?active=true|false filters by status, ?department= by department.
func (h *StaffHandler) ListStaff(c *gin.Context) {
	query := h.DB.Preload("User").Order("created_at ASC")

	switch c.Query("active") {
	case "true":
		query = query.Where("is_active = ?", true)
	case "false":
		query = query.Where("is_active = ?", false)
	}
	if department := c.Query("department"); department != "" {
		query = query.Where("department = ?", department)
	}

	var staff []models.Staff
	if err := query.Find(&staff).Error; err != nil {
		utils.LogError(err, "Failed to fetch staff")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch staff"})
		return
	}

	c.JSON(http.StatusOK, staff)
}

func (h *StaffHandler) GetStaff(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "staff")
	if !ok {
		return
	}

	var staff models.Staff
	if err := h.DB.Preload("User").
		Preload("Schedules", func(db *gorm.DB) *gorm.DB {
			return db.Order("day_of_week ASC, start_time ASC")
		}).
		Where("id = ?", id).First(&staff).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Staff member not found"})
		return
	}

	c.JSON(http.StatusOK, staff)
}

// CreateStaff creates a staff record together with its user account.
func (h *StaffHandler) CreateStaff(c *gin.Context) {
	var req struct {
		Email      string `json:"email" binding:"required,email"`
		Name       string `json:"name" binding:"required"`
		Password   string `json:"password" binding:"required,min=8"`
		Role       string `json:"role" binding:"omitempty,oneof=staff pharmacist admin"`
		Position   string `json:"position" binding:"required"`
		Department string `json:"department"`
		Phone      string `json:"phone"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	if req.Role == "" {
		req.Role = models.RoleStaff
	}
	// Only admins may create other admins.
	if req.Role == models.RoleAdmin && c.GetString("user_role") != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can create admin accounts"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var staff models.Staff
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		if err := tx.Where("email = ?", email).First(&existing).Error; err == nil {
			return errEmailTaken
		}

		user := models.User{
			Email:    email,
			Password: string(hashedPassword),
			Name:     req.Name,
			Role:     req.Role,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		staff = models.Staff{
			UserID:     user.ID,
			Position:   req.Position,
			Department: req.Department,
			Phone:      req.Phone,
			IsActive:   true,
		}
		if err := tx.Create(&staff).Error; err != nil {
			return err
		}
		staff.User = user
		return nil
	})
	if errors.Is(err, errEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}
	if err != nil {
		utils.LogError(err, "Failed to create staff member")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create staff member"})
		return
	}

	h.Service.InvalidateAll(c.Request.Context())
	c.JSON(http.StatusCreated, staff)
}

var errEmailTaken = errors.New("email already registered")

func (h *StaffHandler) UpdateStaff(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "staff")
	if !ok {
		return
	}

	var req struct {
		Name       *string `json:"name"`
		Position   *string `json:"position" binding:"omitempty,min=1"`
		Department *string `json:"department"`
		Phone      *string `json:"phone"`
		IsActive   *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var staff models.Staff
	if err := h.DB.Preload("User").Where("id = ?", id).First(&staff).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Staff member not found"})
		return
	}

	updates := map[string]interface{}{}
	if req.Position != nil {
		updates["position"] = *req.Position
	}
	if req.Department != nil {
		updates["department"] = *req.Department
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&staff).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.Name != nil {
			if err := tx.Model(&staff.User).Update("name", *req.Name).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.LogError(err, "Failed to update staff member")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update staff member"})
		return
	}

	h.Service.InvalidateAll(c.Request.Context())
	h.DB.Preload("User").Where("id = ?", id).First(&staff)
	c.JSON(http.StatusOK, staff)
}

// ==================== Schedules ====================

func (h *StaffHandler) GetSchedules(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "staff")
	if !ok {
		return
	}

	var schedules []models.StaffSchedule
	if err := h.DB.Where("staff_id = ?", id).
		Order("day_of_week ASC, start_time ASC").
		Find(&schedules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch schedules"})
		return
	}

	c.JSON(http.StatusOK, schedules)
}

type scheduleRequest struct {
	DayOfWeek  *int    `json:"day_of_week" binding:"required,gte=0,lte=6"`
	StartTime  string  `json:"start_time" binding:"required,clock"`
	EndTime    string  `json:"end_time" binding:"required,clock"`
	BreakStart *string `json:"break_start" binding:"omitempty,clock"`
	BreakEnd   *string `json:"break_end" binding:"omitempty,clock"`
	IsActive   *bool   `json:"is_active"`
}

func (r *scheduleRequest) validate() string {
	if r.StartTime == r.EndTime {
		return "end_time must differ from start_time"
	}
	if (r.BreakStart == nil) != (r.BreakEnd == nil) {
		return "break_start and break_end must be provided together"
	}
	return ""
}

func (h *StaffHandler) CreateSchedule(c *gin.Context) {
	staffID, ok := parseIDParam(c, "id", "staff")
	if !ok {
		return
	}

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var staff models.Staff
	if err := h.DB.Where("id = ?", staffID).First(&staff).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Staff member not found"})
		return
	}

	schedule := models.StaffSchedule{
		StaffID:    staffID,
		DayOfWeek:  *req.DayOfWeek,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		BreakStart: req.BreakStart,
		BreakEnd:   req.BreakEnd,
		IsActive:   true,
	}
	if err := h.DB.Create(&schedule).Error; err != nil {
		utils.LogError(err, "Failed to create schedule")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create schedule"})
		return
	}
	// default:true hides an explicit false on insert.
	if req.IsActive != nil && !*req.IsActive {
		h.DB.Model(&schedule).Update("is_active", false)
	}

	h.Service.InvalidateAll(c.Request.Context())
	c.JSON(http.StatusCreated, schedule)
}

func (h *StaffHandler) UpdateSchedule(c *gin.Context) {
	id, ok := parseIDParam(c, "scheduleId", "schedule")
	if !ok {
		return
	}

	var schedule models.StaffSchedule
	if err := h.DB.Where("id = ?", id).First(&schedule).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
		return
	}

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	updates := map[string]interface{}{
		"day_of_week": *req.DayOfWeek,
		"start_time":  req.StartTime,
		"end_time":    req.EndTime,
		"break_start": req.BreakStart,
		"break_end":   req.BreakEnd,
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := h.DB.Model(&schedule).Updates(updates).Error; err != nil {
		utils.LogError(err, "Failed to update schedule")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update schedule"})
		return
	}

	h.Service.InvalidateAll(c.Request.Context())
	h.DB.Where("id = ?", id).First(&schedule)
	c.JSON(http.StatusOK, schedule)
}
