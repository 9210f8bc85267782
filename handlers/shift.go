package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"safemeds-backend/dtos"
	"safemeds-backend/models"
	"safemeds-backend/services"
	"safemeds-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ShiftHandler struct {
	DB      *gorm.DB
	Service *services.StaffService
}

// GetAvailability reports every active staff member's availability on ?date=YYYY-MM-DD.
func (h *ShiftHandler) GetAvailability(c *gin.Context) {
	dateStr := c.Query("date")
	if dateStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date query parameter is required (YYYY-MM-DD)"})
		return
	}
	date, err := utils.ParseDate(dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD"})
		return
	}

	records, err := h.Service.GetStaffAvailability(c.Request.Context(), date)
	if err != nil {
		utils.LogError(err, "Failed to load staff availability", map[string]interface{}{"date": dateStr})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch staff availability"})
		return
	}

	c.JSON(http.StatusOK, records)
}

// GenerateShifts materialises shifts from schedules over an inclusive date range.
// Both camelCase and snake_case keys are accepted.
func (h *ShiftHandler) GenerateShifts(c *gin.Context) {
	var req struct {
		StartDate      string `json:"startDate"`
		EndDate        string `json:"endDate"`
		StartDateSnake string `json:"start_date"`
		EndDateSnake   string `json:"end_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.StartDate == "" {
		req.StartDate = req.StartDateSnake
	}
	if req.EndDate == "" {
		req.EndDate = req.EndDateSnake
	}
	if req.StartDate == "" || req.EndDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startDate and endDate are required"})
		return
	}

	start, err := utils.ParseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid startDate. Use YYYY-MM-DD"})
		return
	}
	end, err := utils.ParseDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid endDate. Use YYYY-MM-DD"})
		return
	}

	runID, result, err := h.Service.RunGeneration(c.Request.Context(), dtos.RunSourceAPI, start, end)
	if err != nil {
		if errors.Is(err, services.ErrInvalidDateRange) || errors.Is(err, services.ErrDateRangeTooLong) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Failed to generate shifts",
			"run_id": runID,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": fmt.Sprintf("Generated %d shifts", len(result.Shifts)),
		"count":   len(result.Shifts),
		"shifts":  result.Shifts,
		"run_id":  runID,
	})
}

func (h *ShiftHandler) GetGenerationRun(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "run")
	if !ok {
		return
	}

	run, exists := h.Service.Runs.GetRun(id)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Generation run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *ShiftHandler) ListGenerationRuns(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Runs.ListRuns(50))
}

// ListShifts supports ?staff_id=, ?from=, ?to= (inclusive) and ?status=.
func (h *ShiftHandler) ListShifts(c *gin.Context) {
	query := h.DB.Preload("Staff.User").Order("shift_date ASC, start_time ASC")

	if staffID := c.Query("staff_id"); staffID != "" {
		id, err := uuid.Parse(staffID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid staff ID"})
			return
		}
		query = query.Where("staff_id = ?", id)
	}
	if from := c.Query("from"); from != "" {
		d, err := utils.ParseDate(from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date. Use YYYY-MM-DD"})
			return
		}
		query = query.Where("shift_date >= ?", d)
	}
	if to := c.Query("to"); to != "" {
		d, err := utils.ParseDate(to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date. Use YYYY-MM-DD"})
			return
		}
		query = query.Where("shift_date < ?", d.AddDate(0, 0, 1))
	}
	if status := c.Query("status"); status != "" {
		if !models.ShiftStatus(status).IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shift status"})
			return
		}
		query = query.Where("status = ?", status)
	}

	var shifts []models.Shift
	if err := query.Find(&shifts).Error; err != nil {
		utils.LogError(err, "Failed to fetch shifts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch shifts"})
		return
	}

	c.JSON(http.StatusOK, shifts)
}

// CreateShift adds a one-off shift outside the weekly schedules.
func (h *ShiftHandler) CreateShift(c *gin.Context) {
	var req struct {
		StaffID   string  `json:"staff_id" binding:"required,uuid"`
		Date      string  `json:"date" binding:"required"`
		StartTime string  `json:"start_time" binding:"required,clock"`
		EndTime   string  `json:"end_time" binding:"required,clock"`
		Notes     *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	day, err := utils.ParseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD"})
		return
	}
	loc := h.Service.Location
	startAt, _ := utils.CombineDateAndClock(day, req.StartTime, loc)
	endAt, _ := utils.CombineDateAndClock(day, req.EndTime, loc)
	if !endAt.After(startAt) {
		endAt = endAt.AddDate(0, 0, 1)
	}

	shift := models.Shift{
		StaffID:   uuid.MustParse(req.StaffID),
		Date:      day,
		StartTime: startAt,
		EndTime:   endAt,
		Status:    models.ShiftStatusScheduled,
		Notes:     req.Notes,
	}

	if err := h.Service.CreateShift(c.Request.Context(), &shift); err != nil {
		switch {
		case errors.Is(err, services.ErrStaffNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Staff member not found"})
		case errors.Is(err, services.ErrShiftExists):
			c.JSON(http.StatusConflict, gin.H{"error": "Staff member already has a shift on this date"})
		case errors.Is(err, services.ErrInvalidTimeRange):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			utils.LogError(err, "Failed to create shift")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create shift"})
		}
		return
	}

	c.JSON(http.StatusCreated, shift)
}

// UpdateShiftStatus is open to managers and to the staff member the shift belongs to.
func (h *ShiftHandler) UpdateShiftStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "shift")
	if !ok {
		return
	}

	var req struct {
		Status string  `json:"status" binding:"required"`
		Notes  *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	status := models.ShiftStatus(req.Status)
	if !status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shift status"})
		return
	}

	if !isManager(c) {
		var shift models.Shift
		if err := h.DB.Select("id", "staff_id").Where("id = ?", id).First(&shift).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Shift not found"})
			return
		}
		staffID, hasStaff := currentStaffID(c)
		if !hasStaff || staffID != shift.StaffID {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only update your own shifts"})
			return
		}
	}

	shift, err := h.Service.UpdateShiftStatus(c.Request.Context(), id, status, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrShiftNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Shift not found"})
		case errors.Is(err, services.ErrInvalidShiftStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shift status"})
		default:
			utils.LogError(err, "Failed to update shift status")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update shift"})
		}
		return
	}

	c.JSON(http.StatusOK, shift)
}
