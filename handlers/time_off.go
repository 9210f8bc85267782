package handlers

import (
	"errors"
	"io"
	"net/http"

	"safemeds-backend/models"
	"safemeds-backend/services"
	"safemeds-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TimeOffHandler struct {
	DB      *gorm.DB
	Service *services.StaffService
}

// ListTimeOff returns requests newest first. Non-managers only see their own.
func (h *TimeOffHandler) ListTimeOff(c *gin.Context) {
	query := h.DB.Preload("Staff.User").Order("created_at DESC")

	if status := c.Query("status"); status != "" {
		if !models.TimeOffStatus(status).IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time-off status"})
			return
		}
		query = query.Where("status = ?", status)
	}

	if isManager(c) {
		if staffID := c.Query("staff_id"); staffID != "" {
			id, err := uuid.Parse(staffID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid staff ID"})
				return
			}
			query = query.Where("staff_id = ?", id)
		}
	} else {
		staffID, ok := currentStaffID(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Staff access required"})
			return
		}
		query = query.Where("staff_id = ?", staffID)
	}

	var requests []models.TimeOffRequest
	if err := query.Find(&requests).Error; err != nil {
		utils.LogError(err, "Failed to fetch time-off requests")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch time-off requests"})
		return
	}

	c.JSON(http.StatusOK, requests)
}

// CreateTimeOff files a PENDING request. Staff file for themselves; managers
// may file on behalf of anyone by passing staff_id.
func (h *TimeOffHandler) CreateTimeOff(c *gin.Context) {
	var req struct {
		StaffID   string `json:"staff_id" binding:"omitempty,uuid"`
		StartDate string `json:"start_date" binding:"required"`
		EndDate   string `json:"end_date" binding:"required"`
		Type      string `json:"type" binding:"required"`
		Reason    string `json:"reason" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	leaveType := models.TimeOffType(req.Type)
	if !leaveType.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be one of: VACATION, SICK_LEAVE, PERSONAL_DAY, BEREAVEMENT, OTHER"})
		return
	}
	start, err := utils.ParseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date. Use YYYY-MM-DD"})
		return
	}
	end, err := utils.ParseDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_date. Use YYYY-MM-DD"})
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must not be before start_date"})
		return
	}

	ownStaffID, isStaff := currentStaffID(c)
	var staffID uuid.UUID
	switch {
	case req.StaffID != "" && isManager(c):
		staffID = uuid.MustParse(req.StaffID)
	case isStaff:
		staffID = ownStaffID
	case req.StaffID != "":
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only request time off for yourself"})
		return
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "staff_id is required"})
		return
	}

	var staff models.Staff
	if err := h.DB.Where("id = ?", staffID).First(&staff).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Staff member not found"})
		return
	}

	request := models.TimeOffRequest{
		StaffID:   staffID,
		StartDate: start,
		EndDate:   end,
		Reason:    req.Reason,
		Type:      leaveType,
		Status:    models.TimeOffPending,
	}
	if err := h.DB.Create(&request).Error; err != nil {
		utils.LogError(err, "Failed to create time-off request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create time-off request"})
		return
	}

	c.JSON(http.StatusCreated, request)
}

func (h *TimeOffHandler) ApproveTimeOff(c *gin.Context) {
	h.decide(c, models.TimeOffApproved)
}

func (h *TimeOffHandler) RejectTimeOff(c *gin.Context) {
	h.decide(c, models.TimeOffRejected)
}

func (h *TimeOffHandler) decide(c *gin.Context, decision models.TimeOffStatus) {
	id, ok := parseIDParam(c, "id", "time-off request")
	if !ok {
		return
	}

	var req struct {
		Notes *string `json:"notes"`
	}
	// Body is optional. An empty body, chunked or not, decodes to io.EOF.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	deciderID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	request, err := h.Service.DecideTimeOff(c.Request.Context(), id, decision, deciderID, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTimeOffNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Time-off request not found"})
		case errors.Is(err, services.ErrTimeOffNotPending):
			c.JSON(http.StatusConflict, gin.H{"error": "Only pending requests can be approved or rejected"})
		default:
			utils.LogError(err, "Failed to decide time-off request")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update time-off request"})
		}
		return
	}

	if request.Staff != nil {
		utils.SendTimeOffDecision(
			request.Staff.User.Email,
			request.Staff.User.Name,
			string(request.Status),
			request.StartDate.Format(utils.DateLayout),
			request.EndDate.Format(utils.DateLayout),
			request.Notes,
		)
	}

	c.JSON(http.StatusOK, request)
}
