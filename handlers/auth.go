package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"safemeds-backend/models"
	"safemeds-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB       *gorm.DB
	TokenTTL time.Duration
}

func userResponse(user models.User, staff *models.Staff) gin.H {
	resp := gin.H{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  user.Role,
	}
	if staff != nil {
		resp["staff"] = gin.H{
			"id":         staff.ID,
			"position":   staff.Position,
			"department": staff.Department,
			"is_active":  staff.IsActive,
		}
	}
	return resp
}

// findStaff returns the staff record linked to userID, or nil for non-staff accounts.
func (h *AuthHandler) findStaff(userID uuid.UUID) (*models.Staff, error) {
	var staff models.Staff
	err := h.DB.Where("user_id = ?", userID).First(&staff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	staff, err := h.findStaff(user.ID)
	if err != nil {
		utils.LogError(err, "Failed to load staff record on login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load account"})
		return
	}
	if staff != nil && !staff.IsActive && !models.IsManager(user.Role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Your staff account has been deactivated"})
		return
	}

	var staffID *uuid.UUID
	if staff != nil {
		staffID = &staff.ID
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role, staffID, h.TokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userResponse(user, staff),
	})
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user models.User
	if err := h.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	staff, err := h.findStaff(user.ID)
	if err != nil {
		utils.LogError(err, "Failed to load staff record for profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, userResponse(user, staff))
}
