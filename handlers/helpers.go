package handlers

import (
	"net/http"

	"safemeds-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func parseIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

func currentStaffID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("staff_id")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

func isManager(c *gin.Context) bool {
	return models.IsManager(c.GetString("user_role"))
}
