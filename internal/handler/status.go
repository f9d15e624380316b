package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/thenithin342/Attendance-ios/internal/middleware"
	"github.com/thenithin342/Attendance-ios/internal/models"
	"github.com/thenithin342/Attendance-ios/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIName is returned by the API root.
const APIName = "IIITDM AttendanceSync API v2.0"

func Root(c *gin.Context) {
	util.Success(c, util.Response{"message": APIName})
}

// CreateStatus records a status check for the caller.
func CreateStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not authenticated")
			return
		}

		check := models.StatusCheck{
			ID:         uuid.NewString(),
			ClientName: user.Email,
			Timestamp:  time.Now().UTC(),
		}
		if err := db.Create(&check).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to save status")
			return
		}
		util.Success(c, util.Response{"status": check})
	}
}

func ListStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var checks []models.StatusCheck
		if err := db.Order("timestamp DESC").Limit(1000).Find(&checks).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Query failed")
			return
		}
		util.Success(c, util.Response{"items": checks})
	}
}

// Health pings the database.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
