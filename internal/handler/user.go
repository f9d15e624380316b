package handler

import (
	"net/http"

	"github.com/thenithin342/Attendance-ios/internal/middleware"
	"github.com/thenithin342/Attendance-ios/internal/models"
	"github.com/thenithin342/Attendance-ios/internal/util"

	"github.com/gin-gonic/gin"
)

func userResp(u *models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"email":      u.Email,
		"role":       u.Role,
		"full_name":  u.FullName,
		"batch":      u.BatchID,
		"department": u.Department,
	}
}

// GetMe returns the current user (requires AuthMiddleware).
func GetMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not authenticated")
		return
	}

	util.Success(c, util.Response{"user": userResp(user)})
}
