package handler

import (
	"net/http"
	"strings"

	"github.com/thenithin342/Attendance-ios/internal/config"
	"github.com/thenithin342/Attendance-ios/internal/middleware"
	"github.com/thenithin342/Attendance-ios/internal/session"
	"github.com/thenithin342/Attendance-ios/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UpdateProfileReq struct {
	FullName   string  `json:"full_name" binding:"required,max=128"`
	Department *string `json:"department" binding:"omitempty,max=128"`
}

type ChangePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateProfile changes the caller's name and, for faculty, department.
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not authenticated")
			return
		}

		var req UpdateProfileReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request: "+err.Error())
			return
		}

		name := strings.TrimSpace(req.FullName)
		if name == "" {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "full_name is required")
			return
		}

		updates := map[string]interface{}{"full_name": name}
		if req.Department != nil && user.IsFaculty() {
			dept := strings.TrimSpace(*req.Department)
			updates["department"] = dept
			user.Department = &dept
		}

		if err := db.Model(user).Updates(updates).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Update failed")
			return
		}
		user.FullName = name

		util.Success(c, util.Response{"user": userResp(user)})
	}
}

// ChangePassword verifies the old password, stores the new hash and signs
// out every other session of the user.
func ChangePassword(db *gorm.DB, sessions *session.Store, sec config.SecurityConfig) gin.HandlerFunc {
	cost := sec.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not authenticated")
			return
		}

		var req ChangePasswordReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request: "+err.Error())
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Old password is incorrect")
			return
		}
		if err := util.ValidatePassword(req.NewPassword, sec.MinPasswordLength); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), cost)
		if err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to hash password")
			return
		}

		if err := db.Model(user).Update("password_hash", string(hash)).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to update password")
			return
		}

		revoked, err := sessions.RevokeOthers(c.Request.Context(), user.ID, middleware.SessionID(c))
		if err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to revoke sessions")
			return
		}

		util.Success(c, util.Response{
			"message":          "Password changed",
			"revoked_sessions": revoked,
		})
	}
}
