package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/thenithin342/Attendance-ios/internal/config"
	"github.com/thenithin342/Attendance-ios/internal/middleware"
	"github.com/thenithin342/Attendance-ios/internal/models"
	"github.com/thenithin342/Attendance-ios/internal/session"
	"github.com/thenithin342/Attendance-ios/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler serves register, login, logout and me.
type AuthHandler struct {
	DB       *gorm.DB
	Sessions *session.Store
	JWT      config.JWTConfig
	Security config.SecurityConfig
	Log      *zap.Logger
}

func NewAuthHandler(db *gorm.DB, sessions *session.Store, jwtCfg config.JWTConfig, sec config.SecurityConfig, log *zap.Logger) *AuthHandler {
	if sec.BcryptCost == 0 {
		sec.BcryptCost = bcrypt.DefaultCost
	}
	if sec.MaxFailedLogins <= 0 {
		sec.MaxFailedLogins = 5
	}
	if sec.LockoutMinutes <= 0 {
		sec.LockoutMinutes = 10
	}
	return &AuthHandler{DB: db, Sessions: sessions, JWT: jwtCfg, Security: sec, Log: log}
}

// ---------- register ----------

type registerReq struct {
	Email      string  `json:"email" binding:"required"`
	Password   string  `json:"password" binding:"required"`
	FullName   string  `json:"full_name" binding:"required,max=128"`
	Role       string  `json:"role" binding:"required,oneof=student faculty"`
	Batch      *string `json:"batch"`
	Department *string `json:"department" binding:"omitempty,max=128"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request: "+err.Error())
		return
	}

	email := util.NormalizeEmail(req.Email)
	if err := util.ValidateEmail(email, h.Security.EmailDomain); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, domainMessage(err, h.Security.EmailDomain))
		return
	}
	if err := util.ValidatePassword(req.Password, h.Security.MinPasswordLength); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "full_name is required")
		return
	}

	user := models.User{
		ID:       uuid.NewString(),
		Email:    email,
		Role:     req.Role,
		FullName: fullName,
		IsActive: true,
	}

	switch req.Role {
	case models.RoleStudent:
		batchID := ""
		if req.Batch != nil {
			batchID = strings.TrimSpace(*req.Batch)
		}
		if batchID == "" {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Students must belong to a batch")
			return
		}
		var count int64
		if err := h.DB.Model(&models.Batch{}).Where("id = ?", batchID).Count(&count).Error; err != nil {
			h.serverError(c, "count batches", err)
			return
		}
		if count == 0 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Unknown batch")
			return
		}
		user.BatchID = &batchID
	case models.RoleFaculty:
		if req.Department != nil {
			dept := strings.TrimSpace(*req.Department)
			user.Department = &dept
		}
	}

	var count int64
	if err := h.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		h.serverError(c, "count users", err)
		return
	}
	if count > 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.Security.BcryptCost)
	if err != nil {
		h.serverError(c, "hash password", err)
		return
	}
	user.PasswordHash = string(hash)

	if err := h.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Email already registered")
			return
		}
		h.serverError(c, "create user", err)
		return
	}

	h.Log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", user.Role))
	h.issueToken(c, &user)
}

func domainMessage(err error, domain string) string {
	if domain != "" && strings.HasPrefix(err.Error(), "only ") {
		return "Only " + domain + " email addresses are allowed"
	}
	return "Invalid email address"
}

// ---------- login ----------

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request: "+err.Error())
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", util.NormalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Incorrect email or password")
		} else {
			h.serverError(c, "load user", err)
		}
		return
	}

	now := time.Now()

	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Account locked, try again later")
		return
	}
	if !user.IsActive {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Account disabled")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		// lock after too many consecutive failures
		user.FailedLoginAttempts++
		if user.FailedLoginAttempts >= h.Security.MaxFailedLogins {
			lockUntil := now.UTC().Add(time.Duration(h.Security.LockoutMinutes) * time.Minute)
			user.LockedUntil = &lockUntil
			user.FailedLoginAttempts = 0
			h.Log.Warn("account locked", zap.String("user_id", user.ID))
		}
		if err := h.DB.Save(&user).Error; err != nil {
			h.Log.Warn("save failed login", zap.Error(err))
		}
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Incorrect email or password")
		return
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginIP = c.ClientIP()
	nowUTC := now.UTC()
	user.LastLoginAt = &nowUTC
	if err := h.DB.Save(&user).Error; err != nil {
		h.serverError(c, "save login", err)
		return
	}

	h.issueToken(c, &user)
}

// issueToken opens a session and replies with the access token.
func (h *AuthHandler) issueToken(c *gin.Context, user *models.User) {
	now := time.Now()
	sess, err := h.Sessions.Create(c.Request.Context(), user.ID, now)
	if err != nil {
		h.serverError(c, "create session", err)
		return
	}

	token, err := util.GenerateToken(util.TokenParams{
		Secret:    h.JWT.Secret,
		Issuer:    h.JWT.Issuer,
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		SessionID: sess.ID,
		TTL:       h.Sessions.TTL,
		Now:       now,
	})
	if err != nil {
		h.serverError(c, "sign token", err)
		return
	}

	util.Success(c, util.Response{
		"access_token": token,
		"token_type":   "bearer",
		"expires_at":   sess.ExpiresAt,
		"user":         userResp(user),
	})
}

// ---------- logout ----------

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Sessions.Revoke(c.Request.Context(), middleware.SessionID(c)); err != nil {
		h.serverError(c, "revoke session", err)
		return
	}
	util.Success(c, util.Response{"message": "Logged out"})
}

func (h *AuthHandler) serverError(c *gin.Context, op string, err error) {
	h.Log.Error(op, zap.Error(err))
	util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Internal server error")
}
