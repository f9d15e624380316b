package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/thenithin342/Attendance-ios/internal/models"
	"github.com/thenithin342/Attendance-ios/internal/session"
	"github.com/thenithin342/Attendance-ios/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ctxUserKey    = "currentUser"
	ctxSessionKey = "sessionID"
)

// TokenCookie is the optional cookie carrying the access token.
const TokenCookie = "ats_token"

// AuthMiddleware verifies the bearer token and its server-side session and
// stores the current user in the context.
func AuthMiddleware(jwtSecret string, db *gorm.DB, sessions *session.Store, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := tokenFromRequest(c)
		if tokenStr == "" {
			util.Abort(c, http.StatusUnauthorized, util.CodeAuth, "Not authenticated")
			return
		}

		claims, err := util.ParseToken(jwtSecret, tokenStr)
		if err != nil {
			util.Abort(c, http.StatusUnauthorized, util.CodeAuth, "Invalid authentication credentials")
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, "id = ?", claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				util.Abort(c, http.StatusUnauthorized, util.CodeAuth, "User not found")
			} else {
				log.Error("load user", zap.Error(err))
				util.Abort(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to load user")
			}
			return
		}
		if !user.IsActive || !strings.EqualFold(user.Email, claims.Subject) {
			util.Abort(c, http.StatusUnauthorized, util.CodeAuth, "Invalid authentication credentials")
			return
		}

		if err := sessions.Validate(c.Request.Context(), claims.ID, user.ID, time.Now()); err != nil {
			if errors.Is(err, session.ErrInvalid) {
				util.Abort(c, http.StatusUnauthorized, util.CodeAuth, "Session expired, please sign in again")
			} else {
				log.Error("validate session", zap.Error(err))
				util.Abort(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to validate session")
			}
			return
		}

		c.Set(ctxUserKey, &user)
		c.Set(ctxSessionKey, claims.ID)
		c.Next()
	}
}

// tokenFromRequest looks at the Authorization header, then ?token= (for
// websocket and download links), then the token cookie.
func tokenFromRequest(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if t := c.Query("token"); t != "" {
		return t
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

// RequireRole rejects users whose role differs. Must run after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	msg := "Faculty access required"
	if role == models.RoleStudent {
		msg = "Student access required"
	}
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			util.Abort(c, http.StatusUnauthorized, util.CodeAuth, "Not authenticated")
			return
		}
		if user.Role != role {
			util.Abort(c, http.StatusForbidden, util.CodeForbidden, msg)
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// SessionID returns the session id of the current token.
func SessionID(c *gin.Context) string {
	return c.GetString(ctxSessionKey)
}
