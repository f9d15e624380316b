package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/thenithin342/Attendance-ios/internal/models"
	"github.com/thenithin342/Attendance-ios/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxAuditBody = 2000

// AuditMiddleware stores one AuditLog row per mutating request of a
// signed-in user. Path and action are encrypted when encryptKey is set.
func AuditMiddleware(db *gorm.DB, encryptKey string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		// read only as much as can be logged; the handler still sees the
		// whole body
		var bodyBytes []byte
		if c.Request.Body != nil {
			body := c.Request.Body
			bodyBytes, _ = io.ReadAll(io.LimitReader(body, maxAuditBody))
			c.Request.Body = readCloser{io.MultiReader(bytes.NewReader(bodyBytes), body), body}
		}

		c.Next()

		user, ok := CurrentUser(c)
		if !ok {
			return
		}

		path := c.Request.URL.Path
		action := c.Request.Method + " " + path
		if len(bodyBytes) > 0 && len(bodyBytes) < maxAuditBody && !isPasswordPath(path) {
			action += " " + string(bodyBytes)
		}

		encPath, err := util.EncryptField(encryptKey, path)
		if err != nil {
			log.Warn("encrypt audit path", zap.Error(err))
			return
		}
		encAction, err := util.EncryptField(encryptKey, action)
		if err != nil {
			log.Warn("encrypt audit action", zap.Error(err))
			return
		}

		userID := user.ID
		entry := models.AuditLog{
			UserID:    &userID,
			PathEnc:   encPath,
			Method:    c.Request.Method,
			ActionEnc: encAction,
			Status:    c.Writer.Status(),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if err := db.Create(&entry).Error; err != nil {
			log.Warn("write audit log", zap.Error(err))
		}
	}
}

// request bodies on these paths carry passwords and are never logged
func isPasswordPath(path string) bool {
	return path == "/api/profile/password" || path == "/api/auth/login" || path == "/api/auth/register"
}

type readCloser struct {
	io.Reader
	io.Closer
}
