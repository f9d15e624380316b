package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/thenithin342/Attendance-ios/internal/config"
	"github.com/thenithin342/Attendance-ios/internal/database"
	"github.com/thenithin342/Attendance-ios/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newAuditEngine(t *testing.T) (*gin.Engine, *gorm.DB, *int) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Init(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + t.Name() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.AutoMigrate(db))

	seen := new(int)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ctxUserKey, &models.User{ID: "u1"})
		c.Next()
	}, AuditMiddleware(db, "", zap.NewNop()))
	r.POST("/api/echo", func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		*seen = len(b)
		c.Status(http.StatusNoContent)
	})
	return r, db, seen
}

func TestAudit_SmallBodyLogged(t *testing.T) {
	r, db, seen := newAuditEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/echo", strings.NewReader(`{"name":"H101"}`)))
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, len(`{"name":"H101"}`), *seen)

	var entry models.AuditLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, `POST /api/echo {"name":"H101"}`, entry.ActionEnc)
	assert.Equal(t, http.StatusNoContent, entry.Status)
}

func TestAudit_LargeBodyPassesThroughUnlogged(t *testing.T) {
	r, db, seen := newAuditEngine(t)

	body := strings.Repeat("x", 10*maxAuditBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/echo", strings.NewReader(body)))
	require.Equal(t, http.StatusNoContent, w.Code)

	// the handler still receives every byte
	assert.Equal(t, len(body), *seen)

	var entry models.AuditLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "POST /api/echo", entry.ActionEnc)
}
