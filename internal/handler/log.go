package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/thenithin342/Attendance-ios/internal/models"
	"github.com/thenithin342/Attendance-ios/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LogHandler serves the audit log to faculty.
type LogHandler struct {
	DB         *gorm.DB
	EncryptKey string
	PageSize   int
	Log        *zap.Logger
}

func NewLogHandler(db *gorm.DB, encryptKey string, pageSize int, log *zap.Logger) *LogHandler {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &LogHandler{DB: db, EncryptKey: encryptKey, PageSize: pageSize, Log: log}
}

type logResp struct {
	ID        uint      `json:"id"`
	UserID    *string   `json:"user_id"`
	Action    string    `json:"action"`
	Path      string    `json:"path"`
	Method    string    `json:"method"`
	Status    int       `json:"status"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// ListLogs pages through audit entries, newest first. Optional filters:
// user_id, start and end (YYYY-MM-DD, inclusive).
func (h *LogHandler) ListLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(h.PageSize)))
	if size <= 0 || size > 100 {
		size = h.PageSize
	}
	offset := (page - 1) * size

	base := h.DB.Model(&models.AuditLog{})
	if uid := strings.TrimSpace(c.Query("user_id")); uid != "" {
		base = base.Where("user_id = ?", uid)
	}
	if s := c.Query("start"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "start must be YYYY-MM-DD")
			return
		}
		base = base.Where("created_at >= ?", t)
	}
	if s := c.Query("end"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "end must be YYYY-MM-DD")
			return
		}
		base = base.Where("created_at < ?", t.Add(24*time.Hour))
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		h.Log.Error("count logs", zap.Error(err))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Query failed")
		return
	}

	var logs []models.AuditLog
	if err := base.Order("created_at DESC, id DESC").
		Limit(size).
		Offset(offset).
		Find(&logs).Error; err != nil {
		h.Log.Error("list logs", zap.Error(err))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Query failed")
		return
	}

	items := make([]logResp, 0, len(logs))
	for _, l := range logs {
		items = append(items, logResp{
			ID:        l.ID,
			UserID:    l.UserID,
			Action:    util.DecryptField(h.EncryptKey, l.ActionEnc),
			Path:      util.DecryptField(h.EncryptKey, l.PathEnc),
			Method:    l.Method,
			Status:    l.Status,
			IP:        l.IP,
			UserAgent: l.UserAgent,
			CreatedAt: l.CreatedAt,
		})
	}

	util.Success(c, util.Response{
		"items": items,
		"total": total,
		"page":  page,
		"size":  size,
	})
}
