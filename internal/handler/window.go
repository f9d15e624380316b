package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/thenithin342/Attendance-ios/internal/middleware"
	"github.com/thenithin342/Attendance-ios/internal/models"
	"github.com/thenithin342/Attendance-ios/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WindowHandler manages attendance windows for faculty.
type WindowHandler struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewWindowHandler(db *gorm.DB, log *zap.Logger) *WindowHandler {
	return &WindowHandler{DB: db, Log: log}
}

type createWindowReq struct {
	HallID    string    `json:"hall_id" binding:"required"`
	BatchID   string    `json:"batch_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

func (h *WindowHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not authenticated")
		return
	}

	var req createWindowReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request: "+err.Error())
		return
	}
	if err := util.ValidateWindow(req.StartTime, req.EndTime); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return
	}

	var hall models.Hall
	if err := h.DB.First(&hall, "id = ?", req.HallID).Error; err != nil {
		h.lookupError(c, "Hall not found", err)
		return
	}
	var batch models.Batch
	if err := h.DB.First(&batch, "id = ?", req.BatchID).Error; err != nil {
		h.lookupError(c, "Batch not found", err)
		return
	}

	w := models.AttendanceWindow{
		ID:        uuid.NewString(),
		HallID:    hall.ID,
		BatchID:   batch.ID,
		StartTime: req.StartTime.UTC(),
		EndTime:   req.EndTime.UTC(),
		IsActive:  true,
		CreatedBy: user.ID,
	}
	if err := h.DB.Create(&w).Error; err != nil {
		h.Log.Error("create window", zap.Error(err))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Internal server error")
		return
	}
	w.Hall = &hall

	h.Log.Info("attendance window created",
		zap.String("window_id", w.ID),
		zap.String("hall_id", w.HallID),
		zap.String("batch_id", w.BatchID),
		zap.String("created_by", user.ID))
	util.Success(c, util.Response{"window": w})
}

// List returns every window, newest first; ?active=true keeps only the
// windows open right now.
func (h *WindowHandler) List(c *gin.Context) {
	q := h.DB.Preload("Hall").Order("start_time DESC")

	if s := c.Query("active"); s != "" {
		active, err := strconv.ParseBool(s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "active must be true or false")
			return
		}
		if active {
			now := time.Now().UTC()
			q = q.Where("is_active = ? AND start_time <= ? AND end_time >= ?", true, now, now)
		}
	}
	if batchID := c.Query("batch_id"); batchID != "" {
		q = q.Where("batch_id = ?", batchID)
	}

	var windows []models.AttendanceWindow
	if err := q.Find(&windows).Error; err != nil {
		h.Log.Error("list windows", zap.Error(err))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Internal server error")
		return
	}
	util.Success(c, util.Response{"windows": windows})
}

// Close stops a window from accepting further marks.
func (h *WindowHandler) Close(c *gin.Context) {
	id := c.Param("id")

	res := h.DB.Model(&models.AttendanceWindow{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		h.Log.Error("close window", zap.Error(res.Error))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Internal server error")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "Attendance window not found")
		return
	}

	h.Log.Info("attendance window closed", zap.String("window_id", id))
	util.Success(c, util.Response{"message": "Attendance window closed", "id": id})
}

func (h *WindowHandler) lookupError(c *gin.Context, notFound string, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, notFound)
		return
	}
	h.Log.Error("load window reference", zap.Error(err))
	util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Internal server error")
}
