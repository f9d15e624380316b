package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/thenithin342/Attendance-ios/internal/attendance"
	"github.com/thenithin342/Attendance-ios/internal/middleware"
	"github.com/thenithin342/Attendance-ios/internal/models"
	"github.com/thenithin342/Attendance-ios/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttendanceHandler serves marking, history and the faculty attendance
// views.
type AttendanceHandler struct {
	DB        *gorm.DB
	Svc       *attendance.Service
	Loc       *time.Location
	SyncLimit int
	Log       *zap.Logger
}

func NewAttendanceHandler(db *gorm.DB, svc *attendance.Service, loc *time.Location, syncLimit int, log *zap.Logger) *AttendanceHandler {
	if loc == nil {
		loc = time.UTC
	}
	if syncLimit <= 0 {
		syncLimit = 50
	}
	return &AttendanceHandler{DB: db, Svc: svc, Loc: loc, SyncLimit: syncLimit, Log: log}
}

type markReq struct {
	HallID             string   `json:"hall_id" binding:"required"`
	WindowID           string   `json:"attendance_window_id" binding:"required"`
	VerificationMethod string   `json:"verification_method"`
	BeaconMAC          string   `json:"beacon_mac"`
	BeaconRSSI         *int     `json:"beacon_rssi" binding:"omitempty,min=-127,max=20"`
	FaceConfidence     *float64 `json:"face_confidence"`
}

func (r markReq) toService(clientRef string) attendance.MarkRequest {
	return attendance.MarkRequest{
		HallID:         r.HallID,
		WindowID:       r.WindowID,
		Method:         r.VerificationMethod,
		BeaconMAC:      r.BeaconMAC,
		BeaconRSSI:     r.BeaconRSSI,
		FaceConfidence: r.FaceConfidence,
		ClientRef:      clientRef,
	}
}

// ---------- student ----------

// Mark records the caller present in an open window.
func (h *AttendanceHandler) Mark(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not authenticated")
		return
	}

	var req markReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request: "+err.Error())
		return
	}

	rec, err := h.Svc.Mark(c.Request.Context(), user, req.toService(""), time.Now())
	if err != nil {
		writeMarkError(c, h.Log, err)
		return
	}

	util.Success(c, util.Response{
		"message": "Attendance marked successfully",
		"record":  rec,
	})
}

// StudentWindows lists the windows of the caller's batch that are open now.
func (h *AttendanceHandler) StudentWindows(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not authenticated")
		return
	}
	if user.Batch() == "" {
		util.Success(c, util.Response{"windows": []models.AttendanceWindow{}})
		return
	}

	now := time.Now().UTC()
	var windows []models.AttendanceWindow
	if err := h.DB.Preload("Hall").
		Where("batch_id = ? AND is_active = ? AND start_time <= ? AND end_time >= ?", user.Batch(), true, now, now).
		Order("start_time ASC").
		Find(&windows).Error; err != nil {
		h.serverError(c, "list student windows", err)
		return
	}
	util.Success(c, util.Response{"windows": windows})
}

type beaconResp struct {
	HallID      string `json:"hall_id"`
	Name        string `json:"name"`
	MACAddress  string `json:"mac_address"`
	BeaconMajor *int   `json:"beacon_major"`
	BeaconMinor *int   `json:"beacon_minor"`
}

// Beacons returns the hall beacon registry the app scans for.
func (h *AttendanceHandler) Beacons(c *gin.Context) {
	var halls []models.Hall
	if err := h.DB.Order("code ASC").Find(&halls).Error; err != nil {
		h.serverError(c, "list beacons", err)
		return
	}
	items := make([]beaconResp, 0, len(halls))
	for _, hl := range halls {
		items = append(items, beaconResp{
			HallID:      hl.ID,
			Name:        hl.Name,
			MACAddress:  hl.MACAddress,
			BeaconMajor: hl.BeaconMajor,
			BeaconMinor: hl.BeaconMinor,
		})
	}
	util.Success(c, util.Response{"beacons": items})
}

// History returns the caller's records, newest first.
func (h *AttendanceHandler) History(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not authenticated")
		return
	}

	var records []models.AttendanceRecord
	if err := h.DB.Where("student_id = ?", user.ID).
		Order("marked_at DESC").
		Find(&records).Error; err != nil {
		h.serverError(c, "list history", err)
		return
	}
	util.Success(c, util.Response{"records": records, "total": len(records)})
}

// ---------- offline sync ----------

type syncEntryReq struct {
	ClientRef  string    `json:"client_ref" binding:"required,max=128"`
	CapturedAt time.Time `json:"captured_at"`
	markReq
}

type syncReq struct {
	Records []syncEntryReq `json:"records" binding:"required,dive"`
}

// Sync replays marks queued while the app was offline.
func (h *AttendanceHandler) Sync(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not authenticated")
		return
	}

	var req syncReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request: "+err.Error())
		return
	}
	if len(req.Records) > h.SyncLimit {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Too many records in one sync request")
		return
	}

	entries := make([]attendance.SyncEntry, 0, len(req.Records))
	for _, r := range req.Records {
		entries = append(entries, attendance.SyncEntry{
			MarkRequest: r.toService(r.ClientRef),
			CapturedAt:  r.CapturedAt,
		})
	}

	results, err := h.Svc.Sync(c.Request.Context(), user, entries, time.Now())
	if err != nil {
		writeMarkError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"results": results})
}

// ---------- faculty ----------

// Today lists the records marked during the current local day, optionally
// filtered by batch_id and hall_id.
func (h *AttendanceHandler) Today(c *gin.Context) {
	start, end := dayBounds(time.Now(), h.Loc)

	q := h.DB.Where("marked_at >= ? AND marked_at < ?", start, end)
	if batchID := strings.TrimSpace(c.Query("batch_id")); batchID != "" {
		q = q.Where("batch_id = ?", batchID)
	}
	if hallID := strings.TrimSpace(c.Query("hall_id")); hallID != "" {
		q = q.Where("hall_id = ?", hallID)
	}

	var records []models.AttendanceRecord
	if err := q.Order("marked_at DESC").Find(&records).Error; err != nil {
		h.serverError(c, "list today", err)
		return
	}
	util.Success(c, util.Response{
		"date":    start.In(h.Loc).Format("2006-01-02"),
		"records": records,
		"total":   len(records),
	})
}

type manualReq struct {
	StudentID string `json:"student_id" binding:"required"`
	WindowID  string `json:"attendance_window_id" binding:"required"`
}

// MarkManual lets faculty record a student present without evidence.
func (h *AttendanceHandler) MarkManual(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not authenticated")
		return
	}

	var req manualReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request: "+err.Error())
		return
	}

	rec, err := h.Svc.MarkManual(c.Request.Context(), req.StudentID, req.WindowID, time.Now())
	if err != nil {
		writeMarkError(c, h.Log, err)
		return
	}

	h.Log.Info("manual attendance", zap.String("record_id", rec.ID), zap.String("faculty_id", user.ID))
	util.Success(c, util.Response{
		"message": "Attendance marked successfully",
		"record":  rec,
	})
}

// dayBounds returns the UTC interval of the local day containing t.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	lt := t.In(loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

func (h *AttendanceHandler) serverError(c *gin.Context, op string, err error) {
	h.Log.Error(op, zap.Error(err))
	util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Internal server error")
}
