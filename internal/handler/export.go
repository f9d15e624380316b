package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/thenithin342/Attendance-ios/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExportHandler writes a day's attendance as CSV or XLSX.
type ExportHandler struct {
	DB  *gorm.DB
	Loc *time.Location
	Log *zap.Logger
}

func NewExportHandler(db *gorm.DB, loc *time.Location, log *zap.Logger) *ExportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ExportHandler{DB: db, Loc: loc, Log: log}
}

// exportRow is one attendance record joined with its student, batch and
// hall.
type exportRow struct {
	RecordID           string
	StudentEmail       string
	StudentName        string
	BatchCode          string
	HallCode           string
	WindowID           string
	VerificationMethod string
	Source             string
	FaceConfidence     *float64
	BeaconRSSI         *int
	MarkedAt           time.Time
}

var exportHeaders = []string{
	"Record ID", "Student Email", "Student Name", "Batch", "Hall",
	"Window ID", "Method", "Source", "Face Confidence", "Beacon RSSI", "Marked At",
}

func (r exportRow) cells(loc *time.Location) []string {
	conf := ""
	if r.FaceConfidence != nil {
		conf = strconv.FormatFloat(*r.FaceConfidence, 'f', 2, 64)
	}
	rssi := ""
	if r.BeaconRSSI != nil {
		rssi = strconv.Itoa(*r.BeaconRSSI)
	}
	return []string{
		r.RecordID, r.StudentEmail, r.StudentName, r.BatchCode, r.HallCode,
		r.WindowID, r.VerificationMethod, r.Source, conf, rssi,
		r.MarkedAt.In(loc).Format("2006-01-02 15:04:05"),
	}
}

// loadRows reads ?date= (default today) and returns that day's rows.
func (h *ExportHandler) loadRows(c *gin.Context) (string, []exportRow, bool) {
	day := time.Now()
	if dateStr := c.Query("date"); dateStr != "" {
		if err := util.ValidateDate(dateStr); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "date must be YYYY-MM-DD")
			return "", nil, false
		}
		day, _ = time.ParseInLocation("2006-01-02", dateStr, h.Loc)
	}
	start, end := dayBounds(day, h.Loc)

	var rows []exportRow
	err := h.DB.Table("attendance_records AS r").
		Select(`r.id AS record_id, u.email AS student_email, u.full_name AS student_name,
			b.code AS batch_code, hl.code AS hall_code, r.attendance_window_id AS window_id,
			r.verification_method, r.source, r.face_confidence, r.beacon_rssi, r.marked_at`).
		Joins("LEFT JOIN users u ON u.id = r.student_id").
		Joins("LEFT JOIN batches b ON b.id = r.batch_id").
		Joins("LEFT JOIN halls hl ON hl.id = r.hall_id").
		Where("r.marked_at >= ? AND r.marked_at < ?", start, end).
		Order("r.marked_at ASC").
		Scan(&rows).Error
	if err != nil {
		h.Log.Error("load export rows", zap.Error(err))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Query failed")
		return "", nil, false
	}
	return start.In(h.Loc).Format("20060102"), rows, true
}

func (h *ExportHandler) ExportCSV(c *gin.Context) {
	stamp, rows, ok := h.loadRows(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"attendance_%s.csv\"", stamp))

	// UTF-8 BOM so spreadsheet apps pick the right encoding
	_, _ = c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	_ = writer.Write(exportHeaders)
	for _, r := range rows {
		_ = writer.Write(r.cells(h.Loc))
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.Log.Warn("write csv export", zap.Error(err))
	}
}

func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	stamp, rows, ok := h.loadRows(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Attendance"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to create sheet")
		return
	}

	for i, title := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, title)
	}
	for idx, r := range rows {
		for col, v := range r.cells(h.Loc) {
			cell, _ := excelize.CoordinatesToCellName(col+1, idx+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "C", 28)
	_ = f.SetColWidth(sheet, "D", "I", 14)
	_ = f.SetColWidth(sheet, "F", "F", 38)
	_ = f.SetColWidth(sheet, "K", "K", 20)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"attendance_%s.xlsx\"", stamp))

	if err := f.Write(c.Writer); err != nil {
		h.Log.Error("write xlsx export", zap.Error(err))
	}
}
