// Package attendance decides whether a student may be marked present and
// stores the record. Online marks, offline sync replays and manual marks by
// faculty all go through Service.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thenithin342/Attendance-ios/internal/config"
	"github.com/thenithin342/Attendance-ios/internal/models"
	"github.com/thenithin342/Attendance-ios/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Publisher receives every stored record.
type Publisher interface {
	Publish(rec models.AttendanceRecord)
}

// Thresholds configure the verification checks.
type Thresholds struct {
	MinFaceConfidence  float64
	BeaconTxPower      float64
	PathLossExponent   float64
	MaxBeaconDistanceM float64 // 0 disables the distance check
	MaxClockSkew       time.Duration
}

// ThresholdsFromConfig maps the attendance config section.
func ThresholdsFromConfig(c config.AttendanceConfig) Thresholds {
	return Thresholds{
		MinFaceConfidence:  c.MinFaceConfidence,
		BeaconTxPower:      c.BeaconTxPower,
		PathLossExponent:   c.PathLossExponent,
		MaxBeaconDistanceM: c.MaxBeaconDistanceM,
		MaxClockSkew:       time.Duration(c.MaxClockSkewSeconds) * time.Second,
	}
}

type Service struct {
	db  *gorm.DB
	th  Thresholds
	pub Publisher
	log *zap.Logger
}

func NewService(db *gorm.DB, th Thresholds, pub Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, th: th, pub: pub, log: log}
}

// MarkRequest is the evidence a student submits for one window.
type MarkRequest struct {
	HallID         string
	WindowID       string
	Method         string
	BeaconMAC      string
	BeaconRSSI     *int
	FaceConfidence *float64
	ClientRef      string
}

// Mark records the student present in the window if the window is open at
// `at` and the verification evidence passes.
func (s *Service) Mark(ctx context.Context, student *models.User, req MarkRequest, at time.Time) (*models.AttendanceRecord, error) {
	return s.mark(ctx, student, req, at, models.SourceOnline)
}

func (s *Service) mark(ctx context.Context, student *models.User, req MarkRequest, at time.Time, source string) (*models.AttendanceRecord, error) {
	if student == nil || !student.IsStudent() {
		return nil, ErrNotStudent
	}
	if student.Batch() == "" {
		return nil, ErrNoBatch
	}
	if req.Method == "" {
		req.Method = models.MethodFaceRecognition
	}
	if req.Method != models.MethodFaceRecognition && req.Method != models.MethodBeacon {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method)
	}

	w, err := s.openWindow(ctx, req.WindowID, at)
	if err != nil {
		return nil, err
	}
	if w.BatchID != student.Batch() {
		return nil, ErrBatchMismatch
	}
	if req.HallID != w.HallID {
		return nil, ErrHallMismatch
	}

	rec := &models.AttendanceRecord{
		ID:                 uuid.NewString(),
		StudentID:          student.ID,
		HallID:             w.HallID,
		BatchID:            w.BatchID,
		AttendanceWindowID: w.ID,
		MarkedAt:           at.UTC(),
		VerificationMethod: req.Method,
		BeaconRSSI:         req.BeaconRSSI,
		FaceConfidence:     req.FaceConfidence,
		ClientRef:          req.ClientRef,
		Source:             source,
	}
	if err := s.verify(req, w.Hall, rec); err != nil {
		return nil, err
	}
	if err := s.store(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// MarkManual records a student present on a faculty member's word. Window
// and duplicate rules still apply; verification evidence does not.
func (s *Service) MarkManual(ctx context.Context, studentID, windowID string, at time.Time) (*models.AttendanceRecord, error) {
	var student models.User
	err := s.db.WithContext(ctx).First(&student, "id = ?", studentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if !student.IsStudent() {
		return nil, ErrNotStudent
	}

	w, err := s.openWindow(ctx, windowID, at)
	if err != nil {
		return nil, err
	}
	if w.BatchID != student.Batch() {
		return nil, ErrBatchMismatch
	}

	rec := &models.AttendanceRecord{
		ID:                 uuid.NewString(),
		StudentID:          student.ID,
		HallID:             w.HallID,
		BatchID:            w.BatchID,
		AttendanceWindowID: w.ID,
		MarkedAt:           at.UTC(),
		VerificationMethod: models.MethodManual,
		Source:             models.SourceManual,
	}
	if err := s.store(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) openWindow(ctx context.Context, windowID string, at time.Time) (*models.AttendanceWindow, error) {
	var w models.AttendanceWindow
	err := s.db.WithContext(ctx).Preload("Hall").First(&w, "id = ?", windowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWindowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load window: %w", err)
	}
	if !w.OpenAt(at) {
		return nil, ErrWindowNotActive
	}
	return &w, nil
}

func (s *Service) verify(req MarkRequest, hall *models.Hall, rec *models.AttendanceRecord) error {
	switch req.Method {
	case models.MethodFaceRecognition:
		if req.FaceConfidence == nil {
			return fmt.Errorf("%w: face_confidence is required", ErrVerificationFailed)
		}
		c := *req.FaceConfidence
		if c < 0 || c > 1 || c < s.th.MinFaceConfidence {
			return fmt.Errorf("%w: confidence %.2f below %.2f", ErrVerificationFailed, c, s.th.MinFaceConfidence)
		}
		if req.BeaconRSSI == nil {
			return nil
		}
	case models.MethodBeacon:
		if req.BeaconRSSI == nil {
			return ErrBeaconRequired
		}
	}

	d, err := s.checkBeacon(hall, req.BeaconMAC, *req.BeaconRSSI)
	if err != nil {
		return err
	}
	rec.EstimatedDistanceM = &d
	return nil
}

func (s *Service) checkBeacon(hall *models.Hall, mac string, rssi int) (float64, error) {
	if mac != "" {
		norm, err := util.NormalizeMAC(mac)
		if err != nil || hall == nil || norm != hall.MACAddress {
			return 0, ErrBeaconMismatch
		}
	}
	d := EstimateDistance(rssi, s.th.BeaconTxPower, s.th.PathLossExponent)
	if s.th.MaxBeaconDistanceM > 0 && d > s.th.MaxBeaconDistanceM {
		return 0, fmt.Errorf("%w: estimated %.1fm, limit %.1fm", ErrBeaconOutOfRange, d, s.th.MaxBeaconDistanceM)
	}
	return d, nil
}

// store inserts rec unless the student already has a record for the
// window. The unique index catches the race between two concurrent marks.
func (s *Service) store(ctx context.Context, rec *models.AttendanceRecord) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.AttendanceRecord{}).
		Where("student_id = ? AND attendance_window_id = ?", rec.StudentID, rec.AttendanceWindowID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check existing record: %w", err)
	}
	if count > 0 {
		return ErrAlreadyMarked
	}

	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyMarked
		}
		return fmt.Errorf("create record: %w", err)
	}

	s.log.Info("attendance marked",
		zap.String("record_id", rec.ID),
		zap.String("student_id", rec.StudentID),
		zap.String("window_id", rec.AttendanceWindowID),
		zap.String("method", rec.VerificationMethod),
		zap.String("source", rec.Source))

	if s.pub != nil {
		s.pub.Publish(*rec)
	}
	return nil
}

// Sync result statuses.
const (
	SyncCreated   = "created"
	SyncDuplicate = "duplicate"
	SyncRejected  = "rejected"
)

// SyncEntry is one mark queued by an offline client.
type SyncEntry struct {
	MarkRequest
	CapturedAt time.Time
}

type SyncResult struct {
	ClientRef string `json:"client_ref"`
	Status    string `json:"status"`
	RecordID  string `json:"record_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Sync replays queued marks in order. Each entry succeeds or fails on its
// own; an entry already stored reports SyncDuplicate so a client can resend
// the whole queue safely.
func (s *Service) Sync(ctx context.Context, student *models.User, entries []SyncEntry, now time.Time) ([]SyncResult, error) {
	if student == nil || !student.IsStudent() {
		return nil, ErrNotStudent
	}

	results := make([]SyncResult, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := SyncResult{ClientRef: e.ClientRef}

		at := e.CapturedAt
		if at.IsZero() {
			at = now
		}
		if at.After(now.Add(s.th.MaxClockSkew)) {
			res.Status = SyncRejected
			res.Error = ErrCapturedInFuture.Error()
			results = append(results, res)
			continue
		}

		rec, err := s.mark(ctx, student, e.MarkRequest, at, models.SourceSync)
		switch {
		case err == nil:
			res.Status = SyncCreated
			res.RecordID = rec.ID
		case errors.Is(err, ErrAlreadyMarked):
			res.Status = SyncDuplicate
			res.RecordID = s.existingRecordID(ctx, student.ID, e.WindowID)
		default:
			res.Status = SyncRejected
			res.Error = err.Error()
		}
		results = append(results, res)
	}

	s.log.Info("offline sync processed",
		zap.String("student_id", student.ID),
		zap.Int("entries", len(entries)))
	return results, nil
}

func (s *Service) existingRecordID(ctx context.Context, studentID, windowID string) string {
	var rec models.AttendanceRecord
	if err := s.db.WithContext(ctx).Select("id").
		First(&rec, "student_id = ? AND attendance_window_id = ?", studentID, windowID).Error; err != nil {
		return ""
	}
	return rec.ID
}
