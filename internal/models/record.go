package models

import "time"

const (
	MethodFaceRecognition = "face_recognition"
	MethodBeacon          = "beacon"
	MethodManual          = "manual"
)

const (
	SourceOnline = "online"
	SourceSync   = "sync"
	SourceManual = "manual"
)

// AttendanceRecord is one student marked present in one window.
// (student_id, attendance_window_id) is unique.
type AttendanceRecord struct {
	ID                 string    `gorm:"primaryKey;size:64" json:"id"`
	StudentID          string    `gorm:"size:64;not null;uniqueIndex:idx_student_window" json:"student_id"`
	HallID             string    `gorm:"size:64;index;not null" json:"hall_id"`
	BatchID            string    `gorm:"size:64;index;not null" json:"batch_id"`
	AttendanceWindowID string    `gorm:"size:64;not null;uniqueIndex:idx_student_window" json:"attendance_window_id"`
	MarkedAt           time.Time `gorm:"index;not null" json:"marked_at"`
	VerificationMethod string    `gorm:"size:32;not null" json:"verification_method"`
	BeaconRSSI         *int      `json:"beacon_rssi"`
	FaceConfidence     *float64  `json:"face_confidence"`
	EstimatedDistanceM *float64  `json:"estimated_distance_m,omitempty"`
	ClientRef          string    `gorm:"size:64" json:"client_ref,omitempty"`
	Source             string    `gorm:"size:16;not null" json:"source"`
}
