package models

import "time"

// AttendanceWindow is the interval during which a batch may mark
// attendance in a hall.
type AttendanceWindow struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	HallID    string    `gorm:"size:64;index;not null" json:"hall_id"`
	BatchID   string    `gorm:"size:64;index;not null" json:"batch_id"`
	StartTime time.Time `gorm:"index;not null" json:"start_time"`
	EndTime   time.Time `gorm:"index;not null" json:"end_time"`
	IsActive  bool      `gorm:"index;not null;default:true" json:"is_active"`
	CreatedBy string    `gorm:"size:64;not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`

	Hall *Hall `gorm:"foreignKey:HallID" json:"hall,omitempty"`
}

// OpenAt reports whether the window accepts marks at t.
func (w *AttendanceWindow) OpenAt(t time.Time) bool {
	return w.IsActive && !t.Before(w.StartTime) && !t.After(w.EndTime)
}
