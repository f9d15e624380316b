package models

import "time"

// AuditLog records mutating requests made by signed-in users.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    *string   `gorm:"size:64;index"`
	PathEnc   string    `gorm:"size:1024"` // AES+base64 when a key is configured
	Method    string    `gorm:"size:16"`
	ActionEnc string    `gorm:"size:4096"`
	Status    int       `gorm:"index"`
	IP        string    `gorm:"size:64"`
	UserAgent string    `gorm:"size:255"`
	CreatedAt time.Time `gorm:"index"`
}
