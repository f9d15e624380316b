package models

import "time"

const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
)

// User represents a student or a faculty member.
type User struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	Email        string    `gorm:"size:128;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:16;index;not null" json:"role"`
	FullName     string    `gorm:"size:128;not null" json:"full_name"`
	BatchID      *string   `gorm:"size:64;index" json:"batch"` // students only
	Department   *string   `gorm:"size:128" json:"department"` // faculty only
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`

	FailedLoginAttempts int        `gorm:"default:0" json:"-"` // consecutive failures
	LockedUntil         *time.Time `gorm:"index" json:"-"`
	LastLoginAt         *time.Time `json:"-"`
	LastLoginIP         string     `gorm:"size:64" json:"-"`
}

func (u *User) IsStudent() bool { return u.Role == RoleStudent }

func (u *User) IsFaculty() bool { return u.Role == RoleFaculty }

// Batch returns the batch id or "" for users without one.
func (u *User) Batch() string {
	if u.BatchID == nil {
		return ""
	}
	return *u.BatchID
}
