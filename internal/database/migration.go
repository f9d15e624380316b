package database

import (
	"fmt"

	"github.com/thenithin342/Attendance-ios/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Batch{},
		&models.Hall{},
		&models.User{},
		&models.Session{},
		&models.AttendanceWindow{},
		&models.AttendanceRecord{},
		&models.AuditLog{},
		&models.StatusCheck{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
