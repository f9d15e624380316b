package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/thenithin342/Attendance-ios/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "password123"

// ErrSeedConflict means a seeded row collides on a unique column (email,
// code or MAC) with a row that has a different id.
var ErrSeedConflict = errors.New("seed data conflicts with existing rows, rerun with --reset")

// SeedSummary lists what Seed wrote, for the CLI to print.
type SeedSummary struct {
	Batches  int
	Halls    int
	Faculty  []string
	Students []string
	Windows  int
	Records  int
}

// Seed loads the sample campus dataset. With reset it clears the domain
// tables first; otherwise rows are upserted by id.
func Seed(db *gorm.DB, reset bool, bcryptCost int, now time.Time) (*SeedSummary, error) {
	now = now.UTC()
	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	pw := string(hash)

	batches := []models.Batch{
		{ID: "batch-a", Name: "Batch A", Code: "BA2025", CreatedAt: now},
		{ID: "batch-b", Name: "Batch B", Code: "BB2025", CreatedAt: now},
		{ID: "batch-c", Name: "Batch C", Code: "BC2025", CreatedAt: now},
	}
	halls := []models.Hall{
		seedHall("hall-101", "Hall 101", "H101", "AA:BB:CC:DD:EE:01", 101, 60, now),
		seedHall("hall-102", "Hall 102", "H102", "AA:BB:CC:DD:EE:02", 102, 80, now),
		seedHall("hall-103", "Hall 103", "H103", "AA:BB:CC:DD:EE:03", 103, 100, now),
	}
	users := []models.User{
		seedFaculty("faculty-1", "dr.sharma@iiitdm.ac.in", "Dr. Rajesh Sharma", "Computer Science", pw, now),
		seedFaculty("faculty-2", "prof.kumar@iiitdm.ac.in", "Prof. Anita Kumar", "Electronics", pw, now),
		seedStudent("student-1", "cs23i1001@iiitdm.ac.in", "Arjun Patel", "batch-a", pw, now),
		seedStudent("student-2", "cs23i1002@iiitdm.ac.in", "Priya Sharma", "batch-a", pw, now),
		seedStudent("student-3", "cs23i1003@iiitdm.ac.in", "Vikram Singh", "batch-b", pw, now),
		seedStudent("student-4", "cs23i1004@iiitdm.ac.in", "Ananya Reddy", "batch-b", pw, now),
	}
	windows := []models.AttendanceWindow{
		{
			ID: "window-1", HallID: "hall-101", BatchID: "batch-a",
			StartTime: now.Add(-time.Hour), EndTime: now.Add(2 * time.Hour),
			IsActive: true, CreatedBy: "faculty-1", CreatedAt: now,
		},
		{
			ID: "window-2", HallID: "hall-102", BatchID: "batch-b",
			StartTime: now.Add(-30 * time.Minute), EndTime: now.Add(time.Hour),
			IsActive: true, CreatedBy: "faculty-2", CreatedAt: now,
		},
	}
	records := []models.AttendanceRecord{
		seedRecord("record-1", "student-1", -42, 0.97, now.Add(-45*time.Minute)),
		seedRecord("record-2", "student-2", -38, 0.95, now.Add(-40*time.Minute)),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if reset {
			// children first so foreign keys hold
			for _, m := range []interface{}{
				&models.AttendanceRecord{}, &models.AttendanceWindow{}, &models.Session{},
				&models.User{}, &models.Hall{}, &models.Batch{},
			} {
				if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
					return fmt.Errorf("clear %T: %w", m, err)
				}
			}
		}

		// upserts resolve conflicts on the primary key only
		upsert := func(name string, rows interface{}) error {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(rows).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("seed %s: %w", name, ErrSeedConflict)
				}
				return fmt.Errorf("seed %s: %w", name, err)
			}
			return nil
		}
		if err := upsert("batches", &batches); err != nil {
			return err
		}
		if err := upsert("halls", &halls); err != nil {
			return err
		}
		if err := upsert("users", &users); err != nil {
			return err
		}
		if err := upsert("windows", &windows); err != nil {
			return err
		}
		return upsert("records", &records)
	})
	if err != nil {
		return nil, err
	}

	sum := &SeedSummary{
		Batches: len(batches),
		Halls:   len(halls),
		Windows: len(windows),
		Records: len(records),
	}
	for _, u := range users {
		if u.IsFaculty() {
			sum.Faculty = append(sum.Faculty, u.Email)
		} else {
			sum.Students = append(sum.Students, u.Email)
		}
	}
	return sum, nil
}

func seedHall(id, name, code, mac string, major, capacity int, now time.Time) models.Hall {
	minor := 1
	return models.Hall{
		ID: id, Name: name, Code: code, MACAddress: mac,
		BeaconMajor: &major, BeaconMinor: &minor,
		Capacity: capacity, CreatedAt: now,
	}
}

func seedFaculty(id, email, name, dept, pw string, now time.Time) models.User {
	return models.User{
		ID: id, Email: email, PasswordHash: pw, Role: models.RoleFaculty,
		FullName: name, Department: &dept, IsActive: true, CreatedAt: now,
	}
}

func seedStudent(id, email, name, batch, pw string, now time.Time) models.User {
	return models.User{
		ID: id, Email: email, PasswordHash: pw, Role: models.RoleStudent,
		FullName: name, BatchID: &batch, IsActive: true, CreatedAt: now,
	}
}

func seedRecord(id, student string, rssi int, confidence float64, at time.Time) models.AttendanceRecord {
	return models.AttendanceRecord{
		ID:                 id,
		StudentID:          student,
		HallID:             "hall-101",
		BatchID:            "batch-a",
		AttendanceWindowID: "window-1",
		MarkedAt:           at,
		VerificationMethod: models.MethodFaceRecognition,
		BeaconRSSI:         &rssi,
		FaceConfidence:     &confidence,
		Source:             models.SourceOnline,
	}
}
