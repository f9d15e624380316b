package models

import "time"

type StatusCheck struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	ClientName string    `gorm:"size:128;not null" json:"client_name"`
	Timestamp  time.Time `gorm:"index" json:"timestamp"`
}
