package models

import "time"

// Hall is a lecture hall with the Bluetooth beacon installed in it.
type Hall struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"size:64;not null" json:"name"`
	Code        string    `gorm:"size:32;uniqueIndex;not null" json:"code"`
	MACAddress  string    `gorm:"column:mac_address;size:17;uniqueIndex;not null" json:"mac_address"`
	BeaconMajor *int      `json:"beacon_major"`
	BeaconMinor *int      `json:"beacon_minor"`
	Capacity    int       `gorm:"not null" json:"capacity"`
	CreatedAt   time.Time `json:"created_at"`
}
