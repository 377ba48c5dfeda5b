package models

import "time"

// Artisan is a service-provider profile eligible to receive leads. Profile
// management lives elsewhere; the cascade engine reads these rows and only
// ever writes the balance, with a conditional arithmetic update.
type Artisan struct {
	ID        string `gorm:"primaryKey;size:32"`
	Name      string `gorm:"size:128;not null"`
	Phone     string `gorm:"size:32"`
	Category  string `gorm:"size:64;index"`
	Active    bool   `gorm:"default:true;index"`
	Suspended bool   `gorm:"default:false"`
	Verified  bool   `gorm:"default:false"`
	Balance   int    `gorm:"default:0"`
	Latitude  *float64
	Longitude *float64
	CreatedAt time.Time
	UpdatedAt time.Time
}
