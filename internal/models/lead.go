package models

import "time"

// Lead statuses. Transitions only move forward: pending -> assigned/unassigned,
// assigned -> accepted/unassigned. accepted/completed/cancelled/unassigned are
// terminal as far as the cascade is concerned.
const (
	LeadPending    = "pending"
	LeadAssigned   = "assigned"
	LeadAccepted   = "accepted"
	LeadCompleted  = "completed"
	LeadCancelled  = "cancelled"
	LeadUnassigned = "unassigned"
)

// Lead is an inbound service request awaiting artisan assignment.
type Lead struct {
	ID           string `gorm:"primaryKey;size:32"`
	Category     string `gorm:"size:64;index"`
	Description  string `gorm:"type:text"`
	ClientName   string `gorm:"size:128"`
	ClientPhone  string `gorm:"size:32"`
	City         string `gorm:"size:128"`
	Latitude     *float64
	Longitude    *float64
	Status       string `gorm:"size:16;default:pending;index"`
	CascadeCount int    `gorm:"default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Assignments []Assignment `gorm:"foreignKey:LeadID"`
}

// LeadClaimable reports whether a lead can still be taken by an artisan.
func LeadClaimable(status string) bool {
	return status == LeadPending || status == LeadAssigned
}

// LeadTerminal reports whether the cascade is finished for this status.
func LeadTerminal(status string) bool {
	return status == LeadAccepted || status == LeadCompleted ||
		status == LeadCancelled || status == LeadUnassigned
}
