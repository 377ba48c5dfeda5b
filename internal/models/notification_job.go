package models

import "time"

// NotificationJob is an outbox row for the external message dispatcher
// (WhatsApp/SMS/email senders). The engine writes one row per offer it
// issues plus operational events; the dispatcher acknowledges rows once
// delivered. The engine never formats or sends the message itself.
type NotificationJob struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Kind         string `gorm:"size:32;not null;index"` // "offer", "lead-unassigned"
	LeadID       string `gorm:"size:32;index"`
	OfferID      string `gorm:"size:32"`
	ArtisanID    string `gorm:"size:32"`
	Recipient    string `gorm:"size:64"`
	AcceptURL    string `gorm:"size:512"`
	Payload      string `gorm:"type:text"`
	Acknowledged bool   `gorm:"default:false;index"`
	CreatedAt    time.Time
}
