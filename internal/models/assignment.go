package models

import "time"

// Assignment (offer) statuses. pending is the only non-terminal state.
const (
	OfferPending  = "pending"
	OfferAccepted = "accepted"
	OfferExpired  = "expired"
	OfferRejected = "rejected"
)

// Assignment is one (lead, artisan, round) offer with a deadline. Rows are
// never deleted; status only moves pending -> accepted/expired/rejected via
// conditional updates. At most one accepted row may exist per lead.
type Assignment struct {
	ID          string `gorm:"primaryKey;size:32"`
	LeadID      string `gorm:"size:32;not null;index;uniqueIndex:idx_lead_artisan"`
	ArtisanID   string `gorm:"size:32;not null;index;uniqueIndex:idx_lead_artisan"`
	Round       int    `gorm:"not null"`
	Status      string `gorm:"size:16;default:pending;index"`
	NotifiedAt  time.Time
	ExpiresAt   time.Time `gorm:"index"`
	RespondedAt *time.Time
	CreatedAt   time.Time

	Lead    Lead    `gorm:"foreignKey:LeadID"`
	Artisan Artisan `gorm:"foreignKey:ArtisanID"`
}

// OfferTerminal reports whether an offer status admits no further transition.
func OfferTerminal(status string) bool {
	return status == OfferAccepted || status == OfferExpired || status == OfferRejected
}
