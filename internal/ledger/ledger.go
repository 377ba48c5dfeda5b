// Package ledger is the append-mostly record of every (lead, artisan, round)
// offer. It is the single source of truth for who has been asked and with
// what outcome. Status transitions are compare-and-set updates on
// status=pending so the sweeper, the cascade controller, and the acceptance
// transaction can race on the same row without corrupting it.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/ids"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/models"
)

// CreateOffer appends a pending offer for the lead/artisan pair at the given
// cascade round. The unique lead+artisan index rejects a duplicate pair,
// which the selector's exclusion set should already have prevented.
func CreateOffer(db *gorm.DB, leadID, artisanID string, round int, deadline time.Time) (*models.Assignment, error) {
	if leadID == "" {
		return nil, fmt.Errorf("ledger: leadID is required")
	}
	if artisanID == "" {
		return nil, fmt.Errorf("ledger: artisanID is required")
	}
	if round < 1 {
		return nil, fmt.Errorf("ledger: round must be >= 1")
	}

	id, err := ids.New("off")
	if err != nil {
		return nil, err
	}

	offer := models.Assignment{
		ID:         id,
		LeadID:     leadID,
		ArtisanID:  artisanID,
		Round:      round,
		Status:     models.OfferPending,
		NotifiedAt: time.Now(),
		ExpiresAt:  deadline,
	}
	if err := db.Create(&offer).Error; err != nil {
		return nil, fmt.Errorf("ledger: create offer lead=%s artisan=%s: %w", leadID, artisanID, err)
	}
	return &offer, nil
}

// ExpireOffer transitions a pending offer to expired. Already-terminal
// offers are left untouched and no error is returned; the sweeper and the
// cascade controller may both try to expire the same row.
func ExpireOffer(db *gorm.DB, offerID string) error {
	if offerID == "" {
		return fmt.Errorf("ledger: offerID is required")
	}
	result := db.Model(&models.Assignment{}).
		Where("id = ? AND status = ?", offerID, models.OfferPending).
		Update("status", models.OfferExpired)
	if result.Error != nil {
		return fmt.Errorf("ledger: expire offer %s: %w", offerID, result.Error)
	}
	return nil
}

// ExpireSiblings bulk-expires every other pending offer for the lead. Called
// the moment one offer is accepted; it only ever touches pending rows, so an
// accepted sibling can never be clobbered.
func ExpireSiblings(db *gorm.DB, leadID, exceptOfferID string) (int64, error) {
	if leadID == "" {
		return 0, fmt.Errorf("ledger: leadID is required")
	}
	result := db.Model(&models.Assignment{}).
		Where("lead_id = ? AND id <> ? AND status = ?", leadID, exceptOfferID, models.OfferPending).
		Update("status", models.OfferExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("ledger: expire siblings of %s: %w", leadID, result.Error)
	}
	return result.RowsAffected, nil
}

// Get retrieves an offer by ID.
func Get(db *gorm.DB, offerID string) (*models.Assignment, error) {
	var offer models.Assignment
	if err := db.Where("id = ?", offerID).First(&offer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ledger: offer not found: %s", offerID)
		}
		return nil, fmt.Errorf("ledger: get offer %s: %w", offerID, err)
	}
	return &offer, nil
}

// ListOffers returns every offer for a lead in cascade order.
func ListOffers(db *gorm.DB, leadID string) ([]models.Assignment, error) {
	var offers []models.Assignment
	if err := db.Where("lead_id = ?", leadID).
		Order("round ASC, created_at ASC").Find(&offers).Error; err != nil {
		return nil, fmt.Errorf("ledger: list offers for %s: %w", leadID, err)
	}
	return offers, nil
}

// OfferedArtisanIDs returns the IDs of every artisan who has ever received
// an offer for the lead, regardless of status. Feeds the selector's
// exclusion set: once asked, never asked again for the same lead.
func OfferedArtisanIDs(db *gorm.DB, leadID string) ([]string, error) {
	var artisanIDs []string
	if err := db.Model(&models.Assignment{}).
		Where("lead_id = ?", leadID).
		Pluck("artisan_id", &artisanIDs).Error; err != nil {
		return nil, fmt.Errorf("ledger: offered artisans for %s: %w", leadID, err)
	}
	return artisanIDs, nil
}

// LivePendingOffer returns the earliest pending offer for the lead whose
// deadline is still in the future, or nil if none.
func LivePendingOffer(db *gorm.DB, leadID string, now time.Time) (*models.Assignment, error) {
	var offer models.Assignment
	result := db.Where("lead_id = ? AND status = ? AND expires_at > ?",
		leadID, models.OfferPending, now).
		Order("expires_at ASC").Limit(1).Find(&offer)
	if result.Error != nil {
		return nil, fmt.Errorf("ledger: live offer for %s: %w", leadID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &offer, nil
}

// ExpireOverdue expires every pending offer for a single lead whose deadline
// has passed. Used by the cascade controller for lazy expiry before it
// computes the next round.
func ExpireOverdue(db *gorm.DB, leadID string, now time.Time) (int64, error) {
	result := db.Model(&models.Assignment{}).
		Where("lead_id = ? AND status = ? AND expires_at <= ?",
			leadID, models.OfferPending, now).
		Update("status", models.OfferExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("ledger: expire overdue for %s: %w", leadID, result.Error)
	}
	return result.RowsAffected, nil
}
