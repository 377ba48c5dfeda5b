// Package notify records outbound work for the external message dispatcher
// and raises best-effort operator alerts. The engine never formats or sends
// client-facing messages itself; it appends outbox rows that the dispatcher
// (WhatsApp/SMS/email) consumes and acknowledges.
package notify

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/models"
)

// Outbox row kinds.
const (
	KindOffer          = "offer"
	KindLeadUnassigned = "lead-unassigned"
)

// offerPayload is the structured payload the dispatcher renders into an
// outbound message.
type offerPayload struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	City        string `json:"city"`
	Round       int    `json:"round"`
	ExpiresAt   string `json:"expires_at"`
}

// QueueOffer appends an outbox row telling the dispatcher to deliver an
// accept link to the artisan.
func QueueOffer(db *gorm.DB, lead *models.Lead, offer *models.Assignment, artisan *models.Artisan, acceptURL string) (*models.NotificationJob, error) {
	if lead == nil || offer == nil || artisan == nil {
		return nil, fmt.Errorf("notify: lead, offer and artisan are required")
	}

	payload, err := json.Marshal(offerPayload{
		Category:    lead.Category,
		Description: lead.Description,
		City:        lead.City,
		Round:       offer.Round,
		ExpiresAt:   offer.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return nil, fmt.Errorf("notify: marshal offer payload: %w", err)
	}

	job := models.NotificationJob{
		Kind:      KindOffer,
		LeadID:    lead.ID,
		OfferID:   offer.ID,
		ArtisanID: artisan.ID,
		Recipient: artisan.Phone,
		AcceptURL: acceptURL,
		Payload:   string(payload),
	}
	if err := db.Create(&job).Error; err != nil {
		return nil, fmt.Errorf("notify: queue offer %s: %w", offer.ID, err)
	}
	return &job, nil
}

// QueueLeadUnassigned appends an outbox row so the client can be told no
// artisan was found.
func QueueLeadUnassigned(db *gorm.DB, lead *models.Lead) (*models.NotificationJob, error) {
	if lead == nil {
		return nil, fmt.Errorf("notify: lead is required")
	}
	job := models.NotificationJob{
		Kind:      KindLeadUnassigned,
		LeadID:    lead.ID,
		Recipient: lead.ClientPhone,
		Payload:   "{}",
	}
	if err := db.Create(&job).Error; err != nil {
		return nil, fmt.Errorf("notify: queue unassigned %s: %w", lead.ID, err)
	}
	return &job, nil
}

// Pending returns unacknowledged outbox rows, oldest first.
func Pending(db *gorm.DB, limit int) ([]models.NotificationJob, error) {
	q := db.Where("acknowledged = ?", false).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var jobs []models.NotificationJob
	if err := q.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("notify: pending: %w", err)
	}
	return jobs, nil
}

// Acknowledge marks an outbox row as delivered.
func Acknowledge(db *gorm.DB, jobID uint) error {
	result := db.Model(&models.NotificationJob{}).
		Where("id = ?", jobID).
		Update("acknowledged", true)
	if result.Error != nil {
		return fmt.Errorf("notify: acknowledge %d: %w", jobID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notify: job not found: %d", jobID)
	}
	return nil
}
