package cascade

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/ids"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/models"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/notify"
)

// NewLeadOpts holds the intake form fields.
type NewLeadOpts struct {
	Category    string
	Description string
	ClientName  string
	ClientPhone string
	City        string
	Latitude    *float64
	Longitude   *float64
}

// Intake persists a new pending lead and immediately runs round 1 of its
// cascade.
func Intake(db *gorm.DB, alerter *notify.Alerter, opts NewLeadOpts, pol Policy, wave bool) (*models.Lead, *Result, error) {
	if opts.ClientPhone == "" {
		return nil, nil, fmt.Errorf("cascade: client phone is required")
	}

	id, err := ids.New("led")
	if err != nil {
		return nil, nil, err
	}
	lead := models.Lead{
		ID:          id,
		Category:    opts.Category,
		Description: opts.Description,
		ClientName:  opts.ClientName,
		ClientPhone: opts.ClientPhone,
		City:        opts.City,
		Latitude:    opts.Latitude,
		Longitude:   opts.Longitude,
		Status:      models.LeadPending,
	}
	if err := db.Create(&lead).Error; err != nil {
		return nil, nil, fmt.Errorf("cascade: create lead: %w", err)
	}

	res, err := Advance(db, alerter, lead.ID, pol, AdvanceOpts{Wave: wave})
	if err != nil {
		return &lead, nil, err
	}
	lead.Status = res.LeadStatus
	lead.CascadeCount = res.Round
	return &lead, res, nil
}
