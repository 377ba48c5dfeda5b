// Package cascade orchestrates per-lead escalation: expire what timed out,
// pick the next candidate(s), issue offers with a deadline, and terminate in
// a definitive unassigned state when the pool or the round budget runs out.
package cascade

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/ledger"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/models"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/notify"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/selector"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/token"
)

// Policy holds the escalation knobs. One cap and two explicit windows; there
// is no hidden extended-round special case.
type Policy struct {
	MaxRounds     int
	OfferWindow   time.Duration // single-candidate mode
	WaveWindow    time.Duration // wave mode
	WaveSize      int
	AcceptBaseURL string
	TokenSecret   string
	TokenSkew     time.Duration // token lives this much longer than the offer
}

// Outcome classifies an Advance call. Terminal conditions are first-class
// results, not errors.
type Outcome string

const (
	// OutcomeOffered means new offers were issued this round.
	OutcomeOffered Outcome = "offered"
	// OutcomeExhausted means the round budget is spent; the lead is unassigned.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeNoCandidate means the pool is empty; the lead is unassigned.
	OutcomeNoCandidate Outcome = "no_candidate"
	// OutcomeAlreadyResolved means another actor already settled the lead.
	OutcomeAlreadyResolved Outcome = "already_resolved"
	// OutcomeOfferOutstanding means a live offer is still awaiting its
	// deadline (duplicate timer fire) or a concurrent advance won the race.
	OutcomeOfferOutstanding Outcome = "offer_outstanding"
)

// OfferNotice pairs a created offer with the candidate's profile and the
// accept link, ready for the notification dispatcher.
type OfferNotice struct {
	Offer     models.Assignment
	Artisan   models.Artisan
	AcceptURL string
}

// Result reports what an Advance call did.
type Result struct {
	Outcome    Outcome
	LeadID     string
	LeadStatus string
	Round      int
	Offers     []OfferNotice
}

// AdvanceOpts holds optional parameters for an Advance call.
type AdvanceOpts struct {
	// ExpireOfferID names the offer whose client-visible timer elapsed; it
	// is expired first (safe no-op when the sweeper already did).
	ExpireOfferID string
	// Wave issues the round to up to Policy.WaveSize artisans at once.
	Wave bool
}

// errConcurrentAdvance aborts the transaction when another advance call
// updated the lead between our read and our write.
var errConcurrentAdvance = errors.New("cascade: concurrent advance")

// Advance runs one escalation step for the lead. It is safe to call
// repeatedly and concurrently: duplicate timer fires, sweeper races, and
// already-settled leads all resolve to no-op outcomes.
func Advance(db *gorm.DB, alerter *notify.Alerter, leadID string, pol Policy, opts AdvanceOpts) (*Result, error) {
	if leadID == "" {
		return nil, fmt.Errorf("cascade: leadID is required")
	}
	if err := pol.validate(); err != nil {
		return nil, err
	}

	var res *Result
	err := db.Transaction(func(tx *gorm.DB) error {
		var lead models.Lead
		if err := tx.Where("id = ?", leadID).First(&lead).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("cascade: lead not found: %s", leadID)
			}
			return fmt.Errorf("cascade: load lead %s: %w", leadID, err)
		}

		if models.LeadTerminal(lead.Status) {
			res = &Result{Outcome: OutcomeAlreadyResolved, LeadID: lead.ID, LeadStatus: lead.Status}
			return nil
		}

		now := time.Now()
		if opts.ExpireOfferID != "" {
			if err := ledger.ExpireOffer(tx, opts.ExpireOfferID); err != nil {
				return err
			}
		}
		if _, err := ledger.ExpireOverdue(tx, lead.ID, now); err != nil {
			return err
		}

		// Duplicate timer fire: an offer is still live, nothing to escalate.
		live, err := ledger.LivePendingOffer(tx, lead.ID, now)
		if err != nil {
			return err
		}
		if live != nil {
			res = &Result{Outcome: OutcomeOfferOutstanding, LeadID: lead.ID, LeadStatus: lead.Status, Round: live.Round}
			return nil
		}

		round := lead.CascadeCount + 1
		if round > pol.MaxRounds {
			if err := markUnassigned(tx, &lead); err != nil {
				return err
			}
			res = &Result{Outcome: OutcomeExhausted, LeadID: lead.ID, LeadStatus: models.LeadUnassigned, Round: lead.CascadeCount}
			return nil
		}

		// Selection and offer creation share this transaction so two
		// concurrent advances cannot pick the same artisan twice.
		limit := 1
		window := pol.OfferWindow
		if opts.Wave {
			limit = pol.WaveSize
			window = pol.WaveWindow
		}
		candidates, err := selector.Select(tx, &lead, nil, limit)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			// Empty pool: terminal, and the round is not consumed.
			if err := markUnassigned(tx, &lead); err != nil {
				return err
			}
			res = &Result{Outcome: OutcomeNoCandidate, LeadID: lead.ID, LeadStatus: models.LeadUnassigned, Round: lead.CascadeCount}
			return nil
		}

		// Claim the round before creating offers. Keyed on the previous
		// cascade_count so a concurrent advance matches zero rows and backs off.
		result := tx.Model(&models.Lead{}).
			Where("id = ? AND status IN ? AND cascade_count = ?",
				lead.ID, []string{models.LeadPending, models.LeadAssigned}, lead.CascadeCount).
			Updates(map[string]interface{}{
				"status":        models.LeadAssigned,
				"cascade_count": round,
			})
		if result.Error != nil {
			return fmt.Errorf("cascade: advance lead %s: %w", lead.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return errConcurrentAdvance
		}

		deadline := now.Add(window)
		notices := make([]OfferNotice, 0, len(candidates))
		for _, c := range candidates {
			offer, err := ledger.CreateOffer(tx, lead.ID, c.Artisan.ID, round, deadline)
			if err != nil {
				return err
			}
			signed, err := token.Sign(pol.TokenSecret, offer.ID, c.Artisan.ID, window+pol.TokenSkew)
			if err != nil {
				return err
			}
			acceptURL := token.AcceptURL(pol.AcceptBaseURL, signed)
			if _, err := notify.QueueOffer(tx, &lead, offer, &c.Artisan, acceptURL); err != nil {
				return err
			}
			notices = append(notices, OfferNotice{Offer: *offer, Artisan: c.Artisan, AcceptURL: acceptURL})
		}

		res = &Result{
			Outcome:    OutcomeOffered,
			LeadID:     lead.ID,
			LeadStatus: models.LeadAssigned,
			Round:      round,
			Offers:     notices,
		}
		return nil
	})
	if errors.Is(err, errConcurrentAdvance) {
		return &Result{Outcome: OutcomeOfferOutstanding, LeadID: leadID}, nil
	}
	if err != nil {
		return nil, err
	}

	if res.Outcome == OutcomeExhausted || res.Outcome == OutcomeNoCandidate {
		alerter.Alert(
			fmt.Sprintf("lead %s unassigned", res.LeadID),
			fmt.Sprintf("outcome=%s after %d round(s)", res.Outcome, res.Round),
		)
	}
	return res, nil
}

// markUnassigned moves a still-open lead to its terminal unassigned state and
// queues the client notification. Conditional, so a racing accept wins.
func markUnassigned(tx *gorm.DB, lead *models.Lead) error {
	result := tx.Model(&models.Lead{}).
		Where("id = ? AND status IN ?", lead.ID,
			[]string{models.LeadPending, models.LeadAssigned}).
		Update("status", models.LeadUnassigned)
	if result.Error != nil {
		return fmt.Errorf("cascade: unassign lead %s: %w", lead.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return errConcurrentAdvance
	}
	if _, err := notify.QueueLeadUnassigned(tx, lead); err != nil {
		return err
	}
	return nil
}

func (p Policy) validate() error {
	if p.MaxRounds < 1 {
		return fmt.Errorf("cascade: MaxRounds must be >= 1")
	}
	if p.OfferWindow <= 0 || p.WaveWindow <= 0 {
		return fmt.Errorf("cascade: offer windows must be positive")
	}
	if p.WaveSize < 1 {
		return fmt.Errorf("cascade: WaveSize must be >= 1")
	}
	if p.TokenSecret == "" {
		return fmt.Errorf("cascade: TokenSecret is required")
	}
	if p.AcceptBaseURL == "" {
		return fmt.Errorf("cascade: AcceptBaseURL is required")
	}
	return nil
}
