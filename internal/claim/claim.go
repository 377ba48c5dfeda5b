// Package claim implements the acceptance transaction: the exactly-once
// state transition fired when an artisan claims a lead. The four effects of
// a successful accept land in a single database transaction, and every
// write is a conditional update keyed on the expected prior state. When two
// artisans race on sibling offers, the loser's writes match zero rows and
// its transaction aborts with a specific failure code; nothing is ever
// partially applied.
package claim

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/ledger"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/models"
)

// Failure codes for acceptance attempts. Race losses (AlreadyProcessed,
// Expired, LeadAlreadyTaken) are expected under concurrency and mean
// "someone else got there first"; policy failures (NotVerified,
// InsufficientBalance) are user-correctable.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyProcessed    = "ALREADY_PROCESSED"
	CodeExpired             = "EXPIRED"
	CodeLeadAlreadyTaken    = "LEAD_ALREADY_TAKEN"
	CodeNotVerified         = "NOT_VERIFIED"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
)

// Error is a rejected acceptance attempt with a machine code and a
// human-readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("claim: %s: %s", e.Code, e.Message)
}

// AsError extracts a claim *Error from err, if it is one.
func AsError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Result is a successful acceptance.
type Result struct {
	LeadID          string
	OfferID         string
	NewBalance      int
	SiblingsExpired int64
}

// Accept atomically claims the offer for the artisan: flips the offer to
// accepted, moves the lead to its terminal accepted status, debits the
// artisan's balance by leadCost, and expires every pending sibling offer.
// All four effects land together or not at all.
func Accept(db *gorm.DB, offerID, artisanID string, leadCost int) (*Result, error) {
	if offerID == "" {
		return nil, fmt.Errorf("claim: offerID is required")
	}
	if artisanID == "" {
		return nil, fmt.Errorf("claim: artisanID is required")
	}
	if leadCost < 1 {
		return nil, fmt.Errorf("claim: leadCost must be >= 1")
	}

	var offer models.Assignment
	if err := db.Where("id = ?", offerID).First(&offer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &Error{Code: CodeNotFound, Message: "offer not found"}
		}
		return nil, fmt.Errorf("claim: load offer %s: %w", offerID, err)
	}
	if offer.ArtisanID != artisanID {
		// Do not reveal someone else's offer.
		return nil, &Error{Code: CodeNotFound, Message: "offer not found"}
	}
	if offer.Status != models.OfferPending {
		return nil, &Error{Code: CodeAlreadyProcessed, Message: "offer already processed"}
	}

	now := time.Now()
	if now.After(offer.ExpiresAt) {
		// Lazy expiry: stamp the row while we are here. This must commit on
		// its own, ahead of the claim transaction, so the EXPIRED failure
		// does not roll it back. Conditional, so a concurrent sweep is
		// harmless.
		if err := ledger.ExpireOffer(db, offer.ID); err != nil {
			return nil, err
		}
		return nil, &Error{Code: CodeExpired, Message: "offer deadline has passed"}
	}

	var res Result
	err := db.Transaction(func(tx *gorm.DB) error {
		var lead models.Lead
		if err := tx.Where("id = ?", offer.LeadID).First(&lead).Error; err != nil {
			return fmt.Errorf("claim: load lead %s: %w", offer.LeadID, err)
		}
		if !models.LeadClaimable(lead.Status) {
			return &Error{Code: CodeLeadAlreadyTaken, Message: "lead already taken"}
		}

		var artisan models.Artisan
		if err := tx.Where("id = ?", artisanID).First(&artisan).Error; err != nil {
			return fmt.Errorf("claim: load artisan %s: %w", artisanID, err)
		}
		if !artisan.Verified {
			return &Error{Code: CodeNotVerified, Message: "complete verification to accept leads"}
		}
		if artisan.Balance < leadCost {
			return &Error{Code: CodeInsufficientBalance, Message: "top up your balance to accept leads"}
		}

		// Effect 1: offer pending -> accepted. Zero rows means another call
		// beat us between the read above and this write.
		result := tx.Model(&models.Assignment{}).
			Where("id = ? AND status = ?", offer.ID, models.OfferPending).
			Updates(map[string]interface{}{
				"status":       models.OfferAccepted,
				"responded_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("claim: accept offer %s: %w", offer.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return &Error{Code: CodeAlreadyProcessed, Message: "offer already processed"}
		}

		// Effect 2: lead -> accepted, only from a claimable status. Zero rows
		// means a sibling offer won the lead first.
		result = tx.Model(&models.Lead{}).
			Where("id = ? AND status IN ?", lead.ID,
				[]string{models.LeadPending, models.LeadAssigned}).
			Update("status", models.LeadAccepted)
		if result.Error != nil {
			return fmt.Errorf("claim: take lead %s: %w", lead.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return &Error{Code: CodeLeadAlreadyTaken, Message: "lead already taken"}
		}

		// Effect 3: debit, guarded against going negative. One arithmetic
		// statement, never read-compute-write.
		result = tx.Model(&models.Artisan{}).
			Where("id = ? AND balance >= ?", artisanID, leadCost).
			Update("balance", gorm.Expr("balance - ?", leadCost))
		if result.Error != nil {
			return fmt.Errorf("claim: debit artisan %s: %w", artisanID, result.Error)
		}
		if result.RowsAffected == 0 {
			return &Error{Code: CodeInsufficientBalance, Message: "top up your balance to accept leads"}
		}

		// Effect 4: expire pending siblings so no second accept can land.
		expired, err := ledger.ExpireSiblings(tx, lead.ID, offer.ID)
		if err != nil {
			return err
		}

		var updated models.Artisan
		if err := tx.Where("id = ?", artisanID).First(&updated).Error; err != nil {
			return fmt.Errorf("claim: reload artisan %s: %w", artisanID, err)
		}

		res = Result{
			LeadID:          lead.ID,
			OfferID:         offer.ID,
			NewBalance:      updated.Balance,
			SiblingsExpired: expired,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}
