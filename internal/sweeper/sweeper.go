// Package sweeper lazily expires overdue offers. It is the safety net for
// the case where no cascade trigger fired in time; it never advances a
// cascade itself.
package sweeper

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/models"
)

// SweepExpired expires every pending offer whose deadline has passed and
// returns how many rows it touched. One bulk conditional update: it only
// ever moves pending to expired, never touches an accepted row, and
// re-running it is a no-op.
func SweepExpired(db *gorm.DB) (int64, error) {
	result := db.Model(&models.Assignment{}).
		Where("status = ? AND expires_at <= ?", models.OfferPending, time.Now()).
		Update("status", models.OfferExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("sweeper: sweep expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// OverdueLeadIDs returns the leads that still look open but have no live
// pending offer left, so an external trigger can call the cascade for them
// after a sweep.
func OverdueLeadIDs(db *gorm.DB) ([]string, error) {
	liveSub := db.Model(&models.Assignment{}).
		Select("lead_id").
		Where("status = ? AND expires_at > ?", models.OfferPending, time.Now())

	var leadIDs []string
	if err := db.Model(&models.Lead{}).
		Where("status = ?", models.LeadAssigned).
		Where("id NOT IN (?)", liveSub).
		Pluck("id", &leadIDs).Error; err != nil {
		return nil, fmt.Errorf("sweeper: overdue leads: %w", err)
	}
	return leadIDs, nil
}

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextInterval parses a 5-field cron expression and returns the duration
// until the next fire time. Returns 0 on parse error.
func NextInterval(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// Schedule registers SweepExpired on a cron runner. The caller owns the
// runner's lifecycle. Sweep failures are surfaced through onErr (may be
// nil) rather than stopping the schedule.
func Schedule(c *cron.Cron, db *gorm.DB, expr string, onSwept func(int64), onErr func(error)) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("sweeper: parse cron %q: %w", expr, err)
	}
	_, err := c.AddFunc(expr, func() {
		n, err := SweepExpired(db)
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		if onSwept != nil {
			onSwept(n)
		}
	})
	if err != nil {
		return fmt.Errorf("sweeper: schedule %q: %w", expr, err)
	}
	return nil
}
