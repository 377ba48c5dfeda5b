// Package selector picks the best eligible artisans for a lead. Selection is
// a pure read; writing offers is the cascade controller's job.
package selector

import (
	"fmt"
	"math"
	"sort"

	"gorm.io/gorm"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/ledger"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/models"
)

// Candidate is a selected artisan plus the ranking signals that chose it,
// enough for the caller to build a notification.
type Candidate struct {
	Artisan        models.Artisan
	Responsiveness float64  // historical accept rate, 0.5 when no history
	DistanceKm     *float64 // nil when either side lacks coordinates
	Score          float64  // combined wave-mode score
}

// Select returns up to limit eligible candidates for the lead, best first.
// An empty result is not an error: it is the expected "no candidate
// available" terminal condition the cascade controller handles.
//
// Eligibility: active, not suspended, balance strictly positive, category
// match when the lead has one, and not excluded. The exclusion set is the
// union of the caller's list and every artisan already in the ledger for
// this lead, any status.
//
// Base ranking is balance descending (artisans who invest more go first),
// then account age ascending on ties. In wave mode (limit > 1) candidates
// are re-ranked by a score blending historical responsiveness and
// proximity to the lead.
func Select(db *gorm.DB, lead *models.Lead, exclude []string, limit int) ([]Candidate, error) {
	if lead == nil {
		return nil, fmt.Errorf("selector: lead is required")
	}
	if limit < 1 {
		return nil, fmt.Errorf("selector: limit must be >= 1")
	}

	offered, err := ledger.OfferedArtisanIDs(db, lead.ID)
	if err != nil {
		return nil, err
	}
	excluded := append(append([]string{}, exclude...), offered...)

	query := db.Model(&models.Artisan{}).
		Where("active = ? AND suspended = ? AND balance > 0", true, false)
	if lead.Category != "" {
		query = query.Where("category = ?", lead.Category)
	}
	if len(excluded) > 0 {
		query = query.Where("id NOT IN ?", excluded)
	}

	var artisans []models.Artisan
	if err := query.Order("balance DESC, created_at ASC").
		Limit(limit).Find(&artisans).Error; err != nil {
		return nil, fmt.Errorf("selector: find candidates for %s: %w", lead.ID, err)
	}

	candidates := make([]Candidate, 0, len(artisans))
	for _, a := range artisans {
		c := Candidate{Artisan: a, Responsiveness: 0.5}
		if limit > 1 {
			rate, err := acceptRate(db, a.ID)
			if err != nil {
				return nil, err
			}
			c.Responsiveness = rate
			c.DistanceKm = distanceKm(lead, &a)
		}
		c.Score = waveScore(c)
		candidates = append(candidates, c)
	}

	if limit > 1 {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score > candidates[j].Score
		})
	}
	return candidates, nil
}

// acceptRate returns the artisan's historical accept rate over resolved
// offers. No history yields a neutral 0.5.
func acceptRate(db *gorm.DB, artisanID string) (float64, error) {
	var total, accepted int64
	if err := db.Model(&models.Assignment{}).
		Where("artisan_id = ? AND status <> ?", artisanID, models.OfferPending).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("selector: offer history for %s: %w", artisanID, err)
	}
	if total == 0 {
		return 0.5, nil
	}
	if err := db.Model(&models.Assignment{}).
		Where("artisan_id = ? AND status = ?", artisanID, models.OfferAccepted).
		Count(&accepted).Error; err != nil {
		return 0, fmt.Errorf("selector: accept history for %s: %w", artisanID, err)
	}
	return float64(accepted) / float64(total), nil
}

// waveScore blends responsiveness and proximity. Missing coordinates score
// as a neutral mid-distance so geo-less artisans are not starved.
func waveScore(c Candidate) float64 {
	proximity := 0.5
	if c.DistanceKm != nil {
		proximity = 1.0 / (1.0 + *c.DistanceKm/10.0)
	}
	return 0.6*c.Responsiveness + 0.4*proximity
}

// distanceKm computes the haversine distance between lead and artisan, or
// nil when either side lacks coordinates.
func distanceKm(lead *models.Lead, a *models.Artisan) *float64 {
	if lead.Latitude == nil || lead.Longitude == nil || a.Latitude == nil || a.Longitude == nil {
		return nil
	}
	const earthRadiusKm = 6371.0
	lat1 := *lead.Latitude * math.Pi / 180
	lat2 := *a.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (*a.Longitude - *lead.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	d := 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
	return &d
}
