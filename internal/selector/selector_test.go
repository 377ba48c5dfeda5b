package selector

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/ledger"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Lead{}, &models.Artisan{}, &models.Assignment{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func addArtisan(t *testing.T, db *gorm.DB, id string, balance int, age time.Duration, mutate ...func(*models.Artisan)) {
	t.Helper()
	a := models.Artisan{
		ID:        id,
		Name:      "Artisan " + id,
		Category:  "plumbing",
		Active:    true,
		Verified:  true,
		Balance:   balance,
		CreatedAt: time.Now().Add(-age),
	}
	for _, m := range mutate {
		m(&a)
	}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("create artisan %s: %v", id, err)
	}
}

func plumbingLead(id string) *models.Lead {
	return &models.Lead{ID: id, Category: "plumbing", Status: models.LeadPending}
}

func TestSelect_RanksByBalanceDesc(t *testing.T) {
	db := openTestDB(t)
	// Balances [10,3,7,0,5]; the 0-balance artisan is ineligible.
	addArtisan(t, db, "art-1", 10, time.Hour)
	addArtisan(t, db, "art-2", 3, time.Hour)
	addArtisan(t, db, "art-3", 7, time.Hour)
	addArtisan(t, db, "art-4", 0, time.Hour)
	addArtisan(t, db, "art-5", 5, time.Hour)

	got, err := Select(db, plumbingLead("led-1"), nil, 1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Artisan.ID != "art-1" {
		t.Errorf("selected %s, want art-1 (balance 10)", got[0].Artisan.ID)
	}
}

func TestSelect_TieBreakByAccountAge(t *testing.T) {
	db := openTestDB(t)
	addArtisan(t, db, "art-new", 5, time.Hour)
	addArtisan(t, db, "art-old", 5, 100*24*time.Hour)

	got, err := Select(db, plumbingLead("led-1"), nil, 1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got[0].Artisan.ID != "art-old" {
		t.Errorf("selected %s, want art-old (longtime member wins ties)", got[0].Artisan.ID)
	}
}

func TestSelect_SkipsAlreadyOffered(t *testing.T) {
	db := openTestDB(t)
	addArtisan(t, db, "art-1", 10, time.Hour)
	addArtisan(t, db, "art-2", 7, time.Hour)

	// art-1 already has an (expired) offer for this lead.
	offer, err := ledger.CreateOffer(db, "led-1", "art-1", 1, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	if err := ledger.ExpireOffer(db, offer.ID); err != nil {
		t.Fatalf("ExpireOffer: %v", err)
	}

	got, err := Select(db, plumbingLead("led-1"), nil, 1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got[0].Artisan.ID != "art-2" {
		t.Errorf("selected %s, want art-2 (art-1 was already offered)", got[0].Artisan.ID)
	}
}

func TestSelect_CallerExclusions(t *testing.T) {
	db := openTestDB(t)
	addArtisan(t, db, "art-1", 10, time.Hour)
	addArtisan(t, db, "art-2", 7, time.Hour)

	got, err := Select(db, plumbingLead("led-1"), []string{"art-1"}, 1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got[0].Artisan.ID != "art-2" {
		t.Errorf("selected %s, want art-2", got[0].Artisan.ID)
	}
}

func TestSelect_EligibilityPredicate(t *testing.T) {
	db := openTestDB(t)
	addArtisan(t, db, "art-inactive", 10, time.Hour, func(a *models.Artisan) { a.Active = false })
	addArtisan(t, db, "art-suspended", 10, time.Hour, func(a *models.Artisan) { a.Suspended = true })
	addArtisan(t, db, "art-broke", 0, time.Hour)
	addArtisan(t, db, "art-electrician", 10, time.Hour, func(a *models.Artisan) { a.Category = "electrical" })

	got, err := Select(db, plumbingLead("led-1"), nil, 1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("selected %s, want no candidate", got[0].Artisan.ID)
	}
}

func TestSelect_NoCategoryFilter(t *testing.T) {
	db := openTestDB(t)
	addArtisan(t, db, "art-electrician", 10, time.Hour, func(a *models.Artisan) { a.Category = "electrical" })

	lead := &models.Lead{ID: "led-1", Status: models.LeadPending} // no category
	got, err := Select(db, lead, nil, 1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 {
		t.Fatal("uncategorized lead should match any active artisan")
	}
}

func TestSelect_EmptyPoolIsNotAnError(t *testing.T) {
	db := openTestDB(t)
	got, err := Select(db, plumbingLead("led-1"), nil, 1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestSelect_WaveMode(t *testing.T) {
	db := openTestDB(t)
	addArtisan(t, db, "art-1", 10, time.Hour)
	addArtisan(t, db, "art-2", 9, time.Hour)
	addArtisan(t, db, "art-3", 8, time.Hour)
	addArtisan(t, db, "art-4", 7, time.Hour)

	got, err := Select(db, plumbingLead("led-1"), nil, 3)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for _, c := range got {
		if c.Artisan.ID == "art-4" {
			t.Error("art-4 selected despite lowest balance outside wave size")
		}
	}
}

func TestSelect_WaveResponsivenessRanking(t *testing.T) {
	db := openTestDB(t)
	addArtisan(t, db, "art-ghost", 10, time.Hour)
	addArtisan(t, db, "art-responsive", 9, time.Hour)

	// art-ghost ignored two past leads; art-responsive accepted one.
	for i, pair := range []struct{ lead, artisan, status string }{
		{"led-old1", "art-ghost", models.OfferExpired},
		{"led-old2", "art-ghost", models.OfferExpired},
		{"led-old3", "art-responsive", models.OfferAccepted},
	} {
		offer, err := ledger.CreateOffer(db, pair.lead, pair.artisan, i+1, time.Now().Add(-time.Hour))
		if err != nil {
			t.Fatalf("CreateOffer: %v", err)
		}
		db.Model(&models.Assignment{}).Where("id = ?", offer.ID).Update("status", pair.status)
	}

	got, err := Select(db, plumbingLead("led-1"), nil, 2)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Artisan.ID != "art-responsive" {
		t.Errorf("wave leader = %s, want art-responsive", got[0].Artisan.ID)
	}
	if got[1].Responsiveness != 0.0 {
		t.Errorf("ghost responsiveness = %v, want 0", got[1].Responsiveness)
	}
}

func TestSelect_WaveProximityRanking(t *testing.T) {
	db := openTestDB(t)
	near, far := 48.86, 45.76 // Paris vs Lyon latitudes
	lon := 2.35
	addArtisan(t, db, "art-far", 10, time.Hour, func(a *models.Artisan) {
		a.Latitude = &far
		a.Longitude = &lon
	})
	addArtisan(t, db, "art-near", 10, time.Hour, func(a *models.Artisan) {
		a.Latitude = &near
		a.Longitude = &lon
	})

	lead := plumbingLead("led-1")
	lead.Latitude = &near
	lead.Longitude = &lon

	got, err := Select(db, lead, nil, 2)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got[0].Artisan.ID != "art-near" {
		t.Errorf("wave leader = %s, want art-near", got[0].Artisan.ID)
	}
	if got[0].DistanceKm == nil || *got[0].DistanceKm > 1 {
		t.Errorf("near distance = %v, want ~0", got[0].DistanceKm)
	}
	if got[1].DistanceKm == nil || *got[1].DistanceKm < 300 {
		t.Errorf("far distance = %v, want > 300km", got[1].DistanceKm)
	}
}

func TestSelect_Validation(t *testing.T) {
	db := openTestDB(t)
	if _, err := Select(db, nil, nil, 1); err == nil {
		t.Error("expected error for nil lead")
	}
	if _, err := Select(db, plumbingLead("led-1"), nil, 0); err == nil {
		t.Error("expected error for limit 0")
	}
}
