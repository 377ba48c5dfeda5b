package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/cascade"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/claim"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/ledger"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/models"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/notify"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/sweeper"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/token"
)

// registerRoutes sets up all engine routes on the gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	router.GET("/healthz", handleHealth(opts.DB))

	router.POST("/api/leads", handleIntake(opts))
	router.GET("/api/leads/:id", handleLeadShow(opts.DB))
	router.POST("/api/leads/:id/advance", handleAdvance(opts))

	router.GET("/accept", handleAcceptLink(opts))
	router.POST("/api/offers/:id/accept", handleAcceptDirect(opts))

	router.POST("/api/sweep", handleSweep(opts.DB))

	router.GET("/api/notifications", handleNotificationsPending(opts.DB))
	router.POST("/api/notifications/:id/ack", handleNotificationAck(opts.DB))
}

func handleHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

type intakeRequest struct {
	Category    string   `json:"category"`
	Description string   `json:"description"`
	ClientName  string   `json:"client_name"`
	ClientPhone string   `json:"client_phone" binding:"required"`
	City        string   `json:"city"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Wave        bool     `json:"wave"`
}

func handleIntake(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req intakeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		lead, res, err := cascade.Intake(opts.DB, opts.Alerter, cascade.NewLeadOpts{
			Category:    req.Category,
			Description: req.Description,
			ClientName:  req.ClientName,
			ClientPhone: req.ClientPhone,
			City:        req.City,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
		}, opts.Policy, req.Wave)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"lead_id": lead.ID,
			"result":  advanceJSON(res),
		})
	}
}

type advanceRequest struct {
	ExpireOfferID string `json:"expire_offer_id"`
	Wave          bool   `json:"wave"`
}

func handleAdvance(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req advanceRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		res, err := cascade.Advance(opts.DB, opts.Alerter, c.Param("id"), opts.Policy, cascade.AdvanceOpts{
			ExpireOfferID: req.ExpireOfferID,
			Wave:          req.Wave,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, advanceJSON(res))
	}
}

// advanceJSON shapes a cascade result for clients. Offer rows carry only
// what the orchestrator needs to drive its timers.
func advanceJSON(res *cascade.Result) gin.H {
	offers := make([]gin.H, 0, len(res.Offers))
	for _, n := range res.Offers {
		offers = append(offers, gin.H{
			"offer_id":   n.Offer.ID,
			"artisan_id": n.Artisan.ID,
			"round":      n.Offer.Round,
			"expires_at": n.Offer.ExpiresAt,
		})
	}
	return gin.H{
		"outcome":     string(res.Outcome),
		"lead_id":     res.LeadID,
		"lead_status": res.LeadStatus,
		"round":       res.Round,
		"offers":      offers,
	}
}

func handleLeadShow(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var lead models.Lead
		if err := db.Where("id = ?", c.Param("id")).First(&lead).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
			return
		}
		offers, err := ledger.ListOffers(db, lead.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		offerViews := make([]gin.H, 0, len(offers))
		for _, o := range offers {
			offerViews = append(offerViews, gin.H{
				"offer_id":   o.ID,
				"artisan_id": o.ArtisanID,
				"round":      o.Round,
				"status":     o.Status,
				"expires_at": o.ExpiresAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{
			"lead_id":       lead.ID,
			"category":      lead.Category,
			"status":        lead.Status,
			"cascade_count": lead.CascadeCount,
			"offers":        offerViews,
		})
	}
}

func handleAcceptLink(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("token")
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
			return
		}
		offerID, artisanID, err := token.Parse(opts.Policy.TokenSecret, raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired link"})
			return
		}
		acceptAndRespond(c, opts, offerID, artisanID)
	}
}

type acceptRequest struct {
	ArtisanID string `json:"artisan_id" binding:"required"`
}

func handleAcceptDirect(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req acceptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		acceptAndRespond(c, opts, c.Param("id"), req.ArtisanID)
	}
}

// acceptAndRespond runs the claim transaction and translates the outcome
// into an unambiguous terminal response for the artisan.
func acceptAndRespond(c *gin.Context, opts StartOpts, offerID, artisanID string) {
	res, err := claim.Accept(opts.DB, offerID, artisanID, opts.LeadCost)
	if err != nil {
		if ce, ok := claim.AsError(err); ok {
			c.JSON(claimStatus(ce.Code), gin.H{"code": ce.Code, "error": ce.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lead_id":     res.LeadID,
		"offer_id":    res.OfferID,
		"new_balance": res.NewBalance,
	})
}

// claimStatus maps claim failure codes to HTTP statuses. Race losses are
// conflicts, policy failures point at what to fix.
func claimStatus(code string) int {
	switch code {
	case claim.CodeNotFound:
		return http.StatusNotFound
	case claim.CodeAlreadyProcessed, claim.CodeLeadAlreadyTaken, claim.CodeExpired:
		return http.StatusConflict
	case claim.CodeNotVerified:
		return http.StatusForbidden
	case claim.CodeInsufficientBalance:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func handleSweep(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := sweeper.SweepExpired(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		overdue, err := sweeper.OverdueLeadIDs(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"expired": n, "overdue_leads": overdue})
	}
}

func handleNotificationsPending(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = parsed
		}
		jobs, err := notify.Pending(db, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobs": jobs})
	}
}

func handleNotificationAck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
			return
		}
		if err := notify.Acknowledge(db, uint(id)); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"acknowledged": id})
	}
}
