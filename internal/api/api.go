package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"flip-finder/internal/models"
	"flip-finder/internal/pipeline"
	"flip-finder/internal/pricehistory"
	"flip-finder/internal/storage"
)

// Handler wires the pipeline and stores into HTTP routes.
type Handler struct {
	store    storage.Store
	analyzer *pipeline.Analyzer
	history  *pricehistory.Service
}

// SetupRoutes registers all API routes on the group.
func SetupRoutes(r *gin.RouterGroup, store storage.Store, analyzer *pipeline.Analyzer, history *pricehistory.Service) {
	h := &Handler{store: store, analyzer: analyzer, history: history}

	r.GET("/listings", h.getListings)
	r.GET("/listings/:id", h.getListing)
	r.GET("/opportunities", h.getOpportunities)
	r.GET("/summary", h.getSummary)
	r.GET("/price-history", h.getPriceHistory)
	r.POST("/scan", h.postScan)
	r.POST("/listings/batch-update-value", h.postBatchUpdateValue)
}

func (h *Handler) getListings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	listings, err := h.store.ListListings(c.Request.Context(), storage.ListingFilter{
		Platform: c.Query("platform"),
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Limit:    limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings, "count": len(listings)})
}

func (h *Handler) getListing(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}
	l, err := h.store.GetListing(c.Request.Context(), uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) getOpportunities(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	listings, err := h.store.ListOpportunities(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"opportunities": listings, "count": len(listings)})
}

func (h *Handler) getSummary(c *gin.Context) {
	all, err := h.store.ListListings(c.Request.Context(), storage.ListingFilter{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	opportunities := 0
	var profit float64
	var scoreSum int
	categories := make(map[string]int)
	for _, l := range all {
		scoreSum += l.ValueScore
		categories[l.Category]++
		if l.IsOpportunity {
			opportunities++
			profit += l.ProfitPotential
		}
	}
	avg := 0.0
	if len(all) > 0 {
		avg = float64(scoreSum) / float64(len(all))
	}
	c.JSON(http.StatusOK, gin.H{
		"total_listings":         len(all),
		"total_opportunities":    opportunities,
		"average_score":          avg,
		"total_potential_profit": profit,
		"category_counts":        categories,
	})
}

func (h *Handler) getPriceHistory(c *gin.Context) {
	rows, stats, err := h.store.GetPriceHistory(c.Request.Context(), storage.PriceQuery{
		Name:     c.Query("q"),
		Category: c.Query("category"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": rows, "stats": stats})
}

type scanRequest struct {
	Platform string              `json:"platform" binding:"required"`
	Listings []models.RawListing `json:"listings" binding:"required"`
}

func (h *Handler) postScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	analyzed := h.analyzer.AnalyzeAll(c.Request.Context(), req.Platform, req.Listings)
	pipeline.SortListings(analyzed)

	// A failed write on one listing never stops the rest; the scan
	// always completes with a summary.
	stored := 0
	storeErrors := make([]gin.H, 0)
	for _, al := range analyzed {
		row := pipeline.FormatForStorage(al)
		if err := h.store.UpsertListing(c.Request.Context(), &row); err != nil {
			storeErrors = append(storeErrors, gin.H{
				"external_id": row.ExternalID,
				"error":       err.Error(),
			})
			continue
		}
		stored++
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":      pipeline.Summarize(analyzed),
		"stored":       stored,
		"store_errors": storeErrors,
	})
}

type batchUpdateRequest struct {
	ListingIDs []uint `json:"listing_ids" binding:"required"`
}

func (h *Handler) postBatchUpdateValue(c *gin.Context) {
	var req batchUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result := h.history.BatchUpdate(c.Request.Context(), req.ListingIDs)
	c.JSON(http.StatusOK, result)
}
