package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"flipradar/server/config"
	"flipradar/server/internal/database"
	"flipradar/server/internal/economics"
	"flipradar/server/internal/models"
	"flipradar/server/internal/pipeline"
	"flipradar/server/internal/scraping"
	"flipradar/server/internal/telegram"
)

type Handler struct {
	db           *database.Database
	orchestrator *pipeline.Orchestrator
	scraper      *scraping.ScrapeManager
	telegram     *telegram.Service
	config       *config.Config
	logger       *logrus.Logger
}

func NewHandler(db *database.Database, orchestrator *pipeline.Orchestrator, scraper *scraping.ScrapeManager, tg *telegram.Service, cfg *config.Config, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		db:           db,
		orchestrator: orchestrator,
		scraper:      scraper,
		telegram:     tg,
		config:       cfg,
		logger:       logger,
	}
}

// --- Properties ---

type createPropertyRequest struct {
	Address      string   `json:"address" binding:"required"`
	Suburb       string   `json:"suburb"`
	City         string   `json:"city" binding:"required"`
	Bedrooms     *int     `json:"bedrooms"`
	Bathrooms    *int     `json:"bathrooms"`
	FloorArea    *float64 `json:"floor_area"`
	LandArea     *float64 `json:"land_area"`
	PropertyType string   `json:"property_type"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

func (h *Handler) CreateProperty(c *gin.Context) {
	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	property := &models.SubjectProperty{
		Address:      req.Address,
		Suburb:       req.Suburb,
		City:         config.NormalizeCity(req.City),
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		FloorArea:    req.FloorArea,
		LandArea:     req.LandArea,
		PropertyType: req.PropertyType,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	}

	id, err := h.db.CreateProperty(property)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create property")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create property"})
		return
	}

	created, err := h.db.GetProperty(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read created property"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetProperty(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}

	property, err := h.db.GetProperty(id)
	if errors.Is(err, database.ErrPropertyNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read property"})
		return
	}
	c.JSON(http.StatusOK, property)
}

// --- Deals ---

type createDealRequest struct {
	PropertyID      int64    `json:"property_id" binding:"required"`
	PurchasePrice   *float64 `json:"purchase_price"`
	TargetSalePrice *float64 `json:"target_sale_price"`
	Notes           string   `json:"notes"`
}

func (h *Handler) CreateDeal(c *gin.Context) {
	var req createDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.db.GetProperty(req.PropertyID); err != nil {
		if errors.Is(err, database.ErrPropertyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read property"})
		return
	}

	id, err := h.db.CreateDeal(req.PropertyID, req.PurchasePrice, req.TargetSalePrice, req.Notes)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create deal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create deal"})
		return
	}

	deal, err := h.db.GetDeal(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read created deal"})
		return
	}
	c.JSON(http.StatusCreated, deal)
}

func (h *Handler) ListDeals(c *gin.Context) {
	stage := c.Query("stage")
	if stage != "" && !models.DealStage(stage).IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown stage: " + stage})
		return
	}

	deals, err := h.db.ListDeals(stage)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list deals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list deals"})
		return
	}
	if deals == nil {
		deals = []models.Deal{}
	}
	c.JSON(http.StatusOK, deals)
}

func (h *Handler) GetDeal(c *gin.Context) {
	deal, ok := h.dealFromPath(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, deal)
}

// UpdateDeal applies a partial update. Scalar fields are whitelisted; the
// bedroom-addition toggle is routed through the key-level merge so the rest
// of the renovation analysis survives untouched.
func (h *Handler) UpdateDeal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deal id"})
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := map[string]interface{}{}
	renovationKeys := map[string]interface{}{}
	for key, value := range body {
		switch key {
		case "stage":
			stage, _ := value.(string)
			if !models.DealStage(stage).IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown stage"})
				return
			}
			fields[key] = stage
		case "purchase_price", "target_sale_price", "notes":
			fields[key] = value
		case "bedroom_addition_potential", "bedroom_addition_cost":
			renovationKeys[key] = value
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "field not updatable: " + key})
			return
		}
	}

	if len(renovationKeys) > 0 {
		if err := h.db.MergeAnalysisKeys(id, "renovation_analysis", renovationKeys); err != nil {
			if errors.Is(err, database.ErrDealNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "deal not found"})
				return
			}
			h.logger.WithError(err).Error("Failed to merge deal analysis keys")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update deal"})
			return
		}
	}
	if len(fields) > 0 {
		if err := h.db.UpdateDealFields(id, fields); err != nil {
			if errors.Is(err, database.ErrDealNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "deal not found"})
				return
			}
			h.logger.WithError(err).Error("Failed to update deal")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update deal"})
			return
		}
	}

	deal, err := h.db.GetDeal(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read updated deal"})
		return
	}
	c.JSON(http.StatusOK, deal)
}

type analyzeRequest struct {
	PhotoURLs []string `json:"photo_urls"`
}

// AnalyzeDeal runs the full analysis pipeline synchronously. A stage failure
// reports which stage halted the run; a sync failure still returns the last
// good snapshot because the analysis itself persisted.
func (h *Handler) AnalyzeDeal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deal id"})
		return
	}

	var req analyzeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	deal, err := h.orchestrator.RunAnalysis(c.Request.Context(), id, req.PhotoURLs)
	if err != nil {
		var syncErr *pipeline.SyncError
		if errors.As(err, &syncErr) {
			c.JSON(http.StatusOK, gin.H{
				"deal":    deal,
				"warning": "analysis saved but the returned snapshot may be stale",
			})
			return
		}

		stage := pipeline.StageNameFromError(err)
		h.logger.WithError(err).WithFields(logrus.Fields{
			"deal_id": id,
			"stage":   stage,
		}).Error("Deal analysis failed")
		if h.telegram != nil {
			h.telegram.NotifyAnalysisFailed(id, stage, err)
		}

		status := http.StatusInternalServerError
		if errors.Is(err, database.ErrDealNotFound) || errors.Is(err, database.ErrPropertyNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error(), "stage": stage})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deal": deal})
}

// GetDealEconomics derives the offer guidance view from the persisted
// analyses. Everything here is recomputed on read; nothing is stored.
func (h *Handler) GetDealEconomics(c *gin.Context) {
	deal, ok := h.dealFromPath(c)
	if !ok {
		return
	}

	var arv *float64
	if ma, ok := deal.DecodedMarketAnalysis(); ok {
		arv = ma.EstimatedARV
	}
	var renovationCost float64
	if deal.EstimatedRenovationCost != nil {
		renovationCost = *deal.EstimatedRenovationCost
	}

	txRate := h.config.Analysis.TransactionCostRate
	marginRate := h.config.Analysis.TargetMarginRate

	maxPrice := economics.MaxPurchasePrice(arv, renovationCost, txRate, marginRate)
	response := gin.H{
		"estimated_arv":             arv,
		"estimated_renovation_cost": renovationCost,
		"max_purchase_price":        maxPrice,
		"offer_scenarios":           economics.OfferScenarios(maxPrice),
	}

	if deal.PurchasePrice != nil {
		profit := economics.EstimatedProfit(arv, *deal.PurchasePrice, renovationCost, txRate)
		response["estimated_profit"] = profit
		if profit != nil {
			response["roi_percentage"] = economics.ROI(*profit, *deal.PurchasePrice)
		}
	}

	if rs, ok := deal.DecodedRiskAssessment(); ok {
		response["risk_adjusted_profit"] = rs.RiskAdjustedProfit
		response["recommended_contingency"] = rs.RecommendedContingency
		response["overall_risk_level"] = rs.OverallLevel
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) dealFromPath(c *gin.Context) (*models.Deal, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deal id"})
		return nil, false
	}

	deal, err := h.db.GetDeal(id)
	if errors.Is(err, database.ErrDealNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "deal not found"})
		return nil, false
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to read deal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read deal"})
		return nil, false
	}
	return deal, true
}

// --- Comparables pool ---

func (h *Handler) GetComparables(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	var bedrooms *int
	if raw := c.Query("bedrooms"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bedrooms"})
			return
		}
		bedrooms = &parsed
	}

	records, err := h.db.GetRecentSales(limit, config.NormalizeCity(c.Query("city")))
	if err != nil {
		h.logger.WithError(err).Error("Failed to read recent sales")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read recent sales"})
		return
	}

	filtered := make([]models.SaleRecord, 0, len(records))
	for _, rec := range records {
		if bedrooms != nil && (rec.Bedrooms == nil || *rec.Bedrooms != *bedrooms) {
			continue
		}
		filtered = append(filtered, rec)
	}
	c.JSON(http.StatusOK, filtered)
}

type refreshSalesRequest struct {
	City     string `json:"city" binding:"required"`
	MaxPages *int   `json:"max_pages"`
}

// RefreshSales kicks off a scrape for one city in the background.
func (h *Handler) RefreshSales(c *gin.Context) {
	if h.scraper == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scraper is disabled"})
		return
	}

	var req refreshSalesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	city := config.NormalizeCity(req.City)
	if config.GetCityByName(city) == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported city: " + req.City})
		return
	}

	go func() {
		if err := h.scraper.RunSoldScrape(city, req.MaxPages); err != nil {
			h.logger.WithError(err).WithField("city", city).Error("Sales refresh failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "refresh started", "city": city})
}

// --- Telegram ---

func (h *Handler) GetTelegramConfig(c *gin.Context) {
	cfg, err := h.db.GetTelegramConfig()
	if err != nil {
		h.logger.WithError(err).Error("Failed to read telegram config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read telegram config"})
		return
	}
	if cfg == nil {
		c.JSON(http.StatusOK, gin.H{"configured": false})
		return
	}
	// The token never leaves the server.
	c.JSON(http.StatusOK, gin.H{
		"configured": true,
		"chat_id":    cfg.ChatID,
		"is_enabled": cfg.IsEnabled,
		"updated_at": cfg.UpdatedAt,
	})
}

func (h *Handler) UpdateTelegramConfig(c *gin.Context) {
	var req models.TelegramConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.UpdateTelegramConfig(&req); err != nil {
		h.logger.WithError(err).Error("Failed to save telegram config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save telegram config"})
		return
	}
	if h.telegram != nil {
		h.telegram.UpdateConfig(&models.TelegramConfig{
			BotToken:  req.BotToken,
			ChatID:    req.ChatID,
			IsEnabled: req.IsEnabled,
		})
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

func (h *Handler) TestTelegram(c *gin.Context) {
	if h.telegram == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "telegram service not configured"})
		return
	}
	if err := h.telegram.SendMessage("FlipRadar test message — notifications are working."); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// --- Meta ---

func (h *Handler) GetCities(c *gin.Context) {
	c.JSON(http.StatusOK, config.SupportedCities)
}
