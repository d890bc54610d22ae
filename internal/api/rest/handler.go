package rest

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tunestake/royalty-ledger/internal/domain"
	"github.com/tunestake/royalty-ledger/internal/ledger"
	"github.com/tunestake/royalty-ledger/internal/rates"
	"github.com/tunestake/royalty-ledger/internal/royalty"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// CreateRelease registers a new release (requires authentication)
	// POST /api/v1/releases
	CreateRelease(c *gin.Context)

	// GetRelease retrieves a single release
	// GET /api/v1/releases/:id
	GetRelease(c *gin.Context)

	// ListReleases retrieves releases with pagination
	// GET /api/v1/releases?limit=<limit>&offset=<offset>
	ListReleases(c *gin.Context)

	// QuotePurchase prices a prospective purchase without reserving shares
	// GET /api/v1/releases/:id/quote?shares=<shares>
	QuotePurchase(c *gin.Context)

	// PurchaseShares buys shares on a release (requires authentication)
	// POST /api/v1/releases/:id/purchases
	PurchaseShares(c *gin.Context)

	// GetPurchase retrieves a single purchase
	// GET /api/v1/purchases/:id
	GetPurchase(c *gin.Context)

	// SettlePurchase marks a purchase settled (requires API key; called by
	// the external settlement submitter)
	// POST /api/v1/purchases/:id/settle
	SettlePurchase(c *gin.Context)

	// RevertPurchase compensates a purchase after confirmed settlement
	// failure (requires API key)
	// POST /api/v1/purchases/:id/revert
	RevertPurchase(c *gin.Context)

	// ListHoldings retrieves a release's cap table
	// GET /api/v1/releases/:id/holdings
	ListHoldings(c *gin.Context)

	// ListDistributions retrieves a release's distribution records
	// GET /api/v1/releases/:id/distributions?limit=<limit>&offset=<offset>
	ListDistributions(c *gin.Context)

	// GetDistribution retrieves a single distribution record
	// GET /api/v1/distributions/:id
	GetDistribution(c *gin.Context)

	// IngestStream settles a stream-play event synchronously (requires API
	// key; the NATS subject is the primary ingest path)
	// POST /api/v1/streams
	IngestStream(c *gin.Context)

	// GetRates retrieves the current rate configuration
	// GET /api/v1/rates
	GetRates(c *gin.Context)

	// UpdateRates replaces the rate configuration (requires authentication)
	// PUT /api/v1/rates
	UpdateRates(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	ledger  *ledger.Service
	royalty *royalty.Service
	rates   *rates.Store
}

// NewHandler creates a new REST API handler
func NewHandler(ledgerSvc *ledger.Service, royaltySvc *royalty.Service, rateStore *rates.Store) Handler {
	return &handler{
		ledger:  ledgerSvc,
		royalty: royaltySvc,
		rates:   rateStore,
	}
}

// CreateRelease registers a new release
func (h *handler) CreateRelease(c *gin.Context) {
	var req CreateReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	release, err := h.ledger.CreateRelease(c.Request.Context(), ledger.CreateReleaseParams{
		Title:         req.Title,
		ArtistID:      req.ArtistID,
		Genre:         req.Genre,
		AssetURI:      req.AssetURI,
		TotalShares:   req.TotalShares,
		PricePerShare: req.PricePerShare,
		PlatformPct:   req.Allocation.Platform,
		ArtistPct:     req.Allocation.Artist,
		InvestorPct:   req.Allocation.InvestorPool,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to create release")
		return
	}

	c.JSON(http.StatusCreated, toReleaseResponse(release))
}

// GetRelease retrieves a single release
func (h *handler) GetRelease(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondBadRequest(c, "Release id is required")
		return
	}

	release, err := h.ledger.GetRelease(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to get release")
		return
	}

	c.JSON(http.StatusOK, toReleaseResponse(release))
}

// ListReleases retrieves releases with pagination
func (h *handler) ListReleases(c *gin.Context) {
	limit, offset, err := parsePagination(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	releases, total, err := h.ledger.ListReleases(c.Request.Context(), limit, offset)
	if err != nil {
		respondServiceError(c, err, "Failed to list releases")
		return
	}

	resp := ListReleasesResponse{
		Releases: make([]ReleaseResponse, len(releases)),
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}
	for i := range releases {
		resp.Releases[i] = toReleaseResponse(&releases[i])
	}
	c.JSON(http.StatusOK, resp)
}

// QuotePurchase prices a prospective purchase
func (h *handler) QuotePurchase(c *gin.Context) {
	id := c.Param("id")
	shares, err := strconv.ParseInt(c.Query("shares"), 10, 64)
	if err != nil {
		respondValidationError(c, "shares must be an integer")
		return
	}

	quote, err := h.ledger.Quote(c.Request.Context(), id, shares)
	if err != nil {
		respondServiceError(c, err, "Failed to quote purchase")
		return
	}

	c.JSON(http.StatusOK, quote)
}

// PurchaseShares buys shares on a release
func (h *handler) PurchaseShares(c *gin.Context) {
	id := c.Param("id")

	var req PurchaseSharesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.InvestorID == "" {
		respondValidationError(c, "investor_id is required")
		return
	}

	result, err := h.ledger.Purchase(c.Request.Context(), ledger.PurchaseParams{
		ReleaseID:  id,
		InvestorID: req.InvestorID,
		Shares:     req.Shares,
		Paid:       req.Paid,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to purchase shares")
		return
	}

	c.JSON(http.StatusCreated, PurchaseResultResponse{
		Purchase: toPurchaseResponse(result.Purchase),
		Holding:  toHoldingResponse(result.Holding),
		Release:  toReleaseResponse(result.Release),
	})
}

// GetPurchase retrieves a single purchase
func (h *handler) GetPurchase(c *gin.Context) {
	purchase, err := h.ledger.GetPurchase(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to get purchase")
		return
	}
	c.JSON(http.StatusOK, toPurchaseResponse(purchase))
}

// SettlePurchase marks a purchase settled
func (h *handler) SettlePurchase(c *gin.Context) {
	purchase, err := h.ledger.SettlePurchase(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to settle purchase")
		return
	}
	c.JSON(http.StatusOK, toPurchaseResponse(purchase))
}

// RevertPurchase compensates a purchase
func (h *handler) RevertPurchase(c *gin.Context) {
	purchase, err := h.ledger.RevertPurchase(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to revert purchase")
		return
	}
	c.JSON(http.StatusOK, toPurchaseResponse(purchase))
}

// ListHoldings retrieves a release's cap table
func (h *handler) ListHoldings(c *gin.Context) {
	id := c.Param("id")

	holdings, err := h.ledger.Holdings(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to list holdings")
		return
	}

	resp := HoldingsResponse{
		ReleaseID: id,
		Holdings:  make([]HoldingResponse, len(holdings)),
	}
	for i := range holdings {
		resp.Holdings[i] = toHoldingResponse(&holdings[i])
	}
	c.JSON(http.StatusOK, resp)
}

// ListDistributions retrieves a release's distribution records
func (h *handler) ListDistributions(c *gin.Context) {
	id := c.Param("id")
	limit, offset, err := parsePagination(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	records, total, err := h.ledger.Distributions(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondServiceError(c, err, "Failed to list distributions")
		return
	}

	resp := ListDistributionsResponse{
		Distributions: make([]DistributionResponse, len(records)),
		Total:         total,
		Limit:         limit,
		Offset:        offset,
	}
	for i := range records {
		resp.Distributions[i] = toDistributionResponse(&records[i])
	}
	c.JSON(http.StatusOK, resp)
}

// GetDistribution retrieves a single distribution record
func (h *handler) GetDistribution(c *gin.Context) {
	record, err := h.ledger.GetDistribution(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to get distribution record")
		return
	}
	c.JSON(http.StatusOK, toDistributionResponse(record))
}

// IngestStream settles a stream-play event synchronously
func (h *handler) IngestStream(c *gin.Context) {
	var event domain.StreamEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	record, err := h.royalty.SettleStream(c.Request.Context(), &event)
	if err != nil {
		respondServiceError(c, err, "Failed to settle stream event")
		return
	}

	c.JSON(http.StatusCreated, toDistributionResponse(record))
}

// GetRates retrieves the current rate configuration
func (h *handler) GetRates(c *gin.Context) {
	cfg := h.rates.Get()
	c.JSON(http.StatusOK, cfg)
}

// UpdateRates replaces the rate configuration
func (h *handler) UpdateRates(c *gin.Context) {
	var cfg rates.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := h.rates.Update(c.Request.Context(), cfg); err != nil {
		respondServiceError(c, err, "Failed to update rate configuration")
		return
	}

	c.JSON(http.StatusOK, h.rates.Get())
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "royalty-ledger-api",
	})
}

func parsePagination(c *gin.Context) (limit int, offset int, err error) {
	limit = defaultPageLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return 0, 0, fmt.Errorf("limit must be a positive integer")
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}
