package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	domainorder "valikoo/internal/domain/order"
	domainproduct "valikoo/internal/domain/product"
	domainrequest "valikoo/internal/domain/request"
	domainsaved "valikoo/internal/domain/saved"
	domaintrip "valikoo/internal/domain/trip"
	domainuser "valikoo/internal/domain/user"
)

type DashboardHTTP interface {
	Stats(c *gin.Context)
}

// DashboardHandler aggregates per-role counters from the repositories.
type DashboardHandler struct {
	Users    domainuser.Repository
	Products domainproduct.Repository
	Requests domainrequest.Repository
	Trips    domaintrip.Repository
	Saved    domainsaved.Repository
	Orders   domainorder.Repository
	Logger   *slog.Logger
}

func (h DashboardHandler) Stats(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var stats gin.H
	var err error
	switch {
	case p.IsAdmin():
		stats, err = h.adminStats(c)
	case p.HasRole("traveler"):
		stats, err = h.travelerStats(c, p.ID)
	default:
		stats, err = h.buyerStats(c, p.ID)
	}
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("dashboard stats failed", "role", p.Role, "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	stats["role"] = p.Role
	c.JSON(http.StatusOK, stats)
}

func (h DashboardHandler) travelerStats(c *gin.Context, userID string) (gin.H, error) {
	ctx := c.Request.Context()
	products, err := h.Products.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	activeListings := 0
	earnings := 0.0
	for i := range products {
		if products[i].IsActive {
			activeListings++
		}
		if products[i].IsSold || products[i].Status == domainproduct.StatusFulfilled {
			earnings += products[i].Price
		}
	}
	pendingRequests, err := h.Requests.Count(ctx, domainrequest.Filter{
		TravelerID: userID,
		Status:     domainrequest.StatusPending,
	})
	if err != nil {
		return nil, err
	}
	trips, err := h.Trips.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	upcoming := 0
	now := time.Now()
	for i := range trips {
		if trips[i].Upcoming(now) {
			upcoming++
		}
	}
	return gin.H{
		"activeListings":  activeListings,
		"pendingRequests": pendingRequests,
		"upcomingTrips":   upcoming,
		"earnings":        earnings,
	}, nil
}

func (h DashboardHandler) buyerStats(c *gin.Context, userID string) (gin.H, error) {
	ctx := c.Request.Context()
	activeRequests, err := h.Requests.Count(ctx, domainrequest.Filter{
		BuyerID: userID,
		Status:  domainrequest.StatusPending,
	})
	if err != nil {
		return nil, err
	}
	savedCount, err := h.Saved.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	orders, err := h.Orders.ListByBuyer(ctx, userID)
	if err != nil {
		return nil, err
	}
	spend := 0.0
	for i := range orders {
		spend += orders[i].Price
	}
	return gin.H{
		"activeRequests": activeRequests,
		"savedProducts":  savedCount,
		"purchases":      len(orders),
		"totalSpend":     spend,
	}, nil
}

func (h DashboardHandler) adminStats(c *gin.Context) (gin.H, error) {
	ctx := c.Request.Context()
	userCount, err := h.Users.Count(ctx)
	if err != nil {
		return nil, err
	}
	productCount, err := h.Products.Count(ctx)
	if err != nil {
		return nil, err
	}
	sold, err := h.Products.ListSold(ctx, "")
	if err != nil {
		return nil, err
	}
	revenue := 0.0
	for i := range sold {
		revenue += sold[i].Price
	}
	return gin.H{
		"totalUsers":    userCount,
		"totalProducts": productCount,
		"totalRevenue":  revenue,
	}, nil
}

var _ DashboardHTTP = (*DashboardHandler)(nil)
