package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainproduct "valikoo/internal/domain/product"
	domaintrip "valikoo/internal/domain/trip"
)

type TripHTTP interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
}

type TripHandler struct {
	Trips    domaintrip.Repository
	Products domainproduct.Repository
	Logger   *slog.Logger
}

type createTripRequest struct {
	DepartureAirport string   `json:"departureAirport"`
	ArrivalAirport   string   `json:"arrivalAirport"`
	DepartureDate    string   `json:"departureDate"`
	ReturnDate       string   `json:"returnDate"`
	ProductIDs       []string `json:"product_ids"`
}

func (h TripHandler) Create(c *gin.Context) {
	p, ok := requireRole(c, "traveler")
	if !ok {
		return
	}
	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.DepartureAirport == "" || req.ArrivalAirport == "" || req.DepartureDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "departure airport, arrival airport and departure date are required"})
		return
	}
	trip := &domaintrip.Trip{
		ID:               uuid.NewString(),
		OwnerID:          p.ID,
		DepartureAirport: req.DepartureAirport,
		ArrivalAirport:   req.ArrivalAirport,
		DepartureDate:    req.DepartureDate,
		ReturnDate:       req.ReturnDate,
		CreatedAt:        time.Now().UTC(),
	}
	for _, productID := range req.ProductIDs {
		product, err := h.Products.ByID(c.Request.Context(), productID)
		if err != nil || product.OwnerID != p.ID {
			continue
		}
		trip.AddProduct(productID)
		product.TripID = trip.ID
		if err := h.Products.Save(c.Request.Context(), product); err != nil {
			h.respondTripError(c, err, "link product")
			return
		}
	}
	if err := h.Trips.Save(c.Request.Context(), trip); err != nil {
		h.respondTripError(c, err, "create trip")
		return
	}
	c.JSON(http.StatusCreated, tripView(trip))
}

func (h TripHandler) List(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	trips, err := h.Trips.ListByOwner(c.Request.Context(), p.ID)
	if err != nil {
		h.respondTripError(c, err, "list trips")
		return
	}
	views := make([]gin.H, 0, len(trips))
	for i := range trips {
		views = append(views, tripView(&trips[i]))
	}
	c.JSON(http.StatusOK, views)
}

func (h TripHandler) Get(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	trip, err := h.Trips.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondTripError(c, err, "load trip")
		return
	}
	if trip.OwnerID != p.ID && !p.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the trip owner"})
		return
	}
	view := tripView(trip)
	products := make([]gin.H, 0, len(trip.ProductIDs))
	for _, productID := range trip.ProductIDs {
		if product, err := h.Products.ByID(c.Request.Context(), productID); err == nil {
			products = append(products, productView(product))
		}
	}
	view["products"] = products
	c.JSON(http.StatusOK, view)
}

type updateTripRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

func (h TripHandler) Update(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req updateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	trip, err := h.Trips.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondTripError(c, err, "load trip")
		return
	}
	if trip.OwnerID != p.ID && !p.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the trip owner"})
		return
	}
	for _, productID := range req.Add {
		product, err := h.Products.ByID(c.Request.Context(), productID)
		if err != nil || (product.OwnerID != trip.OwnerID && !p.IsAdmin()) {
			continue
		}
		trip.AddProduct(productID)
		product.TripID = trip.ID
		if err := h.Products.Save(c.Request.Context(), product); err != nil {
			h.respondTripError(c, err, "link product")
			return
		}
	}
	for _, productID := range req.Remove {
		trip.RemoveProduct(productID)
		if product, err := h.Products.ByID(c.Request.Context(), productID); err == nil && product.TripID == trip.ID {
			product.TripID = ""
			if err := h.Products.Save(c.Request.Context(), product); err != nil {
				h.respondTripError(c, err, "unlink product")
				return
			}
		}
	}
	if err := h.Trips.Save(c.Request.Context(), trip); err != nil {
		h.respondTripError(c, err, "update trip")
		return
	}
	c.JSON(http.StatusOK, tripView(trip))
}

func (h TripHandler) respondTripError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, domaintrip.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
	default:
		if h.Logger != nil {
			h.Logger.Error(op+" failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func tripView(t *domaintrip.Trip) gin.H {
	return gin.H{
		"id":               t.ID,
		"ownerId":          t.OwnerID,
		"departureAirport": t.DepartureAirport,
		"arrivalAirport":   t.ArrivalAirport,
		"departureDate":    t.DepartureDate,
		"returnDate":       t.ReturnDate,
		"productIds":       t.ProductIDs,
		"createdAt":        t.CreatedAt,
	}
}

var _ TripHTTP = (*TripHandler)(nil)
