package ginserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"valikoo/internal/app/outbox"
	domainproduct "valikoo/internal/domain/product"
	domaintrip "valikoo/internal/domain/trip"
	"valikoo/internal/infra/storage/s3"
	"valikoo/internal/realtime"
)

type ProductHTTP interface {
	Create(c *gin.Context)
	Catalog(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Fulfill(c *gin.Context)
	UploadPhoto(c *gin.Context)
}

type ProductHandler struct {
	Products    domainproduct.Repository
	Trips       domaintrip.Repository
	Broadcaster *realtime.Broadcaster
	Events      *outbox.Appender
	Photos      s3.Uploader
	Logger      *slog.Logger
}

type createProductRequest struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Category         string   `json:"category"`
	Image            string   `json:"image"`
	Images           []string `json:"images"`
	Price            float64  `json:"price"`
	Quantity         int      `json:"quantity"`
	DepartureAirport string   `json:"departureAirport"`
	ArrivalAirport   string   `json:"arrivalAirport"`
	DepartureDate    string   `json:"departureDate"`
	ReturnDate       string   `json:"returnDate"`
	TripID           string   `json:"tripId"`
}

func (h ProductHandler) Create(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	product, err := domainproduct.NewProduct(domainproduct.CreateParams{
		ID:               uuid.NewString(),
		OwnerID:          p.ID,
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Image:            req.Image,
		Images:           req.Images,
		Price:            req.Price,
		Quantity:         req.Quantity,
		DepartureAirport: req.DepartureAirport,
		ArrivalAirport:   req.ArrivalAirport,
		TravelDates:      domainproduct.TravelDates{Departure: req.DepartureDate, Return: req.ReturnDate},
		TripID:           req.TripID,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if product.TripID != "" {
		if !h.linkTrip(c, product, p.ID) {
			return
		}
	}
	if err := h.Products.Save(c.Request.Context(), product); err != nil {
		h.respondProductError(c, err, "create product")
		return
	}
	if h.Broadcaster != nil {
		h.Broadcaster.Broadcast(p.ID, realtime.ProductUpdate(realtime.ActionCreated, realtime.ProductPayload{
			ID:    product.ID,
			Title: product.Title,
			Image: product.Image,
		}))
	}
	h.Events.Record(c.Request.Context(), "product.created", "product:"+product.ID, productView(product))
	c.JSON(http.StatusCreated, productView(product))
}

// linkTrip appends the new product to an owned trip, rejecting foreign trips.
func (h ProductHandler) linkTrip(c *gin.Context, product *domainproduct.Product, ownerID string) bool {
	if h.Trips == nil {
		product.TripID = ""
		return true
	}
	trip, err := h.Trips.ByID(c.Request.Context(), product.TripID)
	if err != nil {
		if errors.Is(err, domaintrip.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
			return false
		}
		h.respondProductError(c, err, "load trip")
		return false
	}
	if trip.OwnerID != ownerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "trip not owned by user"})
		return false
	}
	trip.AddProduct(product.ID)
	if err := h.Trips.Save(c.Request.Context(), trip); err != nil {
		h.respondProductError(c, err, "update trip")
		return false
	}
	return true
}

func (h ProductHandler) Catalog(c *gin.Context) {
	filter := domainproduct.Filter{
		Query:            c.Query("q"),
		Category:         c.Query("category"),
		DepartureAirport: c.Query("departure_airport"),
		ArrivalAirport:   c.Query("arrival_airport"),
		DepartureDate:    c.Query("departure_date"),
		ArrivalDate:      c.Query("arrival_date"),
		SortBy:           c.Query("sort_by"),
		Order:            c.Query("order"),
	}
	if raw := c.Query("min_price"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MinPrice = &v
		}
	}
	if raw := c.Query("max_price"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MaxPrice = &v
		}
	}
	products, err := h.Products.Search(c.Request.Context(), filter)
	if err != nil {
		h.respondProductError(c, err, "search products")
		return
	}
	views := make([]gin.H, 0, len(products))
	for i := range products {
		views = append(views, productView(&products[i]))
	}
	c.JSON(http.StatusOK, views)
}

func (h ProductHandler) Get(c *gin.Context) {
	product, err := h.Products.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondProductError(c, err, "load product")
		return
	}
	c.JSON(http.StatusOK, productView(product))
}

type updateProductRequest struct {
	Title            *string  `json:"title"`
	Description      *string  `json:"description"`
	Category         *string  `json:"category"`
	Image            *string  `json:"image"`
	Price            *float64 `json:"price"`
	Quantity         *int     `json:"quantity"`
	DepartureAirport *string  `json:"departureAirport"`
	ArrivalAirport   *string  `json:"arrivalAirport"`
	DepartureDate    *string  `json:"departureDate"`
	ReturnDate       *string  `json:"returnDate"`
	IsActive         *bool    `json:"isActive"`
}

func (h ProductHandler) Update(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	product, err := h.Products.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondProductError(c, err, "load product")
		return
	}
	if product.OwnerID != p.ID && !p.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the product owner"})
		return
	}
	applyProductPatch(product, req)
	if err := h.Products.Save(c.Request.Context(), product); err != nil {
		h.respondProductError(c, err, "update product")
		return
	}
	c.JSON(http.StatusOK, productView(product))
}

func applyProductPatch(p *domainproduct.Product, req updateProductRequest) {
	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		p.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		p.Category = strings.TrimSpace(*req.Category)
	}
	if req.Image != nil {
		p.Image = strings.TrimSpace(*req.Image)
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Quantity != nil && *req.Quantity > 0 {
		p.Quantity = *req.Quantity
	}
	if req.DepartureAirport != nil {
		p.DepartureAirport = strings.TrimSpace(*req.DepartureAirport)
	}
	if req.ArrivalAirport != nil {
		p.ArrivalAirport = strings.TrimSpace(*req.ArrivalAirport)
	}
	if req.DepartureDate != nil {
		p.TravelDates.Departure = *req.DepartureDate
	}
	if req.ReturnDate != nil {
		p.TravelDates.Return = *req.ReturnDate
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	p.UpdatedAt = nowUTC()
}

func (h ProductHandler) Fulfill(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.Products.MarkFulfilled(c.Request.Context(), id, p.ID); err != nil {
		h.respondProductError(c, err, "fulfill product")
		return
	}
	product, err := h.Products.ByID(c.Request.Context(), id)
	if err != nil {
		h.respondProductError(c, err, "load product")
		return
	}
	if h.Broadcaster != nil {
		h.Broadcaster.Broadcast(p.ID, realtime.ProductUpdate(realtime.ActionFulfilled, realtime.ProductPayload{
			ID:    product.ID,
			Title: product.Title,
			Image: product.Image,
		}))
	}
	h.Events.Record(c.Request.Context(), "product.fulfilled", "product:"+product.ID, productView(product))
	c.JSON(http.StatusOK, productView(product))
}

func (h ProductHandler) UploadPhoto(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Photos == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "photo storage unavailable"})
		return
	}
	product, err := h.Products.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondProductError(c, err, "load product")
		return
	}
	if product.OwnerID != p.ID && !p.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the product owner"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}
	defer src.Close()

	key := fmt.Sprintf("products/%s/%s%s", product.ID, uuid.NewString(), filepath.Ext(file.Filename))
	url, err := h.Photos.Upload(c.Request.Context(), key, src, file.Header.Get("Content-Type"))
	if err != nil {
		h.respondProductError(c, err, "upload photo")
		return
	}
	product.Images = append(product.Images, url)
	if product.Image == "" {
		product.Image = url
	}
	product.UpdatedAt = nowUTC()
	if err := h.Products.Save(c.Request.Context(), product); err != nil {
		h.respondProductError(c, err, "update product")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url, "images": product.Images})
}

func (h ProductHandler) respondProductError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, domainproduct.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, domainproduct.ErrTitleRequired), errors.Is(err, domainproduct.ErrIDRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error(op+" failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func productView(p *domainproduct.Product) gin.H {
	return gin.H{
		"id":               p.ID,
		"ownerId":          p.OwnerID,
		"title":            p.Title,
		"description":      p.Description,
		"category":         p.Category,
		"image":            p.Image,
		"images":           p.Images,
		"price":            p.Price,
		"quantity":         p.Quantity,
		"departureAirport": p.DepartureAirport,
		"arrivalAirport":   p.ArrivalAirport,
		"travelDates": gin.H{
			"departure": p.TravelDates.Departure,
			"return":    p.TravelDates.Return,
		},
		"tripId":    p.TripID,
		"status":    p.Status,
		"isActive":  p.IsActive,
		"isSold":    p.IsSold,
		"createdAt": p.CreatedAt,
		"updatedAt": p.UpdatedAt,
	}
}

var _ ProductHTTP = (*ProductHandler)(nil)
