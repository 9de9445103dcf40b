package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainproduct "valikoo/internal/domain/product"
	domainrequest "valikoo/internal/domain/request"
)

type RequestHTTP interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	UpdateStatus(c *gin.Context)
}

type RequestHandler struct {
	Requests domainrequest.Repository
	Products domainproduct.Repository
	Logger   *slog.Logger
}

type createRequestRequest struct {
	ProductID  string `json:"product_id"`
	TravelerID string `json:"traveler_id"`
	Quantity   int    `json:"quantity"`
}

func (h RequestHandler) Create(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req createRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProductID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}
	product, err := h.Products.ByID(c.Request.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, domainproduct.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.respondRequestError(c, err, "load product")
		return
	}
	travelerID := req.TravelerID
	if travelerID == "" {
		travelerID = product.OwnerID
	}
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}
	request := &domainrequest.Request{
		ID:         uuid.NewString(),
		ProductID:  product.ID,
		BuyerID:    p.ID,
		TravelerID: travelerID,
		Quantity:   quantity,
		Status:     domainrequest.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.Requests.Save(c.Request.Context(), request); err != nil {
		h.respondRequestError(c, err, "create request")
		return
	}
	c.JSON(http.StatusCreated, requestView(request))
}

func (h RequestHandler) List(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	filter := domainrequest.Filter{
		ProductID: c.Query("product_id"),
		Status:    c.Query("status"),
	}
	if !p.IsAdmin() {
		filter.BuyerID = p.ID
		filter.TravelerID = p.ID
	}
	requests, err := h.Requests.List(c.Request.Context(), filter)
	if err != nil {
		h.respondRequestError(c, err, "list requests")
		return
	}
	views := make([]gin.H, 0, len(requests))
	for i := range requests {
		views = append(views, requestView(&requests[i]))
	}
	c.JSON(http.StatusOK, views)
}

type updateRequestStatusRequest struct {
	Status string `json:"status"`
}

func (h RequestHandler) UpdateStatus(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req updateRequestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	request, err := h.Requests.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondRequestError(c, err, "load request")
		return
	}
	if err := request.Respond(p.ID, req.Status, time.Now()); err != nil {
		h.respondRequestError(c, err, "respond to request")
		return
	}
	if err := h.Requests.Save(c.Request.Context(), request); err != nil {
		h.respondRequestError(c, err, "update request")
		return
	}
	c.JSON(http.StatusOK, requestView(request))
}

func (h RequestHandler) respondRequestError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, domainrequest.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
	case errors.Is(err, domainrequest.ErrNotTraveler):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the addressed traveler can respond"})
	case errors.Is(err, domainrequest.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error(op+" failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func requestView(r *domainrequest.Request) gin.H {
	view := gin.H{
		"id":         r.ID,
		"productId":  r.ProductID,
		"buyerId":    r.BuyerID,
		"travelerId": r.TravelerID,
		"quantity":   r.Quantity,
		"status":     r.Status,
		"createdAt":  r.CreatedAt,
	}
	if !r.RespondedAt.IsZero() {
		view["respondedAt"] = r.RespondedAt
	}
	return view
}

var _ RequestHTTP = (*RequestHandler)(nil)
