package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainorder "valikoo/internal/domain/order"
	domainproduct "valikoo/internal/domain/product"
)

type OrderHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
}

type OrderHandler struct {
	Orders   domainorder.Repository
	Products domainproduct.Repository
	Logger   *slog.Logger
}

type createOrderRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h OrderHandler) Create(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req createOrderRequest
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
		h.fail(c, err, "load product")
		return
	}
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}
	order := &domainorder.Order{
		ID:        uuid.NewString(),
		BuyerID:   p.ID,
		SellerID:  product.OwnerID,
		ProductID: product.ID,
		Quantity:  quantity,
		Price:     product.Price * float64(quantity),
		Status:    domainorder.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Orders.Save(c.Request.Context(), order); err != nil {
		h.fail(c, err, "create order")
		return
	}
	c.JSON(http.StatusCreated, orderView(order))
}

func (h OrderHandler) Get(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	order, err := h.Orders.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domainorder.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		h.fail(c, err, "load order")
		return
	}
	if !order.Viewable(p.ID, p.IsAdmin()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a party to the order"})
		return
	}
	c.JSON(http.StatusOK, orderView(order))
}

func (h OrderHandler) List(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	orders, err := h.Orders.ListByBuyer(c.Request.Context(), p.ID)
	if err != nil {
		h.fail(c, err, "list orders")
		return
	}
	views := make([]gin.H, 0, len(orders))
	for i := range orders {
		views = append(views, orderView(&orders[i]))
	}
	c.JSON(http.StatusOK, views)
}

func (h OrderHandler) fail(c *gin.Context, err error, op string) {
	if h.Logger != nil {
		h.Logger.Error(op+" failed", "error", err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func orderView(o *domainorder.Order) gin.H {
	return gin.H{
		"id":        o.ID,
		"buyerId":   o.BuyerID,
		"sellerId":  o.SellerID,
		"productId": o.ProductID,
		"quantity":  o.Quantity,
		"price":     o.Price,
		"status":    o.Status,
		"createdAt": o.CreatedAt,
	}
}

var _ OrderHTTP = (*OrderHandler)(nil)
