package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainproduct "valikoo/internal/domain/product"
	domainsaved "valikoo/internal/domain/saved"
)

type SavedItemHTTP interface {
	Add(c *gin.Context)
	Remove(c *gin.Context)
	List(c *gin.Context)
}

type SavedItemHandler struct {
	Saved    domainsaved.Repository
	Products domainproduct.Repository
	Logger   *slog.Logger
}

type savedItemRequest struct {
	ProductID string `json:"product_id"`
}

func (h SavedItemHandler) Add(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req savedItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProductID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}
	if _, err := h.Products.ByID(c.Request.Context(), req.ProductID); err != nil {
		if errors.Is(err, domainproduct.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.fail(c, err, "load product")
		return
	}
	item := &domainsaved.Item{
		ID:        uuid.NewString(),
		UserID:    p.ID,
		ProductID: req.ProductID,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Saved.Add(c.Request.Context(), item); err != nil {
		h.fail(c, err, "save item")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"productId": req.ProductID, "saved": true})
}

func (h SavedItemHandler) Remove(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req savedItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProductID == "" {
		req.ProductID = c.Query("product_id")
	}
	if req.ProductID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}
	if err := h.Saved.Remove(c.Request.Context(), p.ID, req.ProductID); err != nil {
		if errors.Is(err, domainsaved.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "saved item not found"})
			return
		}
		h.fail(c, err, "remove item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"productId": req.ProductID, "saved": false})
}

func (h SavedItemHandler) List(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	items, err := h.Saved.ListByUser(c.Request.Context(), p.ID)
	if err != nil {
		h.fail(c, err, "list items")
		return
	}
	views := make([]gin.H, 0, len(items))
	for _, item := range items {
		view := gin.H{
			"id":        item.ID,
			"productId": item.ProductID,
			"createdAt": item.CreatedAt,
		}
		if product, err := h.Products.ByID(c.Request.Context(), item.ProductID); err == nil {
			view["product"] = productView(product)
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

func (h SavedItemHandler) fail(c *gin.Context, err error, op string) {
	if h.Logger != nil {
		h.Logger.Error(op+" failed", "error", err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

var _ SavedItemHTTP = (*SavedItemHandler)(nil)
