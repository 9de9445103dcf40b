package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	domainnotification "valikoo/internal/domain/notification"
)

type NotificationHTTP interface {
	List(c *gin.Context)
	MarkRead(c *gin.Context)
}

type NotificationHandler struct {
	Notifications domainnotification.Repository
	Logger        *slog.Logger
}

func (h NotificationHandler) List(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	notifications, err := h.Notifications.ListByUser(c.Request.Context(), p.ID)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("list notifications failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	views := make([]gin.H, 0, len(notifications))
	for _, n := range notifications {
		views = append(views, gin.H{
			"id":        n.ID,
			"kind":      n.Kind,
			"title":     n.Title,
			"body":      n.Body,
			"read":      n.Read,
			"createdAt": n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, views)
}

func (h NotificationHandler) MarkRead(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if err := h.Notifications.MarkRead(c.Request.Context(), c.Param("id"), p.ID); err != nil {
		if errors.Is(err, domainnotification.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		if h.Logger != nil {
			h.Logger.Error("mark notification read failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var _ NotificationHTTP = (*NotificationHandler)(nil)
