package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"valikoo/internal/app/outbox"
	domainchat "valikoo/internal/domain/chat"
	domainproduct "valikoo/internal/domain/product"
	domainuser "valikoo/internal/domain/user"
	"valikoo/internal/realtime"
)

const (
	defaultMessagePageSize = 50
	maxMessagePageSize     = 200
)

type ChatHTTP interface {
	CreateConversation(c *gin.Context)
	ListConversations(c *gin.Context)
	ListMessages(c *gin.Context)
	Send(c *gin.Context)
	MarkRead(c *gin.Context)
}

// ChatHandler serves the messaging HTTP surface and produces the realtime
// events that follow each committed write.
type ChatHandler struct {
	Chats       domainchat.Store
	Users       domainuser.Repository
	Products    domainproduct.Repository
	Broadcaster *realtime.Broadcaster
	Events      *outbox.Appender
	Logger      *slog.Logger
}

type createConversationRequest struct {
	RecipientID string `json:"recipient_id"`
	ProductID   string `json:"product_id"`
}

func (h ChatHandler) CreateConversation(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RecipientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipient_id is required"})
		return
	}
	conv, err := h.Chats.FindOrCreateConversation(c.Request.Context(), p.ID, req.RecipientID, req.ProductID)
	if err != nil {
		h.respondChatError(c, err, "create conversation")
		return
	}
	c.JSON(http.StatusOK, h.conversationView(c, conv, p.ID))
}

func (h ChatHandler) ListConversations(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	conversations, err := h.Chats.ListConversations(c.Request.Context(), p.ID)
	if err != nil {
		h.respondChatError(c, err, "list conversations")
		return
	}
	views := make([]gin.H, 0, len(conversations))
	for i := range conversations {
		conv := &conversations[i]
		// Travelers only handle product enquiries; direct threads stay
		// buyer-side.
		if p.HasRole("traveler") && conv.ProductID == "" {
			continue
		}
		views = append(views, h.conversationView(c, conv, p.ID))
	}
	c.JSON(http.StatusOK, views)
}

func (h ChatHandler) ListMessages(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	conversationID := c.Param("id")
	conv, err := h.Chats.Conversation(c.Request.Context(), conversationID)
	if err != nil {
		h.respondChatError(c, err, "load conversation")
		return
	}
	if !conv.HasParticipant(p.ID) && !p.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation participant"})
		return
	}
	page := parsePositiveInt(c.Query("page"), 1)
	pageSize := parsePositiveInt(c.Query("page_size"), defaultMessagePageSize)
	if pageSize > maxMessagePageSize {
		pageSize = maxMessagePageSize
	}
	messages, total, err := h.Chats.ListMessages(c.Request.Context(), conversationID, page, pageSize)
	if err != nil {
		h.respondChatError(c, err, "list messages")
		return
	}
	views := make([]gin.H, 0, len(messages))
	for i := range messages {
		views = append(views, messageView(&messages[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":  views,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

type sendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	Type           string `json:"type"`
}

func (h ChatHandler) Send(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ConversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
		return
	}
	msg, err := h.Chats.AppendMessage(c.Request.Context(), req.ConversationID, p.ID, req.Content, req.Type)
	if err != nil {
		h.respondChatError(c, err, "send message")
		return
	}
	conv, err := h.Chats.Conversation(c.Request.Context(), req.ConversationID)
	if err == nil && h.Broadcaster != nil {
		event := realtime.NewMessage(conv.ID, realtime.MessagePayload{
			ID:        msg.ID,
			SenderID:  msg.SenderID,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
			Type:      msg.Type,
			Status:    msg.Status,
		})
		for _, participant := range conv.Participants {
			h.Broadcaster.Broadcast(participant, event)
		}
	}
	h.Events.Record(c.Request.Context(), "chat.message_sent", "conversation:"+req.ConversationID, messageView(msg))
	c.JSON(http.StatusCreated, messageView(msg))
}

func (h ChatHandler) MarkRead(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	conversationID := c.Param("id")
	conv, err := h.Chats.Conversation(c.Request.Context(), conversationID)
	if err != nil {
		h.respondChatError(c, err, "load conversation")
		return
	}
	if !conv.HasParticipant(p.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation participant"})
		return
	}
	if err := h.Chats.MarkRead(c.Request.Context(), conversationID, p.ID); err != nil {
		h.respondChatError(c, err, "mark read")
		return
	}
	if h.Broadcaster != nil {
		event := realtime.ReadReceipt(conversationID, true, p.ID)
		for _, participant := range conv.Participants {
			if participant == p.ID {
				continue
			}
			h.Broadcaster.Broadcast(participant, event)
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// conversationView enriches a thread with peer info, product summary, last
// message and the caller's unread count. Lookups are best-effort: a missing
// peer or product never fails the listing.
func (h ChatHandler) conversationView(c *gin.Context, conv *domainchat.Conversation, viewerID string) gin.H {
	view := gin.H{
		"id":              conv.ID,
		"participants":    conv.Participants,
		"productId":       conv.ProductID,
		"lastMessage":     conv.LastMessage,
		"lastMessageTime": conv.LastMessageTime,
		"createdAt":       conv.CreatedAt,
	}
	ctx := c.Request.Context()
	if otherID := conv.OtherParticipant(viewerID); otherID != "" && h.Users != nil {
		if other, err := h.Users.ByID(ctx, otherID); err == nil {
			view["otherParticipant"] = gin.H{
				"id":       other.ID,
				"fullName": other.FullName,
				"role":     other.Role,
			}
		}
	}
	if conv.ProductID != "" && h.Products != nil {
		if product, err := h.Products.ByID(ctx, conv.ProductID); err == nil {
			view["product"] = gin.H{
				"id":    product.ID,
				"title": product.Title,
				"image": product.Image,
				"price": product.Price,
			}
		}
	}
	if last, err := h.Chats.LastMessage(ctx, conv.ID); err == nil && last != nil {
		view["lastMessageDetail"] = messageView(last)
	}
	if unread, err := h.Chats.UnreadCount(ctx, conv.ID, viewerID); err == nil {
		view["unreadCount"] = unread
	}
	return view
}

func (h ChatHandler) respondChatError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, domainchat.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, domainchat.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation participant"})
	case errors.Is(err, domainchat.ErrSelfConversation), errors.Is(err, domainchat.ErrContentRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error(op+" failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func messageView(m *domainchat.Message) gin.H {
	return gin.H{
		"id":             m.ID,
		"conversationId": m.ConversationID,
		"senderId":       m.SenderID,
		"content":        m.Content,
		"type":           m.Type,
		"timestamp":      m.Timestamp,
		"status":         m.Status,
		"readBy":         m.ReadBy,
	}
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

var _ ChatHTTP = (*ChatHandler)(nil)
