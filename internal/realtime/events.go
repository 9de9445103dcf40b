package realtime

import "time"

// Event types pushed to clients over the live channel.
const (
	EventNewMessage    = "new_message"
	EventReadReceipt   = "read_receipt"
	EventProductUpdate = "product_update"
)

// Product update actions.
const (
	ActionCreated   = "created"
	ActionFulfilled = "fulfilled"
)

type MessagePayload struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
}

type NewMessageEvent struct {
	Type           string         `json:"type"`
	ConversationID string         `json:"conversationId"`
	Message        MessagePayload `json:"message"`
}

func NewMessage(conversationID string, message MessagePayload) NewMessageEvent {
	return NewMessageEvent{Type: EventNewMessage, ConversationID: conversationID, Message: message}
}

type ReadReceiptEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
	All            bool   `json:"all"`
	UserID         string `json:"userId"`
}

func ReadReceipt(conversationID string, all bool, userID string) ReadReceiptEvent {
	return ReadReceiptEvent{Type: EventReadReceipt, ConversationID: conversationID, All: all, UserID: userID}
}

type ProductPayload struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Image string `json:"image,omitempty"`
}

type ProductUpdateEvent struct {
	Type    string         `json:"type"`
	Action  string         `json:"action"`
	Product ProductPayload `json:"product"`
}

func ProductUpdate(action string, product ProductPayload) ProductUpdateEvent {
	return ProductUpdateEvent{Type: EventProductUpdate, Action: action, Product: product}
}
