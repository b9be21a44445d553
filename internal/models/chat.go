package models

import "time"

// Sender identifies who wrote a chat message
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAI     Sender = "ai"
	SenderSystem Sender = "system"
)

// MessageType tells the client how to render a message
type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeMenuItem    MessageType = "menu_item"
	MessageTypeOrderUpdate MessageType = "order_update"
	MessageTypeQuickReply  MessageType = "quick_reply"
	MessageTypeSuggestion  MessageType = "suggestion"
)

// MessageMetadata carries rendering hints, e.g. the order id for a receipt
type MessageMetadata struct {
	ItemCode       string   `json:"itemCode,omitempty"`
	Category       string   `json:"category,omitempty"`
	Price          int      `json:"price,omitempty"`
	OrderID        string   `json:"orderId,omitempty"`
	SuggestedItems []string `json:"suggestedItems,omitempty"`
}

// ChatMessage is one entry of the append-only conversation log
type ChatMessage struct {
	ID        string           `json:"id"`
	Content   string           `json:"content"`
	Sender    Sender           `json:"sender"`
	Timestamp time.Time        `json:"timestamp"`
	Type      MessageType      `json:"type"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}
