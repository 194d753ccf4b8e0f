package models

import "time"

// MessageView is a message hydrated with its sender's profile, its parent and
// its read receipts.
type MessageView struct {
	Message
	Profile      *Profile      `json:"profile"`
	Parent       *Message      `json:"parent"`
	ReadReceipts []ReceiptView `json:"read_receipts"`
}

// ReceiptView is a read receipt joined to its owner's profile.
type ReceiptView struct {
	ReadReceipt
	Profile *Profile `json:"profile"`
}

// ConversationView is a conversation with its hydrated messages in creation order.
type ConversationView struct {
	ID       string        `json:"id"`
	Messages []MessageView `json:"messages"`
}

// LastMessage is the newest message of a conversation as seen by one user.
type LastMessage struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	ConversationID string     `json:"conversation_id"`
	CreatedAt      time.Time  `json:"created_at"`
	SentBy         string     `json:"sent_by"`
	IsSeen         *bool      `json:"is_seen"`
	SeenAt         *time.Time `json:"seen_at"`
}

// Participant is the inbox listing entry of another conversation member.
type Participant struct {
	ID          string  `json:"id"`
	DisplayName *string `json:"display_name"`
}

// ConversationSummary is one row of a user's inbox.
type ConversationSummary struct {
	ID           string        `json:"id"`
	LastMessage  LastMessage   `json:"last_message"`
	Participants []Participant `json:"participants"`
}
