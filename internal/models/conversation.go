package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is a message thread between two or more participants.
type Conversation struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Messages     []Message          `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	Participants []UserConversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// UserConversation links a User to a Conversation. The (UserID, ConversationID)
// pair is the primary key, so a user joins a conversation at most once.
type UserConversation struct {
	UserID         string `gorm:"type:uuid;primaryKey" json:"user_id"`
	ConversationID string `gorm:"type:uuid;primaryKey;index" json:"conversation_id"`
	// Visible hides the conversation from the owner's inbox when false.
	Visible bool `gorm:"not null;default:true" json:"visible"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Message is a single entry of a conversation. The reply link is kept as the
// parent's id only; the parent row is loaded separately when hydrating.
type Message struct {
	ID             string `gorm:"type:uuid;primaryKey" json:"id"`
	Content        string `gorm:"type:text;not null" json:"content"`
	SentBy         string `gorm:"type:uuid;not null;index" json:"sent_by"`
	ConversationID string `gorm:"type:uuid;not null;index:idx_conversation_created" json:"conversation_id"`
	// ParentID references the message being replied to. It must belong to the
	// same conversation and is set to NULL when the parent is removed.
	ParentID  *string    `gorm:"type:uuid;index" json:"parent_id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index:idx_conversation_created" json:"created_at"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`

	ReadReceipts []ReadReceipt `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
	Sender       *User         `gorm:"foreignKey:SentBy;constraint:OnDelete:CASCADE" json:"-"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// ReadReceipt records whether a participant has seen a message. One row exists
// per (message, non-sender participant) pair.
type ReadReceipt struct {
	ID        string     `gorm:"type:uuid;primaryKey" json:"id"`
	MessageID string     `gorm:"type:uuid;not null;uniqueIndex:read_receipts_unique,priority:2" json:"message_id"`
	UserID    string     `gorm:"type:uuid;not null;uniqueIndex:read_receipts_unique,priority:1" json:"user_id"`
	IsSeen    bool       `gorm:"not null;default:false" json:"is_seen"`
	SeenAt    *time.Time `json:"seen_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (r *ReadReceipt) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// All lists every persistent model, in migration order.
func All() []any {
	return []any{
		&User{},
		&Profile{},
		&Conversation{},
		&UserConversation{},
		&Message{},
		&ReadReceipt{},
	}
}
