package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ConversationAction discriminates the variants of ConversationUpdate.
type ConversationAction string

const (
	ActionNewMessage  ConversationAction = "new_message"
	ActionReadMessage ConversationAction = "read_message"
)

// SignalUpdate is the payload-less signal published on inbox and typing topics.
const SignalUpdate = "update"

// ConversationRef identifies the conversation a message was committed to,
// together with the participant set observed inside the commit transaction.
type ConversationRef struct {
	ID             string   `json:"id"`
	ParticipantIDs []string `json:"participant_ids"`
}

// NewMessagePayload is carried by a new_message update.
type NewMessagePayload struct {
	Conversation ConversationRef `json:"conversation"`
	Message      MessageView     `json:"message"`
}

// ConversationUpdate is the event published on a conversation's update topic.
// Exactly one of NewMessage or ReadReceipts is set, selected by Action.
type ConversationUpdate struct {
	Action       ConversationAction
	NewMessage   *NewMessagePayload
	ReadReceipts []ReadReceipt
}

type conversationUpdateWire struct {
	Action  ConversationAction `json:"action"`
	Payload json.RawMessage    `json:"payload"`
}

// NewMessageUpdate builds a new_message update.
func NewMessageUpdate(conv ConversationRef, msg MessageView) ConversationUpdate {
	return ConversationUpdate{
		Action:     ActionNewMessage,
		NewMessage: &NewMessagePayload{Conversation: conv, Message: msg},
	}
}

// ReadMessageUpdate builds a read_message update.
func ReadMessageUpdate(receipts []ReadReceipt) ConversationUpdate {
	return ConversationUpdate{Action: ActionReadMessage, ReadReceipts: receipts}
}

func (u ConversationUpdate) MarshalJSON() ([]byte, error) {
	var payload any
	switch u.Action {
	case ActionNewMessage:
		if u.NewMessage == nil {
			return nil, fmt.Errorf("conversation update %q: missing payload", u.Action)
		}
		payload = u.NewMessage
	case ActionReadMessage:
		receipts := u.ReadReceipts
		if receipts == nil {
			receipts = []ReadReceipt{}
		}
		payload = receipts
	default:
		return nil, fmt.Errorf("conversation update: unknown action %q", u.Action)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(conversationUpdateWire{Action: u.Action, Payload: raw})
}

func (u *ConversationUpdate) UnmarshalJSON(data []byte) error {
	var wire conversationUpdateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch wire.Action {
	case ActionNewMessage:
		var p NewMessagePayload
		if err := json.Unmarshal(wire.Payload, &p); err != nil {
			return err
		}
		*u = ConversationUpdate{Action: wire.Action, NewMessage: &p}
	case ActionReadMessage:
		var receipts []ReadReceipt
		if err := json.Unmarshal(wire.Payload, &receipts); err != nil {
			return err
		}
		*u = ConversationUpdate{Action: wire.Action, ReadReceipts: receipts}
	default:
		return fmt.Errorf("conversation update: unknown action %q", wire.Action)
	}
	return nil
}

// VisibleTo reports whether the update should be delivered to subscriberID.
// Subscribers never receive their own message, and a read_message update is
// only relevant when it contains at least one receipt owned by someone else.
func (u ConversationUpdate) VisibleTo(subscriberID string) bool {
	switch u.Action {
	case ActionNewMessage:
		return u.NewMessage != nil && u.NewMessage.Message.SentBy != subscriberID
	case ActionReadMessage:
		for _, r := range u.ReadReceipts {
			if r.UserID != subscriberID {
				return true
			}
		}
	}
	return false
}

// ProfileSnapshot is the copy of a profile stored in ephemeral presence state.
type ProfileSnapshot struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	DisplayName *string `json:"display_name"`
}

// TypingEntry is one user's typing state in a conversation.
type TypingEntry struct {
	IsTyping    bool            `json:"is_typing"`
	LastTypedAt time.Time       `json:"last_typed_at"`
	Profile     ProfileSnapshot `json:"profile"`
}

// TypingSnapshot maps user ids to their typing state.
type TypingSnapshot map[string]TypingEntry

// LastActiveAtUpdate is published on the global last-active-at topic.
type LastActiveAtUpdate struct {
	UserID       string `json:"user_id"`
	LastActiveAt int64  `json:"last_active_at"`
}
