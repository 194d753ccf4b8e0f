package chathub

import (
	"encoding/json"

	"dmsync/backend/internal/apperrors"
)

// Subscription channels a client can join.
const (
	ChannelConversationUpdates = "conversation.updates"
	ChannelConversationTyping  = "conversation.typing"
	ChannelInboxUpdates        = "inbox.updates"
	ChannelLastActiveAt        = "users.last_active_at"
)

// Client frame types.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
)

// Server frame types.
const (
	FrameSubscribed = "subscribed"
	FrameData       = "data"
	FrameError      = "error"
	FrameClosed     = "closed"
	FramePong       = "pong"
)

// ClientFrame is a message read from a client connection.
type ClientFrame struct {
	Type           string   `json:"type"`
	ID             string   `json:"id,omitempty"`
	Channel        string   `json:"channel,omitempty"`
	Token          string   `json:"token,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
	UserIDs        []string `json:"user_ids,omitempty"`
}

// ServerFrame is a message written to a client connection.
type ServerFrame struct {
	Type  string              `json:"type"`
	ID    string              `json:"id,omitempty"`
	Data  json.RawMessage     `json:"data,omitempty"`
	Error *apperrors.AppError `json:"error,omitempty"`
}

var nullData = json.RawMessage("null")

func dataFrame(id string, data json.RawMessage) ServerFrame {
	return ServerFrame{Type: FrameData, ID: id, Data: data}
}

func errorFrame(id string, err error) ServerFrame {
	return ServerFrame{Type: FrameError, ID: id, Error: apperrors.Public(err)}
}
