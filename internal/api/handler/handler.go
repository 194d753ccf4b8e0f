package handler

import (
	"context"
	"time"

	"dmsync/backend/internal/apperrors"
	"dmsync/backend/internal/auth"
	"dmsync/backend/internal/chathub"
	"dmsync/backend/internal/conversation"
	"dmsync/backend/internal/models"
	"dmsync/backend/internal/storage"

	"go.uber.org/zap"
)

type AccountService interface {
	CreateUser(ctx context.Context, authSubject, email string, displayName *string) (*models.User, error)
	GetByAuthSubject(ctx context.Context, subject string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	ListProfiles(ctx context.Context, userID string) ([]models.Profile, error)
	TouchLastActiveAt(ctx context.Context, userID string) error
	GetLastActiveAt(ctx context.Context, userIDs []string) (map[string]*time.Time, error)
}

type ConversationService interface {
	CreateOrFindConversation(ctx context.Context, requesterID, otherUserID string) (string, error)
	FindDirectConversation(ctx context.Context, requesterID, otherUserID string) (string, error)
	PostMessage(ctx context.Context, senderID string, in conversation.PostMessageInput) (*models.NewMessagePayload, error)
	MarkRead(ctx context.Context, userID, conversationID string, messageIDs []string) ([]models.ReadReceipt, error)
	GetConversation(ctx context.Context, userID, conversationID string) (*models.ConversationView, error)
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
}

type PresenceService interface {
	SetTyping(ctx context.Context, userID, conversationID string, isTyping bool, profile models.ProfileSnapshot) error
	Snapshot(ctx context.Context, conversationID string) (models.TypingSnapshot, error)
}

type HealthChecker interface {
	Check(ctx context.Context) storage.HealthStatus
}

// Handler serves the HTTP API and the WebSocket gateway endpoint.
type Handler struct {
	Accounts      AccountService
	Conversations ConversationService
	Presence      PresenceService
	Verifier      auth.Verifier
	Gateway       *chathub.Gateway
	Health        HealthChecker

	errors *apperrors.GinErrorHandler
	logger *zap.SugaredLogger
}

func NewHandler(
	accounts AccountService,
	conversations ConversationService,
	presence PresenceService,
	verifier auth.Verifier,
	gateway *chathub.Gateway,
	health HealthChecker,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Accounts:      accounts,
		Conversations: conversations,
		Presence:      presence,
		Verifier:      verifier,
		Gateway:       gateway,
		Health:        health,
		errors:        &apperrors.GinErrorHandler{Logger: logger},
		logger:        logger.Sugar(),
	}
}
