package handler_test

import (
	"context"
	"time"

	"dmsync/backend/internal/apperrors"
	"dmsync/backend/internal/auth"
	"dmsync/backend/internal/conversation"
	"dmsync/backend/internal/models"
	"dmsync/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) CreateUser(ctx context.Context, subject, email string, displayName *string) (*models.User, error) {
	args := m.Called(ctx, subject, email, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAccounts) GetByAuthSubject(ctx context.Context, subject string) (*models.User, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAccounts) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockAccounts) ListProfiles(ctx context.Context, userID string) ([]models.Profile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Profile), args.Error(1)
}

func (m *MockAccounts) TouchLastActiveAt(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockAccounts) GetLastActiveAt(ctx context.Context, userIDs []string) (map[string]*time.Time, error) {
	args := m.Called(ctx, userIDs)
	return args.Get(0).(map[string]*time.Time), args.Error(1)
}

type MockConversations struct {
	mock.Mock
}

func (m *MockConversations) CreateOrFindConversation(ctx context.Context, requesterID, otherUserID string) (string, error) {
	args := m.Called(ctx, requesterID, otherUserID)
	return args.String(0), args.Error(1)
}

func (m *MockConversations) FindDirectConversation(ctx context.Context, requesterID, otherUserID string) (string, error) {
	args := m.Called(ctx, requesterID, otherUserID)
	return args.String(0), args.Error(1)
}

func (m *MockConversations) PostMessage(ctx context.Context, senderID string, in conversation.PostMessageInput) (*models.NewMessagePayload, error) {
	args := m.Called(ctx, senderID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NewMessagePayload), args.Error(1)
}

func (m *MockConversations) MarkRead(ctx context.Context, userID, conversationID string, messageIDs []string) ([]models.ReadReceipt, error) {
	args := m.Called(ctx, userID, conversationID, messageIDs)
	return args.Get(0).([]models.ReadReceipt), args.Error(1)
}

func (m *MockConversations) GetConversation(ctx context.Context, userID, conversationID string) (*models.ConversationView, error) {
	args := m.Called(ctx, userID, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConversationView), args.Error(1)
}

func (m *MockConversations) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.ConversationSummary), args.Error(1)
}

func (m *MockConversations) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

type MockPresence struct {
	mock.Mock
}

func (m *MockPresence) SetTyping(ctx context.Context, userID, conversationID string, isTyping bool, profile models.ProfileSnapshot) error {
	return m.Called(ctx, userID, conversationID, isTyping, profile).Error(0)
}

func (m *MockPresence) Snapshot(ctx context.Context, conversationID string) (models.TypingSnapshot, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(models.TypingSnapshot), args.Error(1)
}

type staticHealth struct {
	status storage.HealthStatus
}

func (s staticHealth) Check(context.Context) storage.HealthStatus {
	return s.status
}

// tokenVerifier accepts tokens of the form "valid:<subject>".
type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	if len(token) > 6 && token[:6] == "valid:" {
		return auth.Identity{Subject: token[6:]}, nil
	}
	return auth.Identity{}, apperrors.NewUnauthenticated("invalid or expired token")
}
