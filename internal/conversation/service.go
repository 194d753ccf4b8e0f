// Package conversation implements conversation resolution, the message commit
// pipeline, read receipts and the conversation read models.
package conversation

import (
	"context"
	"encoding/json"
	"time"

	"dmsync/backend/internal/config"
	"dmsync/backend/internal/models"
	"dmsync/backend/internal/storage"

	"go.uber.org/zap"
)

// Publisher delivers change events after a commit.
type Publisher interface {
	Publish(ctx context.Context, topic, message string) error
}

type Service struct {
	store  *storage.Service
	events Publisher
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewService(store *storage.Service, events Publisher, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		events: events,
		logger: logger.Sugar(),
		now:    time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// IsParticipant reports whether userID is a member of conversationID.
func (s *Service) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	if !storage.IsID(conversationID) {
		return false, nil
	}
	return s.store.IsParticipant(ctx, conversationID, userID)
}

// publishUpdate sends update on the conversation topic. Failures are logged
// and swallowed: the data is already committed.
func (s *Service) publishUpdate(ctx context.Context, conversationID string, update models.ConversationUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		s.logger.Errorw("Failed to encode conversation update", "conversation_id", conversationID, "action", update.Action, "error", err)
		return
	}
	s.publish(ctx, storage.ConversationTopic(conversationID), string(payload))
}

// signalInbox tells each user that its conversation list changed.
func (s *Service) signalInbox(ctx context.Context, userIDs ...string) {
	for _, userID := range userIDs {
		s.publish(ctx, storage.InboxTopic(userID), models.SignalUpdate)
	}
}

func (s *Service) publish(ctx context.Context, topic, message string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.PublishTimeout)
	defer cancel()

	if err := s.events.Publish(ctx, topic, message); err != nil {
		s.logger.Warnw("Publish after commit failed", "topic", topic, "error", err)
	}
}
