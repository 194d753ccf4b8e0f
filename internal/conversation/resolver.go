package conversation

import (
	"context"

	"dmsync/backend/internal/apperrors"
	"dmsync/backend/internal/models"
	"dmsync/backend/internal/storage"
)

// CreateOrFindConversation returns the direct conversation between requesterID
// and otherUserID, creating it if none exists yet.
func (s *Service) CreateOrFindConversation(ctx context.Context, requesterID, otherUserID string) (string, error) {
	if err := s.validateTarget(ctx, requesterID, otherUserID); err != nil {
		return "", err
	}

	var conversationID string
	err := s.store.Transaction(ctx, func(tx *storage.Service) error {
		id, err := resolveOrCreate(ctx, tx, requesterID, otherUserID)
		conversationID = id
		return err
	})
	if err != nil {
		return "", err
	}
	return conversationID, nil
}

// FindDirectConversation returns the conversation shared by the two users, or
// "" when they have none.
func (s *Service) FindDirectConversation(ctx context.Context, requesterID, otherUserID string) (string, error) {
	if otherUserID == "" {
		return "", apperrors.NewInvalidRequest("user id is required")
	}
	if !storage.IsID(otherUserID) {
		return "", nil
	}
	return s.store.FindSharedConversationID(ctx, requesterID, otherUserID)
}

func (s *Service) validateTarget(ctx context.Context, requesterID, otherUserID string) error {
	if otherUserID == "" {
		return apperrors.NewInvalidRequest("conversation id or target user id is required")
	}
	if otherUserID == requesterID {
		return apperrors.NewInvalidRequest("cannot start a conversation with yourself")
	}
	if !storage.IsID(otherUserID) {
		return apperrors.NewNotFound("user not found")
	}
	exists, err := s.store.UserExists(ctx, otherUserID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.NewNotFound("user not found")
	}
	return nil
}

// resolveOrCreate runs inside its own savepoint of tx. Two first-contact
// requests racing past the lookup can both insert; the pair is not unique.
func resolveOrCreate(ctx context.Context, tx *storage.Service, requesterID, otherUserID string) (string, error) {
	var conversationID string
	err := tx.Transaction(ctx, func(inner *storage.Service) error {
		existing, err := inner.FindSharedConversationID(ctx, requesterID, otherUserID)
		if err != nil {
			return err
		}
		if existing != "" {
			conversationID = existing
			return nil
		}

		conv := &models.Conversation{}
		if err := inner.CreateConversation(ctx, conv); err != nil {
			return err
		}
		if err := inner.AddParticipants(ctx, conv.ID, requesterID, otherUserID); err != nil {
			return err
		}
		conversationID = conv.ID
		return nil
	})
	return conversationID, err
}
