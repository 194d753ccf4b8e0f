package conversation

import (
	"context"
	"strings"

	"dmsync/backend/internal/apperrors"
	"dmsync/backend/internal/models"
	"dmsync/backend/internal/storage"
)

// PostMessageInput addresses a message either to an existing conversation or,
// on first contact, to a target user.
type PostMessageInput struct {
	ConversationID string  `json:"conversation_id"`
	TargetUserID   string  `json:"target_user_id"`
	Content        string  `json:"content"`
	ReplyToID      *string `json:"reply_to_id"`
}

// PostMessage commits a message and the read receipts of every other
// participant in one transaction, then publishes the change events.
func (s *Service) PostMessage(ctx context.Context, senderID string, in PostMessageInput) (*models.NewMessagePayload, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperrors.NewInvalidRequest("message content is required")
	}
	if in.ReplyToID != nil && *in.ReplyToID != "" && !storage.IsID(*in.ReplyToID) {
		return nil, apperrors.NewInvalidRequest("reply target is not part of this conversation")
	}
	if in.ConversationID == "" {
		if err := s.validateTarget(ctx, senderID, in.TargetUserID); err != nil {
			return nil, err
		}
	}

	var result *models.NewMessagePayload
	err := s.store.Transaction(ctx, func(tx *storage.Service) error {
		conversationID, err := s.conversationFor(ctx, tx, senderID, in)
		if err != nil {
			return err
		}

		if in.ReplyToID != nil && *in.ReplyToID != "" {
			parent, err := tx.FindMessage(ctx, *in.ReplyToID)
			if err != nil {
				return err
			}
			if parent == nil || parent.ConversationID != conversationID {
				return apperrors.NewInvalidRequest("reply target is not part of this conversation")
			}
		}

		now := s.now()
		msg := &models.Message{
			Content:        content,
			SentBy:         senderID,
			ConversationID: conversationID,
			CreatedAt:      now,
		}
		if in.ReplyToID != nil && *in.ReplyToID != "" {
			parentID := *in.ReplyToID
			msg.ParentID = &parentID
		}
		if err := tx.CreateMessage(ctx, msg); err != nil {
			return err
		}
		if err := tx.TouchConversation(ctx, conversationID, now); err != nil {
			return err
		}

		participants, err := tx.ParticipantIDs(ctx, conversationID)
		if err != nil {
			return err
		}
		receipts := make([]models.ReadReceipt, 0, len(participants))
		for _, userID := range participants {
			if userID != senderID {
				receipts = append(receipts, models.ReadReceipt{MessageID: msg.ID, UserID: userID})
			}
		}
		if err := tx.CreateReceipts(ctx, receipts); err != nil {
			return err
		}

		views, err := hydrate(ctx, tx, []models.Message{*msg})
		if err != nil {
			return err
		}
		result = &models.NewMessagePayload{
			Conversation: models.ConversationRef{ID: conversationID, ParticipantIDs: participants},
			Message:      views[0],
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdate(ctx, result.Conversation.ID, models.NewMessageUpdate(result.Conversation, result.Message))
	var others []string
	for _, userID := range result.Conversation.ParticipantIDs {
		if userID != senderID {
			others = append(others, userID)
		}
	}
	s.signalInbox(ctx, others...)

	s.logger.Debugw("Message committed",
		"conversation_id", result.Conversation.ID,
		"message_id", result.Message.ID,
		"receipts", len(result.Message.ReadReceipts),
	)
	return result, nil
}

func (s *Service) conversationFor(ctx context.Context, tx *storage.Service, senderID string, in PostMessageInput) (string, error) {
	if in.ConversationID == "" {
		return resolveOrCreate(ctx, tx, senderID, in.TargetUserID)
	}

	if !storage.IsID(in.ConversationID) {
		return "", apperrors.NewNotFound("conversation not found")
	}
	ok, err := tx.IsParticipant(ctx, in.ConversationID, senderID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperrors.NewNotFound("conversation not found")
	}
	return in.ConversationID, nil
}
