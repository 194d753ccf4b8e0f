package conversation

import (
	"context"

	"dmsync/backend/internal/apperrors"
	"dmsync/backend/internal/models"
	"dmsync/backend/internal/storage"
)

// MarkRead flags userID's receipts for messageIDs as seen. Ids that are not
// messages of the conversation, or that have no unseen receipt of the user,
// are skipped. It returns only the receipts that changed.
func (s *Service) MarkRead(ctx context.Context, userID, conversationID string, messageIDs []string) ([]models.ReadReceipt, error) {
	if conversationID == "" {
		return nil, apperrors.NewInvalidRequest("conversation id is required")
	}
	if !storage.IsID(conversationID) {
		return nil, apperrors.NewNotFound("conversation not found")
	}
	var ids []string
	for _, id := range messageIDs {
		if storage.IsID(id) {
			ids = append(ids, id)
		}
	}

	var updated []models.ReadReceipt
	err := s.store.Transaction(ctx, func(tx *storage.Service) error {
		ok, err := tx.IsParticipant(ctx, conversationID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewNotFound("conversation not found")
		}

		msgs, err := tx.MessagesByIDs(ctx, ids)
		if err != nil {
			return err
		}
		var owned []string
		for id, msg := range msgs {
			if msg.ConversationID == conversationID {
				owned = append(owned, id)
			}
		}

		updated, err = tx.MarkReceiptsSeen(ctx, userID, owned, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		updated = []models.ReadReceipt{}
	}

	if len(updated) > 0 {
		s.publishUpdate(ctx, conversationID, models.ReadMessageUpdate(updated))
		s.signalInbox(ctx, userID)
	}
	return updated, nil
}
