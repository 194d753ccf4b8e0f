package conversation

import (
	"context"

	"dmsync/backend/internal/models"
	"dmsync/backend/internal/storage"
)

// hydrate joins each message to its sender profile, its parent and its
// receipts with their owners' profiles. Order is preserved.
func hydrate(ctx context.Context, store *storage.Service, msgs []models.Message) ([]models.MessageView, error) {
	if len(msgs) == 0 {
		return []models.MessageView{}, nil
	}

	messageIDs := make([]string, 0, len(msgs))
	var parentIDs []string
	userIDs := map[string]struct{}{}
	for _, m := range msgs {
		messageIDs = append(messageIDs, m.ID)
		userIDs[m.SentBy] = struct{}{}
		if m.ParentID != nil {
			parentIDs = append(parentIDs, *m.ParentID)
		}
	}

	receipts, err := store.ReceiptsByMessageIDs(ctx, messageIDs)
	if err != nil {
		return nil, err
	}
	for _, rs := range receipts {
		for _, r := range rs {
			userIDs[r.UserID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(userIDs))
	for id := range userIDs {
		ids = append(ids, id)
	}
	profiles, err := store.ProfilesByUserIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	parents, err := store.MessagesByIDs(ctx, parentIDs)
	if err != nil {
		return nil, err
	}

	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		view := models.MessageView{
			Message:      m,
			Profile:      profiles[m.SentBy],
			ReadReceipts: make([]models.ReceiptView, 0, len(receipts[m.ID])),
		}
		if m.ParentID != nil {
			view.Parent = parents[*m.ParentID]
		}
		for _, r := range receipts[m.ID] {
			view.ReadReceipts = append(view.ReadReceipts, models.ReceiptView{ReadReceipt: r, Profile: profiles[r.UserID]})
		}
		views = append(views, view)
	}
	return views, nil
}
