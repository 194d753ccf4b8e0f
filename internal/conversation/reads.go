package conversation

import (
	"context"
	"sort"

	"dmsync/backend/internal/apperrors"
	"dmsync/backend/internal/models"
)

// GetConversation returns the conversation with every message hydrated,
// oldest first. Non-participants get NotFound.
func (s *Service) GetConversation(ctx context.Context, userID, conversationID string) (*models.ConversationView, error) {
	ok, err := s.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewNotFound("conversation not found")
	}

	msgs, err := s.store.MessagesByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	views, err := hydrate(ctx, s.store, msgs)
	if err != nil {
		return nil, err
	}
	return &models.ConversationView{ID: conversationID, Messages: views}, nil
}

// ListConversations returns userID's inbox: visible conversations with at
// least one message, most recently active first.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	ids, err := s.store.VisibleConversationIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ParticipantsByConversation(ctx, ids)
	if err != nil {
		return nil, err
	}

	others := map[string]struct{}{}
	for _, userIDs := range members {
		for _, id := range userIDs {
			if id != userID {
				others[id] = struct{}{}
			}
		}
	}
	otherIDs := make([]string, 0, len(others))
	for id := range others {
		otherIDs = append(otherIDs, id)
	}
	profiles, err := s.store.ProfilesByUserIDs(ctx, otherIDs)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(ids))
	for _, id := range ids {
		last, err := s.store.LastMessage(ctx, id)
		if err != nil {
			return nil, err
		}
		if last == nil {
			continue
		}

		summary := models.ConversationSummary{
			ID: id,
			LastMessage: models.LastMessage{
				ID:             last.ID,
				Content:        last.Content,
				ConversationID: last.ConversationID,
				CreatedAt:      last.CreatedAt,
				SentBy:         last.SentBy,
			},
			Participants: []models.Participant{},
		}

		receipt, err := s.store.FindReceipt(ctx, userID, last.ID)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			seen := receipt.IsSeen
			summary.LastMessage.IsSeen = &seen
			summary.LastMessage.SeenAt = receipt.SeenAt
		}

		for _, memberID := range members[id] {
			if memberID == userID {
				continue
			}
			p := models.Participant{ID: memberID}
			if profile := profiles[memberID]; profile != nil {
				p.DisplayName = profile.DisplayName
			}
			summary.Participants = append(summary.Participants, p)
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessage.CreatedAt.After(summaries[j].LastMessage.CreatedAt)
	})
	return summaries, nil
}
