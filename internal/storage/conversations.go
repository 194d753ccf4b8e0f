package storage

import (
	"context"
	"sort"
	"time"

	"dmsync/backend/internal/models"

	"github.com/pkg/errors"
)

// FindSharedConversationID returns the id of a conversation both users take
// part in, or "" when there is none.
func (s *Service) FindSharedConversationID(ctx context.Context, userA, userB string) (string, error) {
	var ids []string
	err := s.db(ctx).Model(&models.UserConversation{}).
		Select("conversation_id").
		Where("user_id IN ?", []string{userA, userB}).
		Group("conversation_id").
		Having("COUNT(DISTINCT user_id) >= ?", 2).
		Limit(1).
		Pluck("conversation_id", &ids).Error
	if err != nil {
		return "", errors.Wrap(err, "storage.FindSharedConversationID")
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

func (s *Service) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if err := s.db(ctx).Omit("Messages", "Participants").Create(conv).Error; err != nil {
		return errors.Wrap(err, "storage.CreateConversation")
	}
	return nil
}

// AddParticipants links every user to the conversation as visible.
func (s *Service) AddParticipants(ctx context.Context, conversationID string, userIDs ...string) error {
	links := make([]models.UserConversation, 0, len(userIDs))
	for _, id := range userIDs {
		links = append(links, models.UserConversation{UserID: id, ConversationID: conversationID, Visible: true})
	}
	if err := s.db(ctx).Omit("User").Create(&links).Error; err != nil {
		return errors.Wrap(err, "storage.AddParticipants")
	}
	return nil
}

func (s *Service) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var count int64
	err := s.db(ctx).Model(&models.UserConversation{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "storage.IsParticipant")
	}
	return count > 0, nil
}

// ParticipantIDs returns the conversation members sorted by user id.
func (s *Service) ParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	var ids []string
	err := s.db(ctx).Model(&models.UserConversation{}).
		Where("conversation_id = ?", conversationID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage.ParticipantIDs")
	}
	sort.Strings(ids)
	return ids, nil
}

// ParticipantsByConversation returns the member ids of each conversation.
func (s *Service) ParticipantsByConversation(ctx context.Context, conversationIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}

	var links []models.UserConversation
	err := s.db(ctx).
		Where("conversation_id IN ?", conversationIDs).
		Order("user_id ASC").
		Find(&links).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage.ParticipantsByConversation")
	}
	for _, l := range links {
		out[l.ConversationID] = append(out[l.ConversationID], l.UserID)
	}
	return out, nil
}

// VisibleConversationIDs lists the conversations userID has not hidden.
func (s *Service) VisibleConversationIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db(ctx).Model(&models.UserConversation{}).
		Where("user_id = ? AND visible = ?", userID, true).
		Pluck("conversation_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage.VisibleConversationIDs")
	}
	return ids, nil
}

func (s *Service) TouchConversation(ctx context.Context, conversationID string, at time.Time) error {
	err := s.db(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", at).Error
	if err != nil {
		return errors.Wrap(err, "storage.TouchConversation")
	}
	return nil
}
