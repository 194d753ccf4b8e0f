package storage

import (
	"context"
	"time"

	"dmsync/backend/internal/models"

	"github.com/pkg/errors"
)

func (s *Service) CreateMessage(ctx context.Context, msg *models.Message) error {
	if err := s.db(ctx).Omit("ReadReceipts", "Sender").Create(msg).Error; err != nil {
		return errors.Wrap(err, "storage.CreateMessage")
	}
	return nil
}

// FindMessage returns nil without error when the message does not exist.
func (s *Service) FindMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	err := s.db(ctx).Where("id = ?", id).First(&msg).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "storage.FindMessage")
	}
	return &msg, nil
}

// MessagesByIDs returns the messages keyed by id.
func (s *Service) MessagesByIDs(ctx context.Context, ids []string) (map[string]*models.Message, error) {
	out := make(map[string]*models.Message, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var msgs []models.Message
	if err := s.db(ctx).Where("id IN ?", ids).Find(&msgs).Error; err != nil {
		return nil, errors.Wrap(err, "storage.MessagesByIDs")
	}
	for i := range msgs {
		out[msgs[i].ID] = &msgs[i]
	}
	return out, nil
}

// MessagesByConversation returns every message of the conversation, oldest first.
func (s *Service) MessagesByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage.MessagesByConversation")
	}
	return msgs, nil
}

// LastMessage returns the newest message of the conversation, or nil if it has none.
func (s *Service) LastMessage(ctx context.Context, conversationID string) (*models.Message, error) {
	var msgs []models.Message
	err := s.db(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(1).
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage.LastMessage")
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}

func (s *Service) CreateReceipts(ctx context.Context, receipts []models.ReadReceipt) error {
	if len(receipts) == 0 {
		return nil
	}
	if err := s.db(ctx).Omit("User").Create(&receipts).Error; err != nil {
		return errors.Wrap(err, "storage.CreateReceipts")
	}
	return nil
}

// ReceiptsByMessageIDs returns the receipts of each message, ordered by owner.
func (s *Service) ReceiptsByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]models.ReadReceipt, error) {
	out := make(map[string][]models.ReadReceipt, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}

	var receipts []models.ReadReceipt
	err := s.db(ctx).
		Where("message_id IN ?", messageIDs).
		Order("user_id ASC").
		Find(&receipts).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage.ReceiptsByMessageIDs")
	}
	for _, r := range receipts {
		out[r.MessageID] = append(out[r.MessageID], r)
	}
	return out, nil
}

// FindReceipt returns nil without error when userID has no receipt for messageID.
func (s *Service) FindReceipt(ctx context.Context, userID, messageID string) (*models.ReadReceipt, error) {
	var receipt models.ReadReceipt
	err := s.db(ctx).Where("user_id = ? AND message_id = ?", userID, messageID).First(&receipt).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "storage.FindReceipt")
	}
	return &receipt, nil
}

// MarkReceiptsSeen flags the unseen receipts of userID for messageIDs and
// returns the rows it changed. Rows already seen keep their seen_at.
func (s *Service) MarkReceiptsSeen(ctx context.Context, userID string, messageIDs []string, at time.Time) ([]models.ReadReceipt, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	var ids []string
	err := s.db(ctx).Model(&models.ReadReceipt{}).
		Where("user_id = ? AND message_id IN ? AND is_seen = ?", userID, messageIDs, false).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage.MarkReceiptsSeen: select")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	err = s.db(ctx).Model(&models.ReadReceipt{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"is_seen": true, "seen_at": at}).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage.MarkReceiptsSeen: update")
	}

	var updated []models.ReadReceipt
	if err := s.db(ctx).Where("id IN ?", ids).Order("message_id ASC").Find(&updated).Error; err != nil {
		return nil, errors.Wrap(err, "storage.MarkReceiptsSeen: reload")
	}
	return updated, nil
}
