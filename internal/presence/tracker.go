package presence

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"dmsync/backend/internal/config"
	"dmsync/backend/internal/models"
	"dmsync/backend/internal/storage"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Tracker keeps per-conversation typing state in the Ephemeral store. Writes
// are last-writer-wins over the whole conversation map.
type Tracker struct {
	store  storage.Ephemeral
	logger *zap.SugaredLogger

	now        func() time.Time
	staleAfter time.Duration
	ttl        time.Duration
}

func NewTracker(store storage.Ephemeral, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:      store,
		logger:     logger.Sugar(),
		now:        time.Now,
		staleAfter: config.TypingStaleAfter,
		ttl:        config.TypingStateTTL,
	}
}

// SetClock replaces the time source. Used by tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// SetTyping records that userID started or stopped typing in conversationID.
func (t *Tracker) SetTyping(ctx context.Context, userID, conversationID string, isTyping bool, profile models.ProfileSnapshot) error {
	state, err := t.load(ctx, conversationID)
	if err != nil {
		return err
	}

	now := t.now()
	t.prune(state, now)
	if isTyping {
		state[userID] = models.TypingEntry{IsTyping: true, LastTypedAt: now, Profile: profile}
	} else {
		delete(state, userID)
	}

	return t.save(ctx, conversationID, state)
}

// Snapshot returns the current typing state without stale entries.
func (t *Tracker) Snapshot(ctx context.Context, conversationID string) (models.TypingSnapshot, error) {
	state, err := t.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	t.prune(state, t.now())
	return state, nil
}

// Sweep removes stale entries and, if any were removed, persists the result
// and signals subscribers. It reports whether the state changed.
func (t *Tracker) Sweep(ctx context.Context, conversationID string) (bool, error) {
	state, err := t.load(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if !t.prune(state, t.now()) {
		return false, nil
	}
	if err := t.save(ctx, conversationID, state); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Tracker) load(ctx context.Context, conversationID string) (models.TypingSnapshot, error) {
	raw, ok, err := t.store.Get(ctx, storage.TypingKey(conversationID))
	if err != nil {
		return nil, errors.Wrap(err, "presence: load typing state")
	}

	state := models.TypingSnapshot{}
	if !ok {
		return state, nil
	}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		t.logger.Warnw("Discarding unreadable typing state", "conversation_id", conversationID, "error", err)
		return models.TypingSnapshot{}, nil
	}
	return state, nil
}

func (t *Tracker) save(ctx context.Context, conversationID string, state models.TypingSnapshot) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "presence: encode typing state")
	}
	if err := t.store.Set(ctx, storage.TypingKey(conversationID), string(raw), t.ttl); err != nil {
		return errors.Wrap(err, "presence: store typing state")
	}

	if err := t.store.Publish(ctx, storage.TypingTopic(conversationID), models.SignalUpdate); err != nil {
		t.logger.Warnw("Typing signal not published", "conversation_id", conversationID, "error", err)
	}
	return nil
}

// prune drops entries not typing or last typed longer ago than staleAfter.
func (t *Tracker) prune(state models.TypingSnapshot, now time.Time) bool {
	changed := false
	for userID, entry := range state {
		if !entry.IsTyping || now.Sub(entry.LastTypedAt) > t.staleAfter {
			delete(state, userID)
			changed = true
		}
	}
	return changed
}

// TypingUserIDs returns the sorted ids of the users typing in state.
func TypingUserIDs(state models.TypingSnapshot) []string {
	ids := make([]string, 0, len(state))
	for userID, entry := range state {
		if entry.IsTyping {
			ids = append(ids, userID)
		}
	}
	sort.Strings(ids)
	return ids
}
