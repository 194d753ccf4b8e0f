package chathub

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dmsync/backend/internal/apperrors"
	"dmsync/backend/internal/config"
	"dmsync/backend/internal/models"
	"dmsync/backend/internal/presence"
	"dmsync/backend/internal/storage"

	"go.uber.org/zap"
)

// SubscriptionState is the lifecycle of a Subscription:
// Authenticating -> Active -> Closed, or Authenticating -> Closed.
type SubscriptionState int32

const (
	StateAuthenticating SubscriptionState = iota
	StateActive
	StateClosed
)

func (s SubscriptionState) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	default:
		return "closed"
	}
}

// Subscription binds one client channel request to one Ephemeral topic.
type Subscription struct {
	ID      string
	Channel string

	frame  ClientFrame
	gw     *Gateway
	client Client
	logger *zap.SugaredLogger

	state     atomic.Int32
	ctx       context.Context
	cancel    context.CancelFunc
	ready     chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	unsubscribe func()

	// Set during activation, read-only afterwards.
	userID  string
	userIDs map[string]struct{}

	typingMu    sync.Mutex
	typingSent  bool
	typingUsers string
}

func newSubscription(gw *Gateway, client Client, frame ClientFrame) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	return &Subscription{
		ID:      frame.ID,
		Channel: frame.Channel,
		frame:   frame,
		gw:      gw,
		client:  client,
		logger:  gw.logger.With("client_id", client.ID(), "subscription_id", frame.ID, "channel", frame.Channel),
		ctx:     ctx,
		cancel:  cancel,
		ready:   make(chan struct{}),
	}
}

func (s *Subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// Close unregisters the topic handler and stops background work. It is
// idempotent and safe to call before activation finished.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state.Store(int32(StateClosed))
		unsubscribe := s.unsubscribe
		s.unsubscribe = nil
		s.mu.Unlock()

		s.cancel()
		if unsubscribe != nil {
			unsubscribe()
		}
		s.logger.Debugw("Subscription closed")
	})
}

func (s *Subscription) activate() {
	err := s.start()
	if err == nil {
		return
	}

	if s.State() != StateClosed {
		s.client.Deliver(errorFrame(s.ID, err))
		if apperrors.KindOf(err) == apperrors.Internal {
			s.logger.Errorw("Subscription activation failed", "error", err)
		} else {
			s.logger.Debugw("Subscription rejected", "error", err)
		}
	}
	s.Close()
}

func (s *Subscription) start() error {
	ctx, cancel := context.WithTimeout(s.ctx, config.SubscribeTimeout)
	defer cancel()

	identity, err := s.gw.deps.Verifier.Verify(ctx, s.frame.Token)
	if err != nil {
		return err
	}
	user, err := s.gw.deps.Users.GetByAuthSubject(ctx, identity.Subject)
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NewUnauthenticated("user is not registered")
	}
	if err != nil {
		return err
	}
	s.userID = user.ID

	topic, handler, err := s.route(ctx)
	if err != nil {
		return err
	}

	unsubscribe, err := s.gw.deps.Events.Subscribe(ctx, topic, handler)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.State() == StateClosed {
		s.mu.Unlock()
		unsubscribe()
		return nil
	}
	s.unsubscribe = unsubscribe
	s.state.Store(int32(StateActive))
	s.mu.Unlock()

	s.client.Deliver(ServerFrame{Type: FrameSubscribed, ID: s.ID})
	close(s.ready)
	s.logger.Debugw("Subscription active", "user_id", s.userID, "topic", topic)

	if s.Channel == ChannelConversationTyping {
		// Resynchronize before any signal arrives.
		s.refreshTyping()
		go s.sweepLoop()
	}
	return nil
}

func (s *Subscription) route(ctx context.Context) (string, func(string), error) {
	switch s.Channel {
	case ChannelConversationUpdates, ChannelConversationTyping:
		conversationID := s.frame.ConversationID
		if conversationID == "" {
			return "", nil, apperrors.NewInvalidRequest("conversation id is required")
		}
		ok, err := s.gw.deps.Conversations.IsParticipant(ctx, conversationID, s.userID)
		if err != nil {
			return "", nil, err
		}
		if !ok {
			return "", nil, apperrors.NewForbidden("not a participant of this conversation")
		}
		if s.Channel == ChannelConversationUpdates {
			return storage.ConversationTopic(conversationID), s.onConversationUpdate, nil
		}
		return storage.TypingTopic(conversationID), s.onTypingSignal, nil

	case ChannelInboxUpdates:
		return storage.InboxTopic(s.userID), s.onInboxSignal, nil

	case ChannelLastActiveAt:
		if len(s.frame.UserIDs) == 0 {
			return "", nil, apperrors.NewInvalidRequest("user ids are required")
		}
		if len(s.frame.UserIDs) > config.MaxWatchedUsers {
			return "", nil, apperrors.NewInvalidRequest("too many user ids")
		}
		s.userIDs = make(map[string]struct{}, len(s.frame.UserIDs))
		for _, id := range s.frame.UserIDs {
			s.userIDs[id] = struct{}{}
		}
		return storage.LastActiveAtTopic, s.onLastActiveAt, nil

	default:
		return "", nil, apperrors.NewInvalidRequest("unknown channel")
	}
}

// wait blocks topic handlers until the subscribed frame went out.
func (s *Subscription) wait() bool {
	select {
	case <-s.ready:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Subscription) deliver(data json.RawMessage) {
	if s.State() != StateActive {
		return
	}
	if !s.client.Deliver(dataFrame(s.ID, data)) {
		s.logger.Warnw("Frame dropped for slow client")
	}
}

func (s *Subscription) onConversationUpdate(msg string) {
	if !s.wait() {
		return
	}
	var update models.ConversationUpdate
	if err := json.Unmarshal([]byte(msg), &update); err != nil {
		s.logger.Warnw("Ignoring malformed conversation update", "error", err)
		return
	}
	if update.VisibleTo(s.userID) {
		s.deliver(json.RawMessage(msg))
	}
}

func (s *Subscription) onInboxSignal(string) {
	if !s.wait() {
		return
	}
	data, _ := json.Marshal(models.SignalUpdate)
	s.deliver(data)
}

func (s *Subscription) onTypingSignal(string) {
	if !s.wait() {
		return
	}
	s.refreshTyping()
}

func (s *Subscription) onLastActiveAt(msg string) {
	if !s.wait() {
		return
	}
	var update models.LastActiveAtUpdate
	if err := json.Unmarshal([]byte(msg), &update); err != nil {
		s.logger.Warnw("Ignoring malformed last-active update", "error", err)
		return
	}
	if _, ok := s.userIDs[update.UserID]; ok {
		s.deliver(json.RawMessage(msg))
	}
}

// refreshTyping re-reads the snapshot and emits it when the set of typing
// users differs from the last emission. An empty set is sent as null.
func (s *Subscription) refreshTyping() {
	s.typingMu.Lock()
	defer s.typingMu.Unlock()

	snapshot, err := s.gw.deps.Typing.Snapshot(s.ctx, s.frame.ConversationID)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Warnw("Typing snapshot failed", "error", err)
		}
		return
	}

	users := strings.Join(presence.TypingUserIDs(snapshot), ",")
	if s.typingSent && users == s.typingUsers {
		return
	}

	data := nullData
	if users != "" {
		if data, err = json.Marshal(snapshot); err != nil {
			s.logger.Errorw("Failed to encode typing snapshot", "error", err)
			return
		}
	}
	s.typingSent = true
	s.typingUsers = users
	s.deliver(data)
}

func (s *Subscription) sweepLoop() {
	ticker := time.NewTicker(s.gw.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			changed, err := s.gw.deps.Typing.Sweep(s.ctx, s.frame.ConversationID)
			if err != nil {
				if s.ctx.Err() == nil {
					s.logger.Warnw("Typing sweep failed", "error", err)
				}
				continue
			}
			if changed {
				s.refreshTyping()
			}
		}
	}
}
