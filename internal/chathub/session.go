package chathub

import (
	"dmsync/backend/internal/apperrors"
	"dmsync/backend/internal/config"
)

// Session holds the subscriptions of one client. It is driven by a single
// goroutine (the client's read pump) and is not safe for concurrent use.
type Session struct {
	gw     *Gateway
	client Client
	subs   map[string]*Subscription
}

func (g *Gateway) NewSession(client Client) *Session {
	return &Session{gw: g, client: client, subs: make(map[string]*Subscription)}
}

// Handle processes one client frame.
func (s *Session) Handle(frame ClientFrame) {
	switch frame.Type {
	case FramePing:
		s.client.Deliver(ServerFrame{Type: FramePong, ID: frame.ID})

	case FrameSubscribe:
		s.subscribe(frame)

	case FrameUnsubscribe:
		if sub, ok := s.subs[frame.ID]; ok {
			sub.Close()
			delete(s.subs, frame.ID)
		}
		s.client.Deliver(ServerFrame{Type: FrameClosed, ID: frame.ID})

	default:
		s.client.Deliver(errorFrame(frame.ID, apperrors.NewInvalidRequest("unknown frame type")))
	}
}

func (s *Session) subscribe(frame ClientFrame) {
	if frame.ID == "" {
		s.client.Deliver(errorFrame("", apperrors.NewInvalidRequest("subscription id is required")))
		return
	}

	s.prune()
	if _, ok := s.subs[frame.ID]; ok {
		s.client.Deliver(errorFrame(frame.ID, apperrors.NewInvalidRequest("subscription id already in use")))
		return
	}
	if len(s.subs) >= config.MaxSubscriptions {
		s.client.Deliver(errorFrame(frame.ID, apperrors.NewInvalidRequest("too many subscriptions")))
		return
	}

	sub := newSubscription(s.gw, s.client, frame)
	s.subs[frame.ID] = sub
	go sub.activate()
}

// prune forgets subscriptions that closed on their own, e.g. failed activation.
func (s *Session) prune() {
	for id, sub := range s.subs {
		if sub.State() == StateClosed {
			delete(s.subs, id)
		}
	}
}

// Subscription returns the live subscription registered under id.
func (s *Session) Subscription(id string) (*Subscription, bool) {
	sub, ok := s.subs[id]
	return sub, ok
}

// Close tears down every subscription.
func (s *Session) Close() {
	for id, sub := range s.subs {
		sub.Close()
		delete(s.subs, id)
	}
}
