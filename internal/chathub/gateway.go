package chathub

import (
	"context"
	"time"

	"dmsync/backend/internal/auth"
	"dmsync/backend/internal/config"
	"dmsync/backend/internal/models"
	"dmsync/backend/internal/storage"

	"go.uber.org/zap"
)

// UserResolver maps an external auth subject to a user.
type UserResolver interface {
	GetByAuthSubject(ctx context.Context, subject string) (*models.User, error)
}

// ParticipantChecker reports conversation membership.
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
}

// TypingSource reads and maintains typing presence.
type TypingSource interface {
	Snapshot(ctx context.Context, conversationID string) (models.TypingSnapshot, error)
	Sweep(ctx context.Context, conversationID string) (bool, error)
}

// Dependencies are the services subscriptions are activated against.
type Dependencies struct {
	Verifier      auth.Verifier
	Users         UserResolver
	Conversations ParticipantChecker
	Typing        TypingSource
	Events        storage.Ephemeral
	Logger        *zap.Logger
}

// Gateway owns the registry of connected clients. The registry is only
// touched by the Run goroutine; everything else goes through its channels.
type Gateway struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	countCh      chan chan int
	done         chan struct{}

	deps   Dependencies
	logger *zap.SugaredLogger

	// SweepInterval drives the typing sweep of each typing subscription.
	SweepInterval time.Duration
}

func NewGateway(deps Dependencies) *Gateway {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Gateway{
		Clients:       make(map[string]Client),
		RegisterCh:    make(chan Client),
		UnregisterCh:  make(chan Client),
		countCh:       make(chan chan int),
		done:          make(chan struct{}),
		deps:          deps,
		logger:        deps.Logger.Sugar(),
		SweepInterval: config.TypingSweepInterval,
	}
}

// Run processes registrations until ctx is cancelled, then closes every
// client still connected.
func (g *Gateway) Run(ctx context.Context) error {
	defer close(g.done)

	for {
		select {
		case client := <-g.RegisterCh:
			g.Clients[client.ID()] = client
			g.logger.Debugw("Client registered", "client_id", client.ID(), "clients", len(g.Clients))

		case client := <-g.UnregisterCh:
			if _, ok := g.Clients[client.ID()]; ok {
				delete(g.Clients, client.ID())
				g.logger.Debugw("Client unregistered", "client_id", client.ID(), "clients", len(g.Clients))
			}

		case reply := <-g.countCh:
			reply <- len(g.Clients)

		case <-ctx.Done():
			for id, client := range g.Clients {
				client.Close()
				delete(g.Clients, id)
			}
			g.logger.Infow("Gateway stopped")
			return nil
		}
	}
}

// Register adds client to the registry. It is a no-op once the gateway stopped.
func (g *Gateway) Register(client Client) bool {
	select {
	case g.RegisterCh <- client:
		return true
	case <-g.done:
		return false
	}
}

func (g *Gateway) Unregister(client Client) {
	select {
	case g.UnregisterCh <- client:
	case <-g.done:
	}
}

// ClientCount returns the number of registered clients, or 0 after shutdown.
func (g *Gateway) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case g.countCh <- reply:
		return <-reply
	case <-g.done:
		return 0
	}
}

// Done is closed when Run returns.
func (g *Gateway) Done() <-chan struct{} {
	return g.done
}
