package chathub_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"dmsync/backend/internal/account"
	"dmsync/backend/internal/auth"
	"dmsync/backend/internal/chathub"
	"dmsync/backend/internal/conversation"
	"dmsync/backend/internal/models"
	"dmsync/backend/internal/presence"
	"dmsync/backend/internal/storage"
	"dmsync/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	gw       *chathub.Gateway
	store    *storage.Service
	events   *storage.RedisStore
	accounts *account.Service
	convs    *conversation.Service
	tracker  *presence.Tracker
	verifier *auth.JWTVerifier
	clock    *testClock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := storagetest.NewService(t)
	_, events := storagetest.NewRedis(t)
	logger := zap.NewNop()

	e := &env{
		store:    store,
		events:   events,
		accounts: account.NewService(store, events, logger),
		convs:    conversation.NewService(store, events, logger),
		tracker:  presence.NewTracker(events, logger),
		verifier: auth.NewJWTVerifier("test-secret", "dmsync-test"),
		clock:    &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	e.tracker.SetClock(e.clock.Now)

	e.gw = chathub.NewGateway(chathub.Dependencies{
		Verifier:      e.verifier,
		Users:         e.accounts,
		Conversations: e.convs,
		Typing:        e.tracker,
		Events:        events,
		Logger:        logger,
	})
	e.gw.SweepInterval = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = e.gw.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-e.gw.Done()
	})
	return e
}

// user seeds a user and issues a token for it.
func (e *env) user(t *testing.T, name string) (*models.User, string) {
	t.Helper()
	u := storagetest.SeedUser(t, e.store, name)
	token, err := e.verifier.Issue(u.AuthSubject, time.Hour)
	require.NoError(t, err)
	return u, token
}
