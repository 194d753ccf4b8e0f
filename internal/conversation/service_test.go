package conversation_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"dmsync/backend/internal/apperrors"
	"dmsync/backend/internal/conversation"
	"dmsync/backend/internal/models"
	"dmsync/backend/internal/storage"
	"dmsync/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	topic   string
	message string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, message: message})
	return p.err
}

func (p *recordingPublisher) on(topic string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		if e.topic == topic {
			out = append(out, e.message)
		}
	}
	return out
}

type fixture struct {
	svc    *conversation.Service
	store  *storage.Service
	events *recordingPublisher
	a, b   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storagetest.NewService(t)
	events := &recordingPublisher{}
	svc := conversation.NewService(store, events, zap.NewNop())

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	svc.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	})

	return &fixture{
		svc:    svc,
		store:  store,
		events: events,
		a:      storagetest.SeedUser(t, store, "A"),
		b:      storagetest.SeedUser(t, store, "B"),
	}
}

func decodeUpdate(t *testing.T, raw string) models.ConversationUpdate {
	t.Helper()
	var update models.ConversationUpdate
	require.NoError(t, json.Unmarshal([]byte(raw), &update))
	return update
}

func TestCreateOrFindConversation_ConvergesRegardlessOfOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateOrFindConversation(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	second, err := f.svc.CreateOrFindConversation(ctx, f.b.ID, f.a.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var count int64
	require.NoError(t, f.store.DB.Model(&models.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	found, err := f.svc.FindDirectConversation(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	assert.Equal(t, first, found)
}

func TestCreateOrFindConversation_ConcurrentCallers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids := make([]string, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, pair := range [][2]string{{f.a.ID, f.b.ID}, {f.b.ID, f.a.ID}} {
		wg.Add(1)
		go func(i int, from, to string) {
			defer wg.Done()
			ids[i], errs[i] = f.svc.CreateOrFindConversation(ctx, from, to)
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, ids[0], ids[1])
}

func TestCreateOrFindConversation_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrFindConversation(ctx, f.a.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	_, err = f.svc.CreateOrFindConversation(ctx, f.a.ID, f.a.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	_, err = f.svc.CreateOrFindConversation(ctx, f.a.ID, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	found, err := f.svc.FindDirectConversation(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestPostMessage_FirstContactCreatesConversationAndReceipts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.PostMessage(ctx, f.a.ID, conversation.PostMessageInput{TargetUserID: f.b.ID, Content: "  hello  "})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Conversation.ID)
	assert.ElementsMatch(t, []string{f.a.ID, f.b.ID}, res.Conversation.ParticipantIDs)
	assert.Equal(t, "hello", res.Message.Content)
	require.NotNil(t, res.Message.Profile)
	assert.Equal(t, "A", *res.Message.Profile.DisplayName)

	require.Len(t, res.Message.ReadReceipts, 1, "one receipt per other participant")
	receipt := res.Message.ReadReceipts[0]
	assert.Equal(t, f.b.ID, receipt.UserID)
	assert.False(t, receipt.IsSeen)
	require.NotNil(t, receipt.Profile)
	assert.Equal(t, "B", *receipt.Profile.DisplayName)

	own, err := f.store.FindReceipt(ctx, f.a.ID, res.Message.ID)
	require.NoError(t, err)
	assert.Nil(t, own, "the sender never gets a receipt")

	updates := f.events.on(storage.ConversationTopic(res.Conversation.ID))
	require.Len(t, updates, 1)
	update := decodeUpdate(t, updates[0])
	assert.Equal(t, models.ActionNewMessage, update.Action)
	assert.Equal(t, res.Message.ID, update.NewMessage.Message.ID)

	assert.Equal(t, []string{models.SignalUpdate}, f.events.on(storage.InboxTopic(f.b.ID)))
	assert.Empty(t, f.events.on(storage.InboxTopic(f.a.ID)))
}

func TestPostMessage_ExistingConversationRequiresParticipation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	outsider := storagetest.SeedUser(t, f.store, "C")

	convID, err := f.svc.CreateOrFindConversation(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)

	_, err = f.svc.PostMessage(ctx, outsider.ID, conversation.PostMessageInput{ConversationID: convID, Content: "hi"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	res, err := f.svc.PostMessage(ctx, f.b.ID, conversation.PostMessageInput{ConversationID: convID, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, convID, res.Conversation.ID)
}

func TestPostMessage_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.PostMessage(ctx, f.a.ID, conversation.PostMessageInput{TargetUserID: f.b.ID, Content: "   "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	_, err = f.svc.PostMessage(ctx, f.a.ID, conversation.PostMessageInput{Content: "hi"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	assert.Empty(t, f.events.events, "nothing is published for rejected input")
}

func TestPostMessage_ReplyMustBeInSameConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := storagetest.SeedUser(t, f.store, "C")

	elsewhere, err := f.svc.PostMessage(ctx, f.a.ID, conversation.PostMessageInput{TargetUserID: c.ID, Content: "other thread"})
	require.NoError(t, err)
	first, err := f.svc.PostMessage(ctx, f.a.ID, conversation.PostMessageInput{TargetUserID: f.b.ID, Content: "first"})
	require.NoError(t, err)

	foreign := elsewhere.Message.ID
	_, err = f.svc.PostMessage(ctx, f.b.ID, conversation.PostMessageInput{
		ConversationID: first.Conversation.ID,
		Content:        "bad reply",
		ReplyToID:      &foreign,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	msgs, err := f.store.MessagesByConversation(ctx, first.Conversation.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "rejected reply must roll back")

	parentID := first.Message.ID
	reply, err := f.svc.PostMessage(ctx, f.b.ID, conversation.PostMessageInput{
		ConversationID: first.Conversation.ID,
		Content:        "good reply",
		ReplyToID:      &parentID,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.Message.Parent)
	assert.Equal(t, "first", reply.Message.Parent.Content)
}

func TestPostMessage_PublishFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("redis down")
	ctx := context.Background()

	res, err := f.svc.PostMessage(ctx, f.a.ID, conversation.PostMessageInput{TargetUserID: f.b.ID, Content: "hi"})
	require.NoError(t, err)

	stored, err := f.store.FindMessage(ctx, res.Message.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestMarkRead_IdempotentAndMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.PostMessage(ctx, f.a.ID, conversation.PostMessageInput{TargetUserID: f.b.ID, Content: "hi"})
	require.NoError(t, err)
	convID := res.Conversation.ID

	updated, err := f.svc.MarkRead(ctx, f.b.ID, convID, []string{res.Message.ID})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	require.NotNil(t, updated[0].SeenAt)
	firstSeen := *updated[0].SeenAt

	again, err := f.svc.MarkRead(ctx, f.b.ID, convID, []string{res.Message.ID})
	require.NoError(t, err)
	assert.Empty(t, again)

	receipt, err := f.store.FindReceipt(ctx, f.b.ID, res.Message.ID)
	require.NoError(t, err)
	require.NotNil(t, receipt.SeenAt)
	assert.True(t, receipt.SeenAt.Equal(firstSeen), "seen_at must not move")

	updates := f.events.on(storage.ConversationTopic(convID))
	require.Len(t, updates, 2, "new_message plus a single read_message")
	readUpdate := decodeUpdate(t, updates[1])
	assert.Equal(t, models.ActionReadMessage, readUpdate.Action)
	assert.True(t, readUpdate.VisibleTo(f.a.ID))
	assert.False(t, readUpdate.VisibleTo(f.b.ID))

	assert.Len(t, f.events.on(storage.InboxTopic(f.b.ID)), 2)
}

func TestMarkRead_SkipsForeignMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := storagetest.SeedUser(t, f.store, "C")

	ab, err := f.svc.PostMessage(ctx, f.a.ID, conversation.PostMessageInput{TargetUserID: f.b.ID, Content: "ab"})
	require.NoError(t, err)
	cb, err := f.svc.PostMessage(ctx, c.ID, conversation.PostMessageInput{TargetUserID: f.b.ID, Content: "cb"})
	require.NoError(t, err)

	updated, err := f.svc.MarkRead(ctx, f.b.ID, ab.Conversation.ID, []string{cb.Message.ID, "missing"})
	require.NoError(t, err)
	assert.Empty(t, updated)

	_, err = f.svc.MarkRead(ctx, c.ID, ab.Conversation.ID, []string{ab.Message.ID})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := storagetest.SeedUser(t, f.store, "C")

	first, err := f.svc.PostMessage(ctx, f.a.ID, conversation.PostMessageInput{TargetUserID: f.b.ID, Content: "one"})
	require.NoError(t, err)
	_, err = f.svc.PostMessage(ctx, f.b.ID, conversation.PostMessageInput{ConversationID: first.Conversation.ID, Content: "two"})
	require.NoError(t, err)

	view, err := f.svc.GetConversation(ctx, f.b.ID, first.Conversation.ID)
	require.NoError(t, err)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, "one", view.Messages[0].Content)
	assert.Equal(t, "two", view.Messages[1].Content)
	require.Len(t, view.Messages[1].ReadReceipts, 1)
	assert.Equal(t, f.a.ID, view.Messages[1].ReadReceipts[0].UserID)

	_, err = f.svc.GetConversation(ctx, c.ID, first.Conversation.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListConversations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := storagetest.SeedUser(t, f.store, "C")

	_, err := f.svc.CreateOrFindConversation(ctx, f.b.ID, c.ID)
	require.NoError(t, err)

	older, err := f.svc.PostMessage(ctx, f.a.ID, conversation.PostMessageInput{TargetUserID: f.b.ID, Content: "from a"})
	require.NoError(t, err)
	newer, err := f.svc.PostMessage(ctx, f.b.ID, conversation.PostMessageInput{TargetUserID: c.ID, Content: "to c"})
	require.NoError(t, err)

	inbox, err := f.svc.ListConversations(ctx, f.b.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 2)

	assert.Equal(t, newer.Conversation.ID, inbox[0].ID)
	assert.Nil(t, inbox[0].LastMessage.IsSeen, "own message has no receipt")
	require.Len(t, inbox[0].Participants, 1)
	assert.Equal(t, c.ID, inbox[0].Participants[0].ID)

	assert.Equal(t, older.Conversation.ID, inbox[1].ID)
	require.NotNil(t, inbox[1].LastMessage.IsSeen)
	assert.False(t, *inbox[1].LastMessage.IsSeen)
	assert.Equal(t, "A", *inbox[1].Participants[0].DisplayName)

	aInbox, err := f.svc.ListConversations(ctx, f.a.ID)
	require.NoError(t, err)
	require.Len(t, aInbox, 1)
	assert.Equal(t, older.Conversation.ID, aInbox[0].ID)
}

func TestMalformedIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrFindConversation(ctx, f.a.ID, "not-an-id")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	found, err := f.svc.FindDirectConversation(ctx, f.a.ID, "not-an-id")
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = f.svc.PostMessage(ctx, f.a.ID, conversation.PostMessageInput{ConversationID: "not-an-id", Content: "hi"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	bad := "not-an-id"
	_, err = f.svc.PostMessage(ctx, f.a.ID, conversation.PostMessageInput{TargetUserID: f.b.ID, Content: "hi", ReplyToID: &bad})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	_, err = f.svc.MarkRead(ctx, f.a.ID, "not-an-id", nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.GetConversation(ctx, f.a.ID, "not-an-id")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	ok, err := f.svc.IsParticipant(ctx, "not-an-id", f.a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
