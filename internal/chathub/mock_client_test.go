package chathub_test

import (
	"sync/atomic"
	"testing"
	"time"

	"dmsync/backend/internal/chathub"

	"github.com/stretchr/testify/require"
)

type MockClient struct {
	id     string
	Frames chan chathub.ServerFrame
	closed atomic.Bool
}

func newMockClient(id string) *MockClient {
	return &MockClient{
		id:     id,
		Frames: make(chan chathub.ServerFrame, 32),
	}
}

func (c *MockClient) ID() string {
	return c.id
}

func (c *MockClient) Deliver(frame chathub.ServerFrame) bool {
	select {
	case c.Frames <- frame:
		return true
	default:
		return false
	}
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.closed.Store(true)
}

func (c *MockClient) IsClosed() bool {
	return c.closed.Load()
}

// next waits for the next frame and checks its type.
func (c *MockClient) next(t *testing.T, frameType string) chathub.ServerFrame {
	t.Helper()
	select {
	case frame := <-c.Frames:
		require.Equal(t, frameType, frame.Type, "unexpected frame %+v", frame)
		return frame
	case <-time.After(3 * time.Second):
		t.Fatalf("client %s: no %q frame received", c.id, frameType)
		return chathub.ServerFrame{}
	}
}

// silent asserts no frame arrives for a short while.
func (c *MockClient) silent(t *testing.T) {
	t.Helper()
	select {
	case frame := <-c.Frames:
		t.Fatalf("client %s: unexpected frame %+v", c.id, frame)
	case <-time.After(150 * time.Millisecond):
	}
}
