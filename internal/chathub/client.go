package chathub

// Client is one connection registered with the Gateway. The WebSocket client
// is the production implementation.
type Client interface {
	// ID identifies the connection, not the user.
	ID() string
	// Deliver queues frame for writing without blocking. It reports false
	// when the frame was dropped because the client is slow or closed.
	Deliver(frame ServerFrame) bool
	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the connection down. It is safe to call more than once.
	Close()
}
