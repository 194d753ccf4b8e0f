package config

import "time"

const (
	// Typing presence
	TypingStaleAfter    = 3 * time.Second
	TypingSweepInterval = 3 * time.Second
	TypingStateTTL      = 12 * time.Hour

	// Last-active-at
	LastActiveAtTTL = 30 * 24 * time.Hour

	// Listings
	ProfilesPageSize = 50

	// Gateway
	ClientSendBuffer    = 256
	SubscribeTimeout    = 5 * time.Second
	MaxSubscriptions    = 32
	MaxWatchedUsers     = 500
	PublishTimeout      = 2 * time.Second
	ShutdownGracePeriod = 10 * time.Second
)
