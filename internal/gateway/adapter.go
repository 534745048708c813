package gateway

import "context"

// Adapter is the interface all channel adapters implement.
type Adapter interface {
	// Start begins listening for messages. Blocks until ctx is cancelled.
	Start(ctx context.Context) error
	Stop() error
	// Send delivers a reply to the channel it names.
	Send(ctx context.Context, msg OutboundMessage) error
	// SendTyping shows a typing indicator while the assistant works.
	SendTyping(ctx context.Context, channelID string) error
}
