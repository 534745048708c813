package gateway

import "time"

// InboundMessage is a visitor message arriving from a channel adapter.
type InboundMessage struct {
	ChannelType string // "discord"
	ChannelID   string
	PeerID      string
	PeerName    string
	Text        string
	ReplyToID   string // original message ID for threading
	Timestamp   time.Time
}

// OutboundMessage is a reply headed back to a channel.
type OutboundMessage struct {
	ChannelType string
	ChannelID   string
	Text        string
	ReplyToID   string
}

// MessageBus decouples channel adapters from session routing.
type MessageBus struct {
	Inbound  chan InboundMessage
	Outbound chan OutboundMessage
}

// NewMessageBus creates a message bus with buffered channels.
func NewMessageBus(bufferSize int) *MessageBus {
	return &MessageBus{
		Inbound:  make(chan InboundMessage, bufferSize),
		Outbound: make(chan OutboundMessage, bufferSize),
	}
}

// reply addresses text to the channel and message that produced in.
func reply(in InboundMessage, text string) OutboundMessage {
	return OutboundMessage{
		ChannelType: in.ChannelType,
		ChannelID:   in.ChannelID,
		Text:        text,
		ReplyToID:   in.ReplyToID,
	}
}
