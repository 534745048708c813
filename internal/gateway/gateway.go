package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"connectrpc.com/connect"

	"github.com/fpt/cobrowse/internal/app"
	"github.com/fpt/cobrowse/internal/connectrpc"
	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
)

// Gateway routes chat messages from adapters to co-browsing sessions.
type Gateway struct {
	config   *GatewayConfig
	bus      *MessageBus
	sessions *SessionManager
	reaper   *Reaper
	adapters map[string]Adapter
	logger   *pkgLogger.Logger
}

// NewGateway creates a gateway connected to the co-browsing service via Connect RPC.
func NewGateway(cfg *GatewayConfig, logger *pkgLogger.Logger) (*Gateway, error) {
	client := connectrpc.NewClient(http.DefaultClient, cfg.ServerAddr)
	gw := newGateway(cfg, client, logger)

	if cfg.Discord.Token != "" {
		discord, err := NewDiscordAdapter(gw.bus, cfg.Discord, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create discord adapter: %w", err)
		}
		gw.adapters["discord"] = discord
	}
	return gw, nil
}

func newGateway(cfg *GatewayConfig, client ServiceClient, logger *pkgLogger.Logger) *Gateway {
	sessions := NewSessionManager(client)
	return &Gateway{
		config:   cfg,
		bus:      NewMessageBus(64),
		sessions: sessions,
		reaper:   NewReaper(sessions, cfg.IdleTimeout(), logger),
		adapters: make(map[string]Adapter),
		logger:   logger.WithComponent("gateway"),
	}
}

// Run starts all adapters and processes messages. Blocks until ctx is cancelled.
func (gw *Gateway) Run(ctx context.Context) error {
	for name, a := range gw.adapters {
		gw.logger.InfoWithIntention(pkgLogger.IntentionTransport, "Starting adapter", "adapter", name)
		go func(n string, ad Adapter) {
			if err := ad.Start(ctx); err != nil {
				gw.logger.ErrorWithIntention(pkgLogger.IntentionError, "Adapter failed", "adapter", n, "error", err)
			}
		}(name, a)
	}

	go gw.reaper.Start(ctx)
	go gw.dispatchOutbound(ctx)

	gw.logger.InfoWithIntention(pkgLogger.IntentionStatus, "Gateway running, processing messages")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-gw.bus.Inbound:
			go gw.handleInbound(ctx, msg)
		}
	}
}

func (gw *Gateway) handleInbound(ctx context.Context, msg InboundMessage) {
	for _, out := range gw.respond(ctx, msg) {
		gw.bus.Outbound <- out
	}
}

// respond produces the replies to one inbound message, in order.
func (gw *Gateway) respond(ctx context.Context, msg InboundMessage) []OutboundMessage {
	key := SessionKey{
		ChannelType: msg.ChannelType,
		ChannelID:   msg.ChannelID,
		PeerID:      msg.PeerID,
	}

	if strings.HasPrefix(msg.Text, "!") {
		return []OutboundMessage{reply(msg, gw.handleCommand(ctx, key, msg.Text))}
	}

	session, greeting, err := gw.sessions.GetOrCreateSession(ctx, key)
	if err != nil {
		gw.logger.ErrorWithIntention(pkgLogger.IntentionError, "Failed to get session", "error", err, "peer", msg.PeerName)
		return []OutboundMessage{reply(msg, "Sorry, I couldn't reach the assistant right now.")}
	}

	var replies []OutboundMessage
	if greeting != "" {
		replies = append(replies, reply(msg, greeting))
	}

	if a, ok := gw.adapters[msg.ChannelType]; ok {
		_ = a.SendTyping(ctx, msg.ChannelID)
	}

	return append(replies, gw.ask(ctx, session, msg, msg.Text)...)
}

func (gw *Gateway) ask(ctx context.Context, session *Session, msg InboundMessage, text string) []OutboundMessage {
	resp, err := gw.sessions.client.SendMessage(ctx, connectrpc.SendMessageRequest{
		SessionID: session.RemoteID,
		Text:      text,
		Execute:   gw.config.ExecuteTools,
	})
	if err != nil {
		var connectErr *connect.Error
		if errors.As(err, &connectErr) && connectErr.Code() == connect.CodeFailedPrecondition {
			return []OutboundMessage{reply(msg, connectErr.Message())}
		}
		gw.logger.ErrorWithIntention(pkgLogger.IntentionError, "SendMessage failed", "error", err, "peer", msg.PeerName)
		return []OutboundMessage{reply(msg, app.GenericErrorReply)}
	}

	replies := []OutboundMessage{reply(msg, resp.Text)}
	if resp.Outcome != nil {
		if resp.Outcome.Success {
			replies = append(replies, reply(msg, "🔧 "+resp.Outcome.Message))
		} else {
			replies = append(replies, reply(msg, app.FailureMessage(*resp.Outcome)))
		}
	}
	return replies
}

func (gw *Gateway) handleCommand(ctx context.Context, key SessionKey, text string) string {
	parts := strings.Fields(text)
	cmd := strings.TrimPrefix(parts[0], "!")

	switch cmd {
	case "clear":
		if err := gw.sessions.ClearSession(ctx, key); err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		return "Conversation cleared. Starting fresh."
	case "quick":
		session, _, err := gw.sessions.GetOrCreateSession(ctx, key)
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		if len(parts) > 1 {
			n, err := strconv.Atoi(parts[1])
			if err != nil || n < 1 || n > len(session.QuickActions) {
				return fmt.Sprintf("Usage: !quick <1-%d>", len(session.QuickActions))
			}
			// answered like a typed message
			resp := gw.ask(ctx, session, InboundMessage{}, session.QuickActions[n-1].Query)
			texts := make([]string, 0, len(resp))
			for _, r := range resp {
				texts = append(texts, r.Text)
			}
			return strings.Join(texts, "\n\n")
		}
		var b strings.Builder
		b.WriteString("**Quick actions:**\n")
		for i, qa := range session.QuickActions {
			fmt.Fprintf(&b, "`!quick %d` %s\n", i+1, qa.Label)
		}
		return strings.TrimRight(b.String(), "\n")
	case "help":
		return "**Available commands:**\n" +
			"`!clear` Clear conversation\n" +
			"`!quick` List quick actions, `!quick <n>` runs one\n" +
			"`!help` Show this help"
	default:
		return fmt.Sprintf("Unknown command: !%s. Use !help for available commands.", cmd)
	}
}

func (gw *Gateway) dispatchOutbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-gw.bus.Outbound:
			if a, ok := gw.adapters[msg.ChannelType]; ok {
				if err := a.Send(ctx, msg); err != nil {
					gw.logger.ErrorWithIntention(pkgLogger.IntentionError, "Failed to send outbound message", "error", err)
				}
			}
		}
	}
}

// Close ends all sessions and shuts down all adapters.
func (gw *Gateway) Close() error {
	gw.sessions.CloseAll(context.Background())
	for _, a := range gw.adapters {
		_ = a.Stop()
	}
	return nil
}
