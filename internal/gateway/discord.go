package gateway

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
)

// discordMaxMessage is Discord's per-message character limit.
const discordMaxMessage = 2000

// DiscordAdapter lets visitors chat with the assistant from Discord.
type DiscordAdapter struct {
	session   *discordgo.Session
	bus       *MessageBus
	filter    messageFilter
	logger    *pkgLogger.Logger
	botUserID string
}

// messageFilter decides which Discord messages reach the assistant.
type messageFilter struct {
	guilds      map[string]bool
	channels    map[string]bool
	users       map[string]bool
	mentionOnly bool
}

func newMessageFilter(cfg DiscordConfig) messageFilter {
	return messageFilter{
		guilds:      toSet(cfg.AllowedGuildIDs),
		channels:    toSet(cfg.AllowedChannelIDs),
		users:       toSet(cfg.AllowedUserIDs),
		mentionOnly: cfg.MentionOnly,
	}
}

// NewDiscordAdapter creates a Discord adapter.
func NewDiscordAdapter(bus *MessageBus, cfg DiscordConfig, logger *pkgLogger.Logger) (*DiscordAdapter, error) {
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	a := &DiscordAdapter{
		session: dg,
		bus:     bus,
		filter:  newMessageFilter(cfg),
		logger:  logger.WithComponent("discord"),
	}

	dg.AddHandler(a.handleMessage)
	dg.AddHandler(a.handleReady)

	return a, nil
}

func (a *DiscordAdapter) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	a.botUserID = r.User.ID
	a.logger.InfoWithIntention(pkgLogger.IntentionTransport, "Discord bot connected", "user", r.User.Username)
}

func (a *DiscordAdapter) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	in, ok := a.filter.inbound(m, a.botUserID)
	if !ok {
		return
	}
	a.bus.Inbound <- in
}

// inbound converts m to an InboundMessage, or reports false when the
// message is not for the assistant.
func (f messageFilter) inbound(m *discordgo.MessageCreate, botUserID string) (InboundMessage, bool) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == botUserID {
		return InboundMessage{}, false
	}
	if len(f.users) > 0 && !f.users[m.Author.ID] {
		return InboundMessage{}, false
	}
	if m.GuildID != "" && len(f.guilds) > 0 && !f.guilds[m.GuildID] {
		return InboundMessage{}, false
	}
	if len(f.channels) > 0 && !f.channels[m.ChannelID] {
		return InboundMessage{}, false
	}
	if m.GuildID != "" && f.mentionOnly && !isBotMentioned(m.Mentions, botUserID) {
		return InboundMessage{}, false
	}

	text := m.Content
	if botUserID != "" {
		text = strings.ReplaceAll(text, "<@"+botUserID+">", "")
		text = strings.ReplaceAll(text, "<@!"+botUserID+">", "")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return InboundMessage{}, false
	}

	return InboundMessage{
		ChannelType: "discord",
		ChannelID:   m.ChannelID,
		PeerID:      m.Author.ID,
		PeerName:    m.Author.Username,
		Text:        text,
		ReplyToID:   m.ID,
		Timestamp:   m.Timestamp,
	}, true
}

// Start connects to Discord and blocks until ctx is cancelled.
func (a *DiscordAdapter) Start(ctx context.Context) error {
	a.logger.InfoWithIntention(pkgLogger.IntentionTransport, "Starting Discord adapter")

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}

	<-ctx.Done()
	return a.session.Close()
}

// Stop closes the Discord connection.
func (a *DiscordAdapter) Stop() error {
	return a.session.Close()
}

// Send posts msg, split to fit Discord's limit. The first chunk replies to
// the visitor's message when ReplyToID is set.
func (a *DiscordAdapter) Send(ctx context.Context, msg OutboundMessage) error {
	for i, chunk := range splitMessage(msg.Text, discordMaxMessage) {
		var err error
		if i == 0 && msg.ReplyToID != "" {
			ref := &discordgo.MessageReference{MessageID: msg.ReplyToID, ChannelID: msg.ChannelID}
			_, err = a.session.ChannelMessageSendReply(msg.ChannelID, chunk, ref)
		} else {
			_, err = a.session.ChannelMessageSend(msg.ChannelID, chunk)
		}
		if err != nil {
			return fmt.Errorf("failed to send discord message: %w", err)
		}
	}
	return nil
}

// SendTyping shows a typing indicator.
func (a *DiscordAdapter) SendTyping(ctx context.Context, channelID string) error {
	return a.session.ChannelTyping(channelID)
}

// splitMessage cuts text into chunks of at most maxLen characters,
// preferring newline boundaries.
func splitMessage(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for text != "" {
		runes := []rune(text)
		if len(runes) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		head := string(runes[:maxLen])
		cutAt := len(head)
		if idx := strings.LastIndex(head, "\n"); idx > 0 {
			cutAt = idx + 1
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	return chunks
}

func isBotMentioned(mentions []*discordgo.User, botID string) bool {
	for _, u := range mentions {
		if u.ID == botID {
			return true
		}
	}
	return false
}

func toSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
