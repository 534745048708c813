package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpt/cobrowse/internal/connectrpc"
	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
	"github.com/fpt/cobrowse/pkg/message"
)

type fakeService struct {
	mu      sync.Mutex
	started int
	closed  []string
	cleared []string
	sent    []connectrpc.SendMessageRequest
	reply   connectrpc.SendMessageResponse
	sendErr error
}

func (f *fakeService) StartSession(context.Context) (connectrpc.StartSessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return connectrpc.StartSessionResponse{
		SessionID: fmt.Sprintf("s%d", f.started),
		Greeting:  "Hi! I'm your co-browsing assistant.",
		QuickActions: []connectrpc.QuickAction{
			{Label: "Show Skills", Query: "What are Alex Rivera's technical skills?"},
			{Label: "View Experience", Query: "Show me the experience section"},
		},
	}, nil
}

func (f *fakeService) SendMessage(_ context.Context, in connectrpc.SendMessageRequest) (connectrpc.SendMessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, in)
	return f.reply, f.sendErr
}

func (f *fakeService) ClearSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, id)
	return nil
}

func (f *fakeService) CloseSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
	return nil
}

func newTestGateway(svc *fakeService) *Gateway {
	return newGateway(DefaultGatewayConfig(), svc, pkgLogger.NewConsoleLogger(pkgLogger.LogLevelError, io.Discard))
}

func inbound(text string) InboundMessage {
	return InboundMessage{ChannelType: "discord", ChannelID: "c1", PeerID: "u1", PeerName: "sam", Text: text, ReplyToID: "m1"}
}

func texts(out []OutboundMessage) []string {
	var s []string
	for _, o := range out {
		s = append(s, o.Text)
	}
	return s
}

func TestRespondGreetsThenAnswers(t *testing.T) {
	svc := &fakeService{reply: connectrpc.SendMessageResponse{Text: "Here are the skills."}}
	gw := newTestGateway(svc)
	ctx := context.Background()

	out := gw.respond(ctx, inbound("skills?"))
	assert.Equal(t, []string{"Hi! I'm your co-browsing assistant.", "Here are the skills."}, texts(out))
	assert.Equal(t, "m1", out[1].ReplyToID)

	out = gw.respond(ctx, inbound("again"))
	assert.Equal(t, []string{"Here are the skills."}, texts(out))
	assert.Equal(t, 1, svc.started)
	require.Len(t, svc.sent, 2)
	assert.Equal(t, "s1", svc.sent[1].SessionID)
	assert.True(t, svc.sent[1].Execute)
}

func TestRespondReportsOutcome(t *testing.T) {
	inv := message.NewToolInvocation("scroll_to_section", message.ToolArgumentValues{"sectionId": "nope"})
	svc := &fakeService{reply: connectrpc.SendMessageResponse{
		Text:       "Scrolling to the nope section.",
		Invocation: &inv,
		Outcome:    &message.ActionOutcome{Success: false, Message: `Section "nope" not found`},
	}}
	gw := newTestGateway(svc)

	out := gw.respond(context.Background(), inbound("go to nope"))
	require.Len(t, out, 3)
	assert.Equal(t, `I couldn't complete that action: Section "nope" not found`, out[2].Text)

	svc.reply.Outcome = &message.ActionOutcome{Success: true, Message: "Scrolled to skills section"}
	out = gw.respond(context.Background(), inbound("skills"))
	assert.Equal(t, []string{"Scrolling to the nope section.", "🔧 Scrolled to skills section"}, texts(out))
}

func TestRespondErrors(t *testing.T) {
	svc := &fakeService{sendErr: connect.NewError(connect.CodeFailedPrecondition,
		errors.New("API key not configured. Please set GEMINI_API_KEY in your environment variables."))}
	gw := newTestGateway(svc)

	out := gw.respond(context.Background(), inbound("hi"))
	assert.Equal(t, "API key not configured. Please set GEMINI_API_KEY in your environment variables.", out[len(out)-1].Text)

	svc.sendErr = connect.NewError(connect.CodeInternal, errors.New("boom"))
	out = gw.respond(context.Background(), inbound("hi"))
	assert.Equal(t, "Sorry, I encountered an error. Please try again.", out[len(out)-1].Text)
}

func TestCommands(t *testing.T) {
	svc := &fakeService{reply: connectrpc.SendMessageResponse{Text: "Experience is on screen."}}
	gw := newTestGateway(svc)
	ctx := context.Background()

	tests := []struct {
		input string
		want  string
	}{
		{"!help", "`!quick`"},
		{"!quick", "`!quick 2` View Experience"},
		{"!quick 2", "Experience is on screen."},
		{"!quick 9", "Usage: !quick <1-2>"},
		{"!clear", "Conversation cleared."},
		{"!bogus", "Unknown command: !bogus"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out := gw.respond(ctx, inbound(tt.input))
			require.Len(t, out, 1)
			assert.Contains(t, out[0].Text, tt.want)
		})
	}
	require.NotEmpty(t, svc.sent)
	assert.Equal(t, "Show me the experience section", svc.sent[0].Text)
	assert.Equal(t, []string{"s1"}, svc.cleared)
}

func TestExpireIdle(t *testing.T) {
	svc := &fakeService{}
	sm := NewSessionManager(svc)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }
	ctx := context.Background()

	_, _, err := sm.GetOrCreateSession(ctx, SessionKey{ChannelType: "discord", ChannelID: "c", PeerID: "old"})
	require.NoError(t, err)
	now = now.Add(20 * time.Minute)
	_, _, err = sm.GetOrCreateSession(ctx, SessionKey{ChannelType: "discord", ChannelID: "c", PeerID: "new"})
	require.NoError(t, err)

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, sm.ExpireIdle(ctx, 30*time.Minute))
	assert.Equal(t, []string{"s1"}, svc.closed)
	assert.Equal(t, 1, sm.Len())

	sm.CloseAll(ctx)
	assert.Equal(t, 0, sm.Len())
	assert.Equal(t, []string{"s1", "s2"}, svc.closed)
}

func TestIdleTimeout(t *testing.T) {
	cfg := DefaultGatewayConfig()
	assert.Equal(t, 30*time.Minute, cfg.IdleTimeout())
	cfg.SessionTimeout = "5m"
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout())
	cfg.SessionTimeout = "soon"
	assert.Equal(t, 30*time.Minute, cfg.IdleTimeout())
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	chunks := splitMessage("line one\nline two\nline three", 12)
	assert.Equal(t, []string{"line one\n", "line two\n", "line three"}, chunks)

	long := strings.Repeat("é", 25)
	chunks = splitMessage(long, 10)
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("é", 10), chunks[0])
	assert.Equal(t, long, strings.Join(chunks, ""))
}

func TestMessageFilter(t *testing.T) {
	msg := func(author, guild, channel, content string, mentions ...*discordgo.User) *discordgo.MessageCreate {
		return &discordgo.MessageCreate{Message: &discordgo.Message{
			ID: "m", ChannelID: channel, GuildID: guild, Content: content,
			Author: &discordgo.User{ID: author, Username: author}, Mentions: mentions,
		}}
	}
	bot := &discordgo.User{ID: "bot"}

	f := newMessageFilter(DiscordConfig{AllowedUserIDs: []string{"alice"}, MentionOnly: true})

	in, ok := f.inbound(msg("alice", "", "dm", "  show skills "), "bot")
	require.True(t, ok)
	assert.Equal(t, "show skills", in.Text)
	assert.Equal(t, "alice", in.PeerID)

	_, ok = f.inbound(msg("mallory", "", "dm", "hi"), "bot")
	assert.False(t, ok, "user not allowlisted")

	_, ok = f.inbound(msg("alice", "g", "c", "hi"), "bot")
	assert.False(t, ok, "guild message without mention")

	in, ok = f.inbound(msg("alice", "g", "c", "<@bot> experience please", bot), "bot")
	require.True(t, ok)
	assert.Equal(t, "experience please", in.Text)

	_, ok = f.inbound(msg("bot", "", "dm", "echo"), "bot")
	assert.False(t, ok, "own message")

	_, ok = f.inbound(msg("alice", "g", "c", "<@bot>", bot), "bot")
	assert.False(t, ok, "empty after stripping mention")
}
