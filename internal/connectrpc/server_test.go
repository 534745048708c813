package connectrpc

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpt/cobrowse/internal/app"
	"github.com/fpt/cobrowse/internal/site"
	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
	"github.com/fpt/cobrowse/pkg/message"
)

type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	// entered and release, when set, hold each call until the test lets go
	entered chan struct{}
	release chan struct{}
}

func (l *scriptedLLM) Chat(ctx context.Context, _ []message.Message) (message.Message, error) {
	if l.entered != nil {
		l.entered <- struct{}{}
	}
	if l.release != nil {
		<-l.release
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	reply := "ok"
	if len(l.replies) > 0 {
		reply, l.replies = l.replies[0], l.replies[1:]
	}
	return message.NewAssistantMessage(reply), nil
}

func (l *scriptedLLM) ModelID() string { return "scripted" }

func newTestService(t *testing.T, llm *scriptedLLM) (*Client, *CobrowseServer) {
	t.Helper()
	s, err := site.Load("", "")
	require.NoError(t, err)

	opts := ServerOptions{
		Owner:             s.Owner(),
		SystemInstruction: s.Persona().SystemInstruction(s.Owner()),
		Unconfigured:      "API key not configured. Please set GEMINI_API_KEY in your environment variables.",
		Pages:             app.StaticPageFactory(s, "http://portfolio.test"),
	}
	if llm != nil {
		opts.LLM = llm
	}
	server := NewCobrowseServer(opts, pkgLogger.NewConsoleLogger(pkgLogger.LogLevelError, io.Discard))

	ts := httptest.NewServer(NewMux(server, s))
	t.Cleanup(func() {
		ts.Close()
		server.Close()
	})
	return NewClient(ts.Client(), ts.URL), server
}

func TestStartSession(t *testing.T) {
	client, server := newTestService(t, &scriptedLLM{})
	ctx := context.Background()

	resp, err := client.StartSession(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.True(t, resp.ChatAvailable)
	assert.Contains(t, resp.Greeting, "Alex Rivera's portfolio")
	require.Len(t, resp.QuickActions, 4)
	assert.Equal(t, "Show Skills", resp.QuickActions[0].Label)
	assert.Equal(t, 1, server.SessionCount())

	require.NoError(t, client.CloseSession(ctx, resp.SessionID))
	assert.Equal(t, 0, server.SessionCount())

	err = client.CloseSession(ctx, resp.SessionID)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestSendMessage(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		`Let me show you. {"name":"scroll_to_section","parameters":{"sectionId":"skills"}}`,
		`Here it is. {"name":"scroll_to_section","parameters":{"sectionId":"experience"}}`,
		"Alex works in Lisbon.",
	}}
	client, _ := newTestService(t, llm)
	ctx := context.Background()

	start, err := client.StartSession(ctx)
	require.NoError(t, err)

	resp, err := client.SendMessage(ctx, SendMessageRequest{SessionID: start.SessionID, Text: "skills?"})
	require.NoError(t, err)
	assert.Equal(t, "Let me show you.", resp.Text)
	require.NotNil(t, resp.Invocation)
	assert.Equal(t, message.ToolName("scroll_to_section"), resp.Invocation.Name)
	assert.Equal(t, "skills", resp.Invocation.Parameters["sectionId"])
	assert.Equal(t, []string{"scroll_to_section"}, resp.Actions)
	assert.Nil(t, resp.Outcome)

	resp, err = client.SendMessage(ctx, SendMessageRequest{SessionID: start.SessionID, Text: "experience?", Execute: true})
	require.NoError(t, err)
	require.NotNil(t, resp.Outcome)
	assert.True(t, resp.Outcome.Success)
	assert.Equal(t, "Scrolled to experience section", resp.Outcome.Message)

	resp, err = client.SendMessage(ctx, SendMessageRequest{SessionID: start.SessionID, Text: "where?"})
	require.NoError(t, err)
	assert.Equal(t, "Alex works in Lisbon.", resp.Text)
	assert.Nil(t, resp.Invocation)
	assert.Empty(t, resp.Actions)

	history, err := client.GetHistory(ctx, start.SessionID)
	require.NoError(t, err)
	require.Len(t, history.Messages, 6)
	assert.Equal(t, "user", history.Messages[0].Role)
	assert.Equal(t, "skills?", history.Messages[0].Content)
	assert.Equal(t, "assistant", history.Messages[5].Role)

	require.NoError(t, client.ClearSession(ctx, start.SessionID))
	history, err = client.GetHistory(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Empty(t, history.Messages)
}

func TestSendMessageWithoutModel(t *testing.T) {
	client, _ := newTestService(t, nil)
	ctx := context.Background()

	start, err := client.StartSession(ctx)
	require.NoError(t, err)
	assert.False(t, start.ChatAvailable)

	_, err = client.SendMessage(ctx, SendMessageRequest{SessionID: start.SessionID, Text: "hi"})
	require.Error(t, err)
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")

	// tools keep working
	outcome, err := client.ExecuteTool(ctx, start.SessionID, message.NewToolInvocation("scroll_to_section",
		message.ToolArgumentValues{"sectionId": "contact"}))
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "Scrolled to contact section", outcome.Message)
}

func TestExecuteToolFailure(t *testing.T) {
	client, _ := newTestService(t, &scriptedLLM{})
	ctx := context.Background()

	start, err := client.StartSession(ctx)
	require.NoError(t, err)

	outcome, err := client.ExecuteTool(ctx, start.SessionID, message.NewToolInvocation("scroll_to_section",
		message.ToolArgumentValues{"sectionId": "nope"}))
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, `Section "nope" not found`, outcome.Message)
}

func TestUnknownSession(t *testing.T) {
	client, _ := newTestService(t, &scriptedLLM{})
	ctx := context.Background()

	_, err := client.SendMessage(ctx, SendMessageRequest{SessionID: "missing", Text: "hi"})
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = client.GetHistory(ctx, "missing")
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	cancelled, err := client.CancelQuery(ctx, "missing")
	assert.False(t, cancelled)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestCancelQueryIdle(t *testing.T) {
	client, _ := newTestService(t, &scriptedLLM{})
	ctx := context.Background()

	start, err := client.StartSession(ctx)
	require.NoError(t, err)

	cancelled, err := client.CancelQuery(ctx, start.SessionID)
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestInvokeStream(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"name":"scroll_to_section","parameters":{"sectionId":"testimonials"}}`}}
	client, _ := newTestService(t, llm)
	ctx := context.Background()

	start, err := client.StartSession(ctx)
	require.NoError(t, err)

	var got []InvokeEvent
	err = client.Invoke(ctx, SendMessageRequest{SessionID: start.SessionID, Text: "testimonials", Execute: true},
		func(ev InvokeEvent) { got = append(got, ev) })
	require.NoError(t, err)

	var types []string
	for _, ev := range got {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{
		InvokeEventStatus, InvokeEventToolCall, InvokeEventToolResult, InvokeEventFinal, InvokeEventStatus,
	}, types)
	assert.Equal(t, InvokeStateStarted, got[0].State)
	require.NotNil(t, got[2].Outcome)
	assert.True(t, got[2].Outcome.Success)
	assert.Equal(t, "Scrolling to the testimonials section.", got[3].Text)
	assert.Equal(t, InvokeStateCompleted, got[4].State)
}

func TestInvokeStreamIgnoresOtherRequests(t *testing.T) {
	llm := &scriptedLLM{
		replies: []string{"Here is the about section."},
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	client, _ := newTestService(t, llm)
	ctx := context.Background()

	start, err := client.StartSession(ctx)
	require.NoError(t, err)

	var got []InvokeEvent
	done := make(chan error, 1)
	go func() {
		done <- client.Invoke(ctx, SendMessageRequest{SessionID: start.SessionID, Text: "about"},
			func(ev InvokeEvent) { got = append(got, ev) })
	}()

	<-llm.entered
	outcome, err := client.ExecuteTool(ctx, start.SessionID,
		message.NewToolInvocation("scroll_to_section", message.ToolArgumentValues{"sectionId": "skills"}))
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	close(llm.release)
	require.NoError(t, <-done)

	var types []string
	for _, ev := range got {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{InvokeEventStatus, InvokeEventFinal, InvokeEventStatus}, types)
	assert.Equal(t, "Here is the about section.", got[1].Text)
}

func TestListTools(t *testing.T) {
	client, _ := newTestService(t, nil)

	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 7)
	assert.Equal(t, "scroll_to_section", tools[0].Name)
	assert.Contains(t, tools[0].Parameters, "sectionId")
}

func TestSiteServedAlongside(t *testing.T) {
	s, err := site.Load("", "")
	require.NoError(t, err)
	server := NewCobrowseServer(ServerOptions{Pages: app.StaticPageFactory(s, "")},
		pkgLogger.NewConsoleLogger(pkgLogger.LogLevelError, io.Discard))
	mux := NewMux(server, s)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="contact-form"`)
}
