package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/fpt/cobrowse/internal/app"
	"github.com/fpt/cobrowse/internal/site"
	"github.com/fpt/cobrowse/internal/tool"
	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
	"github.com/fpt/cobrowse/pkg/message"
)

const (
	// AskToolName forwards a visitor question to the assistant.
	AskToolName = "ask_assistant"

	resourceMIMEJSON     = "application/json"
	portfolioResourceURI = "cobrowse://portfolio"
	historyResourceURI   = "cobrowse://history"
)

const askSchema = `{"type":"object","properties":{` +
	`"query":{"type":"string","description":"Question or request from the visitor"},` +
	`"execute":{"type":"boolean","description":"Run the proposed page action before answering"}},` +
	`"required":["query"],"additionalProperties":false}`

// Server exposes one co-browsing session as MCP tools and resources.
type Server struct {
	session   *app.Session
	site      *site.Site
	mcpServer *mcpserver.MCPServer
	tools     []string
	logger    *pkgLogger.Logger
}

// NewServer registers the page tools, the ask tool and the read-only resources.
// site may be nil when the session browses an external page.
func NewServer(session *app.Session, s *site.Site, version string, logger *pkgLogger.Logger) (*Server, error) {
	mcpSrv := mcpserver.NewMCPServer(
		"cobrowse",
		version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithRecovery(),
	)

	server := &Server{
		session:   session,
		site:      s,
		mcpServer: mcpSrv,
		logger:    logger.WithComponent("mcp-server"),
	}

	for _, def := range tool.Catalogue() {
		schema, err := tool.InputSchema(def.Name)
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", def.Name, err)
		}
		server.addTool(mcp.NewToolWithRawSchema(string(def.Name), string(def.Description), schema), server.pageToolHandler(def.Name))
	}
	server.addTool(mcp.NewToolWithRawSchema(AskToolName,
		"Ask the portfolio assistant a question; it may propose a page action", json.RawMessage(askSchema)),
		server.handleAsk)

	server.registerResources()
	return server, nil
}

// Start serves MCP over stdin/stdout until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.InfoWithIntention(pkgLogger.IntentionTransport, "MCP stdio server starting", "tools", len(s.tools))
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// ToolNames lists the registered tools in registration order.
func (s *Server) ToolNames() []string {
	return append([]string(nil), s.tools...)
}

func (s *Server) addTool(t mcp.Tool, h mcpserver.ToolHandlerFunc) {
	s.tools = append(s.tools, t.Name)
	s.mcpServer.AddTool(t, h)
}

func (s *Server) pageToolHandler(name message.ToolName) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		outcome, err := s.session.Execute(ctx, message.NewToolInvocation(name, args))
		if err != nil {
			return errorResult(fmt.Sprintf("tool %s failed: %v", name, err)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(marshalPayload(string(name), outcome)))},
			IsError: !outcome.Success,
		}, nil
	}
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	query := argString(args["query"])
	if query == "" {
		return errorResult("missing query"), nil
	}
	execute, _ := args["execute"].(bool)

	reply, err := s.session.ProcessQuery(ctx, query, "")
	if err != nil {
		if errors.Is(err, app.ErrChatUnavailable) {
			return errorResult("chat is not available: no model configured"), nil
		}
		return errorResult(fmt.Sprintf("ask failed: %v", err)), nil
	}

	payload := map[string]any{
		"text":    reply.Text,
		"actions": reply.Actions,
	}
	if reply.Invocation != nil {
		payload["invocation"] = reply.Invocation
		if execute {
			outcome, err := s.session.Execute(ctx, *reply.Invocation)
			if err == nil {
				payload["outcome"] = outcome
			}
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(marshalPayload(AskToolName, payload)))},
	}, nil
}

func (s *Server) registerResources() {
	if s.site != nil {
		s.mcpServer.AddResource(
			mcp.NewResource(
				portfolioResourceURI,
				"Portfolio",
				mcp.WithMIMEType(resourceMIMEJSON),
				mcp.WithResourceDescription("Structured portfolio content shown on the site."),
			),
			s.handlePortfolioResource,
		)
	}
	s.mcpServer.AddResource(
		mcp.NewResource(
			historyResourceURI,
			"Conversation history",
			mcp.WithMIMEType(resourceMIMEJSON),
			mcp.WithResourceDescription("Retained turns of the current conversation, oldest first."),
		),
		s.handleHistoryResource,
	)
}

func (s *Server) handlePortfolioResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(request.Params.URI, s.site.Portfolio())
}

func (s *Server) handleHistoryResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	type turn struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	turns := []turn{}
	for _, m := range s.session.History() {
		turns = append(turns, turn{Role: m.Type().String(), Content: m.Content()})
	}
	return jsonResource(request.Params.URI, turns)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	text, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: resourceMIMEJSON, Text: string(text)},
	}, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(msg)},
		IsError: true,
	}
}

func marshalPayload(name string, v any) []byte {
	payload, err := json.Marshal(v)
	if err == nil {
		return payload
	}
	return []byte(fmt.Sprintf(`{"success":false,"message":"tool %s failed to encode payload"}`, name))
}

func argString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
