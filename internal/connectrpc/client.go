package connectrpc

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/fpt/cobrowse/pkg/message"
)

type structClient = connect.Client[structpb.Struct, structpb.Struct]

// Client calls a remote co-browsing service.
type Client struct {
	startSession *structClient
	sendMessage  *structClient
	invoke       *structClient
	executeTool  *structClient
	cancelQuery  *structClient
	clearSession *structClient
	getHistory   *structClient
	listTools    *structClient
	closeSession *structClient
}

// NewClient creates a client for the service at baseURL, e.g. "http://localhost:8080".
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	newClient := func(procedure string) *structClient {
		return connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+procedure, opts...)
	}
	return &Client{
		startSession: newClient(StartSessionProcedure),
		sendMessage:  newClient(SendMessageProcedure),
		invoke:       newClient(InvokeProcedure),
		executeTool:  newClient(ExecuteToolProcedure),
		cancelQuery:  newClient(CancelQueryProcedure),
		clearSession: newClient(ClearSessionProcedure),
		getHistory:   newClient(GetHistoryProcedure),
		listTools:    newClient(ListToolsProcedure),
		closeSession: newClient(CloseSessionProcedure),
	}
}

func (c *Client) StartSession(ctx context.Context) (StartSessionResponse, error) {
	var out StartSessionResponse
	err := callUnary(ctx, c.startSession, struct{}{}, &out)
	return out, err
}

func (c *Client) SendMessage(ctx context.Context, in SendMessageRequest) (SendMessageResponse, error) {
	var out SendMessageResponse
	err := callUnary(ctx, c.sendMessage, in, &out)
	return out, err
}

// Invoke streams the answer to a query, calling fn for every event.
func (c *Client) Invoke(ctx context.Context, in SendMessageRequest, fn func(InvokeEvent)) error {
	msg, err := toStruct(in)
	if err != nil {
		return err
	}
	stream, err := c.invoke.CallServerStream(ctx, connect.NewRequest(msg))
	if err != nil {
		return err
	}
	defer stream.Close()
	for stream.Receive() {
		var ev InvokeEvent
		if err := fromStruct(stream.Msg(), &ev); err != nil {
			return err
		}
		fn(ev)
	}
	return stream.Err()
}

func (c *Client) ExecuteTool(ctx context.Context, sessionID string, inv message.ToolInvocation) (message.ActionOutcome, error) {
	var out message.ActionOutcome
	err := callUnary(ctx, c.executeTool, ExecuteToolRequest{SessionID: sessionID, Invocation: inv}, &out)
	return out, err
}

func (c *Client) CancelQuery(ctx context.Context, sessionID string) (bool, error) {
	var out CancelQueryResponse
	err := callUnary(ctx, c.cancelQuery, SessionRequest{SessionID: sessionID}, &out)
	return out.Cancelled, err
}

func (c *Client) ClearSession(ctx context.Context, sessionID string) error {
	return callUnary(ctx, c.clearSession, SessionRequest{SessionID: sessionID}, nil)
}

func (c *Client) GetHistory(ctx context.Context, sessionID string) (GetHistoryResponse, error) {
	var out GetHistoryResponse
	err := callUnary(ctx, c.getHistory, SessionRequest{SessionID: sessionID}, &out)
	return out, err
}

func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	var out ListToolsResponse
	err := callUnary(ctx, c.listTools, struct{}{}, &out)
	return out.Tools, err
}

func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	return callUnary(ctx, c.closeSession, SessionRequest{SessionID: sessionID}, nil)
}

func callUnary(ctx context.Context, client *structClient, in, out any) error {
	msg, err := toStruct(in)
	if err != nil {
		return err
	}
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := fromStruct(resp.Msg, out); err != nil {
		return fmt.Errorf("unexpected response: %w", err)
	}
	return nil
}
