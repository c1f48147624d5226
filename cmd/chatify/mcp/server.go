package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/neilberkman/chatify/internal/core/gateway"
	"github.com/neilberkman/chatify/internal/core/workspace"
)

// ListConversationsArgs defines arguments for the list_conversations tool
type ListConversationsArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"description=Max conversations to return (default: 20)"`
}

// GetConversationArgs defines arguments for the get_conversation tool
type GetConversationArgs struct {
	ConversationID string `json:"conversation_id" jsonschema:"description=Conversation id to retrieve,required"`
}

// AskConversationArgs defines arguments for the ask_conversation tool
type AskConversationArgs struct {
	ConversationID string `json:"conversation_id" jsonschema:"description=Conversation whose document to ask about,required"`
	Question       string `json:"question" jsonschema:"description=Question to send,required"`
}

// ConversationSummary is one entry in list_conversations output
type ConversationSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at,omitempty"`
}

// MessageDetail is one message in get_conversation output
type MessageDetail struct {
	Role   string `json:"role"`
	Text   string `json:"text"`
	Status string `json:"status,omitempty"`
}

// StartServer serves the chat tools over stdio until the client disconnects
func StartServer(ws *workspace.Workspace, version string) error {
	s := server.NewMCPServer(
		"Chatify",
		version,
	)
	s.AddTools(serverTools(ws)...)

	return server.ServeStdio(s)
}

func serverTools(ws *workspace.Workspace) []server.ServerTool {
	listTool := mcp.NewTool("list_conversations",
		mcp.WithDescription("List the signed-in user's document conversations, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Max conversations to return (default: 20)")),
	)

	getTool := mcp.NewTool("get_conversation",
		mcp.WithDescription("Retrieve the full message log of one conversation"),
		mcp.WithString("conversation_id",
			mcp.Required(),
			mcp.Description("Conversation id, as returned by list_conversations")),
	)

	askTool := mcp.NewTool("ask_conversation",
		mcp.WithDescription("Ask a question about the document behind a conversation and return the answer. The question and answer are appended to the conversation."),
		mcp.WithString("conversation_id",
			mcp.Required(),
			mcp.Description("Conversation id, as returned by list_conversations")),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to ask")),
	)

	return []server.ServerTool{
		{Tool: listTool, Handler: makeListConversationsHandler(ws)},
		{Tool: getTool, Handler: makeGetConversationHandler(ws)},
		{Tool: askTool, Handler: makeAskConversationHandler(ws)},
	}
}

type toolHandler = server.ToolHandlerFunc

func bindArgs(request mcp.CallToolRequest, out interface{}) error {
	argsBytes, _ := json.Marshal(request.Params.Arguments)
	return json.Unmarshal(argsBytes, out)
}

func toolError(err error) *mcp.CallToolResult {
	if gateway.IsAuthRejected(err) || errors.Is(err, gateway.ErrUnauthenticated) {
		return mcp.NewToolResultError("not signed in: run 'chatify login' and restart the server")
	}
	return mcp.NewToolResultError(gateway.UserMessage(err))
}

func jsonResult(v interface{}) *mcp.CallToolResult {
	resultJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err))
	}
	return mcp.NewToolResultText(string(resultJSON))
}

func makeListConversationsHandler(ws *workspace.Workspace) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ListConversationsArgs
		if err := bindArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		limit := args.Limit
		if limit <= 0 {
			limit = 20
		}

		if err := ws.History.Refresh(ctx); err != nil {
			return toolError(err), nil
		}
		summaries := ws.History.Summaries()
		if len(summaries) > limit {
			summaries = summaries[:limit]
		}

		conversations := make([]ConversationSummary, 0, len(summaries))
		for _, s := range summaries {
			item := ConversationSummary{ID: s.ID, Title: s.DisplayTitle()}
			if !s.CreatedAt.IsZero() {
				item.CreatedAt = s.CreatedAt.Format("2006-01-02 15:04:05")
			}
			conversations = append(conversations, item)
		}

		return jsonResult(map[string]interface{}{
			"conversations": conversations,
		}), nil
	}
}

func makeGetConversationHandler(ws *workspace.Workspace) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args GetConversationArgs
		if err := bindArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.ConversationID == "" {
			return mcp.NewToolResultError("conversation_id is required"), nil
		}

		ctrl := ws.NewController()
		if err := ctrl.Select(ctx, args.ConversationID); err != nil {
			return toolError(err), nil
		}
		snap := ctrl.Snapshot()

		messages := make([]MessageDetail, 0, len(snap.Messages))
		for _, m := range snap.Messages {
			messages = append(messages, MessageDetail{Role: string(m.Role), Text: m.Text, Status: string(m.Status)})
		}

		return jsonResult(map[string]interface{}{
			"id":       snap.ActiveID,
			"title":    snap.Title,
			"messages": messages,
		}), nil
	}
}

func makeAskConversationHandler(ws *workspace.Workspace) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args AskConversationArgs
		if err := bindArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.ConversationID == "" {
			return mcp.NewToolResultError("conversation_id is required"), nil
		}

		// Each call gets its own controller so concurrent asks in different
		// conversations never share a message log
		ctrl := ws.NewController()
		if err := ctrl.Select(ctx, args.ConversationID); err != nil {
			return toolError(err), nil
		}
		if err := ctrl.Send(ctx, args.Question); err != nil {
			return toolError(err), nil
		}

		answer, _ := ctrl.Snapshot().Conversation().LastAnswer()
		return jsonResult(map[string]interface{}{
			"conversation_id": args.ConversationID,
			"answer":          answer,
		}), nil
	}
}
