package triage_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/AmeliaRose802/mailtriage/internal/google"
	"github.com/AmeliaRose802/mailtriage/internal/mailbox"
	"github.com/AmeliaRose802/mailtriage/internal/server"
	"github.com/AmeliaRose802/mailtriage/internal/tools/common"
	"github.com/AmeliaRose802/mailtriage/internal/triage"
)

// getMailboxClient retrieves or creates a mailbox client for the specified account
func getMailboxClient(ctx context.Context, account string, sc *server.ServerContext) (*mailbox.Client, error) {
	client := sc.MailboxClientForAccount(account)
	if client == nil {
		// Check if token exists before trying to create client
		if !mailbox.HasTokenForAccount(account) {
			return nil, fmt.Errorf("%s", google.GetAuthenticationErrorMessage(account))
		}

		var err error
		client, err = mailbox.NewClientForAccount(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("failed to create mailbox client for account %s: %w", account, err)
		}
		sc.SetMailboxClientForAccount(account, client)
	}
	return client, nil
}

// RegisterTriageTools registers triage tools with the MCP server
func RegisterTriageTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	triageRunTool := mcp.NewTool("triage_run",
		mcp.WithDescription("Classify inbox emails into action categories and record the resulting tasks. Returns a run summary with counts and any per-email warnings."),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("query",
			mcp.Description(fmt.Sprintf("Mailbox search query (default: %q)", mailbox.DefaultQuery)),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of emails to classify (default: 50)"),
		),
	)

	s.AddTool(triageRunTool, common.InstrumentedToolHandlerWithService("triage_run", "gmail", "run", sc,
		triageRunHandler(sc)))

	return nil
}

func triageRunHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		account := common.GetAccountFromArgs(ctx, args)

		query := mailbox.DefaultQuery
		if q, ok := args["query"].(string); ok && q != "" {
			query = q
		}

		maxResults := int64(50)
		if m, ok := args["maxResults"].(float64); ok && m > 0 {
			maxResults = int64(m)
		}

		client, err := getMailboxClient(ctx, account, sc)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if sc.Pipeline() == nil {
			return mcp.NewToolResultError("Triage pipeline not configured. Set GEMINI_API_KEY and restart the server."), nil
		}

		messages, err := client.ListMessages(query, maxResults)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list emails: %v", err)), nil
		}

		emails := make([]triage.Email, 0, len(messages))
		for _, m := range messages {
			emails = append(emails, triage.Email{
				ID:           m.ID,
				Subject:      m.Subject,
				Sender:       m.Sender,
				Recipient:    m.Recipient,
				Body:         m.Body,
				ReceivedDate: m.ReceivedDate,
			})
		}

		report, err := sc.Pipeline().Run(ctx, emails)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Triage run failed: %v", err)), nil
		}

		result, _ := json.MarshalIndent(report, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}
}
