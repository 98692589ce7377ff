package accuracy_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/AmeliaRose802/mailtriage/internal/accuracy"
	"github.com/AmeliaRose802/mailtriage/internal/instrumentation"
	"github.com/AmeliaRose802/mailtriage/internal/server"
	"github.com/AmeliaRose802/mailtriage/internal/tools/common"
)

// DefaultTrendWindow is the number of recent runs considered when no
// explicit window is requested.
const DefaultTrendWindow = 10

// RegisterAccuracyTools registers classification accuracy tools with the
// MCP server. Write operations are only registered when readOnly is false.
func RegisterAccuracyTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	getTrendsTool := mcp.NewTool("accuracy_get_trends",
		mcp.WithDescription("Get classification accuracy over the most recent runs: latest rate, windowed average, and total run count."),
		mcp.WithNumber("window",
			mcp.Description(fmt.Sprintf("Number of recent runs to average over (default: %d)", DefaultTrendWindow)),
		),
	)

	s.AddTool(getTrendsTool, common.InstrumentedToolHandlerWithService("accuracy_get_trends", "accuracy", "trends", sc,
		getTrendsHandler(sc)))

	getDashboardTool := mcp.NewTool("accuracy_get_dashboard",
		mcp.WithDescription("Get all-time classification accuracy metrics: session count, average accuracy, and per-category correction totals."),
	)

	s.AddTool(getDashboardTool, common.InstrumentedToolHandlerWithService("accuracy_get_dashboard", "accuracy", "dashboard", sc,
		getDashboardHandler(sc)))

	// Register write tools only if not in read-only mode
	if !readOnly {
		recordSessionTool := mcp.NewTool("accuracy_record_session",
			mcp.WithDescription("Record a classification review session: how many emails were classified and how many classifications the user corrected, optionally broken down by category."),
			mcp.WithNumber("totalEmails",
				mcp.Required(),
				mcp.Description("Number of emails classified in the session"),
			),
			mcp.WithNumber("modifications",
				mcp.Required(),
				mcp.Description("Number of classifications the user corrected"),
			),
			mcp.WithObject("categoryModifications",
				mcp.Description("Corrections per category, e.g. {\"required_personal_action\": 2}"),
			),
		)

		s.AddTool(recordSessionTool, common.InstrumentedToolHandlerWithService("accuracy_record_session", "accuracy", "record_session", sc,
			recordSessionHandler(sc)))
	}

	return nil
}

func getTrendsHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		window := DefaultTrendWindow
		if w, ok := args["window"].(float64); ok && w > 0 {
			window = int(w)
		}

		start := time.Now()
		report, err := sc.Tracker().Trends(ctx, window)
		common.RecordStoreOperation(ctx, sc, instrumentation.OperationTrends, start, err)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get accuracy trends: %v", err)), nil
		}

		result, _ := json.MarshalIndent(report, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}
}

func getDashboardHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		report, err := sc.Tracker().DashboardMetrics(ctx)
		common.RecordStoreOperation(ctx, sc, instrumentation.OperationDashboard, start, err)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get accuracy dashboard: %v", err)), nil
		}

		result, _ := json.MarshalIndent(report, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}
}

func recordSessionHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		totalEmails, ok := args["totalEmails"].(float64)
		if !ok {
			return mcp.NewToolResultError("totalEmails is required"), nil
		}

		modifications, ok := args["modifications"].(float64)
		if !ok {
			return mcp.NewToolResultError("modifications is required"), nil
		}

		var categoryMods map[string]int
		if raw, ok := args["categoryModifications"].(map[string]interface{}); ok {
			categoryMods = make(map[string]int, len(raw))
			for category, count := range raw {
				if n, ok := count.(float64); ok {
					categoryMods[category] = int(n)
				}
			}
		}

		run := accuracy.NewRun(int(totalEmails), int(modifications), categoryMods, time.Now())
		start := time.Now()
		err := sc.Tracker().RecordSession(ctx, run)
		common.RecordStoreOperation(ctx, sc, instrumentation.OperationRecordSession, start, err)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to record session: %v", err)), nil
		}

		result, _ := json.MarshalIndent(run, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}
}
