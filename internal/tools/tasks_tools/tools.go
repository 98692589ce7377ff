package tasks_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/AmeliaRose802/mailtriage/internal/instrumentation"
	"github.com/AmeliaRose802/mailtriage/internal/server"
	"github.com/AmeliaRose802/mailtriage/internal/taskstore"
	"github.com/AmeliaRose802/mailtriage/internal/tools/batch"
	"github.com/AmeliaRose802/mailtriage/internal/tools/common"
)

// RegisterTasksTools registers task store tools with the MCP server.
// Write operations are only registered when readOnly is false.
func RegisterTasksTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// List outstanding tasks tool (read-only, always available)
	listOutstandingTool := mcp.NewTool("tasks_list_outstanding",
		mcp.WithDescription("List outstanding triage tasks grouped by action type. Completed tasks are excluded."),
		mcp.WithString("actionType",
			mcp.Description("Only return tasks of this action type (e.g. 'required_personal_action'). Returns all types when omitted."),
		),
	)

	s.AddTool(listOutstandingTool, common.InstrumentedToolHandlerWithService("tasks_list_outstanding", "tasks", "list", sc,
		listOutstandingHandler(sc)))

	// Register write tools only if not in read-only mode
	if !readOnly {
		markCompletedTool := mcp.NewTool("tasks_mark_completed",
			mcp.WithDescription("Mark one or more outstanding tasks as completed. Already-completed tasks are left unchanged."),
			mcp.WithString("taskIds",
				mcp.Required(),
				mcp.Description("Task ID (string) or array of task IDs to mark completed"),
			),
		)

		s.AddTool(markCompletedTool, common.InstrumentedToolHandlerWithService("tasks_mark_completed", "tasks", "mark_completed", sc,
			markCompletedHandler(sc)))
	}

	return nil
}

func listOutstandingHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		start := time.Now()
		loaded, err := sc.Store().Load(ctx)
		common.RecordStoreOperation(ctx, sc, instrumentation.OperationList, start, err)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load outstanding tasks: %v", err)), nil
		}

		// Load returns completed records too; this tool reports open work only
		snapshot := make(taskstore.Snapshot)
		for actionType, records := range loaded {
			for _, r := range records {
				if !r.Completed {
					snapshot[actionType] = append(snapshot[actionType], r)
				}
			}
		}

		if actionType, ok := args["actionType"].(string); ok && actionType != "" {
			filtered := make(map[string]interface{})
			if records, ok := snapshot[actionType]; ok {
				filtered[actionType] = records
			}
			result, _ := json.MarshalIndent(filtered, "", "  ")
			return mcp.NewToolResultText(string(result)), nil
		}

		result, _ := json.MarshalIndent(snapshot, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}
}

func markCompletedHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		taskIDs, err := batch.ParseStringOrArray(args["taskIds"], "taskIds")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		// Snapshot before the write so unknown ids can be reported;
		// MarkCompleted itself ignores them.
		loaded, err := sc.Store().Load(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load tasks: %v", err)), nil
		}
		known := make(map[string]bool)
		for _, records := range loaded {
			for _, r := range records {
				known[r.TaskID] = true
			}
		}

		start := time.Now()
		err = sc.Store().MarkCompleted(ctx, taskIDs, time.Now())
		common.RecordStoreOperation(ctx, sc, instrumentation.OperationMarkCompleted, start, err)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to mark tasks completed: %v", err)), nil
		}

		results := batch.ProcessBatch(taskIDs, func(id string) (string, error) {
			if !known[id] {
				return "", fmt.Errorf("no such task")
			}
			return "completed", nil
		})

		return mcp.NewToolResultText(batch.FormatResults(results)), nil
	}
}
