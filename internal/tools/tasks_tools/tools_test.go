package tasks_tools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/AmeliaRose802/mailtriage/internal/server"
	"github.com/AmeliaRose802/mailtriage/internal/taskstore"
)

func newTestServerContext(t *testing.T) *server.ServerContext {
	t.Helper()

	store, err := taskstore.Open(filepath.Join(t.TempDir(), "tasks.db"), nil)
	if err != nil {
		t.Fatalf("failed to open task store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sc, err := server.NewServerContext(context.Background(), server.Config{Store: store})
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	t.Cleanup(func() { sc.Shutdown() })

	return sc
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	if len(result.Content) == 0 {
		t.Fatal("expected result content")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func saveTestRecords(t *testing.T, sc *server.ServerContext) {
	t.Helper()

	records := []taskstore.ActionRecord{
		{
			TaskID:           "task-abc123",
			ActionType:       taskstore.ActionRequiredPersonal,
			Priority:         taskstore.PriorityHigh,
			Topic:            "Sign the contract",
			CanonicalEmailID: "email-1",
		},
		{
			TaskID:           "task-def456",
			ActionType:       taskstore.ActionFYI,
			Priority:         taskstore.PriorityLow,
			Topic:            "Office closed Friday",
			CanonicalEmailID: "email-2",
		},
	}
	if err := sc.Store().Save(context.Background(), records, time.Now()); err != nil {
		t.Fatalf("failed to save records: %v", err)
	}
}

func TestListOutstanding_Empty(t *testing.T) {
	sc := newTestServerContext(t)

	handler := listOutstandingHandler(sc)
	result, err := handler(context.Background(), toolRequest(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
}

func TestListOutstanding_ReturnsSavedTasks(t *testing.T) {
	sc := newTestServerContext(t)
	saveTestRecords(t, sc)

	handler := listOutstandingHandler(sc)
	result, err := handler(context.Background(), toolRequest(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "task-abc123") {
		t.Errorf("expected task-abc123 in output, got: %s", text)
	}
	if !strings.Contains(text, "task-def456") {
		t.Errorf("expected task-def456 in output, got: %s", text)
	}
}

func TestListOutstanding_FilterByActionType(t *testing.T) {
	sc := newTestServerContext(t)
	saveTestRecords(t, sc)

	handler := listOutstandingHandler(sc)
	result, err := handler(context.Background(), toolRequest(map[string]interface{}{
		"actionType": taskstore.ActionFYI,
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	text := resultText(t, result)
	if strings.Contains(text, "task-abc123") {
		t.Errorf("did not expect task-abc123 in filtered output, got: %s", text)
	}
	if !strings.Contains(text, "task-def456") {
		t.Errorf("expected task-def456 in filtered output, got: %s", text)
	}
}

func TestMarkCompleted(t *testing.T) {
	sc := newTestServerContext(t)
	saveTestRecords(t, sc)

	handler := markCompletedHandler(sc)
	result, err := handler(context.Background(), toolRequest(map[string]interface{}{
		"taskIds": "task-abc123",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, `"successful": 1`) {
		t.Errorf("expected one successful result, got: %s", text)
	}

	snapshot, err := sc.Store().Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if got := snapshot[taskstore.ActionRequiredPersonal]; len(got) != 1 || !got[0].Completed {
		t.Errorf("expected required_personal_action task to be completed, got %+v", got)
	}
	if got := snapshot[taskstore.ActionFYI]; len(got) != 1 || got[0].Completed {
		t.Errorf("expected fyi task to remain outstanding, got %+v", got)
	}
}

func TestMarkCompleted_UnknownID(t *testing.T) {
	sc := newTestServerContext(t)
	saveTestRecords(t, sc)

	handler := markCompletedHandler(sc)
	result, err := handler(context.Background(), toolRequest(map[string]interface{}{
		"taskIds": []interface{}{"task-abc123", "task-missing"},
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, `"failed": 1`) {
		t.Errorf("expected one failed result for the unknown id, got: %s", text)
	}
	if !strings.Contains(text, "no such task") {
		t.Errorf("expected unknown-id error in results, got: %s", text)
	}
}

func TestMarkCompleted_MissingTaskIds(t *testing.T) {
	sc := newTestServerContext(t)

	handler := markCompletedHandler(sc)
	result, err := handler(context.Background(), toolRequest(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for missing taskIds")
	}
}

func TestRegisterTasksTools(t *testing.T) {
	sc := newTestServerContext(t)
	s := mcpserver.NewMCPServer("test", "0.0.1")

	if err := RegisterTasksTools(s, sc, false); err != nil {
		t.Errorf("RegisterTasksTools() error = %v", err)
	}
}

func TestRegisterTasksTools_ReadOnly(t *testing.T) {
	sc := newTestServerContext(t)
	s := mcpserver.NewMCPServer("test", "0.0.1")

	if err := RegisterTasksTools(s, sc, true); err != nil {
		t.Errorf("RegisterTasksTools() error = %v", err)
	}
}
