package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AmeliaRose802/mailtriage/internal/accuracy"
	"github.com/AmeliaRose802/mailtriage/internal/ai"
	"github.com/AmeliaRose802/mailtriage/internal/taskstore"
)

// dataDir returns the directory holding the task and accuracy databases.
// Overridable with MAILTRIAGE_DATA_DIR.
func dataDir() string {
	if dir := os.Getenv("MAILTRIAGE_DATA_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "mailtriage")
	}
	return filepath.Join(homeDir(), ".local", "share", "mailtriage")
}

func tasksDBPath(dir string) string {
	return filepath.Join(dir, "tasks.db")
}

func accuracyDBPath(dir string) string {
	return filepath.Join(dir, "accuracy.db")
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	// Windows fallback
	return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
}

// newLogger builds the process logger. Debug mode lowers the level and
// the output always goes to stderr so stdio transports stay clean.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openStores opens the task store and accuracy tracker under dir.
func openStores(dir string, logger *slog.Logger) (*taskstore.Store, *accuracy.Tracker, error) {
	store, err := taskstore.Open(tasksDBPath(dir), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open task store: %w", err)
	}

	tracker, err := accuracy.Open(accuracyDBPath(dir), logger)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to open accuracy tracker: %w", err)
	}

	return store, tracker, nil
}

// newCompleter builds the Gemini completer from the environment.
// Returns an error when GEMINI_API_KEY is not set.
func newCompleter(ctx context.Context, model string, logger *slog.Logger) (ai.Completer, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}
	return ai.NewGeminiClient(ctx, apiKey, model, logger)
}
