package ai

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBuildClassificationPrompt(t *testing.T) {
	prompt := BuildClassificationPrompt(EmailContext{
		ID:           "msg-42",
		Subject:      "Quarterly review prep",
		Sender:       "boss@example.com",
		Recipient:    "me@example.com",
		Body:         "Please prepare the slides by Friday.",
		ReceivedDate: "2026-03-01T09:00:00Z",
	})

	assert.Contains(t, prompt, "msg-42")
	assert.Contains(t, prompt, "Quarterly review prep")
	assert.Contains(t, prompt, "Please prepare the slides by Friday.")
	// Every bucket key the builder recognizes must be named so the
	// model knows the expected shape.
	for _, bucket := range []string{
		"truly_relevant_actions",
		"optional_actions",
		"superseded_actions",
		"job_listings",
		"fyi_notices",
	} {
		assert.Contains(t, prompt, bucket)
	}
}

func TestBuildClassificationPromptTruncatesBody(t *testing.T) {
	long := strings.Repeat("x", maxBodyChars+500)
	prompt := BuildClassificationPrompt(EmailContext{ID: "msg-1", Body: long})

	assert.Contains(t, prompt, "[truncated]")
	assert.Less(t, len(prompt), len(long))
}

func TestBuildClassificationPromptTruncatesOnRuneBoundary(t *testing.T) {
	// Position a multi-byte rune so the byte limit lands inside it.
	long := strings.Repeat("x", maxBodyChars-1) + strings.Repeat("é", 300)
	prompt := BuildClassificationPrompt(EmailContext{ID: "msg-1", Body: long})

	assert.Contains(t, prompt, "[truncated]")
	assert.True(t, utf8.ValidString(prompt))
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "", nil)
	assert.Error(t, err)
}
