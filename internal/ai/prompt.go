package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// EmailContext is the subset of a message handed to the model for
// classification.
type EmailContext struct {
	ID           string
	Subject      string
	Sender       string
	Recipient    string
	Body         string
	ReceivedDate string
}

// maxBodyChars bounds how much of the body is sent to the model.
// Long newsletters blow past context limits without adding signal.
const maxBodyChars = 4000

// BuildClassificationPrompt renders the triage prompt for one email.
// The model is instructed to answer with a single JSON object keyed by
// category bucket; the response is still treated as untrusted and goes
// through repair before parsing.
func BuildClassificationPrompt(email EmailContext) string {
	body := email.Body
	if len(body) > maxBodyChars {
		// Back up to a rune boundary so the cut never splits a
		// multi-byte character.
		cut := maxBodyChars
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "\n[truncated]"
	}

	var b strings.Builder
	b.WriteString("You are an email triage assistant. Classify the email below into action categories.\n\n")
	b.WriteString("Respond with ONLY a JSON object, no prose, using these keys (omit empty ones):\n")
	b.WriteString("  \"truly_relevant_actions\": actions the recipient personally must take\n")
	b.WriteString("  \"optional_actions\": actions the recipient may take but can safely skip\n")
	b.WriteString("  \"superseded_actions\": actions made obsolete by a later message\n")
	b.WriteString("  \"job_listings\": job opportunities worth reviewing\n")
	b.WriteString("  \"fyi_notices\": informational items needing no action\n\n")
	b.WriteString("Each key maps to an array of objects with fields:\n")
	b.WriteString("  \"topic\" (short summary), \"why_relevant\" (one sentence),\n")
	b.WriteString("  \"priority\" (\"high\", \"medium\", or \"low\")\n\n")
	fmt.Fprintf(&b, "Email id: %s\n", email.ID)
	fmt.Fprintf(&b, "Received: %s\n", email.ReceivedDate)
	fmt.Fprintf(&b, "From: %s\n", email.Sender)
	fmt.Fprintf(&b, "To: %s\n", email.Recipient)
	fmt.Fprintf(&b, "Subject: %s\n\n", email.Subject)
	b.WriteString(body)
	return b.String()
}
