package mailbox

import (
	"encoding/base64"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

// Message is the triage-facing view of one email. The ID is opaque and
// assumed stable for the lifetime of the message; downstream code keys
// derived task ids off it.
type Message struct {
	ID           string    `json:"id"`
	ThreadID     string    `json:"thread_id"`
	Subject      string    `json:"subject"`
	Sender       string    `json:"sender"`
	Recipient    string    `json:"recipient"`
	Snippet      string    `json:"snippet"`
	Body         string    `json:"body"`
	ReceivedDate time.Time `json:"received_date"`
}

// FromGmailMessage converts a full-format Gmail message. The body is
// the first text/plain part found, falling back to text/html when no
// plain part exists.
func FromGmailMessage(m *gmail.Message) Message {
	msg := Message{
		ID:        m.Id,
		ThreadID:  m.ThreadId,
		Subject:   HeaderValue(m, "Subject"),
		Sender:    HeaderValue(m, "From"),
		Recipient: HeaderValue(m, "To"),
		Snippet:   m.Snippet,
	}

	if m.InternalDate > 0 {
		msg.ReceivedDate = time.UnixMilli(m.InternalDate).UTC()
	}

	msg.Body = messageBody(m, "text/plain")
	if msg.Body == "" {
		msg.Body = messageBody(m, "text/html")
	}

	return msg
}

// HeaderValue extracts a header value from a Gmail message.
func HeaderValue(m *gmail.Message, header string) string {
	mpart := m.Payload
	if mpart == nil {
		return ""
	}
	for _, mph := range mpart.Headers {
		if mph.Name == header {
			return mph.Value
		}
	}
	return ""
}

// messageBody finds and decodes the first body part with the given
// MIME type.
func messageBody(m *gmail.Message, mimeType string) string {
	if m.Payload == nil {
		return ""
	}

	var data string
	if m.Payload.MimeType == mimeType && m.Payload.Body != nil && m.Payload.Body.Data != "" {
		data = m.Payload.Body.Data
	} else {
		walkParts(m.Payload, func(part *gmail.MessagePart) {
			if data == "" && part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
				data = part.Body.Data
			}
		})
	}
	if data == "" {
		return ""
	}

	// Gmail API uses RFC 4648 base64url encoding; fall back to standard
	// base64 for odd producers.
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// walkParts recursively walks through message parts.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}
