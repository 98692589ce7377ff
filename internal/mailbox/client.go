package mailbox

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/AmeliaRose802/mailtriage/internal/google"
)

// DefaultQuery selects the messages a triage run looks at when the
// caller does not narrow it down.
const DefaultQuery = "in:inbox"

// listPageSize is the Gmail API maximum page size.
const listPageSize = 100

// Client wraps the Gmail Users service for one account.
type Client struct {
	svc     *gmail.UsersService
	account string
}

// Account returns the account name this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// HasTokenForAccountWithProvider checks whether the given provider has a
// token for the specified account.
func HasTokenForAccountWithProvider(account string, provider google.TokenProvider) bool {
	if provider == nil {
		return false
	}
	return provider.HasTokenForAccount(account)
}

// HasTokenForAccount checks if a valid OAuth token exists for the specified account.
func HasTokenForAccount(account string) bool {
	return HasTokenForAccountWithProvider(account, google.NewFileTokenProvider())
}

// HasToken checks if a valid OAuth token exists for the default account.
func HasToken() bool {
	return HasTokenForAccount("default")
}

// NewClientForAccountWithProvider creates a Gmail-backed mailbox client
// for a specific account, retrieving the OAuth token from the given
// provider.
func NewClientForAccountWithProvider(ctx context.Context, account string, tokenProvider google.TokenProvider) (*Client, error) {
	if tokenProvider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	token, err := tokenProvider.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w. Please authenticate first", account, err)
	}

	conf := google.GetOAuthConfig()
	tokenSource := conf.TokenSource(ctx, token)
	client := oauth2.NewClient(ctx, tokenSource)

	// Force HTTP/1.1 by disabling HTTP/2
	transport := client.Transport.(*oauth2.Transport)
	transport.Base = &http.Transport{
		ForceAttemptHTTP2: false,
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:     svc.Users,
		account: account,
	}, nil
}

// NewClientForAccount creates a Gmail-backed mailbox client with OAuth2
// authentication for a specific account, using tokens stored on disk.
func NewClientForAccount(ctx context.Context, account string) (*Client, error) {
	return NewClientForAccountWithProvider(ctx, account, google.NewFileTokenProvider())
}

// NewClientWithProvider creates a mailbox client for the default account
// using the given token provider.
func NewClientWithProvider(ctx context.Context, provider google.TokenProvider) (*Client, error) {
	return NewClientForAccountWithProvider(ctx, "default", provider)
}

// NewClient creates a mailbox client for the default account.
func NewClient(ctx context.Context) (*Client, error) {
	return NewClientForAccount(ctx, "default")
}

// GetMessage retrieves one full message and converts it.
func (c *Client) GetMessage(messageID string) (Message, error) {
	msg, err := c.svc.Messages.Get("me", messageID).Format("full").Do()
	if err != nil {
		return Message{}, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return FromGmailMessage(msg), nil
}

// ListMessages fetches up to maxResults messages matching the query,
// paginating through the API as needed, and converts each to the
// triage-facing Message shape. An empty query falls back to
// DefaultQuery.
func (c *Client) ListMessages(q string, maxResults int64) ([]Message, error) {
	if q == "" {
		q = DefaultQuery
	}

	var ids []string
	pageToken := ""
	for {
		remaining := maxResults - int64(len(ids))
		if remaining <= 0 {
			break
		}

		pageSize := remaining
		if pageSize > listPageSize {
			pageSize = listPageSize
		}

		req := c.svc.Messages.List("me").Q(q).MaxResults(pageSize)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}

		if res.NextPageToken == "" || int64(len(ids)) >= maxResults {
			break
		}
		pageToken = res.NextPageToken
	}

	if int64(len(ids)) > maxResults {
		ids = ids[:maxResults]
	}

	messages := make([]Message, 0, len(ids))
	for _, id := range ids {
		msg, err := c.GetMessage(id)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
