package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenProvider supplies OAuth tokens for Gmail API calls. The mailbox
// client takes one so token storage can live somewhere other than the
// local token files (an encrypted store, a secrets manager).
type TokenProvider interface {
	// GetTokenForAccount returns a usable OAuth token for the account.
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// HasTokenForAccount reports whether a token is available for the
	// account without forcing a refresh.
	HasTokenForAccount(account string) bool
}

// FileTokenProvider reads tokens from the per-account token files
// written by the auth command. It is the provider used by the stdio
// transport and the CLI.
type FileTokenProvider struct{}

// NewFileTokenProvider returns a provider backed by on-disk token files.
func NewFileTokenProvider() *FileTokenProvider {
	return &FileTokenProvider{}
}

// GetTokenForAccount loads the stored token for account and refreshes it
// if needed.
func (p *FileTokenProvider) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	ts, err := GetTokenSourceForAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	token, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get token from file: %w", err)
	}

	return token, nil
}

// HasTokenForAccount reports whether a token file exists for account.
func (p *FileTokenProvider) HasTokenForAccount(account string) bool {
	return HasTokenForAccount(account)
}
